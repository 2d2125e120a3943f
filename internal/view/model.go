// Package view renders the "Reviews Given" dashboard page.
package view

import (
	"net/url"
	"strings"
	"time"

	"github.com/utafrali/customerdash/internal/domain"
	"github.com/utafrali/customerdash/internal/loader"
)

// Options are the display settings shared by every page.
type Options struct {
	BasePath       string // path of the page itself, used in filter links
	DashboardURL   string
	DateLayout     string
	Location       *time.Location
	RefreshSeconds int
}

// PageModel is everything the page shows. It is also the JSON view model.
type PageModel struct {
	Status  loader.State        `json:"status"`
	Filter  domain.RatingFilter `json:"filter"`
	Query   string              `json:"query"`
	Reviews []ReviewCard        `json:"reviews"`
	Total   int                 `json:"total"`
	Failed  bool                `json:"failed"`
	View    string              `json:"view,omitempty"`

	Filters      []FilterToggle `json:"-"`
	DashboardURL string         `json:"-"`
	BasePath     string         `json:"-"`
}

// ReviewCard is one rendered review.
type ReviewCard struct {
	ID          string           `json:"id"`
	ProductName string           `json:"productName"`
	Rating      int              `json:"rating"`
	Stars       string           `json:"stars"`
	Comment     string           `json:"comment"`
	Date        string           `json:"date"`
	CreatedAt   domain.Timestamp `json:"createdAt"`
}

// FilterToggle is one rating filter link.
type FilterToggle struct {
	Label  string
	Href   string
	Active bool
}

// NewPageModel applies state to the loader snapshot of view viewID. While
// loading the model carries no reviews.
func NewPageModel(snap loader.Snapshot, state domain.FilterState, viewID string, opts Options) PageModel {
	m := PageModel{
		Status:       snap.State,
		Filter:       state.Rating,
		Query:        state.Query,
		Reviews:      []ReviewCard{},
		Failed:       snap.Failed,
		View:         viewID,
		DashboardURL: opts.DashboardURL,
		BasePath:     opts.BasePath,
	}

	for _, o := range domain.FilterOptions() {
		m.Filters = append(m.Filters, FilterToggle{
			Label:  o.Label,
			Href:   PageHref(opts.BasePath, viewID, o.Value, state.Query),
			Active: o.Value == state.Rating,
		})
	}

	if snap.State != loader.StateLoaded {
		return m
	}

	for _, r := range domain.FilterReviews(snap.Reviews, state) {
		m.Reviews = append(m.Reviews, ReviewCard{
			ID:          r.ID,
			ProductName: r.ProductName(),
			Rating:      r.Rating,
			Stars:       strings.Repeat("★", r.Stars()),
			Comment:     r.Comment,
			Date:        r.CreatedAt.Format(opts.DateLayout, opts.Location),
			CreatedAt:   r.CreatedAt,
		})
	}
	m.Total = len(m.Reviews)
	return m
}

// PageHref links to the page at base with filter f and query. A non-empty
// viewID keeps the link on the same view and its loaded reviews.
func PageHref(base, viewID string, f domain.RatingFilter, query string) string {
	v := url.Values{}
	v.Set("filter", string(f))
	if query != "" {
		v.Set("q", query)
	}
	if viewID != "" {
		v.Set("view", viewID)
	}
	return base + "?" + v.Encode()
}
