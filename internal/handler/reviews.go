package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/utafrali/customerdash/internal/domain"
	"github.com/utafrali/customerdash/internal/loader"
	"github.com/utafrali/customerdash/internal/view"
	"github.com/utafrali/customerdash/pkg/httputil"
	"github.com/utafrali/customerdash/pkg/logger"
	pkgmw "github.com/utafrali/customerdash/pkg/middleware"
	"github.com/utafrali/customerdash/pkg/validator"
)

const maxQueryLen = 200

// Views opens and finds the page views of a user.
type Views interface {
	Mount(ctx context.Context, userID string) (string, *loader.Loader)
	Lookup(userID, viewID string) (*loader.Loader, bool)
}

// ReviewQuery holds the parameters of both review routes.
type ReviewQuery struct {
	Filter string `query:"filter" validate:"omitempty,oneof=all 5 4 3 2 1"`
	Query  string `query:"q" validate:"max=200"`
	View   string `query:"view" validate:"omitempty,uuid"`
}

// ReviewsHandler serves the reviews page and its JSON view model.
type ReviewsHandler struct {
	views  Views
	opts   view.Options
	wait   time.Duration
	logger *slog.Logger
}

// NewReviewsHandler creates a reviews handler. wait bounds how long the
// HTML page holds the request for a fetch to settle.
func NewReviewsHandler(views Views, opts view.Options, wait time.Duration, logger *slog.Logger) *ReviewsHandler {
	return &ReviewsHandler{views: views, opts: opts, wait: wait, logger: logger}
}

// Page handles GET /reviews. A request without a known view id mounts a
// new view and fetches; filter and search links carry the id and reuse
// it. Revisiting a view whose last fetch failed fetches again. An unknown
// filter shows all reviews and an over-long query is truncated.
func (h *ReviewsHandler) Page(w http.ResponseWriter, r *http.Request) {
	q := reviewQueryFrom(r)
	state := domain.FilterState{Rating: domain.FilterAll, Query: truncate(q.Query, maxQueryLen)}
	if f, err := domain.ParseRatingFilter(q.Filter); err == nil {
		state.Rating = f
	}

	viewID, snap, ok := h.snapshot(r, q.View, true, h.wait)
	if !ok {
		refresh := view.PageHref(h.opts.BasePath, viewID, state.Rating, state.Query)
		httputil.WriteHTML(w, r, http.StatusOK, view.LoadingPage(h.opts, refresh))
		return
	}
	httputil.WriteHTML(w, r, http.StatusOK, view.ReviewsPage(view.NewPageModel(snap, state, viewID, h.opts)))
}

// JSON handles GET /api/v1/dashboard/reviews. It never waits; clients
// poll with the returned view id until status is "loaded".
func (h *ReviewsHandler) JSON(w http.ResponseWriter, r *http.Request) {
	q := reviewQueryFrom(r)
	if err := validator.Validate(q); err != nil {
		httputil.WriteValidationError(w, r, err)
		return
	}
	rating, _ := domain.ParseRatingFilter(q.Filter)
	state := domain.FilterState{Rating: rating, Query: q.Query}

	viewID, snap, ok := h.snapshot(r, q.View, false, 0)
	if !ok {
		snap = loader.Snapshot{State: loader.StateLoading}
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: view.NewPageModel(snap, state, viewID, h.opts)})
}

// snapshot resolves the request's view and returns its state. Anonymous
// requests get no view and are never ok. ok is false until the view holds
// a settled result for the current user.
func (h *ReviewsHandler) snapshot(r *http.Request, viewID string, retry bool, wait time.Duration) (string, loader.Snapshot, bool) {
	ctx := r.Context()
	userID := pkgmw.UserIDFromContext(ctx)
	if userID == "" {
		return "", loader.Snapshot{}, false
	}

	l, found := h.views.Lookup(userID, viewID)
	switch {
	case !found:
		viewID, l = h.views.Mount(ctx, userID)
	case retry && l.Retry(ctx):
		logger.FromContext(ctx).InfoContext(ctx, "retrying failed review fetch",
			slog.String("view_id", viewID),
		)
	}

	if wait > 0 {
		waitCtx, cancel := context.WithTimeout(ctx, wait)
		if err := l.Wait(waitCtx); err != nil {
			logger.FromContext(ctx).DebugContext(ctx, "reviews still loading",
				slog.Duration("waited", wait),
			)
		}
		cancel()
	}

	snap := l.Snapshot()
	if snap.State != loader.StateLoaded || snap.UserID != userID {
		return viewID, snap, false
	}
	return viewID, snap, true
}

func reviewQueryFrom(r *http.Request) ReviewQuery {
	v := r.URL.Query()
	return ReviewQuery{Filter: v.Get("filter"), Query: v.Get("q"), View: v.Get("view")}
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
