package domain

import (
	"strings"

	apperrors "github.com/utafrali/customerdash/pkg/errors"
)

// RatingFilter selects reviews by exact star rating.
type RatingFilter string

const (
	FilterAll   RatingFilter = "all"
	FilterFive  RatingFilter = "5"
	FilterFour  RatingFilter = "4"
	FilterThree RatingFilter = "3"
	FilterTwo   RatingFilter = "2"
	FilterOne   RatingFilter = "1"
)

// ParseRatingFilter maps a query value to a RatingFilter. The empty string
// means FilterAll.
func ParseRatingFilter(s string) (RatingFilter, error) {
	switch f := RatingFilter(strings.TrimSpace(s)); f {
	case "":
		return FilterAll, nil
	case FilterAll, FilterFive, FilterFour, FilterThree, FilterTwo, FilterOne:
		return f, nil
	default:
		return FilterAll, apperrors.InvalidInput("filter must be one of all, 5, 4, 3, 2, 1")
	}
}

// Rating returns the star count the filter matches, and false for FilterAll.
func (f RatingFilter) Rating() (int, bool) {
	if len(f) != 1 || f[0] < '1' || f[0] > '5' {
		return 0, false
	}
	return int(f[0] - '0'), true
}

// FilterOption is one toggle of the rating filter bar.
type FilterOption struct {
	Value RatingFilter `json:"value"`
	Label string       `json:"label"`
}

// FilterOptions returns the toggles in display order.
func FilterOptions() []FilterOption {
	return []FilterOption{
		{FilterAll, "All Reviews"},
		{FilterFive, "5 Stars"},
		{FilterFour, "4 Stars"},
		{FilterThree, "3 Stars"},
		{FilterTwo, "2 Stars"},
		{FilterOne, "1 Star"},
	}
}

// FilterState is the user's current filter selection.
type FilterState struct {
	Rating RatingFilter `json:"filter"`
	Query  string       `json:"query"`
}

// DefaultFilterState shows every review.
func DefaultFilterState() FilterState {
	return FilterState{Rating: FilterAll}
}

// FilterReviews returns the reviews matching state, in input order.
// The rating check runs first; the text search only considers reviews that
// passed it. The result is never nil.
func FilterReviews(reviews []Review, state FilterState) []Review {
	out := make([]Review, 0, len(reviews))
	rating, byRating := state.Rating.Rating()
	query := strings.ToLower(state.Query)

	for _, r := range reviews {
		switch {
		case byRating && r.Rating != rating:
			continue
		case query != "":
			if matchesQuery(r, query) {
				out = append(out, r)
			}
		default:
			out = append(out, r)
		}
	}
	return out
}

// matchesQuery expects query already lower-cased.
func matchesQuery(r Review, query string) bool {
	if r.Product != nil && r.Product.Name != "" &&
		strings.Contains(strings.ToLower(r.Product.Name), query) {
		return true
	}
	return r.Comment != "" && strings.Contains(strings.ToLower(r.Comment), query)
}
