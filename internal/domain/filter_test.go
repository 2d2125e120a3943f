package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/utafrali/customerdash/pkg/errors"
)

func sampleReviews() []Review {
	return []Review{
		{ID: "r1", Rating: 5, Comment: "Great coffee", Product: &Product{Name: "Espresso"}},
		{ID: "r2", Rating: 4, Comment: "Nice foam", Product: &Product{Name: "Latte"}},
		{ID: "r3", Rating: 5, Comment: "", Product: nil},
		{ID: "r4", Rating: 1, Comment: "Too bitter, like bad COFFEE", Product: &Product{Name: "Mocha"}},
		{ID: "r5", Rating: 3, Comment: "meh", Product: &Product{ID: "p5"}},
	}
}

func ids(reviews []Review) []string {
	out := make([]string, 0, len(reviews))
	for _, r := range reviews {
		out = append(out, r.ID)
	}
	return out
}

func TestFilterReviews_AllEmptyQueryIsIdentity(t *testing.T) {
	in := sampleReviews()

	got := FilterReviews(in, DefaultFilterState())

	assert.Equal(t, in, got)
}

func TestFilterReviews_ByRating(t *testing.T) {
	reviews := sampleReviews()

	for _, opt := range FilterOptions()[1:] {
		t.Run(string(opt.Value), func(t *testing.T) {
			want, _ := opt.Value.Rating()
			for _, r := range FilterReviews(reviews, FilterState{Rating: opt.Value}) {
				assert.Equal(t, want, r.Rating)
			}
		})
	}

	assert.Equal(t, []string{"r1", "r3"}, ids(FilterReviews(reviews, FilterState{Rating: FilterFive})))
	assert.Empty(t, FilterReviews(reviews, FilterState{Rating: FilterTwo}))
}

func TestFilterReviews_Search(t *testing.T) {
	reviews := sampleReviews()

	tests := []struct {
		name  string
		state FilterState
		want  []string
	}{
		{"comment match case-insensitive", FilterState{Rating: FilterAll, Query: "coffee"}, []string{"r1", "r4"}},
		{"product name match", FilterState{Rating: FilterAll, Query: "LAT"}, []string{"r2"}},
		{"no match", FilterState{Rating: FilterAll, Query: "chai"}, []string{}},
		{"missing product never matches fallback label", FilterState{Rating: FilterAll, Query: "product"}, []string{}},
		{"rating first then search", FilterState{Rating: FilterFive, Query: "coffee"}, []string{"r1"}},
		{"rating excludes regardless of search", FilterState{Rating: FilterFour, Query: "coffee"}, []string{}},
		{"whitespace query is literal", FilterState{Rating: FilterAll, Query: " "}, []string{"r1", "r2", "r4"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ids(FilterReviews(reviews, tt.state)))
		})
	}
}

func TestFilterReviews_NeverNil(t *testing.T) {
	assert.NotNil(t, FilterReviews(nil, DefaultFilterState()))
	assert.NotNil(t, FilterReviews(sampleReviews(), FilterState{Rating: FilterTwo}))
}

func TestFilterReviews_DoesNotMutateInput(t *testing.T) {
	in := sampleReviews()
	before := ids(in)

	_ = FilterReviews(in, FilterState{Rating: FilterFive, Query: "x"})

	assert.Equal(t, before, ids(in))
}

func TestParseRatingFilter(t *testing.T) {
	for _, s := range []string{"all", "5", "4", "3", "2", "1"} {
		f, err := ParseRatingFilter(s)
		require.NoError(t, err)
		assert.Equal(t, RatingFilter(s), f)
	}

	f, err := ParseRatingFilter("")
	require.NoError(t, err)
	assert.Equal(t, FilterAll, f)

	for _, s := range []string{"0", "6", "five", "55", "ALL"} {
		f, err := ParseRatingFilter(s)
		require.Error(t, err, s)
		assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
		assert.Equal(t, FilterAll, f)
	}
}

func TestFilterOptions(t *testing.T) {
	labels := make([]string, 0, 6)
	for _, o := range FilterOptions() {
		labels = append(labels, o.Label)
	}
	assert.Equal(t, []string{"All Reviews", "5 Stars", "4 Stars", "3 Stars", "2 Stars", "1 Star"}, labels)

	_, ok := FilterAll.Rating()
	assert.False(t, ok)
}
