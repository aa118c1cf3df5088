package recommend

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/breathebhutan/tashi/internal/types"
)

// MockStore is a mock implementation of the records.Store interface
type MockStore struct {
	mock.Mock
}

func (m *MockStore) Load(ctx context.Context, category types.Category) []types.Record {
	args := m.Called(ctx, category)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]types.Record)
}

func (m *MockStore) GetByID(ctx context.Context, category types.Category, id string) (*types.Record, bool) {
	args := m.Called(ctx, category, id)
	if args.Get(0) == nil {
		return nil, args.Bool(1)
	}
	return args.Get(0).(*types.Record), args.Bool(1)
}

func (m *MockStore) FilterByDuration(ctx context.Context, category types.Category, minDays, maxDays int) []types.Record {
	args := m.Called(ctx, category, minDays, maxDays)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]types.Record)
}

func (m *MockStore) Search(ctx context.Context, category types.Category, query string) []types.Record {
	args := m.Called(ctx, category, query)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]types.Record)
}

func (m *MockStore) Save(ctx context.Context, category types.Category, recs []types.Record) error {
	args := m.Called(ctx, category, recs)
	return args.Error(0)
}

func (m *MockStore) Update(ctx context.Context, category types.Category, id string, mutate func(*types.Record)) error {
	args := m.Called(ctx, category, id, mutate)
	return args.Error(0)
}

func (m *MockStore) InvalidateCache() {
	m.Called()
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func titles(recs []types.Record) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.Title
	}
	return out
}

func TestRecommendRanksByInterestAndDuration(t *testing.T) {
	store := new(MockStore)
	matcher := NewMatcher(store, testLogger())
	ctx := context.Background()

	candidates := []types.Record{
		{ID: "t1", Title: "Nature Valley Tour", Description: "Remote valleys.", Duration: types.Duration{Days: 7}},
		{ID: "t2", Title: "Classic Circuit", Description: "Culture and nature combined.", Duration: types.Duration{Days: 7}},
		{ID: "t3", Title: "City Stopover", Description: "Short urban break.", Duration: types.Duration{Days: 7}},
	}
	store.On("FilterByDuration", mock.Anything, types.CategoryTours, 5, 9).Return(candidates)

	recs, err := matcher.Recommend(ctx, types.Preferences{
		TripType:     types.TripCultural,
		DurationDays: 7,
		Interests:    []string{"nature"},
	})
	require.NoError(t, err)

	// Title match (3) beats description match (2); the no-match record is
	// dropped because others scored.
	assert.Equal(t, []string{"Nature Valley Tour", "Classic Circuit"}, titles(recs))
	store.AssertExpectations(t)
}

func TestRecommendScoreWeightsOrdering(t *testing.T) {
	store := new(MockStore)
	matcher := NewMatcher(store, testLogger())
	ctx := context.Background()

	candidates := []types.Record{
		{ID: "t1", Title: "Plain Tour", Highlights: []string{"nature walks"}},
		{ID: "t2", Title: "Plain Trip", Description: "Pure nature."},
		{ID: "t3", Title: "Nature Immersion"},
	}
	store.On("Load", mock.Anything, types.CategoryTours).Return(candidates)

	recs, err := matcher.Recommend(ctx, types.Preferences{
		TripType:  types.TripCultural,
		Interests: []string{"nature"},
	})
	require.NoError(t, err)

	// Title (3) > description (2) > highlight (1).
	assert.Equal(t, []string{"Nature Immersion", "Plain Trip", "Plain Tour"}, titles(recs))
}

func TestRecommendDurationBonusBreaksTies(t *testing.T) {
	store := new(MockStore)
	matcher := NewMatcher(store, testLogger())
	ctx := context.Background()

	candidates := []types.Record{
		{ID: "t1", Title: "Nature Nine", Duration: types.Duration{Days: 9}},
		{ID: "t2", Title: "Nature Seven", Duration: types.Duration{Days: 7}},
	}
	store.On("FilterByDuration", mock.Anything, types.CategoryTours, 5, 9).Return(candidates)

	recs, err := matcher.Recommend(ctx, types.Preferences{
		TripType:     types.TripCultural,
		DurationDays: 7,
		Interests:    []string{"nature"},
	})
	require.NoError(t, err)

	// Both score 3 on the title; the exact-length trip gets the bigger
	// duration bonus and comes first.
	assert.Equal(t, []string{"Nature Seven", "Nature Nine"}, titles(recs))
}

func TestRecommendDurationFallbackToFullCorpus(t *testing.T) {
	store := new(MockStore)
	matcher := NewMatcher(store, testLogger())
	ctx := context.Background()

	full := []types.Record{{ID: "t1", Title: "Only Tour", Duration: types.Duration{Days: 20}}}
	store.On("FilterByDuration", mock.Anything, types.CategoryTours, 5, 9).Return([]types.Record{})
	store.On("Load", mock.Anything, types.CategoryTours).Return(full)

	recs, err := matcher.Recommend(ctx, types.Preferences{
		TripType:     types.TripCultural,
		DurationDays: 7,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Only Tour"}, titles(recs))
}

func TestRecommendShortDurationClampsLowerBound(t *testing.T) {
	store := new(MockStore)
	matcher := NewMatcher(store, testLogger())
	ctx := context.Background()

	store.On("FilterByDuration", mock.Anything, types.CategoryTours, 1, 4).
		Return([]types.Record{{ID: "t1", Title: "Short"}})

	_, err := matcher.Recommend(ctx, types.Preferences{
		TripType:     types.TripCultural,
		DurationDays: 2,
	})
	require.NoError(t, err)
	store.AssertExpectations(t)
}

func TestRecommendTravelMonthFiltering(t *testing.T) {
	store := new(MockStore)
	matcher := NewMatcher(store, testLogger())
	ctx := context.Background()

	candidates := []types.Record{
		{ID: "t1", Title: "Spring Special", BestSeason: "spring, march, april, may"},
		{ID: "t2", Title: "Winter Only", BestSeason: "winter"},
		{ID: "t3", Title: "Anytime", BestSeason: "year-round"},
		{ID: "t4", Title: "No Season Info"},
		{ID: "t5", Title: "Dated", Dates: []types.DateRange{{Start: "2025-11-01", End: "2026-02-28"}}},
	}
	store.On("Load", mock.Anything, types.CategoryTours).Return(candidates)

	recs, err := matcher.Recommend(ctx, types.Preferences{
		TripType:    types.TripCultural,
		TravelMonth: "April",
	})
	require.NoError(t, err)

	// Spring, year-round and no-info records stay. The winter record and the
	// November-February range are dropped.
	assert.ElementsMatch(t, []string{"Spring Special", "Anytime", "No Season Info"}, titles(recs))
}

func TestRecommendDateRangeWrapsYearEnd(t *testing.T) {
	store := new(MockStore)
	matcher := NewMatcher(store, testLogger())
	ctx := context.Background()

	candidates := []types.Record{
		{ID: "t1", Title: "Winter Window", Dates: []types.DateRange{{Start: "2025-11-01", End: "2026-02-28"}}},
		{ID: "t2", Title: "Summer Window", Dates: []types.DateRange{{Start: "2025-06-01", End: "2025-08-31"}}},
	}
	store.On("Load", mock.Anything, types.CategoryTours).Return(candidates)

	recs, err := matcher.Recommend(ctx, types.Preferences{
		TripType:    types.TripCultural,
		TravelMonth: "January",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Winter Window"}, titles(recs))
}

func TestRecommendMonthFilterNeverEmpties(t *testing.T) {
	store := new(MockStore)
	matcher := NewMatcher(store, testLogger())
	ctx := context.Background()

	candidates := []types.Record{
		{ID: "t1", Title: "Winter Only", BestSeason: "winter"},
	}
	store.On("Load", mock.Anything, types.CategoryTours).Return(candidates)

	recs, err := matcher.Recommend(ctx, types.Preferences{
		TripType:    types.TripCultural,
		TravelMonth: "July",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Winter Only"}, titles(recs))
}

func TestRecommendInterestFilterNeverEmpties(t *testing.T) {
	store := new(MockStore)
	matcher := NewMatcher(store, testLogger())
	ctx := context.Background()

	candidates := []types.Record{
		{ID: "t1", Title: "Alpha"},
		{ID: "t2", Title: "Beta"},
	}
	store.On("Load", mock.Anything, types.CategoryTours).Return(candidates)

	recs, err := matcher.Recommend(ctx, types.Preferences{
		TripType:  types.TripCultural,
		Interests: []string{"unmatchable-interest"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Alpha", "Beta"}, titles(recs))
}

func TestRecommendCustomTripUnionsAndCaps(t *testing.T) {
	store := new(MockStore)
	matcher := NewMatcher(store, testLogger())
	ctx := context.Background()

	perCategory := func(prefix string) []types.Record {
		recs := make([]types.Record, 3)
		for i := range recs {
			recs[i] = types.Record{ID: prefix + string(rune('1'+i)), Title: prefix}
		}
		return recs
	}
	store.On("Load", mock.Anything, types.CategoryTours).Return(perCategory("tour"))
	store.On("Load", mock.Anything, types.CategoryFestivals).Return(perCategory("festival"))
	store.On("Load", mock.Anything, types.CategoryTrekking).Return(perCategory("trek"))
	store.On("Load", mock.Anything, types.CategoryItineraries).Return(perCategory("itinerary"))

	recs, err := matcher.Recommend(ctx, types.Preferences{TripType: types.TripCustom})
	require.NoError(t, err)

	assert.Len(t, recs, 10)
	for _, rec := range recs {
		assert.NotEmpty(t, rec.Source, "custom trip records must carry their source category")
	}
}

func TestRecommendIsDeterministic(t *testing.T) {
	store := new(MockStore)
	matcher := NewMatcher(store, testLogger())
	ctx := context.Background()

	candidates := []types.Record{
		{ID: "t1", Title: "Culture One", Description: "culture"},
		{ID: "t2", Title: "Culture Two", Description: "culture"},
		{ID: "t3", Title: "Culture Three", Description: "culture"},
	}
	store.On("Load", mock.Anything, types.CategoryTours).Return(candidates)

	prefs := types.Preferences{TripType: types.TripCultural, Interests: []string{"culture"}}

	first, err := matcher.Recommend(ctx, prefs)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := matcher.Recommend(ctx, prefs)
		require.NoError(t, err)
		assert.Equal(t, titles(first), titles(again))
	}

	// Equal scores keep corpus order.
	assert.Equal(t, []string{"Culture One", "Culture Two", "Culture Three"}, titles(first))
}
