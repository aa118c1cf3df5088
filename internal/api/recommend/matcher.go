package recommend

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/breathebhutan/tashi/internal/api/records"
	"github.com/breathebhutan/tashi/internal/types"
)

// Ensure implementation satisfies the interface
var _ Matcher = (*MatcherImpl)(nil)

// Matcher turns a preference set into a ranked candidate list.
type Matcher interface {
	Recommend(ctx context.Context, prefs types.Preferences) ([]types.Record, error)
}

// customResultLimit caps the unioned candidate list for custom trips.
const customResultLimit = 10

// Relevance weights. Interests score per match location; duration closeness
// is added on top before the final sort.
const (
	titleMatchScore       = 3
	descriptionMatchScore = 2
	highlightMatchScore   = 1

	durationExactBonus = 5
	durationCloseBonus = 3
	durationNearBonus  = 1
)

// seasonBuckets maps each quarter of the year to the season keywords that
// admit it. A record whose best_season text mentions any keyword of the
// target month's bucket is kept.
var seasonBuckets = []struct {
	months   [3]int
	keywords []string
}{
	{[3]int{12, 1, 2}, []string{"winter", "december", "january", "february"}},
	{[3]int{3, 4, 5}, []string{"spring", "march", "april", "may"}},
	{[3]int{6, 7, 8}, []string{"summer", "june", "july", "august"}},
	{[3]int{9, 10, 11}, []string{"fall", "autumn", "september", "october", "november"}},
}

// MatcherImpl scores and filters record-store output against preferences.
type MatcherImpl struct {
	logger *slog.Logger
	store  records.Store
}

// NewMatcher creates a preference matcher backed by the given store.
func NewMatcher(store records.Store, logger *slog.Logger) *MatcherImpl {
	return &MatcherImpl{
		logger: logger,
		store:  store,
	}
}

// Recommend implements Matcher.
//
// Every optional filter carries the same guarantee: if applying it would
// empty the candidate set, it is skipped instead. A user never gets zero
// recommendations because of an optional preference.
func (m *MatcherImpl) Recommend(ctx context.Context, prefs types.Preferences) ([]types.Record, error) {
	ctx, span := otel.Tracer("PreferenceMatcher").Start(ctx, "Recommend", trace.WithAttributes(
		attribute.String("prefs.trip_type", string(prefs.TripType)),
		attribute.Int("prefs.duration_days", prefs.DurationDays),
		attribute.String("prefs.travel_month", prefs.TravelMonth),
		attribute.Int("prefs.interest_count", len(prefs.Interests)),
	))
	defer span.End()

	l := m.logger.With(slog.String("method", "Recommend"),
		slog.String("trip_type", string(prefs.TripType)))
	l.DebugContext(ctx, "Generating recommendations")

	var results []types.Record
	if category, ok := prefs.TripType.Category(); ok {
		candidates := m.candidatesForCategory(ctx, category, prefs, false)
		results = sortByRelevance(candidates, prefs)
	} else {
		// Custom trips draw from every corpus; each record is tagged with
		// its source category and the unioned list is capped.
		var union []types.Record
		for _, category := range types.AllCategories() {
			union = append(union, m.candidatesForCategory(ctx, category, prefs, true)...)
		}
		results = sortByRelevance(union, prefs)
		if len(results) > customResultLimit {
			results = results[:customResultLimit]
		}
	}

	l.InfoContext(ctx, "Generated recommendations", slog.Int("count", len(results)))
	span.SetStatus(codes.Ok, "recommendations generated")
	return results, nil
}

// candidatesForCategory applies the duration, month, and interest stages for
// one corpus and returns scored working copies.
func (m *MatcherImpl) candidatesForCategory(ctx context.Context, category types.Category, prefs types.Preferences, tagSource bool) []types.Record {
	var candidates []types.Record
	if prefs.DurationDays > 0 {
		minDays := prefs.DurationDays - 2
		if minDays < 1 {
			minDays = 1
		}
		candidates = m.store.FilterByDuration(ctx, category, minDays, prefs.DurationDays+2)
		if len(candidates) == 0 {
			candidates = m.store.Load(ctx, category)
		}
	} else {
		candidates = m.store.Load(ctx, category)
	}

	candidates = filterByTravelMonth(candidates, prefs.TravelMonth)
	candidates = scoreByInterests(candidates, prefs.Interests)

	if tagSource {
		tagged := make([]types.Record, len(candidates))
		copy(tagged, candidates)
		for i := range tagged {
			tagged[i].Source = category
		}
		return tagged
	}
	return candidates
}

// filterByTravelMonth keeps records available in the target month, judged by
// season keywords or explicit date ranges. Records with neither kind of
// information are always kept, and an empty result falls back to the input.
func filterByTravelMonth(recs []types.Record, travelMonth string) []types.Record {
	target, ok := types.ParseMonth(travelMonth)
	if !ok {
		return recs
	}

	var kept []types.Record
	for _, rec := range recs {
		if rec.BestSeason != "" {
			if seasonAdmitsMonth(rec.BestSeason, target) {
				kept = append(kept, rec)
			}
			continue
		}
		if len(rec.Dates) > 0 {
			for _, dr := range rec.Dates {
				if rangeCoversMonth(dr, target) {
					kept = append(kept, rec)
					break
				}
			}
			continue
		}
		kept = append(kept, rec)
	}

	if len(kept) == 0 {
		return recs
	}
	return kept
}

func seasonAdmitsMonth(season string, month int) bool {
	if strings.Contains(season, "year-round") || strings.Contains(season, "all year") {
		return true
	}
	for _, bucket := range seasonBuckets {
		if bucket.months[0] != month && bucket.months[1] != month && bucket.months[2] != month {
			continue
		}
		for _, kw := range bucket.keywords {
			if strings.Contains(season, kw) {
				return true
			}
		}
	}
	return false
}

// rangeCoversMonth compares months only; ranges that wrap across year-end
// (e.g. November through February) are honored.
func rangeCoversMonth(dr types.DateRange, month int) bool {
	start, err := time.Parse("2006-01-02", dr.Start)
	if err != nil {
		return false
	}
	end, err := time.Parse("2006-01-02", dr.End)
	if err != nil {
		return false
	}
	sm, em := int(start.Month()), int(end.Month())
	if sm <= em {
		return month >= sm && month <= em
	}
	return month >= sm || month <= em
}

// scoreByInterests attaches interest scores to working copies and drops
// zero-scorers, ordered by descending score. No interests, or no record
// matching any interest, leaves the input untouched.
func scoreByInterests(recs []types.Record, interests []string) []types.Record {
	if len(interests) == 0 {
		return recs
	}

	lowered := make([]string, len(interests))
	for i, interest := range interests {
		lowered[i] = strings.ToLower(interest)
	}

	var scored []types.Record
	for _, rec := range recs {
		score := 0
		title := strings.ToLower(rec.Title)
		description := strings.ToLower(rec.Description)
		for _, interest := range lowered {
			if strings.Contains(title, interest) {
				score += titleMatchScore
			}
			if strings.Contains(description, interest) {
				score += descriptionMatchScore
			}
			for _, h := range rec.Highlights {
				if strings.Contains(strings.ToLower(h), interest) {
					score += highlightMatchScore
				}
			}
		}
		if score > 0 {
			rec.Score = score
			scored = append(scored, rec)
		}
	}

	if len(scored) == 0 {
		return recs
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	return scored
}

// sortByRelevance adds the duration-closeness bonus to each candidate's
// score and orders descending. The sort is stable so ties preserve the
// interest ranking.
func sortByRelevance(recs []types.Record, prefs types.Preferences) []types.Record {
	sorted := make([]types.Record, len(recs))
	copy(sorted, recs)

	if prefs.DurationDays > 0 {
		for i := range sorted {
			days := sorted[i].Duration.Days
			if days == 0 {
				days = types.ParseDays(sorted[i].Duration.Text)
			}
			if days == 0 {
				continue
			}
			diff := days - prefs.DurationDays
			if diff < 0 {
				diff = -diff
			}
			switch {
			case diff == 0:
				sorted[i].Score += durationExactBonus
			case diff <= 2:
				sorted[i].Score += durationCloseBonus
			case diff <= 4:
				sorted[i].Score += durationNearBonus
			}
		}
	}

	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Score > sorted[j].Score })
	return sorted
}
