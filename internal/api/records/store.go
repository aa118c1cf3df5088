package records

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	gocache "github.com/patrickmn/go-cache"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/breathebhutan/tashi/internal/types"
)

// Ensure implementation satisfies the interface
var _ Store = (*StoreImpl)(nil)

// Store defines read/write access to the scraped travel corpora.
type Store interface {
	// Load returns every record of a category. A missing or corrupt backing
	// file yields an empty slice, never an error; the matcher treats that as
	// "no candidates".
	Load(ctx context.Context, category types.Category) []types.Record
	// GetByID performs a linear lookup by record identifier.
	GetByID(ctx context.Context, category types.Category, id string) (*types.Record, bool)
	// FilterByDuration keeps records whose parsed day count falls within
	// [minDays, maxDays]; maxDays <= 0 means unbounded. Records without a
	// parseable duration are excluded.
	FilterByDuration(ctx context.Context, category types.Category, minDays, maxDays int) []types.Record
	// Search matches a query case-insensitively against title, description
	// and highlights.
	Search(ctx context.Context, category types.Category, query string) []types.Record
	// Save overwrites the backing file and the cache; readers never observe
	// a partially written category.
	Save(ctx context.Context, category types.Category, recs []types.Record) error
	// Update applies mutate to the record with the given ID and saves the
	// category.
	Update(ctx context.Context, category types.Category, id string, mutate func(*types.Record)) error
	// InvalidateCache forces the next Load to re-read from disk.
	InvalidateCache()
}

// trekEnvelope is the on-disk shape of the trekking corpus: the record list
// sits behind a "treks" key next to site-level metadata. Load and Save
// unwrap/rewrap it so category semantics stay uniform for callers.
type trekEnvelope struct {
	Treks       []types.Record  `json:"treks"`
	GeneralInfo json.RawMessage `json:"general_info,omitempty"`
	Metadata    json.RawMessage `json:"metadata,omitempty"`
}

// StoreImpl is a file-backed Store with a whole-category in-memory cache.
// Cache entries are replaced wholesale, never mutated in place, which keeps
// concurrent readers safe without read locks.
type StoreImpl struct {
	logger  *slog.Logger
	dataDir string
	cache   *gocache.Cache
	saveMu  sync.Mutex
}

// NewStore creates a record store rooted at dataDir.
func NewStore(dataDir string, logger *slog.Logger) *StoreImpl {
	return &StoreImpl{
		logger:  logger,
		dataDir: dataDir,
		cache:   gocache.New(gocache.NoExpiration, 0),
	}
}

func (s *StoreImpl) filePath(category types.Category) string {
	return filepath.Join(s.dataDir, string(category)+".json")
}

// Load implements Store.
func (s *StoreImpl) Load(ctx context.Context, category types.Category) []types.Record {
	_, span := otel.Tracer("RecordStore").Start(ctx, "Load", trace.WithAttributes(
		attribute.String("record.category", string(category)),
	))
	defer span.End()

	l := s.logger.With(slog.String("method", "Load"), slog.String("category", string(category)))

	if !category.Valid() {
		l.ErrorContext(ctx, "Invalid record category")
		span.SetStatus(codes.Error, "invalid category")
		return nil
	}

	if cached, ok := s.cache.Get(string(category)); ok {
		l.DebugContext(ctx, "Returning cached records")
		return cached.([]types.Record)
	}

	recs := s.readFromDisk(ctx, category)
	s.cache.Set(string(category), recs, gocache.NoExpiration)

	l.InfoContext(ctx, "Loaded records from disk", slog.Int("count", len(recs)))
	span.SetStatus(codes.Ok, "records loaded")
	return recs
}

func (s *StoreImpl) readFromDisk(ctx context.Context, category types.Category) []types.Record {
	l := s.logger.With(slog.String("method", "readFromDisk"), slog.String("category", string(category)))
	path := s.filePath(category)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			l.WarnContext(ctx, "Corpus file does not exist", slog.String("path", path))
		} else {
			l.WarnContext(ctx, "Failed to read corpus file", slog.String("path", path), slog.Any("error", err))
		}
		return []types.Record{}
	}

	if category == types.CategoryTrekking {
		var env trekEnvelope
		if err := json.Unmarshal(data, &env); err != nil {
			l.WarnContext(ctx, "Corrupt trekking corpus, treating as empty", slog.Any("error", err))
			return []types.Record{}
		}
		if env.Treks == nil {
			l.WarnContext(ctx, "Trekking corpus has no treks key")
			return []types.Record{}
		}
		return env.Treks
	}

	var recs []types.Record
	if err := json.Unmarshal(data, &recs); err != nil {
		l.WarnContext(ctx, "Corrupt corpus file, treating as empty", slog.String("path", path), slog.Any("error", err))
		return []types.Record{}
	}
	return recs
}

// GetByID implements Store.
func (s *StoreImpl) GetByID(ctx context.Context, category types.Category, id string) (*types.Record, bool) {
	for _, rec := range s.Load(ctx, category) {
		if rec.ID == id {
			found := rec
			return &found, true
		}
	}
	s.logger.WarnContext(ctx, "Record not found",
		slog.String("category", string(category)), slog.String("id", id))
	return nil, false
}

// FilterByDuration implements Store.
func (s *StoreImpl) FilterByDuration(ctx context.Context, category types.Category, minDays, maxDays int) []types.Record {
	_, span := otel.Tracer("RecordStore").Start(ctx, "FilterByDuration", trace.WithAttributes(
		attribute.String("record.category", string(category)),
		attribute.Int("filter.min_days", minDays),
		attribute.Int("filter.max_days", maxDays),
	))
	defer span.End()

	var results []types.Record
	for _, rec := range s.Load(ctx, category) {
		days := rec.Duration.Days
		if days == 0 {
			days = types.ParseDays(rec.Duration.Text)
		}
		if days == 0 {
			// Duration not parseable; exclude rather than error.
			continue
		}
		if days >= minDays && (maxDays <= 0 || days <= maxDays) {
			results = append(results, rec)
		}
	}

	s.logger.DebugContext(ctx, "Filtered records by duration",
		slog.String("category", string(category)),
		slog.Int("min_days", minDays), slog.Int("max_days", maxDays),
		slog.Int("count", len(results)))
	return results
}

// Search implements Store.
func (s *StoreImpl) Search(ctx context.Context, category types.Category, query string) []types.Record {
	query = strings.ToLower(query)
	var results []types.Record

	for _, rec := range s.Load(ctx, category) {
		if strings.Contains(strings.ToLower(rec.Title), query) ||
			strings.Contains(strings.ToLower(rec.Description), query) {
			results = append(results, rec)
			continue
		}
		for _, h := range rec.Highlights {
			if strings.Contains(strings.ToLower(h), query) {
				results = append(results, rec)
				break
			}
		}
	}

	s.logger.InfoContext(ctx, "Searched records",
		slog.String("category", string(category)), slog.String("query", query),
		slog.Int("count", len(results)))
	return results
}

// Save implements Store.
func (s *StoreImpl) Save(ctx context.Context, category types.Category, recs []types.Record) error {
	ctx, span := otel.Tracer("RecordStore").Start(ctx, "Save", trace.WithAttributes(
		attribute.String("record.category", string(category)),
		attribute.Int("record.count", len(recs)),
	))
	defer span.End()

	l := s.logger.With(slog.String("method", "Save"), slog.String("category", string(category)))

	if !category.Valid() {
		return fmt.Errorf("invalid record category %q", category)
	}

	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	payload, err := s.encodeCategory(category, recs)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to encode records")
		return fmt.Errorf("error encoding %s records: %w", category, err)
	}

	path := s.filePath(category)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		span.RecordError(err)
		return fmt.Errorf("error creating data directory: %w", err)
	}

	// Write-then-rename so readers never see a half-written corpus.
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, payload, 0o644); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to write corpus file")
		return fmt.Errorf("error writing %s corpus: %w", category, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to replace corpus file")
		return fmt.Errorf("error replacing %s corpus: %w", category, err)
	}

	s.cache.Set(string(category), recs, gocache.NoExpiration)

	l.InfoContext(ctx, "Saved records", slog.Int("count", len(recs)))
	span.SetStatus(codes.Ok, "records saved")
	return nil
}

// encodeCategory rewraps trekking records in their envelope, carrying over
// whatever site metadata the existing file holds.
func (s *StoreImpl) encodeCategory(category types.Category, recs []types.Record) ([]byte, error) {
	if category != types.CategoryTrekking {
		return json.MarshalIndent(recs, "", "  ")
	}

	env := trekEnvelope{Treks: recs}
	if data, err := os.ReadFile(s.filePath(category)); err == nil {
		var existing trekEnvelope
		if json.Unmarshal(data, &existing) == nil {
			env.GeneralInfo = existing.GeneralInfo
			env.Metadata = existing.Metadata
		}
	}
	return json.MarshalIndent(env, "", "  ")
}

// Update implements Store.
func (s *StoreImpl) Update(ctx context.Context, category types.Category, id string, mutate func(*types.Record)) error {
	recs := s.Load(ctx, category)

	updated := make([]types.Record, len(recs))
	copy(updated, recs)

	for i := range updated {
		if updated[i].ID == id {
			mutate(&updated[i])
			return s.Save(ctx, category, updated)
		}
	}
	return fmt.Errorf("record %q not found in %s", id, category)
}

// InvalidateCache implements Store.
func (s *StoreImpl) InvalidateCache() {
	s.cache.Flush()
	s.logger.Info("Record cache cleared")
}
