package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/breathebhutan/tashi/internal/types"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// MockManager is a mock implementation of the conversation.Manager interface
type MockManager struct {
	mock.Mock
}

func (m *MockManager) StartConversation(ctx context.Context, userID string) types.BotResponse {
	args := m.Called(ctx, userID)
	return args.Get(0).(types.BotResponse)
}

func (m *MockManager) ProcessMessage(ctx context.Context, userID, text string) types.BotResponse {
	args := m.Called(ctx, userID, text)
	return args.Get(0).(types.BotResponse)
}

func (m *MockManager) EndConversation(ctx context.Context, userID string) {
	m.Called(ctx, userID)
}

func (m *MockManager) Sweep(ctx context.Context, now time.Time) int {
	args := m.Called(ctx, now)
	return args.Int(0)
}

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

func newTestRouter(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Post("/chat/{userID}", h.ProcessMessage)
	r.Post("/chat/{userID}/reset", h.ResetConversation)
	r.Get("/records/{category}", h.SearchRecords)
	r.Get("/records/{category}/{recordID}", h.GetRecord)
	r.Post("/admin/cache/invalidate", h.InvalidateCache)
	return r
}

func TestProcessMessageHandler(t *testing.T) {
	manager := new(MockManager)
	manager.On("ProcessMessage", mock.Anything, "user-1", "hello").Return(types.BotResponse{
		Text: "Hello! What kind of trip are you planning?",
	})

	h := NewHandler(manager, new(MockStore), testLogger())
	router := newTestRouter(h)

	body := bytes.NewBufferString(`{"message": "hello"}`)
	req := httptest.NewRequest(http.MethodPost, "/chat/user-1", body)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	var resp types.BotResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "Hello! What kind of trip are you planning?", resp.Text)
	manager.AssertExpectations(t)
}

func TestProcessMessageHandlerRejectsEmptyMessage(t *testing.T) {
	h := NewHandler(new(MockManager), new(MockStore), testLogger())
	router := newTestRouter(h)

	req := httptest.NewRequest(http.MethodPost, "/chat/user-1", bytes.NewBufferString(`{"message": ""}`))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestProcessMessageHandlerRejectsBadJSON(t *testing.T) {
	h := NewHandler(new(MockManager), new(MockStore), testLogger())
	router := newTestRouter(h)

	req := httptest.NewRequest(http.MethodPost, "/chat/user-1", bytes.NewBufferString(`{not json`))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestResetConversationHandler(t *testing.T) {
	manager := new(MockManager)
	manager.On("StartConversation", mock.Anything, "user-1").Return(types.BotResponse{
		Text: "Welcome back! Let's start fresh.",
	})

	h := NewHandler(manager, new(MockStore), testLogger())
	router := newTestRouter(h)

	req := httptest.NewRequest(http.MethodPost, "/chat/user-1/reset", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	manager.AssertExpectations(t)
}

func TestSearchRecordsHandler(t *testing.T) {
	store := new(MockStore)
	store.On("Search", mock.Anything, types.CategoryTours, "dzong").Return([]types.Record{
		{ID: "t1", Title: "Cultural Heartland"},
	})

	h := NewHandler(new(MockManager), store, testLogger())
	router := newTestRouter(h)

	req := httptest.NewRequest(http.MethodGet, "/records/tours?q=dzong", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	var recs []types.Record
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &recs))
	require.Len(t, recs, 1)
	assert.Equal(t, "Cultural Heartland", recs[0].Title)
	store.AssertExpectations(t)
}

func TestSearchRecordsHandlerWithoutQueryLoadsAll(t *testing.T) {
	store := new(MockStore)
	store.On("Load", mock.Anything, types.CategoryFestivals).Return([]types.Record{
		{ID: "f1", Title: "Thimphu Tshechu"},
	})

	h := NewHandler(new(MockManager), store, testLogger())
	router := newTestRouter(h)

	req := httptest.NewRequest(http.MethodGet, "/records/festivals", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	store.AssertExpectations(t)
}

func TestSearchRecordsHandlerUnknownCategory(t *testing.T) {
	h := NewHandler(new(MockManager), new(MockStore), testLogger())
	router := newTestRouter(h)

	req := httptest.NewRequest(http.MethodGet, "/records/hotels", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestGetRecordHandler(t *testing.T) {
	store := new(MockStore)
	store.On("GetByID", mock.Anything, types.CategoryTrekking, "k1").Return(&types.Record{
		ID: "k1", Title: "Druk Path Trek",
	}, true)

	h := NewHandler(new(MockManager), store, testLogger())
	router := newTestRouter(h)

	req := httptest.NewRequest(http.MethodGet, "/records/trekking/k1", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	var rec types.Record
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &rec))
	assert.Equal(t, "Druk Path Trek", rec.Title)
}

func TestGetRecordHandlerNotFound(t *testing.T) {
	store := new(MockStore)
	store.On("GetByID", mock.Anything, types.CategoryTours, "missing").Return(nil, false)

	h := NewHandler(new(MockManager), store, testLogger())
	router := newTestRouter(h)

	req := httptest.NewRequest(http.MethodGet, "/records/tours/missing", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestInvalidateCacheHandler(t *testing.T) {
	store := new(MockStore)
	store.On("InvalidateCache").Return()

	h := NewHandler(new(MockManager), store, testLogger())
	router := newTestRouter(h)

	req := httptest.NewRequest(http.MethodPost, "/admin/cache/invalidate", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	store.AssertExpectations(t)
}
