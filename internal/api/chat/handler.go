package chat

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/breathebhutan/tashi/internal/api"
	"github.com/breathebhutan/tashi/internal/api/conversation"
	"github.com/breathebhutan/tashi/internal/api/records"
	"github.com/breathebhutan/tashi/internal/types"
)

// Handler exposes the dialogue engine and record store over HTTP.
type Handler struct {
	manager conversation.Manager
	store   records.Store
	logger  *slog.Logger
}

// NewHandler creates a chat handler instance.
func NewHandler(manager conversation.Manager, store records.Store, logger *slog.Logger) *Handler {
	return &Handler{
		manager: manager,
		store:   store,
		logger:  logger,
	}
}

// ProcessMessage advances a user's conversation one turn and returns the
// rendered response.
func (h *Handler) ProcessMessage(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("ChatHandler").Start(r.Context(), "ProcessMessage", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/chat/{userID}"),
	))
	defer span.End()

	l := h.logger.With(slog.String("handler", "ProcessMessage"))

	userID := chi.URLParam(r, "userID")
	if userID == "" {
		l.WarnContext(ctx, "Missing user ID in URL path")
		span.SetStatus(codes.Error, "Missing user ID")
		api.ErrorResponse(w, r, http.StatusBadRequest, "User ID is required")
		return
	}

	var req api.ChatRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		l.WarnContext(ctx, "Failed to decode request", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to decode request")
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if req.Message == "" {
		l.WarnContext(ctx, "Message is required")
		span.SetStatus(codes.Error, "Message is required")
		api.ErrorResponse(w, r, http.StatusBadRequest, "Message is required")
		return
	}

	resp := h.manager.ProcessMessage(ctx, userID, req.Message)

	span.SetStatus(codes.Ok, "Message processed successfully")
	api.WriteJSONResponse(w, r, http.StatusOK, resp)
}

// ResetConversation discards a user's conversation and starts a fresh one.
func (h *Handler) ResetConversation(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("ChatHandler").Start(r.Context(), "ResetConversation", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/chat/{userID}/reset"),
	))
	defer span.End()

	l := h.logger.With(slog.String("handler", "ResetConversation"))

	userID := chi.URLParam(r, "userID")
	if userID == "" {
		l.WarnContext(ctx, "Missing user ID in URL path")
		span.SetStatus(codes.Error, "Missing user ID")
		api.ErrorResponse(w, r, http.StatusBadRequest, "User ID is required")
		return
	}

	resp := h.manager.StartConversation(ctx, userID)

	l.InfoContext(ctx, "Conversation reset", slog.String("user_id", userID))
	span.SetStatus(codes.Ok, "Conversation reset successfully")
	api.WriteJSONResponse(w, r, http.StatusOK, resp)
}

// SearchRecords lists a category's records, optionally filtered by a query
// string.
func (h *Handler) SearchRecords(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("ChatHandler").Start(r.Context(), "SearchRecords", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/records/{category}"),
	))
	defer span.End()

	l := h.logger.With(slog.String("handler", "SearchRecords"))

	category := types.Category(chi.URLParam(r, "category"))
	if !category.Valid() {
		l.WarnContext(ctx, "Unknown record category", slog.String("category", string(category)))
		span.SetStatus(codes.Error, "Unknown record category")
		api.ErrorResponse(w, r, http.StatusNotFound, "Unknown record category")
		return
	}

	var recs []types.Record
	if query := r.URL.Query().Get("q"); query != "" {
		recs = h.store.Search(ctx, category, query)
	} else {
		recs = h.store.Load(ctx, category)
	}

	span.SetStatus(codes.Ok, "Records retrieved successfully")
	api.WriteJSONResponse(w, r, http.StatusOK, recs)
}

// GetRecord fetches a single record by category and ID.
func (h *Handler) GetRecord(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("ChatHandler").Start(r.Context(), "GetRecord", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/records/{category}/{recordID}"),
	))
	defer span.End()

	l := h.logger.With(slog.String("handler", "GetRecord"))

	category := types.Category(chi.URLParam(r, "category"))
	if !category.Valid() {
		l.WarnContext(ctx, "Unknown record category", slog.String("category", string(category)))
		span.SetStatus(codes.Error, "Unknown record category")
		api.ErrorResponse(w, r, http.StatusNotFound, "Unknown record category")
		return
	}

	recordID := chi.URLParam(r, "recordID")
	rec, ok := h.store.GetByID(ctx, category, recordID)
	if !ok {
		span.SetStatus(codes.Error, "Record not found")
		api.ErrorResponse(w, r, http.StatusNotFound, "Record not found")
		return
	}

	span.SetStatus(codes.Ok, "Record retrieved successfully")
	api.WriteJSONResponse(w, r, http.StatusOK, rec)
}

// InvalidateCache forces the record store to re-read corpora from disk.
// Used after the ingestion pipeline rewrites the data files.
func (h *Handler) InvalidateCache(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("ChatHandler").Start(r.Context(), "InvalidateCache", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/admin/cache/invalidate"),
	))
	defer span.End()

	h.store.InvalidateCache()

	h.logger.InfoContext(ctx, "Record cache invalidated")
	span.SetStatus(codes.Ok, "Cache invalidated successfully")
	api.WriteJSONResponse(w, r, http.StatusOK, api.Response{
		Success: true,
		Message: "Record cache invalidated",
	})
}
