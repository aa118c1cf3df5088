package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/genai"

	"github.com/breathebhutan/tashi/internal/types"
)

// ErrUnavailable signals that no generated text could be produced this turn.
// Callers fall back to the deterministic response; the error is never shown
// to the user.
var ErrUnavailable = errors.New("generative backend unavailable")

// Ensure implementation satisfies the interface
var _ Adapter = (*AdapterImpl)(nil)

// Adapter produces conversational text from a dialogue snapshot. Any failure
// (timeout, empty result, backend error) surfaces as ErrUnavailable.
type Adapter interface {
	Generate(ctx context.Context, snap types.ConversationSnapshot, input string) (string, error)
}

// Backend is the raw text-in/text-out generative call.
type Backend interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
}

// GeminiBackend calls the Gemini API.
type GeminiBackend struct {
	client *genai.Client
	model  string
	logger *slog.Logger
}

// NewGeminiBackend creates a Gemini-backed text generator. An empty API key
// is an error; callers treat a missing key as "run without AI".
func NewGeminiBackend(ctx context.Context, apiKey, model string, logger *slog.Logger) (*GeminiBackend, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key not set")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &GeminiBackend{client: client, model: model, logger: logger}, nil
}

// GenerateContent implements Backend.
func (g *GeminiBackend) GenerateContent(ctx context.Context, prompt string) (string, error) {
	ctx, span := otel.Tracer("GenerativeAI").Start(ctx, "GenerateContent", trace.WithAttributes(
		attribute.Int("prompt.length", len(prompt)),
		attribute.String("model", g.model),
	))
	defer span.End()

	config := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr[float32](0.7),
		MaxOutputTokens: 300,
	}

	result, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), config)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to generate content")
		return "", fmt.Errorf("failed to generate content: %w", err)
	}

	span.SetStatus(codes.Ok, "Content generated successfully")
	return result.Text(), nil
}

// AdapterImpl wraps a Backend with prompt construction and a hard timeout.
type AdapterImpl struct {
	logger  *slog.Logger
	backend Backend
	timeout time.Duration
}

// NewAdapter creates a response adapter. A non-positive timeout defaults to
// five seconds.
func NewAdapter(backend Backend, timeout time.Duration, logger *slog.Logger) *AdapterImpl {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &AdapterImpl{
		logger:  logger,
		backend: backend,
		timeout: timeout,
	}
}

// Generate implements Adapter. One attempt per turn, no retries; the
// deterministic path is always ready behind it.
func (a *AdapterImpl) Generate(ctx context.Context, snap types.ConversationSnapshot, input string) (string, error) {
	ctx, span := otel.Tracer("AIResponseAdapter").Start(ctx, "Generate", trace.WithAttributes(
		attribute.String("conversation.state", snap.State.String()),
	))
	defer span.End()

	l := a.logger.With(slog.String("method", "Generate"), slog.String("state", snap.State.String()))

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	text, err := a.backend.GenerateContent(ctx, buildPrompt(snap, input))
	if err != nil {
		l.WarnContext(ctx, "Generative backend failed, falling back to rule-based response", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "generation failed")
		return "", fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		l.WarnContext(ctx, "Generative backend returned empty response")
		span.SetStatus(codes.Error, "empty response")
		return "", ErrUnavailable
	}

	l.DebugContext(ctx, "Generated response", slog.Int("length", len(text)))
	span.SetStatus(codes.Ok, "response generated")
	return text, nil
}
