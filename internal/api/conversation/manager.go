package conversation

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/breathebhutan/tashi/app/observability/metrics"
	"github.com/breathebhutan/tashi/internal/api/ai"
	"github.com/breathebhutan/tashi/internal/api/notify"
	"github.com/breathebhutan/tashi/internal/api/recommend"
	"github.com/breathebhutan/tashi/internal/types"
)

// aiSeedMessage stands in for the user's first contact when generating an
// AI welcome.
const aiSeedMessage = "I'd like to plan a trip to Bhutan."

// Ensure implementation satisfies the interface
var _ Manager = (*ManagerImpl)(nil)

// Manager drives the guided planning dialogue. Each user has at most one
// conversation; referencing a nonexistent one implicitly starts it.
type Manager interface {
	// StartConversation creates (or resets) a conversation and returns the
	// opening message.
	StartConversation(ctx context.Context, userID string) types.BotResponse
	// ProcessMessage advances the dialogue one turn. It always produces a
	// response; internal failures degrade to deterministic or apology text.
	ProcessMessage(ctx context.Context, userID, text string) types.BotResponse
	// EndConversation drops a user's conversation.
	EndConversation(ctx context.Context, userID string)
	// Sweep removes conversations idle longer than the TTL and reports how
	// many were dropped.
	Sweep(ctx context.Context, now time.Time) int
}

// ManagerImpl is the deterministic state machine with optional generative
// augmentation. The adapter, notifier and metrics dependencies may be nil;
// the rule-based path never requires them.
type ManagerImpl struct {
	logger   *slog.Logger
	matcher  recommend.Matcher
	adapter  ai.Adapter
	notifier notify.Notifier
	metrics  *metrics.AppMetrics
	idleTTL  time.Duration

	// now is swappable for tests.
	now func() time.Time

	mu       sync.RWMutex
	sessions map[string]*session
}

// session serializes turns within one conversation; different users'
// sessions never share a lock.
type session struct {
	mu   sync.Mutex
	conv types.Conversation
}

// NewManager creates a dialogue manager.
func NewManager(matcher recommend.Matcher, adapter ai.Adapter, notifier notify.Notifier, appMetrics *metrics.AppMetrics, idleTTL time.Duration, logger *slog.Logger) *ManagerImpl {
	if idleTTL <= 0 {
		idleTTL = 24 * time.Hour
	}
	return &ManagerImpl{
		logger:   logger,
		matcher:  matcher,
		adapter:  adapter,
		notifier: notifier,
		metrics:  appMetrics,
		idleTTL:  idleTTL,
		now:      time.Now,
		sessions: make(map[string]*session),
	}
}

// StartConversation implements Manager.
func (m *ManagerImpl) StartConversation(ctx context.Context, userID string) types.BotResponse {
	ctx, span := otel.Tracer("DialogueStateMachine").Start(ctx, "StartConversation", trace.WithAttributes(
		attribute.String("user.id", userID),
	))
	defer span.End()

	l := m.logger.With(slog.String("method", "StartConversation"), slog.String("user_id", userID))

	m.mu.Lock()
	sess, existed := m.sessions[userID]
	if !existed {
		sess = &session{}
		m.sessions[userID] = sess
	}
	m.mu.Unlock()

	sess.mu.Lock()
	defer sess.mu.Unlock()

	m.resetLocked(sess)
	if !existed && m.metrics != nil {
		m.metrics.ActiveConversations.Add(ctx, 1)
	}

	l.InfoContext(ctx, "Started new conversation")
	span.SetStatus(codes.Ok, "conversation started")
	return m.welcomeLocked(ctx, sess)
}

// resetLocked reinitializes a session to a fresh greeting-state conversation.
func (m *ManagerImpl) resetLocked(sess *session) {
	sess.conv = types.Conversation{
		State:     types.StateGreeting,
		UpdatedAt: m.now(),
	}
}

// welcomeLocked produces the opening message, preferring generated text. The
// seed exchange enters history only when the generated welcome is shown; the
// canned greeting needs no context for later prompts.
func (m *ManagerImpl) welcomeLocked(ctx context.Context, sess *session) types.BotResponse {
	resp := welcomeResponse()
	if m.adapter == nil {
		return resp
	}

	text, err := m.adapter.Generate(ctx, sess.conv.Snapshot(), aiSeedMessage)
	if err != nil {
		if m.metrics != nil {
			m.metrics.AIFallbacksTotal.Add(ctx, 1)
		}
		return resp
	}

	resp.Text = text
	sess.conv.AppendHistory(aiSeedMessage, resp.Text)
	return resp
}

// ProcessMessage implements Manager.
func (m *ManagerImpl) ProcessMessage(ctx context.Context, userID, text string) types.BotResponse {
	ctx, span := otel.Tracer("DialogueStateMachine").Start(ctx, "ProcessMessage", trace.WithAttributes(
		attribute.String("user.id", userID),
	))
	defer span.End()

	start := m.now()
	l := m.logger.With(slog.String("method", "ProcessMessage"), slog.String("user_id", userID))

	m.mu.RLock()
	sess, ok := m.sessions[userID]
	m.mu.RUnlock()
	if !ok {
		l.WarnContext(ctx, "No active conversation, starting a new one")
		return m.StartConversation(ctx, userID)
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	fromState := sess.conv.State
	if m.isRestartRequest(fromState, text) {
		l.InfoContext(ctx, "Restart requested", slog.String("from_state", fromState.String()))
		m.resetLocked(sess)
		return m.welcomeLocked(ctx, sess)
	}

	// The deterministic step always computes the transition and a complete
	// fallback response. Generated text only ever replaces the visible
	// wording, never the transition or the choice set.
	resp := m.step(ctx, sess, text)
	if m.adapter != nil {
		if text2, err := m.adapter.Generate(ctx, sess.conv.Snapshot(), text); err == nil {
			resp.Text = text2
		} else if m.metrics != nil {
			m.metrics.AIFallbacksTotal.Add(ctx, 1)
		}
	}

	sess.conv.AppendHistory(text, resp.Text)
	sess.conv.UpdatedAt = m.now()

	if m.metrics != nil {
		m.metrics.MessagesProcessedTotal.Add(ctx, 1)
		m.metrics.MessageDurationSeconds.Record(ctx, m.now().Sub(start).Seconds())
	}

	l.DebugContext(ctx, "Processed message",
		slog.String("from_state", fromState.String()),
		slog.String("to_state", sess.conv.State.String()))
	span.SetStatus(codes.Ok, "message processed")
	return resp
}

// isRestartRequest limits the restart phrases to the states that offer a
// "Start Over" control; mid-flow replies like "let's begin" must not wipe
// collected preferences.
func (m *ManagerImpl) isRestartRequest(state types.State, text string) bool {
	switch state {
	case types.StateRecommendations, types.StateCompleted:
		return isRestart(text)
	case types.StateRecommendationDetails:
		// Affirmative and negative replies take precedence over restart.
		return !isAffirmative(text) && !isNegative(text) && isRestart(text)
	}
	return false
}

// step runs one deterministic transition. The session lock is held.
func (m *ManagerImpl) step(ctx context.Context, sess *session, text string) types.BotResponse {
	conv := &sess.conv

	switch conv.State {
	case types.StateGreeting:
		conv.State = types.StateTripType
		return tripTypeResponse()

	case types.StateTripType:
		conv.Preferences.TripType = extractTripType(text)
		conv.State = types.StateDuration
		return durationResponse()

	case types.StateDuration:
		duration, month := extractDurationAndMonth(text, m.now())
		conv.Preferences.DurationDays = duration
		conv.Preferences.TravelMonth = month
		conv.State = types.StateInterests
		return interestsResponse()

	case types.StateTravelDate:
		conv.Preferences.TravelMonth = extractTravelMonth(text, m.now())
		conv.State = types.StateInterests
		return interestsResponse()

	case types.StateInterests:
		conv.Preferences.Interests = extractInterests(text)
		conv.State = types.StateRecommendations
		conv.Recommendations = m.generateRecommendations(ctx, conv.Preferences)
		return recommendationsResponse(conv.Recommendations)

	case types.StateRecommendations:
		n := extractSelection(text, len(conv.Recommendations))
		if n == 0 {
			return invalidSelectionResponse(conv.Recommendations)
		}
		selected := conv.Recommendations[n-1]
		conv.SelectedRecommendation = &selected
		conv.State = types.StateRecommendationDetails
		return detailsResponse(selected)

	case types.StateRecommendationDetails:
		switch {
		case isAffirmative(text):
			conv.State = types.StateFinalization
			return contactRequestResponse()
		case isNegative(text):
			conv.State = types.StateRecommendations
			conv.SelectedRecommendation = nil
			return backToRecommendationsResponse(conv.Recommendations)
		default:
			return confirmationResponse()
		}

	case types.StateFinalization:
		conv.ContactInfo = extractContactInfo(text)
		conv.State = types.StateCompleted
		m.notifyBusiness(ctx, *conv)
		return finalizationResponse()

	case types.StateCompleted:
		return completedReminderResponse()

	default:
		m.logger.ErrorContext(ctx, "Unhandled conversation state", slog.String("state", conv.State.String()))
		return apologyResponse()
	}
}

func (m *ManagerImpl) generateRecommendations(ctx context.Context, prefs types.Preferences) []types.Record {
	recs, err := m.matcher.Recommend(ctx, prefs)
	if err != nil {
		m.logger.ErrorContext(ctx, "Failed to generate recommendations", slog.Any("error", err))
		return nil
	}
	if prefs.TripType == types.TripFestival {
		recs = rewriteFestivalDates(recs, prefs.TravelMonth, m.now())
	}
	if m.metrics != nil {
		m.metrics.RecommendationsGenerated.Add(ctx, 1)
	}
	return recs
}

// notifyBusiness hands the finalized plan off in the background; the user
// never waits on delivery.
func (m *ManagerImpl) notifyBusiness(ctx context.Context, conv types.Conversation) {
	if m.notifier == nil {
		return
	}

	payload := notify.Payload{
		RequestID:    uuid.New(),
		UserInfo:     conv.ContactInfo,
		Preferences:  conv.Preferences,
		SelectedPlan: conv.SelectedRecommendation,
		Timestamp:    m.now(),
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Minute)
		defer cancel()

		if err := m.notifier.NotifyBusiness(ctx, payload); err != nil {
			m.logger.ErrorContext(ctx, "Failed to notify business",
				slog.String("request_id", payload.RequestID.String()), slog.Any("error", err))
			if m.metrics != nil {
				m.metrics.NotificationErrorsTotal.Add(ctx, 1)
			}
			return
		}
		if m.metrics != nil {
			m.metrics.NotificationsSentTotal.Add(ctx, 1)
		}
	}()
}

// EndConversation implements Manager.
func (m *ManagerImpl) EndConversation(ctx context.Context, userID string) {
	m.mu.Lock()
	_, ok := m.sessions[userID]
	delete(m.sessions, userID)
	m.mu.Unlock()

	if ok {
		if m.metrics != nil {
			m.metrics.ActiveConversations.Add(ctx, -1)
		}
		m.logger.InfoContext(ctx, "Ended conversation", slog.String("user_id", userID))
	}
}

// Sweep implements Manager.
func (m *ManagerImpl) Sweep(ctx context.Context, now time.Time) int {
	m.mu.Lock()
	var dropped int
	for userID, sess := range m.sessions {
		sess.mu.Lock()
		idle := now.Sub(sess.conv.UpdatedAt)
		sess.mu.Unlock()
		if idle > m.idleTTL {
			delete(m.sessions, userID)
			dropped++
		}
	}
	m.mu.Unlock()

	if dropped > 0 {
		if m.metrics != nil {
			m.metrics.ActiveConversations.Add(ctx, int64(-dropped))
		}
		m.logger.InfoContext(ctx, "Swept idle conversations", slog.Int("dropped", dropped))
	}
	return dropped
}
