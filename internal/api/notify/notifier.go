package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/smtp"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/breathebhutan/tashi/internal/types"
)

// Payload is the business notification body: who to contact, what they
// asked for, and which plan they picked.
type Payload struct {
	RequestID    uuid.UUID         `json:"request_id"`
	UserInfo     types.ContactInfo `json:"user_info"`
	Preferences  types.Preferences `json:"preferences"`
	SelectedPlan *types.Record     `json:"selected_plan"`
	Timestamp    time.Time         `json:"timestamp"`
}

// Ensure implementation satisfies the interface
var _ Notifier = (*NotifierImpl)(nil)

// Notifier delivers finalized travel plans to the agency. Delivery happens
// off the conversational turn; a failure is logged, never shown to the user.
type Notifier interface {
	NotifyBusiness(ctx context.Context, payload Payload) error
}

// Config holds delivery settings. Email and webhook are independent
// channels; either may be left unconfigured.
type Config struct {
	SMTPHost   string
	SMTPPort   int
	Sender     string
	Password   string
	Recipient  string
	WebhookURL string

	// MaxAttempts and RetryDelay govern webhook retries; the delay doubles
	// after each failed attempt.
	MaxAttempts int
	RetryDelay  time.Duration
}

type NotifierImpl struct {
	logger *slog.Logger
	cfg    Config
	client *http.Client

	// sendMail is swappable for tests.
	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewNotifier creates a business notifier.
func NewNotifier(cfg Config, logger *slog.Logger) *NotifierImpl {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 2 * time.Second
	}
	return &NotifierImpl{
		logger:   logger,
		cfg:      cfg,
		client:   &http.Client{Timeout: 30 * time.Second},
		sendMail: smtp.SendMail,
	}
}

// NotifyBusiness implements Notifier. Both channels are attempted; the call
// succeeds when at least one delivery goes through.
func (n *NotifierImpl) NotifyBusiness(ctx context.Context, payload Payload) error {
	ctx, span := otel.Tracer("BusinessNotifier").Start(ctx, "NotifyBusiness", trace.WithAttributes(
		attribute.String("request.id", payload.RequestID.String()),
	))
	defer span.End()

	l := n.logger.With(slog.String("method", "NotifyBusiness"),
		slog.String("request_id", payload.RequestID.String()),
		slog.String("user_name", payload.UserInfo.Name))

	emailErr := n.sendViaEmail(ctx, payload)
	if emailErr != nil {
		l.WarnContext(ctx, "Email delivery failed", slog.Any("error", emailErr))
	}

	var webhookErr error
	if n.cfg.WebhookURL != "" {
		webhookErr = n.sendViaWebhook(ctx, payload)
		if webhookErr != nil {
			l.WarnContext(ctx, "Webhook delivery failed", slog.Any("error", webhookErr))
		}
	}

	emailOK := emailErr == nil
	webhookOK := n.cfg.WebhookURL != "" && webhookErr == nil
	if !emailOK && !webhookOK {
		span.SetStatus(codes.Error, "all delivery channels failed")
		return fmt.Errorf("error notifying business: email: %v, webhook: %v", emailErr, webhookErr)
	}

	l.InfoContext(ctx, "Business notified", slog.Bool("email", emailOK), slog.Bool("webhook", webhookOK))
	span.SetStatus(codes.Ok, "business notified")
	return nil
}

func (n *NotifierImpl) sendViaEmail(ctx context.Context, payload Payload) error {
	if n.cfg.Sender == "" || n.cfg.Password == "" {
		return fmt.Errorf("email credentials not configured")
	}

	subject := fmt.Sprintf("New Travel Plan Request from %s", payload.UserInfo.Name)
	var msg bytes.Buffer
	fmt.Fprintf(&msg, "From: %s\r\n", n.cfg.Sender)
	fmt.Fprintf(&msg, "To: %s\r\n", n.cfg.Recipient)
	fmt.Fprintf(&msg, "Subject: %s\r\n\r\n", subject)
	msg.WriteString(formatEmailBody(payload))

	addr := fmt.Sprintf("%s:%d", n.cfg.SMTPHost, n.cfg.SMTPPort)
	auth := smtp.PlainAuth("", n.cfg.Sender, n.cfg.Password, n.cfg.SMTPHost)

	if err := n.sendMail(addr, auth, n.cfg.Sender, []string{n.cfg.Recipient}, msg.Bytes()); err != nil {
		return fmt.Errorf("error sending email: %w", err)
	}
	return nil
}

// sendViaWebhook posts the payload as JSON, retrying with exponential
// backoff up to the configured attempt count.
func (n *NotifierImpl) sendViaWebhook(ctx context.Context, payload Payload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("error encoding payload: %w", err)
	}

	delay := n.cfg.RetryDelay
	var lastErr error
	for attempt := 1; attempt <= n.cfg.MaxAttempts; attempt++ {
		lastErr = n.postOnce(ctx, body)
		if lastErr == nil {
			return nil
		}
		n.logger.WarnContext(ctx, "Webhook request failed",
			slog.Int("attempt", attempt), slog.Int("max_attempts", n.cfg.MaxAttempts),
			slog.Any("error", lastErr))

		if attempt < n.cfg.MaxAttempts {
			select {
			case <-time.After(delay):
				delay *= 2
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return fmt.Errorf("webhook delivery failed after %d attempts: %w", n.cfg.MaxAttempts, lastErr)
}

func (n *NotifierImpl) postOnce(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.cfg.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}

// formatEmailBody renders the plaintext sectioned notification body.
func formatEmailBody(p Payload) string {
	var b strings.Builder

	b.WriteString("NEW TRAVEL PLAN REQUEST\n")
	b.WriteString("=======================\n\n")

	b.WriteString("USER INFORMATION:\n")
	fmt.Fprintf(&b, "Name: %s\n", orDefault(p.UserInfo.Name, "Not provided"))
	fmt.Fprintf(&b, "Email: %s\n\n", orDefault(p.UserInfo.Email, "Not provided"))

	b.WriteString("PREFERENCES:\n")
	fmt.Fprintf(&b, "Trip Type: %s\n", orDefault(string(p.Preferences.TripType), "Not specified"))
	if p.Preferences.DurationDays > 0 {
		fmt.Fprintf(&b, "Duration: %d days\n", p.Preferences.DurationDays)
	} else {
		b.WriteString("Duration: Not specified\n")
	}
	fmt.Fprintf(&b, "Travel Month: %s\n", orDefault(p.Preferences.TravelMonth, "Not specified"))
	if len(p.Preferences.Interests) > 0 {
		fmt.Fprintf(&b, "Interests: %s\n\n", strings.Join(p.Preferences.Interests, ", "))
	} else {
		b.WriteString("Interests: Not specified\n\n")
	}

	b.WriteString("SELECTED TRAVEL PLAN:\n")
	if p.SelectedPlan != nil {
		fmt.Fprintf(&b, "Title: %s\n", orDefault(p.SelectedPlan.Title, "Not specified"))
		fmt.Fprintf(&b, "Duration: %s\n", orDefault(p.SelectedPlan.Duration.String(), "Not specified"))
		fmt.Fprintf(&b, "Description: %s\n\n", orDefault(p.SelectedPlan.Description, "Not specified"))

		if len(p.SelectedPlan.Highlights) > 0 {
			b.WriteString("Highlights:\n")
			for _, h := range p.SelectedPlan.Highlights {
				fmt.Fprintf(&b, "- %s\n", h)
			}
			b.WriteString("\n")
		}
		if len(p.SelectedPlan.Itinerary) > 0 {
			b.WriteString("Itinerary:\n")
			for _, day := range p.SelectedPlan.Itinerary {
				fmt.Fprintf(&b, "%s: %s\n", orDefault(day.Day, "Day"), orDefault(day.Description, "No description"))
			}
			b.WriteString("\n")
		}
	} else {
		b.WriteString("Title: Not specified\n\n")
	}

	b.WriteString("Please contact the user to confirm the travel plan and provide additional details.\n")
	fmt.Fprintf(&b, "This request was generated by the Tashi bot at %s.", p.Timestamp.Format("2006-01-02 15:04:05"))

	return b.String()
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
