package metrics

import (
	"log"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// AppMetrics holds the application's metric instruments.
// Make fields public so they can be accessed from other packages.
type AppMetrics struct {
	MessagesProcessedTotal   metric.Int64Counter
	MessageDurationSeconds   metric.Float64Histogram
	AIFallbacksTotal         metric.Int64Counter
	RecommendationsGenerated metric.Int64Counter
	NotificationsSentTotal   metric.Int64Counter
	NotificationErrorsTotal  metric.Int64Counter
	ActiveConversations      metric.Int64UpDownCounter
}

var (
	// Global instance of AppMetrics (initialized once)
	appMetrics *AppMetrics
	once       sync.Once
)

// InitAppMetrics initializes the global metrics instruments ONLY ONCE.
// It gets the Meter from the globally configured MeterProvider.
func InitAppMetrics() {
	once.Do(func() {
		meter := otel.GetMeterProvider().Meter("Tashi")
		var err error
		m := &AppMetrics{}

		m.MessagesProcessedTotal, err = meter.Int64Counter(
			"messages_processed_total",
			metric.WithDescription("Total number of user messages processed"),
			metric.WithUnit("{message}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create messages_processed_total: %v", err)
		}

		m.MessageDurationSeconds, err = meter.Float64Histogram(
			"message_duration_seconds",
			metric.WithDescription("Duration of message processing in seconds"),
			metric.WithUnit("s"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create message_duration_seconds: %v", err)
		}

		m.AIFallbacksTotal, err = meter.Int64Counter(
			"ai_fallbacks_total",
			metric.WithDescription("Total number of turns answered by the rule-based path after an AI failure"),
			metric.WithUnit("{turn}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create ai_fallbacks_total: %v", err)
		}

		m.RecommendationsGenerated, err = meter.Int64Counter(
			"recommendations_generated_total",
			metric.WithDescription("Total number of recommendation lists generated"),
			metric.WithUnit("{list}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create recommendations_generated_total: %v", err)
		}

		m.NotificationsSentTotal, err = meter.Int64Counter(
			"notifications_sent_total",
			metric.WithDescription("Total number of business notifications delivered"),
			metric.WithUnit("{notification}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create notifications_sent_total: %v", err)
		}

		m.NotificationErrorsTotal, err = meter.Int64Counter(
			"notification_errors_total",
			metric.WithDescription("Total number of failed business notifications"),
			metric.WithUnit("{error}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create notification_errors_total: %v", err)
		}

		m.ActiveConversations, err = meter.Int64UpDownCounter(
			"active_conversations",
			metric.WithDescription("Number of conversations currently held in memory"),
			metric.WithUnit("{conversation}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create active_conversations: %v", err)
		}

		log.Println("Application metrics instruments initialized.")
		appMetrics = m
	})
}

// Get returns the globally initialized AppMetrics instance.
// Panics if InitAppMetrics was not called first.
func Get() *AppMetrics {
	if appMetrics == nil {
		// This indicates a programming error - InitAppMetrics must be called at startup.
		panic("metrics instruments not initialized. Call metrics.InitAppMetrics() first.")
	}
	return appMetrics
}
