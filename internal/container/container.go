package container

import (
	"context"
	"log/slog"
	"os"

	"github.com/breathebhutan/tashi/app/observability/metrics"
	"github.com/breathebhutan/tashi/config"
	"github.com/breathebhutan/tashi/internal/api/ai"
	"github.com/breathebhutan/tashi/internal/api/chat"
	"github.com/breathebhutan/tashi/internal/api/conversation"
	"github.com/breathebhutan/tashi/internal/api/notify"
	"github.com/breathebhutan/tashi/internal/api/recommend"
	"github.com/breathebhutan/tashi/internal/api/records"
	"github.com/breathebhutan/tashi/internal/bot"
)

// Container holds all application dependencies
type Container struct {
	Config      *config.Config
	Logger      *slog.Logger
	Store       records.Store
	Matcher     recommend.Matcher
	Manager     *conversation.ManagerImpl
	ChatHandler *chat.Handler
	Bot         *bot.Bot
}

// NewContainer initializes and returns a new dependency container
func NewContainer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Container, error) {
	store := records.NewStore(cfg.Data.Dir, logger)
	matcher := recommend.NewMatcher(store, logger)

	// The generative adapter is optional; without an API key the engine
	// runs purely rule-based.
	var adapter ai.Adapter
	if backend, err := ai.NewGeminiBackend(ctx, os.Getenv("GOOGLE_GEMINI_API_KEY"), cfg.AI.Model, logger); err != nil {
		logger.Warn("Generative backend disabled, using rule-based responses only", slog.Any("error", err))
	} else {
		adapter = ai.NewAdapter(backend, cfg.AI.Timeout, logger)
	}

	notifier := notify.NewNotifier(notify.Config{
		SMTPHost:    cfg.Notifier.SMTPHost,
		SMTPPort:    cfg.Notifier.SMTPPort,
		Sender:      os.Getenv("EMAIL_SENDER"),
		Password:    os.Getenv("EMAIL_PASSWORD"),
		Recipient:   cfg.Notifier.Recipient,
		WebhookURL:  cfg.Notifier.WebhookURL,
		MaxAttempts: cfg.Notifier.MaxAttempts,
		RetryDelay:  cfg.Notifier.RetryDelay,
	}, logger)

	metrics.InitAppMetrics()
	manager := conversation.NewManager(matcher, adapter, notifier, metrics.Get(), cfg.Conversation.IdleTTL, logger)

	chatHandler := chat.NewHandler(manager, store, logger)

	// The Telegram adapter is optional too; the HTTP API works without it.
	var tgBot *bot.Bot
	if token := os.Getenv("TELEGRAM_API_TOKEN"); token != "" {
		var err error
		tgBot, err = bot.New(token, manager, logger)
		if err != nil {
			logger.Error("Failed to initialize Telegram bot", slog.Any("error", err))
			return nil, err
		}
	} else {
		logger.Warn("TELEGRAM_API_TOKEN not set, Telegram adapter disabled")
	}

	return &Container{
		Config:      cfg,
		Logger:      logger,
		Store:       store,
		Matcher:     matcher,
		Manager:     manager,
		ChatHandler: chatHandler,
		Bot:         tgBot,
	}, nil
}

// Close persists conversation state before shutdown.
func (c *Container) Close() {
	if c.Config.Conversation.SnapshotFile == "" {
		return
	}
	if err := c.Manager.SaveState(c.Config.Conversation.SnapshotFile); err != nil {
		c.Logger.Error("Failed to save conversation snapshot", slog.Any("error", err))
	}
}
