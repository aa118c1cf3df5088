package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/breathebhutan/tashi/internal/api/conversation"
	"github.com/breathebhutan/tashi/internal/types"
)

const helpText = "I'm Tashi, the Breathe Bhutan travel assistant.\n\n" +
	"Tell me what kind of trip you're dreaming of and I'll walk you through " +
	"picking a tour, festival, trek, or custom itinerary.\n\n" +
	"Commands:\n" +
	"/start - start planning a trip\n" +
	"/reset - discard the current plan and start over\n" +
	"/help - show this message"

// Bot bridges Telegram updates and the dialogue engine. It holds no
// conversational state of its own; every turn goes through the manager.
type Bot struct {
	api     *tgbotapi.BotAPI
	manager conversation.Manager
	logger  *slog.Logger
}

// New creates a Telegram bot adapter.
func New(token string, manager conversation.Manager, logger *slog.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("error creating Telegram bot: %w", err)
	}

	logger.Info("Telegram bot authorized", slog.String("username", api.Self.UserName))

	return &Bot{
		api:     api,
		manager: manager,
		logger:  logger,
	}, nil
}

// Start runs the long-polling loop until the context is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return nil
		case update := <-updates:
			go b.handleUpdate(ctx, update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	if update.CallbackQuery != nil {
		b.handleCallback(ctx, update.CallbackQuery)
		return
	}
	if update.Message != nil {
		b.handleMessage(ctx, update.Message)
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	userID := strconv.FormatInt(msg.From.ID, 10)
	l := b.logger.With(slog.String("user_id", userID))

	if msg.IsCommand() {
		switch msg.Command() {
		case "start", "reset":
			resp := b.manager.StartConversation(ctx, userID)
			b.send(ctx, msg.Chat.ID, resp)
		case "help":
			b.send(ctx, msg.Chat.ID, types.BotResponse{Text: helpText})
		default:
			l.DebugContext(ctx, "Unknown command", slog.String("command", msg.Command()))
			b.send(ctx, msg.Chat.ID, types.BotResponse{Text: "I don't know that command. Try /help."})
		}
		return
	}

	resp := b.manager.ProcessMessage(ctx, userID, msg.Text)
	b.send(ctx, msg.Chat.ID, resp)
}

// handleCallback feeds a tapped button's value back into the dialogue as if
// the user had typed it.
func (b *Bot) handleCallback(ctx context.Context, callback *tgbotapi.CallbackQuery) {
	userID := strconv.FormatInt(callback.From.ID, 10)

	// Acknowledge so the client stops showing a spinner.
	if _, err := b.api.Request(tgbotapi.NewCallback(callback.ID, "")); err != nil {
		b.logger.WarnContext(ctx, "Failed to answer callback query", slog.Any("error", err))
	}

	resp := b.manager.ProcessMessage(ctx, userID, callback.Data)
	b.send(ctx, callback.Message.Chat.ID, resp)
}

func (b *Bot) send(ctx context.Context, chatID int64, resp types.BotResponse) {
	msg := tgbotapi.NewMessage(chatID, resp.Text)
	if kb, ok := toInlineKeyboard(resp.Choices); ok {
		msg.ReplyMarkup = kb
	}

	if _, err := b.api.Send(msg); err != nil {
		b.logger.ErrorContext(ctx, "Failed to send Telegram message",
			slog.Int64("chat_id", chatID), slog.Any("error", err))
	}
}

// toInlineKeyboard renders a choice set as a Telegram inline keyboard.
func toInlineKeyboard(choices *types.ChoiceSet) (tgbotapi.InlineKeyboardMarkup, bool) {
	if choices == nil || len(choices.Rows) == 0 {
		return tgbotapi.InlineKeyboardMarkup{}, false
	}

	var rows [][]tgbotapi.InlineKeyboardButton
	for _, row := range choices.Rows {
		var buttons []tgbotapi.InlineKeyboardButton
		for _, c := range row {
			buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(c.Label, c.Value))
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(buttons...))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...), true
}
