package bot

import (
	"context"
	"fmt"
	"strings"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/sirupsen/logrus"

	"parasight/internal/ingest"
)

const welcomeMessage = "Welcome to Parasight! Send me one or more links and I'll file them for you. " +
	"Posts from X/Twitter are expanded into the links they share."

// Ingester runs the ingestion pipeline for a list of URLs.
type Ingester interface {
	ProcessBatch(ctx context.Context, urls []string, note string) []ingest.Result
}

// Handler holds dependencies for the Telegram bot handlers.
type Handler struct {
	bot      *tgbot.Bot
	ingester Ingester
	log      logrus.FieldLogger
}

// NewHandler creates a new bot handler instance.
func NewHandler(token string, ingester Ingester, logger logrus.FieldLogger) (*Handler, error) {
	log := logger.WithField("component", "bot_handler")

	b, err := tgbot.New(token)
	if err != nil {
		log.WithError(err).Error("Failed to create Telegram bot instance")
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	h := &Handler{
		bot:      b,
		ingester: ingester,
		log:      log,
	}

	h.bot.RegisterHandler(tgbot.HandlerTypeMessageText, "/start", tgbot.MatchTypeExact, h.startHandler)
	h.bot.RegisterHandler(tgbot.HandlerTypeMessageText, "", tgbot.MatchTypeContains, h.linksHandler)

	log.Info("Telegram bot handler initialized")
	return h, nil
}

// Start begins polling for updates from Telegram.
// This function blocks until the context is cancelled.
func (h *Handler) Start(ctx context.Context) {
	h.log.Info("Starting Telegram bot polling...")
	h.bot.Start(ctx)
	h.log.Info("Telegram bot polling stopped.")
}

func (h *Handler) startHandler(ctx context.Context, b *tgbot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	log := h.log.WithField("chat_id", update.Message.Chat.ID)
	log.Info("Received /start command")

	_, err := b.SendMessage(ctx, &tgbot.SendMessageParams{
		ChatID: update.Message.Chat.ID,
		Text:   welcomeMessage,
	})
	if err != nil {
		log.WithError(err).Error("Failed to send welcome message")
	}
}

func (h *Handler) linksHandler(ctx context.Context, b *tgbot.Bot, update *models.Update) {
	if update.Message == nil || strings.HasPrefix(update.Message.Text, "/") {
		return
	}
	log := h.log.WithField("chat_id", update.Message.Chat.ID)

	urls := ingest.ParseURLList(update.Message.Text)
	if len(urls) == 0 {
		log.Debug("Message contained no links")
		h.reply(ctx, b, update, "I couldn't find any http(s) links in that message.")
		return
	}

	log.WithField("url_count", len(urls)).Info("Processing links from message")
	results := h.ingester.ProcessBatch(ctx, urls, noteFor(update.Message))
	h.reply(ctx, b, update, summarize(results))
}

func (h *Handler) reply(ctx context.Context, b *tgbot.Bot, update *models.Update, text string) {
	_, err := b.SendMessage(ctx, &tgbot.SendMessageParams{
		ChatID: update.Message.Chat.ID,
		Text:   text,
		ReplyParameters: &models.ReplyParameters{
			MessageID: update.Message.ID,
		},
	})
	if err != nil {
		h.log.WithError(err).Error("Failed to send reply")
	}
}

func noteFor(msg *models.Message) string {
	if msg.From != nil && msg.From.Username != "" {
		return "Shared via Telegram by @" + msg.From.Username
	}
	return "Shared via Telegram"
}

// summarize renders one line per submitted URL.
func summarize(results []ingest.Result) string {
	var b strings.Builder
	saved := 0
	for _, r := range results {
		switch {
		case !r.Success:
			fmt.Fprintf(&b, "❌ %s: %s\n", r.URL, r.Error)
		case len(r.ExpandedURLs) > 0:
			saved++
			fmt.Fprintf(&b, "✅ %s (%d link(s) from post)\n", r.URL, len(r.ExpandedURLs))
		default:
			saved++
			fmt.Fprintf(&b, "✅ %s\n", r.URL)
		}
	}
	fmt.Fprintf(&b, "\nSaved %d of %d.", saved, len(results))
	return b.String()
}
