package telegram

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/8ft0/smolagent-cookbook/internal/assistant"
	"github.com/8ft0/smolagent-cookbook/internal/config"
	"github.com/8ft0/smolagent-cookbook/internal/metrics"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Bot wraps the Telegram API around the shopping assistant. Each Telegram
// chat maps to its own shopping list, keyed by chat id.
type Bot struct {
	api          *tgbotapi.BotAPI
	assistant    *assistant.Assistant
	metricsStore *metrics.Store
	cfg          *config.Config
}

// NewBot initializes the Telegram Bot and sets the Webhook.
func NewBot(cfg *config.Config, shopper *assistant.Assistant, metricsStore *metrics.Store) (*Bot, error) {
	bot, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to init telegram api: %w", err)
	}

	log.Printf("Authorized on account %s", bot.Self.UserName)

	wh, _ := tgbotapi.NewWebhook(cfg.TelegramWebhookURL)
	resp, err := bot.Request(wh)
	if err != nil {
		return nil, fmt.Errorf("failed to set webhook to %s: %w", cfg.TelegramWebhookURL, err)
	}
	log.Printf("Webhook set response: %s", resp.Description)

	return &Bot{
		api:          bot,
		assistant:    shopper,
		metricsStore: metricsStore,
		cfg:          cfg,
	}, nil
}

// RegisterHandlers registers the webhook handler with the default HTTP mux.
func (b *Bot) RegisterHandlers() {
	http.HandleFunc("/webhook", b.handleWebhook)
	http.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
}

func (b *Bot) handleWebhook(w http.ResponseWriter, r *http.Request) {
	update, err := b.api.HandleUpdate(r)
	if err != nil {
		log.Printf("Error parsing update: %v", err)
		return
	}

	if update.Message == nil {
		return
	}

	if !b.isAllowed(update.Message.From.ID) {
		log.Printf("⚠️ Unauthorized access attempt from UserID: %d (@%s)", update.Message.From.ID, update.Message.From.UserName)
		return
	}

	b.processMessage(update.Message)
}

func (b *Bot) isAllowed(userID int64) bool {
	for _, id := range b.cfg.TelegramAllowedUserIDs {
		if userID == id {
			return true
		}
	}
	return false
}

func (b *Bot) processMessage(msg *tgbotapi.Message) {
	switch strings.TrimSpace(msg.Text) {
	case "/start":
		b.send(msg.Chat.ID, "🛒 Tell me what you need, e.g. *add 2 tomatoes*, *\\$25 of bread*, *fit my list in \\$50*, or *show my bill*.")
		return
	case "/metrics":
		if msg.From.ID != b.cfg.AdminTelegramID {
			b.send(msg.Chat.ID, "⛔ *Access Denied*: Admin only.")
			return
		}
		b.handleMetricsCommand(msg.Chat.ID)
		return
	case "/bill":
		msg.Text = "show my itemized bill"
	}

	resp := b.assistant.Execute(context.Background(), msg.Chat.ID, msg.Text)
	b.send(msg.Chat.ID, formatResponseMarkdown(resp))
}

// formatResponseMarkdown renders a response for Telegram: the confirmation
// or error line, plus the itemized bill in a code block when the list has
// content worth showing.
func formatResponseMarkdown(resp assistant.Response) string {
	var sb strings.Builder

	switch resp.State {
	case assistant.StateRejected:
		sb.WriteString("❌ ")
	case assistant.StateMutated:
		sb.WriteString("✅ ")
	}
	sb.WriteString(resp.Message)

	if len(resp.Items) > 0 && resp.State != assistant.StateRejected {
		sb.WriteString("\n```\n")
		sb.WriteString(resp.Bill)
		sb.WriteString("```")
	}

	return sb.String()
}

func (b *Bot) handleMetricsCommand(chatID int64) {
	usage, err := b.metricsStore.GetDailyUsage(context.Background(), 7)
	if err != nil {
		b.send(chatID, "❌ Error fetching metrics.")
		return
	}

	health := metrics.GetSysHealth("data")

	var sb strings.Builder
	sb.WriteString("📊 *Usage & Health Report*\n\n")

	sb.WriteString("🗓 *Recent Commands*\n")
	if len(usage) == 0 {
		sb.WriteString("_No data yet_\n")
	}
	for _, d := range usage {
		sb.WriteString(fmt.Sprintf("• *%s*: %d tokens (%d commands)\n", d.Date, d.TotalPrompt+d.TotalCompletion, d.TotalCommands))
	}

	sb.WriteString("\n🧠 *System Health*\n")
	sb.WriteString(fmt.Sprintf("• RAM: %dMB (Alloc) / %dMB (Sys)\n", health.AllocMB, health.SysMB))
	sb.WriteString(fmt.Sprintf("• Goroutines: %d\n", health.Goroutines))
	sb.WriteString(fmt.Sprintf("• Disk Data: %s\n", health.DataSize))

	b.send(chatID, sb.String())
}

func (b *Bot) send(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = "Markdown"
	if _, err := b.api.Send(msg); err != nil {
		log.Printf("Failed to send message to chat %d: %v", chatID, err)
	}
}
