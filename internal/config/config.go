package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds the configuration for the application.
type Config struct {
	// Parser backend (at least one key must be set).
	GeminiAPIKey string
	GroqAPIKey   string

	// Price feed (optional; the static catalog answers when unset).
	PriceFeedURL      string
	PriceFeedAdminKey string
	StoreSearchURL    string

	// Metrics database.
	DatabasePath string

	// Telegram Config
	TelegramBotToken       string
	TelegramWebhookURL     string
	TelegramAllowedUserIDs []int64
	AdminTelegramID        int64
}

// NewFromEnv creates a new Config object from environment variables.
func NewFromEnv() (*Config, error) {
	geminiAPIKey := os.Getenv("GEMINI_API_KEY")
	groqAPIKey := os.Getenv("GROQ_API_KEY")
	if geminiAPIKey == "" && groqAPIKey == "" {
		return nil, fmt.Errorf("neither GEMINI_API_KEY nor GROQ_API_KEY environment variable is set")
	}

	priceFeedURL := os.Getenv("PRICE_FEED_URL")
	priceFeedAdminKey := os.Getenv("PRICE_FEED_ADMIN_KEY")
	if priceFeedURL != "" && priceFeedAdminKey == "" {
		return nil, fmt.Errorf("PRICE_FEED_URL is set but PRICE_FEED_ADMIN_KEY is not")
	}

	databasePath := os.Getenv("DATABASE_PATH")
	if databasePath == "" {
		databasePath = "data/assistant.db"
	}

	// Telegram Config (optional for CLI, required for the bot).
	allowedIDs, err := parseIDList(os.Getenv("TELEGRAM_ALLOWED_USER_IDS"))
	if err != nil {
		return nil, fmt.Errorf("invalid TELEGRAM_ALLOWED_USER_IDS: %w", err)
	}

	var adminID int64
	if raw := os.Getenv("ADMIN_TELEGRAM_ID"); raw != "" {
		adminID, err = strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid ADMIN_TELEGRAM_ID: %w", err)
		}
	}

	return &Config{
		GeminiAPIKey:           geminiAPIKey,
		GroqAPIKey:             groqAPIKey,
		PriceFeedURL:           priceFeedURL,
		PriceFeedAdminKey:      priceFeedAdminKey,
		StoreSearchURL:         os.Getenv("STORE_SEARCH_URL"),
		DatabasePath:           databasePath,
		TelegramBotToken:       os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramWebhookURL:     os.Getenv("TELEGRAM_WEBHOOK_URL"),
		TelegramAllowedUserIDs: allowedIDs,
		AdminTelegramID:        adminID,
	}, nil
}

func parseIDList(raw string) ([]int64, error) {
	if raw == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ",")
	ids := make([]int64, 0, len(parts))
	for _, part := range parts {
		id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
