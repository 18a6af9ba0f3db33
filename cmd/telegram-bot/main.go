package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/8ft0/smolagent-cookbook/internal/assistant"
	"github.com/8ft0/smolagent-cookbook/internal/config"
	"github.com/8ft0/smolagent-cookbook/internal/database"
	"github.com/8ft0/smolagent-cookbook/internal/intent"
	"github.com/8ft0/smolagent-cookbook/internal/ledger"
	"github.com/8ft0/smolagent-cookbook/internal/metrics"
	"github.com/8ft0/smolagent-cookbook/internal/pricing"
	"github.com/8ft0/smolagent-cookbook/internal/telegram"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.NewFromEnv()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfg.TelegramBotToken == "" || cfg.TelegramWebhookURL == "" {
		log.Fatal("TELEGRAM_BOT_TOKEN and TELEGRAM_WEBHOOK_URL must be set for the bot")
	}

	ctx := context.Background()

	// 2. Initialize the language-understanding collaborator
	var parser intent.Parser
	if cfg.GeminiAPIKey != "" {
		gemini, err := intent.NewGeminiParser(ctx, cfg.GeminiAPIKey)
		if err != nil {
			log.Fatalf("Failed to create Gemini parser: %v", err)
		}
		defer gemini.Close()
		parser = gemini
	} else {
		parser = intent.NewGroqParser(cfg.GroqAPIKey)
	}

	// 3. Price resolution chain
	var resolver pricing.Chain
	if cfg.PriceFeedURL != "" {
		resolver = append(resolver, pricing.NewFeedClient(cfg.PriceFeedURL, cfg.PriceFeedAdminKey))
	}
	if cfg.StoreSearchURL != "" {
		resolver = append(resolver, pricing.NewPageScraper(cfg.StoreSearchURL))
	}
	resolver = append(resolver, pricing.NewCatalog())

	// 4. Metrics database
	db, err := database.Open(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()
	metricsStore := metrics.NewStore(db.SQL)

	// 5. Assistant core
	shopper := assistant.New(parser, resolver, ledger.NewStore(), metricsStore)

	// 6. Telegram Bot
	bot, err := telegram.NewBot(cfg, shopper, metricsStore)
	if err != nil {
		log.Fatalf("Failed to initialize Telegram Bot: %v", err)
	}

	// 7. Start Server with Graceful Shutdown
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	bot.RegisterHandlers()

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: nil,
	}

	go func() {
		log.Printf("Telegram Bot Server listening on port %s", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctxShutdown); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exiting")
}
