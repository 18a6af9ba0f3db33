package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/8ft0/smolagent-cookbook/internal/assistant"
	"github.com/8ft0/smolagent-cookbook/internal/config"
	"github.com/8ft0/smolagent-cookbook/internal/database"
	"github.com/8ft0/smolagent-cookbook/internal/intent"
	"github.com/8ft0/smolagent-cookbook/internal/ledger"
	"github.com/8ft0/smolagent-cookbook/internal/metrics"
	"github.com/8ft0/smolagent-cookbook/internal/pricing"
)

func main() {
	ctx := context.Background()

	cfg, err := config.NewFromEnv()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	parser, closeParser, err := newParser(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize intent parser: %v", err)
	}
	defer closeParser()

	db, err := database.Open(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	metricsStore := metrics.NewStore(db.SQL)
	shopper := assistant.New(parser, newResolver(cfg), ledger.NewStore(), metricsStore)

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "chat":
		chatCmd := flag.NewFlagSet("chat", flag.ExitOnError)
		listID := chatCmd.Int64("list", 0, "Shopping list id to work against")
		chatCmd.Parse(os.Args[2:])
		runChat(ctx, shopper, *listID)
	case "exec":
		execCmd := flag.NewFlagSet("exec", flag.ExitOnError)
		listID := execCmd.Int64("list", 0, "Shopping list id to work against")
		execCmd.Parse(os.Args[2:])
		if execCmd.NArg() == 0 {
			log.Fatal("exec requires a command, e.g. exec \"add 2 tomatoes\"")
		}
		resp := shopper.Execute(ctx, *listID, strings.Join(execCmd.Args(), " "))
		printResponse(resp)
	case "metrics-cleanup":
		cleanupCmd := flag.NewFlagSet("metrics-cleanup", flag.ExitOnError)
		days := cleanupCmd.Int("days", 30, "Keep records for the last N days")
		cleanupCmd.Parse(os.Args[2:])

		affected, err := metricsStore.Cleanup(ctx, *days)
		if err != nil {
			log.Fatalf("Cleanup failed: %v", err)
		}
		fmt.Printf("Successfully removed %d old metric records.\n", affected)
	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

// newParser picks the language-understanding backend: Gemini when its key is
// configured, Groq otherwise.
func newParser(ctx context.Context, cfg *config.Config) (intent.Parser, func(), error) {
	if cfg.GeminiAPIKey != "" {
		gemini, err := intent.NewGeminiParser(ctx, cfg.GeminiAPIKey)
		if err != nil {
			return nil, nil, err
		}
		return gemini, func() { gemini.Close() }, nil
	}
	return intent.NewGroqParser(cfg.GroqAPIKey), func() {}, nil
}

// newResolver builds the price resolution chain: remote feed first when
// configured, store page scraper next, static catalog last.
func newResolver(cfg *config.Config) pricing.Resolver {
	var chain pricing.Chain
	if cfg.PriceFeedURL != "" {
		chain = append(chain, pricing.NewFeedClient(cfg.PriceFeedURL, cfg.PriceFeedAdminKey))
	}
	if cfg.StoreSearchURL != "" {
		chain = append(chain, pricing.NewPageScraper(cfg.StoreSearchURL))
	}
	chain = append(chain, pricing.NewCatalog())
	return chain
}

func runChat(ctx context.Context, shopper *assistant.Assistant, listID int64) {
	fmt.Printf("Shopping assistant ready (list %d). Type a command, or \"quit\" to exit.\n", listID)
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "quit" || line == "exit" {
			break
		}
		printResponse(shopper.Execute(ctx, listID, line))
	}
	if err := scanner.Err(); err != nil {
		log.Fatalf("Failed to read input: %v", err)
	}
}

func printResponse(resp assistant.Response) {
	fmt.Println(resp.Message)
	if len(resp.Items) > 0 && resp.State != assistant.StateRejected {
		fmt.Print(resp.Bill)
	}
}

func printUsage() {
	fmt.Println("Usage: shopping-assistant <command> [arguments]")
	fmt.Println("\nCommands:")
	fmt.Println("  chat               Interactive shopping-list session")
	fmt.Println("  exec \"<command>\"   Run a single command and exit")
	fmt.Println("  metrics-cleanup    Remove old metric records")
}
