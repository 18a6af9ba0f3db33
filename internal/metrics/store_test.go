package metrics

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/8ft0/smolagent-cookbook/internal/database"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "metrics.db"))
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewStore(db.SQL)
}

func TestRecordAndDailyUsage(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	metricsToRecord := []CommandMetric{
		{ListID: 1, IntentKind: "add", Outcome: "mutated", Model: "gemini-1.5-flash", PromptTokens: 120, CompletionTokens: 30, LatencyMS: 800},
		{ListID: 1, IntentKind: "query", Outcome: "queried", Model: "gemini-1.5-flash", PromptTokens: 110, CompletionTokens: 20, LatencyMS: 650},
		{ListID: 2, IntentKind: "add", Outcome: "rejected", Model: "gemini-1.5-flash", PromptTokens: 130, CompletionTokens: 25, LatencyMS: 700},
	}
	for _, m := range metricsToRecord {
		if err := store.Record(ctx, m); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}

	usage, err := store.GetDailyUsage(ctx, 7)
	if err != nil {
		t.Fatalf("GetDailyUsage failed: %v", err)
	}
	if len(usage) != 1 {
		t.Fatalf("Expected a single day of usage, got %d", len(usage))
	}
	if usage[0].TotalCommands != 3 {
		t.Errorf("Expected 3 commands, got %d", usage[0].TotalCommands)
	}
	if usage[0].TotalPrompt != 360 {
		t.Errorf("Expected 360 prompt tokens, got %d", usage[0].TotalPrompt)
	}
	if usage[0].TotalCompletion != 75 {
		t.Errorf("Expected 75 completion tokens, got %d", usage[0].TotalCompletion)
	}
}

func TestGetDailyUsageExcludesOldRecords(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	old := CommandMetric{ListID: 1, IntentKind: "add", Outcome: "mutated", Timestamp: time.Now().UTC().AddDate(0, 0, -30)}
	recent := CommandMetric{ListID: 1, IntentKind: "add", Outcome: "mutated"}
	for _, m := range []CommandMetric{old, recent} {
		if err := store.Record(ctx, m); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}

	usage, err := store.GetDailyUsage(ctx, 7)
	if err != nil {
		t.Fatalf("GetDailyUsage failed: %v", err)
	}
	if len(usage) != 1 || usage[0].TotalCommands != 1 {
		t.Errorf("Expected only the recent record in the window, got %+v", usage)
	}
}

func TestCleanup(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	old := CommandMetric{ListID: 1, IntentKind: "add", Outcome: "mutated", Timestamp: time.Now().UTC().AddDate(0, 0, -90)}
	recent := CommandMetric{ListID: 1, IntentKind: "query", Outcome: "queried"}
	for _, m := range []CommandMetric{old, recent} {
		if err := store.Record(ctx, m); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}

	deleted, err := store.Cleanup(ctx, 60)
	if err != nil {
		t.Fatalf("Cleanup failed: %v", err)
	}
	if deleted != 1 {
		t.Errorf("Expected 1 deleted record, got %d", deleted)
	}

	usage, err := store.GetDailyUsage(ctx, 365)
	if err != nil {
		t.Fatalf("GetDailyUsage failed: %v", err)
	}
	total := 0
	for _, u := range usage {
		total += u.TotalCommands
	}
	if total != 1 {
		t.Errorf("Expected 1 surviving record, got %d", total)
	}
}
