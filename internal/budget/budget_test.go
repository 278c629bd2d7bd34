package budget

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	store, err := NewStore(db, time.UTC)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	return store
}

func TestTrackerAdd(t *testing.T) {
	tracker := NewTracker(Config{DailyLimit: 1000, WarnAt: 0.8}, nil, nil)

	if ok := tracker.Add(500); !ok {
		t.Error("expected Add to return true when under limit")
	}

	used, limit := tracker.Usage()
	if used != 500 {
		t.Errorf("expected 500 used, got %d", used)
	}
	if limit != 1000 {
		t.Errorf("expected 1000 limit, got %d", limit)
	}
}

func TestTrackerExceedsLimit(t *testing.T) {
	exceededCalled := false
	tracker := NewTracker(Config{DailyLimit: 1000, WarnAt: 0.8}, nil, func(used, limit int) {
		exceededCalled = true
	})

	tracker.Add(500)
	if tracker.Exhausted() {
		t.Error("expected budget not exhausted at 500")
	}

	if ok := tracker.Add(600); ok {
		t.Error("expected Add to return false when exceeding limit")
	}
	if !exceededCalled {
		t.Error("expected onExceeded callback to be called")
	}
	if !tracker.Exhausted() {
		t.Error("expected budget exhausted at 1100")
	}
}

func TestTrackerWarnOnlyOnce(t *testing.T) {
	warnCount := 0
	tracker := NewTracker(Config{DailyLimit: 1000, WarnAt: 0.8}, func(used, limit int) {
		warnCount++
	}, nil)

	tracker.Add(700)
	if warnCount != 0 {
		t.Error("expected no warning at 70%")
	}

	tracker.Add(100)
	tracker.Add(50)
	tracker.Add(50)

	if warnCount != 1 {
		t.Errorf("expected warning to be called once, got %d", warnCount)
	}
}

func TestTrackerUnlimited(t *testing.T) {
	tracker := NewTracker(Config{}, nil, func(used, limit int) {
		t.Error("onExceeded must not fire without a limit")
	})

	if ok := tracker.Add(1_000_000); !ok {
		t.Error("expected Add to succeed without a limit")
	}
	if tracker.Exhausted() {
		t.Error("expected unlimited tracker never to be exhausted")
	}
}

func TestTrackerResetsAtMidnight(t *testing.T) {
	now := time.Date(2026, 3, 1, 23, 0, 0, 0, time.UTC)

	tracker := NewTracker(Config{DailyLimit: 100, WarnAt: 0.8}, nil, nil)
	tracker.now = func() time.Time { return now }
	tracker.day = tracker.dayKey()

	tracker.Add(150)
	if !tracker.Exhausted() {
		t.Fatal("expected exhausted before midnight")
	}

	now = now.Add(2 * time.Hour)
	if tracker.Exhausted() {
		t.Error("expected budget to reset on a new day")
	}
	if used, _ := tracker.Usage(); used != 0 {
		t.Errorf("expected 0 used after reset, got %d", used)
	}
}

func TestTrackerRecord(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	tracker := NewTracker(Config{DailyLimit: 100000, WarnAt: 0.8}, nil, nil)
	tracker.SetStore(ctx, store)

	if ok := tracker.Record(ctx, "gemini", "gemini-2.5-flash", 1000, 100); !ok {
		t.Error("expected Record to return true")
	}

	if used, _ := tracker.Usage(); used != 1100 {
		t.Errorf("expected 1100 used, got %d", used)
	}

	tokens, err := store.TodayTokens(ctx)
	if err != nil {
		t.Fatalf("failed to get today tokens: %v", err)
	}
	if tokens != 1100 {
		t.Errorf("expected 1100 tokens in store, got %d", tokens)
	}
}

func TestTrackerSeedsFromStore(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	if err := store.Record(ctx, "gemini", "gemini-2.5-flash", 900, 200); err != nil {
		t.Fatalf("failed to record: %v", err)
	}

	tracker := NewTracker(Config{DailyLimit: 1000, WarnAt: 0.8}, nil, nil)
	tracker.SetStore(ctx, store)

	if !tracker.Exhausted() {
		t.Error("expected tracker seeded from store to be exhausted")
	}
}

func TestStoreSummaryAndBreakdown(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	store.Record(ctx, "claude", "claude-sonnet-4-20250514", 1000, 100)
	store.Record(ctx, "openai", "gpt-4o", 500, 50)
	store.Record(ctx, "gemini", "gemini-2.5-flash", 2000, 200)

	summary, err := store.Today(ctx)
	if err != nil {
		t.Fatalf("failed to get today summary: %v", err)
	}

	if summary.TotalRequests != 3 {
		t.Errorf("expected 3 requests, got %d", summary.TotalRequests)
	}
	if summary.TotalInputTokens != 3500 {
		t.Errorf("expected 3500 input tokens, got %d", summary.TotalInputTokens)
	}
	if summary.TotalOutputTokens != 350 {
		t.Errorf("expected 350 output tokens, got %d", summary.TotalOutputTokens)
	}

	from := time.Now().Add(-time.Hour)
	to := time.Now().Add(time.Hour)
	breakdown, err := store.BreakdownByModel(ctx, from, to)
	if err != nil {
		t.Fatalf("failed to get breakdown: %v", err)
	}
	if len(breakdown) != 3 {
		t.Fatalf("expected 3 models, got %d", len(breakdown))
	}
	if breakdown[0].Model != "claude-sonnet-4-20250514" {
		t.Errorf("expected most expensive model first, got %s", breakdown[0].Model)
	}
}

func TestPricingKnownModels(t *testing.T) {
	tests := []struct {
		model  string
		input  int
		output int
		want   float64
	}{
		{"gemini-2.5-flash", 1000000, 0, 0.30},
		{"models/gemini-2.5-flash", 0, 1000000, 2.50},
		{"claude-sonnet-4-20250514", 1000000, 0, 3.00},
		{"gpt-4o", 0, 1000000, 10.00},
	}

	for _, tt := range tests {
		cost := CalculateCost(tt.model, tt.input, tt.output)
		if cost != tt.want {
			t.Errorf("CalculateCost(%s, %d, %d) = %f, want %f", tt.model, tt.input, tt.output, cost, tt.want)
		}
	}
}

func TestPricingLocalAndUnknown(t *testing.T) {
	if cost := CalculateCost("ollama/qwen2.5:3b", 1000000, 1000000); cost != 0 {
		t.Errorf("expected ollama models to be free, got %f", cost)
	}
	if cost := CalculateCost("llama3.2:3b", 1000000, 1000000); cost != 0 {
		t.Errorf("expected local models with : to be free, got %f", cost)
	}
	if cost := CalculateCost("unknown-model", 1000000, 1000000); cost == 0 {
		t.Error("expected unknown models to have non-zero cost")
	}
}
