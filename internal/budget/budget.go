// Package budget caps the number of model tokens spent per day.
package budget

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/bowerhall/studybuddy/internal/logger"
)

// ErrBudgetExhausted is returned by callers that refuse to spend more tokens
// once the daily limit is reached.
var ErrBudgetExhausted = errors.New("daily token budget exhausted")

type Tracker struct {
	mu         sync.Mutex
	dailyLimit int
	warnAt     float64
	tokens     int
	day        string
	onWarn     func(used, limit int)
	onExceeded func(used, limit int)
	warnSent   bool
	timezone   *time.Location
	store      *Store
	now        func() time.Time
}

type Config struct {
	DailyLimit int     // zero means unlimited
	WarnAt     float64 // fraction of DailyLimit, e.g. 0.8
	Timezone   *time.Location
}

func NewTracker(cfg Config, onWarn, onExceeded func(used, limit int)) *Tracker {
	tz := cfg.Timezone
	if tz == nil {
		tz = time.UTC
	}

	t := &Tracker{
		dailyLimit: cfg.DailyLimit,
		warnAt:     cfg.WarnAt,
		onWarn:     onWarn,
		onExceeded: onExceeded,
		timezone:   tz,
		now:        time.Now,
	}
	t.day = t.dayKey()
	return t
}

// SetStore attaches the usage ledger and seeds today's count from it.
func (t *Tracker) SetStore(ctx context.Context, s *Store) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.store = s
	if s == nil {
		return
	}

	tokens, err := s.TodayTokens(ctx)
	if err != nil {
		logger.Warn("budget: failed to load today's usage", "error", err)
		return
	}

	t.tokens = tokens
	if t.dailyLimit > 0 && float64(t.tokens) >= float64(t.dailyLimit)*t.warnAt {
		t.warnSent = true
	}
}

func (t *Tracker) Store() *Store {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.store
}

// Add counts tokens and reports whether the tracker is still under its limit.
func (t *Tracker) Add(tokens int) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.checkReset()
	t.tokens += tokens

	if t.dailyLimit <= 0 {
		return true
	}

	if t.tokens >= t.dailyLimit {
		if t.onExceeded != nil {
			t.onExceeded(t.tokens, t.dailyLimit)
		}
		return false
	}

	if !t.warnSent && float64(t.tokens) >= float64(t.dailyLimit)*t.warnAt {
		t.warnSent = true
		if t.onWarn != nil {
			t.onWarn(t.tokens, t.dailyLimit)
		}
	}

	return true
}

// Record writes usage to the ledger, if any, and counts it.
func (t *Tracker) Record(ctx context.Context, provider, model string, inputTokens, outputTokens int) bool {
	if store := t.Store(); store != nil {
		if err := store.Record(ctx, provider, model, inputTokens, outputTokens); err != nil {
			// usage tracking never blocks a reply
			logger.Warn("budget: failed to record usage", "provider", provider, "model", model, "error", err)
		}
	}

	return t.Add(inputTokens + outputTokens)
}

// Exhausted reports whether today's limit has been reached.
func (t *Tracker) Exhausted() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.checkReset()
	return t.dailyLimit > 0 && t.tokens >= t.dailyLimit
}

func (t *Tracker) Usage() (used, limit int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.checkReset()
	return t.tokens, t.dailyLimit
}

func (t *Tracker) dayKey() string {
	return t.now().In(t.timezone).Format(time.DateOnly)
}

// must hold lock
func (t *Tracker) checkReset() {
	if day := t.dayKey(); day != t.day {
		t.tokens = 0
		t.warnSent = false
		t.day = day
	}
}
