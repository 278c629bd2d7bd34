package budget

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

const schema = `
CREATE TABLE IF NOT EXISTS usage (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	timestamp DATETIME NOT NULL,
	provider TEXT NOT NULL,
	model TEXT NOT NULL,
	input_tokens INTEGER NOT NULL,
	output_tokens INTEGER NOT NULL,
	cost_usd REAL NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_usage_timestamp ON usage(timestamp);
`

// Store is the usage ledger.
type Store struct {
	db       *sql.DB
	timezone *time.Location
	now      func() time.Time
}

func NewStore(db *sql.DB, timezone *time.Location) (*Store, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("create usage schema: %w", err)
	}

	tz := timezone
	if tz == nil {
		tz = time.UTC
	}

	return &Store{db: db, timezone: tz, now: time.Now}, nil
}

func (s *Store) Record(ctx context.Context, provider, model string, inputTokens, outputTokens int) error {
	cost := CalculateCost(model, inputTokens, outputTokens)

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO usage (timestamp, provider, model, input_tokens, output_tokens, cost_usd) VALUES (?, ?, ?, ?, ?, ?)`,
		s.now().UTC(),
		provider,
		model,
		inputTokens,
		outputTokens,
		cost,
	)
	if err != nil {
		return fmt.Errorf("record usage: %w", err)
	}
	return nil
}

type Summary struct {
	TotalRequests     int
	TotalInputTokens  int
	TotalOutputTokens int
	TotalCostUSD      float64
}

func (s *Summary) TotalTokens() int {
	return s.TotalInputTokens + s.TotalOutputTokens
}

func (s *Store) SummaryRange(ctx context.Context, from, to time.Time) (*Summary, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(input_tokens), 0),
			COALESCE(SUM(output_tokens), 0),
			COALESCE(SUM(cost_usd), 0)
		FROM usage
		WHERE timestamp >= ? AND timestamp < ?
	`, from.UTC(), to.UTC())

	var sum Summary
	if err := row.Scan(&sum.TotalRequests, &sum.TotalInputTokens, &sum.TotalOutputTokens, &sum.TotalCostUSD); err != nil {
		return nil, fmt.Errorf("summarize usage: %w", err)
	}

	return &sum, nil
}

// todayRange is midnight to midnight in the store's timezone.
func (s *Store) todayRange() (time.Time, time.Time) {
	now := s.now().In(s.timezone)
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.timezone)
	return start, start.AddDate(0, 0, 1)
}

func (s *Store) Today(ctx context.Context) (*Summary, error) {
	from, to := s.todayRange()
	return s.SummaryRange(ctx, from, to)
}

// TodayTokens is the input plus output tokens spent today.
func (s *Store) TodayTokens(ctx context.Context) (int, error) {
	sum, err := s.Today(ctx)
	if err != nil {
		return 0, err
	}
	return sum.TotalTokens(), nil
}

func (s *Store) ThisMonth(ctx context.Context) (*Summary, error) {
	now := s.now().In(s.timezone)
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, s.timezone)
	return s.SummaryRange(ctx, start, start.AddDate(0, 1, 0))
}

type ModelBreakdown struct {
	Model        string
	Requests     int
	InputTokens  int
	OutputTokens int
	CostUSD      float64
}

func (s *Store) BreakdownByModel(ctx context.Context, from, to time.Time) ([]ModelBreakdown, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT
			model,
			COUNT(*),
			SUM(input_tokens),
			SUM(output_tokens),
			SUM(cost_usd)
		FROM usage
		WHERE timestamp >= ? AND timestamp < ?
		GROUP BY model
		ORDER BY SUM(cost_usd) DESC
	`, from.UTC(), to.UTC())
	if err != nil {
		return nil, fmt.Errorf("usage by model: %w", err)
	}
	defer rows.Close()

	var result []ModelBreakdown
	for rows.Next() {
		var b ModelBreakdown
		if err := rows.Scan(&b.Model, &b.Requests, &b.InputTokens, &b.OutputTokens, &b.CostUSD); err != nil {
			return nil, err
		}
		result = append(result, b)
	}

	return result, rows.Err()
}
