// Package janitor runs the periodic housekeeping jobs: evicting idle chat
// sessions and pruning old transcripts.
package janitor

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/bowerhall/studybuddy/internal/logger"
)

// DefaultSchedule runs every 15 minutes.
const DefaultSchedule = "*/15 * * * *"

// standard 5-field cron expressions
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// SessionEvicter drops sessions idle for longer than maxIdle.
type SessionEvicter interface {
	EvictIdle(maxIdle time.Duration) []string
}

// TranscriptPruner deletes archived entries older than retention.
type TranscriptPruner interface {
	Prune(ctx context.Context, retention time.Duration) (int64, error)
}

type Config struct {
	Schedule    string
	IdleTimeout time.Duration // zero disables eviction
	Retention   time.Duration // zero disables pruning
}

type Janitor struct {
	cfg      Config
	sessions SessionEvicter
	pruner   TranscriptPruner
	cron     *cron.Cron
	onEvict  func(ids []string)
}

// New validates the schedule. Either dependency may be nil.
func New(cfg Config, sessions SessionEvicter, pruner TranscriptPruner) (*Janitor, error) {
	if cfg.Schedule == "" {
		cfg.Schedule = DefaultSchedule
	}
	if _, err := cronParser.Parse(cfg.Schedule); err != nil {
		return nil, fmt.Errorf("invalid janitor schedule %q: %w", cfg.Schedule, err)
	}

	return &Janitor{
		cfg:      cfg,
		sessions: sessions,
		pruner:   pruner,
		cron:     cron.New(cron.WithParser(cronParser)),
	}, nil
}

// OnEvict registers fn to learn which sessions were evicted, e.g. to drop
// per-chat adapter state.
func (j *Janitor) OnEvict(fn func(ids []string)) {
	j.onEvict = fn
}

// Start schedules the sweep and returns immediately.
func (j *Janitor) Start(ctx context.Context) error {
	_, err := j.cron.AddFunc(j.cfg.Schedule, func() {
		j.Sweep(ctx)
	})
	if err != nil {
		return fmt.Errorf("schedule janitor: %w", err)
	}

	j.cron.Start()
	logger.Info("janitor started", "schedule", j.cfg.Schedule, "idle_timeout", j.cfg.IdleTimeout, "retention", j.cfg.Retention)
	return nil
}

// Stop waits for a running sweep to finish.
func (j *Janitor) Stop() {
	<-j.cron.Stop().Done()
}

type Result struct {
	Evicted []string
	Pruned  int64
}

// Sweep runs every housekeeping job once.
func (j *Janitor) Sweep(ctx context.Context) Result {
	var res Result

	if j.sessions != nil && j.cfg.IdleTimeout > 0 {
		res.Evicted = j.sessions.EvictIdle(j.cfg.IdleTimeout)
		if len(res.Evicted) > 0 {
			logger.Info("idle sessions evicted", "count", len(res.Evicted))
			if j.onEvict != nil {
				j.onEvict(res.Evicted)
			}
		}
	}

	if j.pruner != nil && j.cfg.Retention > 0 {
		n, err := j.pruner.Prune(ctx, j.cfg.Retention)
		if err != nil {
			logger.Error("transcript prune failed", "error", err)
		} else if n > 0 {
			logger.Info("transcripts pruned", "entries", n)
		}
		res.Pruned = n
	}

	return res
}

// NextRun reports when the schedule fires next after from.
func NextRun(schedule string, from time.Time) (time.Time, error) {
	sched, err := cronParser.Parse(schedule)
	if err != nil {
		return time.Time{}, err
	}
	return sched.Next(from), nil
}
