package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bowerhall/studybuddy/internal/agent"
	"github.com/bowerhall/studybuddy/internal/alerts"
	"github.com/bowerhall/studybuddy/internal/bot"
	"github.com/bowerhall/studybuddy/internal/budget"
	"github.com/bowerhall/studybuddy/internal/config"
	"github.com/bowerhall/studybuddy/internal/conversation"
	"github.com/bowerhall/studybuddy/internal/dispatch"
	"github.com/bowerhall/studybuddy/internal/janitor"
	"github.com/bowerhall/studybuddy/internal/llm"
	"github.com/bowerhall/studybuddy/internal/logger"
	"github.com/bowerhall/studybuddy/internal/operational"
	"github.com/bowerhall/studybuddy/internal/session"
	"github.com/bowerhall/studybuddy/internal/storage"
	"github.com/bowerhall/studybuddy/internal/tutor"
)

// app is the wired service graph shared by serve, bot and ask.
type app struct {
	cfg        *config.Config
	db         *operational.Store
	agent      *agent.Agent
	chat       *bot.Chat
	tutor      *tutor.Tutor
	transcript *conversation.Store
	usage      *budget.Store
	alerter    *alerts.Alerter
	uploads    *storage.Client
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	db, err := operational.Open(cfg.DBPath)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, db: db}

	// operator alerts get a notifier once a bot is up; until then they are
	// only logged
	a.alerter = alerts.New(nil, cfg.Alerts.Cooldown)

	a.transcript, err = conversation.NewStore(db.DB())
	if err != nil {
		db.Close()
		return nil, err
	}

	a.usage, err = budget.NewStore(db.DB(), cfg.Location())
	if err != nil {
		db.Close()
		return nil, err
	}

	var tracker *budget.Tracker
	if cfg.Budget.Enabled {
		tracker = budget.NewTracker(
			budget.Config{
				DailyLimit: cfg.Budget.DailyLimit,
				WarnAt:     cfg.Budget.WarnAt,
				Timezone:   cfg.Location(),
			},

			func(used, limit int) {
				msg := fmt.Sprintf("Budget warning: %d/%d tokens used (%.0f%%). Approaching daily limit.", used, limit, float64(used)/float64(limit)*100)
				a.alerter.Warn("budget", msg, nil)
			},

			func(used, limit int) {
				msg := fmt.Sprintf("Budget exceeded: %d/%d tokens. Answers paused until tomorrow.", used, limit)
				a.alerter.Critical("budget", msg, nil)
			},
		)
		tracker.SetStore(ctx, a.usage)
		logger.Info("budget tracking enabled", "limit", cfg.Budget.DailyLimit, "warnAt", cfg.Budget.WarnAt)
	}

	model, err := llm.New(llm.Config{
		Provider: cfg.LLM.Provider,
		APIKey:   cfg.LLM.APIKey,
		Model:    cfg.LLM.Model,
		BaseURL:  cfg.LLM.BaseURL,
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create llm: %w", err)
	}

	prompts := tutor.DefaultPrompts()
	if cfg.Chat.PromptsFile != "" {
		prompts, err = tutor.LoadPrompts(cfg.Chat.PromptsFile)
		if err != nil {
			db.Close()
			return nil, err
		}
	}
	a.tutor = tutor.New(model, tracker, prompts)

	if cfg.Chat.PromptsFile != "" {
		if err := tutor.WatchPrompts(ctx, a.tutor, cfg.Chat.PromptsFile); err != nil {
			logger.Warn("prompts hot reload disabled", "error", err)
		}
	}

	dispatcher := dispatch.New(a.tutor,
		dispatch.WithTimeout(cfg.LLM.Timeout),
		dispatch.WithContextTurns(cfg.Chat.ContextTurns),
		dispatch.WithFailureHook(llmFailureAlert(a.alerter)),
	)

	a.agent = agent.New(session.NewStore(), dispatcher)
	a.agent.SetTranscript(a.transcript)

	if cfg.Storage.Enabled {
		a.uploads = initStorage(ctx, cfg.Storage)
		if a.uploads != nil {
			a.agent.SetUploads(a.uploads)
		}
	}

	a.chat = bot.NewChat(a.agent)

	logger.Info("studybuddy ready",
		"llm", cfg.LLM.Provider,
		"model", model.Model(),
		"prompts", a.tutor.Prompts().Source(),
		"db", cfg.DBPath,
	)
	return a, nil
}

// llmFailureAlert reports backend failures and timeouts to the operator. A
// spent daily budget is already announced by the tracker.
func llmFailureAlert(alerter *alerts.Alerter) dispatch.FailureFunc {
	return func(sel dispatch.Selection, err error) {
		if errors.Is(err, budget.ErrBudgetExhausted) {
			return
		}
		alerter.Critical("llm", sel.String()+" failed", err)
	}
}

// initStorage returns nil when the bucket is unreachable; uploads then stay
// in memory only.
func initStorage(ctx context.Context, cfg config.StorageConfig) *storage.Client {
	client, err := storage.NewClient(storage.Config{
		Endpoint:  cfg.Endpoint,
		AccessKey: cfg.AccessKey,
		SecretKey: cfg.SecretKey,
		UseSSL:    cfg.UseSSL,
		Bucket:    cfg.Bucket,
	})
	if err != nil {
		logger.Error("failed to create storage client", "error", err)
		return nil
	}

	initCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := client.Init(initCtx); err != nil {
		logger.Error("failed to init storage bucket", "error", err)
		return nil
	}

	logger.Info("upload archive enabled", "endpoint", cfg.Endpoint, "bucket", client.Bucket())
	return client
}

// startJanitor schedules session eviction and transcript pruning.
func (a *app) startJanitor(ctx context.Context) (*janitor.Janitor, error) {
	j, err := janitor.New(janitor.Config{
		Schedule:    a.cfg.Janitor.Schedule,
		IdleTimeout: a.cfg.Janitor.IdleTimeout,
		Retention:   a.cfg.Janitor.Retention,
	}, a.agent.Sessions(), a.transcript)
	if err != nil {
		return nil, err
	}

	j.OnEvict(a.chat.Forget)

	if err := j.Start(ctx); err != nil {
		return nil, err
	}
	return j, nil
}

// startBots starts every configured bot and points operator alerts at the
// first one.
func (a *app) startBots(ctx context.Context) ([]string, error) {
	var bots []bot.Bot
	var enabled []string

	if a.cfg.Bots.Telegram.Enabled {
		b, err := bot.NewTelegram(a.cfg.Bots.Telegram.Token, a.chat)
		if err != nil {
			return nil, err
		}
		bots = append(bots, b)
		enabled = append(enabled, "telegram")
	}

	if a.cfg.Bots.Discord.Enabled {
		b, err := bot.NewDiscord(a.cfg.Bots.Discord.Token, a.chat)
		if err != nil {
			return nil, err
		}
		bots = append(bots, b)
		enabled = append(enabled, "discord")
	}

	for i, b := range bots {
		provider := enabled[i]
		go func() {
			if err := b.Start(ctx); err != nil && ctx.Err() == nil {
				logger.Error("bot stopped", "provider", provider, "error", err)
				a.alerter.Critical(provider, "bot stopped", err)
			}
		}()
	}

	if len(bots) > 0 && a.cfg.Alerts.ChatID != "" {
		notifyBot := bots[0]
		a.alerter.SetNotify(func(message string) {
			if err := notifyBot.Send(a.cfg.Alerts.ChatID, message); err != nil {
				logger.Error("alert delivery failed", "error", err)
			}
		})
		logger.Info("error alerting enabled", "chatID", a.cfg.Alerts.ChatID)
	}

	return enabled, nil
}

func (a *app) Close() error {
	return a.db.Close()
}
