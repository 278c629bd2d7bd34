package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/bowerhall/studybuddy/internal/config"
	"github.com/bowerhall/studybuddy/internal/httpapi"
	"github.com/bowerhall/studybuddy/internal/logger"
)

func newServeCmd() *cobra.Command {
	var (
		addr         string
		secureCookie bool
		noBots       bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the web chat API, plus any configured bots",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(addr, secureCookie, noBots)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default $HTTP_ADDR or :8080)")
	cmd.Flags().BoolVar(&secureCookie, "secure-cookie", false, "mark the session cookie Secure")
	cmd.Flags().BoolVar(&noBots, "no-bots", false, "do not start Telegram or Discord bots")
	return cmd
}

func runServe(addr string, secureCookie, noBots bool) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if addr == "" {
		addr = cfg.HTTP.Addr
	}

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	j, err := a.startJanitor(ctx)
	if err != nil {
		return err
	}
	defer j.Stop()

	if !noBots {
		enabled, err := a.startBots(ctx)
		if err != nil {
			return err
		}
		if len(enabled) > 0 {
			logger.Info("bots started", "bots", enabled)
		}
	}

	err = httpapi.Start(ctx, httpapi.Opts{
		Agent:        a.agent,
		Addr:         addr,
		SecureCookie: secureCookie,
	})
	logger.Info("shutting down")
	return err
}

func newBotCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "bot",
		Short: "Run the Telegram and Discord bots without the web API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBots()
		},
	}
}

func runBots() error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if !cfg.Bots.Telegram.Enabled && !cfg.Bots.Discord.Enabled {
		return errors.New("no bot providers enabled, set TELEGRAM_TOKEN or DISCORD_TOKEN")
	}

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	j, err := a.startJanitor(ctx)
	if err != nil {
		return err
	}
	defer j.Stop()

	enabled, err := a.startBots(ctx)
	if err != nil {
		return err
	}
	logger.Info("bots started", "bots", enabled)

	<-ctx.Done()
	logger.Info("shutting down")
	return nil
}
