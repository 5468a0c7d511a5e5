package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/tagscout/tagscout/internal/dashboard"
	"github.com/tagscout/tagscout/internal/discord"
	"github.com/tagscout/tagscout/internal/discord/client"
	"github.com/tagscout/tagscout/internal/notify"
	"github.com/tagscout/tagscout/internal/progress"
	"github.com/tagscout/tagscout/internal/scan"
	"github.com/tagscout/tagscout/internal/setup"
	"github.com/tagscout/tagscout/pkg/utils"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func runCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Connect the session, serve the dashboard and scan on demand",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "progress",
				Usage: "Draw a progress bar on the terminal",
			},
			&cli.BoolFlag{
				Name:  "auto-start",
				Usage: "Start one scan as soon as the session is ready",
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			return runScanner(ctx, c.Bool("progress"), c.Bool("auto-start"))
		},
	}
}

// runScanner wires every component and blocks until ctx is done.
func runScanner(ctx context.Context, showProgress, autoStart bool) error {
	app, err := setup.InitializeApp(ctx, ScannerLogDir)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	defer app.Cleanup(ctx)

	cfg := app.Config
	logger := app.Logger

	session, err := client.NewState(client.Options{
		Token:    cfg.Discord.Token,
		ProxyURL: cfg.Discord.ProxyURL,
		Timeout:  millis(cfg.Discord.RequestTimeout),
	})
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	breaker := cfg.CircuitBreaker
	source := discord.NewSource(session, discord.Options{
		MemberListTimeout:  millis(cfg.Discord.MemberListTimeout),
		EnrichInterval:     millis(cfg.Discord.EnrichmentInterval),
		EnrichJitter:       millis(cfg.Discord.EnrichmentJitter),
		BreakerMaxRequests: breaker.MaxRequests,
		BreakerInterval:    millis(breaker.Interval),
		BreakerTimeout:     millis(breaker.Timeout),
	}, app.LogManager.GetComponentLogger("discord"))

	var notifier scan.Notifier

	webhook, err := notify.NewWebhook(cfg.Webhook.URL, notify.Options{
		Timeout:            millis(cfg.Webhook.Timeout),
		BreakerMaxRequests: breaker.MaxRequests,
		BreakerInterval:    millis(breaker.Interval),
		BreakerTimeout:     millis(breaker.Timeout),
	}, logger)

	switch {
	case errors.Is(err, notify.ErrWebhookNotConfigured):
		logger.Warn("Webhook URL not configured, notifications disabled")
	case err != nil:
		return err
	default:
		defer webhook.Close()

		notifier = webhook
	}

	store := dashboard.NewStore()
	reporters := scan.Reporters{store}

	var renderer *progress.Renderer
	if showProgress {
		renderer = progress.NewRenderer(progress.NewBar(30, "Idle"), os.Stdout)
		reporters = append(reporters, renderer)
	}

	orchestrator := scan.NewOrchestrator(source, notifier, reporters, app.DedupCache, scan.Config{
		MatchDelay:      millis(cfg.Scan.MatchDelay),
		ProgressEvery:   int64(cfg.Scan.ProgressEvery),
		EnrichComposite: cfg.Scan.EnrichComposite,
	}, logger, scan.WithMetrics(scan.NewMetrics(app.Registry)))

	server, err := dashboard.NewServer(dashboard.Deps{
		Store:      store,
		Hub:        dashboard.NewHub(cfg.Dashboard.AllowedOrigin, logger),
		Controller: orchestrator,
		Config:     cfg,
		EnvStore:   app.EnvStore,
		Registry:   app.Registry,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to create dashboard: %w", err)
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return server.Run(ctx, dashboard.Addr(&cfg.Dashboard))
	})

	if renderer != nil {
		g.Go(func() error {
			renderer.Run(ctx)
			return nil
		})
	}

	g.Go(func() error {
		return connect(ctx, app, source, store, orchestrator, autoStart || cfg.Scan.AutoStart)
	})

	err = g.Wait()

	if orchestrator.Phase() == scan.PhaseScanning {
		logger.Warn("Shutting down with a scan in progress",
			zap.String("community", orchestrator.CurrentCommunity()))
	}

	if closeErr := source.Close(); closeErr != nil {
		logger.Warn("Failed to close session", zap.Error(closeErr))
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	logger.Info("Scanner stopped")

	return nil
}

// connect opens the gateway, publishes the community list and optionally
// starts the first scan.
func connect(
	ctx context.Context, app *setup.App, source *discord.Source, reporter scan.Reporter,
	orchestrator *scan.Orchestrator, autoStart bool,
) error {
	logger := app.Logger

	if _, err := utils.WithRetry(ctx, func() (struct{}, error) {
		return struct{}{}, source.Open(ctx)
	}, utils.GetGatewayRetryOptions()); err != nil {
		return err
	}

	if err := source.WaitReady(ctx); err != nil {
		return err
	}

	communities, err := source.Communities(ctx)
	if err != nil {
		return fmt.Errorf("failed to list communities: %w", err)
	}

	reporter.Report(scan.ServersSet{Servers: scan.ServerInfos(communities)})

	logger.Info("Session ready",
		zap.Int("communities", len(communities)),
		zap.String("dashboard", dashboard.Addr(&app.Config.Dashboard)))

	if autoStart {
		orchestrator.Toggle(ctx)
	}

	return nil
}

func millis(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
