package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	"golang.org/x/sync/errgroup"

	"github.com/cpxbuddy/cpxbuddy/api"
	"github.com/cpxbuddy/cpxbuddy/internal/agent"
	"github.com/cpxbuddy/cpxbuddy/internal/config"
	"github.com/cpxbuddy/cpxbuddy/internal/copperx"
	"github.com/cpxbuddy/cpxbuddy/internal/notify"
	"github.com/cpxbuddy/cpxbuddy/internal/session"
	"github.com/cpxbuddy/cpxbuddy/internal/tools"
)

// runServe wires the application together and starts the HTTP server.
func runServe() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	addr := cfg.Addr
	if len(os.Args) > 2 {
		addr = os.Args[2]
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger := slog.Default()
	logger.Info("starting cpxbuddy", "version", Version, "model", cfg.FullModelName())

	g := genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{}))

	client, err := copperx.New(copperx.Config{
		BaseURL: cfg.CopperxAPIURL,
		APIKey:  cfg.CopperxAPIKey,
		Logger:  logger,
	})
	if err != nil {
		return fmt.Errorf("creating platform client: %w", err)
	}

	store, err := session.New(cfg.SessionsDir, logger)
	if err != nil {
		return fmt.Errorf("opening session store: %w", err)
	}

	var notifier *notify.Notifier
	if cfg.Pusher.Enabled() {
		notifier, err = notify.New(notify.Config{
			AppID:   cfg.Pusher.AppID,
			Key:     cfg.Pusher.Key,
			Secret:  cfg.Pusher.Secret,
			Cluster: cfg.Pusher.Cluster,
			Logger:  logger,
		})
		if err != nil {
			return fmt.Errorf("creating notifier: %w", err)
		}
	} else {
		logger.Info("deposit notifications disabled, Pusher credentials not set")
	}

	registry, err := tools.New(tools.Config{
		Copperx:  client,
		Sessions: store,
		Notifier: notifier,
		Logger:   logger,
	})
	if err != nil {
		return fmt.Errorf("creating tool registry: %w", err)
	}

	ag, err := agent.New(agent.Config{
		Genkit:        g,
		Model:         cfg.FullModelName(),
		Registry:      registry,
		Logger:        logger,
		HistoryTokens: cfg.HistoryTokens,
	})
	if err != nil {
		return fmt.Errorf("creating agent: %w", err)
	}

	server, err := api.NewServer(api.Config{
		Agent:    ag,
		Sessions: store,
		Notifier: notifier,
		Logger:   logger,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		return server.Run(ctx, addr)
	})
	return eg.Wait()
}
