package main

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Tyrowin/storyriver/internal/llm"
	"github.com/Tyrowin/storyriver/internal/river"
	"github.com/Tyrowin/storyriver/internal/server"
)

const shutdownTimeout = 10 * time.Second

func main() {
	slog.Info("starting StoryRiver server")

	cfg, err := server.NewConfigFromEnv()
	if err != nil {
		slog.Error("load configuration", "error", err)
		os.Exit(1)
	}

	client, err := llm.New(llm.Settings{
		Provider: cfg.LLMProvider,
		Model:    cfg.LLMModel,
		BaseURL:  cfg.LLMBaseURL,
		APIKey:   cfg.LLMAPIKey,
	})
	if err != nil {
		slog.Error("build generation client", "error", err)
		os.Exit(1)
	}

	store := river.NewStore(cfg.MaxLength, cfg.FallbackSeed)
	queue := river.NewQueue()

	snapshots := river.NewSnapshotFile(cfg.SnapshotPath)
	if state, err := snapshots.Load(); err == nil {
		store.Restore(state)
		slog.Info("river restored from snapshot", "sequence", state.Sequence)
	} else if !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("river snapshot unreadable, starting from seed", "error", err)
	}

	srv := server.New(*cfg, server.StoreSource(store), queue)

	cycle := river.NewCycle(store, queue, client, river.CycleConfig{
		Interval:      cfg.GenerateInterval,
		Timeout:       cfg.GenerateTimeout,
		ContextWindow: cfg.ContextWindow,
		MaxNewTokens:  cfg.MaxNewTokens,
		DeltaLimit:    cfg.DeltaLimit,
		FallbackSeed:  cfg.FallbackSeed,
	})
	cycle.UseSnapshots(snapshots)
	cycle.NotifyPublish(srv.Hub().Publish)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv.StartHub()
	go cycle.Run(ctx)

	httpServer := server.CreateServer(cfg.Port, server.SetupRoutes(srv))
	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.StartServer(httpServer)
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutdown signal received")
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server failed", "error", err)
		}
	}
	stop()

	if err := server.ShutdownServer(httpServer, shutdownTimeout); err != nil {
		slog.Error("http shutdown incomplete", "error", err)
	}
	if err := srv.Hub().Shutdown(shutdownTimeout); err != nil {
		slog.Error("hub shutdown incomplete", "error", err)
	}
	slog.Info("StoryRiver server stopped")
}
