package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/klabast/wb-services/bildungszeit-finder/internal/app"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand(g *globals, assets Assets) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the web server (default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), g, assets)
		},
	}
}

func runServe(parent context.Context, g *globals, assets Assets) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, logger := g.cfg, g.logger

	p, client, err := newPipeline(cfg, logger)
	if err != nil {
		return err
	}

	auth, err := app.LoadAuthenticator(cfg.Auth.File, logger.Named("auth"))
	if err != nil {
		return fmt.Errorf("failed to load auth credentials: %w", err)
	}

	if !g.dev {
		gin.SetMode(gin.ReleaseMode)
	}
	srv := app.NewServer(app.Options{
		Loader:  p,
		Catalog: client,
		Auth:    auth,
		Index:   assets.Index,
		Static:  assets.Static,
		Logger:  logger.Named("http"),
		Context: ctx,
	})

	// initial load in the background so the UI can show its loading state
	p.TriggerLoad(ctx)
	if interval := cfg.Scheduler.Interval.Std(); interval > 0 {
		go p.Run(ctx, interval)
	}

	httpServer := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting Bildungszeit finder",
			zap.String("addr", "http://"+cfg.Addr()),
			zap.String("catalog", client.URL()),
			zap.String("geocoder", cfg.Geocoder.Provider),
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}
