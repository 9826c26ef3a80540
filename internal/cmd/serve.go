package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/MeKo-Tech/phonix/internal/composite"
	"github.com/MeKo-Tech/phonix/internal/media"
	"github.com/MeKo-Tech/phonix/internal/server"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the enhancement API and media gallery",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "127.0.0.1:8080", "Listen address (host:port)")
	serveCmd.Flags().String("base-url", "", "Public base URL for media references (defaults to http://<addr>)")
	serveCmd.Flags().String("db", "", "Media database path (defaults to <data-dir>/media.db)")
	serveCmd.Flags().Int("preview-size", composite.DefaultPreviewSize, "Longest side of preview renders in pixels")
	serveCmd.Flags().Float64("quality", composite.DefaultQuality, "JPEG export quality (0-1]")
	serveCmd.Flags().String("max-upload", "25MB", "Maximum upload size")
	serveCmd.Flags().Int("max-pixels", composite.DefaultMaxPixels, "Largest accepted image in pixels (width*height)")
	serveCmd.Flags().String("max-fetch", media.DefaultMaxFetchSize, "Maximum size of images loaded by URL")
	serveCmd.Flags().Duration("session-ttl", 30*time.Minute, "Discard sessions idle this long (0 keeps them)")
	serveCmd.Flags().Duration("sweep-interval", time.Minute, "How often idle sessions are checked")
	serveCmd.Flags().Int64("seed", 0, "Catalog and overlay seed (0 randomizes)")
	serveCmd.Flags().String("cache-control", "no-store", "Cache-Control header for previews")

	bindFlags(serveCmd, "serve",
		"addr", "base-url", "db", "preview-size", "quality", "max-upload", "max-pixels",
		"max-fetch", "session-ttl", "sweep-interval", "seed", "cache-control",
	)
}

func runServe(cmd *cobra.Command, args []string) error {
	if logger == nil {
		initLogging()
	}

	addr := viper.GetString("serve.addr")
	baseURL := viper.GetString("serve.base_url")
	if baseURL == "" {
		baseURL = "http://" + addr
	}
	dbPath := mediaDBPath(viper.GetString("serve.db"))
	seed := viper.GetInt64("serve.seed")

	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	store, err := media.Open(dbPath, baseURL, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	fetcher, err := media.NewFetcher(nil, viper.GetString("serve.max_fetch"), logger)
	if err != nil {
		return err
	}

	cat := loadCatalog(seed)
	api, err := server.New(server.Config{
		PreviewSize:   viper.GetInt("serve.preview_size"),
		Quality:       viper.GetFloat64("serve.quality"),
		MaxUploadSize: viper.GetString("serve.max_upload"),
		MaxPixels:     viper.GetInt("serve.max_pixels"),
		CacheControl:  viper.GetString("serve.cache_control"),
		SessionTTL:    viper.GetDuration("serve.session_ttl"),
		SweepInterval: viper.GetDuration("serve.sweep_interval"),
		Seed:          seed,
	}, cat, store, fetcher, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go api.RunSweeper(ctx)

	srv := &http.Server{Addr: addr, Handler: api.Handler(), ReadHeaderTimeout: 5 * time.Second}

	logger.Info("phonix server listening",
		"addr", addr,
		"base_url", baseURL,
		"db", dbPath,
		"presets", cat.Len(),
		"session_ttl", viper.GetDuration("serve.session_ttl"),
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		logger.Info("Received interrupt signal, shutting down...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	return nil
}
