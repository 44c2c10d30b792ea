package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"enhancerd/internal/acquire"
	"enhancerd/internal/blob"
	"enhancerd/internal/compat"
	"enhancerd/internal/config"
	"enhancerd/internal/enhance"
	"enhancerd/internal/httpapi"
	"enhancerd/internal/rules"
	"enhancerd/internal/store"
)

var (
	flagConfig    string
	flagAddr      string
	flagDataDir   string
	flagModelsDir string
	flagLogLevel  string
	flagLlama     bool
)

func main() {
	root := &cobra.Command{
		Use:          "enhancerd",
		Short:        "Note enhancement daemon with on-demand model provisioning",
		Long:         "enhancerd downloads and serves local text-enhancement models, falling back to a deterministic rule engine when no model is available.",
		RunE:         run,
		SilenceUsage: true,
	}
	root.Flags().StringVar(&flagConfig, "config", "", "Path to a config file (.yaml, .json or .toml)")
	root.Flags().StringVar(&flagAddr, "addr", "", "HTTP listen address, e.g. :8080")
	root.Flags().StringVar(&flagDataDir, "data-dir", "", "Directory for the content store")
	root.Flags().StringVar(&flagModelsDir, "models-dir", "", "Directory for downloaded model artifacts")
	root.Flags().StringVar(&flagLogLevel, "log-level", "", "Log level: debug, info, warn, error")
	root.Flags().BoolVar(&flagLlama, "llama", false, "Use the llama.cpp runtime (requires a build with the llama tag)")

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	var cfg config.Config
	if flagConfig != "" {
		loaded, err := config.Load(flagConfig)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}
	// Flags override file values.
	if flagAddr != "" {
		cfg.Addr = flagAddr
	}
	if flagDataDir != "" {
		cfg.DataDir = flagDataDir
	}
	if flagModelsDir != "" {
		cfg.ModelsDir = flagModelsDir
	}
	if flagLogLevel != "" {
		cfg.LogLevel = flagLogLevel
	}
	cfg.ApplyDefaults()

	logger := newLogger(cfg.LogLevel)

	dataDir, err := blob.ExpandHome(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("data dir: %w", err)
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return fmt.Errorf("data dir: %w", err)
	}
	content, err := store.OpenBadger(store.BadgerConfig{
		Path:       dataDir,
		SyncWrites: true,
		Logger:     logger,
	})
	if err != nil {
		return err
	}
	defer content.Close()

	blobs, err := blob.NewDiskStore(cfg.ModelsDir, nil, logger)
	if err != nil {
		return fmt.Errorf("blob store: %w", err)
	}

	var rewrites []acquire.RewriteRule
	for _, r := range cfg.URLRewrites {
		rewrites = append(rewrites, acquire.ReplaceRule(r.Name, r.From, r.To))
	}

	engine := acquire.New(acquire.Config{
		Content:  content,
		Blobs:    blobs,
		Rewrites: rewrites,
		Logger:   logger,
	})

	var backend enhance.Backend
	if flagLlama {
		backend = enhance.NewRealBackend(cfg.LlamaCtx, cfg.LlamaThreads)
	}
	session := enhance.NewSession(enhance.SessionConfig{
		Content:       content,
		Engine:        engine,
		Rewriter:      rules.Engine{},
		Backend:       backend,
		TokenizerKind: cfg.TokenizerKind,
		Logger:        logger,
	})
	if cfg.DefaultStyle != nil {
		if _, ok, _ := content.Get(store.KeyStyleConfig); !ok {
			session.SetStyle(*cfg.DefaultStyle)
		}
	}
	validator := compat.NewValidator(content, engine, session, logger)
	svc := enhance.NewService(session, engine, validator, content)

	httpapi.SetLogger(logger)
	httpapi.SetCORSOptions(cfg.CORSEnabled, cfg.CORSOrigins, nil, nil)
	httpapi.SetMaxBodyBytes(cfg.MaxBodyBytes)
	httpapi.SetEnhanceTimeoutSeconds(cfg.EnhanceTimeoutSeconds)
	httpapi.SetEnhanceConcurrency(cfg.EnhanceConcurrency)
	srv := &http.Server{Addr: cfg.Addr, Handler: httpapi.NewMux(svc)}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().
			Str("addr", cfg.Addr).
			Str("models_dir", blobs.BaseDir()).
			Bool("llama", flagLlama).
			Msg("enhancerd listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Graceful shutdown (Ctrl+C / SIGTERM)
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case <-stop:
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown")
	}
	session.Close()
	return nil
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(os.Stderr).Level(lvl).With().Timestamp().Logger()
}
