// Command civicsync is the conductor front-end: it wires configuration,
// database, queue, fetcher, and processor together and exposes the daemon
// and one-shot operations as CLI subcommands. Bootstrap sequencing loads
// .env, initializes config, connects to the database, then wires services
// before any subcommand runs.
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/civicsync/civicsync/pkg/attachment"
	"github.com/civicsync/civicsync/pkg/conductor"
	"github.com/civicsync/civicsync/pkg/config"
	"github.com/civicsync/civicsync/pkg/contentfilter"
	"github.com/civicsync/civicsync/pkg/database"
	"github.com/civicsync/civicsync/pkg/extract"
	"github.com/civicsync/civicsync/pkg/fetcher"
	"github.com/civicsync/civicsync/pkg/llmclient"
	"github.com/civicsync/civicsync/pkg/processor"
	"github.com/civicsync/civicsync/pkg/queue"
	"github.com/civicsync/civicsync/pkg/ratelimit"
	"github.com/civicsync/civicsync/pkg/statusserver"
	"github.com/civicsync/civicsync/pkg/store"
	"github.com/civicsync/civicsync/pkg/syncorchestrator"
	"github.com/civicsync/civicsync/pkg/vendoradapter"
	"github.com/civicsync/civicsync/pkg/version"
)

var configDir string

var rootCmd = &cobra.Command{
	Use:           "civicsync",
	Short:         "Sync and summarize local legislative meeting records",
	Version:       version.Full(),
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	rootCmd.SetVersionTemplate(fmt.Sprintf("%s {{.Version}}\n", version.AppName))
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", getEnv("CONFIG_DIR", "./deploy/config"),
		"path to the directory holding civicsync.yaml and .env")

	rootCmd.AddCommand(daemonCmd, fetcherCmd, processorCmd, syncCityCmd, syncAndProcessCityCmd, statusCmd)

	if err := rootCmd.Execute(); err != nil {
		log.Printf("command failed: %v", err)
		os.Exit(1)
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// app bundles every wired dependency a subcommand might need. Not every
// subcommand uses every field.
type app struct {
	cfg       *config.Config
	db        *database.Client
	store     *store.Store
	queue     *queue.Queue
	fetcher   *fetcher.Fetcher
	processor *processor.Processor
	conductor *conductor.Conductor
}

// bootstrap loads configuration and wires every component a subcommand
// might need before it starts doing work.
func bootstrap(ctx context.Context) (*app, error) {
	setupLogging(getEnv("LOG_LEVEL", "INFO"))
	log.Printf("starting %s", version.Full())
	log.Printf("config directory: %s", configDir)

	envPath := filepath.Join(configDir, ".env")
	if err := godotenv.Load(envPath); err != nil {
		log.Printf("no .env file at %s, continuing with existing environment", envPath)
	} else {
		log.Printf("loaded environment from %s", envPath)
	}

	cfg, err := config.Initialize(ctx, configDir)
	if err != nil {
		return nil, fmt.Errorf("initialize configuration: %w", err)
	}

	dbCfg, err := database.LoadConfigFromEnv()
	if err != nil {
		return nil, fmt.Errorf("load database configuration: %w", err)
	}
	dbClient, err := database.NewClient(ctx, dbCfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	s := store.New(dbClient.DB())
	q := queue.New(dbClient.DB(), cfg.Queue)

	filter, err := contentfilter.New(cfg.Filters)
	if err != nil {
		return nil, fmt.Errorf("build content filter: %w", err)
	}

	hasher := attachment.NewHasher(nil)
	orch := syncorchestrator.New(s, q, filter, hasher)

	limiter := ratelimit.New(
		ratelimit.Config{MinInterval: cfg.Fetcher.MinRequestInterval, Burst: cfg.Fetcher.Burst},
		vendorRateLimits(cfg.Fetcher.VendorRateLimits),
	)

	// No vendor adapters are wired: integrating a specific civic platform
	// (Legistar, Granicus, PrimeGov, ...) is an external collaborator's
	// job, not this module's.
	registry := vendoradapter.StaticRegistry{}
	f := fetcher.New(s, orch, registry, limiter, cfg.Fetcher)

	extractor := extract.NewHTTPExtractor(nil)
	llm := llmclient.New(cfg.LLM, os.Getenv("LLM_API_KEY"))
	p := processor.New(s, q, filter, cfg.Filters, cfg.Queue, extractor, llm, hasher)

	cond := conductor.New(f, p, q, cfg.Fetcher)

	return &app{cfg: cfg, db: dbClient, store: s, queue: q, fetcher: f, processor: p, conductor: cond}, nil
}

func vendorRateLimits(in map[string]config.VendorRateLimit) map[string]ratelimit.Config {
	out := make(map[string]ratelimit.Config, len(in))
	for vendor, v := range in {
		out[vendor] = ratelimit.Config{MinInterval: v.MinRequestInterval, Burst: v.Burst}
	}
	return out
}

// setupLogging maps the environment's LOG_LEVEL (DEBUG|INFO|WARNING|ERROR)
// onto slog's levels; WARNING is the one name slog doesn't spell the same
// way itself.
func setupLogging(level string) {
	l := slog.LevelInfo
	switch level {
	case "DEBUG":
		l = slog.LevelDebug
	case "INFO":
		l = slog.LevelInfo
	case "WARNING":
		l = slog.LevelWarn
	case "ERROR":
		l = slog.LevelError
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l})))
}

func (a *app) Close() {
	if err := a.db.Close(); err != nil {
		slog.Error("error closing database client", "error", err)
	}
}
