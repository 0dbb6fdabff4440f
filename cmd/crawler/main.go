package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mfurukawa/dellwatch/internal/config"
	"github.com/mfurukawa/dellwatch/internal/crawl"
	"github.com/mfurukawa/dellwatch/internal/database"
	"github.com/mfurukawa/dellwatch/internal/notify"
	"github.com/mfurukawa/dellwatch/internal/render"
	"github.com/mfurukawa/dellwatch/internal/repository"
	"github.com/mfurukawa/dellwatch/pkg/line"
)

// main executes one crawl run and exits. This binary is what the
// orchestrator launches on remote compute; a non-zero exit code means the
// run could not start at all, while a run cut short by a page-fetch failure
// still exits zero with ended_early recorded in the logged summary.
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	setupLogger(cfg.Env)
	log.Info().Str("env", cfg.Env).Msg("starting crawler")

	db, err := database.Connect(&cfg.DB)
	if err != nil {
		log.Error().Err(err).Msg("database connection failed")
		os.Exit(1)
	}
	defer db.Close()

	if err := runMigrations(db.DB); err != nil {
		log.Error().Err(err).Msg("migration failed")
		os.Exit(1)
	}

	browser, err := render.New(&cfg.Crawl)
	if err != nil {
		log.Error().Err(err).Msg("browser launch failed")
		os.Exit(1)
	}
	defer browser.Close()

	var notifier crawl.Notifier = notify.NopNotifier{}
	if cfg.Line.ChannelToken != "" {
		notifier = notify.NewLineNotifier(line.NewClient(cfg.Line.ChannelToken))
	} else {
		log.Warn().Msg("LINE_CHANNEL_TOKEN not set - price change notifications disabled")
	}

	store := repository.NewObservationRepository(db)
	runner := crawl.NewRunner(browser, store, notifier, cfg.Crawl.StartURL, cfg.Crawl.Workers)

	// An operator abort stops issuing page fetches at the next loop
	// boundary; in-flight persistence finishes before the run returns.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	summary := runner.Run(ctx)

	// The orchestrator reads coarse task status; the printed count keeps
	// parity with the logged summary for quick log-less checks.
	fmt.Print(summary.ItemsPersisted)
}

// runMigrations runs database migrations using golang-migrate. The crawler
// also owns the schema so a run against a fresh database bootstraps itself.
func runMigrations(db *sql.DB) error {
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		"file://migrations",
		"postgres", driver)
	if err != nil {
		return fmt.Errorf("could not create migration instance: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("could not run migrations: %w", err)
	}

	return nil
}

func setupLogger(env string) {
	if env == "production" {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
}
