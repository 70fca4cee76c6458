package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/vigil-labs/vigil/internal/briefing"
	"github.com/vigil-labs/vigil/internal/models"
	"github.com/vigil-labs/vigil/internal/review"
	"github.com/vigil-labs/vigil/internal/scheduler"
	"github.com/vigil-labs/vigil/internal/store"
	"github.com/vigil-labs/vigil/internal/util"
)

// Default configuration constants
const (
	// DefaultStateDir is the default directory for Vigil state data
	DefaultStateDir = "/var/lib/vigil"
	// DefaultDBFileName is the default SQLite database filename
	DefaultDBFileName = "vigil.db"
	// DefaultDwell is how long the demo runner spends on each item
	DefaultDwell = 4 * time.Second
	// DefaultRetention is how long attention logs are kept
	DefaultRetention = 90 * 24 * time.Hour
	// DefaultPruneCron runs retention pruning hourly
	DefaultPruneCron = "0 * * * *"
)

func main() {
	initializeLogger()

	config := loadEnvironmentConfig()
	flags := parseCommandLineFlags(config)

	if err := run(flags); err != nil {
		slog.Error("Vigil failed to run", "error", err)
		os.Exit(1)
	}
	slog.Info("Vigil exited successfully")
}

// Config holds environment configuration
type Config struct {
	DbDriver    string
	DatabaseURL string
	StateDir    string
	SeedFile    string
	Dwell       time.Duration
	Retention   time.Duration
	AutoRefocus bool
}

// Flags holds command line flag values
type Flags struct {
	stateDir    *string
	dbDriver    *string
	dbDSN       *string
	seedFile    *string
	dwell       *time.Duration
	retention   *time.Duration
	autoRefocus *bool
}

// initializeLogger sets up structured logging with debug level
func initializeLogger() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	slog.SetDefault(logger)
}

// loadEnvironmentConfig loads configuration from environment variables and .env file
func loadEnvironmentConfig() Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	} else {
		slog.Debug("successfully loaded .env file")
	}

	config := Config{
		DbDriver:    os.Getenv("VIGIL_DB_DRIVER"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		StateDir:    os.Getenv("VIGIL_STATE_DIR"),
		SeedFile:    os.Getenv("VIGIL_SEED_FILE"),
		Dwell:       util.ParseDurationEnv("VIGIL_ITEM_DWELL", DefaultDwell),
		Retention:   util.ParseDurationEnv("VIGIL_LOG_RETENTION", DefaultRetention),
		AutoRefocus: util.ParseBoolEnv("VIGIL_AUTO_REREVIEW", true),
	}

	if config.StateDir == "" {
		config.StateDir = DefaultStateDir
		slog.Debug("No VIGIL_STATE_DIR set, using default", "default_state_dir", config.StateDir)
	}
	return config
}

// parseCommandLineFlags parses flags with environment values as defaults
func parseCommandLineFlags(config Config) Flags {
	flags := Flags{
		stateDir:    flag.String("state-dir", config.StateDir, "Directory for Vigil state data"),
		dbDriver:    flag.String("db-driver", config.DbDriver, "Database driver: sqlite3 or postgres"),
		dbDSN:       flag.String("db-dsn", config.DatabaseURL, "Database connection string"),
		seedFile:    flag.String("seed-file", config.SeedFile, "YAML briefing file to load before the session"),
		dwell:       flag.Duration("dwell", config.Dwell, "Time the demo runner spends on each item"),
		retention:   flag.Duration("retention", config.Retention, "Attention log retention window"),
		autoRefocus: flag.Bool("auto-rereview", config.AutoRefocus, "Run a re-review pass over flagged items"),
	}
	flag.Parse()
	return flags
}

// openStore selects a store backend based on driver and DSN.
func openStore(flags Flags) (store.Store, error) {
	driver := *flags.dbDriver
	dsn := *flags.dbDSN

	if driver == "postgres" {
		return store.NewPostgresStore(store.WithDSN(dsn))
	}
	if dsn == "" {
		dsn = *flags.stateDir + "/" + DefaultDBFileName
	}
	return store.NewSQLiteStore(store.WithDSN(dsn))
}

// pickBriefing loads the seed file if given, otherwise seeds the demo
// briefing on an empty store and returns the most recent briefing.
func pickBriefing(st store.Store, flags Flags) (*models.Briefing, error) {
	if *flags.seedFile != "" {
		b, err := briefing.LoadFile(*flags.seedFile)
		if err != nil {
			return nil, err
		}
		if err := briefing.Save(st, *b); err != nil {
			return nil, err
		}
		return b, nil
	}

	if _, err := briefing.SeedIfEmpty(st); err != nil {
		return nil, err
	}
	briefings, err := st.ListBriefings()
	if err != nil {
		return nil, err
	}
	if len(briefings) == 0 {
		return nil, fmt.Errorf("no briefings available to review")
	}
	return &briefings[0], nil
}

func run(flags Flags) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStore(flags)
	if err != nil {
		return err
	}
	defer st.Close()

	b, err := pickBriefing(st, flags)
	if err != nil {
		return err
	}
	slog.Info("Reviewing briefing", "id", b.ID, "shift", b.ShiftLabel, "items", b.ItemCount())

	sched := scheduler.NewScheduler(st, *flags.retention)
	defer sched.Stop()
	if err := sched.SchedulePrune(DefaultPruneCron); err != nil {
		return err
	}

	// No capture device or landmark model is configured in the headless
	// runner, so the session runs in demo mode off the synthesizer.
	ctrl := review.NewController(b.ItemCount(), review.Config{
		BriefingID: b.ID,
		Sink:       store.NewAttentionLogWriter(st),
	})
	defer ctrl.Stop()

	if err := runPass(ctx, ctrl, *flags.dwell, func() error { return ctrl.Start(ctx) }); err != nil {
		return err
	}

	session := ctrl.Snapshot()
	reportResults(b, session)

	if *flags.autoRefocus && len(session.Flagged) > 0 {
		slog.Info("Starting re-review of flagged items", "flagged", session.Flagged)
		if err := runPass(ctx, ctrl, *flags.dwell, func() error { return ctrl.StartReReview(ctx) }); err != nil {
			return err
		}
		reportResults(b, ctrl.Snapshot())
	}

	return nil
}

// runPass starts a pass and auto-advances through every queued item,
// polling live metrics at each dwell like a presentation layer would.
func runPass(ctx context.Context, ctrl *review.Controller, dwell time.Duration, start func() error) error {
	if err := start(); err != nil {
		return err
	}
	queued := len(ctrl.Snapshot().Queue)
	for i := 0; i < queued; i++ {
		select {
		case <-ctx.Done():
			ctrl.Stop()
			return ctx.Err()
		case <-time.After(dwell):
		}
		live := ctrl.LiveMetrics()
		slog.Debug("Live metrics", "engagement", live.Engagement, "focus", live.Focus, "faceDetected", live.FaceDetected)
		if err := ctrl.Advance(); err != nil {
			return err
		}
	}
	return nil
}

// reportResults logs the finished pass per item.
func reportResults(b *models.Briefing, session review.Session) {
	for _, idx := range session.Queue {
		res := session.Results[idx]
		title := ""
		if idx < len(b.Structured.Items) {
			title = b.Structured.Items[idx].Title
		}
		slog.Info("Item result",
			"itemIndex", idx, "title", title,
			"avgEngagement", res.AvgEngagement, "avgFocus", res.AvgFocus,
			"timeSpentMs", res.TimeSpentMs, "flagged", res.Flagged())
	}
	slog.Info("Pass summary", "subReview", session.IsSubReview, "demoMode", session.DemoMode, "flagged", session.Flagged)
}
