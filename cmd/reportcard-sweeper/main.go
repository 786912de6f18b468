package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/brightclass/reportcard/pkg/audit"
	"github.com/brightclass/reportcard/pkg/config"
	"github.com/brightclass/reportcard/pkg/identity"
	"github.com/brightclass/reportcard/pkg/observability"
	"github.com/brightclass/reportcard/pkg/rbac"
	"github.com/brightclass/reportcard/pkg/storage/postgres"
)

var (
	dbURL         = flag.String("db-url", "", "PostgreSQL connection URL (overrides REPORTCARD_POSTGRES_URL)")
	schedule      = flag.String("schedule", "", "Cron schedule for the retention sweep (overrides REPORTCARD_AUDIT_SWEEP_SCHEDULE)")
	retentionDays = flag.Int("retention-days", 0, "Purge audit entries older than this many days (overrides REPORTCARD_AUDIT_RETENTION_DAYS)")
	actorID       = flag.String("actor", os.Getenv("REPORTCARD_SWEEP_ACTOR"), "Admin profile id the sweep runs as")
	runOnce       = flag.Bool("run-once", false, "Run one sweep and exit")
	migrate       = flag.Bool("migrate", false, "Run schema migrations before starting")
)

// loadConfig folds set flags into the environment the loader reads, so
// flags win over both the config file and pre-existing env values.
func loadConfig() (*config.Config, error) {
	if *dbURL != "" {
		os.Setenv("REPORTCARD_POSTGRES_URL", *dbURL)
	}
	if *schedule != "" {
		os.Setenv("REPORTCARD_AUDIT_SWEEP_SCHEDULE", *schedule)
	}
	if *retentionDays > 0 {
		os.Setenv("REPORTCARD_AUDIT_RETENTION_DAYS", strconv.Itoa(*retentionDays))
	}
	return config.LoadConfig()
}

func main() {
	flag.Parse()

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := loadConfig()
	if err != nil {
		logger.WithError(err).Fatal("failed to load configuration")
	}
	if level, err := logrus.ParseLevel(cfg.Observability.LogLevelName); err == nil {
		logger.SetLevel(level)
	}

	if *actorID == "" {
		logger.Fatal("an admin actor id is required (-actor or REPORTCARD_SWEEP_ACTOR)")
	}

	pgCfg := postgres.DefaultConfig(cfg.Database.URL)
	pgCfg.MaxConns = cfg.Database.MaxConns
	pgCfg.MinConns = cfg.Database.MinConns
	pgCfg.Timeout = cfg.Database.Timeout

	db, err := postgres.Connect(pgCfg)
	if err != nil {
		logger.WithError(err).Fatal("failed to connect to database")
	}
	defer db.Close()

	if *migrate {
		if err := postgres.RunMigrations(context.Background(), db); err != nil {
			logger.WithError(err).Fatal("migrations failed")
		}
		logger.Info("migrations applied")
	}

	table := rbac.DefaultPermissionTable()
	resolver := identity.NewResolver(db)
	recorder := audit.NewRecorder(db, table, nil)
	obsLogger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)
	retention := time.Duration(cfg.Audit.RetentionDays) * 24 * time.Hour

	sweep := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		ctx = observability.WithLogger(ctx, obsLogger)

		actor, err := resolver.ValidateUser(ctx, *actorID)
		if err != nil {
			logger.WithError(err).Error("sweep actor validation failed")
			return
		}
		ctx = observability.WithActorID(ctx, actor.ID)

		purged, err := recorder.Cleanup(ctx, actor, retention)
		if err != nil {
			logger.WithError(err).Error("retention sweep failed")
			return
		}
		logger.WithFields(logrus.Fields{
			"purged":         purged,
			"retention_days": cfg.Audit.RetentionDays,
		}).Info("retention sweep completed")
	}

	if *runOnce {
		sweep()
		return
	}

	c := cron.New()
	if _, err := c.AddFunc(cfg.Audit.SweepSchedule, sweep); err != nil {
		logger.WithError(err).Fatal("failed to schedule retention sweep")
	}

	c.Start()
	logger.WithFields(logrus.Fields{
		"schedule":       cfg.Audit.SweepSchedule,
		"retention_days": cfg.Audit.RetentionDays,
	}).Info("reportcard sweeper started")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutting down gracefully")
	ctx := c.Stop()
	<-ctx.Done()
	logger.Info("sweeper stopped")
}
