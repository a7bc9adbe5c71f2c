package main

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/statement-import/internal/domain/import/classifier"
	"github.com/FACorreiaa/statement-import/internal/domain/import/duplicate"
	"github.com/FACorreiaa/statement-import/internal/domain/import/pipeline"
	"github.com/FACorreiaa/statement-import/internal/domain/import/session"
	"github.com/FACorreiaa/statement-import/internal/domain/import/template"
	"github.com/FACorreiaa/statement-import/internal/domain/import/validator"
	"github.com/FACorreiaa/statement-import/internal/domain/ledger"
	"github.com/FACorreiaa/statement-import/internal/domain/ledger/memory"
	"github.com/FACorreiaa/statement-import/internal/domain/ledger/postgres"
	"github.com/FACorreiaa/statement-import/pkg/config"
	"github.com/FACorreiaa/statement-import/pkg/db"
	"github.com/FACorreiaa/statement-import/pkg/metrics"
	"github.com/FACorreiaa/statement-import/pkg/storage"
)

// Dependencies holds everything a command needs to run an import
type Dependencies struct {
	Config *config.Config
	DB     *db.DB
	Logger *slog.Logger

	Ledger   ledger.Store
	Memory   *memory.Store // set for the memory driver only
	Registry *template.Registry
	Pipeline *pipeline.Pipeline
	Archive  storage.Archive
	Metrics  *metrics.Collector
}

// InitDependencies connects the ledger and builds the import pipeline
func InitDependencies(cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config:  cfg,
		Logger:  logger,
		Metrics: metrics.New(),
	}

	if err := deps.initLedger(); err != nil {
		return nil, fmt.Errorf("failed to init ledger: %w", err)
	}

	if err := deps.initPipeline(); err != nil {
		deps.Cleanup()
		return nil, fmt.Errorf("failed to init pipeline: %w", err)
	}

	if err := deps.initArchive(); err != nil {
		deps.Cleanup()
		return nil, fmt.Errorf("failed to init archive: %w", err)
	}

	logger.Debug("dependencies initialized", slog.String("ledger", cfg.Ledger.Driver))
	return deps, nil
}

func (d *Dependencies) initLedger() error {
	switch d.Config.Ledger.Driver {
	case config.DriverPostgres:
		database, err := d.connect()
		if err != nil {
			return err
		}
		d.DB = database
		d.Ledger = postgres.NewStore(database.Pool)
	default:
		store, err := memory.Open(d.Config.Ledger.File)
		if err != nil {
			return err
		}
		d.Memory = store
		d.Ledger = store
	}
	return nil
}

func (d *Dependencies) connect() (*db.DB, error) {
	return db.New(db.Config{
		DSN:             d.Config.Database.DSN(),
		MaxConns:        int32(d.Config.Database.MaxConns),
		MinConns:        1,
		MaxConnLifetime: 5 * time.Minute,
		MaxConnIdleTime: time.Minute,
		ConnectTimeout:  10 * time.Second,
	}, d.Logger)
}

// initPipeline builds every stage from configuration
func (d *Dependencies) initPipeline() error {
	imp := d.Config.Import

	registry, err := loadRegistry(imp.TemplatesFile)
	if err != nil {
		return err
	}
	d.Registry = registry

	rules := classifier.DefaultConfig()
	if imp.RulesFile != "" {
		r, err := classifier.LoadConfigFile(imp.RulesFile)
		if err != nil {
			return err
		}
		rules = r
	}
	if imp.FallbackCategory != "" {
		rules.Fallback = imp.FallbackCategory
	}
	cls, err := classifier.New(rules)
	if err != nil {
		return err
	}

	limits := validator.DefaultLimits()
	if imp.MaxAmount > 0 {
		limits.MaxAmount = decimal.NewFromFloat(imp.MaxAmount)
	}

	d.Pipeline, err = pipeline.New(pipeline.Config{
		Classifier: cls,
		Detector: duplicate.New(duplicate.Policy{
			DateWindowDays:  imp.DuplicateWindowDays,
			MinSimilarity:   imp.DuplicateMinSimilarity,
			RequireSameType: imp.DuplicateRequireSameType,
		}),
		Validator: validator.New(limits),
		Metrics:   d.Metrics,
		Logger:    d.Logger,
	})
	return err
}

func (d *Dependencies) initArchive() error {
	if d.Config.Archive.Dir == "" {
		return nil
	}
	archive, err := storage.NewLocalArchive(d.Config.Archive.Dir)
	if err != nil {
		return err
	}
	d.Archive = archive
	return nil
}

// NewSession starts an import session against the configured ledger
func (d *Dependencies) NewSession() (*session.Session, error) {
	return session.New(session.Config{
		Store:    d.Ledger,
		Registry: d.Registry,
		Pipeline: d.Pipeline,
		Archive:  d.Archive,
		Metrics:  d.Metrics,
		Logger:   d.Logger,
	})
}

// Cleanup flushes metrics and closes the database
func (d *Dependencies) Cleanup() {
	if path := d.Config.Metrics.Textfile; path != "" {
		if err := d.Metrics.WriteTextfile(path); err != nil {
			d.Logger.Warn("failed to write metrics", slog.String("path", path), slog.Any("error", err))
		}
	}
	if d.DB != nil {
		d.DB.Close()
	}
}

// loadRegistry returns the built-in templates unless path names a replacement file.
func loadRegistry(path string) (*template.Registry, error) {
	if path == "" {
		return template.Default(), nil
	}
	return template.LoadFile(path)
}

var (
	errMemoryOnly   = errors.New("only supported with LEDGER_DRIVER=memory")
	errPostgresOnly = errors.New("only supported with LEDGER_DRIVER=postgres")
	errNoArchive    = errors.New("statement archive is disabled (set IMPORT_ARCHIVE_DIR)")
)
