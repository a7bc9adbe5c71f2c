// Package pipeline runs the normalize, classify, duplicate, validate and impact
// stages over one parsed statement and captures the result as a Preview.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/statement-import/internal/domain/import/classifier"
	"github.com/FACorreiaa/statement-import/internal/domain/import/duplicate"
	"github.com/FACorreiaa/statement-import/internal/domain/import/model"
	"github.com/FACorreiaa/statement-import/internal/domain/import/normalizer"
	"github.com/FACorreiaa/statement-import/internal/domain/import/sniffer"
	"github.com/FACorreiaa/statement-import/internal/domain/import/validator"
	"github.com/FACorreiaa/statement-import/internal/domain/ledger"
	"github.com/FACorreiaa/statement-import/pkg/metrics"
)

// Stage names reported to metrics and traces.
const (
	StageNormalize = "normalize"
	StageClassify  = "classify"
	StageDuplicate = "duplicate"
	StageValidate  = "validate"
	StageImpact    = "impact"
)

// ErrNoTable is returned when Run is called without a parsed table.
var ErrNoTable = errors.New("no parsed table")

// Config wires the stage implementations. Nil fields get defaults.
type Config struct {
	Normalizer *normalizer.Normalizer
	Classifier *classifier.Classifier
	Detector   *duplicate.Detector
	Validator  *validator.Validator
	Metrics    *metrics.Collector
	Logger     *slog.Logger
}

// Pipeline is stateless between runs and safe for concurrent use.
type Pipeline struct {
	normalizer *normalizer.Normalizer
	classifier *classifier.Classifier
	detector   *duplicate.Detector
	validator  *validator.Validator
	metrics    *metrics.Collector
	logger     *slog.Logger
}

// New builds a pipeline from cfg.
func New(cfg Config) (*Pipeline, error) {
	p := &Pipeline{
		normalizer: cfg.Normalizer,
		classifier: cfg.Classifier,
		detector:   cfg.Detector,
		validator:  cfg.Validator,
		metrics:    cfg.Metrics,
		logger:     cfg.Logger,
	}
	if p.normalizer == nil {
		p.normalizer = normalizer.New()
	}
	if p.classifier == nil {
		c, err := classifier.New(classifier.DefaultConfig())
		if err != nil {
			return nil, fmt.Errorf("failed to build default classifier: %w", err)
		}
		p.classifier = c
	}
	if p.detector == nil {
		p.detector = duplicate.New(duplicate.DefaultPolicy())
	}
	if p.validator == nil {
		p.validator = validator.New(validator.DefaultLimits())
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p, nil
}

// Input is everything one run needs. The pipeline never mutates it.
type Input struct {
	Table           *model.Table
	Mapping         model.ColumnMapping
	AccountID       string
	StartingBalance decimal.Decimal
	Existing        []ledger.Transaction
	Taxonomy        ledger.Taxonomy

	// DecimalSeparator pins the decimal mark, usually from a bank template.
	// Zero probes the amount column and falls back to per-cell detection.
	DecimalSeparator rune
	DateLayout       string
	// Cleaner replaces the default description cleaner for this run.
	Cleaner *normalizer.DescriptionCleaner

	SkipDuplicates bool
}

// Run executes every stage in order. Stage problems are recorded in the
// preview; only cancellation or a missing table return an error.
func (p *Pipeline) Run(ctx context.Context, in Input) (*Preview, error) {
	if in.Table == nil {
		return nil, ErrNoTable
	}

	norm := p.normalizerFor(in)

	done := p.metrics.StartStage(StageNormalize)
	cands := norm.NormalizeAll(in.Table.Rows, in.Mapping)
	if in.AccountID != "" {
		for i := range cands {
			cands[i] = cands[i].WithAccount(in.AccountID)
		}
	}
	done()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	done = p.metrics.StartStage(StageClassify)
	cands = p.classifier.ClassifyAll(cands, in.Table.Rows, in.Mapping, in.Taxonomy)
	done()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	done = p.metrics.StartStage(StageDuplicate)
	dups := p.detector.Detect(cands, in.Existing)
	done()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	done = p.metrics.StartStage(StageValidate)
	errs := p.validator.Validate(cands)
	done()

	done = p.metrics.StartStage(StageImpact)
	preview := newPreview(cands, errs, dups, in.StartingBalance, in.SkipDuplicates)
	done()

	counts := preview.Counts()
	p.metrics.AddRows(metrics.RowsParsed, counts.Total)
	p.metrics.AddRows(metrics.RowsValid, counts.Valid)
	p.metrics.AddRows(metrics.RowsInvalid, counts.Error)
	p.metrics.AddRows(metrics.RowsDuplicate, counts.Duplicate)

	p.logger.Info("preview computed",
		slog.String("account_id", in.AccountID),
		slog.Int("rows", counts.Total),
		slog.Int("valid", counts.Valid),
		slog.Int("errors", counts.Error),
		slog.Int("duplicates", counts.Duplicate),
		slog.String("net_impact", preview.Impact.NetImpact.String()),
	)
	return preview, nil
}

func (p *Pipeline) normalizerFor(in Input) *normalizer.Normalizer {
	var opts []normalizer.Option
	sep := in.DecimalSeparator
	if sep == 0 && p.normalizer.DecimalSeparator() == 0 && in.Mapping.Amount != "" {
		if probed, ok := sniffer.ProbeDecimalSeparator(in.Table.Column(in.Mapping.Amount)); ok {
			sep = probed
			p.logger.Debug("decimal separator probed", slog.String("separator", string(probed)))
		}
	}
	if sep != 0 {
		opts = append(opts, normalizer.WithDecimalSeparator(sep))
	}
	if in.DateLayout != "" {
		opts = append(opts, normalizer.WithDateLayout(in.DateLayout))
	}
	if in.Cleaner != nil {
		opts = append(opts, normalizer.WithCleaner(in.Cleaner))
	}
	if len(opts) == 0 {
		return p.normalizer
	}
	return p.normalizer.With(opts...)
}
