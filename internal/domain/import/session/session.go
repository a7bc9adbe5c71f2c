// Package session drives one statement import through
// UPLOAD -> BANK_SELECT -> ACCOUNT_SELECT -> MAPPING -> PREVIEW -> COMMITTED,
// with ABORTED reachable from any non-terminal step. Commit is the only
// operation that writes to the ledger.
package session

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/statement-import/internal/domain/import/mapping"
	"github.com/FACorreiaa/statement-import/internal/domain/import/model"
	"github.com/FACorreiaa/statement-import/internal/domain/import/normalizer"
	"github.com/FACorreiaa/statement-import/internal/domain/import/parser"
	"github.com/FACorreiaa/statement-import/internal/domain/import/pipeline"
	"github.com/FACorreiaa/statement-import/internal/domain/import/template"
	"github.com/FACorreiaa/statement-import/internal/domain/ledger"
	"github.com/FACorreiaa/statement-import/pkg/metrics"
	"github.com/FACorreiaa/statement-import/pkg/storage"
)

const tracerName = "github.com/FACorreiaa/statement-import/internal/domain/import/session"

// ManualBankID selects auto-mapping instead of a registry template.
const ManualBankID = "manual"

// Config wires a session to its collaborators. Store is required.
type Config struct {
	Store    ledger.Store
	Registry *template.Registry
	Pipeline *pipeline.Pipeline
	Archive  storage.Archive // optional
	Metrics  *metrics.Collector
	Tracer   trace.Tracer
	Logger   *slog.Logger
}

// Session is one import wizard. Its methods are serialized; separate
// sessions share nothing but the ledger.
type Session struct {
	id       string
	store    ledger.Store
	registry *template.Registry
	pipeline *pipeline.Pipeline
	archive  storage.Archive
	metrics  *metrics.Collector
	tracer   trace.Tracer
	logger   *slog.Logger

	mu    sync.Mutex
	state State
}

// New starts a session in UPLOAD.
func New(cfg Config) (*Session, error) {
	if cfg.Store == nil {
		return nil, errors.New("session requires a ledger store")
	}

	s := &Session{
		id:       uuid.NewString(),
		store:    cfg.Store,
		registry: cfg.Registry,
		pipeline: cfg.Pipeline,
		archive:  cfg.Archive,
		metrics:  cfg.Metrics,
		tracer:   cfg.Tracer,
		logger:   cfg.Logger,
		state:    UploadState{},
	}
	if s.registry == nil {
		s.registry = template.Default()
	}
	if s.pipeline == nil {
		p, err := pipeline.New(pipeline.Config{Metrics: cfg.Metrics, Logger: cfg.Logger})
		if err != nil {
			return nil, err
		}
		s.pipeline = p
	}
	if s.tracer == nil {
		s.tracer = otel.Tracer(tracerName)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.logger = s.logger.With(slog.String("session_id", s.id))
	return s, nil
}

// ID identifies the session in logs, traces and the archive.
func (s *Session) ID() string {
	return s.id
}

// State returns the current state. The value is a snapshot; mutating slices
// inside it does not affect the session.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Stage returns the current stage.
func (s *Session) Stage() Stage {
	return s.State().Stage()
}

// Upload parses a statement. On failure the session stays in UPLOAD and the
// *parser.ParseError is returned so another file can be tried.
func (s *Session) Upload(ctx context.Context, name string, data []byte, delimiter rune) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ctx, span := s.startSpan(ctx, "upload")
	defer func() { endSpan(span, err) }()

	if _, ok := s.state.(UploadState); !ok {
		return s.transitionError("Upload")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	done := s.metrics.StartStage("parse")
	table, err := parser.Parse(data, parser.Options{Delimiter: delimiter})
	done()
	if err != nil {
		s.metrics.ParseFailed()
		s.logger.Warn("statement rejected", slog.String("file", name), slog.Any("error", err))
		return err
	}

	next := BankSelectState{File: File{
		Name:     name,
		Data:     data,
		Table:    table,
		Checksum: storage.Checksum(data),
	}}
	if tpl, ok := s.registry.Suggest(table.Headers); ok {
		next.Suggested = &tpl
	}
	span.SetAttributes(
		attribute.Int("import.rows", len(table.Rows)),
		attribute.String("import.format", table.Format),
	)
	s.logger.Info("statement parsed",
		slog.String("file", name),
		slog.String("format", table.Format),
		slog.Int("columns", len(table.Headers)),
		slog.Int("rows", len(table.Rows)),
	)
	s.state = next
	return nil
}

// SelectBank applies the registry template for bankID, or auto-maps the
// headers when bankID is empty or "manual". An unknown id returns
// *template.UnknownTemplateError and leaves the session in BANK_SELECT.
func (s *Session) SelectBank(ctx context.Context, bankID string) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ctx, span := s.startSpan(ctx, "select_bank")
	defer func() { endSpan(span, err) }()

	st, ok := s.state.(BankSelectState)
	if !ok {
		return s.transitionError("SelectBank")
	}

	file := st.File
	var (
		tpl *template.BankTemplate
		m   model.ColumnMapping
	)
	bankID = strings.TrimSpace(bankID)
	if bankID == "" || strings.EqualFold(bankID, ManualBankID) {
		m = mapping.AutoMap(file.Table.Headers)
	} else {
		t, err := s.registry.Get(bankID)
		if err != nil {
			return err
		}
		tpl = &t
		m = t.Columns

		// Re-read the file when the bank pins a delimiter detection missed.
		if sep := t.DelimiterRune(); sep != 0 && file.Table.Format == "csv" && sep != file.Table.Delimiter {
			table, err := parser.Parse(file.Data, parser.Options{Delimiter: sep})
			if err != nil {
				return fmt.Errorf("statement does not match %s export format: %w", t.DisplayName, err)
			}
			file.Table = table
		}
		if unknown := mapping.UnknownHeaders(m, file.Table.Headers); len(unknown) > 0 {
			s.logger.Warn("template columns missing from file",
				slog.String("bank_id", t.ID),
				slog.Any("headers", unknown),
			)
		}
	}

	accounts, err := s.store.ListAccounts(ctx)
	if err != nil {
		return fmt.Errorf("failed to list accounts: %w", err)
	}

	span.SetAttributes(attribute.String("import.bank_id", bankID))
	s.logger.Info("column mapping resolved",
		slog.String("bank_id", bankID),
		slog.Bool("template", tpl != nil),
		slog.Any("missing", m.Missing()),
	)
	s.state = AccountSelectState{File: file, Template: tpl, Mapping: m, Accounts: accounts, BankSelect: st}
	return nil
}

// SelectAccount binds the import to one ledger account.
func (s *Session) SelectAccount(ctx context.Context, accountID string) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, span := s.startSpan(ctx, "select_account")
	defer func() { endSpan(span, err) }()

	st, ok := s.state.(AccountSelectState)
	if !ok {
		return s.transitionError("SelectAccount")
	}
	if len(st.Accounts) == 0 {
		return ErrNoAccounts
	}

	for _, acc := range st.Accounts {
		if acc.ID == accountID {
			s.state = MappingState{
				File:       st.File,
				Template:   st.Template,
				Mapping:    st.Mapping,
				Accounts:   st.Accounts,
				Account:    acc,
				BankSelect: st.BankSelect,
			}
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrUnknownAccount, accountID)
}

// UpdateMapping replaces the mapping. Every mapped header must exist in the file.
func (s *Session) UpdateMapping(m model.ColumnMapping) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updateMapping(m)
}

// EditMapping applies per-field edits, e.g. {"description": "Concepto"}.
// An empty header unmaps the field.
func (s *Session) EditMapping(edits map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.state.(MappingState)
	if !ok {
		return s.transitionError("EditMapping")
	}
	m, err := mapping.Override(st.Mapping, edits)
	if err != nil {
		return err
	}
	return s.updateMapping(m)
}

func (s *Session) updateMapping(m model.ColumnMapping) error {
	st, ok := s.state.(MappingState)
	if !ok {
		return s.transitionError("UpdateMapping")
	}
	if unknown := mapping.UnknownHeaders(m, st.File.Table.Headers); len(unknown) > 0 {
		return fmt.Errorf("%w: %s", ErrUnknownHeader, strings.Join(unknown, ", "))
	}
	st.Mapping = m
	s.state = st
	return nil
}

// Preview runs normalize, classify, duplicate detection, validation and the
// balance projection, then moves to PREVIEW. Date and amount must be mapped.
func (s *Session) Preview(ctx context.Context) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ctx, span := s.startSpan(ctx, "preview")
	defer func() { endSpan(span, err) }()

	st, ok := s.state.(MappingState)
	if !ok {
		return s.transitionError("Preview")
	}
	if missing := requiredMissing(st.Mapping, st.File.Table.Headers); len(missing) > 0 {
		return &MappingIncompleteError{Missing: missing}
	}

	account, err := s.store.GetAccount(ctx, st.Account.ID)
	if err != nil {
		return fmt.Errorf("failed to load account: %w", err)
	}
	existing, err := s.store.ListTransactions(ctx, account.ID)
	if err != nil {
		return fmt.Errorf("failed to load ledger transactions: %w", err)
	}
	taxonomy, err := s.store.ListCategories(ctx)
	if err != nil {
		return fmt.Errorf("failed to load categories: %w", err)
	}

	in := pipeline.Input{
		Table:           st.File.Table,
		Mapping:         st.Mapping,
		AccountID:       account.ID,
		StartingBalance: account.Balance,
		Existing:        existing,
		Taxonomy:        taxonomy,
	}
	if tpl := st.Template; tpl != nil {
		in.DecimalSeparator = tpl.DecimalRune()
		in.DateLayout = tpl.DateLayout
		if len(tpl.StripPatterns) > 0 {
			patterns := append(append([]string(nil), normalizer.DefaultStripPatterns...), tpl.StripPatterns...)
			cleaner, err := normalizer.NewDescriptionCleaner(patterns)
			if err != nil {
				return fmt.Errorf("template %s: %w", tpl.ID, err)
			}
			in.Cleaner = cleaner
		}
	}

	preview, err := s.pipeline.Run(ctx, in)
	if err != nil {
		return err
	}

	next := PreviewState{
		File:       st.File,
		Template:   st.Template,
		Mapping:    st.Mapping,
		Accounts:   st.Accounts,
		Account:    account,
		Preview:    preview,
		BankSelect: st.BankSelect,
	}
	if s.archive != nil {
		prev, err := s.archive.FindByChecksum(ctx, account.ID, st.File.Checksum)
		switch {
		case err == nil:
			next.PreviouslyImported = prev
			s.logger.Warn("identical statement was imported before",
				slog.String("archive_id", prev.ID.String()),
				slog.Time("imported_at", prev.CreatedAt),
			)
		case !errors.Is(err, storage.ErrNotFound):
			s.logger.Warn("archive lookup failed", slog.Any("error", err))
		}
	}

	counts := preview.Counts()
	span.SetAttributes(
		attribute.Int("import.rows", counts.Total),
		attribute.Int("import.errors", counts.Error),
		attribute.Int("import.duplicates", counts.Duplicate),
	)
	s.state = next
	return nil
}

// SetSkipDuplicates toggles whether flagged duplicates are left out of the
// commit. The balance impact is recomputed.
func (s *Session) SetSkipDuplicates(skip bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.state.(PreviewState)
	if !ok {
		return s.transitionError("SetSkipDuplicates")
	}
	st.Preview = st.Preview.WithSkipDuplicates(skip)
	s.state = st
	return nil
}

// Commit appends the accepted rows and applies their net impact to the
// account balance in one ledger transaction. On failure the session stays
// in PREVIEW and a *CommitError is returned.
func (s *Session) Commit(ctx context.Context) (result *CommitResult, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ctx, span := s.startSpan(ctx, "commit")
	defer func() { endSpan(span, err) }()

	st, ok := s.state.(PreviewState)
	if !ok {
		return nil, s.transitionError("Commit")
	}

	accepted := st.Preview.Accepted()
	if len(accepted) == 0 {
		return nil, ErrNothingToCommit
	}

	batch := make([]ledger.Transaction, 0, len(accepted))
	for _, c := range accepted {
		tx, err := toTransaction(c, st.Account.ID)
		if err != nil {
			return nil, err
		}
		batch = append(batch, tx)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	impact := st.Preview.Impact
	done := s.metrics.StartStage("commit")
	err = s.store.WithinTx(ctx, func(w ledger.Writer) error {
		if err := w.AppendTransactions(ctx, batch); err != nil {
			return err
		}
		return w.AdjustAccountBalance(ctx, st.Account.ID, impact.NetImpact)
	})
	done()
	if err != nil {
		s.metrics.SessionFinished(metrics.OutcomeFailed)
		s.logger.Error("commit failed",
			slog.String("account_id", st.Account.ID),
			slog.Int("rows", len(batch)),
			slog.Any("error", err),
		)
		return nil, &CommitError{AccountID: st.Account.ID, Rows: len(batch), Err: err}
	}

	res := CommitResult{
		AccountID:      st.Account.ID,
		TransactionIDs: make([]string, len(batch)),
		Impact:         impact,
		Excluded:       len(st.Preview.Candidates) - len(batch),
	}
	for i, tx := range batch {
		res.TransactionIDs[i] = tx.ID
	}
	if acc, err := s.store.GetAccount(ctx, st.Account.ID); err != nil {
		s.logger.Warn("failed to read balance after commit",
			slog.String("account_id", st.Account.ID),
			slog.Any("error", err),
		)
	} else {
		res.Balance, res.BalanceRead = acc.Balance, true
	}
	res.Archived = s.archiveFile(ctx, st, len(batch))

	s.metrics.AddRows(metrics.RowsCommitted, len(batch))
	s.metrics.SessionFinished(metrics.OutcomeCommitted)
	span.SetAttributes(attribute.Int("import.committed", len(batch)))
	s.logger.Info("import committed",
		slog.String("account_id", st.Account.ID),
		slog.Int("rows", len(batch)),
		slog.Int("excluded", res.Excluded),
		slog.String("net_impact", impact.NetImpact.String()),
		slog.String("ending_balance", impact.ProjectedEndingBalance.String()),
	)

	s.state = CommittedState{Result: res}
	return &res, nil
}

// archiveFile keeps a copy of the committed statement. Failures are logged.
func (s *Session) archiveFile(ctx context.Context, st PreviewState, rows int) *storage.StatementInfo {
	if s.archive == nil {
		return nil
	}
	info := storage.StatementInfo{
		AccountID:    st.Account.ID,
		SessionID:    s.id,
		Name:         st.File.Name,
		Fingerprint:  st.File.Table.Fingerprint,
		RowsImported: rows,
	}
	if st.Template != nil {
		info.BankID = st.Template.ID
	}
	saved, err := s.archive.Store(ctx, info, bytes.NewReader(st.File.Data))
	if err != nil {
		s.logger.Warn("failed to archive statement", slog.Any("error", err))
		return nil
	}
	return saved
}

// Back returns to the previous stage, discarding what that stage produced.
func (s *Session) Back() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch st := s.state.(type) {
	case BankSelectState:
		s.state = UploadState{}
	case AccountSelectState:
		s.state = st.BankSelect
	case MappingState:
		s.state = AccountSelectState{
			File:       st.File,
			Template:   st.Template,
			Mapping:    st.Mapping,
			Accounts:   st.Accounts,
			BankSelect: st.BankSelect,
		}
	case PreviewState:
		s.state = MappingState{
			File:       st.File,
			Template:   st.Template,
			Mapping:    st.Mapping,
			Accounts:   st.Accounts,
			Account:    st.Account,
			BankSelect: st.BankSelect,
		}
	case CommittedState, AbortedState:
		return ErrSessionClosed
	default:
		return s.transitionError("Back")
	}
	return nil
}

// Abort cancels the import. Nothing has been written before Commit, so this
// only discards the session's data.
func (s *Session) Abort() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	from := s.state.Stage()
	if from.Terminal() {
		return ErrSessionClosed
	}
	s.state = AbortedState{From: from}
	s.metrics.SessionFinished(metrics.OutcomeAborted)
	s.logger.Info("import aborted", slog.String("stage", string(from)))
	return nil
}

func (s *Session) transitionError(op string) error {
	stage := s.state.Stage()
	if stage.Terminal() {
		return ErrSessionClosed
	}
	return &TransitionError{Op: op, Stage: stage}
}

func (s *Session) startSpan(ctx context.Context, op string) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "import."+op, trace.WithAttributes(
		attribute.String("import.session_id", s.id),
		attribute.String("import.stage", string(s.state.Stage())),
	))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// requiredMissing lists date/amount when unmapped or mapped to an absent header.
func requiredMissing(m model.ColumnMapping, headers []string) []string {
	known := make(map[string]bool, len(headers))
	for _, h := range headers {
		known[h] = true
	}
	var missing []string
	if m.Date == "" || !known[m.Date] {
		missing = append(missing, model.FieldDate)
	}
	if m.Amount == "" || !known[m.Amount] {
		missing = append(missing, model.FieldAmount)
	}
	return missing
}

func toTransaction(c model.Candidate, accountID string) (ledger.Transaction, error) {
	day, ok := c.Time()
	if !ok {
		return ledger.Transaction{}, fmt.Errorf("row %d has no valid date", c.SourceRowIndex)
	}
	return ledger.Transaction{
		ID:          uuid.NewString(),
		Date:        day,
		Amount:      c.Amount,
		Type:        c.Type,
		Category:    c.Category,
		SubCategory: c.SubCategory,
		AccountID:   accountID,
		Description: c.Description,
	}, nil
}
