// Package inbox imports every statement file dropped into a directory.
// Committed files move to processed/, rejected ones to failed/.
package inbox

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/FACorreiaa/statement-import/internal/domain/import/session"
)

// Subdirectories of the inbox that receive handled files.
const (
	ProcessedDir = "processed"
	FailedDir    = "failed"
)

var extensions = map[string]bool{".csv": true, ".txt": true, ".tsv": true, ".xlsx": true}

// SessionFactory starts a new import session.
type SessionFactory func() (*session.Session, error)

// Config describes one inbox bound to one ledger account.
type Config struct {
	Dir            string
	AccountID      string
	BankID         string // Empty detects the bank from the headers
	SkipDuplicates bool
	NewSession     SessionFactory
	Logger         *slog.Logger
}

// Result is the outcome for one file.
type Result struct {
	File      string
	Committed int
	Excluded  int
	Skipped   string // Non-empty when the file was moved aside without a commit
	Err       error
}

// Summary collects the results of one sweep.
type Summary struct {
	Results []Result
}

// Failed counts files moved to failed/.
func (s Summary) Failed() int {
	n := 0
	for _, r := range s.Results {
		if r.Err != nil {
			n++
		}
	}
	return n
}

// Committed counts transactions written across all files.
func (s Summary) Committed() int {
	n := 0
	for _, r := range s.Results {
		n += r.Committed
	}
	return n
}

// Inbox sweeps a directory.
type Inbox struct {
	cfg    Config
	logger *slog.Logger
	now    func() time.Time
}

// New validates cfg and creates the processed/ and failed/ directories.
func New(cfg Config) (*Inbox, error) {
	if cfg.Dir == "" {
		return nil, errors.New("inbox directory is required")
	}
	if cfg.AccountID == "" {
		return nil, errors.New("inbox account is required")
	}
	if cfg.NewSession == nil {
		return nil, errors.New("inbox session factory is required")
	}
	for _, sub := range []string{ProcessedDir, FailedDir} {
		if err := os.MkdirAll(filepath.Join(cfg.Dir, sub), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create inbox directory: %w", err)
		}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Inbox{
		cfg:    cfg,
		logger: logger.With(slog.String("inbox", cfg.Dir), slog.String("account_id", cfg.AccountID)),
		now:    time.Now,
	}, nil
}

// Pending lists the statement files waiting in the inbox, by name.
func (i *Inbox) Pending() ([]string, error) {
	entries, err := os.ReadDir(i.cfg.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read inbox: %w", err)
	}
	var files []string
	for _, e := range entries {
		name := e.Name()
		if !e.Type().IsRegular() || strings.HasPrefix(name, ".") {
			continue
		}
		if extensions[strings.ToLower(filepath.Ext(name))] {
			files = append(files, name)
		}
	}
	sort.Strings(files)
	return files, nil
}

// Sweep imports each pending file in its own session. One file failing does
// not stop the others; cancellation stops before the next file.
func (i *Inbox) Sweep(ctx context.Context) (Summary, error) {
	var summary Summary
	files, err := i.Pending()
	if err != nil {
		return summary, err
	}

	for _, name := range files {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		res := i.importFile(ctx, name)
		dest := ProcessedDir
		if res.Err != nil {
			dest = FailedDir
			i.logger.Warn("statement rejected", slog.String("file", name), slog.Any("error", res.Err))
		}
		if err := i.move(name, dest); err != nil {
			return summary, err
		}
		summary.Results = append(summary.Results, res)
	}

	if len(files) > 0 {
		i.logger.Info("inbox swept",
			slog.Int("files", len(files)),
			slog.Int("failed", summary.Failed()),
			slog.Int("committed", summary.Committed()),
		)
	}
	return summary, nil
}

func (i *Inbox) importFile(ctx context.Context, name string) (res Result) {
	res.File = name
	data, err := os.ReadFile(filepath.Join(i.cfg.Dir, name))
	if err != nil {
		res.Err = err
		return res
	}

	s, err := i.cfg.NewSession()
	if err != nil {
		res.Err = err
		return res
	}
	defer func() {
		if res.Err != nil {
			_ = s.Abort()
		}
	}()

	if err := s.Upload(ctx, name, data, 0); err != nil {
		res.Err = err
		return res
	}
	bankID := i.cfg.BankID
	if bankID == "" {
		bankID = session.ManualBankID
		if st := s.State().(session.BankSelectState); st.Suggested != nil {
			bankID = st.Suggested.ID
		}
	}
	if err := s.SelectBank(ctx, bankID); err != nil {
		res.Err = err
		return res
	}
	if err := s.SelectAccount(ctx, i.cfg.AccountID); err != nil {
		res.Err = err
		return res
	}
	if err := s.Preview(ctx); err != nil {
		res.Err = err
		return res
	}
	if err := s.SetSkipDuplicates(i.cfg.SkipDuplicates); err != nil {
		res.Err = err
		return res
	}

	st := s.State().(session.PreviewState)
	switch {
	case st.PreviouslyImported != nil:
		res.Skipped = "already imported " + st.PreviouslyImported.CreatedAt.Format(time.RFC3339)
	case st.Preview.Counts().Accepted == 0:
		res.Skipped = "no rows to import"
	}
	if res.Skipped != "" {
		res.Excluded = len(st.Preview.Candidates)
		i.logger.Info("statement skipped", slog.String("file", name), slog.String("reason", res.Skipped))
		_ = s.Abort()
		return res
	}

	commit, err := s.Commit(ctx)
	if err != nil {
		res.Err = err
		return res
	}
	res.Committed = len(commit.TransactionIDs)
	res.Excluded = commit.Excluded
	return res
}

// move renames name into sub, prefixing a timestamp when the target exists.
func (i *Inbox) move(name, sub string) error {
	src := filepath.Join(i.cfg.Dir, name)
	dst := filepath.Join(i.cfg.Dir, sub, name)
	if _, err := os.Stat(dst); err == nil {
		dst = filepath.Join(i.cfg.Dir, sub, i.now().Format("20060102T150405")+"-"+name)
	}
	if err := os.Rename(src, dst); err != nil {
		return fmt.Errorf("failed to move %s to %s: %w", name, sub, err)
	}
	return nil
}
