// Package memory is an in-process ledger. Writes made inside WithinTx are
// staged on a copy and only published when the callback succeeds.
package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/statement-import/internal/domain/ledger"
)

// ErrDuplicateID is returned when a batch reuses an existing transaction id.
var ErrDuplicateID = errors.New("transaction id already exists")

type snapshot struct {
	Accounts     []ledger.Account     `json:"accounts"`
	Categories   ledger.Taxonomy      `json:"taxonomy"`
	Transactions []ledger.Transaction `json:"transactions"`
}

// Store implements ledger.Store in memory, optionally persisted to a JSON file.
type Store struct {
	mu   sync.RWMutex
	data snapshot
	path string
}

var _ ledger.Store = (*Store)(nil)

// New creates a store seeded with accounts and a taxonomy.
func New(accounts []ledger.Account, taxonomy ledger.Taxonomy) *Store {
	return &Store{data: snapshot{
		Accounts:   append([]ledger.Account(nil), accounts...),
		Categories: taxonomy,
	}}
}

// Open loads the snapshot at path. A missing file yields an empty store that
// will be written to path on the first commit.
func Open(path string) (*Store, error) {
	s := &Store{path: path}
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read ledger file: %w", err)
	}
	if err := json.Unmarshal(raw, &s.data); err != nil {
		return nil, fmt.Errorf("failed to decode ledger file %s: %w", path, err)
	}
	return s, nil
}

// ListTransactions returns a copy of the stored transactions, filtered by
// accountID unless it is empty.
func (s *Store) ListTransactions(ctx context.Context, accountID string) ([]ledger.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]ledger.Transaction, 0, len(s.data.Transactions))
	for _, tx := range s.data.Transactions {
		if accountID == "" || tx.AccountID == accountID {
			out = append(out, tx)
		}
	}
	return out, nil
}

func (s *Store) GetAccount(ctx context.Context, id string) (ledger.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if i := findAccount(s.data.Accounts, id); i >= 0 {
		return s.data.Accounts[i], nil
	}
	return ledger.Account{}, fmt.Errorf("%w: %s", ledger.ErrAccountNotFound, id)
}

// ListAccounts returns accounts sorted by name.
func (s *Store) ListAccounts(ctx context.Context) ([]ledger.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := append([]ledger.Account(nil), s.data.Accounts...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) ListCategories(ctx context.Context) (ledger.Taxonomy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.Categories, nil
}

// WithinTx runs fn against a staged copy of the ledger. The copy replaces the
// live data only when fn returns nil and, for file-backed stores, the snapshot
// is written.
func (s *Store) WithinTx(ctx context.Context, fn func(w ledger.Writer) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	staged := &txWriter{
		accounts:     append([]ledger.Account(nil), s.data.Accounts...),
		transactions: append([]ledger.Transaction(nil), s.data.Transactions...),
		ids:          make(map[string]bool, len(s.data.Transactions)),
	}
	for _, tx := range s.data.Transactions {
		staged.ids[tx.ID] = true
	}

	if err := fn(staged); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	next := snapshot{Accounts: staged.accounts, Categories: s.data.Categories, Transactions: staged.transactions}
	if s.path != "" {
		if err := writeSnapshot(s.path, next); err != nil {
			return err
		}
	}
	s.data = next
	return nil
}

// Save writes the current state to the store's file.
func (s *Store) Save() error {
	if s.path == "" {
		return errors.New("memory store has no file")
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return writeSnapshot(s.path, s.data)
}

// ErrAccountExists is returned by AddAccount for a taken id.
var ErrAccountExists = errors.New("account already exists")

// AddAccount registers a new account.
func (s *Store) AddAccount(ctx context.Context, acc ledger.Account) error {
	if acc.ID == "" {
		return errors.New("account id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if findAccount(s.data.Accounts, acc.ID) >= 0 {
		return fmt.Errorf("%w: %s", ErrAccountExists, acc.ID)
	}
	s.data.Accounts = append(s.data.Accounts, acc)
	return nil
}

// SetTaxonomy replaces the category taxonomy.
func (s *Store) SetTaxonomy(tax ledger.Taxonomy) {
	s.mu.Lock()
	s.data.Categories = tax
	s.mu.Unlock()
}

// writeSnapshot replaces path atomically through a temp file in the same directory.
func writeSnapshot(path string, data snapshot) error {
	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode ledger: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create ledger directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".ledger-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp ledger file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write ledger: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write ledger: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace ledger file: %w", err)
	}
	return nil
}

func findAccount(accounts []ledger.Account, id string) int {
	for i, a := range accounts {
		if a.ID == id {
			return i
		}
	}
	return -1
}

type txWriter struct {
	accounts     []ledger.Account
	transactions []ledger.Transaction
	ids          map[string]bool
}

// AppendTransactions validates the whole batch before staging any of it.
func (w *txWriter) AppendTransactions(ctx context.Context, batch []ledger.Transaction) error {
	seen := make(map[string]bool, len(batch))
	for i, tx := range batch {
		if err := tx.Validate(); err != nil {
			return fmt.Errorf("%w: transaction %d: %v", ledger.ErrInvalidBatch, i, err)
		}
		if w.ids[tx.ID] || seen[tx.ID] {
			return fmt.Errorf("%w: %s", ErrDuplicateID, tx.ID)
		}
		if findAccount(w.accounts, tx.AccountID) < 0 {
			return fmt.Errorf("%w: %s", ledger.ErrAccountNotFound, tx.AccountID)
		}
		seen[tx.ID] = true
	}

	for _, tx := range batch {
		w.ids[tx.ID] = true
		w.transactions = append(w.transactions, tx)
	}
	return nil
}

func (w *txWriter) AdjustAccountBalance(ctx context.Context, accountID string, delta decimal.Decimal) error {
	i := findAccount(w.accounts, accountID)
	if i < 0 {
		return fmt.Errorf("%w: %s", ledger.ErrAccountNotFound, accountID)
	}
	w.accounts[i].Balance = w.accounts[i].Balance.Add(delta)
	return nil
}
