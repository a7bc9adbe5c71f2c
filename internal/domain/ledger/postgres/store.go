// Package postgres stores the ledger in PostgreSQL through pgx.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/statement-import/internal/domain/import/model"
	"github.com/FACorreiaa/statement-import/internal/domain/ledger"
)

// Pool is the subset of *pgxpool.Pool the store uses.
type Pool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store implements ledger.Store. Numeric columns travel as text so amounts
// never pass through float64.
type Store struct {
	db Pool
}

var _ ledger.Store = (*Store)(nil)

// NewStore creates a new postgres ledger store
func NewStore(db Pool) *Store {
	return &Store{db: db}
}

func (s *Store) ListTransactions(ctx context.Context, accountID string) ([]ledger.Transaction, error) {
	query := `
		SELECT id::text, account_id, booked_on, amount::text, type, category,
			COALESCE(subcategory, ''), description
		FROM transactions
		WHERE $1 = '' OR account_id = $1
		ORDER BY booked_on, id
	`

	rows, err := s.db.Query(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	var txs []ledger.Transaction
	for rows.Next() {
		var (
			t      ledger.Transaction
			amount string
			typ    string
		)
		if err := rows.Scan(&t.ID, &t.AccountID, &t.Date, &amount, &typ,
			&t.Category, &t.SubCategory, &t.Description); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		if t.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("transaction %s has bad amount %q: %w", t.ID, amount, err)
		}
		t.Type = model.TxType(typ)
		txs = append(txs, t)
	}
	return txs, rows.Err()
}

func (s *Store) GetAccount(ctx context.Context, id string) (ledger.Account, error) {
	query := `SELECT id, name, currency, balance::text FROM accounts WHERE id = $1`

	acc, err := scanAccount(s.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return ledger.Account{}, fmt.Errorf("%w: %s", ledger.ErrAccountNotFound, id)
	}
	if err != nil {
		return ledger.Account{}, fmt.Errorf("failed to get account %s: %w", id, err)
	}
	return acc, nil
}

func (s *Store) ListAccounts(ctx context.Context) ([]ledger.Account, error) {
	query := `SELECT id, name, currency, balance::text FROM accounts ORDER BY name, id`

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []ledger.Account
	for rows.Next() {
		acc, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, acc)
	}
	return accounts, rows.Err()
}

func (s *Store) ListCategories(ctx context.Context) (ledger.Taxonomy, error) {
	query := `SELECT name, subcategories FROM categories ORDER BY position, name`

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return ledger.Taxonomy{}, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()

	var tax ledger.Taxonomy
	for rows.Next() {
		var c ledger.Category
		if err := rows.Scan(&c.Name, &c.SubCategories); err != nil {
			return ledger.Taxonomy{}, fmt.Errorf("failed to scan category: %w", err)
		}
		tax.Categories = append(tax.Categories, c)
	}
	return tax, rows.Err()
}

// WithinTx runs fn inside one database transaction. An error or panic from fn
// rolls it back.
func (s *Store) WithinTx(ctx context.Context, fn func(w ledger.Writer) error) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer tx.Rollback(ctx)

	if err := fn(&writer{tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func scanAccount(row pgx.Row) (ledger.Account, error) {
	var (
		acc     ledger.Account
		balance string
	)
	if err := row.Scan(&acc.ID, &acc.Name, &acc.Currency, &balance); err != nil {
		return ledger.Account{}, err
	}
	b, err := decimal.NewFromString(balance)
	if err != nil {
		return ledger.Account{}, fmt.Errorf("account %s has bad balance %q: %w", acc.ID, balance, err)
	}
	acc.Balance = b
	return acc, nil
}

type writer struct {
	tx pgx.Tx
}

func (w *writer) AppendTransactions(ctx context.Context, batch []ledger.Transaction) error {
	query := `
		INSERT INTO transactions (
			id, account_id, booked_on, amount, type, category, subcategory, description
		) VALUES ($1, $2, $3, $4::numeric, $5, $6, NULLIF($7, ''), $8)
	`

	for i, t := range batch {
		if err := t.Validate(); err != nil {
			return fmt.Errorf("%w: transaction %d: %v", ledger.ErrInvalidBatch, i, err)
		}
	}

	for _, t := range batch {
		if _, err := w.tx.Exec(ctx, query,
			t.ID, t.AccountID, t.Date, t.Amount.String(), string(t.Type),
			t.Category, t.SubCategory, t.Description,
		); err != nil {
			return fmt.Errorf("failed to insert transaction %s: %w", t.ID, err)
		}
	}
	return nil
}

func (w *writer) AdjustAccountBalance(ctx context.Context, accountID string, delta decimal.Decimal) error {
	query := `UPDATE accounts SET balance = balance + $2::numeric, updated_at = now() WHERE id = $1`

	tag, err := w.tx.Exec(ctx, query, accountID, delta.String())
	if err != nil {
		return fmt.Errorf("failed to adjust balance of %s: %w", accountID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ledger.ErrAccountNotFound, accountID)
	}
	return nil
}
