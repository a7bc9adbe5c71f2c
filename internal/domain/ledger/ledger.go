// Package ledger defines the persistent store the import pipeline reads from and
// commits to. The pipeline only appends transactions and adjusts one balance.
package ledger

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/statement-import/internal/domain/import/model"
)

var (
	ErrAccountNotFound = errors.New("account not found")
	ErrInvalidBatch    = errors.New("invalid transaction batch")
)

// Transaction is the canonical committed record.
type Transaction struct {
	ID          string          `json:"id"`
	Date        time.Time       `json:"date"`
	Amount      decimal.Decimal `json:"amount"` // Never negative; Type carries the direction
	Type        model.TxType    `json:"type"`
	Category    string          `json:"category"`
	SubCategory string          `json:"subCategory,omitempty"`
	AccountID   string          `json:"accountId"`
	Description string          `json:"description"`
}

// Validate checks the invariants every stored transaction must hold.
func (t Transaction) Validate() error {
	switch {
	case t.ID == "":
		return errors.New("transaction id is required")
	case t.AccountID == "":
		return errors.New("account id is required")
	case t.Date.IsZero():
		return errors.New("date is required")
	case t.Amount.IsNegative():
		return errors.New("amount must not be negative")
	case t.Type != model.TxIncome && t.Type != model.TxExpense:
		return errors.New("type must be INCOME or EXPENSE")
	case strings.TrimSpace(t.Description) == "":
		return errors.New("description is required")
	}
	return nil
}

// Account is a ledger account with its current balance.
type Account struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Currency string          `json:"currency"`
	Balance  decimal.Decimal `json:"balance"`
}

// Category is one entry of the user's category taxonomy.
type Category struct {
	Name          string   `json:"name" yaml:"name"`
	SubCategories []string `json:"subCategories,omitempty" yaml:"subcategories,omitempty"`
}

// Taxonomy is the set of categories transactions may be filed under.
type Taxonomy struct {
	Categories []Category `json:"categories" yaml:"categories"`
}

// IsEmpty reports whether the taxonomy declares no categories.
func (t Taxonomy) IsEmpty() bool {
	return len(t.Categories) == 0
}

// Find looks up a category by name, ignoring case and surrounding spaces.
func (t Taxonomy) Find(name string) (Category, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Category{}, false
	}
	for _, c := range t.Categories {
		if strings.EqualFold(c.Name, name) {
			return c, true
		}
	}
	return Category{}, false
}

// FindSub looks up a subcategory of c, ignoring case.
func (c Category) FindSub(name string) (string, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", false
	}
	for _, s := range c.SubCategories {
		if strings.EqualFold(s, name) {
			return s, true
		}
	}
	return "", false
}

// Reader is the read side of the ledger consumed while building a preview.
type Reader interface {
	// ListTransactions returns the transactions of accountID, or all of them when empty.
	ListTransactions(ctx context.Context, accountID string) ([]Transaction, error)
	GetAccount(ctx context.Context, id string) (Account, error)
	ListAccounts(ctx context.Context) ([]Account, error)
	ListCategories(ctx context.Context) (Taxonomy, error)
}

// Writer is the write side. It is only reachable inside Store.WithinTx.
type Writer interface {
	AppendTransactions(ctx context.Context, batch []Transaction) error
	AdjustAccountBalance(ctx context.Context, accountID string, delta decimal.Decimal) error
}

// Store runs fn atomically: either every write fn makes is applied or none is.
type Store interface {
	Reader
	WithinTx(ctx context.Context, fn func(w Writer) error) error
}
