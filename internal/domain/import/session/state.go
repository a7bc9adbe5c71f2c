package session

import (
	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/statement-import/internal/domain/import/model"
	"github.com/FACorreiaa/statement-import/internal/domain/import/pipeline"
	"github.com/FACorreiaa/statement-import/internal/domain/import/template"
	"github.com/FACorreiaa/statement-import/internal/domain/ledger"
	"github.com/FACorreiaa/statement-import/pkg/storage"
)

// Stage names the wizard step a session is in.
type Stage string

const (
	StageUpload        Stage = "UPLOAD"
	StageBankSelect    Stage = "BANK_SELECT"
	StageAccountSelect Stage = "ACCOUNT_SELECT"
	StageMapping       Stage = "MAPPING"
	StagePreview       Stage = "PREVIEW"
	StageCommitted     Stage = "COMMITTED"
	StageAborted       Stage = "ABORTED"
)

// Terminal reports whether no further operation is possible.
func (s Stage) Terminal() bool {
	return s == StageCommitted || s == StageAborted
}

// State is the session's current step. Each implementation carries exactly
// the data that exists at that step.
type State interface {
	Stage() Stage
	isState()
}

// File is an uploaded statement after a successful parse.
type File struct {
	Name     string
	Data     []byte
	Table    *model.Table
	Checksum string
}

// UploadState waits for a statement file.
type UploadState struct{}

// BankSelectState holds the parsed file. Suggested is a registry template
// whose headers all appear in the file, if any.
type BankSelectState struct {
	File      File
	Suggested *template.BankTemplate
}

// AccountSelectState holds the initial mapping and the accounts to choose from.
// Template is nil when the mapping was auto-detected. File may have been
// re-parsed for the template; BankSelect keeps the upload-time state that Back
// returns to.
type AccountSelectState struct {
	File       File
	Template   *template.BankTemplate
	Mapping    model.ColumnMapping
	Accounts   []ledger.Account
	BankSelect BankSelectState
}

// MappingState lets the caller adjust the mapping for the chosen account.
type MappingState struct {
	File       File
	Template   *template.BankTemplate
	Mapping    model.ColumnMapping
	Accounts   []ledger.Account
	Account    ledger.Account
	BankSelect BankSelectState
}

// PreviewState holds the captured pipeline output. PreviouslyImported is set
// when the archive already holds an identical file for the account.
type PreviewState struct {
	File               File
	Template           *template.BankTemplate
	Mapping            model.ColumnMapping
	Accounts           []ledger.Account
	Account            ledger.Account
	Preview            *pipeline.Preview
	PreviouslyImported *storage.StatementInfo
	BankSelect         BankSelectState
}

// CommittedState is terminal.
type CommittedState struct {
	Result CommitResult
}

// AbortedState is terminal. From is the stage the session was cancelled in.
type AbortedState struct {
	From Stage
}

func (UploadState) Stage() Stage        { return StageUpload }
func (BankSelectState) Stage() Stage    { return StageBankSelect }
func (AccountSelectState) Stage() Stage { return StageAccountSelect }
func (MappingState) Stage() Stage       { return StageMapping }
func (PreviewState) Stage() Stage       { return StagePreview }
func (CommittedState) Stage() Stage     { return StageCommitted }
func (AbortedState) Stage() Stage       { return StageAborted }

func (UploadState) isState()        {}
func (BankSelectState) isState()    {}
func (AccountSelectState) isState() {}
func (MappingState) isState()       {}
func (PreviewState) isState()       {}
func (CommittedState) isState()     {}
func (AbortedState) isState()       {}

// CommitResult describes a successful commit.
type CommitResult struct {
	AccountID      string
	TransactionIDs []string
	Impact         model.BalanceImpactSummary
	Excluded       int // rows left out for errors or skipped duplicates
	Archived       *storage.StatementInfo

	// Balance is the account balance read back after the commit. BalanceRead is
	// false when that read failed; Impact still holds the preview projection.
	Balance     decimal.Decimal
	BalanceRead bool
}
