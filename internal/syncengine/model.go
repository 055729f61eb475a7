package syncengine

import (
	"time"

	"github.com/shopspring/decimal"
)

type Direction string

const (
	DirectionDesktopToMobile Direction = "desktop_to_mobile"
	DirectionMobileToDesktop Direction = "mobile_to_desktop"
)

// Mode governs how source transactions land in the destination account.
type Mode string

const (
	ModeReplace   Mode = "replace"
	ModeMerge     Mode = "merge"
	ModeNewOnly   Mode = "new_only"
	ModeCreateNew Mode = "create_new"
)

func (m Mode) Valid() bool {
	switch m {
	case ModeReplace, ModeMerge, ModeNewOnly, ModeCreateNew:
		return true
	}

	return false
}

// Destructive reports whether the mode discards existing destination data.
func (m Mode) Destructive() bool {
	return m == ModeReplace
}

type Status string

const (
	StatusReplaced Status = "replaced"
	StatusMerged   Status = "merged"
	StatusNewOnly  Status = "new_only"
	StatusCreated  Status = "created"
	StatusError    Status = "error"
)

// SyncTransaction is the portable form of a ledger transaction. It carries no identity.
type SyncTransaction struct {
	Date        string          `json:"date"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	Reason      string          `json:"reason"`
	CreatedAt   *time.Time      `json:"created_at,omitempty"`
	ModifiedAt  *time.Time      `json:"modified_at,omitempty"`
}

type SyncAccount struct {
	ID                    int64             `json:"id"`
	Name                  string            `json:"name"`
	InitialBalance        decimal.Decimal   `json:"initial_balance"`
	Icon                  string            `json:"icon,omitempty"`
	Color                 string            `json:"color,omitempty"`
	TransactionCount      int               `json:"transaction_count"`
	LatestTransactionDate *string           `json:"latest_transaction_date,omitempty"`
	LatestModifiedAt      *time.Time        `json:"latest_modified_at,omitempty"`
	Transactions          []SyncTransaction `json:"transactions"`
	ClassifiedCount       int               `json:"classified_count"`
	UniqueCategoryCount   int               `json:"unique_category_count"`
	TargetAccountID       *int64            `json:"target_account_id,omitempty"`
}

type Comparison struct {
	AccountID             int64   `json:"account_id"`
	AccountName           string  `json:"account_name"`
	TargetAccountID       *int64  `json:"target_account_id,omitempty"`
	DestinationExists     bool    `json:"destination_exists"`
	Action                Mode    `json:"action"`
	SourceCount           int     `json:"source_count"`
	DestinationCount      int     `json:"destination_count"`
	SourceLatestDate      *string `json:"source_latest_date,omitempty"`
	DestinationLatestDate *string `json:"destination_latest_date,omitempty"`
	HasWarning            bool    `json:"has_warning"`
	WarningMessage        string  `json:"warning_message,omitempty"`
}

type PrepareRequest struct {
	Direction Direction     `json:"direction"`
	Mode      Mode          `json:"mode"`
	Accounts  []SyncAccount `json:"accounts"`
}

type PrepareResponse struct {
	Success                     bool         `json:"success"`
	Error                       string       `json:"error,omitempty"`
	BackupCreated               bool         `json:"backup_created"`
	BackupPath                  string       `json:"backup_path,omitempty"`
	BackupError                 string       `json:"backup_error,omitempty"`
	Comparisons                 []Comparison `json:"comparisons"`
	RequiresConfirmation        bool         `json:"requires_confirmation"`
	HasClassificationWarning    bool         `json:"has_classification_warning"`
	TotalClassifiedTransactions int          `json:"total_classified_transactions"`
}

type ExecuteRequest struct {
	Direction Direction     `json:"direction"`
	Mode      Mode          `json:"mode"`
	Confirmed bool          `json:"confirmed"`
	Accounts  []SyncAccount `json:"accounts"`
}

type AccountResult struct {
	AccountID             int64  `json:"account_id"`
	AccountName           string `json:"account_name"`
	DestinationAccountID  int64  `json:"destination_account_id,omitempty"`
	Status                Status `json:"status"`
	TransactionsProcessed int    `json:"transactions_processed"`
	Removed               int64  `json:"removed"`
	DuplicatesSkipped     int    `json:"duplicates_skipped"`
	NewOnlyAdded          int    `json:"new_only_added"`
	InvalidSkipped        int    `json:"invalid_skipped"`
	ErrorMessage          string `json:"error_message,omitempty"`
}

type ExecuteResponse struct {
	Success                    bool            `json:"success"`
	Error                      string          `json:"error,omitempty"`
	BackupCreated              bool            `json:"backup_created"`
	BackupPath                 string          `json:"backup_path,omitempty"`
	BackupError                string          `json:"backup_error,omitempty"`
	Results                    []AccountResult `json:"results"`
	TotalTransactionsProcessed int             `json:"total_transactions_processed"`
	TotalDuplicatesSkipped     int             `json:"total_duplicates_skipped"`
	TotalNewAdded              int             `json:"total_new_added"`
}
