package backup

import (
	"errors"
	"time"
)

var ErrNotFound = errors.New("backup not found")

// Request selects what to back up. An empty AccountIDs backs up every account.
type Request struct {
	AccountIDs []int64
	Reason     string
	Direction  string
}

type Result struct {
	ID        string
	Path      string
	Files     []string
	CreatedAt time.Time
}

// Manifest describes one backup directory. It is stored as manifest.json next to the account files.
type Manifest struct {
	ID        string            `json:"id"`
	Reason    string            `json:"reason"`
	Direction string            `json:"direction,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	Accounts  []ManifestAccount `json:"accounts"`

	path string
}

func (m *Manifest) Path() string { return m.path }

type ManifestAccount struct {
	AccountID    int64  `json:"account_id"`
	Name         string `json:"name"`
	File         string `json:"file"`
	Transactions int    `json:"transactions"`
}

// transactionRow is the CSV layout of a backed-up transaction.
type transactionRow struct {
	ID          int64  `csv:"id"`
	Date        string `csv:"date"`
	Amount      int64  `csv:"amount_cents"`
	Description string `csv:"description"`
	Reason      string `csv:"reason"`
	Category    string `csv:"category"`
	CreatedAt   string `csv:"created_at"`
	ModifiedAt  string `csv:"modified_at"`
}

type RestoreResult struct {
	BackupID       string
	SafetyBackupID string // backup of the state replaced by the restore
	Accounts       int
	Transactions   int
}
