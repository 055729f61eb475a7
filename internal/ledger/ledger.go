package ledger

import (
	"errors"
	"time"
)

var ErrNotFound = errors.New("not found")

// Account is a ledger owner. Every Transaction belongs to exactly one account.
type Account struct {
	ID             int64
	Name           string
	InitialBalance int64 // Amount in cents
	Icon           string
	Color          string
	CreatedAt      time.Time
}

// Transaction represents a single ledger entry.
type Transaction struct {
	ID          int64
	AccountID   int64
	Date        time.Time
	Amount      int64 // Amount in cents, negative for expenses
	Description string
	Reason      string
	Category    string // Empty when unclassified
	CreatedAt   time.Time
	ModifiedAt  *time.Time
}

// DayKey returns the calendar day of t as yyyy-mm-dd, ignoring time of day.
func DayKey(t time.Time) string {
	return t.Format(time.DateOnly)
}

// SameDay reports whether a and b fall on the same calendar day.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()

	return ay == by && am == bm && ad == bd
}

// Day truncates t to midnight UTC of its calendar day.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// LatestDate returns the most recent transaction date, or nil for an empty slice.
func LatestDate(txs []*Transaction) *time.Time {
	var latest *time.Time

	for _, tx := range txs {
		if latest == nil || Day(tx.Date).After(*latest) {
			latest = new(Day(tx.Date))
		}
	}

	return latest
}
