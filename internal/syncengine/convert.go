package syncengine

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/ledgersync/internal/ledger"
)

// ParseDate parses a wire date (yyyy-MM-dd). Surrounding whitespace is ignored.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(time.DateOnly, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing date %q: %w", s, err)
	}

	return t, nil
}

// CentsToDecimal converts an amount in cents to a two-digit decimal.
func CentsToDecimal(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}

// DecimalToCents rounds d to the nearest cent.
func DecimalToCents(d decimal.Decimal) int64 {
	return d.Shift(2).Round(0).IntPart()
}

func ToSyncTransaction(tx *ledger.Transaction) SyncTransaction {
	st := SyncTransaction{
		Date:        ledger.DayKey(tx.Date),
		Amount:      CentsToDecimal(tx.Amount),
		Description: tx.Description,
		Reason:      tx.Reason,
		ModifiedAt:  tx.ModifiedAt,
	}

	if !tx.CreatedAt.IsZero() {
		st.CreatedAt = new(tx.CreatedAt)
	}

	return st
}

// ToLedger converts the wire form into a ledger transaction owned by accountID. The ID is left for
// the store to assign.
func (st SyncTransaction) ToLedger(accountID int64) (*ledger.Transaction, error) {
	date, err := ParseDate(st.Date)
	if err != nil {
		return nil, err
	}

	tx := &ledger.Transaction{
		AccountID:   accountID,
		Date:        date,
		Amount:      DecimalToCents(st.Amount),
		Description: st.Description,
		Reason:      st.Reason,
		ModifiedAt:  st.ModifiedAt,
	}

	if st.CreatedAt != nil {
		tx.CreatedAt = *st.CreatedAt
	}

	return tx, nil
}

// IsSyncDuplicate is the merge predicate: same calendar day and the same description ignoring case
// and surrounding whitespace. Amount and reason are not compared.
func IsSyncDuplicate(st SyncTransaction, tx *ledger.Transaction) bool {
	date, err := ParseDate(st.Date)
	if err != nil {
		return false
	}

	if !ledger.SameDay(date, tx.Date) {
		return false
	}

	return strings.EqualFold(strings.TrimSpace(st.Description), strings.TrimSpace(tx.Description))
}

// BuildSyncAccount assembles the portable snapshot of one local account.
func BuildSyncAccount(acc *ledger.Account, txs []*ledger.Transaction) SyncAccount {
	sa := SyncAccount{
		ID:               acc.ID,
		Name:             acc.Name,
		InitialBalance:   CentsToDecimal(acc.InitialBalance),
		Icon:             acc.Icon,
		Color:            acc.Color,
		TransactionCount: len(txs),
		Transactions:     make([]SyncTransaction, 0, len(txs)),
	}

	categories := make(map[string]struct{})

	for _, tx := range txs {
		sa.Transactions = append(sa.Transactions, ToSyncTransaction(tx))

		if tx.ModifiedAt != nil && (sa.LatestModifiedAt == nil || tx.ModifiedAt.After(*sa.LatestModifiedAt)) {
			sa.LatestModifiedAt = new(*tx.ModifiedAt)
		}

		if c := strings.TrimSpace(tx.Category); c != "" {
			sa.ClassifiedCount++
			categories[strings.ToLower(c)] = struct{}{}
		}
	}

	sa.UniqueCategoryCount = len(categories)

	if latest := ledger.LatestDate(txs); latest != nil {
		sa.LatestTransactionDate = new(ledger.DayKey(*latest))
	}

	return sa
}

// latestSourceDate returns the most recent parseable date of the source transactions.
func latestSourceDate(sts []SyncTransaction) *time.Time {
	var latest *time.Time

	for _, st := range sts {
		d, err := ParseDate(st.Date)
		if err != nil {
			continue
		}

		if latest == nil || d.After(*latest) {
			latest = new(d)
		}
	}

	return latest
}
