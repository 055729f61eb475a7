package view

import (
	"context"
	"time"

	"github.com/MrJamesThe3rd/ledgersync/internal/ledger"
	"github.com/MrJamesThe3rd/ledgersync/internal/syncengine"
)

const dbTimeout = 5 * time.Second

// FormatAmount formats an amount stored as cents into a human-readable string.
func FormatAmount(cents int64) string {
	return syncengine.CentsToDecimal(cents).StringFixed(2)
}

// FormatDate formats a time.Time into YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return ledger.DayKey(t)
}

// DbCtx returns a context with a standard timeout for database operations.
func DbCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), dbTimeout)
}
