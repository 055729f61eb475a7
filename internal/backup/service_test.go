package backup_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/ledgersync/internal/backup"
	"github.com/MrJamesThe3rd/ledgersync/internal/ledger/memory"
)

func date(d int) time.Time {
	return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC)
}

func TestService_Create(t *testing.T) {
	store := memory.New()
	checking := store.AddAccount("Checking")
	store.AddAccount("Savings")

	store.Add(checking.ID, date(1), -450, "Coffee", "")
	cat := store.Add(checking.ID, date(2), 200000, "Salary", "January")
	cat.Category = "Income"

	dir := t.TempDir()
	svc := backup.NewService(store, dir, 0, nil)

	res, err := svc.Create(context.Background(), backup.Request{
		AccountIDs: []int64{checking.ID, checking.ID, 999},
		Reason:     "pre-sync",
		Direction:  "mobile_to_desktop",
	})
	require.NoError(t, err)

	assert.Equal(t, filepath.Dir(res.Path), dir)
	assert.ElementsMatch(t, []string{"account_1.csv", "manifest.json"}, res.Files)

	for _, f := range res.Files {
		_, err := os.Stat(filepath.Join(res.Path, f))
		assert.NoError(t, err)
	}

	manifests, err := svc.List()
	require.NoError(t, err)
	require.Len(t, manifests, 1)

	m := manifests[0]
	assert.Equal(t, res.ID, m.ID)
	assert.Equal(t, "pre-sync", m.Reason)
	assert.Equal(t, "mobile_to_desktop", m.Direction)
	require.Len(t, m.Accounts, 1)
	assert.Equal(t, 2, m.Accounts[0].Transactions)

	all, err := svc.Create(context.Background(), backup.Request{Reason: "manual"})
	require.NoError(t, err)
	assert.Len(t, all.Files, 3)
	assert.NotEqual(t, res.ID, all.ID)
}

func TestService_Restore(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	acc := store.AddAccount("Checking")
	empty := store.AddAccount("Empty")

	store.Add(acc.ID, date(1), -450, "Coffee", "")
	salary := store.Add(acc.ID, date(2), 200000, "Salary", "January")
	salary.Category = "Income"

	svc := backup.NewService(store, t.TempDir(), 0, nil)

	res, err := svc.Create(ctx, backup.Request{Reason: "pre-sync"})
	require.NoError(t, err)

	_, err = store.ReplaceTransactions(ctx, acc.ID, nil)
	require.NoError(t, err)
	store.Add(acc.ID, date(3), 1, "Stray", "")
	store.Add(empty.ID, date(3), 1, "Stray", "")

	restored, err := svc.Restore(ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, restored.Accounts)
	assert.Equal(t, 2, restored.Transactions)

	safety, err := svc.Get(restored.SafetyBackupID)
	require.NoError(t, err)
	assert.Equal(t, "pre-restore "+res.ID, safety.Reason)
	require.Len(t, safety.Accounts, 2)
	assert.Equal(t, 1, safety.Accounts[0].Transactions)

	txs, err := store.ListAccountTransactions(ctx, acc.ID)
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, "Coffee", txs[0].Description)
	assert.Equal(t, int64(-450), txs[0].Amount)
	assert.Equal(t, "January", txs[1].Reason)
	assert.Equal(t, "Income", txs[1].Category)
	assert.True(t, txs[1].Date.Equal(date(2)))

	emptyTxs, err := store.ListAccountTransactions(ctx, empty.ID)
	require.NoError(t, err)
	assert.Empty(t, emptyTxs)
}

func TestService_Restore_NotFound(t *testing.T) {
	svc := backup.NewService(memory.New(), t.TempDir(), 0, nil)

	_, err := svc.Restore(context.Background(), "missing")
	assert.True(t, errors.Is(err, backup.ErrNotFound))
}

func TestService_Prune(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	store.AddAccount("Checking")

	dir := t.TempDir()
	svc := backup.NewService(store, dir, 2, nil)

	var ids []string

	for range 4 {
		res, err := svc.Create(ctx, backup.Request{Reason: "test"})
		require.NoError(t, err)

		ids = append(ids, res.ID)
	}

	manifests, err := svc.List()
	require.NoError(t, err)
	require.Len(t, manifests, 2)
	assert.Equal(t, ids[3], manifests[0].ID)
	assert.Equal(t, ids[2], manifests[1].ID)

	removed, err := svc.Prune(1)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
}

func TestService_List_IgnoresIncomplete(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, ".tmp-partial"), 0o755))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "no-manifest"), 0o755))

	svc := backup.NewService(memory.New(), dir, 0, nil)

	manifests, err := svc.List()
	require.NoError(t, err)
	assert.Empty(t, manifests)
}

func TestService_List_MissingRoot(t *testing.T) {
	svc := backup.NewService(memory.New(), filepath.Join(t.TempDir(), "nope"), 0, nil)

	manifests, err := svc.List()
	require.NoError(t, err)
	assert.Empty(t, manifests)
}
