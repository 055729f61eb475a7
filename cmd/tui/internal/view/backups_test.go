package view

import (
	"context"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/ledgersync/internal/backup"
)

type fakeBackupService struct {
	manifests []*backup.Manifest
	created   []backup.Request
	restored  []string
}

func (f *fakeBackupService) List() ([]*backup.Manifest, error) {
	return f.manifests, nil
}

func (f *fakeBackupService) Create(_ context.Context, req backup.Request) (*backup.Result, error) {
	f.created = append(f.created, req)
	return &backup.Result{ID: "new"}, nil
}

func (f *fakeBackupService) Restore(_ context.Context, id string) (*backup.RestoreResult, error) {
	f.restored = append(f.restored, id)
	return &backup.RestoreResult{BackupID: id, SafetyBackupID: "safety", Accounts: 1, Transactions: 3}, nil
}

func sendBackup(t *testing.T, m BackupsModel, msg tea.Msg) (BackupsModel, tea.Cmd) {
	t.Helper()

	next, cmd := m.Update(msg)
	bm, ok := next.(BackupsModel)
	require.True(t, ok)

	return bm, cmd
}

func TestBackupsModel(t *testing.T) {
	svc := &fakeBackupService{manifests: []*backup.Manifest{{
		ID:        "20240301T100000Z-abc",
		Reason:    "sync-execute",
		CreatedAt: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
		Accounts:  []backup.ManifestAccount{{AccountID: 1, Transactions: 3}},
	}}}

	m := NewBackupsModel(svc)
	m, _ = sendBackup(t, m, m.Init()())

	require.False(t, m.loading)
	assert.Contains(t, m.View(), "sync-execute")

	t.Run("n creates a manual backup", func(t *testing.T) {
		next, cmd := sendBackup(t, m, key("n"))
		require.NotNil(t, cmd)
		assert.True(t, next.loading)

		next, _ = sendBackup(t, next, cmd())
		require.Len(t, svc.created, 1)
		assert.Equal(t, "manual", svc.created[0].Reason)
		assert.Contains(t, next.status, "Created backup new")
	})

	t.Run("R asks before restoring", func(t *testing.T) {
		next, _ := sendBackup(t, m, key("R"))

		assert.Equal(t, backupStateConfirm, next.state)
		assert.Empty(t, svc.restored)
	})

	t.Run("Restore reports the safety backup", func(t *testing.T) {
		next, _ := sendBackup(t, m, m.restoreCmd("20240301T100000Z-abc")())

		assert.Equal(t, []string{"20240301T100000Z-abc"}, svc.restored)
		assert.Contains(t, next.status, "safety")
	})
}
