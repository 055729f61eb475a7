package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/ledgersync/internal/backup"
	"github.com/MrJamesThe3rd/ledgersync/internal/duplicate"
	"github.com/MrJamesThe3rd/ledgersync/internal/http/auth"
	"github.com/MrJamesThe3rd/ledgersync/internal/ledger"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer

	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)

	err := cmd.Execute()

	return out.String(), err
}

func TestTokenCmd(t *testing.T) {
	t.Run("Issues a verifiable token", func(t *testing.T) {
		t.Setenv("AUTH_SECRET", "s3cret")

		out, err := run(t, "token", "--device", "pixel-8", "--ttl", "1h")
		require.NoError(t, err)

		claims, err := auth.Parse([]byte("s3cret"), strings.TrimSpace(out))
		require.NoError(t, err)
		assert.Equal(t, "pixel-8", claims.Device)
		assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt.Time, time.Minute)
	})

	t.Run("Requires a secret", func(t *testing.T) {
		t.Setenv("AUTH_SECRET", "")

		_, err := run(t, "token", "--device", "pixel-8")
		assert.Error(t, err)
	})

	t.Run("Requires a device", func(t *testing.T) {
		t.Setenv("AUTH_SECRET", "s3cret")

		_, err := run(t, "token")
		assert.Error(t, err)
	})
}

func TestRenderGroups(t *testing.T) {
	d := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
	g := &duplicate.Group{
		ID: 1,
		Transactions: []*ledger.Transaction{
			{ID: 10, AccountID: 1, Date: d, Amount: -450, Description: "Coffee"},
			{ID: 11, AccountID: 1, Date: d, Amount: -450, Description: "coffee"},
		},
	}
	require.NoError(t, g.Keep(11))

	out := renderGroups([]*duplicate.Group{g})
	assert.Contains(t, out, "2024-01-05")
	assert.Contains(t, out, "-4.50")
	assert.Equal(t, 1, strings.Count(out, "*"))
}

func TestRenderManifests(t *testing.T) {
	out := renderManifests([]*backup.Manifest{{
		ID:     "abc",
		Reason: "sync-execute",
		Accounts: []backup.ManifestAccount{
			{AccountID: 1, Transactions: 3},
			{AccountID: 2, Transactions: 4},
		},
	}})

	assert.Contains(t, out, "abc")
	assert.Contains(t, out, "sync-execute")
	assert.Contains(t, out, "7")
}
