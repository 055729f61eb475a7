package backup_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/ledgersync/internal/backup"
	handler "github.com/MrJamesThe3rd/ledgersync/internal/http/backup"
	"github.com/MrJamesThe3rd/ledgersync/internal/ledger/memory"
)

func TestHandler(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	acc := store.AddAccount("Checking")
	store.Add(acc.ID, time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC), -450, "Coffee", "")

	router := chi.NewRouter()
	handler.NewHandler(backup.NewService(store, t.TempDir(), 0, nil)).Routes(router)

	do := func(method, path, body string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(method, path, strings.NewReader(body)))

		return rec
	}

	rec := do(http.MethodPost, "/", `{"reason":"before upgrade"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created struct {
		ID    string   `json:"id"`
		Files []string `json:"files"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&created))
	assert.ElementsMatch(t, []string{"account_1.csv", "manifest.json"}, created.Files)

	rec = do(http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var listed []struct {
		ID     string `json:"id"`
		Reason string `json:"reason"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&listed))
	require.Len(t, listed, 1)
	assert.Equal(t, created.ID, listed[0].ID)
	assert.Equal(t, "before upgrade", listed[0].Reason)

	_, err := store.ReplaceTransactions(ctx, acc.ID, nil)
	require.NoError(t, err)

	rec = do(http.MethodPost, "/"+created.ID+"/restore", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var restored struct {
		Accounts       int    `json:"accounts"`
		Transactions   int    `json:"transactions"`
		SafetyBackupID string `json:"safety_backup_id"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&restored))
	assert.Equal(t, 1, restored.Accounts)
	assert.Equal(t, 1, restored.Transactions)
	assert.NotEmpty(t, restored.SafetyBackupID)

	txs, err := store.ListAccountTransactions(ctx, acc.ID)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, "Coffee", txs[0].Description)

	assert.Equal(t, http.StatusNotFound, do(http.MethodPost, "/missing/restore", "").Code)
	assert.Equal(t, http.StatusCreated, do(http.MethodPost, "/", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(http.MethodPost, "/", "{").Code)
}
