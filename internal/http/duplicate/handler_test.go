package duplicate_test

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

	"github.com/MrJamesThe3rd/ledgersync/internal/duplicate"
	handler "github.com/MrJamesThe3rd/ledgersync/internal/http/duplicate"
	"github.com/MrJamesThe3rd/ledgersync/internal/ledger/memory"
)

func setup(t *testing.T) (*memory.Store, http.Handler) {
	t.Helper()

	store := memory.New()
	acc := store.AddAccount("Checking")
	d := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)

	store.Add(acc.ID, d, -450, "Coffee", "")    // 2
	store.Add(acc.ID, d, -450, "coffee ", "")   // 3
	store.Add(acc.ID, d, -1200, "Lunch", "")    // 4
	store.Add(acc.ID, d, -1200, "LUNCH", "")    // 5
	store.Add(acc.ID, d, -999, "Unrelated", "") // 6

	router := chi.NewRouter()
	handler.NewHandler(duplicate.NewEngine(store, nil)).Routes(router)

	return store, router
}

func do(router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(method, path, strings.NewReader(body)))

	return rec
}

func count(t *testing.T, store *memory.Store) int {
	t.Helper()

	txs, err := store.ListTransactions(context.Background())
	require.NoError(t, err)

	return len(txs)
}

func TestHandler_Detect(t *testing.T) {
	_, router := setup(t)

	rec := do(router, http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var got struct {
		Success              bool `json:"success"`
		TotalTransactions    int  `json:"total_transactions"`
		DuplicateGroupsFound int  `json:"duplicate_groups_found"`
		TotalDuplicates      int  `json:"total_duplicates"`
		Groups               []struct {
			ID           int   `json:"id"`
			KeepID       int64 `json:"keep_id"`
			Transactions []struct {
				ID     int64  `json:"id"`
				Date   string `json:"date"`
				Amount string `json:"amount"`
			} `json:"transactions"`
		} `json:"groups"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))

	assert.True(t, got.Success)
	assert.Equal(t, 5, got.TotalTransactions)
	assert.Equal(t, 2, got.DuplicateGroupsFound)
	assert.Equal(t, 2, got.TotalDuplicates)
	require.Len(t, got.Groups, 2)
	assert.Equal(t, int64(2), got.Groups[0].KeepID)
	assert.Equal(t, "2024-01-05", got.Groups[0].Transactions[0].Date)
	assert.Equal(t, "-4.5", got.Groups[0].Transactions[0].Amount)
}

func TestHandler_Delete(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantLeft   int
	}{
		{name: "Selected group only", body: `{"keep_ids":[3]}`, wantStatus: http.StatusOK, wantLeft: 4},
		{name: "All groups", body: `{"all":true,"keep_ids":[5]}`, wantStatus: http.StatusOK, wantLeft: 3},
		{name: "Not a duplicate", body: `{"keep_ids":[6]}`, wantStatus: http.StatusConflict, wantLeft: 5},
		{name: "Same group twice", body: `{"keep_ids":[2,3]}`, wantStatus: http.StatusBadRequest, wantLeft: 5},
		{name: "Nothing requested", body: `{}`, wantStatus: http.StatusBadRequest, wantLeft: 5},
		{name: "Malformed body", body: `{`, wantStatus: http.StatusBadRequest, wantLeft: 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, router := setup(t)

			rec := do(router, http.MethodPost, "/delete", tt.body)
			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			assert.Equal(t, tt.wantLeft, count(t, store))
		})
	}

	t.Run("Kept member survives", func(t *testing.T) {
		store, router := setup(t)

		rec := do(router, http.MethodPost, "/delete", `{"keep_ids":[3]}`)
		require.Equal(t, http.StatusOK, rec.Code)

		var got struct {
			Deleted int `json:"deleted"`
			Groups  int `json:"groups"`
		}
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
		assert.Equal(t, 1, got.Deleted)
		assert.Equal(t, 1, got.Groups)

		txs, err := store.ListTransactions(context.Background())
		require.NoError(t, err)

		var ids []int64
		for _, tx := range txs {
			ids = append(ids, tx.ID)
		}

		assert.Equal(t, []int64{3, 4, 5, 6}, ids)
	})
}
