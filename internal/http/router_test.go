package http_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	backupsvc "github.com/MrJamesThe3rd/ledgersync/internal/backup"
	duplicateengine "github.com/MrJamesThe3rd/ledgersync/internal/duplicate"
	apphttp "github.com/MrJamesThe3rd/ledgersync/internal/http"
	"github.com/MrJamesThe3rd/ledgersync/internal/http/account"
	"github.com/MrJamesThe3rd/ledgersync/internal/http/auth"
	"github.com/MrJamesThe3rd/ledgersync/internal/http/backup"
	"github.com/MrJamesThe3rd/ledgersync/internal/http/duplicate"
	"github.com/MrJamesThe3rd/ledgersync/internal/http/syncapi"
	"github.com/MrJamesThe3rd/ledgersync/internal/ledger/memory"
	"github.com/MrJamesThe3rd/ledgersync/internal/syncengine"
)

func TestRouter(t *testing.T) {
	secret := []byte("s3cret")
	store := memory.New()
	store.AddAccount("Checking")

	backups := backupsvc.NewService(store, t.TempDir(), 0, nil)

	router := apphttp.New(
		apphttp.Options{AllowedOrigins: []string{"https://app.example"}, AuthSecret: secret},
		account.NewHandler(store),
		duplicate.NewHandler(duplicateengine.NewEngine(store, nil)),
		syncapi.NewHandler(syncengine.NewEngine(store, backups, syncengine.Options{}, nil)),
		backup.NewHandler(backups),
	)

	token, err := auth.NewToken(secret, "pixel-8", time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		token      string
		wantStatus int
	}{
		{name: "Health", path: "/healthz", wantStatus: http.StatusNoContent},
		{name: "Accounts need a token", path: "/api/v1/accounts", wantStatus: http.StatusUnauthorized},
		{name: "Accounts with token", path: "/api/v1/accounts", token: token, wantStatus: http.StatusOK},
		{name: "Duplicates need a token", path: "/api/v1/duplicates", wantStatus: http.StatusUnauthorized},
		{name: "Duplicates with token", path: "/api/v1/duplicates", token: token, wantStatus: http.StatusOK},
		{
			name:       "Duplicate delete needs a token",
			method:     http.MethodPost,
			path:       "/api/v1/duplicates/delete",
			body:       `{"all":true}`,
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "Duplicate delete with token",
			method:     http.MethodPost,
			path:       "/api/v1/duplicates/delete",
			body:       `{"all":true}`,
			token:      token,
			wantStatus: http.StatusOK,
		},
		{name: "Snapshot needs a token", path: "/api/v1/sync/snapshot", wantStatus: http.StatusUnauthorized},
		{name: "Snapshot with token", path: "/api/v1/sync/snapshot", token: token, wantStatus: http.StatusOK},
		{name: "Backups need a token", path: "/api/v1/backups", wantStatus: http.StatusUnauthorized},
		{name: "Backups with token", path: "/api/v1/backups", token: token, wantStatus: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			method := tt.method
			if method == "" {
				method = http.MethodGet
			}

			req := httptest.NewRequest(method, tt.path, strings.NewReader(tt.body))
			if tt.body != "" {
				req.Header.Set("Content-Type", "application/json")
			}
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}

	t.Run("CORS preflight", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/api/v1/sync/prepare", nil)
		req.Header.Set("Origin", "https://app.example")
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, "https://app.example", rec.Header().Get("Access-Control-Allow-Origin"))
	})
}
