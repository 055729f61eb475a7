package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/MrJamesThe3rd/ledgersync/internal/http/account"
	"github.com/MrJamesThe3rd/ledgersync/internal/http/auth"
	"github.com/MrJamesThe3rd/ledgersync/internal/http/backup"
	"github.com/MrJamesThe3rd/ledgersync/internal/http/duplicate"
	"github.com/MrJamesThe3rd/ledgersync/internal/http/syncapi"
)

type Options struct {
	AllowedOrigins []string
	// AuthSecret protects every /api/v1 route. Empty leaves them open.
	AuthSecret []byte
}

func New(
	opts Options,
	accountsV1 *account.Handler,
	duplicatesV1 *duplicate.Handler,
	syncV1 *syncapi.Handler,
	backupsV1 *backup.Handler,
) http.Handler {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: opts.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(auth.Middleware(opts.AuthSecret))

		r.Route("/accounts", accountsV1.Routes)

		r.Route("/duplicates", func(r chi.Router) {
			r.Use(middleware.AllowContentType("application/json"))
			duplicatesV1.Routes(r)
		})

		r.Route("/sync", syncV1.Routes)
		r.Route("/backups", backupsV1.Routes)
	})

	return router
}
