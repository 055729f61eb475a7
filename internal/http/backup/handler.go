package backup

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/MrJamesThe3rd/ledgersync/internal/backup"
	"github.com/MrJamesThe3rd/ledgersync/internal/ledger"
)

type Handler struct {
	svc *backup.Service
}

func NewHandler(svc *backup.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Post("/{id}/restore", h.restore)
}

type manifestResponse struct {
	ID        string                   `json:"id"`
	Reason    string                   `json:"reason"`
	Direction string                   `json:"direction,omitempty"`
	CreatedAt time.Time                `json:"created_at"`
	Accounts  []backup.ManifestAccount `json:"accounts"`
}

func (h *Handler) list(w http.ResponseWriter, _ *http.Request) {
	manifests, err := h.svc.List()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	resp := make([]manifestResponse, 0, len(manifests))
	for _, m := range manifests {
		resp = append(resp, manifestResponse{
			ID:        m.ID,
			Reason:    m.Reason,
			Direction: m.Direction,
			CreatedAt: m.CreatedAt,
			Accounts:  m.Accounts,
		})
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

type createRequest struct {
	AccountIDs []int64 `json:"account_ids"`
	Reason     string  `json:"reason"`
}

type createResponse struct {
	ID        string    `json:"id"`
	Files     []string  `json:"files"`
	CreatedAt time.Time `json:"created_at"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
			return
		}
	}

	if req.Reason == "" {
		req.Reason = "manual"
	}

	res, err := h.svc.Create(r.Context(), backup.Request{AccountIDs: req.AccountIDs, Reason: req.Reason})
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)

	if err := json.NewEncoder(w).Encode(createResponse{ID: res.ID, Files: res.Files, CreatedAt: res.CreatedAt}); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

type restoreResponse struct {
	BackupID       string `json:"backup_id"`
	SafetyBackupID string `json:"safety_backup_id"`
	Accounts       int    `json:"accounts"`
	Transactions   int    `json:"transactions"`
}

func (h *Handler) restore(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	res, err := h.svc.Restore(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, backup.ErrNotFound):
			http.Error(w, err.Error(), http.StatusNotFound)
		case errors.Is(err, ledger.ErrNotFound):
			http.Error(w, err.Error(), http.StatusConflict)
		default:
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}

		return
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(restoreResponse{
		BackupID:       res.BackupID,
		SafetyBackupID: res.SafetyBackupID,
		Accounts:       res.Accounts,
		Transactions:   res.Transactions,
	}); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}
