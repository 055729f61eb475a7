package syncapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/MrJamesThe3rd/ledgersync/internal/http/auth"
	"github.com/MrJamesThe3rd/ledgersync/internal/syncengine"
)

const maxUploadSize = 10 << 20

type Handler struct {
	engine *syncengine.Engine
}

func NewHandler(engine *syncengine.Engine) *Handler {
	return &Handler{engine: engine}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/snapshot", h.snapshot)
	r.Post("/prepare", h.prepare)
	r.Post("/execute", h.execute)
	r.Post("/import-csv", h.importCSV)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) snapshot(w http.ResponseWriter, r *http.Request) {
	var ids []int64

	for _, raw := range r.URL.Query()["account_id"] {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			http.Error(w, "invalid account_id: "+raw, http.StatusBadRequest)
			return
		}

		ids = append(ids, id)
	}

	accounts, err := h.engine.Snapshot(r.Context(), ids)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, accounts)
}

func (h *Handler) prepare(w http.ResponseWriter, r *http.Request) {
	var req syncengine.PrepareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	if !req.Mode.Valid() {
		http.Error(w, syncengine.ErrInvalidMode.Error(), http.StatusBadRequest)
		return
	}

	device, _ := auth.Device(r.Context())
	slog.Info("sync prepare requested", "device", device, "direction", req.Direction, "mode", req.Mode)

	resp := h.engine.Prepare(r.Context(), req)

	status := http.StatusOK
	if !resp.Success {
		status = http.StatusInternalServerError
	}

	writeJSON(w, status, resp)
}

func (h *Handler) execute(w http.ResponseWriter, r *http.Request) {
	var req syncengine.ExecuteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	if !req.Mode.Valid() {
		http.Error(w, syncengine.ErrInvalidMode.Error(), http.StatusBadRequest)
		return
	}

	if req.Mode.Destructive() && !req.Confirmed {
		http.Error(w, syncengine.ErrConfirmationRequired.Error(), http.StatusConflict)
		return
	}

	device, _ := auth.Device(r.Context())
	slog.Info("sync execute requested", "device", device, "direction", req.Direction, "mode", req.Mode)

	// Per-account failures are reported in the body; the status only reflects whether the run happened.
	resp := h.engine.Execute(r.Context(), req)

	status := http.StatusOK
	if !resp.Success && len(resp.Results) == 0 {
		status = http.StatusInternalServerError
	}

	writeJSON(w, status, resp)
}

type importResponse struct {
	Account syncengine.SyncAccount `json:"account"`
	Charset string                 `json:"charset"`
	Skipped int                    `json:"skipped"`
}

// importCSV converts an uploaded account export into a SyncAccount ready for prepare/execute.
// Form fields: file, name, and optionally target_account_id.
func (h *Handler) importCSV(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		http.Error(w, "failed to parse form: "+err.Error(), http.StatusBadRequest)
		return
	}

	name := r.FormValue("name")
	if name == "" {
		http.Error(w, "name field is required", http.StatusBadRequest)
		return
	}

	var target *int64

	if raw := r.FormValue("target_account_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			http.Error(w, "invalid target_account_id: "+raw, http.StatusBadRequest)
			return
		}

		target = &id
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "file field is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	parsed, err := syncengine.ParseCSV(file)
	if err != nil {
		status := http.StatusBadRequest
		if !errors.Is(err, syncengine.ErrEmptyCSV) {
			status = http.StatusUnprocessableEntity
		}

		http.Error(w, err.Error(), status)

		return
	}

	account := syncengine.SyncAccount{
		Name:             name,
		Transactions:     parsed.Transactions,
		TransactionCount: len(parsed.Transactions),
		TargetAccountID:  target,
	}

	writeJSON(w, http.StatusOK, importResponse{
		Account: account,
		Charset: string(parsed.Charset),
		Skipped: parsed.Skipped,
	})
}
