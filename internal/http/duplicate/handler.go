package duplicate

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/ledgersync/internal/duplicate"
	"github.com/MrJamesThe3rd/ledgersync/internal/ledger"
	"github.com/MrJamesThe3rd/ledgersync/internal/syncengine"
)

type Handler struct {
	engine *duplicate.Engine
}

func NewHandler(engine *duplicate.Engine) *Handler {
	return &Handler{engine: engine}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.detect)
	r.Post("/delete", h.delete)
}

type transactionResponse struct {
	ID          int64           `json:"id"`
	AccountID   int64           `json:"account_id"`
	Date        string          `json:"date"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	Reason      string          `json:"reason,omitempty"`
}

type groupResponse struct {
	ID              int                   `json:"id"`
	SimilarityScore float64               `json:"similarity_score"`
	KeepID          int64                 `json:"keep_id"`
	Transactions    []transactionResponse `json:"transactions"`
}

type detectResponse struct {
	Success              bool            `json:"success"`
	Error                string          `json:"error,omitempty"`
	TotalTransactions    int             `json:"total_transactions"`
	DuplicateGroupsFound int             `json:"duplicate_groups_found"`
	TotalDuplicates      int             `json:"total_duplicates"`
	ElapsedMS            int64           `json:"elapsed_ms"`
	Groups               []groupResponse `json:"groups"`
}

func (h *Handler) detect(w http.ResponseWriter, r *http.Request) {
	res := h.engine.DetectAll(r.Context())

	resp := detectResponse{
		Success:              res.Success,
		Error:                res.Error,
		TotalTransactions:    res.TotalTransactions,
		DuplicateGroupsFound: res.DuplicateGroupsFound,
		TotalDuplicates:      res.TotalDuplicates,
		ElapsedMS:            res.Elapsed.Milliseconds(),
		Groups:               make([]groupResponse, 0, len(res.Groups)),
	}

	for _, g := range res.Groups {
		resp.Groups = append(resp.Groups, toGroupResponse(g))
	}

	status := http.StatusOK
	if !res.Success {
		status = http.StatusInternalServerError
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// deleteRequest names, per group to clean up, the member to keep. With All set every detected group
// is cleaned and groups not named keep their first member.
type deleteRequest struct {
	KeepIDs []int64 `json:"keep_ids"`
	All     bool    `json:"all"`
}

type deleteResponse struct {
	Deleted int    `json:"deleted"`
	Groups  int    `json:"groups"`
	Error   string `json:"error,omitempty"`
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	var req deleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	if len(req.KeepIDs) == 0 && !req.All {
		http.Error(w, "keep_ids or all is required", http.StatusBadRequest)
		return
	}

	// Groups are re-detected so only current exact duplicates can be removed.
	res := h.engine.DetectAll(r.Context())
	if !res.Success {
		http.Error(w, res.Error, http.StatusInternalServerError)
		return
	}

	groups, err := duplicate.Select(res.Groups, req.KeepIDs)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, duplicate.ErrNotInGroup) {
			status = http.StatusConflict
		}

		http.Error(w, err.Error(), status)

		return
	}

	if req.All {
		groups = res.Groups
	}

	deleted, err := h.engine.DeleteDuplicates(r.Context(), groups)

	resp := deleteResponse{Deleted: deleted, Groups: len(groups)}
	status := http.StatusOK

	if err != nil {
		resp.Error = err.Error()
		status = http.StatusInternalServerError
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func toGroupResponse(g *duplicate.Group) groupResponse {
	resp := groupResponse{
		ID:              g.ID,
		SimilarityScore: g.SimilarityScore,
		Transactions:    make([]transactionResponse, 0, len(g.Transactions)),
	}

	if g.SelectedToKeep != nil {
		resp.KeepID = g.SelectedToKeep.ID
	}

	for _, tx := range g.Transactions {
		resp.Transactions = append(resp.Transactions, toTransactionResponse(tx))
	}

	return resp
}

func toTransactionResponse(tx *ledger.Transaction) transactionResponse {
	return transactionResponse{
		ID:          tx.ID,
		AccountID:   tx.AccountID,
		Date:        ledger.DayKey(tx.Date),
		Amount:      syncengine.CentsToDecimal(tx.Amount),
		Description: tx.Description,
		Reason:      tx.Reason,
	}
}
