package account

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/ledgersync/internal/ledger"
	"github.com/MrJamesThe3rd/ledgersync/internal/syncengine"
)

type Repository interface {
	ListAccounts(ctx context.Context) ([]*ledger.Account, error)
}

type Handler struct {
	repo Repository
}

func NewHandler(repo Repository) *Handler {
	return &Handler{repo: repo}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.list)
}

type accountResponse struct {
	ID             int64           `json:"id"`
	Name           string          `json:"name"`
	InitialBalance decimal.Decimal `json:"initial_balance"`
	Icon           string          `json:"icon,omitempty"`
	Color          string          `json:"color,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.repo.ListAccounts(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	resp := make([]accountResponse, 0, len(accounts))
	for _, acc := range accounts {
		resp = append(resp, accountResponse{
			ID:             acc.ID,
			Name:           acc.Name,
			InitialBalance: syncengine.CentsToDecimal(acc.InitialBalance),
			Icon:           acc.Icon,
			Color:          acc.Color,
			CreatedAt:      acc.CreatedAt,
		})
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}
