package duplicate

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/MrJamesThe3rd/ledgersync/internal/ledger"
)

//go:generate mockgen -source=engine.go -destination=repository_mock.go -package=duplicate
type Repository interface {
	ListTransactions(ctx context.Context) ([]*ledger.Transaction, error)
	DeleteTransaction(ctx context.Context, id int64) error
}

type Engine struct {
	repo   Repository
	logger *slog.Logger
}

func NewEngine(repo Repository, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}

	return &Engine{repo: repo, logger: logger}
}

// DetectAll loads the whole ledger and runs Detect over it.
func (e *Engine) DetectAll(ctx context.Context) *Result {
	start := time.Now()

	txs, err := e.repo.ListTransactions(ctx)
	if err != nil {
		e.logger.Error("failed to load transactions for duplicate detection", "error", err)

		return &Result{
			Error:   fmt.Sprintf("loading transactions: %v", err),
			Elapsed: time.Since(start),
		}
	}

	return e.Detect(ctx, txs)
}

// Detect groups exact duplicates. Each transaction ends up in at most one group; the first
// member discovered is selected to keep.
func (e *Engine) Detect(_ context.Context, txs []*ledger.Transaction) *Result {
	start := time.Now()

	res := &Result{
		Success:           true,
		TotalTransactions: len(txs),
		Groups:            []*Group{},
	}

	if len(txs) < 2 {
		res.Elapsed = time.Since(start)
		return res
	}

	for _, day := range groupByDay(txs) {
		if len(day) < 2 {
			continue
		}

		processed := make(map[int64]struct{}, len(day))

		for i, a := range day {
			if _, ok := processed[a.ID]; ok {
				continue
			}

			members := []*ledger.Transaction{a}

			for _, b := range day[i+1:] {
				if _, ok := processed[b.ID]; ok {
					continue
				}

				if !IsExactDuplicate(a, b) {
					continue
				}

				processed[b.ID] = struct{}{}
				members = append(members, b)
			}

			if len(members) < 2 {
				continue
			}

			processed[a.ID] = struct{}{}

			res.Groups = append(res.Groups, &Group{
				ID:              len(res.Groups) + 1,
				Transactions:    members,
				SimilarityScore: 1.0,
				SelectedToKeep:  a,
			})
			res.TotalDuplicates += len(members) - 1
		}
	}

	res.DuplicateGroupsFound = len(res.Groups)
	res.Elapsed = time.Since(start)

	e.logger.Info("duplicate detection finished",
		"transactions", res.TotalTransactions,
		"groups", res.DuplicateGroupsFound,
		"duplicates", res.TotalDuplicates,
		"elapsed", res.Elapsed,
	)

	return res
}

// DeleteDuplicates removes every non-kept member of each group. The first failing delete stops
// the run; the count of deletions already issued is returned alongside the error.
func (e *Engine) DeleteDuplicates(ctx context.Context, groups []*Group) (int, error) {
	deleted := 0

	for _, g := range groups {
		if (g.SelectedToKeep == nil || !g.has(g.SelectedToKeep.ID)) && len(g.Transactions) > 0 {
			g.SelectedToKeep = g.Transactions[0]
		}

		for _, tx := range g.ToDelete() {
			if err := e.repo.DeleteTransaction(ctx, tx.ID); err != nil {
				e.logger.Error("failed to delete duplicate",
					"group", g.ID, "transaction_id", tx.ID, "deleted", deleted, "error", err)

				return deleted, fmt.Errorf("deleting transaction %d of group %d: %w", tx.ID, g.ID, err)
			}

			deleted++
		}
	}

	e.logger.Info("duplicates deleted", "groups", len(groups), "deleted", deleted)

	return deleted, nil
}

// IsExactDuplicate reports whether a and b share the same day, amount and description.
// Reasons only disqualify when both sides carry one.
func IsExactDuplicate(a, b *ledger.Transaction) bool {
	if !ledger.SameDay(a.Date, b.Date) {
		return false
	}

	if a.Amount != b.Amount {
		return false
	}

	if normalize(a.Description) != normalize(b.Description) {
		return false
	}

	reasonA := normalize(a.Reason)
	reasonB := normalize(b.Reason)

	if reasonA != "" && reasonB != "" {
		return reasonA == reasonB
	}

	return true
}

// groupByDay buckets transactions by calendar day in first-seen order.
func groupByDay(txs []*ledger.Transaction) [][]*ledger.Transaction {
	index := make(map[string]int)

	var days [][]*ledger.Transaction

	for _, tx := range txs {
		key := ledger.DayKey(tx.Date)

		i, ok := index[key]
		if !ok {
			i = len(days)
			index[key] = i
			days = append(days, nil)
		}

		days[i] = append(days[i], tx)
	}

	return days
}
