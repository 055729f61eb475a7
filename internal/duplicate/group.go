package duplicate

import (
	"errors"
	"fmt"
	"time"

	"github.com/MrJamesThe3rd/ledgersync/internal/ledger"
)

var ErrNotInGroup = errors.New("not a member of any duplicate group")

// Group is a set of transactions judged identical, with one member retained.
type Group struct {
	ID              int
	Transactions    []*ledger.Transaction
	SimilarityScore float64
	SelectedToKeep  *ledger.Transaction
}

// Keep changes the retained member. id must belong to the group.
func (g *Group) Keep(id int64) error {
	for _, tx := range g.Transactions {
		if tx.ID == id {
			g.SelectedToKeep = tx
			return nil
		}
	}

	return fmt.Errorf("transaction %d is not a member of group %d", id, g.ID)
}

// ToDelete returns every member except the one selected to keep. A selection that is not a member
// counts as unset, so the first member is kept.
func (g *Group) ToDelete() []*ledger.Transaction {
	keep := g.SelectedToKeep
	if keep == nil || !g.has(keep.ID) {
		keep = nil
		if len(g.Transactions) > 0 {
			keep = g.Transactions[0]
		}
	}

	out := make([]*ledger.Transaction, 0, len(g.Transactions))

	for _, tx := range g.Transactions {
		if keep != nil && tx.ID == keep.ID {
			continue
		}

		out = append(out, tx)
	}

	return out
}

func (g *Group) has(id int64) bool {
	for _, tx := range g.Transactions {
		if tx.ID == id {
			return true
		}
	}

	return false
}

type Result struct {
	Success              bool
	TotalTransactions    int
	Groups               []*Group
	DuplicateGroupsFound int
	TotalDuplicates      int
	Elapsed              time.Duration
	Error                string
}

// Select returns the groups that contain one of keepIDs, each set to keep that member. Every id must
// belong to a group, and no group may be named twice.
func Select(groups []*Group, keepIDs []int64) ([]*Group, error) {
	byMember := make(map[int64]*Group)
	for _, g := range groups {
		for _, tx := range g.Transactions {
			byMember[tx.ID] = g
		}
	}

	chosen := make(map[int]struct{}, len(keepIDs))
	out := make([]*Group, 0, len(keepIDs))

	for _, id := range keepIDs {
		g, ok := byMember[id]
		if !ok {
			return nil, fmt.Errorf("transaction %d: %w", id, ErrNotInGroup)
		}

		if _, dup := chosen[g.ID]; dup {
			return nil, fmt.Errorf("group %d selected more than once", g.ID)
		}

		chosen[g.ID] = struct{}{}

		if err := g.Keep(id); err != nil {
			return nil, err
		}

		out = append(out, g)
	}

	return out, nil
}
