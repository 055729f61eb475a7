// Package memory is an in-process ledger used by tests and dry runs.
package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/MrJamesThe3rd/ledgersync/internal/ledger"
)

type Store struct {
	mu       sync.Mutex
	nextID   int64
	accounts map[int64]*ledger.Account
	txs      []*ledger.Transaction

	// Fail, when set, is consulted before every mutating call with the operation name ("insert",
	// "delete", "replace", "create_account"); a non-nil return aborts it.
	Fail func(op string, accountID int64) error
}

func New() *Store {
	return &Store{nextID: 1, accounts: make(map[int64]*ledger.Account)}
}

func (s *Store) id() int64 {
	id := s.nextID
	s.nextID++

	return id
}

func (s *Store) fail(op string, accountID int64) error {
	if s.Fail == nil {
		return nil
	}

	return s.Fail(op, accountID)
}

// AddAccount seeds an account and returns it with its assigned ID.
func (s *Store) AddAccount(name string) *ledger.Account {
	s.mu.Lock()
	defer s.mu.Unlock()

	acc := &ledger.Account{ID: s.id(), Name: name, CreatedAt: time.Now()}
	s.accounts[acc.ID] = acc

	return acc
}

// Add seeds a transaction on accountID.
func (s *Store) Add(accountID int64, date time.Time, amount int64, desc, reason string) *ledger.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &ledger.Transaction{
		ID:          s.id(),
		AccountID:   accountID,
		Date:        date,
		Amount:      amount,
		Description: desc,
		Reason:      reason,
		CreatedAt:   time.Now(),
	}
	s.txs = append(s.txs, tx)

	return tx
}

func (s *Store) ListTransactions(_ context.Context) ([]*ledger.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return cloneAll(s.txs), nil
}

func (s *Store) ListAccountTransactions(_ context.Context, accountID int64) ([]*ledger.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*ledger.Transaction

	for _, tx := range s.txs {
		if tx.AccountID == accountID {
			out = append(out, clone(tx))
		}
	}

	return out, nil
}

func (s *Store) InsertTransaction(_ context.Context, tx *ledger.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fail("insert", tx.AccountID); err != nil {
		return err
	}

	if _, ok := s.accounts[tx.AccountID]; !ok {
		return ledger.ErrNotFound
	}

	tx.ID = s.id()
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now()
	}

	s.txs = append(s.txs, clone(tx))

	return nil
}

func (s *Store) DeleteTransaction(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := slices.IndexFunc(s.txs, func(tx *ledger.Transaction) bool { return tx.ID == id })
	if i < 0 {
		return ledger.ErrNotFound
	}

	if err := s.fail("delete", s.txs[i].AccountID); err != nil {
		return err
	}

	s.txs = slices.Delete(s.txs, i, i+1)

	return nil
}

// ReplaceTransactions swaps the account's transactions for txs. A Fail hook on "replace" leaves the
// account untouched.
func (s *Store) ReplaceTransactions(_ context.Context, accountID int64, txs []*ledger.Transaction) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fail("replace", accountID); err != nil {
		return 0, err
	}

	if _, ok := s.accounts[accountID]; !ok {
		return 0, ledger.ErrNotFound
	}

	before := len(s.txs)
	s.txs = slices.DeleteFunc(s.txs, func(tx *ledger.Transaction) bool { return tx.AccountID == accountID })
	removed := int64(before - len(s.txs))

	for _, tx := range txs {
		tx.AccountID = accountID
		tx.ID = s.id()

		if tx.CreatedAt.IsZero() {
			tx.CreatedAt = time.Now()
		}

		s.txs = append(s.txs, clone(tx))
	}

	return removed, nil
}

func (s *Store) ListAccounts(_ context.Context) ([]*ledger.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*ledger.Account, 0, len(s.accounts))
	for _, acc := range s.accounts {
		cp := *acc
		out = append(out, &cp)
	}

	slices.SortFunc(out, func(a, b *ledger.Account) int { return int(a.ID - b.ID) })

	return out, nil
}

func (s *Store) GetAccount(_ context.Context, id int64) (*ledger.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	acc, ok := s.accounts[id]
	if !ok {
		return nil, ledger.ErrNotFound
	}

	cp := *acc

	return &cp, nil
}

func (s *Store) CreateAccount(_ context.Context, acc *ledger.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fail("create_account", 0); err != nil {
		return err
	}

	acc.ID = s.id()
	acc.CreatedAt = time.Now()

	cp := *acc
	s.accounts[acc.ID] = &cp

	return nil
}

func clone(tx *ledger.Transaction) *ledger.Transaction {
	cp := *tx
	return &cp
}

func cloneAll(txs []*ledger.Transaction) []*ledger.Transaction {
	out := make([]*ledger.Transaction, 0, len(txs))
	for _, tx := range txs {
		out = append(out, clone(tx))
	}

	return out
}
