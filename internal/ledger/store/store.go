package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/MrJamesThe3rd/ledgersync/internal/ledger"
)

type Store struct {
	db       *sql.DB
	accounts *AccountCache
}

// New returns a Postgres-backed ledger. cache may be nil.
func New(db *sql.DB, cache *AccountCache) *Store {
	return &Store{db: db, accounts: cache}
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// Expected column order: id, account_id, date, amount, description, reason, category, created_at, modified_at
func scanTransaction(s scanner) (*ledger.Transaction, error) {
	var tx ledger.Transaction

	if err := s.Scan(
		&tx.ID, &tx.AccountID, &tx.Date, &tx.Amount, &tx.Description, &tx.Reason, &tx.Category,
		&tx.CreatedAt, &tx.ModifiedAt,
	); err != nil {
		return nil, err
	}

	return &tx, nil
}

func scanAccount(s scanner) (*ledger.Account, error) {
	var acc ledger.Account

	if err := s.Scan(&acc.ID, &acc.Name, &acc.InitialBalance, &acc.Icon, &acc.Color, &acc.CreatedAt); err != nil {
		return nil, err
	}

	return &acc, nil
}

const (
	selectTransactionColumns = `id, account_id, date, amount, description, reason, category, created_at, modified_at`
	selectAccountColumns     = `id, name, initial_balance, icon, color, created_at`
)

func (s *Store) queryTransactions(ctx context.Context, query string, args ...any) ([]*ledger.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var txs []*ledger.Transaction

	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning transaction: %w", err)
		}

		txs = append(txs, tx)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating transactions: %w", err)
	}

	return txs, nil
}

// ListTransactions returns every transaction across all accounts in insertion order.
func (s *Store) ListTransactions(ctx context.Context) ([]*ledger.Transaction, error) {
	query := `SELECT ` + selectTransactionColumns + ` FROM transactions ORDER BY id ASC`

	txs, err := s.queryTransactions(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing transactions: %w", err)
	}

	return txs, nil
}

func (s *Store) ListAccountTransactions(ctx context.Context, accountID int64) ([]*ledger.Transaction, error) {
	query := `SELECT ` + selectTransactionColumns + `
		FROM transactions
		WHERE account_id = $1
		ORDER BY date ASC, id ASC`

	txs, err := s.queryTransactions(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("listing account transactions: %w", err)
	}

	return txs, nil
}

const insertTransactionQuery = `
	INSERT INTO transactions (account_id, date, amount, description, reason, category, created_at, modified_at)
	VALUES ($1, $2, $3, $4, $5, $6, COALESCE($7, NOW()), $8)
	RETURNING id, created_at
`

func insertArgs(tx *ledger.Transaction) []any {
	var createdAt any
	if !tx.CreatedAt.IsZero() {
		createdAt = tx.CreatedAt
	}

	return []any{
		tx.AccountID,
		ledger.Day(tx.Date),
		tx.Amount,
		tx.Description,
		tx.Reason,
		tx.Category,
		createdAt,
		tx.ModifiedAt,
	}
}

func (s *Store) InsertTransaction(ctx context.Context, tx *ledger.Transaction) error {
	err := s.db.QueryRowContext(ctx, insertTransactionQuery, insertArgs(tx)...).Scan(&tx.ID, &tx.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting transaction: %w", err)
	}

	return nil
}

func (s *Store) DeleteTransaction(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting transaction: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting transaction: %w", err)
	}

	if n == 0 {
		return ledger.ErrNotFound
	}

	return nil
}

// ReplaceTransactions atomically swaps every transaction of the account for txs and returns how
// many were removed. Concurrent replaces of the same account are serialized.
func (s *Store) ReplaceTransactions(ctx context.Context, accountID int64, txs []*ledger.Transaction) (int64, error) {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer dbTx.Rollback()

	if _, err := dbTx.ExecContext(ctx, "SELECT pg_advisory_xact_lock($1)", accountID); err != nil {
		return 0, fmt.Errorf("acquiring account lock: %w", err)
	}

	res, err := dbTx.ExecContext(ctx, `DELETE FROM transactions WHERE account_id = $1`, accountID)
	if err != nil {
		return 0, fmt.Errorf("deleting account transactions: %w", err)
	}

	removed, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("deleting account transactions: %w", err)
	}

	stmt, err := dbTx.PrepareContext(ctx, insertTransactionQuery)
	if err != nil {
		return 0, fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, tx := range txs {
		tx.AccountID = accountID

		if err := stmt.QueryRowContext(ctx, insertArgs(tx)...).Scan(&tx.ID, &tx.CreatedAt); err != nil {
			return 0, fmt.Errorf("inserting transaction: %w", err)
		}
	}

	if err := dbTx.Commit(); err != nil {
		return 0, fmt.Errorf("committing transaction: %w", err)
	}

	return removed, nil
}

func (s *Store) ListAccounts(ctx context.Context) ([]*ledger.Account, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+selectAccountColumns+` FROM accounts ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("listing accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*ledger.Account

	for rows.Next() {
		acc, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning account: %w", err)
		}

		accounts = append(accounts, acc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating accounts: %w", err)
	}

	return accounts, nil
}

func (s *Store) GetAccount(ctx context.Context, id int64) (*ledger.Account, error) {
	if acc, ok := s.accounts.Get(id); ok {
		return acc, nil
	}

	query := `SELECT ` + selectAccountColumns + ` FROM accounts WHERE id = $1`

	acc, err := scanAccount(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ledger.ErrNotFound
		}

		return nil, fmt.Errorf("getting account: %w", err)
	}

	s.accounts.Set(acc)

	return acc, nil
}

func (s *Store) CreateAccount(ctx context.Context, acc *ledger.Account) error {
	query := `
		INSERT INTO accounts (name, initial_balance, icon, color, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING id, created_at
	`

	err := s.db.QueryRowContext(ctx, query, acc.Name, acc.InitialBalance, acc.Icon, acc.Color).
		Scan(&acc.ID, &acc.CreatedAt)
	if err != nil {
		return fmt.Errorf("creating account: %w", err)
	}

	s.accounts.Set(acc)

	return nil
}
