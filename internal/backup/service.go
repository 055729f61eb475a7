package backup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/ledgersync/internal/ledger"
)

const (
	manifestFile = "manifest.json"
	tmpPrefix    = ".tmp-"
	dirLayout    = "20060102T150405Z"
)

type Repository interface {
	ListAccounts(ctx context.Context) ([]*ledger.Account, error)
	GetAccount(ctx context.Context, id int64) (*ledger.Account, error)
	ListAccountTransactions(ctx context.Context, accountID int64) ([]*ledger.Transaction, error)
	ReplaceTransactions(ctx context.Context, accountID int64, txs []*ledger.Transaction) (int64, error)
}

// Service writes point-in-time copies of account ledgers to disk.
type Service struct {
	dir    string
	keep   int
	repo   Repository
	logger *slog.Logger
	now    func() time.Time
}

// NewService creates a backup service rooted at dir. keep <= 0 disables pruning.
func NewService(repo Repository, dir string, keep int, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		dir:    dir,
		keep:   keep,
		repo:   repo,
		logger: logger,
		now:    time.Now,
	}
}

// Create snapshots the requested accounts. Files are written to a temporary directory that is
// renamed into place only once complete, so List never sees a partial backup.
func (s *Service) Create(ctx context.Context, req Request) (*Result, error) {
	accounts, err := s.resolveAccounts(ctx, req.AccountIDs)
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()
	createdAt := s.now().UTC()
	name := createdAt.Format(dirLayout) + "-" + id

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating backup root: %w", err)
	}

	tmp := filepath.Join(s.dir, tmpPrefix+name)
	if err := os.Mkdir(tmp, 0o755); err != nil {
		return nil, fmt.Errorf("creating backup directory: %w", err)
	}

	manifest := Manifest{
		ID:        id,
		Reason:    req.Reason,
		Direction: req.Direction,
		CreatedAt: createdAt,
		Accounts:  make([]ManifestAccount, 0, len(accounts)),
	}

	files := make([]string, 0, len(accounts)+1)

	for _, acc := range accounts {
		entry, err := s.writeAccount(ctx, tmp, acc)
		if err != nil {
			os.RemoveAll(tmp)
			return nil, err
		}

		manifest.Accounts = append(manifest.Accounts, entry)
		files = append(files, entry.File)
	}

	if err := writeManifest(filepath.Join(tmp, manifestFile), &manifest); err != nil {
		os.RemoveAll(tmp)
		return nil, err
	}

	files = append(files, manifestFile)

	final := filepath.Join(s.dir, name)
	if err := os.Rename(tmp, final); err != nil {
		os.RemoveAll(tmp)
		return nil, fmt.Errorf("finalising backup: %w", err)
	}

	s.logger.Info("backup created",
		"id", id, "path", final, "accounts", len(accounts), "reason", req.Reason, "direction", req.Direction)

	if s.keep > 0 {
		if _, err := s.Prune(s.keep); err != nil {
			s.logger.Error("failed to prune backups", "error", err)
		}
	}

	return &Result{
		ID:        id,
		Path:      final,
		Files:     files,
		CreatedAt: createdAt,
	}, nil
}

func (s *Service) resolveAccounts(ctx context.Context, ids []int64) ([]*ledger.Account, error) {
	if len(ids) == 0 {
		accounts, err := s.repo.ListAccounts(ctx)
		if err != nil {
			return nil, fmt.Errorf("listing accounts: %w", err)
		}

		return accounts, nil
	}

	accounts := make([]*ledger.Account, 0, len(ids))
	seen := make(map[int64]struct{}, len(ids))

	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}

		seen[id] = struct{}{}

		acc, err := s.repo.GetAccount(ctx, id)
		if err != nil {
			if errors.Is(err, ledger.ErrNotFound) {
				continue
			}

			return nil, fmt.Errorf("getting account %d: %w", id, err)
		}

		accounts = append(accounts, acc)
	}

	return accounts, nil
}

func (s *Service) writeAccount(ctx context.Context, dir string, acc *ledger.Account) (ManifestAccount, error) {
	txs, err := s.repo.ListAccountTransactions(ctx, acc.ID)
	if err != nil {
		return ManifestAccount{}, fmt.Errorf("listing transactions of account %d: %w", acc.ID, err)
	}

	rows := make([]*transactionRow, 0, len(txs))
	for _, tx := range txs {
		rows = append(rows, toRow(tx))
	}

	file := fmt.Sprintf("account_%d.csv", acc.ID)

	f, err := os.Create(filepath.Join(dir, file))
	if err != nil {
		return ManifestAccount{}, fmt.Errorf("creating %s: %w", file, err)
	}

	if err := writeCSV(f, rows); err != nil {
		return ManifestAccount{}, fmt.Errorf("writing %s: %w", file, err)
	}

	return ManifestAccount{
		AccountID:    acc.ID,
		Name:         acc.Name,
		File:         file,
		Transactions: len(txs),
	}, nil
}

// List returns every complete backup, newest first.
func (s *Service) List() ([]*Manifest, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}

		return nil, fmt.Errorf("reading backup root: %w", err)
	}

	var manifests []*Manifest

	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), tmpPrefix) {
			continue
		}

		path := filepath.Join(s.dir, e.Name())

		m, err := readManifest(filepath.Join(path, manifestFile))
		if err != nil {
			s.logger.Warn("skipping unreadable backup", "path", path, "error", err)
			continue
		}

		m.path = path
		manifests = append(manifests, m)
	}

	sort.Slice(manifests, func(i, j int) bool {
		return manifests[i].CreatedAt.After(manifests[j].CreatedAt)
	})

	return manifests, nil
}

func (s *Service) Get(id string) (*Manifest, error) {
	manifests, err := s.List()
	if err != nil {
		return nil, err
	}

	for _, m := range manifests {
		if m.ID == id {
			return m, nil
		}
	}

	return nil, ErrNotFound
}

// Prune deletes all but the newest keep backups and returns how many were removed.
func (s *Service) Prune(keep int) (int, error) {
	if keep <= 0 {
		return 0, nil
	}

	manifests, err := s.List()
	if err != nil {
		return 0, err
	}

	removed := 0

	for _, m := range manifests[min(keep, len(manifests)):] {
		if err := os.RemoveAll(m.path); err != nil {
			return removed, fmt.Errorf("removing backup %s: %w", m.ID, err)
		}

		removed++
	}

	if removed > 0 {
		s.logger.Info("backups pruned", "removed", removed, "kept", keep)
	}

	return removed, nil
}

// Restore replaces the transactions of every account in the backup with the backed-up copy. The
// current state of those accounts is itself backed up first; if that fails nothing is changed.
func (s *Service) Restore(ctx context.Context, id string) (*RestoreResult, error) {
	m, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	type pending struct {
		accountID int64
		txs       []*ledger.Transaction
	}

	loaded := make([]pending, 0, len(m.Accounts))
	ids := make([]int64, 0, len(m.Accounts))

	for _, entry := range m.Accounts {
		if _, err := s.repo.GetAccount(ctx, entry.AccountID); err != nil {
			return nil, fmt.Errorf("restoring account %d: %w", entry.AccountID, err)
		}

		rows, err := readRows(filepath.Join(m.path, entry.File))
		if err != nil {
			return nil, err
		}

		txs := make([]*ledger.Transaction, 0, len(rows))

		for _, row := range rows {
			tx, err := row.toTransaction(entry.AccountID)
			if err != nil {
				return nil, fmt.Errorf("account %d row %d: %w", entry.AccountID, row.ID, err)
			}

			txs = append(txs, tx)
		}

		loaded = append(loaded, pending{accountID: entry.AccountID, txs: txs})
		ids = append(ids, entry.AccountID)
	}

	res := &RestoreResult{BackupID: m.ID}

	if len(ids) > 0 {
		safety, err := s.Create(ctx, Request{AccountIDs: ids, Reason: "pre-restore " + m.ID})
		if err != nil {
			return nil, fmt.Errorf("backing up before restore: %w", err)
		}

		res.SafetyBackupID = safety.ID
	}

	for _, p := range loaded {
		if _, err := s.repo.ReplaceTransactions(ctx, p.accountID, p.txs); err != nil {
			return res, fmt.Errorf("restoring account %d: %w", p.accountID, err)
		}

		res.Accounts++
		res.Transactions += len(p.txs)
	}

	s.logger.Info("backup restored",
		"id", m.ID, "safety_backup", res.SafetyBackupID, "accounts", res.Accounts, "transactions", res.Transactions)

	return res, nil
}

// writeCSV marshals rows into w and closes it. A failed close fails the write.
func writeCSV(w io.WriteCloser, rows []*transactionRow) error {
	if err := gocsv.Marshal(&rows, w); err != nil {
		w.Close()
		return err
	}

	return w.Close()
}

func writeManifest(path string, m *Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding manifest: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing manifest: %w", err)
	}

	return nil
}

func readManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decoding manifest: %w", err)
	}

	return &m, nil
}

func readRows(path string) ([]*transactionRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", filepath.Base(path), err)
	}
	defer f.Close()

	var rows []*transactionRow
	if err := gocsv.UnmarshalFile(f, &rows); err != nil {
		if errors.Is(err, gocsv.ErrEmptyCSVFile) {
			return nil, nil
		}

		return nil, fmt.Errorf("reading %s: %w", filepath.Base(path), err)
	}

	return rows, nil
}

func toRow(tx *ledger.Transaction) *transactionRow {
	row := &transactionRow{
		ID:          tx.ID,
		Date:        ledger.DayKey(tx.Date),
		Amount:      tx.Amount,
		Description: tx.Description,
		Reason:      tx.Reason,
		Category:    tx.Category,
	}

	if !tx.CreatedAt.IsZero() {
		row.CreatedAt = tx.CreatedAt.UTC().Format(time.RFC3339)
	}

	if tx.ModifiedAt != nil {
		row.ModifiedAt = tx.ModifiedAt.UTC().Format(time.RFC3339)
	}

	return row
}

func (r *transactionRow) toTransaction(accountID int64) (*ledger.Transaction, error) {
	date, err := time.Parse(time.DateOnly, r.Date)
	if err != nil {
		return nil, fmt.Errorf("parsing date: %w", err)
	}

	tx := &ledger.Transaction{
		AccountID:   accountID,
		Date:        date,
		Amount:      r.Amount,
		Description: r.Description,
		Reason:      r.Reason,
		Category:    r.Category,
	}

	if r.CreatedAt != "" {
		if tx.CreatedAt, err = time.Parse(time.RFC3339, r.CreatedAt); err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
	}

	if r.ModifiedAt != "" {
		t, err := time.Parse(time.RFC3339, r.ModifiedAt)
		if err != nil {
			return nil, fmt.Errorf("parsing modified_at: %w", err)
		}

		tx.ModifiedAt = &t
	}

	return tx, nil
}
