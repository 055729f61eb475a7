package syncengine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/MrJamesThe3rd/ledgersync/internal/backup"
	"github.com/MrJamesThe3rd/ledgersync/internal/ledger"
)

var (
	ErrConfirmationRequired = errors.New("confirmation required for destructive sync")
	ErrInvalidMode          = errors.New("invalid sync mode")
)

//go:generate mockgen -source=engine.go -destination=repository_mock.go -package=syncengine
type Repository interface {
	ListAccounts(ctx context.Context) ([]*ledger.Account, error)
	GetAccount(ctx context.Context, id int64) (*ledger.Account, error)
	CreateAccount(ctx context.Context, acc *ledger.Account) error
	ListAccountTransactions(ctx context.Context, accountID int64) ([]*ledger.Transaction, error)
	InsertTransaction(ctx context.Context, tx *ledger.Transaction) error
	ReplaceTransactions(ctx context.Context, accountID int64, txs []*ledger.Transaction) (int64, error)
}

type Backuper interface {
	Create(ctx context.Context, req backup.Request) (*backup.Result, error)
}

type Options struct {
	// RequireBackup makes Execute abort before mutating anything when the backup fails.
	RequireBackup bool
}

type Engine struct {
	repo    Repository
	backups Backuper
	opts    Options
	logger  *slog.Logger
}

func NewEngine(repo Repository, backups Backuper, opts Options, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}

	return &Engine{repo: repo, backups: backups, opts: opts, logger: logger}
}

type backupOutcome struct {
	created bool
	path    string
	err     string
}

// backup snapshots every destination account the request maps onto. With no mapped accounts the
// whole destination store is copied.
func (e *Engine) backup(ctx context.Context, direction Direction, accounts []SyncAccount, reason string) backupOutcome {
	var ids []int64

	for _, acc := range accounts {
		if acc.TargetAccountID != nil {
			ids = append(ids, *acc.TargetAccountID)
		}
	}

	res, err := e.backups.Create(ctx, backup.Request{
		AccountIDs: ids,
		Reason:     reason,
		Direction:  string(direction),
	})
	if err != nil {
		e.logger.Error("failed to create sync backup", "reason", reason, "error", err)
		return backupOutcome{err: err.Error()}
	}

	return backupOutcome{created: true, path: res.Path}
}

type destination struct {
	account *ledger.Account
	txs     []*ledger.Transaction
}

// lookup resolves the destination account of acc. A nil destination means none exists yet.
func (e *Engine) lookup(ctx context.Context, acc SyncAccount) (*destination, error) {
	if acc.TargetAccountID == nil {
		return nil, nil
	}

	account, err := e.repo.GetAccount(ctx, *acc.TargetAccountID)
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			return nil, nil
		}

		return nil, fmt.Errorf("getting destination account %d: %w", *acc.TargetAccountID, err)
	}

	txs, err := e.repo.ListAccountTransactions(ctx, account.ID)
	if err != nil {
		return nil, fmt.Errorf("listing destination transactions of account %d: %w", account.ID, err)
	}

	return &destination{account: account, txs: txs}, nil
}

// Prepare backs up the destination and reports, per source account, how it compares with its
// destination. Nothing is mutated apart from the backup.
func (e *Engine) Prepare(ctx context.Context, req PrepareRequest) *PrepareResponse {
	resp := &PrepareResponse{Comparisons: []Comparison{}}

	if !req.Mode.Valid() {
		resp.Error = fmt.Sprintf("%v: %q", ErrInvalidMode, req.Mode)
		return resp
	}

	b := e.backup(ctx, req.Direction, req.Accounts, "sync-prepare")
	resp.BackupCreated, resp.BackupPath, resp.BackupError = b.created, b.path, b.err

	for _, acc := range req.Accounts {
		dest, err := e.lookup(ctx, acc)
		if err != nil {
			e.logger.Error("sync prepare failed", "account_id", acc.ID, "error", err)
			resp.Error = err.Error()

			return resp
		}

		cmp := compare(req.Mode, acc, dest)
		resp.Comparisons = append(resp.Comparisons, cmp)

		if cmp.HasWarning {
			resp.RequiresConfirmation = true
		}

		resp.TotalClassifiedTransactions += acc.ClassifiedCount
	}

	if req.Mode.Destructive() {
		resp.RequiresConfirmation = true
	}

	resp.HasClassificationWarning = resp.TotalClassifiedTransactions > 0
	resp.Success = true

	e.logger.Info("sync prepared",
		"direction", req.Direction,
		"mode", req.Mode,
		"accounts", len(req.Accounts),
		"requires_confirmation", resp.RequiresConfirmation,
		"backup_created", resp.BackupCreated,
	)

	return resp
}

func compare(mode Mode, acc SyncAccount, dest *destination) Comparison {
	cmp := Comparison{
		AccountID:       acc.ID,
		AccountName:     acc.Name,
		TargetAccountID: acc.TargetAccountID,
		Action:          mode,
		SourceCount:     len(acc.Transactions),
	}

	source := latestSourceDate(acc.Transactions)
	if source != nil {
		cmp.SourceLatestDate = new(ledger.DayKey(*source))
	}

	if dest == nil {
		cmp.Action = ModeCreateNew
		return cmp
	}

	cmp.DestinationExists = true
	cmp.DestinationCount = len(dest.txs)

	destLatest := ledger.LatestDate(dest.txs)
	if destLatest != nil {
		cmp.DestinationLatestDate = new(ledger.DayKey(*destLatest))
	}

	var warnings []string

	if cmp.DestinationCount > cmp.SourceCount {
		warnings = append(warnings,
			fmt.Sprintf("Destination has %d more transactions", cmp.DestinationCount-cmp.SourceCount))
	}

	if source != nil && destLatest != nil && destLatest.After(*source) {
		warnings = append(warnings, fmt.Sprintf("Destination has newer data (source %s, destination %s)",
			source.Format(warningDateLayout), destLatest.Format(warningDateLayout)))
	}

	if len(warnings) > 0 {
		cmp.HasWarning = true
		cmp.WarningMessage = strings.Join(warnings, ". ")
	}

	return cmp
}

const warningDateLayout = "02/01/2006"

// Execute applies mode to every account. Each account is independent: a failure is recorded in its
// result and the remaining accounts are still processed.
func (e *Engine) Execute(ctx context.Context, req ExecuteRequest) *ExecuteResponse {
	resp := &ExecuteResponse{Results: []AccountResult{}}

	if !req.Mode.Valid() {
		resp.Error = fmt.Sprintf("%v: %q", ErrInvalidMode, req.Mode)
		return resp
	}

	if req.Mode.Destructive() && !req.Confirmed {
		resp.Error = ErrConfirmationRequired.Error()
		return resp
	}

	b := e.backup(ctx, req.Direction, req.Accounts, "sync-execute")
	resp.BackupCreated, resp.BackupPath, resp.BackupError = b.created, b.path, b.err

	if !b.created && e.opts.RequireBackup {
		resp.Error = "backup failed, sync aborted: " + b.err
		return resp
	}

	failed := 0

	for _, acc := range req.Accounts {
		res := e.executeAccount(ctx, req.Mode, acc)
		if res.Status == StatusError {
			failed++
		}

		resp.Results = append(resp.Results, res)
		resp.TotalTransactionsProcessed += res.TransactionsProcessed
		resp.TotalDuplicatesSkipped += res.DuplicatesSkipped
		resp.TotalNewAdded += res.NewOnlyAdded
	}

	resp.Success = failed == 0
	if failed > 0 {
		resp.Error = fmt.Sprintf("%d of %d accounts failed", failed, len(req.Accounts))
	}

	e.logger.Info("sync executed",
		"direction", req.Direction,
		"mode", req.Mode,
		"accounts", len(req.Accounts),
		"failed", failed,
		"added", resp.TotalNewAdded,
		"skipped", resp.TotalDuplicatesSkipped,
	)

	return resp
}

func (e *Engine) executeAccount(ctx context.Context, mode Mode, acc SyncAccount) AccountResult {
	res := AccountResult{
		AccountID:             acc.ID,
		AccountName:           acc.Name,
		TransactionsProcessed: len(acc.Transactions),
	}

	if acc.TargetAccountID == nil {
		mode = ModeCreateNew
	}

	var err error

	switch mode {
	case ModeCreateNew:
		err = e.createNew(ctx, acc, &res)
	case ModeReplace:
		err = e.replace(ctx, acc, &res)
	case ModeMerge:
		err = e.merge(ctx, acc, &res)
	case ModeNewOnly:
		err = e.newOnly(ctx, acc, &res)
	}

	if err != nil {
		e.logger.Error("sync account failed", "account_id", acc.ID, "mode", mode, "error", err)

		res.Status = StatusError
		res.ErrorMessage = err.Error()
	}

	return res
}

func (e *Engine) destination(ctx context.Context, acc SyncAccount) (*destination, error) {
	dest, err := e.lookup(ctx, acc)
	if err != nil {
		return nil, err
	}

	if dest == nil {
		return nil, fmt.Errorf("destination account %d: %w", *acc.TargetAccountID, ledger.ErrNotFound)
	}

	return dest, nil
}

// insertAll converts and inserts every source transaction accepted by keep. Unparseable dates are
// counted in InvalidSkipped.
func (e *Engine) insertAll(ctx context.Context, accountID int64, sts []SyncTransaction, res *AccountResult,
	keep func(st SyncTransaction, tx *ledger.Transaction) bool,
) error {
	for _, st := range sts {
		tx, err := st.ToLedger(accountID)
		if err != nil {
			e.logger.Warn("skipping source transaction", "account_id", res.AccountID, "error", err)
			res.InvalidSkipped++

			continue
		}

		if keep != nil && !keep(st, tx) {
			continue
		}

		if err := e.repo.InsertTransaction(ctx, tx); err != nil {
			return fmt.Errorf("inserting transaction dated %s: %w", st.Date, err)
		}

		res.NewOnlyAdded++
	}

	return nil
}

func (e *Engine) createNew(ctx context.Context, acc SyncAccount, res *AccountResult) error {
	account := &ledger.Account{
		Name:           acc.Name,
		InitialBalance: DecimalToCents(acc.InitialBalance),
		Icon:           acc.Icon,
		Color:          acc.Color,
	}

	if err := e.repo.CreateAccount(ctx, account); err != nil {
		return fmt.Errorf("creating account %q: %w", acc.Name, err)
	}

	res.DestinationAccountID = account.ID

	if err := e.insertAll(ctx, account.ID, acc.Transactions, res, nil); err != nil {
		return err
	}

	res.Status = StatusCreated

	return nil
}

// replace swaps the destination's transactions for the source's in one step, so a failure leaves
// the destination as it was.
func (e *Engine) replace(ctx context.Context, acc SyncAccount, res *AccountResult) error {
	dest, err := e.destination(ctx, acc)
	if err != nil {
		return err
	}

	res.DestinationAccountID = dest.account.ID

	txs := make([]*ledger.Transaction, 0, len(acc.Transactions))

	for _, st := range acc.Transactions {
		tx, err := st.ToLedger(dest.account.ID)
		if err != nil {
			e.logger.Warn("skipping source transaction", "account_id", res.AccountID, "error", err)
			res.InvalidSkipped++

			continue
		}

		txs = append(txs, tx)
	}

	removed, err := e.repo.ReplaceTransactions(ctx, dest.account.ID, txs)
	if err != nil {
		return fmt.Errorf("replacing transactions of account %d: %w", dest.account.ID, err)
	}

	res.Removed = removed
	res.NewOnlyAdded = len(txs)
	res.Status = StatusReplaced

	return nil
}

func (e *Engine) merge(ctx context.Context, acc SyncAccount, res *AccountResult) error {
	dest, err := e.destination(ctx, acc)
	if err != nil {
		return err
	}

	res.DestinationAccountID = dest.account.ID

	err = e.insertAll(ctx, dest.account.ID, acc.Transactions, res, func(st SyncTransaction, _ *ledger.Transaction) bool {
		for _, existing := range dest.txs {
			if IsSyncDuplicate(st, existing) {
				res.DuplicatesSkipped++
				return false
			}
		}

		return true
	})
	if err != nil {
		return err
	}

	res.Status = StatusMerged

	return nil
}

func (e *Engine) newOnly(ctx context.Context, acc SyncAccount, res *AccountResult) error {
	dest, err := e.destination(ctx, acc)
	if err != nil {
		return err
	}

	res.DestinationAccountID = dest.account.ID
	cutoff := ledger.LatestDate(dest.txs)

	err = e.insertAll(ctx, dest.account.ID, acc.Transactions, res, func(_ SyncTransaction, tx *ledger.Transaction) bool {
		return cutoff == nil || ledger.Day(tx.Date).After(*cutoff)
	})
	if err != nil {
		return err
	}

	res.Status = StatusNewOnly

	return nil
}

// Snapshot exports local accounts in their portable form. With no ids every account is exported.
func (e *Engine) Snapshot(ctx context.Context, ids []int64) ([]SyncAccount, error) {
	var accounts []*ledger.Account

	if len(ids) == 0 {
		all, err := e.repo.ListAccounts(ctx)
		if err != nil {
			return nil, fmt.Errorf("listing accounts: %w", err)
		}

		accounts = all
	}

	for _, id := range ids {
		acc, err := e.repo.GetAccount(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("getting account %d: %w", id, err)
		}

		accounts = append(accounts, acc)
	}

	out := make([]SyncAccount, 0, len(accounts))

	for _, acc := range accounts {
		txs, err := e.repo.ListAccountTransactions(ctx, acc.ID)
		if err != nil {
			return nil, fmt.Errorf("listing transactions of account %d: %w", acc.ID, err)
		}

		out = append(out, BuildSyncAccount(acc, txs))
	}

	return out, nil
}
