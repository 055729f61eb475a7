package main

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/MrJamesThe3rd/ledgersync/internal/backup"
	"github.com/MrJamesThe3rd/ledgersync/internal/database"
	"github.com/MrJamesThe3rd/ledgersync/internal/duplicate"
	"github.com/MrJamesThe3rd/ledgersync/internal/http/auth"
	"github.com/MrJamesThe3rd/ledgersync/internal/ledger"
	"github.com/MrJamesThe3rd/ledgersync/internal/syncengine"
)

var errAborted = errors.New("aborted")

func confirm(title string, yes bool) error {
	if yes {
		return nil
	}

	ok := false
	if err := huh.NewConfirm().Title(title).Affirmative("Yes").Negative("No").Value(&ok).Run(); err != nil {
		return fmt.Errorf("confirming: %w", err)
	}

	if !ok {
		return errAborted
	}

	return nil
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...)
}

func newMigrateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := a.open(); err != nil {
				return err
			}

			if err := database.Migrate(a.db); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")

			return nil
		},
	}
}

func newDuplicatesCmd(a *app) *cobra.Command {
	var (
		del  bool
		keep []int64
		yes  bool
	)

	cmd := &cobra.Command{
		Use:   "duplicates",
		Short: "List exact duplicate transactions, optionally deleting them",
		Long: `Lists groups of transactions sharing day, amount and description.
With --delete every non-kept member is removed; --keep picks the member to keep per group and,
when given, limits deletion to those groups.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := a.open()
			if err != nil {
				return err
			}

			engine := duplicate.NewEngine(store, a.logger)

			res := engine.DetectAll(cmd.Context())
			if !res.Success {
				return errors.New(res.Error)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%d transactions, %d groups, %d duplicates (%s)\n",
				res.TotalTransactions, res.DuplicateGroupsFound, res.TotalDuplicates, res.Elapsed.Round(time.Millisecond))

			if len(res.Groups) == 0 {
				return nil
			}

			groups := res.Groups
			if len(keep) > 0 {
				if groups, err = duplicate.Select(res.Groups, keep); err != nil {
					return err
				}
			}

			fmt.Fprintln(out, renderGroups(groups))

			if !del {
				return nil
			}

			if err := confirm(fmt.Sprintf("Delete duplicates from %d groups?", len(groups)), yes); err != nil {
				return err
			}

			deleted, err := engine.DeleteDuplicates(cmd.Context(), groups)
			fmt.Fprintf(out, "deleted %d transactions\n", deleted)

			return err
		},
	}

	cmd.Flags().BoolVar(&del, "delete", false, "delete every duplicate except the kept member")
	cmd.Flags().Int64SliceVar(&keep, "keep", nil, "transaction IDs to keep, one per group")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")

	return cmd
}

func renderGroups(groups []*duplicate.Group) string {
	t := newTable("Group", "Keep", "ID", "Account", "Date", "Amount", "Description", "Reason")

	for _, g := range groups {
		for _, tx := range g.Transactions {
			mark := ""
			if g.SelectedToKeep != nil && g.SelectedToKeep.ID == tx.ID {
				mark = "*"
			}

			t.Row(
				strconv.Itoa(g.ID),
				mark,
				strconv.FormatInt(tx.ID, 10),
				strconv.FormatInt(tx.AccountID, 10),
				ledger.DayKey(tx.Date),
				syncengine.CentsToDecimal(tx.Amount).StringFixed(2),
				tx.Description,
				tx.Reason,
			)
		}
	}

	return t.Render()
}

func newBackupCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Create, list, prune and restore ledger backups",
	}

	cmd.AddCommand(newBackupCreateCmd(a), newBackupListCmd(a), newBackupPruneCmd(a), newBackupRestoreCmd(a))

	return cmd
}

func newBackupCreateCmd(a *app) *cobra.Command {
	var (
		accounts []int64
		reason   string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Back up the given accounts, or all of them",
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := a.backups()
			if err != nil {
				return err
			}

			res, err := svc.Create(cmd.Context(), backup.Request{AccountIDs: accounts, Reason: reason})
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "backup %s written to %s\n", res.ID, res.Path)

			return nil
		},
	}

	cmd.Flags().Int64SliceVar(&accounts, "account", nil, "account IDs to back up (default all)")
	cmd.Flags().StringVar(&reason, "reason", "manual", "reason recorded in the manifest")

	return cmd
}

func newBackupListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List backups, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := a.backups()
			if err != nil {
				return err
			}

			manifests, err := svc.List()
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), renderManifests(manifests))

			return nil
		},
	}
}

func renderManifests(manifests []*backup.Manifest) string {
	t := newTable("ID", "Created", "Reason", "Direction", "Accounts", "Transactions")

	for _, m := range manifests {
		total := 0
		for _, acc := range m.Accounts {
			total += acc.Transactions
		}

		t.Row(
			m.ID,
			m.CreatedAt.Local().Format(time.DateTime),
			m.Reason,
			m.Direction,
			strconv.Itoa(len(m.Accounts)),
			strconv.Itoa(total),
		)
	}

	return t.Render()
}

func newBackupPruneCmd(a *app) *cobra.Command {
	var keep int

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete all but the newest backups",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if keep <= 0 {
				keep = a.cfg.Backup.Keep
			}

			svc, err := a.backups()
			if err != nil {
				return err
			}

			removed, err := svc.Prune(keep)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "removed %d backups, kept %d\n", removed, keep)

			return nil
		},
	}

	cmd.Flags().IntVar(&keep, "keep", 0, "number of backups to keep (default BACKUP_KEEP)")

	return cmd
}

func newBackupRestoreCmd(a *app) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "restore <id>",
		Short: "Replace the backed-up accounts' transactions with the backup's copy",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.backups()
			if err != nil {
				return err
			}

			m, err := svc.Get(args[0])
			if err != nil {
				return err
			}

			title := fmt.Sprintf("Restore %d accounts from backup taken %s?",
				len(m.Accounts), m.CreatedAt.Local().Format(time.DateTime))
			if err := confirm(title, yes); err != nil {
				return err
			}

			res, err := svc.Restore(cmd.Context(), m.ID)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "restored %d transactions in %d accounts (previous state saved as %s)\n",
				res.Transactions, res.Accounts, res.SafetyBackupID)

			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")

	return cmd
}

func newTokenCmd(a *app) *cobra.Command {
	var (
		device string
		ttl    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for a device to call the API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if a.cfg.Auth.Secret == "" {
				return errors.New("AUTH_SECRET is not set")
			}

			if ttl <= 0 {
				ttl = a.cfg.Auth.TokenTTL
			}

			token, err := auth.NewToken([]byte(a.cfg.Auth.Secret), device, ttl)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), token)

			return nil
		},
	}

	cmd.Flags().StringVar(&device, "device", "", "device name embedded in the token")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (default AUTH_TOKEN_TTL)")
	_ = cmd.MarkFlagRequired("device")

	return cmd
}
