package view

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/MrJamesThe3rd/ledgersync/internal/backup"
)

type BackupService interface {
	List() ([]*backup.Manifest, error)
	Create(ctx context.Context, req backup.Request) (*backup.Result, error)
	Restore(ctx context.Context, id string) (*backup.RestoreResult, error)
}

var _ View = BackupsModel{}

type backupState int

const (
	backupStateBrowse backupState = iota
	backupStateConfirm
)

type BackupsModel struct {
	service BackupService

	state     backupState
	table     table.Model
	manifests []*backup.Manifest
	form      *huh.Form

	loading bool
	err     error
	status  string
}

func NewBackupsModel(service BackupService) BackupsModel {
	columns := []table.Column{
		{Title: "ID", Width: 40},
		{Title: "Created", Width: 20},
		{Title: "Reason", Width: 24},
		{Title: "Accounts", Width: 9},
		{Title: "Transactions", Width: 13},
	}

	return BackupsModel{
		service: service,
		table:   newTable(columns),
		loading: true,
	}
}

func (m BackupsModel) Title() string { return "Backups" }
func (m BackupsModel) ShortHelp() string {
	if m.state == backupStateConfirm {
		return "Navigate form | Esc: cancel"
	}
	return "Esc: back | n: new backup | R: restore | r: refresh"
}

func (m BackupsModel) Init() tea.Cmd {
	return m.loadCmd()
}

func (m BackupsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case loadBackupsMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		m.manifests = msg.manifests
		m.refreshTable()
		return m, nil

	case backupDoneMsg:
		m.status = msg.status
		if msg.err != nil {
			m.status = fmt.Sprintf("Error: %v", msg.err)
		}
		m.state = backupStateBrowse
		m.form = nil
		m.loading = true
		m.table.Focus()
		return m, m.loadCmd()

	case tea.WindowSizeMsg:
		m.table.SetHeight(msg.Height - 10)
		return m, nil
	}

	switch m.state {
	case backupStateBrowse:
		return m.updateBrowse(msg)
	case backupStateConfirm:
		return m.updateConfirm(msg)
	}

	return m, nil
}

func (m BackupsModel) updateBrowse(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if ok {
		switch keyMsg.String() {
		case "esc":
			return m, Back
		case "r":
			m.loading = true
			return m, m.loadCmd()
		case "n":
			m.loading = true
			return m, m.createCmd()
		case "R":
			return m.enterConfirm()
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m BackupsModel) selected() *backup.Manifest {
	idx := m.table.Cursor()
	if idx < 0 || idx >= len(m.manifests) {
		return nil
	}

	return m.manifests[idx]
}

func (m BackupsModel) enterConfirm() (tea.Model, tea.Cmd) {
	man := m.selected()
	if man == nil {
		return m, nil
	}

	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Key("confirm").
				Title(fmt.Sprintf("Restore %d accounts from %s?",
					len(man.Accounts), man.CreatedAt.Local().Format(time.DateTime))).
				Description("Current transactions of those accounts are replaced. A safety backup is taken first.").
				Affirmative("Restore").
				Negative("Cancel"),
		),
	).WithWidth(45).WithShowHelp(false)

	m.state = backupStateConfirm
	m.table.Blur()
	return m, m.form.Init()
}

func (m BackupsModel) updateConfirm(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		if keyMsg.Type == tea.KeyEsc {
			return m.leaveConfirm(), nil
		}
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	switch m.form.State {
	case huh.StateAborted:
		return m.leaveConfirm(), nil
	case huh.StateCompleted:
		man := m.selected()
		if !m.form.GetBool("confirm") || man == nil {
			return m.leaveConfirm(), nil
		}
		return m, m.restoreCmd(man.ID)
	}

	return m, cmd
}

func (m BackupsModel) leaveConfirm() BackupsModel {
	m.state = backupStateBrowse
	m.form = nil
	m.table.Focus()
	return m
}

func (m BackupsModel) View() string {
	if m.loading {
		return lipgloss.NewStyle().Padding(2).Render("Loading backups...")
	}

	if m.err != nil {
		return lipgloss.NewStyle().Padding(2).Render(fmt.Sprintf("Error: %v", m.err))
	}

	content := boxed(m.table.View())

	if m.state == backupStateConfirm && m.form != nil {
		content = lipgloss.JoinHorizontal(lipgloss.Top, content,
			confirmPanel("Restore Backup", m.form.View()))
	}

	if m.status != "" {
		content = lipgloss.NewStyle().Faint(true).Render(m.status) + "\n" + content
	}

	return lipgloss.NewStyle().Padding(1).Render(content)
}

func (m *BackupsModel) refreshTable() {
	rows := make([]table.Row, 0, len(m.manifests))
	for _, man := range m.manifests {
		total := 0
		for _, acc := range man.Accounts {
			total += acc.Transactions
		}

		rows = append(rows, table.Row{
			man.ID,
			man.CreatedAt.Local().Format(time.DateTime),
			man.Reason,
			strconv.Itoa(len(man.Accounts)),
			strconv.Itoa(total),
		})
	}
	m.table.SetRows(rows)
}

// Messages

type loadBackupsMsg struct {
	manifests []*backup.Manifest
	err       error
}

func (m BackupsModel) loadCmd() tea.Cmd {
	return func() tea.Msg {
		manifests, err := m.service.List()
		return loadBackupsMsg{manifests: manifests, err: err}
	}
}

type backupDoneMsg struct {
	status string
	err    error
}

func (m BackupsModel) createCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		res, err := m.service.Create(ctx, backup.Request{Reason: "manual"})
		if err != nil {
			return backupDoneMsg{err: err}
		}

		return backupDoneMsg{status: fmt.Sprintf("Created backup %s", res.ID)}
	}
}

func (m BackupsModel) restoreCmd(id string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		res, err := m.service.Restore(ctx, id)
		if err != nil {
			return backupDoneMsg{err: err}
		}

		return backupDoneMsg{status: fmt.Sprintf("Restored %d transactions in %d accounts (previous state saved as %s)",
			res.Transactions, res.Accounts, res.SafetyBackupID)}
	}
}
