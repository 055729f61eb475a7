package view

import (
	"context"
	"fmt"
	"strconv"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/MrJamesThe3rd/ledgersync/internal/duplicate"
	"github.com/MrJamesThe3rd/ledgersync/internal/ledger"
)

type DuplicateEngine interface {
	DetectAll(ctx context.Context) *duplicate.Result
	DeleteDuplicates(ctx context.Context, groups []*duplicate.Group) (int, error)
}

var _ View = DuplicatesModel{}

type dupState int

const (
	dupStateBrowse dupState = iota
	dupStateConfirm
)

// dupRow ties a table row back to the group member it shows.
type dupRow struct {
	group *duplicate.Group
	tx    *ledger.Transaction
}

type DuplicatesModel struct {
	engine DuplicateEngine

	state  dupState
	table  table.Model
	groups []*duplicate.Group
	rows   []dupRow
	form   *huh.Form

	// Groups the user marked with "x"; empty means every group.
	marked map[int]bool

	loading bool
	err     error
	status  string
	summary string
}

func NewDuplicatesModel(engine DuplicateEngine) DuplicatesModel {
	columns := []table.Column{
		{Title: "Group", Width: 6},
		{Title: "Keep", Width: 5},
		{Title: "Del", Width: 4},
		{Title: "ID", Width: 8},
		{Title: "Account", Width: 8},
		{Title: "Date", Width: 12},
		{Title: "Amount", Width: 12},
		{Title: "Description", Width: 40},
	}

	return DuplicatesModel{
		engine:  engine,
		table:   newTable(columns),
		marked:  make(map[int]bool),
		loading: true,
	}
}

func (m DuplicatesModel) Title() string { return "Duplicate Transactions" }
func (m DuplicatesModel) ShortHelp() string {
	if m.state == dupStateConfirm {
		return "Navigate form | Esc: cancel"
	}
	return "Esc: back | enter: keep row | x: mark group | D: delete | r: refresh"
}

func (m DuplicatesModel) Init() tea.Cmd {
	return m.loadCmd()
}

func (m DuplicatesModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case loadDuplicatesMsg:
		m.loading = false
		if msg.res.Error != "" {
			m.err = fmt.Errorf("%s", msg.res.Error)
			return m, nil
		}
		m.err = nil
		m.groups = msg.res.Groups
		m.marked = make(map[int]bool)
		m.summary = fmt.Sprintf("%d transactions scanned, %d groups, %d duplicates",
			msg.res.TotalTransactions, msg.res.DuplicateGroupsFound, msg.res.TotalDuplicates)
		m.refreshTable()
		return m, nil

	case deleteDuplicatesMsg:
		m.status = fmt.Sprintf("Deleted %d transactions", msg.deleted)
		if msg.err != nil {
			m.status = fmt.Sprintf("Deleted %d transactions before failing: %v", msg.deleted, msg.err)
		}
		m.state = dupStateBrowse
		m.form = nil
		m.loading = true
		m.table.Focus()
		return m, m.loadCmd()

	case tea.WindowSizeMsg:
		m.table.SetHeight(msg.Height - 10)
		return m, nil
	}

	switch m.state {
	case dupStateBrowse:
		return m.updateBrowse(msg)
	case dupStateConfirm:
		return m.updateConfirm(msg)
	}

	return m, nil
}

func (m DuplicatesModel) updateBrowse(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if ok {
		switch keyMsg.String() {
		case "esc":
			return m, Back
		case "r":
			m.loading = true
			return m, m.loadCmd()
		case "enter":
			m.keepSelected()
			return m, nil
		case "x":
			m.toggleMark()
			return m, nil
		case "D":
			return m.enterConfirm()
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m *DuplicatesModel) selectedRow() (dupRow, bool) {
	idx := m.table.Cursor()
	if idx < 0 || idx >= len(m.rows) {
		return dupRow{}, false
	}

	return m.rows[idx], true
}

func (m *DuplicatesModel) keepSelected() {
	row, ok := m.selectedRow()
	if !ok {
		return
	}

	if err := row.group.Keep(row.tx.ID); err != nil {
		m.status = err.Error()
		return
	}

	m.refreshTable()
}

func (m *DuplicatesModel) toggleMark() {
	row, ok := m.selectedRow()
	if !ok {
		return
	}

	if m.marked[row.group.ID] {
		delete(m.marked, row.group.ID)
	} else {
		m.marked[row.group.ID] = true
	}

	m.refreshTable()
}

// targets returns the groups a delete would act on.
func (m DuplicatesModel) targets() []*duplicate.Group {
	if len(m.marked) == 0 {
		return m.groups
	}

	out := make([]*duplicate.Group, 0, len(m.marked))
	for _, g := range m.groups {
		if m.marked[g.ID] {
			out = append(out, g)
		}
	}

	return out
}

func (m DuplicatesModel) enterConfirm() (tea.Model, tea.Cmd) {
	groups := m.targets()
	if len(groups) == 0 {
		m.status = "Nothing to delete"
		return m, nil
	}

	n := 0
	for _, g := range groups {
		n += len(g.ToDelete())
	}

	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Key("confirm").
				Title(fmt.Sprintf("Delete %d transactions from %d groups?", n, len(groups))).
				Affirmative("Delete").
				Negative("Cancel"),
		),
	).WithWidth(45).WithShowHelp(false)

	m.state = dupStateConfirm
	m.table.Blur()
	return m, m.form.Init()
}

func (m DuplicatesModel) updateConfirm(msg tea.Msg) (tea.Model, tea.Cmd) {
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
		if !m.form.GetBool("confirm") {
			return m.leaveConfirm(), nil
		}
		return m, m.deleteCmd(m.targets())
	}

	return m, cmd
}

func (m DuplicatesModel) leaveConfirm() DuplicatesModel {
	m.state = dupStateBrowse
	m.form = nil
	m.table.Focus()
	return m
}

func (m DuplicatesModel) View() string {
	if m.loading {
		return lipgloss.NewStyle().Padding(2).Render("Scanning for duplicates...")
	}

	if m.err != nil {
		return lipgloss.NewStyle().Padding(2).Render(fmt.Sprintf("Error: %v", m.err))
	}

	if len(m.groups) == 0 {
		return lipgloss.NewStyle().Padding(2).Render(m.summary + "\n\nNo duplicates found. Press esc to go back.")
	}

	scope := "all groups"
	if len(m.marked) > 0 {
		scope = fmt.Sprintf("%d marked groups", len(m.marked))
	}

	header := fmt.Sprintf("%s | Delete scope: %s", m.summary, activeStyle(scope))

	content := lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.NewStyle().PaddingBottom(1).Render(header),
		boxed(m.table.View()),
	)

	if m.state == dupStateConfirm && m.form != nil {
		content = lipgloss.JoinHorizontal(lipgloss.Top, content,
			confirmPanel("Delete Duplicates", m.form.View()))
	}

	if m.status != "" {
		content = lipgloss.NewStyle().Faint(true).Render(m.status) + "\n" + content
	}

	return lipgloss.NewStyle().Padding(1).Render(content)
}

func (m *DuplicatesModel) refreshTable() {
	m.rows = make([]dupRow, 0, 2*len(m.groups))
	rows := make([]table.Row, 0, 2*len(m.groups))

	for _, g := range m.groups {
		keepID := int64(0)
		if g.SelectedToKeep != nil {
			keepID = g.SelectedToKeep.ID
		}

		del := ""
		if m.marked[g.ID] {
			del = "x"
		}

		for _, tx := range g.Transactions {
			keep := ""
			if tx.ID == keepID {
				keep = "*"
			}

			m.rows = append(m.rows, dupRow{group: g, tx: tx})
			rows = append(rows, table.Row{
				strconv.Itoa(g.ID),
				keep,
				del,
				strconv.FormatInt(tx.ID, 10),
				strconv.FormatInt(tx.AccountID, 10),
				FormatDate(tx.Date),
				FormatAmount(tx.Amount),
				tx.Description,
			})
		}
	}

	m.table.SetRows(rows)
}

// Messages

type loadDuplicatesMsg struct {
	res *duplicate.Result
}

func (m DuplicatesModel) loadCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		return loadDuplicatesMsg{res: m.engine.DetectAll(ctx)}
	}
}

type deleteDuplicatesMsg struct {
	deleted int
	err     error
}

func (m DuplicatesModel) deleteCmd(groups []*duplicate.Group) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		deleted, err := m.engine.DeleteDuplicates(ctx, groups)
		return deleteDuplicatesMsg{deleted: deleted, err: err}
	}
}
