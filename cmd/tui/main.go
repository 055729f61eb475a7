package main

import (
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/joho/godotenv"

	"github.com/MrJamesThe3rd/ledgersync/cmd/tui/internal/view"
	"github.com/MrJamesThe3rd/ledgersync/internal/backup"
	"github.com/MrJamesThe3rd/ledgersync/internal/config"
	"github.com/MrJamesThe3rd/ledgersync/internal/database"
	"github.com/MrJamesThe3rd/ledgersync/internal/duplicate"
	ledgerStore "github.com/MrJamesThe3rd/ledgersync/internal/ledger/store"
)

type model struct {
	duplicateEngine *duplicate.Engine
	backupService   *backup.Service

	currentView View

	duplicatesView view.DuplicatesModel
	backupsView    view.BackupsModel
}

type View int

const (
	ViewMenu       View = 0
	ViewDuplicates View = 1
	ViewBackups    View = 2
)

func initialModel() model {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	db, err := database.New(cfg.ConnectionString(), cfg.Pool())
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	// The TUI owns the terminal, so library logs are discarded.
	logger := slog.New(slog.DiscardHandler)
	store := ledgerStore.New(db, nil)

	dupEngine := duplicate.NewEngine(store, logger)
	backupSvc := backup.NewService(store, cfg.Backup.Dir, cfg.Backup.Keep, logger)

	return model{
		duplicateEngine: dupEngine,
		backupService:   backupSvc,
		currentView:     ViewMenu,
		duplicatesView:  view.NewDuplicatesModel(dupEngine),
		backupsView:     view.NewBackupsModel(backupSvc),
	}
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.currentView == ViewMenu {
			switch msg.String() {
			case "ctrl+c", "q":
				return m, tea.Quit
			case "1":
				m.currentView = ViewDuplicates
				m.duplicatesView = view.NewDuplicatesModel(m.duplicateEngine)

				return m, m.duplicatesView.Init()
			case "2":
				m.currentView = ViewBackups
				m.backupsView = view.NewBackupsModel(m.backupService)

				return m, m.backupsView.Init()
			}
		}
	case view.BackMsg:
		m.currentView = ViewMenu
		return m, nil
	}

	switch m.currentView {
	case ViewDuplicates:
		var newModel tea.Model
		newModel, cmd = m.duplicatesView.Update(msg)
		m.duplicatesView = newModel.(view.DuplicatesModel)
	case ViewBackups:
		var newModel tea.Model
		newModel, cmd = m.backupsView.Update(msg)
		m.backupsView = newModel.(view.BackupsModel)
	}

	return m, cmd
}

func (m model) View() string {
	switch m.currentView {
	case ViewMenu:
		return lipgloss.NewStyle().Padding(2).Render(
			"LedgerSync TUI\n\n" +
				"1. Review Duplicates\n" +
				"2. Manage Backups\n\n" +
				"q. Quit",
		)
	case ViewDuplicates:
		return m.duplicatesView.View() + "\n" + helpStyle.Render(m.duplicatesView.ShortHelp())
	case ViewBackups:
		return m.backupsView.View() + "\n" + helpStyle.Render(m.backupsView.ShortHelp())
	}

	return "Unknown View"
}

var helpStyle = lipgloss.NewStyle().Faint(true).PaddingLeft(1)

func main() {
	p := tea.NewProgram(initialModel())
	if _, err := p.Run(); err != nil {
		slog.Error("failed to run TUI", "error", err)
		os.Exit(1)
	}
}
