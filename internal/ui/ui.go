package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/versehub/internal/models"
	"github.com/desertthunder/versehub/internal/shared"
	"github.com/desertthunder/versehub/internal/tasks"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	RepositoryListView ViewState = iota
	ConfirmView
	ImportView
	ResultView
)

// Library is what the TUI needs from the library service.
type Library interface {
	DiscoverRepositories(ctx context.Context) ([]models.IndexEntry, error)
	ImportRepository(ctx context.Context, opts tasks.ImportOptions, progress chan<- tasks.ProgressUpdate) *tasks.ImportResult
}

// Model represents the TUI application state.
type Model struct {
	ctx      context.Context
	cancel   context.CancelFunc
	lib      Library
	view     ViewState
	direct   bool
	width    int
	height   int
	repoList list.Model
	loaded   bool
	opts     tasks.ImportOptions
	selected string

	progressChan chan tasks.ProgressUpdate
	resultChan   chan *tasks.ImportResult
	progress     tasks.ProgressUpdate
	result       *tasks.ImportResult
	err          error

	spinner spinner.Model
	bar     progress.Model
	help    help.Model
	keys    keyMap
}

// NewModel creates a TUI model. A non-empty opts.RepositoryURL skips the repository list.
func NewModel(ctx context.Context, lib Library, opts tasks.ImportOptions) *Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = styles.ok

	m := &Model{
		ctx:     ctx,
		lib:     lib,
		view:    RepositoryListView,
		opts:    opts,
		spinner: s,
		bar:     progress.New(progress.WithDefaultGradient()),
		help:    help.New(),
		keys:    newKeyMap(),
	}
	if opts.RepositoryURL != "" {
		m.direct = true
		m.selected = opts.RepositoryURL
		m.view = ConfirmView
	}
	return m
}

// Init fetches the repository list unless a location was given.
func (m *Model) Init() tea.Cmd {
	if m.direct {
		return nil
	}
	return tea.Batch(m.spinner.Tick, m.fetchRepositories())
}

// Result returns the finished import, or nil when none ran.
func (m *Model) Result() *tasks.ImportResult {
	return m.result
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.bar.Width = max(20, min(msg.Width-8, 80))
		if m.loaded {
			m.repoList.SetSize(msg.Width-4, msg.Height-8)
		}
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case RepositoryListView:
			return m.handleListKeys(msg)
		case ConfirmView:
			return m.handleConfirmKeys(msg)
		case ImportView:
			return m.handleImportKeys(msg)
		case ResultView:
			return m.handleResultKeys(msg)
		}

	case spinner.TickMsg:
		if m.view != ImportView && m.loaded {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case Msg:
		return m.handleMsg(msg)
	}

	return m.updateList(msg)
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgRepositoriesFetched:
		data := msg.data.(repositoriesFetched)
		if data.err != nil {
			m.err = data.err
			return m, nil
		}
		items := make([]list.Item, len(data.entries))
		for i, e := range data.entries {
			items[i] = repositoryItem{entry: e}
		}
		m.repoList = list.New(items, list.NewDefaultDelegate(), 0, 0)
		m.repoList.Title = "Available Repositories"
		m.repoList.SetSize(max(m.width-4, 20), max(m.height-8, 10))
		m.loaded = true
		return m, nil

	case MsgProgressUpdate:
		m.progress = msg.data.(tasks.ProgressUpdate)
		return m, m.waitForProgress()

	case MsgImportComplete:
		m.result = msg.data.(*tasks.ImportResult)
		m.view = ResultView
		m.progressChan = nil
		m.resultChan = nil
		if m.cancel != nil {
			m.cancel()
			m.cancel = nil
		}
		return m, nil
	}
	return m, nil
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	if m.err != nil {
		return styles.err.Render(fmt.Sprintf("Error: %v", m.err)) + "\n\n" + m.help.ShortHelpView([]key.Binding{m.keys.quit})
	}

	switch m.view {
	case RepositoryListView:
		return m.renderList()
	case ConfirmView:
		return m.renderConfirm()
	case ImportView:
		return m.renderImport()
	case ResultView:
		return m.renderResult()
	default:
		return ""
	}
}

func (m *Model) handleListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if !m.loaded {
		if key.Matches(msg, m.keys.quit) {
			return m, tea.Quit
		}
		return m, nil
	}
	if m.repoList.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.repoList, cmd = m.repoList.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.enter):
		if item, ok := m.repoList.SelectedItem().(repositoryItem); ok {
			m.selected = item.entry.URL
			m.opts.RepositoryURL = item.entry.URL
			m.view = ConfirmView
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.repoList, cmd = m.repoList.Update(msg)
	return m, cmd
}

func (m *Model) handleConfirmKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.yes):
		m.view = ImportView
		return m, m.startImport()
	case key.Matches(msg, m.keys.checksums):
		m.opts.ValidateChecksums = !m.opts.ValidateChecksums
	case key.Matches(msg, m.keys.overwrite):
		m.opts.OverwriteExisting = !m.opts.OverwriteExisting
	case key.Matches(msg, m.keys.no), key.Matches(msg, m.keys.back):
		if m.direct {
			return m, tea.Quit
		}
		m.view = RepositoryListView
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	}
	return m, nil
}

func (m *Model) handleImportKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.cancel) && m.cancel != nil {
		m.cancel()
	}
	return m, nil
}

func (m *Model) handleResultKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.restart):
		m.result = nil
		m.progress = tasks.ProgressUpdate{}
		if m.direct {
			m.view = ConfirmView
			return m, nil
		}
		m.view = RepositoryListView
		return m, nil
	}
	return m, nil
}

func (m *Model) updateList(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.view != RepositoryListView || !m.loaded {
		return m, nil
	}
	var cmd tea.Cmd
	m.repoList, cmd = m.repoList.Update(msg)
	return m, cmd
}

func (m *Model) fetchRepositories() tea.Cmd {
	return func() tea.Msg {
		entries, err := m.lib.DiscoverRepositories(m.ctx)
		return repositoriesFetchedMsg(entries, err)
	}
}

// startImport runs the import in the background; the progress channel closes once the result is ready.
func (m *Model) startImport() tea.Cmd {
	ctx, cancel := context.WithCancel(m.ctx)
	m.cancel = cancel
	m.progressChan = make(chan tasks.ProgressUpdate, 50)
	m.resultChan = make(chan *tasks.ImportResult, 1)

	progressChan, resultChan, opts := m.progressChan, m.resultChan, m.opts
	go func() {
		resultChan <- m.lib.ImportRepository(ctx, opts, progressChan)
		close(progressChan)
	}()

	return tea.Batch(m.spinner.Tick, m.waitForProgress())
}

func (m *Model) waitForProgress() tea.Cmd {
	progressChan, resultChan := m.progressChan, m.resultChan
	return func() tea.Msg {
		if progressChan == nil {
			return nil
		}
		update, ok := <-progressChan
		if !ok {
			return importCompleteMsg(<-resultChan)
		}
		return progressUpdateMsg(update)
	}
}

func (m *Model) renderList() string {
	if !m.loaded {
		return fmt.Sprintf("%s Discovering repositories...", m.spinner.View())
	}
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.enter, m.keys.quit})
	return fmt.Sprintf("%s\n\n%s", m.repoList.View(), helpView)
}

func (m *Model) renderConfirm() string {
	title := styles.title.Render("Import repository?")
	info := fmt.Sprintf(
		"Location:           %s\nValidate checksums: %s\nOverwrite existing: %s\n",
		m.selected, onOff(m.opts.ValidateChecksums), onOff(m.opts.OverwriteExisting),
	)

	helpKeys := []key.Binding{m.keys.yes, m.keys.no, m.keys.checksums, m.keys.overwrite}
	return fmt.Sprintf("%s\n%s\n%s", title, info, m.help.ShortHelpView(helpKeys))
}

func (m *Model) renderImport() string {
	title := styles.title.Render("Importing " + m.selected)

	stage := string(m.progress.Stage)
	if stage == "" {
		stage = "starting"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\n", title)
	fmt.Fprintf(&b, "%s %s %s\n\n", m.spinner.View(), styles.stage.Render(stage), m.progress.Message)
	fmt.Fprintf(&b, "%s\n", m.bar.ViewAs(float64(m.progress.Progress)/100))
	if m.progress.TotalBooks > 0 {
		fmt.Fprintf(&b, "\nBooks: %d/%d\n", m.progress.ProcessedBooks, m.progress.TotalBooks)
	}
	fmt.Fprintf(&b, "\n%s", m.help.ShortHelpView([]key.Binding{m.keys.cancel}))
	return b.String()
}

func (m *Model) renderResult() string {
	r := m.result
	if r == nil {
		return styles.err.Render("No result available") + "\n\n" + m.help.ShortHelpView([]key.Binding{m.keys.restart, m.keys.quit})
	}

	var b strings.Builder
	switch {
	case r.Success:
		b.WriteString(styles.ok.Render("✓ Import Complete!"))
		fmt.Fprintf(&b, "\n\nRepository:   %s\nBooks:        %d\nVerses:       %d\nTranslations: %d\nDuration:     %s\n",
			r.RepositoryID, r.BooksImported, r.VersesImported, r.TranslationsImported, shared.FormatDuration(r.DurationMS))
	case r.Cancelled:
		b.WriteString(styles.warn.Render("Import cancelled; no changes were saved"))
		b.WriteString("\n")
	default:
		b.WriteString(styles.err.Render("✗ Import failed; no changes were saved"))
		b.WriteString("\n")
	}

	if len(r.Errors) > 0 && !r.Cancelled {
		b.WriteString("\n")
		for _, e := range r.Errors {
			fmt.Fprintf(&b, "  %s\n", styles.err.Render("• "+e))
		}
	}
	if len(r.Warnings) > 0 {
		fmt.Fprintf(&b, "\n%s\n", styles.warn.Render(fmt.Sprintf("%d warnings:", len(r.Warnings))))
		for _, w := range r.Warnings {
			fmt.Fprintf(&b, "  • %s\n", w)
		}
	}

	helpView := m.help.ShortHelpView([]key.Binding{m.keys.restart, m.keys.quit})
	return fmt.Sprintf("%s\n%s", b.String(), helpView)
}

func onOff(b bool) string {
	if b {
		return styles.ok.Render("on")
	}
	return styles.help.Render("off")
}
