package ui

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/versehub/internal/models"
	"github.com/desertthunder/versehub/internal/tasks"
)

type fakeLibrary struct {
	entries []models.IndexEntry
	err     error
	result  *tasks.ImportResult
	opts    tasks.ImportOptions
}

func (f *fakeLibrary) DiscoverRepositories(ctx context.Context) ([]models.IndexEntry, error) {
	return f.entries, f.err
}

func (f *fakeLibrary) ImportRepository(ctx context.Context, opts tasks.ImportOptions, progress chan<- tasks.ProgressUpdate) *tasks.ImportResult {
	f.opts = opts
	progress <- tasks.ProgressUpdate{Stage: tasks.Discovering, Progress: 10, Message: "Fetching manifest"}
	progress <- tasks.ProgressUpdate{Stage: tasks.Downloading, Progress: 50, TotalBooks: 2, ProcessedBooks: 1}
	if f.result != nil {
		return f.result
	}
	return &tasks.ImportResult{Success: true, RepositoryID: "kjv", BooksImported: 2, VersesImported: 40}
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func update(t *testing.T, m *Model, msg tea.Msg) tea.Cmd {
	t.Helper()
	next, cmd := m.Update(msg)
	if next != m {
		t.Fatal("expected Update to return the same model")
	}
	return cmd
}

// drain feeds progress messages back into the model until the import completes.
func drain(t *testing.T, m *Model) []tasks.ProgressUpdate {
	t.Helper()
	var seen []tasks.ProgressUpdate
	for range 10 {
		msg, ok := m.waitForProgress()().(Msg)
		if !ok {
			t.Fatal("expected a ui message")
		}
		if msg.kind == MsgProgressUpdate {
			seen = append(seen, msg.data.(tasks.ProgressUpdate))
		}
		update(t, m, msg)
		if m.view == ResultView {
			return seen
		}
	}
	t.Fatal("import never completed")
	return nil
}

func TestModel(t *testing.T) {
	t.Run("Direct Location", func(t *testing.T) {
		lib := &fakeLibrary{}
		m := NewModel(context.Background(), lib, tasks.ImportOptions{RepositoryURL: "https://example.com/kjv"})

		if m.view != ConfirmView {
			t.Fatalf("expected confirm view, got %d", m.view)
		}
		if m.Init() != nil {
			t.Error("expected no startup command when a location is given")
		}
		if !strings.Contains(m.View(), "https://example.com/kjv") {
			t.Errorf("expected location in confirm view, got %q", m.View())
		}
	})

	t.Run("Toggle Options", func(t *testing.T) {
		m := NewModel(context.Background(), &fakeLibrary{}, tasks.ImportOptions{RepositoryURL: "x"})

		update(t, m, runes("c"))
		update(t, m, runes("o"))
		if !m.opts.ValidateChecksums || !m.opts.OverwriteExisting {
			t.Errorf("expected both options on, got %+v", m.opts)
		}

		update(t, m, runes("c"))
		if m.opts.ValidateChecksums {
			t.Error("expected checksums toggled back off")
		}
	})

	t.Run("Decline Quits In Direct Mode", func(t *testing.T) {
		m := NewModel(context.Background(), &fakeLibrary{}, tasks.ImportOptions{RepositoryURL: "x"})

		cmd := update(t, m, runes("n"))
		if cmd == nil {
			t.Fatal("expected quit command")
		}
		if _, ok := cmd().(tea.QuitMsg); !ok {
			t.Error("expected tea.QuitMsg")
		}
	})

	t.Run("Import Success", func(t *testing.T) {
		lib := &fakeLibrary{}
		m := NewModel(context.Background(), lib, tasks.ImportOptions{RepositoryURL: "https://example.com/kjv"})
		update(t, m, runes("c"))

		if cmd := update(t, m, runes("y")); cmd == nil {
			t.Fatal("expected import command")
		}
		if m.view != ImportView {
			t.Fatalf("expected import view, got %d", m.view)
		}

		seen := drain(t, m)
		if len(seen) != 2 {
			t.Fatalf("expected 2 progress updates, got %d", len(seen))
		}
		if !lib.opts.ValidateChecksums {
			t.Error("expected checksum option passed to import")
		}
		if m.Result() == nil || !m.Result().Success {
			t.Fatalf("expected successful result, got %+v", m.Result())
		}

		view := m.View()
		if !strings.Contains(view, "Import Complete") {
			t.Errorf("expected completion message, got %q", view)
		}
		if !strings.Contains(view, "40") {
			t.Errorf("expected verse count in view, got %q", view)
		}
	})

	t.Run("Import Failure", func(t *testing.T) {
		lib := &fakeLibrary{result: &tasks.ImportResult{Errors: []string{"IntegrityError: checksum mismatch"}}}
		m := NewModel(context.Background(), lib, tasks.ImportOptions{RepositoryURL: "x"})
		update(t, m, runes("y"))
		drain(t, m)

		view := m.View()
		if !strings.Contains(view, "Import failed") {
			t.Errorf("expected failure message, got %q", view)
		}
		if !strings.Contains(view, "IntegrityError: checksum mismatch") {
			t.Errorf("expected error listed, got %q", view)
		}
	})

	t.Run("Progress View", func(t *testing.T) {
		m := NewModel(context.Background(), &fakeLibrary{}, tasks.ImportOptions{RepositoryURL: "x"})
		m.view = ImportView
		update(t, m, progressUpdateMsg(tasks.ProgressUpdate{
			Stage: tasks.Processing, Progress: 60, Message: "Processing Genesis", TotalBooks: 3, ProcessedBooks: 2,
		}))

		view := m.View()
		for _, want := range []string{"processing", "Processing Genesis", "Books: 2/3"} {
			if !strings.Contains(view, want) {
				t.Errorf("expected %q in view, got %q", want, view)
			}
		}
	})

	t.Run("Cancel During Import", func(t *testing.T) {
		m := NewModel(context.Background(), &fakeLibrary{}, tasks.ImportOptions{RepositoryURL: "x"})
		ctx, cancel := context.WithCancel(context.Background())
		m.view = ImportView
		m.cancel = cancel

		update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
		if ctx.Err() == nil {
			t.Error("expected import context cancelled")
		}
	})

	t.Run("Repository List", func(t *testing.T) {
		lib := &fakeLibrary{entries: []models.IndexEntry{
			{ID: "kjv", Name: "King James Version", URL: "https://example.com/kjv", Verified: true},
			{ID: "web", Name: "World English Bible", URL: "https://example.com/web"},
		}}
		m := NewModel(context.Background(), lib, tasks.ImportOptions{})
		update(t, m, tea.WindowSizeMsg{Width: 100, Height: 40})

		if !strings.Contains(m.View(), "Discovering") {
			t.Errorf("expected loading view, got %q", m.View())
		}

		update(t, m, m.fetchRepositories()())
		if !m.loaded {
			t.Fatal("expected list loaded")
		}

		update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
		if m.view != ConfirmView {
			t.Fatalf("expected confirm view, got %d", m.view)
		}
		if m.opts.RepositoryURL != "https://example.com/kjv" {
			t.Errorf("expected first entry selected, got %q", m.opts.RepositoryURL)
		}

		update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
		if m.view != RepositoryListView {
			t.Errorf("expected back to list, got %d", m.view)
		}
	})

	t.Run("Discovery Error", func(t *testing.T) {
		m := NewModel(context.Background(), &fakeLibrary{err: errors.New("all sources failed")}, tasks.ImportOptions{})
		update(t, m, m.fetchRepositories()())

		if !strings.Contains(m.View(), "all sources failed") {
			t.Errorf("expected error in view, got %q", m.View())
		}
		cmd := update(t, m, runes("q"))
		if cmd == nil {
			t.Fatal("expected quit command")
		}
	})
}

func TestRepositoryItem(t *testing.T) {
	item := repositoryItem{entry: models.IndexEntry{
		ID: "kjv", Name: "King James Version", Language: "en", License: "Public Domain", Verified: true, Source: "official",
	}}

	if item.Title() != "King James Version ✓" {
		t.Errorf("unexpected title %q", item.Title())
	}
	if item.Description() != "kjv • en • Public Domain • from official" {
		t.Errorf("unexpected description %q", item.Description())
	}
	if !strings.Contains(item.FilterValue(), "kjv") {
		t.Errorf("expected id in filter value, got %q", item.FilterValue())
	}
}
