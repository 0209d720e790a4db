package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/desertthunder/versehub/internal/models"
	"github.com/desertthunder/versehub/internal/services"
	"github.com/desertthunder/versehub/internal/shared"
	tu "github.com/desertthunder/versehub/internal/testing"
)

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with all dependencies provided", func(t *testing.T) {
			config := shared.DefaultConfig()
			logger := shared.NewLogger(nil)
			output := &bytes.Buffer{}

			runner := NewRunner(RunnerOpts{
				Config:     config,
				ConfigPath: "/test/path/config.toml",
				Logger:     logger,
				Output:     output,
			})

			if runner.config != config {
				t.Error("expected config to be set")
			}
			if runner.logger != logger {
				t.Error("expected logger to be set")
			}
			if runner.output != output {
				t.Error("expected output to be set")
			}
			if runner.configPath != "/test/path/config.toml" {
				t.Errorf("expected configPath to be set, got %s", runner.configPath)
			}
		})

		t.Run("with nil logger uses default", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})

			if runner.logger == nil {
				t.Error("expected default logger to be set")
			}
		})

		t.Run("with nil output uses stdout", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})

			if runner.output != os.Stdout {
				t.Error("expected output to default to os.Stdout")
			}
		})

		t.Run("does not open the library", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})

			if runner.lib != nil {
				t.Error("expected library to open lazily")
			}
			if err := runner.Close(context.Background()); err != nil {
				t.Errorf("expected Close without library to succeed, got %v", err)
			}
		})
	})

	t.Run("writeJSON", func(t *testing.T) {
		t.Run("writes formatted JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, true); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			if !strings.Contains(result, `"key": "value"`) {
				t.Errorf("expected formatted JSON, got %s", result)
			}
			if !strings.HasSuffix(result, "\n") {
				t.Error("expected output to end with newline")
			}
		})

		t.Run("writes compact JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, false); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			expected := `{"key":"value"}` + "\n"
			if output.String() != expected {
				t.Errorf("expected %q, got %q", expected, output.String())
			}
		})

		t.Run("handles marshal error with non-serializable data", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}})

			err := runner.writeJSON(make(chan int), false)
			if err == nil {
				t.Fatal("expected error for non-serializable data")
			}
			if !strings.Contains(err.Error(), "failed to marshal JSON") {
				t.Errorf("expected marshal error, got %v", err)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil {
				t.Fatal("expected error from failing writer")
			}
			if !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})

		t.Run("handles newline write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: tu.NewLimitedWriter(1, &bytes.Buffer{})})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil {
				t.Fatal("expected error writing newline")
			}
			if !strings.Contains(err.Error(), "failed to write newline") {
				t.Errorf("expected newline write error, got %v", err)
			}
		})
	})

	t.Run("writePlain", func(t *testing.T) {
		t.Run("writes plain text successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writePlain("hello %s", "world"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if output.String() != "hello world" {
				t.Errorf("expected 'hello world', got %q", output.String())
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writePlain("test")
			if err == nil {
				t.Fatal("expected error from failing writer")
			}
			if !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})
	})

	t.Run("register", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{})
		commands := runner.register()

		if len(commands) == 0 {
			t.Error("expected at least one command to be registered")
		}

		names := map[string]bool{}
		for i, cmd := range commands {
			if cmd == nil {
				t.Fatalf("command at index %d is nil", i)
			}
			if names[cmd.Name] {
				t.Errorf("command %s registered twice", cmd.Name)
			}
			names[cmd.Name] = true
		}

		for _, want := range []string{"setup", "sources", "import", "repos", "read", "serve"} {
			if !names[want] {
				t.Errorf("expected command %s", want)
			}
		}
	})
}

func TestLoadConfig(t *testing.T) {
	t.Run("explicit config wins", func(t *testing.T) {
		config := shared.DefaultConfig()
		runner := NewRunner(RunnerOpts{Config: config, ConfigPath: "/does/not/exist.toml"})

		got, err := runner.loadConfig()
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if got != config {
			t.Error("expected explicit config returned")
		}
	})

	t.Run("missing file uses defaults", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{ConfigPath: filepath.Join(t.TempDir(), "config.toml")})

		got, err := runner.loadConfig()
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if got.Database.Path != shared.DefaultConfig().Database.Path {
			t.Errorf("expected default database path, got %s", got.Database.Path)
		}
	})

	t.Run("reads file", func(t *testing.T) {
		path := writeConfig(t, t.TempDir())
		runner := NewRunner(RunnerOpts{ConfigPath: path})

		got, err := runner.loadConfig()
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.HasSuffix(got.Database.Path, "library.db") {
			t.Errorf("expected database path from file, got %s", got.Database.Path)
		}
		if len(got.Sources) != 0 {
			t.Errorf("expected no sources, got %d", len(got.Sources))
		}
	})

	t.Run("invalid file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.toml")
		tu.MustWriteFile(t, path, []byte("[database\npath = "))
		runner := NewRunner(RunnerOpts{ConfigPath: path})

		if _, err := runner.loadConfig(); !errors.Is(err, shared.ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})
}

func writeConfig(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "config.toml")
	body := fmt.Sprintf("[database]\npath = %q\n\n[log]\nlevel = \"error\"\n", filepath.Join(dir, "data", "library.db"))
	tu.MustWriteFile(t, path, []byte(body))
	return path
}

type cliHarness struct {
	t      *testing.T
	config string
	output *bytes.Buffer
}

func newHarness(t *testing.T) *cliHarness {
	return &cliHarness{t: t, config: writeConfig(t, t.TempDir()), output: &bytes.Buffer{}}
}

// run executes one CLI invocation with a fresh runner, like a separate process would.
func (h *cliHarness) run(args ...string) (string, error) {
	h.t.Helper()
	h.output.Reset()

	runner := NewRunner(RunnerOpts{Logger: shared.NewLogger(&bytes.Buffer{}), Output: h.output})
	argv := append([]string{"versehub", "--config", h.config}, args...)
	err := newApp(runner).Run(context.Background(), argv)
	return h.output.String(), err
}

func (h *cliHarness) mustRun(args ...string) string {
	h.t.Helper()
	out, err := h.run(args...)
	if err != nil {
		h.t.Fatalf("%v failed: %v\n%s", args, err, out)
	}
	return out
}

func TestCommands(t *testing.T) {
	h := newHarness(t)

	pkg := t.TempDir()
	tu.WritePackage(t, pkg, tu.NewManifest("kjv", "gen", "exo"), tu.NewBook("gen", 2, 3), tu.NewBook("exo", 1, 4))

	t.Run("Setup", func(t *testing.T) {
		out := h.mustRun("setup")
		if !strings.Contains(out, "✓ Database ready") {
			t.Errorf("expected database ready message, got %q", out)
		}
		tu.AssertFileExists(t, filepath.Join(filepath.Dir(h.config), "data", "library.db"))
	})

	t.Run("Validate", func(t *testing.T) {
		out := h.mustRun("validate", pkg)
		if !strings.Contains(out, "VALID") || strings.Contains(out, "INVALID") {
			t.Errorf("expected VALID report, got %q", out)
		}

		broken := t.TempDir()
		m := tu.NewManifest("bad", "gen")
		m.Content.BooksCount = 5
		tu.WritePackage(t, broken, m, tu.NewBook("gen", 1, 1))

		out, err := h.run("validate", broken)
		if !errors.Is(err, shared.ErrValidation) {
			t.Errorf("expected ErrValidation, got %v", err)
		}
		if !strings.Contains(out, "INVALID") {
			t.Errorf("expected INVALID report, got %q", out)
		}
	})

	t.Run("Manifest", func(t *testing.T) {
		out := h.mustRun("manifest", pkg)

		var m models.Manifest
		if err := json.Unmarshal([]byte(out), &m); err != nil {
			t.Fatalf("expected manifest JSON, got %v\n%s", err, out)
		}
		if m.ID() != "kjv" {
			t.Errorf("expected kjv, got %s", m.ID())
		}
	})

	t.Run("Import", func(t *testing.T) {
		out := h.mustRun("import", pkg)
		if !strings.Contains(out, "Imported kjv") {
			t.Errorf("expected import summary, got %q", out)
		}
		if !strings.Contains(out, "Verses:       10") {
			t.Errorf("expected 10 verses, got %q", out)
		}

		out, err := h.run("import", pkg)
		if err == nil {
			t.Fatal("expected conflict on second import")
		}
		if !strings.Contains(out, "ConflictError") {
			t.Errorf("expected ConflictError in report, got %q", out)
		}

		h.mustRun("import", "--overwrite", pkg)
	})

	t.Run("Import Missing Location", func(t *testing.T) {
		if _, err := h.run("import"); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})

	t.Run("Repos", func(t *testing.T) {
		out := h.mustRun("repos", "list")
		if !strings.Contains(out, "kjv") {
			t.Errorf("expected kjv listed, got %q", out)
		}

		out = h.mustRun("repos", "show", "kjv")
		if !strings.Contains(out, "Books:        2") {
			t.Errorf("expected book count, got %q", out)
		}

		out = h.mustRun("repos", "books", "kjv")
		if !strings.Contains(out, "Genesis") || !strings.Contains(out, "Exodus") {
			t.Errorf("expected both books, got %q", out)
		}

		if _, err := h.run("repos", "list", "--type", "bogus"); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("Read", func(t *testing.T) {
		out := h.mustRun("read", "--format", "markdown", "kjv", "gen", "2")
		if !strings.HasPrefix(out, "# Genesis 2") {
			t.Errorf("expected markdown heading, got %q", out)
		}
		if !strings.Contains(out, "**3** Genesis 2:3") {
			t.Errorf("expected verse 3, got %q", out)
		}

		if _, err := h.run("read", "kjv", "gen", "9"); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
		if _, err := h.run("read", "--format", "pdf", "kjv", "gen", "1"); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}

		path := filepath.Join(t.TempDir(), "exodus.csv")
		h.mustRun("read", "--format", "csv", "--output", path, "kjv", "exo", "1")
		if !strings.HasPrefix(tu.MustReadFile(t, path), "Repository,Book,Chapter,Verse,Text") {
			t.Error("expected CSV header in export")
		}
	})

	t.Run("Settings", func(t *testing.T) {
		h.mustRun("settings", "set", "reader.format", "markdown")

		out := h.mustRun("settings", "get", "reader.format")
		if out != "markdown\n" {
			t.Errorf("expected stored value, got %q", out)
		}

		if _, err := h.run("settings", "set", "discovery.sources", "[]"); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected reserved key rejected, got %v", err)
		}

		h.mustRun("settings", "delete", "reader.format")
		if _, err := h.run("settings", "get", "reader.format"); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound after delete, got %v", err)
		}
	})

	t.Run("Sources", func(t *testing.T) {
		h.mustRun("sources", "add", "--token", "secret", "mirror", "https://mirror.example.com/index.json")

		out := h.mustRun("sources", "list", "--json")
		var sources []services.RepositorySource
		if err := json.Unmarshal([]byte(out), &sources); err != nil {
			t.Fatalf("expected sources JSON, got %v\n%s", err, out)
		}
		if len(sources) != 1 || sources[0].Name != "mirror" {
			t.Fatalf("expected persisted mirror source, got %+v", sources)
		}
		if sources[0].Token != "redacted" {
			t.Errorf("expected token redacted, got %q", sources[0].Token)
		}

		h.mustRun("sources", "disable", "mirror")
		out = h.mustRun("sources", "list")
		if !strings.Contains(out, "disabled") {
			t.Errorf("expected disabled source, got %q", out)
		}

		h.mustRun("sources", "remove", "mirror")
		out = h.mustRun("sources", "list")
		if !strings.Contains(out, "No sources configured") {
			t.Errorf("expected empty list, got %q", out)
		}
	})

	t.Run("Cache Clear", func(t *testing.T) {
		out := h.mustRun("cache", "clear")
		if !strings.Contains(out, "cache cleared") {
			t.Errorf("expected confirmation, got %q", out)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		h.mustRun("repos", "delete", "kjv")

		out := h.mustRun("repos", "list")
		if !strings.Contains(out, "No repositories imported") {
			t.Errorf("expected empty table, got %q", out)
		}
	})
}
