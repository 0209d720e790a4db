package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/versehub/internal/library"
	"github.com/desertthunder/versehub/internal/shared"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// The library is opened on first use so commands like setup can run before a config exists.
type Runner struct {
	config     *shared.Config
	configPath string
	logLevel   string
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
	lib        *library.Service
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, sourcesCommand, discoverCommand, manifestCommand, validateCommand, scanCommand,
		importCommand, reposCommand, readCommand, cacheCommand, settingsCommand, serveCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// loadConfig resolves the configuration once: an explicit config wins, then the file at configPath, then defaults.
func (r *Runner) loadConfig() (*shared.Config, error) {
	if r.config != nil {
		return r.config, nil
	}

	if r.configPath != "" {
		if _, err := os.Stat(r.configPath); err == nil {
			config, err := shared.LoadConfig(r.configPath)
			if err != nil {
				return nil, err
			}
			r.config = config
			return r.config, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to stat config file: %w", err)
		}
		r.logger.Debug("config file not found, using defaults", "path", r.configPath)
	}

	r.config = shared.DefaultConfig()
	return r.config, nil
}

// library returns the initialized library service, opening it on first call.
func (r *Runner) library(ctx context.Context) (*library.Service, error) {
	if r.lib != nil {
		return r.lib, nil
	}

	config, err := r.loadConfig()
	if err != nil {
		return nil, err
	}

	if r.logLevel == "" {
		shared.SetLogLevel(r.logger, shared.ParseLogLevel(config.Log.Level))
	}

	opts := []library.Option{library.WithLogger(r.logger)}
	if r.httpClient != nil {
		opts = append(opts, library.WithHTTPClient(r.httpClient))
	}

	lib := library.New(config, opts...)
	if err := lib.Init(ctx); err != nil {
		return nil, fmt.Errorf("failed to open library: %w", err)
	}
	r.lib = lib
	return lib, nil
}

// Close shuts down the library if a command opened it.
func (r *Runner) Close(ctx context.Context) error {
	if r.lib == nil {
		return nil
	}
	err := r.lib.Shutdown(ctx)
	r.lib = nil
	return err
}

// SetLogger replaces the runner logger. Only affects a library opened afterwards.
func (r *Runner) SetLogger(l *log.Logger) {
	r.logger = l
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writeBytes(b []byte) error {
	if _, err := r.output.Write(b); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
