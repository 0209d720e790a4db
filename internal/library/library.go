package library

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/versehub/internal/models"
	"github.com/desertthunder/versehub/internal/repositories"
	"github.com/desertthunder/versehub/internal/services"
	"github.com/desertthunder/versehub/internal/shared"
	"github.com/desertthunder/versehub/internal/tasks"
)

// SourcesSettingKey is the user setting holding the persisted source list.
const SourcesSettingKey = "discovery.sources"

// Service wires storage, discovery and import behind one lifecycle.
type Service struct {
	config     *shared.Config
	logger     *log.Logger
	httpClient *http.Client

	mu      sync.RWMutex
	rt      *session
	imports sync.WaitGroup
}

// session holds everything created by Init and released by Shutdown.
type session struct {
	db        *sql.DB
	stores    *repositories.Stores
	discovery *services.Discovery
	engine    *tasks.ImportEngine
}

// Option configures a [Service].
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithHTTPClient sets the client used for network fetches.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Service) {
		if c != nil {
			s.httpClient = c
		}
	}
}

// New creates an uninitialized Service. A nil cfg uses [shared.DefaultConfig].
func New(cfg *shared.Config, opts ...Option) *Service {
	if cfg == nil {
		cfg = shared.DefaultConfig()
	}
	s := &Service{
		config: cfg,
		logger: shared.NewLogger(io.Discard),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.httpClient == nil {
		s.httpClient = &http.Client{Timeout: cfg.Discovery.Timeout()}
	}
	return s
}

// PolicyFromConfig converts the [security] section into a policy with default ceilings filled in.
func PolicyFromConfig(cfg shared.SecurityConfig) models.SecurityPolicy {
	return models.SecurityPolicy{
		AllowHTTP:         cfg.AllowHTTP,
		MaxRepositorySize: cfg.MaxRepositorySize,
		MaxFileSize:       cfg.MaxFileSize,
		AllowedDomains:    cfg.AllowedDomains,
		BlockedDomains:    cfg.BlockedDomains,
		RequireChecksums:  cfg.RequireChecksums,
	}.WithDefaults()
}

// SourcesFromConfig converts configured [[sources]] entries.
func SourcesFromConfig(cfg []shared.SourceConfig) []services.RepositorySource {
	sources := make([]services.RepositorySource, 0, len(cfg))
	for _, c := range cfg {
		sources = append(sources, services.RepositorySource{
			Name:    c.Name,
			Type:    services.SourceType(c.Type),
			URL:     c.URL,
			Enabled: c.Enabled,
			Token:   c.Token,
		})
	}
	return sources
}

// Init opens the database, applies migrations and restores the source list. Calling it twice is a no-op.
func (s *Service) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.rt != nil {
		return nil
	}

	path := s.config.Database.Path
	if path == "" {
		return fmt.Errorf("%w: database.path", shared.ErrMissingConfig)
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := shared.NewDatabase(path)
	if err != nil {
		return err
	}
	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		return err
	}

	stores := repositories.NewStores(db)
	sources, err := s.loadSources(ctx, stores.Settings)
	if err != nil {
		db.Close()
		return err
	}

	fetcher := services.NewFetcher(
		PolicyFromConfig(s.config.Security),
		services.WithHTTPClient(s.httpClient),
		services.WithRateLimit(s.config.Discovery.RequestsPerSecond),
		services.WithFetchLogger(shared.WithLogger(s.logger, "component", "fetcher")),
	)
	discovery := services.NewDiscovery(fetcher, sources, shared.WithLogger(s.logger, "component", "discovery"))
	engine := tasks.NewImportEngine(discovery, db,
		tasks.WithWorkers(s.config.Discovery.DownloadWorkers),
		tasks.WithLogger(shared.WithLogger(s.logger, "component", "importer")),
	)

	s.rt = &session{db: db, stores: stores, discovery: discovery, engine: engine}
	s.logger.Debug("library initialized", "database", path, "sources", len(sources))
	return nil
}

func (s *Service) loadSources(ctx context.Context, settings *repositories.SettingStore) ([]services.RepositorySource, error) {
	raw, err := settings.Get(ctx, SourcesSettingKey)
	if errors.Is(err, shared.ErrNotFound) {
		return SourcesFromConfig(s.config.Sources), nil
	}
	if err != nil {
		return nil, err
	}

	var sources []services.RepositorySource
	if err := json.Unmarshal([]byte(raw), &sources); err != nil {
		s.logger.Warn("ignoring unreadable saved sources", "error", err)
		return SourcesFromConfig(s.config.Sources), nil
	}
	return sources, nil
}

// Shutdown waits for running imports, or until ctx is done, then closes the database.
func (s *Service) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	rt := s.rt
	s.rt = nil
	s.mu.Unlock()

	if rt == nil {
		return nil
	}

	done := make(chan struct{})
	go func() {
		s.imports.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		s.logger.Warn("shutdown deadline reached with imports still running")
	}

	if err := rt.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}

func (s *Service) current() (*session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.rt == nil {
		return nil, shared.ErrNotInitialized
	}
	return s.rt, nil
}

// Config returns the configuration the service was built with.
func (s *Service) Config() *shared.Config {
	return s.config
}

// DiscoverRepositories lists packages advertised by every enabled source.
func (s *Service) DiscoverRepositories(ctx context.Context) ([]models.IndexEntry, error) {
	rt, err := s.current()
	if err != nil {
		return nil, err
	}
	return rt.discovery.DiscoverRepositories(ctx)
}

// GetManifest fetches the manifest at location, which may be a URL, a manifest file or a package directory.
func (s *Service) GetManifest(ctx context.Context, location string) (*models.Manifest, error) {
	rt, err := s.current()
	if err != nil {
		return nil, err
	}
	return rt.discovery.FetchManifest(ctx, location)
}

// ValidateRepositoryURL validates the manifest at location.
//
// A manifest that cannot be decoded is reported in the result. Fetch and policy failures are returned as errors.
func (s *Service) ValidateRepositoryURL(ctx context.Context, location string) (*models.VerificationResult, error) {
	rt, err := s.current()
	if err != nil {
		return nil, err
	}

	result, err := rt.discovery.ValidateRepository(ctx, location)
	if errors.Is(err, shared.ErrValidation) {
		result = models.NewVerificationResult()
		result.AddError(models.CodeMalformedDocument, "manifest", "%v", err)
		return result, nil
	}
	return result, err
}

// ScanDirectory finds and validates every package below root.
func (s *Service) ScanDirectory(ctx context.Context, root string) (*services.ScanResult, error) {
	rt, err := s.current()
	if err != nil {
		return nil, err
	}
	return rt.discovery.ScanDirectory(ctx, root)
}

// ImportRepository runs an import, sending progress on the optional channel.
//
// An uninitialized service yields a failed result rather than an error so callers handle one shape.
func (s *Service) ImportRepository(ctx context.Context, opts tasks.ImportOptions, progress chan<- tasks.ProgressUpdate) *tasks.ImportResult {
	s.mu.RLock()
	rt := s.rt
	if rt != nil {
		s.imports.Add(1)
	}
	s.mu.RUnlock()

	if rt == nil {
		return &tasks.ImportResult{
			Errors:   []string{"StorageError: " + shared.ErrNotInitialized.Error()},
			Warnings: []string{},
		}
	}
	defer s.imports.Done()

	return rt.engine.Import(ctx, opts, progress)
}

// GetSources returns the configured sources.
func (s *Service) GetSources() ([]services.RepositorySource, error) {
	rt, err := s.current()
	if err != nil {
		return nil, err
	}
	return rt.discovery.Sources(), nil
}

// AddSource registers and persists a new source.
func (s *Service) AddSource(ctx context.Context, src services.RepositorySource) error {
	return s.changeSources(ctx, func(d *services.Discovery) error { return d.AddSource(src) })
}

// RemoveSource deletes and persists the removal of the named source.
func (s *Service) RemoveSource(ctx context.Context, name string) error {
	return s.changeSources(ctx, func(d *services.Discovery) error { return d.RemoveSource(name) })
}

// EnableSource toggles the named source and persists the change.
func (s *Service) EnableSource(ctx context.Context, name string, enabled bool) error {
	return s.changeSources(ctx, func(d *services.Discovery) error { return d.EnableSource(name, enabled) })
}

func (s *Service) changeSources(ctx context.Context, change func(*services.Discovery) error) error {
	rt, err := s.current()
	if err != nil {
		return err
	}
	if err := change(rt.discovery); err != nil {
		return err
	}

	data, err := json.Marshal(rt.discovery.Sources())
	if err != nil {
		return fmt.Errorf("failed to encode sources: %w", err)
	}
	if err := rt.stores.Settings.Set(ctx, SourcesSettingKey, string(data)); err != nil {
		return fmt.Errorf("%w: failed to save sources: %w", shared.ErrStorage, err)
	}
	return nil
}

// ClearCache drops every cached manifest.
func (s *Service) ClearCache() error {
	rt, err := s.current()
	if err != nil {
		return err
	}
	rt.discovery.ClearCache()
	return nil
}

// ListRepositories returns summaries of stored repositories, restricted to kind when non-empty.
func (s *Service) ListRepositories(ctx context.Context, kind models.RepositoryKind) ([]*models.RepositorySummary, error) {
	rt, err := s.current()
	if err != nil {
		return nil, err
	}

	repos, err := rt.stores.Repositories.List(ctx, kind)
	if err != nil {
		return nil, err
	}

	summaries := make([]*models.RepositorySummary, 0, len(repos))
	for _, repo := range repos {
		summary, err := rt.stores.Repositories.Summarize(ctx, repo.ID)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

// GetRepository returns a summary of one repository.
func (s *Service) GetRepository(ctx context.Context, id string) (*models.RepositorySummary, error) {
	rt, err := s.current()
	if err != nil {
		return nil, err
	}
	return rt.stores.Repositories.Summarize(ctx, id)
}

// DeleteRepository removes a repository with its translations and content.
func (s *Service) DeleteRepository(ctx context.Context, id string) error {
	rt, err := s.current()
	if err != nil {
		return err
	}
	return repositories.InTx(ctx, rt.db, func(st *repositories.Stores) error {
		return st.Repositories.Delete(ctx, id)
	})
}

// ListTranslations returns the translation links of a parent repository.
func (s *Service) ListTranslations(ctx context.Context, parentID string) ([]*models.TranslationLink, error) {
	rt, err := s.current()
	if err != nil {
		return nil, err
	}
	if _, err := rt.stores.Repositories.Get(ctx, parentID); err != nil {
		return nil, err
	}
	return rt.stores.Translations.ListByParent(ctx, parentID)
}

// RevokeTranslation removes a translation link. The translation repository and its content stay in place.
func (s *Service) RevokeTranslation(ctx context.Context, parentID, translationID string) error {
	rt, err := s.current()
	if err != nil {
		return err
	}
	if err := rt.stores.Translations.Unlink(ctx, parentID, translationID); err != nil {
		return err
	}
	s.logger.Info("translation link revoked", "parent", parentID, "translation", translationID)
	return nil
}

// SetTranslationStatus changes a translation link's status.
func (s *Service) SetTranslationStatus(ctx context.Context, parentID, translationID, status string) error {
	rt, err := s.current()
	if err != nil {
		return err
	}
	return rt.stores.Translations.SetStatus(ctx, parentID, translationID, strings.ToLower(status))
}

// ListBooks returns a repository's books in canonical order.
func (s *Service) ListBooks(ctx context.Context, repositoryID string) ([]*models.Book, error) {
	rt, err := s.current()
	if err != nil {
		return nil, err
	}
	if _, err := rt.stores.Repositories.Get(ctx, repositoryID); err != nil {
		return nil, err
	}
	return rt.stores.Books.List(ctx, repositoryID)
}

// GetChapter loads one chapter. bookRef may be a canonical id, an abbreviation or a book name.
func (s *Service) GetChapter(ctx context.Context, repositoryID, bookRef string, chapter int) (*models.Chapter, error) {
	rt, err := s.current()
	if err != nil {
		return nil, err
	}
	if chapter < 1 {
		return nil, fmt.Errorf("%w: chapter %d", shared.ErrInvalidArgument, chapter)
	}

	repo, err := rt.stores.Repositories.Get(ctx, repositoryID)
	if err != nil {
		return nil, err
	}
	book, err := rt.stores.Books.Find(ctx, repositoryID, bookRef)
	if err != nil {
		return nil, err
	}
	if chapter > book.ChapterCount {
		return nil, fmt.Errorf("%w: %s has %d chapters", shared.ErrNotFound, book.Name, book.ChapterCount)
	}

	verses, err := rt.stores.Verses.Chapter(ctx, book.ID, chapter)
	if err != nil {
		return nil, err
	}
	return &models.Chapter{Repository: repo, Book: book, Number: chapter, Verses: verses}, nil
}

// GetSetting returns a user setting.
func (s *Service) GetSetting(ctx context.Context, key string) (string, error) {
	rt, err := s.current()
	if err != nil {
		return "", err
	}
	return rt.stores.Settings.Get(ctx, key)
}

// SetSetting stores a user setting. The source list key is managed through the source operations.
func (s *Service) SetSetting(ctx context.Context, key, value string) error {
	rt, err := s.current()
	if err != nil {
		return err
	}
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("%w: setting key", shared.ErrMissingArgument)
	}
	if key == SourcesSettingKey {
		return fmt.Errorf("%w: %s is managed by the sources commands", shared.ErrInvalidArgument, key)
	}
	return rt.stores.Settings.Set(ctx, key, value)
}

// DeleteSetting removes a user setting.
func (s *Service) DeleteSetting(ctx context.Context, key string) error {
	rt, err := s.current()
	if err != nil {
		return err
	}
	if key == SourcesSettingKey {
		return fmt.Errorf("%w: %s is managed by the sources commands", shared.ErrInvalidArgument, key)
	}
	return rt.stores.Settings.Delete(ctx, key)
}

// ListSettings returns every stored user setting.
func (s *Service) ListSettings(ctx context.Context) ([]*models.UserSetting, error) {
	rt, err := s.current()
	if err != nil {
		return nil, err
	}
	return rt.stores.Settings.List(ctx)
}
