package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/desertthunder/versehub/internal/models"
	"github.com/desertthunder/versehub/internal/shared"
	"github.com/desertthunder/versehub/internal/validator"
)

// SourceType classifies where a repository index comes from.
type SourceType string

const (
	SourceOfficial   SourceType = "official"
	SourceThirdParty SourceType = "third-party"
	SourceLocal      SourceType = "local"
)

// IndexFileName is the index document read from local sources.
const IndexFileName = "index.json"

// RepositorySource is a place that publishes a repository index.
type RepositorySource struct {
	Name    string     `json:"name"`
	Type    SourceType `json:"type"`
	URL     string     `json:"url"`
	Enabled bool       `json:"enabled"`
	Token   string     `json:"token,omitempty"`
}

// ScanCandidate is one directory holding a manifest.
type ScanCandidate struct {
	Path       string                     `json:"path"`
	Manifest   *models.Manifest           `json:"manifest"`
	Validation *models.VerificationResult `json:"validation"`
}

// ScanResult collects candidates and per-candidate failures from [Discovery.ScanDirectory].
type ScanResult struct {
	Root       string          `json:"root"`
	Candidates []ScanCandidate `json:"candidates"`
	Errors     []string        `json:"errors"`
}

// Discovery finds repositories through configured sources and caches fetched manifests.
type Discovery struct {
	fetcher *Fetcher
	logger  *log.Logger

	mu      sync.RWMutex
	sources []RepositorySource

	cacheMu sync.Mutex
	cache   map[string]*PackageManifest
}

// NewDiscovery creates a Discovery over fetcher with the given sources.
func NewDiscovery(fetcher *Fetcher, sources []RepositorySource, logger *log.Logger) *Discovery {
	if logger == nil {
		logger = shared.NewLogger(io.Discard)
	}
	d := &Discovery{
		fetcher: fetcher,
		logger:  logger,
		cache:   make(map[string]*PackageManifest),
	}
	d.SetSources(sources)
	return d
}

// Policy returns the security policy enforced by the underlying fetcher.
func (d *Discovery) Policy() models.SecurityPolicy {
	return d.fetcher.Policy()
}

// DiscoverRepositories fetches every enabled source's index concurrently and merges them in source order.
//
// Entries are de-duplicated by id with the first occurrence winning. A failing
// source is logged and skipped; an error is returned only when all of them fail.
func (d *Discovery) DiscoverRepositories(ctx context.Context) ([]models.IndexEntry, error) {
	enabled := []RepositorySource{}
	for _, src := range d.Sources() {
		if src.Enabled {
			enabled = append(enabled, src)
		}
	}
	if len(enabled) == 0 {
		return []models.IndexEntry{}, nil
	}

	results := make([][]models.IndexEntry, len(enabled))
	errs := make([]error, len(enabled))

	var g errgroup.Group
	for i, src := range enabled {
		g.Go(func() error {
			entries, err := d.fetchIndex(ctx, src)
			if err != nil {
				d.logger.Warn("source failed", "source", src.Name, "error", err)
				errs[i] = fmt.Errorf("%s: %w", src.Name, err)
				return nil
			}
			results[i] = entries
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, err := range errs {
		if err != nil {
			failed++
		}
	}
	if failed == len(enabled) {
		return nil, fmt.Errorf("all %d sources failed: %w", failed, errors.Join(errs...))
	}

	seen := make(map[string]bool)
	merged := []models.IndexEntry{}
	for _, entries := range results {
		for _, e := range entries {
			if e.ID == "" || seen[e.ID] {
				continue
			}
			seen[e.ID] = true
			merged = append(merged, e)
		}
	}

	d.logger.Info("discovered repositories", "count", len(merged), "sources", len(enabled), "failed", failed)
	return merged, nil
}

func (d *Discovery) fetchIndex(ctx context.Context, src RepositorySource) ([]models.IndexEntry, error) {
	if src.Type == SourceLocal {
		return d.localIndex(ctx, src)
	}

	data, err := d.fetcher.FetchWithToken(ctx, src.URL, src.Token)
	if err != nil {
		return nil, err
	}

	var index models.RepositoryIndex
	if err := json.Unmarshal(data, &index); err != nil {
		return nil, fmt.Errorf("%w: failed to parse index: %v", shared.ErrValidation, err)
	}

	for i := range index.Repositories {
		e := &index.Repositories[i]
		e.URL = resolveReference(src.URL, e.URL)
		e.Verified = src.Type == SourceOfficial
		e.Source = src.Name
	}
	return index.Repositories, nil
}

// localIndex reads index.json from a local source directory, or synthesizes entries by scanning it.
func (d *Discovery) localIndex(ctx context.Context, src RepositorySource) ([]models.IndexEntry, error) {
	root, err := LocalPath(src.URL)
	if err != nil {
		return nil, err
	}

	data, err := d.fetcher.Fetch(ctx, filepath.Join(root, IndexFileName))
	if err == nil {
		var index models.RepositoryIndex
		if err := json.Unmarshal(data, &index); err != nil {
			return nil, fmt.Errorf("%w: failed to parse index: %v", shared.ErrValidation, err)
		}
		for i := range index.Repositories {
			e := &index.Repositories[i]
			if e.URL != "" && !IsRemote(e.URL) && !filepath.IsAbs(e.URL) {
				e.URL = filepath.Join(root, e.URL)
			}
			e.Verified = false
			e.Source = src.Name
		}
		return index.Repositories, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}

	scan, err := d.ScanDirectory(ctx, root)
	if err != nil {
		return nil, err
	}

	entries := []models.IndexEntry{}
	for _, c := range scan.Candidates {
		repo := c.Manifest.Repository
		if repo == nil || repo.ID == "" || !c.Validation.Valid {
			continue
		}
		entries = append(entries, models.IndexEntry{
			ID:          repo.ID,
			Name:        repo.Name,
			URL:         c.Path,
			Language:    repo.Language.Code,
			License:     repo.Translation.License,
			LastUpdated: repo.UpdatedAt,
			Description: repo.Description,
			Source:      src.Name,
		})
	}
	return entries, nil
}

// resolveReference resolves a possibly relative entry URL against the index URL.
func resolveReference(indexURL, ref string) string {
	if ref == "" || IsRemote(ref) || !IsRemote(indexURL) {
		return ref
	}
	base, err := url.Parse(indexURL)
	if err != nil {
		return ref
	}
	rel, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return base.ResolveReference(rel).String()
}

// FetchManifest returns the manifest at location, using the cache when possible.
func (d *Discovery) FetchManifest(ctx context.Context, location string) (*models.Manifest, error) {
	pm, err := d.ResolveManifest(ctx, location)
	if err != nil {
		return nil, err
	}
	return pm.Manifest, nil
}

// ResolveManifest fetches and decodes the manifest at location.
//
// location may name a manifest file or a package directory, in which case each of
// [ManifestNames] is tried. Results are cached by location until [Discovery.ClearCache].
func (d *Discovery) ResolveManifest(ctx context.Context, location string) (*PackageManifest, error) {
	key := strings.TrimSpace(location)
	if key == "" {
		return nil, fmt.Errorf("%w: manifest location", shared.ErrMissingArgument)
	}

	d.cacheMu.Lock()
	cached, ok := d.cache[key]
	d.cacheMu.Unlock()
	if ok {
		return cached, nil
	}

	pm, err := d.resolve(ctx, key)
	if err != nil {
		return nil, err
	}

	d.cacheMu.Lock()
	d.cache[key] = pm
	d.cacheMu.Unlock()
	return pm, nil
}

func (d *Discovery) resolve(ctx context.Context, location string) (*PackageManifest, error) {
	if isManifestFile(location) {
		return d.load(ctx, location, ParentLocation(location))
	}

	for _, name := range ManifestNames {
		candidate := JoinLocation(location, name)
		pm, err := d.load(ctx, candidate, location)
		if errors.Is(err, shared.ErrNotFound) {
			continue
		}
		return pm, err
	}
	return nil, fmt.Errorf("%w: no manifest in %s", shared.ErrManifestNotFound, location)
}

func (d *Discovery) load(ctx context.Context, manifestLocation, base string) (*PackageManifest, error) {
	data, err := d.fetch(ctx, manifestLocation)
	if err != nil {
		return nil, err
	}

	m, err := DecodeManifest(baseName(manifestLocation), data)
	if err != nil {
		return nil, err
	}

	d.logger.Debug("manifest loaded", "location", manifestLocation, "id", m.ID())
	return &PackageManifest{Location: manifestLocation, Base: base, Manifest: m, Size: int64(len(data))}, nil
}

// ValidateRepository runs the validator over the (cached) manifest at location.
func (d *Discovery) ValidateRepository(ctx context.Context, location string) (*models.VerificationResult, error) {
	m, err := d.FetchManifest(ctx, location)
	if err != nil {
		return nil, err
	}
	return validator.ValidateManifest(m, validator.OptionsFromPolicy(d.Policy())), nil
}

// FetchBook returns the raw bytes of a book document.
func (d *Discovery) FetchBook(ctx context.Context, location string) ([]byte, error) {
	return d.fetch(ctx, location)
}

// fetch reads location, attaching the token of an enabled source on the same host.
func (d *Discovery) fetch(ctx context.Context, location string) ([]byte, error) {
	return d.fetcher.FetchWithToken(ctx, location, d.tokenFor(location))
}

func (d *Discovery) tokenFor(location string) string {
	if !IsRemote(location) {
		return ""
	}
	u, err := url.Parse(location)
	if err != nil {
		return ""
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, src := range d.sources {
		if !src.Enabled || src.Token == "" || !IsRemote(src.URL) {
			continue
		}
		if su, err := url.Parse(src.URL); err == nil && strings.EqualFold(su.Host, u.Host) {
			return src.Token
		}
	}
	return ""
}

// ClearCache drops every cached manifest.
func (d *Discovery) ClearCache() {
	d.cacheMu.Lock()
	defer d.cacheMu.Unlock()
	d.cache = make(map[string]*PackageManifest)
}

// CacheSize returns the number of cached manifests.
func (d *Discovery) CacheSize() int {
	d.cacheMu.Lock()
	defer d.cacheMu.Unlock()
	return len(d.cache)
}

// ScanDirectory walks root and validates every directory containing a manifest.
//
// Failures on individual candidates are collected in [ScanResult.Errors]. Only an
// unreadable root or a cancelled context aborts the scan.
func (d *Discovery) ScanDirectory(ctx context.Context, root string) (*ScanResult, error) {
	root, err := LocalPath(root)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(root)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", shared.ErrNotFound, root)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", shared.ErrInvalidArgument, root)
	}

	result := &ScanResult{Root: root, Candidates: []ScanCandidate{}, Errors: []string{}}
	opts := validator.OptionsFromPolicy(d.Policy())

	err = filepath.WalkDir(root, func(p string, entry fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if walkErr != nil {
			if p == root {
				return walkErr
			}
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", p, walkErr))
			if entry != nil && entry.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !entry.IsDir() {
			return nil
		}
		if p != root && strings.HasPrefix(entry.Name(), ".") {
			return filepath.SkipDir
		}

		for _, name := range ManifestNames {
			manifestPath := filepath.Join(p, name)
			if _, err := os.Stat(manifestPath); err != nil {
				continue
			}

			data, err := d.fetcher.Fetch(ctx, manifestPath)
			if err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", manifestPath, err))
				break
			}
			m, err := DecodeManifest(name, data)
			if err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", manifestPath, err))
				break
			}

			result.Candidates = append(result.Candidates, ScanCandidate{
				Path:       p,
				Manifest:   m,
				Validation: validator.ValidateManifest(m, opts),
			})
			break
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", root, err)
	}

	d.logger.Info("scan complete", "root", root, "candidates", len(result.Candidates), "errors", len(result.Errors))
	return result, nil
}

// Sources returns a copy of the configured sources.
func (d *Discovery) Sources() []RepositorySource {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]RepositorySource, len(d.sources))
	copy(out, d.sources)
	return out
}

// SetSources replaces the source list.
func (d *Discovery) SetSources(sources []RepositorySource) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sources = make([]RepositorySource, len(sources))
	copy(d.sources, sources)
}

// AddSource appends src after checking its name, type and URL.
func (d *Discovery) AddSource(src RepositorySource) error {
	if err := d.checkSource(src); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	for _, s := range d.sources {
		if s.Name == src.Name {
			return fmt.Errorf("%w: source %s", shared.ErrConflict, src.Name)
		}
	}
	d.sources = append(d.sources, src)
	return nil
}

// RemoveSource deletes the named source.
func (d *Discovery) RemoveSource(name string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, s := range d.sources {
		if s.Name == name {
			d.sources = append(d.sources[:i], d.sources[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: %s", shared.ErrSourceNotFound, name)
}

// EnableSource toggles the named source.
func (d *Discovery) EnableSource(name string, enabled bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i := range d.sources {
		if d.sources[i].Name == name {
			d.sources[i].Enabled = enabled
			return nil
		}
	}
	return fmt.Errorf("%w: %s", shared.ErrSourceNotFound, name)
}

func (d *Discovery) checkSource(src RepositorySource) error {
	if strings.TrimSpace(src.Name) == "" {
		return fmt.Errorf("%w: source name", shared.ErrMissingArgument)
	}
	if strings.TrimSpace(src.URL) == "" {
		return fmt.Errorf("%w: source url", shared.ErrMissingArgument)
	}

	switch src.Type {
	case SourceLocal:
		_, err := LocalPath(src.URL)
		return err
	case SourceOfficial, SourceThirdParty:
		_, err := CheckURL(d.Policy(), src.URL)
		return err
	default:
		return fmt.Errorf("%w: source type %q", shared.ErrInvalidArgument, src.Type)
	}
}
