package services

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/desertthunder/versehub/internal/models"
	"github.com/desertthunder/versehub/internal/shared"
	tu "github.com/desertthunder/versehub/internal/testing"
)

func newTestDiscovery(sources ...RepositorySource) *Discovery {
	return NewDiscovery(NewFetcher(httpPolicy()), sources, nil)
}

func TestResolveManifest(t *testing.T) {
	ctx := context.Background()

	t.Run("Directory JSON", func(t *testing.T) {
		dir := t.TempDir()
		tu.WritePackage(t, dir, tu.NewManifest("kjv", "gen"), tu.NewBook("gen", 1, 2))

		d := newTestDiscovery()
		pm, err := d.ResolveManifest(ctx, dir)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if pm.Manifest.ID() != "kjv" || pm.Base != dir || pm.Location != filepath.Join(dir, "manifest.json") {
			t.Errorf("unexpected resolution: %+v", pm)
		}
	})

	t.Run("Directory YAML", func(t *testing.T) {
		dir := t.TempDir()
		tu.MustWriteFile(t, filepath.Join(dir, "manifest.yml"), []byte("format_version: \"1.0\"\nrepository:\n  id: web\n"))

		d := newTestDiscovery()
		m, err := d.FetchManifest(ctx, dir)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if m.ID() != "web" {
			t.Errorf("expected id web, got %q", m.ID())
		}
	})

	t.Run("Missing Manifest", func(t *testing.T) {
		d := newTestDiscovery()
		if _, err := d.FetchManifest(ctx, t.TempDir()); !errors.Is(err, shared.ErrManifestNotFound) {
			t.Errorf("expected ErrManifestNotFound, got %v", err)
		}
	})

	t.Run("Remote Cached", func(t *testing.T) {
		dir := t.TempDir()
		tu.WritePackage(t, dir, tu.NewManifest("kjv", "gen"), tu.NewBook("gen", 1, 2))
		server := tu.ServeDir(t, dir)

		d := newTestDiscovery()
		pm, err := d.ResolveManifest(ctx, server.URL+"/manifest.json")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if pm.Base != server.URL {
			t.Errorf("expected base %s, got %s", server.URL, pm.Base)
		}

		if _, err := d.FetchManifest(ctx, server.URL+"/manifest.json"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if server.Requests() != 1 {
			t.Errorf("expected cached second fetch, got %d requests", server.Requests())
		}
		if d.CacheSize() != 1 {
			t.Errorf("expected 1 cached manifest, got %d", d.CacheSize())
		}

		d.ClearCache()
		if d.CacheSize() != 0 {
			t.Error("expected empty cache after clear")
		}
		if _, err := d.FetchManifest(ctx, server.URL+"/manifest.json"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if server.Requests() != 2 {
			t.Errorf("expected refetch after clear, got %d requests", server.Requests())
		}
	})

	t.Run("Remote Directory", func(t *testing.T) {
		dir := t.TempDir()
		tu.WritePackage(t, filepath.Join(dir, "pkg"), tu.NewManifest("kjv", "gen"), tu.NewBook("gen", 1, 2))
		server := tu.ServeDir(t, dir)

		d := newTestDiscovery()
		pm, err := d.ResolveManifest(ctx, server.URL+"/pkg")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if pm.Location != server.URL+"/pkg/manifest.json" {
			t.Errorf("unexpected location %s", pm.Location)
		}
	})

	t.Run("Validate", func(t *testing.T) {
		dir := t.TempDir()
		m := tu.NewManifest("kjv", "gen")
		m.Content.BooksCount = 4
		tu.WriteManifest(t, dir, m)

		d := newTestDiscovery()
		r, err := d.ValidateRepository(ctx, dir)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if r.Valid {
			t.Error("expected BOOK_COUNT_MISMATCH to invalidate the manifest")
		}
	})
}

func TestDiscoverRepositories(t *testing.T) {
	ctx := context.Background()

	index := func(entries ...models.IndexEntry) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Write(tu.MustMarshal(t, models.RepositoryIndex{Version: "1.0", Repositories: entries}))
		}
	}

	official := httptest.NewServer(index(
		models.IndexEntry{ID: "kjv", Name: "KJV", URL: "kjv/manifest.json", Verified: false},
		models.IndexEntry{ID: "web", Name: "WEB", URL: "https://mirror.example.org/web"},
	))
	defer official.Close()

	community := httptest.NewServer(index(
		models.IndexEntry{ID: "kjv", Name: "KJV copy", URL: "https://elsewhere.example.org/kjv"},
		models.IndexEntry{ID: "amh", Name: "Amharic", URL: "https://elsewhere.example.org/amh", Verified: true},
	))
	defer community.Close()

	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer broken.Close()

	t.Run("Merge and Deduplicate", func(t *testing.T) {
		d := newTestDiscovery(
			RepositorySource{Name: "official", Type: SourceOfficial, URL: official.URL + "/index.json", Enabled: true},
			RepositorySource{Name: "broken", Type: SourceThirdParty, URL: broken.URL + "/index.json", Enabled: true},
			RepositorySource{Name: "community", Type: SourceThirdParty, URL: community.URL + "/index.json", Enabled: true},
		)

		entries, err := d.DiscoverRepositories(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(entries) != 3 {
			t.Fatalf("expected 3 entries, got %d: %+v", len(entries), entries)
		}

		if entries[0].ID != "kjv" || entries[0].Name != "KJV" || !entries[0].Verified || entries[0].Source != "official" {
			t.Errorf("expected official kjv first, got %+v", entries[0])
		}
		if entries[0].URL != official.URL+"/kjv/manifest.json" {
			t.Errorf("expected relative url resolved, got %s", entries[0].URL)
		}
		if entries[2].ID != "amh" || entries[2].Verified {
			t.Errorf("expected unverified third-party amh, got %+v", entries[2])
		}
	})

	t.Run("Disabled Sources Skipped", func(t *testing.T) {
		d := newTestDiscovery(
			RepositorySource{Name: "official", Type: SourceOfficial, URL: official.URL + "/index.json", Enabled: false},
		)
		entries, err := d.DiscoverRepositories(ctx)
		if err != nil || len(entries) != 0 {
			t.Errorf("DiscoverRepositories() = %v, %v", entries, err)
		}
	})

	t.Run("All Sources Failed", func(t *testing.T) {
		d := newTestDiscovery(
			RepositorySource{Name: "broken", Type: SourceThirdParty, URL: broken.URL + "/index.json", Enabled: true},
		)
		if _, err := d.DiscoverRepositories(ctx); !errors.Is(err, shared.ErrNetwork) {
			t.Errorf("expected ErrNetwork, got %v", err)
		}
	})

	t.Run("Local Scan", func(t *testing.T) {
		dir := t.TempDir()
		tu.WritePackage(t, filepath.Join(dir, "kjv"), tu.NewManifest("kjv", "gen"), tu.NewBook("gen", 1, 1))

		d := newTestDiscovery(RepositorySource{Name: "disk", Type: SourceLocal, URL: dir, Enabled: true})
		entries, err := d.DiscoverRepositories(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(entries) != 1 || entries[0].ID != "kjv" || entries[0].URL != filepath.Join(dir, "kjv") || entries[0].Verified {
			t.Errorf("unexpected entries: %+v", entries)
		}
	})

	t.Run("Local Index", func(t *testing.T) {
		dir := t.TempDir()
		tu.MustWriteFile(t, filepath.Join(dir, IndexFileName), tu.MustMarshal(t, models.RepositoryIndex{
			Repositories: []models.IndexEntry{{ID: "kjv", URL: "kjv", Verified: true}},
		}))

		d := newTestDiscovery(RepositorySource{Name: "disk", Type: SourceLocal, URL: dir, Enabled: true})
		entries, err := d.DiscoverRepositories(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(entries) != 1 || entries[0].URL != filepath.Join(dir, "kjv") || entries[0].Verified {
			t.Errorf("unexpected entries: %+v", entries)
		}
	})
}

func TestScanDirectory(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()

	tu.WritePackage(t, filepath.Join(root, "good"), tu.NewManifest("good", "gen"), tu.NewBook("gen", 1, 1))

	bad := tu.NewManifest("bad", "gen")
	bad.Content.BooksCount = 9
	tu.WriteManifest(t, filepath.Join(root, "nested", "bad"), bad)

	tu.MustWriteFile(t, filepath.Join(root, "broken", "manifest.json"), []byte("{not json"))
	tu.MustWriteFile(t, filepath.Join(root, "empty", "readme.txt"), []byte("nothing here"))
	tu.WriteManifest(t, filepath.Join(root, ".hidden"), tu.NewManifest("hidden"))

	t.Run("Resilient", func(t *testing.T) {
		d := newTestDiscovery()
		result, err := d.ScanDirectory(ctx, root)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if len(result.Candidates) != 2 {
			t.Fatalf("expected 2 candidates, got %d: %+v", len(result.Candidates), result.Candidates)
		}
		if len(result.Errors) != 1 {
			t.Errorf("expected 1 error, got %v", result.Errors)
		}

		valid := map[string]bool{}
		for _, c := range result.Candidates {
			valid[c.Manifest.ID()] = c.Validation.Valid
		}
		if !valid["good"] || valid["bad"] {
			t.Errorf("unexpected validation outcome: %v", valid)
		}
	})

	t.Run("Missing Root", func(t *testing.T) {
		d := newTestDiscovery()
		if _, err := d.ScanDirectory(ctx, filepath.Join(root, "nope")); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("Root Is File", func(t *testing.T) {
		d := newTestDiscovery()
		file := filepath.Join(root, "empty", "readme.txt")
		if _, err := d.ScanDirectory(ctx, file); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("Unreadable Candidate", func(t *testing.T) {
		if os.Getuid() == 0 {
			t.Skip("permissions are not enforced for root")
		}
		locked := t.TempDir()
		tu.WriteManifest(t, filepath.Join(locked, "ok"), tu.NewManifest("ok"))
		sealed := filepath.Join(locked, "sealed")
		tu.WriteManifest(t, sealed, tu.NewManifest("sealed"))
		if err := os.Chmod(sealed, 0o000); err != nil {
			t.Fatalf("failed to chmod: %v", err)
		}
		t.Cleanup(func() { os.Chmod(sealed, 0o755) })

		result, err := newTestDiscovery().ScanDirectory(ctx, locked)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(result.Candidates) != 1 || len(result.Errors) != 1 {
			t.Errorf("expected 1 candidate and 1 error, got %+v", result)
		}
	})
}

func TestSources(t *testing.T) {
	d := newTestDiscovery(RepositorySource{Name: "official", Type: SourceOfficial, URL: "https://example.org/index.json", Enabled: true})

	t.Run("Add", func(t *testing.T) {
		if err := d.AddSource(RepositorySource{Name: "mirror", Type: SourceThirdParty, URL: "https://mirror.example.org/index.json"}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(d.Sources()) != 2 {
			t.Errorf("expected 2 sources, got %d", len(d.Sources()))
		}
	})

	t.Run("Add Errors", func(t *testing.T) {
		tc := []struct {
			name string
			src  RepositorySource
			want error
		}{
			{name: "duplicate", src: RepositorySource{Name: "official", Type: SourceOfficial, URL: "https://x.org"}, want: shared.ErrConflict},
			{name: "missing name", src: RepositorySource{Type: SourceOfficial, URL: "https://x.org"}, want: shared.ErrMissingArgument},
			{name: "missing url", src: RepositorySource{Name: "x", Type: SourceOfficial}, want: shared.ErrMissingArgument},
			{name: "bad type", src: RepositorySource{Name: "x", Type: "ftp", URL: "https://x.org"}, want: shared.ErrInvalidArgument},
			{name: "insecure", src: RepositorySource{Name: "x", Type: SourceThirdParty, URL: "ftp://x.org"}, want: shared.ErrSecurityPolicy},
		}
		for _, tt := range tc {
			t.Run(tt.name, func(t *testing.T) {
				if err := d.AddSource(tt.src); !errors.Is(err, tt.want) {
					t.Errorf("expected %v, got %v", tt.want, err)
				}
			})
		}
	})

	t.Run("Enable", func(t *testing.T) {
		if err := d.EnableSource("mirror", true); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		for _, s := range d.Sources() {
			if s.Name == "mirror" && !s.Enabled {
				t.Error("expected mirror to be enabled")
			}
		}
		if err := d.EnableSource("nope", true); !errors.Is(err, shared.ErrSourceNotFound) {
			t.Errorf("expected ErrSourceNotFound, got %v", err)
		}
	})

	t.Run("Remove", func(t *testing.T) {
		if err := d.RemoveSource("mirror"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := d.RemoveSource("mirror"); !errors.Is(err, shared.ErrSourceNotFound) {
			t.Errorf("expected ErrSourceNotFound, got %v", err)
		}
	})

	t.Run("Sources Copy", func(t *testing.T) {
		s := d.Sources()
		s[0].Name = "mutated"
		if d.Sources()[0].Name != "official" {
			t.Error("Sources() must return a copy")
		}
	})
}
