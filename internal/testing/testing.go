// package testing contains shared testing utilities
package testing

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"sync/atomic"
	"testing"

	"github.com/desertthunder/versehub/internal/models"
)

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails once maxWrites writes have gone through
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites int, target io.Writer) *LimitedWriter {
	return &LimitedWriter{maxWrites: maxWrites, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}

// MustWriteFile writes data to path, creating parent directories.
func MustWriteFile(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("Failed to create directory for %s: %v", path, err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("Failed to write file %s: %v", path, err)
	}
}

// MustMarshal encodes v as indented JSON.
func MustMarshal(t *testing.T, v any) []byte {
	t.Helper()
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		t.Fatalf("Failed to marshal %T: %v", v, err)
	}
	return data
}

// Digest returns the "sha256:<hex>" digest of the concatenated parts.
func Digest(parts ...[]byte) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write(p)
	}
	return "sha256:" + hex.EncodeToString(h.Sum(nil))
}

// NewManifest builds a valid manifest for a package supplying the given canonical books.
//
// The technical checksum is left empty; [WritePackage] fills it in.
func NewManifest(id string, bookIDs ...string) *models.Manifest {
	old, nt := 0, 0
	for _, b := range bookIDs {
		entry, ok := models.CanonByID(b)
		if !ok {
			panic(fmt.Sprintf("unknown book %q", b))
		}
		if entry.Testament == models.OldTestament {
			old++
		} else {
			nt++
		}
	}

	return &models.Manifest{
		FormatVersion: "1.0",
		Repository: &models.ManifestRepository{
			ID:          id,
			Name:        "Test " + id,
			Description: "Fixture package " + id,
			Version:     "1.0.0",
			Publisher:   "Fixtures",
			CreatedAt:   "2024-01-01T00:00:00Z",
			UpdatedAt:   "2024-01-01T00:00:00Z",
			Language:    models.Language{Code: "en", Name: "English", Direction: "ltr"},
			Translation: models.TranslationInfo{Type: "formal", License: "CC0"},
		},
		Content: &models.ManifestContent{
			BooksCount: old + nt,
			Testament:  models.TestamentCounts{Old: old, New: nt},
		},
		Technical: &models.ManifestTechnical{Encoding: "UTF-8", Compression: "none"},
	}
}

// NewBook builds a valid book document with chapters × versesPerChapter verses.
func NewBook(bookID string, chapters, versesPerChapter int) *models.BookDocument {
	entry, ok := models.CanonByID(bookID)
	if !ok {
		panic(fmt.Sprintf("unknown book %q", bookID))
	}

	doc := &models.BookDocument{
		Book: models.BookInfo{
			ID:            entry.ID,
			Name:          entry.Name,
			Abbreviation:  entry.Abbreviation,
			Order:         entry.Order,
			Testament:     string(entry.Testament),
			ChaptersCount: chapters,
			VersesCount:   chapters * versesPerChapter,
		},
	}
	for c := 1; c <= chapters; c++ {
		ch := models.ChapterDocument{Number: models.N(c)}
		for v := 1; v <= versesPerChapter; v++ {
			ch.Verses = append(ch.Verses, models.VerseDocument{
				Number: models.N(v),
				Text:   fmt.Sprintf("%s %d:%d", entry.Name, c, v),
			})
		}
		doc.Chapters = append(doc.Chapters, ch)
	}
	return doc
}

// WritePackage writes m and its books to dir as manifest.json and books/<id>.json.
//
// When books are given, the manifest checksum is set to the digest of their
// encoded bytes in the given order. The encoded books are returned in that order.
func WritePackage(t *testing.T, dir string, m *models.Manifest, books ...*models.BookDocument) [][]byte {
	t.Helper()

	encoded := make([][]byte, 0, len(books))
	for _, b := range books {
		data := MustMarshal(t, b)
		MustWriteFile(t, filepath.Join(dir, "books", b.Book.ID+".json"), data)
		encoded = append(encoded, data)
	}

	if len(books) > 0 && m.Technical != nil {
		m.Technical.Checksum = Digest(encoded...)
		size := 0
		for _, b := range encoded {
			size += len(b)
		}
		m.Technical.SizeBytes = int64(size)
	}

	WriteManifest(t, dir, m)
	return encoded
}

// WriteManifest writes m to dir/manifest.json.
func WriteManifest(t *testing.T, dir string, m *models.Manifest) {
	t.Helper()
	MustWriteFile(t, filepath.Join(dir, "manifest.json"), MustMarshal(t, m))
}

// WriteHierarchy writes a parent package at dir with one translation per entry in translations,
// each supplying the given books. It returns the parent manifest.
func WriteHierarchy(t *testing.T, dir, parentID string, translations map[string][]*models.BookDocument) *models.Manifest {
	t.Helper()

	ids := make([]string, 0, len(translations))
	for id := range translations {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	parent := NewManifest(parentID)
	for _, id := range ids {
		books := translations[id]
		bookIDs := make([]string, 0, len(books))
		for _, b := range books {
			bookIDs = append(bookIDs, b.Book.ID)
		}
		WritePackage(t, filepath.Join(dir, id), NewManifest(id, bookIDs...), books...)
		parent.Translations = append(parent.Translations, models.ManifestTranslation{
			ID:           id,
			Directory:    id,
			LanguageCode: "en",
			Status:       "active",
		})
	}

	WriteManifest(t, dir, parent)
	return parent
}

// FileServer serves dir over HTTP and counts requests.
type FileServer struct {
	*httptest.Server
	requests atomic.Int64
}

// Requests returns how many requests the server has handled.
func (s *FileServer) Requests() int64 {
	return s.requests.Load()
}

// ServeDir starts an [httptest.Server] serving dir. It is closed when the test ends.
func ServeDir(t *testing.T, dir string) *FileServer {
	t.Helper()

	fs := &FileServer{}
	files := http.FileServer(http.Dir(dir))
	fs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fs.requests.Add(1)
		files.ServeHTTP(w, r)
	}))
	t.Cleanup(fs.Close)
	return fs
}
