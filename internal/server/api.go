package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/desertthunder/versehub/internal/models"
	"github.com/desertthunder/versehub/internal/services"
	"github.com/desertthunder/versehub/internal/shared"
	"github.com/desertthunder/versehub/internal/tasks"
)

// Library is the subset of the library service the API exposes.
type Library interface {
	DiscoverRepositories(ctx context.Context) ([]models.IndexEntry, error)
	GetManifest(ctx context.Context, location string) (*models.Manifest, error)
	ValidateRepositoryURL(ctx context.Context, location string) (*models.VerificationResult, error)
	ScanDirectory(ctx context.Context, root string) (*services.ScanResult, error)
	ImportRepository(ctx context.Context, opts tasks.ImportOptions, progress chan<- tasks.ProgressUpdate) *tasks.ImportResult
	GetSources() ([]services.RepositorySource, error)
	AddSource(ctx context.Context, src services.RepositorySource) error
	RemoveSource(ctx context.Context, name string) error
	EnableSource(ctx context.Context, name string, enabled bool) error
	ClearCache() error
	ListRepositories(ctx context.Context, kind models.RepositoryKind) ([]*models.RepositorySummary, error)
	GetChapter(ctx context.Context, repositoryID, bookRef string, chapter int) (*models.Chapter, error)
}

// StreamEvent is one NDJSON line of an import stream.
type StreamEvent struct {
	Type     string                `json:"type"` // "progress" or "result"
	Progress *tasks.ProgressUpdate `json:"progress,omitempty"`
	Result   *tasks.ImportResult   `json:"result,omitempty"`
}

// EnableRequest is the body of POST /api/sources/enable.
type EnableRequest struct {
	Name    string `json:"name"`
	Enabled bool   `json:"enabled"`
}

type errorBody struct {
	Error string `json:"error"`
}

type statusBody struct {
	Status string `json:"status"`
}

// APIHandler serves the /api endpoints.
type APIHandler struct {
	lib Library
}

// NewAPIHandler creates an APIHandler backed by lib.
func NewAPIHandler(lib Library) *APIHandler {
	return &APIHandler{lib: lib}
}

// Register implements [Handler].
func (h *APIHandler) Register(r Router) {
	r.Handle(http.MethodGet, "/api/discover", http.HandlerFunc(h.discover))
	r.Handle(http.MethodGet, "/api/manifest", http.HandlerFunc(h.manifest))
	r.Handle(http.MethodGet, "/api/validate", http.HandlerFunc(h.validate))
	r.Handle(http.MethodGet, "/api/scan", http.HandlerFunc(h.scan))
	r.Handle(http.MethodPost, "/api/import", http.HandlerFunc(h.importRepository))
	r.Handle(http.MethodGet, "/api/sources", http.HandlerFunc(h.listSources))
	r.Handle(http.MethodPost, "/api/sources", http.HandlerFunc(h.addSource))
	r.Handle(http.MethodDelete, "/api/sources", http.HandlerFunc(h.removeSource))
	r.Handle(http.MethodPost, "/api/sources/enable", http.HandlerFunc(h.enableSource))
	r.Handle(http.MethodPost, "/api/cache/clear", http.HandlerFunc(h.clearCache))
	r.Handle(http.MethodGet, "/api/repositories", http.HandlerFunc(h.repositories))
	r.Handle(http.MethodGet, "/api/chapter", http.HandlerFunc(h.chapter))
}

func (h *APIHandler) discover(w http.ResponseWriter, r *http.Request) {
	entries, err := h.lib.DiscoverRepositories(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *APIHandler) manifest(w http.ResponseWriter, r *http.Request) {
	location, err := requireQuery(r, "url")
	if err != nil {
		writeError(w, err)
		return
	}
	m, err := h.lib.GetManifest(r.Context(), location)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (h *APIHandler) validate(w http.ResponseWriter, r *http.Request) {
	location, err := requireQuery(r, "url")
	if err != nil {
		writeError(w, err)
		return
	}
	result, err := h.lib.ValidateRepositoryURL(r.Context(), location)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *APIHandler) scan(w http.ResponseWriter, r *http.Request) {
	root, err := requireQuery(r, "path")
	if err != nil {
		writeError(w, err)
		return
	}
	result, err := h.lib.ScanDirectory(r.Context(), root)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// importRepository streams progress as NDJSON, ending with the result.
func (h *APIHandler) importRepository(w http.ResponseWriter, r *http.Request) {
	var opts tasks.ImportOptions
	if err := decodeBody(w, r, &opts); err != nil {
		writeError(w, err)
		return
	}
	if strings.TrimSpace(opts.RepositoryURL) == "" {
		writeError(w, fmt.Errorf("%w: repository_url", shared.ErrMissingArgument))
		return
	}

	ctx := r.Context()
	progress := make(chan tasks.ProgressUpdate)
	done := make(chan *tasks.ImportResult, 1)
	go func() {
		done <- h.lib.ImportRepository(ctx, opts, progress)
	}()

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	rc := http.NewResponseController(w)
	enc := json.NewEncoder(w)
	for {
		select {
		case update := <-progress:
			if err := enc.Encode(StreamEvent{Type: "progress", Progress: &update}); err != nil {
				continue
			}
			_ = rc.Flush()
		case result := <-done:
			_ = enc.Encode(StreamEvent{Type: "result", Result: result})
			_ = rc.Flush()
			return
		}
	}
}

func (h *APIHandler) listSources(w http.ResponseWriter, r *http.Request) {
	sources, err := h.lib.GetSources()
	if err != nil {
		writeError(w, err)
		return
	}
	for i := range sources {
		if sources[i].Token != "" {
			sources[i].Token = "redacted"
		}
	}
	writeJSON(w, http.StatusOK, sources)
}

func (h *APIHandler) addSource(w http.ResponseWriter, r *http.Request) {
	var src services.RepositorySource
	if err := decodeBody(w, r, &src); err != nil {
		writeError(w, err)
		return
	}
	if err := h.lib.AddSource(r.Context(), src); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, statusBody{Status: "added"})
}

func (h *APIHandler) removeSource(w http.ResponseWriter, r *http.Request) {
	name, err := requireQuery(r, "name")
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.lib.RemoveSource(r.Context(), name); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, statusBody{Status: "removed"})
}

func (h *APIHandler) enableSource(w http.ResponseWriter, r *http.Request) {
	var req EnableRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := h.lib.EnableSource(r.Context(), req.Name, req.Enabled); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, statusBody{Status: "updated"})
}

func (h *APIHandler) clearCache(w http.ResponseWriter, r *http.Request) {
	if err := h.lib.ClearCache(); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, statusBody{Status: "cleared"})
}

func (h *APIHandler) repositories(w http.ResponseWriter, r *http.Request) {
	kind := models.RepositoryKind(r.URL.Query().Get("type"))
	switch kind {
	case "", models.KindParent, models.KindTranslation:
	default:
		writeError(w, fmt.Errorf("%w: type %q", shared.ErrInvalidArgument, kind))
		return
	}

	summaries, err := h.lib.ListRepositories(r.Context(), kind)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summaries)
}

func (h *APIHandler) chapter(w http.ResponseWriter, r *http.Request) {
	repo, err := requireQuery(r, "repository")
	if err != nil {
		writeError(w, err)
		return
	}
	book, err := requireQuery(r, "book")
	if err != nil {
		writeError(w, err)
		return
	}

	number := 1
	if raw := r.URL.Query().Get("chapter"); raw != "" {
		number, err = strconv.Atoi(raw)
		if err != nil {
			writeError(w, fmt.Errorf("%w: chapter %q", shared.ErrInvalidArgument, raw))
			return
		}
	}

	chapter, err := h.lib.GetChapter(r.Context(), repo, book, number)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, chapter)
}

func requireQuery(r *http.Request, name string) (string, error) {
	value := strings.TrimSpace(r.URL.Query().Get(name))
	if value == "" {
		return "", fmt.Errorf("%w: query parameter %s", shared.ErrMissingArgument, name)
	}
	return value, nil
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: request body: %v", shared.ErrInvalidInput, err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, StatusFor(err), errorBody{Error: err.Error()})
}

// StatusFor maps an error class to an HTTP status.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, shared.ErrNotFound),
		errors.Is(err, shared.ErrRepositoryNotFound),
		errors.Is(err, shared.ErrSourceNotFound),
		errors.Is(err, shared.ErrManifestNotFound):
		return http.StatusNotFound
	case errors.Is(err, shared.ErrMissingArgument),
		errors.Is(err, shared.ErrInvalidArgument),
		errors.Is(err, shared.ErrInvalidInput),
		errors.Is(err, shared.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, shared.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, shared.ErrSecurityPolicy), errors.Is(err, shared.ErrSizeLimit):
		return http.StatusForbidden
	case errors.Is(err, shared.ErrNetwork), errors.Is(err, shared.ErrIntegrity):
		return http.StatusBadGateway
	case errors.Is(err, shared.ErrNotInitialized), errors.Is(err, shared.ErrServiceUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
