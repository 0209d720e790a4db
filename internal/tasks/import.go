package tasks

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/desertthunder/versehub/internal/models"
	"github.com/desertthunder/versehub/internal/repositories"
	"github.com/desertthunder/versehub/internal/services"
	"github.com/desertthunder/versehub/internal/shared"
	"github.com/desertthunder/versehub/internal/validator"
)

// DefaultWorkers is the number of concurrent book downloads per import.
const DefaultWorkers = 4

// terminalSendTimeout bounds the wait for a receiver of the final cancelled update.
const terminalSendTimeout = 100 * time.Millisecond

// PackageSource resolves manifests and book documents for the importer.
//
// [services.Discovery] is the production implementation.
type PackageSource interface {
	ResolveManifest(ctx context.Context, location string) (*services.PackageManifest, error)
	FetchBook(ctx context.Context, location string) ([]byte, error)
	Policy() models.SecurityPolicy
}

// ImportOptions configures one import.
type ImportOptions struct {
	RepositoryURL     string `json:"repository_url"`
	ValidateChecksums bool   `json:"validate_checksums"`
	DownloadAudio     bool   `json:"download_audio"`
	OverwriteExisting bool   `json:"overwrite_existing"`
}

// ImportResult is the outcome of an import. Success=false means nothing was committed.
type ImportResult struct {
	Success              bool     `json:"success"`
	RepositoryID         string   `json:"repository_id"`
	BooksImported        int      `json:"books_imported"`
	VersesImported       int      `json:"verses_imported"`
	TranslationsImported int      `json:"translations_imported"`
	Errors               []string `json:"errors"`
	Warnings             []string `json:"warnings"`
	DurationMS           int64    `json:"duration_ms"`
	Cancelled            bool     `json:"cancelled"`
}

// ImportEngine runs the discover, validate, download and process pipeline for content packages.
//
// Downloads from different imports may overlap, but commits are serialized by a single writer lock.
type ImportEngine struct {
	source  PackageSource
	db      *sql.DB
	writer  chan struct{}
	workers int
	logger  *log.Logger
}

// EngineOption configures an [ImportEngine].
type EngineOption func(*ImportEngine)

// WithWorkers sets the number of concurrent book downloads.
func WithWorkers(n int) EngineOption {
	return func(e *ImportEngine) {
		if n > 0 {
			e.workers = n
		}
	}
}

// WithLogger sets the engine logger.
func WithLogger(l *log.Logger) EngineOption {
	return func(e *ImportEngine) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewImportEngine creates an ImportEngine reading packages from source and writing to db.
func NewImportEngine(source PackageSource, db *sql.DB, opts ...EngineOption) *ImportEngine {
	e := &ImportEngine{
		source:  source,
		db:      db,
		writer:  make(chan struct{}, 1),
		workers: DefaultWorkers,
		logger:  shared.NewLogger(io.Discard),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// packagePlan is one repository row to be written: the root package or one of its translations.
type packagePlan struct {
	pm        *services.PackageManifest
	id        string
	kind      models.RepositoryKind
	parentID  string
	directory string
	language  string
	status    string
	books     []*bookPlan
}

type bookPlan struct {
	entry    models.CanonEntry
	location string
	checksum string
	data     []byte
	book     *models.Book
	verses   []models.Verse
}

type importRun struct {
	engine   *ImportEngine
	opts     ImportOptions
	progress chan<- ProgressUpdate
	result   *ImportResult
	logger   *log.Logger

	root     *packagePlan
	packages []*packagePlan
}

// validationFailure carries every error-severity issue that stopped an import.
type validationFailure struct {
	issues []string
}

func (v *validationFailure) Error() string {
	return fmt.Sprintf("%d validation errors: %s", len(v.issues), strings.Join(v.issues, "; "))
}

func (v *validationFailure) Unwrap() error {
	return shared.ErrValidation
}

// Import runs the pipeline for opts.RepositoryURL, sending updates on progress when it is non-nil.
//
// Sends block until the caller receives or ctx is done. The channel is never closed by the engine.
// After cancellation the final Cancelled update waits at most 100ms for a receiver and is
// dropped otherwise; the returned result always records the cancellation.
// Failures, including cancellation, are reported in the returned result rather than as an error.
func (e *ImportEngine) Import(ctx context.Context, opts ImportOptions, progress chan<- ProgressUpdate) *ImportResult {
	start := time.Now()
	run := &importRun{
		engine:   e,
		opts:     opts,
		progress: progress,
		result:   &ImportResult{Errors: []string{}, Warnings: []string{}},
		logger:   e.logger,
	}

	if err := run.execute(ctx); err != nil {
		run.fail(ctx, err)
	}

	run.result.DurationMS = time.Since(start).Milliseconds()
	return run.result
}

func (r *importRun) execute(ctx context.Context) error {
	if strings.TrimSpace(r.opts.RepositoryURL) == "" {
		return fmt.Errorf("%w: repository url", shared.ErrMissingArgument)
	}

	steps := []func(context.Context) error{r.discover, r.validate, r.download, r.process}
	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := step(ctx); err != nil {
			return err
		}
	}

	r.result.Success = true
	r.logger.Info("import complete", "books", r.result.BooksImported, "verses", r.result.VersesImported)
	return r.emit(ctx, completeUpdate(r.result))
}

// emit delivers an update, giving up when ctx is done.
func (r *importRun) emit(ctx context.Context, u ProgressUpdate) error {
	if r.progress == nil {
		return nil
	}
	select {
	case r.progress <- u:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *importRun) warn(prefix string, issues ...string) {
	for _, issue := range issues {
		if prefix != "" {
			issue = prefix + ": " + issue
		}
		r.result.Warnings = append(r.result.Warnings, issue)
	}
}

// discover resolves the root manifest and, for a parent package, each translation manifest.
func (r *importRun) discover(ctx context.Context) error {
	if err := r.emit(ctx, resolvingUpdate(r.opts.RepositoryURL)); err != nil {
		return err
	}

	pm, err := r.engine.source.ResolveManifest(ctx, r.opts.RepositoryURL)
	if err != nil {
		return err
	}

	r.root = &packagePlan{pm: pm, id: pm.Manifest.ID(), kind: models.KindParent}
	if repo := pm.Manifest.Repository; repo != nil {
		r.root.language = repo.Language.Code
	}
	r.result.RepositoryID = r.root.id
	r.logger = shared.WithLogger(r.engine.logger, "repository", r.root.id)
	r.packages = []*packagePlan{r.root}

	declared := pm.Manifest.Translations
	translations := make([]*packagePlan, len(declared))

	var mu sync.Mutex
	found := 0

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.engine.workers)
	for i, t := range declared {
		if t.ID == "" || !validator.IsSafeRelativePath(t.Directory) {
			continue
		}
		g.Go(func() error {
			location := services.JoinLocation(pm.Base, t.Directory)
			tpm, err := r.engine.source.ResolveManifest(gctx, location)
			if err != nil {
				return fmt.Errorf("translation %s: %w", t.ID, err)
			}

			language := t.LanguageCode
			if language == "" && tpm.Manifest.Repository != nil {
				language = tpm.Manifest.Repository.Language.Code
			}
			translations[i] = &packagePlan{
				pm:        tpm,
				id:        t.ID,
				kind:      models.KindTranslation,
				parentID:  r.root.id,
				directory: t.Directory,
				language:  language,
				status:    linkStatus(t.Status),
			}

			mu.Lock()
			defer mu.Unlock()
			found++
			return r.emit(gctx, translationFoundUpdate(found, len(declared), t.ID))
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for _, t := range translations {
		if t != nil {
			r.packages = append(r.packages, t)
		}
	}

	r.logger.Debug("manifest resolved", "location", pm.Location, "translations", len(r.packages)-1)
	return r.emit(ctx, discoveredUpdate(r.root.id, len(r.packages)-1))
}

func linkStatus(s string) string {
	switch strings.ToLower(s) {
	case models.LinkInactive:
		return models.LinkInactive
	case models.LinkRevoked:
		return models.LinkRevoked
	default:
		return models.LinkActive
	}
}

// validate runs the validator over every manifest and checks size limits and id conflicts.
func (r *importRun) validate(ctx context.Context) error {
	policy := r.engine.source.Policy()
	opts := validator.OptionsFromPolicy(policy)
	total := len(r.packages)
	failures := []string{}

	for i, pkg := range r.packages {
		if err := r.emit(ctx, validatingUpdate(i, total, pkg.id)); err != nil {
			return err
		}

		vr := validator.ValidateManifest(pkg.pm.Manifest, opts)
		if pkg.kind == models.KindTranslation && pkg.pm.Manifest.ID() != "" && pkg.pm.Manifest.ID() != pkg.id {
			vr.AddError(models.CodeInvalidTranslation, "repository.id", "translation manifest id %q does not match declared id %q", pkg.pm.Manifest.ID(), pkg.id)
		}

		prefix := pkg.id
		if prefix == "" {
			prefix = pkg.pm.Location
		}
		for _, msg := range vr.ErrorMessages() {
			failures = append(failures, prefix+": "+msg)
		}
		r.warn(prefix, vr.WarningMessages()...)
	}

	if len(failures) > 0 {
		return &validationFailure{issues: failures}
	}

	if repo := r.root.pm.Manifest.Repository; repo.Type == string(models.KindTranslation) && len(r.packages) == 1 {
		r.warn(r.root.id, "declared as a translation without a parent; imported as a standalone parent")
	}

	var declared int64
	for _, pkg := range r.packages {
		declared += pkg.pm.Manifest.Technical.SizeBytes
	}
	if declared > policy.MaxRepositorySize {
		return fmt.Errorf("%w: %s declares %d bytes (max %d)", shared.ErrSizeLimit, r.root.id, declared, policy.MaxRepositorySize)
	}

	if err := r.checkConflicts(ctx); err != nil {
		return err
	}

	return r.emit(ctx, validatedUpdate(len(r.result.Warnings)))
}

// checkConflicts rejects ids already stored unless overwriting, and translations owned by another parent.
func (r *importRun) checkConflicts(ctx context.Context) error {
	store := repositories.NewRepositoryStore(r.engine.db)

	for _, pkg := range r.packages {
		existing, err := store.Get(ctx, pkg.id)
		if errors.Is(err, shared.ErrRepositoryNotFound) {
			continue
		}
		if err != nil {
			return fmt.Errorf("%w: %w", shared.ErrStorage, err)
		}

		if !r.opts.OverwriteExisting {
			return fmt.Errorf("%w: %s (use overwrite to replace it)", shared.ErrConflict, pkg.id)
		}
		if pkg != r.root && existing.ParentID != r.root.id {
			return fmt.Errorf("%w: %s is stored outside %s", shared.ErrConflict, pkg.id, r.root.id)
		}
	}
	return nil
}

// download fetches every planned book concurrently and verifies checksums when requested.
func (r *importRun) download(ctx context.Context) error {
	total := 0
	for _, pkg := range r.packages {
		pkg.books = planBooks(pkg.pm)
		total += len(pkg.books)
	}

	if err := r.emit(ctx, downloadingUpdate(total)); err != nil {
		return err
	}
	if r.opts.DownloadAudio {
		r.warn("", "audio downloads are not supported; audio references were skipped")
	}

	limit := r.engine.source.Policy().MaxRepositorySize
	var (
		mu         sync.Mutex
		done       int
		downloaded int64
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.engine.workers)
	for _, pkg := range r.packages {
		for _, bp := range pkg.books {
			g.Go(func() error {
				data, err := r.engine.source.FetchBook(gctx, bp.location)
				if err != nil {
					return fmt.Errorf("book %s/%s: %w", pkg.id, bp.entry.ID, err)
				}
				bp.data = data

				mu.Lock()
				defer mu.Unlock()
				downloaded += int64(len(data))
				if downloaded > limit {
					return fmt.Errorf("%w: %s exceeds %d bytes", shared.ErrSizeLimit, r.root.id, limit)
				}
				done++
				return r.emit(gctx, bookDownloadedUpdate(done, total, bp.entry.Name))
			})
		}
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if r.opts.ValidateChecksums {
		for _, pkg := range r.packages {
			if err := r.verify(pkg); err != nil {
				return err
			}
		}
		return r.emit(ctx, verifiedUpdate(total))
	}
	return nil
}

// planBooks lists a package's books from content.books, or from the canonical testament prefixes.
func planBooks(pm *services.PackageManifest) []*bookPlan {
	content := pm.Manifest.Content
	plans := []*bookPlan{}

	if len(content.Books) > 0 {
		for _, b := range content.Books {
			entry, ok := models.CanonByID(b.ID)
			if !ok {
				continue
			}
			file := b.File
			if file == "" {
				file = "books/" + entry.ID + ".json"
			}
			plans = append(plans, &bookPlan{
				entry:    entry,
				location: services.JoinLocation(pm.Base, strings.Split(file, "/")...),
				checksum: b.Checksum,
			})
		}
		return plans
	}

	for _, entry := range models.CanonPlan(content.Testament.Old, content.Testament.New) {
		plans = append(plans, &bookPlan{
			entry:    entry,
			location: services.JoinLocation(pm.Base, "books", entry.ID+".json"),
		})
	}
	return plans
}

// verify compares per-book digests and the package digest over all books in plan order.
func (r *importRun) verify(pkg *packagePlan) error {
	whole := sha256.New()
	for _, bp := range pkg.books {
		whole.Write(bp.data)

		if bp.checksum == "" {
			continue
		}
		want, err := validator.ParseChecksum(bp.checksum)
		if err != nil {
			return fmt.Errorf("%w: %s/%s: %v", shared.ErrIntegrity, pkg.id, bp.entry.ID, err)
		}
		sum := sha256.Sum256(bp.data)
		if got := hex.EncodeToString(sum[:]); got != want {
			return fmt.Errorf("%w: %s/%s checksum mismatch: declared %s, computed %s", shared.ErrIntegrity, pkg.id, bp.entry.ID, want, got)
		}
	}

	if len(pkg.books) == 0 {
		return nil
	}

	declared := pkg.pm.Manifest.Technical.Checksum
	want, err := validator.ParseChecksum(declared)
	if err != nil {
		r.warn(pkg.id, "package checksum not verified: "+err.Error())
		return nil
	}
	if got := hex.EncodeToString(whole.Sum(nil)); got != want {
		return fmt.Errorf("%w: %s checksum mismatch: declared %s, computed %s", shared.ErrIntegrity, pkg.id, want, got)
	}
	return nil
}

// process decodes and validates every book, stages rows and commits them in one transaction.
func (r *importRun) process(ctx context.Context) error {
	total := 0
	for _, pkg := range r.packages {
		total += len(pkg.books)
	}

	done, verses := 0, 0
	for _, pkg := range r.packages {
		for _, bp := range pkg.books {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := r.stage(pkg, bp); err != nil {
				return err
			}
			done++
			verses += len(bp.verses)
			if err := r.emit(ctx, bookProcessedUpdate(done, total, bp.entry.Name)); err != nil {
				return err
			}
		}
	}

	if err := r.emit(ctx, writingUpdate(total, verses)); err != nil {
		return err
	}
	if err := r.commit(ctx); err != nil {
		return err
	}

	r.result.BooksImported = total
	r.result.VersesImported = verses
	r.result.TranslationsImported = len(r.packages) - 1
	return r.emit(ctx, committedUpdate(total))
}

// stage decodes and validates one book document and builds its rows.
func (r *importRun) stage(pkg *packagePlan, bp *bookPlan) error {
	path := pkg.id + "/" + bp.entry.ID

	doc, err := services.DecodeBook(bp.entry.ID+".json", bp.data)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	vr := validator.ValidateBook(doc, bp.entry.Order)
	if !vr.Valid {
		issues := make([]string, 0, len(vr.Errors))
		for _, msg := range vr.ErrorMessages() {
			issues = append(issues, path+": "+msg)
		}
		return &validationFailure{issues: issues}
	}
	r.warn(path, vr.WarningMessages()...)

	name := doc.Book.Name
	if name == "" {
		name = bp.entry.Name
	}
	abbreviation := doc.Book.Abbreviation
	if abbreviation == "" {
		abbreviation = bp.entry.Abbreviation
	}

	bp.book = &models.Book{
		RepositoryID: pkg.id,
		Name:         shared.NormalizeText(name),
		Abbreviation: abbreviation,
		Testament:    bp.entry.Testament,
		Order:        bp.entry.Order,
		ChapterCount: len(doc.Chapters),
	}

	bp.verses = make([]models.Verse, 0, doc.VerseCount())
	for _, ch := range doc.Chapters {
		for _, v := range ch.Verses {
			bp.verses = append(bp.verses, models.Verse{
				RepositoryID: pkg.id,
				Chapter:      ch.Number.Value,
				Number:       v.Number.Value,
				Text:         shared.NormalizeText(v.Text),
			})
		}
	}
	bp.data = nil
	return nil
}

// commit writes every staged row under the writer lock in a single transaction.
func (r *importRun) commit(ctx context.Context) error {
	select {
	case r.engine.writer <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-r.engine.writer }()

	if err := ctx.Err(); err != nil {
		return err
	}

	err := repositories.InTx(ctx, r.engine.db, func(s *repositories.Stores) error {
		if r.opts.OverwriteExisting {
			err := s.Repositories.Delete(ctx, r.root.id)
			if err != nil && !errors.Is(err, shared.ErrRepositoryNotFound) {
				return err
			}
			if err == nil {
				r.logger.Info("replacing existing repository")
			}
		}

		for _, pkg := range r.packages {
			if err := r.writePackage(ctx, s, pkg); err != nil {
				return err
			}
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		return nil
	})

	switch {
	case err == nil:
		return nil
	case ctx.Err() != nil:
		return ctx.Err()
	case errors.Is(err, shared.ErrConflict):
		return err
	default:
		return fmt.Errorf("%w: %w", shared.ErrStorage, err)
	}
}

func (r *importRun) writePackage(ctx context.Context, s *repositories.Stores, pkg *packagePlan) error {
	m := pkg.pm.Manifest.Repository
	repo := &models.Repository{
		ID:          pkg.id,
		Name:        m.Name,
		Description: m.Description,
		Language:    pkg.language,
		Version:     m.Version,
		Kind:        pkg.kind,
		ParentID:    pkg.parentID,
	}
	if err := s.Repositories.Create(ctx, repo); err != nil {
		return err
	}

	if pkg.kind == models.KindTranslation {
		link := &models.TranslationLink{
			ParentID:      pkg.parentID,
			TranslationID: pkg.id,
			DirectoryName: pkg.directory,
			LanguageCode:  pkg.language,
			Status:        pkg.status,
		}
		if err := s.Translations.Link(ctx, link); err != nil {
			return err
		}
	}

	for _, bp := range pkg.books {
		if err := s.Books.Create(ctx, bp.book); err != nil {
			return err
		}
		for i := range bp.verses {
			bp.verses[i].BookID = bp.book.ID
		}
		if err := s.Verses.CreateBatch(ctx, bp.verses); err != nil {
			return err
		}
	}
	return nil
}

// fail records err in the result and sends the terminal update.
func (r *importRun) fail(ctx context.Context, err error) {
	r.result.Success = false
	r.result.BooksImported = 0
	r.result.VersesImported = 0
	r.result.TranslationsImported = 0

	// Only the caller's context decides cancellation; a client timeout is a network failure.
	if ctx.Err() != nil {
		r.result.Cancelled = true
		r.result.Errors = append(r.result.Errors, "Cancelled: import cancelled before completion")
		r.logger.Warn("import cancelled")
		if r.progress != nil {
			timer := time.NewTimer(terminalSendTimeout)
			defer timer.Stop()
			select {
			case r.progress <- cancelledUpdate():
			case <-timer.C:
				r.logger.Debug("cancelled update dropped", "after", terminalSendTimeout)
			}
		}
		return
	}

	var vf *validationFailure
	if errors.As(err, &vf) {
		for _, issue := range vf.issues {
			r.result.Errors = append(r.result.Errors, "ValidationError: "+issue)
		}
	} else {
		r.result.Errors = append(r.result.Errors, ErrorKind(err)+": "+err.Error())
	}

	r.logger.Error("import failed", "error", err)
	_ = r.emit(ctx, failedUpdate(err))
}

func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, shared.ErrCancelled)
}

// ErrorKind names the taxonomy class used to prefix err in [ImportResult.Errors].
//
// Network errors win over the deadline they may wrap.
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, shared.ErrNetwork):
		return "NetworkError"
	case isCancellation(err):
		return "Cancelled"
	case errors.Is(err, shared.ErrConflict):
		return "ConflictError"
	case errors.Is(err, shared.ErrSecurityPolicy), errors.Is(err, shared.ErrSizeLimit):
		return "SecurityError"
	case errors.Is(err, shared.ErrIntegrity):
		return "IntegrityError"
	case errors.Is(err, shared.ErrValidation), errors.Is(err, shared.ErrInvalidArgument), errors.Is(err, shared.ErrMissingArgument):
		return "ValidationError"
	case errors.Is(err, shared.ErrNotFound), errors.Is(err, shared.ErrManifestNotFound):
		return "NetworkError"
	default:
		return "StorageError"
	}
}
