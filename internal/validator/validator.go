package validator

import (
	"encoding/hex"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/desertthunder/versehub/internal/models"
)

// SupportedMajorVersion is the only manifest format major accepted.
const SupportedMajorVersion = "1"

// Options tunes manifest validation.
type Options struct {
	RequireChecksums bool
}

// OptionsFromPolicy derives validation options from a security policy.
func OptionsFromPolicy(p models.SecurityPolicy) Options {
	return Options{RequireChecksums: p.RequireChecksums}
}

// ValidateManifest checks a manifest's required fields, counts, translations and checksums.
func ValidateManifest(m *models.Manifest, opts Options) *models.VerificationResult {
	r := models.NewVerificationResult()
	if m == nil {
		r.AddError(models.CodeMissingField, "", "manifest is empty")
		return r
	}

	validateFormatVersion(r, m.FormatVersion)
	validateRepository(r, m.Repository)
	validateContent(r, m.Content)
	validateTechnical(r, m.Technical, opts)
	validateTranslations(r, m)

	return r
}

func validateFormatVersion(r *models.VerificationResult, version string) {
	version = strings.TrimSpace(version)
	if version == "" {
		r.AddError(models.CodeMissingField, "format_version", "format_version is required")
		return
	}
	major, _, _ := strings.Cut(strings.TrimPrefix(version, "v"), ".")
	if major != SupportedMajorVersion {
		r.AddError(models.CodeUnsupportedVersion, "format_version", "format version %s is not supported (want %s.x)", version, SupportedMajorVersion)
	}
}

func validateRepository(r *models.VerificationResult, repo *models.ManifestRepository) {
	if repo == nil {
		r.AddError(models.CodeMissingField, "repository", "repository section is required")
		return
	}

	required := []struct{ path, value string }{
		{"repository.id", repo.ID},
		{"repository.name", repo.Name},
		{"repository.version", repo.Version},
		{"repository.language.code", repo.Language.Code},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			r.AddError(models.CodeMissingField, f.path, "%s is required", f.path)
		}
	}

	if id := repo.ID; id != "" && !isSafeSegment(id) {
		r.AddError(models.CodeMissingField, "repository.id", "repository id %q contains path separators", id)
	}

	switch strings.ToLower(repo.Language.Direction) {
	case "ltr", "rtl":
	case "":
		r.AddWarning(models.CodeMissingMetadata, "repository.language.direction", "text direction not declared, assuming ltr")
	default:
		r.AddError(models.CodeInvalidDirection, "repository.language.direction", "direction %q must be ltr or rtl", repo.Language.Direction)
	}

	switch repo.Type {
	case "", string(models.KindParent), string(models.KindTranslation):
	default:
		r.AddError(models.CodeInvalidTranslation, "repository.type", "repository type %q must be parent or translation", repo.Type)
	}

	if repo.Publisher == "" {
		r.AddWarning(models.CodeMissingMetadata, "repository.publisher", "publisher not declared")
	}
	if repo.Translation.License == "" {
		r.AddWarning(models.CodeMissingMetadata, "repository.translation.license", "license not declared")
	}
	validateTimestamp(r, "repository.created_at", repo.CreatedAt)
	validateTimestamp(r, "repository.updated_at", repo.UpdatedAt)
}

func validateTimestamp(r *models.VerificationResult, field, value string) {
	if value == "" {
		r.AddWarning(models.CodeMissingMetadata, field, "%s not declared", field)
		return
	}
	if _, err := time.Parse(time.RFC3339, value); err == nil {
		return
	}
	if _, err := time.Parse(time.DateOnly, value); err == nil {
		return
	}
	r.AddWarning(models.CodeInvalidTimestamp, field, "%s %q is not an RFC 3339 timestamp", field, value)
}

func validateContent(r *models.VerificationResult, c *models.ManifestContent) {
	if c == nil {
		r.AddError(models.CodeMissingField, "content", "content section is required")
		return
	}

	old, nt := c.Testament.Old, c.Testament.New
	if old < 0 || old > models.OldTestamentBooks {
		r.AddError(models.CodeTestamentCountMismatch, "content.testament.old", "old testament count %d outside 0..%d", old, models.OldTestamentBooks)
	}
	if nt < 0 || nt > models.NewTestamentBooks {
		r.AddError(models.CodeTestamentCountMismatch, "content.testament.new", "new testament count %d outside 0..%d", nt, models.NewTestamentBooks)
	}
	if c.BooksCount != old+nt {
		r.AddError(models.CodeBookCountMismatch, "content.books_count", "books_count %d does not equal old %d + new %d", c.BooksCount, old, nt)
	}

	if len(c.Books) == 0 {
		return
	}
	if c.BooksCount != len(c.Books) {
		r.AddError(models.CodeBookCountMismatch, "content.books", "books_count %d does not match %d listed books", c.BooksCount, len(c.Books))
	}

	seen := make(map[string]bool, len(c.Books))
	listedOld, listedNew := 0, 0
	for i, b := range c.Books {
		p := fmt.Sprintf("content.books[%d]", i)
		entry, ok := models.CanonByID(b.ID)
		if !ok {
			r.AddError(models.CodeUnknownBook, p+".id", "book %q is not in the canon", b.ID)
			continue
		}
		if seen[entry.ID] {
			r.AddError(models.CodeBookCountMismatch, p+".id", "book %q listed more than once", b.ID)
			continue
		}
		seen[entry.ID] = true
		if entry.Testament == models.OldTestament {
			listedOld++
		} else {
			listedNew++
		}
		if b.File != "" && !IsSafeRelativePath(b.File) {
			r.AddError(models.CodeInvalidTranslation, p+".file", "book file %q escapes the package", b.File)
		}
		if b.Checksum != "" {
			if _, err := ParseChecksum(b.Checksum); err != nil {
				r.AddError(models.CodeInvalidChecksum, p+".checksum", "%v", err)
			}
		}
	}
	if listedOld != old || listedNew != nt {
		r.AddError(models.CodeTestamentCountMismatch, "content.books", "listed books split %d/%d, testament declares %d/%d", listedOld, listedNew, old, nt)
	}
}

func validateTechnical(r *models.VerificationResult, t *models.ManifestTechnical, opts Options) {
	if t == nil {
		r.AddError(models.CodeMissingField, "technical", "technical section is required")
		return
	}

	switch strings.ToLower(strings.ReplaceAll(t.Encoding, "-", "")) {
	case "utf8":
	case "":
		r.AddWarning(models.CodeMissingMetadata, "technical.encoding", "encoding not declared, assuming UTF-8")
	default:
		r.AddError(models.CodeUnsupportedEncoding, "technical.encoding", "encoding %q is not supported", t.Encoding)
	}

	if t.SizeBytes < 0 {
		r.AddError(models.CodeMissingField, "technical.size_bytes", "size_bytes cannot be negative")
	}

	if strings.TrimSpace(t.Checksum) == "" {
		if opts.RequireChecksums {
			r.AddError(models.CodeMissingChecksum, "technical.checksum", "checksum is required")
		} else {
			r.AddWarning(models.CodeMissingChecksum, "technical.checksum", "checksum not declared")
		}
		return
	}

	if _, err := ParseChecksum(t.Checksum); err != nil {
		if opts.RequireChecksums {
			r.AddError(models.CodeInvalidChecksum, "technical.checksum", "%v", err)
		} else {
			r.AddWarning(models.CodeInvalidChecksum, "technical.checksum", "%v", err)
		}
	}
}

func validateTranslations(r *models.VerificationResult, m *models.Manifest) {
	ids := make(map[string]bool, len(m.Translations))
	dirs := make(map[string]bool, len(m.Translations))

	for i, tr := range m.Translations {
		p := fmt.Sprintf("translations[%d]", i)
		if tr.ID == "" {
			r.AddError(models.CodeInvalidTranslation, p+".id", "translation id is required")
		} else if tr.ID == m.ID() {
			r.AddError(models.CodeInvalidTranslation, p+".id", "translation %q reuses the parent id", tr.ID)
		} else if ids[tr.ID] {
			r.AddError(models.CodeDuplicateTranslation, p+".id", "translation %q declared more than once", tr.ID)
		}
		ids[tr.ID] = true

		if tr.Directory == "" {
			r.AddError(models.CodeInvalidTranslation, p+".directory", "translation directory is required")
			continue
		}
		if !IsSafeRelativePath(tr.Directory) {
			r.AddError(models.CodeInvalidTranslation, p+".directory", "translation directory %q escapes the package", tr.Directory)
			continue
		}
		clean := path.Clean(tr.Directory)
		if dirs[clean] {
			r.AddError(models.CodeDuplicateTranslation, p+".directory", "directory %q used by more than one translation", tr.Directory)
		}
		dirs[clean] = true
	}
}

// ValidateBook checks a book document against the canonical order it is expected at.
func ValidateBook(doc *models.BookDocument, expectedOrder int) *models.VerificationResult {
	r := models.NewVerificationResult()
	if doc == nil {
		r.AddError(models.CodeMissingField, "", "book document is empty")
		return r
	}

	b := doc.Book
	if b.ID == "" {
		r.AddError(models.CodeMissingField, "book.id", "book id is required")
	}
	if b.Name == "" {
		r.AddError(models.CodeMissingField, "book.name", "book name is required")
	}
	if b.Order != expectedOrder {
		r.AddError(models.CodeOrderMismatch, "book.order", "book %s has order %d, expected %d", b.ID, b.Order, expectedOrder)
	}

	if entry, ok := models.CanonByOrder(expectedOrder); ok {
		if models.Testament(strings.ToUpper(b.Testament)) != entry.Testament {
			r.AddError(models.CodeTestamentMismatch, "book.testament", "book %s declares testament %q, canon order %d is %s", b.ID, b.Testament, expectedOrder, entry.Testament)
		}
	} else {
		r.AddError(models.CodeOrderMismatch, "book.order", "expected order %d is outside the canon", expectedOrder)
	}

	if b.ChaptersCount != len(doc.Chapters) {
		r.AddError(models.CodeChapterCountMismatch, "book.chapters_count", "chapters_count %d does not match %d chapters", b.ChaptersCount, len(doc.Chapters))
	}
	if total := doc.VerseCount(); b.VersesCount != total {
		r.AddError(models.CodeVerseCountMismatch, "book.verses_count", "verses_count %d does not match %d verses", b.VersesCount, total)
	}

	chapters := make(map[int]bool, len(doc.Chapters))
	for i, ch := range doc.Chapters {
		p := fmt.Sprintf("chapters[%d]", i)
		if ch.Number.Value < 1 {
			r.AddError(models.CodeInvalidNumber, p+".number", "chapter number %q is not a positive integer", ch.Number.String())
		} else if chapters[ch.Number.Value] {
			r.AddError(models.CodeDuplicateChapter, p+".number", "chapter %d appears more than once", ch.Number.Value)
		}
		chapters[ch.Number.Value] = true
		validateVerses(r, p, ch)
	}

	return r
}

func validateVerses(r *models.VerificationResult, prefix string, ch models.ChapterDocument) {
	verses := make(map[int]bool, len(ch.Verses))
	for j, v := range ch.Verses {
		p := fmt.Sprintf("%s.verses[%d]", prefix, j)
		switch {
		case v.Number.Value < 1:
			r.AddError(models.CodeInvalidNumber, p+".number", "verse number %q is not a positive integer", v.Number.String())
		case verses[v.Number.Value]:
			r.AddError(models.CodeDuplicateVerse, p+".number", "verse %d:%d appears more than once", ch.Number.Value, v.Number.Value)
		}
		verses[v.Number.Value] = true

		if v.Number.IsRange() {
			r.AddWarning(models.CodeVerseRange, p+".number", "verse range %s stored as verse %d", v.Number.String(), v.Number.Value)
		}
		if strings.TrimSpace(v.Text) == "" {
			r.AddWarning(models.CodeEmptyText, p+".text", "verse %d:%d has no text", ch.Number.Value, v.Number.Value)
		}
	}
}

// ParseChecksum returns the lowercase hex digest of a "sha256:<hex>" or bare 64-hex checksum.
//
// Placeholder digests (all zeros, "...", "TBD", "placeholder") are rejected.
func ParseChecksum(s string) (string, error) {
	raw := strings.TrimSpace(s)
	lower := strings.ToLower(raw)
	if lower == "" {
		return "", fmt.Errorf("checksum is empty")
	}
	if strings.Contains(lower, "...") || strings.Contains(lower, "tbd") || strings.Contains(lower, "placeholder") {
		return "", fmt.Errorf("checksum %q is a placeholder", raw)
	}

	digest := lower
	if algo, rest, ok := strings.Cut(lower, ":"); ok {
		if algo != "sha256" {
			return "", fmt.Errorf("checksum algorithm %q is not supported", algo)
		}
		digest = rest
	}

	if len(digest) != 64 {
		return "", fmt.Errorf("checksum %q must be 64 hex characters", raw)
	}
	if _, err := hex.DecodeString(digest); err != nil {
		return "", fmt.Errorf("checksum %q is not hexadecimal", raw)
	}
	if strings.Trim(digest, "0") == "" {
		return "", fmt.Errorf("checksum %q is a placeholder", raw)
	}
	return digest, nil
}

func isSafeSegment(s string) bool {
	return !strings.ContainsAny(s, `/\`) && s != "." && s != ".."
}

// IsSafeRelativePath reports whether p is a relative slash path that stays inside its base directory.
func IsSafeRelativePath(p string) bool {
	if p == "" || strings.HasPrefix(p, "/") || strings.Contains(p, `\`) {
		return false
	}
	clean := path.Clean(p)
	return clean != ".." && !strings.HasPrefix(clean, "../")
}
