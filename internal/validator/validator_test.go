package validator

import (
	"reflect"
	"strings"
	"testing"

	"github.com/desertthunder/versehub/internal/models"
)

const goodChecksum = "sha256:9f86d081884c7d659a2feaa0c55ad015a3bf4f1b2b0b822cd15d6c15b0f00a08"

func validManifest() *models.Manifest {
	return &models.Manifest{
		FormatVersion: "1.0",
		Repository: &models.ManifestRepository{
			ID:          "kjv",
			Name:        "King James Version",
			Version:     "1.0.0",
			Publisher:   "Public Domain",
			CreatedAt:   "2024-01-01T00:00:00Z",
			UpdatedAt:   "2024-01-02",
			Language:    models.Language{Code: "en", Name: "English", Direction: "ltr"},
			Translation: models.TranslationInfo{License: "Public Domain"},
		},
		Content: &models.ManifestContent{
			BooksCount: 3,
			Testament:  models.TestamentCounts{Old: 2, New: 1},
		},
		Technical: &models.ManifestTechnical{Encoding: "UTF-8", Checksum: goodChecksum, SizeBytes: 1024},
	}
}

func validBook() *models.BookDocument {
	return &models.BookDocument{
		Book: models.BookInfo{ID: "gen", Name: "Genesis", Order: 1, Testament: "OT", ChaptersCount: 2, VersesCount: 3},
		Chapters: []models.ChapterDocument{
			{Number: models.N(1), Verses: []models.VerseDocument{{Number: models.N(1), Text: "a"}, {Number: models.N(2), Text: "b"}}},
			{Number: models.N(2), Verses: []models.VerseDocument{{Number: models.N(1), Text: "c"}}},
		},
	}
}

func codes(issues []models.Issue) []string {
	out := make([]string, 0, len(issues))
	for _, i := range issues {
		out = append(out, i.Code)
	}
	return out
}

func hasCode(issues []models.Issue, code string) bool {
	for _, i := range issues {
		if i.Code == code {
			return true
		}
	}
	return false
}

func TestValidateManifest(t *testing.T) {
	t.Run("valid manifest", func(t *testing.T) {
		r := ValidateManifest(validManifest(), Options{RequireChecksums: true})
		if !r.Valid {
			t.Fatalf("expected valid manifest, got errors %v", r.ErrorMessages())
		}
		if len(r.Warnings) != 0 {
			t.Errorf("expected no warnings, got %v", r.WarningMessages())
		}
	})

	t.Run("nil manifest", func(t *testing.T) {
		r := ValidateManifest(nil, Options{})
		if r.Valid || !hasCode(r.Errors, models.CodeMissingField) {
			t.Errorf("expected MISSING_FIELD, got %v", codes(r.Errors))
		}
	})

	tc := []struct {
		name     string
		mutate   func(m *models.Manifest)
		opts     Options
		wantCode string
		wantErr  bool
	}{
		{name: "missing format version", mutate: func(m *models.Manifest) { m.FormatVersion = "" }, wantCode: models.CodeMissingField, wantErr: true},
		{name: "unsupported major", mutate: func(m *models.Manifest) { m.FormatVersion = "2.0" }, wantCode: models.CodeUnsupportedVersion, wantErr: true},
		{name: "missing repository", mutate: func(m *models.Manifest) { m.Repository = nil }, wantCode: models.CodeMissingField, wantErr: true},
		{name: "missing content", mutate: func(m *models.Manifest) { m.Content = nil }, wantCode: models.CodeMissingField, wantErr: true},
		{name: "missing technical", mutate: func(m *models.Manifest) { m.Technical = nil }, wantCode: models.CodeMissingField, wantErr: true},
		{name: "missing id", mutate: func(m *models.Manifest) { m.Repository.ID = "" }, wantCode: models.CodeMissingField, wantErr: true},
		{name: "missing language code", mutate: func(m *models.Manifest) { m.Repository.Language.Code = "" }, wantCode: models.CodeMissingField, wantErr: true},
		{name: "bad direction", mutate: func(m *models.Manifest) { m.Repository.Language.Direction = "ttb" }, wantCode: models.CodeInvalidDirection, wantErr: true},
		{name: "rtl direction", mutate: func(m *models.Manifest) { m.Repository.Language.Direction = "rtl" }},
		{name: "book count mismatch", mutate: func(m *models.Manifest) { m.Content.BooksCount = 5 }, wantCode: models.CodeBookCountMismatch, wantErr: true},
		{name: "old testament overflow", mutate: func(m *models.Manifest) {
			m.Content.Testament.Old = 40
			m.Content.BooksCount = 41
		}, wantCode: models.CodeTestamentCountMismatch, wantErr: true},
		{name: "new testament overflow", mutate: func(m *models.Manifest) {
			m.Content.Testament.New = 28
			m.Content.BooksCount = 30
		}, wantCode: models.CodeTestamentCountMismatch, wantErr: true},
		{name: "utf16 encoding", mutate: func(m *models.Manifest) { m.Technical.Encoding = "UTF-16" }, wantCode: models.CodeUnsupportedEncoding, wantErr: true},
		{name: "missing checksum optional", mutate: func(m *models.Manifest) { m.Technical.Checksum = "" }, wantCode: models.CodeMissingChecksum},
		{name: "missing checksum required", mutate: func(m *models.Manifest) { m.Technical.Checksum = "" }, opts: Options{RequireChecksums: true}, wantCode: models.CodeMissingChecksum, wantErr: true},
		{name: "placeholder checksum required", mutate: func(m *models.Manifest) { m.Technical.Checksum = "sha256:..." }, opts: Options{RequireChecksums: true}, wantCode: models.CodeInvalidChecksum, wantErr: true},
		{name: "placeholder checksum optional", mutate: func(m *models.Manifest) { m.Technical.Checksum = "TBD" }, wantCode: models.CodeInvalidChecksum},
		{name: "missing publisher", mutate: func(m *models.Manifest) { m.Repository.Publisher = "" }, wantCode: models.CodeMissingMetadata},
		{name: "bad timestamp", mutate: func(m *models.Manifest) { m.Repository.CreatedAt = "yesterday" }, wantCode: models.CodeInvalidTimestamp},
		{name: "listed books", mutate: func(m *models.Manifest) {
			m.Content.Books = []models.ManifestBook{{ID: "gen"}, {ID: "exo"}, {ID: "mat"}}
		}},
		{name: "listed books length mismatch", mutate: func(m *models.Manifest) {
			m.Content.Books = []models.ManifestBook{{ID: "gen"}, {ID: "exo"}}
		}, wantCode: models.CodeBookCountMismatch, wantErr: true},
		{name: "listed unknown book", mutate: func(m *models.Manifest) {
			m.Content.Books = []models.ManifestBook{{ID: "gen"}, {ID: "exo"}, {ID: "enoch"}}
		}, wantCode: models.CodeUnknownBook, wantErr: true},
		{name: "listed books testament split", mutate: func(m *models.Manifest) {
			m.Content.Books = []models.ManifestBook{{ID: "gen"}, {ID: "mat"}, {ID: "mrk"}}
		}, wantCode: models.CodeTestamentCountMismatch, wantErr: true},
		{name: "duplicate translation id", mutate: func(m *models.Manifest) {
			m.Translations = []models.ManifestTranslation{{ID: "amh", Directory: "amh"}, {ID: "amh", Directory: "amh2"}}
		}, wantCode: models.CodeDuplicateTranslation, wantErr: true},
		{name: "duplicate translation directory", mutate: func(m *models.Manifest) {
			m.Translations = []models.ManifestTranslation{{ID: "amh", Directory: "x"}, {ID: "geez", Directory: "x/"}}
		}, wantCode: models.CodeDuplicateTranslation, wantErr: true},
		{name: "escaping translation directory", mutate: func(m *models.Manifest) {
			m.Translations = []models.ManifestTranslation{{ID: "amh", Directory: "../amh"}}
		}, wantCode: models.CodeInvalidTranslation, wantErr: true},
		{name: "translation reusing parent id", mutate: func(m *models.Manifest) {
			m.Translations = []models.ManifestTranslation{{ID: "kjv", Directory: "kjv"}}
		}, wantCode: models.CodeInvalidTranslation, wantErr: true},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			m := validManifest()
			tt.mutate(m)
			r := ValidateManifest(m, tt.opts)

			if r.Valid == tt.wantErr {
				t.Errorf("Valid = %v, wantErr %v (errors %v)", r.Valid, tt.wantErr, r.ErrorMessages())
			}
			if tt.wantCode == "" {
				return
			}
			issues := r.Warnings
			if tt.wantErr {
				issues = r.Errors
			}
			if !hasCode(issues, tt.wantCode) {
				t.Errorf("expected %s, got errors %v warnings %v", tt.wantCode, codes(r.Errors), codes(r.Warnings))
			}
		})
	}
}

func TestValidateManifestIdempotent(t *testing.T) {
	m := validManifest()
	m.Repository.Name = ""
	m.Technical.Checksum = "placeholder"
	m.Content.BooksCount = 9

	first := ValidateManifest(m, Options{RequireChecksums: true})
	second := ValidateManifest(m, Options{RequireChecksums: true})
	if !reflect.DeepEqual(first, second) {
		t.Errorf("validation not idempotent:\n%+v\n%+v", first, second)
	}

	book := validBook()
	book.Book.VersesCount = 10
	if !reflect.DeepEqual(ValidateBook(book, 1), ValidateBook(book, 1)) {
		t.Error("book validation not idempotent")
	}
}

func TestValidateBook(t *testing.T) {
	t.Run("valid book", func(t *testing.T) {
		r := ValidateBook(validBook(), 1)
		if !r.Valid {
			t.Fatalf("expected valid book, got %v", r.ErrorMessages())
		}
	})

	t.Run("nil book", func(t *testing.T) {
		if r := ValidateBook(nil, 1); r.Valid {
			t.Error("expected nil book to be invalid")
		}
	})

	tc := []struct {
		name     string
		mutate   func(b *models.BookDocument)
		order    int
		wantCode string
		wantErr  bool
	}{
		{name: "order mismatch", mutate: func(b *models.BookDocument) {}, order: 2, wantCode: models.CodeOrderMismatch, wantErr: true},
		{name: "testament mismatch", mutate: func(b *models.BookDocument) { b.Book.Testament = "NT" }, order: 1, wantCode: models.CodeTestamentMismatch, wantErr: true},
		{name: "lowercase testament", mutate: func(b *models.BookDocument) { b.Book.Testament = "ot" }, order: 1},
		{name: "chapter count mismatch", mutate: func(b *models.BookDocument) { b.Book.ChaptersCount = 3 }, order: 1, wantCode: models.CodeChapterCountMismatch, wantErr: true},
		{name: "verse count mismatch", mutate: func(b *models.BookDocument) { b.Book.VersesCount = 4 }, order: 1, wantCode: models.CodeVerseCountMismatch, wantErr: true},
		{name: "duplicate chapter", mutate: func(b *models.BookDocument) { b.Chapters[1].Number = models.N(1) }, order: 1, wantCode: models.CodeDuplicateChapter, wantErr: true},
		{name: "duplicate verse", mutate: func(b *models.BookDocument) { b.Chapters[0].Verses[1].Number = models.N(1) }, order: 1, wantCode: models.CodeDuplicateVerse, wantErr: true},
		{name: "zero verse", mutate: func(b *models.BookDocument) { b.Chapters[0].Verses[1].Number = models.Number{Raw: "two"} }, order: 1, wantCode: models.CodeInvalidNumber, wantErr: true},
		{name: "verse range", mutate: func(b *models.BookDocument) { b.Chapters[0].Verses[1].Number = models.ParseNumber("2-3") }, order: 1, wantCode: models.CodeVerseRange},
		{name: "empty text", mutate: func(b *models.BookDocument) { b.Chapters[1].Verses[0].Text = "  " }, order: 1, wantCode: models.CodeEmptyText},
		{name: "order outside canon", mutate: func(b *models.BookDocument) { b.Book.Order = 67 }, order: 67, wantCode: models.CodeOrderMismatch, wantErr: true},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			b := validBook()
			tt.mutate(b)
			r := ValidateBook(b, tt.order)

			if r.Valid == tt.wantErr {
				t.Errorf("Valid = %v, wantErr %v (errors %v)", r.Valid, tt.wantErr, r.ErrorMessages())
			}
			if tt.wantCode == "" {
				return
			}
			issues := r.Warnings
			if tt.wantErr {
				issues = r.Errors
			}
			if !hasCode(issues, tt.wantCode) {
				t.Errorf("expected %s, got errors %v warnings %v", tt.wantCode, codes(r.Errors), codes(r.Warnings))
			}
		})
	}
}

func TestParseChecksum(t *testing.T) {
	hexDigest := strings.TrimPrefix(goodChecksum, "sha256:")

	tc := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "prefixed", input: goodChecksum, want: hexDigest},
		{name: "bare", input: hexDigest, want: hexDigest},
		{name: "uppercase", input: strings.ToUpper(goodChecksum), want: hexDigest},
		{name: "empty", input: "", wantErr: true},
		{name: "zeros", input: "sha256:" + strings.Repeat("0", 64), wantErr: true},
		{name: "ellipsis", input: "sha256:abc...", wantErr: true},
		{name: "tbd", input: "TBD", wantErr: true},
		{name: "placeholder", input: "sha256:placeholder", wantErr: true},
		{name: "short", input: "sha256:abcd", wantErr: true},
		{name: "not hex", input: "sha256:" + strings.Repeat("z", 64), wantErr: true},
		{name: "other algorithm", input: "md5:" + hexDigest, wantErr: true},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseChecksum(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseChecksum(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseChecksum(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
