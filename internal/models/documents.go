package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Manifest is the top-level metadata document describing a package.
//
// Section pointers are nil when the document omits them so the validator can report missing fields.
type Manifest struct {
	FormatVersion string                `json:"format_version" yaml:"format_version"`
	Repository    *ManifestRepository   `json:"repository" yaml:"repository"`
	Content       *ManifestContent      `json:"content" yaml:"content"`
	Technical     *ManifestTechnical    `json:"technical" yaml:"technical"`
	Extensions    map[string]any        `json:"extensions,omitempty" yaml:"extensions,omitempty"`
	Translations  []ManifestTranslation `json:"translations,omitempty" yaml:"translations,omitempty"`
}

// ManifestRepository carries package identity.
type ManifestRepository struct {
	ID          string          `json:"id" yaml:"id"`
	Name        string          `json:"name" yaml:"name"`
	Description string          `json:"description" yaml:"description"`
	Version     string          `json:"version" yaml:"version"`
	Type        string          `json:"type,omitempty" yaml:"type,omitempty"`
	Language    Language        `json:"language" yaml:"language"`
	Translation TranslationInfo `json:"translation" yaml:"translation"`
	Publisher   string          `json:"publisher" yaml:"publisher"`
	CreatedAt   string          `json:"created_at" yaml:"created_at"`
	UpdatedAt   string          `json:"updated_at" yaml:"updated_at"`
}

// Language describes the text's language and writing direction.
type Language struct {
	Code      string `json:"code" yaml:"code"`
	Name      string `json:"name" yaml:"name"`
	Direction string `json:"direction" yaml:"direction"`
	Script    string `json:"script,omitempty" yaml:"script,omitempty"`
}

// TranslationInfo describes the provenance of the text.
type TranslationInfo struct {
	Type        string   `json:"type" yaml:"type"`
	Year        int      `json:"year" yaml:"year"`
	Copyright   string   `json:"copyright" yaml:"copyright"`
	License     string   `json:"license" yaml:"license"`
	Source      string   `json:"source" yaml:"source"`
	Translators []string `json:"translators,omitempty" yaml:"translators,omitempty"`
}

// ManifestContent summarizes what the package supplies.
type ManifestContent struct {
	BooksCount int             `json:"books_count" yaml:"books_count"`
	Testament  TestamentCounts `json:"testament" yaml:"testament"`
	Features   Features        `json:"features" yaml:"features"`
	Books      []ManifestBook  `json:"books,omitempty" yaml:"books,omitempty"`
}

// TestamentCounts declares how many books of each testament are supplied.
type TestamentCounts struct {
	Old int `json:"old" yaml:"old"`
	New int `json:"new" yaml:"new"`
}

// Features flags optional content carried by book documents.
type Features struct {
	Audio           bool `json:"audio" yaml:"audio"`
	CrossReferences bool `json:"cross_references" yaml:"cross_references"`
	Footnotes       bool `json:"footnotes" yaml:"footnotes"`
	StudyNotes      bool `json:"study_notes" yaml:"study_notes"`
}

// ManifestBook lists one supplied book file explicitly, optionally with its own digest.
type ManifestBook struct {
	ID       string `json:"id" yaml:"id"`
	File     string `json:"file,omitempty" yaml:"file,omitempty"`
	Checksum string `json:"checksum,omitempty" yaml:"checksum,omitempty"`
}

// ManifestTechnical carries encoding and integrity metadata.
type ManifestTechnical struct {
	Encoding    string `json:"encoding" yaml:"encoding"`
	Compression string `json:"compression" yaml:"compression"`
	Checksum    string `json:"checksum" yaml:"checksum"`
	SizeBytes   int64  `json:"size_bytes" yaml:"size_bytes"`
}

// ManifestTranslation is one translation enumerated by a parent package.
type ManifestTranslation struct {
	ID           string `json:"id" yaml:"id"`
	Directory    string `json:"directory" yaml:"directory"`
	LanguageCode string `json:"language_code" yaml:"language_code"`
	Status       string `json:"status" yaml:"status"`
}

// IsHierarchical reports whether the manifest is a parent package enumerating translations.
func (m *Manifest) IsHierarchical() bool {
	return len(m.Translations) > 0
}

// ID returns the repository id, or "" when the repository section is missing.
func (m *Manifest) ID() string {
	if m == nil || m.Repository == nil {
		return ""
	}
	return m.Repository.ID
}

// BookDocument is one book with its chapters and verses.
type BookDocument struct {
	Book     BookInfo          `json:"book"`
	Chapters []ChapterDocument `json:"chapters"`
	Metadata *BookMetadata     `json:"metadata,omitempty"`
}

// BookInfo is the header of a book document.
type BookInfo struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Abbreviation  string `json:"abbreviation"`
	Order         int    `json:"order"`
	Testament     string `json:"testament"`
	ChaptersCount int    `json:"chapters_count"`
	VersesCount   int    `json:"verses_count"`
	Genre         string `json:"genre,omitempty"`
	Author        string `json:"author,omitempty"`
}

// BookMetadata holds optional outline and theme data.
type BookMetadata struct {
	Outline json.RawMessage `json:"outline,omitempty"`
	Themes  []string        `json:"themes,omitempty"`
}

// ChapterDocument is one chapter of a book document.
type ChapterDocument struct {
	Number Number          `json:"number"`
	Verses []VerseDocument `json:"verses"`
	Title  string          `json:"title,omitempty"`
	Audio  string          `json:"audio,omitempty"`
}

// UnmarshalJSON accepts "chapter" as an alias for "number".
func (c *ChapterDocument) UnmarshalJSON(data []byte) error {
	type plain ChapterDocument
	aux := struct {
		*plain
		Chapter *Number `json:"chapter"`
	}{plain: (*plain)(c)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if c.Number.Value == 0 && aux.Chapter != nil {
		c.Number = *aux.Chapter
	}
	return nil
}

// VerseDocument is one verse of a chapter.
type VerseDocument struct {
	Number          Number          `json:"number"`
	Text            string          `json:"text"`
	Audio           string          `json:"audio,omitempty"`
	Footnotes       json.RawMessage `json:"footnotes,omitempty"`
	CrossReferences json.RawMessage `json:"cross_references,omitempty"`
	StudyNotes      json.RawMessage `json:"study_notes,omitempty"`
}

// UnmarshalJSON accepts "verse" as an alias for "number".
func (v *VerseDocument) UnmarshalJSON(data []byte) error {
	type plain VerseDocument
	aux := struct {
		*plain
		Verse *Number `json:"verse"`
	}{plain: (*plain)(v)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if v.Number.Value == 0 && aux.Verse != nil {
		v.Number = *aux.Verse
	}
	return nil
}

// VerseCount returns the total number of verses across all chapters.
func (d *BookDocument) VerseCount() int {
	total := 0
	for _, ch := range d.Chapters {
		total += len(ch.Verses)
	}
	return total
}

// Number is a chapter or verse number encoded as a JSON number, a numeric string, or a range such as "1-2".
//
// Unparseable values decode to zero with Raw preserved, leaving the verdict to the validator.
type Number struct {
	Value int
	End   int
	Raw   string
}

// N builds a plain Number.
func N(v int) Number {
	return Number{Value: v}
}

// IsRange reports whether the number spans more than one verse.
func (n Number) IsRange() bool {
	return n.End > n.Value
}

func (n Number) String() string {
	if n.IsRange() {
		return fmt.Sprintf("%d-%d", n.Value, n.End)
	}
	if n.Value == 0 && n.Raw != "" {
		return n.Raw
	}
	return strconv.Itoa(n.Value)
}

func (n *Number) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*n = Number{}
		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*n = ParseNumber(s)
		return nil
	}

	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		*n = Number{Raw: string(data)}
		return nil
	}
	if f != float64(int(f)) {
		*n = Number{Raw: string(data)}
		return nil
	}
	*n = Number{Value: int(f)}
	return nil
}

func (n Number) MarshalJSON() ([]byte, error) {
	if n.IsRange() {
		return json.Marshal(n.String())
	}
	return json.Marshal(n.Value)
}

// ParseNumber parses "7", " 7 " or "1-2".
func ParseNumber(s string) Number {
	s = strings.TrimSpace(s)
	start, end, isRange := strings.Cut(s, "-")
	v, err := strconv.Atoi(strings.TrimSpace(start))
	if err != nil || v < 0 {
		return Number{Raw: s}
	}
	if !isRange {
		return Number{Value: v}
	}
	e, err := strconv.Atoi(strings.TrimSpace(end))
	if err != nil || e < v {
		return Number{Raw: s}
	}
	return Number{Value: v, End: e}
}

// RepositoryIndex is a source's listing of available packages.
type RepositoryIndex struct {
	Version      string       `json:"version"`
	Repositories []IndexEntry `json:"repositories"`
}

// IndexEntry is one package advertised by a source.
type IndexEntry struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	URL         string   `json:"url"`
	Language    string   `json:"language"`
	License     string   `json:"license"`
	Verified    bool     `json:"verified"`
	LastUpdated string   `json:"last_updated"`
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Source      string   `json:"source,omitempty"`
}
