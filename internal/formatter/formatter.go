// package formatter renders chapters, repositories and reports as plain text, Markdown, CSV or JSON
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/desertthunder/versehub/internal/models"
	"github.com/desertthunder/versehub/internal/shared"
	"github.com/desertthunder/versehub/internal/tasks"
)

// Format is an output format for chapter exports.
type Format string

const (
	FormatText     Format = "text"
	FormatMarkdown Format = "markdown"
	FormatCSV      Format = "csv"
	FormatJSON     Format = "json"
)

// ParseFormat accepts a format name or a common file extension.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(s, ".")) {
	case "", "text", "txt":
		return FormatText, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "csv":
		return FormatCSV, nil
	case "json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("%w: format %q", shared.ErrInvalidArgument, s)
	}
}

// Extension returns the file extension for f, without the dot.
func (f Format) Extension() string {
	switch f {
	case FormatMarkdown:
		return "md"
	case FormatCSV:
		return "csv"
	case FormatJSON:
		return "json"
	default:
		return "txt"
	}
}

// ChapterToCSV converts a chapter to CSV with columns: Repository, Book, Chapter, Verse, Text
func ChapterToCSV(ch *models.Chapter) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Repository", "Book", "Chapter", "Verse", "Text"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, v := range ch.Verses {
		record := []string{
			v.RepositoryID,
			ch.Book.Name,
			strconv.Itoa(v.Chapter),
			strconv.Itoa(v.Number),
			v.Text,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ChapterToMarkdown converts a chapter to Markdown with the verse number in bold before each verse
func ChapterToMarkdown(ch *models.Chapter) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s %d\n\n", ch.Book.Name, ch.Number)
	if ch.Repository != nil {
		fmt.Fprintf(&buf, "**Translation**: %s (%s)\n\n", ch.Repository.Name, ch.Repository.ID)
	}

	for _, v := range ch.Verses {
		fmt.Fprintf(&buf, "**%d** %s\n\n", v.Number, v.Text)
	}

	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// ChapterToText converts a chapter to plain text, one numbered verse per line
func ChapterToText(ch *models.Chapter) ([]byte, error) {
	var buf bytes.Buffer

	title := fmt.Sprintf("%s %d", ch.Book.Name, ch.Number)
	if ch.Repository != nil {
		title += fmt.Sprintf(" (%s)", ch.Repository.ID)
	}
	fmt.Fprintf(&buf, "%s\n\n", title)

	for _, v := range ch.Verses {
		fmt.Fprintf(&buf, "%3d  %s\n", v.Number, v.Text)
	}

	return buf.Bytes(), nil
}

// ChapterToJSON converts a chapter to indented JSON
func ChapterToJSON(ch *models.Chapter) ([]byte, error) {
	return shared.MarshalJSON(ch, true)
}

// RenderChapter renders ch in format f.
func RenderChapter(ch *models.Chapter, f Format) ([]byte, error) {
	switch f {
	case FormatMarkdown:
		return ChapterToMarkdown(ch)
	case FormatCSV:
		return ChapterToCSV(ch)
	case FormatJSON:
		return ChapterToJSON(ch)
	default:
		return ChapterToText(ch)
	}
}

// WriteChapterExport writes ch to path in format f.
//
// Defaults to {repository}_{book}_{chapter}.{ext} as the filename.
func WriteChapterExport(ch *models.Chapter, f Format, path string) (string, error) {
	if path == "" {
		repo := "chapter"
		if ch.Repository != nil {
			repo = ch.Repository.ID
		}
		book := strings.ToLower(strings.ReplaceAll(ch.Book.Abbreviation, " ", ""))
		path = fmt.Sprintf("%s_%s_%d.%s", repo, book, ch.Number, f.Extension())
	}

	data, err := RenderChapter(ch, f)
	if err != nil {
		return "", fmt.Errorf("failed to render chapter: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write chapter file: %w", err)
	}

	return path, nil
}

// RepositoryTable renders repository summaries as an aligned plain-text table
func RepositoryTable(summaries []*models.RepositorySummary) []byte {
	var buf bytes.Buffer

	if len(summaries) == 0 {
		buf.WriteString("No repositories imported.\n")
		return buf.Bytes()
	}

	fmt.Fprintf(&buf, "%-16s %-12s %-6s %-10s %6s %8s  %s\n", "ID", "TYPE", "LANG", "VERSION", "BOOKS", "VERSES", "NAME")
	for _, s := range summaries {
		r := s.Repository
		id := r.ID
		if r.ParentID != "" {
			id = "  " + id
		}
		fmt.Fprintf(&buf, "%-16s %-12s %-6s %-10s %6d %8d  %s\n", id, r.Kind, dash(r.Language), dash(r.Version), s.Books, s.Verses, r.Name)
	}

	return buf.Bytes()
}

// VerificationReport renders a verification result as plain text
func VerificationReport(location string, r *models.VerificationResult) []byte {
	var buf bytes.Buffer

	status := "VALID"
	if !r.Valid {
		status = "INVALID"
	}
	fmt.Fprintf(&buf, "%s: %s (%d errors, %d warnings)\n", location, status, len(r.Errors), len(r.Warnings))

	for _, issue := range r.Errors {
		fmt.Fprintf(&buf, "  ✗ %s\n", issue)
	}
	for _, issue := range r.Warnings {
		fmt.Fprintf(&buf, "  ! %s\n", issue)
	}

	return buf.Bytes()
}

// ImportReport renders an import result as plain text
func ImportReport(r *tasks.ImportResult) []byte {
	var buf bytes.Buffer

	switch {
	case r.Success:
		fmt.Fprintf(&buf, "Imported %s\n", r.RepositoryID)
		fmt.Fprintf(&buf, "  Books:        %d\n", r.BooksImported)
		fmt.Fprintf(&buf, "  Verses:       %d\n", r.VersesImported)
		fmt.Fprintf(&buf, "  Translations: %d\n", r.TranslationsImported)
	case r.Cancelled:
		fmt.Fprintf(&buf, "Import of %s cancelled; no changes were saved\n", dash(r.RepositoryID))
	default:
		fmt.Fprintf(&buf, "Import of %s failed; no changes were saved\n", dash(r.RepositoryID))
	}
	fmt.Fprintf(&buf, "  Duration:     %s\n", shared.FormatDuration(r.DurationMS))

	if len(r.Errors) > 0 {
		buf.WriteString("\nErrors:\n")
		for _, e := range r.Errors {
			fmt.Fprintf(&buf, "  ✗ %s\n", e)
		}
	}
	if len(r.Warnings) > 0 {
		buf.WriteString("\nWarnings:\n")
		for _, w := range r.Warnings {
			fmt.Fprintf(&buf, "  ! %s\n", w)
		}
	}

	return buf.Bytes()
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
