package models

import (
	"fmt"
	"strings"
)

// Severity of a verification issue.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue codes reported by the validator.
const (
	CodeMissingField           = "MISSING_FIELD"
	CodeUnsupportedVersion     = "UNSUPPORTED_FORMAT_VERSION"
	CodeUnsupportedEncoding    = "UNSUPPORTED_ENCODING"
	CodeInvalidDirection       = "INVALID_DIRECTION"
	CodeBookCountMismatch      = "BOOK_COUNT_MISMATCH"
	CodeTestamentCountMismatch = "TESTAMENT_COUNT_MISMATCH"
	CodeOrderMismatch          = "ORDER_MISMATCH"
	CodeTestamentMismatch      = "TESTAMENT_MISMATCH"
	CodeChapterCountMismatch   = "CHAPTER_COUNT_MISMATCH"
	CodeVerseCountMismatch     = "VERSE_COUNT_MISMATCH"
	CodeInvalidChecksum        = "INVALID_CHECKSUM"
	CodeMissingChecksum        = "MISSING_CHECKSUM"
	CodeDuplicateTranslation   = "DUPLICATE_TRANSLATION"
	CodeInvalidTranslation     = "INVALID_TRANSLATION"
	CodeDuplicateChapter       = "DUPLICATE_CHAPTER"
	CodeDuplicateVerse         = "DUPLICATE_VERSE"
	CodeInvalidNumber          = "INVALID_NUMBER"
	CodeEmptyText              = "EMPTY_TEXT"
	CodeVerseRange             = "VERSE_RANGE"
	CodeMissingMetadata        = "MISSING_METADATA"
	CodeInvalidTimestamp       = "INVALID_TIMESTAMP"
	CodeUnknownBook            = "UNKNOWN_BOOK"
	CodeMalformedDocument      = "MALFORMED_DOCUMENT"
)

// Issue is one validator finding.
type Issue struct {
	Code     string   `json:"code"`
	Message  string   `json:"message"`
	Path     string   `json:"path,omitempty"`
	Severity Severity `json:"severity"`
}

func (i Issue) String() string {
	if i.Path == "" {
		return fmt.Sprintf("[%s] %s", i.Code, i.Message)
	}
	return fmt.Sprintf("[%s] %s (%s)", i.Code, i.Message, i.Path)
}

// VerificationResult is the non-throwing outcome of structural and semantic checks.
type VerificationResult struct {
	Valid    bool    `json:"valid"`
	Errors   []Issue `json:"errors"`
	Warnings []Issue `json:"warnings"`
}

// NewVerificationResult returns an empty, valid result.
func NewVerificationResult() *VerificationResult {
	return &VerificationResult{Valid: true, Errors: []Issue{}, Warnings: []Issue{}}
}

// AddError records an error and marks the result invalid.
func (r *VerificationResult) AddError(code, path, format string, args ...any) {
	r.Errors = append(r.Errors, Issue{Code: code, Message: fmt.Sprintf(format, args...), Path: path, Severity: SeverityError})
	r.Valid = false
}

// AddWarning records a non-fatal finding.
func (r *VerificationResult) AddWarning(code, path, format string, args ...any) {
	r.Warnings = append(r.Warnings, Issue{Code: code, Message: fmt.Sprintf(format, args...), Path: path, Severity: SeverityWarning})
}

// Merge appends other's findings, prefixing paths with prefix.
func (r *VerificationResult) Merge(prefix string, other *VerificationResult) {
	if other == nil {
		return
	}
	for _, issue := range other.Errors {
		issue.Path = joinPath(prefix, issue.Path)
		r.Errors = append(r.Errors, issue)
		r.Valid = false
	}
	for _, issue := range other.Warnings {
		issue.Path = joinPath(prefix, issue.Path)
		r.Warnings = append(r.Warnings, issue)
	}
}

// ErrorMessages returns the errors rendered as strings.
func (r *VerificationResult) ErrorMessages() []string {
	return issueStrings(r.Errors)
}

// WarningMessages returns the warnings rendered as strings.
func (r *VerificationResult) WarningMessages() []string {
	return issueStrings(r.Warnings)
}

func issueStrings(issues []Issue) []string {
	out := make([]string, 0, len(issues))
	for _, issue := range issues {
		out = append(out, issue.String())
	}
	return out
}

func joinPath(prefix, path string) string {
	switch {
	case prefix == "":
		return path
	case path == "":
		return prefix
	default:
		return strings.TrimSuffix(prefix, ".") + "." + path
	}
}
