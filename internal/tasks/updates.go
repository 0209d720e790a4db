package tasks

import (
	"fmt"
)

// ProgressUpdate represents a progress event during an import.
//
// Used to send real-time updates to the CLI, TUI or HTTP stream for display.
type ProgressUpdate struct {
	Stage          Stage  `json:"stage"`
	Progress       int    `json:"progress"` // 0..100, non-decreasing within a stage
	Message        string `json:"message"`
	CurrentBook    string `json:"current_book,omitempty"`
	TotalBooks     int    `json:"total_books,omitempty"`
	ProcessedBooks int    `json:"processed_books,omitempty"`
}

// Stage is a pipeline state. Stages advance strictly forward; Error and Cancelled are terminal.
type Stage string

const (
	Discovering Stage = "discovering"
	Validating  Stage = "validating"
	Downloading Stage = "downloading"
	Processing  Stage = "processing"
	Complete    Stage = "complete"
	Error       Stage = "error"
	Cancelled   Stage = "cancelled"
)

func (s Stage) String() string {
	return string(s)
}

// Terminal reports whether no further updates follow s.
func (s Stage) Terminal() bool {
	return s == Complete || s == Error || s == Cancelled
}

// Rank orders stages for display; terminal failures rank after Complete.
func (s Stage) Rank() int {
	switch s {
	case Discovering:
		return 0
	case Validating:
		return 1
	case Downloading:
		return 2
	case Processing:
		return 3
	case Complete:
		return 4
	default:
		return 5
	}
}

func percent(done, total int) int {
	if total <= 0 {
		return 100
	}
	p := done * 100 / total
	if p > 100 {
		return 100
	}
	return p
}

func resolvingUpdate(location string) ProgressUpdate {
	return ProgressUpdate{
		Stage:   Discovering,
		Message: fmt.Sprintf("Resolving manifest at %s...", location),
	}
}

func translationFoundUpdate(done, total int, id string) ProgressUpdate {
	return ProgressUpdate{
		Stage:    Discovering,
		Progress: percent(done, total),
		Message:  fmt.Sprintf("[%d/%d] Found translation %s", done, total, id),
	}
}

func discoveredUpdate(id string, translations int) ProgressUpdate {
	msg := fmt.Sprintf("Found repository %s", id)
	if translations > 0 {
		msg = fmt.Sprintf("Found repository %s with %d translations", id, translations)
	}
	return ProgressUpdate{Stage: Discovering, Progress: 100, Message: msg}
}

func validatingUpdate(done, total int, id string) ProgressUpdate {
	return ProgressUpdate{
		Stage:    Validating,
		Progress: percent(done, total),
		Message:  fmt.Sprintf("Validating %s...", id),
	}
}

func validatedUpdate(warnings int) ProgressUpdate {
	return ProgressUpdate{
		Stage:    Validating,
		Progress: 100,
		Message:  fmt.Sprintf("Validation passed (%d warnings)", warnings),
	}
}

func downloadingUpdate(total int) ProgressUpdate {
	return ProgressUpdate{
		Stage:      Downloading,
		Message:    fmt.Sprintf("Downloading %d books...", total),
		TotalBooks: total,
	}
}

func bookDownloadedUpdate(done, total int, book string) ProgressUpdate {
	return ProgressUpdate{
		Stage:          Downloading,
		Progress:       percent(done, total),
		Message:        fmt.Sprintf("[%d/%d] Downloaded %s", done, total, book),
		CurrentBook:    book,
		TotalBooks:     total,
		ProcessedBooks: done,
	}
}

func verifiedUpdate(total int) ProgressUpdate {
	return ProgressUpdate{
		Stage:          Downloading,
		Progress:       100,
		Message:        "Checksums verified",
		TotalBooks:     total,
		ProcessedBooks: total,
	}
}

// processing reserves its last tenth for the commit.
func bookProcessedUpdate(done, total int, book string) ProgressUpdate {
	return ProgressUpdate{
		Stage:          Processing,
		Progress:       percent(done, total) * 9 / 10,
		Message:        fmt.Sprintf("[%d/%d] Processed %s", done, total, book),
		CurrentBook:    book,
		TotalBooks:     total,
		ProcessedBooks: done,
	}
}

func writingUpdate(total, verses int) ProgressUpdate {
	return ProgressUpdate{
		Stage:          Processing,
		Progress:       90,
		Message:        fmt.Sprintf("Writing %d books and %d verses...", total, verses),
		TotalBooks:     total,
		ProcessedBooks: total,
	}
}

func completeUpdate(r *ImportResult) ProgressUpdate {
	return ProgressUpdate{
		Stage:          Complete,
		Progress:       100,
		Message:        fmt.Sprintf("Imported %s: %d books, %d verses", r.RepositoryID, r.BooksImported, r.VersesImported),
		TotalBooks:     r.BooksImported,
		ProcessedBooks: r.BooksImported,
	}
}

func failedUpdate(err error) ProgressUpdate {
	return ProgressUpdate{
		Stage:   Error,
		Message: err.Error(),
	}
}

func cancelledUpdate() ProgressUpdate {
	return ProgressUpdate{
		Stage:   Cancelled,
		Message: "Import cancelled; no changes were saved",
	}
}

func committedUpdate(total int) ProgressUpdate {
	return ProgressUpdate{
		Stage:          Processing,
		Progress:       100,
		Message:        "Changes committed",
		TotalBooks:     total,
		ProcessedBooks: total,
	}
}
