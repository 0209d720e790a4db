package models

import (
	"fmt"
	"time"
)

// Model defines the base interface for persistent entities.
type Model interface {
	Validate() error // Validate checks if the model's data is valid and returns an error if not
}

// RepositoryKind discriminates coordinating packages from the translations they group.
type RepositoryKind string

const (
	KindParent      RepositoryKind = "parent"
	KindTranslation RepositoryKind = "translation"
)

// Testament is one of the two canonical partitions.
type Testament string

const (
	OldTestament Testament = "OT"
	NewTestament Testament = "NT"
)

// Valid reports whether t is OT or NT.
func (t Testament) Valid() bool {
	return t == OldTestament || t == NewTestament
}

// LinkStatus values for [TranslationLink.Status].
const (
	LinkActive   = "active"
	LinkRevoked  = "revoked"
	LinkInactive = "inactive"
)

// Repository is an imported content package.
type Repository struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Language    string         `json:"language,omitempty"`
	Version     string         `json:"version"`
	Kind        RepositoryKind `json:"type"`
	ParentID    string         `json:"parent_id,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// Validate enforces the kind/parent invariant: translations reference a parent, parents reference nothing.
func (r *Repository) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("repository id is required")
	}
	if r.Name == "" {
		return fmt.Errorf("repository name is required")
	}
	switch r.Kind {
	case KindParent:
		if r.ParentID != "" {
			return fmt.Errorf("parent repository %s cannot reference a parent", r.ID)
		}
	case KindTranslation:
		if r.ParentID == "" {
			return fmt.Errorf("translation repository %s requires a parent", r.ID)
		}
		if r.ParentID == r.ID {
			return fmt.Errorf("repository %s cannot be its own parent", r.ID)
		}
	default:
		return fmt.Errorf("invalid repository type %q", r.Kind)
	}
	return nil
}

// TranslationLink binds a parent repository to one of its translations.
type TranslationLink struct {
	ID            string `json:"id"`
	ParentID      string `json:"parent_repository_id"`
	TranslationID string `json:"translation_id"`
	DirectoryName string `json:"directory_name"`
	LanguageCode  string `json:"language_code,omitempty"`
	Status        string `json:"status"`
}

func (l *TranslationLink) Validate() error {
	if l.ParentID == "" || l.TranslationID == "" {
		return fmt.Errorf("translation link requires parent and translation ids")
	}
	if l.ParentID == l.TranslationID {
		return fmt.Errorf("repository %s cannot link to itself", l.ParentID)
	}
	return nil
}

// Book is one canonical book belonging to a repository.
type Book struct {
	ID           int64     `json:"id"`
	RepositoryID string    `json:"repository_id"`
	Name         string    `json:"name"`
	Abbreviation string    `json:"abbreviation"`
	Testament    Testament `json:"testament"`
	Order        int       `json:"order"`
	ChapterCount int       `json:"chapter_count"`
}

func (b *Book) Validate() error {
	if b.RepositoryID == "" {
		return fmt.Errorf("book %q has no repository", b.Name)
	}
	if b.Name == "" {
		return fmt.Errorf("book name is required")
	}
	entry, ok := CanonByOrder(b.Order)
	if !ok {
		return fmt.Errorf("book order %d outside canon", b.Order)
	}
	if b.Testament != entry.Testament {
		return fmt.Errorf("book %q order %d belongs to %s, not %s", b.Name, b.Order, entry.Testament, b.Testament)
	}
	return nil
}

// Verse is one verse of text.
type Verse struct {
	ID           int64  `json:"id"`
	RepositoryID string `json:"repository_id"`
	BookID       int64  `json:"book_id"`
	Chapter      int    `json:"chapter"`
	Number       int    `json:"verse"`
	Text         string `json:"text"`
}

func (v *Verse) Validate() error {
	if v.Chapter < 1 || v.Number < 1 {
		return fmt.Errorf("invalid verse reference %d:%d", v.Chapter, v.Number)
	}
	return nil
}

// UserSetting is an opaque key/value pair stored beside imported content.
type UserSetting struct {
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RepositorySummary aggregates a repository with its content counts.
//
// For a parent, counts include every linked translation.
type RepositorySummary struct {
	Repository   *Repository `json:"repository"`
	Translations int         `json:"translations"`
	Books        int         `json:"books"`
	Verses       int         `json:"verses"`
}

// Chapter is one chapter of a stored book, ready for display.
type Chapter struct {
	Repository *Repository `json:"repository"`
	Book       *Book       `json:"book"`
	Number     int         `json:"chapter"`
	Verses     []*Verse    `json:"verses"`
}
