package repositories

import (
	"context"
	"fmt"

	"github.com/desertthunder/versehub/internal/models"
	"github.com/desertthunder/versehub/internal/shared"
)

// VerseStore persists verse text.
type VerseStore struct {
	db DBTX
}

// NewVerseStore creates a VerseStore on db.
func NewVerseStore(db DBTX) *VerseStore {
	return &VerseStore{db: db}
}

const insertVerse = `INSERT INTO verses (repository_id, book_id, chapter, verse, text) VALUES (?, ?, ?, ?, ?)`

// Create inserts one verse. A second verse at the same reference is a [shared.ErrConflict].
func (s *VerseStore) Create(ctx context.Context, verse *models.Verse) error {
	if err := verse.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	result, err := s.db.ExecContext(ctx, insertVerse, verse.RepositoryID, verse.BookID, verse.Chapter, verse.Number, verse.Text)
	if err != nil {
		return verseInsertError(verse, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read verse id: %w", err)
	}
	verse.ID = id
	return nil
}

// CreateBatch inserts verses through one prepared statement.
func (s *VerseStore) CreateBatch(ctx context.Context, verses []models.Verse) error {
	stmt, err := s.db.PrepareContext(ctx, insertVerse)
	if err != nil {
		return fmt.Errorf("failed to prepare verse insert: %w", err)
	}
	defer stmt.Close()

	for i := range verses {
		v := &verses[i]
		if err := v.Validate(); err != nil {
			return fmt.Errorf("validation failed: %w", err)
		}
		if _, err := stmt.ExecContext(ctx, v.RepositoryID, v.BookID, v.Chapter, v.Number, v.Text); err != nil {
			return verseInsertError(v, err)
		}
	}
	return nil
}

// Chapter returns the verses of one chapter in order.
func (s *VerseStore) Chapter(ctx context.Context, bookID int64, chapter int) ([]*models.Verse, error) {
	query := `
		SELECT id, repository_id, book_id, chapter, verse, text
		FROM verses
		WHERE book_id = ? AND chapter = ?
		ORDER BY verse ASC
	`

	rows, err := s.db.QueryContext(ctx, query, bookID, chapter)
	if err != nil {
		return nil, fmt.Errorf("failed to query verses: %w", err)
	}
	defer rows.Close()

	verses := []*models.Verse{}
	for rows.Next() {
		var v models.Verse
		if err := rows.Scan(&v.ID, &v.RepositoryID, &v.BookID, &v.Chapter, &v.Number, &v.Text); err != nil {
			return nil, fmt.Errorf("failed to scan verse: %w", err)
		}
		verses = append(verses, &v)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return verses, nil
}

// Count returns how many verses a repository holds.
func (s *VerseStore) Count(ctx context.Context, repositoryID string) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM verses WHERE repository_id = ?`, repositoryID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count verses: %w", err)
	}
	return n, nil
}

func verseInsertError(v *models.Verse, err error) error {
	if IsUniqueViolation(err) {
		return fmt.Errorf("%w: verse %d:%d already stored for book %d", shared.ErrConflict, v.Chapter, v.Number, v.BookID)
	}
	return fmt.Errorf("failed to insert verse: %w", err)
}
