package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/desertthunder/versehub/internal/models"
	"github.com/desertthunder/versehub/internal/shared"
)

const bookColumns = `id, repository_id, name, abbreviation, testament, book_order, chapter_count`

// BookStore persists the books of a repository.
type BookStore struct {
	db DBTX
}

// NewBookStore creates a BookStore on db.
func NewBookStore(db DBTX) *BookStore {
	return &BookStore{db: db}
}

// Create inserts a book and sets its generated id.
func (s *BookStore) Create(ctx context.Context, book *models.Book) error {
	if err := book.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		INSERT INTO books (repository_id, name, abbreviation, testament, book_order, chapter_count)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	result, err := s.db.ExecContext(ctx, query, book.RepositoryID, book.Name, book.Abbreviation, book.Testament, book.Order, book.ChapterCount)
	switch {
	case IsUniqueViolation(err):
		return fmt.Errorf("%w: book order %d in %s", shared.ErrConflict, book.Order, book.RepositoryID)
	case err != nil:
		return fmt.Errorf("failed to insert book: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read book id: %w", err)
	}
	book.ID = id
	return nil
}

// List returns a repository's books in canonical order.
func (s *BookStore) List(ctx context.Context, repositoryID string) ([]*models.Book, error) {
	query := `SELECT ` + bookColumns + ` FROM books WHERE repository_id = ? ORDER BY book_order ASC`

	rows, err := s.db.QueryContext(ctx, query, repositoryID)
	if err != nil {
		return nil, fmt.Errorf("failed to query books: %w", err)
	}
	defer rows.Close()

	books := []*models.Book{}
	for rows.Next() {
		book, err := scanBook(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan book: %w", err)
		}
		books = append(books, book)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return books, nil
}

// Find resolves a book of a repository by canonical id, abbreviation or name.
func (s *BookStore) Find(ctx context.Context, repositoryID, ref string) (*models.Book, error) {
	var row *sql.Row
	if entry, ok := models.CanonByID(ref); ok {
		row = s.db.QueryRowContext(ctx,
			`SELECT `+bookColumns+` FROM books WHERE repository_id = ? AND book_order = ?`,
			repositoryID, entry.Order,
		)
	} else {
		row = s.db.QueryRowContext(ctx,
			`SELECT `+bookColumns+` FROM books WHERE repository_id = ? AND (lower(name) = lower(?) OR lower(abbreviation) = lower(?))`,
			repositoryID, ref, ref,
		)
	}

	book, err := scanBook(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: book %s in %s", shared.ErrNotFound, ref, repositoryID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan book: %w", err)
	}
	return book, nil
}

// Count returns how many books a repository holds.
func (s *BookStore) Count(ctx context.Context, repositoryID string) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM books WHERE repository_id = ?`, repositoryID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count books: %w", err)
	}
	return n, nil
}

func scanBook(row scanner) (*models.Book, error) {
	var book models.Book
	if err := row.Scan(&book.ID, &book.RepositoryID, &book.Name, &book.Abbreviation, &book.Testament, &book.Order, &book.ChapterCount); err != nil {
		return nil, err
	}
	return &book, nil
}
