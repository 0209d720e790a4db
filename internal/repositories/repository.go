package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/versehub/internal/models"
	"github.com/desertthunder/versehub/internal/shared"
)

const repositoryColumns = `id, name, description, language, version, type, parent_id, created_at, updated_at`

// RepositoryStore persists imported packages.
type RepositoryStore struct {
	db DBTX
}

// NewRepositoryStore creates a RepositoryStore on db.
func NewRepositoryStore(db DBTX) *RepositoryStore {
	return &RepositoryStore{db: db}
}

// Create inserts a repository row, stamping timestamps when unset.
//
// A duplicate id is reported as [shared.ErrConflict]. A translation must point at an
// existing parent-kind repository: a missing parent is [shared.ErrRepositoryNotFound]
// and a translation parent is [shared.ErrInvalidArgument].
func (s *RepositoryStore) Create(ctx context.Context, repo *models.Repository) error {
	if err := repo.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now().UTC()
	if repo.CreatedAt.IsZero() {
		repo.CreatedAt = now
	}
	if repo.UpdatedAt.IsZero() {
		repo.UpdatedAt = now
	}

	query := `
		INSERT INTO repositories (id, name, description, language, version, type, parent_id, created_at, updated_at)
		SELECT ?, ?, ?, ?, ?, ?, ?, ?, ?
		WHERE ? IS NULL OR EXISTS (SELECT 1 FROM repositories WHERE id = ? AND type = 'parent')
	`

	parentID := nullString(repo.ParentID)
	result, err := s.db.ExecContext(ctx, query,
		repo.ID,
		repo.Name,
		repo.Description,
		nullString(repo.Language),
		repo.Version,
		repo.Kind,
		parentID,
		repo.CreatedAt,
		repo.UpdatedAt,
		parentID,
		parentID,
	)
	switch {
	case IsUniqueViolation(err):
		return fmt.Errorf("%w: %s", shared.ErrConflict, repo.ID)
	case IsForeignKeyViolation(err):
		return fmt.Errorf("%w: parent %s of %s", shared.ErrRepositoryNotFound, repo.ParentID, repo.ID)
	case err != nil:
		return fmt.Errorf("failed to insert repository: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 1 {
		return nil
	}

	exists, err := s.Exists(ctx, repo.ParentID)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%w: parent %s of %s", shared.ErrRepositoryNotFound, repo.ParentID, repo.ID)
	}
	return fmt.Errorf("%w: parent %s of %s is not a parent repository", shared.ErrInvalidArgument, repo.ParentID, repo.ID)
}

// Get retrieves a repository by id.
func (s *RepositoryStore) Get(ctx context.Context, id string) (*models.Repository, error) {
	query := `SELECT ` + repositoryColumns + ` FROM repositories WHERE id = ?`

	repo, err := scanRepository(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", shared.ErrRepositoryNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan repository: %w", err)
	}
	return repo, nil
}

// Exists reports whether a repository with id is stored.
func (s *RepositoryStore) Exists(ctx context.Context, id string) (bool, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM repositories WHERE id = ?`, id).Scan(&n); err != nil {
		return false, fmt.Errorf("failed to check repository: %w", err)
	}
	return n > 0, nil
}

// List returns repositories ordered by name, restricted to kind when non-empty.
func (s *RepositoryStore) List(ctx context.Context, kind models.RepositoryKind) ([]*models.Repository, error) {
	query := `SELECT ` + repositoryColumns + ` FROM repositories`
	args := []any{}

	if kind != "" {
		query += " WHERE type = ?"
		args = append(args, kind)
	}
	query += " ORDER BY name ASC, id ASC"

	return s.query(ctx, query, args...)
}

// Children returns the translation repositories of a parent.
func (s *RepositoryStore) Children(ctx context.Context, parentID string) ([]*models.Repository, error) {
	query := `SELECT ` + repositoryColumns + ` FROM repositories WHERE parent_id = ? ORDER BY id ASC`
	return s.query(ctx, query, parentID)
}

// Delete removes a repository. Translations, links, books and verses cascade.
func (s *RepositoryStore) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM repositories WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete repository: %w", err)
	}
	return affectedOne(result, shared.ErrRepositoryNotFound, id)
}

// Summarize counts a repository's translations, books and verses, including those of its translations.
func (s *RepositoryStore) Summarize(ctx context.Context, id string) (*models.RepositorySummary, error) {
	repo, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	summary := &models.RepositorySummary{Repository: repo}
	scope := `repository_id = ? OR repository_id IN (SELECT id FROM repositories WHERE parent_id = ?)`

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM repositories WHERE parent_id = ?`, id).Scan(&summary.Translations); err != nil {
		return nil, fmt.Errorf("failed to count translations: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM books WHERE `+scope, id, id).Scan(&summary.Books); err != nil {
		return nil, fmt.Errorf("failed to count books: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM verses WHERE `+scope, id, id).Scan(&summary.Verses); err != nil {
		return nil, fmt.Errorf("failed to count verses: %w", err)
	}
	return summary, nil
}

func (s *RepositoryStore) query(ctx context.Context, query string, args ...any) ([]*models.Repository, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query repositories: %w", err)
	}
	defer rows.Close()

	repos := []*models.Repository{}
	for rows.Next() {
		repo, err := scanRepository(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan repository: %w", err)
		}
		repos = append(repos, repo)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return repos, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRepository(row scanner) (*models.Repository, error) {
	var (
		repo     models.Repository
		language sql.NullString
		parentID sql.NullString
	)

	err := row.Scan(&repo.ID, &repo.Name, &repo.Description, &language, &repo.Version, &repo.Kind, &parentID, &repo.CreatedAt, &repo.UpdatedAt)
	if err != nil {
		return nil, err
	}

	repo.Language = language.String
	repo.ParentID = parentID.String
	return &repo, nil
}
