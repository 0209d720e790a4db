package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/desertthunder/versehub/internal/models"
	"github.com/desertthunder/versehub/internal/shared"
)

// TranslationStore persists parent-to-translation links.
type TranslationStore struct {
	db DBTX
}

// NewTranslationStore creates a TranslationStore on db.
func NewTranslationStore(db DBTX) *TranslationStore {
	return &TranslationStore{db: db}
}

// Link records a translation under its parent, generating the link id when empty.
func (s *TranslationStore) Link(ctx context.Context, link *models.TranslationLink) error {
	if link.ID == "" {
		link.ID = shared.GenerateID()
	}
	if link.Status == "" {
		link.Status = models.LinkActive
	}
	if err := link.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		INSERT INTO repository_translations (id, parent_repository_id, translation_id, directory_name, language_code, status)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query, link.ID, link.ParentID, link.TranslationID, link.DirectoryName, nullString(link.LanguageCode), link.Status)
	switch {
	case IsUniqueViolation(err):
		return fmt.Errorf("%w: %s already linked to %s", shared.ErrConflict, link.TranslationID, link.ParentID)
	case IsForeignKeyViolation(err):
		return fmt.Errorf("%w: link %s -> %s", shared.ErrRepositoryNotFound, link.ParentID, link.TranslationID)
	case err != nil:
		return fmt.Errorf("failed to insert translation link: %w", err)
	}
	return nil
}

// Get retrieves the link between parentID and translationID.
func (s *TranslationStore) Get(ctx context.Context, parentID, translationID string) (*models.TranslationLink, error) {
	query := `
		SELECT id, parent_repository_id, translation_id, directory_name, language_code, status
		FROM repository_translations
		WHERE parent_repository_id = ? AND translation_id = ?
	`

	link, err := scanLink(s.db.QueryRowContext(ctx, query, parentID, translationID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: translation %s of %s", shared.ErrNotFound, translationID, parentID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan translation link: %w", err)
	}
	return link, nil
}

// ListByParent returns every link of a parent ordered by directory.
func (s *TranslationStore) ListByParent(ctx context.Context, parentID string) ([]*models.TranslationLink, error) {
	query := `
		SELECT id, parent_repository_id, translation_id, directory_name, language_code, status
		FROM repository_translations
		WHERE parent_repository_id = ?
		ORDER BY directory_name ASC
	`

	rows, err := s.db.QueryContext(ctx, query, parentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query translation links: %w", err)
	}
	defer rows.Close()

	links := []*models.TranslationLink{}
	for rows.Next() {
		link, err := scanLink(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan translation link: %w", err)
		}
		links = append(links, link)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return links, nil
}

// SetStatus changes a link's status, e.g. to [models.LinkRevoked].
func (s *TranslationStore) SetStatus(ctx context.Context, parentID, translationID, status string) error {
	switch status {
	case models.LinkActive, models.LinkRevoked, models.LinkInactive:
	default:
		return fmt.Errorf("%w: link status %q", shared.ErrInvalidArgument, status)
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE repository_translations SET status = ? WHERE parent_repository_id = ? AND translation_id = ?`,
		status, parentID, translationID,
	)
	if err != nil {
		return fmt.Errorf("failed to update translation link: %w", err)
	}
	return affectedOne(result, shared.ErrNotFound, translationID)
}

// Unlink deletes the link between parentID and translationID. The translation's content is kept.
func (s *TranslationStore) Unlink(ctx context.Context, parentID, translationID string) error {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM repository_translations WHERE parent_repository_id = ? AND translation_id = ?`,
		parentID, translationID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete translation link: %w", err)
	}
	return affectedOne(result, shared.ErrNotFound, translationID)
}

func scanLink(row scanner) (*models.TranslationLink, error) {
	var (
		link     models.TranslationLink
		language sql.NullString
	)

	if err := row.Scan(&link.ID, &link.ParentID, &link.TranslationID, &link.DirectoryName, &language, &link.Status); err != nil {
		return nil, err
	}
	link.LanguageCode = language.String
	return &link, nil
}
