package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/versehub/internal/formatter"
	"github.com/desertthunder/versehub/internal/models"
	"github.com/desertthunder/versehub/internal/shared"
)

// ReposList prints stored repositories, parents followed by their translations.
func (r *Runner) ReposList(ctx context.Context, cmd *cli.Command) error {
	kind := models.RepositoryKind(cmd.String("type"))
	if kind != "" && kind != models.KindParent && kind != models.KindTranslation {
		return fmt.Errorf("%w: invalid type '%s' (must be 'parent' or 'translation')", shared.ErrInvalidArgument, kind)
	}

	lib, err := r.library(ctx)
	if err != nil {
		return err
	}

	summaries, err := lib.ListRepositories(ctx, kind)
	if err != nil {
		return fmt.Errorf("failed to list repositories: %w", err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(summaries, true)
	}
	return r.writeBytes(formatter.RepositoryTable(summaries))
}

// ReposShow prints one repository with its counts.
func (r *Runner) ReposShow(ctx context.Context, cmd *cli.Command) error {
	id, err := requireArg(cmd, "id")
	if err != nil {
		return err
	}

	lib, err := r.library(ctx)
	if err != nil {
		return err
	}

	summary, err := lib.GetRepository(ctx, id)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(summary, true)
	}

	repo := summary.Repository
	r.writePlainHeader(repo.Name)
	r.writePlain("ID:           %s\n", repo.ID)
	r.writePlain("Type:         %s\n", repo.Kind)
	if repo.ParentID != "" {
		r.writePlain("Parent:       %s\n", repo.ParentID)
	}
	if repo.Language != "" {
		r.writePlain("Language:     %s\n", repo.Language)
	}
	r.writePlain("Version:      %s\n", repo.Version)
	if repo.Description != "" {
		r.writePlain("Description:  %s\n", repo.Description)
	}
	if repo.Kind == models.KindParent {
		r.writePlain("Translations: %d\n", summary.Translations)
	}
	r.writePlain("Books:        %d\n", summary.Books)
	r.writePlain("Verses:       %d\n", summary.Verses)
	r.writePlain("Imported:     %s\n", repo.CreatedAt.Format("2006-01-02 15:04"))
	return nil
}

// ReposBooks lists the books of a repository in canonical order.
func (r *Runner) ReposBooks(ctx context.Context, cmd *cli.Command) error {
	id, err := requireArg(cmd, "id")
	if err != nil {
		return err
	}

	lib, err := r.library(ctx)
	if err != nil {
		return err
	}

	books, err := lib.ListBooks(ctx, id)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(books, true)
	}

	if len(books) == 0 {
		return r.writePlain("No books stored for %s\n", id)
	}
	for _, b := range books {
		r.writePlain("%3d  %-6s %-24s %s  %3d chapters\n", b.Order, b.Abbreviation, b.Name, b.Testament, b.ChapterCount)
	}
	return nil
}

// ReposDelete removes a repository and everything it owns.
func (r *Runner) ReposDelete(ctx context.Context, cmd *cli.Command) error {
	id, err := requireArg(cmd, "id")
	if err != nil {
		return err
	}

	lib, err := r.library(ctx)
	if err != nil {
		return err
	}

	if err := lib.DeleteRepository(ctx, id); err != nil {
		return fmt.Errorf("failed to delete repository: %w", err)
	}

	r.logger.Info("repository deleted", "id", id)
	return r.writePlain("✓ Repository deleted: %s\n", id)
}

// ReposTranslations lists the translation links of a parent repository.
func (r *Runner) ReposTranslations(ctx context.Context, cmd *cli.Command) error {
	id, err := requireArg(cmd, "id")
	if err != nil {
		return err
	}

	lib, err := r.library(ctx)
	if err != nil {
		return err
	}

	links, err := lib.ListTranslations(ctx, id)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(links, true)
	}

	if len(links) == 0 {
		return r.writePlain("No translations linked to %s\n", id)
	}
	for _, l := range links {
		r.writePlain("%-16s %-20s %-6s %s\n", l.TranslationID, l.DirectoryName, l.LanguageCode, l.Status)
	}
	return nil
}

// ReposRevoke removes a translation link.
func (r *Runner) ReposRevoke(ctx context.Context, cmd *cli.Command) error {
	parent, err := requireArg(cmd, "parent")
	if err != nil {
		return err
	}
	translation, err := requireArg(cmd, "translation")
	if err != nil {
		return err
	}

	lib, err := r.library(ctx)
	if err != nil {
		return err
	}

	if err := lib.RevokeTranslation(ctx, parent, translation); err != nil {
		return fmt.Errorf("failed to revoke translation: %w", err)
	}
	return r.writePlain("✓ Translation revoked: %s/%s\n", parent, translation)
}

// Read prints or exports one chapter.
func (r *Runner) Read(ctx context.Context, cmd *cli.Command) error {
	repo, err := requireArg(cmd, "repository")
	if err != nil {
		return err
	}
	book, err := requireArg(cmd, "book")
	if err != nil {
		return err
	}
	chapter := cmd.IntArg("chapter")
	if chapter < 1 {
		return fmt.Errorf("%w: chapter must be a positive number", shared.ErrInvalidArgument)
	}

	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	lib, err := r.library(ctx)
	if err != nil {
		return err
	}

	ch, err := lib.GetChapter(ctx, repo, book, chapter)
	if err != nil {
		return err
	}

	output := cmd.String("output")
	if cmd.Bool("export") || output != "" {
		path, err := formatter.WriteChapterExport(ch, format, output)
		if err != nil {
			return err
		}
		r.logger.Info("chapter exported", "path", path)
		return r.writePlain("✓ Exported to %s\n", path)
	}

	data, err := formatter.RenderChapter(ch, format)
	if err != nil {
		return fmt.Errorf("failed to render chapter: %w", err)
	}
	return r.writeBytes(data)
}
