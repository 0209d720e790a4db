package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"

	"github.com/desertthunder/versehub/internal/models"
)

var (
	_ list.Item = repositoryItem{}
)

// repositoryItem wraps [models.IndexEntry] to implement [list.Item].
type repositoryItem struct {
	entry models.IndexEntry
}

func (i repositoryItem) FilterValue() string { return i.entry.Name + " " + i.entry.ID }
func (i repositoryItem) Title() string {
	if i.entry.Verified {
		return i.entry.Name + " ✓"
	}
	return i.entry.Name
}
func (i repositoryItem) Description() string {
	parts := []string{i.entry.ID}
	if i.entry.Language != "" {
		parts = append(parts, i.entry.Language)
	}
	if i.entry.License != "" {
		parts = append(parts, i.entry.License)
	}
	if i.entry.Source != "" {
		parts = append(parts, fmt.Sprintf("from %s", i.entry.Source))
	}
	return strings.Join(parts, " • ")
}
