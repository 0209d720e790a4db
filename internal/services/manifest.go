package services

import (
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/desertthunder/versehub/internal/models"
	"github.com/desertthunder/versehub/internal/shared"
)

// ManifestNames are tried in order when a location names a package directory.
var ManifestNames = []string{"manifest.json", "manifest.yaml", "manifest.yml"}

// PackageManifest is a decoded manifest together with where it was found.
type PackageManifest struct {
	Location string           `json:"location"`
	Base     string           `json:"base"`
	Manifest *models.Manifest `json:"manifest"`
	Size     int64            `json:"size"`
}

// DecodeManifest decodes data as YAML when name ends in .yaml or .yml, otherwise as JSON.
func DecodeManifest(name string, data []byte) (*models.Manifest, error) {
	var m models.Manifest

	if isYAML(name) {
		if err := yaml.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("%w: failed to parse YAML manifest %s: %v", shared.ErrValidation, name, err)
		}
		return &m, nil
	}

	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: failed to parse JSON manifest %s: %v", shared.ErrValidation, name, err)
	}
	return &m, nil
}

// DecodeBook decodes a JSON book document.
func DecodeBook(name string, data []byte) (*models.BookDocument, error) {
	var doc models.BookDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: failed to parse book %s: %v", shared.ErrValidation, name, err)
	}
	return &doc, nil
}

func isYAML(name string) bool {
	lower := strings.ToLower(name)
	return strings.HasSuffix(lower, ".yaml") || strings.HasSuffix(lower, ".yml")
}

// isManifestFile reports whether location points at a manifest document rather than a directory.
func isManifestFile(location string) bool {
	lower := strings.ToLower(baseName(location))
	return strings.HasSuffix(lower, ".json") || isYAML(lower)
}
