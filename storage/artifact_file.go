package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"car-valuation/models"
)

const (
	manifestFile = "manifest.json"
	latestFile   = "LATEST"
)

// FileArtifactStore keeps one directory per bundle under root, holding
// manifest.json and one JSON file per part. LATEST names the newest bundle.
type FileArtifactStore struct {
	root string
	ids  *idSource
}

func NewFileArtifactStore(root string) (*FileArtifactStore, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("artifacts: create dir: %w", err)
	}
	return &FileArtifactStore{root: root, ids: newIDSource()}, nil
}

// Save writes the parts first and the manifest last, then moves LATEST.
// A bundle directory without a manifest never loads.
func (s *FileArtifactStore) Save(ctx context.Context, b *models.ArtifactBundle) (string, error) {
	if err := prepareBundle(b, s.ids); err != nil {
		return "", err
	}
	parts, err := encodeParts(b)
	if err != nil {
		return "", err
	}

	dir := filepath.Join(s.root, b.ID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("artifacts: create bundle dir: %w", err)
	}
	for _, name := range requiredParts {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if err := writeFileAtomic(filepath.Join(dir, name+".json"), parts[name]); err != nil {
			return "", err
		}
	}

	m, err := json.MarshalIndent(manifest{
		ID:            b.ID,
		SchemaVersion: b.SchemaVersion,
		CreatedAt:     b.CreatedAt,
		Parts:         requiredParts,
	}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("artifacts: encode manifest: %w", err)
	}
	if err := writeFileAtomic(filepath.Join(dir, manifestFile), m); err != nil {
		return "", err
	}
	if err := writeFileAtomic(filepath.Join(s.root, latestFile), []byte(b.ID+"\n")); err != nil {
		return "", err
	}
	return b.ID, nil
}

// Load reads the bundle saved under location, which is a bundle ID.
func (s *FileArtifactStore) Load(ctx context.Context, location string) (*models.ArtifactBundle, error) {
	id := strings.TrimSpace(location)
	if id == "" || strings.ContainsAny(id, `/\`) || id == "." || id == ".." {
		return nil, fmt.Errorf("artifacts: bad bundle location %q: %w", location, models.ErrInvalidArgument)
	}
	dir := filepath.Join(s.root, id)

	data, err := os.ReadFile(filepath.Join(dir, manifestFile))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("artifacts: bundle %s has no manifest: %w", id, models.ErrMissingArtifact)
	}
	if err != nil {
		return nil, fmt.Errorf("artifacts: read manifest: %w", err)
	}
	var m manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("artifacts: decode manifest: %w", err)
	}
	if err := checkManifest(m, id); err != nil {
		return nil, err
	}

	raw := make(map[string][]byte, len(requiredParts))
	for _, name := range requiredParts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, err := os.ReadFile(filepath.Join(dir, name+".json"))
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("artifacts: read %s: %w", name, err)
		}
		raw[name] = data
	}
	return decodeParts(m, raw)
}

func (s *FileArtifactStore) Latest(ctx context.Context) (string, error) {
	data, err := os.ReadFile(filepath.Join(s.root, latestFile))
	if errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("artifacts: no bundle saved in %s: %w", s.root, models.ErrMissingArtifact)
	}
	if err != nil {
		return "", fmt.Errorf("artifacts: read %s: %w", latestFile, err)
	}
	return strings.TrimSpace(string(data)), nil
}

func (s *FileArtifactStore) Close() error { return nil }

func writeFileAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("artifacts: write %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("artifacts: move %s into place: %w", filepath.Base(path), err)
	}
	return nil
}
