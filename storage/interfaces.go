package storage

import (
	"context"

	"car-valuation/models"
)

// CorpusWriter is the interface any clean-corpus sink must satisfy.
type CorpusWriter interface {
	WriteClean(records []models.CleanRecord) error
	Close() error
}

// CorpusReader supplies a previously cleaned corpus for training or insights.
type CorpusReader interface {
	FetchAll() ([]models.CleanRecord, error)
}

// ArtifactStore persists fitted bundles as a unit. Load must reject a bundle
// with any part missing, stamped for another bundle or written under an
// unsupported schema version.
type ArtifactStore interface {
	// Save validates b, assigns an ID when it has none and returns where
	// the bundle can be loaded from.
	Save(ctx context.Context, b *models.ArtifactBundle) (string, error)
	Load(ctx context.Context, location string) (*models.ArtifactBundle, error)
	// Latest returns the location of the most recently saved bundle.
	Latest(ctx context.Context) (string, error)
	Close() error
}
