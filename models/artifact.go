package models

import (
	"fmt"
	"time"
)

// SchemaVersion is the artifact schema written by this build.
const SchemaVersion = 1

// FeatureCount is the width of a FeatureVector.
const FeatureCount = 5

// FallbackCode is the category code used for labels absent from a vocabulary.
const FallbackCode = 0

// FeatureVector is the fixed-order numeric encoding of a vehicle:
// year, mileage, condition score, brand code, model code.
type FeatureVector [FeatureCount]float64

// FeatureNames labels the FeatureVector positions.
var FeatureNames = [FeatureCount]string{"year", "mileage", "condition_score", "brand_code", "model_code"}

// CategoryVocabulary maps the labels of one categorical field to codes.
// Labels[i] has code i+1; code 0 is reserved for unknown labels.
type CategoryVocabulary struct {
	Field  string   `json:"field"`
	Labels []string `json:"labels"`
}

// ScalingParameters holds the per-feature standardization fitted on the
// training vectors.
type ScalingParameters struct {
	Means   FeatureVector `json:"means"`
	StdDevs FeatureVector `json:"std_devs"`
}

// NeighborIndex is the searchable training set: scaled vectors paired 1:1
// with the records (and so the sold prices) they were built from.
type NeighborIndex struct {
	Vectors []FeatureVector `json:"vectors"`
	Records []CleanRecord   `json:"records"`
}

// Len returns the number of indexed records.
func (ix *NeighborIndex) Len() int {
	return len(ix.Vectors)
}

// Metrics summarises how a fitted model performed at training time.
type Metrics struct {
	K               int     `json:"k"`
	TrainMAE        float64 `json:"train_mae"`
	TrainRMSE       float64 `json:"train_rmse"`
	TrainR2         float64 `json:"train_r2"`
	TestMAE         float64 `json:"test_mae"`
	TestRMSE        float64 `json:"test_rmse"`
	TestR2          float64 `json:"test_r2"`
	CVMAE           float64 `json:"cv_mae"`
	CVStd           float64 `json:"cv_std"`
	TrainingSamples int     `json:"training_samples"`
	TestSamples     int     `json:"test_samples"`
}

// ArtifactBundle is everything a fit produces. The parts are only meaningful
// together and are persisted and loaded as one unit.
type ArtifactBundle struct {
	ID            string              `json:"id"`
	SchemaVersion int                 `json:"schema_version"`
	CreatedAt     time.Time           `json:"created_at"`
	Brands        *CategoryVocabulary `json:"brands"`
	Models        *CategoryVocabulary `json:"models"`
	Scaler        *ScalingParameters  `json:"scaler"`
	Index         *NeighborIndex      `json:"index"`
	Metrics       *Metrics            `json:"metrics"`
}

// Validate reports ErrMissingArtifact when any required part is absent or the
// index is inconsistent.
func (b *ArtifactBundle) Validate() error {
	if b == nil {
		return fmt.Errorf("bundle is nil: %w", ErrMissingArtifact)
	}
	if b.Brands == nil {
		return fmt.Errorf("bundle %s: brand vocabulary: %w", b.ID, ErrMissingArtifact)
	}
	if b.Models == nil {
		return fmt.Errorf("bundle %s: model vocabulary: %w", b.ID, ErrMissingArtifact)
	}
	if b.Scaler == nil {
		return fmt.Errorf("bundle %s: scaler: %w", b.ID, ErrMissingArtifact)
	}
	if b.Index == nil || b.Index.Len() == 0 {
		return fmt.Errorf("bundle %s: neighbor index: %w", b.ID, ErrMissingArtifact)
	}
	if len(b.Index.Vectors) != len(b.Index.Records) {
		return fmt.Errorf("bundle %s: index has %d vectors but %d records: %w",
			b.ID, len(b.Index.Vectors), len(b.Index.Records), ErrMissingArtifact)
	}
	if b.Metrics == nil {
		return fmt.Errorf("bundle %s: metrics: %w", b.ID, ErrMissingArtifact)
	}
	return nil
}
