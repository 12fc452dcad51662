package services

import (
	"fmt"
	"math"
	"sort"

	"car-valuation/models"
)

// Vocabulary is a frozen label ↔ code mapping for one categorical field.
// Codes start at 1; models.FallbackCode (0) stands for any unseen label.
type Vocabulary struct {
	field  string
	labels []string
	codes  map[string]int
}

// NewVocabulary builds a vocabulary from the distinct values, assigning codes
// in sorted order so the same corpus always yields the same codes.
func NewVocabulary(field string, values []string) *Vocabulary {
	seen := make(map[string]struct{}, len(values))
	labels := make([]string, 0)
	for _, v := range values {
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		labels = append(labels, v)
	}
	sort.Strings(labels)
	return vocabularyFromLabels(field, labels)
}

// VocabularyFromSnapshot restores a persisted vocabulary, keeping its order.
func VocabularyFromSnapshot(s *models.CategoryVocabulary) (*Vocabulary, error) {
	if s == nil {
		return nil, fmt.Errorf("vocabulary snapshot: %w", models.ErrMissingArtifact)
	}
	seen := make(map[string]struct{}, len(s.Labels))
	for _, l := range s.Labels {
		if _, dup := seen[l]; dup {
			return nil, fmt.Errorf("vocabulary %s: duplicate label %q: %w", s.Field, l, models.ErrInvalidArgument)
		}
		seen[l] = struct{}{}
	}
	labels := make([]string, len(s.Labels))
	copy(labels, s.Labels)
	return vocabularyFromLabels(s.Field, labels), nil
}

func vocabularyFromLabels(field string, labels []string) *Vocabulary {
	codes := make(map[string]int, len(labels))
	for i, l := range labels {
		codes[l] = i + 1
	}
	return &Vocabulary{field: field, labels: labels, codes: codes}
}

// Code returns the code for label, or the fallback code and false.
func (v *Vocabulary) Code(label string) (int, bool) {
	code, ok := v.codes[label]
	if !ok {
		return models.FallbackCode, false
	}
	return code, true
}

// Label returns the label for a code.
func (v *Vocabulary) Label(code int) (string, bool) {
	if code < 1 || code > len(v.labels) {
		return "", false
	}
	return v.labels[code-1], true
}

func (v *Vocabulary) Field() string { return v.field }
func (v *Vocabulary) Len() int      { return len(v.labels) }

// Snapshot returns the persistable form.
func (v *Vocabulary) Snapshot() *models.CategoryVocabulary {
	labels := make([]string, len(v.labels))
	copy(labels, v.labels)
	return &models.CategoryVocabulary{Field: v.field, Labels: labels}
}

// Scaler standardizes feature vectors with frozen per-feature mean and
// standard deviation.
type Scaler struct {
	params models.ScalingParameters
}

// FitScaler computes the population mean and standard deviation of every
// feature. A feature with zero spread gets a standard deviation of 1 so it
// scales to 0 instead of dividing by zero.
func FitScaler(vectors []models.FeatureVector) (*Scaler, error) {
	if len(vectors) == 0 {
		return nil, fmt.Errorf("fit scaler on empty matrix: %w", models.ErrInvalidArgument)
	}

	var p models.ScalingParameters
	n := float64(len(vectors))
	for f := 0; f < models.FeatureCount; f++ {
		var sum float64
		for _, v := range vectors {
			sum += v[f]
		}
		mean := sum / n

		var sq float64
		for _, v := range vectors {
			d := v[f] - mean
			sq += d * d
		}
		p.Means[f] = mean
		p.StdDevs[f] = math.Sqrt(sq / n)
	}
	return NewScaler(p), nil
}

// NewScaler wraps already-fitted parameters.
func NewScaler(p models.ScalingParameters) *Scaler {
	for f := range p.StdDevs {
		if p.StdDevs[f] == 0 || math.IsNaN(p.StdDevs[f]) {
			p.StdDevs[f] = 1
		}
	}
	return &Scaler{params: p}
}

// Params returns the fitted parameters.
func (s *Scaler) Params() models.ScalingParameters { return s.params }

// Transform applies (x - mean) / std per feature.
func (s *Scaler) Transform(v models.FeatureVector) models.FeatureVector {
	var out models.FeatureVector
	for f := range v {
		out[f] = (v[f] - s.params.Means[f]) / s.params.StdDevs[f]
	}
	return out
}

// InverseTransform undoes Transform.
func (s *Scaler) InverseTransform(v models.FeatureVector) models.FeatureVector {
	var out models.FeatureVector
	for f := range v {
		out[f] = v[f]*s.params.StdDevs[f] + s.params.Means[f]
	}
	return out
}

// Warning reports a degraded but successful encoding.
type Warning struct {
	Field string
	Value string
}

func (w Warning) String() string {
	return fmt.Sprintf("unknown %s %q, using fallback code %d", w.Field, w.Value, models.FallbackCode)
}

// Encoder maps vehicles to scaled feature vectors. It is read-only once
// built and may be shared between goroutines.
type Encoder struct {
	Brands *Vocabulary
	Models *Vocabulary
	Scaler *Scaler
}

// NewEncoder assembles an encoder from fitted parts.
func NewEncoder(brands, modelVocab *Vocabulary, scaler *Scaler) *Encoder {
	return &Encoder{Brands: brands, Models: modelVocab, Scaler: scaler}
}

// FitEncoder builds the vocabularies and the scaler from the same records.
func FitEncoder(records []models.CleanRecord) (*Encoder, error) {
	brands, modelVocab := FitVocabularies(records)
	enc := &Encoder{Brands: brands, Models: modelVocab}

	vectors := make([]models.FeatureVector, len(records))
	for i, r := range records {
		vectors[i], _ = enc.Encode(r.Vehicle)
	}
	scaler, err := FitScaler(vectors)
	if err != nil {
		return nil, err
	}
	enc.Scaler = scaler
	return enc, nil
}

// FitVocabularies builds the brand and model vocabularies of a corpus.
func FitVocabularies(records []models.CleanRecord) (brands, modelVocab *Vocabulary) {
	brandValues := make([]string, len(records))
	modelValues := make([]string, len(records))
	for i, r := range records {
		brandValues[i] = r.Brand
		modelValues[i] = r.Model
	}
	return NewVocabulary("brand", brandValues), NewVocabulary("model", modelValues)
}

// NewEncoderFromBundle restores the encoder persisted in a bundle.
func NewEncoderFromBundle(b *models.ArtifactBundle) (*Encoder, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	brands, err := VocabularyFromSnapshot(b.Brands)
	if err != nil {
		return nil, err
	}
	modelVocab, err := VocabularyFromSnapshot(b.Models)
	if err != nil {
		return nil, err
	}
	return NewEncoder(brands, modelVocab, NewScaler(*b.Scaler)), nil
}

// Encode produces the unscaled feature vector. Unknown brand or model labels
// take the fallback code and are reported as warnings.
func (e *Encoder) Encode(v models.Vehicle) (models.FeatureVector, []Warning) {
	var warnings []Warning

	brandCode, ok := e.Brands.Code(v.Brand)
	if !ok {
		warnings = append(warnings, Warning{Field: e.Brands.Field(), Value: v.Brand})
	}
	modelCode, ok := e.Models.Code(v.Model)
	if !ok {
		warnings = append(warnings, Warning{Field: e.Models.Field(), Value: v.Model})
	}

	return models.FeatureVector{
		float64(v.Year),
		float64(v.Mileage),
		float64(v.ConditionScore),
		float64(brandCode),
		float64(modelCode),
	}, warnings
}

// Transform encodes and scales v.
func (e *Encoder) Transform(v models.Vehicle) (models.FeatureVector, []Warning) {
	raw, warnings := e.Encode(v)
	return e.Scaler.Transform(raw), warnings
}

// TransformAll scales every record. Records are expected to come from the
// corpus the vocabularies were fitted on.
func (e *Encoder) TransformAll(records []models.CleanRecord) []models.FeatureVector {
	out := make([]models.FeatureVector, len(records))
	for i, r := range records {
		out[i], _ = e.Transform(r.Vehicle)
	}
	return out
}
