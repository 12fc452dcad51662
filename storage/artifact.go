package storage

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"car-valuation/models"
)

// Bundle part names. All four are required to load a bundle.
const (
	PartVocabularies = "vocabularies"
	PartScaler       = "scaler"
	PartIndex        = "index"
	PartMetrics      = "metrics"
)

var requiredParts = []string{PartVocabularies, PartScaler, PartIndex, PartMetrics}

// partEnvelope wraps every persisted part so a part copied from another
// bundle, or written by another schema, is caught on load.
type partEnvelope struct {
	BundleID      string          `json:"bundle_id"`
	SchemaVersion int             `json:"schema_version"`
	Part          string          `json:"part"`
	Data          json.RawMessage `json:"data"`
}

type vocabulariesPart struct {
	Brands *models.CategoryVocabulary `json:"brands"`
	Models *models.CategoryVocabulary `json:"models"`
}

// manifest is the bundle header.
type manifest struct {
	ID            string    `json:"id"`
	SchemaVersion int       `json:"schema_version"`
	CreatedAt     time.Time `json:"created_at"`
	Parts         []string  `json:"parts"`
}

// idSource hands out monotonic ULIDs, so the greatest ID is the newest bundle.
type idSource struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

func newIDSource() *idSource {
	return &idSource{
		entropy: ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0),
	}
}

func (s *idSource) newID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), s.entropy).String()
}

// prepareBundle validates b and stamps the ID and schema version.
func prepareBundle(b *models.ArtifactBundle, ids *idSource) error {
	if err := b.Validate(); err != nil {
		return fmt.Errorf("save: %w", err)
	}
	if b.ID == "" {
		b.ID = ids.newID()
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now().UTC()
	}
	b.SchemaVersion = models.SchemaVersion
	return nil
}

func encodeParts(b *models.ArtifactBundle) (map[string][]byte, error) {
	payloads := map[string]any{
		PartVocabularies: vocabulariesPart{Brands: b.Brands, Models: b.Models},
		PartScaler:       b.Scaler,
		PartIndex:        b.Index,
		PartMetrics:      b.Metrics,
	}

	out := make(map[string][]byte, len(payloads))
	for name, payload := range payloads {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", name, err)
		}
		env, err := json.Marshal(partEnvelope{
			BundleID:      b.ID,
			SchemaVersion: b.SchemaVersion,
			Part:          name,
			Data:          data,
		})
		if err != nil {
			return nil, fmt.Errorf("encode %s envelope: %w", name, err)
		}
		out[name] = env
	}
	return out, nil
}

func checkManifest(m manifest, id string) error {
	if m.ID != id {
		return fmt.Errorf("manifest names bundle %q, expected %q: %w", m.ID, id, models.ErrMissingArtifact)
	}
	if m.SchemaVersion != models.SchemaVersion {
		return fmt.Errorf("bundle %s has schema version %d, want %d: %w",
			id, m.SchemaVersion, models.SchemaVersion, models.ErrMissingArtifact)
	}
	return nil
}

// decodeParts rebuilds a bundle from raw part envelopes and validates it as
// a unit.
func decodeParts(m manifest, raw map[string][]byte) (*models.ArtifactBundle, error) {
	b := &models.ArtifactBundle{ID: m.ID, SchemaVersion: m.SchemaVersion, CreatedAt: m.CreatedAt}

	for _, name := range requiredParts {
		data, ok := raw[name]
		if !ok {
			return nil, fmt.Errorf("bundle %s: part %s absent: %w", m.ID, name, models.ErrMissingArtifact)
		}

		var env partEnvelope
		if err := json.Unmarshal(data, &env); err != nil {
			return nil, fmt.Errorf("bundle %s: decode %s: %w", m.ID, name, err)
		}
		if env.BundleID != m.ID || env.Part != name {
			return nil, fmt.Errorf("bundle %s: part %s belongs to bundle %q (%s): %w",
				m.ID, name, env.BundleID, env.Part, models.ErrMissingArtifact)
		}
		if env.SchemaVersion != m.SchemaVersion {
			return nil, fmt.Errorf("bundle %s: part %s has schema version %d: %w",
				m.ID, name, env.SchemaVersion, models.ErrMissingArtifact)
		}

		var err error
		switch name {
		case PartVocabularies:
			var v vocabulariesPart
			err = json.Unmarshal(env.Data, &v)
			b.Brands, b.Models = v.Brands, v.Models
		case PartScaler:
			err = json.Unmarshal(env.Data, &b.Scaler)
		case PartIndex:
			err = json.Unmarshal(env.Data, &b.Index)
		case PartMetrics:
			err = json.Unmarshal(env.Data, &b.Metrics)
		}
		if err != nil {
			return nil, fmt.Errorf("bundle %s: decode %s data: %w", m.ID, name, err)
		}
	}

	if err := b.Validate(); err != nil {
		return nil, err
	}
	return b, nil
}
