package services

import (
	"fmt"
	"strings"

	"car-valuation/models"
	"car-valuation/utils"
)

// Valuator answers price requests against one loaded bundle. It holds no
// mutable state after construction and is safe for concurrent use.
type Valuator struct {
	logger    *utils.Logger
	bundleID  string
	encoder   *Encoder
	estimator *Estimator
	k         int
}

// NewValuator rebuilds the encoder and estimator from b. The neighbor count
// is the one the bundle was trained with.
func NewValuator(b *models.ArtifactBundle, logger *utils.Logger) (*Valuator, error) {
	enc, err := NewEncoderFromBundle(b)
	if err != nil {
		return nil, err
	}
	est := NewEstimator()
	if err := est.Fit(b.Index); err != nil {
		return nil, err
	}

	k := b.Metrics.K
	if k < 1 || k > est.Size() {
		return nil, fmt.Errorf("bundle %s: k=%d with %d indexed records: %w",
			b.ID, k, est.Size(), models.ErrInvalidArgument)
	}
	return &Valuator{logger: logger, bundleID: b.ID, encoder: enc, estimator: est, k: k}, nil
}

// K returns the neighbor count used for every request.
func (v *Valuator) K() int { return v.k }

// Estimate prices one request. Unknown brands or models do not fail the
// request; they are returned as warnings.
func (v *Valuator) Estimate(req models.ValuationRequest) (*models.ValuationResponse, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	query, warnings := v.encoder.Transform(req.Vehicle())
	resp := &models.ValuationResponse{}
	for _, w := range warnings {
		v.logger.Warn("[valuation] %s", w)
		resp.Warnings = append(resp.Warnings, w.String())
	}

	est, err := v.estimator.Predict(query, v.k)
	if err != nil {
		return nil, err
	}

	resp.PredictedPrice = int(est.Price)
	resp.Neighbors = make([]models.NeighborView, len(est.Neighbors))
	for i, nb := range est.Neighbors {
		r := nb.Record
		resp.Neighbors[i] = models.NeighborView{
			Brand:          r.Brand,
			Model:          r.Model,
			Year:           r.Year,
			Mileage:        r.Mileage,
			ConditionScore: r.ConditionScore,
			SoldPrice:      int(r.SoldPrice),
			Distance:       nb.Distance,
		}
	}

	v.logger.Debug("[valuation] %s %s %d → %d (bundle %s)",
		req.Brand, req.Model, req.Year, resp.PredictedPrice, v.bundleID)
	return resp, nil
}

func validateRequest(req models.ValuationRequest) error {
	switch {
	case strings.TrimSpace(req.Brand) == "":
		return fmt.Errorf("brand is required: %w", models.ErrInvalidArgument)
	case strings.TrimSpace(req.Model) == "":
		return fmt.Errorf("model is required: %w", models.ErrInvalidArgument)
	case req.Year <= 0:
		return fmt.Errorf("year %d must be positive: %w", req.Year, models.ErrInvalidArgument)
	case req.Mileage < 0:
		return fmt.Errorf("mileage %d must not be negative: %w", req.Mileage, models.ErrInvalidArgument)
	case req.ConditionScore < 1 || req.ConditionScore > 10:
		return fmt.Errorf("condition score %d outside 1..10: %w", req.ConditionScore, models.ErrInvalidArgument)
	}
	return nil
}
