package services

import (
	"fmt"
	"math"
	"sort"

	"car-valuation/models"
)

// Neighbor is one indexed record selected for a query.
type Neighbor struct {
	Index    int
	Distance float64
	Record   models.CleanRecord
}

// Estimate is a point estimate plus the neighbors it was computed from,
// nearest first.
type Estimate struct {
	Price     float64
	Neighbors []Neighbor
}

// Estimator is a distance-weighted k-nearest-neighbor regressor. The fitted
// index is never modified, so Predict may be called from many goroutines.
type Estimator struct {
	index *models.NeighborIndex
}

func NewEstimator() *Estimator {
	return &Estimator{}
}

// Fit stores the index. There is no training step: the index is the model.
func (e *Estimator) Fit(index *models.NeighborIndex) error {
	if index == nil || index.Len() == 0 {
		return fmt.Errorf("fit on empty index: %w", models.ErrInvalidArgument)
	}
	if len(index.Vectors) != len(index.Records) {
		return fmt.Errorf("fit: %d vectors but %d records: %w",
			len(index.Vectors), len(index.Records), models.ErrInvalidArgument)
	}
	e.index = index
	return nil
}

// Fitted reports whether Fit has succeeded.
func (e *Estimator) Fitted() bool { return e.index != nil }

// Size returns the number of indexed records.
func (e *Estimator) Size() int {
	if e.index == nil {
		return 0
	}
	return e.index.Len()
}

// Predict estimates the price of query from its k nearest neighbors.
//
// k must be in [1, Size()]; larger values are rejected rather than clamped.
// Equal distances keep index order. When any selected neighbor sits at
// distance 0 the estimate is the mean price of those exact matches;
// otherwise each neighbor is weighted by 1/distance.
func (e *Estimator) Predict(query models.FeatureVector, k int) (*Estimate, error) {
	if e.index == nil {
		return nil, fmt.Errorf("predict before fit: %w", models.ErrInvalidState)
	}
	n := e.index.Len()
	if k < 1 || k > n {
		return nil, fmt.Errorf("k=%d outside [1, %d]: %w", k, n, models.ErrInvalidArgument)
	}

	ranked := make([]Neighbor, n)
	for i, v := range e.index.Vectors {
		ranked[i] = Neighbor{Index: i, Distance: euclidean(query, v)}
	}
	sort.SliceStable(ranked, func(a, b int) bool {
		return ranked[a].Distance < ranked[b].Distance
	})

	selected := ranked[:k:k]
	for i := range selected {
		selected[i].Record = e.index.Records[selected[i].Index]
	}

	return &Estimate{Price: weightedPrice(selected), Neighbors: selected}, nil
}

func weightedPrice(neighbors []Neighbor) float64 {
	var exactSum float64
	var exact int
	for _, nb := range neighbors {
		if nb.Distance == 0 {
			exactSum += nb.Record.SoldPrice
			exact++
		}
	}
	if exact > 0 {
		return exactSum / float64(exact)
	}

	var weighted, total float64
	for _, nb := range neighbors {
		w := 1 / nb.Distance
		weighted += w * nb.Record.SoldPrice
		total += w
	}
	return weighted / total
}

func euclidean(a, b models.FeatureVector) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}
