package models

// ValuationRequest is the attribute set a caller asks a price for.
type ValuationRequest struct {
	Brand          string `json:"brand"`
	Model          string `json:"model"`
	Year           int    `json:"year"`
	Mileage        int    `json:"mileage"`
	ConditionScore int    `json:"condition_score"`
}

// Vehicle converts the request into the encoder's input shape.
func (r ValuationRequest) Vehicle() Vehicle {
	return Vehicle{
		Brand:          r.Brand,
		Model:          r.Model,
		Year:           r.Year,
		Mileage:        r.Mileage,
		ConditionScore: r.ConditionScore,
	}
}

// NeighborView is one comparable sale as returned to callers.
type NeighborView struct {
	Brand          string  `json:"brand"`
	Model          string  `json:"model"`
	Year           int     `json:"year"`
	Mileage        int     `json:"mileage"`
	ConditionScore int     `json:"condition_score"`
	SoldPrice      int     `json:"sold_price"`
	Distance       float64 `json:"distance"`
}

// ValuationResponse carries the estimate and the sales it was derived from,
// nearest first.
type ValuationResponse struct {
	PredictedPrice int            `json:"predicted_price"`
	Neighbors      []NeighborView `json:"neighbors"`
	Warnings       []string       `json:"warnings,omitempty"`
}
