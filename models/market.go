package models

// MarketWindow is the half-width of the mileage and price ranges a
// MarketFilter matches around the requested value.
const MarketWindow = 3000

// MarketFilter narrows stored sales. Nil fields are not filtered on; Mileage
// and SoldPrice match within ±MarketWindow, with the lower bound floored at 0.
type MarketFilter struct {
	Brand          string
	Model          string
	Year           *int
	ConditionScore *int
	Mileage        *int
	SoldPrice      *int
}

// MarketRecord is a stored sale with its row identity.
type MarketRecord struct {
	ID string `json:"id"`
	CleanRecord
}

// Window returns the inclusive range matched around v.
func Window(v int) (lo, hi int) {
	lo = v - MarketWindow
	if lo < 0 {
		lo = 0
	}
	return lo, v + MarketWindow
}

// Matches reports whether r satisfies every set field of f.
func (f MarketFilter) Matches(r CleanRecord) bool {
	if f.Brand != "" && r.Brand != f.Brand {
		return false
	}
	if f.Model != "" && r.Model != f.Model {
		return false
	}
	if f.Year != nil && r.Year != *f.Year {
		return false
	}
	if f.ConditionScore != nil && r.ConditionScore != *f.ConditionScore {
		return false
	}
	if f.Mileage != nil {
		lo, hi := Window(*f.Mileage)
		if r.Mileage < lo || r.Mileage > hi {
			return false
		}
	}
	if f.SoldPrice != nil {
		lo, hi := Window(*f.SoldPrice)
		if r.SoldPrice < float64(lo) || r.SoldPrice > float64(hi) {
			return false
		}
	}
	return true
}
