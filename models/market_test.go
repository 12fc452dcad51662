package models

import "testing"

func intPtr(v int) *int { return &v }

func TestMarketFilterMatches(t *testing.T) {
	sale := CleanRecord{
		Vehicle:   Vehicle{Brand: "Toyota", Model: "Camry", Year: 2015, Mileage: 42000, ConditionScore: 7},
		SoldPrice: 14500,
	}

	tests := []struct {
		name   string
		filter MarketFilter
		want   bool
	}{
		{"empty filter", MarketFilter{}, true},
		{"brand", MarketFilter{Brand: "Toyota"}, true},
		{"other brand", MarketFilter{Brand: "Honda"}, false},
		{"brand and model", MarketFilter{Brand: "Toyota", Model: "Camry"}, true},
		{"other model", MarketFilter{Model: "Corolla"}, false},
		{"year", MarketFilter{Year: intPtr(2015)}, true},
		{"other year", MarketFilter{Year: intPtr(2016)}, false},
		{"condition", MarketFilter{ConditionScore: intPtr(8)}, false},
		{"mileage window edge", MarketFilter{Mileage: intPtr(45000)}, true},
		{"mileage outside window", MarketFilter{Mileage: intPtr(45001)}, false},
		{"price window", MarketFilter{SoldPrice: intPtr(12000)}, true},
		{"price outside window", MarketFilter{SoldPrice: intPtr(11000)}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.filter.Matches(sale); got != tt.want {
				t.Errorf("Matches: got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWindowFloorsAtZero(t *testing.T) {
	lo, hi := Window(1000)
	if lo != 0 || hi != 4000 {
		t.Errorf("Window(1000): got [%d, %d], want [0, 4000]", lo, hi)
	}
}
