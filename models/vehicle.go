package models

import "time"

// UnknownModel is the model name used when a combined identifier carries no
// second capitalized token.
const UnknownModel = "Unknown"

// RawRecord holds one ingested sale row exactly as read, column name to value.
// Values are strings when read from CSV and may be numbers when built in code.
type RawRecord map[string]any

// Vehicle is the attribute set a valuation is computed from.
type Vehicle struct {
	Brand          string `json:"brand"`
	Model          string `json:"model"`
	Year           int    `json:"year"`
	Mileage        int    `json:"mileage"`
	ConditionScore int    `json:"condition_score"`
}

// CleanRecord is a normalized historical sale, ready for training.
type CleanRecord struct {
	Vehicle
	SoldPrice float64   `json:"sold_price"`
	SoldDate  time.Time `json:"sold_date"`
}

// NormalizeReport counts what happened to a batch during normalization.
type NormalizeReport struct {
	RowsIn              int  `json:"rows_in"`
	DroppedMissing      int  `json:"dropped_missing"`
	DroppedYear         int  `json:"dropped_year"`
	DroppedMileage      int  `json:"dropped_mileage"`
	DroppedPrice        int  `json:"dropped_price"`
	ConvertedKilometers bool `json:"converted_kilometers"`
	SyntheticDates      int  `json:"synthetic_dates"`
	RowsOut             int  `json:"rows_out"`
}

// DroppedOutliers returns the number of rows removed by the outlier filter.
func (r *NormalizeReport) DroppedOutliers() int {
	return r.DroppedYear + r.DroppedMileage + r.DroppedPrice
}

// CorpusReport holds the computed analytics over a clean corpus.
type CorpusReport struct {
	TotalRecords          int
	AveragePrice          float64
	MinPrice              float64
	MaxPrice              float64
	MostExpensive         *CleanRecord
	TopBrands             []BrandCount
	ConditionDistribution map[int]int
	OldestYear            int
	NewestYear            int
}

// BrandCount is one row of the brand distribution.
type BrandCount struct {
	Brand string
	Count int
}
