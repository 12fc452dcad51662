package services

import (
	"encoding/json"
	"io"
	"math/rand"
	"testing"
	"time"

	"car-valuation/models"
	"car-valuation/utils"
)

func newTestLogger() *utils.Logger { return utils.NewLoggerWithWriter(io.Discard, false) }

func fixedClock() time.Time { return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC) }

func newTestNormalizer(seed int64) *Normalizer {
	return NewNormalizer(newTestLogger(), rand.New(rand.NewSource(seed))).WithClock(fixedClock)
}

func TestSplitBrandModel(t *testing.T) {
	tests := []struct {
		in        string
		wantBrand string
		wantModel string
	}{
		{"ToyotaCamry", "Toyota", "Camry"},
		{"HondaCivic", "Honda", "Civic"},
		{"MercedesBenzCClass", "Mercedes", "BenzCClass"},
		{"Land RoverDefender", "Land Rover", "Defender"},
		{"BMW3Series", "BMW3Series", models.UnknownModel},
		{"BMWX5", "BMWX5", models.UnknownModel},
		{"Toyota", "Toyota", models.UnknownModel},
		{"toyotaCamry", "toyotaCamry", models.UnknownModel},
		{"KiaRio ", "Kia", "Rio"},
		{"x", "x", models.UnknownModel},
	}

	for _, tt := range tests {
		brand, model := SplitBrandModel(tt.in)
		if brand != tt.wantBrand || model != tt.wantModel {
			t.Errorf("SplitBrandModel(%q) = (%q, %q); want (%q, %q)",
				tt.in, brand, model, tt.wantBrand, tt.wantModel)
		}
	}
}

func TestSplitBrandModelIsTotal(t *testing.T) {
	inputs := []string{"A", "AB", "Ab", "AbC", "aBc", "123", "Ä", "ÖlAuto", "Mini Cooper", "--", "   "}
	for _, in := range inputs {
		brand, model := SplitBrandModel(in)
		if brand == "" || model == "" {
			t.Errorf("SplitBrandModel(%q) = (%q, %q); both parts must be non-empty", in, brand, model)
		}
	}
}

func TestNormalizeCondition(t *testing.T) {
	tests := []struct {
		in   any
		want int
	}{
		{8, 8},
		{7.6, 8},
		{"9", 9},
		{10.0, 10},
		{1, 1},
		{0.5, 1},
		{0.8, 2},
		{0.1, 1},
		{0, 1},
		{45, 4},
		{100, 10},
		{73.0, 7},
		{"Excellent", 10},
		{"very good condition", 8},
		{"GOOD", 7},
		{"fair wear", 5},
		{"Poor", 3},
		{"mint", 5},
		{"", 5},
		{nil, 5},
		{-3, 5},
		{250, 5},
		{uint8(7), 7},
		{int16(3), 3},
		{int8(2), 2},
		{uint(60), 6},
		{uint64(9), 9},
		{json.Number("4.5"), 4},
		{json.Number("80"), 8},
		{json.Number("n/a"), 5},
	}

	for _, tt := range tests {
		got := NormalizeCondition(tt.in)
		if got != tt.want {
			t.Errorf("NormalizeCondition(%v) = %d; want %d", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeConditionBandPrecedence(t *testing.T) {
	// 3 is in both [1,10] and [0,5]; the first band keeps it as 3, not 6.
	if got := NormalizeCondition(3); got != 3 {
		t.Errorf("NormalizeCondition(3) = %d; want 3", got)
	}
	// 5 is in all three bands.
	if got := NormalizeCondition(5.0); got != 5 {
		t.Errorf("NormalizeCondition(5) = %d; want 5", got)
	}
	// 8 is in [1,10] and [0,100].
	if got := NormalizeCondition(8); got != 8 {
		t.Errorf("NormalizeCondition(8) = %d; want 8", got)
	}
}

func TestNormalizeConditionRangeAndIdempotence(t *testing.T) {
	for i := 0; i <= 1000; i++ {
		v := float64(i) / 10
		got := NormalizeCondition(v)
		if got < 1 || got > 10 {
			t.Fatalf("NormalizeCondition(%v) = %d; out of [1,10]", v, got)
		}
		if again := NormalizeCondition(got); again != got {
			t.Fatalf("NormalizeCondition not idempotent: %d -> %d", got, again)
		}
	}
}

func TestConvertKilometers(t *testing.T) {
	miles, isKm := ConvertKilometers([]float64{30000, 40000, 50000})
	if isKm {
		t.Error("mean of 40000 should not be treated as kilometers")
	}
	if miles[2] != 50000 {
		t.Errorf("unconverted mileage: got %d, want 50000", miles[2])
	}

	miles, isKm = ConvertKilometers([]float64{100000, 20000})
	if !isKm {
		t.Fatal("mean of 60000 should be treated as kilometers")
	}
	if miles[0] != 62137 {
		t.Errorf("converted 100000 km: got %d, want 62137", miles[0])
	}
	if miles[1] != 12427 {
		t.Errorf("converted 20000 km: got %d, want 12427", miles[1])
	}

	if out, isKm := ConvertKilometers(nil); len(out) != 0 || isKm {
		t.Error("empty batch should convert to nothing")
	}
}

func cleanRecord(brand, model string, year, mileage int, price float64) models.CleanRecord {
	return models.CleanRecord{
		Vehicle:   models.Vehicle{Brand: brand, Model: model, Year: year, Mileage: mileage, ConditionScore: 7},
		SoldPrice: price,
	}
}

func TestFilterOutliers(t *testing.T) {
	records := []models.CleanRecord{
		cleanRecord("Toyota", "Camry", 2015, 50000, 12000),
		cleanRecord("Ford", "ModelT", 1899, 1000, 50000),
		cleanRecord("Tesla", "Future", 2026, 10, 90000),
		cleanRecord("Tesla", "Model3", 2025, 10, 40000),
		cleanRecord("Honda", "Civic", 2010, 500001, 3000),
		cleanRecord("Honda", "Fit", 2010, 500000, 3000),
		cleanRecord("Kia", "Rio", 2012, 80000, 0),
		cleanRecord("Bugatti", "Chiron", 2020, 100, 10000001),
		cleanRecord("Ferrari", "F40", 1990, 10000, 10000000),
	}

	once := FilterOutliers(records, 2024)
	if len(once) != 4 {
		t.Fatalf("expected 4 survivors, got %d: %+v", len(once), once)
	}

	twice := FilterOutliers(once, 2024)
	if len(twice) != len(once) {
		t.Fatalf("filter is not idempotent: %d then %d", len(once), len(twice))
	}
	for i := range once {
		if once[i] != twice[i] {
			t.Errorf("record %d changed on second pass", i)
		}
	}
}

func TestSyntheticSaleDateSeeded(t *testing.T) {
	a := newTestNormalizer(7)
	b := newTestNormalizer(7)

	for i := 0; i < 20; i++ {
		da := a.syntheticSaleDate(2015)
		db := b.syntheticSaleDate(2015)
		if !da.Equal(db) {
			t.Fatalf("same seed produced different dates: %v vs %v", da, db)
		}
		if da.Year() < 2016 || da.Year() > 2020 {
			t.Errorf("sale year %d outside 2016..2020", da.Year())
		}
		if da.Day() < 1 || da.Day() > 28 {
			t.Errorf("sale day %d outside 1..28", da.Day())
		}
	}
}

func TestSyntheticSaleDateFallsBackToClock(t *testing.T) {
	n := newTestNormalizer(1)
	if got := n.syntheticSaleDate(0); !got.Equal(fixedClock()) {
		t.Errorf("expected clock fallback, got %v", got)
	}
}

func TestNormalizeDropsMissingFields(t *testing.T) {
	n := newTestNormalizer(1)
	raw := []models.RawRecord{
		{"Model": "ToyotaCamry", "Year": "2015", "Selling Price": "12,000", "Kilometers Driven": "40000", "Car Condition": "Good"},
		{"Model": "", "Year": "2015", "Selling Price": "12000", "Kilometers Driven": "40000"},
		{"Model": 42, "Year": "2015", "Selling Price": "12000", "Kilometers Driven": "40000"},
		{"Model": "HondaCivic", "Year": "", "Selling Price": "9000", "Kilometers Driven": "30000"},
		{"Model": "HondaCivic", "Year": "2012", "Kilometers Driven": "30000"},
		{"Model": "HondaCivic", "Year": "2012", "Selling Price": "9000", "Kilometers Driven": "n/a"},
		{"Model": "HondaCivic", "Year": "2012", "Selling Price": json.Number("oops"), "Kilometers Driven": "30000"},
	}

	clean, report := n.Normalize(raw)
	if len(clean) != 1 {
		t.Fatalf("expected 1 clean record, got %d", len(clean))
	}
	if report.DroppedMissing != 6 {
		t.Errorf("DroppedMissing: got %d, want 6", report.DroppedMissing)
	}
	got := clean[0]
	if got.Brand != "Toyota" || got.Model != "Camry" || got.Year != 2015 {
		t.Errorf("unexpected record %+v", got)
	}
	if got.SoldPrice != 12000 || got.Mileage != 40000 || got.ConditionScore != 7 {
		t.Errorf("unexpected numeric fields %+v", got)
	}
}

func TestNormalizeKeepsIntegerKinds(t *testing.T) {
	n := newTestNormalizer(1)
	raw := []models.RawRecord{
		{"Model": "ToyotaCamry", "Year": uint16(2015), "Selling Price": uint32(12000), "Kilometers Driven": int32(40000), "Car Condition": uint8(7)},
		{"Model": "HondaCivic", "Year": json.Number("2017"), "Selling Price": json.Number("15500.5"), "Kilometers Driven": int16(30000), "Car Condition": int8(8)},
	}

	clean, report := n.Normalize(raw)
	if report.DroppedMissing != 0 || len(clean) != 2 {
		t.Fatalf("expected both records kept, got %d (missing %d)", len(clean), report.DroppedMissing)
	}
	if got := clean[0]; got.Year != 2015 || got.SoldPrice != 12000 || got.Mileage != 40000 || got.ConditionScore != 7 {
		t.Errorf("unexpected first record %+v", got)
	}
	if got := clean[1]; got.Year != 2017 || got.SoldPrice != 15500.5 || got.Mileage != 30000 || got.ConditionScore != 8 {
		t.Errorf("unexpected second record %+v", got)
	}
}

func TestNormalizeBatch(t *testing.T) {
	n := newTestNormalizer(42)
	raw := []models.RawRecord{
		{"Model": "ToyotaCamry", "Year": 2015, "Selling Price": 15000.0, "Kilometers Driven": 120000.0, "Car Condition": 4},
		{"Model": "HondaCivic", "Year": 2018, "Selling Price": 18000.0, "Kilometers Driven": 60000.0, "Car Condition": "excellent"},
		{"Model": "FordFocus", "Year": 1850, "Selling Price": 5000.0, "Kilometers Driven": 90000.0, "Car Condition": 80},
		{"Model": "KiaRio", "Year": 2016, "Selling Price": -1.0, "Kilometers Driven": 70000.0},
		{"Model": "MazdaMiata", "Year": 2019, "Selling Price": 21000.0, "Kilometers Driven": 30000.0, "Sold Date": "2022-03-15"},
	}

	clean, report := n.Normalize(raw)

	if !report.ConvertedKilometers {
		t.Fatal("mean mileage 74000 should trigger kilometer conversion")
	}
	if report.RowsIn != 5 || report.RowsOut != 3 {
		t.Errorf("rows in/out: got %d/%d, want 5/3", report.RowsIn, report.RowsOut)
	}
	if report.DroppedYear != 1 || report.DroppedPrice != 1 || report.DroppedOutliers() != 2 {
		t.Errorf("outlier counts: %+v", report)
	}
	if report.SyntheticDates != 2 {
		t.Errorf("SyntheticDates: got %d, want 2", report.SyntheticDates)
	}

	if clean[0].Mileage != 74564 {
		t.Errorf("converted mileage: got %d, want 74564", clean[0].Mileage)
	}
	if clean[0].ConditionScore != 4 {
		t.Errorf("condition 4 stays in the 1..10 band: got %d", clean[0].ConditionScore)
	}
	if clean[1].ConditionScore != 10 {
		t.Errorf("excellent: got %d, want 10", clean[1].ConditionScore)
	}
	wantDate := time.Date(2022, 3, 15, 0, 0, 0, 0, time.UTC)
	if !clean[2].SoldDate.Equal(wantDate) {
		t.Errorf("source sale date not kept: got %v", clean[2].SoldDate)
	}

	for _, r := range clean {
		if r.SoldDate.IsZero() {
			t.Errorf("record %s %s has no sale date", r.Brand, r.Model)
		}
	}
}

func TestNormalizeIsReproducibleWithSeed(t *testing.T) {
	raw := []models.RawRecord{
		{"Model": "ToyotaCamry", "Year": "2015", "Selling Price": "15000", "Kilometers Driven": "40000"},
		{"Model": "HondaCivic", "Year": "2018", "Selling Price": "18000", "Kilometers Driven": "30000"},
	}

	a, _ := newTestNormalizer(99).Normalize(raw)
	b, _ := newTestNormalizer(99).Normalize(raw)
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("record %d differs between seeded runs: %+v vs %+v", i, a[i], b[i])
		}
	}
}

func TestRenameColumns(t *testing.T) {
	r := RenameColumns(models.RawRecord{
		"Selling Price":      "100",
		" Kilometers Driven": "5",
		"Model":              "KiaRio",
	})
	if r["SoldPrice"] != "100" || r["Mileage"] != "5" || r["Model"] != "KiaRio" {
		t.Errorf("unexpected renamed record %v", r)
	}

	r = RenameColumns(models.RawRecord{"SoldPrice": "1", "Selling Price": "2"})
	if r["SoldPrice"] != "1" {
		t.Errorf("canonical column should win, got %v", r["SoldPrice"])
	}
	if _, ok := r["Selling Price"]; ok {
		t.Errorf("alias should not survive the rename: %v", r)
	}
}

func TestRenameColumnsIsStable(t *testing.T) {
	tests := []struct {
		name string
		in   models.RawRecord
		key  string
		want any
	}{
		{"first alias wins", models.RawRecord{"Selling Price": "1", "Sold Price": "2"}, "SoldPrice", "1"},
		{"alias order not key order", models.RawRecord{"Sold Price": "2", "Selling Price": "1"}, "SoldPrice", "1"},
		{"mileage aliases", models.RawRecord{"Kms Driven": "3", "Kilometers Driven": "4", "Mileage Driven": "5"}, "Mileage", "4"},
		{"unpadded key wins", models.RawRecord{" Year": "1999", "Year": "2001", "Year ": "2003"}, "Year", "2001"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for i := 0; i < 200; i++ {
				if got := RenameColumns(tt.in)[tt.key]; got != tt.want {
					t.Fatalf("call %d: %s = %v; want %v", i, tt.key, got, tt.want)
				}
			}
		})
	}
}
