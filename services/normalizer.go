package services

import (
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"strconv"
	"strings"
	"time"

	"car-valuation/models"
	"car-valuation/utils"
)

const (
	// kilometerMeanThreshold is the batch mileage mean above which the column
	// is taken to be in kilometers.
	kilometerMeanThreshold = 50000
	kmToMiles              = 0.621371

	minYear          = 1900
	maxMileage       = 500000
	maxSoldPrice     = 10000000
	defaultCondition = 5
)

// ColumnRenames lists the column names seen in raw exports with the canonical
// names the normalizer reads. When a row carries several aliases of one
// column, the alias listed first wins.
var ColumnRenames = []struct {
	Alias     string
	Canonical string
}{
	{"Selling Price", "SoldPrice"},
	{"Sold Price", "SoldPrice"},
	{"Kilometers Driven", "Mileage"},
	{"Kilometres Driven", "Mileage"},
	{"Kms Driven", "Mileage"},
	{"Mileage Driven", "Mileage"},
	{"Car Condition", "ConditionScore"},
	{"Condition", "ConditionScore"},
	{"Sold Date", "SoldDate"},
	{"Sale Date", "SoldDate"},
}

// conditionKeywords is matched by substring, in order; "very good" must be
// tried before "good".
var conditionKeywords = []struct {
	keyword string
	score   int
}{
	{"excellent", 10},
	{"very good", 8},
	{"good", 7},
	{"fair", 5},
	{"poor", 3},
}

var soldDateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"01/02/2006",
}

// Normalizer turns RawRecords into CleanRecords. It is not safe for
// concurrent use because it owns a random source.
type Normalizer struct {
	logger *utils.Logger
	rng    *rand.Rand
	now    func() time.Time
}

// NewNormalizer creates a Normalizer. rng drives synthetic sale dates; pass a
// seeded source for reproducible output. A nil rng is seeded from the clock.
func NewNormalizer(logger *utils.Logger, rng *rand.Rand) *Normalizer {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Normalizer{logger: logger, rng: rng, now: time.Now}
}

// WithClock replaces the clock used for the current year and the sale date
// fallback.
func (n *Normalizer) WithClock(now func() time.Time) *Normalizer {
	n.now = now
	return n
}

type pendingRecord struct {
	record   models.CleanRecord
	mileage  float64
	soldDate time.Time
	hasDate  bool
}

// Normalize converts a batch of raw rows. Rows that are malformed or out of
// policy are dropped and counted, never reported as errors.
func (n *Normalizer) Normalize(raw []models.RawRecord) ([]models.CleanRecord, *models.NormalizeReport) {
	report := &models.NormalizeReport{RowsIn: len(raw)}
	pending := make([]pendingRecord, 0, len(raw))

	for _, r := range raw {
		p, ok := extract(RenameColumns(r))
		if !ok {
			report.DroppedMissing++
			continue
		}
		pending = append(pending, p)
	}

	mileages := make([]float64, len(pending))
	for i, p := range pending {
		mileages[i] = p.mileage
	}
	converted, isKm := ConvertKilometers(mileages)
	report.ConvertedKilometers = isKm
	if isKm {
		n.logger.Info("[normalizer] Mileage mean above %d, converting kilometers to miles", kilometerMeanThreshold)
	}

	currentYear := n.now().Year()
	result := make([]models.CleanRecord, 0, len(pending))
	for i, p := range pending {
		rec := p.record
		rec.Mileage = converted[i]

		switch outlierReason(rec, currentYear) {
		case "year":
			report.DroppedYear++
			continue
		case "mileage":
			report.DroppedMileage++
			continue
		case "price":
			report.DroppedPrice++
			continue
		}

		if p.hasDate {
			rec.SoldDate = p.soldDate
		} else {
			rec.SoldDate = n.syntheticSaleDate(rec.Year)
			report.SyntheticDates++
		}
		result = append(result, rec)
	}

	report.RowsOut = len(result)
	n.logger.Info("[normalizer] Cleaned %d → %d records (missing %d, outliers %d)",
		report.RowsIn, report.RowsOut, report.DroppedMissing, report.DroppedOutliers())
	n.logger.Debug("[normalizer] Outliers by rule: year %d, mileage %d, price %d",
		report.DroppedYear, report.DroppedMileage, report.DroppedPrice)
	return result, report
}

// RenameColumns returns a copy of r with known aliases replaced by their
// canonical column names. Canonical columns already present win; among
// aliases the first one in ColumnRenames wins. Keys are trimmed, and a key
// that needed no trimming beats a padded duplicate.
func RenameColumns(r models.RawRecord) models.RawRecord {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	trimmed := make(models.RawRecord, len(r))
	for _, k := range keys {
		key := strings.TrimSpace(k)
		if _, dup := trimmed[key]; dup && key != k {
			continue
		}
		trimmed[key] = r[k]
	}

	out := make(models.RawRecord, len(trimmed))
	for k, v := range trimmed {
		if !isColumnAlias(k) {
			out[k] = v
		}
	}
	for _, rn := range ColumnRenames {
		v, ok := trimmed[rn.Alias]
		if !ok {
			continue
		}
		if _, exists := out[rn.Canonical]; !exists {
			out[rn.Canonical] = v
		}
	}
	return out
}

func isColumnAlias(key string) bool {
	for _, rn := range ColumnRenames {
		if rn.Alias == key {
			return true
		}
	}
	return false
}

// extract applies the brand/model split and parses the required numeric
// fields. It reports false when any required field is missing.
func extract(r models.RawRecord) (pendingRecord, bool) {
	identifier, ok := r["Model"].(string)
	if !ok || strings.TrimSpace(identifier) == "" {
		return pendingRecord{}, false
	}
	brand, model := SplitBrandModel(identifier)
	if brand == "" || model == "" {
		return pendingRecord{}, false
	}

	year, ok := parseNumber(r["Year"])
	if !ok {
		return pendingRecord{}, false
	}
	price, ok := parseNumber(r["SoldPrice"])
	if !ok {
		return pendingRecord{}, false
	}
	mileage, ok := parseNumber(r["Mileage"])
	if !ok {
		return pendingRecord{}, false
	}

	p := pendingRecord{
		record: models.CleanRecord{
			Vehicle: models.Vehicle{
				Brand:          brand,
				Model:          model,
				Year:           int(year),
				ConditionScore: NormalizeCondition(r["ConditionScore"]),
			},
			SoldPrice: price,
		},
		mileage: mileage,
	}
	p.soldDate, p.hasDate = parseSoldDate(r["SoldDate"])
	return p, true
}

// SplitBrandModel splits a glued identifier such as "ToyotaCamry" at the
// first capitalized word that directly follows another capitalized word.
// Without such a boundary the whole string is the brand and the model is
// models.UnknownModel. A blank identifier is kept untrimmed as the brand.
func SplitBrandModel(s string) (brand, model string) {
	for i := 0; i < len(s); i++ {
		if !isUpperASCII(s[i]) {
			continue
		}
		j := i + 1
		for j < len(s) && isLowerASCII(s[j]) {
			j++
		}
		if j > i+1 && j < len(s) && isUpperASCII(s[j]) {
			return strings.TrimSpace(s[:j]), strings.TrimSpace(s[j:])
		}
	}
	if brand = strings.TrimSpace(s); brand == "" {
		return s, models.UnknownModel
	}
	return brand, models.UnknownModel
}

func isUpperASCII(b byte) bool { return b >= 'A' && b <= 'Z' }
func isLowerASCII(b byte) bool { return b >= 'a' && b <= 'z' }

// NormalizeCondition maps a numeric or textual condition onto 1..10.
//
// Numeric bands are tried in order and the first match wins: [1,10] is kept,
// [0,5] is doubled, [0,100] is divided by ten. Text is matched against the
// keyword table. Anything else, including a missing value, scores 5.
func NormalizeCondition(v any) int {
	if v == nil {
		return defaultCondition
	}

	if f, ok := conditionNumber(v); ok {
		switch {
		case f >= 1 && f <= 10:
			return clampCondition(math.RoundToEven(f))
		case f >= 0 && f <= 5:
			return clampCondition(math.RoundToEven(f * 2))
		case f >= 0 && f <= 100:
			return clampCondition(math.RoundToEven(f / 10))
		}
	}

	text := strings.ToLower(fmt.Sprint(v))
	for _, kw := range conditionKeywords {
		if strings.Contains(text, kw.keyword) {
			return kw.score
		}
	}
	return defaultCondition
}

func clampCondition(f float64) int {
	switch {
	case f < 1:
		return 1
	case f > 10:
		return 10
	}
	return int(f)
}

// conditionNumber reads a condition as a number without the lenient
// currency/comma stripping used for prices.
func conditionNumber(v any) (float64, bool) {
	switch x := v.(type) {
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil || math.IsNaN(f) {
			return 0, false
		}
		return f, true
	default:
		return numericValue(v)
	}
}

// ConvertKilometers applies the batch unit rule: when the mean mileage is
// above 50,000 every value is converted to miles. Values are truncated to
// whole units either way.
func ConvertKilometers(mileages []float64) ([]int, bool) {
	out := make([]int, len(mileages))
	if len(mileages) == 0 {
		return out, false
	}

	var sum float64
	for _, m := range mileages {
		sum += m
	}
	isKm := sum/float64(len(mileages)) > kilometerMeanThreshold

	for i, m := range mileages {
		if isKm {
			m *= kmToMiles
		}
		out[i] = int(m)
	}
	return out, isKm
}

// FilterOutliers drops records with an implausible year, mileage or price.
// It is idempotent.
func FilterOutliers(records []models.CleanRecord, currentYear int) []models.CleanRecord {
	kept := make([]models.CleanRecord, 0, len(records))
	for _, r := range records {
		if outlierReason(r, currentYear) == "" {
			kept = append(kept, r)
		}
	}
	return kept
}

// outlierReason names the first rule r violates, or "" if it passes.
func outlierReason(r models.CleanRecord, currentYear int) string {
	switch {
	case r.Year < minYear || r.Year > currentYear+1:
		return "year"
	case r.Mileage < 0 || r.Mileage > maxMileage:
		return "mileage"
	case r.SoldPrice <= 0 || r.SoldPrice > maxSoldPrice:
		return "price"
	}
	return ""
}

// syntheticSaleDate places a sale one to five years after manufacture.
func (n *Normalizer) syntheticSaleDate(year int) time.Time {
	if year < 1 || year > 9990 {
		return n.now()
	}
	yearsAfter := n.rng.Intn(5) + 1
	month := n.rng.Intn(12) + 1
	day := n.rng.Intn(28) + 1
	return time.Date(year+yearsAfter, time.Month(month), day, 0, 0, 0, 0, time.UTC)
}

func parseSoldDate(v any) (time.Time, bool) {
	switch x := v.(type) {
	case time.Time:
		return x, !x.IsZero()
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return time.Time{}, false
		}
		for _, layout := range soldDateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t, true
			}
		}
	}
	return time.Time{}, false
}

// parseNumber reads a required numeric field. Strings may carry thousands
// separators and a leading currency sign.
func parseNumber(v any) (float64, bool) {
	if s, ok := v.(string); ok {
		s = strings.TrimSpace(s)
		s = strings.TrimPrefix(s, "$")
		s = strings.ReplaceAll(s, ",", "")
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return f, true
	}
	return numericValue(v)
}

func numericValue(v any) (float64, bool) {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int:
		f = float64(x)
	case int8:
		f = float64(x)
	case int16:
		f = float64(x)
	case int32:
		f = float64(x)
	case int64:
		f = float64(x)
	case uint:
		f = float64(x)
	case uint8:
		f = float64(x)
	case uint16:
		f = float64(x)
	case uint32:
		f = float64(x)
	case uint64:
		f = float64(x)
	case json.Number:
		var err error
		if f, err = x.Float64(); err != nil {
			return 0, false
		}
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
