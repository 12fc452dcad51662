package services

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"car-valuation/models"
	"car-valuation/utils"
)

const topBrandCount = 10

type InsightService struct {
	logger *utils.Logger
}

func NewInsightService(logger *utils.Logger) *InsightService {
	return &InsightService{logger: logger}
}

func (s *InsightService) Generate(records []models.CleanRecord) *models.CorpusReport {
	report := &models.CorpusReport{
		ConditionDistribution: make(map[int]int),
	}

	if len(records) == 0 {
		s.logger.Warn("[insights] Empty corpus, nothing to summarise")
		return report
	}

	report.TotalRecords = len(records)
	report.MinPrice = records[0].SoldPrice
	report.MaxPrice = records[0].SoldPrice
	report.OldestYear = records[0].Year
	report.NewestYear = records[0].Year
	report.MostExpensive = &records[0]

	brandCounts := make(map[string]int)
	var total float64
	for i := range records {
		r := &records[i]
		total += r.SoldPrice
		if r.SoldPrice < report.MinPrice {
			report.MinPrice = r.SoldPrice
		}
		if r.SoldPrice > report.MaxPrice {
			report.MaxPrice = r.SoldPrice
			report.MostExpensive = r
		}
		if r.Year < report.OldestYear {
			report.OldestYear = r.Year
		}
		if r.Year > report.NewestYear {
			report.NewestYear = r.Year
		}
		brandCounts[r.Brand]++
		report.ConditionDistribution[r.ConditionScore]++
	}

	report.AveragePrice = round2(total / float64(len(records)))
	report.MinPrice = round2(report.MinPrice)
	report.MaxPrice = round2(report.MaxPrice)

	for brand, n := range brandCounts {
		report.TopBrands = append(report.TopBrands, models.BrandCount{Brand: brand, Count: n})
	}
	// Count descending, then name, so the report is stable.
	sort.Slice(report.TopBrands, func(i, j int) bool {
		a, b := report.TopBrands[i], report.TopBrands[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.Brand < b.Brand
	})
	if len(report.TopBrands) > topBrandCount {
		report.TopBrands = report.TopBrands[:topBrandCount]
	}

	s.logger.Debug("[insights] %d records, %d brands", report.TotalRecords, len(brandCounts))
	return report
}

func (s *InsightService) Print(r *models.CorpusReport) {
	s.Fprint(os.Stdout, r)
}

func (s *InsightService) Fprint(w io.Writer, r *models.CorpusReport) {
	sep := strings.Repeat("═", 54)
	thin := strings.Repeat("─", 54)

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n", sep)
	fmt.Fprintf(w, "\033[1;35m  🚗 USED VEHICLE MARKET INSIGHTS\033[0m\n")
	fmt.Fprintf(w, "\033[1;35m%s\033[0m\n\n", sep)

	// Overview
	fmt.Fprintf(w, "\033[1;33m  Overview\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	fmt.Fprintf(w, "  Total sales  : \033[1m%d\033[0m\n", r.TotalRecords)
	if r.TotalRecords > 0 {
		fmt.Fprintf(w, "  Model years  : \033[1m%d – %d\033[0m\n", r.OldestYear, r.NewestYear)
	}
	fmt.Fprintln(w)

	// Price Stats
	fmt.Fprintf(w, "\033[1;33m  Sale Prices\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	if r.TotalRecords > 0 {
		fmt.Fprintf(w, "  Average price : \033[1;32m$%.2f\033[0m\n", r.AveragePrice)
		fmt.Fprintf(w, "  Minimum price : \033[1;32m$%.2f\033[0m\n", r.MinPrice)
		fmt.Fprintf(w, "  Maximum price : \033[1;32m$%.2f\033[0m\n", r.MaxPrice)
	} else {
		fmt.Fprintf(w, "  No price data available\n")
	}
	fmt.Fprintln(w)

	// Most Expensive
	if r.MostExpensive != nil {
		m := r.MostExpensive
		fmt.Fprintf(w, "\033[1;33m  Most Expensive Sale\033[0m\n")
		fmt.Fprintf(w, "  %s\n", thin)
		fmt.Fprintf(w, "  %s\n", truncate(fmt.Sprintf("%d %s %s", m.Year, m.Brand, m.Model), 50))
		fmt.Fprintf(w, "  Mileage   : %d\n", m.Mileage)
		fmt.Fprintf(w, "  Condition : %d/10\n", m.ConditionScore)
		fmt.Fprintf(w, "  Price     : \033[1;31m$%.2f\033[0m\n", m.SoldPrice)
		fmt.Fprintln(w)
	}

	// ── TOP BRANDS ───────────────────────────────────────────────────────
	fmt.Fprintf(w, "\033[1;33m  Top %d Brands by Sales\033[0m\n", topBrandCount)
	fmt.Fprintf(w, "  %s\n", thin)
	if len(r.TopBrands) == 0 {
		fmt.Fprintf(w, "  No brand data\n")
	} else {
		for i, bc := range r.TopBrands {
			fmt.Fprintf(w, "  \033[1m%2d.\033[0m %-30s \033[1;32m%d\033[0m\n",
				i+1, truncate(bc.Brand, 28), bc.Count)
		}
	}
	fmt.Fprintln(w)

	// Condition distribution
	fmt.Fprintf(w, "\033[1;33m  Condition Distribution\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	if len(r.ConditionDistribution) == 0 {
		fmt.Fprintf(w, "  No condition data\n")
	} else {
		for score := 1; score <= 10; score++ {
			n := r.ConditionDistribution[score]
			if n == 0 {
				continue
			}
			bar := strings.Repeat("█", barLength(n, r.TotalRecords))
			fmt.Fprintf(w, "  %2d/10 %-40s (%d)\n", score, bar, n)
		}
	}

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n\n", sep)
}

// barLength scales a count to at most 40 cells, keeping any non-zero count
// visible.
func barLength(n, total int) int {
	if total == 0 {
		return 0
	}
	l := n * 40 / total
	if l == 0 && n > 0 {
		l = 1
	}
	return l
}

func round2(f float64) float64 {
	return float64(int(f*100+0.5)) / 100
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
