package cli

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"car-valuation/models"
)

func init() {
	cmd := &cobra.Command{
		Use:   "market",
		Short: "Search historical sales",
		Long: "Search historical sales. Brand, model, year and condition match exactly; " +
			"mileage and price match within ±3000.",
		Run: runMarket,
	}

	cmd.Flags().String("brand", "", "Brand")
	cmd.Flags().String("model", "", "Model")
	cmd.Flags().Int("year", 0, "Model year")
	cmd.Flags().Int("condition", 0, "Condition score")
	cmd.Flags().Int("mileage", 0, "Mileage")
	cmd.Flags().Int("price", 0, "Sold price")
	cmd.Flags().String("id", "", "Fetch one sale by id (postgres source only)")

	RootCmd.AddCommand(cmd)
}

func runMarket(cmd *cobra.Command, args []string) {
	f := models.MarketFilter{}
	f.Brand, _ = cmd.Flags().GetString("brand")
	f.Model, _ = cmd.Flags().GetString("model")
	f.Year = intFlag(cmd, "year")
	f.ConditionScore = intFlag(cmd, "condition")
	f.Mileage = intFlag(cmd, "mileage")
	f.SoldPrice = intFlag(cmd, "price")

	id, _ := cmd.Flags().GetString("id")
	found, err := searchMarket(f, id)
	if err != nil {
		exitErr("search", err)
	}
	printJSON(found)
}

// searchMarket runs f against the selected source, or fetches one sale by id
// from Postgres when id is set.
func searchMarket(f models.MarketFilter, id string) (any, error) {
	if sourceFlag != "postgres" {
		records, err := loadCorpus()
		if err != nil {
			return nil, fmt.Errorf("load corpus: %w", err)
		}
		found := []models.CleanRecord{}
		for _, r := range records {
			if f.Matches(r) {
				found = append(found, r)
			}
		}
		return found, nil
	}

	pg, err := openPostgres()
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	defer pg.Close()

	if id != "" {
		saleID, err := uuid.Parse(id)
		if err != nil {
			return nil, fmt.Errorf("parse id: %w", err)
		}
		return pg.Get(saleID)
	}
	return pg.Search(f)
}

// intFlag returns nil for a flag the user did not set.
func intFlag(cmd *cobra.Command, name string) *int {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	v, _ := cmd.Flags().GetInt(name)
	return &v
}
