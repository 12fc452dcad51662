package cli

import (
	"github.com/spf13/cobra"

	"car-valuation/models"
	"car-valuation/services"
)

func init() {
	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Estimate the sale price of a vehicle",
		Run:   runPredict,
	}

	cmd.Flags().String("brand", "", "Brand (required)")
	cmd.Flags().String("model", "", "Model (required)")
	cmd.Flags().Int("year", 0, "Model year (required)")
	cmd.Flags().Int("mileage", 0, "Odometer reading in miles")
	cmd.Flags().Int("condition", 5, "Condition score 1-10")
	cmd.Flags().String("bundle", "", "Bundle ID (default: latest)")

	cmd.MarkFlagRequired("brand")
	cmd.MarkFlagRequired("model")
	cmd.MarkFlagRequired("year")

	RootCmd.AddCommand(cmd)
}

func runPredict(cmd *cobra.Command, args []string) {
	req := models.ValuationRequest{}
	req.Brand, _ = cmd.Flags().GetString("brand")
	req.Model, _ = cmd.Flags().GetString("model")
	req.Year, _ = cmd.Flags().GetInt("year")
	req.Mileage, _ = cmd.Flags().GetInt("mileage")
	req.ConditionScore, _ = cmd.Flags().GetInt("condition")
	bundleID, _ := cmd.Flags().GetString("bundle")

	bundle, err := loadBundle(cmd, bundleID)
	if err != nil {
		exitErr("load bundle", err)
	}

	valuator, err := services.NewValuator(bundle, logger)
	if err != nil {
		exitErr("load valuator", err)
	}

	resp, err := valuator.Estimate(req)
	if err != nil {
		exitErr("predict", err)
	}
	printJSON(resp)
}
