package cli

import (
	"github.com/spf13/cobra"

	"car-valuation/services"
)

func init() {
	cmd := &cobra.Command{
		Use:   "insights",
		Short: "Summarise the clean corpus",
		Run:   runInsights,
	}

	cmd.Flags().Bool("json", false, "Print the report as JSON")

	RootCmd.AddCommand(cmd)
}

func runInsights(cmd *cobra.Command, args []string) {
	asJSON, _ := cmd.Flags().GetBool("json")

	records, err := loadCorpus()
	if err != nil {
		exitErr("load corpus", err)
	}

	svc := services.NewInsightService(logger)
	report := svc.Generate(records)
	if asJSON {
		printJSON(report)
		return
	}
	svc.Print(report)
}
