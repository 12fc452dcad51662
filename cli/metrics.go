package cli

import (
	"time"

	"github.com/spf13/cobra"

	"car-valuation/models"
)

func init() {
	cmd := &cobra.Command{
		Use:   "metrics",
		Short: "Show the training metrics of a saved bundle",
		Run:   runMetrics,
	}

	cmd.Flags().String("bundle", "", "Bundle ID (default: latest)")

	RootCmd.AddCommand(cmd)
}

type metricsResult struct {
	BundleID      string          `json:"bundle_id"`
	SchemaVersion int             `json:"schema_version"`
	CreatedAt     time.Time       `json:"created_at"`
	Brands        int             `json:"brands"`
	Models        int             `json:"models"`
	IndexSize     int             `json:"index_size"`
	Metrics       *models.Metrics `json:"metrics"`
}

func runMetrics(cmd *cobra.Command, args []string) {
	bundleID, _ := cmd.Flags().GetString("bundle")

	b, err := loadBundle(cmd, bundleID)
	if err != nil {
		exitErr("load bundle", err)
	}

	printJSON(metricsResult{
		BundleID:      b.ID,
		SchemaVersion: b.SchemaVersion,
		CreatedAt:     b.CreatedAt,
		Brands:        len(b.Brands.Labels),
		Models:        len(b.Models.Labels),
		IndexSize:     b.Index.Len(),
		Metrics:       b.Metrics,
	})
}
