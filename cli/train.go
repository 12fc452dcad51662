package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"car-valuation/models"
	"car-valuation/services"
)

func init() {
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Fit the valuation model on the clean corpus and save the bundle",
		Run:   runTrain,
	}

	cmd.Flags().Int("k", 0, "Neighbor count (default: $KNN_NEIGHBORS)")
	cmd.Flags().Float64("test-fraction", 0, "Held-out fraction (default: $TEST_FRACTION)")
	cmd.Flags().Int64("split-seed", 0, "Shuffle seed for the split (default: $SPLIT_SEED)")
	cmd.Flags().Int("folds", 0, "Cross-validation folds (default: $CV_FOLDS)")

	RootCmd.AddCommand(cmd)
}

type trainResult struct {
	BundleID string          `json:"bundle_id"`
	Backend  string          `json:"backend"`
	Metrics  *models.Metrics `json:"metrics"`
}

func runTrain(cmd *cobra.Command, args []string) {
	opts := services.TrainOptions{
		K:              cfg.NeighborCount,
		TestFraction:   cfg.TestFraction,
		Seed:           cfg.SplitSeed,
		CVFolds:        cfg.CVFolds,
		MaxConcurrency: cfg.MaxConcurrency,
	}
	if k, _ := cmd.Flags().GetInt("k"); k != 0 {
		opts.K = k
	}
	if f, _ := cmd.Flags().GetFloat64("test-fraction"); f != 0 {
		opts.TestFraction = f
	}
	if cmd.Flags().Changed("split-seed") {
		opts.Seed, _ = cmd.Flags().GetInt64("split-seed")
	}
	if folds, _ := cmd.Flags().GetInt("folds"); folds != 0 {
		opts.CVFolds = folds
	}

	records, err := loadCorpus()
	if err != nil {
		exitErr("load corpus", err)
	}

	bundle, err := services.NewTrainer(logger, opts).Train(records)
	if err != nil {
		exitErr("train", err)
	}

	id, err := saveBundle(cmd.Context(), bundle)
	if err != nil {
		exitErr("save bundle", err)
	}
	logger.Info("[train] Saved bundle %s", id)

	printJSON(trainResult{BundleID: id, Backend: cfg.ArtifactBackend, Metrics: bundle.Metrics})
}

// saveBundle writes b to the configured store and closes it on every path.
func saveBundle(ctx context.Context, b *models.ArtifactBundle) (string, error) {
	store, err := openArtifactStore()
	if err != nil {
		return "", fmt.Errorf("open artifact store: %w", err)
	}
	defer store.Close()

	return store.Save(ctx, b)
}
