package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"car-valuation/models"
	"car-valuation/services"
	"car-valuation/storage"
)

func init() {
	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Normalize a raw sales export into the clean corpus",
		Run:   runClean,
	}

	cmd.Flags().StringP("input", "i", "", "Raw CSV export (default: $RAW_CSV_PATH)")
	cmd.Flags().StringP("output", "o", "", "Clean CSV output (default: $CLEAN_CSV_PATH)")
	cmd.Flags().Int64("seed", 0, "Seed for synthetic sale dates (default: $RANDOM_SEED, 0 = clock)")
	cmd.Flags().Bool("postgres", false, "Also replace the market_data table (default: $POSTGRES_ENABLED)")

	RootCmd.AddCommand(cmd)
}

func runClean(cmd *cobra.Command, args []string) {
	input, _ := cmd.Flags().GetString("input")
	output, _ := cmd.Flags().GetString("output")
	seed, _ := cmd.Flags().GetInt64("seed")
	toPostgres, _ := cmd.Flags().GetBool("postgres")
	if input == "" {
		input = cfg.RawCSVPath
	}
	if output == "" {
		output = cfg.CleanCSVPath
	}
	if seed == 0 {
		seed = cfg.RandomSeed
	}

	raw, err := storage.ReadRawCSV(input)
	if err != nil {
		exitErr("read raw corpus", err)
	}
	logger.Info("[clean] Read %d raw rows from %s", len(raw), input)

	normalizer := services.NewNormalizer(logger, newRand(seed))
	records, report := normalizer.Normalize(raw)
	if len(records) == 0 {
		logger.Error("[clean] All rows were dropped during normalization")
		printJSON(report)
		return
	}

	sinks := []storage.CorpusWriter{}
	csvWriter, err := storage.NewCSVWriter(output)
	if err != nil {
		exitErr("create clean csv", err)
	}
	sinks = append(sinks, csvWriter)

	if toPostgres || cfg.PostgresEnabled {
		pg, err := openPostgres()
		if err != nil {
			logger.Error("[clean] PostgreSQL unavailable: %v", err)
		} else {
			sinks = append(sinks, pg)
		}
	}

	if err := writeSinks(sinks, records); err != nil {
		exitErr("write clean corpus", err)
	}
	logger.Info("[clean] Wrote %d clean records to %s", len(records), output)

	printJSON(report)
}

// writeSinks writes records to every sink and closes all of them, even after
// a failed write.
func writeSinks(sinks []storage.CorpusWriter, records []models.CleanRecord) error {
	var errs []error
	for _, sink := range sinks {
		if len(errs) == 0 {
			if err := sink.WriteClean(records); err != nil {
				errs = append(errs, err)
			}
		}
		if err := sink.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close: %w", err))
		}
	}
	return errors.Join(errs...)
}
