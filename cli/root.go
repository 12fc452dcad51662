// Package cli implements the car-valuation commands.
package cli

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/spf13/cobra"

	"car-valuation/config"
	"car-valuation/models"
	"car-valuation/storage"
	"car-valuation/utils"
)

var (
	cfg    *config.Config
	logger *utils.Logger

	debugFlag   bool
	backendFlag string
	sourceFlag  string
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "car-valuation",
	Short: "Used vehicle price estimation from historical sales",
	Long: "Cleans raw sale exports, fits a distance-weighted nearest-neighbor model " +
		"over them and prices vehicles against the fitted bundle.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		cfg = config.Load()
		if backendFlag != "" {
			cfg.ArtifactBackend = backendFlag
		}
		if debugFlag {
			cfg.Debug = true
		}
		logger = utils.NewLogger()
		logger.SetDebug(cfg.Debug)
	},
	SilenceUsage: true,
}

func init() {
	RootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "Enable debug logging (default: $DEBUG)")
	RootCmd.PersistentFlags().StringVarP(&backendFlag, "backend", "b", "", "Artifact backend: file or sqlite (default: $ARTIFACT_BACKEND)")
	RootCmd.PersistentFlags().StringVarP(&sourceFlag, "source", "s", "csv", "Clean corpus source: csv or postgres")
}

// openArtifactStore opens the configured backend. Tests replace it.
var openArtifactStore = func() (storage.ArtifactStore, error) {
	switch cfg.ArtifactBackend {
	case "file":
		return storage.NewFileArtifactStore(cfg.ArtifactDir)
	case "sqlite":
		return storage.NewSQLiteArtifactStore(cfg.SQLitePath)
	default:
		return nil, fmt.Errorf("unknown artifact backend %q", cfg.ArtifactBackend)
	}
}

func openPostgres() (*storage.PostgresWriter, error) {
	return storage.NewPostgresWriter(cfg.DSN(), utils.RetryConfig{
		MaxAttempts: cfg.MaxRetries,
		BaseDelay:   time.Second,
		Logger:      logger,
	})
}

// loadCorpus reads the clean corpus from the selected source.
func loadCorpus() ([]models.CleanRecord, error) {
	var reader storage.CorpusReader
	switch sourceFlag {
	case "csv":
		reader = storage.NewCleanCSVReader(cfg.CleanCSVPath)
	case "postgres":
		pg, err := openPostgres()
		if err != nil {
			return nil, err
		}
		defer pg.Close()
		reader = pg
	default:
		return nil, fmt.Errorf("unknown corpus source %q", sourceFlag)
	}

	records, err := reader.FetchAll()
	if err != nil {
		return nil, err
	}
	logger.Info("[corpus] Loaded %d clean records from %s", len(records), sourceFlag)
	return records, nil
}

// loadBundle loads id, or the latest bundle when id is empty.
func loadBundle(cmd *cobra.Command, id string) (*models.ArtifactBundle, error) {
	store, err := openArtifactStore()
	if err != nil {
		return nil, err
	}
	defer store.Close()

	if id == "" {
		if id, err = store.Latest(cmd.Context()); err != nil {
			return nil, err
		}
	}
	b, err := store.Load(cmd.Context(), id)
	if err != nil {
		return nil, err
	}
	logger.Debug("[artifacts] Loaded bundle %s (%s backend)", b.ID, cfg.ArtifactBackend)
	return b, nil
}

func newRand(seed int64) *rand.Rand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}

func printJSON(v any) {
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}
