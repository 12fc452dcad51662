package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	PostgresEnabled  bool
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string
	MaxRetries       int

	RawCSVPath   string
	CleanCSVPath string

	ArtifactBackend string
	ArtifactDir     string
	SQLitePath      string

	NeighborCount  int
	TestFraction   float64
	SplitSeed      int64
	CVFolds        int
	MaxConcurrency int

	// RandomSeed seeds synthetic sale dates. 0 means seed from the clock.
	RandomSeed int64

	Debug bool
}

// Load reads the .env file and returns a populated Config struct.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	return &Config{
		PostgresEnabled:  getEnvBool("POSTGRES_ENABLED", false),
		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "valuation"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "valuation123"),
		PostgresDB:       getEnv("POSTGRES_DB", "car_market"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
		MaxRetries:       getEnvInt("MAX_RETRIES", 5),

		RawCSVPath:   getEnv("RAW_CSV_PATH", "./data/raw/cars_raw.csv"),
		CleanCSVPath: getEnv("CLEAN_CSV_PATH", "./data/cleaned/cars_cleaned.csv"),

		ArtifactBackend: getEnv("ARTIFACT_BACKEND", "file"),
		ArtifactDir:     getEnv("ARTIFACT_DIR", "./data/models"),
		SQLitePath:      getEnv("ARTIFACT_SQLITE_PATH", "./data/models/artifacts.db"),

		NeighborCount:  getEnvInt("KNN_NEIGHBORS", 5),
		TestFraction:   getEnvFloat("TEST_FRACTION", 0.2),
		SplitSeed:      int64(getEnvInt("SPLIT_SEED", 42)),
		CVFolds:        getEnvInt("CV_FOLDS", 5),
		MaxConcurrency: getEnvInt("MAX_CONCURRENCY", 4),

		RandomSeed: int64(getEnvInt("RANDOM_SEED", 0)),

		Debug: getEnvBool("DEBUG", false),
	}
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return "host=" + c.PostgresHost +
		" port=" + c.PostgresPort +
		" user=" + c.PostgresUser +
		" password=" + c.PostgresPassword +
		" dbname=" + c.PostgresDB +
		" sslmode=" + c.PostgresSSLMode
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if val := os.Getenv(key); val != "" {
		f, err := strconv.ParseFloat(val, 64)
		if err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		b, err := strconv.ParseBool(val)
		if err == nil {
			return b
		}
	}
	return fallback
}
