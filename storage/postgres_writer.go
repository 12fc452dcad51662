package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"car-valuation/models"
	"car-valuation/utils"
)

// ErrNotFound is returned when a market_data row does not exist.
var ErrNotFound = errors.New("not found")

// PostgresWriter persists the clean corpus to the market_data table.
type PostgresWriter struct {
	db *sql.DB
}

// NewPostgresWriter opens a connection to PostgreSQL, retrying the ping with
// back-off, runs schema migrations and returns a ready-to-use PostgresWriter.
func NewPostgresWriter(dsn string, retry utils.RetryConfig) (*PostgresWriter, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	if err := retry.Do("postgres ping", db.Ping); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: %w", err)
	}

	pw := &PostgresWriter{db: db}
	if err := pw.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}

	return pw, nil
}

func (pw *PostgresWriter) migrate() error {
	_, err := pw.db.Exec(`
		CREATE TABLE IF NOT EXISTS market_data (
			id              UUID          PRIMARY KEY,
			seq             BIGINT        NOT NULL,
			brand           TEXT          NOT NULL,
			model           TEXT          NOT NULL,
			year            INTEGER       NOT NULL,
			condition_score INTEGER       NOT NULL,
			mileage         INTEGER       NOT NULL,
			sold_price      NUMERIC(12,2) NOT NULL,
			sold_date       DATE          NOT NULL,
			created_at      TIMESTAMPTZ   NOT NULL DEFAULT NOW()
		);

		ALTER TABLE market_data ADD COLUMN IF NOT EXISTS seq BIGINT NOT NULL DEFAULT 0;

		CREATE INDEX IF NOT EXISTS idx_market_seq         ON market_data(seq);
		CREATE INDEX IF NOT EXISTS idx_market_brand_model ON market_data(brand, model);
		CREATE INDEX IF NOT EXISTS idx_market_year        ON market_data(year);
		CREATE INDEX IF NOT EXISTS idx_market_price       ON market_data(sold_price);
	`)
	return err
}

// WriteClean replaces the stored corpus with records, inserted in batches
// inside one transaction. Each row stores its position in records as seq.
func (pw *PostgresWriter) WriteClean(records []models.CleanRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := pw.db.Begin()
	if err != nil {
		return fmt.Errorf("postgres: begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM market_data"); err != nil {
		return fmt.Errorf("postgres: clear: %w", err)
	}

	const batchSize = 50
	for i := 0; i < len(records); i += batchSize {
		end := i + batchSize
		if end > len(records) {
			end = len(records)
		}
		query, args := insertBatchQuery(records[i:end], i)
		if _, err := tx.Exec(query, args...); err != nil {
			return fmt.Errorf("postgres: insert batch at %d: %w", i, err)
		}
	}
	return tx.Commit()
}

const marketColumns = 9

// insertBatchQuery numbers batch rows from offset so seq follows corpus order.
func insertBatchQuery(batch []models.CleanRecord, offset int) (string, []any) {
	valueStrings := make([]string, 0, len(batch))
	valueArgs := make([]any, 0, len(batch)*marketColumns)

	for idx, r := range batch {
		base := idx * marketColumns
		placeholders := make([]string, marketColumns)
		for c := range placeholders {
			placeholders[c] = fmt.Sprintf("$%d", base+c+1)
		}
		valueStrings = append(valueStrings, "("+strings.Join(placeholders, ",")+")")
		valueArgs = append(valueArgs,
			uuid.New(), offset+idx, r.Brand, r.Model, r.Year, r.ConditionScore, r.Mileage, r.SoldPrice, r.SoldDate)
	}

	query := fmt.Sprintf(`
		INSERT INTO market_data (id, seq, brand, model, year, condition_score, mileage, sold_price, sold_date)
		VALUES %s
	`, strings.Join(valueStrings, ","))
	return query, valueArgs
}

func (pw *PostgresWriter) Close() error {
	return pw.db.Close()
}

// FetchAll retrieves the stored corpus in insertion order.
func (pw *PostgresWriter) FetchAll() ([]models.CleanRecord, error) {
	found, err := pw.Search(models.MarketFilter{})
	if err != nil {
		return nil, err
	}
	records := make([]models.CleanRecord, len(found))
	for i, m := range found {
		records[i] = m.CleanRecord
	}
	return records, nil
}

const selectMarket = `
	SELECT id, brand, model, year, condition_score, mileage, sold_price, sold_date
	FROM market_data`

// Search returns the sales matching f in insertion order.
func (pw *PostgresWriter) Search(f models.MarketFilter) ([]models.MarketRecord, error) {
	query, args := searchQuery(f)
	rows, err := pw.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: search: %w", err)
	}
	defer rows.Close()

	var out []models.MarketRecord
	for rows.Next() {
		m, err := scanMarket(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// Get returns one sale by id.
func (pw *PostgresWriter) Get(id uuid.UUID) (*models.MarketRecord, error) {
	row := pw.db.QueryRow(selectMarket+" WHERE id = $1", id)
	m, err := scanMarket(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("postgres: sale %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMarket(s rowScanner) (models.MarketRecord, error) {
	var (
		m        models.MarketRecord
		id       uuid.UUID
		soldDate time.Time
	)
	err := s.Scan(&id, &m.Brand, &m.Model, &m.Year, &m.ConditionScore, &m.Mileage, &m.SoldPrice, &soldDate)
	if errors.Is(err, sql.ErrNoRows) {
		return m, err
	}
	if err != nil {
		return m, fmt.Errorf("postgres: scan row: %w", err)
	}
	m.ID = id.String()
	m.SoldDate = soldDate.UTC()
	return m, nil
}

func searchQuery(f models.MarketFilter) (string, []any) {
	where, args := searchClause(f)
	return selectMarket + where + " ORDER BY seq", args
}

// searchClause builds the WHERE clause for f with positional parameters.
func searchClause(f models.MarketFilter) (string, []any) {
	var conds []string
	var args []any
	add := func(cond string, vals ...any) {
		for _, v := range vals {
			args = append(args, v)
			cond = strings.Replace(cond, "?", fmt.Sprintf("$%d", len(args)), 1)
		}
		conds = append(conds, cond)
	}

	if f.Brand != "" {
		add("brand = ?", f.Brand)
	}
	if f.Model != "" {
		add("model = ?", f.Model)
	}
	if f.Year != nil {
		add("year = ?", *f.Year)
	}
	if f.ConditionScore != nil {
		add("condition_score = ?", *f.ConditionScore)
	}
	if f.Mileage != nil {
		lo, hi := models.Window(*f.Mileage)
		add("mileage BETWEEN ? AND ?", lo, hi)
	}
	if f.SoldPrice != nil {
		lo, hi := models.Window(*f.SoldPrice)
		add("sold_price BETWEEN ? AND ?", lo, hi)
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}
