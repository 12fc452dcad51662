package storage

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"car-valuation/models"
)

const soldDateLayout = "2006-01-02"

// CleanColumns is the exact header of the clean corpus file.
var CleanColumns = []string{"Brand", "Model", "Year", "Mileage", "ConditionScore", "SoldPrice", "SoldDate"}

// ReadRawCSV loads every row of a raw export as a RawRecord keyed by the
// header. Cells stay strings; blank cells are left out so they read as
// missing.
func ReadRawCSV(path string) ([]models.RawRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("csv: open %q: %w", path, err)
	}
	defer f.Close()
	return parseRawCSV(f)
}

func parseRawCSV(r io.Reader) ([]models.RawRecord, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("csv: read header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
	}

	var records []models.RawRecord
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csv: read row %d: %w", len(records)+2, err)
		}
		rec := make(models.RawRecord, len(header))
		for i, col := range header {
			if i >= len(row) || col == "" {
				continue
			}
			if v := strings.TrimSpace(row[i]); v != "" {
				rec[col] = v
			}
		}
		records = append(records, rec)
	}
	return records, nil
}

// CSVWriter writes the clean corpus to a CSV file.
// It is safe for concurrent use.
type CSVWriter struct {
	mu     sync.Mutex
	file   *os.File
	writer *csv.Writer
}

// NewCSVWriter creates (or truncates) the CSV file at the given path and
// writes the header row. Intermediate directories are created automatically.
func NewCSVWriter(path string) (*CSVWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("csv: create output dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("csv: create file %q: %w", path, err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(CleanColumns); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("csv: write header: %w", err)
	}
	w.Flush()

	return &CSVWriter{file: f, writer: w}, nil
}

// WriteClean appends one row per record.
func (c *CSVWriter) WriteClean(records []models.CleanRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, r := range records {
		row := []string{
			r.Brand,
			r.Model,
			strconv.Itoa(r.Year),
			strconv.Itoa(r.Mileage),
			strconv.Itoa(r.ConditionScore),
			strconv.FormatFloat(r.SoldPrice, 'f', -1, 64),
			r.SoldDate.Format(soldDateLayout),
		}
		if err := c.writer.Write(row); err != nil {
			return fmt.Errorf("csv: write row: %w", err)
		}
	}

	c.writer.Flush()
	return c.writer.Error()
}

// Close flushes and closes the underlying file.
func (c *CSVWriter) Close() error {
	c.writer.Flush()
	return c.file.Close()
}

// CleanCSVReader reads a corpus previously written by CSVWriter.
type CleanCSVReader struct {
	path string
}

func NewCleanCSVReader(path string) *CleanCSVReader {
	return &CleanCSVReader{path: path}
}

func (c *CleanCSVReader) FetchAll() ([]models.CleanRecord, error) {
	return ReadCleanCSV(c.path)
}

// ReadCleanCSV loads a clean corpus file. Unlike raw ingestion it is strict:
// the header must match CleanColumns and every cell must parse.
func ReadCleanCSV(path string) ([]models.CleanRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("csv: open %q: %w", path, err)
	}
	defer f.Close()
	return parseCleanCSV(f)
}

func parseCleanCSV(r io.Reader) ([]models.CleanRecord, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = len(CleanColumns)

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("csv: read header: %w", err)
	}
	for i, col := range CleanColumns {
		if strings.TrimSpace(header[i]) != col {
			return nil, fmt.Errorf("csv: column %d is %q, want %q", i+1, header[i], col)
		}
	}

	var records []models.CleanRecord
	for line := 2; ; line++ {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csv: read line %d: %w", line, err)
		}
		rec, err := parseCleanRow(row)
		if err != nil {
			return nil, fmt.Errorf("csv: line %d: %w", line, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

func parseCleanRow(row []string) (models.CleanRecord, error) {
	var rec models.CleanRecord
	var err error

	rec.Brand = row[0]
	rec.Model = row[1]
	if rec.Year, err = strconv.Atoi(row[2]); err != nil {
		return rec, fmt.Errorf("year: %w", err)
	}
	if rec.Mileage, err = strconv.Atoi(row[3]); err != nil {
		return rec, fmt.Errorf("mileage: %w", err)
	}
	if rec.ConditionScore, err = strconv.Atoi(row[4]); err != nil {
		return rec, fmt.Errorf("condition score: %w", err)
	}
	if rec.SoldPrice, err = strconv.ParseFloat(row[5], 64); err != nil {
		return rec, fmt.Errorf("sold price: %w", err)
	}
	if rec.SoldDate, err = time.Parse(soldDateLayout, row[6]); err != nil {
		return rec, fmt.Errorf("sold date: %w", err)
	}
	return rec, nil
}
