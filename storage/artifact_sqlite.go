package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"car-valuation/models"
)

// SQLiteArtifactStore keeps bundles in a single SQLite file. The manifest and
// every part of a bundle are written in one transaction.
type SQLiteArtifactStore struct {
	db  *sqlx.DB
	ids *idSource
}

type bundleRow struct {
	ID            string `db:"id"`
	SchemaVersion int    `db:"schema_version"`
	CreatedAt     string `db:"created_at"`
}

type partRow struct {
	Part string `db:"part"`
	Data string `db:"data"`
}

func NewSQLiteArtifactStore(dbPath string) (*SQLiteArtifactStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sqlx.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=foreign_keys(on)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	s := &SQLiteArtifactStore{db: db, ids: newIDSource()}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *SQLiteArtifactStore) migrate() error {
	_, err := s.db.Exec(`
	CREATE TABLE IF NOT EXISTS bundles (
		id             TEXT PRIMARY KEY,
		schema_version INTEGER NOT NULL,
		created_at     TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS bundle_parts (
		bundle_id      TEXT NOT NULL REFERENCES bundles(id) ON DELETE CASCADE,
		part           TEXT NOT NULL,
		schema_version INTEGER NOT NULL,
		data           TEXT NOT NULL,
		PRIMARY KEY (bundle_id, part)
	);
	`)
	return err
}

func (s *SQLiteArtifactStore) Save(ctx context.Context, b *models.ArtifactBundle) (string, error) {
	if err := prepareBundle(b, s.ids); err != nil {
		return "", err
	}
	parts, err := encodeParts(b)
	if err != nil {
		return "", err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO bundles (id, schema_version, created_at) VALUES (?, ?, ?)`,
		b.ID, b.SchemaVersion, b.CreatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return "", fmt.Errorf("insert bundle %s: %w", b.ID, err)
	}
	for _, name := range requiredParts {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO bundle_parts (bundle_id, part, schema_version, data) VALUES (?, ?, ?, ?)`,
			b.ID, name, b.SchemaVersion, string(parts[name]))
		if err != nil {
			return "", fmt.Errorf("insert %s part: %w", name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}
	return b.ID, nil
}

func (s *SQLiteArtifactStore) Load(ctx context.Context, location string) (*models.ArtifactBundle, error) {
	var row bundleRow
	err := s.db.GetContext(ctx, &row,
		`SELECT id, schema_version, created_at FROM bundles WHERE id = ?`, location)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("bundle %s not found: %w", location, models.ErrMissingArtifact)
	}
	if err != nil {
		return nil, fmt.Errorf("load bundle %s: %w", location, err)
	}

	m := manifest{ID: row.ID, SchemaVersion: row.SchemaVersion}
	if m.CreatedAt, err = time.Parse(time.RFC3339Nano, row.CreatedAt); err != nil {
		return nil, fmt.Errorf("bundle %s created_at: %w", location, err)
	}
	if err := checkManifest(m, location); err != nil {
		return nil, err
	}

	var parts []partRow
	if err := s.db.SelectContext(ctx, &parts,
		`SELECT part, data FROM bundle_parts WHERE bundle_id = ?`, location); err != nil {
		return nil, fmt.Errorf("load parts of %s: %w", location, err)
	}

	raw := make(map[string][]byte, len(parts))
	for _, p := range parts {
		raw[p.Part] = []byte(p.Data)
	}
	return decodeParts(m, raw)
}

// Latest relies on ULIDs sorting by creation time.
func (s *SQLiteArtifactStore) Latest(ctx context.Context) (string, error) {
	var id string
	err := s.db.GetContext(ctx, &id, `SELECT id FROM bundles ORDER BY id DESC LIMIT 1`)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("no bundle saved: %w", models.ErrMissingArtifact)
	}
	if err != nil {
		return "", fmt.Errorf("latest bundle: %w", err)
	}
	return id, nil
}

func (s *SQLiteArtifactStore) Close() error {
	return s.db.Close()
}
