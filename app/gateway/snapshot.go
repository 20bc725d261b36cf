package gateway

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"

	"github.com/lysyi3m/folio-pulse/app/content"
)

var ErrNotInSnapshot = errors.New("kind not present in snapshot")

// Snapshot serves content collections from a local SQLite export. The
// dashboard only reads from it; Replace exists for importing an export.
type Snapshot struct {
	db *sql.DB
}

func OpenSnapshot(path string) (*Snapshot, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot: %w", err)
	}

	// A single connection keeps ":memory:" databases consistent across queries.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to snapshot: %w", err)
	}

	version, dirty, err := runMigrations(db)
	if err != nil {
		db.Close()
		return nil, err
	}

	slog.Debug("Snapshot ready", "path", path, "version", version, "dirty", dirty)
	return &Snapshot{db: db}, nil
}

func (s *Snapshot) Close() error {
	return s.db.Close()
}

func (s *Snapshot) Fetch(ctx context.Context, kind content.Kind) ([]content.Record, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT record_count FROM snapshot_meta WHERE kind = ?`, string(kind)).Scan(&count)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotInSnapshot, kind)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot metadata: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT payload FROM records WHERE kind = ? ORDER BY position`, string(kind))
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	records := make([]content.Record, 0, count)
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}

		dec := json.NewDecoder(bytes.NewReader([]byte(payload)))
		dec.UseNumber()
		var record content.Record
		if err := dec.Decode(&record); err != nil {
			return nil, fmt.Errorf("failed to decode record: %w", err)
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate records: %w", err)
	}

	return records, nil
}

// Replace swaps the stored collection for kind with records, in order.
func (s *Snapshot) Replace(ctx context.Context, kind content.Kind, records []content.Record) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM records WHERE kind = ?`, string(kind)); err != nil {
		return fmt.Errorf("failed to clear records: %w", err)
	}

	for i, record := range records {
		payload, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("failed to encode record %d: %w", i, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO records (kind, position, payload) VALUES (?, ?, ?)`,
			string(kind), i, string(payload)); err != nil {
			return fmt.Errorf("failed to insert record %d: %w", i, err)
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO snapshot_meta (kind, record_count, replaced_at) VALUES (?, ?, ?)
		ON CONFLICT (kind) DO UPDATE SET
			record_count = excluded.record_count,
			replaced_at = excluded.replaced_at
	`, string(kind), len(records), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to update snapshot metadata: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit snapshot: %w", err)
	}

	slog.Info("Snapshot collection replaced", "kind", kind, "count", len(records))
	return nil
}

// Import loads a JSON export shaped like {"projects": [...], "blogs": [...]}.
// Keys are parsed as kinds; unknown keys are rejected.
func (s *Snapshot) Import(ctx context.Context, data []byte) error {
	var export map[string]json.RawMessage
	if err := json.Unmarshal(data, &export); err != nil {
		return fmt.Errorf("failed to parse export: %w", err)
	}

	for key, raw := range export {
		kind, err := content.ParseKind(key)
		if err != nil {
			return err
		}
		records, err := decodeRecords(raw)
		if err != nil {
			return fmt.Errorf("failed to parse %s export: %w", kind, err)
		}
		if err := s.Replace(ctx, kind, records); err != nil {
			return err
		}
	}

	return nil
}
