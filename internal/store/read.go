package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/qnorm/internal/pipeline"
)

const selectColumns = `
	SELECT id, input_hash, passes, output_hash, input, output, query_type, seq, engine_version
	FROM normalizations
`

// Lookup returns the record for an input hash and pass list.
// The bool is false when no such record exists.
//
// Implements pipeline.Recorder.
func (s *Store) Lookup(ctx context.Context, inputHash, passes string) (pipeline.Record, bool, error) {
	row := s.db.QueryRowContext(ctx, selectColumns+`
		WHERE input_hash = ? AND passes = ?
	`, inputHash, passes)

	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return pipeline.Record{}, false, nil
	}
	if err != nil {
		return pipeline.Record{}, false, fmt.Errorf("lookup normalization: %w", err)
	}
	return rec, true, nil
}

// Read retrieves a single record by request ID.
// Returns sql.ErrNoRows if not found.
func (s *Store) Read(ctx context.Context, requestID string) (pipeline.Record, error) {
	row := s.db.QueryRowContext(ctx, selectColumns+`
		WHERE id = ?
	`, requestID)

	return scanRecord(row)
}

// List returns records in seq order. A limit of 0 or less returns all.
//
// Returns an empty slice (not nil) if the store is empty.
func (s *Store) List(ctx context.Context, limit int) ([]pipeline.Record, error) {
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}
	rows, err := s.db.QueryContext(ctx, selectColumns+`
		ORDER BY seq ASC, id COLLATE BINARY ASC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query normalizations: %w", err)
	}
	return collect(rows)
}

// Equivalent returns every record whose output hash is outputHash: the raw
// queries that normalize to the same canonical query. Ordered by seq.
func (s *Store) Equivalent(ctx context.Context, outputHash string) ([]pipeline.Record, error) {
	rows, err := s.db.QueryContext(ctx, selectColumns+`
		WHERE output_hash = ?
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`, outputHash)
	if err != nil {
		return nil, fmt.Errorf("query equivalent normalizations: %w", err)
	}
	return collect(rows)
}

// collect scans and closes rows.
func collect(rows *sql.Rows) ([]pipeline.Record, error) {
	defer rows.Close()

	records := []pipeline.Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate normalizations: %w", err)
	}
	return records, nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(sc scanner) (pipeline.Record, error) {
	var rec pipeline.Record
	var inputJSON, outputJSON string

	if err := sc.Scan(
		&rec.RequestID, &rec.InputHash, &rec.Passes, &rec.OutputHash,
		&inputJSON, &outputJSON, &rec.QueryType, &rec.Seq, &rec.EngineVersion,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return pipeline.Record{}, err
		}
		return pipeline.Record{}, fmt.Errorf("scan normalization: %w", err)
	}

	var err error
	if rec.Input, err = unmarshalTree(inputJSON); err != nil {
		return pipeline.Record{}, err
	}
	if rec.Output, err = unmarshalTree(outputJSON); err != nil {
		return pipeline.Record{}, err
	}
	return rec, nil
}
