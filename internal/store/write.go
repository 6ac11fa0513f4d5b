package store

import (
	"context"
	"fmt"

	"github.com/roach88/qnorm/internal/ir"
	"github.com/roach88/qnorm/internal/pipeline"
)

// Write inserts a processed query.
// Uses ON CONFLICT DO NOTHING for idempotency: a second record for the same
// input hash and pass list, or with the same request ID, is silently ignored.
// Other constraint violations (e.g., NOT NULL) still return errors.
//
// Implements pipeline.Recorder.
func (s *Store) Write(ctx context.Context, rec pipeline.Record) error {
	inputJSON, err := marshalTree(rec.Input)
	if err != nil {
		return fmt.Errorf("write normalization: marshal input: %w", err)
	}
	outputJSON, err := marshalTree(rec.Output)
	if err != nil {
		return fmt.Errorf("write normalization: marshal output: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO normalizations
		(id, input_hash, passes, output_hash, input, output, query_type, seq, engine_version, ir_version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`,
		rec.RequestID,
		rec.InputHash,
		rec.Passes,
		rec.OutputHash,
		inputJSON,
		outputJSON,
		rec.QueryType,
		rec.Seq,
		rec.EngineVersion,
		ir.IRVersion,
	)
	if err != nil {
		return fmt.Errorf("write normalization: %w", err)
	}

	return nil
}
