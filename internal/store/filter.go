package store

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-bexpr"

	"github.com/roach88/qnorm/internal/pipeline"
)

// Filter returns the records matching a boolean expression, in seq order.
//
// Selectors: request_id, input_hash, output_hash, passes, query_type, seq,
// engine_version. Examples:
//
//	query_type == "native"
//	seq > 100 and passes == "normalize/strict"
//	output_hash matches "^ab12"
func (s *Store) Filter(ctx context.Context, expr string) ([]pipeline.Record, error) {
	eval, err := bexpr.CreateEvaluator(expr)
	if err != nil {
		return nil, fmt.Errorf("error parsing expression '%s': %w", expr, err)
	}

	all, err := s.List(ctx, 0)
	if err != nil {
		return nil, err
	}

	matched := []pipeline.Record{}
	for _, rec := range all {
		ok, err := eval.Evaluate(filterVars(rec))
		if err != nil {
			return nil, fmt.Errorf("error evaluating expression '%s' on %s: %w", expr, rec.RequestID, err)
		}
		if ok {
			matched = append(matched, rec)
		}
	}
	return matched, nil
}

// filterVars exposes the selectable columns of a record.
func filterVars(rec pipeline.Record) map[string]any {
	return map[string]any{
		"request_id":     rec.RequestID,
		"input_hash":     rec.InputHash,
		"output_hash":    rec.OutputHash,
		"passes":         rec.Passes,
		"query_type":     rec.QueryType,
		"seq":            rec.Seq,
		"engine_version": rec.EngineVersion,
	}
}
