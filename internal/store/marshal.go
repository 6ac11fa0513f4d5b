package store

import (
	"fmt"

	"github.com/roach88/qnorm/internal/ir"
)

// marshalTree converts a query tree to tagged JSON TEXT for storage. The
// tagged form keeps tokens, decimals and timestamps, so a tree read back is
// ir.Equal to the one written.
func marshalTree(v ir.IRValue) (string, error) {
	data, err := ir.MarshalTagged(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// unmarshalTree parses a stored tagged tree.
func unmarshalTree(data string) (ir.IRValue, error) {
	v, err := ir.UnmarshalTagged([]byte(data))
	if err != nil {
		return nil, fmt.Errorf("unmarshal stored tree: %w", err)
	}
	return v, nil
}
