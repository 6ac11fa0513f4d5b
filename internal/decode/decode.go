package decode

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"

	"github.com/roach88/qnorm/internal/ir"
)

// Format names a query document format.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatCUE  Format = "cue"
)

// ParseFormat accepts a format name as given on a command line.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "cue":
		return FormatCUE, nil
	default:
		return "", fmt.Errorf("unknown format %q (supported: json, yaml, cue)", s)
	}
}

// FormatFromPath picks a format from a file extension.
func FormatFromPath(path string) (Format, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, true
	case ".yaml", ".yml":
		return FormatYAML, true
	case ".cue":
		return FormatCUE, true
	default:
		return "", false
	}
}

// File reads and decodes the query document at path.
func File(path string) (ir.IRValue, error) {
	format, ok := FormatFromPath(path)
	if !ok {
		return nil, fmt.Errorf("%s: unsupported file extension %q", path, filepath.Ext(path))
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Bytes(data, format, path)
}

// Bytes decodes data in the given format. name is used in CUE positions.
func Bytes(data []byte, format Format, name string) (ir.IRValue, error) {
	switch format {
	case FormatJSON:
		return JSON(data)
	case FormatYAML:
		return YAML(data)
	case FormatCUE:
		return CUE(data, name)
	default:
		return nil, fmt.Errorf("unknown format %q", format)
	}
}

// JSON decodes a single JSON document.
func JSON(data []byte) (ir.IRValue, error) {
	v, err := ir.UnmarshalIRValue(data)
	if err != nil {
		de := &Error{Format: FormatJSON, Message: err.Error()}
		var syntaxErr *json.SyntaxError
		if errors.As(err, &syntaxErr) {
			de.Line = lineAt(data, syntaxErr.Offset)
		}
		return nil, de
	}
	return v, nil
}

// lineAt returns the 1-based line of a byte offset.
func lineAt(data []byte, offset int64) int {
	if offset > int64(len(data)) {
		offset = int64(len(data))
	}
	return bytes.Count(data[:offset], []byte{'\n'}) + 1
}

// YAML decodes a single YAML document. An empty document decodes to null.
func YAML(data []byte) (ir.IRValue, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &Error{Format: FormatYAML, Message: err.Error()}
	}
	return FromYAMLNode(&doc)
}

// FromYAMLNode converts a parsed YAML node. Scenario files use it to
// decode queries embedded in a larger document.
func FromYAMLNode(n *yaml.Node) (ir.IRValue, error) {
	switch n.Kind {
	case 0:
		return ir.IRNull{}, nil
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return ir.IRNull{}, nil
		}
		return FromYAMLNode(n.Content[0])
	case yaml.AliasNode:
		return FromYAMLNode(n.Alias)
	case yaml.SequenceNode:
		arr := make(ir.IRArray, len(n.Content))
		for i, child := range n.Content {
			v, err := FromYAMLNode(child)
			if err != nil {
				return nil, err
			}
			arr[i] = v
		}
		return arr, nil
	case yaml.MappingNode:
		obj := make(ir.IRObject, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			keyNode, valNode := n.Content[i], n.Content[i+1]
			if keyNode.Kind != yaml.ScalarNode {
				return nil, yamlError(keyNode, "mapping keys must be scalars")
			}
			if _, dup := obj[keyNode.Value]; dup {
				return nil, yamlError(keyNode, fmt.Sprintf("duplicate key %q", keyNode.Value))
			}
			v, err := FromYAMLNode(valNode)
			if err != nil {
				return nil, err
			}
			obj[keyNode.Value] = v
		}
		return obj, nil
	case yaml.ScalarNode:
		return yamlScalar(n)
	default:
		return nil, yamlError(n, fmt.Sprintf("unsupported node kind %d", n.Kind))
	}
}

func yamlScalar(n *yaml.Node) (ir.IRValue, error) {
	switch n.ShortTag() {
	case "!!null":
		return ir.IRNull{}, nil
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err != nil {
			return nil, yamlError(n, err.Error())
		}
		return ir.IRBool(b), nil
	case "!!int":
		var i int64
		if err := n.Decode(&i); err != nil {
			return nil, yamlError(n, err.Error())
		}
		return ir.IRInt(i), nil
	case "!!float":
		var f float64
		if err := n.Decode(&f); err != nil {
			return nil, yamlError(n, err.Error())
		}
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, yamlError(n, "NaN and Inf are not supported")
		}
		return ir.IRFloat(f), nil
	case "!!timestamp":
		var t time.Time
		if err := n.Decode(&t); err != nil {
			return nil, yamlError(n, err.Error())
		}
		return ir.NewIRTimestamp(t), nil
	default:
		return ir.IRString(n.Value), nil
	}
}

func yamlError(n *yaml.Node, msg string) *Error {
	return &Error{Format: FormatYAML, Message: msg, Line: n.Line}
}

// CUE evaluates a CUE document and decodes its value. The value must be
// concrete: open constraints such as `int` or `string` are rejected.
func CUE(data []byte, filename string) (ir.IRValue, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(data, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, cueError(err)
	}
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, cueError(err)
	}

	js, err := v.MarshalJSON()
	if err != nil {
		return nil, cueError(err)
	}
	out, err := ir.UnmarshalIRValue(js)
	if err != nil {
		return nil, &Error{Format: FormatCUE, Message: err.Error()}
	}
	return out, nil
}
