package ir

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"
)

// Kind tags used by the tagged encoding.
const (
	tagNull      = "n"
	tagBool      = "b"
	tagInt       = "i"
	tagFloat     = "f"
	tagString    = "s"
	tagToken     = "t"
	tagTimestamp = "ts"
	tagArray     = "a"
	tagObject    = "o"
)

// MarshalTagged encodes v so that every node keeps its kind: each node is a
// JSON array [kind, payload]. Unlike MarshalCanonical, IRInt(10) and
// IRFloat(10) differ, as do IRString and IRToken with the same text, and
// timestamps stay timestamps. Strings are written as given, without NFC.
//
// The output is deterministic (object entries in SortedKeys order), so it
// doubles as the preimage of MemoHash. UnmarshalTagged reverses it exactly.
func MarshalTagged(v IRValue) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeTagged(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeTagged(buf *bytes.Buffer, v IRValue) error {
	switch val := v.(type) {
	case nil, IRNull:
		buf.WriteString(`["n"]`)
	case IRBool:
		if val {
			buf.WriteString(`["b",true]`)
		} else {
			buf.WriteString(`["b",false]`)
		}
	case IRInt:
		writeTaggedScalar(buf, tagInt, strconv.FormatInt(int64(val), 10))
	case IRFloat:
		f := float64(val)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("NaN and Inf are not representable in tagged JSON")
		}
		writeTaggedScalar(buf, tagFloat, strconv.FormatFloat(f, 'g', -1, 64))
	case IRString:
		writeTaggedScalar(buf, tagString, string(val))
	case IRToken:
		writeTaggedScalar(buf, tagToken, string(val))
	case IRTimestamp:
		writeTaggedScalar(buf, tagTimestamp, val.Time.UTC().Format(time.RFC3339Nano))
	case IRArray:
		buf.WriteString(`["a",[`)
		for i, elem := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeTagged(buf, elem); err != nil {
				return fmt.Errorf("array[%d]: %w", i, err)
			}
		}
		buf.WriteString(`]]`)
	case IRObject:
		buf.WriteString(`["o",[`)
		for i, k := range val.SortedKeys() {
			if i > 0 {
				buf.WriteByte(',')
			}
			buf.WriteByte('[')
			writeJSONString(buf, k)
			buf.WriteByte(',')
			if err := writeTagged(buf, val[k]); err != nil {
				return fmt.Errorf("value for key %q: %w", k, err)
			}
			buf.WriteByte(']')
		}
		buf.WriteString(`]]`)
	default:
		return fmt.Errorf("unsupported type for tagged JSON: %T", v)
	}
	return nil
}

func writeTaggedScalar(buf *bytes.Buffer, tag, payload string) {
	buf.WriteString(`["`)
	buf.WriteString(tag)
	buf.WriteString(`",`)
	writeJSONString(buf, payload)
	buf.WriteByte(']')
}

// writeJSONString writes s as a JSON string without HTML escaping.
func writeJSONString(buf *bytes.Buffer, s string) {
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(s) // encoding a string cannot fail
	buf.Write(bytes.TrimSuffix(tmp.Bytes(), []byte{'\n'}))
}

// UnmarshalTagged decodes the output of MarshalTagged.
func UnmarshalTagged(data []byte) (IRValue, error) {
	var node []json.RawMessage
	if err := json.Unmarshal(data, &node); err != nil {
		return nil, fmt.Errorf("tagged node: %w", err)
	}
	if len(node) == 0 {
		return nil, fmt.Errorf("tagged node: empty")
	}
	var tag string
	if err := json.Unmarshal(node[0], &tag); err != nil {
		return nil, fmt.Errorf("tagged node kind: %w", err)
	}

	if tag == tagNull {
		if len(node) != 1 {
			return nil, fmt.Errorf("tagged null: unexpected payload")
		}
		return IRNull{}, nil
	}
	if len(node) != 2 {
		return nil, fmt.Errorf("tagged %s: want [kind, payload], got %d elements", tag, len(node))
	}
	payload := node[1]

	switch tag {
	case tagBool:
		var b bool
		if err := json.Unmarshal(payload, &b); err != nil {
			return nil, fmt.Errorf("tagged bool: %w", err)
		}
		return IRBool(b), nil
	case tagArray:
		var elems []json.RawMessage
		if err := json.Unmarshal(payload, &elems); err != nil {
			return nil, fmt.Errorf("tagged array: %w", err)
		}
		arr := make(IRArray, len(elems))
		for i, raw := range elems {
			elem, err := UnmarshalTagged(raw)
			if err != nil {
				return nil, fmt.Errorf("array[%d]: %w", i, err)
			}
			arr[i] = elem
		}
		return arr, nil
	case tagObject:
		var entries [][2]json.RawMessage
		if err := json.Unmarshal(payload, &entries); err != nil {
			return nil, fmt.Errorf("tagged object: %w", err)
		}
		obj := make(IRObject, len(entries))
		for _, entry := range entries {
			var key string
			if err := json.Unmarshal(entry[0], &key); err != nil {
				return nil, fmt.Errorf("tagged object key: %w", err)
			}
			if _, dup := obj[key]; dup {
				return nil, fmt.Errorf("tagged object: duplicate key %q", key)
			}
			elem, err := UnmarshalTagged(entry[1])
			if err != nil {
				return nil, fmt.Errorf("value for key %q: %w", key, err)
			}
			obj[key] = elem
		}
		return obj, nil
	}

	var s string
	if err := json.Unmarshal(payload, &s); err != nil {
		return nil, fmt.Errorf("tagged %s: %w", tag, err)
	}
	switch tag {
	case tagInt:
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("tagged int: %w", err)
		}
		return IRInt(n), nil
	case tagFloat:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("tagged float: %w", err)
		}
		return IRFloat(f), nil
	case tagString:
		return IRString(s), nil
	case tagToken:
		return IRToken(s), nil
	case tagTimestamp:
		t, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return nil, fmt.Errorf("tagged timestamp: %w", err)
		}
		return NewIRTimestamp(t), nil
	default:
		return nil, fmt.Errorf("unknown tagged kind %q", tag)
	}
}
