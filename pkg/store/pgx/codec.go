package pgx

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"

	"github.com/kgtext/backend/pkg/store"
)

// encodeProperties renders a sanitized property bag as a jsonb literal.
// JSON has no representation for NaN or infinities so those are dropped.
func encodeProperties(props map[string]any) (string, error) {
	clean := make(map[string]any, len(props))
	for k, v := range props {
		switch f := v.(type) {
		case float64:
			if math.IsNaN(f) || math.IsInf(f, 0) {
				continue
			}
		case float32:
			if math.IsNaN(float64(f)) || math.IsInf(float64(f), 0) {
				continue
			}
		}
		clean[k] = v
	}
	data, err := json.Marshal(clean)
	if err != nil {
		return "", fmt.Errorf("failed to encode properties: %w", err)
	}
	return string(data), nil
}

// decodeProperties parses a jsonb value back into primitives. Whole numbers
// that fit come back as int64, everything else numeric as float64. Nested
// values cannot be written, but are skipped if present.
func decodeProperties(data []byte) (map[string]any, error) {
	out := make(map[string]any)
	if len(data) == 0 {
		return out, nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode properties: %w", err)
	}

	for k, v := range raw {
		switch val := v.(type) {
		case json.Number:
			if i, err := val.Int64(); err == nil {
				out[k] = i
				continue
			}
			f, err := val.Float64()
			if err != nil {
				return nil, fmt.Errorf("failed to decode property %q: %w", k, err)
			}
			out[k] = f
		case string, bool:
			out[k] = val
		}
	}
	return out, nil
}

type joinRow struct {
	nodeID      string
	nodeType    string
	nodeProps   []byte
	edgeType    *string
	edgeProps   []byte
	targetID    *string
	targetType  *string
	targetProps []byte
}

func (j joinRow) toRow() (store.Row, error) {
	props, err := decodeProperties(j.nodeProps)
	if err != nil {
		return store.Row{}, err
	}
	row := store.Row{Node: store.NodeRow{ID: j.nodeID, Type: j.nodeType, Properties: props}}

	if j.edgeType == nil || j.targetID == nil {
		return row, nil
	}

	edgeProps, err := decodeProperties(j.edgeProps)
	if err != nil {
		return store.Row{}, err
	}
	targetProps, err := decodeProperties(j.targetProps)
	if err != nil {
		return store.Row{}, err
	}
	target := store.NodeRow{ID: *j.targetID, Properties: targetProps}
	if j.targetType != nil {
		target.Type = *j.targetType
	}
	row.Edge = &store.EdgeRow{Type: *j.edgeType, Properties: edgeProps}
	row.Target = &target
	return row, nil
}
