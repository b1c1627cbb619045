package order

import (
	"encoding/json"
	"fmt"
)

// MergeFields overlays a partial top-level field patch onto a snapshot and
// returns the merged document. The input order is left untouched. Terminal
// and store both patch through this helper so the merge semantics cannot
// drift between the two sides.
func MergeFields(o *Order, fields map[string]any) (*Order, error) {
	doc, err := json.Marshal(o)
	if err != nil {
		return nil, fmt.Errorf("merge fields: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(doc, &m); err != nil {
		return nil, fmt.Errorf("merge fields: %w", err)
	}
	for k, v := range fields {
		m[k] = v
	}
	doc, err = json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("merge fields: %w", err)
	}
	var out Order
	if err := json.Unmarshal(doc, &out); err != nil {
		return nil, fmt.Errorf("merge fields: %w", err)
	}
	return &out, nil
}
