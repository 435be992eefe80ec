package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Record is an untyped collection entry as stored in seed files and the
// overlay. The "id" field identifies the record within its collection;
// every other field is preserved verbatim.
type Record map[string]any

// FieldID is the identity field present on every record.
const FieldID = "id"

// ID returns the record identity, or "" when absent. Numeric ids found in
// hand-edited seed files are rendered in their decimal form.
func (r Record) ID() string {
	return r.String(FieldID)
}

// String returns the named field rendered as a string. Missing and null
// fields yield "".
func (r Record) String(field string) string {
	v, ok := r[field]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprint(t)
	}
}

// Float returns the named field as a number. Strings holding numbers are
// accepted; anything else yields 0.
func (r Record) Float(field string) float64 {
	switch t := r[field].(type) {
	case float64:
		return t
	case int:
		return float64(t)
	case int64:
		return float64(t)
	case json.Number:
		f, _ := t.Float64()
		return f
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0
		}
		return f
	}
	return 0
}

// Clone returns a shallow copy; nested values are shared.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Merge returns a new record with patch fields layered over r.
func (r Record) Merge(patch Record) Record {
	out := r.Clone()
	if out == nil {
		out = make(Record, len(patch))
	}
	for k, v := range patch {
		out[k] = v
	}
	return out
}

// WithID returns a copy of r whose id is set to id.
func (r Record) WithID(id string) Record {
	out := r.Clone()
	if out == nil {
		out = Record{}
	}
	out[FieldID] = id
	return out
}

// Decode converts the record into one of the typed collection structs.
func (r Record) Decode(dst any) error {
	b, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	if err := json.Unmarshal(b, dst); err != nil {
		return fmt.Errorf("decode record %s: %w", r.ID(), err)
	}
	return nil
}

// RecordOf converts a typed struct back into a Record.
func RecordOf(v any) (Record, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode %T: %w", v, err)
	}
	var out Record
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("decode %T: %w", v, err)
	}
	return out, nil
}
