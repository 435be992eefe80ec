package domain

import (
	"encoding/json"
	"errors"
	"fmt"
)

// SlotKind distinguishes the three states an id can be in within an overlay.
type SlotKind uint8

const (
	// SlotAbsent means the overlay says nothing about the id.
	SlotAbsent SlotKind = iota
	// SlotTombstoned means the id must be treated as deleted even when the
	// seed still carries it.
	SlotTombstoned
	// SlotPresent means the overlay holds a newer version of the record.
	SlotPresent
)

func (k SlotKind) String() string {
	switch k {
	case SlotTombstoned:
		return "tombstoned"
	case SlotPresent:
		return "present"
	default:
		return "absent"
	}
}

// Tombstone markers. DeletedMarker is written; LegacyDeletedMarker is
// accepted on read. Both are reserved: present records never carry them.
const (
	DeletedMarker       = "__deleted"
	LegacyDeletedMarker = "deleted"
)

// Slot is one overlay entry.
type Slot struct {
	Kind   SlotKind
	ID     string
	Record Record // set only when Kind == SlotPresent
}

// Present builds a slot carrying rec without the tombstone markers.
func Present(rec Record) Slot {
	return Slot{Kind: SlotPresent, ID: rec.ID(), Record: rec.WithoutMarkers()}
}

// Tombstone builds a deletion marker for id.
func Tombstone(id string) Slot {
	return Slot{Kind: SlotTombstoned, ID: id}
}

// Absent is the zero slot for id.
func Absent(id string) Slot {
	return Slot{Kind: SlotAbsent, ID: id}
}

// IsTombstone reports whether the slot suppresses its id.
func (s Slot) IsTombstone() bool { return s.Kind == SlotTombstoned }

// IsPresent reports whether the slot carries record data.
func (s Slot) IsPresent() bool { return s.Kind == SlotPresent }

var errAbsentSlot = errors.New("absent slot cannot be encoded")

// MarshalJSON encodes present slots as the bare record and tombstones as
// {"id": ..., "__deleted": true}.
func (s Slot) MarshalJSON() ([]byte, error) {
	switch s.Kind {
	case SlotPresent:
		return json.Marshal(s.Record.WithoutMarkers().WithID(s.ID))
	case SlotTombstoned:
		return json.Marshal(map[string]any{FieldID: s.ID, DeletedMarker: true})
	default:
		return nil, errAbsentSlot
	}
}

// UnmarshalJSON decodes either a record or a tombstone. JSON null decodes
// to an absent slot so callers can skip it.
func (s *Slot) UnmarshalJSON(b []byte) error {
	var rec Record
	if err := json.Unmarshal(b, &rec); err != nil {
		return fmt.Errorf("decode slot: %w", err)
	}
	if rec == nil {
		*s = Slot{}
		return nil
	}
	if isTombstoneRecord(rec) {
		*s = Tombstone(rec.ID())
		return nil
	}
	*s = Present(rec)
	return nil
}

func isTombstoneRecord(rec Record) bool {
	for _, marker := range []string{DeletedMarker, LegacyDeletedMarker} {
		if v, ok := rec[marker].(bool); ok && v {
			return true
		}
	}
	return false
}

// WithoutMarkers returns r minus the reserved tombstone markers. r itself
// is returned when it carries none.
func (r Record) WithoutMarkers() Record {
	_, a := r[DeletedMarker]
	_, b := r[LegacyDeletedMarker]
	if !a && !b {
		return r
	}
	out := r.Clone()
	delete(out, DeletedMarker)
	delete(out, LegacyDeletedMarker)
	return out
}
