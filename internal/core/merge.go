package core

import "elevadorpro/pkg/domain"

// Merge combines seed records with overlay slots. Tombstoned ids are
// dropped from both layers, present overlay records replace seed records
// with the same id, and new overlay ids follow the seed in overlay order.
// Records are cloned; the inputs are never modified.
func Merge(seedRecs []domain.Record, slots []domain.Slot) []domain.Record {
	deleted := make(map[string]struct{})
	for _, slot := range slots {
		if slot.IsTombstone() {
			deleted[slot.ID] = struct{}{}
		}
	}

	order := make([]string, 0, len(seedRecs)+len(slots))
	byID := make(map[string]domain.Record, len(seedRecs)+len(slots))
	upsert := func(id string, rec domain.Record) {
		if _, ok := byID[id]; !ok {
			order = append(order, id)
		}
		byID[id] = rec
	}
	for _, rec := range seedRecs {
		id := rec.ID()
		if _, gone := deleted[id]; gone {
			continue
		}
		upsert(id, rec)
	}
	for _, slot := range slots {
		switch slot.Kind {
		case domain.SlotTombstoned:
			delete(byID, slot.ID)
		case domain.SlotPresent:
			upsert(slot.ID, slot.Record)
		}
	}

	out := make([]domain.Record, 0, len(byID))
	for _, id := range order {
		rec, ok := byID[id]
		if !ok {
			continue
		}
		out = append(out, rec.Clone())
		// an id re-inserted after a tombstone appears twice in order
		delete(byID, id)
	}
	return out
}

func indexOf(recs []domain.Record, id string) int {
	for i, rec := range recs {
		if rec.ID() == id {
			return i
		}
	}
	return -1
}

func presentIndex(slots []domain.Slot, id string) int {
	for i, slot := range slots {
		if slot.IsPresent() && slot.ID == id {
			return i
		}
	}
	return -1
}

func hasTombstone(slots []domain.Slot, id string) bool {
	for _, slot := range slots {
		if slot.IsTombstone() && slot.ID == id {
			return true
		}
	}
	return false
}

func withoutID(slots []domain.Slot, id string) []domain.Slot {
	out := make([]domain.Slot, 0, len(slots))
	for _, slot := range slots {
		if slot.ID != id {
			out = append(out, slot)
		}
	}
	return out
}
