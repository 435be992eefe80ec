package core

import (
	"errors"
	"fmt"

	"elevadorpro/pkg/domain"
)

var (
	// ErrUnknownCollection is returned for collection names outside the
	// known set.
	ErrUnknownCollection = errors.New("unknown collection")
	// ErrDuplicateID is returned by Create when a caller-supplied id is
	// already visible.
	ErrDuplicateID = errors.New("duplicate id")
	// ErrNotFound is returned when a record id is not visible.
	ErrNotFound = errors.New("record not found")
)

func checkCollection(c domain.Collection) error {
	if !c.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownCollection, string(c))
	}
	return nil
}

func notFound(c domain.Collection, id string) error {
	return fmt.Errorf("%s %s: %w", c, id, ErrNotFound)
}
