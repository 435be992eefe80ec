package core

import (
	"fmt"
	"strconv"
	"strings"

	"elevadorpro/pkg/domain"
)

// NextID returns prefix followed by one more than the largest numeric
// suffix among ids carrying prefix, zero padded to four digits. Ids with a
// non-numeric suffix are ignored.
func NextID(prefix string, records []domain.Record) string {
	highest := 0
	for _, rec := range records {
		id := rec.ID()
		if !strings.HasPrefix(id, prefix) {
			continue
		}
		suffix := strings.TrimPrefix(id, prefix)
		if suffix == "" || strings.TrimLeft(suffix, "0123456789") != "" {
			continue
		}
		n, err := strconv.Atoi(suffix)
		if err != nil {
			continue
		}
		if n > highest {
			highest = n
		}
	}
	return fmt.Sprintf("%s%04d", prefix, highest+1)
}
