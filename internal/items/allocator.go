package items

import (
	"fmt"
	"strconv"
	"strings"
)

// NextTagID returns the next identifier in a prefixed numeric sequence given
// the highest identifier currently stored for the owner's namespace.
//
// A missing highest identifier yields "{prefix}_0". A malformed suffix also
// yields "{prefix}_0": legacy rows with unparseable ids must never block a
// write, so the sequence restarts instead of failing.
func NextTagID(prefix, highest string) string {
	if highest == "" {
		return fmt.Sprintf("%s_0", prefix)
	}
	separator := strings.LastIndex(highest, "_")
	if separator < 0 || separator == len(highest)-1 {
		return fmt.Sprintf("%s_0", prefix)
	}
	suffix, err := strconv.Atoi(highest[separator+1:])
	if err != nil {
		return fmt.Sprintf("%s_0", prefix)
	}
	return fmt.Sprintf("%s_%d", prefix, suffix+1)
}

// allocateTagIDs issues count consecutive identifiers as a running increment
// seeded once from the owner's current maximum.
func allocateTagIDs(prefix, highest string, count int) []string {
	ids := make([]string, 0, count)
	current := highest
	for i := 0; i < count; i++ {
		next := NextTagID(prefix, current)
		ids = append(ids, next)
		current = next
	}
	return ids
}
