package palette

import (
	"errors"
	"fmt"
)

// ErrNoPalette is returned by lookups against an index with no entries.
// Callers treat it as color mode being unavailable.
var ErrNoPalette = errors.New("palette: no colors available")

// CapacityError reports a host that cannot offer the minimum viable number of slots
type CapacityError struct {
	Available int
	Required  int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("palette: host offers %d color slots, need at least %d", e.Available, e.Required)
}
