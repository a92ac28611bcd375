package duty

import (
	"sort"

	"github.com/debranko/obedio-yacht-crew-management-sub003/internal/models"
)

type catalogEntry struct {
	shift  models.Shift
	window ShiftWindow
}

// Catalog shift windows ordered by Order, then start time
type Catalog struct {
	entries []catalogEntry
	invalid []models.Shift
}

// NewCatalog builds a catalog; shifts with unparsable times are set aside (see Invalid)
func NewCatalog(shifts []models.Shift) *Catalog {
	c := &Catalog{}
	for _, s := range shifts {
		w, err := NewShiftWindow(s.StartTime, s.EndTime)
		if err != nil {
			c.invalid = append(c.invalid, s)
			continue
		}
		c.entries = append(c.entries, catalogEntry{shift: s, window: w})
	}
	sort.SliceStable(c.entries, func(i, j int) bool {
		if c.entries[i].shift.Order != c.entries[j].shift.Order {
			return c.entries[i].shift.Order < c.entries[j].shift.Order
		}
		return c.entries[i].window.Start < c.entries[j].window.Start
	})
	return c
}

func (c *Catalog) Len() int { return len(c.entries) }

// Shifts valid shifts in catalog order
func (c *Catalog) Shifts() []models.Shift {
	out := make([]models.Shift, 0, len(c.entries))
	for _, e := range c.entries {
		out = append(out, e.shift)
	}
	return out
}

// Invalid shifts skipped because of malformed times
func (c *Catalog) Invalid() []models.Shift {
	return c.invalid
}

// Current first shift in order whose window contains minute
func (c *Catalog) Current(minute int) (models.Shift, bool) {
	for _, e := range c.entries {
		if e.window.Contains(minute) {
			return e.shift, true
		}
	}
	return models.Shift{}, false
}

// Next first shift in order starting strictly after minute and not currentID.
// When none remains today it wraps to the first shift and tomorrow is true.
func (c *Catalog) Next(minute int, currentID string) (shift models.Shift, tomorrow bool, ok bool) {
	if len(c.entries) == 0 {
		return models.Shift{}, false, false
	}
	for _, e := range c.entries {
		if e.window.Start > minute && e.shift.ID != currentID {
			return e.shift, false, true
		}
	}
	return c.entries[0].shift, true, true
}

// Window of a shift by id
func (c *Catalog) Window(id string) (ShiftWindow, bool) {
	for _, e := range c.entries {
		if e.shift.ID == id {
			return e.window, true
		}
	}
	return ShiftWindow{}, false
}
