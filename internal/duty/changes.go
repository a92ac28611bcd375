package duty

import "github.com/debranko/obedio-yacht-crew-management-sub003/internal/models"

// RosterChanges diff between two crew rosters
type RosterChanges struct {
	Added    []models.CrewMember
	Modified []models.CrewMember
	Removed  []models.CrewMember
}

func (c RosterChanges) Empty() bool {
	return len(c.Added) == 0 && len(c.Modified) == 0 && len(c.Removed) == 0
}

// CrewChanges compares rosters by id. A nil prev means no baseline and
// reports nothing.
func CrewChanges(prev, next []models.CrewMember) RosterChanges {
	var out RosterChanges
	if prev == nil {
		return out
	}
	before := make(map[string]models.CrewMember, len(prev))
	for _, c := range prev {
		before[c.ID] = c
	}
	seen := make(map[string]bool, len(next))
	for _, c := range next {
		seen[c.ID] = true
		old, ok := before[c.ID]
		switch {
		case !ok:
			out.Added = append(out.Added, c)
		case old != c:
			out.Modified = append(out.Modified, c)
		}
	}
	for _, c := range prev {
		if !seen[c.ID] {
			out.Removed = append(out.Removed, c)
		}
	}
	return out
}
