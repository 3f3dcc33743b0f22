package pipeline

import (
	"sort"
	"time"

	"comparables/server/internal/models"
)

// SortKey enumerates the supported orderings of a filtered view.
type SortKey string

const (
	SortPriceDesc   SortKey = "price_desc"
	SortPriceAsc    SortKey = "price_asc"
	SortDateDesc    SortKey = "date_desc"
	SortDateAsc     SortKey = "date_asc"
	SortDistanceAsc SortKey = "distance_asc"
)

// Pipeline applies a declarative filter set and a sort order over a
// normalized transaction set. The clock is injectable so date-window
// behaviour is testable.
type Pipeline struct {
	now func() time.Time
}

func New() *Pipeline {
	return &Pipeline{now: time.Now}
}

// NewWithClock builds a pipeline with a fixed notion of "today".
func NewWithClock(now func() time.Time) *Pipeline {
	return &Pipeline{now: now}
}

// Apply filters the set against the criteria (all filters AND-combined) and
// stably sorts the result. An empty slice is a valid outcome, distinct from
// a nil "not yet loaded" state only by context at the caller.
func (p *Pipeline) Apply(set *models.TransactionSet, criteria models.FilterCriteria, subject models.SubjectContext, key SortKey) []models.TransactionRecord {
	today := p.now()
	out := make([]models.TransactionRecord, 0, set.Len())
	for _, rec := range set.Records() {
		if p.matches(rec, criteria, subject, today) {
			out = append(out, rec)
		}
	}
	sortRecords(out, key)
	return out
}

func (p *Pipeline) matches(rec models.TransactionRecord, c models.FilterCriteria, subject models.SubjectContext, today time.Time) bool {
	if c.Bedrooms != nil {
		if c.BedroomsOpen {
			if rec.Bedrooms < *c.Bedrooms {
				return false
			}
		} else if rec.Bedrooms != *c.Bedrooms {
			return false
		}
	}

	// A record with zero/absent bathrooms always passes the bathroom
	// filter: absence is a data-quality gap, not evidence of mismatch.
	if c.Bathrooms != nil && rec.Bathrooms != 0 {
		if c.BathroomsOpen {
			if rec.Bathrooms < *c.Bathrooms {
				return false
			}
		} else if rec.Bathrooms != *c.Bathrooms {
			return false
		}
	}

	if c.WindowDays != nil {
		age := calendarDaysBetween(rec.TransactionDate, today)
		// Future-dated records never pass, whatever the window
		if age < 0 || age > *c.WindowDays {
			return false
		}
	}

	if c.PropertyType != "" && rec.PropertyType != c.PropertyType {
		return false
	}

	switch c.Distance.Mode {
	case models.DistanceSameStreet:
		if rec.StreetName == "" || rec.StreetName != subject.StreetName {
			return false
		}
	case models.DistanceMaxMetres:
		if rec.DistanceMetres == nil || *rec.DistanceMetres > c.Distance.MaxMetres {
			return false
		}
	}

	return true
}

// calendarDaysBetween returns today minus the record date in whole calendar
// days, computed in UTC. Negative means the record is dated in the future.
func calendarDaysBetween(from, to time.Time) int {
	fy, fm, fd := from.UTC().Date()
	ty, tm, td := to.UTC().Date()
	a := time.Date(fy, fm, fd, 0, 0, 0, 0, time.UTC)
	b := time.Date(ty, tm, td, 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a).Hours() / 24)
}

func sortRecords(recs []models.TransactionRecord, key SortKey) {
	switch key {
	case SortPriceDesc:
		sort.SliceStable(recs, func(i, j int) bool { return recs[i].Price > recs[j].Price })
	case SortPriceAsc:
		sort.SliceStable(recs, func(i, j int) bool { return recs[i].Price < recs[j].Price })
	case SortDateDesc:
		sort.SliceStable(recs, func(i, j int) bool { return recs[i].TransactionDate.After(recs[j].TransactionDate) })
	case SortDateAsc:
		sort.SliceStable(recs, func(i, j int) bool { return recs[i].TransactionDate.Before(recs[j].TransactionDate) })
	case SortDistanceAsc:
		sort.SliceStable(recs, func(i, j int) bool {
			// Records without a distance sort last
			di, dj := recs[i].DistanceMetres, recs[j].DistanceMetres
			if di == nil {
				return false
			}
			if dj == nil {
				return true
			}
			return *di < *dj
		})
	}
}
