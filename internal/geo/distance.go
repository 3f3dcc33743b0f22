package geo

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"

	"comparables/server/internal/models"
)

// FillDistances computes the missing distance-to-subject for records that
// carry coordinates, when the subject's own coordinates are known. Records
// that already have a distance, or lack coordinates, pass through untouched.
func FillDistances(raw []models.TransactionRecord, subject models.SubjectContext) []models.TransactionRecord {
	if subject.Latitude == nil || subject.Longitude == nil {
		return raw
	}
	origin := orb.Point{*subject.Longitude, *subject.Latitude}

	out := make([]models.TransactionRecord, len(raw))
	for i, rec := range raw {
		if rec.DistanceMetres == nil && rec.Latitude != nil && rec.Longitude != nil {
			d := geo.DistanceHaversine(origin, orb.Point{*rec.Longitude, *rec.Latitude})
			rec.DistanceMetres = &d
		}
		out[i] = rec
	}
	return out
}
