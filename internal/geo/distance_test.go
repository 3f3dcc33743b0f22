package geo

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"comparables/server/internal/models"
)

func floatPtr(v float64) *float64 { return &v }

func TestFillDistances(t *testing.T) {
	subject := models.SubjectContext{
		Latitude:  floatPtr(51.5074),
		Longitude: floatPtr(-0.1278),
	}

	raw := []models.TransactionRecord{
		{
			PropertyID:      "near",
			TransactionDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			Latitude:        floatPtr(51.5080),
			Longitude:       floatPtr(-0.1280),
		},
		{
			PropertyID:      "preset",
			TransactionDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			DistanceMetres:  floatPtr(42),
			Latitude:        floatPtr(52.0),
			Longitude:       floatPtr(0.0),
		},
		{
			PropertyID:      "no-coords",
			TransactionDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		},
	}

	out := FillDistances(raw, subject)

	assert.NotNil(t, out[0].DistanceMetres)
	assert.Greater(t, *out[0].DistanceMetres, 0.0)
	assert.Less(t, *out[0].DistanceMetres, 200.0)

	// An upstream distance is never overwritten
	assert.Equal(t, 42.0, *out[1].DistanceMetres)

	assert.Nil(t, out[2].DistanceMetres)
}

func TestFillDistances_NoSubjectCoordinates(t *testing.T) {
	raw := []models.TransactionRecord{{
		PropertyID: "A",
		Latitude:   floatPtr(51.5),
		Longitude:  floatPtr(-0.1),
	}}

	out := FillDistances(raw, models.SubjectContext{})
	assert.Nil(t, out[0].DistanceMetres)
}
