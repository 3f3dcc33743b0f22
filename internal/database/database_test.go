package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"comparables/server/internal/models"
	"comparables/server/internal/persistence"
)

func setupDB(t *testing.T) (*Database, string) {
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := NewDatabase(path)
	require.NoError(t, err)
	require.NoError(t, db.RunMigrations())
	t.Cleanup(func() { db.Close() })
	return db, path
}

func floatPtr(v float64) *float64 { return &v }

func TestLoadComparables_NotFound(t *testing.T) {
	db, _ := setupDB(t)

	record, err := db.LoadComparables(context.Background(), "u1", "s1")
	assert.NoError(t, err)
	assert.Nil(t, record)
}

func TestSaveLoadComparables_Roundtrip(t *testing.T) {
	db, _ := setupDB(t)

	payload := persistence.Payload{
		SelectedIDs:     []string{"B", "A"},
		Strategy:        models.StrategyPricePerSqm,
		CachedValuation: floatPtr(208000),
	}
	require.NoError(t, db.SaveComparables(context.Background(), "u1", "s1", payload))

	record, err := db.LoadComparables(context.Background(), "u1", "s1")
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, []string{"A", "B"}, record.SelectedIDs)
	assert.Equal(t, models.StrategyPricePerSqm, record.Strategy)
	require.NotNil(t, record.CachedValuation)
	assert.Equal(t, 208000.0, *record.CachedValuation)
	assert.False(t, record.UpdatedAt.IsZero())
}

func TestSaveComparables_UpsertIdempotent(t *testing.T) {
	db, _ := setupDB(t)
	ctx := context.Background()

	payload := persistence.Payload{
		SelectedIDs: []string{"A", "B"},
		Strategy:    models.StrategyAverage,
	}
	require.NoError(t, db.SaveComparables(ctx, "u1", "s1", payload))
	first, err := db.LoadComparables(ctx, "u1", "s1")
	require.NoError(t, err)

	// Same payload again, with ids in a different order
	payload.SelectedIDs = []string{"B", "A"}
	require.NoError(t, db.SaveComparables(ctx, "u1", "s1", payload))
	second, err := db.LoadComparables(ctx, "u1", "s1")
	require.NoError(t, err)

	assert.Equal(t, first.SelectedIDs, second.SelectedIDs)
	assert.Equal(t, first.Strategy, second.Strategy)
	assert.Equal(t, first.CachedValuation, second.CachedValuation)

	// Still a single row
	var count int
	require.NoError(t, db.GetDB().QueryRow("SELECT COUNT(*) FROM comparable_selections").Scan(&count))
	assert.Equal(t, 1, count)
}

func TestSaveComparables_OverwritesPreviousSelection(t *testing.T) {
	db, _ := setupDB(t)
	ctx := context.Background()

	require.NoError(t, db.SaveComparables(ctx, "u1", "s1", persistence.Payload{
		SelectedIDs: []string{"A", "B", "C"},
		Strategy:    models.StrategyAverage,
	}))
	require.NoError(t, db.SaveComparables(ctx, "u1", "s1", persistence.Payload{
		SelectedIDs: []string{"A"},
		Strategy:    models.StrategyPricePerSqm,
	}))

	record, err := db.LoadComparables(ctx, "u1", "s1")
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, record.SelectedIDs)
	assert.Equal(t, models.StrategyPricePerSqm, record.Strategy)
	assert.Nil(t, record.CachedValuation)
}

func TestGetNearbyTransactions(t *testing.T) {
	db, _ := setupDB(t)

	_, err := db.GetDB().Exec(`
		INSERT INTO nearby_transactions
			(subject_property_id, property_id, transaction_date, price, property_type,
			 bedrooms, bathrooms, internal_area_sqm, price_per_sqm, distance_metres,
			 street_name, address, postcode, latitude, longitude)
		VALUES
			('s1', 'p1', '2023-06-15', 200000, 'Flat', 2, 1, 65.5, 3053.4, 120.0,
			 'High Street', '1 High Street', 'AB1 2CD', 51.5, -0.1),
			('s1', 'p1', '2021-01-01', 150000, 'Flat', 2, 1, NULL, NULL, NULL,
			 'High Street', NULL, NULL, NULL, NULL),
			('s2', 'p9', '2022-03-10', 300000, 'House', NULL, NULL, NULL, NULL, NULL,
			 NULL, NULL, NULL, NULL, NULL)
	`)
	require.NoError(t, err)

	records, err := db.GetNearbyTransactions("s1")
	require.NoError(t, err)
	require.Len(t, records, 2)

	// Both sales of p1 survive; normalization is the engine's job
	assert.Equal(t, "p1", records[0].PropertyID)
	assert.Equal(t, int64(200000), records[0].Price)
	assert.Equal(t, time.Date(2023, 6, 15, 0, 0, 0, 0, time.UTC), records[0].TransactionDate)
	assert.Equal(t, "High Street", records[0].StreetName)
	require.NotNil(t, records[0].PricePerSqm)
	assert.Equal(t, 3053.4, *records[0].PricePerSqm)
	assert.Equal(t, []string{"1 High Street"}, records[0].AddressLines)

	assert.Equal(t, int64(150000), records[1].Price)
	assert.Nil(t, records[1].PricePerSqm)
	assert.Nil(t, records[1].DistanceMetres)
}

// Rows written through the gorm ingestion path store transaction_date in the
// sqlite driver's timestamp layout, not the plain calendar form. The read
// side must parse both or every ingested record loses its date.
func TestGetNearbyTransactions_ReadsGormIngestedRows(t *testing.T) {
	db, path := setupDB(t)

	gormDB, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	require.NoError(t, err)

	batch := []*models.NearbyTransaction{{
		SubjectPropertyID: "s1",
		PropertyID:        "p1",
		TransactionDate:   time.Date(2023, 6, 15, 0, 0, 0, 0, time.UTC),
		Price:             200000,
		PropertyType:      "Flat",
		Bedrooms:          2,
		Bathrooms:         1,
		PricePerSqm:       floatPtr(3053.4),
		StreetName:        "High Street",
	}}
	require.NoError(t, gormDB.Transaction(func(tx *gorm.DB) error {
		return UpsertNearbyTransactions(tx, batch)
	}))

	records, err := db.GetNearbyTransactions("s1")
	require.NoError(t, err)
	require.Len(t, records, 1)

	rec := records[0]
	require.False(t, rec.TransactionDate.IsZero())
	y, m, d := rec.TransactionDate.UTC().Date()
	assert.Equal(t, 2023, y)
	assert.Equal(t, time.June, m)
	assert.Equal(t, 15, d)
	assert.Equal(t, int64(200000), rec.Price)
	assert.Equal(t, "High Street", rec.StreetName)
	require.NotNil(t, rec.PricePerSqm)
	assert.Equal(t, 3053.4, *rec.PricePerSqm)
}

func TestParseTransactionDate_DriverLayouts(t *testing.T) {
	cases := []string{
		"2023-06-15",
		"2023-06-15 00:00:00+00:00",
		"2023-06-15 00:00:00.123456789+00:00",
		"2023-06-15 00:00:00",
		"2023-06-15T00:00:00Z",
	}
	for _, in := range cases {
		parsed, ok := parseTransactionDate(in)
		require.True(t, ok, in)
		y, m, d := parsed.UTC().Date()
		assert.Equal(t, 2023, y, in)
		assert.Equal(t, time.June, m, in)
		assert.Equal(t, 15, d, in)
	}

	_, ok := parseTransactionDate("not a date")
	assert.False(t, ok)
}
