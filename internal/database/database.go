package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"comparables/server/internal/models"
	"comparables/server/internal/persistence"
)

type Database struct {
	db *sql.DB
}

func NewDatabase(dbPath string) (*Database, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	// Enable foreign keys
	_, err = db.Exec("PRAGMA foreign_keys = ON")
	if err != nil {
		return nil, err
	}

	return &Database{db: db}, nil
}

// LoadComparables reads the persisted selection for a user and subject
// property. A missing record is not an error and comes back nil.
func (d *Database) LoadComparables(ctx context.Context, userID, subjectPropertyID string) (*models.PersistedComparablesRecord, error) {
	var (
		idsJSON   string
		strategy  string
		valuation sql.NullFloat64
		updatedAt sql.NullString
	)
	err := d.db.QueryRowContext(ctx, `
		SELECT selected_ids, strategy, cached_valuation, updated_at
		FROM comparable_selections
		WHERE user_id = ? AND subject_property_id = ?
	`, userID, subjectPropertyID).Scan(&idsJSON, &strategy, &valuation, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query comparables record: %w", err)
	}

	record := &models.PersistedComparablesRecord{
		UserID:            userID,
		SubjectPropertyID: subjectPropertyID,
		Strategy:          models.ValuationStrategy(strategy),
	}
	if err := json.Unmarshal([]byte(idsJSON), &record.SelectedIDs); err != nil {
		return nil, fmt.Errorf("failed to decode selected ids: %w", err)
	}
	if valuation.Valid {
		v := valuation.Float64
		record.CachedValuation = &v
	}
	if updatedAt.Valid && updatedAt.String != "" {
		if t, err := time.Parse(time.RFC3339, updatedAt.String); err == nil {
			record.UpdatedAt = t
		}
	}
	return record, nil
}

// SaveComparables upserts the selection for a user and subject property.
// Selected ids are stored sorted so an identical payload always produces an
// identical row, whatever order the selection set iterated in.
func (d *Database) SaveComparables(ctx context.Context, userID, subjectPropertyID string, payload persistence.Payload) error {
	ids := make([]string, len(payload.SelectedIDs))
	copy(ids, payload.SelectedIDs)
	sort.Strings(ids)

	idsJSON, err := json.Marshal(ids)
	if err != nil {
		return fmt.Errorf("failed to encode selected ids: %w", err)
	}

	var valuation interface{}
	if payload.CachedValuation != nil {
		valuation = *payload.CachedValuation
	}

	_, err = d.db.ExecContext(ctx, `
		INSERT INTO comparable_selections
			(user_id, subject_property_id, selected_ids, strategy, cached_valuation, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, subject_property_id) DO UPDATE SET
			selected_ids = excluded.selected_ids,
			strategy = excluded.strategy,
			cached_valuation = excluded.cached_valuation,
			updated_at = excluded.updated_at
	`, userID, subjectPropertyID, string(idsJSON), string(payload.Strategy), valuation, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to upsert comparables record: %w", err)
	}
	return nil
}

// GetNearbyTransactions returns the ingested raw sale records for a subject
// property, in ingestion order. Duplicate sales per property are expected;
// normalization happens in the engine.
func (d *Database) GetNearbyTransactions(subjectPropertyID string) ([]models.TransactionRecord, error) {
	rows, err := d.db.Query(`
		SELECT property_id, transaction_date, price, property_type, bedrooms, bathrooms,
		       internal_area_sqm, price_per_sqm, distance_metres, street_name, address,
		       postcode, latitude, longitude
		FROM nearby_transactions
		WHERE subject_property_id = ?
		ORDER BY rowid
	`, subjectPropertyID)
	if err != nil {
		return nil, fmt.Errorf("failed to query nearby transactions: %w", err)
	}
	defer rows.Close()

	var records []models.TransactionRecord
	for rows.Next() {
		var rec models.TransactionRecord
		var txDate sql.NullString
		var propertyType, streetName, address, postcode sql.NullString
		var bedrooms, bathrooms sql.NullInt64
		var areaSqm, pricePerSqm, distance, latitude, longitude sql.NullFloat64

		err := rows.Scan(
			&rec.PropertyID,
			&txDate,
			&rec.Price,
			&propertyType,
			&bedrooms,
			&bathrooms,
			&areaSqm,
			&pricePerSqm,
			&distance,
			&streetName,
			&address,
			&postcode,
			&latitude,
			&longitude,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan nearby transaction: %w", err)
		}

		if txDate.Valid && txDate.String != "" {
			if t, ok := parseTransactionDate(txDate.String); ok {
				rec.TransactionDate = t
			}
		}
		if propertyType.Valid {
			rec.PropertyType = propertyType.String
		}
		if streetName.Valid {
			rec.StreetName = streetName.String
		}
		if address.Valid && address.String != "" {
			rec.AddressLines = []string{address.String}
		}
		if postcode.Valid {
			rec.Postcode = postcode.String
		}
		if bedrooms.Valid {
			rec.Bedrooms = int(bedrooms.Int64)
		}
		if bathrooms.Valid {
			rec.Bathrooms = int(bathrooms.Int64)
		}
		if areaSqm.Valid {
			v := areaSqm.Float64
			rec.InternalAreaSqm = &v
		}
		if pricePerSqm.Valid {
			v := pricePerSqm.Float64
			rec.PricePerSqm = &v
		}
		if distance.Valid {
			v := distance.Float64
			rec.DistanceMetres = &v
		}
		if latitude.Valid {
			v := latitude.Float64
			rec.Latitude = &v
		}
		if longitude.Valid {
			v := longitude.Float64
			rec.Longitude = &v
		}

		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating nearby transactions: %w", err)
	}
	return records, nil
}

// transactionDateFormats covers the plain calendar form plus the layouts the
// sqlite driver writes when a time.Time is bound directly, as the gorm
// ingestion path does.
var transactionDateFormats = []string{
	"2006-01-02",
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05-07:00",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

func parseTransactionDate(s string) (time.Time, bool) {
	for _, layout := range transactionDateFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func (d *Database) Close() error {
	return d.db.Close()
}

func (d *Database) GetDB() *sql.DB {
	return d.db
}
