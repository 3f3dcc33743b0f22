package database

import "fmt"

func (d *Database) RunMigrations() error {
	_, err := d.db.Exec(`
		CREATE TABLE IF NOT EXISTS nearby_transactions (
			subject_property_id TEXT NOT NULL,
			property_id TEXT NOT NULL,
			transaction_date TEXT NOT NULL,
			price INTEGER NOT NULL,
			property_type TEXT,
			bedrooms INTEGER,
			bathrooms INTEGER,
			internal_area_sqm REAL,
			price_per_sqm REAL,
			distance_metres REAL,
			street_name TEXT,
			address TEXT,
			postcode TEXT,
			latitude REAL,
			longitude REAL,
			ingested_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (subject_property_id, property_id, transaction_date)
		);
	`)
	if err != nil {
		return fmt.Errorf("failed to create nearby_transactions table: %v", err)
	}

	_, err = d.db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_nearby_transactions_subject
		ON nearby_transactions(subject_property_id);
	`)
	if err != nil {
		return err
	}

	_, err = d.db.Exec(`
		CREATE TABLE IF NOT EXISTS comparable_selections (
			user_id TEXT NOT NULL,
			subject_property_id TEXT NOT NULL,
			selected_ids TEXT NOT NULL,
			strategy TEXT NOT NULL,
			cached_valuation REAL,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (user_id, subject_property_id)
		);
	`)
	if err != nil {
		return fmt.Errorf("failed to create comparable_selections table: %v", err)
	}

	return nil
}
