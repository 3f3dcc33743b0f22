package normalizer

import (
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"comparables/server/internal/models"
)

// Normalizer collapses a raw nearby-transaction list into one record per
// property. A property that sold more than once keeps only its most recent
// sale.
type Normalizer struct {
	logger *logrus.Logger
}

func New(logger *logrus.Logger) *Normalizer {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}
	return &Normalizer{logger: logger}
}

// Normalize deduplicates raw records by property id, keeping the record with
// the latest calendar date. Records on the same calendar day are equal-ranked
// and the first-encountered one wins, so output is deterministic for any
// input order. Records missing an id or date, or carrying a negative price,
// are dropped with a warning and never abort the batch.
func (n *Normalizer) Normalize(raw []models.TransactionRecord) *models.TransactionSet {
	set := models.NewTransactionSet()
	for _, rec := range raw {
		if rec.PropertyID == "" || rec.TransactionDate.IsZero() || rec.Price < 0 {
			n.logger.WithFields(logrus.Fields{
				"property_id": rec.PropertyID,
				"price":       rec.Price,
			}).Warn("Dropping malformed transaction record")
			continue
		}

		existing, ok := set.Get(rec.PropertyID)
		if !ok {
			set.Put(rec)
			continue
		}
		if calendarAfter(rec.TransactionDate, existing.TransactionDate) {
			set.Put(rec)
		}
	}
	return set
}

// calendarAfter compares two timestamps at calendar-day granularity in UTC.
// Time of day never affects the outcome.
func calendarAfter(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	if ay != by {
		return ay > by
	}
	if am != bm {
		return am > bm
	}
	return ad > bd
}
