package valuation

import (
	"github.com/shopspring/decimal"

	"comparables/server/internal/models"
)

// Compute derives a single monetary estimate from the selected comparables
// under the given strategy.
//
// "average" takes the arithmetic mean of prices over the selected records
// still present in the set. "price_per_sqm" averages the positive per-sqm
// prices of the qualifying records and scales by the subject area; it yields
// a nil amount when no record qualifies or the subject area is unknown.
// Amounts are rounded to whole pounds, matching the unit prices are held in.
//
// Ids that no longer resolve in the set are skipped, never treated as zero.
// BasisCount reports how many records were actually used, so a valuation
// based on fewer comparables than selected is never silent about it.
func Compute(selectedIDs []string, strategy models.ValuationStrategy, set *models.TransactionSet, subjectAreaSqm float64) models.ValuationResult {
	result := models.ValuationResult{Strategy: strategy}

	switch strategy {
	case models.StrategyPricePerSqm:
		if subjectAreaSqm <= 0 {
			return result
		}
		sum := decimal.Zero
		count := 0
		for _, id := range selectedIDs {
			rec, ok := set.Get(id)
			if !ok || rec.PricePerSqm == nil || *rec.PricePerSqm <= 0 {
				continue
			}
			sum = sum.Add(decimal.NewFromFloat(*rec.PricePerSqm))
			count++
		}
		if count == 0 {
			return result
		}
		mean := sum.Div(decimal.NewFromInt(int64(count)))
		amount, _ := mean.Mul(decimal.NewFromFloat(subjectAreaSqm)).Round(0).Float64()
		result.Amount = &amount
		result.BasisCount = count
		return result

	default:
		sum := decimal.Zero
		count := 0
		for _, id := range selectedIDs {
			rec, ok := set.Get(id)
			if !ok {
				continue
			}
			sum = sum.Add(decimal.NewFromInt(rec.Price))
			count++
		}
		if count == 0 {
			return result
		}
		amount, _ := sum.Div(decimal.NewFromInt(int64(count))).Round(0).Float64()
		result.Amount = &amount
		result.BasisCount = count
		return result
	}
}
