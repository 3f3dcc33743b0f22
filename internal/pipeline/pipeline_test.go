package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"comparables/server/internal/models"
)

var today = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func fixedPipeline() *Pipeline {
	return NewWithClock(func() time.Time { return today })
}

func intPtr(v int) *int { return &v }

func floatPtr(v float64) *float64 { return &v }

func buildSet(recs ...models.TransactionRecord) *models.TransactionSet {
	set := models.NewTransactionSet()
	for _, rec := range recs {
		set.Put(rec)
	}
	return set
}

func rec(id string, price int64) models.TransactionRecord {
	return models.TransactionRecord{
		PropertyID:      id,
		TransactionDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Price:           price,
	}
}

func TestApply_NoCriteriaReturnsAll(t *testing.T) {
	set := buildSet(rec("A", 100), rec("B", 200))
	got := fixedPipeline().Apply(set, models.FilterCriteria{}, models.SubjectContext{}, SortDateDesc)
	assert.Len(t, got, 2)
}

func TestApply_BedroomsExactAndOpen(t *testing.T) {
	a := rec("A", 100)
	a.Bedrooms = 2
	b := rec("B", 200)
	b.Bedrooms = 6
	set := buildSet(a, b)

	got := fixedPipeline().Apply(set, models.FilterCriteria{Bedrooms: intPtr(2)}, models.SubjectContext{}, SortPriceAsc)
	assert.Len(t, got, 1)
	assert.Equal(t, "A", got[0].PropertyID)

	got = fixedPipeline().Apply(set, models.FilterCriteria{Bedrooms: intPtr(3), BedroomsOpen: true}, models.SubjectContext{}, SortPriceAsc)
	assert.Len(t, got, 1)
	assert.Equal(t, "B", got[0].PropertyID)
}

func TestApply_ZeroBathroomsAlwaysPass(t *testing.T) {
	a := rec("A", 100) // bathrooms absent
	b := rec("B", 200)
	b.Bathrooms = 1
	c := rec("C", 300)
	c.Bathrooms = 3
	set := buildSet(a, b, c)

	got := fixedPipeline().Apply(set, models.FilterCriteria{Bathrooms: intPtr(3)}, models.SubjectContext{}, SortPriceAsc)
	assert.Len(t, got, 2)
	assert.Equal(t, "A", got[0].PropertyID)
	assert.Equal(t, "C", got[1].PropertyID)
}

func TestApply_DateWindow(t *testing.T) {
	recent := rec("A", 100)
	recent.TransactionDate = today.AddDate(0, 0, -10)
	old := rec("B", 200)
	old.TransactionDate = today.AddDate(0, 0, -400)
	future := rec("C", 300)
	future.TransactionDate = today.AddDate(0, 0, 5)
	set := buildSet(recent, old, future)

	got := fixedPipeline().Apply(set, models.FilterCriteria{WindowDays: intPtr(30)}, models.SubjectContext{}, SortPriceAsc)
	assert.Len(t, got, 1)
	assert.Equal(t, "A", got[0].PropertyID)

	// Future-dated records stay excluded however wide the window
	got = fixedPipeline().Apply(set, models.FilterCriteria{WindowDays: intPtr(100000)}, models.SubjectContext{}, SortPriceAsc)
	assert.Len(t, got, 2)
	for _, r := range got {
		assert.NotEqual(t, "C", r.PropertyID)
	}
}

func TestApply_PropertyTypeExact(t *testing.T) {
	a := rec("A", 100)
	a.PropertyType = "Flat"
	b := rec("B", 200)
	b.PropertyType = "flat"
	set := buildSet(a, b)

	got := fixedPipeline().Apply(set, models.FilterCriteria{PropertyType: "Flat"}, models.SubjectContext{}, SortPriceAsc)
	assert.Len(t, got, 1)
	assert.Equal(t, "A", got[0].PropertyID)
}

func TestApply_SameStreet(t *testing.T) {
	a := rec("A", 100)
	a.StreetName = "High Street"
	b := rec("B", 200) // street unknown, must fail the filter
	c := rec("C", 300)
	c.StreetName = "Low Street"
	set := buildSet(a, b, c)

	criteria := models.FilterCriteria{Distance: models.DistanceFilter{Mode: models.DistanceSameStreet}}
	subject := models.SubjectContext{StreetName: "High Street"}

	got := fixedPipeline().Apply(set, criteria, subject, SortPriceAsc)
	assert.Len(t, got, 1)
	assert.Equal(t, "A", got[0].PropertyID)
}

func TestApply_MaxMetres(t *testing.T) {
	a := rec("A", 100)
	a.DistanceMetres = floatPtr(150)
	b := rec("B", 200)
	b.DistanceMetres = floatPtr(900)
	c := rec("C", 300) // distance unknown
	set := buildSet(a, b, c)

	criteria := models.FilterCriteria{Distance: models.DistanceFilter{Mode: models.DistanceMaxMetres, MaxMetres: 500}}
	got := fixedPipeline().Apply(set, criteria, models.SubjectContext{}, SortPriceAsc)
	assert.Len(t, got, 1)
	assert.Equal(t, "A", got[0].PropertyID)
}

func TestApply_FilterMonotonicity(t *testing.T) {
	a := rec("A", 100)
	a.Bedrooms = 2
	a.Bathrooms = 1
	a.PropertyType = "Flat"
	b := rec("B", 200)
	b.Bedrooms = 3
	b.PropertyType = "House"
	set := buildSet(a, b)

	base := models.FilterCriteria{Bedrooms: intPtr(2)}
	narrowed := base
	narrowed.PropertyType = "House"

	p := fixedPipeline()
	baseLen := len(p.Apply(set, base, models.SubjectContext{}, SortPriceAsc))
	narrowedLen := len(p.Apply(set, narrowed, models.SubjectContext{}, SortPriceAsc))
	assert.LessOrEqual(t, narrowedLen, baseLen)
}

func TestApply_SortStability(t *testing.T) {
	a := rec("A", 100)
	b := rec("B", 100) // equal price: input order must survive
	c := rec("C", 50)
	set := buildSet(a, b, c)

	got := fixedPipeline().Apply(set, models.FilterCriteria{}, models.SubjectContext{}, SortPriceAsc)
	assert.Equal(t, []string{got[0].PropertyID, got[1].PropertyID, got[2].PropertyID}, []string{"C", "A", "B"})

	got = fixedPipeline().Apply(set, models.FilterCriteria{}, models.SubjectContext{}, SortPriceDesc)
	assert.Equal(t, "A", got[0].PropertyID)
	assert.Equal(t, "B", got[1].PropertyID)
}

func TestApply_SortDistanceUnknownLast(t *testing.T) {
	a := rec("A", 100)
	b := rec("B", 200)
	b.DistanceMetres = floatPtr(10)
	set := buildSet(a, b)

	got := fixedPipeline().Apply(set, models.FilterCriteria{}, models.SubjectContext{}, SortDistanceAsc)
	assert.Equal(t, "B", got[0].PropertyID)
	assert.Equal(t, "A", got[1].PropertyID)
}
