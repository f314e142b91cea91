package packaging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogBoxSizes(t *testing.T) {
	catalog := NewCatalog([]MasterRecord{
		{MaterialID: "000123", UnitOfMeasure: "KAR", Numerator: 10},
		{MaterialID: "123", UnitOfMeasure: "PAL", Numerator: 500},
		{MaterialID: "123", UnitOfMeasure: "vpe", Numerator: 50},
		{MaterialID: "123", UnitOfMeasure: "KAR", Numerator: 10},
		{MaterialID: "456", UnitOfMeasure: "KAR", Numerator: 1},
	}, nil)

	assert.Equal(t, []int{50, 10}, catalog.Lookup("123").BoxSizes)
	assert.True(t, catalog.Lookup("123").Known())

	// A box unit with a numerator of one carries no box knowledge.
	assert.Empty(t, catalog.Lookup("456").BoxSizes)
	assert.False(t, catalog.Lookup("456").Known())

	assert.Empty(t, catalog.Lookup("999").BoxSizes)
}

func TestCatalogPieceData(t *testing.T) {
	catalog := NewCatalog([]MasterRecord{
		{MaterialID: "A1", UnitOfMeasure: "ST", GrossWeight: 1500, WeightUnit: "G",
			Length: 120, Width: 80, Height: 300, DimensionUnit: "MM"},
		{MaterialID: "A1", UnitOfMeasure: "ST", GrossWeight: 9, WeightUnit: "KG"},
		{MaterialID: "B2", UnitOfMeasure: "PCE", GrossWeight: 2.5, WeightUnit: "KG",
			Length: 0.4, Width: 0.2, Height: 0.1, DimensionUnit: "M"},
		{MaterialID: "C3", UnitOfMeasure: "EA", GrossWeight: 0.3,
			Length: 12, Width: 7, Height: 3},
	}, nil)

	a := catalog.Lookup("A1")
	assert.InDelta(t, 1.5, a.WeightKG, 1e-9)
	assert.InDelta(t, 30.0, a.MaxDimCM, 1e-9)

	b := catalog.Lookup("B2")
	assert.InDelta(t, 2.5, b.WeightKG, 1e-9)
	assert.InDelta(t, 40.0, b.MaxDimCM, 1e-9)

	c := catalog.Lookup("C3")
	assert.InDelta(t, 12.0, c.MaxDimCM, 1e-9)

	unknown := catalog.Lookup("nope")
	assert.Zero(t, unknown.WeightKG)
	assert.Zero(t, unknown.MaxDimCM)
}

func TestCatalogOverridePrecedence(t *testing.T) {
	catalog := NewCatalog(
		[]MasterRecord{
			{MaterialID: "77", UnitOfMeasure: "KAR", Numerator: 20},
			{MaterialID: "77", UnitOfMeasure: "ST", GrossWeight: 0.7},
			{MaterialID: "88", UnitOfMeasure: "KAR", Numerator: 12},
		},
		[]OverrideRecord{
			{MaterialID: "0077", Description: "po kusech"},
			{MaterialID: "88", Description: "bez poznámky"},
			{MaterialID: "99", Description: "K-5ks"},
			{MaterialID: "nan", Description: "K-7ks"},
		},
	)

	// The piece-wise override wins over the master box of 20.
	entry := catalog.Lookup("77")
	assert.Equal(t, []int{1}, entry.BoxSizes)
	assert.InDelta(t, 0.7, entry.WeightKG, 1e-9)

	// An unparseable override leaves master data in place.
	assert.Equal(t, []int{12}, catalog.Lookup("88").BoxSizes)
	assert.Equal(t, []int{5}, catalog.Lookup("99").BoxSizes)

	sizes, ok := catalog.Override("77")
	require.True(t, ok)
	assert.Equal(t, []int{1}, sizes)
	assert.Equal(t, []int{20}, catalog.MasterBoxes("77"))
	assert.Equal(t, 2, catalog.OverrideCount())
}

func TestCatalogLookupReturnsCopy(t *testing.T) {
	catalog := NewCatalog([]MasterRecord{{MaterialID: "1", UnitOfMeasure: "KAR", Numerator: 6}}, nil)

	entry := catalog.Lookup("1")
	entry.BoxSizes[0] = 99

	assert.Equal(t, []int{6}, catalog.Lookup("1").BoxSizes)
}
