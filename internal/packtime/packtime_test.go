package packtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/backstage/services/pickaudit/internal/billing"
)

func TestParseMinutes(t *testing.T) {
	tests := []struct {
		raw  string
		want float64
	}{
		{"", 0},
		{"nan", 0},
		{"12", 12},
		{"12.5", 12.5},
		{"0.5", 720},
		{"1:30:00", 90},
		{"10:30", 10.5},
		{"abc", 0},
		{"1:x", 0},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.InDelta(t, tt.want, ParseMinutes(tt.raw), 1e-9)
		})
	}
}

func TestFlagSet(t *testing.T) {
	for _, v := range []string{"Y", "x", "yes", "Ano", "1", "2.5"} {
		assert.True(t, FlagSet(v), v)
	}
	for _, v := range []string{"", "N", "0", "no"} {
		assert.False(t, FlagSet(v), v)
	}
}

func TestJoin(t *testing.T) {
	deliveries := []billing.DeliveryRecord{
		{DeliveryID: "0080001", PickingTasks: 3, TotalMoves: 20, BillableUnits: 2},
		{DeliveryID: "80002", PickingTasks: 1, TotalMoves: 5, BillableUnits: 0},
		{DeliveryID: "80003", PickingTasks: 1, TotalMoves: 5, BillableUnits: 1},
	}
	records := []Record{
		{DeliveryID: "80001", Customer: " ACME ", Minutes: 10},
		{DeliveryID: "80001", Customer: "ACME", Minutes: 99},
		{DeliveryID: "80002", Customer: "Beta", Minutes: 5},
		{DeliveryID: "80003", Customer: "Beta", Minutes: 0},
	}

	got := Join(deliveries, records)
	require.Len(t, got.Rows, 2)
	assert.Equal(t, 2, got.Deliveries)

	assert.Equal(t, "ACME", got.Rows[0].Customer)
	assert.InDelta(t, 5, got.Rows[0].MinutesPerUnit, 1e-9)
	assert.InDelta(t, 2, got.Rows[0].MovesPerMinute, 1e-9)

	assert.Zero(t, got.Rows[1].MinutesPerUnit)
	assert.InDelta(t, 1, got.Rows[1].MovesPerMinute, 1e-9)

	assert.InDelta(t, 7.5, got.AvgMinutes, 1e-9)
	assert.InDelta(t, 2.5, got.AvgMinutesPerUnit, 1e-9)
}

func TestJoinEmpty(t *testing.T) {
	got := Join(nil, nil)
	assert.Zero(t, got.Deliveries)
	assert.Empty(t, got.Rows)
}

func TestByCustomerAndMaterial(t *testing.T) {
	records := []Record{
		{DeliveryID: "1", Customer: "A", MaterialID: "007", Minutes: 10},
		{DeliveryID: "2", Customer: "A", MaterialID: "7", Minutes: 20},
		{DeliveryID: "3", Customer: "B", MaterialID: "8", Minutes: 30},
		{DeliveryID: "4", Customer: "B", MaterialID: "", Minutes: 0},
	}

	customers := ByCustomer(records)
	require.Len(t, customers, 2)
	assert.Equal(t, GroupAverage{Key: "B", Deliveries: 1, AvgMinutes: 30}, customers[0])
	assert.Equal(t, GroupAverage{Key: "A", Deliveries: 2, AvgMinutes: 15}, customers[1])

	materials := ByMaterial(records, 1)
	require.Len(t, materials, 1)
	assert.Equal(t, "8", materials[0].Key)

	all := ByMaterial(records, 0)
	require.Len(t, all, 2)
	assert.Equal(t, "7", all[1].Key)
	assert.Equal(t, 2, all[1].Deliveries)
}

func TestParseUsage(t *testing.T) {
	got := ParseUsage("KLT 4314 (2x), Karton B2 ( 3 X ); junk")
	assert.Equal(t, []Usage{{Name: "KLT 4314", Pieces: 2}, {Name: "Karton B2", Pieces: 3}}, got)
	assert.Empty(t, ParseUsage("nothing here"))
}

func TestPackaging(t *testing.T) {
	records := []Record{
		{Minutes: 10, KLT: "KLT (2x)", Cartons: "Box (1x)"},
		{Minutes: 30, KLT: "KLT (1x)"},
		{Minutes: 0, KLT: "KLT (9x)"},
		{Minutes: 5, Pallets: "nan"},
	}

	got := Packaging(records)
	require.Len(t, got, 2)
	assert.Equal(t, PackagingUse{Packaging: "KLT", Occurrences: 2, Pieces: 3, AvgMinutes: 20}, got[0])
	assert.Equal(t, PackagingUse{Packaging: "Box", Occurrences: 1, Pieces: 1, AvgMinutes: 10}, got[1])
}

func TestDelays(t *testing.T) {
	records := []Record{
		{Minutes: 30, Events: map[string]bool{EventSerialScan: true}},
		{Minutes: 10},
		{Minutes: 20, Events: map[string]bool{EventLabelReprint: true}},
	}

	got := Delays(records)
	require.Len(t, got, 2)
	assert.Equal(t, EventSerialScan, got[0].Event)
	assert.InDelta(t, 15, got[0].Difference, 1e-9)
	assert.Equal(t, EventLabelReprint, got[1].Event)
	assert.InDelta(t, 0, got[1].Difference, 1e-9)
}
