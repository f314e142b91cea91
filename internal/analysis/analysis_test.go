package analysis

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/backstage/services/pickaudit/internal/billing"
	"example.com/backstage/services/pickaudit/internal/hutree"
	"example.com/backstage/services/pickaudit/internal/moves"
	"example.com/backstage/services/pickaudit/internal/packaging"
	"example.com/backstage/services/pickaudit/internal/packtime"
	"example.com/backstage/services/pickaudit/internal/picking"
)

func scenarioInputs() Inputs {
	return Inputs{
		Picks: []picking.Record{
			{DeliveryID: "D1", MaterialID: "M1", Quantity: decimal.NewFromInt(125), Queue: "PI_PL", TransferOrder: "T1", StorageBin: "B1"},
			{DeliveryID: "D1", MaterialID: "M2", Quantity: decimal.NewFromInt(3), Queue: "PI_PL", TransferOrder: "T2", StorageBin: "B2"},
		},
		Packaging: []packaging.MasterRecord{
			{MaterialID: "M1", UnitOfMeasure: "KAR", Numerator: 50},
			{MaterialID: "M1", UnitOfMeasure: "KAR", Numerator: 10},
			{MaterialID: "M1", UnitOfMeasure: "ST", GrossWeight: 0.5, WeightUnit: "KG", Length: 5, Width: 2, Height: 1, DimensionUnit: "CM"},
			{MaterialID: "M2", UnitOfMeasure: "ST", GrossWeight: 3.0, WeightUnit: "KG"},
		},
		HandlingUnits: []hutree.Unit{
			{InternalID: "100", ExternalID: "EXT-PAL", DeliveryID: "D1"},
			{InternalID: "101", ExternalID: "EXT-BOX", ParentID: "EXT-PAL", DeliveryID: "D1"},
		},
		Contents: []hutree.ContentRecord{
			{HUID: "101", DeliveryID: "D1", MaterialID: "M1"},
			{HUID: "101", DeliveryID: "D1", MaterialID: "M2"},
		},
	}
}

func TestRunScenario(t *testing.T) {
	in := scenarioInputs()
	report := Run(in, DefaultOptions())

	require.Len(t, report.Lines, 2)
	assert.Equal(t, moves.Result{Total: 9, Exact: 9, Estimated: 0}, report.Lines[0].Moves)
	assert.Equal(t, moves.Result{Total: 3, Exact: 0, Estimated: 3}, report.Lines[1].Moves)

	require.Len(t, report.Deliveries, 1)
	d := report.Deliveries[0]
	assert.Equal(t, int64(12), d.TotalMoves)
	assert.Equal(t, "N Misch", d.Category.Label)
	assert.Equal(t, "root", d.BillingMode)
	assert.Equal(t, 2, d.PickingTasks)
	assert.Equal(t, 1, d.BillableUnits)
	assert.Equal(t, 1, d.OverPick)
	assert.InDelta(t, 125*0.5+3*3.0, d.WeightKG, 1e-9)

	assert.Equal(t, int64(12), report.Totals.TotalMoves)
	assert.Equal(t, 1, report.Totals.DeliveriesWithOverPick)
	assert.Equal(t, moves.DefaultParams(), report.Params)
	assert.Nil(t, report.Packing)

	require.Len(t, report.EstimatedMaterials, 1)
	assert.Equal(t, "M2", report.EstimatedMaterials[0].MaterialKey)
}

func TestRunIsRepeatableAndLeavesInputsAlone(t *testing.T) {
	in := scenarioInputs()
	first := Run(in, DefaultOptions())
	second := Run(in, DefaultOptions())

	assert.Equal(t, first, second)
	assert.Equal(t, "D1", in.Picks[0].DeliveryID)
	assert.Equal(t, "EXT-PAL", in.HandlingUnits[1].ParentID)
}

func TestRunParametersChangeMoves(t *testing.T) {
	in := scenarioInputs()
	opts := DefaultOptions()
	opts.Params.WeightLimitKG = 5
	opts.Params.GrabSize = 3

	report := Run(in, opts)
	require.Len(t, report.Lines, 2)
	// M1: 4 boxes plus ceil(5/3) handfuls.
	assert.Equal(t, int64(6), report.Lines[0].Moves.Total)
	// M2 is now light: one handful of three.
	assert.Equal(t, moves.Result{Total: 1, Exact: 0, Estimated: 1}, report.Lines[1].Moves)
}

func TestRunSanitizesParams(t *testing.T) {
	opts := DefaultOptions()
	opts.Params.GrabSize = 0
	report := Run(scenarioInputs(), opts)
	assert.Equal(t, 1, report.Params.GrabSize)
}

func TestRunFullUnitShortcutMarksHandlingUnit(t *testing.T) {
	in := Inputs{
		Picks: []picking.Record{
			{DeliveryID: "D9", MaterialID: "M1", Quantity: decimal.NewFromInt(400), Queue: "PI_PL_FU", RemovalFlag: "X", TransferOrder: "T9", HandlingUnit: "0000900"},
		},
		HandlingUnits: []hutree.Unit{
			{InternalID: "900", ExternalID: "E900", DeliveryID: "D9", PackagingType: "1000"},
			{InternalID: "901", ExternalID: "E901", ParentID: "E900", DeliveryID: "D9"},
		},
		Contents: []hutree.ContentRecord{{HUID: "901", DeliveryID: "D9", MaterialID: "M1"}},
	}

	report := Run(in, DefaultOptions())
	require.Len(t, report.Deliveries, 1)
	d := report.Deliveries[0]
	assert.Equal(t, moves.Result{Total: 1, Exact: 1}, report.Lines[0].Moves)
	assert.Equal(t, "N Sortenrein", d.Category.Label)
	assert.Equal(t, 1, d.BillableUnits)
	assert.Equal(t, 1, d.Units.Direct)
	assert.Equal(t, 1, report.Stats.FullUnitRemovals)
	assert.Equal(t, 1, report.Kinds[0].Units)
	assert.Equal(t, hutree.KindFullPallet, report.Kinds[0].Kind)
}

func TestRunExplicitCategoryWins(t *testing.T) {
	in := scenarioInputs()
	in.Categories = []billing.CategoryRecord{{DeliveryID: "D1", Category: "E", Kind: "Misch"}}

	report := Run(in, DefaultOptions())
	d := report.Deliveries[0]
	assert.Equal(t, "E Misch", d.Category.Label)
	assert.Equal(t, "leaf", d.BillingMode)
	assert.Equal(t, 1, d.BillableUnits)
}

func TestRunPackingTimes(t *testing.T) {
	in := scenarioInputs()
	in.PackingTimes = []packtime.Record{{DeliveryID: "D1", Customer: "ACME", Minutes: 6, Cartons: "Box (2x)"}}

	report := Run(in, DefaultOptions())
	require.NotNil(t, report.Packing)
	assert.Equal(t, 1, report.Packing.EndToEnd.Deliveries)
	assert.InDelta(t, 2, report.Packing.EndToEnd.Rows[0].MovesPerMinute, 1e-9)
	require.Len(t, report.Packing.Customers, 1)
	require.Len(t, report.Packing.Packaging, 1)
	assert.Equal(t, "Box", report.Packing.Packaging[0].Packaging)
}

func TestRunWithoutPicks(t *testing.T) {
	report := Run(Inputs{}, DefaultOptions())
	assert.Empty(t, report.Lines)
	assert.Empty(t, report.Deliveries)
	assert.Zero(t, report.Totals.Deliveries)
}

func TestReportDeliveryAndAudit(t *testing.T) {
	report := Run(scenarioInputs(), DefaultOptions())

	d, ok := report.Delivery(" d1 ")
	require.True(t, ok)
	assert.Equal(t, "D1", d.DeliveryID)
	_, ok = report.Delivery("D404")
	assert.False(t, ok)

	entries := report.Audit("D1", "")
	require.Len(t, entries, 2)
	b := entries[0].Breakdown
	assert.Equal(t, []moves.BoxStep{{Size: 50, Count: 2}, {Size: 10, Count: 2}}, b.Boxes)
	assert.True(t, b.LooseQuantity.Equal(decimal.NewFromInt(5)))
	assert.Equal(t, report.Lines[0].Moves, b.Result)

	byTO := report.Audit("", "T2")
	require.Len(t, byTO, 1)
	assert.Equal(t, "M2", byTO[0].MaterialID)
	assert.True(t, byTO[0].Breakdown.Heavy)

	assert.Empty(t, report.Audit("", ""))
}
