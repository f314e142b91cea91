package billing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/backstage/services/pickaudit/internal/hutree"
	"example.com/backstage/services/pickaudit/internal/moves"
)

func computed(delivery, material, queue, to string, q string, boxes []int, weight float64) Line {
	quantity := decimal.RequireFromString(q)
	return Line{
		DeliveryID:    delivery,
		MaterialKey:   material,
		Queue:         queue,
		TransferOrder: to,
		StorageBin:    "BIN-" + material,
		Quantity:      quantity,
		Moves: moves.Compute(moves.Line{
			Quantity:      quantity,
			Queue:         queue,
			BoxSizes:      boxes,
			PieceWeightKG: weight,
		}, moves.DefaultParams()),
	}
}

func TestAggregateScenario(t *testing.T) {
	lines := []Line{
		computed("D1", "M1", "PI_PL", "TO1", "125", []int{50, 10}, 0.5),
		computed("D1", "M2", "PI_PL", "TO2", "3", nil, 3.0),
	}
	units := []hutree.Unit{
		{InternalID: "1", ExternalID: "E1", DeliveryID: "D1"},
		{InternalID: "2", ExternalID: "E2", ParentID: "E1", DeliveryID: "D1"},
		{InternalID: "9", ExternalID: "E9", DeliveryID: "OTHER"},
	}

	records := Aggregate(Input{
		Lines:    lines,
		Units:    units,
		Resolver: hutree.NewResolver(hutree.NewContentsIndex([]hutree.ContentRecord{{HUID: "2"}}), nil),
		Chain:    Chain{QueueHeuristic{}},
	})

	require.Len(t, records, 1)
	rec := records[0]
	assert.Equal(t, moves.Result{Total: 9, Exact: 9}, lines[0].Moves)
	assert.Equal(t, moves.Result{Total: 3, Estimated: 3}, lines[1].Moves)
	assert.Equal(t, int64(12), rec.TotalMoves)
	assert.Equal(t, int64(9), rec.ExactMoves)
	assert.Equal(t, int64(3), rec.EstimatedMoves)
	assert.Equal(t, "N Misch", rec.Category.Label)
	assert.Equal(t, "root", rec.BillingMode)
	assert.Equal(t, 2, rec.PickingTasks)
	assert.Equal(t, 2, rec.Materials)
	assert.Equal(t, 2, rec.StorageBins)
	assert.Equal(t, 2, rec.Units.Units)
	assert.Equal(t, 1, rec.BillableUnits)
	assert.Equal(t, 1, rec.OverPick)
	assert.True(t, rec.Quantity.Equal(decimal.NewFromInt(128)))
}

func TestAggregateWithoutUnits(t *testing.T) {
	records := Aggregate(Input{
		Lines: []Line{
			computed("D2", "M1", "PI_PA", "TO1", "1", nil, 0),
			computed("D2", "M1", "PI_PA", "TO2", "1", nil, 0),
			computed("D2", "M1", "PI_PA", "TO3", "1", nil, 0),
		},
		Chain: Chain{QueueHeuristic{}},
	})

	require.Len(t, records, 1)
	assert.Equal(t, 0, records[0].BillableUnits)
	assert.Equal(t, 3, records[0].OverPick)
	assert.Equal(t, "leaf", records[0].BillingMode)
}

func TestAggregatePickingTasksWithoutTransferOrders(t *testing.T) {
	records := Aggregate(Input{
		Lines: []Line{
			computed("D3", "M1", "PI_PL", "", "1", nil, 0),
			computed("D3", "M2", "PI_PL", "nan", "1", nil, 0),
		},
	})

	require.Len(t, records, 1)
	assert.Equal(t, 1, records[0].PickingTasks)
	assert.True(t, records[0].Category.IsUncategorized())
}

func TestAggregateDominantQueue(t *testing.T) {
	records := Aggregate(Input{
		Lines: []Line{
			computed("D4", "M1", "PI_PL", "1", "1", nil, 0),
			computed("D4", "M2", "PI_PA", "2", "1", nil, 0),
			computed("D4", "M3", "PI_PA", "3", "1", nil, 0),
			computed("D5", "M1", "PI_PL_OE", "4", "1", nil, 0),
			computed("D5", "M1", "PI_PA", "5", "1", nil, 0),
		},
		Chain: Chain{QueueHeuristic{}},
	})

	require.Len(t, records, 2)
	assert.Equal(t, "D4", records[0].DeliveryID)
	assert.Equal(t, "PI_PA", records[0].DominantQueue)
	assert.Equal(t, "E Misch", records[0].Category.Label)

	// Ties go to the queue seen first.
	assert.Equal(t, "PI_PL_OE", records[1].DominantQueue)
	assert.Equal(t, "O Sortenrein", records[1].Category.Label)
}

func TestAggregateDoesNotMutateInput(t *testing.T) {
	lines := []Line{computed("D1", "M1", "PI_PL", "TO1", "5", []int{2}, 0)}
	units := []hutree.Unit{{InternalID: "0001", ExternalID: "0E1", DeliveryID: "D1"}}
	before := append([]hutree.Unit(nil), units...)

	first := Aggregate(Input{Lines: lines, Units: units})
	second := Aggregate(Input{Lines: lines, Units: units})

	assert.Equal(t, before, units)
	assert.Equal(t, first, second)
}

func TestOverPick(t *testing.T) {
	assert.Equal(t, 0, OverPick(2, 5))
	assert.Equal(t, 0, OverPick(3, 3))
	assert.Equal(t, 4, OverPick(4, 0))
}
