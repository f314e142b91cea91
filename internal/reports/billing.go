package reports

import (
	"sort"

	"example.com/backstage/services/pickaudit/internal/billing"
	"example.com/backstage/services/pickaudit/internal/hutree"
	"example.com/backstage/services/pickaudit/internal/moves"
)

// CategoryRow summarizes the deliveries of one billing category.
type CategoryRow struct {
	Category      string  `json:"category"`
	BillingMode   string  `json:"billing_mode"`
	Deliveries    int     `json:"deliveries"`
	PickingTasks  int     `json:"picking_tasks"`
	BillableUnits int     `json:"billable_units"`
	TotalMoves    int64   `json:"total_moves"`
	MovesPerBin   float64 `json:"moves_per_bin"`
	OverPick      int     `json:"over_pick"`
}

// CategorySummary groups delivery records by category label, largest
// categories first.
func CategorySummary(records []billing.DeliveryRecord) []CategoryRow {
	index := make(map[string]int)
	var rows []CategoryRow
	bins := make(map[string]int)
	for _, r := range records {
		label := r.Category.Label
		i, ok := index[label]
		if !ok {
			i = len(rows)
			index[label] = i
			rows = append(rows, CategoryRow{Category: label, BillingMode: r.BillingMode})
		}
		row := &rows[i]
		row.Deliveries++
		row.PickingTasks += r.PickingTasks
		row.BillableUnits += r.BillableUnits
		row.TotalMoves += r.TotalMoves
		row.OverPick += r.OverPick
		bins[label] += r.StorageBins
	}
	for i := range rows {
		if b := bins[rows[i].Category]; b > 0 {
			rows[i].MovesPerBin = float64(rows[i].TotalMoves) / float64(b)
		}
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Deliveries > rows[j].Deliveries })
	return rows
}

// Totals are the headline billing figures over all deliveries.
type Totals struct {
	Deliveries             int     `json:"deliveries"`
	PickingTasks           int     `json:"picking_tasks"`
	BillableUnits          int     `json:"billable_units"`
	TotalMoves             int64   `json:"total_moves"`
	ExactMoves             int64   `json:"exact_moves"`
	EstimatedMoves         int64   `json:"estimated_moves"`
	PctExact               float64 `json:"pct_exact"`
	PctEstimated           float64 `json:"pct_estimated"`
	MovesPerBillableUnit   float64 `json:"moves_per_billable_unit"`
	DeliveriesWithOverPick int     `json:"deliveries_with_over_pick"`
	OverPick               int     `json:"over_pick"`
	Uncategorized          int     `json:"uncategorized"`
}

// BillingTotals sums delivery records.
func BillingTotals(records []billing.DeliveryRecord) Totals {
	var t Totals
	var m moves.Result
	for _, r := range records {
		t.Deliveries++
		t.PickingTasks += r.PickingTasks
		t.BillableUnits += r.BillableUnits
		t.OverPick += r.OverPick
		if r.OverPick > 0 {
			t.DeliveriesWithOverPick++
		}
		if r.Category.IsUncategorized() {
			t.Uncategorized++
		}
		m = m.Add(moves.Result{Total: r.TotalMoves, Exact: r.ExactMoves, Estimated: r.EstimatedMoves})
	}
	t.TotalMoves, t.ExactMoves, t.EstimatedMoves = m.Total, m.Exact, m.Estimated
	t.PctExact, t.PctEstimated = shares(m)
	if t.BillableUnits > 0 {
		t.MovesPerBillableUnit = float64(t.TotalMoves) / float64(t.BillableUnits)
	}
	return t
}

// KindRow counts units of one kind.
type KindRow struct {
	Kind  hutree.Kind `json:"kind"`
	Units int         `json:"units"`
}

// KindBreakdown orders unit kind counts by the fixed kind order.
func KindBreakdown(counts map[hutree.Kind]int) []KindRow {
	rows := make([]KindRow, 0, 3)
	for _, k := range []hutree.Kind{hutree.KindFullPallet, hutree.KindSingle, hutree.KindMixed} {
		rows = append(rows, KindRow{Kind: k, Units: counts[k]})
	}
	return rows
}
