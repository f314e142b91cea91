// Package reports summarizes computed pick lines and delivery billing
// records for dashboards and exports.
package reports

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"example.com/backstage/services/pickaudit/internal/moves"
)

// QueueDescriptions maps summary queue labels to their display names.
var QueueDescriptions = map[string]string{
	"PI_PL (Mix)":       "Mix Pallet",
	"PI_PL (Total)":     "Mix Pallet",
	"PI_PL (Single)":    "Mix Pallet",
	"PI_PL_OE (Mix)":    "Mix Pallet OE",
	"PI_PL_OE (Total)":  "Mix Pallet OE",
	"PI_PL_OE (Single)": "Mix Pallet OE",
	"PI_PA_OE":          "Parcel OE",
	"PI_PA":             "Parcel",
	"PI_PA_RU":          "Parcel Express",
	"PI_PL_FU":          "Full Pallet",
	"PI_PL_FUOE":        "Full Pallet OE",
}

// Line is a computed pick line as the reports see it.
type Line struct {
	Task        string
	DeliveryID  string
	MaterialKey string
	Queue       string
	StorageBin  string
	Quantity    decimal.Decimal
	Moves       moves.Result
}

// QueueRow is one row of the queue summary.
type QueueRow struct {
	Queue          string  `json:"queue"`
	Description    string  `json:"description"`
	Tasks          int     `json:"tasks"`
	Deliveries     int     `json:"deliveries"`
	AvgBinsPerTask float64 `json:"avg_bins_per_task"`
	MovesPerBin    float64 `json:"moves_per_bin"`
	PctExact       float64 `json:"pct_exact"`
	PctEstimated   float64 `json:"pct_estimated"`
	TotalMoves     int64   `json:"total_moves"`
}

type taskGroup struct {
	task      string
	queue     string
	delivery  string
	moves     moves.Result
	materials map[string]struct{}
	bins      map[string]struct{}
}

// QueueSummary groups lines by picking task and queue. Mixed-pallet queues
// are split into single- and multi-material variants and additionally
// reported as a total. Rows are ordered by moves per bin, highest first.
func QueueSummary(lines []Line) []QueueRow {
	type groupKey struct{ task, queue string }
	groups := make(map[groupKey]*taskGroup)
	var order []groupKey
	for _, l := range lines {
		k := groupKey{task: l.Task, queue: l.Queue}
		g, ok := groups[k]
		if !ok {
			g = &taskGroup{
				task:      l.Task,
				queue:     l.Queue,
				delivery:  l.DeliveryID,
				materials: make(map[string]struct{}),
				bins:      make(map[string]struct{}),
			}
			groups[k] = g
			order = append(order, k)
		}
		g.moves = g.moves.Add(l.Moves)
		g.materials[l.MaterialKey] = struct{}{}
		if l.StorageBin != "" {
			g.bins[l.StorageBin] = struct{}{}
		}
	}

	type labelAcc struct {
		groups     int
		deliveries map[string]struct{}
		bins       int
		moves      moves.Result
	}
	labels := make(map[string]*labelAcc)
	add := func(label string, g *taskGroup) {
		a, ok := labels[label]
		if !ok {
			a = &labelAcc{deliveries: make(map[string]struct{})}
			labels[label] = a
		}
		a.groups++
		a.deliveries[g.delivery] = struct{}{}
		a.bins += len(g.bins)
		a.moves = a.moves.Add(g.moves)
	}
	for _, k := range order {
		g := groups[k]
		if isMixedPallet(g.queue) {
			suffix := " (Mix)"
			if len(g.materials) == 1 {
				suffix = " (Single)"
			}
			add(g.queue+suffix, g)
			add(g.queue+" (Total)", g)
			continue
		}
		add(g.queue, g)
	}

	names := make([]string, 0, len(labels))
	for name := range labels {
		names = append(names, name)
	}
	sort.Strings(names)

	rows := make([]QueueRow, 0, len(names))
	for _, name := range names {
		a := labels[name]
		row := QueueRow{
			Queue:          name,
			Description:    QueueDescriptions[name],
			Tasks:          a.groups,
			Deliveries:     len(a.deliveries),
			AvgBinsPerTask: float64(a.bins) / float64(a.groups),
			TotalMoves:     a.moves.Total,
		}
		if a.bins > 0 {
			row.MovesPerBin = float64(a.moves.Total) / float64(a.bins)
		}
		row.PctExact, row.PctEstimated = shares(a.moves)
		rows = append(rows, row)
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].MovesPerBin > rows[j].MovesPerBin })
	return rows
}

func isMixedPallet(queue string) bool {
	switch strings.ToUpper(queue) {
	case "PI_PL", "PI_PL_OE":
		return true
	}
	return false
}

func shares(r moves.Result) (exact, estimated float64) {
	if r.Total <= 0 {
		return 0, 0
	}
	return float64(r.Exact) / float64(r.Total) * 100, float64(r.Estimated) / float64(r.Total) * 100
}
