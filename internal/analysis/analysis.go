// Package analysis runs the whole picking and billing pipeline over one
// snapshot of input tables. Run is pure: it never modifies its inputs and
// returns the same report for the same inputs and options.
package analysis

import (
	"strings"

	"example.com/backstage/services/pickaudit/internal/billing"
	"example.com/backstage/services/pickaudit/internal/hutree"
	"example.com/backstage/services/pickaudit/internal/matchkey"
	"example.com/backstage/services/pickaudit/internal/moves"
	"example.com/backstage/services/pickaudit/internal/packaging"
	"example.com/backstage/services/pickaudit/internal/packtime"
	"example.com/backstage/services/pickaudit/internal/picking"
	"example.com/backstage/services/pickaudit/internal/reports"
)

const defaultTopMaterials = 20

// Inputs is a read-only snapshot of every table an analysis can use. Only
// Picks is required; every other table degrades gracefully when empty.
type Inputs struct {
	Picks           []picking.Record
	Queues          []picking.QueueRecord
	Packaging       []packaging.MasterRecord
	Overrides       []packaging.OverrideRecord
	HandlingUnits   []hutree.Unit
	Contents        []hutree.ContentRecord
	Categories      []billing.CategoryRecord
	Deliveries      []billing.DeliveryHeader
	ShippingPoints  []billing.ShippingPoint
	Carriers        []billing.Carrier
	DirectMovements []string
	PackingTimes    []packtime.Record
}

// Options parameterize a run.
type Options struct {
	Params       moves.Params
	Picking      picking.Options
	TopMaterials int
}

// DefaultOptions returns the ergonomic defaults and standard exclusions.
func DefaultOptions() Options {
	return Options{
		Params:       moves.DefaultParams(),
		Picking:      picking.DefaultOptions(),
		TopMaterials: defaultTopMaterials,
	}
}

// LineResult is a prepared pick line with its computed moves.
type LineResult struct {
	picking.Line
	Moves moves.Result `json:"moves"`
}

// PackingReport is the packing-time part of a report.
type PackingReport struct {
	EndToEnd  packtime.E2ESummary     `json:"end_to_end"`
	Customers []packtime.GroupAverage `json:"customers"`
	Materials []packtime.GroupAverage `json:"materials"`
	Packaging []packtime.PackagingUse `json:"packaging"`
	Delays    []packtime.Delay        `json:"delays"`
}

// Report is the complete result of one run.
type Report struct {
	Params             moves.Params             `json:"params"`
	Stats              picking.Stats            `json:"stats"`
	Lines              []LineResult             `json:"lines"`
	Deliveries         []billing.DeliveryRecord `json:"deliveries"`
	Queues             []reports.QueueRow       `json:"queues"`
	TopMaterials       []reports.MaterialRow    `json:"top_materials"`
	EstimatedMaterials []reports.MaterialRow    `json:"estimated_materials"`
	Categories         []reports.CategoryRow    `json:"categories"`
	Totals             reports.Totals           `json:"totals"`
	Kinds              []reports.KindRow        `json:"kinds"`
	Packing            *PackingReport           `json:"packing,omitempty"`
}

// Run executes the pipeline.
func Run(in Inputs, opts Options) Report {
	params := opts.Params.Sanitized()
	catalog := packaging.NewCatalog(in.Packaging, in.Overrides)

	prepared, stats := picking.Prepare(in.Picks, in.Queues, catalog, opts.Picking)

	lines := make([]LineResult, len(prepared))
	billingLines := make([]billing.Line, len(prepared))
	reportLines := make([]reports.Line, len(prepared))
	direct := matchkey.NewSet(in.DirectMovements...)
	for i, l := range prepared {
		result := moves.Compute(l.MoveInput(), params)
		lines[i] = LineResult{Line: l, Moves: result}
		billingLines[i] = billing.Line{
			DeliveryID:    l.DeliveryID,
			MaterialKey:   l.MatchKey,
			Queue:         l.Queue,
			TransferOrder: l.TransferOrder,
			StorageBin:    l.StorageBin,
			Quantity:      l.Quantity,
			WeightKG:      l.Quantity.InexactFloat64() * l.PieceWeightKG,
			Moves:         result,
		}
		reportLines[i] = reports.Line{
			Task:        l.TaskID(stats.TaskKey),
			DeliveryID:  l.DeliveryID,
			MaterialKey: l.MatchKey,
			Queue:       l.Queue,
			StorageBin:  l.StorageBin,
			Quantity:    l.Quantity,
			Moves:       result,
		}
		if moves.IsFullUnitRemoval(l.Queue, l.RemovalFlag) {
			direct.Add(l.HandlingUnit)
		}
	}

	chain := billing.Chain{
		billing.NewExplicitTable(in.Categories),
		billing.NewCarrierLookup(in.Deliveries, in.ShippingPoints, in.Carriers),
		billing.QueueHeuristic{},
	}
	resolver := hutree.NewResolver(hutree.NewContentsIndex(in.Contents), direct)
	deliveries := billing.Aggregate(billing.Input{
		Lines:    billingLines,
		Units:    in.HandlingUnits,
		Resolver: resolver,
		Chain:    chain,
	})

	top := opts.TopMaterials
	if top <= 0 {
		top = defaultTopMaterials
	}

	report := Report{
		Params:             params,
		Stats:              stats,
		Lines:              lines,
		Deliveries:         deliveries,
		Queues:             reports.QueueSummary(reportLines),
		TopMaterials:       reports.TopMaterials(reportLines, "", top),
		EstimatedMaterials: reports.EstimatedRanking(reportLines, top),
		Categories:         reports.CategorySummary(deliveries),
		Totals:             reports.BillingTotals(deliveries),
		Kinds:              reports.KindBreakdown(kindCounts(deliveries)),
	}
	if len(in.PackingTimes) > 0 {
		report.Packing = &PackingReport{
			EndToEnd:  packtime.Join(deliveries, in.PackingTimes),
			Customers: packtime.ByCustomer(in.PackingTimes),
			Materials: packtime.ByMaterial(in.PackingTimes, top),
			Packaging: packtime.Packaging(in.PackingTimes),
			Delays:    packtime.Delays(in.PackingTimes),
		}
	}
	return report
}

func kindCounts(deliveries []billing.DeliveryRecord) map[hutree.Kind]int {
	counts := make(map[hutree.Kind]int, 3)
	for _, d := range deliveries {
		for k, n := range d.Kinds {
			counts[k] += n
		}
	}
	return counts
}

// Delivery returns the billing record of a delivery.
func (r Report) Delivery(id string) (billing.DeliveryRecord, bool) {
	key := matchkey.Normalize(id)
	for _, d := range r.Deliveries {
		if matchkey.Normalize(d.DeliveryID) == key {
			return d, true
		}
	}
	return billing.DeliveryRecord{}, false
}

// AuditEntry explains the moves of one line.
type AuditEntry struct {
	DeliveryID    string          `json:"delivery_id"`
	TransferOrder string          `json:"transfer_order"`
	MaterialID    string          `json:"material_id"`
	Queue         string          `json:"queue"`
	Breakdown     moves.Breakdown `json:"breakdown"`
}

// Audit explains every line of a delivery or transfer order. A blank filter
// matches nothing.
func (r Report) Audit(deliveryID, transferOrder string) []AuditEntry {
	var out []AuditEntry
	for _, l := range r.Lines {
		if !matchesFilter(l.DeliveryID, deliveryID) && !matchesFilter(l.TransferOrder, transferOrder) {
			continue
		}
		out = append(out, AuditEntry{
			DeliveryID:    l.DeliveryID,
			TransferOrder: l.TransferOrder,
			MaterialID:    l.MaterialID,
			Queue:         l.Queue,
			Breakdown:     moves.Explain(l.MoveInput(), r.Params),
		})
	}
	return out
}

func matchesFilter(value, filter string) bool {
	if strings.TrimSpace(filter) == "" || matchkey.IsBlank(value) {
		return false
	}
	return matchkey.Normalize(value) == matchkey.Normalize(filter)
}
