package billing

import (
	"github.com/shopspring/decimal"

	"example.com/backstage/services/pickaudit/internal/hutree"
	"example.com/backstage/services/pickaudit/internal/matchkey"
	"example.com/backstage/services/pickaudit/internal/moves"
)

// Line is a computed pick line as the aggregator sees it.
type Line struct {
	DeliveryID    string
	MaterialKey   string
	Queue         string
	TransferOrder string
	StorageBin    string
	Quantity      decimal.Decimal
	WeightKG      float64
	Moves         moves.Result
}

// DeliveryRecord is the reconciliation of one delivery.
type DeliveryRecord struct {
	DeliveryID     string              `json:"delivery_id"`
	Category       Category            `json:"category"`
	BillingMode    string              `json:"billing_mode"`
	DominantQueue  string              `json:"dominant_queue"`
	Lines          int                 `json:"lines"`
	PickingTasks   int                 `json:"picking_tasks"`
	TotalMoves     int64               `json:"total_moves"`
	ExactMoves     int64               `json:"exact_moves"`
	EstimatedMoves int64               `json:"estimated_moves"`
	StorageBins    int                 `json:"storage_bins"`
	Materials      int                 `json:"materials"`
	Quantity       decimal.Decimal     `json:"quantity"`
	WeightKG       float64             `json:"weight_kg"`
	Units          hutree.Resolution   `json:"units"`
	Kinds          map[hutree.Kind]int `json:"kinds,omitempty"`
	BillableUnits  int                 `json:"billable_units"`
	OverPick       int                 `json:"over_pick"`
}

// Input is everything needed to reconcile a set of deliveries. Inputs are
// only read.
type Input struct {
	Lines    []Line
	Units    []hutree.Unit
	Resolver *hutree.Resolver
	Chain    Chain
}

type deliveryAcc struct {
	record    DeliveryRecord
	tasks     map[string]struct{}
	bins      map[string]struct{}
	materials map[string]struct{}
	queues    map[string]int
	queueSeq  []string
}

// Aggregate reconciles every delivery that has pick lines, in the order the
// deliveries first appear.
func Aggregate(in Input) []DeliveryRecord {
	resolver := in.Resolver
	if resolver == nil {
		resolver = hutree.NewResolver(nil, nil)
	}

	accs := make(map[string]*deliveryAcc)
	var order []string
	for _, l := range in.Lines {
		if matchkey.IsBlank(l.DeliveryID) {
			continue
		}
		key := matchkey.Normalize(l.DeliveryID)
		acc, ok := accs[key]
		if !ok {
			acc = &deliveryAcc{
				record:    DeliveryRecord{DeliveryID: l.DeliveryID, Quantity: decimal.Zero},
				tasks:     make(map[string]struct{}),
				bins:      make(map[string]struct{}),
				materials: make(map[string]struct{}),
				queues:    make(map[string]int),
			}
			accs[key] = acc
			order = append(order, key)
		}
		acc.add(l)
	}

	unitsByDelivery := make(map[string][]hutree.Unit)
	for _, u := range in.Units {
		if matchkey.IsBlank(u.DeliveryID) {
			continue
		}
		key := matchkey.Normalize(u.DeliveryID)
		if _, ok := accs[key]; ok {
			unitsByDelivery[key] = append(unitsByDelivery[key], u)
		}
	}

	records := make([]DeliveryRecord, 0, len(order))
	for _, key := range order {
		acc := accs[key]
		rec := acc.finish()

		rec.Category = in.Chain.Resolve(DeliveryFacts{
			DeliveryID:    rec.DeliveryID,
			DominantQueue: rec.DominantQueue,
			Materials:     rec.Materials,
		})
		mode := rec.Category.BillingMode()
		rec.BillingMode = mode.String()

		tree := hutree.Build(rec.DeliveryID, unitsByDelivery[key])
		rec.Units = resolver.Resolve(tree, mode)
		if tree.Len() > 0 {
			rec.Kinds = resolver.KindCounts(tree)
		}
		rec.BillableUnits = rec.Units.Billable
		rec.OverPick = OverPick(rec.PickingTasks, rec.BillableUnits)

		records = append(records, rec)
	}
	return records
}

// OverPick returns the picking tasks not covered by billable units.
func OverPick(tasks, billable int) int {
	if d := tasks - billable; d > 0 {
		return d
	}
	return 0
}

func (a *deliveryAcc) add(l Line) {
	r := &a.record
	r.Lines++
	r.TotalMoves += l.Moves.Total
	r.ExactMoves += l.Moves.Exact
	r.EstimatedMoves += l.Moves.Estimated
	r.Quantity = r.Quantity.Add(l.Quantity)
	r.WeightKG += l.WeightKG

	if !matchkey.IsBlank(l.TransferOrder) {
		a.tasks[matchkey.Normalize(l.TransferOrder)] = struct{}{}
	}
	if !matchkey.IsBlank(l.StorageBin) {
		a.bins[l.StorageBin] = struct{}{}
	}
	if l.MaterialKey != "" {
		a.materials[l.MaterialKey] = struct{}{}
	}
	if _, seen := a.queues[l.Queue]; !seen {
		a.queueSeq = append(a.queueSeq, l.Queue)
	}
	a.queues[l.Queue]++
}

func (a *deliveryAcc) finish() DeliveryRecord {
	r := a.record
	r.PickingTasks = len(a.tasks)
	if r.PickingTasks == 0 {
		r.PickingTasks = 1
	}
	r.StorageBins = len(a.bins)
	r.Materials = len(a.materials)

	best := -1
	for _, q := range a.queueSeq {
		if n := a.queues[q]; n > best {
			best = n
			r.DominantQueue = q
		}
	}
	return r
}
