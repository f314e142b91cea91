// Package picking turns raw pick-report rows into enriched pick lines ready
// for movement computation.
package picking

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"example.com/backstage/services/pickaudit/internal/matchkey"
	"example.com/backstage/services/pickaudit/internal/moves"
	"example.com/backstage/services/pickaudit/internal/packaging"
)

// UnmappedQueue is assigned to lines no queue mapping covers.
const UnmappedQueue = "N/A"

// Task keys a queue summary can count picking tasks by.
const (
	TaskKeyTransferOrder = "transfer_order"
	TaskKeyDelivery      = "delivery"
)

// Record is one row of the pick report (LTAP-style export).
type Record struct {
	DeliveryID       string          `json:"delivery_id"`
	MaterialID       string          `json:"material_id"`
	Quantity         decimal.Decimal `json:"quantity"`
	Queue            string          `json:"queue"`
	RemovalFlag      string          `json:"removal_flag"`
	TransferOrder    string          `json:"transfer_order"`
	StorageBin       string          `json:"storage_bin"`
	HandlingUnit     string          `json:"handling_unit"`
	StorageUnitType  string          `json:"storage_unit_type"`
	User             string          `json:"user"`
	ConfirmationDate *time.Time      `json:"confirmation_date,omitempty"`
}

// QueueRecord maps a transfer order or sales document to its queue.
type QueueRecord struct {
	TransferOrder    string     `json:"transfer_order"`
	SDDocument       string     `json:"sd_document"`
	Queue            string     `json:"queue"`
	ConfirmationDate *time.Time `json:"confirmation_date,omitempty"`
	CreationDate     *time.Time `json:"creation_date,omitempty"`
}

// Line is an enriched pick line.
type Line struct {
	Record
	MatchKey      string    `json:"match_key"`
	BoxSizes      []int     `json:"box_sizes"`
	PieceWeightKG float64   `json:"piece_weight_kg"`
	PieceMaxDimCM float64   `json:"piece_max_dim_cm"`
	Date          time.Time `json:"date"`
}

// MoveInput returns the fields the movement engine consumes.
func (l Line) MoveInput() moves.Line {
	return moves.Line{
		Quantity:      l.Quantity,
		Queue:         l.Queue,
		RemovalFlag:   l.RemovalFlag,
		BoxSizes:      l.BoxSizes,
		PieceWeightKG: l.PieceWeightKG,
		PieceMaxDimCM: l.PieceMaxDimCM,
	}
}

// TaskID returns the id a picking task is counted by.
func (l Line) TaskID(taskKey string) string {
	if taskKey == TaskKeyTransferOrder {
		return l.TransferOrder
	}
	return l.DeliveryID
}

// Options control which lines take part in an analysis.
type Options struct {
	ExcludedUsers     []string
	ExcludedQueues    []string
	ExcludedMaterials []string
}

// DefaultOptions excludes the two system accounts and the clearance queue.
func DefaultOptions() Options {
	return Options{
		ExcludedUsers:  []string{"UIDJ5089", "UIH25501"},
		ExcludedQueues: []string{"CLEARANCE"},
	}
}

// Stats describe what preparation did to the input.
type Stats struct {
	InputRows            int    `json:"input_rows"`
	Lines                int    `json:"lines"`
	RemovedSystemUsers   int    `json:"removed_system_users"`
	RemovedBlank         int    `json:"removed_blank"`
	RemovedQueues        int    `json:"removed_queues"`
	RemovedMaterials     int    `json:"removed_materials"`
	FullUnitRemovals     int    `json:"full_unit_removals"`
	ManualOverrides      int    `json:"manual_overrides"`
	TaskKey              string `json:"task_key"`
	LinesWithoutPackData int    `json:"lines_without_packaging"`
}

// Prepare filters, queue-maps and enriches pick records. The records slice
// is not modified.
func Prepare(records []Record, queues []QueueRecord, catalog *packaging.Catalog, opts Options) ([]Line, Stats) {
	if catalog == nil {
		catalog = packaging.NewCatalog(nil, nil)
	}
	stats := Stats{InputRows: len(records), ManualOverrides: catalog.OverrideCount()}

	users := upperSet(opts.ExcludedUsers)
	excludedQueues := upperSet(opts.ExcludedQueues)
	excludedMaterials := matchkey.NewSet(opts.ExcludedMaterials...)
	mapper := newQueueMapper(records, queues)
	stats.TaskKey = mapper.taskKey

	lines := make([]Line, 0, len(records))
	for _, r := range records {
		if _, ok := users[strings.ToUpper(strings.TrimSpace(r.User))]; ok {
			stats.RemovedSystemUsers++
			continue
		}
		if matchkey.IsBlank(r.DeliveryID) || matchkey.IsBlank(r.MaterialID) {
			stats.RemovedBlank++
			continue
		}

		l := Line{Record: r}
		l.DeliveryID = strings.TrimSpace(r.DeliveryID)
		l.MaterialID = strings.TrimSpace(r.MaterialID)
		l.RemovalFlag = strings.ToUpper(strings.TrimSpace(r.RemovalFlag))
		l.StorageBin = strings.TrimSpace(r.StorageBin)
		l.MatchKey = matchkey.Normalize(r.MaterialID)
		l.Queue, l.Date = mapper.resolve(r)

		if _, ok := excludedQueues[strings.ToUpper(l.Queue)]; ok {
			stats.RemovedQueues++
			continue
		}
		if excludedMaterials.Has(l.MaterialID) {
			stats.RemovedMaterials++
			continue
		}

		entry := catalog.Lookup(l.MatchKey)
		l.BoxSizes = entry.BoxSizes
		l.PieceWeightKG = entry.WeightKG
		l.PieceMaxDimCM = entry.MaxDimCM

		if moves.IsFullUnitRemoval(l.Queue, l.RemovalFlag) {
			stats.FullUnitRemovals++
		}
		if !entry.Known() {
			stats.LinesWithoutPackData++
		}
		lines = append(lines, l)
	}

	stats.Lines = len(lines)
	return lines, stats
}

type queueMapper struct {
	taskKey string
	byTO    map[string]QueueRecord
	byDoc   map[string]QueueRecord
}

// newQueueMapper prefers transfer-order mapping, which is exact per task,
// and falls back to the sales document when either side lacks transfer
// orders.
func newQueueMapper(records []Record, queues []QueueRecord) *queueMapper {
	m := &queueMapper{taskKey: TaskKeyDelivery}

	picksHaveTO := false
	for _, r := range records {
		if !matchkey.IsBlank(r.TransferOrder) {
			picksHaveTO = true
			break
		}
	}

	byTO := make(map[string]QueueRecord)
	byDoc := make(map[string]QueueRecord)
	for _, q := range queues {
		if matchkey.IsBlank(q.Queue) {
			continue
		}
		if !matchkey.IsBlank(q.TransferOrder) {
			key := matchkey.Normalize(q.TransferOrder)
			if _, exists := byTO[key]; !exists {
				byTO[key] = q
			}
		}
		if !matchkey.IsBlank(q.SDDocument) {
			key := matchkey.Normalize(q.SDDocument)
			if _, exists := byDoc[key]; !exists {
				byDoc[key] = q
			}
		}
	}

	switch {
	case picksHaveTO && len(byTO) > 0:
		m.byTO = byTO
		m.taskKey = TaskKeyTransferOrder
	case len(byDoc) > 0:
		m.byDoc = byDoc
	}
	return m
}

func (m *queueMapper) resolve(r Record) (string, time.Time) {
	var date time.Time
	if r.ConfirmationDate != nil {
		date = *r.ConfirmationDate
	}

	switch {
	case m.byTO != nil:
		q, ok := m.byTO[matchkey.Normalize(r.TransferOrder)]
		if !ok || matchkey.IsBlank(r.TransferOrder) {
			return UnmappedQueue, date
		}
		if date.IsZero() {
			date = fallbackDate(q)
		}
		return strings.TrimSpace(q.Queue), date
	case m.byDoc != nil:
		q, ok := m.byDoc[matchkey.Normalize(r.DeliveryID)]
		if !ok {
			return UnmappedQueue, date
		}
		return strings.TrimSpace(q.Queue), date
	}

	if queue := strings.TrimSpace(r.Queue); queue != "" {
		return queue, date
	}
	return UnmappedQueue, date
}

func fallbackDate(q QueueRecord) time.Time {
	if q.ConfirmationDate != nil {
		return *q.ConfirmationDate
	}
	if q.CreationDate != nil {
		return *q.CreationDate
	}
	return time.Time{}
}

func upperSet(values []string) map[string]struct{} {
	s := make(map[string]struct{}, len(values))
	for _, v := range values {
		if v = strings.ToUpper(strings.TrimSpace(v)); v != "" {
			s[v] = struct{}{}
		}
	}
	return s
}
