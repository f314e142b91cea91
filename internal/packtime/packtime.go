// Package packtime analyses packing-desk times and joins them with picking
// effort per delivery.
package packtime

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"example.com/backstage/services/pickaudit/internal/billing"
	"example.com/backstage/services/pickaudit/internal/matchkey"
)

// Delay events a packing record may flag.
const (
	EventSerialScan   = "serial_scan"
	EventLabelReprint = "label_reprint"
	EventDifficultKLT = "difficult_klt"
)

var usagePattern = regexp.MustCompile(`([^,;]+?)\s*\(\s*(\d+)\s*[xX]\s*\)`)

// Record is one row of the packing-time log.
type Record struct {
	DeliveryID string          `json:"delivery_id"`
	Customer   string          `json:"customer"`
	MaterialID string          `json:"material_id"`
	Minutes    float64         `json:"minutes"`
	KLT        string          `json:"klt"`
	Pallets    string          `json:"pallets"`
	Cartons    string          `json:"cartons"`
	Events     map[string]bool `json:"events,omitempty"`
}

// ParseMinutes converts a packing-time cell to minutes. Plain numbers below
// one are spreadsheet day fractions; larger numbers are minutes already.
// h:m:s and m:s clock values are accepted. Anything else is zero.
func ParseMinutes(raw string) float64 {
	v := strings.TrimSpace(raw)
	if matchkey.IsBlank(v) {
		return 0
	}
	if num, err := strconv.ParseFloat(v, 64); err == nil {
		if num < 1 {
			return num * 24 * 60
		}
		return num
	}

	parts := strings.Split(v, ":")
	switch len(parts) {
	case 3:
		h, errH := strconv.Atoi(parts[0])
		m, errM := strconv.Atoi(parts[1])
		s, errS := strconv.ParseFloat(parts[2], 64)
		if errH == nil && errM == nil && errS == nil {
			return float64(h*60+m) + s/60
		}
	case 2:
		m, errM := strconv.Atoi(parts[0])
		s, errS := strconv.ParseFloat(parts[1], 64)
		if errM == nil && errS == nil {
			return float64(m) + s/60
		}
	}
	return 0
}

// FlagSet reports whether a cell marks an event as having happened.
func FlagSet(raw string) bool {
	v := strings.ToUpper(strings.TrimSpace(raw))
	switch v {
	case "Y", "X", "YES", "ANO", "1":
		return true
	}
	num, err := strconv.ParseFloat(v, 64)
	return err == nil && num > 0
}

// E2ERow joins one delivery's picking effort with its packing time.
type E2ERow struct {
	DeliveryID     string  `json:"delivery_id"`
	Customer       string  `json:"customer"`
	PickingTasks   int     `json:"picking_tasks"`
	TotalMoves     int64   `json:"total_moves"`
	BillableUnits  int     `json:"billable_units"`
	Minutes        float64 `json:"minutes"`
	MinutesPerUnit float64 `json:"minutes_per_unit"`
	MovesPerMinute float64 `json:"moves_per_minute"`
}

// E2ESummary aggregates the joined rows.
type E2ESummary struct {
	Deliveries        int      `json:"deliveries"`
	AvgMinutes        float64  `json:"avg_minutes"`
	AvgMinutesPerUnit float64  `json:"avg_minutes_per_unit"`
	Rows              []E2ERow `json:"rows"`
}

// Join matches billing records with packing records on the delivery. Only
// records with a positive packing time take part; each delivery uses its
// first timed packing record.
func Join(deliveries []billing.DeliveryRecord, records []Record) E2ESummary {
	byDelivery := make(map[string]Record)
	for _, r := range records {
		if r.Minutes <= 0 || matchkey.IsBlank(r.DeliveryID) {
			continue
		}
		key := matchkey.Normalize(r.DeliveryID)
		if _, ok := byDelivery[key]; !ok {
			byDelivery[key] = r
		}
	}

	var out E2ESummary
	var minutes, perUnit float64
	for _, d := range deliveries {
		r, ok := byDelivery[matchkey.Normalize(d.DeliveryID)]
		if !ok {
			continue
		}
		row := E2ERow{
			DeliveryID:     d.DeliveryID,
			Customer:       strings.TrimSpace(r.Customer),
			PickingTasks:   d.PickingTasks,
			TotalMoves:     d.TotalMoves,
			BillableUnits:  d.BillableUnits,
			Minutes:        r.Minutes,
			MovesPerMinute: float64(d.TotalMoves) / r.Minutes,
		}
		if d.BillableUnits > 0 {
			row.MinutesPerUnit = r.Minutes / float64(d.BillableUnits)
		}
		minutes += row.Minutes
		perUnit += row.MinutesPerUnit
		out.Rows = append(out.Rows, row)
	}

	if n := len(out.Rows); n > 0 {
		out.Deliveries = n
		out.AvgMinutes = minutes / float64(n)
		out.AvgMinutesPerUnit = perUnit / float64(n)
	}
	return out
}

// GroupAverage is the mean packing time of a group of deliveries.
type GroupAverage struct {
	Key        string  `json:"key"`
	Deliveries int     `json:"deliveries"`
	AvgMinutes float64 `json:"avg_minutes"`
}

// ByCustomer averages packing time per customer, slowest first.
func ByCustomer(records []Record) []GroupAverage {
	return groupAverages(records, func(r Record) string { return strings.TrimSpace(r.Customer) }, 0)
}

// ByMaterial averages packing time per material, slowest first, keeping at
// most limit groups when limit is positive.
func ByMaterial(records []Record, limit int) []GroupAverage {
	return groupAverages(records, func(r Record) string {
		if matchkey.IsBlank(r.MaterialID) {
			return ""
		}
		return matchkey.Normalize(r.MaterialID)
	}, limit)
}

func groupAverages(records []Record, keyOf func(Record) string, limit int) []GroupAverage {
	type acc struct {
		sum        float64
		n          int
		deliveries map[string]struct{}
	}
	groups := make(map[string]*acc)
	var order []string
	for _, r := range records {
		key := keyOf(r)
		if r.Minutes <= 0 || key == "" {
			continue
		}
		a, ok := groups[key]
		if !ok {
			a = &acc{deliveries: make(map[string]struct{})}
			groups[key] = a
			order = append(order, key)
		}
		a.sum += r.Minutes
		a.n++
		a.deliveries[matchkey.Normalize(r.DeliveryID)] = struct{}{}
	}

	out := make([]GroupAverage, 0, len(order))
	for _, key := range order {
		a := groups[key]
		out = append(out, GroupAverage{Key: key, Deliveries: len(a.deliveries), AvgMinutes: a.sum / float64(a.n)})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].AvgMinutes > out[j].AvgMinutes })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// PackagingUse counts how often a packaging material appears on timed
// packing records.
type PackagingUse struct {
	Packaging   string  `json:"packaging"`
	Occurrences int     `json:"occurrences"`
	Pieces      int     `json:"pieces"`
	AvgMinutes  float64 `json:"avg_minutes"`
}

// Usage is one "name (N x)" entry of a packaging list cell.
type Usage struct {
	Name   string
	Pieces int
}

// ParseUsage extracts the "name (N x)" entries of a packaging list cell in
// the order they appear.
func ParseUsage(raw string) []Usage {
	var out []Usage
	for _, m := range usagePattern.FindAllStringSubmatch(raw, -1) {
		n, err := strconv.Atoi(m[2])
		if err != nil {
			continue
		}
		out = append(out, Usage{Name: strings.TrimSpace(m[1]), Pieces: n})
	}
	return out
}

// Packaging aggregates packaging usage over KLT, pallet and carton columns,
// ordered by the average packing time of the deliveries using it.
func Packaging(records []Record) []PackagingUse {
	type acc struct {
		PackagingUse
		sum float64
	}
	groups := make(map[string]*acc)
	var order []string
	for _, r := range records {
		if r.Minutes <= 0 {
			continue
		}
		for _, cell := range []string{r.KLT, r.Pallets, r.Cartons} {
			if matchkey.IsBlank(cell) {
				continue
			}
			for _, u := range ParseUsage(cell) {
				a, ok := groups[u.Name]
				if !ok {
					a = &acc{PackagingUse: PackagingUse{Packaging: u.Name}}
					groups[u.Name] = a
					order = append(order, u.Name)
				}
				a.Occurrences++
				a.Pieces += u.Pieces
				a.sum += r.Minutes
			}
		}
	}

	out := make([]PackagingUse, 0, len(order))
	for _, name := range order {
		a := groups[name]
		a.AvgMinutes = a.sum / float64(a.Occurrences)
		out = append(out, a.PackagingUse)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].AvgMinutes > out[j].AvgMinutes })
	return out
}

// Delay compares the mean packing time with and without an event.
type Delay struct {
	Event        string  `json:"event"`
	WithEvent    float64 `json:"with_event"`
	WithoutEvent float64 `json:"without_event"`
	Difference   float64 `json:"difference"`
}

// Delays measures the cost of each flagged event, largest delay first.
// Events seen on every record or on none are skipped.
func Delays(records []Record) []Delay {
	var out []Delay
	for _, event := range []string{EventSerialScan, EventLabelReprint, EventDifficultKLT} {
		var withSum, withoutSum float64
		var withN, withoutN int
		for _, r := range records {
			if r.Events[event] {
				withSum += r.Minutes
				withN++
			} else {
				withoutSum += r.Minutes
				withoutN++
			}
		}
		if withN == 0 || withoutN == 0 {
			continue
		}
		d := Delay{Event: event, WithEvent: withSum / float64(withN), WithoutEvent: withoutSum / float64(withoutN)}
		d.Difference = d.WithEvent - d.WithoutEvent
		out = append(out, d)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Difference > out[j].Difference })
	return out
}
