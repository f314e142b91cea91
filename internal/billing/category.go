// Package billing reconciles picking labour against billed handling units
// per delivery.
package billing

import (
	"strings"

	"example.com/backstage/services/pickaudit/internal/hutree"
	"example.com/backstage/services/pickaudit/internal/matchkey"
)

// Code is the billing category code of a delivery.
type Code string

const (
	CodeParcel      Code = "E"
	CodeParcelOrder Code = "OE"
	CodeOrder       Code = "O"
	CodeNormal      Code = "N"
)

// Kind says whether a delivery holds one material or several.
type Kind string

const (
	KindSingle Kind = "Sortenrein"
	KindMixed  Kind = "Misch"
)

// UncategorizedLabel is the label of deliveries no strategy could place.
const UncategorizedLabel = "Uncategorized"

// Category is the resolved billing category of a delivery.
type Category struct {
	Code   Code   `json:"code,omitempty"`
	Kind   Kind   `json:"kind,omitempty"`
	Label  string `json:"label"`
	Source string `json:"source"`
}

// Uncategorized is the sentinel for deliveries without a category.
var Uncategorized = Category{Label: UncategorizedLabel, Source: "none"}

// BillingMode returns which tree level the category bills. Parcel
// categories bill every labelled package, pallet categories one unit per
// top-level pallet.
func (c Category) BillingMode() hutree.Mode {
	label := strings.ToUpper(strings.TrimSpace(c.Label))
	if strings.HasPrefix(label, string(CodeParcel)) || strings.HasPrefix(label, string(CodeParcelOrder)) {
		return hutree.LeafBilling
	}
	return hutree.RootBilling
}

// IsUncategorized reports whether c is the sentinel.
func (c Category) IsUncategorized() bool {
	return c.Label == UncategorizedLabel && c.Code == ""
}

func newCategory(code Code, materials int, source string) Category {
	kind := KindSingle
	if materials > 1 {
		kind = KindMixed
	}
	return Category{
		Code:   code,
		Kind:   kind,
		Label:  string(code) + " " + string(kind),
		Source: source,
	}
}

// DeliveryFacts are the pick-side observations a strategy may use.
type DeliveryFacts struct {
	DeliveryID    string
	DominantQueue string
	Materials     int
}

// Strategy resolves a category or reports that it cannot.
type Strategy interface {
	Name() string
	Resolve(facts DeliveryFacts) (Category, bool)
}

// Chain tries strategies in order; the first answer wins.
type Chain []Strategy

// Resolve returns the first category any strategy yields, or Uncategorized.
func (c Chain) Resolve(facts DeliveryFacts) Category {
	for _, s := range c {
		if s == nil {
			continue
		}
		if cat, ok := s.Resolve(facts); ok {
			return cat
		}
	}
	return Uncategorized
}

// CategoryRecord is a row of an externally supplied category table.
type CategoryRecord struct {
	DeliveryID string `json:"delivery_id"`
	Category   string `json:"category"`
	Kind       string `json:"kind"`
}

// ExplicitTable maps deliveries to supplied category labels.
type ExplicitTable map[string]string

// NewExplicitTable builds the table; the first row for a delivery wins and
// blank labels are ignored.
func NewExplicitTable(records []CategoryRecord) ExplicitTable {
	t := make(ExplicitTable, len(records))
	for _, r := range records {
		if matchkey.IsBlank(r.DeliveryID) {
			continue
		}
		label := strings.TrimSpace(strings.TrimSpace(r.Category) + " " + strings.TrimSpace(r.Kind))
		if label == "" {
			continue
		}
		key := matchkey.Normalize(r.DeliveryID)
		if _, exists := t[key]; !exists {
			t[key] = label
		}
	}
	return t
}

func (t ExplicitTable) Name() string { return "table" }

func (t ExplicitTable) Resolve(facts DeliveryFacts) (Category, bool) {
	label, ok := t[matchkey.Normalize(facts.DeliveryID)]
	if !ok {
		return Category{}, false
	}
	return parseLabel(label, t.Name()), true
}

func parseLabel(label, source string) Category {
	cat := Category{Label: label, Source: source}
	fields := strings.Fields(label)
	if len(fields) == 0 {
		return cat
	}
	switch code := Code(strings.ToUpper(fields[0])); code {
	case CodeParcel, CodeParcelOrder, CodeOrder, CodeNormal:
		cat.Code = code
	}
	if len(fields) > 1 {
		switch {
		case strings.EqualFold(fields[1], string(KindSingle)):
			cat.Kind = KindSingle
		case strings.EqualFold(fields[1], string(KindMixed)):
			cat.Kind = KindMixed
		}
	}
	return cat
}

// DeliveryHeader is a delivery header row (LIKP).
type DeliveryHeader struct {
	DeliveryID    string `json:"delivery_id"`
	ShippingPoint string `json:"shipping_point"`
	Carrier       string `json:"carrier"`
}

// ShippingPoint maps a shipping point to its order type (T031).
type ShippingPoint struct {
	ShippingPoint string `json:"shipping_point"`
	OrderType     string `json:"order_type"`
}

// Carrier describes whether a carrier is a parcel (KEP) service (SDSHP_AM2).
type Carrier struct {
	CarrierID string `json:"carrier_id"`
	KEP       string `json:"kep"`
}

// CarrierLookup derives the category from shipping point and carrier.
type CarrierLookup struct {
	headers    map[string]DeliveryHeader
	orderTypes map[string]string
	kep        map[string]struct{}
}

// NewCarrierLookup builds the lookup from the three cross-reference tables.
func NewCarrierLookup(headers []DeliveryHeader, points []ShippingPoint, carriers []Carrier) *CarrierLookup {
	l := &CarrierLookup{
		headers:    make(map[string]DeliveryHeader, len(headers)),
		orderTypes: make(map[string]string, len(points)),
		kep:        make(map[string]struct{}),
	}
	for _, h := range headers {
		if matchkey.IsBlank(h.DeliveryID) {
			continue
		}
		key := matchkey.Normalize(h.DeliveryID)
		if _, exists := l.headers[key]; !exists {
			l.headers[key] = h
		}
	}
	for _, p := range points {
		sp := strings.TrimSpace(p.ShippingPoint)
		if _, exists := l.orderTypes[sp]; !exists && sp != "" {
			l.orderTypes[sp] = strings.ToUpper(strings.TrimSpace(p.OrderType))
		}
	}
	for _, c := range carriers {
		if strings.EqualFold(strings.TrimSpace(c.KEP), "X") {
			l.kep[strings.TrimSpace(c.CarrierID)] = struct{}{}
		}
	}
	return l
}

func (l *CarrierLookup) Name() string { return "carrier" }

func (l *CarrierLookup) Resolve(facts DeliveryFacts) (Category, bool) {
	if l == nil {
		return Category{}, false
	}
	h, ok := l.headers[matchkey.Normalize(facts.DeliveryID)]
	if !ok {
		return Category{}, false
	}

	orderType := l.orderTypes[strings.TrimSpace(h.ShippingPoint)]
	_, isKEP := l.kep[strings.TrimSpace(h.Carrier)]

	var code Code
	switch {
	case isKEP && orderType == "O":
		code = CodeParcelOrder
	case isKEP:
		code = CodeParcel
	case orderType == "O":
		code = CodeOrder
	default:
		code = CodeNormal
	}
	return newCategory(code, facts.Materials, l.Name()), true
}

// QueueHeuristic guesses the category from the delivery's dominant queue.
type QueueHeuristic struct{}

func (QueueHeuristic) Name() string { return "queue" }

func (h QueueHeuristic) Resolve(facts DeliveryFacts) (Category, bool) {
	q := strings.ToUpper(facts.DominantQueue)
	var code Code
	switch {
	case strings.Contains(q, "PI_PA_OE"):
		code = CodeParcelOrder
	case strings.Contains(q, "PI_PA"):
		code = CodeParcel
	case strings.Contains(q, "PI_PL_FUOE"), strings.Contains(q, "PI_PL_OE"):
		code = CodeOrder
	case strings.Contains(q, "PI_PL"):
		code = CodeNormal
	default:
		return Category{}, false
	}
	return newCategory(code, facts.Materials, h.Name()), true
}
