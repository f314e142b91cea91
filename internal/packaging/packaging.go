// Package packaging resolves per-material packaging knowledge: the box
// sizes a material ships in, its unit weight and its largest dimension.
package packaging

import (
	"sort"
	"strings"

	"example.com/backstage/services/pickaudit/internal/matchkey"
)

// Alternative units of measure that denote a box of several pieces.
var boxUnits = map[string]struct{}{
	"AEK": {}, "KAR": {}, "KART": {}, "PAK": {}, "VPE": {},
	"CAR": {}, "BLO": {}, "ASK": {}, "BAG": {}, "PAC": {},
}

// Units of measure that describe a single piece.
var pieceUnits = map[string]struct{}{
	"ST": {}, "PCE": {}, "KS": {}, "EA": {}, "PC": {},
}

// MasterRecord is one unit-of-measure row of the material master (MARM).
type MasterRecord struct {
	MaterialID    string  `json:"material_id"`
	UnitOfMeasure string  `json:"unit_of_measure"`
	Numerator     float64 `json:"numerator"`
	GrossWeight   float64 `json:"gross_weight"`
	WeightUnit    string  `json:"weight_unit"`
	Length        float64 `json:"length"`
	Width         float64 `json:"width"`
	Height        float64 `json:"height"`
	DimensionUnit string  `json:"dimension_unit"`
}

// OverrideRecord is a manually verified packaging description.
type OverrideRecord struct {
	MaterialID  string `json:"material_id"`
	Description string `json:"description"`
}

// Entry is the resolved packaging of one material.
type Entry struct {
	BoxSizes []int   `json:"box_sizes"`
	WeightKG float64 `json:"weight_kg"`
	MaxDimCM float64 `json:"max_dim_cm"`
}

// Known reports whether any packaging data exists for the material.
func (e Entry) Known() bool {
	return len(e.BoxSizes) > 0
}

type piece struct {
	weightKG float64
	maxDimCM float64
}

// Catalog is an immutable lookup of packaging entries by match key.
type Catalog struct {
	boxes     map[string][]int
	overrides map[string][]int
	pieces    map[string]piece
}

// NewCatalog builds a catalog from bulk master data and manual overrides.
// Overrides replace master box sizes outright; weight and dimension always
// come from the master.
func NewCatalog(master []MasterRecord, overrides []OverrideRecord) *Catalog {
	c := &Catalog{
		boxes:     make(map[string][]int),
		overrides: make(map[string][]int),
		pieces:    make(map[string]piece),
	}

	boxSets := make(map[string]map[int]struct{})
	for _, r := range master {
		if matchkey.IsBlank(r.MaterialID) {
			continue
		}
		key := matchkey.Normalize(r.MaterialID)
		uom := strings.ToUpper(strings.TrimSpace(r.UnitOfMeasure))

		if _, ok := boxUnits[uom]; ok {
			set, exists := boxSets[key]
			if !exists {
				set = make(map[int]struct{})
				boxSets[key] = set
			}
			if n := int(r.Numerator); n > 1 {
				set[n] = struct{}{}
			}
		}

		if _, ok := pieceUnits[uom]; ok {
			if _, exists := c.pieces[key]; !exists {
				c.pieces[key] = piece{
					weightKG: weightKG(r.GrossWeight, r.WeightUnit),
					maxDimCM: maxDimension(r),
				}
			}
		}
	}

	for key, set := range boxSets {
		c.boxes[key] = sortedDesc(set)
	}

	for _, o := range overrides {
		if matchkey.IsBlank(o.MaterialID) {
			continue
		}
		if sizes := ParseOverride(o.Description); len(sizes) > 0 {
			c.overrides[matchkey.Normalize(o.MaterialID)] = sizes
		}
	}

	return c
}

// Lookup returns the packaging entry for a match key. The returned slice is
// a copy and may be modified by the caller.
func (c *Catalog) Lookup(key string) Entry {
	p := c.pieces[key]
	boxes, ok := c.overrides[key]
	if !ok {
		boxes = c.boxes[key]
	}
	return Entry{
		BoxSizes: append([]int{}, boxes...),
		WeightKG: p.weightKG,
		MaxDimCM: p.maxDimCM,
	}
}

// Override returns the manually verified box sizes of a material, if any.
func (c *Catalog) Override(key string) ([]int, bool) {
	sizes, ok := c.overrides[key]
	return append([]int(nil), sizes...), ok
}

// MasterBoxes returns the box sizes known from master data only.
func (c *Catalog) MasterBoxes(key string) []int {
	return append([]int{}, c.boxes[key]...)
}

// OverrideCount returns how many materials carry a manual override.
func (c *Catalog) OverrideCount() int {
	return len(c.overrides)
}

func weightKG(gross float64, unit string) float64 {
	if strings.ToUpper(strings.TrimSpace(unit)) == "G" {
		return gross / 1000.0
	}
	return gross
}

func toCentimetres(v float64, unit string) float64 {
	switch strings.ToUpper(strings.TrimSpace(unit)) {
	case "MM":
		return v / 10.0
	case "M":
		return v * 100.0
	default:
		return v
	}
}

func maxDimension(r MasterRecord) float64 {
	max := 0.0
	for _, d := range []float64{r.Length, r.Width, r.Height} {
		if cm := toCentimetres(d, r.DimensionUnit); cm > max {
			max = cm
		}
	}
	return max
}

func sortedDesc(set map[int]struct{}) []int {
	out := make([]int, 0, len(set))
	for n := range set {
		out = append(out, n)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(out)))
	return out
}
