package hutree

import "strings"

// Kind classifies a packed unit by what it holds.
type Kind string

const (
	KindFullPallet Kind = "Vollpalette"
	KindSingle     Kind = "Sortenrein"
	KindMixed      Kind = "Misch"
)

// Packaging material type of a full pallet.
const fullPalletPackagingType = "1000"

// Classify returns the kind of a unit of the tree.
func (r *Resolver) Classify(t *Tree, id string) Kind {
	if t.Matches(id, r.direct) {
		return KindFullPallet
	}

	materials := r.contents.MaterialCount(id)
	deliveries := r.contents.DeliveryCount(id)

	if u, ok := t.Unit(id); ok && isFullPalletType(u.PackagingType) && materials <= 1 {
		return KindFullPallet
	}
	if materials > 1 || deliveries > 1 {
		return KindMixed
	}
	return KindSingle
}

// KindCounts tallies unit kinds over a tree.
func (r *Resolver) KindCounts(t *Tree) map[Kind]int {
	counts := make(map[Kind]int, 3)
	for _, id := range t.order {
		counts[r.Classify(t, id)]++
	}
	return counts
}

func isFullPalletType(v string) bool {
	v = strings.TrimSpace(v)
	v = strings.TrimSuffix(v, ".0")
	return v == fullPalletPackagingType
}
