package hutree

import (
	"example.com/backstage/services/pickaudit/internal/matchkey"
)

// Mode selects which level of the tree is billed.
type Mode int

const (
	// RootBilling bills one unit per top-level pallet.
	RootBilling Mode = iota
	// LeafBilling bills every unit that directly holds material.
	LeafBilling
)

func (m Mode) String() string {
	if m == LeafBilling {
		return "leaf"
	}
	return "root"
}

// Resolution is the billable outcome of one delivery's tree.
type Resolution struct {
	Units    int    `json:"units"`
	Leaves   int    `json:"leaves"`
	TopLevel int    `json:"top_level"`
	Direct   int    `json:"direct"`
	Billable int    `json:"billable"`
	Mode     string `json:"mode"`
	Fallback bool   `json:"fallback"`
}

// Resolver applies the billing rule to delivery trees.
type Resolver struct {
	contents *ContentsIndex
	direct   matchkey.Set
}

// NewResolver creates a resolver. contents may be nil when no contents table
// was supplied. direct holds ids of units moved as whole pallets.
func NewResolver(contents *ContentsIndex, direct matchkey.Set) *Resolver {
	if direct == nil {
		direct = make(matchkey.Set)
	}
	return &Resolver{contents: contents, direct: direct}
}

// Leaves returns the leaf candidates of the tree. When none of the
// delivery's units are known to the contents index, every unit is a
// candidate.
func (r *Resolver) Leaves(t *Tree) (leaves []string, fallback bool) {
	for _, id := range t.order {
		if r.contents.IsLeaf(id) {
			leaves = append(leaves, id)
		}
	}
	if len(leaves) == 0 && t.Len() > 0 {
		return t.IDs(), true
	}
	return leaves, false
}

// DirectUnits returns the marked units that have no marked ancestor.
func (r *Resolver) DirectUnits(t *Tree) []string {
	var out []string
	for _, id := range t.order {
		if !t.Matches(id, r.direct) {
			continue
		}
		if r.markedAbove(t, id) {
			continue
		}
		out = append(out, id)
	}
	return out
}

// Resolve counts the billable units of a tree under the given mode.
func (r *Resolver) Resolve(t *Tree, mode Mode) Resolution {
	res := Resolution{Units: t.Len(), Mode: mode.String()}
	if t.Len() == 0 {
		return res
	}

	leaves, fallback := r.Leaves(t)
	res.Fallback = fallback
	res.Direct = len(r.DirectUnits(t))

	roots := make(map[string]struct{})
	uncovered := 0
	for _, leaf := range leaves {
		path := t.Path(leaf)
		if r.covered(t, path) {
			continue
		}
		uncovered++
		roots[path[len(path)-1]] = struct{}{}
	}

	res.Leaves = uncovered
	res.TopLevel = len(roots)
	if mode == LeafBilling {
		res.Billable = res.Leaves + res.Direct
	} else {
		res.Billable = res.TopLevel + res.Direct
	}
	return res
}

func (r *Resolver) covered(t *Tree, path []string) bool {
	if len(r.direct) == 0 {
		return false
	}
	for _, id := range path {
		if t.Matches(id, r.direct) {
			return true
		}
	}
	return false
}

func (r *Resolver) markedAbove(t *Tree, id string) bool {
	path := t.Path(id)
	for _, ancestor := range path[1:] {
		if ancestor != id && t.Matches(ancestor, r.direct) {
			return true
		}
	}
	return false
}
