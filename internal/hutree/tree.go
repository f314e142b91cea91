// Package hutree rebuilds the nesting of handling units per delivery and
// decides which of them are billable.
package hutree

import (
	"example.com/backstage/services/pickaudit/internal/matchkey"
)

// Unit is one packed handling unit (VEKP row). ParentID is given in the
// external namespace by the source system.
type Unit struct {
	InternalID    string `json:"internal_id"`
	ExternalID    string `json:"external_id"`
	ParentID      string `json:"parent_id"`
	DeliveryID    string `json:"delivery_id"`
	PackagingType string `json:"packaging_type"`
}

type node struct {
	internal string
	external string
	parent   string
	unit     Unit
}

// Tree is the parent/child structure of one delivery's units. All ids held
// by a Tree are normalized internal ids.
type Tree struct {
	DeliveryID string

	order          []string
	nodes          map[string]*node
	externalToNode map[string]string
}

// Build assembles the tree of one delivery. Units are deduplicated by
// internal id, first occurrence wins. Parent references are resolved through
// the external id map first and then as internal ids; references that match
// no unit of the delivery leave the unit as its own root.
func Build(deliveryID string, units []Unit) *Tree {
	t := &Tree{
		DeliveryID:     deliveryID,
		nodes:          make(map[string]*node, len(units)),
		externalToNode: make(map[string]string, len(units)),
	}

	rawParents := make(map[string]string, len(units))
	for _, u := range units {
		if matchkey.IsBlank(u.InternalID) {
			continue
		}
		id := matchkey.Normalize(u.InternalID)
		if _, exists := t.nodes[id]; exists {
			continue
		}
		n := &node{internal: id, unit: u}
		if !matchkey.IsBlank(u.ExternalID) {
			n.external = matchkey.Normalize(u.ExternalID)
			if _, taken := t.externalToNode[n.external]; !taken {
				t.externalToNode[n.external] = id
			}
		}
		if !matchkey.IsBlank(u.ParentID) {
			rawParents[id] = matchkey.Normalize(u.ParentID)
		}
		t.nodes[id] = n
		t.order = append(t.order, id)
	}

	for id, ref := range rawParents {
		parent, ok := t.externalToNode[ref]
		if !ok {
			if _, internal := t.nodes[ref]; internal {
				parent = ref
			}
		}
		if parent == id {
			parent = ""
		}
		t.nodes[id].parent = parent
	}

	return t
}

// Len returns the number of distinct units in the tree.
func (t *Tree) Len() int {
	return len(t.order)
}

// IDs returns the unit ids in first-seen order.
func (t *Tree) IDs() []string {
	return append([]string(nil), t.order...)
}

// Unit returns the source record of a unit.
func (t *Tree) Unit(id string) (Unit, bool) {
	n, ok := t.nodes[id]
	if !ok {
		return Unit{}, false
	}
	return n.unit, true
}

// Parent returns the resolved parent of a unit, or "" for a root.
func (t *Tree) Parent(id string) string {
	if n, ok := t.nodes[id]; ok {
		return n.parent
	}
	return ""
}

// Matches reports whether the unit's internal or external id is in set.
func (t *Tree) Matches(id string, set matchkey.Set) bool {
	n, ok := t.nodes[id]
	if !ok {
		return false
	}
	if _, hit := set[n.internal]; hit {
		return true
	}
	if n.external == "" {
		return false
	}
	_, hit := set[n.external]
	return hit
}

// Path returns the climb from id up to its root, both inclusive. A climb
// that revisits a unit stops at the first revisited unit, so malformed
// cyclic data still terminates.
func (t *Tree) Path(id string) []string {
	path := []string{id}
	visited := make(map[string]struct{})
	cur := id
	for {
		parent := t.Parent(cur)
		if parent == "" {
			return path
		}
		if _, seen := visited[cur]; seen {
			return path
		}
		visited[cur] = struct{}{}
		cur = parent
		path = append(path, cur)
	}
}

// Root returns the top-level unit reached by climbing from id.
func (t *Tree) Root(id string) string {
	path := t.Path(id)
	return path[len(path)-1]
}
