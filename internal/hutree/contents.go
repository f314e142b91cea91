package hutree

import (
	"example.com/backstage/services/pickaudit/internal/matchkey"
)

// ContentRecord is one item row of the packed-contents table (VEPO). A row
// either places material in a unit or links a lower-level unit into it.
type ContentRecord struct {
	HUID           string `json:"hu_id"`
	LowerLevelHUID string `json:"lower_level_hu_id"`
	DeliveryID     string `json:"delivery_id"`
	MaterialID     string `json:"material_id"`
}

type unitContents struct {
	materials  map[string]struct{}
	deliveries map[string]struct{}
}

// ContentsIndex answers which units directly hold material.
type ContentsIndex struct {
	leaves   matchkey.Set
	contents map[string]*unitContents
}

// NewContentsIndex builds an index from contents rows. Both the unit id and
// any lower-level unit id of a row are leaf candidates.
func NewContentsIndex(records []ContentRecord) *ContentsIndex {
	idx := &ContentsIndex{
		leaves:   make(matchkey.Set),
		contents: make(map[string]*unitContents),
	}

	for _, r := range records {
		idx.leaves.Add(r.HUID)
		idx.leaves.Add(r.LowerLevelHUID)

		if matchkey.IsBlank(r.HUID) {
			continue
		}
		id := matchkey.Normalize(r.HUID)
		uc, ok := idx.contents[id]
		if !ok {
			uc = &unitContents{
				materials:  make(map[string]struct{}),
				deliveries: make(map[string]struct{}),
			}
			idx.contents[id] = uc
		}
		if !matchkey.IsBlank(r.MaterialID) {
			uc.materials[matchkey.Normalize(r.MaterialID)] = struct{}{}
		}
		if !matchkey.IsBlank(r.DeliveryID) {
			uc.deliveries[matchkey.Normalize(r.DeliveryID)] = struct{}{}
		}
	}

	return idx
}

// Empty reports whether the index holds no units at all.
func (idx *ContentsIndex) Empty() bool {
	return idx == nil || len(idx.leaves) == 0
}

// IsLeaf reports whether the unit directly contains material.
func (idx *ContentsIndex) IsLeaf(id string) bool {
	if idx == nil {
		return false
	}
	return idx.leaves.Has(id)
}

// MaterialCount returns the distinct materials packed in the unit.
func (idx *ContentsIndex) MaterialCount(id string) int {
	if idx == nil {
		return 0
	}
	if uc, ok := idx.contents[matchkey.Normalize(id)]; ok {
		return len(uc.materials)
	}
	return 0
}

// DeliveryCount returns the distinct deliveries packed in the unit.
func (idx *ContentsIndex) DeliveryCount(id string) int {
	if idx == nil {
		return 0
	}
	if uc, ok := idx.contents[matchkey.Normalize(id)]; ok {
		return len(uc.deliveries)
	}
	return 0
}
