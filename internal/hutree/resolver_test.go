package hutree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/backstage/services/pickaudit/internal/matchkey"
)

// threeLevel builds root R -> mid M -> leaf L, with parents referenced by
// zero-padded external ids as SAP exports them.
func threeLevel() []Unit {
	return []Unit{
		{InternalID: "0001", ExternalID: "00900001", DeliveryID: "D1"},
		{InternalID: "0002", ExternalID: "00900002", ParentID: "900001", DeliveryID: "D1"},
		{InternalID: "0003", ExternalID: "00900003", ParentID: "0900002", DeliveryID: "D1"},
	}
}

func TestBuildResolvesExternalParents(t *testing.T) {
	tree := Build("D1", threeLevel())

	require.Equal(t, 3, tree.Len())
	assert.Equal(t, "", tree.Parent("1"))
	assert.Equal(t, "1", tree.Parent("2"))
	assert.Equal(t, "2", tree.Parent("3"))
	assert.Equal(t, "1", tree.Root("3"))
	assert.Equal(t, []string{"3", "2", "1"}, tree.Path("3"))
}

func TestBuildFallsBackToInternalParent(t *testing.T) {
	tree := Build("D1", []Unit{
		{InternalID: "10", ExternalID: "E10"},
		{InternalID: "11", ExternalID: "E11", ParentID: "010"},
	})
	assert.Equal(t, "10", tree.Root("11"))
}

func TestBuildDanglingAndSelfParents(t *testing.T) {
	tree := Build("D1", []Unit{
		{InternalID: "1", ExternalID: "E1", ParentID: "E999"},
		{InternalID: "2", ExternalID: "E2", ParentID: "E2"},
		{InternalID: "3", ExternalID: "E3", ParentID: "nan"},
	})

	assert.Equal(t, "1", tree.Root("1"))
	assert.Equal(t, "2", tree.Root("2"))
	assert.Equal(t, "3", tree.Root("3"))
}

func TestBuildDeduplicatesUnits(t *testing.T) {
	tree := Build("D1", []Unit{
		{InternalID: "5", ExternalID: "E5"},
		{InternalID: "005", ExternalID: "E5", ParentID: "E6"},
		{InternalID: "", ExternalID: "E7"},
	})
	assert.Equal(t, 1, tree.Len())
	assert.Equal(t, "", tree.Parent("5"))
}

func TestCycleTerminatesDeterministically(t *testing.T) {
	tree := Build("D1", []Unit{
		{InternalID: "A", ExternalID: "XA", ParentID: "XB"},
		{InternalID: "B", ExternalID: "XB", ParentID: "XA"},
	})

	assert.Equal(t, "A", tree.Root("A"))
	assert.Equal(t, "B", tree.Root("B"))

	r := NewResolver(nil, nil)
	res := r.Resolve(tree, RootBilling)
	assert.Equal(t, 2, res.Billable)
}

func TestResolveLeafVersusRoot(t *testing.T) {
	contents := NewContentsIndex([]ContentRecord{{HUID: "0003", MaterialID: "M1", DeliveryID: "D1"}})
	r := NewResolver(contents, nil)
	tree := Build("D1", threeLevel())

	pallet := r.Resolve(tree, RootBilling)
	assert.Equal(t, 1, pallet.Billable)
	assert.Equal(t, 1, pallet.TopLevel)
	assert.False(t, pallet.Fallback)

	parcel := r.Resolve(tree, LeafBilling)
	assert.Equal(t, 1, parcel.Billable)
	assert.Equal(t, 1, parcel.Leaves)
}

func TestResolveTwoLeavesShareRoot(t *testing.T) {
	units := append(threeLevel(), Unit{InternalID: "0004", ExternalID: "00900004", ParentID: "900001", DeliveryID: "D1"})
	contents := NewContentsIndex([]ContentRecord{
		{HUID: "3", MaterialID: "M1"},
		{HUID: "4", MaterialID: "M2"},
	})
	r := NewResolver(contents, nil)
	tree := Build("D1", units)

	assert.Equal(t, 1, r.Resolve(tree, RootBilling).Billable)
	assert.Equal(t, 2, r.Resolve(tree, LeafBilling).Billable)
}

func TestResolveLowerLevelReferencesAreLeaves(t *testing.T) {
	contents := NewContentsIndex([]ContentRecord{{HUID: "2", LowerLevelHUID: "0003"}})
	r := NewResolver(contents, nil)
	tree := Build("D1", threeLevel())

	res := r.Resolve(tree, LeafBilling)
	assert.Equal(t, 2, res.Billable)
}

func TestResolveWithoutContentsUsesEveryUnit(t *testing.T) {
	tree := Build("D1", threeLevel())

	for _, contents := range []*ContentsIndex{nil, NewContentsIndex(nil), NewContentsIndex([]ContentRecord{{HUID: "77"}})} {
		r := NewResolver(contents, nil)

		leaf := r.Resolve(tree, LeafBilling)
		assert.True(t, leaf.Fallback)
		assert.Equal(t, 3, leaf.Billable)

		root := r.Resolve(tree, RootBilling)
		assert.Equal(t, 1, root.Billable)
	}
}

func TestResolveEmptyDelivery(t *testing.T) {
	r := NewResolver(nil, nil)
	res := r.Resolve(Build("D9", nil), RootBilling)
	assert.Equal(t, Resolution{Mode: "root"}, res)
}

func TestResolveDirectMovements(t *testing.T) {
	contents := NewContentsIndex([]ContentRecord{{HUID: "3"}, {HUID: "4"}})
	units := append(threeLevel(),
		Unit{InternalID: "4", ExternalID: "900004", ParentID: "900001"},
		Unit{InternalID: "8", ExternalID: "900008"},
	)
	tree := Build("D1", units)

	t.Run("marked root covers its leaves", func(t *testing.T) {
		r := NewResolver(contents, matchkey.NewSet("900001"))
		assert.Equal(t, 1, r.Resolve(tree, RootBilling).Billable)
		assert.Equal(t, 1, r.Resolve(tree, LeafBilling).Billable)
	})

	t.Run("marked leaf counts once beside ordinary leaves", func(t *testing.T) {
		r := NewResolver(contents, matchkey.NewSet("3"))
		root := r.Resolve(tree, RootBilling)
		assert.Equal(t, 1, root.Direct)
		assert.Equal(t, 2, root.Billable)

		leaf := r.Resolve(tree, LeafBilling)
		assert.Equal(t, 2, leaf.Billable)
	})

	t.Run("standalone marked unit", func(t *testing.T) {
		r := NewResolver(contents, matchkey.NewSet("8"))
		assert.Equal(t, 2, r.Resolve(tree, RootBilling).Billable)
	})

	t.Run("nested marks count the outermost only", func(t *testing.T) {
		r := NewResolver(contents, matchkey.NewSet("1", "2"))
		assert.Equal(t, []string{"1"}, r.DirectUnits(tree))
		assert.Equal(t, 1, r.Resolve(tree, RootBilling).Billable)
	})
}

func TestClassify(t *testing.T) {
	contents := NewContentsIndex([]ContentRecord{
		{HUID: "1", MaterialID: "M1", DeliveryID: "D1"},
		{HUID: "2", MaterialID: "M1", DeliveryID: "D1"},
		{HUID: "2", MaterialID: "M2", DeliveryID: "D1"},
		{HUID: "3", MaterialID: "M1", DeliveryID: "D1"},
		{HUID: "3", MaterialID: "M1", DeliveryID: "D2"},
		{HUID: "4", MaterialID: "M3", DeliveryID: "D1"},
	})
	tree := Build("D1", []Unit{
		{InternalID: "1"},
		{InternalID: "2", PackagingType: "1000"},
		{InternalID: "3"},
		{InternalID: "4", PackagingType: "1000.0"},
		{InternalID: "5", ExternalID: "T023-5"},
	})
	r := NewResolver(contents, matchkey.NewSet("t023-5"))

	assert.Equal(t, KindSingle, r.Classify(tree, "1"))
	assert.Equal(t, KindMixed, r.Classify(tree, "2"))
	assert.Equal(t, KindMixed, r.Classify(tree, "3"))
	assert.Equal(t, KindFullPallet, r.Classify(tree, "4"))
	assert.Equal(t, KindFullPallet, r.Classify(tree, "5"))

	assert.Equal(t, map[Kind]int{KindSingle: 1, KindMixed: 2, KindFullPallet: 2}, r.KindCounts(tree))
}
