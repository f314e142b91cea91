package billing

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"example.com/backstage/services/pickaudit/internal/hutree"
)

func TestQueueHeuristic(t *testing.T) {
	tests := []struct {
		queue string
		want  string
	}{
		{"PI_PA_OE", "OE Sortenrein"},
		{"pi_pa", "E Sortenrein"},
		{"PI_PA_RU", "E Sortenrein"},
		{"PI_PL_FUOE", "O Sortenrein"},
		{"PI_PL_OE", "O Sortenrein"},
		{"PI_PL", "N Sortenrein"},
		{"PI_PL_FU", "N Sortenrein"},
	}
	for _, tt := range tests {
		t.Run(tt.queue, func(t *testing.T) {
			cat, ok := QueueHeuristic{}.Resolve(DeliveryFacts{DominantQueue: tt.queue, Materials: 1})
			assert.True(t, ok)
			assert.Equal(t, tt.want, cat.Label)
			assert.Equal(t, "queue", cat.Source)
		})
	}

	_, ok := QueueHeuristic{}.Resolve(DeliveryFacts{DominantQueue: "N/A"})
	assert.False(t, ok)
}

func TestCarrierLookup(t *testing.T) {
	lookup := NewCarrierLookup(
		[]DeliveryHeader{
			{DeliveryID: "0080001", ShippingPoint: "SP1", Carrier: "DHL"},
			{DeliveryID: "80002", ShippingPoint: "SP2", Carrier: "DHL"},
			{DeliveryID: "80003", ShippingPoint: "SP1", Carrier: "TRUCK"},
			{DeliveryID: "80004", ShippingPoint: "SP9", Carrier: "TRUCK"},
		},
		[]ShippingPoint{{ShippingPoint: "SP1", OrderType: "O"}, {ShippingPoint: "SP2", OrderType: "N"}},
		[]Carrier{{CarrierID: "DHL", KEP: "X"}, {CarrierID: "TRUCK", KEP: ""}},
	)

	tests := []struct {
		delivery  string
		materials int
		want      string
	}{
		{"80001", 1, "OE Sortenrein"},
		{"80002", 2, "E Misch"},
		{"80003", 1, "O Sortenrein"},
		{"80004", 3, "N Misch"},
	}
	for _, tt := range tests {
		cat, ok := lookup.Resolve(DeliveryFacts{DeliveryID: tt.delivery, Materials: tt.materials})
		assert.True(t, ok, tt.delivery)
		assert.Equal(t, tt.want, cat.Label, tt.delivery)
	}

	_, ok := lookup.Resolve(DeliveryFacts{DeliveryID: "99999"})
	assert.False(t, ok)

	var missing *CarrierLookup
	_, ok = missing.Resolve(DeliveryFacts{DeliveryID: "80001"})
	assert.False(t, ok)
}

func TestChainPrecedence(t *testing.T) {
	chain := Chain{
		NewExplicitTable([]CategoryRecord{{DeliveryID: "1", Category: "E", Kind: "Sortenrein"}, {DeliveryID: "4", Category: " "}}),
		NewCarrierLookup([]DeliveryHeader{{DeliveryID: "1", Carrier: "TRUCK"}, {DeliveryID: "2", Carrier: "TRUCK"}}, nil, nil),
		QueueHeuristic{},
	}

	assert.Equal(t, Category{Code: CodeParcel, Kind: KindSingle, Label: "E Sortenrein", Source: "table"},
		chain.Resolve(DeliveryFacts{DeliveryID: "0001", DominantQueue: "PI_PL"}))
	assert.Equal(t, "carrier", chain.Resolve(DeliveryFacts{DeliveryID: "2", DominantQueue: "PI_PA"}).Source)
	assert.Equal(t, "queue", chain.Resolve(DeliveryFacts{DeliveryID: "3", DominantQueue: "PI_PA"}).Source)
	assert.Equal(t, "queue", chain.Resolve(DeliveryFacts{DeliveryID: "4", DominantQueue: "PI_PA"}).Source)

	unknown := chain.Resolve(DeliveryFacts{DeliveryID: "5", DominantQueue: "N/A"})
	assert.True(t, unknown.IsUncategorized())
	assert.Equal(t, hutree.RootBilling, unknown.BillingMode())

	assert.True(t, Chain(nil).Resolve(DeliveryFacts{}).IsUncategorized())
}

func TestExplicitTableKeepsUnknownLabels(t *testing.T) {
	table := NewExplicitTable([]CategoryRecord{{DeliveryID: "7", Category: "Express"}})
	cat, ok := table.Resolve(DeliveryFacts{DeliveryID: "7"})

	assert.True(t, ok)
	assert.Equal(t, "Express", cat.Label)
	assert.Empty(t, cat.Code)
}

func TestBillingMode(t *testing.T) {
	assert.Equal(t, hutree.LeafBilling, Category{Label: "E Misch"}.BillingMode())
	assert.Equal(t, hutree.LeafBilling, Category{Label: "oe Sortenrein"}.BillingMode())
	assert.Equal(t, hutree.RootBilling, Category{Label: "O Misch"}.BillingMode())
	assert.Equal(t, hutree.RootBilling, Category{Label: "N Sortenrein"}.BillingMode())
	assert.Equal(t, hutree.RootBilling, Uncategorized.BillingMode())
}
