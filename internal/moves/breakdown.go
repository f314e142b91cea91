package moves

import "github.com/shopspring/decimal"

// BoxStep records how many boxes of one size were removed.
type BoxStep struct {
	Size  int   `json:"size"`
	Count int64 `json:"count"`
}

// Breakdown is the audit trail of a single line decomposition.
type Breakdown struct {
	Quantity       decimal.Decimal `json:"quantity"`
	FullUnit       bool            `json:"full_unit"`
	Boxes          []BoxStep       `json:"boxes,omitempty"`
	LooseQuantity  decimal.Decimal `json:"loose_quantity"`
	Heavy          bool            `json:"heavy"`
	LooseMoves     int64           `json:"loose_moves"`
	PackagingKnown bool            `json:"packaging_known"`
	Result         Result          `json:"result"`
}

// BoxMoves returns the number of whole boxes removed.
func (b Breakdown) BoxMoves() int64 {
	var n int64
	for _, s := range b.Boxes {
		n += s.Count
	}
	return n
}
