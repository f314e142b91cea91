// Package moves reconstructs the physical hand movements behind a recorded
// pick line: box removals, single heavy or bulky pieces, and handfuls of
// light pieces.
package moves

import (
	"math"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// Queues whose whole-unit removals are a single movement.
var fullPalletQueues = map[string]struct{}{
	"PI_PL_FU":   {},
	"PI_PL_FUOE": {},
}

// Params are the ergonomic limits a computation runs with.
type Params struct {
	WeightLimitKG    float64 `json:"weight_limit_kg" validate:"gte=0"`
	DimensionLimitCM float64 `json:"dimension_limit_cm" validate:"gte=0"`
	GrabSize         int     `json:"grab_size" validate:"gte=1"`
}

// DefaultParams returns the limits used when none are configured.
func DefaultParams() Params {
	return Params{
		WeightLimitKG:    2.0,
		DimensionLimitCM: 15.0,
		GrabSize:         1,
	}
}

// Sanitized clamps out-of-range values: a grab size below one becomes one
// and negative limits become zero.
func (p Params) Sanitized() Params {
	if p.GrabSize < 1 {
		p.GrabSize = 1
	}
	if p.WeightLimitKG < 0 {
		p.WeightLimitKG = 0
	}
	if p.DimensionLimitCM < 0 {
		p.DimensionLimitCM = 0
	}
	return p
}

// Line holds the fields of a pick line that influence its movement count.
type Line struct {
	Quantity      decimal.Decimal
	Queue         string
	RemovalFlag   string
	BoxSizes      []int
	PieceWeightKG float64
	PieceMaxDimCM float64
}

// Result is the movement count of one line. Total always equals
// Exact + Estimated.
type Result struct {
	Total     int64 `json:"total"`
	Exact     int64 `json:"exact"`
	Estimated int64 `json:"estimated"`
}

// Add returns the element-wise sum of two results.
func (r Result) Add(o Result) Result {
	return Result{
		Total:     r.Total + o.Total,
		Exact:     r.Exact + o.Exact,
		Estimated: r.Estimated + o.Estimated,
	}
}

// IsFullUnitRemoval reports whether the line takes the full-pallet shortcut.
func IsFullUnitRemoval(queue, removalFlag string) bool {
	if _, ok := fullPalletQueues[strings.ToUpper(strings.TrimSpace(queue))]; !ok {
		return false
	}
	return strings.ToUpper(strings.TrimSpace(removalFlag)) == "X"
}

// Compute returns the movement count of a line.
func Compute(line Line, params Params) Result {
	return Explain(line, params).Result
}

// Explain decomposes a line step by step. Its Result is what Compute returns.
func Explain(line Line, params Params) Breakdown {
	params = params.Sanitized()
	b := Breakdown{Quantity: line.Quantity}

	if !line.Quantity.IsPositive() {
		return b
	}

	if IsFullUnitRemoval(line.Queue, line.RemovalFlag) {
		b.FullUnit = true
		b.Result = Result{Total: 1, Exact: 1}
		return b
	}

	remaining := line.Quantity
	var boxMoves int64
	for _, size := range realBoxes(line.BoxSizes) {
		d := decimal.NewFromInt(int64(size))
		if remaining.LessThan(d) {
			continue
		}
		q, r := remaining.QuoRem(d, 0)
		count := saturate(q)
		boxMoves = addMoves(boxMoves, count)
		remaining = r
		b.Boxes = append(b.Boxes, BoxStep{Size: size, Count: count})
	}

	var looseMoves int64
	if remaining.IsPositive() {
		b.Heavy = line.PieceWeightKG >= params.WeightLimitKG || line.PieceMaxDimCM >= params.DimensionLimitCM
		if b.Heavy {
			looseMoves = saturate(remaining.Floor())
		} else {
			looseMoves = saturate(remaining.Div(decimal.NewFromInt(int64(params.GrabSize))).Ceil())
		}
	}
	b.LooseQuantity = remaining
	b.LooseMoves = looseMoves
	b.PackagingKnown = len(line.BoxSizes) > 0

	b.Result.Exact = boxMoves
	if b.PackagingKnown {
		b.Result.Exact = addMoves(b.Result.Exact, looseMoves)
	} else {
		b.Result.Estimated = looseMoves
	}
	b.Result.Total = addMoves(b.Result.Exact, b.Result.Estimated)
	return b
}

var maxMoves = decimal.NewFromInt(math.MaxInt64)

// saturate converts a non-negative whole count, capping at math.MaxInt64.
func saturate(d decimal.Decimal) int64 {
	if d.GreaterThanOrEqual(maxMoves) {
		return math.MaxInt64
	}
	return d.IntPart()
}

func addMoves(a, b int64) int64 {
	if a > math.MaxInt64-b {
		return math.MaxInt64
	}
	return a + b
}

// realBoxes returns the sizes above one, largest first, without touching
// the caller's slice.
func realBoxes(sizes []int) []int {
	out := make([]int, 0, len(sizes))
	for _, s := range sizes {
		if s > 1 {
			out = append(out, s)
		}
	}
	sort.Sort(sort.Reverse(sort.IntSlice(out)))
	return out
}
