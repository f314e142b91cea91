package reports

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// MaterialRow ranks one material by its picking effort.
type MaterialRow struct {
	MaterialKey    string          `json:"material_key"`
	Lines          int             `json:"lines"`
	Quantity       decimal.Decimal `json:"quantity"`
	TotalMoves     int64           `json:"total_moves"`
	ExactMoves     int64           `json:"exact_moves"`
	EstimatedMoves int64           `json:"estimated_moves"`
}

// TopMaterials ranks materials by total moves. An empty queue includes
// every line; limit <= 0 keeps all materials.
func TopMaterials(lines []Line, queue string, limit int) []MaterialRow {
	rows := materialRows(lines, func(l Line) bool {
		return queue == "" || strings.EqualFold(l.Queue, queue)
	})
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].TotalMoves > rows[j].TotalMoves })
	return truncate(rows, limit)
}

// EstimatedRanking lists the materials whose moves had to be estimated,
// most estimated moves first. These are the materials worth adding to the
// packaging master.
func EstimatedRanking(lines []Line, limit int) []MaterialRow {
	all := materialRows(lines, func(Line) bool { return true })
	rows := all[:0]
	for _, r := range all {
		if r.EstimatedMoves > 0 {
			rows = append(rows, r)
		}
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].EstimatedMoves > rows[j].EstimatedMoves })
	return truncate(rows, limit)
}

func materialRows(lines []Line, keep func(Line) bool) []MaterialRow {
	index := make(map[string]int)
	var rows []MaterialRow
	for _, l := range lines {
		if !keep(l) {
			continue
		}
		i, ok := index[l.MaterialKey]
		if !ok {
			i = len(rows)
			index[l.MaterialKey] = i
			rows = append(rows, MaterialRow{MaterialKey: l.MaterialKey, Quantity: decimal.Zero})
		}
		r := &rows[i]
		r.Lines++
		r.Quantity = r.Quantity.Add(l.Quantity)
		r.TotalMoves += l.Moves.Total
		r.ExactMoves += l.Moves.Exact
		r.EstimatedMoves += l.Moves.Estimated
	}
	return rows
}

func truncate(rows []MaterialRow, limit int) []MaterialRow {
	if limit > 0 && len(rows) > limit {
		return rows[:limit]
	}
	return rows
}
