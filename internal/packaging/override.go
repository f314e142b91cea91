package packaging

import (
	"regexp"
	"sort"
	"strconv"
)

var (
	// Box counts written by warehouse staff: "K-15ks", "15 ks", "balení po 6",
	// "krabice po 90", "role 1000", "pytlík 50".
	overrideCountPattern = regexp.MustCompile(`(?i)\bK-(\d+)ks?\b|(\d+)\s*ks\b|balen[íi]\s+po\s+(\d+)|krabice\s+(?:po\s+)?(\d+)|(?:role|pytl[íi]k|pytel)[^\d]*(\d+)`)
	pieceWisePattern     = regexp.MustCompile(`(?i)po\s*kusech`)
)

// PieceWise is the box list of a material known to be picked one piece at a
// time. It differs from an empty list, which means nothing is known.
var PieceWise = []int{1}

// ParseOverride extracts box sizes from a free-text packaging description.
// The result is sorted descending without duplicates. A description marked
// "po kusech" with no numbers yields PieceWise; one that matches nothing
// yields nil.
func ParseOverride(description string) []int {
	seen := make(map[int]struct{})
	for _, m := range overrideCountPattern.FindAllStringSubmatch(description, -1) {
		for _, group := range m[1:] {
			if group == "" {
				continue
			}
			n, err := strconv.Atoi(group)
			if err != nil {
				continue
			}
			seen[n] = struct{}{}
		}
	}

	if len(seen) == 0 {
		if pieceWisePattern.MatchString(description) {
			return append([]int(nil), PieceWise...)
		}
		return nil
	}

	sizes := make([]int, 0, len(seen))
	for n := range seen {
		sizes = append(sizes, n)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(sizes)))
	return sizes
}
