package vision

import (
	"image"
	"sort"
)

// Candidate is a labeled template hit awaiting suppression.
type Candidate struct {
	Box   image.Rectangle
	Score float64
	Label string
}

// OverlapOfSmaller returns the intersection area divided by the area of the
// smaller box. It is 1 when one box contains the other.
func OverlapOfSmaller(a, b image.Rectangle) float64 {
	inter := a.Intersect(b)
	if inter.Empty() {
		return 0
	}
	areaA := a.Dx() * a.Dy()
	areaB := b.Dx() * b.Dy()
	smaller := min(areaA, areaB)
	if smaller <= 0 {
		return 0
	}
	return float64(inter.Dx()*inter.Dy()) / float64(smaller)
}

// Suppress performs label-agnostic non-maximum suppression. Candidates are
// visited by descending score and any box overlapping an already kept box
// by more than overlap (relative to the smaller box) is dropped. The result
// is ordered left to right.
func Suppress(cands []Candidate, overlap float64) []Candidate {
	if len(cands) == 0 {
		return nil
	}
	sorted := make([]Candidate, len(cands))
	copy(sorted, cands)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Score > sorted[j].Score })
	kept := make([]Candidate, 0, len(sorted))
	for _, c := range sorted {
		drop := false
		for _, k := range kept {
			if OverlapOfSmaller(c.Box, k.Box) > overlap {
				drop = true
				break
			}
		}
		if !drop {
			kept = append(kept, c)
		}
	}
	sort.SliceStable(kept, func(i, j int) bool { return kept[i].Box.Min.X < kept[j].Box.Min.X })
	return kept
}
