package vision

import (
	"image"
	"math"
)

// Kernel is a template plane prepared for normalized cross-correlation.
// Only non-zero template pixels are stored; zero pixels add nothing to the
// cross term, which keeps sparse binary glyphs cheap to match.
type Kernel struct {
	W, H  int
	px    []int32
	py    []int32
	val   []float64
	meanT float64
	stdT  float64
}

// NewKernel precomputes template statistics. It returns nil for empty or
// constant templates, which have no defined correlation.
func NewKernel(p *Plane) *Kernel {
	if p.Empty() {
		return nil
	}
	k := &Kernel{W: p.W, H: p.H}
	var sumT, sumT2 float64
	for y := 0; y < p.H; y++ {
		for x := 0; x < p.W; x++ {
			v := float64(p.Pix[y*p.W+x])
			if v == 0 {
				continue
			}
			k.px = append(k.px, int32(x))
			k.py = append(k.py, int32(y))
			k.val = append(k.val, v)
			sumT += v
			sumT2 += v * v
		}
	}
	n := float64(p.W * p.H)
	k.meanT = sumT / n
	varT := (sumT2 - sumT*sumT/n) / n
	if varT <= 1e-9 {
		return nil
	}
	k.stdT = math.Sqrt(varT)
	return k
}

// Match is a template hit with its top-left aligned box and NCC score.
type Match struct {
	Box   image.Rectangle
	Score float64
}

// Searcher holds a source plane with its summed-area tables so many kernels
// can be matched against one ROI without recomputing window statistics.
type Searcher struct {
	src        *Plane
	integral   []float64
	integralSq []float64
}

// NewSearcher builds the integral images for src.
func NewSearcher(src *Plane) *Searcher {
	s := &Searcher{src: src}
	if src.Empty() {
		return s
	}
	W, H := src.W, src.H
	s.integral = make([]float64, W*H)
	s.integralSq = make([]float64, W*H)
	for y := 0; y < H; y++ {
		var rowSum, rowSum2 float64
		for x := 0; x < W; x++ {
			off := y*W + x
			v := float64(src.Pix[off])
			rowSum += v
			rowSum2 += v * v
			if y == 0 {
				s.integral[off] = rowSum
				s.integralSq[off] = rowSum2
			} else {
				s.integral[off] = s.integral[off-W] + rowSum
				s.integralSq[off] = s.integralSq[off-W] + rowSum2
			}
		}
	}
	return s
}

// All returns every position whose score is >= threshold.
func (s *Searcher) All(k *Kernel, threshold float64) []Match {
	var out []Match
	s.scan(k, func(x, y int, score float64) {
		if score >= threshold {
			out = append(out, Match{Box: image.Rect(x, y, x+k.W, y+k.H), Score: score})
		}
	})
	return out
}

// Best returns the highest scoring position. ok is false when the kernel
// does not fit or every window is constant.
func (s *Searcher) Best(k *Kernel) (Match, bool) {
	best := Match{Score: -2}
	s.scan(k, func(x, y int, score float64) {
		if score > best.Score {
			best = Match{Box: image.Rect(x, y, x+k.W, y+k.H), Score: score}
		}
	})
	return best, best.Score > -2
}

// scan evaluates TM_CCOEFF_NORMED at every position. Windows with zero
// variance are skipped.
func (s *Searcher) scan(k *Kernel, visit func(x, y int, score float64)) {
	if k == nil || s.src.Empty() {
		return
	}
	W, H := s.src.W, s.src.H
	w, h := k.W, k.H
	if W < w || H < h {
		return
	}
	offs := make([]int, len(k.val))
	for i := range offs {
		offs[i] = int(k.py[i])*W + int(k.px[i])
	}
	n := float64(w * h)
	pix := s.src.Pix
	for y := 0; y <= H-h; y++ {
		for x := 0; x <= W-w; x++ {
			sumF := integralSum(s.integral, W, x, y, x+w-1, y+h-1)
			sumF2 := integralSum(s.integralSq, W, x, y, x+w-1, y+h-1)
			varF := (sumF2 - sumF*sumF/n) / n
			if varF <= 1e-9 {
				continue
			}
			base := y*W + x
			var sumFT float64
			for i, o := range offs {
				sumFT += float64(pix[base+o]) * k.val[i]
			}
			score := (sumFT - sumF*k.meanT) / (n * math.Sqrt(varF) * k.stdT)
			if score > 1 {
				score = 1
			} else if score < -1 {
				score = -1
			}
			visit(x, y, score)
		}
	}
}

// integralSum returns the inclusive sum over rectangle [x0..x1] x [y0..y1]
// from an integral image stored in row-major order with width W.
func integralSum(I []float64, W int, x0, y0, x1, y1 int) float64 {
	if x0 > x1 || y0 > y1 {
		return 0
	}
	A := func(x, y int) float64 {
		if x < 0 || y < 0 {
			return 0
		}
		return I[y*W+x]
	}
	return A(x1, y1) - A(x0-1, y1) - A(x1, y0-1) + A(x0-1, y0-1)
}
