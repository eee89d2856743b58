package detect

import "github.com/kolamlabs/kolamscan/pkg/imaging"

// Skeletonize thins a binary mask to single-pixel-wide strokes using
// Zhang-Suen iterative thinning. The input mask is not modified.
func Skeletonize(m *imaging.Mask) *imaging.Mask {
	sk := m.Clone()
	for {
		r1 := thinPass(sk, true)
		r2 := thinPass(sk, false)
		if r1+r2 == 0 {
			return sk
		}
	}
}

// thinPass removes one layer of boundary pixels matching the Zhang-Suen
// conditions for the given sub-iteration and returns the removal count.
func thinPass(m *imaging.Mask, first bool) int {
	w, h := m.W, m.H
	var remove []int
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			if !m.At(x, y) {
				continue
			}
			// Neighbors clockwise from north: p2..p9.
			p := [8]bool{
				m.At(x, y-1), m.At(x+1, y-1), m.At(x+1, y), m.At(x+1, y+1),
				m.At(x, y+1), m.At(x-1, y+1), m.At(x-1, y), m.At(x-1, y-1),
			}
			b := 0
			for _, v := range p {
				if v {
					b++
				}
			}
			if b < 2 || b > 6 {
				continue
			}
			// Transitions false->true around the ring.
			a := 0
			for i := 0; i < 8; i++ {
				if !p[i] && p[(i+1)%8] {
					a++
				}
			}
			if a != 1 {
				continue
			}
			if first {
				if (p[0] && p[2] && p[4]) || (p[2] && p[4] && p[6]) {
					continue
				}
			} else {
				if (p[0] && p[2] && p[6]) || (p[0] && p[4] && p[6]) {
					continue
				}
			}
			remove = append(remove, y*w+x)
		}
	}
	for _, i := range remove {
		m.Pix[i] = false
	}
	return len(remove)
}
