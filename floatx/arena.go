// Copyright (c) 2015 AKUALAB INC., All rights reserved.
//
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package floatx

// DefaultBlockSize is the number of elements in an arena block.
const DefaultBlockSize = 1 << 16

// Arena hands out zeroed slices carved from large blocks. Blocks are kept
// across Reset calls so the peak footprint is that of the largest user.
// Slices obtained before Reset must not be used after it.
// Not safe to use with multiple goroutines.
type Arena struct {
	blockSize int
	floats    slab[float64]
	ints      slab[int]
}

// NewArena creates an arena. Uses DefaultBlockSize when blockSize <= 0.
func NewArena(blockSize int) *Arena {
	if blockSize <= 0 {
		blockSize = DefaultBlockSize
	}
	return &Arena{
		blockSize: blockSize,
		floats:    slab[float64]{size: blockSize},
		ints:      slab[int]{size: blockSize},
	}
}

// Floats returns a zeroed slice of length n.
func (a *Arena) Floats(n int) []float64 { return a.floats.alloc(n) }

// Ints returns a zeroed slice of length n.
func (a *Arena) Ints(n int) []int { return a.ints.alloc(n) }

// Float2D returns a zeroed n1 x n2 matrix backed by a single arena slice.
func (a *Arena) Float2D(n1, n2 int) [][]float64 {
	data := a.Floats(n1 * n2)
	s := make([][]float64, n1)
	for i := range s {
		s[i] = data[i*n2 : (i+1)*n2 : (i+1)*n2]
	}
	return s
}

// Reset releases every slice handed out so far.
func (a *Arena) Reset() {
	a.floats.reset()
	a.ints.reset()
}

// Len returns the number of elements currently handed out.
func (a *Arena) Len() int { return a.floats.used + a.ints.used }

type slab[T any] struct {
	size   int
	blocks [][]T
	cur    int // index of the block in use
	pos    int // next free element in the current block
	used   int
}

func (s *slab[T]) alloc(n int) []T {
	if n < 0 {
		panic(ErrIndexOutOfRange)
	}
	s.used += n
	if n > s.size {
		// Oversized requests are not pooled.
		return make([]T, n)
	}
	if len(s.blocks) == 0 {
		s.blocks = append(s.blocks, make([]T, s.size))
	}
	if s.pos+n > s.size {
		s.cur++
		s.pos = 0
		if s.cur == len(s.blocks) {
			s.blocks = append(s.blocks, make([]T, s.size))
		}
	}
	out := s.blocks[s.cur][s.pos : s.pos+n : s.pos+n]
	s.pos += n
	var zero T
	for i := range out {
		out[i] = zero
	}
	return out
}

func (s *slab[T]) reset() {
	s.cur = 0
	s.pos = 0
	s.used = 0
}
