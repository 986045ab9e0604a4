package console

// ---------------------------------------------------------------------------
// Arenas
// ---------------------------------------------------------------------------

const chunkSize = 64

// chunker bump-allocates T values in fixed-size blocks. Values are never
// freed individually; reset releases them all at once and advances the
// generation so stale pointers can be told apart from live ones.
type chunker[T any] struct {
	blocks [][]T
	used   int // slots used in the last block
	gen    uint32
}

func (c *chunker[T]) alloc() *T {
	if len(c.blocks) == 0 || c.used == chunkSize {
		c.blocks = append(c.blocks, make([]T, chunkSize))
		c.used = 0
	}
	v := &c.blocks[len(c.blocks)-1][c.used]
	c.used++
	return v
}

// reset drops every allocation, keeping the first block for reuse.
func (c *chunker[T]) reset() {
	if len(c.blocks) > 0 {
		first := c.blocks[0]
		var zero T
		for i := range first {
			first[i] = zero
		}
		for i := 1; i < len(c.blocks); i++ {
			c.blocks[i] = nil
		}
		c.blocks = c.blocks[:1]
	}
	c.used = 0
	c.gen++
}

// sliceArena carves variable-length slices out of shared blocks. The
// namespace lookup caches live here and are released together.
type sliceArena[T any] struct {
	block []T
	off   int
	size  int
}

func newSliceArena[T any](size int) *sliceArena[T] {
	return &sliceArena[T]{size: size}
}

func (a *sliceArena[T]) alloc(n int) []T {
	if n > a.size {
		return make([]T, n)
	}
	if a.block == nil || a.off+n > len(a.block) {
		a.block = make([]T, a.size)
		a.off = 0
	}
	s := a.block[a.off : a.off+n : a.off+n]
	a.off += n
	return s
}

// reset forgets every slice handed out so far.
func (a *sliceArena[T]) reset() {
	a.block = nil
	a.off = 0
}
