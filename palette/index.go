package palette

import (
	"slices"
	"sync"
	"sync/atomic"

	"gonum.org/v1/gonum/spatial/kdtree"
)

// DefaultCacheSize bounds the lookup memo
const DefaultCacheSize = 16384

// Index resolves colors to the slot of the nearest palette entry.
// Entries are fixed at construction, so memoized results never go stale.
// When the memo reaches its bound it is cleared and refilled.
type Index struct {
	mu        sync.RWMutex
	entries   []Entry
	tree      *kdtree.Tree
	cache     map[uint32]int
	cacheSize int

	hits   atomic.Uint64
	misses atomic.Uint64
}

// NewIndex builds a nearest-color index over the entries.
// An empty entry set yields an index whose lookups fail with ErrNoPalette.
func NewIndex(entries []Entry, cacheSize int) *Index {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}

	ix := &Index{
		entries:   slices.Clone(entries),
		cache:     make(map[uint32]int, min(cacheSize, 4096)),
		cacheSize: cacheSize,
	}
	if len(entries) == 0 {
		return ix
	}

	pts := make(colorPoints, len(entries))
	for i, e := range entries {
		pts[i] = colorPoint{
			pos: [3]float64{float64(e.Color.R), float64(e.Color.G), float64(e.Color.B)},
			idx: i,
		}
	}
	ix.tree = kdtree.New(pts, false)
	return ix
}

// Lookup returns the slot of the entry closest to c in Euclidean RGB distance.
// Equidistant entries resolve to the lowest entry index.
func (ix *Index) Lookup(c RGB) (int, error) {
	k := c.key()

	ix.mu.RLock()
	if ix.tree == nil {
		ix.mu.RUnlock()
		return 0, ErrNoPalette
	}
	slot, ok := ix.cache[k]
	ix.mu.RUnlock()
	if ok {
		ix.hits.Add(1)
		return slot, nil
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()
	if ix.tree == nil {
		return 0, ErrNoPalette
	}

	ix.misses.Add(1)
	slot = ix.entries[ix.nearest(c)].Slot
	if len(ix.cache) >= ix.cacheSize {
		clear(ix.cache)
	}
	ix.cache[k] = slot
	return slot, nil
}

// nearest returns the entry index for c, caller holds the lock
func (ix *Index) nearest(c RGB) int {
	q := colorPoint{pos: [3]float64{float64(c.R), float64(c.G), float64(c.B)}, idx: -1}
	found, dist := ix.tree.Nearest(q)
	best := found.(colorPoint).idx
	if dist == 0 {
		return best
	}

	// Collect every entry at the winning distance and keep the lowest index
	keeper := kdtree.NewDistKeeper(dist)
	ix.tree.NearestSet(keeper, q)
	for _, cd := range keeper.Heap {
		if cd.Comparable == nil {
			continue
		}
		if p := cd.Comparable.(colorPoint); p.idx < best {
			best = p.idx
		}
	}
	return best
}

// Len returns the number of palette entries
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.entries)
}

// Entries returns a copy of the palette entries
func (ix *Index) Entries() []Entry {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return slices.Clone(ix.entries)
}

// Stats returns memo hit and miss counts
func (ix *Index) Stats() (hits, misses uint64) {
	return ix.hits.Load(), ix.misses.Load()
}

// Release drops the tree and memo. Subsequent lookups return ErrNoPalette.
func (ix *Index) Release() {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.tree = nil
	ix.entries = nil
	ix.cache = nil
}

// colorPoint is a palette color in kd-tree space carrying its entry index
type colorPoint struct {
	pos [3]float64
	idx int
}

func (p colorPoint) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	q := c.(colorPoint)
	return p.pos[d] - q.pos[d]
}

func (p colorPoint) Dims() int { return 3 }

// Distance is squared Euclidean distance, as kdtree expects
func (p colorPoint) Distance(c kdtree.Comparable) float64 {
	q := c.(colorPoint)
	dr := p.pos[0] - q.pos[0]
	dg := p.pos[1] - q.pos[1]
	db := p.pos[2] - q.pos[2]
	return dr*dr + dg*dg + db*db
}

type colorPoints []colorPoint

func (p colorPoints) Index(i int) kdtree.Comparable         { return p[i] }
func (p colorPoints) Len() int                              { return len(p) }
func (p colorPoints) Pivot(d kdtree.Dim) int                { return colorPlane{colorPoints: p, Dim: d}.Pivot() }
func (p colorPoints) Slice(start, end int) kdtree.Interface { return p[start:end] }

// colorPlane orders points along one dimension for median partitioning
type colorPlane struct {
	colorPoints
	kdtree.Dim
}

func (p colorPlane) Less(i, j int) bool {
	return p.colorPoints[i].pos[p.Dim] < p.colorPoints[j].pos[p.Dim]
}

func (p colorPlane) Swap(i, j int) {
	p.colorPoints[i], p.colorPoints[j] = p.colorPoints[j], p.colorPoints[i]
}

func (p colorPlane) Slice(start, end int) kdtree.SortSlicer {
	return colorPlane{colorPoints: p.colorPoints[start:end], Dim: p.Dim}
}

func (p colorPlane) Pivot() int {
	return kdtree.Partition(p, kdtree.MedianOfMedians(p))
}
