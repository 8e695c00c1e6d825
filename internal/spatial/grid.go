package spatial

import (
	"math"
	"sort"

	"github.com/latticeapp/lattice/backend-go/internal/geom"
)

const (
	// DefaultCellSize is the world-unit edge of one grid cell.
	DefaultCellSize = 256

	// CullMarginBase is the viewport expansion for culling, in world units
	// at zoom 1. Scaled by 1/zoom so the screen-space margin is constant
	// and shapes just off-screen stay available during panning.
	CullMarginBase = 100
)

// Flags are the per-entry state bits the index filters on.
type Flags uint8

const (
	FlagHidden Flags = 1 << iota
	FlagLocked
)

type cellKey struct {
	cx, cy int32
}

// Index is a uniform-grid spatial hash. World space is partitioned into
// fixed-size cells; each cell holds the handles whose AABB overlaps it.
// Entry state lives in structure-of-arrays slices indexed by handle, so the
// hot query loops touch flat numeric storage only.
//
// The grid guarantees candidate membership, never exact overlap: queries
// always re-verify containment/overlap against the stored bounds.
type Index struct {
	cellSize float64
	cells    map[cellKey][]Handle

	present                []bool
	minX, minY, maxX, maxY []float64
	zIndex                 []int64
	flags                  []Flags
	seq                    []uint64 // insertion order, for stable z ties
	stamp                  []uint64 // per-query dedupe marks

	nextSeq  uint64
	curStamp uint64
	count    int
}

// NewIndex creates an empty index. cellSize ≤ 0 selects DefaultCellSize.
func NewIndex(cellSize float64) *Index {
	if cellSize <= 0 {
		cellSize = DefaultCellSize
	}
	return &Index{
		cellSize: cellSize,
		cells:    make(map[cellKey][]Handle),
	}
}

// Len is the number of entries currently indexed.
func (ix *Index) Len() int { return ix.count }

// Has reports whether a handle is indexed.
func (ix *Index) Has(h Handle) bool {
	return int(h) < len(ix.present) && ix.present[h]
}

// Bounds returns the stored AABB of an entry.
func (ix *Index) Bounds(h Handle) (minX, minY, maxX, maxY float64, ok bool) {
	if !ix.Has(h) {
		return 0, 0, 0, 0, false
	}
	return ix.minX[h], ix.minY[h], ix.maxX[h], ix.maxY[h], true
}

// EntryFlags returns the stored flag bits of an entry.
func (ix *Index) EntryFlags(h Handle) (Flags, bool) {
	if !ix.Has(h) {
		return 0, false
	}
	return ix.flags[h], true
}

func (ix *Index) grow(h Handle) {
	need := int(h) + 1
	for len(ix.present) < need {
		ix.present = append(ix.present, false)
		ix.minX = append(ix.minX, 0)
		ix.minY = append(ix.minY, 0)
		ix.maxX = append(ix.maxX, 0)
		ix.maxY = append(ix.maxY, 0)
		ix.zIndex = append(ix.zIndex, 0)
		ix.flags = append(ix.flags, 0)
		ix.seq = append(ix.seq, 0)
		ix.stamp = append(ix.stamp, 0)
	}
}

func (ix *Index) cellRange(minX, minY, maxX, maxY float64) (cx0, cy0, cx1, cy1 int32) {
	cx0 = int32(math.Floor(minX / ix.cellSize))
	cy0 = int32(math.Floor(minY / ix.cellSize))
	cx1 = int32(math.Floor(maxX / ix.cellSize))
	cy1 = int32(math.Floor(maxY / ix.cellSize))
	return
}

func (ix *Index) addToCell(key cellKey, h Handle) {
	ix.cells[key] = append(ix.cells[key], h)
}

func (ix *Index) removeFromCell(key cellKey, h Handle) {
	hs := ix.cells[key]
	for i, v := range hs {
		if v == h {
			ix.cells[key] = append(hs[:i], hs[i+1:]...)
			if len(ix.cells[key]) == 0 {
				delete(ix.cells, key)
			}
			return
		}
	}
	// Entry bookkeeping said the handle lives here but the cell disagrees.
	debugAssert(false, "handle missing from overlapped cell")
}

// Upsert inserts an entry or updates it in place. A moved entry is removed
// only from cells it no longer overlaps and added only to newly overlapped
// ones, keeping large-scene updates near O(1) per moved node. Upserting
// identical bounds twice only refreshes z-index and flags.
func (ix *Index) Upsert(h Handle, minX, minY, maxX, maxY float64, z int64, f Flags) {
	ix.grow(h)

	if ix.present[h] {
		ix.zIndex[h] = z
		ix.flags[h] = f
		if minX == ix.minX[h] && minY == ix.minY[h] && maxX == ix.maxX[h] && maxY == ix.maxY[h] {
			return
		}

		ox0, oy0, ox1, oy1 := ix.cellRange(ix.minX[h], ix.minY[h], ix.maxX[h], ix.maxY[h])
		nx0, ny0, nx1, ny1 := ix.cellRange(minX, minY, maxX, maxY)

		for cy := oy0; cy <= oy1; cy++ {
			for cx := ox0; cx <= ox1; cx++ {
				if cx < nx0 || cx > nx1 || cy < ny0 || cy > ny1 {
					ix.removeFromCell(cellKey{cx, cy}, h)
				}
			}
		}
		for cy := ny0; cy <= ny1; cy++ {
			for cx := nx0; cx <= nx1; cx++ {
				if cx < ox0 || cx > ox1 || cy < oy0 || cy > oy1 {
					ix.addToCell(cellKey{cx, cy}, h)
				}
			}
		}

		ix.minX[h], ix.minY[h], ix.maxX[h], ix.maxY[h] = minX, minY, maxX, maxY
		return
	}

	ix.present[h] = true
	ix.count++
	ix.nextSeq++
	ix.seq[h] = ix.nextSeq
	ix.minX[h], ix.minY[h], ix.maxX[h], ix.maxY[h] = minX, minY, maxX, maxY
	ix.zIndex[h] = z
	ix.flags[h] = f

	cx0, cy0, cx1, cy1 := ix.cellRange(minX, minY, maxX, maxY)
	for cy := cy0; cy <= cy1; cy++ {
		for cx := cx0; cx <= cx1; cx++ {
			ix.addToCell(cellKey{cx, cy}, h)
		}
	}
}

// Remove drops an entry from all cells and clears its stored state.
// Removing an absent handle is a no-op, not an error.
func (ix *Index) Remove(h Handle) {
	if !ix.Has(h) {
		return
	}
	cx0, cy0, cx1, cy1 := ix.cellRange(ix.minX[h], ix.minY[h], ix.maxX[h], ix.maxY[h])
	for cy := cy0; cy <= cy1; cy++ {
		for cx := cx0; cx <= cx1; cx++ {
			ix.removeFromCell(cellKey{cx, cy}, h)
		}
	}
	ix.present[h] = false
	ix.flags[h] = 0
	ix.count--
}

// Clear drops every entry. Only called on full-document reload; the caller
// resets the registry (and with it the handle allocator) alongside.
func (ix *Index) Clear() {
	ix.cells = make(map[cellKey][]Handle)
	ix.present = ix.present[:0]
	ix.minX, ix.minY = ix.minX[:0], ix.minY[:0]
	ix.maxX, ix.maxY = ix.maxX[:0], ix.maxY[:0]
	ix.zIndex = ix.zIndex[:0]
	ix.flags = ix.flags[:0]
	ix.seq = ix.seq[:0]
	ix.stamp = ix.stamp[:0]
	ix.count = 0
	ix.nextSeq = 0
	ix.curStamp = 0
}

// QueryPoint returns the handles whose AABB contains the point, topmost
// first: descending z-index, insertion order breaking ties. Hidden and
// locked entries are excluded — this is the hit-test query.
func (ix *Index) QueryPoint(x, y float64) []Handle {
	key := cellKey{
		int32(math.Floor(x / ix.cellSize)),
		int32(math.Floor(y / ix.cellSize)),
	}

	var out []Handle
	for _, h := range ix.cells[key] {
		if !ix.present[h] {
			debugAssert(false, "stale handle in cell")
			continue
		}
		if ix.flags[h]&(FlagHidden|FlagLocked) != 0 {
			continue
		}
		if x >= ix.minX[h] && x <= ix.maxX[h] && y >= ix.minY[h] && y <= ix.maxY[h] {
			out = append(out, h)
		}
	}
	ix.sortTopFirst(out)
	return out
}

// QueryRect returns all handles whose AABB truly overlaps the rectangle,
// regardless of flags; callers filter for their use case. Results are in
// ascending z-index (paint) order.
func (ix *Index) QueryRect(minX, minY, maxX, maxY float64) []Handle {
	return ix.queryRect(minX, minY, maxX, maxY, 0)
}

func (ix *Index) queryRect(minX, minY, maxX, maxY float64, exclude Flags) []Handle {
	ix.curStamp++
	mark := ix.curStamp

	var out []Handle
	cx0, cy0, cx1, cy1 := ix.cellRange(minX, minY, maxX, maxY)
	for cy := cy0; cy <= cy1; cy++ {
		for cx := cx0; cx <= cx1; cx++ {
			for _, h := range ix.cells[cellKey{cx, cy}] {
				if ix.stamp[h] == mark {
					continue
				}
				ix.stamp[h] = mark
				if !ix.present[h] {
					debugAssert(false, "stale handle in cell")
					continue
				}
				if ix.flags[h]&exclude != 0 {
					continue
				}
				// The coarse cell pass over-reports; verify the overlap.
				if ix.minX[h] <= maxX && minX <= ix.maxX[h] &&
					ix.minY[h] <= maxY && minY <= ix.maxY[h] {
					out = append(out, h)
				}
			}
		}
	}
	ix.sortPaintOrder(out)
	return out
}

// QueryNear returns handles whose AABB lies within radius of the point,
// nearest cells first filtered by exact clamped-axis distance. Hidden
// entries are excluded; locked shapes are still valid snap targets.
func (ix *Index) QueryNear(x, y, radius float64) []Handle {
	candidates := ix.queryRect(x-radius, y-radius, x+radius, y+radius, FlagHidden)
	out := candidates[:0]
	for _, h := range candidates {
		dx := math.Max(0, math.Max(ix.minX[h]-x, x-ix.maxX[h]))
		dy := math.Max(0, math.Max(ix.minY[h]-y, y-ix.maxY[h]))
		if math.Hypot(dx, dy) <= radius {
			out = append(out, h)
		}
	}
	return out
}

// CullVisible returns the non-hidden entries overlapping the camera's
// visible world bounds expanded by CullMarginBase/zoom, in paint order.
func (ix *Index) CullVisible(view geom.Rect, zoom float64) []Handle {
	if zoom <= 0 {
		zoom = 1
	}
	m := CullMarginBase / zoom
	return ix.queryRect(view.X-m, view.Y-m, view.X+view.W+m, view.Y+view.H+m, FlagHidden)
}

func (ix *Index) sortTopFirst(hs []Handle) {
	sort.SliceStable(hs, func(i, j int) bool {
		hi, hj := hs[i], hs[j]
		if ix.zIndex[hi] != ix.zIndex[hj] {
			return ix.zIndex[hi] > ix.zIndex[hj]
		}
		return ix.seq[hi] < ix.seq[hj]
	})
}

func (ix *Index) sortPaintOrder(hs []Handle) {
	sort.SliceStable(hs, func(i, j int) bool {
		hi, hj := hs[i], hs[j]
		if ix.zIndex[hi] != ix.zIndex[hj] {
			return ix.zIndex[hi] < ix.zIndex[hj]
		}
		return ix.seq[hi] < ix.seq[hj]
	})
}
