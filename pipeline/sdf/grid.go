package sdf

import (
	"github.com/spaghettifunk/atlante/pipeline/math"
)

/**
 * @brief A uniform grid acceleration structure binning triangles into cells.
 * Distance queries expand outward ring by ring from the query cell; axis ray
 * queries walk the cells along the ray column.
 */
type triangleGrid struct {
	triangles []Triangle
	bounds    math.Extents3D
	dims      [3]int
	cellSize  math.Vec3
	cells     [][]int32
}

// gridScratch holds per-query state so concurrent queries do not share marks.
type gridScratch struct {
	stamps []uint32
	query  uint32
}

func (g *triangleGrid) newScratch() *gridScratch {
	return &gridScratch{stamps: make([]uint32, len(g.triangles))}
}

func newTriangleGrid(triangles []Triangle, bounds math.Extents3D, dims [3]int) *triangleGrid {
	g := &triangleGrid{
		triangles: triangles,
		bounds:    bounds,
		dims:      dims,
		cells:     make([][]int32, dims[0]*dims[1]*dims[2]),
	}
	size := bounds.Size()
	for i := 0; i < 3; i++ {
		g.cellSize[i] = size[i] / float32(dims[i])
		if g.cellSize[i] <= 0 {
			g.cellSize[i] = math.K_FLOAT_EPSILON
		}
	}

	for ti := range triangles {
		if triangles[ti].IsDegenerate() {
			continue
		}
		tb := triangles[ti].Bounds()
		min := g.cellOf(tb.Min)
		max := g.cellOf(tb.Max)
		for z := min[2]; z <= max[2]; z++ {
			for y := min[1]; y <= max[1]; y++ {
				for x := min[0]; x <= max[0]; x++ {
					ci := g.cellIndex(x, y, z)
					g.cells[ci] = append(g.cells[ci], int32(ti))
				}
			}
		}
	}

	return g
}

func (g *triangleGrid) cellIndex(x, y, z int) int {
	return (z*g.dims[1]+y)*g.dims[0] + x
}

// cellOf returns the cell coordinate containing p, clamped into the grid.
func (g *triangleGrid) cellOf(p math.Vec3) [3]int {
	var cell [3]int
	rel := p.Sub(g.bounds.Min)
	for i := 0; i < 3; i++ {
		cell[i] = math.Clamp(int(rel[i]/g.cellSize[i]), 0, g.dims[i]-1)
	}
	return cell
}

/**
 * @brief Returns the distance from p to the closest triangle, searching
 * cells ring by ring outward until the found distance cannot be beaten.
 */
func (g *triangleGrid) ClosestDistance(p math.Vec3) float32 {
	center := g.cellOf(p)
	minCell := math.Min(g.cellSize[0], math.Min(g.cellSize[1], g.cellSize[2]))
	maxRing := math.Max(g.dims[0], math.Max(g.dims[1], g.dims[2]))

	bestSq := inf32
	found := false

	for ring := 0; ring <= maxRing; ring++ {
		if found {
			// Any triangle in a farther ring is at least (ring-1) cells away.
			reach := float32(ring-1) * minCell
			if reach > 0 && reach*reach > bestSq {
				break
			}
		}
		g.forEachRingCell(center, ring, func(ci int) {
			for _, ti := range g.cells[ci] {
				distSq := g.triangles[ti].DistanceSquared(p)
				if distSq < bestSq {
					bestSq = distSq
					found = true
				}
			}
		})
	}

	if !found {
		return inf32
	}
	return math.Sqrt32(bestSq)
}

// forEachRingCell visits every in-bounds cell at Chebyshev distance `ring`
// from the center cell.
func (g *triangleGrid) forEachRingCell(center [3]int, ring int, visit func(ci int)) {
	if ring == 0 {
		visit(g.cellIndex(center[0], center[1], center[2]))
		return
	}
	for z := center[2] - ring; z <= center[2]+ring; z++ {
		if z < 0 || z >= g.dims[2] {
			continue
		}
		for y := center[1] - ring; y <= center[1]+ring; y++ {
			if y < 0 || y >= g.dims[1] {
				continue
			}
			for x := center[0] - ring; x <= center[0]+ring; x++ {
				if x < 0 || x >= g.dims[0] {
					continue
				}
				// Skip interior cells, they were visited by smaller rings.
				dx, dy, dz := abs(x-center[0]), abs(y-center[1]), abs(z-center[2])
				if dx != ring && dy != ring && dz != ring {
					continue
				}
				visit(g.cellIndex(x, y, z))
			}
		}
	}
}

/**
 * @brief Casts an axis-aligned ray from origin and counts triangle hits and
 * back-face hits. Only the cells in the ray's column are tested; a triangle
 * spanning several cells is tested once.
 */
func (g *triangleGrid) RaycastAxis(origin math.Vec3, axis int, positive bool, scratch *gridScratch) (hits, backHits int) {
	direction := math.Vec3{}
	if positive {
		direction[axis] = 1
	} else {
		direction[axis] = -1
	}

	scratch.query++
	start := g.cellOf(origin)

	step := 1
	end := g.dims[axis]
	if !positive {
		step = -1
		end = -1
	}

	cell := start
	for c := start[axis]; c != end; c += step {
		cell[axis] = c
		ci := g.cellIndex(cell[0], cell[1], cell[2])
		for _, ti := range g.cells[ci] {
			if scratch.stamps[ti] == scratch.query {
				continue
			}
			scratch.stamps[ti] = scratch.query
			if _, backface, ok := g.triangles[ti].Raycast(origin, direction); ok {
				hits++
				if backface {
					backHits++
				}
			}
		}
	}

	return hits, backHits
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
