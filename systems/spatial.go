// Package systems provides the per-organism update rules of the simulation.
package systems

import (
	"math"

	"github.com/pthm-cable/evolab/environment"
)

// FoodGrid buckets food sources into square cells so nearest-food queries only
// scan the cells a sensor radius can reach. The arena does not wrap.
type FoodGrid struct {
	cellSize float64
	cols     int
	rows     int
	cells    [][]int // indices into the food slice passed to Rebuild
}

// NewFoodGrid creates a grid covering the given arena size.
func NewFoodGrid(width, height, cellSize float64) *FoodGrid {
	cols := int(width/cellSize) + 1
	rows := int(height/cellSize) + 1

	cells := make([][]int, cols*rows)
	for i := range cells {
		cells[i] = make([]int, 0, 4)
	}

	return &FoodGrid{
		cellSize: cellSize,
		cols:     cols,
		rows:     rows,
		cells:    cells,
	}
}

// Clear removes all food from the grid.
func (g *FoodGrid) Clear() {
	for i := range g.cells {
		g.cells[i] = g.cells[i][:0]
	}
}

// Rebuild clears the grid and inserts every unconsumed source.
func (g *FoodGrid) Rebuild(food []environment.FoodSource) {
	g.Clear()
	for i := range food {
		if food[i].Consumed {
			continue
		}
		idx := g.cellIndex(food[i].X, food[i].Y)
		g.cells[idx] = append(g.cells[idx], i)
	}
}

// Nearest returns the index of the closest unconsumed source strictly within
// radius of (x, y). Sources consumed after the last Rebuild are skipped.
// Equal distances resolve to the lowest index, matching NearestFood.
func (g *FoodGrid) Nearest(food []environment.FoodSource, x, y, radius float64) (idx int, dist float64, ok bool) {
	cellRadius := int(radius/g.cellSize) + 1
	centerCol, centerRow := g.cellCoords(x, y)

	minCol, maxCol := max(centerCol-cellRadius, 0), min(centerCol+cellRadius, g.cols-1)
	minRow, maxRow := max(centerRow-cellRadius, 0), min(centerRow+cellRadius, g.rows-1)

	idx, dist = -1, radius
	for row := minRow; row <= maxRow; row++ {
		for col := minCol; col <= maxCol; col++ {
			for _, i := range g.cells[row*g.cols+col] {
				f := &food[i]
				if f.Consumed {
					continue
				}
				d := math.Hypot(f.X-x, f.Y-y)
				if d < dist || (ok && d == dist && i < idx) {
					idx, dist, ok = i, d, true
				}
			}
		}
	}
	if !ok {
		return -1, 0, false
	}
	return idx, dist, true
}

func (g *FoodGrid) cellCoords(x, y float64) (col, row int) {
	col = int(x / g.cellSize)
	row = int(y / g.cellSize)

	// Clamp to valid range
	if col < 0 {
		col = 0
	} else if col >= g.cols {
		col = g.cols - 1
	}
	if row < 0 {
		row = 0
	} else if row >= g.rows {
		row = g.rows - 1
	}
	return col, row
}

// cellIndex returns the flat index for a position.
func (g *FoodGrid) cellIndex(x, y float64) int {
	col, row := g.cellCoords(x, y)
	return row*g.cols + col
}
