package engine

import (
	"fmt"
	"sort"
	"strings"
)

// Layout characters used by configs and snapshots to encode availability.
const (
	CharEmpty      = '.'
	CharLocked     = 'L'
	CharDisabled   = 'D'
	CharExpandable = 'E'
)

// SlotStateFromChar decodes one layout character.
func SlotStateFromChar(ch rune) (SlotState, error) {
	switch ch {
	case CharEmpty:
		return SlotEmpty, nil
	case CharLocked:
		return SlotLocked, nil
	case CharDisabled:
		return SlotDisabled, nil
	case CharExpandable:
		return SlotExpandable, nil
	default:
		return SlotEmpty, fmt.Errorf("invalid layout character '%c'", ch)
	}
}

// Char encodes the state as a layout character.
func (s SlotState) Char() rune {
	switch s {
	case SlotLocked:
		return CharLocked
	case SlotDisabled:
		return CharDisabled
	case SlotExpandable:
		return CharExpandable
	default:
		return CharEmpty
	}
}

// EncodeLayout renders the availability matrix of g as one string per row.
func EncodeLayout(g *Grid) []string {
	rows := make([]string, g.SizeY())
	for y, row := range g.states {
		var sb strings.Builder
		for _, s := range row {
			sb.WriteRune(s.Char())
		}
		rows[y] = sb.String()
	}
	return rows
}

// ApplyLayout writes layout rows onto g. Rows must match the grid size.
func ApplyLayout(g *Grid, rows []string) error {
	if len(rows) != g.SizeY() {
		return fmt.Errorf("layout has %d rows, grid %s has %d", len(rows), g.ID(), g.SizeY())
	}
	for y, row := range rows {
		runes := []rune(row)
		if len(runes) != g.SizeX() {
			return fmt.Errorf("layout row %d has %d cells, grid %s has %d", y+1, len(runes), g.ID(), g.SizeX())
		}
		for x, ch := range runes {
			s, err := SlotStateFromChar(ch)
			if err != nil {
				return fmt.Errorf("row %d, col %d: %w", y+1, x+1, err)
			}
			g.states[y][x] = s
		}
	}
	return nil
}

// SortCoordinates orders coordinates row-major.
func SortCoordinates(cs []Coordinate) {
	sort.Slice(cs, func(i, j int) bool {
		if cs[i].Y != cs[j].Y {
			return cs[i].Y < cs[j].Y
		}
		return cs[i].X < cs[j].X
	})
}

// CountStates tallies the cells of g per availability state.
func CountStates(g *Grid) map[SlotState]int {
	out := make(map[SlotState]int)
	for _, row := range g.states {
		for _, s := range row {
			out[s]++
		}
	}
	return out
}

// FootprintExtent returns the bounding box size of a set of offsets.
func FootprintExtent(cells []Coordinate) (width, height int) {
	if len(cells) == 0 {
		return 0, 0
	}
	minX, minY := cells[0].X, cells[0].Y
	maxX, maxY := minX, minY
	for _, c := range cells[1:] {
		minX, maxX = min(minX, c.X), max(maxX, c.X)
		minY, maxY = min(minY, c.Y), max(maxY, c.Y)
	}
	return maxX - minX + 1, maxY - minY + 1
}
