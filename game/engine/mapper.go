package engine

import "math"

// upperNorm is the largest float64 below 1. Normalised positions are clamped
// to it so the far edge never selects a cell past the end.
var upperNorm = math.Nextafter(1, 0)

// Bounds is an axis-aligned rectangle in rect space.
type Bounds struct {
	Min Vec2 `json:"min"`
	Max Vec2 `json:"max"`
}

// Contains reports whether p lies inside b, edges included.
func (b Bounds) Contains(p Vec2) bool {
	return p.X >= b.Min.X && p.Y >= b.Min.Y && p.X <= b.Max.X && p.Y <= b.Max.Y
}

// Mapper converts between the rect space of a grid's region and its integer
// cells. It holds no state beyond its parameters.
type Mapper struct {
	Center   Vec2    `json:"center"`
	CellSize float64 `json:"cell_size"`
	SizeX    int     `json:"size_x"`
	SizeY    int     `json:"size_y"`
}

// NewMapper creates a mapper for a sizeX x sizeY grid centred at center.
func NewMapper(center Vec2, cellSize float64, sizeX, sizeY int) Mapper {
	return Mapper{Center: center, CellSize: cellSize, SizeX: sizeX, SizeY: sizeY}
}

// Width of the region in rect units.
func (m Mapper) Width() float64 { return m.CellSize * float64(m.SizeX) }

// Height of the region in rect units.
func (m Mapper) Height() float64 { return m.CellSize * float64(m.SizeY) }

// Bounds returns the region covered by the grid.
func (m Mapper) Bounds() Bounds {
	half := Vec2{X: 0.5 * m.Width(), Y: 0.5 * m.Height()}
	return Bounds{Min: m.Center.Sub(half), Max: m.Center.Add(half)}
}

// Contains reports whether p is inside the grid region.
func (m Mapper) Contains(p Vec2) bool {
	return m.Bounds().Contains(p)
}

// ToGridCoordinate maps a rect position to the cell containing it. The point is
// first clamped into the region, then the discrete result is clamped into
// [0, size-1] because floating point edges can still floor to size.
func (m Mapper) ToGridCoordinate(p Vec2) Coordinate {
	b := m.Bounds()
	x := clampFloat(p.X, b.Min.X, b.Max.X)
	y := clampFloat(p.Y, b.Min.Y, b.Max.Y)

	nx := clampFloat((x-b.Min.X)/m.Width(), 0, upperNorm) * float64(m.SizeX)
	ny := clampFloat((y-b.Min.Y)/m.Height(), 0, upperNorm) * float64(m.SizeY)

	return Coordinate{
		X: clampInt(int(math.Floor(nx)), 0, m.SizeX-1),
		Y: clampInt(int(math.Floor(ny)), 0, m.SizeY-1),
	}
}

// ToWorldPosition returns the centre of cell c. It inverts ToGridCoordinate for
// interior cells only.
func (m Mapper) ToWorldPosition(c Coordinate) Vec2 {
	b := m.Bounds()
	return Vec2{
		X: b.Min.X + (float64(c.X)+0.5)*m.CellSize,
		Y: b.Min.Y + (float64(c.Y)+0.5)*m.CellSize,
	}
}

// FootprintPoints returns the rect position of each footprint cell when the
// item's anchor cell sits at pos.
func (m Mapper) FootprintPoints(pos Vec2, cells []Coordinate) []Vec2 {
	points := make([]Vec2, len(cells))
	for i, c := range cells {
		points[i] = pos.Add(Vec2{X: float64(c.X) * m.CellSize, Y: float64(c.Y) * m.CellSize})
	}
	return points
}

// AnchorFor returns the anchor cell of a footprint whose anchor sits at pos.
// It is derived from the first footprint cell, so an anchor lying outside the
// region (a footprint without the origin cell) is not clamped. The result is
// only meaningful when EntirelyInside holds.
func (m Mapper) AnchorFor(pos Vec2, cells []Coordinate) Coordinate {
	if len(cells) == 0 {
		return m.ToGridCoordinate(pos)
	}
	first := m.ToGridCoordinate(m.FootprintPoints(pos, cells[:1])[0])
	return first.Sub(cells[0])
}

// Intersects reports whether any footprint cell lies inside the region.
func (m Mapper) Intersects(pos Vec2, cells []Coordinate) bool {
	for _, p := range m.FootprintPoints(pos, cells) {
		if m.Contains(p) {
			return true
		}
	}
	return false
}

// EntirelyInside reports whether every footprint cell lies inside the region.
func (m Mapper) EntirelyInside(pos Vec2, cells []Coordinate) bool {
	for _, p := range m.FootprintPoints(pos, cells) {
		if !m.Contains(p) {
			return false
		}
	}
	return true
}

// Presenter converts presentation-layer positions into rect space. World and
// pointer positions arrive through separate entry points.
type Presenter interface {
	WorldToRect(world Vec2) Vec2
	PointerToRect(pointer Vec2) Vec2
}

// IdentityPresenter treats world and pointer positions as rect positions.
type IdentityPresenter struct{}

func (IdentityPresenter) WorldToRect(world Vec2) Vec2     { return world }
func (IdentityPresenter) PointerToRect(pointer Vec2) Vec2 { return pointer }

// ScalePresenter maps pointer positions with a uniform scale and offset, as a
// canvas scaled to the screen would. World positions are already rect.
type ScalePresenter struct {
	Scale  float64 `json:"scale"`
	Offset Vec2    `json:"offset"`
}

func (p ScalePresenter) WorldToRect(world Vec2) Vec2 { return world }

func (p ScalePresenter) PointerToRect(pointer Vec2) Vec2 {
	scale := p.Scale
	if scale == 0 {
		scale = 1
	}
	return pointer.Sub(p.Offset).Scale(1 / scale)
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
