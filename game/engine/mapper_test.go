package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapperToGridCoordinate(t *testing.T) {
	m := NewMapper(Vec2{X: 100, Y: 100}, 50, 4, 4)

	tests := []struct {
		name string
		p    Vec2
		want Coordinate
	}{
		{"far edge maps to last cell", Vec2{X: 200, Y: 200}, Coordinate{X: 3, Y: 3}},
		{"origin", Vec2{}, Coordinate{}},
		{"interior", Vec2{X: 99, Y: 151}, Coordinate{X: 1, Y: 3}},
		{"cell boundary belongs to the next cell", Vec2{X: 50, Y: 100}, Coordinate{X: 1, Y: 2}},
		{"outside is clamped", Vec2{X: -50, Y: 500}, Coordinate{X: 0, Y: 3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, m.ToGridCoordinate(tt.p))
		})
	}
}

func TestMapperRectangular(t *testing.T) {
	m := NewMapper(Vec2{X: 0, Y: 0}, 10, 3, 2)
	b := m.Bounds()
	assert.Equal(t, Vec2{X: -15, Y: -10}, b.Min)
	assert.Equal(t, Vec2{X: 15, Y: 10}, b.Max)

	assert.Equal(t, Coordinate{X: 2, Y: 1}, m.ToGridCoordinate(b.Max))
	assert.Equal(t, Coordinate{X: 2, Y: 0}, m.ToGridCoordinate(Vec2{X: 14, Y: -1}))
}

func TestMapperWorldRoundTrip(t *testing.T) {
	m := NewMapper(Vec2{X: 100, Y: 100}, 50, 4, 4)
	assert.Equal(t, Vec2{X: 75, Y: 125}, m.ToWorldPosition(Coordinate{X: 1, Y: 2}))

	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			c := Coordinate{X: x, Y: y}
			assert.Equal(t, c, m.ToGridCoordinate(m.ToWorldPosition(c)))
		}
	}
}

func TestMapperFootprintTests(t *testing.T) {
	m := NewMapper(Vec2{X: 100, Y: 100}, 50, 4, 4)
	bar := []Coordinate{{}, {X: 1}}

	assert.True(t, m.Contains(Vec2{X: 200, Y: 0}), "edges are inside")
	assert.False(t, m.Contains(Vec2{X: 200.1, Y: 0}))

	assert.True(t, m.EntirelyInside(Vec2{X: 125, Y: 25}, bar))
	assert.True(t, m.Intersects(Vec2{X: 175, Y: 25}, bar))
	assert.False(t, m.EntirelyInside(Vec2{X: 175, Y: 25}, bar))
	assert.False(t, m.Intersects(Vec2{X: 500, Y: 500}, bar))

	points := m.FootprintPoints(Vec2{X: 25, Y: 25}, []Coordinate{{X: 1, Y: -1}})
	assert.Equal(t, []Vec2{{X: 75, Y: -25}}, points)
}

func TestMapperAnchorFor(t *testing.T) {
	m := NewMapper(Vec2{X: 100, Y: 100}, 50, 4, 4)

	assert.Equal(t, Coordinate{X: 1, Y: 1}, m.AnchorFor(Vec2{X: 80, Y: 90}, []Coordinate{{}, {X: 1}}))

	// The anchor point sits left of the region; only the cell is over (0,1).
	offset := []Coordinate{{X: 2}}
	pos := Vec2{X: -75, Y: 75}
	require.True(t, m.EntirelyInside(pos, offset))
	assert.Equal(t, Coordinate{X: -2, Y: 1}, m.AnchorFor(pos, offset))
	assert.Equal(t, Coordinate{Y: 1}, m.ToGridCoordinate(pos), "clamped mapping of the anchor point")
}

func TestPresenters(t *testing.T) {
	var p Presenter = IdentityPresenter{}
	assert.Equal(t, Vec2{X: 3, Y: 4}, p.PointerToRect(Vec2{X: 3, Y: 4}))

	p = ScalePresenter{Scale: 2, Offset: Vec2{X: 10, Y: 10}}
	assert.Equal(t, Vec2{X: 100, Y: 50}, p.PointerToRect(Vec2{X: 210, Y: 110}))
	assert.Equal(t, Vec2{X: 7, Y: 7}, p.WorldToRect(Vec2{X: 7, Y: 7}))

	p = ScalePresenter{}
	assert.Equal(t, Vec2{X: 1, Y: 1}, p.PointerToRect(Vec2{X: 1, Y: 1}))
}
