package engine

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
)

const (
	// Validation constants
	MinGridSize     = 1
	MaxGridSize     = 32
	MaxPoolCapacity = 128
	MaxRarity       = 3
	DefaultCellSize = 50

	// Animation durations in seconds
	ReturnSlideDuration = 0.25
	RotateDuration      = 0.1
)

var (
	ErrOutOfBounds      = errors.New("coordinate out of bounds")
	ErrPoolExhausted    = errors.New("no empty pool slot")
	ErrUnknownItem      = errors.New("unknown item")
	ErrUnknownGrid      = errors.New("unknown grid")
	ErrDuplicateItem    = errors.New("item already on board")
	ErrDragInProgress   = errors.New("another item is being dragged")
	ErrNotDragging      = errors.New("item is not being dragged")
	ErrInvalidFootprint = errors.New("footprint must contain at least one cell")
	ErrNotExpandable    = errors.New("slot cannot be expanded")
)

// Coordinate is an integer grid position, used both as an absolute cell index
// and as a footprint offset relative to an anchor.
type Coordinate struct {
	X int `json:"x" yaml:"x"`
	Y int `json:"y" yaml:"y"`
}

// Add returns the componentwise sum of c and o.
func (c Coordinate) Add(o Coordinate) Coordinate {
	return Coordinate{X: c.X + o.X, Y: c.Y + o.Y}
}

// Sub returns the componentwise difference of c and o.
func (c Coordinate) Sub(o Coordinate) Coordinate {
	return Coordinate{X: c.X - o.X, Y: c.Y - o.Y}
}

func (c Coordinate) String() string {
	return fmt.Sprintf("%d,%d", c.X, c.Y)
}

// Vec2 is a point in the continuous rect coordinate space.
type Vec2 struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

func (v Vec2) Add(o Vec2) Vec2 { return Vec2{X: v.X + o.X, Y: v.Y + o.Y} }
func (v Vec2) Sub(o Vec2) Vec2 { return Vec2{X: v.X - o.X, Y: v.Y - o.Y} }

// Scale multiplies both components by s.
func (v Vec2) Scale(s float64) Vec2 { return Vec2{X: v.X * s, Y: v.Y * s} }

// Distance returns the Euclidean distance between v and o.
func (v Vec2) Distance(o Vec2) float64 {
	return math.Hypot(v.X-o.X, v.Y-o.Y)
}

// SlotState is the intrinsic availability of a grid cell. Whether the cell is
// occupied is a separate fact derived from the occupant index.
type SlotState int

const (
	SlotEmpty SlotState = iota
	SlotLocked
	SlotDisabled
	SlotExpandable
)

var slotStateNames = map[SlotState]string{
	SlotEmpty:      "empty",
	SlotLocked:     "locked",
	SlotDisabled:   "disabled",
	SlotExpandable: "expandable",
}

func (s SlotState) String() string {
	if name, ok := slotStateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("slot(%d)", int(s))
}

// ParseSlotState converts a state name back to a SlotState.
func ParseSlotState(name string) (SlotState, error) {
	for state, n := range slotStateNames {
		if strings.EqualFold(n, name) {
			return state, nil
		}
	}
	return SlotEmpty, fmt.Errorf("unknown slot state %q", name)
}

func (s SlotState) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *SlotState) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	parsed, err := ParseSlotState(name)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Phase is the interaction phase of an item view.
type Phase string

const (
	PhaseResting  Phase = "resting"
	PhaseDragging Phase = "dragging"
)

// Location records which container owns an item while it rests.
type Location string

const (
	LocationPool     Location = "pool"
	LocationGrid     Location = "grid"
	LocationUnhoused Location = "unhoused"
	// LocationHeld marks an item picked up by an active drag.
	LocationHeld     Location = "held"
)

// Feedback is the preview colouring of a cell during a drag.
type Feedback string

const (
	FeedbackNeutral Feedback = ""
	FeedbackValid   Feedback = "valid"
	FeedbackInvalid Feedback = "invalid"
)
