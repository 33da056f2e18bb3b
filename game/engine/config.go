package engine

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

var ErrUnknownCatalogItem = errors.New("unknown catalog item")

// LayoutConfig describes a board: its grids, the outside pool, the item
// catalogue and the expansion rules.
type LayoutConfig struct {
	Name          string          `json:"name" yaml:"name"`
	Description   string          `json:"description" yaml:"description"`
	CellSize      float64         `json:"cell_size" yaml:"cell_size"`
	Grids         []GridConfig    `json:"grids" yaml:"grids"`
	Pool          PoolConfig      `json:"pool" yaml:"pool"`
	Catalog       []ItemConfig    `json:"catalog" yaml:"catalog"`
	StartingItems []string        `json:"starting_items,omitempty" yaml:"starting_items,omitempty"`
	Expansion     ExpansionConfig `json:"expansion" yaml:"expansion"`
	Sprites       *StaticSprites  `json:"sprites,omitempty" yaml:"sprites,omitempty"`
}

// GridConfig places one grid. Layout rows use '.' empty, 'L' locked,
// 'D' disabled and 'E' expandable; the grid size follows from them.
type GridConfig struct {
	ID     string   `json:"id" yaml:"id"`
	Center Vec2     `json:"center" yaml:"center"`
	Layout []string `json:"layout" yaml:"layout"`
}

// Size returns the grid dimensions implied by the layout.
func (g GridConfig) Size() (int, int) {
	if len(g.Layout) == 0 {
		return 0, 0
	}
	return len([]rune(g.Layout[0])), len(g.Layout)
}

// PoolConfig lays out the outside storage slots.
type PoolConfig struct {
	Capacity     int  `json:"capacity" yaml:"capacity"`
	Origin       Vec2 `json:"origin" yaml:"origin"`
	Spacing      Vec2 `json:"spacing" yaml:"spacing"`
	Columns      int  `json:"columns" yaml:"columns"`
	Overflow     bool `json:"overflow" yaml:"overflow"`
	OverflowStep Vec2 `json:"overflow_step" yaml:"overflow_step"`
}

// ExpansionConfig sets the expansion gate. Unlimited keeps it always open;
// otherwise each token pays for one expansion.
type ExpansionConfig struct {
	Tokens    int  `json:"tokens" yaml:"tokens"`
	Unlimited bool `json:"unlimited" yaml:"unlimited"`
}

// ItemConfig is one catalogue entry. The shape is given either as offsets or
// as rows where '#' marks a cell and 'A' the anchor cell. Without an 'A' the
// first '#' in row order is the anchor.
type ItemConfig struct {
	ID          string       `json:"id" yaml:"id"`
	Name        string       `json:"name" yaml:"name"`
	Description string       `json:"description,omitempty" yaml:"description,omitempty"`
	Sprite      string       `json:"sprite,omitempty" yaml:"sprite,omitempty"`
	Rarity      int          `json:"rarity" yaml:"rarity"`
	Cells       []Coordinate `json:"cells,omitempty" yaml:"cells,omitempty"`
	Shape       []string     `json:"shape,omitempty" yaml:"shape,omitempty"`
}

// Offsets returns the footprint offsets relative to the anchor.
func (ic ItemConfig) Offsets() ([]Coordinate, error) {
	if len(ic.Cells) > 0 {
		return dedupe(ic.Cells), nil
	}

	var cells []Coordinate
	var anchor *Coordinate
	for y, row := range ic.Shape {
		for x, ch := range row {
			switch ch {
			case '#':
				cells = append(cells, Coordinate{X: x, Y: y})
			case 'A':
				c := Coordinate{X: x, Y: y}
				if anchor != nil {
					return nil, fmt.Errorf("item %s: shape has more than one anchor", ic.ID)
				}
				anchor = &c
				cells = append(cells, c)
			case '.', ' ':
			default:
				return nil, fmt.Errorf("item %s: invalid shape character '%c'", ic.ID, ch)
			}
		}
	}
	if len(cells) == 0 {
		return nil, fmt.Errorf("item %s: %w", ic.ID, ErrInvalidFootprint)
	}
	if anchor == nil {
		anchor = &cells[0]
	}
	origin := *anchor
	for i := range cells {
		cells[i] = cells[i].Sub(origin)
	}
	return cells, nil
}

// Item looks up a catalogue entry.
func (cfg *LayoutConfig) Item(catalogID string) (ItemConfig, error) {
	for _, ic := range cfg.Catalog {
		if ic.ID == catalogID {
			return ic, nil
		}
	}
	return ItemConfig{}, fmt.Errorf("%q: %w", catalogID, ErrUnknownCatalogItem)
}

// NewItem builds a fresh item instance from the catalogue.
func (cfg *LayoutConfig) NewItem(catalogID string) (*Footprint, error) {
	ic, err := cfg.Item(catalogID)
	if err != nil {
		return nil, err
	}
	cells, err := ic.Offsets()
	if err != nil {
		return nil, err
	}
	return NewFootprint(FootprintSpec{
		CatalogID:   ic.ID,
		Name:        ic.Name,
		Description: ic.Description,
		Sprite:      ic.Sprite,
		Rarity:      ic.Rarity,
		Cells:       cells,
	})
}

// ValidateLayoutConfig validates a layout configuration for correctness.
func ValidateLayoutConfig(cfg *LayoutConfig) error {
	if cfg == nil {
		return fmt.Errorf("config validation: config is nil")
	}
	if cfg.Name == "" {
		return fmt.Errorf("config validation: name is required")
	}
	if cfg.CellSize < 0 {
		return fmt.Errorf("config validation: cell_size must not be negative, got %v", cfg.CellSize)
	}
	cellSize := cfg.cellSize()

	// Grids
	if len(cfg.Grids) == 0 {
		return fmt.Errorf("config validation: at least one grid is required")
	}
	seen := make(map[string]bool)
	bounds := make([]Bounds, 0, len(cfg.Grids))
	maxW, maxH := 0, 0
	for i, gc := range cfg.Grids {
		if gc.ID == "" {
			return fmt.Errorf("config validation: grid %d: id is required", i+1)
		}
		if seen[gc.ID] {
			return fmt.Errorf("config validation: duplicate grid id '%s'", gc.ID)
		}
		seen[gc.ID] = true

		w, h := gc.Size()
		if h < MinGridSize || h > MaxGridSize || w < MinGridSize || w > MaxGridSize {
			return fmt.Errorf("config validation: grid '%s' size must be between %d and %d, got %dx%d",
				gc.ID, MinGridSize, MaxGridSize, w, h)
		}
		for y, row := range gc.Layout {
			runes := []rune(row)
			if len(runes) != w {
				return fmt.Errorf("config validation: grid '%s' row %d must have %d characters, got %d",
					gc.ID, y+1, w, len(runes))
			}
			for x, ch := range runes {
				if _, err := SlotStateFromChar(ch); err != nil {
					return fmt.Errorf("config validation: grid '%s': invalid character '%c' at row %d, col %d",
						gc.ID, ch, y+1, x+1)
				}
			}
		}
		maxW, maxH = max(maxW, w), max(maxH, h)

		b := NewMapper(gc.Center, cellSize, w, h).Bounds()
		for j, other := range bounds {
			if overlaps(b, other) {
				return fmt.Errorf("config validation: grid '%s' overlaps grid '%s'", gc.ID, cfg.Grids[j].ID)
			}
		}
		bounds = append(bounds, b)
	}

	// Pool
	if cfg.Pool.Capacity < 0 || cfg.Pool.Capacity > MaxPoolCapacity {
		return fmt.Errorf("config validation: pool.capacity must be between 0 and %d, got %d", MaxPoolCapacity, cfg.Pool.Capacity)
	}
	if cfg.Pool.Capacity == 0 && !cfg.Pool.Overflow {
		return fmt.Errorf("config validation: pool needs a capacity or overflow enabled")
	}

	// Catalogue
	catalog := make(map[string]bool)
	for i, ic := range cfg.Catalog {
		if ic.ID == "" {
			return fmt.Errorf("config validation: catalog entry %d: id is required", i+1)
		}
		if catalog[ic.ID] {
			return fmt.Errorf("config validation: duplicate catalog id '%s'", ic.ID)
		}
		catalog[ic.ID] = true
		if ic.Name == "" {
			return fmt.Errorf("config validation: catalog '%s': name is required", ic.ID)
		}
		if ic.Rarity < 0 || ic.Rarity > MaxRarity {
			return fmt.Errorf("config validation: catalog '%s': rarity must be between 0 and %d, got %d", ic.ID, MaxRarity, ic.Rarity)
		}
		cells, err := ic.Offsets()
		if err != nil {
			return fmt.Errorf("config validation: catalog '%s': %w", ic.ID, err)
		}
		// A shape must fit some grid in at least one orientation.
		w, h := FootprintExtent(cells)
		if !(w <= maxW && h <= maxH) && !(h <= maxW && w <= maxH) {
			return fmt.Errorf("config validation: catalog '%s': %dx%d shape fits no grid", ic.ID, w, h)
		}
	}

	for _, id := range cfg.StartingItems {
		if !catalog[id] {
			return fmt.Errorf("config validation: starting item '%s' is not in the catalog", id)
		}
	}
	if len(cfg.StartingItems) > cfg.Pool.Capacity && !cfg.Pool.Overflow {
		return fmt.Errorf("config validation: %d starting items exceed pool capacity %d",
			len(cfg.StartingItems), cfg.Pool.Capacity)
	}

	if cfg.Expansion.Tokens < 0 {
		return fmt.Errorf("config validation: expansion.tokens must not be negative")
	}
	if cfg.Sprites != nil && len(cfg.Sprites.Rarity) > MaxRarity+1 {
		return fmt.Errorf("config validation: sprites.rarity has %d entries, at most %d", len(cfg.Sprites.Rarity), MaxRarity+1)
	}
	return nil
}

func overlaps(a, b Bounds) bool {
	return a.Min.X < b.Max.X && b.Min.X < a.Max.X && a.Min.Y < b.Max.Y && b.Min.Y < a.Max.Y
}

func (cfg *LayoutConfig) cellSize() float64 {
	if cfg.CellSize > 0 {
		return cfg.CellSize
	}
	return DefaultCellSize
}

// ParseLayoutConfig decodes a layout from JSON or, for ".yaml"/".yml" ext,
// YAML, then validates it.
func ParseLayoutConfig(data []byte, ext string) (*LayoutConfig, error) {
	var cfg LayoutConfig
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, err
		}
	default:
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, err
		}
	}
	if err := ValidateLayoutConfig(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadLayoutConfig reads and validates a layout file.
func LoadLayoutConfig(path string) (*LayoutConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseLayoutConfig(data, filepath.Ext(path))
}

// NewBoardFromConfig builds a board with its grids, pool, progression and
// starting items. opts are applied after the config-derived options.
func NewBoardFromConfig(cfg *LayoutConfig, opts ...BoardOption) (*Board, error) {
	if cfg == nil {
		cfg = DefaultLayoutConfig()
	}
	if err := ValidateLayoutConfig(cfg); err != nil {
		return nil, err
	}

	var progression Progression = OpenProgression{}
	if !cfg.Expansion.Unlimited {
		progression = &TokenProgression{Tokens: cfg.Expansion.Tokens}
	}
	sprites := DefaultSprites()
	if cfg.Sprites != nil {
		sprites = *cfg.Sprites
	}
	base := []BoardOption{WithProgression(progression), WithSprites(sprites)}
	b := NewBoard(nil, append(base, opts...)...)

	poolOpts := []PoolOption{WithPoolLogger(b.log)}
	if cfg.Pool.Overflow {
		step := cfg.Pool.OverflowStep
		if step == (Vec2{}) {
			step = cfg.Pool.Spacing
		}
		poolOpts = append(poolOpts, WithOverflow(step))
	}
	pool, err := NewPool(GridPositions(cfg.Pool.Capacity, cfg.Pool.Columns, cfg.Pool.Origin, cfg.Pool.Spacing), poolOpts...)
	if err != nil {
		return nil, err
	}
	b.pool = pool

	cellSize := cfg.cellSize()
	for _, gc := range cfg.Grids {
		w, h := gc.Size()
		g, err := NewGrid(gc.ID, w, h, WithGridLogger(b.log))
		if err != nil {
			return nil, err
		}
		if err := ApplyLayout(g, gc.Layout); err != nil {
			return nil, err
		}
		if err := b.AddGrid(g, NewMapper(gc.Center, cellSize, w, h)); err != nil {
			return nil, err
		}
	}

	for _, id := range cfg.StartingItems {
		item, err := cfg.NewItem(id)
		if err != nil {
			return nil, err
		}
		if err := b.AddItem(item); err != nil && !errors.Is(err, ErrPoolExhausted) {
			return nil, err
		}
	}
	return b, nil
}

// DefaultLayoutConfig returns a small built-in layout: one backpack grid with
// a locked border, a row of six pool slots below it and four catalogue items.
func DefaultLayoutConfig() *LayoutConfig {
	return &LayoutConfig{
		Name:        "default",
		Description: "Backpack with a locked border and a six-slot stash",
		CellSize:    DefaultCellSize,
		Grids: []GridConfig{
			{
				ID:     "backpack",
				Center: Vec2{X: 125, Y: 100},
				Layout: []string{
					"....L",
					"....L",
					"...LL",
					"LLLLL",
				},
			},
		},
		Pool: PoolConfig{
			Capacity:     6,
			Origin:       Vec2{X: 25, Y: 275},
			Spacing:      Vec2{X: 50, Y: 50},
			Columns:      6,
			Overflow:     true,
			OverflowStep: Vec2{X: 50},
		},
		Catalog: []ItemConfig{
			{ID: "potion", Name: "Potion", Description: "Restores a little health", Sprite: "potion", Rarity: 0, Shape: []string{"#"}},
			{ID: "shield", Name: "Shield", Description: "Blocks one hit", Sprite: "shield", Rarity: 1, Shape: []string{"##", "##"}},
			{ID: "sword", Name: "Sword", Description: "A plain blade", Sprite: "sword", Rarity: 2, Shape: []string{"#", "#", "#"}},
			{ID: "bow", Name: "Bow", Description: "Bent and strung", Sprite: "bow", Rarity: 3, Shape: []string{"A.", "##"}},
		},
		StartingItems: []string{"potion", "shield", "sword"},
		Expansion:     ExpansionConfig{Tokens: 2},
	}
}
