// Package validate checks layout files beyond what loading them requires.
// Besides the structural checks of engine.ValidateLayoutConfig it reports:
//   - locked slots that no chain of expansions can ever reach
//   - catalogue items that fit no grid until slots are expanded
//   - expansion budgets that exceed what the grids can use
//
// Warnings never make a layout invalid; the server loads it as is.
package validate

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/wricardo/placement-grid/game/engine"
)

// Result captures the outcome of validating a single layout.
type Result struct {
	File     string   `json:"file"`
	Name     string   `json:"name,omitempty"`
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
	Info     []string `json:"info,omitempty"`
}

// File loads and validates one layout file.
func File(path string) Result {
	result := Result{File: filepath.Base(path), Valid: true}

	cfg, err := engine.LoadLayoutConfig(path)
	if err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, err.Error())
		return result
	}
	check(&result, cfg)
	return result
}

// Config validates a layout that is already decoded.
func Config(name string, cfg *engine.LayoutConfig) Result {
	result := Result{File: name, Valid: true}
	if err := engine.ValidateLayoutConfig(cfg); err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, err.Error())
		return result
	}
	check(&result, cfg)
	return result
}

// Dir validates every .json, .yaml and .yml file in dir, sorted by name.
func Dir(dir string) ([]Result, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read layout directory: %w", err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".json", ".yaml", ".yml":
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)

	results := make([]Result, 0, len(files))
	for _, f := range files {
		results = append(results, File(f))
	}
	return results, nil
}

func check(result *Result, cfg *engine.LayoutConfig) {
	result.Name = cfg.Name
	result.Info = append(result.Info, fmt.Sprintf("Name: %s", cfg.Name))

	grids := make([][][]engine.SlotState, len(cfg.Grids))
	reachableLocked := 0
	for i, gc := range cfg.Grids {
		states := parseLayout(gc.Layout)
		grids[i] = states

		counts := map[engine.SlotState]int{}
		for _, row := range states {
			for _, s := range row {
				counts[s]++
			}
		}
		w, h := gc.Size()
		result.Info = append(result.Info, fmt.Sprintf("Grid %s: %dx%d, %d empty, %d locked, %d expandable, %d disabled",
			gc.ID, w, h, counts[engine.SlotEmpty], counts[engine.SlotLocked], counts[engine.SlotExpandable], counts[engine.SlotDisabled]))

		if counts[engine.SlotEmpty] == 0 {
			result.Warnings = append(result.Warnings, fmt.Sprintf("grid %s starts with no empty slot", gc.ID))
		}

		unreachable := Unreachable(states)
		locked := counts[engine.SlotLocked] + counts[engine.SlotExpandable]
		reachableLocked += locked - len(unreachable)
		if len(unreachable) > 0 {
			result.Warnings = append(result.Warnings, fmt.Sprintf("grid %s: %d locked slot(s) can never be expanded: %s",
				gc.ID, len(unreachable), joinCoordinates(unreachable)))
		}
	}

	for _, ic := range cfg.Catalog {
		item, err := cfg.NewItem(ic.ID)
		if err != nil {
			result.Valid = false
			result.Errors = append(result.Errors, err.Error())
			continue
		}
		if !fitsSomewhere(item, grids) {
			result.Warnings = append(result.Warnings, fmt.Sprintf("item %s fits no grid until slots are expanded", ic.ID))
		}
	}

	switch {
	case cfg.Expansion.Unlimited:
		if cfg.Expansion.Tokens > 0 {
			result.Warnings = append(result.Warnings, "expansion.tokens is ignored when expansion is unlimited")
		}
		result.Info = append(result.Info, "Expansion: unlimited")
	default:
		if cfg.Expansion.Tokens > reachableLocked {
			result.Warnings = append(result.Warnings, fmt.Sprintf("expansion.tokens %d exceeds the %d slot(s) that can be expanded",
				cfg.Expansion.Tokens, reachableLocked))
		}
		result.Info = append(result.Info, fmt.Sprintf("Expansion: %d token(s) for %d slot(s)", cfg.Expansion.Tokens, reachableLocked))
	}

	overflow := ""
	if cfg.Pool.Overflow {
		overflow = " with overflow"
	}
	result.Info = append(result.Info, fmt.Sprintf("Pool: %d slot(s)%s, %d starting item(s)", cfg.Pool.Capacity, overflow, len(cfg.StartingItems)))
	result.Info = append(result.Info, fmt.Sprintf("Catalogue: %d item(s)", len(cfg.Catalog)))
}

func parseLayout(rows []string) [][]engine.SlotState {
	states := make([][]engine.SlotState, len(rows))
	for y, row := range rows {
		for _, ch := range row {
			s, _ := engine.SlotStateFromChar(ch)
			states[y] = append(states[y], s)
		}
	}
	return states
}

// Unreachable returns the locked or expandable cells that no sequence of
// expansions can unlock. Flood fill starts from every empty or disabled cell
// and spreads through locked ones, following the 4-neighbour rule that makes
// a slot expandable.
func Unreachable(states [][]engine.SlotState) []engine.Coordinate {
	height := len(states)
	if height == 0 {
		return nil
	}
	width := len(states[0])

	visited := make([][]bool, height)
	var queue []engine.Coordinate
	for y := range states {
		visited[y] = make([]bool, width)
		for x, s := range states[y] {
			if s == engine.SlotEmpty || s == engine.SlotDisabled {
				visited[y][x] = true
				queue = append(queue, engine.Coordinate{X: x, Y: y})
			}
		}
	}

	directions := []engine.Coordinate{{X: -1}, {X: 1}, {Y: -1}, {Y: 1}}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, d := range directions {
			n := current.Add(d)
			if n.X < 0 || n.Y < 0 || n.Y >= height || n.X >= width || visited[n.Y][n.X] {
				continue
			}
			visited[n.Y][n.X] = true
			queue = append(queue, n)
		}
	}

	var unreachable []engine.Coordinate
	for y := range states {
		for x := range states[y] {
			if !visited[y][x] {
				unreachable = append(unreachable, engine.Coordinate{X: x, Y: y})
			}
		}
	}
	return unreachable
}

// fitsSomewhere reports whether item covers only empty slots of some grid in
// any of its four rotations.
func fitsSomewhere(item *engine.Footprint, grids [][][]engine.SlotState) bool {
	for r := 0; r < 4; r++ {
		cells := item.Cells()
		for _, states := range grids {
			for y := range states {
				for x := range states[y] {
					if fitsAt(states, engine.Coordinate{X: x, Y: y}, cells) {
						return true
					}
				}
			}
		}
		item.Rotate()
	}
	return false
}

func fitsAt(states [][]engine.SlotState, anchor engine.Coordinate, cells []engine.Coordinate) bool {
	for _, off := range cells {
		c := anchor.Add(off)
		if c.Y < 0 || c.Y >= len(states) || c.X < 0 || c.X >= len(states[c.Y]) {
			return false
		}
		if states[c.Y][c.X] != engine.SlotEmpty {
			return false
		}
	}
	return true
}

func joinCoordinates(cs []engine.Coordinate) string {
	parts := make([]string, len(cs))
	for i, c := range cs {
		parts[i] = "(" + c.String() + ")"
	}
	return strings.Join(parts, " ")
}
