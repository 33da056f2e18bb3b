// Package config loads layout configurations and server settings.
//
// Layouts are JSON or YAML files in a config directory, one board per file:
//
//	name: Backpack
//	cell_size: 50
//	grids:
//	  - id: backpack
//	    center: {x: 125, y: 100}
//	    layout: ["....L", "....L", "...LL", "LLLLL"]
//	pool:
//	  capacity: 6
//	  origin: {x: 25, y: 260}
//	  spacing: {x: 50}
//	catalog:
//	  - id: sword
//	    name: Sword
//	    rarity: 2
//	    shape: ["#", "#", "#"]
//	expansion:
//	  tokens: 2
//
// Layout rows use '.' empty, 'L' locked, 'D' disabled and 'E' expandable.
// The Manager caches parsed layouts by name (extension optional) and falls
// back to engine.DefaultLayoutConfig when no "default" file exists.
//
//	manager, err := config.NewManager("configs")
//	layout, err := manager.LoadConfig("backpack")
//
// Settings are read by LoadSettings from an optional placement-grid.yaml, with
// PGRID_ environment variables taking precedence over the file.
package config
