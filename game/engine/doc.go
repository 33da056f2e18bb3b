// Package engine provides the spatial inventory core of the placement grid.
//
// The engine package implements:
//   - Multi-cell, rotatable item footprints
//   - Grid occupancy with collision eviction
//   - Slot availability and expansion
//   - Rect-space to grid coordinate mapping
//   - The outside storage pool and the drag workflow
//
// Core Types:
//
// Grid owns one grid's availability matrix and its two occupancy indices
// (anchor index and dense per-cell matrix); only Place and Remove write them.
// Board is the context object tying grids, their Mappers, the Pool and item
// Views together, and carries the drag controller. LayoutConfig describes a
// board and is loaded from JSON or YAML files.
//
// Usage:
//
//	cfg, err := engine.LoadLayoutConfig("configs/default.json")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	board, err := engine.NewBoardFromConfig(cfg)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	item := board.Views()[0].Item
//	result, err := board.PlaceAt(item.ID(), "backpack", engine.Coordinate{X: 1, Y: 1})
//
// A Board is not safe for concurrent use; callers serialise access.
package engine
