// Package service provides the business logic layer for the placement grid server.
//
// The service package implements:
//   - Multi-session board management
//   - Drag, drop, rotate and return operations
//   - Slot expansion and penalties
//   - Event reporting and placement counters
//
// Core Interfaces:
//
// InventoryService is the main service interface used by every transport.
// SessionManager stores boards; ConfigManager loads layouts.
//
// Architecture:
//
// The service layer sits between the transports (HTTP, WebSocket, MCP) and
// the engine. A single mutex serialises all board operations. Before each
// operation the session's animations are advanced by the wall-clock time since
// the previous one, so return slides finish without a render loop.
//
// Usage:
//
//	sessions := session.NewManager()
//	configs, _ := config.NewManager("configs")
//	svc := service.NewInventoryService(sessions, configs, service.WithLogger(log))
//
//	info, err := svc.CreateSession(ctx, "default")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	res, err := svc.PlaceItem(ctx, info.ID, itemID, "backpack", engine.Coordinate{X: 1, Y: 1})
//
// Drops that cannot land are not errors: the result reports Success false,
// the reason, and where the item went in the pool. A full pool is likewise
// reported as a pool_exhausted event.
package service
