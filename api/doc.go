// Package api provides the HTTP REST API for the placement grid server.
//
// Endpoints:
//
// Sessions:
//   - POST /api/sessions - Create a session ({"config_id": "default"})
//   - GET /api/sessions - List sessions (?sort=created|accessed&order=asc|desc&limit=N&config=ID)
//   - GET /api/sessions/{id} - Get one session
//   - DELETE /api/sessions/{id} - Delete a session
//
// Board:
//   - GET /api/sessions/{id}/state - Board state as JSON
//   - GET /api/sessions/{id}/view - Board as text (?color=true for ANSI)
//   - POST /api/sessions/{id}/reset - Rebuild the starting layout
//   - POST /api/sessions/{id}/hover - Pointer position {"x": 225, "y": 25}
//   - POST /api/sessions/{id}/tokens - Grant expansion tokens {"count": 1}
//
// Items:
//   - POST /api/sessions/{id}/items - Spawn from the catalogue {"catalog_id": "bow"}
//   - DELETE /api/sessions/{id}/items/{item}
//   - POST /api/sessions/{id}/items/{item}/drag/begin
//   - POST /api/sessions/{id}/items/{item}/drag/move - {"x": 125, "y": 25}
//   - POST /api/sessions/{id}/items/{item}/drag/end
//   - POST /api/sessions/{id}/items/{item}/rotate
//   - POST /api/sessions/{id}/items/{item}/place - {"grid_id": "backpack", "x": 1, "y": 1}
//   - POST /api/sessions/{id}/items/{item}/return
//
// Slots:
//   - POST /api/sessions/{id}/grids/{grid}/expand - {"x": 4, "y": 0}
//   - POST /api/sessions/{id}/grids/{grid}/click - pointer {"x": 225, "y": 25}
//   - POST /api/sessions/{id}/grids/{grid}/disable - {"x": 1, "y": 1, "disabled": true}
//
// Configuration:
//   - GET /api/configs - List layouts
//   - POST /api/configs - Save a layout (?name=ID, else derived from its name)
//   - GET /api/configs/{name} - Get one layout
//
// WebSocket:
//   - GET /ws?session={id} - Board updates, see package websocket
//
// Errors are returned as {"error": "..."}. Unknown sessions, items, grids
// and layouts give 404; a drag already in progress or a cell that cannot be
// expanded gives 409; malformed input gives 400. A drop that does not land
// is not an error: it answers 200 with "success": false.
package api
