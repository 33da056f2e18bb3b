// Package mcp exposes the placement grid to AI agents over the Model Context
// Protocol.
//
// The Client is a thin proxy: every tool calls the REST API, so the HTTP
// server, the /mcp endpoint and a stdio agent all see the same boards.
//
// MCP Tools:
//   - create_session, list_sessions, get_session, reset_board
//   - board_state: grids, pool and item locations as a summary
//   - board_view: the board rendered as text with a legend
//   - spawn_item, remove_item
//   - place_item: drop an item on a grid cell (grid_id defaults to the first grid)
//   - drag_item: begin, move and end a drag at a pointer position
//   - rotate_item, return_item
//   - expand_slot, disable_slot, grant_tokens
//   - list_configs, board_instructions
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080")
//
//	// stdio
//	server.ServeStdio(client.GetMCPServer())
//
//	// HTTP
//	response := client.GetMCPServer().HandleMessage(ctx, body)
//
// A drop that does not land is a normal result marked NOT PLACED with the
// reason; only request errors (unknown session, out of bounds) come back as
// tool errors.
package mcp
