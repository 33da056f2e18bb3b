package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/wricardo/placement-grid/game/engine"
	"github.com/wricardo/placement-grid/game/service"
)

// ServerName and ServerVersion identify the MCP server to clients.
const (
	ServerName    = "Placement Grid"
	ServerVersion = "1.0.0"
)

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		ServerName,
		ServerVersion,
		server.WithToolCapabilities(true),
		server.WithInstructions(`Placement Grid - MCP Interface

This is a thin client that proxies all requests to the REST API server.

Each session holds one board: one or more grids of slots plus an outside pool
where items wait. Items have shapes; dropping one over other items pushes
them back to the pool. Locked slots can be expanded while tokens last.

Start with board_instructions, then create_session and board_view.`),
	)

	c.registerTools()
}

func sessionArg() mcp.ToolOption {
	return mcp.WithString("session_id", mcp.Required(), mcp.Description("Session ID"))
}

func itemArg() mcp.ToolOption {
	return mcp.WithString("item_id", mcp.Required(), mcp.Description("Item ID as shown by board_view or board_state"))
}

func gridArg() mcp.ToolOption {
	return mcp.WithString("grid_id", mcp.Description("Grid ID (defaults to the first grid)"))
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	// Session management
	c.mcpServer.AddTool(mcp.NewTool("create_session",
		mcp.WithDescription("Create a new board session with optional layout selection"),
		mcp.WithString("config_id", mcp.Description("Layout to use (optional, see list_configs)")),
	), c.handleCreateSession)

	c.mcpServer.AddTool(mcp.NewTool("list_sessions",
		mcp.WithDescription("List all active sessions"),
	), c.handleListSessions)

	c.mcpServer.AddTool(mcp.NewTool("get_session",
		mcp.WithDescription("Get details of a specific session"),
		sessionArg(),
	), c.handleGetSession)

	c.mcpServer.AddTool(mcp.NewTool("reset_board",
		mcp.WithDescription("Reset the board to its starting layout"),
		sessionArg(),
	), c.handleReset)

	// Board inspection
	c.mcpServer.AddTool(mcp.NewTool("board_state",
		mcp.WithDescription("Summarise grids, pool and every item's location"),
		sessionArg(),
	), c.handleBoardState)

	c.mcpServer.AddTool(mcp.NewTool("board_view",
		mcp.WithDescription("Render the board as text with a legend"),
		sessionArg(),
	), c.handleBoardView)

	// Items
	c.mcpServer.AddTool(mcp.NewTool("spawn_item",
		mcp.WithDescription("Create an item from the layout catalogue into the pool"),
		sessionArg(),
		mcp.WithString("catalog_id", mcp.Required(), mcp.Description("Catalogue entry, e.g. sword")),
	), c.handleSpawnItem)

	c.mcpServer.AddTool(mcp.NewTool("place_item",
		mcp.WithDescription("Drop an item with its anchor on a grid cell; items it covers go back to the pool"),
		sessionArg(),
		itemArg(),
		gridArg(),
		mcp.WithNumber("x", mcp.Required(), mcp.Description("Anchor column")),
		mcp.WithNumber("y", mcp.Required(), mcp.Description("Anchor row")),
		mcp.WithString("intent", mcp.Description("Why this placement (optional)")),
	), c.handlePlaceItem)

	c.mcpServer.AddTool(mcp.NewTool("drag_item",
		mcp.WithDescription("Pick an item up, move it to a pointer position and drop it there"),
		sessionArg(),
		itemArg(),
		mcp.WithNumber("x", mcp.Required(), mcp.Description("Pointer x in board units")),
		mcp.WithNumber("y", mcp.Required(), mcp.Description("Pointer y in board units")),
	), c.handleDragItem)

	c.mcpServer.AddTool(mcp.NewTool("rotate_item",
		mcp.WithDescription("Rotate an item 90 degrees; on a grid it falls back to the pool if it no longer fits"),
		sessionArg(),
		itemArg(),
	), c.handleRotateItem)

	c.mcpServer.AddTool(mcp.NewTool("return_item",
		mcp.WithDescription("Send an item back to the lowest empty pool slot"),
		sessionArg(),
		itemArg(),
	), c.handleReturnItem)

	c.mcpServer.AddTool(mcp.NewTool("remove_item",
		mcp.WithDescription("Destroy an item"),
		sessionArg(),
		itemArg(),
	), c.handleRemoveItem)

	// Slots
	c.mcpServer.AddTool(mcp.NewTool("expand_slot",
		mcp.WithDescription("Unlock an expandable slot (marked + in board_view); costs one token"),
		sessionArg(),
		gridArg(),
		mcp.WithNumber("x", mcp.Required(), mcp.Description("Column")),
		mcp.WithNumber("y", mcp.Required(), mcp.Description("Row")),
	), c.handleExpandSlot)

	c.mcpServer.AddTool(mcp.NewTool("disable_slot",
		mcp.WithDescription("Disable an empty slot, or enable a disabled one"),
		sessionArg(),
		gridArg(),
		mcp.WithNumber("x", mcp.Required(), mcp.Description("Column")),
		mcp.WithNumber("y", mcp.Required(), mcp.Description("Row")),
		mcp.WithBoolean("disabled", mcp.Description("false to enable (default true)")),
	), c.handleDisableSlot)

	c.mcpServer.AddTool(mcp.NewTool("grant_tokens",
		mcp.WithDescription("Grant expansion tokens"),
		sessionArg(),
		mcp.WithNumber("count", mcp.Required(), mcp.Description("Tokens to add")),
	), c.handleGrantTokens)

	// Configuration
	c.mcpServer.AddTool(mcp.NewTool("list_configs",
		mcp.WithDescription("List available layouts"),
	), c.handleListConfigs)

	c.mcpServer.AddTool(mcp.NewTool("board_instructions",
		mcp.WithDescription("Explain the board rules and the text view legend"),
	), c.handleInstructions)
}

// GetMCPServer returns the underlying MCP server for serving
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// Helper methods for API calls

func (c *Client) do(ctx context.Context, method, path string, body interface{}) (*http.Response, error) {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= 400 {
		defer resp.Body.Close()
		var errResp map[string]string
		json.NewDecoder(resp.Body).Decode(&errResp)
		if msg, ok := errResp["error"]; ok {
			return nil, fmt.Errorf("%s", msg)
		}
		return nil, fmt.Errorf("API error: %d", resp.StatusCode)
	}
	return resp, nil
}

func (c *Client) apiCall(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	resp, err := c.do(ctx, method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}
	return nil
}

func (c *Client) apiText(ctx context.Context, path string) (string, error) {
	resp, err := c.do(ctx, "GET", path, nil)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func sessionPath(sessionID string, parts ...string) string {
	p := "/api/sessions/" + url.PathEscape(sessionID)
	for _, part := range parts {
		p += "/" + url.PathEscape(part)
	}
	return p
}

// action posts to a session endpoint and formats the ActionResult.
func (c *Client) action(ctx context.Context, path string, body interface{}) (*mcp.CallToolResult, error) {
	var res service.ActionResult
	if err := c.apiCall(ctx, "POST", path, body, &res); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatActionResult(&res)), nil
}

// resolveGrid returns gridID, or the first grid of the session when empty.
func (c *Client) resolveGrid(ctx context.Context, sessionID, gridID string) (string, error) {
	if gridID != "" {
		return gridID, nil
	}
	var state engine.BoardState
	if err := c.apiCall(ctx, "GET", sessionPath(sessionID, "state"), nil, &state); err != nil {
		return "", err
	}
	if len(state.Grids) == 0 {
		return "", fmt.Errorf("session %s has no grids", sessionID)
	}
	return state.Grids[0].ID, nil
}

// Tool handlers

func (c *Client) handleCreateSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	body := map[string]string{}
	if configID := request.GetString("config_id", ""); configID != "" {
		body["config_id"] = configID
	}

	var info service.SessionInfo
	if err := c.apiCall(ctx, "POST", "/api/sessions", body, &info); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatSessionInfo(&info)), nil
}

func (c *Client) handleListSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Count    int                   `json:"count"`
		Sessions []service.SessionInfo `json:"sessions"`
	}

	if err := c.apiCall(ctx, "GET", "/api/sessions", nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Active Sessions (%d):\n\n", response.Count)
	for _, s := range response.Sessions {
		fmt.Fprintf(&b, "- %s (Config: %s, Created: %s)\n",
			s.ID, s.ConfigName, s.CreatedAt.Format("15:04:05"))
	}

	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleGetSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var info service.SessionInfo
	if err := c.apiCall(ctx, "GET", sessionPath(sessionID), nil, &info); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatSessionInfo(&info)), nil
}

func (c *Client) handleReset(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return c.action(ctx, sessionPath(sessionID, "reset"), nil)
}

func (c *Client) handleBoardState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var state engine.BoardState
	if err := c.apiCall(ctx, "GET", sessionPath(sessionID, "state"), nil, &state); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatBoardState(&state)), nil
}

func (c *Client) handleBoardView(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	view, err := c.apiText(ctx, sessionPath(sessionID, "view"))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(view), nil
}

func (c *Client) handleSpawnItem(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	catalogID, err := request.RequireString("catalog_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return c.action(ctx, sessionPath(sessionID, "items"), map[string]string{"catalog_id": catalogID})
}

func (c *Client) handlePlaceItem(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	itemID, err := request.RequireString("item_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	x, err := request.RequireInt("x")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	y, err := request.RequireInt("y")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	gridID, err := c.resolveGrid(ctx, sessionID, request.GetString("grid_id", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	body := map[string]interface{}{"grid_id": gridID, "x": x, "y": y}
	return c.action(ctx, sessionPath(sessionID, "items", itemID, "place"), body)
}

func (c *Client) handleDragItem(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	itemID, err := request.RequireString("item_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	x, err := request.RequireFloat("x")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	y, err := request.RequireFloat("y")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "items", itemID, "drag", "begin"), nil, nil); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var preview service.ActionResult
	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "items", itemID, "drag", "move"), engine.Vec2{X: x, Y: y}, &preview); err != nil {
		// leave nothing held
		c.apiCall(ctx, "POST", sessionPath(sessionID, "items", itemID, "drag", "end"), nil, nil)
		return mcp.NewToolResultError(err.Error()), nil
	}
	return c.action(ctx, sessionPath(sessionID, "items", itemID, "drag", "end"), nil)
}

func (c *Client) itemAction(ctx context.Context, request mcp.CallToolRequest, op string) (*mcp.CallToolResult, error) {
	sessionID, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	itemID, err := request.RequireString("item_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return c.action(ctx, sessionPath(sessionID, "items", itemID, op), nil)
}

func (c *Client) handleRotateItem(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return c.itemAction(ctx, request, "rotate")
}

func (c *Client) handleReturnItem(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return c.itemAction(ctx, request, "return")
}

func (c *Client) handleRemoveItem(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	itemID, err := request.RequireString("item_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var res service.ActionResult
	if err := c.apiCall(ctx, "DELETE", sessionPath(sessionID, "items", itemID), nil, &res); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatActionResult(&res)), nil
}

// slotRequest reads session, grid and cell arguments.
func (c *Client) slotRequest(ctx context.Context, request mcp.CallToolRequest) (string, string, engine.Coordinate, error) {
	sessionID, err := request.RequireString("session_id")
	if err != nil {
		return "", "", engine.Coordinate{}, err
	}
	x, err := request.RequireInt("x")
	if err != nil {
		return "", "", engine.Coordinate{}, err
	}
	y, err := request.RequireInt("y")
	if err != nil {
		return "", "", engine.Coordinate{}, err
	}
	gridID, err := c.resolveGrid(ctx, sessionID, request.GetString("grid_id", ""))
	if err != nil {
		return "", "", engine.Coordinate{}, err
	}
	return sessionID, gridID, engine.Coordinate{X: x, Y: y}, nil
}

func (c *Client) handleExpandSlot(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, gridID, cell, err := c.slotRequest(ctx, request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return c.action(ctx, sessionPath(sessionID, "grids", gridID, "expand"), cell)
}

func (c *Client) handleDisableSlot(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, gridID, cell, err := c.slotRequest(ctx, request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	body := map[string]interface{}{"x": cell.X, "y": cell.Y, "disabled": request.GetBool("disabled", true)}
	return c.action(ctx, sessionPath(sessionID, "grids", gridID, "disable"), body)
}

func (c *Client) handleGrantTokens(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	count, err := request.RequireInt("count")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return c.action(ctx, sessionPath(sessionID, "tokens"), map[string]int{"count": count})
}

func (c *Client) handleListConfigs(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var configs []service.ConfigInfo
	if err := c.apiCall(ctx, "GET", "/api/configs", nil, &configs); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	b.WriteString("Available Layouts:\n\n")
	for _, cfg := range configs {
		fmt.Fprintf(&b, "- %s: %s", cfg.ConfigID, cfg.Name)
		if cfg.Description != "" {
			fmt.Fprintf(&b, " - %s", cfg.Description)
		}
		var grids []string
		for _, g := range cfg.Grids {
			grids = append(grids, fmt.Sprintf("%s %dx%d", g.ID, g.SizeX, g.SizeY))
		}
		fmt.Fprintf(&b, " [%s; pool %d; %d catalogue items]\n", strings.Join(grids, ", "), cfg.PoolCapacity, cfg.CatalogSize)
	}

	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleInstructions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(instructions), nil
}

const instructions = `Placement Grid - Rules

BOARD:
A board has one or more grids of slots and an outside pool. Every item lives in
exactly one place: a grid, a pool slot, or (briefly) your hand while dragging.

SLOTS (board_view glyphs):
. empty      - an item may cover it
# locked     - not usable yet
+ expandable - locked but next to an unlocked slot; expand_slot unlocks it
x disabled   - temporarily unusable
Letters mark items; the legend under the grid names them.

ITEMS:
Each item has a shape of one or more cells relative to its anchor cell. Placing
an item puts its anchor on the given cell; every other cell must also land on
an empty or occupied slot inside the same grid. Anything underneath is pushed
to the nearest free pool slot. A drop that does not fit sends the item back to
the lowest free pool slot and reports the reason (outside, blocked, ambiguous).

ROTATION:
rotate_item turns an item 90 degrees clockwise around its anchor. An item on a
grid that no longer fits after turning goes back to the pool.

EXPANSION:
Expansion needs a token (grant_tokens adds them) unless the layout is
unlimited. A locked slot is expandable only when it touches an unlocked slot
up, down, left or right.

TIPS:
- Use board_view to see the grid; rows are y, columns are x, both from 0.
- place_item is the simplest way to move things; drag_item works in board units
  the way a pointer would.`

// Formatting helpers

func formatSessionInfo(info *service.SessionInfo) string {
	return fmt.Sprintf("Session: %s\nConfig: %s\nCreated: %s\n\n%s",
		info.ID, info.ConfigName,
		info.CreatedAt.Format("2006-01-02 15:04:05"),
		formatBoardState(info.State))
}

func formatBoardState(state *engine.BoardState) string {
	if state == nil {
		return "No board state available"
	}

	var b strings.Builder
	for _, g := range state.Grids {
		counts := map[engine.SlotState]int{}
		full := 0
		for _, row := range g.Cells {
			for _, cell := range row {
				counts[cell.State]++
				if cell.Full {
					full++
				}
			}
		}
		fmt.Fprintf(&b, "Grid %s (%dx%d): %d empty, %d locked, %d expandable, %d disabled, %d covered\n",
			g.ID, g.SizeX, g.SizeY,
			counts[engine.SlotEmpty], counts[engine.SlotLocked], counts[engine.SlotExpandable],
			counts[engine.SlotDisabled], full)
	}

	free := 0
	for _, p := range state.PoolSlots {
		if p.ItemID == "" {
			free++
		}
	}
	fmt.Fprintf(&b, "Pool: %d of %d slots free\n", free, len(state.PoolSlots))

	if state.Tokens != nil {
		fmt.Fprintf(&b, "Expansion tokens: %d\n", *state.Tokens)
	} else {
		b.WriteString("Expansion: unlimited\n")
	}
	if state.Drag != nil {
		fmt.Fprintf(&b, "Holding: %s\n", state.Drag.ItemID)
	}

	items := append([]engine.ItemState(nil), state.Items...)
	sort.SliceStable(items, func(i, j int) bool { return items[i].Location < items[j].Location })

	b.WriteString("\nItems:\n")
	for _, it := range items {
		fmt.Fprintf(&b, "- %s %s (rarity %d, rotation %d): %s\n",
			it.ID, it.Name, it.Rarity, it.Rotation, describeLocation(it))
	}
	return b.String()
}

func describeLocation(it engine.ItemState) string {
	switch it.Location {
	case engine.LocationGrid:
		if it.Anchor != nil {
			return fmt.Sprintf("on %s at (%d,%d)", it.GridID, it.Anchor.X, it.Anchor.Y)
		}
		return "on " + it.GridID
	case engine.LocationPool:
		if it.PoolSlot != nil {
			return fmt.Sprintf("pool slot %d", *it.PoolSlot)
		}
		return "pool"
	case engine.LocationHeld:
		return "held"
	default:
		return "unhoused (pool full)"
	}
}

func formatActionResult(res *service.ActionResult) string {
	var b strings.Builder
	status := "OK"
	if !res.Success {
		status = "NOT PLACED"
	}
	fmt.Fprintf(&b, "[%s] %s\n", status, res.Message)

	if d := res.Drop; d != nil {
		if d.Placed {
			fmt.Fprintf(&b, "Anchor: %s (%d,%d)\n", d.GridID, d.Anchor.X, d.Anchor.Y)
			if len(d.Evicted) > 0 {
				fmt.Fprintf(&b, "Pushed to pool: %s\n", strings.Join(d.Evicted, ", "))
			}
		} else {
			if d.Reason != "" {
				fmt.Fprintf(&b, "Reason: %s\n", d.Reason)
			}
			if d.PoolSlot >= 0 {
				fmt.Fprintf(&b, "Returned to pool slot %d\n", d.PoolSlot)
			}
		}
		for _, w := range d.Warnings {
			fmt.Fprintf(&b, "Warning: %s\n", w)
		}
	}
	for _, m := range res.Moves {
		if m.Slot >= 0 {
			fmt.Fprintf(&b, "Pool slot %d <- %s\n", m.Slot, m.ItemID)
		} else {
			fmt.Fprintf(&b, "No pool slot for %s\n", m.ItemID)
		}
	}
	if len(res.Events) > 0 {
		b.WriteString("Events:\n")
		for _, e := range res.Events {
			fmt.Fprintf(&b, "- %s: %s\n", e.Type, e.Message)
		}
	}
	if res.ItemID != "" {
		fmt.Fprintf(&b, "Item: %s\n", res.ItemID)
	}
	if res.State != nil {
		b.WriteString("\n")
		b.WriteString(formatBoardState(res.State))
	}
	return b.String()
}
