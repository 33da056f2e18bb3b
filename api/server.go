package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/wricardo/placement-grid/game/config"
	"github.com/wricardo/placement-grid/game/engine"
	"github.com/wricardo/placement-grid/game/service"
	"github.com/wricardo/placement-grid/game/session"
	"github.com/wricardo/placement-grid/transport/websocket"
)

// Server represents the REST API server
type Server struct {
	service service.InventoryService
	hub     *websocket.Hub
	router  *mux.Router
	log     zerolog.Logger
}

// Option configures a Server
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(log zerolog.Logger) Option {
	return func(s *Server) { s.log = log }
}

// NewServer creates a new API server. hub may be nil.
func NewServer(svc service.InventoryService, hub *websocket.Hub, opts ...Option) *Server {
	s := &Server{
		service: svc,
		hub:     hub,
		router:  mux.NewRouter(),
		log:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("", s.handleHealth).Methods("GET")
	api.HandleFunc("/health", s.handleHealth).Methods("GET")

	// Session management
	api.HandleFunc("/sessions", s.handleCreateSession).Methods("POST")
	api.HandleFunc("/sessions", s.handleListSessions).Methods("GET")
	api.HandleFunc("/sessions/{id}", s.handleGetSession).Methods("GET")
	api.HandleFunc("/sessions/{id}", s.handleDeleteSession).Methods("DELETE")

	// Board state
	api.HandleFunc("/sessions/{id}/state", s.handleGetBoardState).Methods("GET")
	api.HandleFunc("/sessions/{id}/view", s.handleView).Methods("GET")
	api.HandleFunc("/sessions/{id}/reset", s.handleReset).Methods("POST")
	api.HandleFunc("/sessions/{id}/hover", s.handleHover).Methods("POST")
	api.HandleFunc("/sessions/{id}/tokens", s.handleGrantTokens).Methods("POST")

	// Items
	api.HandleFunc("/sessions/{id}/items", s.handleSpawnItem).Methods("POST")
	api.HandleFunc("/sessions/{id}/items/{item}", s.handleRemoveItem).Methods("DELETE")
	api.HandleFunc("/sessions/{id}/items/{item}/drag/begin", s.handleBeginDrag).Methods("POST")
	api.HandleFunc("/sessions/{id}/items/{item}/drag/move", s.handleDragMove).Methods("POST")
	api.HandleFunc("/sessions/{id}/items/{item}/drag/end", s.handleEndDrag).Methods("POST")
	api.HandleFunc("/sessions/{id}/items/{item}/rotate", s.handleRotate).Methods("POST")
	api.HandleFunc("/sessions/{id}/items/{item}/place", s.handlePlace).Methods("POST")
	api.HandleFunc("/sessions/{id}/items/{item}/return", s.handleReturn).Methods("POST")

	// Slots
	api.HandleFunc("/sessions/{id}/grids/{grid}/expand", s.handleExpand).Methods("POST")
	api.HandleFunc("/sessions/{id}/grids/{grid}/click", s.handleClick).Methods("POST")
	api.HandleFunc("/sessions/{id}/grids/{grid}/disable", s.handleDisable).Methods("POST")

	// Configuration
	api.HandleFunc("/configs", s.handleListConfigs).Methods("GET")
	api.HandleFunc("/configs", s.handleCreateConfig).Methods("POST")
	api.HandleFunc("/configs/{name}", s.handleGetConfig).Methods("GET")

	// WebSocket
	s.router.HandleFunc("/ws", s.handleWebSocket)
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondServiceError maps service and engine errors onto HTTP statuses.
func respondServiceError(w http.ResponseWriter, err error) {
	respondError(w, statusFor(err), err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, session.ErrSessionNotFound),
		errors.Is(err, config.ErrConfigNotFound),
		errors.Is(err, engine.ErrUnknownItem),
		errors.Is(err, engine.ErrUnknownGrid),
		errors.Is(err, engine.ErrUnknownCatalogItem):
		return http.StatusNotFound
	case errors.Is(err, engine.ErrDragInProgress),
		errors.Is(err, engine.ErrNotDragging),
		errors.Is(err, engine.ErrNotExpandable),
		errors.Is(err, engine.ErrDuplicateItem),
		errors.Is(err, session.ErrSessionAlreadyExists),
		errors.Is(err, service.ErrUnlimitedExpansion):
		return http.StatusConflict
	case errors.Is(err, engine.ErrOutOfBounds),
		errors.Is(err, service.ErrInvalidArgument),
		errors.Is(err, session.ErrInvalidSessionID),
		errors.Is(err, config.ErrInvalidConfig):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// decodeBody decodes an optional JSON body. An empty body leaves v untouched.
func decodeBody(r *http.Request, v interface{}) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

// respondAction broadcasts a mutation to WebSocket watchers and writes it.
func (s *Server) respondAction(w http.ResponseWriter, r *http.Request, op string, res *service.ActionResult, err error) {
	sessionID := mux.Vars(r)["id"]
	if err != nil {
		s.log.Debug().Err(err).Str("session", sessionID).Str("op", op).Msg("request failed")
		respondServiceError(w, err)
		return
	}

	if s.hub != nil {
		s.hub.BroadcastToSession(sessionID, res.State)
		if len(res.Events) > 0 {
			s.hub.BroadcastEvent(sessionID, websocket.EventBoard, res.Events)
		}
	}

	ev := s.log.Info()
	if len(res.Events) == 0 {
		ev = s.log.Debug()
	}
	ev.Str("session", sessionID).
		Str("op", op).
		Str("item", res.ItemID).
		Bool("success", res.Success).
		Int("events", len(res.Events)).
		Msg(res.Message)

	respondJSON(w, http.StatusOK, res)
}

// Session Handlers

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ConfigID   string `json:"config_id,omitempty"`
		ConfigName string `json:"config_name,omitempty"` // Deprecated, use config_id
	}
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	configID := req.ConfigID
	if configID == "" {
		configID = req.ConfigName
	}

	info, err := s.service.CreateSession(r.Context(), configID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, info)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.service.ListSessions(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}
	total := len(sessions)

	query := r.URL.Query()
	sortBy := query.Get("sort")    // "created", "accessed" (default)
	order := query.Get("order")    // "asc", "desc" (default: "desc")
	limitStr := query.Get("limit") // number of sessions to return

	if sortBy == "" {
		sortBy = "accessed"
	}
	if order == "" {
		order = "desc"
	}

	if configName := query.Get("config"); configName != "" {
		filtered := sessions[:0]
		for _, info := range sessions {
			if info.ConfigName == configName {
				filtered = append(filtered, info)
			}
		}
		sessions = filtered
	}

	sort.SliceStable(sessions, func(i, j int) bool {
		var ti, tj time.Time
		if sortBy == "created" {
			ti, tj = sessions[i].CreatedAt, sessions[j].CreatedAt
		} else {
			ti, tj = sessions[i].LastAccessedAt, sessions[j].LastAccessedAt
		}

		if order == "asc" {
			return ti.Before(tj)
		}
		return ti.After(tj)
	})

	if limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l < len(sessions) {
			sessions = sessions[:l]
		}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":    len(sessions),
		"total":    total,
		"sessions": sessions,
		"sort":     sortBy,
		"order":    order,
	})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	info, err := s.service.GetSession(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, info)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	if err := s.service.DeleteSession(r.Context(), sessionID); err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Session %s deleted", sessionID),
	})
}

// Board Handlers

func (s *Server) handleGetBoardState(w http.ResponseWriter, r *http.Request) {
	state, err := s.service.GetBoardState(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, state)
}

// handleView renders the board as text; ?color=true adds ANSI colours.
func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	colored, _ := strconv.ParseBool(r.URL.Query().Get("color"))

	view, err := s.service.RenderBoard(r.Context(), mux.Vars(r)["id"], colored)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, view)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	res, err := s.service.Reset(r.Context(), mux.Vars(r)["id"])
	s.respondAction(w, r, "reset", res, err)
}

func (s *Server) handleHover(w http.ResponseWriter, r *http.Request) {
	var pointer engine.Vec2
	if err := decodeBody(r, &pointer); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := s.service.Hover(r.Context(), mux.Vars(r)["id"], pointer)
	s.respondAction(w, r, "hover", res, err)
}

func (s *Server) handleGrantTokens(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Count int `json:"count"`
	}
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := s.service.GrantTokens(r.Context(), mux.Vars(r)["id"], req.Count)
	s.respondAction(w, r, "tokens", res, err)
}

// Item Handlers

func (s *Server) handleSpawnItem(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CatalogID string `json:"catalog_id"`
	}
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.CatalogID == "" {
		respondError(w, http.StatusBadRequest, "catalog_id is required")
		return
	}
	res, err := s.service.SpawnItem(r.Context(), mux.Vars(r)["id"], req.CatalogID)
	s.respondAction(w, r, "spawn", res, err)
}

func (s *Server) handleRemoveItem(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	res, err := s.service.RemoveItem(r.Context(), vars["id"], vars["item"])
	s.respondAction(w, r, "remove", res, err)
}

func (s *Server) handleBeginDrag(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	res, err := s.service.BeginDrag(r.Context(), vars["id"], vars["item"])
	s.respondAction(w, r, "drag_begin", res, err)
}

func (s *Server) handleDragMove(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	var pointer engine.Vec2
	if err := decodeBody(r, &pointer); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := s.service.DragMove(r.Context(), vars["id"], vars["item"], pointer)
	s.respondAction(w, r, "drag_move", res, err)
}

func (s *Server) handleEndDrag(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	res, err := s.service.EndDrag(r.Context(), vars["id"], vars["item"])
	s.respondAction(w, r, "drag_end", res, err)
}

func (s *Server) handleRotate(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	res, err := s.service.RotateItem(r.Context(), vars["id"], vars["item"])
	s.respondAction(w, r, "rotate", res, err)
}

func (s *Server) handlePlace(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	var req struct {
		GridID string `json:"grid_id"`
		X      int    `json:"x"`
		Y      int    `json:"y"`
	}
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.GridID == "" {
		respondError(w, http.StatusBadRequest, "grid_id is required")
		return
	}
	res, err := s.service.PlaceItem(r.Context(), vars["id"], vars["item"], req.GridID, engine.Coordinate{X: req.X, Y: req.Y})
	s.respondAction(w, r, "place", res, err)
}

func (s *Server) handleReturn(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	res, err := s.service.ReturnItem(r.Context(), vars["id"], vars["item"])
	s.respondAction(w, r, "return", res, err)
}

// Slot Handlers

func (s *Server) handleExpand(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	var c engine.Coordinate
	if err := decodeBody(r, &c); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := s.service.ExpandSlot(r.Context(), vars["id"], vars["grid"], c)
	s.respondAction(w, r, "expand", res, err)
}

func (s *Server) handleClick(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	var pointer engine.Vec2
	if err := decodeBody(r, &pointer); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := s.service.ClickSlot(r.Context(), vars["id"], vars["grid"], pointer)
	s.respondAction(w, r, "click", res, err)
}

func (s *Server) handleDisable(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	req := struct {
		X        int  `json:"x"`
		Y        int  `json:"y"`
		Disabled bool `json:"disabled"`
	}{Disabled: true}
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := s.service.SetSlotDisabled(r.Context(), vars["id"], vars["grid"], engine.Coordinate{X: req.X, Y: req.Y}, req.Disabled)
	s.respondAction(w, r, "disable", res, err)
}

// Configuration Handlers

func (s *Server) handleListConfigs(w http.ResponseWriter, r *http.Request) {
	configs, err := s.service.ListConfigs(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, configs)
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	configName := mux.Vars(r)["name"]

	cfg, err := s.service.LoadConfig(r.Context(), configName)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, cfg)
}

// handleCreateConfig stores a layout under ?name= or, failing that, a slug of
// its display name.
func (s *Server) handleCreateConfig(w http.ResponseWriter, r *http.Request) {
	var layout engine.LayoutConfig
	if err := json.NewDecoder(r.Body).Decode(&layout); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if layout.Name == "" {
		respondError(w, http.StatusBadRequest, "Config name is required")
		return
	}

	configID := r.URL.Query().Get("name")
	if configID == "" {
		configID = slug(layout.Name)
	}

	if err := s.service.SaveConfig(r.Context(), configID, &layout); err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"message":   "Configuration saved successfully",
		"config_id": configID,
	})
}

func slug(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ':
			b.WriteRune('_')
		}
	}
	return b.String()
}

// WebSocket Handler

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		http.Error(w, "session parameter required", http.StatusBadRequest)
		return
	}
	if s.hub == nil {
		http.Error(w, "websocket disabled", http.StatusServiceUnavailable)
		return
	}

	if _, err := s.service.GetSession(r.Context(), sessionID); err != nil {
		http.Error(w, "Invalid session", http.StatusNotFound)
		return
	}

	s.hub.ServeWS(w, r, sessionID)
}

// Health check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}
