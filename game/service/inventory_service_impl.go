package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/wricardo/placement-grid/game/engine"
	"github.com/wricardo/placement-grid/game/render"
)

var (
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrUnlimitedExpansion = errors.New("layout has unlimited expansion")
)

// inventoryServiceImpl implements the InventoryService interface
type inventoryServiceImpl struct {
	sessions SessionManager
	configs  ConfigManager
	log      zerolog.Logger
	now      func() time.Time
	metrics  *serviceMetrics
	mu       sync.Mutex
}

// Option configures the service
type Option func(*inventoryServiceImpl)

// WithLogger sets the service logger.
func WithLogger(log zerolog.Logger) Option {
	return func(s *inventoryServiceImpl) { s.log = log }
}

// WithClock replaces time.Now, which drives animation ticks.
func WithClock(now func() time.Time) Option {
	return func(s *inventoryServiceImpl) { s.now = now }
}

// WithMeter records counters on m instead of the global meter.
func WithMeter(m metric.Meter) Option {
	return func(s *inventoryServiceImpl) {
		if sm, err := newServiceMetrics(m); err == nil {
			s.metrics = sm
		}
	}
}

// NewInventoryService creates a new service instance
func NewInventoryService(sessions SessionManager, configs ConfigManager, opts ...Option) InventoryService {
	s := &inventoryServiceImpl{
		sessions: sessions,
		configs:  configs,
		log:      zerolog.Nop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		sm, err := newServiceMetrics(meter())
		if err != nil {
			s.log.Warn().Err(err).Msg("metrics disabled")
			sm = noopMetrics()
		}
		s.metrics = sm
	}
	return s
}

// CreateSession creates a new session from a named layout, or the default
// layout when configName is empty
func (s *inventoryServiceImpl) CreateSession(ctx context.Context, configName string) (*SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	configID := configName
	var config *engine.LayoutConfig
	var err error
	if configName != "" {
		config, err = s.configs.LoadConfig(configName)
		if err != nil {
			return nil, s.configError(configName, err)
		}
	} else {
		config = s.configs.GetDefault()
		configID = s.configs.DefaultName()
	}

	// Let session manager generate the ID
	sess, err := s.sessions.Create("", configID, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	sess.LastTick = s.now()

	s.log.Info().Str("session", sess.ID).Str("config", configID).Msg("session created")
	return s.info(sess), nil
}

func (s *inventoryServiceImpl) configError(configName string, err error) error {
	available, listErr := s.configs.ListConfigs()
	if listErr != nil || len(available) == 0 {
		return fmt.Errorf("config '%s': %w", configName, err)
	}
	var ids []string
	for _, cfg := range available {
		ids = append(ids, cfg.ConfigID)
	}
	return fmt.Errorf("config '%s' (available: %v): %w", configName, ids, err)
}

// GetSession retrieves session information
func (s *inventoryServiceImpl) GetSession(ctx context.Context, sessionID string) (*SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	return s.info(sess), nil
}

// ListSessions returns all active sessions
func (s *inventoryServiceImpl) ListSessions(ctx context.Context) ([]*SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sessions := s.sessions.List()
	result := make([]*SessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		s.advance(sess)
		info := s.info(sess)
		info.Config = nil
		result = append(result, info)
	}
	return result, nil
}

// DeleteSession removes a session
func (s *inventoryServiceImpl) DeleteSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.sessions.Delete(sessionID); err != nil {
		return fmt.Errorf("session %s: %w", sessionID, err)
	}
	s.log.Info().Str("session", sessionID).Msg("session deleted")
	return nil
}

// Reset rebuilds the session's board from its layout
func (s *inventoryServiceImpl) Reset(ctx context.Context, sessionID string) (*ActionResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	board, err := engine.NewBoardFromConfig(sess.Config, engine.WithLogger(s.log.With().Str("session", sess.ID).Logger()))
	if err != nil {
		return nil, fmt.Errorf("reset session %s: %w", sessionID, err)
	}
	sess.Board = board
	sess.LastTick = s.now()

	return s.finish(sess, "Board reset to its starting layout", s.event(EventReset, "Board reset", "", "", nil)), nil
}

// GetBoardState returns the client view of a board
func (s *inventoryServiceImpl) GetBoardState(ctx context.Context, sessionID string) (*engine.BoardState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	st := sess.Board.State()
	return &st, nil
}

// RenderBoard draws the board as text
func (s *inventoryServiceImpl) RenderBoard(ctx context.Context, sessionID string, colored bool) (string, error) {
	st, err := s.GetBoardState(ctx, sessionID)
	if err != nil {
		return "", err
	}
	return render.New(colored).Board(*st), nil
}

// SpawnItem creates a catalogue item and houses it in the pool
func (s *inventoryServiceImpl) SpawnItem(ctx context.Context, sessionID, catalogID string) (*ActionResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	item, err := sess.Config.NewItem(catalogID)
	if err != nil {
		return nil, fmt.Errorf("spawn %s: %w", catalogID, err)
	}

	events := []BoardEvent{s.event(EventSpawned, fmt.Sprintf("%s added", item.Name()), item.ID(), "", nil)}
	msg := fmt.Sprintf("%s added to the pool", item.Name())
	if err := sess.Board.AddItem(item); err != nil {
		if !errors.Is(err, engine.ErrPoolExhausted) {
			return nil, fmt.Errorf("spawn %s: %w", catalogID, err)
		}
		events = append(events, s.exhaustedEvent(sess, item.ID()))
		msg = fmt.Sprintf("%s added but the pool is full", item.Name())
	}

	res := s.finish(sess, msg, events...)
	res.ItemID = item.ID()
	return res, nil
}

// RemoveItem destroys an item
func (s *inventoryServiceImpl) RemoveItem(ctx context.Context, sessionID, itemID string) (*ActionResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	if err := sess.Board.RemoveItem(itemID); err != nil {
		return nil, err
	}
	res := s.finish(sess, "Item removed", s.event(EventRemoved, "Item removed", itemID, "", nil))
	res.ItemID = itemID
	return res, nil
}

// BeginDrag picks an item up
func (s *inventoryServiceImpl) BeginDrag(ctx context.Context, sessionID, itemID string) (*ActionResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	if err := sess.Board.BeginDrag(itemID); err != nil {
		return nil, err
	}
	res := s.finish(sess, "Item picked up", s.event(EventDragStarted, "Item picked up", itemID, "", nil))
	res.ItemID = itemID
	return res, nil
}

// DragMove moves the held item and returns the placement preview
func (s *inventoryServiceImpl) DragMove(ctx context.Context, sessionID, itemID string, pointer engine.Vec2) (*ActionResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	feedback, err := sess.Board.DragMove(itemID, pointer)
	if err != nil {
		return nil, err
	}
	res := s.state(sess, "Preview updated")
	res.ItemID = itemID
	res.Feedback = feedback
	return res, nil
}

// EndDrag drops the held item
func (s *inventoryServiceImpl) EndDrag(ctx context.Context, sessionID, itemID string) (*ActionResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	drop, err := sess.Board.EndDrag(itemID)
	if err != nil {
		return nil, err
	}
	return s.dropResult(sess, drop), nil
}

// RotateItem turns an item by 90 degrees. A held item is rotated in the
// hand and a pool item in its slot. Any other item is picked up, rotated and
// dropped where it was; on a grid it falls back to the pool if the rotated
// shape does not fit.
func (s *inventoryServiceImpl) RotateItem(ctx context.Context, sessionID, itemID string) (*ActionResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	if drag, ok := sess.Board.Dragging(); ok && drag.ItemID == itemID {
		feedback, err := sess.Board.Rotate(itemID)
		if err != nil {
			return nil, err
		}
		res := s.finish(sess, "Item rotated", s.event(EventRotated, "Item rotated", itemID, "", nil))
		res.ItemID = itemID
		res.Feedback = feedback
		return res, nil
	}

	view, err := sess.Board.View(itemID)
	if err != nil {
		return nil, err
	}
	if view.Location == engine.LocationPool {
		slot, err := sess.Board.RotateInPool(itemID)
		if err != nil {
			return nil, err
		}
		msg := fmt.Sprintf("Item rotated in pool slot %d", slot)
		res := s.finish(sess, msg, s.event(EventRotated, msg, itemID, "", nil))
		res.ItemID = itemID
		return res, nil
	}
	if err := sess.Board.BeginDrag(itemID); err != nil {
		return nil, err
	}
	if _, err := sess.Board.Rotate(itemID); err != nil {
		return nil, err
	}
	drop, err := sess.Board.EndDrag(itemID)
	if err != nil {
		return nil, err
	}
	if view.Location != engine.LocationGrid && drop.PoolSlot >= 0 {
		res := s.finish(sess, "Item rotated", s.event(EventRotated, "Item rotated", itemID, "", nil))
		res.ItemID = itemID
		res.Drop = &drop
		return res, nil
	}
	res := s.dropResult(sess, drop)
	res.Events = append([]BoardEvent{s.event(EventRotated, "Item rotated", itemID, "", nil)}, res.Events...)
	return res, nil
}

// PlaceItem drops an item with its anchor on a grid cell
func (s *inventoryServiceImpl) PlaceItem(ctx context.Context, sessionID, itemID, gridID string, anchor engine.Coordinate) (*ActionResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	drop, err := sess.Board.PlaceAt(itemID, gridID, anchor)
	if err != nil {
		return nil, err
	}
	return s.dropResult(sess, drop), nil
}

// ReturnItem sends an item back to the pool
func (s *inventoryServiceImpl) ReturnItem(ctx context.Context, sessionID, itemID string) (*ActionResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	moves, err := sess.Board.ReturnToPool(itemID)
	events := []BoardEvent{s.event(EventReturned, "Item returned to the pool", itemID, "", nil)}
	msg := "Item returned to the pool"
	if err != nil {
		if !errors.Is(err, engine.ErrPoolExhausted) {
			return nil, err
		}
		events = append(events, s.exhaustedEvent(sess, itemID))
		msg = "Pool is full, item left unhoused"
	}
	res := s.finish(sess, msg, events...)
	res.ItemID = itemID
	res.Moves = moveInfos(moves)
	return res, nil
}

// Hover records the pointer for expandable hover sprites
func (s *inventoryServiceImpl) Hover(ctx context.Context, sessionID string, pointer engine.Vec2) (*ActionResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	sess.Board.Hover(pointer)
	return s.state(sess, "Hover updated"), nil
}

// ExpandSlot unlocks an expandable cell
func (s *inventoryServiceImpl) ExpandSlot(ctx context.Context, sessionID, gridID string, c engine.Coordinate) (*ActionResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	if err := sess.Board.TryExpand(gridID, c); err != nil {
		return nil, err
	}
	return s.expanded(sess, gridID, c), nil
}

// ClickSlot expands the cell under a pointer
func (s *inventoryServiceImpl) ClickSlot(ctx context.Context, sessionID, gridID string, pointer engine.Vec2) (*ActionResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	c, err := sess.Board.ClickCell(gridID, pointer)
	if err != nil {
		return nil, err
	}
	return s.expanded(sess, gridID, c), nil
}

func (s *inventoryServiceImpl) expanded(sess *Session, gridID string, c engine.Coordinate) *ActionResult {
	add(s.metrics.expanded, 1, attribute.String("grid", gridID))
	msg := fmt.Sprintf("Slot %s on %s unlocked", c, gridID)
	res := s.finish(sess, msg, s.event(EventExpanded, msg, "", gridID, &c))
	res.Coordinate = &c
	return res
}

// SetSlotDisabled toggles a cell between empty and disabled
func (s *inventoryServiceImpl) SetSlotDisabled(ctx context.Context, sessionID, gridID string, c engine.Coordinate, disabled bool) (*ActionResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	if err := sess.Board.SetDisabled(gridID, c, disabled); err != nil {
		return nil, err
	}
	kind, msg := EventEnabled, fmt.Sprintf("Slot %s on %s enabled", c, gridID)
	if disabled {
		kind, msg = EventDisabled, fmt.Sprintf("Slot %s on %s disabled", c, gridID)
	}
	res := s.finish(sess, msg, s.event(kind, msg, "", gridID, &c))
	res.Coordinate = &c
	return res, nil
}

// GrantTokens adds expansion tokens
func (s *inventoryServiceImpl) GrantTokens(ctx context.Context, sessionID string, n int) (*ActionResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n <= 0 {
		return nil, fmt.Errorf("token count must be positive, got %d: %w", n, ErrInvalidArgument)
	}
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	tp, ok := sess.Board.Progression().(*engine.TokenProgression)
	if !ok {
		return nil, fmt.Errorf("session %s: %w", sessionID, ErrUnlimitedExpansion)
	}
	tp.Grant(n)
	sess.Board.RefreshExpansion()

	msg := fmt.Sprintf("Granted %d expansion token(s), %d available", n, tp.Tokens)
	return s.finish(sess, msg, s.event(EventTokens, msg, "", "", nil)), nil
}

// ListConfigs returns available layouts
func (s *inventoryServiceImpl) ListConfigs(ctx context.Context) ([]*ConfigInfo, error) {
	return s.configs.ListConfigs()
}

// LoadConfig loads a specific layout
func (s *inventoryServiceImpl) LoadConfig(ctx context.Context, configName string) (*engine.LayoutConfig, error) {
	return s.configs.LoadConfig(configName)
}

// SaveConfig saves a layout to disk
func (s *inventoryServiceImpl) SaveConfig(ctx context.Context, configName string, config *engine.LayoutConfig) error {
	return s.configs.SaveConfig(configName, config)
}

// session looks up a session, marks it accessed and catches its animations
// up with the wall clock. Callers hold s.mu.
func (s *inventoryServiceImpl) session(id string) (*Session, error) {
	sess, err := s.sessions.Get(id)
	if err != nil {
		return nil, fmt.Errorf("session %s: %w", id, err)
	}
	if err := s.sessions.UpdateLastAccessed(id); err != nil {
		s.log.Warn().Err(err).Str("session", id).Msg("failed to update last access")
	}
	s.advance(sess)
	return sess, nil
}

func (s *inventoryServiceImpl) advance(sess *Session) {
	now := s.now()
	if !sess.LastTick.IsZero() {
		if dt := now.Sub(sess.LastTick).Seconds(); dt > 0 {
			sess.Board.Tick(dt)
		}
	}
	sess.LastTick = now
}

func (s *inventoryServiceImpl) info(sess *Session) *SessionInfo {
	st := sess.Board.State()
	return &SessionInfo{
		ID:             sess.ID,
		ConfigName:     sess.ConfigID,
		CreatedAt:      sess.CreatedAt,
		LastAccessedAt: sess.LastAccessedAt,
		State:          &st,
		Config:         sess.Config,
	}
}

// state builds a result without persisting; used for previews.
func (s *inventoryServiceImpl) state(sess *Session, msg string) *ActionResult {
	st := sess.Board.State()
	return &ActionResult{Success: true, Message: msg, State: &st}
}

// finish persists the session and builds the result.
func (s *inventoryServiceImpl) finish(sess *Session, msg string, events ...BoardEvent) *ActionResult {
	if err := s.sessions.Save(sess.ID); err != nil {
		s.log.Warn().Err(err).Str("session", sess.ID).Msg("failed to persist session")
	}
	res := s.state(sess, msg)
	res.Events = events
	return res
}

func (s *inventoryServiceImpl) event(kind, msg, itemID, gridID string, c *engine.Coordinate) BoardEvent {
	return BoardEvent{
		Type:       kind,
		Message:    msg,
		Timestamp:  s.now(),
		ItemID:     itemID,
		GridID:     gridID,
		Coordinate: c,
	}
}

func (s *inventoryServiceImpl) exhaustedEvent(sess *Session, itemID string) BoardEvent {
	add(s.metrics.exhausted, 1)
	s.log.Warn().Str("session", sess.ID).Str("item", itemID).Msg("pool exhausted")
	return s.event(EventPoolExhausted, "Pool is full, item left unhoused", itemID, "", nil)
}

// dropResult turns a drop into events, counters and a persisted result.
func (s *inventoryServiceImpl) dropResult(sess *Session, drop engine.DropResult) *ActionResult {
	var events []BoardEvent
	var msg string

	if drop.Placed {
		c := drop.Anchor
		add(s.metrics.placed, 1, attribute.String("grid", drop.GridID))
		add(s.metrics.evicted, len(drop.Evicted), attribute.String("grid", drop.GridID))
		msg = fmt.Sprintf("Placed on %s at %s", drop.GridID, drop.Anchor)
		events = append(events, s.event(EventPlaced, msg, drop.ItemID, drop.GridID, &c))
		for _, id := range drop.Evicted {
			events = append(events, s.event(EventEvicted, "Evicted to the pool", id, drop.GridID, nil))
			if v, err := sess.Board.View(id); err == nil && v.Location == engine.LocationUnhoused {
				events = append(events, s.exhaustedEvent(sess, id))
			}
		}
	} else {
		add(s.metrics.rejected, 1, attribute.String("reason", drop.Reason))
		msg = fmt.Sprintf("Drop rejected (%s), item returned to the pool", drop.Reason)
		events = append(events, s.event(EventRejected, msg, drop.ItemID, "", nil))
		if drop.PoolSlot < 0 {
			events = append(events, s.exhaustedEvent(sess, drop.ItemID))
		}
	}

	res := s.finish(sess, msg, events...)
	res.Success = drop.Placed
	res.ItemID = drop.ItemID
	res.Drop = &drop
	return res
}

func moveInfos(moves []engine.PoolMove) []PoolMoveInfo {
	out := make([]PoolMoveInfo, 0, len(moves))
	for _, m := range moves {
		out = append(out, PoolMoveInfo{ItemID: m.Item.ID(), Slot: m.Slot, Position: m.Position})
	}
	return out
}
