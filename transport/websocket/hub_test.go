package websocket

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wricardo/placement-grid/game/engine"
)

func testClient(hub *Hub, sessionID string) *Client {
	return &Client{hub: hub, sessionID: sessionID, send: make(chan []byte, sendBuffer)}
}

func TestHubRegisterAndUnregister(t *testing.T) {
	hub := NewHub()
	c1 := testClient(hub, "abcd")
	c2 := testClient(hub, "abcd")

	hub.registerClient(c1)
	hub.registerClient(c2)
	assert.Len(t, hub.sessions["abcd"], 2)

	hub.unregisterClient(c1)
	assert.Len(t, hub.sessions["abcd"], 1)
	assert.True(t, hub.sessions["abcd"][c2])

	_, open := <-c1.send
	assert.False(t, open, "send channel is closed on unregister")

	hub.unregisterClient(c2)
	_, exists := hub.sessions["abcd"]
	assert.False(t, exists, "empty sessions are dropped")

	// unregistering twice is harmless
	hub.unregisterClient(c2)
}

func TestHubBroadcastMessage(t *testing.T) {
	hub := NewHub()
	watching := testClient(hub, "abcd")
	other := testClient(hub, "efgh")
	hub.registerClient(watching)
	hub.registerClient(other)

	tokens := 2
	hub.broadcastMessage(&Message{
		SessionID: "abcd",
		Event:     EventStateUpdate,
		State:     &engine.BoardState{Revision: 7, Tokens: &tokens},
	})

	select {
	case data := <-watching.send:
		var msg Message
		require.NoError(t, json.Unmarshal(data, &msg))
		assert.Equal(t, "abcd", msg.SessionID)
		assert.Equal(t, EventStateUpdate, msg.Event)
		require.NotNil(t, msg.State)
		assert.Equal(t, uint64(7), msg.State.Revision)
		assert.Equal(t, 2, *msg.State.Tokens)
	default:
		t.Fatal("watching client got nothing")
	}
	assert.Empty(t, other.send, "other sessions are not notified")
}

func TestHubDropsSlowClient(t *testing.T) {
	hub := NewHub()
	slow := &Client{hub: hub, sessionID: "abcd", send: make(chan []byte)}
	hub.registerClient(slow)

	hub.broadcastMessage(&Message{SessionID: "abcd", Event: EventBoard})
	_, exists := hub.sessions["abcd"]
	assert.False(t, exists)
}

func TestHubBroadcastEventQueues(t *testing.T) {
	hub := NewHub()
	hub.BroadcastEvent("abcd", EventBoard, "placed")

	select {
	case msg := <-hub.broadcast:
		assert.Equal(t, "abcd", msg.SessionID)
		assert.Equal(t, EventBoard, msg.Event)
		assert.Equal(t, "placed", msg.Data)
	case <-time.After(100 * time.Millisecond):
		t.Fatal("no broadcast queued")
	}
}

func newTestServer(t *testing.T, hub *Hub) string {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.ServeWS(w, r, r.URL.Query().Get("session"))
	}))
	t.Cleanup(server.Close)
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func TestWebSocketLifecycle(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	t.Cleanup(hub.Stop)

	conn, _, err := websocket.DefaultDialer.Dial(newTestServer(t, hub)+"?session=ws01", nil)
	require.NoError(t, err)

	assert.Eventually(t, func() bool { return hub.ClientCount("ws01") == 1 },
		time.Second, 10*time.Millisecond)

	conn.Close()
	assert.Eventually(t, func() bool { return hub.ClientCount("ws01") == 0 },
		time.Second, 10*time.Millisecond)
}

func TestWebSocketReceivesState(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	t.Cleanup(hub.Stop)

	conn, _, err := websocket.DefaultDialer.Dial(newTestServer(t, hub)+"?session=ws02", nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.ClientCount("ws02") == 1 },
		time.Second, 10*time.Millisecond)

	b, err := engine.NewBoardFromConfig(nil)
	require.NoError(t, err)
	st := b.State()
	hub.BroadcastToSession("ws02", &st)
	hub.BroadcastEvent("ws02", EventBoard, map[string]string{"type": "placed"})

	conn.SetReadDeadline(time.Now().Add(time.Second))
	var first, second Message
	require.NoError(t, conn.ReadJSON(&first))
	require.NoError(t, conn.ReadJSON(&second))

	assert.Equal(t, EventStateUpdate, first.Event)
	require.NotNil(t, first.State)
	require.Len(t, first.State.Grids, 1)
	assert.Equal(t, "backpack", first.State.Grids[0].ID)
	assert.Len(t, first.State.Items, 3)

	assert.Equal(t, EventBoard, second.Event)
	assert.Equal(t, map[string]interface{}{"type": "placed"}, second.Data)
}

func TestStopClosesClients(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	conn, _, err := websocket.DefaultDialer.Dial(newTestServer(t, hub)+"?session=ws03", nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return hub.ClientCount("ws03") == 1 },
		time.Second, 10*time.Millisecond)

	hub.Stop()
	hub.Stop()

	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, _, err = conn.ReadMessage()
	assert.Error(t, err)
	assert.Equal(t, 0, hub.ClientCount("ws03"))
}
