package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/agentstation/utc"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/casesync/pkg/logging"
)

func runHub(t *testing.T) (*Hub, context.CancelFunc) {
	t.Helper()
	hub := NewHub(logging.NewNopLogger())
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(cancel)
	return hub, cancel
}

func author(id int64) *int64 { return &id }

func receive(t *testing.T, c *Client) (Message, bool) {
	t.Helper()
	select {
	case m, ok := <-c.send:
		return m, ok
	case <-time.After(200 * time.Millisecond):
		return Message{}, false
	}
}

func TestHubBroadcast(t *testing.T) {
	hub, _ := runHub(t)

	client := NewClient("c1", hub, nil)
	hub.Register(client)
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	hub.Broadcast(Message{Type: "case.upserted", Timestamp: utc.Now(), Data: "x"})

	m, ok := receive(t, client)
	require.True(t, ok)
	assert.Equal(t, "case.upserted", m.Type)
}

func TestHubFollowFiltersByAuthor(t *testing.T) {
	hub, _ := runHub(t)

	all := NewClient("all", hub, nil)
	seven := NewClient("seven", hub, nil).Follow(7)
	hub.Register(all)
	hub.Register(seven)
	require.Eventually(t, func() bool { return hub.ClientCount() == 2 }, time.Second, 5*time.Millisecond)

	hub.Broadcast(Message{Type: "case.upserted", Data: 8, Author: author(8)})
	hub.Broadcast(Message{Type: "case.upserted", Data: 7, Author: author(7)})

	m, ok := receive(t, all)
	require.True(t, ok)
	assert.Equal(t, 8, m.Data)
	m, ok = receive(t, all)
	require.True(t, ok)
	assert.Equal(t, 7, m.Data)

	m, ok = receive(t, seven)
	require.True(t, ok)
	assert.Equal(t, 7, m.Data)
	_, ok = receive(t, seven)
	assert.False(t, ok)
}

func TestHubUnregister(t *testing.T) {
	hub, _ := runHub(t)

	client := NewClient("c1", hub, nil)
	hub.Register(client)
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	hub.Unregister(client)
	require.Eventually(t, func() bool { return hub.ClientCount() == 0 }, time.Second, 5*time.Millisecond)

	_, open := <-client.send
	assert.False(t, open)

	// a second unregister is ignored
	hub.Unregister(client)
}

func TestHubShutdownClosesClients(t *testing.T) {
	hub, cancel := runHub(t)

	client := NewClient("c1", hub, nil)
	hub.Register(client)
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	cancel()
	require.Eventually(t, func() bool { return hub.ClientCount() == 0 }, time.Second, 5*time.Millisecond)
}

func TestClientSendFull(t *testing.T) {
	client := NewClient("c1", nil, nil)
	for i := 0; i < cap(client.send); i++ {
		require.True(t, client.Send(Message{Type: "x"}))
	}
	assert.False(t, client.Send(Message{Type: "x"}))
}

func TestPumpsOverRealConnection(t *testing.T) {
	hub, _ := runHub(t)

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		client := NewClient("remote", hub, conn)
		hub.Register(client)
		go client.WritePump()
		go client.ReadPump()
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)
	hub.Broadcast(Message{ID: "e1", Type: "case.upserted", Data: map[string]any{"key": "1/1"}})

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "e1", got["id"])
	assert.Equal(t, "case.upserted", got["type"])

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return hub.ClientCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}
