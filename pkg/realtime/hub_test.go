package realtime

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func dial(t *testing.T, hub *Hub, userID, role string) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = hub.Serve(w, r, userID, role)
	}))
	t.Cleanup(srv.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg Message
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestHubWelcomesAndTargetsUsers(t *testing.T) {
	hub := NewHub(zap.NewNop(), []string{"*"})

	alice := dial(t, hub, "alice", "user")
	bob := dial(t, hub, "bob", "admin")

	assert.Equal(t, TypePing, readMessage(t, alice).Type)
	assert.Equal(t, TypePing, readMessage(t, bob).Type)
	require.Eventually(t, func() bool { return hub.Connections() == 2 }, time.Second, 10*time.Millisecond)

	hub.NotifyUser("alice", Message{Type: TypeBalance, Data: map[string]int{"balance": 42}})
	got := readMessage(t, alice)
	assert.Equal(t, TypeBalance, got.Type)
	assert.Equal(t, float64(42), got.Data.(map[string]interface{})["balance"])

	hub.NotifyRole("admin", Message{Type: TypeStallStats})
	assert.Equal(t, TypeStallStats, readMessage(t, bob).Type)

	hub.Broadcast(Message{Type: TypeLeaderboard})
	assert.Equal(t, TypeLeaderboard, readMessage(t, alice).Type)
	assert.Equal(t, TypeLeaderboard, readMessage(t, bob).Type)
}

func TestHubUnregistersOnClose(t *testing.T) {
	hub := NewHub(zap.NewNop(), nil)
	var last atomic.Int64
	last.Store(-1)
	hub.OnConnectionsChanged(func(total int) { last.Store(int64(total)) })

	conn := dial(t, hub, "carol", "user")
	readMessage(t, conn)
	require.Eventually(t, func() bool { return hub.Connections() == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return hub.Connections() == 0 }, 2*time.Second, 10*time.Millisecond)
	assert.Eventually(t, func() bool { return last.Load() == 0 }, time.Second, 10*time.Millisecond)
}

func TestOriginChecker(t *testing.T) {
	check := originChecker([]string{"http://admin.test"})

	r := httptest.NewRequest(http.MethodGet, "/ws", nil)
	assert.True(t, check(r))

	r.Header.Set("Origin", "http://admin.test")
	assert.True(t, check(r))

	r.Header.Set("Origin", "http://evil.test")
	assert.False(t, check(r))
}
