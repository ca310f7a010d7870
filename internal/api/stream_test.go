package api

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"passages/pkg/present"
)

func dialStream(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	return conn
}

func TestStreamHandler_FansOutEffects(t *testing.T) {
	hub := present.NewHub(8)
	srv := httptest.NewServer(NewStreamHandler(hub))
	defer srv.Close()

	c1 := dialStream(t, srv)
	defer c1.Close()
	c2 := dialStream(t, srv)
	defer c2.Close()

	require.Eventually(t, func() bool { return hub.Count() == 2 }, 2*time.Second, 10*time.Millisecond)

	hub.Emit(present.Counter(3, 69, "miles"))
	hub.Emit(present.Buttons(3, true, false))

	for _, c := range []*websocket.Conn{c1, c2} {
		_ = c.SetReadDeadline(time.Now().Add(2 * time.Second))

		var e present.Effect
		require.NoError(t, c.ReadJSON(&e))
		assert.Equal(t, present.KindCounter, e.Kind)
		assert.Equal(t, uint64(3), e.Generation)
		assert.Equal(t, 69, e.Value)

		require.NoError(t, c.ReadJSON(&e))
		assert.Equal(t, present.KindButtons, e.Kind)
		assert.True(t, e.Prev)
		assert.Greater(t, e.Seq, uint64(1))
	}
}

func TestStreamHandler_UnsubscribesOnClose(t *testing.T) {
	hub := present.NewHub(8)
	srv := httptest.NewServer(NewStreamHandler(hub))
	defer srv.Close()

	c := dialStream(t, srv)
	require.Eventually(t, func() bool { return hub.Count() == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, c.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))
	_ = c.Close()

	assert.Eventually(t, func() bool { return hub.Count() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestStreamHandler_RejectsPlainHTTP(t *testing.T) {
	hub := present.NewHub(8)
	rr := httptest.NewRecorder()
	NewStreamHandler(hub).ServeHTTP(rr, httptest.NewRequest("GET", "/ws", nil))

	assert.Equal(t, 400, rr.Code)
	assert.Zero(t, hub.Count())
}
