package server_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/solecraft/marketplace/internal/usecase"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type wsFrame struct {
	Type    string                 `json:"type"`
	Payload map[string]interface{} `json:"payload"`
}

func dialHub(t *testing.T, srv *httptest.Server, token string) *websocket.Conn {
	t.Helper()
	u := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/hubs/chat?access_token=" + token
	conn, resp, err := websocket.DefaultDialer.Dial(u, nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) wsFrame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	var f wsFrame
	require.NoError(t, conn.ReadJSON(&f))
	return f
}

// JoinGroupの応答の後、送られたメッセージがpushされる
func TestRealtimeHub_PushesMessages(t *testing.T) {
	app := newTestApp(t)
	srv := httptest.NewServer(app.e)
	defer srv.Close()

	alice := app.signUp(t, "alice", "")
	bob := app.signUp(t, "bobby", "")

	rec := app.do(t, http.MethodGet, "/api/Auth/me", bob, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var me usecase.UserDTO
	decode(t, rec, &me)

	conn := dialHub(t, srv, bob)
	require.NoError(t, conn.WriteJSON(map[string]string{"type": "JoinGroup"}))
	ack := readFrame(t, conn)
	assert.Equal(t, "JoinGroup", ack.Type)
	assert.Equal(t, me.ID, ack.Payload["userId"])

	rec = app.do(t, http.MethodPost, "/api/Chat/send", alice, map[string]string{"receiverId": me.ID, "message": "hello bob"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	got := readFrame(t, conn)
	assert.Equal(t, "ReceiveMessage", got.Type)
	assert.Equal(t, "hello bob", got.Payload["body"])
}

func TestRealtimeHub_RejectsWithoutToken(t *testing.T) {
	app := newTestApp(t)
	srv := httptest.NewServer(app.e)
	defer srv.Close()

	u := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/hubs/chat"
	_, resp, err := websocket.DefaultDialer.Dial(u, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
