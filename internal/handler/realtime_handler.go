package handler

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/solecraft/marketplace/internal/config"
	"github.com/solecraft/marketplace/internal/middleware"
	"github.com/solecraft/marketplace/internal/realtime"
	"github.com/solecraft/marketplace/internal/repository"
	"go.uber.org/zap"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = wsPongWait * 9 / 10
	wsReadLimit  = 4096
)

// クライアントから来るフレーム
type clientFrame struct {
	Type string `json:"type"`
}

type RealtimeHandler struct {
	hub      *realtime.Hub
	upgrader websocket.Upgrader
	log      *zap.Logger
}

// allowedOriginが空なら全Originを許可
func NewRealtimeHandler(hub *realtime.Hub, allowedOrigin string, log *zap.Logger) *RealtimeHandler {
	return &RealtimeHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return allowedOrigin == "" || origin == "" || origin == allowedOrigin
			},
		},
		log: log,
	}
}

// /hubs/chat?access_token=
func (h *RealtimeHandler) RegisterRoutes(api *echo.Group, cfg config.Config, userRepo repository.UserRepository) {
	api.GET("/hubs/chat", h.connect, middleware.AuthJWT(cfg), middleware.TokenVersionGuard(userRepo))
}

func (h *RealtimeHandler) connect(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// Upgraderが応答済み
		h.log.Debug("websocket upgrade failed", zap.Error(err))
		return nil
	}

	sub := h.hub.Join(userID)
	h.log.Debug("realtime connected", zap.String("user_id", userID))

	done := make(chan struct{})
	acks := make(chan realtime.Event, 8)
	go h.readLoop(conn, sub.UserID, acks, done)
	h.writeLoop(conn, sub, acks, done)

	h.hub.Leave(sub)
	_ = conn.Close()
	h.log.Debug("realtime disconnected", zap.String("user_id", userID))
	return nil
}

// 読み取りはJoinGroup/LeaveGroupの応答とping維持だけ
func (h *RealtimeHandler) readLoop(conn *websocket.Conn, userID string, acks chan<- realtime.Event, done chan<- struct{}) {
	defer close(done)

	conn.SetReadLimit(wsReadLimit)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	for {
		var f clientFrame
		if err := conn.ReadJSON(&f); err != nil {
			return
		}
		switch f.Type {
		case "JoinGroup", "LeaveGroup":
			// グループは接続ユーザー自身に固定。この接続にだけ応答する
			select {
			case acks <- realtime.Event{Type: f.Type, Payload: map[string]string{"userId": userID}}:
			default:
			}
		}
	}
}

// 書き込みはこのgoroutineだけが行う
func (h *RealtimeHandler) writeLoop(conn *websocket.Conn, sub *realtime.Subscription, acks <-chan realtime.Event, done <-chan struct{}) {
	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case ev, ok := <-sub.Events():
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		case ack := <-acks:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteJSON(ack); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
