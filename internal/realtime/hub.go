// Package realtime はユーザーIDごとのグループへイベントを配信する。
package realtime

import (
	"sync"

	"go.uber.org/zap"
)

// クライアントへ送るイベント名
const (
	EventReceiveMessage           = "ReceiveMessage"
	EventMessageSent              = "MessageSent"
	EventMessagesMarkedAsRead     = "MessagesMarkedAsRead"
	EventMessagesReadConfirmation = "MessagesReadConfirmation"
)

const defaultBuffer = 32

type Event struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// Publisher はusecaseが依存する送信側の約束
type Publisher interface {
	Publish(userID string, ev Event)
}

// Subscription は1接続ぶんの受信口
type Subscription struct {
	UserID string
	ch     chan Event
}

func (s *Subscription) Events() <-chan Event {
	return s.ch
}

type Hub struct {
	mu     sync.RWMutex
	groups map[string]map[*Subscription]struct{}
	buffer int
	log    *zap.Logger
}

func NewHub(log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		groups: map[string]map[*Subscription]struct{}{},
		buffer: defaultBuffer,
		log:    log,
	}
}

// Join はuserIDのグループに参加する。同じユーザーの複数接続も可
func (h *Hub) Join(userID string) *Subscription {
	sub := &Subscription{UserID: userID, ch: make(chan Event, h.buffer)}

	h.mu.Lock()
	defer h.mu.Unlock()
	g, ok := h.groups[userID]
	if !ok {
		g = map[*Subscription]struct{}{}
		h.groups[userID] = g
	}
	g[sub] = struct{}{}
	return sub
}

// Leave はグループから外してチャネルを閉じる。二重呼び出しは無視
func (h *Hub) Leave(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	g, ok := h.groups[sub.UserID]
	if !ok {
		return
	}
	if _, ok := g[sub]; !ok {
		return
	}
	delete(g, sub)
	close(sub.ch)
	if len(g) == 0 {
		delete(h.groups, sub.UserID)
	}
}

// Publish は送信者をブロックしない。バッファが一杯なら捨てる
func (h *Hub) Publish(userID string, ev Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for sub := range h.groups[userID] {
		select {
		case sub.ch <- ev:
		default:
			h.log.Debug("realtime event dropped",
				zap.String("user_id", userID),
				zap.String("type", ev.Type),
			)
		}
	}
}

// 接続数
func (h *Hub) Connections(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.groups[userID])
}
