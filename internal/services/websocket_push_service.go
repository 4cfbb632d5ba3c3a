package services

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"issuance-backend/internal/engine"
	"issuance-backend/internal/events"
	"issuance-backend/internal/metrics"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// CORS is enforced by the HTTP middleware; the upgrade itself
		// accepts any origin.
		return true
	},
}

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = 54 * time.Second
)

// PushMessage is the envelope every WebSocket frame carries.
type PushMessage struct {
	Type      string      `json:"type"`
	Timestamp string      `json:"timestamp"`
	MessageID string      `json:"message_id"`
	Data      interface{} `json:"data"`
}

// Subscriber is one WebSocket client. An empty kinds set receives every
// operation; otherwise only the named kinds.
type Subscriber struct {
	ID    string
	Conn  *websocket.Conn
	Send  chan []byte
	Kinds map[string]bool
}

func (s *Subscriber) wants(kind string) bool {
	if len(s.Kinds) == 0 {
		return true
	}
	return s.Kinds[kind]
}

// WebSocketPushService fans committed operations and reserve state out to
// WebSocket subscribers. It consumes the engine's commit hook, so every
// subscriber observes the operation log in commit order.
type WebSocketPushService struct {
	subscribers map[string]*Subscriber
	hub         chan PushMessage
	register    chan *Subscriber
	unregister  chan *Subscriber
	mutex       sync.RWMutex
}

func NewWebSocketPushService() *WebSocketPushService {
	service := &WebSocketPushService{
		subscribers: make(map[string]*Subscriber),
		hub:         make(chan PushMessage, 256),
		register:    make(chan *Subscriber),
		unregister:  make(chan *Subscriber),
	}
	go service.run()
	return service
}

// Attach subscribes the service to the engine's commit hook. The hook runs
// under the engine lock, so it only enqueues; delivery happens on the hub
// goroutine.
func (s *WebSocketPushService) Attach(eng *engine.Engine) {
	eng.OnCommit(func(op engine.Operation) {
		s.BroadcastOperation(op)
	})
}

func (s *WebSocketPushService) run() {
	for {
		select {
		case sub := <-s.register:
			s.handleRegister(sub)
		case sub := <-s.unregister:
			s.handleUnregister(sub)
		case message := <-s.hub:
			s.handleBroadcast(message)
		}
	}
}

func (s *WebSocketPushService) handleRegister(sub *Subscriber) {
	s.mutex.Lock()
	s.subscribers[sub.ID] = sub
	count := len(s.subscribers)
	s.mutex.Unlock()

	metrics.WebSocketConnections.Set(float64(count))
	logrus.WithFields(logrus.Fields{
		"subscriber": sub.ID,
		"kinds":      len(sub.Kinds),
	}).Info("websocket subscriber registered")

	s.sendTo(sub, PushMessage{
		Type:      "connection_established",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		MessageID: uuid.New().String(),
		Data: map[string]interface{}{
			"subscriber_id": sub.ID,
		},
	})
}

func (s *WebSocketPushService) handleUnregister(sub *Subscriber) {
	s.mutex.Lock()
	if _, ok := s.subscribers[sub.ID]; ok {
		delete(s.subscribers, sub.ID)
		close(sub.Send)
	}
	count := len(s.subscribers)
	s.mutex.Unlock()

	metrics.WebSocketConnections.Set(float64(count))
	logrus.WithField("subscriber", sub.ID).Info("websocket subscriber unregistered")
}

func (s *WebSocketPushService) handleBroadcast(message PushMessage) {
	data, err := json.Marshal(message)
	if err != nil {
		logrus.WithError(err).Error("failed to marshal push message")
		return
	}

	kind := ""
	if op, ok := message.Data.(events.OperationEvent); ok {
		kind = op.Kind
	}

	s.mutex.RLock()
	defer s.mutex.RUnlock()
	for _, sub := range s.subscribers {
		if kind != "" && !sub.wants(kind) {
			continue
		}
		select {
		case sub.Send <- data:
			metrics.WebSocketMessagesSent.Inc()
		default:
			logrus.WithField("subscriber", sub.ID).Warn("websocket send buffer full, dropping message")
		}
	}
}

func (s *WebSocketPushService) sendTo(sub *Subscriber, message PushMessage) {
	data, err := json.Marshal(message)
	if err != nil {
		return
	}
	select {
	case sub.Send <- data:
	default:
	}
}

// BroadcastOperation queues one committed operation for delivery.
func (s *WebSocketPushService) BroadcastOperation(op engine.Operation) {
	event := events.OperationEvent{
		ID:     op.ID,
		Seq:    op.Seq,
		Kind:   op.Kind,
		Caller: op.Caller,
		Detail: op.Detail,
		Height: op.Height,
		At:     op.At.UTC().Format(time.RFC3339Nano),
	}
	message := PushMessage{
		Type:      "operation",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		MessageID: uuid.New().String(),
		Data:      event,
	}
	select {
	case s.hub <- message:
	default:
		logrus.Warn("websocket hub full, dropping operation broadcast")
	}
}

// BroadcastReserveState queues a reserve state update for delivery.
func (s *WebSocketPushService) BroadcastReserveState(event events.ReserveStateEvent) {
	message := PushMessage{
		Type:      "reserve_state",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		MessageID: uuid.New().String(),
		Data:      event,
	}
	select {
	case s.hub <- message:
	default:
	}
}

// HandleWebSocket upgrades the request and runs the subscriber until the
// peer disconnects. kinds filters the operation stream; empty means all.
func (s *WebSocketPushService) HandleWebSocket(w http.ResponseWriter, r *http.Request, kinds []string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logrus.WithError(err).Warn("websocket upgrade failed")
		return
	}

	kindSet := make(map[string]bool, len(kinds))
	for _, k := range kinds {
		if k != "" {
			kindSet[k] = true
		}
	}

	sub := &Subscriber{
		ID:    uuid.New().String(),
		Conn:  conn,
		Send:  make(chan []byte, 256),
		Kinds: kindSet,
	}

	s.register <- sub

	go s.writeLoop(sub)
	s.readLoop(sub)
}

func (s *WebSocketPushService) writeLoop(sub *Subscriber) {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		sub.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-sub.Send:
			sub.Conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				sub.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := sub.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			sub.Conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := sub.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *WebSocketPushService) readLoop(sub *Subscriber) {
	defer func() {
		s.unregister <- sub
		sub.Conn.Close()
	}()

	sub.Conn.SetReadLimit(512)
	sub.Conn.SetReadDeadline(time.Now().Add(wsPongWait))
	sub.Conn.SetPongHandler(func(string) error {
		sub.Conn.SetReadDeadline(time.Now().Add(wsPongWait))
		return nil
	})

	for {
		if _, _, err := sub.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logrus.WithError(err).Debug("websocket read closed")
			}
			return
		}
	}
}

// ActiveSubscribers reports the current subscriber count.
func (s *WebSocketPushService) ActiveSubscribers() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return len(s.subscribers)
}
