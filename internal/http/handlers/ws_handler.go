package handlers

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/gofiber/contrib/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nft-launchpad/backend/internal/events"
)

// WSHub fans collection events out to websocket clients. A client
// subscribes to one collection (?collection_id=...) and receives its
// payment and deployment updates as they are published on the stream.
type WSHub struct {
	subscriber  events.Subscriber
	log         *zap.Logger
	mu          sync.RWMutex
	connections map[uuid.UUID][]*websocket.Conn
}

func NewWSHub(subscriber events.Subscriber, log *zap.Logger) *WSHub {
	return &WSHub{
		subscriber:  subscriber,
		log:         log,
		connections: make(map[uuid.UUID][]*websocket.Conn),
	}
}

func (h *WSHub) Start(ctx context.Context) {
	_ = h.subscriber.Subscribe(ctx, events.StreamCollections, func(event events.Event) {
		h.dispatch(event)
	})
}

// dispatch routes an event to the clients watching its collection.
func (h *WSHub) dispatch(event events.Event) {
	raw, ok := event.Payload["collection_id"].(string)
	if !ok {
		return
	}
	collectionID, err := uuid.Parse(raw)
	if err != nil {
		return
	}

	data, err := json.Marshal(event)
	if err != nil {
		return
	}

	h.mu.RLock()
	conns := h.connections[collectionID]
	h.mu.RUnlock()

	for _, conn := range conns {
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			h.log.Debug("ws write failed", zap.Error(err))
		}
	}
}

// Handle is the websocket endpoint.
// GET /ws?collection_id=<uuid>
func (h *WSHub) Handle(conn *websocket.Conn) {
	collectionID, err := uuid.Parse(conn.Query("collection_id"))
	if err != nil {
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"collection_id query parameter required"}`))
		_ = conn.Close()
		return
	}

	h.register(collectionID, conn)
	defer h.unregister(collectionID, conn)

	// Block until the client goes away; inbound messages are ignored.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *WSHub) register(collectionID uuid.UUID, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.connections[collectionID] = append(h.connections[collectionID], conn)
}

func (h *WSHub) unregister(collectionID uuid.UUID, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	conns := h.connections[collectionID]
	for i, c := range conns {
		if c == conn {
			h.connections[collectionID] = append(conns[:i], conns[i+1:]...)
			break
		}
	}
	if len(h.connections[collectionID]) == 0 {
		delete(h.connections, collectionID)
	}
}
