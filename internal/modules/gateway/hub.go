package gateway

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/quiknotes/core/internal/models"
	pkgredis "github.com/quiknotes/core/internal/pkg/redis"
	socketio "github.com/zishang520/socket.io/v2/socket"
	"go.uber.org/zap"
)

func NewHub(rc *pkgredis.Client, logger *zap.Logger, validateToken TokenValidator) *Hub {
	sio := socketio.NewServer(nil, nil)
	h := &Hub{
		instanceID:    uuid.New().String(),
		sidRoom:       make(map[string]string),
		roomCount:     make(map[string]int),
		broadcast:     make(chan Message, 256),
		register:      make(chan clientMeta, 256),
		unregister:    make(chan clientMeta, 256),
		rc:            rc,
		logger:        logger,
		sio:           sio,
		validateToken: validateToken,
	}
	h.registerNamespace()
	return h
}

// Run starts the hub loop and Redis subscriber.
func (h *Hub) Run(ctx context.Context) {
	if h.rc != nil {
		go h.subscribeRedis(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			h.sio.Close(nil)
			return

		case c := <-h.register:
			h.registerClient(c)

		case c := <-h.unregister:
			h.unregisterClient(c)

		case msg := <-h.broadcast:
			h.deliver(msg)
			h.fanOut(ctx, msg)
		}
	}
}

// NotesChanged pushes the user's refreshed collection view to every
// client the user has connected.
func (h *Hub) NotesChanged(userID string, notes []models.Note) {
	h.Broadcast(EventNotesChanged, map[string]interface{}{
		"data":  notes,
		"total": len(notes),
	}, RoomForUser(userID))
}

// Broadcast sends an event to all clients in the given room.
func (h *Hub) Broadcast(event string, payload interface{}, room string) {
	h.broadcast <- Message{Event: event, Payload: payload, Room: room}
}

// RoomForUser names the private room of a user.
func RoomForUser(userID string) string {
	return "user:" + userID
}

func (h *Hub) registerClient(c clientMeta) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if oldRoom, ok := h.sidRoom[c.sid]; ok {
		if oldRoom == c.room {
			return
		}
		if h.roomCount[oldRoom] > 0 {
			h.roomCount[oldRoom]--
		}
	}
	h.sidRoom[c.sid] = c.room
	h.roomCount[c.room]++
}

func (h *Hub) unregisterClient(c clientMeta) {
	h.mu.Lock()
	defer h.mu.Unlock()

	room, ok := h.sidRoom[c.sid]
	if !ok {
		return
	}
	delete(h.sidRoom, c.sid)
	if h.roomCount[room] > 0 {
		h.roomCount[room]--
	}
	if h.roomCount[room] == 0 {
		delete(h.roomCount, room)
	}
}

func (h *Hub) emitRoom(room string, msg Message) {
	ns := h.sio.Of(namespaceNotes, nil)
	ns.To(socketio.Room(room)).Emit("message", h.messageFormat(msg.Event, msg.Payload))
}

func (h *Hub) deliver(msg Message) {
	if msg.Room == "" {
		h.sio.Of(namespaceNotes, nil).Emit("message", h.messageFormat(msg.Event, msg.Payload))
		return
	}
	h.emitRoom(msg.Room, msg)
}

func (h *Hub) messageFormat(event string, payload interface{}) gatewayPayload {
	return gatewayPayload{
		Type: event,
		Data: payload,
	}
}

// fanOut republishes the message so other instances can deliver it to
// their own connected clients.
func (h *Hub) fanOut(ctx context.Context, msg Message) {
	if h.rc == nil {
		return
	}
	msg.Origin = h.instanceID
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	if err := h.rc.Publish(ctx, redisChanNotes, string(data)); err != nil && h.logger != nil {
		h.logger.Warn("gateway publish failed", zap.String("channel", redisChanNotes), zap.Error(err))
	}
}

// subscribeRedis listens for broadcasts from other server instances.
func (h *Hub) subscribeRedis(ctx context.Context) {
	pubsub := h.rc.Subscribe(ctx, redisChanNotes)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return

		case redisMsg, ok := <-ch:
			if !ok {
				return
			}
			var msg Message
			if err := json.Unmarshal([]byte(redisMsg.Payload), &msg); err != nil {
				continue
			}
			if !h.acceptRemote(msg) {
				continue
			}
			h.deliver(msg)
		}
	}
}

// acceptRemote reports whether a fanned-out message came from another
// instance. Our own publishes loop back on the shared channel; those
// clients were already served by deliver.
func (h *Hub) acceptRemote(msg Message) bool {
	return msg.Origin != h.instanceID
}

// ClientCount returns the number of connected clients (optionally filtered by room).
func (h *Hub) ClientCount(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if room == "" {
		return len(h.sidRoom)
	}
	return h.roomCount[room]
}

// Handler returns the socket.io HTTP handler mounted at /socket.io.
func (h *Hub) Handler() http.Handler {
	return h.sio.ServeHandler(nil)
}
