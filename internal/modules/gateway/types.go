package gateway

import (
	"sync"

	pkgredis "github.com/quiknotes/core/internal/pkg/redis"
	socketio "github.com/zishang520/socket.io/v2/socket"
	"go.uber.org/zap"
)

const (
	namespaceNotes = "/notes"
	redisChanNotes = "qn:gateway:notes"

	// EventNotesChanged carries the refreshed collection view.
	EventNotesChanged = "notes-changed"
)

// Message is the envelope used by hub broadcasts and Redis fan-out.
// Origin carries the publishing instance's id so subscribers can drop
// their own messages; local clients already got them directly.
type Message struct {
	Event   string      `json:"event"`
	Payload interface{} `json:"payload"`
	Room    string      `json:"room,omitempty"`
	Origin  string      `json:"origin,omitempty"`
}

type gatewayPayload struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type clientMeta struct {
	sid  string
	room string
}

// TokenValidator resolves a handshake token to a user id. It returns
// false when the token is missing, malformed, or revoked.
type TokenValidator func(token string) (userID string, ok bool)

// Hub manages the /notes socket.io namespace and cluster fan-out.
// Each signed-in user gets a private room; collection updates are only
// ever delivered to their owner.
type Hub struct {
	mu sync.RWMutex

	instanceID string

	sidRoom   map[string]string
	roomCount map[string]int

	broadcast  chan Message
	register   chan clientMeta
	unregister chan clientMeta

	rc            *pkgredis.Client
	logger        *zap.Logger
	sio           *socketio.Server
	validateToken TokenValidator
}
