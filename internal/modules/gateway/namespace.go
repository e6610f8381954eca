package gateway

import (
	"strings"

	socketio "github.com/zishang520/socket.io/v2/socket"
	"go.uber.org/zap"
)

func (h *Hub) registerNamespace() {
	ns := h.sio.Of(namespaceNotes, nil)
	_ = ns.On("connection", func(args ...any) {
		client, ok := args[0].(*socketio.Socket)
		if !ok {
			return
		}

		token := normalizeToken(extractToken(client))
		userID := ""
		if token != "" && h.validateToken != nil {
			userID, ok = h.validateToken(token)
		} else {
			ok = false
		}
		if !ok || userID == "" {
			_ = client.Emit("message", h.messageFormat("AUTH_FAILED", "auth failed"))
			client.Disconnect(true)
			return
		}

		sid := string(client.Id())
		room := RoomForUser(userID)
		client.Join(socketio.Room(room))
		h.register <- clientMeta{sid: sid, room: room}
		_ = client.Emit("message", h.messageFormat("GATEWAY_CONNECT", "WebSocket connected"))
		if h.logger != nil {
			h.logger.Debug("gateway client connected", zap.String("sid", sid), zap.String("user", userID))
		}

		_ = client.On("disconnect", func(_ ...any) {
			h.unregister <- clientMeta{sid: sid, room: room}
		})
	})
}

func extractToken(client *socketio.Socket) string {
	handshake := client.Handshake()
	if handshake == nil {
		return ""
	}
	if token := firstValueFromMultiMap(handshake.Query, "token"); token != "" {
		return token
	}
	if token := firstValueFromMultiMap(handshake.Headers, "authorization"); token != "" {
		return token
	}
	return ""
}

func firstValueFromMultiMap(values map[string][]string, key string) string {
	if len(values) == 0 {
		return ""
	}
	for k, list := range values {
		if !strings.EqualFold(strings.TrimSpace(k), key) || len(list) == 0 {
			continue
		}
		v := strings.TrimSpace(list[0])
		if v != "" {
			return v
		}
	}
	return ""
}

func normalizeToken(raw string) string {
	token := strings.TrimSpace(raw)
	if token == "" {
		return ""
	}
	if strings.HasPrefix(strings.ToLower(token), "bearer ") {
		return strings.TrimSpace(token[7:])
	}
	return token
}
