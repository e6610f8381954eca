package gateway

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeToken(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"   ", ""},
		{"abc123", "abc123"},
		{"Bearer abc123", "abc123"},
		{"bearer abc123", "abc123"},
		{"  Bearer   abc123  ", "abc123"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, normalizeToken(tt.in), "input %q", tt.in)
	}
}

func TestFirstValueFromMultiMap(t *testing.T) {
	values := map[string][]string{
		"Authorization": {"Bearer tok"},
		"empty":         {},
		"blank":         {"   "},
	}

	assert.Equal(t, "Bearer tok", firstValueFromMultiMap(values, "authorization"))
	assert.Equal(t, "", firstValueFromMultiMap(values, "empty"))
	assert.Equal(t, "", firstValueFromMultiMap(values, "blank"))
	assert.Equal(t, "", firstValueFromMultiMap(values, "missing"))
	assert.Equal(t, "", firstValueFromMultiMap(nil, "authorization"))
}

func TestRoomForUser(t *testing.T) {
	assert.Equal(t, "user:alice", RoomForUser("alice"))
}

func TestHubDropsOwnFanOut(t *testing.T) {
	h := NewHub(nil, nil, nil)

	// A message looping back from the shared channel with our own origin
	// was already delivered locally and must not be delivered again.
	assert.False(t, h.acceptRemote(Message{Event: EventNotesChanged, Origin: h.instanceID}))
	assert.True(t, h.acceptRemote(Message{Event: EventNotesChanged, Origin: "some-other-instance"}))
}

func TestHubClientCount(t *testing.T) {
	h := NewHub(nil, nil, nil)

	h.registerClient(clientMeta{sid: "s1", room: "user:alice"})
	h.registerClient(clientMeta{sid: "s2", room: "user:alice"})
	h.registerClient(clientMeta{sid: "s3", room: "user:bob"})

	assert.Equal(t, 3, h.ClientCount(""))
	assert.Equal(t, 2, h.ClientCount("user:alice"))
	assert.Equal(t, 1, h.ClientCount("user:bob"))

	// Re-registering the same sid in the same room is a no-op.
	h.registerClient(clientMeta{sid: "s1", room: "user:alice"})
	assert.Equal(t, 2, h.ClientCount("user:alice"))

	h.unregisterClient(clientMeta{sid: "s2", room: "user:alice"})
	assert.Equal(t, 1, h.ClientCount("user:alice"))

	h.unregisterClient(clientMeta{sid: "unknown"})
	assert.Equal(t, 2, h.ClientCount(""))
}
