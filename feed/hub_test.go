package feed

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub(nil)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)
	return hub
}

func TestHub_PublishReachesAdminRoom(t *testing.T) {
	hub := startHub(t)
	admin := NewClient(hub, nil, AdminRoom)
	other := NewClient(hub, nil, "other")
	hub.Register <- admin
	hub.Register <- other
	require.Eventually(t, func() bool { return hub.ClientCount(AdminRoom) == 1 }, time.Second, 5*time.Millisecond)

	hub.Publish(EventTeamRegistered, map[string]any{"teamID": 1001})

	select {
	case raw := <-admin.Send:
		var msg struct {
			Type    string         `json:"type"`
			Payload map[string]any `json:"payload"`
			RoomID  string         `json:"room_id"`
		}
		require.NoError(t, json.Unmarshal(raw, &msg))
		assert.Equal(t, EventTeamRegistered, msg.Type)
		assert.Equal(t, AdminRoom, msg.RoomID)
		assert.EqualValues(t, 1001, msg.Payload["teamID"])
	case <-time.After(time.Second):
		t.Fatal("admin client did not receive the event")
	}
	assert.Empty(t, other.Send)
}

func TestHub_UnregisterClosesSend(t *testing.T) {
	hub := startHub(t)
	client := NewClient(hub, nil, AdminRoom)
	hub.Register <- client
	hub.Unregister <- client

	require.Eventually(t, func() bool { return hub.ClientCount(AdminRoom) == 0 }, time.Second, 5*time.Millisecond)
	_, ok := <-client.Send
	assert.False(t, ok)

	// Повторная отправка в закрытый клиент не паникует.
	assert.False(t, client.trySend([]byte("x")))
}

func TestHub_SlowClientIsSkipped(t *testing.T) {
	hub := startHub(t)
	client := NewClient(hub, nil, AdminRoom)
	hub.Register <- client
	require.Eventually(t, func() bool { return hub.ClientCount(AdminRoom) == 1 }, time.Second, 5*time.Millisecond)

	for i := 0; i < sendBuffer+10; i++ {
		hub.Publish(EventTeamStatusChanged, i)
	}
	assert.Len(t, client.Send, sendBuffer)
}

func TestHub_RunStopsOnCancel(t *testing.T) {
	hub := NewHub(nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(done)
	}()
	client := NewClient(hub, nil, AdminRoom)
	hub.Register <- client
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("hub did not stop")
	}
	_, ok := <-client.Send
	assert.False(t, ok)
}

func TestHub_JoinAfterStop(t *testing.T) {
	hub := NewHub(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	hub.Run(ctx)

	assert.False(t, hub.Join(NewClient(hub, nil, AdminRoom)))
}
