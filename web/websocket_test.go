package web

import (
	"encoding/json"
	"testing"
	"time"
)

func TestHubPublishReachesOnlyJoinedRoom(t *testing.T) {
	hub := NewHub()

	joined := &Client{hub: hub, send: make(chan []byte, 4)}
	other := &Client{hub: hub, send: make(chan []byte, 4)}
	hub.clients[joined] = true
	hub.clients[other] = true

	hub.joinRoom(joined, "tok-a")
	hub.joinRoom(other, "tok-b")

	hub.deliver(&OverlayMessage{
		Type:  "event",
		Token: "tok-a",
		Event: "aegis-state-changed",
		Data:  map[string]interface{}{"held": true},
	})

	select {
	case raw := <-joined.send:
		var msg OverlayMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			t.Fatalf("Expected valid JSON message, got error %v", err)
		}
		if msg.Token != "tok-a" {
			t.Errorf("Expected token 'tok-a', got '%s'", msg.Token)
		}
		if msg.Event != "aegis-state-changed" {
			t.Errorf("Expected event 'aegis-state-changed', got '%s'", msg.Event)
		}
	default:
		t.Fatal("Expected joined client to receive the message")
	}

	select {
	case <-other.send:
		t.Error("Expected client in another room not to receive the message")
	default:
	}
}

func TestHubJoinSwitchesRoom(t *testing.T) {
	hub := NewHub()
	client := &Client{hub: hub, send: make(chan []byte, 4)}
	hub.clients[client] = true

	hub.joinRoom(client, "tok-a")
	hub.joinRoom(client, "tok-b")

	if hub.RoomSize("tok-a") != 0 {
		t.Errorf("Expected old room emptied, got %d clients", hub.RoomSize("tok-a"))
	}
	if hub.RoomSize("tok-b") != 1 {
		t.Errorf("Expected 1 client in new room, got %d", hub.RoomSize("tok-b"))
	}
}

func TestHubSlowClientEvicted(t *testing.T) {
	hub := NewHub()

	// 发送缓冲为 0 的客户端永远接收不过来
	slow := &Client{hub: hub, send: make(chan []byte)}
	hub.clients[slow] = true
	hub.joinRoom(slow, "tok-slow")

	hub.deliver(&OverlayMessage{Type: "event", Token: "tok-slow", Event: "paused-changed"})

	if hub.RoomSize("tok-slow") != 0 {
		t.Errorf("Expected slow client evicted from room, got %d", hub.RoomSize("tok-slow"))
	}

	hub.mu.RLock()
	_, stillRegistered := hub.clients[slow]
	hub.mu.RUnlock()
	if stillRegistered {
		t.Error("Expected slow client removed from hub")
	}
}

func TestHubPublishNonBlockingWhenFull(t *testing.T) {
	hub := NewHub()

	// 填满发布缓冲, 不启动 Run 协程
	for i := 0; i < cap(hub.publish); i++ {
		hub.publish <- &OverlayMessage{}
	}

	done := make(chan bool)
	go func() {
		hub.Publish("tok", "session-refresh", nil)
		done <- true
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Expected Publish to drop instead of blocking when full")
	}
}
