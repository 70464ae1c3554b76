package websocket

import (
	"encoding/json"
	"testing"
	"time"
)

func startHub(t *testing.T) *Hub {
	t.Helper()
	h := NewHub()
	go h.Run()
	return h
}

func connect(t *testing.T, h *Hub, userID uint) *Client {
	t.Helper()
	client := h.newClient(nil, userID)
	h.register <- client
	waitForClients(t, h, func(n int) bool { return n > 0 })
	return client
}

func waitForClients(t *testing.T, h *Hub, ok func(int) bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if ok(h.GetClientCount()) {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("hub never reached expected client count, have %d", h.GetClientCount())
}

func receive(t *testing.T, client *Client) map[string]interface{} {
	t.Helper()
	select {
	case raw := <-client.send:
		var msg map[string]interface{}
		if err := json.Unmarshal(raw, &msg); err != nil {
			t.Fatalf("message is not JSON: %v", err)
		}
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("no message delivered")
	}
	return nil
}

func assertSilent(t *testing.T, client *Client) {
	t.Helper()
	select {
	case raw := <-client.send:
		t.Fatalf("unexpected message: %s", raw)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestBroadcastToUserTargetsOnlyThatUser(t *testing.T) {
	h := startHub(t)
	alice := connect(t, h, 7)
	bob := connect(t, h, 8)
	waitForClients(t, h, func(n int) bool { return n == 2 })

	h.BroadcastToUser(7, map[string]interface{}{"type": "notification", "seq": 1})

	msg := receive(t, alice)
	if msg["type"] != "notification" {
		t.Errorf("type = %v", msg["type"])
	}
	assertSilent(t, bob)
}

func TestBroadcastToUserReachesEverySessionOnce(t *testing.T) {
	h := startHub(t)
	first := connect(t, h, 7)
	second := connect(t, h, 7)
	waitForClients(t, h, func(n int) bool { return n == 2 })

	h.BroadcastToUser(7, map[string]interface{}{"type": "ping"})

	receive(t, first)
	receive(t, second)
	assertSilent(t, first)
	assertSilent(t, second)
}

func TestOrganizationGroupMembership(t *testing.T) {
	h := startHub(t)
	member := connect(t, h, 7)
	outsider := connect(t, h, 8)
	waitForClients(t, h, func(n int) bool { return n == 2 })

	h.JoinOrganization(member, 1)
	h.BroadcastToOrganization(1, map[string]interface{}{"type": "schedule_update"})

	msg := receive(t, member)
	if msg["type"] != "schedule_update" {
		t.Errorf("type = %v", msg["type"])
	}
	assertSilent(t, outsider)

	h.LeaveOrganization(member, 1)
	h.BroadcastToOrganization(1, map[string]interface{}{"type": "schedule_update"})
	assertSilent(t, member)
}

func TestJoinCommandMessage(t *testing.T) {
	h := startHub(t)
	client := connect(t, h, 7)

	h.handleCommand(client, []byte(`{"action":"join_organization","organization_id":3}`))
	h.BroadcastToOrganization(3, map[string]interface{}{"type": "schedule_update"})
	receive(t, client)

	h.handleCommand(client, []byte(`{"action":"leave_organization","organization_id":3}`))
	h.BroadcastToOrganization(3, map[string]interface{}{"type": "schedule_update"})
	assertSilent(t, client)

	// Garbage input is ignored
	h.handleCommand(client, []byte(`not json`))
}

func TestUnregisterClosesSendChannel(t *testing.T) {
	h := startHub(t)
	client := connect(t, h, 7)

	h.unregister <- client
	waitForClients(t, h, func(n int) bool { return n == 0 })

	if _, open := <-client.send; open {
		t.Error("send channel still open after unregister")
	}

	// Broadcasts after disconnect go nowhere and must not panic
	h.BroadcastToUser(7, map[string]interface{}{"type": "ping"})
}

func TestSlowClientIsDropped(t *testing.T) {
	h := startHub(t)
	client := connect(t, h, 7)

	// Fill the buffered send channel so the next broadcast cannot queue
	for i := 0; i < cap(client.send); i++ {
		client.send <- []byte("x")
	}

	h.BroadcastToUser(7, map[string]interface{}{"type": "overflow"})

	if n := h.GetClientCount(); n != 0 {
		t.Errorf("slow client still registered, count = %d", n)
	}
}
