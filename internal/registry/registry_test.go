package registry

import (
	"testing"

	"go.uber.org/zap"

	"github.com/algo-arena/arena-server/internal/room"
)

func TestNotifyInviteDeliversToLiveConnections(t *testing.T) {
	r := New(zap.NewNop())

	out1 := make(chan room.Outbound, 4)
	out2 := make(chan room.Outbound, 4)
	r.Register("bob", "c1", out1)
	r.Register("bob", "c2", out2)

	if !r.NotifyInvite("bob", "ABC123", "alice", false) {
		t.Fatalf("expected delivery to an online target")
	}

	for _, ch := range []chan room.Outbound{out1, out2} {
		select {
		case got := <-ch:
			if got.Event != "friendInvited" {
				t.Fatalf("want friendInvited, got %q", got.Event)
			}
			payload := got.Payload.(map[string]any)
			if payload["roomCode"] != "ABC123" || payload["inviterUsername"] != "alice" {
				t.Fatalf("bad invite payload: %+v", payload)
			}
		default:
			t.Fatalf("connection never received the invite")
		}
	}
}

func TestNotifyInviteTriviaEvent(t *testing.T) {
	r := New(zap.NewNop())

	out := make(chan room.Outbound, 4)
	r.Register("bob", "c1", out)
	r.NotifyInvite("bob", "TRIV01", "alice", true)

	if got := <-out; got.Event != "friendInvitedTrivia" {
		t.Fatalf("want friendInvitedTrivia, got %q", got.Event)
	}
}

func TestNotifyInviteOfflineTarget(t *testing.T) {
	r := New(zap.NewNop())
	if r.NotifyInvite("ghost", "ABC123", "alice", false) {
		t.Fatalf("offline target should not count as delivered")
	}
}

func TestNotifyInviteDeduplicatesPerRoom(t *testing.T) {
	r := New(zap.NewNop())

	out := make(chan room.Outbound, 4)
	r.Register("bob", "c1", out)

	if !r.NotifyInvite("bob", "ABC123", "alice", false) {
		t.Fatalf("first invite should be delivered")
	}
	if r.NotifyInvite("bob", "ABC123", "alice", false) {
		t.Fatalf("repeat invite for the same room must be suppressed")
	}
	// A different room is a different invitation.
	if !r.NotifyInvite("bob", "XYZ789", "alice", false) {
		t.Fatalf("invite for a different room should go through")
	}
	if len(out) != 2 {
		t.Fatalf("want 2 delivered invites, got %d", len(out))
	}
}

func TestUnregisterDropsConnection(t *testing.T) {
	r := New(zap.NewNop())

	out := make(chan room.Outbound, 4)
	r.Register("bob", "c1", out)
	if r.Connections("bob") != 1 {
		t.Fatalf("want 1 connection")
	}
	r.Unregister("bob", "c1")
	if r.Connections("bob") != 0 {
		t.Fatalf("want 0 connections after unregister")
	}
	if r.NotifyInvite("bob", "ABC123", "alice", false) {
		t.Fatalf("unregistered target should be treated as offline")
	}
}

func TestNotifyInviteSkipsFullOutbox(t *testing.T) {
	r := New(zap.NewNop())

	// Zero-capacity outbox: the non-blocking send must not deadlock, and
	// nothing counts as delivered.
	r.Register("bob", "c1", make(chan room.Outbound))
	if r.NotifyInvite("bob", "ABC123", "alice", false) {
		t.Fatalf("send to a full outbox should not report delivery")
	}
}
