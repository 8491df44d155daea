package hub

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/algo-arena/arena-server/internal/engine"
	"github.com/algo-arena/arena-server/internal/problems"
	"github.com/algo-arena/arena-server/internal/room"
	"github.com/algo-arena/arena-server/internal/stats"
)

func newTestHub(t *testing.T) *Hub {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return NewHub(ctx, problems.NewCatalog(), stats.NewMemoryStore(), engine.StartPolicy{MinMembers: 2}, zap.NewNop())
}

func TestCreateAndGetRoom(t *testing.T) {
	h := newTestHub(t)

	res := h.Create(CreateOpts{Difficulty: engine.DifficultyEasy, Creator: "alice"})
	if res.Err != nil {
		t.Fatalf("create: %v", res.Err)
	}
	if len(res.Code) != 6 {
		t.Fatalf("want 6-char code, got %q", res.Code)
	}
	if res.Code != strings.ToUpper(res.Code) {
		t.Fatalf("code must be uppercase: %q", res.Code)
	}

	if got := h.Get(res.Code); got != res.Room {
		t.Fatalf("Get returned a different room for %q", res.Code)
	}
	// Lookup is case- and whitespace-insensitive.
	if got := h.Get("  " + strings.ToLower(res.Code) + " "); got != res.Room {
		t.Fatalf("normalized lookup failed for %q", res.Code)
	}
	if got := h.Get("NOSUCH"); got != nil {
		t.Fatalf("unknown code should resolve to nil, got %v", got)
	}
}

func TestCreateDefaults(t *testing.T) {
	h := newTestHub(t)

	res := h.Create(CreateOpts{Creator: "alice"})
	if res.Err != nil {
		t.Fatalf("create with defaults: %v", res.Err)
	}

	reply := make(chan room.View, 1)
	res.Room.Inbox() <- room.GetState{Reply: reply}
	v := <-reply
	if v.State.Mode != engine.ModeCoding {
		t.Errorf("default mode: got %v", v.State.Mode)
	}
	if v.State.Difficulty != engine.DifficultyEasy {
		t.Errorf("default difficulty: got %v", v.State.Difficulty)
	}
	if v.State.DurationSec != 300 {
		t.Errorf("default duration: got %d", v.State.DurationSec)
	}
	if v.State.ProblemID == "" {
		t.Errorf("coding room must be assigned a problem")
	}
}

func TestCreateValidation(t *testing.T) {
	h := newTestHub(t)

	tests := []struct {
		name    string
		opts    CreateOpts
		wantErr error
	}{
		{"bad difficulty", CreateOpts{Difficulty: "impossible"}, ErrInvalidDifficulty},
		{"bad duration", CreateOpts{Difficulty: engine.DifficultyEasy, DurationSec: 42}, ErrInvalidDuration},
		{"duration 600 ok", CreateOpts{Difficulty: engine.DifficultyMedium, DurationSec: 600}, nil},
		{"duration 900 ok", CreateOpts{Difficulty: engine.DifficultyHard, DurationSec: 900}, nil},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			res := h.Create(tc.opts)
			if !errors.Is(res.Err, tc.wantErr) {
				t.Fatalf("want %v, got %v", tc.wantErr, res.Err)
			}
		})
	}
}

func TestTriviaRoomHasNoProblem(t *testing.T) {
	h := newTestHub(t)

	res := h.Create(CreateOpts{Mode: engine.ModeTrivia, Creator: "alice"})
	if res.Err != nil {
		t.Fatalf("create trivia room: %v", res.Err)
	}

	reply := make(chan room.View, 1)
	res.Room.Inbox() <- room.GetState{Reply: reply}
	if v := <-reply; v.State.ProblemID != "" {
		t.Fatalf("trivia room should not carry a coding problem, got %q", v.State.ProblemID)
	}
}

func TestInviteOnlyRoomCarriesAllowList(t *testing.T) {
	h := newTestHub(t)

	res := h.Create(CreateOpts{Difficulty: engine.DifficultyEasy, Creator: "alice", AllowUser: "bob"})
	if res.Err != nil {
		t.Fatalf("create: %v", res.Err)
	}

	reply := make(chan room.View, 1)
	res.Room.Inbox() <- room.GetState{Reply: reply}
	v := <-reply
	if !v.State.Allowed["bob"] {
		t.Fatalf("invitee missing from allow list: %+v", v.State.Allowed)
	}
}

func TestClosedRoomEvictedFromHub(t *testing.T) {
	oldGrace := room.WaitingGrace
	room.WaitingGrace = 20 * time.Millisecond
	t.Cleanup(func() { room.WaitingGrace = oldGrace })

	h := newTestHub(t)

	res := h.Create(CreateOpts{Difficulty: engine.DifficultyEasy, Creator: "alice"})
	if res.Err != nil {
		t.Fatalf("create: %v", res.Err)
	}

	// Join and leave; once the grace window passes, the empty waiting room
	// closes itself and reports back to the hub.
	joinReply := make(chan room.JoinResult, 1)
	res.Room.Inbox() <- room.Join{Username: "alice", ConnID: "c1", Outbox: make(chan room.Outbound, 8), Reply: joinReply}
	<-joinReply
	res.Room.Inbox() <- room.Leave{Username: "alice", ConnID: "c1"}

	deadline := time.After(2 * time.Second)
	for h.Get(res.Code) != nil {
		select {
		case <-deadline:
			t.Fatalf("closed room %q was never evicted", res.Code)
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestGenerateCodeAlphabet(t *testing.T) {
	for i := 0; i < 50; i++ {
		code, err := GenerateCode()
		if err != nil {
			t.Fatalf("generate: %v", err)
		}
		if len(code) != 6 {
			t.Fatalf("want 6 chars, got %q", code)
		}
		for _, c := range code {
			if !strings.ContainsRune("ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789", c) {
				t.Fatalf("character %q outside the code alphabet in %q", c, code)
			}
		}
	}
}

func TestNormalizeCode(t *testing.T) {
	if got := NormalizeCode("  ab12cd \n"); got != "AB12CD" {
		t.Fatalf("got %q", got)
	}
}
