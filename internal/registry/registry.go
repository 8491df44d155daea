package registry

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/algo-arena/arena-server/internal/room"
)

// inviteTTL bounds how long a (room, target) pair suppresses duplicate
// invitation sends.
const inviteTTL = 5 * time.Minute

type inviteKey struct {
	RoomCode string
	Target   string
}

// Registry maps authenticated identities to their live connection outboxes
// and relays out-of-room invitations to them. Delivery is best-effort and
// at-most-once: an identity with no live connection simply misses the
// invite.
type Registry struct {
	mu      sync.Mutex
	conns   map[string]map[string]chan room.Outbound // username -> connID -> outbox
	invites map[inviteKey]time.Time
	logger  *zap.Logger
}

func New(logger *zap.Logger) *Registry {
	return &Registry{
		conns:   make(map[string]map[string]chan room.Outbound),
		invites: make(map[inviteKey]time.Time),
		logger:  logger,
	}
}

func (r *Registry) Register(username, connID string, outbox chan room.Outbound) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.conns[username] == nil {
		r.conns[username] = make(map[string]chan room.Outbound)
	}
	r.conns[username][connID] = outbox
}

func (r *Registry) Unregister(username, connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if set := r.conns[username]; set != nil {
		delete(set, connID)
		if len(set) == 0 {
			delete(r.conns, username)
		}
	}
}

// Connections reports how many live connections an identity has.
func (r *Registry) Connections(username string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.conns[username])
}

// NotifyInvite pushes a challenge notification to every live connection of
// the target. A still-live invitation for the same (room, target) pair is
// not re-sent; the client de-duplicates by room code anyway, this just
// avoids the noise. Returns whether anything was delivered.
func (r *Registry) NotifyInvite(target, roomCode, inviter string, trivia bool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := inviteKey{RoomCode: roomCode, Target: target}
	if sent, ok := r.invites[key]; ok && time.Since(sent) < inviteTTL {
		return false
	}

	set := r.conns[target]
	if len(set) == 0 {
		r.logger.Info("invite dropped, target offline",
			zap.String("target", target), zap.String("roomCode", roomCode))
		return false
	}

	event := "friendInvited"
	if trivia {
		event = "friendInvitedTrivia"
	}
	out := room.Outbound{Event: event, Payload: map[string]any{
		"roomCode":        roomCode,
		"inviterUsername": inviter,
	}}

	delivered := false
	for _, outbox := range set {
		select {
		case outbox <- out:
			delivered = true
		default:
		}
	}
	if delivered {
		r.invites[key] = time.Now()
		r.pruneInvitesLocked()
	}
	return delivered
}

func (r *Registry) pruneInvitesLocked() {
	for key, sent := range r.invites {
		if time.Since(sent) >= inviteTTL {
			delete(r.invites, key)
		}
	}
}
