package engine

import "time"

type Options struct {
	Code        string
	Mode        Mode
	Difficulty  Difficulty
	DurationSec int
	ProblemID   string
	Creator     string
	AllowUser   string
	Policy      StartPolicy
}

func NewState(opts Options) State {
	allowed := map[string]bool{}
	if opts.AllowUser != "" {
		allowed[opts.AllowUser] = true
	}
	return State{
		Code:        opts.Code,
		Mode:        opts.Mode,
		Difficulty:  opts.Difficulty,
		DurationSec: opts.DurationSec,
		ProblemID:   opts.ProblemID,
		Creator:     opts.Creator,
		Allowed:     allowed,
		Members:     []Member{},
		Phase:       PhaseWaiting,
		Policy:      opts.Policy,
	}
}

func MemberIndex(s State, username string) int {
	for i, m := range s.Members {
		if m.Username == username {
			return i
		}
	}
	return -1
}

func Usernames(s State) []string {
	names := make([]string, len(s.Members))
	for i, m := range s.Members {
		names[i] = m.Username
	}
	return names
}

func AllFinished(s State) bool {
	if len(s.Members) == 0 {
		return false
	}
	for _, m := range s.Members {
		if !m.Finished {
			return false
		}
	}
	return true
}

func AllDoneAck(s State) bool {
	if len(s.Members) == 0 {
		return false
	}
	for _, m := range s.Members {
		if !m.DoneAck {
			return false
		}
	}
	return true
}

// TimeLeft is the whole seconds remaining once started, clamped at zero.
// ok is false while the room is still waiting.
func TimeLeft(s State, now time.Time) (int, bool) {
	if s.Phase == PhaseWaiting || s.ExpiresAt.IsZero() {
		return 0, false
	}
	left := int(s.ExpiresAt.Sub(now).Round(time.Second) / time.Second)
	if left < 0 {
		left = 0
	}
	return left, true
}

func ContainsEvent(events []Event, eventType EventType) bool {
	for _, event := range events {
		if event.Type == eventType {
			return true
		}
	}
	return false
}

func cloneMembers(members []Member) []Member {
	out := make([]Member, len(members))
	copy(out, members)
	return out
}
