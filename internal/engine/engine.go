package engine

import (
	"errors"
	"sort"
	"time"
)

var ErrRoomClosed = errors.New("room closed")
var ErrAlreadyStarted = errors.New("room already started")
var ErrNotAllowed = errors.New("not allowed to join this room")
var ErrInvalidRoomState = errors.New("action not valid in current room state")
var ErrUnknownMember = errors.New("unknown member")
var ErrAlreadySubmitted = errors.New("trivia already submitted")
var ErrUnsupportedCommand = errors.New("unsupported command")

type Phase string

const (
	PhaseWaiting  Phase = "waiting"
	PhaseStarted  Phase = "started"
	PhaseFinished Phase = "finished"
	PhaseClosed   Phase = "closed"
)

type Mode string

const (
	ModeCoding Mode = "coding"
	ModeTrivia Mode = "trivia"
)

type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Member is an identity participating in the room, not a transport
// connection. Connection refs live in the room actor.
type Member struct {
	Username       string
	Score          int
	Finished       bool
	FinishedAt     time.Time
	CorrectCount   int
	TotalQuestions int
	Submitted      bool // trivia answers handed in
	DoneAck        bool // trivia UI teardown acknowledged
}

type StartPolicy struct {
	// MinMembers is the member count that starts an open room.
	// Invite-only rooms start when the creator and an invitee are present.
	MinMembers int
}

type State struct {
	Code        string
	Mode        Mode
	Difficulty  Difficulty
	DurationSec int
	ProblemID   string
	Creator     string
	Allowed     map[string]bool // empty = open to anyone with the code
	Members     []Member        // join order
	Phase       Phase
	StartedAt   time.Time
	ExpiresAt   time.Time
	Policy      StartPolicy
}

type CommandType string

const (
	CmdJoin         CommandType = "Join"
	CmdLeave        CommandType = "Leave"
	CmdUpdateScore  CommandType = "UpdateScore"
	CmdFinish       CommandType = "Finish"
	CmdSubmitTrivia CommandType = "SubmitTrivia"
	CmdTriviaDone   CommandType = "TriviaDone"
	CmdExpire       CommandType = "Expire"
	CmdClose        CommandType = "Close"
)

type Command struct {
	Type           CommandType
	Username       string
	Score          int
	CorrectCount   int
	TotalQuestions int
}

type EventType string

const (
	EvtUserJoined   EventType = "UserJoined"
	EvtMemberLeft   EventType = "MemberLeft"
	EvtStarted      EventType = "Started"
	EvtScoreChanged EventType = "ScoreChanged"
	EvtFinalized    EventType = "Finalized"
	EvtClosed       EventType = "Closed"
)

type Event struct {
	Type     EventType
	Username string
	Score    int
}

// Apply runs one command against the room state. It returns the events the
// room actor should broadcast plus the new state; on error the state is
// returned unchanged. now is injected so start/expiry/finish stay testable.
func Apply(s State, cmd Command, now time.Time) ([]Event, State, error) {
	switch cmd.Type {
	case CmdJoin:
		return applyJoin(s, cmd, now)

	case CmdLeave:
		return applyLeave(s, cmd)

	case CmdUpdateScore:
		if s.Phase != PhaseStarted {
			return nil, s, ErrInvalidRoomState
		}
		i := MemberIndex(s, cmd.Username)
		if i < 0 {
			return nil, s, ErrUnknownMember
		}
		score := cmd.Score
		if score < 0 {
			score = 0
		}
		ns := s
		ns.Members = cloneMembers(s.Members)
		// Latest submission replaces the previous score, it never accumulates.
		ns.Members[i].Score = score
		return []Event{{Type: EvtScoreChanged, Username: cmd.Username, Score: score}}, ns, nil

	case CmdFinish:
		if s.Phase != PhaseStarted {
			return nil, s, ErrInvalidRoomState
		}
		i := MemberIndex(s, cmd.Username)
		if i < 0 {
			return nil, s, ErrUnknownMember
		}
		if s.Members[i].Finished {
			return nil, s, nil
		}
		ns := s
		ns.Members = cloneMembers(s.Members)
		ns.Members[i].Finished = true
		ns.Members[i].FinishedAt = now
		if AllFinished(ns) {
			ns.Phase = PhaseFinished
			return []Event{{Type: EvtFinalized}}, ns, nil
		}
		return nil, ns, nil

	case CmdSubmitTrivia:
		if s.Phase != PhaseStarted {
			return nil, s, ErrInvalidRoomState
		}
		i := MemberIndex(s, cmd.Username)
		if i < 0 {
			return nil, s, ErrUnknownMember
		}
		if s.Members[i].Submitted {
			return nil, s, ErrAlreadySubmitted
		}
		score := TriviaBaseScore(cmd.CorrectCount, cmd.TotalQuestions)
		ns := s
		ns.Members = cloneMembers(s.Members)
		ns.Members[i].Submitted = true
		ns.Members[i].CorrectCount = cmd.CorrectCount
		ns.Members[i].TotalQuestions = cmd.TotalQuestions
		ns.Members[i].Score = score
		ns.Members[i].Finished = true
		ns.Members[i].FinishedAt = now
		events := []Event{{Type: EvtScoreChanged, Username: cmd.Username, Score: score}}
		if AllFinished(ns) {
			ns.Phase = PhaseFinished
			events = append(events, Event{Type: EvtFinalized})
		}
		return events, ns, nil

	case CmdTriviaDone:
		if s.Phase != PhaseStarted && s.Phase != PhaseFinished {
			return nil, s, ErrInvalidRoomState
		}
		i := MemberIndex(s, cmd.Username)
		if i < 0 {
			return nil, s, ErrUnknownMember
		}
		ns := s
		ns.Members = cloneMembers(s.Members)
		ns.Members[i].DoneAck = true
		return nil, ns, nil

	case CmdExpire:
		// Timer expiry finalizes regardless of per-member finished flags.
		if s.Phase != PhaseStarted {
			return nil, s, ErrInvalidRoomState
		}
		ns := s
		ns.Phase = PhaseFinished
		return []Event{{Type: EvtFinalized}}, ns, nil

	case CmdClose:
		if s.Phase == PhaseClosed {
			return nil, s, nil
		}
		ns := s
		ns.Phase = PhaseClosed
		return []Event{{Type: EvtClosed}}, ns, nil

	default:
		return nil, s, ErrUnsupportedCommand
	}
}

func applyJoin(s State, cmd Command, now time.Time) ([]Event, State, error) {
	if s.Phase == PhaseClosed {
		return nil, s, ErrRoomClosed
	}
	if MemberIndex(s, cmd.Username) >= 0 {
		// Re-join on a new connection: membership and score stand, no
		// side effects re-run.
		return nil, s, nil
	}
	if s.Phase != PhaseWaiting {
		return nil, s, ErrAlreadyStarted
	}
	if len(s.Allowed) > 0 && cmd.Username != s.Creator && !s.Allowed[cmd.Username] {
		return nil, s, ErrNotAllowed
	}

	ns := s
	ns.Members = append(cloneMembers(s.Members), Member{Username: cmd.Username})
	events := []Event{{Type: EvtUserJoined, Username: cmd.Username}}

	if startConditionMet(ns) {
		ns.Phase = PhaseStarted
		ns.StartedAt = now
		ns.ExpiresAt = now.Add(time.Duration(ns.DurationSec) * time.Second)
		events = append(events, Event{Type: EvtStarted})
	}
	return events, ns, nil
}

func applyLeave(s State, cmd Command) ([]Event, State, error) {
	i := MemberIndex(s, cmd.Username)
	if i < 0 {
		return nil, s, nil
	}
	if s.Phase != PhaseWaiting {
		// After start the membership (and score) persists; only the
		// transport connection goes away.
		return nil, s, nil
	}
	ns := s
	members := cloneMembers(s.Members)
	ns.Members = append(members[:i], members[i+1:]...)
	return []Event{{Type: EvtMemberLeft, Username: cmd.Username}}, ns, nil
}

func startConditionMet(s State) bool {
	if len(s.Allowed) > 0 {
		creator, invitee := false, false
		for _, m := range s.Members {
			if m.Username == s.Creator {
				creator = true
			} else if s.Allowed[m.Username] {
				invitee = true
			}
		}
		return creator && invitee
	}
	min := s.Policy.MinMembers
	if min < 2 {
		min = 2
	}
	return len(s.Members) >= min
}

// TriviaBaseScore is the per-member score known at submission time. The
// speed bonus is cross-member and only appears in Results.
func TriviaBaseScore(correct, total int) int {
	if correct < 0 {
		correct = 0
	}
	score := correct * 10
	if total > 0 && correct == total {
		score += 10
	}
	return score
}

type Result struct {
	Username       string
	Score          int
	CorrectCount   int
	TotalQuestions int
	Won            bool
	IsTie          bool
}

// Results computes the final leaderboard: descending score, ties broken by
// join order. For trivia rooms the speed bonus goes to the earliest
// finisher among the top scorers before sorting.
func Results(s State) []Result {
	results := make([]Result, len(s.Members))
	order := make(map[string]int, len(s.Members))
	for i, m := range s.Members {
		results[i] = Result{
			Username:       m.Username,
			Score:          m.Score,
			CorrectCount:   m.CorrectCount,
			TotalQuestions: m.TotalQuestions,
		}
		order[m.Username] = i
	}

	if s.Mode == ModeTrivia {
		if i := speedBonusIndex(s); i >= 0 {
			results[i].Score += 10
		}
	}

	sort.SliceStable(results, func(a, b int) bool {
		if results[a].Score != results[b].Score {
			return results[a].Score > results[b].Score
		}
		return order[results[a].Username] < order[results[b].Username]
	})

	if len(results) == 0 {
		return results
	}
	top := results[0].Score
	ties := 0
	for _, r := range results {
		if r.Score == top {
			ties++
		}
	}
	isTie := ties > 1
	for i := range results {
		results[i].IsTie = isTie
		results[i].Won = results[i].Score == top && !isTie
	}
	return results
}

// speedBonusIndex picks the member awarded the trivia speed bonus: among
// submitters holding the highest score, the earliest FinishedAt.
func speedBonusIndex(s State) int {
	best := -1
	top := 0
	for _, m := range s.Members {
		if m.Submitted && m.Score > top {
			top = m.Score
		}
	}
	for i, m := range s.Members {
		if !m.Submitted || m.Score != top {
			continue
		}
		if best < 0 || m.FinishedAt.Before(s.Members[best].FinishedAt) {
			best = i
		}
	}
	return best
}
