package room

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/algo-arena/arena-server/internal/engine"
	"github.com/algo-arena/arena-server/internal/stats"
)

// closeGrace is how long a finished room stays readable before eviction.
const closeGrace = 30 * time.Second

// WaitingGrace is how long an empty waiting room lingers before closing,
// so a momentarily disconnected creator can come back to a live room and
// an outstanding invitation stays answerable. Variable so tests can
// shorten it.
var WaitingGrace = 30 * time.Second

// Outbound is one server->client event headed for a connection's writer.
// ID is the ack correlation id; room broadcasts leave it zero.
type Outbound struct {
	ID      int64
	Event   string
	Payload any
}

type Msg interface{ isRoomMsg() }

type Join struct {
	Username string
	ConnID   string
	Outbox   chan Outbound
	Reply    chan JoinResult
}

func (Join) isRoomMsg() {}

type Leave struct {
	Username string
	ConnID   string
}

func (Leave) isRoomMsg() {}

type UpdateScore struct {
	Username string
	Score    int
}

func (UpdateScore) isRoomMsg() {}

type Finish struct{ Username string }

func (Finish) isRoomMsg() {}

type SubmitTrivia struct {
	Username       string
	CorrectCount   int
	TotalQuestions int
	Reply          chan TriviaAck
}

func (SubmitTrivia) isRoomMsg() {}

type TriviaDone struct{ Username string }

func (TriviaDone) isRoomMsg() {}

type GetState struct {
	Reply chan View
}

func (GetState) isRoomMsg() {}

type Shutdown struct{}

func (Shutdown) isRoomMsg() {}

type closeNow struct{}

func (closeNow) isRoomMsg() {}

type JoinResult struct {
	Err      error
	Members  []string
	TimeLeft *int
	Started  bool
}

type TriviaAck struct {
	Err   error
	Score int
}

// View reflects room internals without data races; used by REST reads and
// tests.
type View struct {
	State    engine.State
	NumConns int
}

type Room struct {
	inbox    chan Msg
	state    engine.State
	conns    map[string]map[string]chan Outbound // username -> connID -> outbox
	tickC    <-chan time.Time
	ticker   *time.Ticker
	recorder stats.Recorder
	logger   *zap.Logger
	onClose  func(code string)
	ctx      context.Context
	cancel   context.CancelFunc
}

func NewRoom(parent context.Context, initial engine.State, recorder stats.Recorder, logger *zap.Logger, onClose func(code string)) *Room {
	ctx, cancel := context.WithCancel(parent)
	r := &Room{
		inbox:    make(chan Msg, 64),
		state:    initial,
		conns:    make(map[string]map[string]chan Outbound),
		recorder: recorder,
		logger:   logger.With(zap.String("room", initial.Code)),
		onClose:  onClose,
		ctx:      ctx,
		cancel:   cancel,
	}
	go r.loop()
	return r
}

func (r *Room) Inbox() chan<- Msg { return r.inbox }

// Done is closed once the actor has shut down. Senders must select on it
// alongside the inbox send and the reply read; a round-trip to a closed
// room must never hang the caller.
func (r *Room) Done() <-chan struct{} { return r.ctx.Done() }

func (r *Room) loop() {
	for {
		select {
		case <-r.ctx.Done():
			r.drainInbox()
			return

		case now := <-r.tickC:
			r.handleTick(now)

		case m := <-r.inbox:
			switch msg := m.(type) {
			case Join:
				r.handleJoin(msg)
			case Leave:
				r.handleLeave(msg)
			case UpdateScore:
				r.handleUpdateScore(msg)
			case Finish:
				r.handleFinish(msg)
			case SubmitTrivia:
				r.handleSubmitTrivia(msg)
			case TriviaDone:
				r.handleTriviaDone(msg)
			case GetState:
				msg.Reply <- View{State: r.state, NumConns: r.numConns()}
			case closeNow:
				// The grace timer fired, but a waiting room that refilled
				// in the meantime stays open.
				if r.state.Phase == engine.PhaseWaiting && len(r.state.Members) > 0 {
					continue
				}
				r.closeRoom()
				r.drainInbox()
				return
			case Shutdown:
				r.closeRoom()
				r.drainInbox()
				return
			}
		}
	}
}

// drainInbox answers whatever was queued behind the shutdown so no caller
// blocks on a reply that will never come. Reply channels are buffered, so
// these sends cannot block either.
func (r *Room) drainInbox() {
	for {
		select {
		case m := <-r.inbox:
			switch msg := m.(type) {
			case Join:
				msg.Reply <- JoinResult{Err: engine.ErrRoomClosed}
			case SubmitTrivia:
				msg.Reply <- TriviaAck{Err: engine.ErrRoomClosed}
			case GetState:
				msg.Reply <- View{State: r.state}
			}
		default:
			return
		}
	}
}

func (r *Room) handleJoin(msg Join) {
	now := time.Now()
	events, ns, err := engine.Apply(r.state, engine.Command{Type: engine.CmdJoin, Username: msg.Username}, now)
	if err != nil {
		msg.Reply <- JoinResult{Err: err}
		return
	}
	r.state = ns

	if r.conns[msg.Username] == nil {
		r.conns[msg.Username] = make(map[string]chan Outbound)
	}
	r.conns[msg.Username][msg.ConnID] = msg.Outbox

	res := JoinResult{
		Members: engine.Usernames(r.state),
		Started: r.state.Phase != engine.PhaseWaiting,
	}
	if left, ok := engine.TimeLeft(r.state, now); ok {
		res.TimeLeft = &left
	}
	msg.Reply <- res

	for _, evt := range events {
		switch evt.Type {
		case engine.EvtUserJoined:
			r.logger.Info("member joined", zap.String("username", evt.Username))
			r.broadcastExcept(msg.Username, "userJoined", map[string]any{"username": evt.Username})
			r.broadcast("membersUpdated", r.memberDTOs())
		case engine.EvtStarted:
			r.start(now)
		}
	}
}

func (r *Room) handleLeave(msg Leave) {
	if set := r.conns[msg.Username]; set != nil {
		delete(set, msg.ConnID)
		if len(set) == 0 {
			delete(r.conns, msg.Username)
		}
	}

	events, ns, _ := engine.Apply(r.state, engine.Command{Type: engine.CmdLeave, Username: msg.Username}, time.Now())
	r.state = ns
	if engine.ContainsEvent(events, engine.EvtMemberLeft) {
		r.logger.Info("member left", zap.String("username", msg.Username))
		r.broadcast("membersUpdated", r.memberDTOs())
	}

	// A finished room with no connections has no reason to linger. An
	// empty waiting room gets a grace window first: the leave cancels the
	// membership, not the room.
	if r.numConns() == 0 {
		if r.state.Phase == engine.PhaseWaiting && len(r.state.Members) == 0 {
			r.scheduleClose(WaitingGrace)
		} else if r.state.Phase == engine.PhaseFinished {
			r.closeRoom()
		}
	}
}

func (r *Room) handleUpdateScore(msg UpdateScore) {
	events, ns, err := engine.Apply(r.state, engine.Command{Type: engine.CmdUpdateScore, Username: msg.Username, Score: msg.Score}, time.Now())
	if err != nil {
		r.logger.Debug("score update rejected", zap.String("username", msg.Username), zap.Error(err))
		return
	}
	r.state = ns
	if engine.ContainsEvent(events, engine.EvtScoreChanged) {
		r.broadcast("membersUpdated", r.memberDTOs())
	}
}

func (r *Room) handleFinish(msg Finish) {
	events, ns, err := engine.Apply(r.state, engine.Command{Type: engine.CmdFinish, Username: msg.Username}, time.Now())
	if err != nil {
		r.logger.Debug("finish rejected", zap.String("username", msg.Username), zap.Error(err))
		return
	}
	r.state = ns
	r.broadcast("membersUpdated", r.memberDTOs())
	if engine.ContainsEvent(events, engine.EvtFinalized) {
		r.finalize()
	}
}

func (r *Room) handleSubmitTrivia(msg SubmitTrivia) {
	cmd := engine.Command{
		Type:           engine.CmdSubmitTrivia,
		Username:       msg.Username,
		CorrectCount:   msg.CorrectCount,
		TotalQuestions: msg.TotalQuestions,
	}
	events, ns, err := engine.Apply(r.state, cmd, time.Now())
	if err != nil {
		msg.Reply <- TriviaAck{Err: err}
		return
	}
	r.state = ns
	i := engine.MemberIndex(r.state, msg.Username)
	msg.Reply <- TriviaAck{Score: r.state.Members[i].Score}

	r.broadcast("membersUpdated", r.memberDTOs())
	if engine.ContainsEvent(events, engine.EvtFinalized) {
		r.finalize()
	}
}

func (r *Room) handleTriviaDone(msg TriviaDone) {
	_, ns, err := engine.Apply(r.state, engine.Command{Type: engine.CmdTriviaDone, Username: msg.Username}, time.Now())
	if err != nil {
		return
	}
	r.state = ns
	if r.state.Phase == engine.PhaseFinished && engine.AllDoneAck(r.state) {
		r.closeRoom()
	}
}

func (r *Room) handleTick(now time.Time) {
	if r.state.Phase != engine.PhaseStarted {
		return
	}
	left, ok := engine.TimeLeft(r.state, now)
	if !ok {
		return
	}
	r.broadcast("timerUpdate", map[string]any{"timeLeft": left})
	if left > 0 {
		return
	}

	events, ns, err := engine.Apply(r.state, engine.Command{Type: engine.CmdExpire}, now)
	if err != nil {
		return
	}
	r.state = ns
	if engine.ContainsEvent(events, engine.EvtFinalized) {
		r.logger.Info("timer expired, finalizing")
		r.finalize()
	}
}

func (r *Room) start(now time.Time) {
	r.ticker = time.NewTicker(time.Second)
	r.tickC = r.ticker.C
	left, _ := engine.TimeLeft(r.state, now)
	r.logger.Info("battle started", zap.Int("timeLeft", left))
	r.broadcast("battleStarted", map[string]any{
		"timeLeft":  left,
		"expiresAt": r.state.ExpiresAt.UTC().Format(time.RFC3339),
	})
}

// finalize computes and broadcasts results exactly once. Reaching here
// requires the engine's started->finished transition, so a second entry is
// impossible: both expiry and last-member-finish funnel through the actor
// loop and the phase guard.
func (r *Room) finalize() {
	r.stopTicker()
	results := engine.Results(r.state)

	leaderboard := make([]map[string]any, len(results))
	for i, res := range results {
		leaderboard[i] = map[string]any{"username": res.Username, "score": res.Score}
	}

	for _, res := range results {
		set := r.conns[res.Username]
		if len(set) == 0 {
			continue
		}
		var out Outbound
		if r.state.Mode == engine.ModeTrivia {
			out = Outbound{Event: "triviaResults", Payload: map[string]any{
				"roomCode":           r.state.Code,
				"yourScore":          res.Score,
				"yourCorrectCount":   res.CorrectCount,
				"yourTotalQuestions": res.TotalQuestions,
				"leaderboard":        leaderboard,
			}}
		} else {
			out = Outbound{Event: "codingResults", Payload: map[string]any{
				"roomCode":    r.state.Code,
				"yourScore":   res.Score,
				"leaderboard": leaderboard,
				"isTie":       res.IsTie,
				"youWon":      res.Won,
			}}
		}
		for connID, outbox := range set {
			r.send(res.Username, connID, outbox, out)
		}
	}

	r.record(results)

	// Late acks trickle in after results; evict once everyone has had a
	// chance to read the final state.
	r.scheduleClose(closeGrace)
}

func (r *Room) scheduleClose(after time.Duration) {
	time.AfterFunc(after, func() {
		select {
		case r.inbox <- closeNow{}:
		case <-r.ctx.Done():
		}
	})
}

// record hands the finalized match to the stats store off the actor
// goroutine; a slow database must not block ticks or closure.
func (r *Room) record(results []engine.Result) {
	if r.recorder == nil {
		return
	}
	records := stats.FromResults(r.state.Code, string(r.state.Mode), r.state.StartedAt, resultRecords(results))
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := r.recorder.RecordMatch(ctx, records); err != nil {
			r.logger.Error("failed to record match", zap.Error(err))
		}
	}()
}

func resultRecords(results []engine.Result) []stats.Entry {
	entries := make([]stats.Entry, len(results))
	for i, res := range results {
		outcome := "loss"
		switch {
		case res.IsTie:
			outcome = "tie"
		case res.Won:
			outcome = "win"
		}
		entries[i] = stats.Entry{Username: res.Username, Points: res.Score, Result: outcome}
	}
	return entries
}

func (r *Room) closeRoom() {
	_, ns, _ := engine.Apply(r.state, engine.Command{Type: engine.CmdClose}, time.Now())
	r.state = ns
	r.stopTicker()
	r.broadcast("roomClosed", map[string]any{"roomCode": r.state.Code})
	r.conns = make(map[string]map[string]chan Outbound)
	if r.onClose != nil {
		r.onClose(r.state.Code)
	}
	r.logger.Info("room closed")
	r.cancel()
}

func (r *Room) stopTicker() {
	if r.ticker != nil {
		r.ticker.Stop()
		r.ticker = nil
		r.tickC = nil
	}
}

func (r *Room) memberDTOs() []map[string]any {
	out := make([]map[string]any, len(r.state.Members))
	for i, m := range r.state.Members {
		out[i] = map[string]any{
			"username": m.Username,
			"score":    m.Score,
			"finished": m.Finished,
		}
	}
	return out
}

func (r *Room) broadcast(event string, payload any) {
	out := Outbound{Event: event, Payload: payload}
	for username, set := range r.conns {
		for connID, outbox := range set {
			r.send(username, connID, outbox, out)
		}
	}
}

func (r *Room) broadcastExcept(skip string, event string, payload any) {
	out := Outbound{Event: event, Payload: payload}
	for username, set := range r.conns {
		if username == skip {
			continue
		}
		for connID, outbox := range set {
			r.send(username, connID, outbox, out)
		}
	}
}

// send never blocks the actor: a connection whose writer can't keep up
// loses its ref here and is left to the transport's disconnect path.
func (r *Room) send(username, connID string, outbox chan Outbound, out Outbound) {
	select {
	case outbox <- out:
	default:
		r.logger.Warn("dropping slow connection", zap.String("username", username))
		delete(r.conns[username], connID)
		if len(r.conns[username]) == 0 {
			delete(r.conns, username)
		}
	}
}

func (r *Room) numConns() int {
	n := 0
	for _, set := range r.conns {
		n += len(set)
	}
	return n
}
