package ws

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"github.com/algo-arena/arena-server/internal/engine"
	"github.com/algo-arena/arena-server/internal/hub"
	"github.com/algo-arena/arena-server/internal/registry"
	"github.com/algo-arena/arena-server/internal/room"
	"github.com/algo-arena/arena-server/internal/types"
)

const writeTimeout = 3 * time.Second

func Handler(h *hub.Hub, reg *registry.Registry, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		username := identityFrom(r)
		if username == "" {
			http.Error(w, "missing identity", http.StatusUnauthorized)
			return
		}

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			// In dev ONLY, you can loosen origin checks:
			// OriginPatterns: []string{"http://localhost:*", "http://127.0.0.1:*"},
		})
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		c := &client{
			username: username,
			connID:   randID(8),
			outbox:   make(chan room.Outbound, 16),
			joined:   make(map[string]*room.Room),
			hub:      h,
			logger:   logger.With(zap.String("username", username)),
		}

		reg.Register(username, c.connID, c.outbox)
		defer reg.Unregister(username, c.connID)
		defer c.leaveAll()

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		// Writer goroutine: the single path for everything headed to this
		// connection (room broadcasts, acks, invites).
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case out := <-c.outbox:
					payload, err := json.Marshal(types.ServerMessage{ID: out.ID, Event: out.Event, Data: out.Payload})
					if err != nil {
						continue
					}
					wctx, wcancel := context.WithTimeout(ctx, writeTimeout)
					err = conn.Write(wctx, websocket.MessageText, payload)
					wcancel()
					if err != nil {
						cancel()
						return
					}
				}
			}
		}()

		// Reader loop
		for {
			_, data, err := conn.Read(ctx)
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
					return
				}
				return
			}

			var cm types.ClientMessage
			if err := json.Unmarshal(data, &cm); err != nil {
				c.push("error", map[string]any{"error": "bad json"})
				continue
			}
			c.dispatch(reg, cm)
		}
	}
}

type client struct {
	username string
	connID   string
	outbox   chan room.Outbound
	joined   map[string]*room.Room
	hub      *hub.Hub
	logger   *zap.Logger
}

func (c *client) dispatch(reg *registry.Registry, cm types.ClientMessage) {
	switch cm.Event {
	case "createRoom":
		c.handleCreateRoom(reg, cm)
	case "joinRoom":
		c.handleJoinRoom(cm)
	case "leaveRoom":
		if code, ok := decodeCode(cm.Data); ok {
			c.leave(code)
		}
	case "updateScore":
		var req types.UpdateScoreRequest
		if err := json.Unmarshal(cm.Data, &req); err != nil {
			return
		}
		if rm := c.hub.Get(req.Code); rm != nil {
			deliver(rm, room.UpdateScore{Username: c.username, Score: req.Score})
		}
	case "finish":
		if code, ok := decodeCode(cm.Data); ok {
			if rm := c.hub.Get(code); rm != nil {
				deliver(rm, room.Finish{Username: c.username})
			}
		}
	case "triviaDone":
		if code, ok := decodeCode(cm.Data); ok {
			if rm := c.hub.Get(code); rm != nil {
				deliver(rm, room.TriviaDone{Username: c.username})
			}
		}
	default:
		c.push("error", map[string]any{"error": "unknown event"})
	}
}

func (c *client) handleCreateRoom(reg *registry.Registry, cm types.ClientMessage) {
	var req types.CreateRoomRequest
	if len(cm.Data) > 0 {
		if err := json.Unmarshal(cm.Data, &req); err != nil {
			c.ack(cm.ID, types.CreateRoomAck{Error: "bad request"})
			return
		}
	}

	opts := hub.CreateOpts{
		Mode:        engine.Mode(req.Mode),
		Difficulty:  engine.Difficulty(req.Difficulty),
		DurationSec: req.DurationSec,
		Creator:     c.username,
	}
	if req.Allow != nil {
		opts.AllowUser = req.Allow.Username
	}

	res := c.hub.Create(opts)
	if res.Err != nil {
		c.ack(cm.ID, types.CreateRoomAck{Error: res.Err.Error()})
		return
	}

	// Creator is in the room from the moment it exists.
	c.join(res.Code, res.Room)

	if opts.AllowUser != "" {
		reg.NotifyInvite(opts.AllowUser, res.Code, c.username, opts.Mode == engine.ModeTrivia)
	}
	c.ack(cm.ID, types.CreateRoomAck{RoomCode: res.Code})
}

func (c *client) handleJoinRoom(cm types.ClientMessage) {
	code, ok := decodeCode(cm.Data)
	if !ok {
		c.ack(cm.ID, types.JoinRoomAck{Error: "bad request"})
		return
	}

	rm := c.hub.Get(code)
	if rm == nil {
		c.ack(cm.ID, types.JoinRoomAck{Error: "Room not found"})
		return
	}

	res := c.join(hub.NormalizeCode(code), rm)
	if res.Err != nil {
		c.ack(cm.ID, types.JoinRoomAck{Error: joinErrorMessage(res.Err)})
		return
	}
	c.ack(cm.ID, types.JoinRoomAck{
		Success:  true,
		RoomCode: hub.NormalizeCode(code),
		Members:  res.Members,
		TimeLeft: res.TimeLeft,
		Started:  res.Started,
	})
}

func (c *client) join(code string, rm *room.Room) room.JoinResult {
	reply := make(chan room.JoinResult, 1)
	select {
	case rm.Inbox() <- room.Join{
		Username: c.username,
		ConnID:   c.connID,
		Outbox:   c.outbox,
		Reply:    reply,
	}:
	case <-rm.Done():
		return room.JoinResult{Err: engine.ErrRoomClosed}
	}

	var res room.JoinResult
	select {
	case res = <-reply:
	case <-rm.Done():
		return room.JoinResult{Err: engine.ErrRoomClosed}
	}
	if res.Err == nil {
		c.joined[code] = rm
	}
	return res
}

func (c *client) leave(code string) {
	code = hub.NormalizeCode(code)
	rm := c.joined[code]
	if rm == nil {
		rm = c.hub.Get(code)
	}
	if rm != nil {
		deliver(rm, room.Leave{Username: c.username, ConnID: c.connID})
	}
	delete(c.joined, code)
}

func (c *client) leaveAll() {
	for code, rm := range c.joined {
		deliver(rm, room.Leave{Username: c.username, ConnID: c.connID})
		delete(c.joined, code)
	}
}

// deliver is the fire-and-forget send; a room that shut down underneath us
// just drops the message instead of wedging the reader loop.
func deliver(rm *room.Room, m room.Msg) {
	select {
	case rm.Inbox() <- m:
	case <-rm.Done():
	}
}

func (c *client) ack(id int64, data any) {
	c.send(room.Outbound{ID: id, Event: "ack", Payload: data})
}

func (c *client) push(event string, data any) {
	c.send(room.Outbound{Event: event, Payload: data})
}

func (c *client) send(out room.Outbound) {
	select {
	case c.outbox <- out:
	default:
		c.logger.Warn("outbox full, dropping message", zap.String("event", out.Event))
	}
}

func joinErrorMessage(err error) string {
	switch {
	case errors.Is(err, engine.ErrNotAllowed):
		return "You are not invited to this room"
	case errors.Is(err, engine.ErrAlreadyStarted):
		return "Room already started"
	case errors.Is(err, engine.ErrRoomClosed):
		return "Room not found"
	default:
		return err.Error()
	}
}

// decodeCode accepts both a bare JSON string ("ABC123") and {"code":"ABC123"};
// the client sends the former for fire-and-forget events.
func decodeCode(data json.RawMessage) (string, bool) {
	var s string
	if err := json.Unmarshal(data, &s); err == nil && s != "" {
		return s, true
	}
	var obj struct {
		Code string `json:"code"`
	}
	if err := json.Unmarshal(data, &obj); err == nil && obj.Code != "" {
		return obj.Code, true
	}
	return "", false
}

func identityFrom(r *http.Request) string {
	if u := r.URL.Query().Get("user"); u != "" {
		return u
	}
	if cookie, err := r.Cookie("aa_user"); err == nil {
		return cookie.Value
	}
	return r.Header.Get("X-Username")
}

func randID(length int) string {
	// Not sure how complex the connID should be. Could make it a uuid but that may be too complicated for our purposes.
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	b := make([]byte, length)
	for i := range b {
		b[i] = charset[rand.Intn(len(charset))]
	}
	return string(b)
}
