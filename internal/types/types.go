package types

import "encoding/json"

// ClientMessage is the request/response-over-stream envelope. Events that
// expect an ack carry a nonzero correlation ID; fire-and-forget events
// omit it.
type ClientMessage struct {
	ID    int64           `json:"id,omitempty"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// ServerMessage is either an ack (Event "ack", ID echoing the request) or
// a server push (no ID).
type ServerMessage struct {
	ID    int64  `json:"id,omitempty"`
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

type CreateRoomRequest struct {
	Mode        string `json:"mode,omitempty"`
	Difficulty  string `json:"difficulty,omitempty"`
	DurationSec int    `json:"durationSec,omitempty"`
	Allow       *struct {
		Username string `json:"username"`
	} `json:"allow,omitempty"`
}

type CreateRoomAck struct {
	RoomCode string `json:"roomCode,omitempty"`
	Error    string `json:"error,omitempty"`
}

type JoinRoomAck struct {
	Success  bool     `json:"success"`
	RoomCode string   `json:"roomCode,omitempty"`
	Error    string   `json:"error,omitempty"`
	Members  []string `json:"members,omitempty"`
	TimeLeft *int     `json:"timeLeft"`
	Started  bool     `json:"started"`
}

type UpdateScoreRequest struct {
	Code  string `json:"code"`
	Score int    `json:"score"`
}
