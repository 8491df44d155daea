package hub

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"go.uber.org/zap"

	"github.com/algo-arena/arena-server/internal/engine"
	"github.com/algo-arena/arena-server/internal/problems"
	"github.com/algo-arena/arena-server/internal/room"
	"github.com/algo-arena/arena-server/internal/stats"
)

var ErrInvalidDifficulty = errors.New("invalid difficulty")
var ErrInvalidDuration = errors.New("invalid duration")
var ErrNoProblem = errors.New("no problem available for difficulty")

// Durations the client offers (5/10/15 minutes).
var allowedDurations = map[int]bool{300: true, 600: true, 900: true}

const defaultDurationSec = 300

type HubMsg interface{ isHubMsg() }

type CreateRoom struct {
	Opts  CreateOpts
	Reply chan CreateResult
}

type GetRoom struct {
	Code  string
	Reply chan *room.Room
}

type RemoveRoom struct {
	Code string
}

type ShutdownHub struct{}

func (CreateRoom) isHubMsg()  {}
func (GetRoom) isHubMsg()     {}
func (RemoveRoom) isHubMsg()  {}
func (ShutdownHub) isHubMsg() {}

type CreateOpts struct {
	Mode        engine.Mode
	Difficulty  engine.Difficulty
	DurationSec int
	Creator     string
	AllowUser   string
}

type CreateResult struct {
	Code string
	Room *room.Room
	Err  error
}

type Hub struct {
	inbox    chan HubMsg
	rooms    map[string]*room.Room
	catalog  *problems.Catalog
	recorder stats.Recorder
	policy   engine.StartPolicy
	logger   *zap.Logger
	ctx      context.Context
	cancel   context.CancelFunc
}

func NewHub(parent context.Context, catalog *problems.Catalog, recorder stats.Recorder, policy engine.StartPolicy, logger *zap.Logger) *Hub {
	ctx, cancel := context.WithCancel(parent)
	h := &Hub{
		inbox:    make(chan HubMsg, 64),
		rooms:    make(map[string]*room.Room),
		catalog:  catalog,
		recorder: recorder,
		policy:   policy,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

// Create is the channel round-trip spelled out for callers.
func (h *Hub) Create(opts CreateOpts) CreateResult {
	reply := make(chan CreateResult, 1)
	h.inbox <- CreateRoom{Opts: opts, Reply: reply}
	return <-reply
}

// Get returns the live room for a code, nil if absent or closed.
func (h *Hub) Get(code string) *room.Room {
	reply := make(chan *room.Room, 1)
	h.inbox <- GetRoom{Code: code, Reply: reply}
	return <-reply
}

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case CreateRoom:
				msg.Reply <- h.create(msg.Opts)

			case GetRoom:
				msg.Reply <- h.rooms[NormalizeCode(msg.Code)]

			case RemoveRoom:
				delete(h.rooms, NormalizeCode(msg.Code))

			case ShutdownHub:
				for _, rm := range h.rooms {
					select {
					case rm.Inbox() <- room.Shutdown{}:
					case <-rm.Done():
					}
				}
				clear(h.rooms)
				h.cancel()
			}
		}
	}
}

func (h *Hub) create(opts CreateOpts) CreateResult {
	if opts.Mode == "" {
		opts.Mode = engine.ModeCoding
	}
	if opts.Difficulty == "" {
		opts.Difficulty = engine.DifficultyEasy
	}
	switch opts.Difficulty {
	case engine.DifficultyEasy, engine.DifficultyMedium, engine.DifficultyHard:
	default:
		return CreateResult{Err: fmt.Errorf("%w: %q", ErrInvalidDifficulty, opts.Difficulty)}
	}
	if opts.DurationSec == 0 {
		opts.DurationSec = defaultDurationSec
	}
	if !allowedDurations[opts.DurationSec] {
		return CreateResult{Err: fmt.Errorf("%w: %d", ErrInvalidDuration, opts.DurationSec)}
	}

	problemID := ""
	if opts.Mode == engine.ModeCoding {
		p, ok := h.catalog.PickForDifficulty(opts.Difficulty)
		if !ok {
			return CreateResult{Err: ErrNoProblem}
		}
		problemID = p.ID
	}

	code, err := h.uniqueCode()
	if err != nil {
		return CreateResult{Err: err}
	}

	state := engine.NewState(engine.Options{
		Code:        code,
		Mode:        opts.Mode,
		Difficulty:  opts.Difficulty,
		DurationSec: opts.DurationSec,
		ProblemID:   problemID,
		Creator:     opts.Creator,
		AllowUser:   opts.AllowUser,
		Policy:      h.policy,
	})

	rm := room.NewRoom(h.ctx, state, h.recorder, h.logger, func(closed string) {
		// Runs on the room goroutine; eviction goes through the hub loop
		// so the map stays single-writer.
		select {
		case h.inbox <- RemoveRoom{Code: closed}:
		case <-h.ctx.Done():
		}
	})
	h.rooms[code] = rm
	h.logger.Info("room created",
		zap.String("code", code),
		zap.String("mode", string(opts.Mode)),
		zap.String("difficulty", string(opts.Difficulty)),
		zap.Int("durationSec", opts.DurationSec),
	)
	return CreateResult{Code: code, Room: rm}
}

func (h *Hub) uniqueCode() (string, error) {
	for {
		code, err := GenerateCode()
		if err != nil {
			return "", err
		}
		if h.rooms[code] == nil {
			return code, nil
		}
		h.logger.Warn("room code collision, regenerating", zap.String("code", code))
	}
}

func GenerateCode() (string, error) {
	const charset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	code := make([]byte, 6)
	for i := 0; i < 6; i++ {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		code[i] = charset[num.Int64()]
	}
	return string(code), nil
}

// NormalizeCode folds user-typed codes onto the generated alphabet.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
