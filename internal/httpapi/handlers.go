package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/algo-arena/arena-server/internal/engine"
	"github.com/algo-arena/arena-server/internal/hub"
	"github.com/algo-arena/arena-server/internal/judge"
	"github.com/algo-arena/arena-server/internal/problems"
	"github.com/algo-arena/arena-server/internal/registry"
	"github.com/algo-arena/arena-server/internal/room"
	"github.com/algo-arena/arena-server/internal/stats"
)

type ctxKey int

const usernameKey ctxKey = 0

// Identity resolves the caller from the X-Username header or the aa_user
// cookie. The real session layer plugs in here; cookie mechanics are out
// of scope for this service.
func Identity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		username := r.Header.Get("X-Username")
		if username == "" {
			if cookie, err := r.Cookie("aa_user"); err == nil {
				username = cookie.Value
			}
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), usernameKey, username)))
	})
}

func UsernameFrom(ctx context.Context) string {
	username, _ := ctx.Value(usernameKey).(string)
	return username
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

type createRoomRequest struct {
	Mode          string `json:"mode"`
	Difficulty    string `json:"difficulty"`
	DurationSec   int    `json:"durationSec"`
	AllowUsername string `json:"allowUsername"`
}

func CreateRoom(h *hub.Hub, reg *registry.Registry, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		username := UsernameFrom(r.Context())
		if username == "" {
			writeError(w, http.StatusUnauthorized, "not signed in")
			return
		}

		var req createRoomRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid body")
			return
		}

		res := h.Create(hub.CreateOpts{
			Mode:        engine.Mode(req.Mode),
			Difficulty:  engine.Difficulty(req.Difficulty),
			DurationSec: req.DurationSec,
			Creator:     username,
			AllowUser:   req.AllowUsername,
		})
		switch {
		case errors.Is(res.Err, hub.ErrInvalidDifficulty), errors.Is(res.Err, hub.ErrInvalidDuration):
			writeError(w, http.StatusBadRequest, res.Err.Error())
			return
		case res.Err != nil:
			logger.Error("room creation failed", zap.Error(res.Err))
			writeError(w, http.StatusInternalServerError, "failed to create room")
			return
		}

		if req.AllowUsername != "" {
			reg.NotifyInvite(req.AllowUsername, res.Code, username, engine.Mode(req.Mode) == engine.ModeTrivia)
		}

		writeJSON(w, http.StatusCreated, map[string]string{"code": res.Code})
	}
}

type problemDTO struct {
	ProblemID          string            `json:"problemId"`
	Title              string            `json:"title"`
	Difficulty         string            `json:"difficulty"`
	StartingCode       map[string]string `json:"startingCode"`
	ProblemDescription string            `json:"problemDescription"`
}

type memberDTO struct {
	Username string `json:"username"`
	Score    int    `json:"score"`
	Finished bool   `json:"finished"`
}

type roomDTO struct {
	Code      string      `json:"code"`
	Problem   *problemDTO `json:"problem,omitempty"`
	TimeLeft  *int        `json:"timeLeft"`
	ExpiresAt string      `json:"expiresAt,omitempty"`
	Started   bool        `json:"started"`
	Members   []memberDTO `json:"members"`
}

func GetRoom(h *hub.Hub, catalog *problems.Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rm := h.Get(chi.URLParam(r, "code"))
		if rm == nil {
			writeError(w, http.StatusNotFound, "room not found")
			return
		}

		reply := make(chan room.View, 1)
		select {
		case rm.Inbox() <- room.GetState{Reply: reply}:
		case <-rm.Done():
			writeError(w, http.StatusNotFound, "room not found")
			return
		}
		var view room.View
		select {
		case view = <-reply:
		case <-rm.Done():
			writeError(w, http.StatusNotFound, "room not found")
			return
		}
		state := view.State
		if state.Phase == engine.PhaseClosed {
			writeError(w, http.StatusNotFound, "room not found")
			return
		}

		dto := roomDTO{
			Code:    state.Code,
			Started: state.Phase != engine.PhaseWaiting,
			Members: make([]memberDTO, len(state.Members)),
		}
		for i, m := range state.Members {
			dto.Members[i] = memberDTO{Username: m.Username, Score: m.Score, Finished: m.Finished}
		}
		if left, ok := engine.TimeLeft(state, time.Now()); ok {
			dto.TimeLeft = &left
			dto.ExpiresAt = state.ExpiresAt.UTC().Format(time.RFC3339)
		}
		if p, ok := catalog.ByID(state.ProblemID); ok {
			dto.Problem = &problemDTO{
				ProblemID:          p.ID,
				Title:              p.Title,
				Difficulty:         string(p.Difficulty),
				StartingCode:       p.StartingCode,
				ProblemDescription: p.Description,
			}
		}
		writeJSON(w, http.StatusOK, dto)
	}
}

type judgeRunRequest struct {
	LanguageID int    `json:"language_id"`
	SourceCode string `json:"source_code"`
	ProblemID  string `json:"problemId"`
	Lang       string `json:"lang"`
}

func RunJudge(g *judge.Gateway, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req judgeRunRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid body")
			return
		}

		result, err := g.Run(r.Context(), req.LanguageID, req.SourceCode, req.ProblemID, req.Lang)
		switch {
		case errors.Is(err, judge.ErrUnknownProblem):
			writeError(w, http.StatusNotFound, "unknown problem")
			return
		case errors.Is(err, judge.ErrUnsupportedLanguage), errors.Is(err, judge.ErrBadSource):
			writeError(w, http.StatusBadRequest, err.Error())
			return
		case errors.Is(err, judge.ErrUnavailable):
			// Degrade to a zero-score result so the UI has something to
			// render; never a partial score.
			writeJSON(w, http.StatusOK, judge.GradedResult{
				Status:    "Judge Unavailable",
				Breakdown: map[string]int{"passed": 0, "failed": 0, "total": 0},
			})
			return
		case err != nil:
			logger.Error("judge run failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "judge run failed")
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

func TriviaQuestions(h *hub.Hub, catalog *problems.Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := r.URL.Query().Get("roomCode")
		if code == "" || h.Get(code) == nil {
			writeError(w, http.StatusNotFound, "room not found")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"data":    catalog.Trivia(hub.NormalizeCode(code)),
		})
	}
}

type triviaSubmitRequest struct {
	RoomCode       string `json:"roomCode"`
	CorrectCount   int    `json:"correctCount"`
	TotalQuestions int    `json:"totalQuestions"`
}

func TriviaSubmit(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		username := UsernameFrom(r.Context())
		if username == "" {
			writeError(w, http.StatusUnauthorized, "not signed in")
			return
		}

		var req triviaSubmitRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid body")
			return
		}

		rm := h.Get(req.RoomCode)
		if rm == nil {
			writeError(w, http.StatusNotFound, "room not found")
			return
		}

		reply := make(chan room.TriviaAck, 1)
		select {
		case rm.Inbox() <- room.SubmitTrivia{
			Username:       username,
			CorrectCount:   req.CorrectCount,
			TotalQuestions: req.TotalQuestions,
			Reply:          reply,
		}:
		case <-rm.Done():
			writeError(w, http.StatusNotFound, "room not found")
			return
		}
		var ack room.TriviaAck
		select {
		case ack = <-reply:
		case <-rm.Done():
			writeError(w, http.StatusNotFound, "room not found")
			return
		}
		switch {
		case errors.Is(ack.Err, engine.ErrRoomClosed):
			writeError(w, http.StatusNotFound, "room not found")
			return
		case errors.Is(ack.Err, engine.ErrUnknownMember):
			writeError(w, http.StatusForbidden, "not a member of this room")
			return
		case errors.Is(ack.Err, engine.ErrInvalidRoomState), errors.Is(ack.Err, engine.ErrAlreadySubmitted):
			writeError(w, http.StatusConflict, ack.Err.Error())
			return
		case ack.Err != nil:
			writeError(w, http.StatusInternalServerError, "submit failed")
			return
		}
		writeJSON(w, http.StatusOK, map[string]int{"score": ack.Score})
	}
}

type matchDTO struct {
	StartedAt        string  `json:"startedAt"`
	OpponentUsername *string `json:"opponentUsername"`
	Points           int     `json:"points"`
	Result           string  `json:"result"`
}

func MyMatches(store stats.Recorder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		username := UsernameFrom(r.Context())
		if username == "" {
			writeError(w, http.StatusUnauthorized, "not signed in")
			return
		}

		records, err := store.MatchesFor(r.Context(), username)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to load stats")
			return
		}

		total := 0
		matches := make([]matchDTO, len(records))
		for i, rec := range records {
			total += rec.Points
			dto := matchDTO{
				StartedAt: rec.StartedAt.UTC().Format(time.RFC3339),
				Points:    rec.Points,
				Result:    rec.Result,
			}
			if rec.OpponentUsername != "" {
				opponent := rec.OpponentUsername
				dto.OpponentUsername = &opponent
			}
			matches[i] = dto
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"totalPoints": total,
			"matches":     matches,
		})
	}
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}
