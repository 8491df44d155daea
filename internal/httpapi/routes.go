package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/algo-arena/arena-server/internal/hub"
	"github.com/algo-arena/arena-server/internal/judge"
	"github.com/algo-arena/arena-server/internal/problems"
	"github.com/algo-arena/arena-server/internal/registry"
	"github.com/algo-arena/arena-server/internal/stats"
	"github.com/algo-arena/arena-server/internal/ws"
)

type Deps struct {
	Hub      *hub.Hub
	Registry *registry.Registry
	Catalog  *problems.Catalog
	Judge    *judge.Gateway
	Stats    stats.Recorder
	Logger   *zap.Logger
}

func SetupRoutes(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(Identity)

	r.Post("/rooms", CreateRoom(d.Hub, d.Registry, d.Logger))
	r.Get("/rooms/{code}", GetRoom(d.Hub, d.Catalog))
	r.Post("/judge0/run", RunJudge(d.Judge, d.Logger))
	r.Get("/trivia", TriviaQuestions(d.Hub, d.Catalog))
	r.Post("/trivia/submit", TriviaSubmit(d.Hub))
	r.Get("/me/matches", MyMatches(d.Stats))
	r.Get("/healthz", Healthz)
	r.Get("/ws", ws.Handler(d.Hub, d.Registry, d.Logger))
	return r
}
