package problems

import (
	"hash/fnv"
	"math/rand"

	"github.com/algo-arena/arena-server/internal/engine"
)

// Language names the client sends alongside Judge0 language ids.
const (
	LangTypeScript = "typescript"
	LangPython     = "python"
)

// LanguageIDs maps client language names to Judge0 language ids.
var LanguageIDs = map[string]int{
	LangTypeScript: 74,
	LangPython:     71,
}

// Problem bundles what the client renders plus the server-held grading
// harness. The harness never leaves the server; it is appended to the
// member's source before submission so visible and hidden cases can't be
// tampered with client-side.
type Problem struct {
	ID           string
	Title        string
	Difficulty   engine.Difficulty
	Description  string
	StartingCode map[string]string
	Harness      map[string]string
	VisibleCases int
	HasHidden    bool
}

type Question struct {
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correctAnswer"`
	Category      string   `json:"category"`
	Difficulty    string   `json:"difficulty"`
}

type Catalog struct {
	problems []Problem
	byID     map[string]Problem
	trivia   []Question
}

func NewCatalog() *Catalog {
	c := &Catalog{
		problems: builtinProblems,
		byID:     make(map[string]Problem, len(builtinProblems)),
		trivia:   builtinTrivia,
	}
	for _, p := range c.problems {
		c.byID[p.ID] = p
	}
	return c
}

func (c *Catalog) ByID(id string) (Problem, bool) {
	p, ok := c.byID[id]
	return p, ok
}

func (c *Catalog) PickForDifficulty(d engine.Difficulty) (Problem, bool) {
	var candidates []Problem
	for _, p := range c.problems {
		if p.Difficulty == d {
			candidates = append(candidates, p)
		}
	}
	if len(candidates) == 0 {
		return Problem{}, false
	}
	return candidates[rand.Intn(len(candidates))], true
}

// Trivia returns the question set for a room. The order is derived from the
// room code so every member answers the same sequence.
func (c *Catalog) Trivia(roomCode string) []Question {
	h := fnv.New64a()
	h.Write([]byte(roomCode))
	rng := rand.New(rand.NewSource(int64(h.Sum64())))

	out := make([]Question, len(c.trivia))
	for i, j := range rng.Perm(len(c.trivia)) {
		out[i] = c.trivia[j]
	}
	return out
}
