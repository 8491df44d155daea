package judge

import (
	"bufio"
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/algo-arena/arena-server/internal/problems"
)

var ErrUnavailable = errors.New("judge unavailable")
var ErrUnknownProblem = errors.New("unknown problem")
var ErrUnsupportedLanguage = errors.New("unsupported language")
var ErrBadSource = errors.New("source is not valid base64")

// GradedResult is the normalized judge output the client renders. The
// hidden case is reported as a bare boolean; its content never leaves the
// server.
type GradedResult struct {
	Status           string         `json:"status"`
	Time             *string        `json:"time"`
	Memory           *int           `json:"memory"`
	Stdout           string         `json:"stdout"`
	Stderr           string         `json:"stderr"`
	CompileOutput    string         `json:"compile_output"`
	Score            int            `json:"score"`
	Breakdown        map[string]int `json:"breakdown"`
	HasHiddenCase    bool           `json:"hasHiddenCase"`
	HiddenCasePassed *bool          `json:"hiddenCasePassed,omitempty"`
}

type Gateway struct {
	baseURL string
	client  *http.Client
	catalog *problems.Catalog
	logger  *zap.Logger
}

func NewGateway(baseURL string, timeout time.Duration, catalog *problems.Catalog, logger *zap.Logger) *Gateway {
	return &Gateway{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		catalog: catalog,
		logger:  logger,
	}
}

type submission struct {
	LanguageID int    `json:"language_id"`
	SourceCode string `json:"source_code"`
}

type judge0Response struct {
	Status struct {
		ID          int    `json:"id"`
		Description string `json:"description"`
	} `json:"status"`
	Time          *string `json:"time"`
	Memory        *int    `json:"memory"`
	Stdout        string  `json:"stdout"`
	Stderr        string  `json:"stderr"`
	CompileOutput string  `json:"compile_output"`
}

// Judge0 status ids; anything above compile error is an execution failure
// of some flavor and keeps Judge0's own description.
const (
	statusAccepted     = 3
	statusCompileError = 6
)

// Run submits the member's source plus the problem's server-held harness
// and grades the marker output. The caller must not hold any room lock
// while waiting; the graded score is applied to room state afterwards.
func (g *Gateway) Run(ctx context.Context, languageID int, sourceB64, problemID, lang string) (GradedResult, error) {
	p, ok := g.catalog.ByID(problemID)
	if !ok {
		return GradedResult{}, ErrUnknownProblem
	}
	harness, ok := p.Harness[lang]
	if !ok || problems.LanguageIDs[lang] != languageID {
		return GradedResult{}, ErrUnsupportedLanguage
	}

	source, err := base64.StdEncoding.DecodeString(sourceB64)
	if err != nil {
		return GradedResult{}, ErrBadSource
	}
	full := string(source) + "\n" + harness

	resp, err := g.submit(ctx, submission{
		LanguageID: languageID,
		SourceCode: base64.StdEncoding.EncodeToString([]byte(full)),
	})
	if err != nil {
		g.logger.Error("judge submission failed", zap.String("problemId", problemID), zap.Error(err))
		return GradedResult{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	return g.grade(p, resp), nil
}

func (g *Gateway) submit(ctx context.Context, sub submission) (judge0Response, error) {
	body, err := json.Marshal(sub)
	if err != nil {
		return judge0Response{}, err
	}

	url := g.baseURL + "/submissions?base64_encoded=true&wait=true"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return judge0Response{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := g.client.Do(req)
	if err != nil {
		return judge0Response{}, err
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return judge0Response{}, fmt.Errorf("judge returned %d", res.StatusCode)
	}

	var parsed judge0Response
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return judge0Response{}, err
	}
	return parsed, nil
}

func (g *Gateway) grade(p problems.Problem, resp judge0Response) GradedResult {
	out := GradedResult{
		Status:        resp.Status.Description,
		Time:          resp.Time,
		Memory:        resp.Memory,
		Stdout:        decodeB64(resp.Stdout),
		Stderr:        decodeB64(resp.Stderr),
		CompileOutput: decodeB64(resp.CompileOutput),
		HasHiddenCase: p.HasHidden,
	}

	if resp.Status.ID == statusCompileError || out.CompileOutput != "" {
		out.Status = "Compilation Error"
		out.Score = 0
		return out
	}

	passed, hiddenPassed, hiddenSeen := parseMarkers(out.Stdout)
	out.Breakdown = map[string]int{
		"passed": passed,
		"failed": p.VisibleCases - passed,
		"total":  p.VisibleCases,
	}

	if p.HasHidden {
		hp := hiddenSeen && hiddenPassed
		out.HiddenCasePassed = &hp
		// The hidden case contributes independently of the visible set.
		if p.VisibleCases > 0 {
			out.Score = 80 * passed / p.VisibleCases
		}
		if hp {
			out.Score += 20
		}
	} else if p.VisibleCases > 0 {
		out.Score = 100 * passed / p.VisibleCases
	}

	// The harness exits cleanly even when cases fail, so Judge0 reports
	// Accepted regardless; the marker grade is the real verdict.
	if resp.Status.ID == statusAccepted && out.Score < 100 {
		out.Status = "Wrong Answer"
	}
	if out.Status == "" {
		out.Status = "Executed"
	}
	return out
}

// parseMarkers scans harness stdout for "AA_CASE <n> PASS|FAIL" and
// "AA_HIDDEN PASS|FAIL" lines. Anything the harness didn't print counts as
// a failure, so a crash mid-run grades as the cases it completed.
func parseMarkers(stdout string) (passed int, hiddenPassed, hiddenSeen bool) {
	scanner := bufio.NewScanner(strings.NewReader(stdout))
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case problems.CaseMarker:
			if fields[len(fields)-1] == "PASS" {
				passed++
			}
		case problems.HiddenMarker:
			hiddenSeen = true
			hiddenPassed = fields[len(fields)-1] == "PASS"
		}
	}
	return passed, hiddenPassed, hiddenSeen
}

func decodeB64(s string) string {
	if s == "" {
		return ""
	}
	decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(s))
	if err != nil {
		// Some deployments return plain text despite base64_encoded=true.
		return s
	}
	return string(decoded)
}
