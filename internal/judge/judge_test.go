package judge

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/algo-arena/arena-server/internal/problems"
)

func b64(s string) string { return base64.StdEncoding.EncodeToString([]byte(s)) }

// fakeJudge0 serves canned responses for POST /submissions.
func fakeJudge0(t *testing.T, statusID int, statusDesc, stdout, compileOutput string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/submissions", r.URL.Path)
		require.Equal(t, "true", r.URL.Query().Get("wait"))

		var sub struct {
			LanguageID int    `json:"language_id"`
			SourceCode string `json:"source_code"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&sub))
		// The harness must be appended to what the member sent.
		decoded, err := base64.StdEncoding.DecodeString(sub.SourceCode)
		require.NoError(t, err)
		assert.Contains(t, string(decoded), problems.CaseMarker)

		resp := map[string]any{
			"status": map[string]any{"id": statusID, "description": statusDesc},
			"stdout": b64(stdout),
		}
		if compileOutput != "" {
			resp["compile_output"] = b64(compileOutput)
		}
		json.NewEncoder(w).Encode(resp)
	}))
}

func newTestGateway(t *testing.T, url string) *Gateway {
	t.Helper()
	return NewGateway(url, 5*time.Second, problems.NewCatalog(), zap.NewNop())
}

func TestRun_AllCasesPass(t *testing.T) {
	srv := fakeJudge0(t, 3, "Accepted",
		"AA_CASE 1 PASS\nAA_CASE 2 PASS\nAA_CASE 3 PASS\nAA_HIDDEN PASS\n", "")
	defer srv.Close()

	g := newTestGateway(t, srv.URL)
	res, err := g.Run(context.Background(), 71, b64("def twoSum(a, b): pass"), "two-sum", "python")
	require.NoError(t, err)

	assert.Equal(t, 100, res.Score)
	assert.Equal(t, "Accepted", res.Status)
	assert.Equal(t, map[string]int{"passed": 3, "failed": 0, "total": 3}, res.Breakdown)
	assert.True(t, res.HasHiddenCase)
	require.NotNil(t, res.HiddenCasePassed)
	assert.True(t, *res.HiddenCasePassed)
}

func TestRun_PartialVisibleHiddenFails(t *testing.T) {
	srv := fakeJudge0(t, 4, "Wrong Answer",
		"AA_CASE 1 PASS\nAA_CASE 2 FAIL\nAA_CASE 3 PASS\nAA_HIDDEN FAIL\n", "")
	defer srv.Close()

	g := newTestGateway(t, srv.URL)
	res, err := g.Run(context.Background(), 71, b64("def twoSum(a, b): pass"), "two-sum", "python")
	require.NoError(t, err)

	// 80 * 2/3 visible, nothing for the hidden case.
	assert.Equal(t, 53, res.Score)
	assert.Equal(t, 2, res.Breakdown["passed"])
	require.NotNil(t, res.HiddenCasePassed)
	assert.False(t, *res.HiddenCasePassed)
}

func TestRun_CrashMidRunGradesCompletedCases(t *testing.T) {
	// Harness died after the first case; missing markers count as failures.
	srv := fakeJudge0(t, 11, "Runtime Error (NZEC)", "AA_CASE 1 PASS\n", "")
	defer srv.Close()

	g := newTestGateway(t, srv.URL)
	res, err := g.Run(context.Background(), 71, b64("def twoSum(a, b): pass"), "two-sum", "python")
	require.NoError(t, err)

	assert.Equal(t, 26, res.Score) // 80 * 1/3
	assert.Equal(t, map[string]int{"passed": 1, "failed": 2, "total": 3}, res.Breakdown)
	require.NotNil(t, res.HiddenCasePassed)
	assert.False(t, *res.HiddenCasePassed)
}

func TestRun_AcceptedRemappedWhenCasesFail(t *testing.T) {
	// The harness exits cleanly even on failing cases, so Judge0 reports
	// Accepted; the verdict must come from the marker grade.
	srv := fakeJudge0(t, 3, "Accepted",
		"AA_CASE 1 PASS\nAA_CASE 2 FAIL\nAA_CASE 3 PASS\nAA_HIDDEN PASS\n", "")
	defer srv.Close()

	g := newTestGateway(t, srv.URL)
	res, err := g.Run(context.Background(), 71, b64("def twoSum(a, b): pass"), "two-sum", "python")
	require.NoError(t, err)

	assert.Equal(t, "Wrong Answer", res.Status)
	assert.Equal(t, 73, res.Score) // 80 * 2/3 + 20
}

func TestRun_CompileErrorScoresZero(t *testing.T) {
	srv := fakeJudge0(t, 6, "Compilation Error", "", "SyntaxError: invalid syntax")
	defer srv.Close()

	g := newTestGateway(t, srv.URL)
	res, err := g.Run(context.Background(), 71, b64("def twoSum(a, b"), "two-sum", "python")
	require.NoError(t, err)

	assert.Equal(t, "Compilation Error", res.Status)
	assert.Equal(t, 0, res.Score)
	assert.Contains(t, res.CompileOutput, "SyntaxError")
}

func TestRun_JudgeDownIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	g := newTestGateway(t, srv.URL)
	_, err := g.Run(context.Background(), 71, b64("code"), "two-sum", "python")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestRun_InputValidation(t *testing.T) {
	g := newTestGateway(t, "http://judge.invalid")

	_, err := g.Run(context.Background(), 71, b64("code"), "no-such-problem", "python")
	assert.ErrorIs(t, err, ErrUnknownProblem)

	_, err = g.Run(context.Background(), 71, b64("code"), "two-sum", "cobol")
	assert.ErrorIs(t, err, ErrUnsupportedLanguage)

	// Language name and Judge0 id must agree.
	_, err = g.Run(context.Background(), 74, b64("code"), "two-sum", "python")
	assert.ErrorIs(t, err, ErrUnsupportedLanguage)

	_, err = g.Run(context.Background(), 71, "not!!base64", "two-sum", "python")
	assert.ErrorIs(t, err, ErrBadSource)
}
