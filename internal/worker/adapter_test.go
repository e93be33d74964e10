package worker

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/Mirai3103/remote-grader/internal/core"
	"github.com/Mirai3103/remote-grader/internal/logging"
	"github.com/Mirai3103/remote-grader/internal/models"
)

type graderFunc func(models.Request) models.RunResult

func (f graderFunc) Run(req models.Request) models.RunResult { return f(req) }

func serve(t *testing.T, g Grader, input string) string {
	t.Helper()
	var out bytes.Buffer
	if err := NewAdapter(g, logging.Nop()).Serve(strings.NewReader(input), &out); err != nil {
		t.Fatalf("Serve: %v", err)
	}
	if strings.Count(out.String(), "\n") != 1 || !strings.HasSuffix(out.String(), "\n") {
		t.Fatalf("expected exactly one line, got %q", out.String())
	}
	return out.String()
}

func decodeResult(t *testing.T, line string) models.RunResult {
	t.Helper()
	var res models.RunResult
	if err := json.Unmarshal([]byte(line), &res); err != nil {
		t.Fatalf("response is not a run result: %v (%q)", err, line)
	}
	return res
}

func realGrader() Grader {
	return core.NewRunner(nil, logging.Nop())
}

func TestServeEmptyInput(t *testing.T) {
	called := false
	g := graderFunc(func(models.Request) models.RunResult { called = true; return models.RunResult{} })
	line := serve(t, g, "")
	if line != `{"error": "Empty input"}`+"\n" {
		t.Errorf("line = %q", line)
	}
	if called {
		t.Error("grader must not run on empty input")
	}
}

func TestServePassesDecodedRequest(t *testing.T) {
	var got models.Request
	g := graderFunc(func(req models.Request) models.RunResult {
		got = req
		return models.RunResult{Stdout: "ok", Success: true, Passed: 2}
	})
	line := serve(t, g, `{"code":"x = 1","tests":[{"code":"a"},{"code":"b"}]}`)
	if got.Code != "x = 1" || len(got.Tests) != 2 || got.Tests[1].Code != "b" {
		t.Errorf("grader received %+v", got)
	}
	if line != `{"stdout":"ok","success":true,"passed":2}`+"\n" {
		t.Errorf("line = %q", line)
	}
}

func TestServeDefaultsMissingFields(t *testing.T) {
	res := decodeResult(t, serve(t, realGrader(), `{}`))
	if !res.Success || res.Passed != 0 || res.Stdout != "" {
		t.Errorf("expected vacuous success, got %+v", res)
	}
}

func TestServeMalformedInput(t *testing.T) {
	for _, input := range []string{`{not json`, `{"tests": 3}`, `[]`, `{"tests":[{"input":"1"}]}`} {
		res := decodeResult(t, serve(t, realGrader(), input))
		if res.Success || res.Passed != 0 {
			t.Errorf("%s: expected failure, got %+v", input, res)
		}
		if !strings.HasPrefix(res.Stdout, "System Error in Sandbox: ") || !strings.Contains(res.Stdout, "Trace:") {
			t.Errorf("%s: stdout = %q", input, res.Stdout)
		}
	}
}

func TestServeRecoversFromPanics(t *testing.T) {
	g := graderFunc(func(models.Request) models.RunResult { panic("harness exploded") })
	res := decodeResult(t, serve(t, g, `{"code":""}`))
	if res.Success || res.Passed != 0 {
		t.Fatalf("expected failure, got %+v", res)
	}
	if !strings.Contains(res.Stdout, "harness exploded") || !strings.Contains(res.Stdout, "goroutine") {
		t.Errorf("expected panic value and stack, got %q", res.Stdout)
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("pipe broke") }

func TestServeReadFailure(t *testing.T) {
	var out bytes.Buffer
	if err := NewAdapter(realGrader(), logging.Nop()).Serve(failingReader{}, &out); err != nil {
		t.Fatal(err)
	}
	res := decodeResult(t, out.String())
	if !strings.Contains(res.Stdout, "pipe broke") {
		t.Errorf("stdout = %q", res.Stdout)
	}
}

func TestServeEndToEnd(t *testing.T) {
	input := `{"code":"def hello():\n    return 'Hello World'\n","tests":[` +
		`{"code":"assert.eq(hello(), 'Hello World')"},` +
		`{"code":"assert.eq(hello(), 'x', 'Should be x')"},` +
		`{"code":"assert.true(hello())"}]}`
	res := decodeResult(t, serve(t, realGrader(), input))
	if res.Passed != 2 || res.Success {
		t.Fatalf("got %+v", res)
	}
	want := "[PASS] Test 1\n[FAIL] Test 2: Should be x\n[PASS] Test 3\n"
	if res.Stdout != want {
		t.Errorf("stdout = %q, want %q", res.Stdout, want)
	}
}

func TestServeBlockedSubmission(t *testing.T) {
	res := decodeResult(t, serve(t, realGrader(), `{"code":"load(\"subprocess\", \"run\")","tests":[{"code":"pass"}]}`))
	if res.Success || res.Passed != 0 || !strings.HasPrefix(res.Stdout, "[SECURITY BLOCK] ") {
		t.Errorf("got %+v", res)
	}
}
