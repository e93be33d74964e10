package core

import (
	"errors"
	"fmt"
	"strings"

	"go.starlark.net/starlark"
	"go.uber.org/zap"

	"github.com/Mirai3103/remote-grader/internal/core/env"
	"github.com/Mirai3103/remote-grader/internal/core/policy"
	"github.com/Mirai3103/remote-grader/internal/models"
)

const (
	submissionFile = "submission.star"

	// MissingAssertionMessage replaces an empty assertion message.
	MissingAssertionMessage = "condition not satisfied"
)

// TestOutcome is the recoverable per-test result.
type TestOutcome struct {
	Index  int
	Status models.TestOutcomeStatus
	Reason string
}

// Line renders the status line appended to the run output.
func (o TestOutcome) Line() string {
	switch o.Status {
	case models.Passed:
		return fmt.Sprintf("[PASS] Test %d", o.Index)
	case models.Failed:
		return fmt.Sprintf("[FAIL] Test %d: %s", o.Index, o.Reason)
	default:
		return fmt.Sprintf("[FAIL] Test %d: execution error - %s", o.Index, o.Reason)
	}
}

// Runner gates a submission through the policy analyzer and grades it
// against its tests in one shared restricted namespace.
type Runner struct {
	policy *policy.Policy
	log    *zap.SugaredLogger
}

func NewRunner(p *policy.Policy, log *zap.SugaredLogger) *Runner {
	if p == nil {
		p = policy.DefaultPolicy()
	}
	return &Runner{policy: p, log: log}
}

// Run grades one request. Per-test failures are recorded and the loop
// continues; only a failing submission aborts the run.
func (r *Runner) Run(req models.Request) models.RunResult {
	verdict := r.policy.Analyze(submissionFile, req.Code)
	if verdict.Rejected() {
		r.log.Warnw("submission blocked", "reason", verdict.Reason)
		return models.RunResult{
			Stdout:  "[SECURITY BLOCK] " + verdict.Reason,
			Success: false,
			Passed:  0,
		}
	}

	globals := env.Restricted()
	var out strings.Builder
	thread := &starlark.Thread{
		Name: "grader",
		Print: func(_ *starlark.Thread, msg string) {
			out.WriteString(msg)
			out.WriteByte('\n')
		},
		Load: env.Loader(globals),
	}

	if err := execChunk(thread, submissionFile, req.Code, globals); err != nil {
		r.log.Infow("submission failed to execute", "error", err)
		return models.RunResult{
			Stdout:  out.String() + "\nRuntime Error: " + describe(err),
			Success: false,
			Passed:  0,
		}
	}

	passed := 0
	for i, tc := range req.Tests {
		outcome := runTest(thread, i+1, tc, globals)
		if outcome.Status == models.Passed {
			passed++
		}
		out.WriteString(outcome.Line())
		out.WriteByte('\n')
	}
	r.log.Infow("submission graded", "passed", passed, "total", len(req.Tests))

	return models.RunResult{
		Stdout:  out.String(),
		Success: passed == len(req.Tests),
		Passed:  passed,
	}
}

func runTest(thread *starlark.Thread, index int, tc models.TestCase, globals starlark.StringDict) TestOutcome {
	err := execChunk(thread, fmt.Sprintf("test_%d.star", index), tc.Code, globals)
	if err == nil {
		return TestOutcome{Index: index, Status: models.Passed}
	}
	var assertion *env.AssertionError
	if errors.As(err, &assertion) {
		msg := assertion.Msg
		if msg == "" {
			msg = MissingAssertionMessage
		}
		return TestOutcome{Index: index, Status: models.Failed, Reason: msg}
	}
	return TestOutcome{Index: index, Status: models.Errored, Reason: describe(err)}
}

// execChunk runs src against globals without freezing them, so later
// chunks see and may mutate everything earlier chunks defined.
func execChunk(thread *starlark.Thread, filename, src string, globals starlark.StringDict) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("internal interpreter error: %v", r)
		}
	}()
	f, err := policy.FileOptions.Parse(filename, src, 0)
	if err != nil {
		return err
	}
	return starlark.ExecREPLChunk(f, thread, globals)
}

func describe(err error) string {
	var evalErr *starlark.EvalError
	if errors.As(err, &evalErr) {
		return evalErr.Msg
	}
	return err.Error()
}
