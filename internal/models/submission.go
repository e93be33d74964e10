package models

// TestOutcomeStatus is the result of running one test snippet.
type TestOutcomeStatus string

const (
	Passed  TestOutcomeStatus = "passed"
	Failed  TestOutcomeStatus = "failed"
	Errored TestOutcomeStatus = "errored"
)

// ExecStatus is the process-level outcome reported by the host.
type ExecStatus string

const (
	Success             ExecStatus = "success"
	RuntimeError        ExecStatus = "runtime_error"
	TimeLimitExceeded   ExecStatus = "time_limit_exceeded"
	MemoryLimitExceeded ExecStatus = "memory_limit_exceeded"
	OutputLimitExceeded ExecStatus = "output_limit_exceeded"
	Running             ExecStatus = "running"
	InternalError       ExecStatus = "internal_error"
)

// Request is the single message read by the worker.
type Request struct {
	Code  string     `json:"code,omitempty" jsonschema:"description=Submission source"`
	Tests []TestCase `json:"tests,omitempty" jsonschema:"description=Test snippets run in order after the submission"`
}

type TestCase struct {
	Code string `json:"code" jsonschema:"description=Snippet executed against the submission's globals"`
}

// RunResult is the worker's response for a graded, blocked or failed run.
type RunResult struct {
	Stdout  string `json:"stdout"`
	Success bool   `json:"success"`
	Passed  int    `json:"passed"`
}

// ErrorResponse is only emitted for empty input.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Submission is what the host receives over the transport.
type Submission struct {
	ID              string     `json:"id" yaml:"id"`
	Code            string     `json:"code" yaml:"code"`
	Tests           []TestCase `json:"tests" yaml:"tests"`
	TimeLimitInMs   int        `json:"timeLimitInMs,omitempty" yaml:"timeLimitInMs,omitempty"`
	MemoryLimitInKb int        `json:"memoryLimitInKb,omitempty" yaml:"memoryLimitInKb,omitempty"`
}

// Request strips the host-only fields.
func (s Submission) Request() Request {
	return Request{Code: s.Code, Tests: s.Tests}
}

// SubmissionResult is published by the host once per submission.
type SubmissionResult struct {
	SubmissionID   string     `json:"submissionId"`
	Status         ExecStatus `json:"status"`
	Stdout         string     `json:"stdout"`
	Success        bool       `json:"success"`
	Passed         int        `json:"passed"`
	Total          int        `json:"total"`
	TimeUsedInMs   int        `json:"timeUsedInMs"`
	MemoryUsedInKb int        `json:"memoryUsedInKb"`
	Error          string     `json:"error,omitempty"`
}
