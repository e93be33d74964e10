package host

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/Mirai3103/remote-grader/internal/models"
)

// Limits are applied when a submission does not carry its own.
type Limits struct {
	TimeLimitMs   int `mapstructure:"timeLimitMs"`
	MemoryLimitKb int `mapstructure:"memoryLimitKb"`
	MaxOutputKb   int `mapstructure:"maxOutputKb"`
}

// Client grades submissions by launching one worker process each.
type Client struct {
	executor Executor
	command  []string
	limits   Limits
	log      *zap.SugaredLogger
}

func NewClient(executor Executor, command []string, limits Limits, log *zap.SugaredLogger) *Client {
	return &Client{executor: executor, command: command, limits: limits, log: log}
}

// Grade never returns an error; host and worker failures are folded into
// the result the way the learner would see them.
func (c *Client) Grade(ctx context.Context, sub models.Submission) models.SubmissionResult {
	result := models.SubmissionResult{
		SubmissionID: sub.ID,
		Total:        len(sub.Tests),
	}

	payload, err := json.Marshal(sub.Request())
	if err != nil {
		return failed(result, models.InternalError, "JSON Error", err)
	}

	req := RunRequest{
		SubmissionID:  sub.ID,
		Command:       c.command,
		Input:         payload,
		TimeLimitMs:   pick(sub.TimeLimitInMs, c.limits.TimeLimitMs),
		MemoryLimitKb: pick(sub.MemoryLimitInKb, c.limits.MemoryLimitKb),
		MaxOutputKb:   c.limits.MaxOutputKb,
	}
	res, err := c.executor.Execute(ctx, req)
	if err != nil {
		c.log.Errorw("worker execution failed", "submissionId", sub.ID, "error", err)
		return failed(result, models.InternalError, "Sandbox System Error: could not run the worker", err)
	}
	result.Status = res.Status
	result.TimeUsedInMs = res.TimeUsedMs
	result.MemoryUsedInKb = res.MemoryUsedKb

	switch res.Status {
	case models.TimeLimitExceeded:
		result.Stdout = fmt.Sprintf("Time Limit Exceeded: no response within %d ms", req.TimeLimitMs)
		return result
	case models.MemoryLimitExceeded:
		result.Stdout = fmt.Sprintf("Memory Limit Exceeded: worker used more than %d KB", req.MemoryLimitKb)
		return result
	case models.OutputLimitExceeded:
		result.Stdout = fmt.Sprintf("Output Limit Exceeded: response larger than %d KB", req.MaxOutputKb)
		return result
	case models.RuntimeError:
		result.Stdout = "Sandbox System Error:\n" + res.Stdout + res.Stderr
		result.Error = fmt.Sprintf("worker exited with code %d", res.ExitCode)
		return result
	}

	var resp models.RunResult
	if err := json.Unmarshal(lastLine([]byte(res.Stdout)), &resp); err != nil {
		result.Status = models.RuntimeError
		result.Stdout = "Sandbox Crash:\n" + res.Stdout
		result.Error = err.Error()
		return result
	}
	result.Stdout = resp.Stdout
	result.Success = resp.Success
	result.Passed = resp.Passed
	return result
}

func failed(result models.SubmissionResult, status models.ExecStatus, stdout string, err error) models.SubmissionResult {
	result.Status = status
	result.Stdout = stdout
	result.Error = err.Error()
	return result
}

func pick(override, fallback int) int {
	if override > 0 {
		return override
	}
	return fallback
}

// lastLine returns the final non-empty line; the worker's response is
// always the last thing it writes.
func lastLine(out []byte) []byte {
	out = bytes.TrimRight(out, "\r\n")
	if i := bytes.LastIndexByte(out, '\n'); i >= 0 {
		return out[i+1:]
	}
	return out
}
