package host

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"sync/atomic"
	"time"

	"github.com/shirou/gopsutil/v3/process"
	"go.uber.org/zap"

	"github.com/Mirai3103/remote-grader/internal/models"
)

const memoryPollInterval = 20 * time.Millisecond

// directExecutor runs the worker as a plain child process. It bounds time
// and resident memory but provides no filesystem or network isolation.
type directExecutor struct {
	log *zap.SugaredLogger
}

func NewDirectExecutor(log *zap.SugaredLogger) Executor {
	return &directExecutor{log: log}
}

func (e *directExecutor) ID() string {
	return "direct_executor_v1_mem_monitored"
}

func (e *directExecutor) Execute(ctx context.Context, req RunRequest) (*ExecuteResult, error) {
	if len(req.Command) == 0 {
		return nil, &Error{Type: ErrInternal, Message: "empty worker command"}
	}
	log := e.log.With("executor", e.ID(), "submissionId", req.SubmissionID)

	runCtx := ctx
	if req.TimeLimitMs > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, time.Duration(req.TimeLimitMs)*time.Millisecond)
		defer cancel()
	}

	cmd := exec.Command(req.Command[0], req.Command[1:]...)
	stdout := &cappedBuffer{limit: req.MaxOutputKb * 1024}
	var stderr bytes.Buffer
	cmd.Stdout = stdout
	cmd.Stderr = &stderr
	cmd.Stdin = bytes.NewReader(req.Input)

	startTime := time.Now()
	if err := cmd.Start(); err != nil {
		log.Errorw("failed to start worker", "command", req.Command, "error", err)
		return nil, &Error{Type: ErrCmdStart, Message: "failed to start worker", Cause: err}
	}
	pid := int32(cmd.Process.Pid)
	log.Debugw("worker started", "pid", pid, "timeLimitMs", req.TimeLimitMs, "memoryLimitKb", req.MemoryLimitKb)

	errChan := make(chan error, 1)
	go func() {
		errChan <- cmd.Wait()
	}()

	var maxMemUsage atomic.Uint64
	var memoryLimitExceeded atomic.Bool
	monitorCtx, monitorCancel := context.WithCancel(context.Background())
	defer monitorCancel()

	go func() {
		ticker := time.NewTicker(memoryPollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-monitorCtx.Done():
				return
			case <-ticker.C:
				proc, err := process.NewProcess(pid)
				if err != nil {
					continue
				}
				memInfo, err := proc.MemoryInfo()
				if err != nil {
					continue
				}
				current := memInfo.RSS
				if current > maxMemUsage.Load() {
					maxMemUsage.Store(current)
				}
				if req.MemoryLimitKb > 0 && current/1024 > uint64(req.MemoryLimitKb) {
					memoryLimitExceeded.Store(true)
					log.Warnw("memory limit exceeded", "pid", pid, "usageKb", current/1024, "limitKb", req.MemoryLimitKb)
					if err := cmd.Process.Kill(); err != nil {
						log.Errorw("failed to kill worker", "pid", pid, "error", err)
					}
					return
				}
			}
		}
	}()

	status := models.Running
	exitCode := 0
	select {
	case err := <-errChan:
		monitorCancel()
		if err != nil {
			var exitErr *exec.ExitError
			if !errors.As(err, &exitErr) && !memoryLimitExceeded.Load() {
				log.Errorw("worker wait failed", "error", err)
				return nil, &Error{Type: ErrCmdWait, Message: "worker wait failed with unexpected error", Cause: err}
			}
			exitCode = -1
			if exitErr != nil {
				exitCode = exitErr.ExitCode()
			}
			status = models.RuntimeError
		} else {
			status = models.Success
		}

	case <-runCtx.Done():
		monitorCancel()
		if err := cmd.Process.Kill(); err != nil {
			log.Errorw("failed to kill worker on timeout", "pid", pid, "error", err)
		}
		<-errChan
		status = models.TimeLimitExceeded
		exitCode = -1
	}

	timeUsedMs := int(time.Since(startTime).Milliseconds())
	switch {
	case memoryLimitExceeded.Load():
		status = models.MemoryLimitExceeded
	case status == models.TimeLimitExceeded:
	case req.TimeLimitMs > 0 && timeUsedMs > req.TimeLimitMs:
		status = models.TimeLimitExceeded
	case stdout.overflow:
		status = models.OutputLimitExceeded
	}

	result := &ExecuteResult{
		Status:       status,
		Stdout:       stdout.String(),
		Stderr:       stderr.String(),
		ExitCode:     exitCode,
		TimeUsedMs:   timeUsedMs,
		MemoryUsedKb: int(maxMemUsage.Load() / 1024),
	}
	log.Infow("worker finished", "status", result.Status, "timeMs", result.TimeUsedMs, "memoryKb", result.MemoryUsedKb)
	return result, nil
}

// cappedBuffer keeps at most limit bytes and records whether more arrived.
// A zero limit keeps everything. The buffer is a named field so that
// io.Copy cannot bypass Write through a promoted ReadFrom.
type cappedBuffer struct {
	buf      bytes.Buffer
	limit    int
	overflow bool
}

func (b *cappedBuffer) Write(p []byte) (int, error) {
	if b.limit <= 0 {
		return b.buf.Write(p)
	}
	if room := b.limit - b.buf.Len(); len(p) > room {
		b.overflow = true
		if room > 0 {
			b.buf.Write(p[:room])
		}
		return len(p), nil
	}
	return b.buf.Write(p)
}

func (b *cappedBuffer) String() string {
	return b.buf.String()
}
