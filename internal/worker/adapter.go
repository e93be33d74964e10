package worker

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"runtime/debug"
	"strings"

	"go.uber.org/zap"

	"github.com/Mirai3103/remote-grader/internal/models"
)

// EmptyInputMessage is reported when the input channel carries no bytes.
const EmptyInputMessage = "Empty input"

// Grader is the execution harness seen by the adapter.
type Grader interface {
	Run(req models.Request) models.RunResult
}

// Adapter turns one request read from an input channel into one JSON
// response line on an output channel.
type Adapter struct {
	grader Grader
	log    *zap.SugaredLogger
}

func NewAdapter(grader Grader, log *zap.SugaredLogger) *Adapter {
	return &Adapter{grader: grader, log: log}
}

// Serve never panics and always writes exactly one line. The returned
// error only reports a failure to write that line.
func (a *Adapter) Serve(in io.Reader, out io.Writer) error {
	return writeLine(out, a.respond(in))
}

func (a *Adapter) respond(in io.Reader) (resp any) {
	defer func() {
		if r := recover(); r != nil {
			a.log.Errorw("worker panicked", "panic", r)
			resp = systemError(fmt.Errorf("%v", r), string(debug.Stack()))
		}
	}()

	data, err := io.ReadAll(in)
	if err != nil {
		return systemError(fmt.Errorf("read input: %w", err), trace(err))
	}
	if len(data) == 0 {
		a.log.Warnw("empty input")
		return models.ErrorResponse{Error: EmptyInputMessage}
	}

	req, err := models.DecodeRequest(data)
	if err != nil {
		a.log.Errorw("malformed request", "error", err)
		return systemError(err, trace(err))
	}
	a.log.Debugw("request decoded", "tests", len(req.Tests), "codeBytes", len(req.Code))
	return a.grader.Run(req)
}

func systemError(err error, trace string) models.RunResult {
	return models.RunResult{
		Stdout:  fmt.Sprintf("System Error in Sandbox: %v\n%s", err, trace),
		Success: false,
		Passed:  0,
	}
}

// trace renders the error chain, outermost first, one cause per line.
func trace(err error) string {
	var b strings.Builder
	b.WriteString("Trace:\n")
	for depth := 0; err != nil; depth++ {
		fmt.Fprintf(&b, "%s%T: %v\n", strings.Repeat("  ", depth), err, err)
		var ve *models.ValidationError
		if errors.As(err, &ve) {
			for _, cause := range ve.Causes {
				fmt.Fprintf(&b, "%s- %s\n", strings.Repeat("  ", depth+1), cause)
			}
		}
		err = errors.Unwrap(err)
	}
	return b.String()
}

// emptyInputLine is written byte for byte; consumers match on it.
const emptyInputLine = `{"error": "` + EmptyInputMessage + `"}`

func writeLine(out io.Writer, resp any) error {
	if r, ok := resp.(models.ErrorResponse); ok && r.Error == EmptyInputMessage {
		_, err := io.WriteString(out, emptyInputLine+"\n")
		return err
	}
	data, err := json.Marshal(resp)
	if err != nil {
		data, _ = json.Marshal(systemError(err, trace(err)))
	}
	data = append(data, '\n')
	_, err = out.Write(data)
	return err
}
