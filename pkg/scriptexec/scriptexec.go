// Package scriptexec implements the external script contract shared by
// monitor trigger-condition gates and the Script notifier (spec.md §4.9):
// spawn a child process, write a single JSON envelope to stdin and close
// it, capture stdout under a timeout, and classify the outcome.
package scriptexec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/blockwatch/sentinel/internal/model"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Envelope is the JSON document written to the script's stdin.
type Envelope struct {
	MonitorMatch interface{} `json:"monitor_match"`
	Args         string      `json:"args"`
}

// Result is one script run's captured outcome.
type Result struct {
	Stdout   []byte
	ExitCode int
	TimedOut bool
	RunErr   error // non-nil if the process could not be started at all
}

// Run spawns path with args, writes the JSON-encoded envelope to stdin,
// closes it, and waits up to timeout for the process to exit, capturing
// stdout. On timeout the process is killed.
func Run(ctx context.Context, path string, args []string, match interface{}, timeout time.Duration) Result {
	body, err := json.Marshal(Envelope{MonitorMatch: match, Args: strings.Join(args, " ")})
	if err != nil {
		return Result{RunErr: fmt.Errorf("marshaling script envelope: %w", err)}
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, path, args...)
	cmd.Stdin = bytes.NewReader(body)
	var stdout bytes.Buffer
	cmd.Stdout = &stdout

	err = cmd.Run()
	if runCtx.Err() == context.DeadlineExceeded {
		return Result{Stdout: stdout.Bytes(), TimedOut: true, RunErr: runCtx.Err()}
	}
	if err == nil {
		return Result{Stdout: stdout.Bytes(), ExitCode: 0}
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return Result{Stdout: stdout.Bytes(), ExitCode: exitErr.ExitCode()}
	}
	return Result{RunErr: fmt.Errorf("running script %s: %w", path, err)}
}

// ClassifyFilter implements the filter-script gate rule (spec.md §4.9):
// timeout, start failure, or non-zero exit all classify as false; a
// successful exit classifies by the last non-empty stdout line.
func ClassifyFilter(r Result) bool {
	if r.TimedOut || r.RunErr != nil || r.ExitCode != 0 {
		return false
	}
	line := lastNonEmptyLine(r.Stdout)
	return line == "true"
}

// ClassifyNotify implements the Script-notifier outcome rule (spec.md
// §4.8/§4.9): timeout or start failure is Retryable, non-zero exit is
// Retryable, a clean exit is Ok.
func ClassifyNotify(r Result) model.NotifyOutcome {
	if r.TimedOut || r.RunErr != nil || r.ExitCode != 0 {
		return model.NotifyRetryable
	}
	return model.NotifyOk
}

func lastNonEmptyLine(stdout []byte) string {
	lines := strings.Split(strings.TrimRight(string(stdout), "\n"), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if line != "" {
			return line
		}
	}
	return ""
}
