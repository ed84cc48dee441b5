package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jhartig/kapsel/internal/docker"
	"github.com/jhartig/kapsel/internal/stage"
)

// Test run status, classified by the test runner's exit code.
const (
	StatusSuccess        = "success"         // exit 0: all tests passed
	StatusPartialSuccess = "partial_success" // exit 1: run completed, some tests failed
	StatusFailure        = "failure"         // anything else: collection error, crash, missing runner
)

var installCmd = []string{"pip", "install", "--quiet", "pytest", "pytest-json-report"}

// TestSummary holds counts extracted from the runner's JSON report.
type TestSummary struct {
	Passed   int     `json:"passed"`
	Failed   int     `json:"failed"`
	Total    int     `json:"total"`
	Duration float64 `json:"duration"`
}

// TestResult is the synchronous outcome of a test-mode run.
type TestResult struct {
	Status    string       `json:"status"`
	ExitCode  int          `json:"exit_code"`
	Summary   *TestSummary `json:"summary"`
	RawOutput string       `json:"raw_output"`
	SessionID string       `json:"session_id"`
}

// RunTests stages the submitted files into a sandbox, installs the test
// runner, executes it synchronously and classifies the outcome. The sandbox
// is released on every path, pooled or not: pooled sandboxes are single-use.
func (d *Dispatcher) RunTests(ctx context.Context, files []stage.File) (*TestResult, error) {
	if len(files) == 0 {
		return nil, ErrNoFiles
	}

	staged := make([]stage.File, 0, len(files))
	var testFiles []string
	for _, f := range files {
		name, err := stage.SafeName(f.Name)
		if err != nil {
			return nil, err
		}
		staged = append(staged, stage.File{Name: name, Data: f.Data})
		if isTestFile(name) {
			testFiles = append(testFiles, name)
		}
	}
	if len(testFiles) == 0 {
		return nil, ErrNoTestFiles
	}

	bundle, err := stage.Build(staged)
	if err != nil {
		return nil, err
	}

	sessionID := newSessionID()
	containerID, err := d.acquireRunning(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	// Single-use sandbox: released no matter how the run ends.
	defer d.release(ctx, containerID)

	if err := stage.Inject(ctx, d.runtime, containerID, bundle); err != nil {
		return nil, err
	}

	// Install the runner; a failed install surfaces as a non-zero pytest
	// exit below, so only transport errors abort here.
	if _, err := d.runtime.Exec(ctx, containerID, docker.ExecOpts{Cmd: installCmd, WorkDir: stage.WorkDir}); err != nil {
		return nil, fmt.Errorf("install test runner: %w", err)
	}

	runCmd := append([]string{"pytest"}, testFiles...)
	runCmd = append(runCmd, "--json-report", "--no-header", "-v")
	res, err := d.runtime.Exec(ctx, containerID, docker.ExecOpts{Cmd: runCmd, WorkDir: stage.WorkDir})
	if err != nil {
		return nil, fmt.Errorf("run tests: %w", err)
	}

	status := classify(res.ExitCode)
	d.metrics.ObserveTestRun(status)
	d.metrics.ObserveSession("test")
	d.logger.Info("test run finished", "session_id", sessionID, "status", status, "exit_code", res.ExitCode)

	return &TestResult{
		Status:    status,
		ExitCode:  res.ExitCode,
		Summary:   parseReport(res.Output),
		RawOutput: res.Output,
		SessionID: sessionID,
	}, nil
}

// acquireRunning returns a running sandbox: pooled if available, otherwise a
// fresh idle one created on demand.
func (d *Dispatcher) acquireRunning(ctx context.Context, sessionID string) (string, error) {
	if containerID, ok := d.pool.Acquire(); ok {
		return containerID, nil
	}
	containerID, err := d.runtime.CreateSandbox(ctx, d.createOpts(sessionID, []string{"sleep", "3600"}))
	if err != nil {
		return "", fmt.Errorf("create sandbox: %w", err)
	}
	if err := d.runtime.StartSandbox(ctx, containerID); err != nil {
		d.release(ctx, containerID)
		return "", fmt.Errorf("start sandbox: %w", err)
	}
	return containerID, nil
}

// isTestFile reports whether a base file name follows the test naming
// convention: test_*.py or *_test.py.
func isTestFile(name string) bool {
	if !strings.HasSuffix(name, ".py") {
		return false
	}
	return strings.HasPrefix(name, "test_") || strings.HasSuffix(name, "_test.py")
}

// classify partitions all exit codes into the three run outcomes.
func classify(exitCode int) string {
	switch exitCode {
	case 0:
		return StatusSuccess
	case 1:
		return StatusPartialSuccess
	default:
		return StatusFailure
	}
}

// parseReport extracts the summary from a JSON report embedded in the run
// output. Any parse problem degrades to a nil summary, never an error.
func parseReport(output string) *TestSummary {
	idx := strings.Index(output, `{"report":`)
	if idx < 0 {
		return nil
	}
	var wrapper struct {
		Report *TestSummary `json:"report"`
	}
	dec := json.NewDecoder(strings.NewReader(output[idx:]))
	if err := dec.Decode(&wrapper); err != nil {
		return nil
	}
	return wrapper.Report
}
