package dispatch

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/jhartig/kapsel/internal/docker"
	"github.com/jhartig/kapsel/internal/registry"
	"github.com/jhartig/kapsel/internal/stage"
)

// RunScript stages one script file into a sandbox and starts it detached.
// Returns the new session id immediately; output is retrieved later via
// Result once the sandbox has exited.
func (d *Dispatcher) RunScript(ctx context.Context, file stage.File) (string, error) {
	if file.Name == "" {
		return "", ErrNoFile
	}
	entry, err := stage.SafeName(file.Name)
	if err != nil {
		return "", err
	}
	if !strings.HasSuffix(entry, ".py") {
		return "", fmt.Errorf("%w: %s", ErrBadScriptType, entry)
	}

	bundle, err := stage.Build([]stage.File{{Name: entry, Data: file.Data}})
	if err != nil {
		return "", err
	}

	sessionID := newSessionID()
	runCmd := []string{"python", path.Join(stage.WorkDir, entry)}

	if containerID, ok := d.pool.Acquire(); ok {
		// Pooled sandbox is already running: inject, then exec detached.
		// The detached exec writes to its own stream, not the container log,
		// so Result cannot return output for pooled scripts and reports the
		// session as running until the sweeper reaps it. Wrapping the command
		// in `sh -c '... > /proc/1/fd/1 2>&1'` would route output to the
		// container log and make it retrievable.
		if err := stage.Inject(ctx, d.runtime, containerID, bundle); err != nil {
			d.release(ctx, containerID)
			return "", err
		}
		if _, err := d.runtime.Exec(ctx, containerID, docker.ExecOpts{Cmd: runCmd, WorkDir: stage.WorkDir, Detach: true}); err != nil {
			d.release(ctx, containerID)
			return "", fmt.Errorf("start script: %w", err)
		}
		d.record(sessionID, containerID, registry.ModeScript)
		d.logger.Info("script dispatched", "session_id", sessionID, "container", containerID, "pooled", true)
		return sessionID, nil
	}

	// Cold path: the script is the container's entrypoint, injected before
	// start so the sandbox exits when the script does.
	containerID, err := d.runtime.CreateSandbox(ctx, d.createOpts(sessionID, runCmd))
	if err != nil {
		return "", fmt.Errorf("create sandbox: %w", err)
	}
	if err := stage.Inject(ctx, d.runtime, containerID, bundle); err != nil {
		d.release(ctx, containerID)
		return "", err
	}
	if err := d.runtime.StartSandbox(ctx, containerID); err != nil {
		d.release(ctx, containerID)
		return "", fmt.Errorf("start sandbox: %w", err)
	}

	d.record(sessionID, containerID, registry.ModeScript)
	d.logger.Info("script dispatched", "session_id", sessionID, "container", containerID, "pooled", false)
	return sessionID, nil
}
