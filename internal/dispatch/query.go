package dispatch

import (
	"context"
	"fmt"
)

// PollResult is the outcome of a result query. Logs are only populated once
// the sandbox has exited.
type PollResult struct {
	Running bool
	Logs    string
}

// Result polls a script session: still running, or finished with its
// accumulated output.
func (d *Dispatcher) Result(ctx context.Context, sessionID string) (*PollResult, error) {
	sess, err := d.registry.Get(sessionID)
	if err != nil {
		return nil, err
	}

	running, err := d.runtime.IsRunning(ctx, sess.ContainerID)
	if err != nil {
		return nil, fmt.Errorf("checking sandbox status: %w", err)
	}
	if running {
		return &PollResult{Running: true}, nil
	}

	logs, err := d.runtime.Logs(ctx, sess.ContainerID)
	if err != nil {
		return nil, fmt.Errorf("retrieving logs: %w", err)
	}
	return &PollResult{Logs: logs}, nil
}

// Cleanup removes a session and releases its sandbox. The session is gone
// once removed from the registry, so a repeated cleanup reports not-found
// even if the release below failed.
func (d *Dispatcher) Cleanup(ctx context.Context, sessionID string) error {
	sess, err := d.registry.Delete(sessionID)
	if err != nil {
		return err
	}
	if err := d.runtime.StopRemove(ctx, sess.ContainerID); err != nil {
		return fmt.Errorf("releasing sandbox: %w", err)
	}
	d.logger.Info("session cleaned up", "session_id", sessionID, "container", sess.ContainerID)
	return nil
}
