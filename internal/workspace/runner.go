package workspace

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
)

// ShellRunner starts tasks with `sh -c` in the background and logs how they finish.
type ShellRunner struct {
	Logger *slog.Logger
}

// Run starts command in dir. It returns once the process has started.
func (r ShellRunner) Run(_ context.Context, dir string, command string) error {
	cmd := exec.Command("sh", "-c", command)
	cmd.Dir = dir
	var output strings.Builder
	cmd.Stdout = &output
	cmd.Stderr = &output
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start task %q: %w", command, err)
	}

	go func() {
		err := cmd.Wait()
		if r.Logger == nil {
			return
		}
		tail := output.String()
		if len(tail) > 2000 {
			tail = tail[len(tail)-2000:]
		}
		if err != nil {
			r.Logger.Warn("task failed", "command", command, "error", err.Error(), "output", tail)
			return
		}
		r.Logger.Info("task finished", "command", command, "output", tail)
	}()
	return nil
}
