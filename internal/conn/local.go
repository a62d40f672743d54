package conn

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/nodescout/nodescout/internal/core"
)

// LocalShell runs commands on the machine the engine itself runs on. Each
// command goes through `sh -c` in its own process group so a timeout can
// kill the whole group, shell included.
type LocalShell struct{}

// NewLocalShell creates a local transport.
func NewLocalShell() *LocalShell {
	return &LocalShell{}
}

// Connect is a no-op for the local shell.
func (s *LocalShell) Connect(_ context.Context) error {
	return nil
}

// Close is a no-op for the local shell.
func (s *LocalShell) Close() error {
	return nil
}

// localCommand applies sudo shaping for local execution.
func localCommand(cmd Command) string {
	if cmd.Sudo {
		return "sudo " + cmd.Cmd
	}
	return cmd.Cmd
}

// Execute runs one command and captures its full transcript. A non-zero exit
// is returned as data; only timeouts and spawn failures produce an error.
func (s *LocalShell) Execute(ctx context.Context, cmd Command) (*CommandResult, error) {
	full := localCommand(cmd)
	timeout := cmd.Timeout
	if timeout <= 0 {
		timeout = DefaultCommandTimeout
	}

	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// #nosec G204 -- command strings come from registered probes and validated config
	c := exec.CommandContext(cctx, "sh", "-c", full)
	configureProcAttr(c)
	c.Cancel = func() error { return killProcess(c) }
	c.WaitDelay = 5 * time.Second

	var stdout, stderr bytes.Buffer
	c.Stdout = &stdout
	c.Stderr = &stderr

	if len(cmd.Env) > 0 {
		c.Env = os.Environ()
		for k, v := range cmd.Env {
			c.Env = append(c.Env, k+"="+v)
		}
	}

	start := time.Now()
	runErr := c.Run()

	res := &CommandResult{
		Command:  full,
		Stdout:   strings.TrimSpace(stdout.String()),
		Stderr:   strings.TrimSpace(stderr.String()),
		Duration: time.Since(start),
	}

	if cctx.Err() == context.DeadlineExceeded {
		res.ExitCode = timeoutExitCode
		return res, core.ErrCommandTimeout(full, timeout)
	}
	if cctx.Err() != nil {
		return res, cctx.Err()
	}

	if runErr != nil {
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
			return res, nil
		}
		return res, core.ErrConnection("local shell", runErr.Error())
	}

	res.ExitCode = 0
	return res, nil
}
