// Package conn provides the command execution transports used to reach a
// target system: a local shell, SSH for remote POSIX targets, and WinRM for
// remote Windows targets. A Manager picks the transport from the system
// location, keeps one authenticated session alive for the whole run, and
// resolves the target's OS family when it is not known up front.
package conn

import (
	"context"
	"time"
)

// Transport label values, used for logging and metrics.
const (
	TransportLocal = "local"
	TransportSSH   = "ssh"
	TransportWinRM = "winrm"
)

// DefaultCommandTimeout bounds commands that do not carry their own timeout.
const DefaultCommandTimeout = 5 * time.Minute

// defaultDialTimeout bounds transport establishment for remote targets.
const defaultDialTimeout = 10 * time.Second

// timeoutExitCode is reported for commands killed by their deadline.
// 124 matches the exit convention of timeout(1).
const timeoutExitCode = 124

// windowsCommandNotFound appears in cmd.exe output when a POSIX probe
// command is run against a Windows target.
const windowsCommandNotFound = "not recognized as an internal or external command"

// Command is one shell command to run on the target.
type Command struct {
	// Cmd is the command line, interpreted by the target's shell.
	Cmd string

	// Sudo requests privilege escalation. Honored on POSIX targets only.
	Sudo bool

	// Timeout bounds the command. Zero means the configured default.
	Timeout time.Duration

	// Env holds additional environment variables. Remote transports apply
	// them best effort.
	Env map[string]string
}

// CommandResult is the full transcript of one executed command. Output is
// whitespace-trimmed. A non-zero exit code is data, not an error: transports
// return an error only when the command could not run to completion.
type CommandResult struct {
	Command  string
	Stdout   string
	Stderr   string
	ExitCode int
	Duration time.Duration
}

// Shell runs commands on a target system. Probes depend on this interface
// only; the concrete transport is chosen by the Manager.
type Shell interface {
	Execute(ctx context.Context, cmd Command) (*CommandResult, error)
}

// transport is a Shell with an explicit connection lifecycle.
type transport interface {
	Shell
	Connect(ctx context.Context) error
	Close() error
}

// ReconnectPolicy bounds how transport establishment is retried. Individual
// commands are never retried; only the connection itself is.
type ReconnectPolicy struct {
	// MaxAttempts is the number of retries after the initial failure.
	MaxAttempts int `mapstructure:"max_attempts" json:"max_attempts" yaml:"max_attempts"`

	// Delay is the wait before the first retry.
	Delay time.Duration `mapstructure:"delay" json:"delay" yaml:"delay"`

	// Backoff multiplies the delay after each retry. Values <= 1 keep the
	// delay constant.
	Backoff float64 `mapstructure:"backoff" json:"backoff" yaml:"backoff"`
}

// DefaultReconnectPolicy returns the policy used when none is configured.
func DefaultReconnectPolicy() ReconnectPolicy {
	return ReconnectPolicy{
		MaxAttempts: 3,
		Delay:       2 * time.Second,
		Backoff:     1.5,
	}
}

// Run invokes connect until it succeeds or the retry budget is exhausted,
// returning the last failure. onRetry fires once per retry, before the
// backoff delay.
func (p ReconnectPolicy) Run(ctx context.Context, connect func() error, onRetry func(attempt int, cause error)) error {
	err := connect()
	if err == nil {
		return nil
	}
	delay := p.Delay
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if onRetry != nil {
			onRetry(attempt, err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		if err = connect(); err == nil {
			return nil
		}
		if p.Backoff > 1 {
			delay = time.Duration(float64(delay) * p.Backoff)
		}
	}
	return err
}

// truncateForLog shortens long command output for log records.
func truncateForLog(s string, maxLen int) string {
	if len(s) > maxLen {
		return s[:maxLen] + "... [truncated]"
	}
	return s
}
