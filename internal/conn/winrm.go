package conn

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/masterzen/winrm"

	"github.com/nodescout/nodescout/internal/core"
	"github.com/nodescout/nodescout/internal/logging"
	"github.com/nodescout/nodescout/internal/metrics"
)

// WinRMParams holds the credentials and endpoint for a WinRM transport.
type WinRMParams struct {
	Host     string `mapstructure:"host" json:"host" yaml:"host"`
	Port     int    `mapstructure:"port" json:"port,omitempty" yaml:"port,omitempty"`
	User     string `mapstructure:"user" json:"user" yaml:"user"`
	Password string `mapstructure:"password" json:"-" yaml:"-"`
	HTTPS    bool   `mapstructure:"https" json:"https,omitempty" yaml:"https,omitempty"`
	Insecure bool   `mapstructure:"insecure" json:"insecure,omitempty" yaml:"insecure,omitempty"`

	// DialTimeout bounds connection establishment. Zero means the default.
	DialTimeout time.Duration `mapstructure:"dial_timeout" json:"dial_timeout,omitempty" yaml:"dial_timeout,omitempty"`
}

func (p WinRMParams) validate() error {
	if p.Host == "" || p.User == "" || p.Password == "" {
		return errors.New("no WinRM credentials provided")
	}
	return nil
}

func (p WinRMParams) port() int {
	if p.Port == 0 {
		return 5985
	}
	return p.Port
}

// WinRMShell runs commands on a remote Windows target. The client is
// validated once by opening a shell; subsequent commands reuse it.
type WinRMShell struct {
	params  WinRMParams
	policy  ReconnectPolicy
	logger  *logging.Logger
	metrics *metrics.Metrics
	client  *winrm.Client
}

// NewWinRMShell creates a WinRM transport. Connect must be called before the
// first Execute.
func NewWinRMShell(params WinRMParams, policy ReconnectPolicy, logger *logging.Logger, m *metrics.Metrics) *WinRMShell {
	if logger == nil {
		logger = logging.NewNop()
	}
	if m == nil {
		m = metrics.New()
	}
	return &WinRMShell{
		params:  params,
		policy:  policy,
		logger:  logger.WithTransport(TransportWinRM),
		metrics: m,
	}
}

// Connect builds the WinRM client and proves the transport by opening and
// closing a shell, retrying per the reconnect policy.
func (s *WinRMShell) Connect(ctx context.Context) error {
	if s.client != nil {
		return nil
	}
	timeout := s.params.DialTimeout
	if timeout <= 0 {
		timeout = defaultDialTimeout
	}
	endpoint := winrm.NewEndpoint(s.params.Host, s.params.port(), s.params.HTTPS, s.params.Insecure, nil, nil, nil, timeout)
	client, err := winrm.NewClient(endpoint, s.params.User, s.params.Password)
	if err != nil {
		return core.ErrConnection(s.params.Host, "unable to create WinRM client").WithCause(err)
	}

	// NewClient does not touch the network; opening a shell proves the
	// endpoint and credentials.
	err = s.policy.Run(ctx, func() error {
		shell, serr := client.CreateShell()
		if serr != nil {
			return serr
		}
		return shell.Close()
	}, func(attempt int, cause error) {
		s.metrics.ObserveReconnect(TransportWinRM)
		s.logger.Warn("winrm connection failed, retrying",
			"host", s.params.Host,
			"attempt", attempt,
			"max_attempts", s.policy.MaxAttempts,
			"error", cause,
		)
	})
	if err != nil {
		return core.ErrConnection(s.params.Host, "unable to establish WinRM connection").WithCause(err)
	}
	s.client = client
	s.logger.Info("winrm connection established", "host", s.params.Host, "user", s.params.User)
	return nil
}

// Execute runs one command on the remote Windows target. The Sudo and Env
// fields have no WinRM counterpart and are ignored.
func (s *WinRMShell) Execute(ctx context.Context, cmd Command) (*CommandResult, error) {
	if s.client == nil {
		return nil, core.ErrConnection(s.params.Host, "winrm connection not initialized")
	}
	timeout := cmd.Timeout
	if timeout <= 0 {
		timeout = DefaultCommandTimeout
	}
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	stdout, stderr, exitCode, err := s.client.RunWithContextWithString(cctx, cmd.Cmd, "")

	res := &CommandResult{
		Command:  cmd.Cmd,
		Stdout:   strings.TrimSpace(stdout),
		Stderr:   strings.TrimSpace(stderr),
		ExitCode: exitCode,
		Duration: time.Since(start),
	}

	if cctx.Err() == context.DeadlineExceeded {
		res.ExitCode = timeoutExitCode
		if res.Stderr == "" {
			res.Stderr = "Command timed out"
		}
		return res, core.ErrCommandTimeout(cmd.Cmd, timeout)
	}
	if cctx.Err() != nil {
		return res, cctx.Err()
	}
	if err != nil {
		return res, core.ErrConnection(s.params.Host, "winrm command failed").WithCause(err)
	}
	return res, nil
}

// Close releases the client. WinRM is connectionless between commands, so
// this only drops the reference.
func (s *WinRMShell) Close() error {
	s.client = nil
	return nil
}
