package conn

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/nodescout/nodescout/internal/core"
	"github.com/nodescout/nodescout/internal/logging"
	"github.com/nodescout/nodescout/internal/metrics"
)

// osProbeTimeout bounds the OS family handshake command.
const osProbeTimeout = 30 * time.Second

// Config selects and parameterizes the transport used to reach a target.
type Config struct {
	// Remote selects the transport for REMOTE targets: "ssh" (default) or
	// "winrm". LOCAL targets always use the local shell.
	Remote string `mapstructure:"remote" json:"remote,omitempty" yaml:"remote,omitempty"`

	SSH   SSHParams   `mapstructure:"ssh" json:"ssh,omitempty" yaml:"ssh,omitempty"`
	WinRM WinRMParams `mapstructure:"winrm" json:"winrm,omitempty" yaml:"winrm,omitempty"`

	// Reconnect bounds transport re-establishment. Zero value means the
	// default policy.
	Reconnect ReconnectPolicy `mapstructure:"reconnect" json:"reconnect,omitempty" yaml:"reconnect,omitempty"`

	// CommandTimeout is the default deadline for commands that do not carry
	// their own. Zero means DefaultCommandTimeout.
	CommandTimeout time.Duration `mapstructure:"command_timeout" json:"command_timeout,omitempty" yaml:"command_timeout,omitempty"`
}

// Manager owns the transport for one target system across an executor run:
// it connects once, hands every command to the same session, and tears the
// session down when the run finishes. Connection setup is reported as a
// TaskResult so it lands in the run summary next to the plugin results.
type Manager struct {
	info    *core.SystemInfo
	cfg     Config
	logger  *logging.Logger
	metrics *metrics.Metrics

	shell         transport
	transportName string
	result        *core.TaskResult
}

// NewManager creates a connection manager for the given target. The
// SystemInfo is shared with the caller: a successful OS family handshake
// updates it in place.
func NewManager(info *core.SystemInfo, cfg Config, logger *logging.Logger, m *metrics.Metrics) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	if m == nil {
		m = metrics.New()
	}
	if cfg.Reconnect == (ReconnectPolicy{}) {
		cfg.Reconnect = DefaultReconnectPolicy()
	}
	return &Manager{
		info:    info,
		cfg:     cfg,
		logger:  logger.WithComponent("conn"),
		metrics: m,
	}
}

// Connect establishes the transport for the target and, when the OS family
// is unknown, resolves it with a probe command. Failures never escape as
// errors: they are recorded on the returned TaskResult, which the executor
// folds into the run summary.
func (m *Manager) Connect(ctx context.Context) *core.TaskResult {
	name, shell, err := m.buildTransport()
	result := core.NewTaskResult(name+"_connection", core.TaskTypeConnection, "connection")
	m.result = result

	log := m.logger.WithTransport(name)
	if err != nil {
		log.Error("connection setup failed", "system", m.info.Name, "error", err)
		result.AddEvent(core.NewEvent(core.CategoryRuntime, core.PriorityCritical, err.Error()))
		result.Status = core.StatusExecutionFailure
		result.Finalize()
		return result
	}

	log.Info("initializing connection", "system", m.info.Name, "location", m.info.Location)
	if err := shell.Connect(ctx); err != nil {
		cat := core.CategoryInfrastructure
		if name == TransportSSH {
			cat = core.CategorySSH
		}
		log.Error("connection failed", "system", m.info.Name, "error", err)
		result.AddEvent(core.NewEvent(cat, core.PriorityCritical, err.Error()).
			WithData(map[string]any{"system": m.info.Name}))
		result.Status = core.StatusExecutionFailure
		result.Finalize()
		return result
	}

	m.shell = shell
	m.transportName = name
	m.logger = log

	if m.info.OSFamily == "" || m.info.OSFamily == core.OSFamilyUnknown {
		m.probeOSFamily(ctx, result)
	}

	result.Finalize()
	return result
}

// buildTransport picks the transport implied by the system location and
// validates its parameters.
func (m *Manager) buildTransport() (string, transport, error) {
	if m.info.Location == core.LocationLocal {
		return TransportLocal, NewLocalShell(), nil
	}
	remote := m.cfg.Remote
	if remote == "" {
		remote = TransportSSH
	}
	switch remote {
	case TransportSSH:
		if err := m.cfg.SSH.validate(); err != nil {
			return TransportSSH, nil, err
		}
		return TransportSSH, NewSSHShell(m.cfg.SSH, m.cfg.Reconnect, m.logger, m.metrics), nil
	case TransportWinRM:
		if err := m.cfg.WinRM.validate(); err != nil {
			return TransportWinRM, nil, err
		}
		return TransportWinRM, NewWinRMShell(m.cfg.WinRM, m.cfg.Reconnect, m.logger, m.metrics), nil
	default:
		return remote, nil, fmt.Errorf("unknown remote transport %q", remote)
	}
}

// probeOSFamily resolves an UNKNOWN OS family through the live transport.
// Windows targets answer `uname -s` with a "not recognized" error from
// cmd.exe; POSIX targets exit zero.
func (m *Manager) probeOSFamily(ctx context.Context, result *core.TaskResult) {
	m.logger.Info("checking target OS family")
	res, err := m.Execute(ctx, Command{Cmd: "uname -s", Timeout: osProbeTimeout})
	switch {
	case res != nil && strings.Contains(res.Stdout+res.Stderr, windowsCommandNotFound):
		m.info.OSFamily = core.OSFamilyWindows
	case err == nil && res.ExitCode == 0:
		m.info.OSFamily = core.OSFamilyLinux
	default:
		result.AddEvent(core.NewEvent(core.CategoryUnknown, core.PriorityWarning, "unable to determine target OS family"))
		m.logger.Warn("unable to determine target OS family", "system", m.info.Name)
		return
	}
	m.logger.Info("target OS family resolved", "os_family", m.info.OSFamily)
}

// Execute runs one command through the active transport, applying the
// default timeout and recording command metrics.
func (m *Manager) Execute(ctx context.Context, cmd Command) (*CommandResult, error) {
	if m.shell == nil {
		return nil, core.ErrConnection(m.info.Name, "connection not initialized")
	}
	if cmd.Timeout <= 0 {
		cmd.Timeout = m.cfg.CommandTimeout
		if cmd.Timeout <= 0 {
			cmd.Timeout = DefaultCommandTimeout
		}
	}

	m.logger.Debug("executing command", "command", cmd.Cmd, "sudo", cmd.Sudo, "timeout", cmd.Timeout)
	start := time.Now()
	res, err := m.shell.Execute(ctx, cmd)

	duration := time.Since(start)
	if res != nil {
		duration = res.Duration
	}
	outcome := metrics.OutcomeOK
	switch {
	case core.IsCategory(err, core.ErrCatTimeout):
		outcome = metrics.OutcomeTimeout
	case err != nil, res != nil && res.ExitCode != 0:
		outcome = metrics.OutcomeError
	}
	m.metrics.ObserveCommand(m.transportName, outcome, duration)

	switch {
	case err != nil:
		m.logger.Error("command failed", "command", cmd.Cmd, "duration", duration, "error", err)
	case res.ExitCode != 0:
		m.logger.Debug("command exited non-zero",
			"command", cmd.Cmd,
			"exit_code", res.ExitCode,
			"duration", duration,
			"stderr", truncateForLog(res.Stderr, 500),
		)
	default:
		m.logger.Debug("command completed",
			"command", cmd.Cmd,
			"duration", duration,
			"stdout_length", len(res.Stdout),
		)
	}
	return res, err
}

// OSFamily reports the resolved OS family of the target.
func (m *Manager) OSFamily() core.OSFamily {
	return m.info.OSFamily
}

// Transport reports the active transport label, empty before Connect.
func (m *Manager) Transport() string {
	return m.transportName
}

// Result returns the TaskResult of the last Connect, nil before it.
func (m *Manager) Result() *core.TaskResult {
	return m.result
}

// Close tears down the transport. Safe to call multiple times.
func (m *Manager) Close() error {
	if m.shell == nil {
		return nil
	}
	err := m.shell.Close()
	m.shell = nil
	return err
}
