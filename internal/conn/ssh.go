package conn

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"

	"github.com/nodescout/nodescout/internal/core"
	"github.com/nodescout/nodescout/internal/logging"
	"github.com/nodescout/nodescout/internal/metrics"
)

// SSHParams holds the credentials and endpoint for an SSH transport.
// Password or private key material is required; both may be given, in which
// case both are offered during authentication.
type SSHParams struct {
	Host       string `mapstructure:"host" json:"host" yaml:"host"`
	Port       int    `mapstructure:"port" json:"port,omitempty" yaml:"port,omitempty"`
	User       string `mapstructure:"user" json:"user" yaml:"user"`
	Password   string `mapstructure:"password" json:"-" yaml:"-"`
	PrivateKey string `mapstructure:"private_key" json:"-" yaml:"-"`
	Passphrase string `mapstructure:"passphrase" json:"-" yaml:"-"`
	KeyFile    string `mapstructure:"key_file" json:"key_file,omitempty" yaml:"key_file,omitempty"`

	// DialTimeout bounds connection establishment. Zero means the default.
	DialTimeout time.Duration `mapstructure:"dial_timeout" json:"dial_timeout,omitempty" yaml:"dial_timeout,omitempty"`
}

func (p SSHParams) validate() error {
	if p.Host == "" || p.User == "" {
		return errors.New("no SSH credentials provided")
	}
	if p.Password == "" && p.PrivateKey == "" && p.KeyFile == "" {
		return errors.New("no SSH authentication method provided (password or private key required)")
	}
	return nil
}

func (p SSHParams) addr() string {
	port := p.Port
	if port == 0 {
		port = 22
	}
	return net.JoinHostPort(p.Host, strconv.Itoa(port))
}

// authMethods builds the SSH auth chain: password first if present, then a
// private key from inline material or a key file.
func (p SSHParams) authMethods() ([]ssh.AuthMethod, error) {
	var methods []ssh.AuthMethod

	if p.Password != "" {
		methods = append(methods, ssh.Password(p.Password))
	}

	key := []byte(p.PrivateKey)
	if len(key) == 0 && p.KeyFile != "" {
		b, err := os.ReadFile(p.KeyFile)
		if err != nil {
			return nil, errors.New("reading key file: " + err.Error())
		}
		key = b
	}
	if len(key) > 0 {
		var signer ssh.Signer
		var err error
		if p.Passphrase != "" {
			signer, err = ssh.ParsePrivateKeyWithPassphrase(key, []byte(p.Passphrase))
		} else {
			signer, err = ssh.ParsePrivateKey(key)
		}
		if err != nil {
			return nil, errors.New("parsing private key: " + err.Error())
		}
		methods = append(methods, ssh.PublicKeys(signer))
	}

	if len(methods) == 0 {
		return nil, errors.New("no SSH authentication method provided (password or private key required)")
	}
	return methods, nil
}

// SSHShell runs commands on a remote target over one authenticated SSH
// connection. The connection is dialed once and reused for every command;
// when it dies, the next command triggers a bounded reconnect before the
// command is attempted. Commands themselves are never retried.
type SSHShell struct {
	params  SSHParams
	policy  ReconnectPolicy
	logger  *logging.Logger
	metrics *metrics.Metrics

	mu     sync.Mutex
	client *ssh.Client

	// dialFn is swappable for tests.
	dialFn func(ctx context.Context) (*ssh.Client, error)
}

// NewSSHShell creates an SSH transport. Connect must be called before the
// first Execute.
func NewSSHShell(params SSHParams, policy ReconnectPolicy, logger *logging.Logger, m *metrics.Metrics) *SSHShell {
	if logger == nil {
		logger = logging.NewNop()
	}
	if m == nil {
		m = metrics.New()
	}
	s := &SSHShell{
		params:  params,
		policy:  policy,
		logger:  logger.WithTransport(TransportSSH),
		metrics: m,
	}
	s.dialFn = s.dial
	return s
}

func (s *SSHShell) dial(ctx context.Context) (*ssh.Client, error) {
	methods, err := s.params.authMethods()
	if err != nil {
		return nil, err
	}
	timeout := s.params.DialTimeout
	if timeout <= 0 {
		timeout = defaultDialTimeout
	}
	cfg := &ssh.ClientConfig{
		User: s.params.User,
		Auth: methods,
		// Diagnostic targets rotate too often to pin host keys.
		HostKeyCallback: ssh.InsecureIgnoreHostKey(), // #nosec G106
		Timeout:         timeout,
	}

	d := net.Dialer{Timeout: timeout}
	netConn, err := d.DialContext(ctx, "tcp", s.params.addr())
	if err != nil {
		return nil, err
	}
	sshConn, chans, reqs, err := ssh.NewClientConn(netConn, s.params.addr(), cfg)
	if err != nil {
		_ = netConn.Close()
		return nil, err
	}
	return ssh.NewClient(sshConn, chans, reqs), nil
}

// Connect establishes the SSH connection, retrying per the reconnect policy.
// Already-connected shells return immediately.
func (s *SSHShell) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connectLocked(ctx)
}

func (s *SSHShell) connectLocked(ctx context.Context) error {
	if s.client != nil {
		return nil
	}
	var client *ssh.Client
	err := s.policy.Run(ctx, func() error {
		var dialErr error
		client, dialErr = s.dialFn(ctx)
		return dialErr
	}, func(attempt int, cause error) {
		s.metrics.ObserveReconnect(TransportSSH)
		s.logger.Warn("ssh connection failed, retrying",
			"host", s.params.Host,
			"attempt", attempt,
			"max_attempts", s.policy.MaxAttempts,
			"error", cause,
		)
	})
	if err != nil {
		return core.ErrConnection(s.params.Host, "unable to establish SSH connection").WithCause(err)
	}
	s.client = client
	s.logger.Info("ssh connection established", "host", s.params.Host, "user", s.params.User)
	return nil
}

// newSession opens a command channel, reconnecting once within the policy
// budget if the underlying connection has died.
func (s *SSHShell) newSession(ctx context.Context) (*ssh.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client == nil {
		if err := s.connectLocked(ctx); err != nil {
			return nil, err
		}
	}
	session, err := s.client.NewSession()
	if err == nil {
		return session, nil
	}

	s.logger.Warn("ssh session open failed, reconnecting", "host", s.params.Host, "error", err)
	_ = s.client.Close()
	s.client = nil
	if cerr := s.connectLocked(ctx); cerr != nil {
		return nil, cerr
	}
	session, err = s.client.NewSession()
	if err != nil {
		return nil, core.ErrConnection(s.params.Host, "unable to open SSH session").WithCause(err)
	}
	return session, nil
}

// remoteCommand applies sudo shaping for remote execution. When the user is
// not root and a password is available, sudo reads it from stdin so the
// password never appears in a command line or artifact.
func remoteCommand(cmd Command, user, password string) (full string, writePassword bool) {
	if !cmd.Sudo {
		return cmd.Cmd, false
	}
	if user != "root" && password != "" {
		return "sudo -S -p '' " + cmd.Cmd, true
	}
	return "sudo " + cmd.Cmd, false
}

// Execute runs one command on the remote target. A non-zero exit is data;
// timeouts report exit code 124 alongside a CommandTimeoutError.
func (s *SSHShell) Execute(ctx context.Context, cmd Command) (*CommandResult, error) {
	timeout := cmd.Timeout
	if timeout <= 0 {
		timeout = DefaultCommandTimeout
	}
	full, writePassword := remoteCommand(cmd, s.params.User, s.params.Password)

	session, err := s.newSession(ctx)
	if err != nil {
		return nil, err
	}
	defer session.Close()

	for k, v := range cmd.Env {
		// Best effort: most sshd configs restrict AcceptEnv.
		if err := session.Setenv(k, v); err != nil {
			s.logger.Debug("ssh setenv rejected", "key", k, "error", err)
		}
	}

	var stdout, stderr bytes.Buffer
	session.Stdout = &stdout
	session.Stderr = &stderr

	var stdin io.WriteCloser
	if writePassword {
		stdin, err = session.StdinPipe()
		if err != nil {
			return nil, core.ErrConnection(s.params.Host, "unable to open session stdin").WithCause(err)
		}
	}

	start := time.Now()
	if err := session.Start(full); err != nil {
		return nil, core.ErrConnection(s.params.Host, "unable to start remote command").WithCause(err)
	}
	if writePassword {
		_, _ = io.WriteString(stdin, s.params.Password+"\n")
		_ = stdin.Close()
	}

	done := make(chan error, 1)
	go func() { done <- session.Wait() }()

	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	res := &CommandResult{Command: full}

	select {
	case <-cctx.Done():
		_ = session.Signal(ssh.SIGKILL)
		_ = session.Close()
		// Wait must return before the buffers are safe to read.
		select {
		case <-done:
		case <-time.After(2 * time.Second):
		}
		res.Stdout = strings.TrimSpace(stdout.String())
		res.Stderr = strings.TrimSpace(stderr.String())
		res.Duration = time.Since(start)
		if cctx.Err() == context.DeadlineExceeded {
			res.ExitCode = timeoutExitCode
			if res.Stderr == "" {
				res.Stderr = "Command timed out"
			}
			return res, core.ErrCommandTimeout(full, timeout)
		}
		return res, cctx.Err()

	case waitErr := <-done:
		res.Stdout = strings.TrimSpace(stdout.String())
		res.Stderr = strings.TrimSpace(stderr.String())
		res.Duration = time.Since(start)
		if waitErr == nil {
			res.ExitCode = 0
			return res, nil
		}
		var exitErr *ssh.ExitError
		if errors.As(waitErr, &exitErr) {
			res.ExitCode = exitErr.ExitStatus()
			return res, nil
		}
		return res, core.ErrConnection(s.params.Host, "remote command did not return an exit status").WithCause(waitErr)
	}
}

// Close releases the SSH connection. Safe to call multiple times.
func (s *SSHShell) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client == nil {
		return nil
	}
	err := s.client.Close()
	s.client = nil
	return err
}
