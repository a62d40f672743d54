package conn

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/ssh"

	"github.com/nodescout/nodescout/internal/core"
	"github.com/nodescout/nodescout/internal/metrics"
)

func generateTestKey(t *testing.T, passphrase string) []byte {
	t.Helper()
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generating key: %v", err)
	}
	var block *pem.Block
	if passphrase == "" {
		block, err = ssh.MarshalPrivateKey(priv, "")
	} else {
		block, err = ssh.MarshalPrivateKeyWithPassphrase(priv, "", []byte(passphrase))
	}
	if err != nil {
		t.Fatalf("marshaling key: %v", err)
	}
	return pem.EncodeToMemory(block)
}

func TestSSHShellConnectRetriesThenSucceeds(t *testing.T) {
	mtr := metrics.New()
	shell := NewSSHShell(
		SSHParams{Host: "node01", User: "root", Password: "secret"},
		ReconnectPolicy{MaxAttempts: 3, Delay: time.Millisecond, Backoff: 2},
		nil, mtr,
	)

	dials := 0
	shell.dialFn = func(context.Context) (*ssh.Client, error) {
		dials++
		if dials <= 2 {
			return nil, errors.New("connection refused")
		}
		return &ssh.Client{}, nil
	}

	if err := shell.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if dials != 3 {
		t.Errorf("dials = %d, want 3", dials)
	}
	if got := mtr.ReconnectCount(TransportSSH); got != 2 {
		t.Errorf("reconnect count = %v, want 2", got)
	}

	// Connecting an established shell must not dial again.
	if err := shell.Connect(context.Background()); err != nil {
		t.Fatalf("second Connect() error = %v", err)
	}
	if dials != 3 {
		t.Errorf("dials after reconnect = %d, want 3", dials)
	}
}

func TestSSHShellConnectExhaustsRetries(t *testing.T) {
	mtr := metrics.New()
	shell := NewSSHShell(
		SSHParams{Host: "node01", User: "root", Password: "secret"},
		ReconnectPolicy{MaxAttempts: 2, Delay: time.Millisecond},
		nil, mtr,
	)

	dials := 0
	shell.dialFn = func(context.Context) (*ssh.Client, error) {
		dials++
		return nil, errors.New("no route to host")
	}

	err := shell.Connect(context.Background())
	if err == nil {
		t.Fatal("Connect() error = nil, want failure")
	}
	if !core.IsCategory(err, core.ErrCatConnection) {
		t.Errorf("error category = %v, want connection", core.GetCategory(err))
	}
	if !core.IsRetryable(err) {
		t.Error("connection failures should be marked retryable")
	}
	if dials != 3 {
		t.Errorf("dials = %d, want 3 (initial + 2 retries)", dials)
	}
	if got := mtr.ReconnectCount(TransportSSH); got != 2 {
		t.Errorf("reconnect count = %v, want 2", got)
	}
}

func TestSSHShellCloseWithoutConnect(t *testing.T) {
	shell := NewSSHShell(SSHParams{Host: "node01", User: "root", Password: "pw"}, DefaultReconnectPolicy(), nil, nil)
	if err := shell.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestRemoteCommand(t *testing.T) {
	tests := []struct {
		name      string
		cmd       Command
		user      string
		password  string
		wantFull  string
		wantWrite bool
	}{
		{
			name:     "no sudo",
			cmd:      Command{Cmd: "uname -r"},
			user:     "admin",
			password: "pw",
			wantFull: "uname -r",
		},
		{
			name:     "sudo as root",
			cmd:      Command{Cmd: "dmesg", Sudo: true},
			user:     "root",
			password: "pw",
			wantFull: "sudo dmesg",
		},
		{
			name:      "sudo with password",
			cmd:       Command{Cmd: "dmesg", Sudo: true},
			user:      "admin",
			password:  "pw",
			wantFull:  "sudo -S -p '' dmesg",
			wantWrite: true,
		},
		{
			name:     "sudo without password",
			cmd:      Command{Cmd: "dmesg", Sudo: true},
			user:     "admin",
			wantFull: "sudo dmesg",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			full, write := remoteCommand(tt.cmd, tt.user, tt.password)
			if full != tt.wantFull {
				t.Errorf("full = %q, want %q", full, tt.wantFull)
			}
			if write != tt.wantWrite {
				t.Errorf("writePassword = %v, want %v", write, tt.wantWrite)
			}
		})
	}
}

func TestSSHParamsValidate(t *testing.T) {
	tests := []struct {
		name    string
		params  SSHParams
		wantErr string
	}{
		{
			name:   "password auth",
			params: SSHParams{Host: "node01", User: "root", Password: "pw"},
		},
		{
			name:   "key file auth",
			params: SSHParams{Host: "node01", User: "root", KeyFile: "/tmp/id"},
		},
		{
			name:    "missing host",
			params:  SSHParams{User: "root", Password: "pw"},
			wantErr: "no SSH credentials provided",
		},
		{
			name:    "missing user",
			params:  SSHParams{Host: "node01", Password: "pw"},
			wantErr: "no SSH credentials provided",
		},
		{
			name:    "no auth method",
			params:  SSHParams{Host: "node01", User: "root"},
			wantErr: "no SSH authentication method",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.params.validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("validate() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestSSHParamsAddr(t *testing.T) {
	if got := (SSHParams{Host: "node01"}).addr(); got != "node01:22" {
		t.Errorf("addr() = %q, want node01:22", got)
	}
	if got := (SSHParams{Host: "node01", Port: 2222}).addr(); got != "node01:2222" {
		t.Errorf("addr() = %q, want node01:2222", got)
	}
}

func TestSSHParamsAuthMethods(t *testing.T) {
	keyPEM := generateTestKey(t, "")

	t.Run("password only", func(t *testing.T) {
		methods, err := (SSHParams{Host: "h", User: "u", Password: "pw"}).authMethods()
		if err != nil {
			t.Fatalf("authMethods() error = %v", err)
		}
		if len(methods) != 1 {
			t.Errorf("len(methods) = %d, want 1", len(methods))
		}
	})

	t.Run("inline private key", func(t *testing.T) {
		methods, err := (SSHParams{Host: "h", User: "u", PrivateKey: string(keyPEM)}).authMethods()
		if err != nil {
			t.Fatalf("authMethods() error = %v", err)
		}
		if len(methods) != 1 {
			t.Errorf("len(methods) = %d, want 1", len(methods))
		}
	})

	t.Run("key file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "id_ed25519")
		if err := os.WriteFile(path, keyPEM, 0o600); err != nil {
			t.Fatalf("writing key file: %v", err)
		}
		methods, err := (SSHParams{Host: "h", User: "u", KeyFile: path}).authMethods()
		if err != nil {
			t.Fatalf("authMethods() error = %v", err)
		}
		if len(methods) != 1 {
			t.Errorf("len(methods) = %d, want 1", len(methods))
		}
	})

	t.Run("password and key", func(t *testing.T) {
		methods, err := (SSHParams{Host: "h", User: "u", Password: "pw", PrivateKey: string(keyPEM)}).authMethods()
		if err != nil {
			t.Fatalf("authMethods() error = %v", err)
		}
		if len(methods) != 2 {
			t.Errorf("len(methods) = %d, want 2", len(methods))
		}
	})

	t.Run("passphrase protected key", func(t *testing.T) {
		encPEM := generateTestKey(t, "letmein")
		methods, err := (SSHParams{Host: "h", User: "u", PrivateKey: string(encPEM), Passphrase: "letmein"}).authMethods()
		if err != nil {
			t.Fatalf("authMethods() error = %v", err)
		}
		if len(methods) != 1 {
			t.Errorf("len(methods) = %d, want 1", len(methods))
		}

		_, err = (SSHParams{Host: "h", User: "u", PrivateKey: string(encPEM), Passphrase: "wrong"}).authMethods()
		if err == nil || !strings.Contains(err.Error(), "parsing private key") {
			t.Fatalf("authMethods() error = %v, want key parse failure", err)
		}
	})

	t.Run("missing key file", func(t *testing.T) {
		_, err := (SSHParams{Host: "h", User: "u", KeyFile: filepath.Join(t.TempDir(), "absent")}).authMethods()
		if err == nil || !strings.Contains(err.Error(), "reading key file") {
			t.Fatalf("authMethods() error = %v, want read failure", err)
		}
	})

	t.Run("garbage key material", func(t *testing.T) {
		_, err := (SSHParams{Host: "h", User: "u", PrivateKey: "not a key"}).authMethods()
		if err == nil || !strings.Contains(err.Error(), "parsing private key") {
			t.Fatalf("authMethods() error = %v, want key parse failure", err)
		}
	})

	t.Run("no method", func(t *testing.T) {
		_, err := (SSHParams{Host: "h", User: "u"}).authMethods()
		if err == nil {
			t.Fatal("authMethods() error = nil, want failure")
		}
	})
}
