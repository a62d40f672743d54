package conn

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/nodescout/nodescout/internal/core"
	"github.com/nodescout/nodescout/internal/metrics"
)

func TestWinRMParamsValidate(t *testing.T) {
	tests := []struct {
		name    string
		params  WinRMParams
		wantErr bool
	}{
		{name: "complete", params: WinRMParams{Host: "node01", User: "Administrator", Password: "pw"}},
		{name: "missing host", params: WinRMParams{User: "Administrator", Password: "pw"}, wantErr: true},
		{name: "missing user", params: WinRMParams{Host: "node01", Password: "pw"}, wantErr: true},
		{name: "missing password", params: WinRMParams{Host: "node01", User: "Administrator"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.params.validate()
			if tt.wantErr && err == nil {
				t.Fatal("validate() error = nil, want failure")
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("validate() error = %v, want nil", err)
			}
			if err != nil && !strings.Contains(err.Error(), "no WinRM credentials provided") {
				t.Errorf("validate() error = %v, want credentials message", err)
			}
		})
	}
}

func TestWinRMParamsPort(t *testing.T) {
	if got := (WinRMParams{}).port(); got != 5985 {
		t.Errorf("port() = %d, want 5985", got)
	}
	if got := (WinRMParams{Port: 5986}).port(); got != 5986 {
		t.Errorf("port() = %d, want 5986", got)
	}
}

func TestWinRMShellExecuteBeforeConnect(t *testing.T) {
	shell := NewWinRMShell(WinRMParams{Host: "node01", User: "Administrator", Password: "pw"}, DefaultReconnectPolicy(), nil, nil)

	_, err := shell.Execute(context.Background(), Command{Cmd: "hostname"})
	if err == nil {
		t.Fatal("Execute() error = nil, want connection failure")
	}
	if !core.IsCategory(err, core.ErrCatConnection) {
		t.Errorf("error category = %v, want connection", core.GetCategory(err))
	}
}

func TestWinRMShellConnectUnreachable(t *testing.T) {
	mtr := metrics.New()
	shell := NewWinRMShell(
		WinRMParams{Host: "127.0.0.1", Port: 1, User: "Administrator", Password: "pw", DialTimeout: 2 * time.Second},
		ReconnectPolicy{MaxAttempts: 1, Delay: time.Millisecond},
		nil, mtr,
	)

	err := shell.Connect(context.Background())
	if err == nil {
		t.Fatal("Connect() error = nil, want failure")
	}
	if !core.IsCategory(err, core.ErrCatConnection) {
		t.Errorf("error category = %v, want connection", core.GetCategory(err))
	}
	if got := mtr.ReconnectCount(TransportWinRM); got != 1 {
		t.Errorf("reconnect count = %v, want 1", got)
	}
}

func TestWinRMShellClose(t *testing.T) {
	shell := NewWinRMShell(WinRMParams{Host: "node01", User: "Administrator", Password: "pw"}, DefaultReconnectPolicy(), nil, nil)
	if err := shell.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}
