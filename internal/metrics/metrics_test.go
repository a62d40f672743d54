package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_ObserveCommand(t *testing.T) {
	m := New()

	m.ObserveCommand("ssh", OutcomeOK, 120*time.Millisecond)
	m.ObserveCommand("ssh", OutcomeOK, 80*time.Millisecond)
	m.ObserveCommand("ssh", OutcomeTimeout, 5*time.Second)
	m.ObserveCommand("local", OutcomeError, 10*time.Millisecond)

	assert.Equal(t, 2.0, m.CommandCount("ssh", OutcomeOK))
	assert.Equal(t, 1.0, m.CommandCount("ssh", OutcomeTimeout))
	assert.Equal(t, 1.0, m.CommandCount("local", OutcomeError))
	assert.Equal(t, 0.0, m.CommandCount("local", OutcomeOK))
}

func TestMetrics_ObserveReconnect(t *testing.T) {
	m := New()

	assert.Equal(t, 0.0, m.ReconnectCount("ssh"))

	m.ObserveReconnect("ssh")
	m.ObserveReconnect("ssh")

	assert.Equal(t, 2.0, m.ReconnectCount("ssh"))
	assert.Equal(t, 0.0, m.ReconnectCount("winrm"))
}

func TestMetrics_IndependentRegistries(t *testing.T) {
	a := New()
	b := New()

	a.ObserveReconnect("ssh")

	assert.Equal(t, 1.0, a.ReconnectCount("ssh"))
	assert.Equal(t, 0.0, b.ReconnectCount("ssh"))
}

func TestMetrics_Snapshot(t *testing.T) {
	m := New()
	m.ObserveCommand("ssh", OutcomeOK, 50*time.Millisecond)
	m.ObserveReconnect("ssh")

	snapshot, err := m.Snapshot()
	require.NoError(t, err)

	assert.Equal(t, 1.0, snapshot["nodescout_commands_total{outcome=ok,transport=ssh}"])
	assert.Equal(t, 1.0, snapshot["nodescout_connection_reconnects_total{transport=ssh}"])
	assert.Equal(t, 1.0, snapshot["nodescout_command_duration_seconds{transport=ssh}"])
}
