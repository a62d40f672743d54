// Package testutil holds shared test fakes. The scripted shell stands in
// for a live transport so probe tests can assert on the exact commands
// issued and feed back canned output.
package testutil

import (
	"context"
	"strings"
	"sync"

	"github.com/nodescout/nodescout/internal/conn"
)

// Script maps a command substring to its canned result.
type Script struct {
	// Contains selects commands whose Cmd contains this substring.
	Contains string
	Result   conn.CommandResult
	Err      error
}

// ScriptedShell is a conn.Shell fake. Commands are matched against the
// scripts in order; an unmatched command gets the Default result. Every
// executed command is recorded.
type ScriptedShell struct {
	mu       sync.Mutex
	Scripts  []Script
	Default  conn.CommandResult
	Err      error
	Commands []conn.Command
}

// NewScriptedShell builds a shell that answers every command with exit 0
// and empty output unless a script overrides it.
func NewScriptedShell(scripts ...Script) *ScriptedShell {
	return &ScriptedShell{Scripts: scripts}
}

// Execute implements conn.Shell.
func (s *ScriptedShell) Execute(_ context.Context, cmd conn.Command) (*conn.CommandResult, error) {
	s.mu.Lock()
	s.Commands = append(s.Commands, cmd)
	s.mu.Unlock()

	if s.Err != nil {
		return nil, s.Err
	}
	for _, script := range s.Scripts {
		if strings.Contains(cmd.Cmd, script.Contains) {
			if script.Err != nil {
				return nil, script.Err
			}
			result := script.Result
			result.Command = cmd.Cmd
			return &result, nil
		}
	}
	result := s.Default
	result.Command = cmd.Cmd
	return &result, nil
}

// CommandCount returns how many commands were executed.
func (s *ScriptedShell) CommandCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Commands)
}

// Executed reports whether any executed command contains the substring.
func (s *ScriptedShell) Executed(substring string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, cmd := range s.Commands {
		if strings.Contains(cmd.Cmd, substring) {
			return true
		}
	}
	return false
}
