package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"
)

// starterYAML is the commented starting point written by "config init".
const starterYAML = `# nodescout run configuration
log:
  level: info
  format: auto

# Target system. Leave the block out to scan the local machine with
# detected facts.
system:
  # name: node-01
  # os_family: LINUX
  # location: REMOTE
  # interaction_level: PASSIVE

# Remote transport, used when system.location is REMOTE.
connection:
  remote: ssh
  # ssh:
  #   host: node-01.example.com
  #   port: 22
  #   user: root
  #   key_file: ~/.ssh/id_ed25519

artifacts:
  dir: ./nodescout-results

collators:
  - summary
  - artifacts

# Arguments applied to every plugin that understands them.
global_args: {}

plugins:
  - name: dmesg
  - name: kernel
    analyzer_args:
      exp_kernel:
        - 6\.8\..*
      regex_match: true
  - name: memory
  - name: storage
  - name: uptime
    analyzer_args:
      min_uptime: 30m
`

// WriteStarter writes the starter configuration to path. An existing file
// is never overwritten.
func WriteStarter(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	} else if !os.IsNotExist(err) {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return renameio.WriteFile(path, []byte(starterYAML), 0o644)
}
