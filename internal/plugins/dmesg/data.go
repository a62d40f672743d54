// Package dmesg reads the kernel ring buffer and classifies its error
// lines into prioritized findings using an ordered regex rule table.
package dmesg

import "github.com/nodescout/nodescout/internal/plugin"

// Name is the registered plugin name.
const Name = "dmesg"

// Data is the collected record: the raw dmesg log with ISO timestamps and
// log levels.
type Data struct {
	Content string `mapstructure:"dmesg_content" json:"dmesg_content" yaml:"dmesg_content"`
}

// DecodeData converts a raw pre-supplied mapping into a Data record.
func DecodeData(raw map[string]any) (any, error) {
	var data Data
	if err := plugin.DecodeArgs(raw, &data); err != nil {
		return nil, err
	}
	return &data, nil
}
