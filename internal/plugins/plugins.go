// Package plugins wires the built-in probes into a registry.
package plugins

import (
	"github.com/nodescout/nodescout/internal/plugin"
	"github.com/nodescout/nodescout/internal/plugins/bios"
	"github.com/nodescout/nodescout/internal/plugins/dmesg"
	"github.com/nodescout/nodescout/internal/plugins/kernel"
	"github.com/nodescout/nodescout/internal/plugins/memory"
	"github.com/nodescout/nodescout/internal/plugins/osinfo"
	"github.com/nodescout/nodescout/internal/plugins/pkglist"
	"github.com/nodescout/nodescout/internal/plugins/process"
	"github.com/nodescout/nodescout/internal/plugins/storage"
	"github.com/nodescout/nodescout/internal/plugins/uptime"
)

// RegisterBuiltins adds every built-in probe to the registry.
func RegisterBuiltins(r *plugin.Registry) {
	r.Register(bios.Name, bios.Description, bios.New)
	r.Register(dmesg.Name, dmesg.Description, dmesg.New)
	r.Register(kernel.Name, kernel.Description, kernel.New)
	r.Register(memory.Name, memory.Description, memory.New)
	r.Register(osinfo.Name, osinfo.Description, osinfo.New)
	r.Register(pkglist.Name, pkglist.Description, pkglist.New)
	r.Register(process.Name, process.Description, process.New)
	r.Register(storage.Name, storage.Description, storage.New)
	r.Register(uptime.Name, uptime.Description, uptime.New)
}
