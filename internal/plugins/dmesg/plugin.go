package dmesg

import "github.com/nodescout/nodescout/internal/plugin"

// Description summarizes the plugin for registry listings.
const Description = "read the kernel ring buffer and classify error lines"

// New builds the dmesg plugin.
func New(deps plugin.Deps) plugin.Plugin {
	return plugin.NewDataPlugin(Name, deps,
		plugin.WithCollector(NewCollector()),
		plugin.WithCollectorArgs(CollectorArgs{}),
		plugin.WithAnalyzer(NewAnalyzer()),
		plugin.WithAnalyzerArgs(AnalyzerArgs{}),
		plugin.WithDataDecoder(DecodeData),
	)
}
