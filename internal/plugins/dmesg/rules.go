package dmesg

import (
	"github.com/nodescout/nodescout/internal/core"
	"github.com/nodescout/nodescout/internal/plugin"
)

// timestampPrefix optionally swallows the ISO timestamp so RAS lines group
// by their message rather than their time of occurrence.
const timestampPrefix = `(?:\d{4}-\d+-\d+T\d+:\d+:\d+,\d+[+-]\d+:\d+)?`

// ErrorRules is the ordered classification table for dmesg content. Every
// rule is evaluated against the full log; rule order is event order.
var ErrorRules = []plugin.Rule{
	plugin.MustRule(`(?:oom_kill_process.*)|(?:Out of memory.*)`,
		"Out of memory error", core.CategorySWDriver),
	plugin.MustRule(`IO_PAGE_FAULT`,
		"I/O Page Fault", core.CategorySWDriver),
	plugin.MustRule(`[Kk]ernel panic.*`,
		"Kernel Panic", core.CategorySWDriver),
	plugin.MustRule(`sram_ecc.*`,
		"SRAM ECC", core.CategorySWDriver),
	plugin.MustRule(`\[amdgpu\]\] \*ERROR\* hw_init of IP block.*`,
		"Failed to load driver. IP hardware init error.", core.CategorySWDriver),
	plugin.MustRule(`\[amdgpu\]\] \*ERROR\* sw_init of IP block.*`,
		"Failed to load driver. IP software init error.", core.CategorySWDriver),
	plugin.MustRule(`sched: RT throttling activated.*`,
		"Real Time throttling activated", core.CategorySWDriver),
	plugin.MustRule(`rcu_preempt detected stalls.*`,
		"RCU preempt detected stalls", core.CategorySWDriver),
	plugin.MustRule(`rcu_preempt self-detected stall.*`,
		"RCU preempt self-detected stall", core.CategorySWDriver),
	plugin.MustRule(`(?:[\w\d_-]*)(?:\[[\d.]*\])? (?:general protection fault)|(?:general protection fault.*)`,
		"General protection fault", core.CategorySWDriver),
	plugin.MustRule(`(?:segfault.*in .*\[)|(?:[Ss]egmentation [Ff]ault.*)|(?:[Ss]egfault.*)`,
		"Segmentation fault", core.CategorySWDriver),
	plugin.MustRule(`amdgpu \d{4}:\d{2}:\d{2}.\d:\s+amdgpu:\s+\[\S+\]\s*(?:retry|no-retry)? page fault.*(?:\n.*amdgpu \d{4}:\d{2}:\d{2}.\d:\s+amdgpu:.*)*`,
		"amdgpu Page Fault", core.CategorySWDriver),
	plugin.MustRule(`page fault for address.*`,
		"Page Fault", core.CategoryOS),
	plugin.MustRule(`(?:amdgpu)(.*Fatal error during GPU init)|(Fatal error during GPU init)`,
		"Fatal error during GPU init", core.CategorySWDriver),
	plugin.MustRule(`(?:pcieport )(.*AER: aer_status.*)|(aer_status.*)`,
		"PCIe AER Error", core.CategorySWDriver),
	plugin.MustRuleAt(`Failed to read journal file.*`,
		"Failed to read journal file", core.CategoryOS, core.PriorityWarning),
	plugin.MustRuleAt(`journal corrupted or uncleanly shut down.*`,
		"Journal file corrupted or uncleanly shut down", core.CategoryOS, core.PriorityWarning),
	plugin.MustRule(`ACPI BIOS Error`,
		"ACPI BIOS Error", core.CategoryBIOS),
	plugin.MustRuleAt(`ACPI Error`,
		"ACPI Error", core.CategoryBIOS, core.PriorityWarning),
	plugin.MustRule(`EXT4-fs error \(device .*\):`,
		"Filesystem corrupted!", core.CategoryOS),
	plugin.MustRule(`(Buffer I/O error on dev)(?:ice)? (\w+)`,
		"Error in buffered IO, check filesystem integrity", core.CategoryIO),
	plugin.MustRule(`pcieport (\w+:\w+:\w+\.\w+):\s+(\w+):\s+(Slot\(\d+\)):\s+(Card not present)`,
		"PCIe card no longer present", core.CategoryIO),
	plugin.MustRule(`pcieport (\w+:\w+:\w+\.\w+):\s+(\w+):\s+(Slot\(\d+\)):\s+(Link Down)`,
		"PCIe Link Down", core.CategoryIO),
	plugin.MustRule(`pcieport (\w+:\w+:\w+\.\w+):\s+(\w+):\s+(current common clock configuration is inconsistent, reconfiguring)`,
		"Mismatched clock configuration between PCIe device and host", core.CategoryIO),
	plugin.MustRule(timestampPrefix+`(.* correctable hardware errors detected in total in \w+ block.*)`,
		"RAS Correctable Error", core.CategoryRAS),
	plugin.MustRule(timestampPrefix+`(.* uncorrectable hardware errors detected in \w+ block.*)`,
		"RAS Uncorrectable Error", core.CategoryRAS),
	plugin.MustRule(timestampPrefix+`(.* deferred hardware errors detected in \w+ block.*)`,
		"RAS Deferred Error", core.CategoryRAS),
	plugin.MustRule(`((?:\[Hardware Error\]:\s+)?event severity: corrected.*)\n.*(\[Hardware Error\]:\s+Error \d+, type: corrected.*)\n.*(\[Hardware Error\]:\s+section_type: PCIe error.*)`,
		"RAS Corrected PCIe Error", core.CategoryRAS),
	plugin.MustRule(timestampPrefix+`(.*GPU reset begin.*)`,
		"GPU Reset", core.CategoryRAS),
	plugin.MustRule(timestampPrefix+`(.*GPU reset(?:\(\d+\))? failed.*)`,
		"GPU reset failed", core.CategoryRAS),
	plugin.MustRule(`Accelerator Check Architecture.*(?:\n.*){0,5}`,
		"ACA Error", core.CategoryRAS),
	plugin.MustRule(`\[Hardware Error\]:.+MC\d+_STATUS.*(?:\n.*){0,5}`,
		"MCE Error", core.CategoryRAS),
	plugin.MustRule(timestampPrefix+` (.*Mode2 reset failed.*)`,
		"Mode 2 Reset Failed", core.CategoryRAS),
	plugin.MustRule(timestampPrefix+`(.*\[Hardware Error\]: Corrected error.*)`,
		"RAS Corrected Error", core.CategoryRAS),
	plugin.MustRuleAt(`x86/cpu: SGX disabled by BIOS`,
		"SGX Error", core.CategoryBIOS, core.PriorityWarning),
	plugin.MustRuleAt(`amdgpu \w{4}:\w{2}:\w{2}.\w: amdgpu: WARN: GPU is throttled.*`,
		"GPU Throttled", core.CategorySWDriver, core.PriorityWarning),
}

// unknownErrorRule flags error-level kernel lines that matched no known
// rule, at a lower priority.
var unknownErrorRule = []plugin.Rule{
	plugin.MustRuleAt(`kern  :(?:err|crit|alert|emerg)\s+: \d{4}-\d+-\d+T\d+:\d+:\d+,\d+[+-]\d+:\d+ (.*)`,
		"Unknown dmesg error", core.CategoryUnknown, core.PriorityWarning),
}
