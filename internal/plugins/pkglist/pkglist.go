// Package pkglist dumps installed packages and checks them against an
// expected package-version map.
package pkglist

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/nodescout/nodescout/internal/conn"
	"github.com/nodescout/nodescout/internal/core"
	"github.com/nodescout/nodescout/internal/plugin"
)

// Name is the registered plugin name.
const Name = "pkglist"

// Description summarizes the plugin for registry listings.
const Description = "dump installed packages and check expected versions"

// Data maps package names to installed versions.
type Data struct {
	Packages map[string]string `mapstructure:"version_info" json:"version_info" yaml:"version_info" validate:"required"`
}

// DecodeData converts a raw pre-supplied mapping into a Data record.
func DecodeData(raw map[string]any) (any, error) {
	var data Data
	if err := plugin.DecodeArgs(raw, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// Collector dumps the installed package list using the native package
// manager, detected from the release files on Linux.
type Collector struct {
	plugin.BaseCollector
}

// NewCollector builds the pkglist collector.
func NewCollector() *Collector {
	return &Collector{BaseCollector: plugin.BaseCollector{TaskName: "pkglist_collector"}}
}

type managerCmd struct {
	cmd   string
	parse func(stdout string) map[string]string
}

// releaseManagers maps release-file keywords to package manager commands.
var releaseManagers = []struct {
	keyword string
	managerCmd
}{
	{"debian", managerCmd{"dpkg-query -W", parseColumns}},
	{"redhat", managerCmd{"dnf list --installed", parseColumns}},
	{"rhel", managerCmd{"dnf list --installed", parseColumns}},
	{"fedora", managerCmd{"dnf list --installed", parseColumns}},
	{"centos", managerCmd{"dnf list --installed", parseColumns}},
	{"arch", managerCmd{"pacman -Q", parsePacman}},
}

// Collect implements plugin.Collector.
func (c *Collector) Collect(ctx context.Context, task *plugin.Task, _ map[string]any) (any, error) {
	var manager managerCmd
	if task.System.OSFamily == core.OSFamilyWindows {
		manager = managerCmd{"wmic product get name,version", parseWmic}
	} else {
		release, err := task.RunCommand(ctx, conn.Command{Cmd: "cat /etc/*release"})
		if err != nil {
			return nil, err
		}
		stdout := strings.ToLower(release.Stdout)
		for _, candidate := range releaseManagers {
			if strings.Contains(stdout, candidate.keyword) {
				manager = candidate.managerCmd
				break
			}
		}
		if manager.cmd == "" {
			task.Result.Message = "unsupported package manager"
			task.Result.Status = core.StatusNotRun
			return nil, nil
		}
	}

	res, err := task.RunCommand(ctx, conn.Command{Cmd: manager.cmd})
	if err != nil {
		return nil, err
	}
	if res.ExitCode != 0 {
		task.LogEvent(core.CategoryOS, core.PriorityWarning,
			fmt.Sprintf("error running command: %s", res.Command),
			map[string]any{"stderr": res.Stderr, "exit_code": res.ExitCode})
		return nil, core.ErrCollection(core.CodeCommandFailed, "failed to run package manager command")
	}

	packages := manager.parse(res.Stdout)
	if len(packages) == 0 {
		task.Result.Message = "no packages found"
		task.Result.Status = core.StatusError
		return nil, nil
	}
	task.Result.Message = fmt.Sprintf("%d packages collected", len(packages))
	task.Result.Status = core.StatusOK
	return &Data{Packages: packages}, nil
}

// parseColumns handles "name version" rows from dpkg-query and dnf,
// skipping headers.
func parseColumns(stdout string) map[string]string {
	packages := make(map[string]string)
	for _, line := range strings.Split(stdout, "\n") {
		columns := strings.Fields(line)
		if len(columns) < 2 || len(columns) > 3 {
			continue
		}
		if strings.Contains(columns[0], "Installed") || strings.Contains(columns[1], "Packages") {
			continue
		}
		packages[columns[0]] = columns[1]
	}
	return packages
}

func parsePacman(stdout string) map[string]string {
	packages := make(map[string]string)
	for _, line := range strings.Split(stdout, "\n") {
		columns := strings.Fields(line)
		if len(columns) != 2 {
			continue
		}
		packages[columns[0]] = columns[1]
	}
	return packages
}

// parseWmic handles "wmic product get name,version" output. Names may
// contain spaces, the version is the last column.
func parseWmic(stdout string) map[string]string {
	packages := make(map[string]string)
	lines := strings.Split(stdout, "\n")
	if len(lines) < 2 {
		return packages
	}
	for _, line := range lines[1:] {
		columns := strings.Fields(line)
		if len(columns) < 2 {
			continue
		}
		packages[strings.Join(columns[:len(columns)-1], " ")] = columns[len(columns)-1]
	}
	return packages
}

// AnalyzerArgs are the caller expectations.
type AnalyzerArgs struct {
	// ExpPackageVer maps package names to expected versions. An empty
	// version accepts any installed version. With RegexMatch both names
	// and versions are regular expressions.
	ExpPackageVer map[string]string `mapstructure:"exp_package_ver"`
	RegexMatch    *bool             `mapstructure:"regex_match"`
}

func (a AnalyzerArgs) regexMatch() bool {
	return a.RegexMatch == nil || *a.RegexMatch
}

// Analyzer checks installed packages against the expectation map.
type Analyzer struct{}

// NewAnalyzer builds the pkglist analyzer.
func NewAnalyzer() *Analyzer {
	return &Analyzer{}
}

// Name implements plugin.Analyzer.
func (a *Analyzer) Name() string {
	return "pkglist_analyzer"
}

// ValidateArgs implements plugin.ArgValidator.
func (a *Analyzer) ValidateArgs(rawArgs map[string]any) error {
	var args AnalyzerArgs
	if err := plugin.DecodeArgs(rawArgs, &args); err != nil {
		return err
	}
	if !args.regexMatch() {
		return nil
	}
	for name, version := range args.ExpPackageVer {
		if _, err := regexp.Compile(name); err != nil {
			return core.ErrInvalidArgs(core.CodeUnknownArgs, fmt.Sprintf("invalid package pattern %q: %v", name, err))
		}
		if version == "" {
			continue
		}
		if _, err := regexp.Compile(version); err != nil {
			return core.ErrInvalidArgs(core.CodeUnknownArgs, fmt.Sprintf("invalid version pattern %q: %v", version, err))
		}
	}
	return nil
}

// Analyze implements plugin.Analyzer.
func (a *Analyzer) Analyze(_ context.Context, task *plugin.Task, data any, rawArgs map[string]any) error {
	record, ok := data.(*Data)
	if !ok {
		return core.ErrInvalidArgs(core.CodeUnknownArgs, "analyzer passed invalid data type")
	}
	var args AnalyzerArgs
	if err := plugin.DecodeArgs(rawArgs, &args); err != nil {
		return err
	}

	if len(args.ExpPackageVer) == 0 {
		task.Result.Message = "expected package versions not provided"
		task.Result.Status = core.StatusNotRun
		return nil
	}

	if args.regexMatch() {
		regexSearch(task, record.Packages, args.ExpPackageVer)
	} else {
		exactMatch(task, record.Packages, args.ExpPackageVer)
	}

	if len(task.Result.Events) > 0 {
		task.Result.Message = "package check failed!"
		task.Result.Status = core.StatusError
		return nil
	}
	task.Result.Message = fmt.Sprintf("%d expected packages present", len(args.ExpPackageVer))
	task.Result.Status = core.StatusOK
	return nil
}

func regexSearch(task *plugin.Task, packages map[string]string, expected map[string]string) {
	for expName, expVersion := range expected {
		nameSearch := regexp.MustCompile(expName)
		var versionSearch *regexp.Regexp
		if expVersion != "" {
			versionSearch = regexp.MustCompile(expVersion)
		}

		found := false
		for name, version := range packages {
			if !nameSearch.MatchString(name) {
				continue
			}
			found = true
			if versionSearch != nil && !versionSearch.MatchString(version) {
				task.LogEvent(core.CategoryApplication, core.PriorityError,
					fmt.Sprintf("package %s version mismatch, expected %s but found %s", expName, expVersion, version),
					map[string]any{
						"expected_package_search": expName,
						"found_package":           name,
						"expected_version_search": expVersion,
						"found_version":           version,
					})
			}
		}
		if !found {
			logMissing(task, expName, expVersion)
		}
	}
}

func exactMatch(task *plugin.Task, packages map[string]string, expected map[string]string) {
	for expName, expVersion := range expected {
		version, installed := packages[expName]
		if !installed {
			logMissing(task, expName, expVersion)
			continue
		}
		if expVersion != "" && version != expVersion {
			task.LogEvent(core.CategoryApplication, core.PriorityError,
				fmt.Sprintf("package %s version mismatch, expected %s but found %s", expName, expVersion, version),
				map[string]any{
					"expected_package": expName,
					"found_package":    expName,
					"expected_version": expVersion,
					"found_version":    version,
				})
		}
	}
}

func logMissing(task *plugin.Task, expName, expVersion string) {
	task.LogEvent(core.CategoryApplication, core.PriorityError,
		fmt.Sprintf("package %s not found in the package list", expName),
		map[string]any{
			"expected_package": expName,
			"expected_version": expVersion,
		})
}

// New builds the pkglist plugin.
func New(deps plugin.Deps) plugin.Plugin {
	return plugin.NewDataPlugin(Name, deps,
		plugin.WithCollector(NewCollector()),
		plugin.WithAnalyzer(NewAnalyzer()),
		plugin.WithAnalyzerArgs(AnalyzerArgs{}),
		plugin.WithDataDecoder(DecodeData),
	)
}
