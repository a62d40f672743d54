package dmesg

import (
	"context"
	"strings"
	"time"

	"github.com/nodescout/nodescout/internal/core"
	"github.com/nodescout/nodescout/internal/plugin"
)

// AnalyzerArgs are the caller expectations for dmesg analysis. All fields
// are optional; the zero value scans the full log with every rule.
type AnalyzerArgs struct {
	// AnalysisRangeStart and AnalysisRangeEnd bound the analyzed window.
	// Lines without a parsable timestamp outside an active window are
	// dropped before rule evaluation.
	AnalysisRangeStart *time.Time `mapstructure:"analysis_range_start"`
	AnalysisRangeEnd   *time.Time `mapstructure:"analysis_range_end"`

	// ExcludeCategory suppresses findings of the named categories.
	ExcludeCategory []string `mapstructure:"exclude_category"`

	// CheckUnknownErrors controls the fallback pass over error-level lines
	// that matched no known rule. Nil means enabled.
	CheckUnknownErrors *bool `mapstructure:"check_unknown_errors"`
}

func (a AnalyzerArgs) checkUnknown() bool {
	return a.CheckUnknownErrors == nil || *a.CheckUnknownErrors
}

// Analyzer classifies dmesg content with the rule table.
type Analyzer struct{}

// NewAnalyzer builds the dmesg analyzer.
func NewAnalyzer() *Analyzer {
	return &Analyzer{}
}

// Name implements plugin.Analyzer.
func (a *Analyzer) Name() string {
	return "dmesg_analyzer"
}

// ValidateArgs implements plugin.ArgValidator.
func (a *Analyzer) ValidateArgs(rawArgs map[string]any) error {
	var args AnalyzerArgs
	return plugin.DecodeArgs(rawArgs, &args)
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

	content := record.Content
	if args.AnalysisRangeStart != nil || args.AnalysisRangeEnd != nil {
		task.Log.Info("filtering dmesg by time range",
			"start", args.AnalysisRangeStart, "end", args.AnalysisRangeEnd)
		content = FilterByTimeRange(content, args.AnalysisRangeStart, args.AnalysisRangeEnd)
		task.Result.AddArtifact(core.FileArtifact{Filename: "filtered_dmesg.log", Contents: content})
	}

	knownEvents := plugin.CheckAll(content, "dmesg", ErrorRules, plugin.CheckOptions{})

	var exclude []core.EventCategory
	for _, category := range args.ExcludeCategory {
		exclude = append(exclude, core.EventCategory(category))
	}
	knownEvents = plugin.ExcludeCategories(knownEvents, exclude)

	for _, event := range knownEvents {
		task.Result.AddEvent(event)
	}

	if args.checkUnknown() {
		for _, event := range plugin.CheckAll(content, "dmesg", unknownErrorRule, plugin.CheckOptions{}) {
			if !isKnownError(knownEvents, matchString(event)) {
				task.Result.AddEvent(event)
			}
		}
	}
	return nil
}

// FilterByTimeRange keeps the log lines whose timestamps fall inside the
// window. Lines before the first in-range timestamp are dropped; the scan
// stops at the first line past the end bound.
func FilterByTimeRange(content string, start, end *time.Time) string {
	var b strings.Builder
	foundStart := start == nil

	for _, line := range strings.Split(content, "\n") {
		m := plugin.TimestampPattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		ts, err := plugin.ParseLogTimestamp(m[1] + "," + m[2])
		if err != nil {
			continue
		}
		if start != nil && !foundStart && !ts.Before(start.UTC()) {
			foundStart = true
		} else if end != nil && !ts.Before(end.UTC()) {
			break
		}
		if foundStart {
			b.WriteString(line)
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// matchString flattens an event's matched content to one string.
func matchString(event core.Event) string {
	switch match := event.Data["match_content"].(type) {
	case string:
		return match
	case []string:
		return strings.Join(match, "\n")
	default:
		return ""
	}
}

// isKnownError reports whether an unknown-pass line is already covered by a
// known rule or by a multi-line match that contains it.
func isKnownError(knownEvents []core.Event, match string) bool {
	for _, rule := range ErrorRules {
		if rule.Pattern.MatchString(match) {
			return true
		}
	}
	for _, event := range knownEvents {
		switch known := event.Data["match_content"].(type) {
		case []string:
			for _, line := range known {
				if strings.Contains(line, match) {
					return true
				}
			}
		case string:
			if strings.Contains(match, known) {
				return true
			}
		}
	}
	return false
}
