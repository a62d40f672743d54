package plugin

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/nodescout/nodescout/internal/core"
)

// Rule classifies text matching its pattern into a prioritized finding.
// Rules are plain records evaluated in table order; every rule is tested
// independently, so one line may satisfy several rules.
type Rule struct {
	Pattern  *regexp.Regexp
	Message  string
	Category core.EventCategory

	// Priority defaults to PriorityError when zero.
	Priority core.EventPriority
}

// priority returns the effective priority of the rule.
func (r Rule) priority() core.EventPriority {
	if r.Priority == 0 {
		return core.PriorityError
	}
	return r.Priority
}

// MustRule compiles a rule, panicking on a bad pattern. Intended for the
// package-level rule tables of the built-in probes.
func MustRule(pattern, message string, category core.EventCategory) Rule {
	return Rule{Pattern: regexp.MustCompile(pattern), Message: message, Category: category}
}

// MustRuleAt is MustRule with an explicit priority.
func MustRuleAt(pattern, message string, category core.EventCategory, priority core.EventPriority) Rule {
	r := MustRule(pattern, message, category)
	r.Priority = priority
	return r
}

// ExtendRules prepends custom rules to a base table, preserving order.
func ExtendRules(custom, base []Rule) []Rule {
	if len(custom) == 0 {
		return base
	}
	out := make([]Rule, 0, len(custom)+len(base))
	out = append(out, custom...)
	out = append(out, base...)
	return out
}

// TimestampPattern matches the ISO timestamps emitted by `dmesg
// --time-format iso` and journal logs: 2024-05-01T12:30:45,123456+02:00.
var TimestampPattern = regexp.MustCompile(`(\d{4}-\d+-\d+T\d+:\d+:\d+),(\d+[+-]\d+:\d+)`)

// ParseLogTimestamp parses an ISO log timestamp into UTC.
func ParseLogTimestamp(ts string) (time.Time, error) {
	parsed, err := time.Parse("2006-01-02T15:04:05.999999999Z07:00", strings.Replace(ts, ",", ".", 1))
	if err != nil {
		return time.Time{}, err
	}
	return parsed.UTC(), nil
}

// CheckOptions tunes CheckAll. The zero value groups identical matches and
// keeps up to three leading and trailing timestamps per finding.
type CheckOptions struct {
	// NoGroup emits one event per raw match instead of deduplicating by
	// match content with a count.
	NoGroup bool

	// MaxTimestamps bounds the timestamp list kept per grouped finding:
	// the first and last N are retained. Zero means 3.
	MaxTimestamps int

	// CollapseWindow suppresses recording a new timestamp on a grouped
	// finding when it falls within this interval of one already kept.
	// Zero means one minute.
	CollapseWindow time.Duration
}

func (o CheckOptions) maxTimestamps() int {
	if o.MaxTimestamps <= 0 {
		return 3
	}
	return o.MaxTimestamps
}

func (o CheckOptions) collapseWindow() time.Duration {
	if o.CollapseWindow <= 0 {
		return time.Minute
	}
	return o.CollapseWindow
}

// CheckAll evaluates every rule over the content and returns the resulting
// events. All rules are tested against the full text independently; no rule
// short-circuits another, and identical input always yields the identical
// event sequence. Grouped mode (the default) collapses repeats of the same
// match content into one event carrying a count and a pruned timestamp
// list; ungrouped mode emits every raw match.
func CheckAll(content, source string, rules []Rule, opts CheckOptions) []core.Event {
	var (
		events []core.Event
		index  = map[string]int{}
	)

	for _, rule := range rules {
		for _, loc := range rule.Pattern.FindAllStringSubmatchIndex(content, -1) {
			match := extractMatch(rule.Pattern, content, loc)
			timestamp := timestampAtMatch(content, loc[0])

			if opts.NoGroup {
				event := buildRegexEvent(rule, match, source)
				if timestamp != "" {
					event.Data["timestamp"] = timestamp
				}
				events = append(events, event)
				continue
			}

			key := fmt.Sprint(match)
			if i, seen := index[key]; seen {
				data := events[i].Data
				data["count"] = data["count"].(int) + 1
				if timestamp != "" {
					data["timestamps"] = appendTimestamp(
						data["timestamps"].([]string), timestamp, opts.collapseWindow())
				}
				continue
			}

			event := buildRegexEvent(rule, match, source)
			if timestamp != "" {
				event.Data["timestamps"] = []string{timestamp}
			} else {
				event.Data["timestamps"] = []string{}
			}
			index[key] = len(events)
			events = append(events, event)
		}
	}

	if !opts.NoGroup {
		pruneTimestamps(events, opts.maxTimestamps())
	}
	return events
}

// extractMatch returns the capture groups of a match when the pattern has
// any, otherwise the whole match. Multi-line text is split into lines;
// empty groups are dropped; a single surviving value collapses to a string.
func extractMatch(pattern *regexp.Regexp, content string, loc []int) any {
	var parts []string
	if pattern.NumSubexp() > 0 {
		for i := 1; i <= pattern.NumSubexp(); i++ {
			start, end := loc[2*i], loc[2*i+1]
			if start >= 0 && start != end {
				parts = append(parts, content[start:end])
			}
		}
	} else {
		parts = []string{content[loc[0]:loc[1]]}
	}

	var flat []string
	for _, part := range parts {
		if strings.Contains(part, "\n") {
			for _, line := range strings.Split(strings.TrimSpace(part), "\n") {
				if line != "" {
					flat = append(flat, line)
				}
			}
		} else if part != "" {
			flat = append(flat, part)
		}
	}

	switch len(flat) {
	case 0:
		return ""
	case 1:
		return flat[0]
	default:
		return flat
	}
}

// timestampAtMatch extracts the log timestamp of the line a match starts on.
func timestampAtMatch(content string, matchStart int) string {
	lineStart := strings.LastIndexByte(content[:matchStart], '\n') + 1
	lineEnd := strings.IndexByte(content[matchStart:], '\n')
	if lineEnd == -1 {
		lineEnd = len(content)
	} else {
		lineEnd += matchStart
	}

	m := TimestampPattern.FindStringSubmatch(content[lineStart:lineEnd])
	if m == nil {
		return ""
	}
	return m[1] + "," + m[2]
}

func buildRegexEvent(rule Rule, match any, source string) core.Event {
	return core.NewEvent(rule.Category, rule.priority(), rule.Message).WithData(map[string]any{
		"match_content": match,
		"source":        source,
		"count":         1,
	})
}

// appendTimestamp records a timestamp unless one within the collapse window
// is already kept. Unparsable timestamps are kept verbatim.
func appendTimestamp(existing []string, ts string, window time.Duration) []string {
	parsed, err := ParseLogTimestamp(ts)
	if err != nil {
		return append(existing, ts)
	}
	for _, have := range existing {
		haveParsed, err := ParseLogTimestamp(have)
		if err != nil {
			continue
		}
		delta := parsed.Sub(haveParsed)
		if delta < 0 {
			delta = -delta
		}
		if delta < window {
			return existing
		}
	}
	return append(existing, ts)
}

// pruneTimestamps trims long timestamp lists to the first and last n.
func pruneTimestamps(events []core.Event, n int) {
	for _, event := range events {
		list, ok := event.Data["timestamps"].([]string)
		if !ok {
			continue
		}
		if len(list) == 0 {
			delete(event.Data, "timestamps")
			continue
		}
		if len(list) > 2*n {
			pruned := make([]string, 0, 2*n)
			pruned = append(pruned, list[:n]...)
			pruned = append(pruned, list[len(list)-n:]...)
			event.Data["timestamps"] = pruned
		}
	}
}

// ExcludeCategories drops events of the named categories after matching.
func ExcludeCategories(events []core.Event, exclude []core.EventCategory) []core.Event {
	if len(exclude) == 0 {
		return events
	}
	excluded := make(map[core.EventCategory]bool, len(exclude))
	for _, category := range exclude {
		excluded[category] = true
	}
	kept := events[:0]
	for _, event := range events {
		if !excluded[event.Category] {
			kept = append(kept, event)
		}
	}
	return kept
}
