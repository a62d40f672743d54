package core

import (
	"fmt"
	"time"
)

// EventPriority orders findings by severity. Higher values dominate when a
// result status is derived from its events.
type EventPriority int

const (
	PriorityInfo     EventPriority = 1
	PriorityWarning  EventPriority = 2
	PriorityError    EventPriority = 3
	PriorityCritical EventPriority = 4
)

// String returns the canonical name of the priority.
func (p EventPriority) String() string {
	switch p {
	case PriorityInfo:
		return "INFO"
	case PriorityWarning:
		return "WARNING"
	case PriorityError:
		return "ERROR"
	case PriorityCritical:
		return "CRITICAL"
	default:
		return fmt.Sprintf("EventPriority(%d)", int(p))
	}
}

// ParsePriority converts a priority name to an EventPriority with validation.
func ParsePriority(s string) (EventPriority, error) {
	switch s {
	case "INFO":
		return PriorityInfo, nil
	case "WARNING":
		return PriorityWarning, nil
	case "ERROR":
		return PriorityError, nil
	case "CRITICAL":
		return PriorityCritical, nil
	default:
		return 0, fmt.Errorf("invalid event priority: %s", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (p EventPriority) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *EventPriority) UnmarshalText(text []byte) error {
	parsed, err := ParsePriority(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// EventCategory classifies findings by subsystem.
type EventCategory string

const (
	CategoryOS             EventCategory = "OS"
	CategoryBIOS           EventCategory = "BIOS"
	CategorySWDriver       EventCategory = "SW_DRIVER"
	CategoryRAS            EventCategory = "RAS"
	CategoryIO             EventCategory = "IO"
	CategorySSH            EventCategory = "SSH"
	CategoryPlatform       EventCategory = "PLATFORM"
	CategoryApplication    EventCategory = "APPLICATION"
	CategoryMemory         EventCategory = "MEMORY"
	CategoryStorage        EventCategory = "STORAGE"
	CategoryCompute        EventCategory = "COMPUTE"
	CategoryFirmware       EventCategory = "FW"
	CategoryInfrastructure EventCategory = "INFRASTRUCTURE"
	CategoryRuntime        EventCategory = "RUNTIME"
	CategoryUnknown        EventCategory = "UNKNOWN"
)

// String returns the string representation of the category.
func (c EventCategory) String() string {
	return string(c)
}

// Event is one prioritized, categorized finding produced during collection or
// analysis. Events are immutable once created.
type Event struct {
	Category    EventCategory  `json:"category" yaml:"category"`
	Priority    EventPriority  `json:"priority" yaml:"priority"`
	Description string         `json:"description" yaml:"description"`
	Source      string         `json:"source,omitempty" yaml:"source,omitempty"`
	Data        map[string]any `json:"data,omitempty" yaml:"data,omitempty"`
	Timestamp   time.Time      `json:"timestamp" yaml:"timestamp"`
}

// NewEvent creates an event stamped with the current UTC time.
func NewEvent(category EventCategory, priority EventPriority, description string) Event {
	return Event{
		Category:    category,
		Priority:    priority,
		Description: description,
		Timestamp:   time.Now().UTC(),
	}
}

// WithData attaches structured detail to the event.
func (e Event) WithData(data map[string]any) Event {
	e.Data = data
	return e
}

// WithSource records the task that produced the event.
func (e Event) WithSource(source string) Event {
	e.Source = source
	return e
}

// MaxEventPriority returns the highest priority across events, or zero when
// the slice is empty.
func MaxEventPriority(events []Event) EventPriority {
	var max EventPriority
	for _, event := range events {
		if event.Priority > max {
			max = event.Priority
		}
	}
	return max
}

// CountByPriority tallies events at the given priority.
func CountByPriority(events []Event, priority EventPriority) int {
	count := 0
	for _, event := range events {
		if event.Priority == priority {
			count++
		}
	}
	return count
}
