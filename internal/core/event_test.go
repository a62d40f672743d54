package core

import (
	"testing"
	"time"
)

func TestEventPriority_Order(t *testing.T) {
	if !(PriorityInfo < PriorityWarning && PriorityWarning < PriorityError && PriorityError < PriorityCritical) {
		t.Fatalf("expected INFO < WARNING < ERROR < CRITICAL")
	}
}

func TestEventPriority_Parse(t *testing.T) {
	for _, p := range []EventPriority{PriorityInfo, PriorityWarning, PriorityError, PriorityCritical} {
		parsed, err := ParsePriority(p.String())
		if err != nil {
			t.Fatalf("unexpected error parsing %s: %v", p, err)
		}
		if parsed != p {
			t.Fatalf("expected %s, got %s", p, parsed)
		}
	}
	if _, err := ParsePriority("SEVERE"); err == nil {
		t.Fatalf("expected error parsing invalid priority")
	}
}

func TestNewEvent(t *testing.T) {
	before := time.Now().UTC()
	event := NewEvent(CategoryOS, PriorityError, "kernel mismatch").
		WithSource("kernel_analyzer").
		WithData(map[string]any{"expected": "a", "actual": "b"})

	if event.Category != CategoryOS || event.Priority != PriorityError {
		t.Fatalf("unexpected event fields: %+v", event)
	}
	if event.Source != "kernel_analyzer" {
		t.Fatalf("expected source to be set")
	}
	if event.Data["expected"] != "a" {
		t.Fatalf("expected data to be attached")
	}
	if event.Timestamp.Before(before) {
		t.Fatalf("expected timestamp to be stamped at creation")
	}
	if event.Timestamp.Location() != time.UTC {
		t.Fatalf("expected UTC timestamp")
	}
}

func TestMaxEventPriority(t *testing.T) {
	if MaxEventPriority(nil) != 0 {
		t.Fatalf("expected zero priority for no events")
	}
	events := []Event{
		NewEvent(CategoryOS, PriorityInfo, "a"),
		NewEvent(CategoryOS, PriorityCritical, "b"),
		NewEvent(CategoryOS, PriorityWarning, "c"),
	}
	if MaxEventPriority(events) != PriorityCritical {
		t.Fatalf("expected critical to dominate")
	}
}

func TestCountByPriority(t *testing.T) {
	events := []Event{
		NewEvent(CategoryOS, PriorityWarning, "a"),
		NewEvent(CategoryOS, PriorityWarning, "b"),
		NewEvent(CategoryOS, PriorityError, "c"),
	}
	if CountByPriority(events, PriorityWarning) != 2 {
		t.Fatalf("expected two warnings")
	}
	if CountByPriority(events, PriorityError) != 1 {
		t.Fatalf("expected one error")
	}
	if CountByPriority(events, PriorityCritical) != 0 {
		t.Fatalf("expected zero criticals")
	}
}
