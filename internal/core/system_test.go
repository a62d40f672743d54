package core

import "testing"

func TestInteractionLevel_Order(t *testing.T) {
	if !(InteractionPassive < InteractionInteractive && InteractionInteractive < InteractionDisruptive) {
		t.Fatalf("expected PASSIVE < INTERACTIVE < DISRUPTIVE")
	}
}

func TestInteractionLevel_Parse(t *testing.T) {
	for _, l := range []InteractionLevel{InteractionPassive, InteractionInteractive, InteractionDisruptive} {
		parsed, err := ParseInteractionLevel(l.String())
		if err != nil {
			t.Fatalf("unexpected error parsing %s: %v", l, err)
		}
		if parsed != l {
			t.Fatalf("expected %s, got %s", l, parsed)
		}
	}
	if _, err := ParseInteractionLevel("AGGRESSIVE"); err == nil {
		t.Fatalf("expected error parsing invalid level")
	}
}

func TestSystemInfo_Allows(t *testing.T) {
	cases := []struct {
		session  InteractionLevel
		required InteractionLevel
		allowed  bool
	}{
		{InteractionPassive, InteractionPassive, true},
		{InteractionPassive, InteractionInteractive, false},
		{InteractionPassive, InteractionDisruptive, false},
		{InteractionInteractive, InteractionPassive, true},
		{InteractionInteractive, InteractionInteractive, true},
		{InteractionInteractive, InteractionDisruptive, false},
		{InteractionDisruptive, InteractionDisruptive, true},
	}
	for _, tc := range cases {
		info := NewSystemInfo("host")
		info.InteractionLevel = tc.session
		if info.Allows(tc.required) != tc.allowed {
			t.Fatalf("session %s required %s: expected allowed=%v", tc.session, tc.required, tc.allowed)
		}
	}
}

func TestNewSystemInfo_Defaults(t *testing.T) {
	info := NewSystemInfo("host")
	if info.OSFamily != OSFamilyUnknown {
		t.Fatalf("expected unknown OS family by default")
	}
	if info.Location != LocationLocal {
		t.Fatalf("expected local location by default")
	}
	if info.InteractionLevel != InteractionPassive {
		t.Fatalf("expected passive level by default")
	}
}

func TestSystemInfo_Validate(t *testing.T) {
	info := NewSystemInfo("host")
	if err := info.Validate(); err != nil {
		t.Fatalf("unexpected error validating defaults: %v", err)
	}

	noName := NewSystemInfo("")
	if err := noName.Validate(); err == nil {
		t.Fatalf("expected error for empty name")
	}

	badFamily := NewSystemInfo("host")
	badFamily.OSFamily = OSFamily("BEOS")
	if err := badFamily.Validate(); err == nil {
		t.Fatalf("expected error for unknown OS family")
	}

	badLocation := NewSystemInfo("host")
	badLocation.Location = SystemLocation("ORBIT")
	if err := badLocation.Validate(); err == nil {
		t.Fatalf("expected error for unknown location")
	}
}

func TestParseOSFamily(t *testing.T) {
	f, err := ParseOSFamily("LINUX")
	if err != nil || f != OSFamilyLinux {
		t.Fatalf("expected LINUX, got %s (%v)", f, err)
	}
	if _, err := ParseOSFamily("plan9"); err == nil {
		t.Fatalf("expected error for unknown family")
	}
}

func TestParseLocation(t *testing.T) {
	l, err := ParseLocation("REMOTE")
	if err != nil || l != LocationRemote {
		t.Fatalf("expected REMOTE, got %s (%v)", l, err)
	}
	if _, err := ParseLocation("nearby"); err == nil {
		t.Fatalf("expected error for unknown location")
	}
}
