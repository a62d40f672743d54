package core

import "fmt"

// OSFamily identifies the operating system family of a target system.
type OSFamily string

const (
	OSFamilyLinux   OSFamily = "LINUX"
	OSFamilyWindows OSFamily = "WINDOWS"
	OSFamilyUnknown OSFamily = "UNKNOWN"
)

// String returns the string representation of the OS family.
func (f OSFamily) String() string {
	return string(f)
}

// ValidOSFamily checks if an OS family value is known.
func ValidOSFamily(f OSFamily) bool {
	switch f {
	case OSFamilyLinux, OSFamilyWindows, OSFamilyUnknown:
		return true
	default:
		return false
	}
}

// ParseOSFamily converts a string to an OSFamily with validation.
func ParseOSFamily(s string) (OSFamily, error) {
	f := OSFamily(s)
	if !ValidOSFamily(f) {
		return "", fmt.Errorf("invalid OS family: %s", s)
	}
	return f, nil
}

// SystemLocation distinguishes the local machine from a remote target.
type SystemLocation string

const (
	LocationLocal  SystemLocation = "LOCAL"
	LocationRemote SystemLocation = "REMOTE"
)

// String returns the string representation of the location.
func (l SystemLocation) String() string {
	return string(l)
}

// ValidLocation checks if a location value is known.
func ValidLocation(l SystemLocation) bool {
	return l == LocationLocal || l == LocationRemote
}

// ParseLocation converts a string to a SystemLocation with validation.
func ParseLocation(s string) (SystemLocation, error) {
	l := SystemLocation(s)
	if !ValidLocation(l) {
		return "", fmt.Errorf("invalid system location: %s", s)
	}
	return l, nil
}

// InteractionLevel is the permission tier a session grants to probes. A probe
// declaring a requirement above the session's level is never run.
type InteractionLevel int

const (
	// InteractionPassive allows read-only data collection.
	InteractionPassive InteractionLevel = 0

	// InteractionInteractive allows actions that may modify system state.
	InteractionInteractive InteractionLevel = 1

	// InteractionDisruptive allows actions that can interfere with drivers
	// or other core components.
	InteractionDisruptive InteractionLevel = 2
)

// String returns the canonical name of the interaction level.
func (l InteractionLevel) String() string {
	switch l {
	case InteractionPassive:
		return "PASSIVE"
	case InteractionInteractive:
		return "INTERACTIVE"
	case InteractionDisruptive:
		return "DISRUPTIVE"
	default:
		return fmt.Sprintf("InteractionLevel(%d)", int(l))
	}
}

// ParseInteractionLevel converts a level name to an InteractionLevel.
func ParseInteractionLevel(s string) (InteractionLevel, error) {
	switch s {
	case "PASSIVE":
		return InteractionPassive, nil
	case "INTERACTIVE":
		return InteractionInteractive, nil
	case "DISRUPTIVE":
		return InteractionDisruptive, nil
	default:
		return 0, fmt.Errorf("invalid interaction level: %s", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (l InteractionLevel) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *InteractionLevel) UnmarshalText(text []byte) error {
	parsed, err := ParseInteractionLevel(string(text))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// SystemInfo identifies the target of one executor run. It is created by the
// caller; the connection layer may resolve an UNKNOWN OS family at connect
// time, after which the record is treated as immutable.
type SystemInfo struct {
	Name             string           `mapstructure:"name" json:"name" yaml:"name"`
	SKU              string           `mapstructure:"sku" json:"sku,omitempty" yaml:"sku,omitempty"`
	Platform         string           `mapstructure:"platform" json:"platform,omitempty" yaml:"platform,omitempty"`
	OSFamily         OSFamily         `mapstructure:"os_family" json:"os_family" yaml:"os_family"`
	Location         SystemLocation   `mapstructure:"location" json:"location" yaml:"location"`
	InteractionLevel InteractionLevel `mapstructure:"interaction_level" json:"interaction_level" yaml:"interaction_level"`
}

// NewSystemInfo builds a SystemInfo with defaults for unset fields: a local,
// passive target of unknown OS family.
func NewSystemInfo(name string) SystemInfo {
	return SystemInfo{
		Name:             name,
		OSFamily:         OSFamilyUnknown,
		Location:         LocationLocal,
		InteractionLevel: InteractionPassive,
	}
}

// Allows reports whether the session permits a probe requiring the given
// interaction level.
func (s SystemInfo) Allows(required InteractionLevel) bool {
	return required <= s.InteractionLevel
}

// Validate checks system info invariants.
func (s SystemInfo) Validate() error {
	if s.Name == "" {
		return ErrInvalidArgs("SYSTEM_NAME_REQUIRED", "system name cannot be empty")
	}
	if !ValidOSFamily(s.OSFamily) {
		return ErrInvalidArgs("INVALID_OS_FAMILY", fmt.Sprintf("unknown OS family %q", s.OSFamily))
	}
	if !ValidLocation(s.Location) {
		return ErrInvalidArgs("INVALID_LOCATION", fmt.Sprintf("unknown system location %q", s.Location))
	}
	return nil
}
