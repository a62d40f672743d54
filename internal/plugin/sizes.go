package plugin

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var sizePattern = regexp.MustCompile(`^(\d+\.?\d*)\s*([YZEPTGMK]?)I?B?$`)

// ParseByteSize converts a human-readable size ("30Gi", "4.5GB", "1024") to
// bytes. Units are interpreted as powers of two: 1K is 1024 bytes.
func ParseByteSize(value string) (int64, error) {
	normalized := strings.ToUpper(strings.TrimSpace(value))
	m := sizePattern.FindStringSubmatch(normalized)
	if m == nil {
		return 0, fmt.Errorf("invalid size value: %q", value)
	}
	number, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size value: %q", value)
	}

	exponent := strings.Index("KMGTPEZY", m[2])
	if exponent < 0 {
		return int64(number), nil
	}
	return int64(number * math.Pow(2, float64((exponent+1)*10))), nil
}

// FormatByteSize renders bytes as a short human-readable string in KB, MB,
// or GB.
func FormatByteSize(bytes int64) string {
	kb := float64(bytes) / 1000
	if kb < 1000 {
		return fmt.Sprintf("%.2fKB", kb)
	}
	mb := kb / 1000
	if mb < 1000 {
		return fmt.Sprintf("%.2fMB", mb)
	}
	return fmt.Sprintf("%.2fGB", mb/1000)
}
