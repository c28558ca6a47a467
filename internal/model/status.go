package model

import "fmt"

// Status is the outcome of a page audit.
type Status int

const (
	// StatusPassed means navigation succeeded and every check passed.
	StatusPassed Status = iota

	// StatusFailed means navigation failed or at least one check failed.
	StatusFailed
)

// String returns the lower-case status name.
func (s Status) String() string {
	switch s {
	case StatusPassed:
		return "passed"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Status) UnmarshalText(text []byte) error {
	parsed, err := ParseStatus(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseStatus converts a status name back to a Status.
func ParseStatus(s string) (Status, error) {
	switch s {
	case "passed":
		return StatusPassed, nil
	case "failed":
		return StatusFailed, nil
	default:
		return StatusFailed, fmt.Errorf("unknown status %q", s)
	}
}
