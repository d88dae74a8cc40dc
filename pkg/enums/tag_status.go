package enums

import "fmt"

// TagStatus tracks commercial tag visibility.
type TagStatus string

const (
	TagStatusActive  TagStatus = "active"
	TagStatusExpired TagStatus = "expired"
)

var validTagStatuses = []TagStatus{
	TagStatusActive,
	TagStatusExpired,
}

// String implements fmt.Stringer.
func (s TagStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known TagStatus.
func (s TagStatus) IsValid() bool {
	for _, candidate := range validTagStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseTagStatus converts raw input into a TagStatus.
func ParseTagStatus(value string) (TagStatus, error) {
	for _, candidate := range validTagStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid tag status %q", value)
}
