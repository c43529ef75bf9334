// Package enums provides type-safe enumeration types for the web interface.
package enums

import "fmt"

// FilterMode selects which records the dashboard shows.
type FilterMode int

// filter modes
const (
	FilterModeAll FilterMode = iota
	FilterModeUnapplied
)

// String returns the string representation of the filter mode
func (m FilterMode) String() string {
	switch m {
	case FilterModeUnapplied:
		return "unapplied"
	default:
		return "all"
	}
}

// MarshalText implements encoding.TextMarshaler
func (m FilterMode) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

// ParseFilterMode converts a string to a FilterMode
func ParseFilterMode(s string) (FilterMode, error) {
	switch s {
	case "all":
		return FilterModeAll, nil
	case "unapplied":
		return FilterModeUnapplied, nil
	default:
		return FilterModeAll, fmt.Errorf("invalid filter mode: %q", s)
	}
}

// Theme selects the dashboard color scheme.
type Theme int

// themes
const (
	ThemeDark Theme = iota
	ThemeLight
)

// String returns the string representation of the theme
func (t Theme) String() string {
	switch t {
	case ThemeLight:
		return "light"
	default:
		return "dark"
	}
}

// MarshalText implements encoding.TextMarshaler
func (t Theme) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

// ParseTheme converts a string to a Theme
func ParseTheme(s string) (Theme, error) {
	switch s {
	case "dark":
		return ThemeDark, nil
	case "light":
		return ThemeLight, nil
	default:
		return ThemeDark, fmt.Errorf("invalid theme: %q", s)
	}
}
