package models

import (
	"fmt"
	"regexp"
	"strings"
)

// ThemeMode is the light/dark preference persisted with the theme
type ThemeMode string

const (
	ThemeLight ThemeMode = "light"
	ThemeDark  ThemeMode = "dark"
)

// ThemeConfig is the optional visual theme of the platform
type ThemeConfig struct {
	PrimaryColor string    `json:"primaryColor"` // hex code
	Radius       string    `json:"radius"`       // CSS length, e.g. 8px
	Mode         ThemeMode `json:"mode"`
}

// GlobalSettings is the single process-wide branding record
type GlobalSettings struct {
	PlatformName string       `json:"platformName"`
	LogoURL      string       `json:"logoUrl"`
	Theme        *ThemeConfig `json:"theme,omitempty"`
}

// DefaultSettings is used whenever nothing valid is persisted
func DefaultSettings() GlobalSettings {
	return GlobalSettings{PlatformName: "2gether", LogoURL: ""}
}

var (
	hexColor  = regexp.MustCompile(`^#([0-9a-fA-F]{3}|[0-9a-fA-F]{6}|[0-9a-fA-F]{8})$`)
	cssLength = regexp.MustCompile(`^(0|[0-9]+(\.[0-9]+)?(px|rem|em|%))$`)
)

// Validate checks the settings submitted from the settings view
func (s GlobalSettings) Validate() error {
	if strings.TrimSpace(s.PlatformName) == "" {
		return fmt.Errorf("platform name cannot be empty")
	}
	if s.Theme == nil {
		return nil
	}
	if !hexColor.MatchString(s.Theme.PrimaryColor) {
		return fmt.Errorf("primary color %q is not a hex color", s.Theme.PrimaryColor)
	}
	if !cssLength.MatchString(s.Theme.Radius) {
		return fmt.Errorf("radius %q is not a CSS length", s.Theme.Radius)
	}
	if s.Theme.Mode != ThemeLight && s.Theme.Mode != ThemeDark {
		return fmt.Errorf("theme mode %q must be light or dark", s.Theme.Mode)
	}
	return nil
}

// DocumentTitle is the browser title the player uses for a course
func (s GlobalSettings) DocumentTitle(courseName string) string {
	return courseName + " | " + s.PlatformName
}
