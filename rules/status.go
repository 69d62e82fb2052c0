package rules

import (
	"encoding/json"
	"fmt"
	"regexp"
	"slices"
	"strings"
)

// Color is either a palette name or a #rrggbb hex value.
type Color string

var palette = []Color{
	"gray",
	"red",
	"orange",
	"yellow",
	"green",
	"teal",
	"blue",
	"indigo",
	"purple",
	"pink",
}

var hexColor = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// Palette returns the named stage colors.
func Palette() []Color {
	return palette
}

// ParseColor normalizes and validates a color. Empty input yields "gray".
func ParseColor(s string) (Color, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "gray", nil
	}
	if hexColor.MatchString(s) {
		return Color(strings.ToLower(s)), nil
	}
	c := Color(strings.ToLower(s))
	if !slices.Contains(palette, c) {
		return "", fmt.Errorf("%w: %q", ErrInvalidColor, s)
	}
	return c, nil
}

// UnmarshalJSON validates the decoded color.
func (c *Color) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	v, err := ParseColor(raw)
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// TagOption is a tag offered by a stage.
type TagOption struct {
	Name  string `json:"name"`
	Color Color  `json:"color"`
}

// CustomStatus is a manually invoked status button on a stage. Invoking it
// sets the application status to Name and runs Actions in order.
type CustomStatus struct {
	Name            string   `json:"name"`
	Color           Color    `json:"color"`
	Icon            string   `json:"icon,omitempty"`
	IsPrimary       bool     `json:"is_primary"`
	RequiresComment bool     `json:"requires_comment"`
	RequiresScore   bool     `json:"requires_score"`
	Actions         []Action `json:"actions,omitempty"`
}

// Validate checks the status name and its actions.
func (s CustomStatus) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("%w: name required", ErrInvalidStatus)
	}
	for i, a := range s.Actions {
		if err := a.Validate(); err != nil {
			return fmt.Errorf("status %q action %d: %w", s.Name, i, err)
		}
	}
	return nil
}

// ValidateStatuses checks each status and rejects duplicate names
// and more than one primary status.
func ValidateStatuses(statuses []CustomStatus) error {
	seen := make(map[string]bool, len(statuses))
	primary := 0
	for _, s := range statuses {
		if err := s.Validate(); err != nil {
			return err
		}
		if seen[s.Name] {
			return fmt.Errorf("%w: duplicate name %q", ErrInvalidStatus, s.Name)
		}
		seen[s.Name] = true
		if s.IsPrimary {
			primary++
		}
	}
	if primary > 1 {
		return fmt.Errorf("%w: only one primary status allowed", ErrInvalidStatus)
	}
	return nil
}

// FindStatus returns the status with the given name.
func FindStatus(statuses []CustomStatus, name string) (CustomStatus, bool) {
	i := slices.IndexFunc(statuses, func(s CustomStatus) bool {
		return s.Name == name
	})
	if i < 0 {
		return CustomStatus{}, false
	}
	return statuses[i], true
}
