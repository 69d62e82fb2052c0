package rules

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
)

const visibilityPrefix = "only show stage to reviewer types"

var visibilityStatement = regexp.MustCompile(`(?i)^\s*only\s+show\s+stage\s+to\s+reviewer\s+types\s*\[(.*)\]\s*$`)

// ParseVisibility reads a stage visibility restriction and returns the
// reviewer type names allowed to see the stage. Empty input means the
// stage is unrestricted and yields nil.
func ParseVisibility(s string) ([]string, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}

	m := visibilityStatement.FindStringSubmatch(s)
	if m == nil {
		return nil, fmt.Errorf("%w: %q", ErrMalformedVisibility, s)
	}

	types := splitList(m[1])
	if len(types) == 0 {
		return nil, nil
	}
	return types, nil
}

// FormatVisibility writes a visibility restriction for the given reviewer
// type names. No names yields "", meaning unrestricted.
func FormatVisibility(types []string) string {
	quoted := make([]string, 0, len(types))
	for _, t := range types {
		t = strings.TrimSpace(t)
		if t == "" || slices.Contains(quoted, "'"+t+"'") {
			continue
		}
		quoted = append(quoted, "'"+t+"'")
	}
	if len(quoted) == 0 {
		return ""
	}
	return fmt.Sprintf("%s [%s]", visibilityPrefix, strings.Join(quoted, ","))
}
