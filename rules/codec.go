package rules

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Encode serializes a rule set to the JSON array format stored on a stage.
// An empty rule set encodes to "".
func Encode(rs []Rule) (string, error) {
	if len(rs) == 0 {
		return "", nil
	}

	data, err := json.Marshal(rs)
	if err != nil {
		return "", fmt.Errorf("encode rules: %w", err)
	}
	return string(data), nil
}

// Decode reads a persisted rule set in either format.
//
// JSON input (an array, or a single rule object) must be well formed;
// anything else is read line by line as legacy template statements, and
// lines that do not match the template are dropped.
func Decode(raw string) ([]Rule, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	switch raw[0] {
	case '[':
		var rs []Rule
		if err := json.Unmarshal([]byte(raw), &rs); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedRules, err)
		}
		return rs, nil
	case '{':
		var r Rule
		if err := json.Unmarshal([]byte(raw), &r); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedRules, err)
		}
		return []Rule{r}, nil
	}

	var rs []Rule
	for i, line := range strings.Split(raw, "\n") {
		r, ok := ParseLegacy(line)
		if !ok {
			continue
		}
		r.ID = fmt.Sprintf("legacy-%d", i)
		rs = append(rs, r)
	}
	return rs, nil
}

// Upgrade rewrites a persisted rule set in the current format.
// The second result reports whether the stored text changed.
func Upgrade(raw string) (string, bool, error) {
	rs, err := Decode(raw)
	if err != nil {
		return raw, false, err
	}

	encoded, err := Encode(rs)
	if err != nil {
		return raw, false, err
	}
	return encoded, encoded != strings.TrimSpace(raw), nil
}
