package rules

import (
	"regexp"
	"strings"
)

var legacyStatement = regexp.MustCompile(
	`(?i)^\s*if\s+(\S+)\s+(>=|<=|==|!=|=|>|<|contains|starts_with|is_empty|is_not_empty)\s*(.*?)\s+then\s+(.+?)\s*$`,
)

var legacyPhrases = []struct {
	pattern *regexp.Regexp
	build   func(arg string) Action
}{
	{
		regexp.MustCompile(`(?i)^move\s+to\s+stage\s+group\s+(.+)$`),
		func(arg string) Action { return MoveToStageGroup(unquote(arg)) },
	},
	{
		regexp.MustCompile(`(?i)^move\s+to\s+stage\s+(.+)$`),
		func(arg string) Action { return MoveToStage(unquote(arg)) },
	},
	{
		regexp.MustCompile(`(?i)^move\s+to\s+group\s+(.+)$`),
		func(arg string) Action { return MoveToGroup(unquote(arg)) },
	},
	{
		regexp.MustCompile(`(?i)^add\s+tags?\s+(.+)$`),
		func(arg string) Action { return AddTags(splitList(arg)...) },
	},
	{
		regexp.MustCompile(`(?i)^remove\s+tags?\s+(.+)$`),
		func(arg string) Action { return RemoveTags(splitList(arg)...) },
	},
	{
		regexp.MustCompile(`(?i)^send\s+email(?:\s+(.+))?$`),
		func(arg string) Action { return SendEmail(Email{Template: unquote(arg)}) },
	},
}

// ParseLegacy translates a single-condition template statement of the form
// "if <field> <op> <value> then <action phrase>" into a Rule.
// It reports false when the statement does not match the template.
func ParseLegacy(statement string) (Rule, bool) {
	m := legacyStatement.FindStringSubmatch(statement)
	if m == nil {
		return Rule{}, false
	}

	op := Operator(strings.ToLower(m[2]))
	if op == "=" {
		op = OpEqual
	}

	value := unquote(m[3])
	if op.Unary() {
		value = ""
	} else if value == "" {
		return Rule{}, false
	}

	action, ok := parsePhrase(m[4])
	if !ok {
		return Rule{}, false
	}

	return Rule{
		Name: strings.TrimSpace(statement),
		Conditions: []Condition{
			{Field: m[1], Operator: op, Value: Value(value)},
		},
		Logic:   LogicAnd,
		Actions: []Action{action},
		Active:  true,
	}, true
}

func parsePhrase(phrase string) (Action, bool) {
	phrase = strings.TrimSpace(phrase)
	for _, p := range legacyPhrases {
		m := p.pattern.FindStringSubmatch(phrase)
		if m == nil {
			continue
		}
		a := p.build(m[1])
		if a.Validate() != nil {
			return Action{}, false
		}
		return a, true
	}
	return Action{}, false
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if v := unquote(p); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func unquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 {
		first, last := s[0], s[len(s)-1]
		if (first == '\'' || first == '"') && first == last {
			return s[1 : len(s)-1]
		}
	}
	return s
}
