package template

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	openDelimiter  = "{{"
	closeDelimiter = "}}"
	thisKeyword    = "this"
)

var (
	simplePathPattern = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$\-]*(\.[A-Za-z0-9_$\-]+)*$`)
	literalKeywords   = map[string]struct{}{
		"this": {}, "true": {}, "false": {}, "null": {}, "undefined": {}, "else": {},
	}
)

// topLevelPlaceholders returns the root variable names referenced by simple
// mustaches that sit outside every block. Placeholders inside blocks are
// resolved against block contexts and are not checked.
func topLevelPlaceholders(source string) ([]string, error) {
	var placeholders []string
	seen := make(map[string]struct{})
	depth := 0
	remaining := source
	for {
		start := strings.Index(remaining, openDelimiter)
		if start < 0 {
			return placeholders, nil
		}
		if start > 0 && remaining[start-1] == '\\' {
			remaining = remaining[start+len(openDelimiter):]
			continue
		}
		remaining = remaining[start+len(openDelimiter):]
		end := strings.Index(remaining, closeDelimiter)
		if end < 0 {
			return nil, fmt.Errorf("unterminated placeholder")
		}
		expression := remaining[:end]
		remaining = remaining[end+len(closeDelimiter):]

		expression = strings.TrimPrefix(expression, "{")
		expression = strings.TrimSuffix(expression, "}")
		expression = strings.TrimSpace(strings.Trim(expression, "~"))
		if expression == "" {
			continue
		}
		// A bare {{^}} is the inverse section of the enclosing block, like {{else}}.
		if expression == "^" {
			continue
		}
		switch expression[0] {
		case '#', '^':
			depth++
			continue
		case '/':
			if depth > 0 {
				depth--
			}
			continue
		case '!', '>':
			continue
		case '&':
			expression = strings.TrimSpace(expression[1:])
		}
		if depth > 0 || !simplePathPattern.MatchString(expression) {
			continue
		}
		if _, keyword := literalKeywords[expression]; keyword {
			continue
		}
		segments := strings.Split(expression, ".")
		if segments[0] == thisKeyword {
			segments = segments[1:]
		}
		if len(segments) == 0 {
			continue
		}
		root := segments[0]
		if _, duplicate := seen[root]; duplicate {
			continue
		}
		seen[root] = struct{}{}
		placeholders = append(placeholders, root)
	}
}
