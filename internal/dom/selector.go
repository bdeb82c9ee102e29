package dom

import (
	"fmt"
	"slices"
	"strings"
)

// Selector is a single compound selector: an optional tag (or *), an optional id and any number of classes.
type Selector struct {
	Tag     string // upper-cased, empty or "*" matches any tag
	ID      string
	Classes []string
}

// Matches reports whether n satisfies every part of the selector.
func (s Selector) Matches(n Node) bool {
	if n == nil {
		return false
	}
	if s.Tag != "" && s.Tag != "*" && !strings.EqualFold(n.TagName(), s.Tag) {
		return false
	}
	if s.ID != "" && n.ID() != s.ID {
		return false
	}
	classes := n.ClassList()
	for _, c := range s.Classes {
		if !slices.Contains(classes, c) {
			return false
		}
	}
	return true
}

// ParseSelector parses a comma separated list of compound selectors such as "video.cam, #main, audio".
// Combinators and attribute selectors are not supported.
func ParseSelector(input string) ([]Selector, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, fmt.Errorf("empty selector")
	}

	var groups []Selector
	for _, part := range strings.Split(input, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			return nil, fmt.Errorf("empty selector group in %q", input)
		}
		if strings.ContainsAny(part, " \t\n>+~[]():") {
			return nil, fmt.Errorf("unsupported selector %q", part)
		}

		sel, err := parseCompound(part)
		if err != nil {
			return nil, err
		}
		groups = append(groups, sel)
	}
	return groups, nil
}

func parseCompound(part string) (Selector, error) {
	var sel Selector

	i := strings.IndexAny(part, "#.")
	if i < 0 {
		sel.Tag = strings.ToUpper(part)
		return sel, nil
	}
	sel.Tag = strings.ToUpper(part[:i])

	rest := part[i:]
	for rest != "" {
		marker := rest[0]
		rest = rest[1:]

		end := strings.IndexAny(rest, "#.")
		if end < 0 {
			end = len(rest)
		}
		name := rest[:end]
		rest = rest[end:]

		if name == "" {
			return Selector{}, fmt.Errorf("dangling %q in selector %q", marker, part)
		}

		switch marker {
		case '#':
			if sel.ID != "" {
				return Selector{}, fmt.Errorf("selector %q has more than one id", part)
			}
			sel.ID = name
		case '.':
			sel.Classes = append(sel.Classes, name)
		}
	}
	return sel, nil
}
