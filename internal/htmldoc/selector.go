package htmldoc

import "strings"

// matcher is one alternative of a comma-separated selector union.
// Empty fields are wildcards.
type matcher struct {
	tag   string
	class string
	id    string
}

// matches reports whether the element satisfies every set component.
func (m matcher) matches(e Element) bool {
	if m.tag != "" && e.Tag() != m.tag {
		return false
	}
	if m.class != "" && !e.HasClass(m.class) {
		return false
	}
	if m.id != "" && e.Attr("id") != m.id {
		return false
	}
	return true
}

// parseSelector parses the supported selector grammar: a comma-separated
// union of simple selectors, each one of `tag`, `.class`, `#id`,
// `tag.class`, or `tag#id`. Unsupported syntax yields an alternative
// that matches nothing rather than an error, so a partially exotic
// union still matches on its simple alternatives.
func parseSelector(selector string) []matcher {
	var out []matcher
	for _, alt := range strings.Split(selector, ",") {
		alt = strings.TrimSpace(alt)
		if alt == "" {
			continue
		}
		m, ok := parseSimple(alt)
		if !ok {
			continue
		}
		out = append(out, m)
	}
	return out
}

// parseSimple parses one simple selector.
func parseSimple(s string) (matcher, bool) {
	var m matcher

	// Combinators and attribute selectors are out of grammar.
	if strings.ContainsAny(s, " >+~[]:") {
		return matcher{}, false
	}

	if i := strings.IndexByte(s, '.'); i >= 0 {
		m.tag = strings.ToLower(s[:i])
		m.class = s[i+1:]
		if m.class == "" || strings.IndexByte(m.class, '#') >= 0 {
			return matcher{}, false
		}
		return m, true
	}

	if i := strings.IndexByte(s, '#'); i >= 0 {
		m.tag = strings.ToLower(s[:i])
		m.id = s[i+1:]
		if m.id == "" {
			return matcher{}, false
		}
		return m, true
	}

	m.tag = strings.ToLower(s)
	return m, true
}
