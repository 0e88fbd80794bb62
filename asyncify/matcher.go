package asyncify

import (
	"strings"

	"github.com/wippyai/noasync/syntax/ast"
)

// DefaultMagic is the prefix used by a class that configures none.
const DefaultMagic = "do"

// MagicNames is an ordered, duplicate-free set of magic call prefixes.
type MagicNames []string

// EffectiveMagic returns the configured prefixes, or DefaultMagic alone
// when none are configured. Empty and repeated prefixes are dropped.
func EffectiveMagic(configured ...string) MagicNames {
	var out MagicNames
	seen := make(map[string]bool, len(configured))
	for _, p := range configured {
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	if len(out) == 0 {
		return MagicNames{DefaultMagic}
	}
	return out
}

// Matcher builds a prefix matcher over the names.
func (m MagicNames) Matcher() *PrefixMatcher {
	return NewPrefixMatcher(m)
}

func (m MagicNames) String() string {
	return strings.Join(m, ",")
}

// NameMatcher decides whether a resolved call name is a suspension point.
type NameMatcher interface {
	MatchName(name string) bool
}

// CallName resolves the name a call targets: a bare identifier, or the final
// segment of an attribute access. Any other callee is unresolvable.
func CallName(call *ast.Call) (string, bool) {
	switch fn := call.Func.(type) {
	case *ast.Name:
		return fn.ID, true
	case *ast.Attribute:
		return fn.Attr, true
	}
	return "", false
}

// MatchCall reports whether call is a magic call under m.
func MatchCall(m NameMatcher, call *ast.Call) bool {
	name, ok := CallName(call)
	if !ok {
		return false
	}
	return m.MatchName(name)
}

// PrefixMatcher matches names by prefix.
type PrefixMatcher struct {
	prefixes []string
}

// NewPrefixMatcher creates a matcher that matches names starting with any prefix.
func NewPrefixMatcher(prefixes []string) *PrefixMatcher {
	return &PrefixMatcher{prefixes: prefixes}
}

// MatchName returns true if the name starts with any prefix.
func (m *PrefixMatcher) MatchName(name string) bool {
	for _, p := range m.prefixes {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}

// ExactMatcher matches exact names.
type ExactMatcher struct {
	names map[string]bool
}

// NewExactMatcher creates a matcher from a list of names.
func NewExactMatcher(names []string) *ExactMatcher {
	m := &ExactMatcher{names: make(map[string]bool)}
	for _, n := range names {
		m.names[n] = true
	}
	return m
}

// MatchName returns true if the name is listed.
func (m *ExactMatcher) MatchName(name string) bool {
	return m.names[name]
}

// WildcardMatcher matches patterns with wildcard support.
//
// Supports patterns like:
//   - "fetch" - exact name
//   - "get_*" - prefix
//   - "*_async" - suffix
//   - "*" - matches everything
type WildcardMatcher struct {
	exact    map[string]bool
	prefixes []string
	suffixes []string
	matchAll bool
}

// NewWildcardMatcher creates a matcher with wildcard support.
func NewWildcardMatcher(patterns []string) *WildcardMatcher {
	m := &WildcardMatcher{exact: make(map[string]bool)}
	for _, p := range patterns {
		switch {
		case p == "*":
			m.matchAll = true
		case strings.HasSuffix(p, "*"):
			m.prefixes = append(m.prefixes, strings.TrimSuffix(p, "*"))
		case strings.HasPrefix(p, "*"):
			m.suffixes = append(m.suffixes, strings.TrimPrefix(p, "*"))
		default:
			m.exact[p] = true
		}
	}
	return m
}

// MatchName returns true if the name matches any pattern.
func (m *WildcardMatcher) MatchName(name string) bool {
	if m.matchAll || m.exact[name] {
		return true
	}
	for _, p := range m.prefixes {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	for _, s := range m.suffixes {
		if strings.HasSuffix(name, s) {
			return true
		}
	}
	return false
}

// CompositeMatcher combines multiple matchers.
type CompositeMatcher struct {
	matchers []NameMatcher
}

// NewCompositeMatcher creates a matcher that matches if any sub-matcher matches.
func NewCompositeMatcher(matchers ...NameMatcher) *CompositeMatcher {
	return &CompositeMatcher{matchers: matchers}
}

// MatchName returns true if any sub-matcher matches.
func (m *CompositeMatcher) MatchName(name string) bool {
	for _, matcher := range m.matchers {
		if matcher.MatchName(name) {
			return true
		}
	}
	return false
}
