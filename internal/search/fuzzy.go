package search

import (
	"strings"
)

// DefaultMaxDistance is the largest edit distance still treated as a match.
const DefaultMaxDistance = 2

// TypoRule pairs a character sequence with the look-alikes users commonly
// type in its place. Rules apply in both directions.
type TypoRule struct {
	From string
	To   []string
}

// DefaultTypoRules is the substitution table used by DefaultMatcher.
var DefaultTypoRules = []TypoRule{
	{From: "i", To: []string{"1", "l"}},
	{From: "o", To: []string{"0"}},
	{From: "a", To: []string{"@"}},
	{From: "s", To: []string{"5", "$"}},
	{From: "e", To: []string{"3"}},
	{From: "ph", To: []string{"f"}},
	{From: "ck", To: []string{"k"}},
}

// Matcher decides whether a free-text query plausibly matches a haystack.
// A Matcher holds no mutable state and is safe for concurrent use.
type Matcher struct {
	MaxDistance int
	Rules       []TypoRule
}

// DefaultMatcher returns a Matcher with the stock typo table and distance.
func DefaultMatcher() *Matcher {
	return NewMatcher(DefaultMaxDistance, DefaultTypoRules)
}

// NewMatcher builds a Matcher. A negative maxDistance disables the
// edit-distance fallback.
func NewMatcher(maxDistance int, rules []TypoRule) *Matcher {
	return &Matcher{MaxDistance: maxDistance, Rules: rules}
}

// Matches reports whether query matches haystack. An empty query never
// matches; callers treat an empty query as "no filter" before calling.
func (m *Matcher) Matches(query, haystack string) bool {
	q := normalize(query)
	if q == "" {
		return false
	}
	h := normalize(haystack)

	for _, v := range m.Variants(q) {
		if strings.Contains(h, v) {
			return true
		}
	}

	return m.approxWordMatch(q, h)
}

// Variants returns the normalized query followed by every single-rule typo
// variant of it. Each variant applies one substitution to all occurrences of
// its trigger. Duplicates are removed, order is stable.
func (m *Matcher) Variants(query string) []string {
	q := normalize(query)
	if q == "" {
		return nil
	}

	seen := map[string]struct{}{q: {}}
	variants := []string{q}
	add := func(v string) {
		if _, ok := seen[v]; ok {
			return
		}
		seen[v] = struct{}{}
		variants = append(variants, v)
	}

	for _, rule := range m.Rules {
		from := strings.ToLower(rule.From)
		if from == "" {
			continue
		}
		for _, to := range rule.To {
			to = strings.ToLower(to)
			if to == "" {
				continue
			}
			if strings.Contains(q, from) {
				add(strings.ReplaceAll(q, from, to))
			}
			if strings.Contains(q, to) {
				add(strings.ReplaceAll(q, to, from))
			}
		}
	}

	return variants
}

func (m *Matcher) approxWordMatch(query, haystack string) bool {
	if m.MaxDistance < 0 {
		return false
	}
	qLen := len([]rune(query))
	for _, word := range strings.Fields(haystack) {
		wLen := len([]rune(word))
		if wLen < qLen-m.MaxDistance || wLen > qLen+m.MaxDistance {
			continue
		}
		if Distance(query, word) <= m.MaxDistance {
			return true
		}
	}
	return false
}

// Distance returns the Levenshtein distance between a and b, counted in runes
// with unit cost for insert, delete and substitute.
func Distance(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min(curr[j-1]+1, prev[j]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
