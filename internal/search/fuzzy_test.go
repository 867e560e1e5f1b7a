package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatcher_Matches(t *testing.T) {
	m := DefaultMatcher()

	tests := []struct {
		name     string
		query    string
		haystack string
		want     bool
	}{
		{"substring inside word", "fon", "Telefon Samsung Galaxy", true},
		{"case insensitive substring", "GALAXY", "telefon samsung galaxy", true},
		{"digit typed for letter", "ph0ne", "Apple phone 15", true},
		{"one typed for i", "1phone", "Apple iPhone 15", true},
		{"digraph simplified", "fone", "smart phone", true},
		{"letter typed for symbol", "sale", "$ale today", true},
		{"two substitutions within distance", "samsnug", "Telefon Samsung Galaxy", true},
		{"one missing letter", "samsng", "Telefon Samsung Galaxy", true},
		{"three edits away", "laptop", "Telefon Samsung Galaxy", false},
		{"unrelated word", "xyzzy", "wireless headphones", false},
		{"joined words are not split", "phonecase", "phone case", false},
		{"empty query", "", "anything at all", false},
		{"whitespace query", "   ", "anything at all", false},
		{"empty haystack", "phone", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, m.Matches(tt.query, tt.haystack))
		})
	}
}

func TestMatcher_VerbatimSubstringAlwaysMatches(t *testing.T) {
	m := DefaultMatcher()

	haystacks := []string{
		"Wireless Bluetooth Headphones",
		"Ноутбук Lenovo IdeaPad",
		"Kids' T-Shirt (100% cotton)",
		"4K Smart TV 55\"",
	}

	for _, h := range haystacks {
		runes := []rune(h)
		for i := 0; i < len(runes); i++ {
			for j := i + 1; j <= len(runes) && j <= i+6; j++ {
				q := string(runes[i:j])
				if normalize(q) == "" {
					continue
				}
				assert.True(t, m.Matches(q, h), "query %q in %q", q, h)
			}
		}
	}
}

func TestMatcher_DistanceIsTunable(t *testing.T) {
	haystack := "samsung galaxy"

	tests := []struct {
		name        string
		maxDistance int
		query       string
		want        bool
	}{
		{"distance two at limit two", 2, "sumsong", true},
		{"distance three at limit two", 2, "sumsonk", false},
		{"distance two at limit one", 1, "sumsong", false},
		{"distance one at limit one", 1, "samsong", true},
		{"fallback disabled", -1, "samsong", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMatcher(tt.maxDistance, nil)
			assert.Equal(t, tt.want, m.Matches(tt.query, haystack))
		})
	}
}

func TestMatcher_Variants(t *testing.T) {
	m := DefaultMatcher()

	t.Run("query comes first", func(t *testing.T) {
		v := m.Variants("Phone")
		assert.Equal(t, "phone", v[0])
	})

	t.Run("reverse substitution", func(t *testing.T) {
		v := m.Variants("ph0ne")
		assert.Contains(t, v, "phone")
		assert.Contains(t, v, "f0ne")
	})

	t.Run("all occurrences replaced", func(t *testing.T) {
		v := m.Variants("0000")
		assert.Contains(t, v, "oooo")
		assert.NotContains(t, v, "o000")
	})

	t.Run("one rule per variant", func(t *testing.T) {
		v := m.Variants("5ale1")
		assert.Contains(t, v, "sale1")
		assert.Contains(t, v, "5alei")
		assert.NotContains(t, v, "salei")
	})

	t.Run("no duplicates", func(t *testing.T) {
		v := m.Variants("ilil")
		seen := map[string]bool{}
		for _, s := range v {
			assert.False(t, seen[s], "duplicate variant %q", s)
			seen[s] = true
		}
	})

	t.Run("empty query", func(t *testing.T) {
		assert.Empty(t, m.Variants(" "))
	})
}

func TestDistance(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"", "abc", 3},
		{"abc", "", 3},
		{"kitten", "sitting", 3},
		{"flaw", "lawn", 2},
		{"samsung", "samsung", 0},
		{"café", "cafe", 1},
		{"телефон", "телифон", 1},
	}

	for _, tt := range tests {
		t.Run(tt.a+"_"+tt.b, func(t *testing.T) {
			assert.Equal(t, tt.want, Distance(tt.a, tt.b))
			assert.Equal(t, tt.want, Distance(tt.b, tt.a))
		})
	}
}
