// Package index builds a searchable token index over extracted code
// units. Identifier tokens come from each unit's name, signature and
// body excerpt, split on case boundaries and non-alphanumeric
// separators, so "getUserName" is findable via "get", "user" or "name".
package index

import (
	"sort"
	"strings"
	"unicode"

	"featuremap/internal/model"
)

// Candidate is one unit sharing at least one token with a query.
type Candidate struct {
	Unit       model.CodeUnit
	Overlap    int      // number of distinct shared tokens
	Shared     []string // shared tokens, sorted
	NameShared []string // shared tokens that appear in the unit name, sorted
}

// Index is an inverted mapping from token to the units containing it.
type Index struct {
	units    []model.CodeUnit
	postings map[string][]int      // token -> indices into units, ascending
	name     []map[string]struct{} // per-unit name token sets
}

// Build indexes the given units. The unit slice is copied; the index
// never mutates its inputs.
func Build(units []model.CodeUnit) *Index {
	x := &Index{
		units:    append([]model.CodeUnit(nil), units...),
		postings: make(map[string][]int),
		name:     make([]map[string]struct{}, len(units)),
	}
	for i := range x.units {
		u := &x.units[i]

		nameSet := make(map[string]struct{})
		for _, tok := range Tokenize(u.Name) {
			nameSet[tok] = struct{}{}
		}
		x.name[i] = nameSet

		seen := make(map[string]struct{})
		for _, tok := range Tokenize(u.Name + " " + u.Signature + " " + u.BodyExcerpt) {
			if _, dup := seen[tok]; dup {
				continue
			}
			seen[tok] = struct{}{}
			x.postings[tok] = append(x.postings[tok], i)
		}
	}
	return x
}

// Query returns every unit sharing at least one token with text, in a
// deterministic order: overlap descending, then shorter span, then
// file path, then start line.
func (x *Index) Query(text string) []Candidate {
	queryTokens := uniqueSorted(Tokenize(text))

	type hit struct {
		shared     map[string]struct{}
		nameShared map[string]struct{}
	}
	hits := make(map[int]*hit)
	for _, tok := range queryTokens {
		for _, i := range x.postings[tok] {
			h := hits[i]
			if h == nil {
				h = &hit{shared: make(map[string]struct{}), nameShared: make(map[string]struct{})}
				hits[i] = h
			}
			h.shared[tok] = struct{}{}
			if _, ok := x.name[i][tok]; ok {
				h.nameShared[tok] = struct{}{}
			}
		}
	}

	out := make([]Candidate, 0, len(hits))
	for i, h := range hits {
		out = append(out, Candidate{
			Unit:       x.units[i],
			Overlap:    len(h.shared),
			Shared:     setToSorted(h.shared),
			NameShared: setToSorted(h.nameShared),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := &out[i], &out[j]
		if a.Overlap != b.Overlap {
			return a.Overlap > b.Overlap
		}
		if a.Unit.Span() != b.Unit.Span() {
			return a.Unit.Span() < b.Unit.Span()
		}
		if a.Unit.FilePath != b.Unit.FilePath {
			return a.Unit.FilePath < b.Unit.FilePath
		}
		return a.Unit.StartLine < b.Unit.StartLine
	})
	return out
}

// Tokenize lowers text into identifier fragments: words are split on
// non-alphanumeric separators and on case boundaries. Pure digits and
// single runes are dropped.
func Tokenize(text string) []string {
	var out []string
	for _, word := range splitSeparators(text) {
		for _, frag := range splitCase(word) {
			if len(frag) < 2 || isDigits(frag) {
				continue
			}
			out = append(out, strings.ToLower(frag))
		}
	}
	return out
}

func splitSeparators(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// splitCase breaks camelCase / PascalCase / ACRONYMTail words:
// "getUserName" -> get user name, "HTTPServer" -> http server.
func splitCase(word string) []string {
	runes := []rune(word)
	var parts []string
	start := 0
	for i := 1; i < len(runes); i++ {
		prev, cur := runes[i-1], runes[i]
		boundary := false
		switch {
		case unicode.IsLower(prev) && unicode.IsUpper(cur):
			boundary = true
		case unicode.IsUpper(prev) && unicode.IsUpper(cur) && i+1 < len(runes) && unicode.IsLower(runes[i+1]):
			boundary = true
		case unicode.IsDigit(prev) != unicode.IsDigit(cur):
			boundary = true
		}
		if boundary {
			parts = append(parts, string(runes[start:i]))
			start = i
		}
	}
	parts = append(parts, string(runes[start:]))
	return parts
}

func isDigits(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

func uniqueSorted(tokens []string) []string {
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		set[t] = struct{}{}
	}
	return setToSorted(set)
}

func setToSorted(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for t := range set {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
