// Package localize matches requirement clauses against the unit index
// and produces ranked, explainable localization evidence.
package localize

import (
	"sort"
	"strings"

	"featuremap/internal/index"
	"featuremap/internal/model"
)

// Options tunes the scoring policy.
type Options struct {
	// MinScore drops evidence scoring below this normalized threshold.
	// Precision over recall: a missing match is better than a wrong one.
	MinScore float64
}

// DefaultMinScore keeps candidates within an order of magnitude of the
// best match for the requirement.
const DefaultMinScore = 0.1

// Scoring weights: token overlap dominates, a name hit is worth more
// than a body-only hit, domain nouns add a final nudge.
const (
	overlapWeight = 0.5
	nameWeight    = 0.3
	nounWeight    = 0.2
)

// Split breaks a requirement description into clauses on sentence
// boundaries. A description with no boundaries yields one requirement.
// Ordinals are 1-based and preserve input order.
func Split(description string) []model.Requirement {
	clauses := strings.FieldsFunc(description, func(r rune) bool {
		switch r {
		case '.', '!', '?', ';', '\n', '。', '！', '？', '；':
			return true
		}
		return false
	})

	var reqs []model.Requirement
	for _, c := range clauses {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		reqs = append(reqs, model.Requirement{Text: c, Ordinal: len(reqs) + 1})
	}
	return reqs
}

// Localize queries the index for every requirement and returns scored
// evidence, normalized to [0,1] per requirement and ordered by score
// descending (ties: shorter span, file path, start line). Requirements
// with no confident match simply contribute no evidence.
func Localize(reqs []model.Requirement, idx *index.Index, opts Options) []model.LocalizationEvidence {
	minScore := opts.MinScore
	if minScore <= 0 {
		minScore = DefaultMinScore
	}

	var out []model.LocalizationEvidence
	for _, req := range reqs {
		out = append(out, localizeOne(req, idx, minScore)...)
	}
	return out
}

func localizeOne(req model.Requirement, idx *index.Index, minScore float64) []model.LocalizationEvidence {
	queryTokens := uniqueTokens(req.Text)
	if len(queryTokens) == 0 {
		return nil
	}
	nouns := domainNouns(queryTokens)

	cands := idx.Query(req.Text)
	if len(cands) == 0 {
		return nil
	}

	raw := make([]float64, len(cands))
	best := 0.0
	for i, c := range cands {
		overlap := float64(len(c.Shared)) / float64(len(queryTokens))
		name := float64(len(c.NameShared)) / float64(len(queryTokens))
		noun := 0.0
		if len(nouns) > 0 {
			noun = float64(countIn(c.Shared, nouns)) / float64(len(nouns))
		}
		raw[i] = overlapWeight*overlap + nameWeight*name + nounWeight*noun
		if raw[i] > best {
			best = raw[i]
		}
	}
	if best == 0 {
		return nil
	}

	var out []model.LocalizationEvidence
	for i, c := range cands {
		score := raw[i] / best
		if score < minScore {
			continue
		}
		out = append(out, model.LocalizationEvidence{
			RequirementOrdinal: req.Ordinal,
			Unit:               c.Unit,
			Score:              score,
			MatchedTerms:       c.Shared,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := &out[i], &out[j]
		if a.Score != b.Score {
			return a.Score > b.Score
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

// stopwords are structural English plus the verbs requirement prose
// leans on; what remains of a clause approximates its domain nouns.
var stopwords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "of": {}, "to": {},
	"in": {}, "on": {}, "for": {}, "with": {}, "from": {}, "into": {},
	"is": {}, "are": {}, "be": {}, "been": {}, "was": {}, "were": {},
	"should": {}, "must": {}, "shall": {}, "can": {}, "could": {},
	"may": {}, "will": {}, "would": {},
	"implement": {}, "implements": {}, "implemented": {},
	"add": {}, "adds": {}, "added": {},
	"create": {}, "creates": {}, "created": {},
	"support": {}, "supports": {}, "supported": {},
	"provide": {}, "provides": {}, "provided": {},
	"allow": {}, "allows": {}, "enable": {}, "enables": {},
	"user": {}, "users": {}, "able": {}, "when": {}, "that": {},
	"this": {}, "it": {}, "its": {}, "by": {}, "as": {}, "at": {},
}

func domainNouns(tokens []string) map[string]struct{} {
	nouns := make(map[string]struct{})
	for _, t := range tokens {
		if _, stop := stopwords[t]; stop {
			continue
		}
		nouns[t] = struct{}{}
	}
	return nouns
}

func countIn(tokens []string, set map[string]struct{}) int {
	n := 0
	for _, t := range tokens {
		if _, ok := set[t]; ok {
			n++
		}
	}
	return n
}

func uniqueTokens(text string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, t := range index.Tokenize(text) {
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
