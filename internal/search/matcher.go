package search

import (
	"strings"

	"github.com/coregx/ahocorasick"
	"golang.org/x/text/cases"

	"github.com/roach88/entgraph/internal/ir"
)

// matcher scores text against one query. It is built once per search and
// is not safe for concurrent use.
type matcher struct {
	caser   cases.Caser
	phrase  string
	terms   []string // folded, in query order, duplicates kept
	pattern []int    // terms[i] is automaton pattern pattern[i]
	ac      *ahocorasick.Automaton
}

func newMatcher(query string) (*matcher, error) {
	m := &matcher{caser: cases.Fold()}
	m.phrase = m.fold(strings.TrimSpace(query))
	m.terms = strings.Fields(m.phrase)

	index := make(map[string]int, len(m.terms))
	var patterns []string
	for _, term := range m.terms {
		id, ok := index[term]
		if !ok {
			id = len(patterns)
			index[term] = id
			patterns = append(patterns, term)
		}
		m.pattern = append(m.pattern, id)
	}

	ac, err := ahocorasick.NewBuilder().
		AddStrings(patterns).
		Build()
	if err != nil {
		return nil, err
	}
	m.ac = ac
	return m, nil
}

func (m *matcher) fold(s string) string {
	return ir.NormalizeString(m.caser.String(s))
}

// score returns matched terms over total terms, plus bonus when text holds
// the whole phrase, capped at 1.
func (m *matcher) score(text string, bonus float64) float64 {
	if len(m.terms) == 0 {
		return 0
	}
	haystack := m.fold(text)

	found := make(map[int]bool)
	for _, match := range m.ac.FindAllOverlapping([]byte(haystack)) {
		found[match.PatternID] = true
	}
	if len(found) == 0 {
		return 0
	}

	matched := 0
	for _, id := range m.pattern {
		if found[id] {
			matched++
		}
	}
	score := float64(matched) / float64(len(m.terms))
	if strings.Contains(haystack, m.phrase) {
		score += bonus
	}
	if score > 1 {
		score = 1
	}
	return score
}
