// Package rerank turns a large, loosely-ordered candidate set from the
// vector index into a small, relevance-ordered, de-duplicated set.
//
// Vector similarity is noisy for short colloquial queries, so a cheap
// lexical overlap on titles acts as a precision filter: candidates whose
// title shares no keyword with the question are treated as off-topic even
// when they sit nearby in embedding space.
package rerank

import (
	"sort"
	"strings"
	"unicode"

	"github.com/lotusmind/yogachat/internal/domain"
)

// stopwords are function words excluded from keyword sets. The corpus and
// its audience are Vietnamese, so both languages are covered.
var stopwords = map[string]struct{}{
	// English
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {},
	"by": {}, "for": {}, "from": {}, "how": {}, "in": {}, "is": {}, "it": {},
	"of": {}, "on": {}, "or": {}, "that": {}, "the": {}, "this": {}, "to": {},
	"what": {}, "when": {}, "where": {}, "which": {}, "who": {}, "why": {},
	"with": {},
	// Vietnamese
	"bị": {}, "bằng": {}, "cho": {}, "các": {}, "có": {}, "cách": {},
	"của": {}, "cần": {}, "gì": {}, "khi": {}, "là": {}, "làm": {},
	"lúc": {}, "mà": {}, "mình": {}, "muốn": {}, "nào": {}, "như": {},
	"những": {}, "nên": {}, "ra": {}, "rằng": {}, "sao": {}, "thì": {},
	"trong": {}, "tại": {}, "và": {}, "với": {}, "về": {}, "để": {},
	"được": {}, "ở": {},
}

// Ranker scores retrieval candidates by keyword overlap with the question.
type Ranker struct {
	aliases map[string][]string
	topK    int
}

// New creates a ranker with the given alias table and result cutoff.
func New(aliases map[string][]string, topK int) *Ranker {
	return &Ranker{aliases: aliases, topK: topK}
}

// ExpandQuery returns the raw query concatenated with any canonical terms
// matched from the alias table. The expanded text is what goes to the vector
// index; it widens recall for colloquial phrases the corpus never uses.
func (r *Ranker) ExpandQuery(query string) string {
	aux := r.aliasTerms(query)
	if len(aux) == 0 {
		return query
	}
	return query + " " + strings.Join(aux, " ")
}

// aliasTerms unions the canonical terms of every alias phrase that appears
// as a case-insensitive substring of the raw query.
func (r *Ranker) aliasTerms(query string) []string {
	lower := strings.ToLower(query)

	// Deterministic order over the map.
	phrases := make([]string, 0, len(r.aliases))
	for phrase := range r.aliases {
		phrases = append(phrases, phrase)
	}
	sort.Strings(phrases)

	var terms []string
	seen := map[string]struct{}{}
	for _, phrase := range phrases {
		if !strings.Contains(lower, strings.ToLower(phrase)) {
			continue
		}
		for _, term := range r.aliases[phrase] {
			if _, ok := seen[term]; ok {
				continue
			}
			seen[term] = struct{}{}
			terms = append(terms, term)
		}
	}
	return terms
}

// Rank dedupes candidates by title, scores them by keyword overlap with the
// question, drops zero scores and returns the top results in stable
// descending order. Scoring uses the raw question's keywords only; alias
// terms widen retrieval but do not inflate overlap. An empty result means no
// grounding is available; that is a normal outcome, not an error.
func (r *Ranker) Rank(query string, candidates []domain.Document) []domain.ScoredDocument {
	qKeywords := Keywords(query)
	if len(qKeywords) == 0 {
		return nil
	}

	seenTitles := map[string]struct{}{}
	scored := make([]domain.ScoredDocument, 0, len(candidates))
	for _, doc := range candidates {
		// First occurrence wins: retrieval order, not score, decides
		// which duplicate survives.
		titleKey := strings.ToLower(doc.Title)
		if _, ok := seenTitles[titleKey]; ok {
			continue
		}
		seenTitles[titleKey] = struct{}{}

		score := 10 * overlap(qKeywords, Keywords(doc.Title))
		if score == 0 {
			continue
		}
		scored = append(scored, domain.ScoredDocument{Document: doc, Score: score})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if r.topK > 0 && len(scored) > r.topK {
		scored = scored[:r.topK]
	}
	return scored
}

// Keywords normalizes text into a keyword set: lowercase, punctuation
// stripped, whitespace split, stopwords and single-character tokens dropped.
// If nothing survives, the raw lowercased split is returned unfiltered so a
// query made entirely of stopwords still matches something.
func Keywords(text string) map[string]struct{} {
	lower := strings.ToLower(text)
	stripped := strings.Map(func(r rune) rune {
		if unicode.IsPunct(r) || unicode.IsSymbol(r) {
			return ' '
		}
		return r
	}, lower)

	tokens := strings.Fields(stripped)
	keywords := make(map[string]struct{}, len(tokens))
	for _, tok := range tokens {
		if len([]rune(tok)) <= 1 {
			continue
		}
		if _, ok := stopwords[tok]; ok {
			continue
		}
		keywords[tok] = struct{}{}
	}

	if len(keywords) == 0 {
		for _, tok := range strings.Fields(lower) {
			keywords[tok] = struct{}{}
		}
	}
	return keywords
}

func overlap(a, b map[string]struct{}) int {
	n := 0
	for k := range a {
		if _, ok := b[k]; ok {
			n++
		}
	}
	return n
}
