package retrieval

import "strings"

var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "be": true, "is": true, "are": true,
	"was": true, "to": true, "of": true, "and": true, "in": true, "that": true,
	"have": true, "it": true, "for": true, "not": true, "on": true, "with": true,
	"as": true, "you": true, "do": true, "at": true, "this": true, "but": true,
	"by": true, "from": true, "who": true, "what": true, "when": true,
	"where": true, "why": true, "how": true, "which": true, "did": true,
	"does": true, "were": true,
}

func tokenizeAndFilter(text string) []string {
	words := strings.Fields(text)
	filtered := make([]string, 0, len(words))

	for _, word := range words {
		// Lowercase and trim punctuation
		cleaned := strings.ToLower(strings.Trim(word, ".,!?;:'\"-()[]{}"))
		cleaned = strings.TrimSuffix(cleaned, "'s")

		if cleaned != "" && !stopWords[cleaned] {
			filtered = append(filtered, cleaned)
		}
	}

	return filtered
}

func wordSet(text string) map[string]bool {
	words := tokenizeAndFilter(text)
	set := make(map[string]bool, len(words))
	for _, word := range words {
		set[word] = true
	}
	return set
}

// containsAllWords reports whether every meaningful word of query appears in docWords.
func containsAllWords(docWords map[string]bool, query string) bool {
	queryWords := tokenizeAndFilter(query)
	if len(queryWords) == 0 {
		return false
	}
	for _, qWord := range queryWords {
		if !docWords[qWord] {
			return false
		}
	}
	return true
}

func containsAllQueryWords(document, query string) bool {
	return containsAllWords(wordSet(document), query)
}
