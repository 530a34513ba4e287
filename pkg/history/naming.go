package history

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const maxNameLength = 50

// boilerplatePrefixes are stripped from the front of a prompt before naming.
var boilerplatePrefixes = []string{
	"# Git Workflow Analysis Request",
	"please",
	"can you",
	"could you",
	"help me",
}

// codeVocabulary are terms that make good session names on their own.
var codeVocabulary = map[string]struct{}{
	"bug": {}, "fix": {}, "error": {}, "refactor": {}, "test": {},
	"api": {}, "security": {}, "performance": {}, "feature": {},
	"deploy": {}, "database": {}, "auth": {}, "login": {}, "crash": {},
	"leak": {}, "docs": {}, "build": {}, "merge": {}, "review": {},
	"cleanup": {},
}

var stopWords = map[string]struct{}{
	"the": {}, "this": {}, "that": {}, "with": {}, "from": {}, "have": {},
	"what": {}, "when": {}, "where": {}, "your": {}, "about": {},
	"would": {}, "could": {}, "should": {}, "there": {}, "their": {},
	"them": {}, "then": {}, "than": {}, "were": {}, "been": {},
	"will": {}, "just": {}, "like": {}, "some": {}, "more": {},
	"very": {}, "into": {}, "over": {}, "only": {}, "also": {},
	"after": {}, "before": {},
}

// SessionNameFor derives a human-readable session name from its first
// prompt. Deterministic; always returns a non-empty name of at most 50
// characters.
func SessionNameFor(promptText string) string {
	text := strings.TrimSpace(promptText)
	if text == "" {
		return PlaceholderName
	}

	for _, prefix := range boilerplatePrefixes {
		if len(text) < len(prefix) || !strings.EqualFold(text[:len(prefix)], prefix) {
			continue
		}
		// Strip only at a word boundary so "pleased to" keeps its word
		rest := text[len(prefix):]
		if rest != "" {
			r, _ := utf8.DecodeRuneInString(rest)
			if unicode.IsLetter(r) || unicode.IsDigit(r) {
				continue
			}
		}
		text = strings.TrimSpace(rest)
		break
	}

	words := strings.Fields(text)

	if name := vocabularyName(words); name != "" {
		return truncateName(name)
	}

	if name := significantWordsName(words); name != "" {
		return truncateName(name)
	}

	if len(words) > 0 {
		limit := 4
		if len(words) < limit {
			limit = len(words)
		}
		return truncateName(strings.Join(words[:limit], " "))
	}

	return "Chat Session"
}

// vocabularyName joins up to the first 3 code-vocabulary matches found in
// the first 20 words.
func vocabularyName(words []string) string {
	var matches []string

	limit := 20
	if len(words) < limit {
		limit = len(words)
	}

	for _, word := range words[:limit] {
		cleaned := strings.ToLower(strings.TrimRight(word, ".,!?:;"))
		if _, ok := codeVocabulary[cleaned]; ok {
			matches = append(matches, titleCase(cleaned))
			if len(matches) == 3 {
				break
			}
		}
	}

	return strings.Join(matches, " ")
}

// significantWordsName takes the first 10 words, drops stop-words and words
// of length <= 3, and joins up to 4 of the remainder title-cased.
func significantWordsName(words []string) string {
	var kept []string

	limit := 10
	if len(words) < limit {
		limit = len(words)
	}

	for _, word := range words[:limit] {
		cleaned := strings.TrimRight(word, ".,!?:;")
		if len(cleaned) <= 3 {
			continue
		}
		if _, ok := stopWords[strings.ToLower(cleaned)]; ok {
			continue
		}
		kept = append(kept, titleCase(cleaned))
		if len(kept) == 4 {
			break
		}
	}

	return strings.Join(kept, " ")
}

func titleCase(word string) string {
	r, size := utf8.DecodeRuneInString(word)
	if size == 0 {
		return word
	}
	return string(unicode.ToUpper(r)) + strings.ToLower(word[size:])
}

func truncateName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "Chat Session"
	}
	if runes := []rune(name); len(runes) > maxNameLength {
		name = string(runes[:maxNameLength-3]) + "..."
	}
	return name
}
