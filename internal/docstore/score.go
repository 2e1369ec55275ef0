package docstore

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Scoring weights. Exact word matches in passage content count double;
// metadata matches count single; bare substring matches count fractionally.
const (
	weightContentExact   = 2.0
	weightMetaExact      = 1.0
	weightContentPartial = 0.5
	weightMetaPartial    = 0.3

	// normalizePerToken divides the raw score so that roughly ten exact
	// content hits per query token saturate the [0,1] range.
	normalizePerToken = 10.0

	minTokenLen = 3
)

// Tokenize lowercases s and splits it into word tokens of length >= 3.
// Shorter words carry almost no lexical signal and are dropped.
func Tokenize(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if len(f) >= minTokenLen {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

// score computes the lexical relevance of p against the query tokens.
// The result is normalized to [0,1]. A zero score means no token touched
// the passage at all.
//
// The scorer is deliberately simple and deterministic: exact word-token
// occurrences weighted by field, plus leftover substring occurrences at a
// fraction. Same corpus + same query always yields the same ranking.
func score(p *Passage, tokens []string) float64 {
	if len(tokens) == 0 {
		return 0
	}

	contentLower := strings.ToLower(p.Content)
	contentTokens := Tokenize(p.Content)

	metaJoined := strings.ToLower(strings.Join(p.Meta.fields(), " "))
	metaTokens := Tokenize(metaJoined)

	var raw float64
	for _, tok := range tokens {
		contentExact := countEqual(contentTokens, tok)
		metaExact := countEqual(metaTokens, tok)

		// Substring occurrences beyond the exact word matches, e.g. the
		// token "peer" inside "peeragogy".
		contentPartial := max(0, strings.Count(contentLower, tok)-contentExact)
		metaPartial := max(0, strings.Count(metaJoined, tok)-metaExact)

		raw += float64(contentExact)*weightContentExact +
			float64(metaExact)*weightMetaExact +
			float64(contentPartial)*weightContentPartial +
			float64(metaPartial)*weightMetaPartial
	}

	normalized := raw / (float64(len(tokens)) * normalizePerToken)
	return min(normalized, 1.0)
}

func countEqual(tokens []string, tok string) int {
	n := 0
	for _, t := range tokens {
		if t == tok {
			n++
		}
	}
	return n
}

// excerptLen is the maximum excerpt length in runes.
const excerptLen = 160

// originalOffset maps a byte offset in strings.ToLower(s) back to a
// rune-start byte offset in s. strings.ToLower maps rune by rune, so
// walking s and summing the lowered encoded lengths reconstructs the
// correspondence.
func originalOffset(s string, lowerIdx int) int {
	lowered := 0
	for i, r := range s {
		if lowered >= lowerIdx {
			return i
		}
		lowered += utf8.RuneLen(unicode.ToLower(r))
	}
	return len(s)
}

// excerpt returns a short window of content around the first occurrence of
// any query token, falling back to the passage head.
func excerpt(content string, tokens []string) string {
	lower := strings.ToLower(content)

	start := 0
	for _, tok := range tokens {
		if idx := strings.Index(lower, tok); idx >= 0 {
			// The index was found in the lowered string; map it back to
			// the original before using it, since lowercasing can change
			// a rune's encoded length.
			start = originalOffset(content, idx)
			// Back up to a word boundary a little before the hit.
			floor := start - 40
			for start > 0 && start > floor {
				start--
			}
			for start > 0 && !unicode.IsSpace(rune(content[start])) {
				start--
			}
			for start > 0 && !utf8.RuneStart(content[start]) {
				start--
			}
			break
		}
	}

	runes := []rune(content[start:])
	if len(runes) <= excerptLen {
		return strings.TrimSpace(string(runes))
	}
	return strings.TrimSpace(string(runes[:excerptLen])) + "…"
}
