package analysis

import (
	"regexp"
	"strings"
	"unicode"
)

// stopword list shared by the keyword and theme rankers (extend as needed)
var stopwords = map[string]struct{}{
	"the": {}, "and": {}, "of": {}, "to": {}, "in": {}, "a": {}, "for": {}, "is": {}, "on": {}, "with": {}, "as": {},
	"by": {}, "at": {}, "from": {}, "that": {}, "this": {}, "it": {}, "an": {}, "be": {}, "or": {}, "are": {}, "was": {},
	"will": {}, "has": {}, "have": {}, "had": {}, "but": {}, "not": {}, "your": {}, "you": {}, "we": {}, "our": {},
	"i": {}, "my": {}, "me": {}, "so": {}, "its": {}, "if": {}, "can": {}, "all": {}, "just": {}, "when": {}, "they": {},
	"app": {}, "apps": {}, "very": {}, "too": {}, "also": {}, "there": {}, "what": {}, "get": {}, "use": {}, "using": {},
	"would": {}, "even": {}, "now": {}, "only": {}, "after": {}, "been": {}, "then": {}, "them": {}, "than": {},
	"because": {}, "about": {}, "out": {}, "one": {}, "more": {}, "some": {}, "how": {}, "why": {}, "do": {}, "does": {},
	"did": {}, "no": {}, "am": {}, "were": {}, "their": {}, "which": {}, "into": {}, "other": {}, "any": {}, "every": {},
	"time": {}, "much": {}, "many": {}, "still": {}, "please": {}, "really": {},
}

var (
	emailPattern = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)
	// bare 10-digit runs and 3-3-4 groupings with separators
	phonePattern = regexp.MustCompile(`\b\d{10}\b|\b\d{3}[-.\s]\d{3}[-.\s]\d{4}\b`)
)

// ScrubPII masks email- and phone-shaped substrings before text leaves the
// process (inference prompts, report quotes, outbound mail).
func ScrubPII(s string) string {
	s = emailPattern.ReplaceAllString(s, "[EMAIL]")
	s = phonePattern.ReplaceAllString(s, "[PHONE]")
	return s
}

// Truncate cuts s to at most n runes.
func Truncate(s string, n int) string {
	if n <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func tokenize(s string) []string {
	sep := func(r rune) bool { return !unicode.IsLetter(r) && !unicode.IsNumber(r) }
	return strings.FieldsFunc(strings.ToLower(s), sep)
}
