package analysis

import (
	"regexp"
	"strings"

	"reviewpulse/internal/domain"
)

// Polarity weights in [-1, 1] for vocabulary common in storefront reviews.
// Words absent from the lexicon contribute nothing, so bland text ("fine",
// "ok I guess") stays neutral.
var lexicon = map[string]float64{
	// positive
	"love": 0.8, "loved": 0.8, "loves": 0.8, "loving": 0.7,
	"great": 0.8, "awesome": 0.9, "amazing": 0.9, "excellent": 0.9,
	"perfect": 0.9, "fantastic": 0.9, "wonderful": 0.8, "brilliant": 0.9,
	"superb": 0.9, "flawless": 0.9, "best": 0.8, "good": 0.6,
	"nice": 0.6, "helpful": 0.6, "smooth": 0.6, "fast": 0.6,
	"easy": 0.6, "useful": 0.6, "intuitive": 0.6, "beautiful": 0.7,
	"clean": 0.5, "reliable": 0.7, "stable": 0.6, "seamless": 0.7,
	"recommend": 0.7, "recommended": 0.7, "happy": 0.6, "satisfied": 0.6,
	"impressed": 0.7, "handy": 0.5, "convenient": 0.6, "responsive": 0.6,
	"enjoyable": 0.7, "fun": 0.6, "solid": 0.5, "polished": 0.6,
	"worth": 0.5, "improved": 0.5, "better": 0.4, "like": 0.4,
	"liked": 0.4, "likes": 0.4, "thanks": 0.5, "thank": 0.5,
	"pleasant": 0.6, "accurate": 0.6, "powerful": 0.6, "quick": 0.5,
	"works": 0.4, "work": 0.4, "working": 0.3, "simple": 0.4, "effortless": 0.7,

	// negative
	"terrible": -0.9, "horrible": -0.9, "awful": -0.9, "worst": -0.9,
	"bad": -0.6, "poor": -0.6, "crash": -0.8, "crashes": -0.8,
	"crashed": -0.8, "crashing": -0.8, "bug": -0.6, "bugs": -0.6,
	"buggy": -0.7, "glitch": -0.6, "glitchy": -0.6, "glitches": -0.6,
	"broken": -0.8, "breaks": -0.5, "freeze": -0.7, "freezes": -0.7,
	"frozen": -0.7, "freezing": -0.7, "lag": -0.6, "lags": -0.6,
	"laggy": -0.7, "slow": -0.6, "unusable": -0.9, "useless": -0.8,
	"annoying": -0.7, "frustrating": -0.8, "frustrated": -0.7,
	"disappointing": -0.7, "disappointed": -0.7, "hate": -0.8, "hated": -0.8,
	"scam": -0.9, "fraud": -0.9, "fake": -0.7, "spam": -0.7,
	"intrusive": -0.7, "overpriced": -0.7, "expensive": -0.5,
	"waste": -0.7, "wasted": -0.7, "refund": -0.6, "uninstall": -0.7,
	"uninstalled": -0.7, "uninstalling": -0.7, "fail": -0.7, "fails": -0.7,
	"failed": -0.7, "failure": -0.7, "error": -0.6, "errors": -0.6,
	"problem": -0.5, "problems": -0.5, "issue": -0.4, "issues": -0.4,
	"stuck": -0.6, "wrong": -0.5, "missing": -0.5, "lost": -0.6,
	"drains": -0.6, "drain": -0.6, "confusing": -0.6, "complicated": -0.5,
	"ugly": -0.6, "outdated": -0.5, "unreliable": -0.7, "unstable": -0.7,
	"crap": -0.8, "garbage": -0.9, "trash": -0.8, "pathetic": -0.8,
	"ridiculous": -0.6, "ads": -0.4, "unresponsive": -0.7, "misleading": -0.7,
}

var negations = map[string]struct{}{
	"not": {}, "no": {}, "never": {}, "nothing": {}, "nobody": {},
	"neither": {}, "nor": {}, "hardly": {}, "barely": {}, "without": {},
}

var boosters = map[string]float64{
	"very": 1.3, "really": 1.3, "extremely": 1.5, "absolutely": 1.5,
	"totally": 1.3, "super": 1.4, "incredibly": 1.5, "so": 1.2,
}

// "can't"/"doesn’t" and friends become "... not" before tokenizing.
var contractionPattern = regexp.MustCompile(`(?i)n['’]t\b`)

// negation carries over at most this many non-lexicon tokens
const negationWindow = 3

// Score rates text in [-1, 1] and labels it. Pure and deterministic; empty
// or whitespace-only text scores exactly 0.0 and is neutral.
func Score(text string) (float64, domain.SentimentLabel) {
	if strings.TrimSpace(text) == "" {
		return 0, domain.SentimentNeutral
	}

	toks := tokenize(contractionPattern.ReplaceAllString(text, " not"))
	var sum float64
	var hits int
	negated := 0
	boost := 1.0

	for _, t := range toks {
		if _, ok := negations[t]; ok {
			negated = negationWindow
			continue
		}
		if b, ok := boosters[t]; ok {
			boost = b
			continue
		}
		w, ok := lexicon[t]
		if !ok {
			if negated > 0 {
				negated--
			}
			boost = 1.0
			continue
		}
		w *= boost
		if negated > 0 {
			w = -w
		}
		if w > 1 {
			w = 1
		} else if w < -1 {
			w = -1
		}
		sum += w
		hits++
		negated = 0
		boost = 1.0
	}

	if hits == 0 {
		return 0, domain.SentimentNeutral
	}
	score := sum / float64(hits)
	return score, LabelFor(score)
}

// LabelFor applies the fixed thresholds: above 0.1 positive, below -0.1
// negative, neutral between.
func LabelFor(score float64) domain.SentimentLabel {
	switch {
	case score > 0.1:
		return domain.SentimentPositive
	case score < -0.1:
		return domain.SentimentNegative
	default:
		return domain.SentimentNeutral
	}
}
