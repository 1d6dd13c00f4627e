package domain

import (
	"crypto/sha1"
	"encoding/hex"
	"time"
)

// Sources a run can cover. AppID is source-local: the Android package name
// for Google Play, the numeric track id for the App Store.
const (
	SourceGooglePlay = "google_play"
	SourceAppStore   = "app_store"
)

type SentimentLabel string

const (
	SentimentPositive SentimentLabel = "positive"
	SentimentNeutral  SentimentLabel = "neutral"
	SentimentNegative SentimentLabel = "negative"
)

type Review struct {
	Source   string
	AppID    string
	ReviewID string
	Bundle   string // logical app key shared by every source of one run
	Country  string

	UserName   string
	Rating     int // 1..5
	Title      *string
	Content    string
	AppVersion *string
	ThumbsUp   int
	ReviewDate time.Time

	DevReply     *string
	DevReplyDate *time.Time

	// Derived, recomputable, never part of identity.
	Sentiment SentimentLabel
	Score     float64 // -1.0 .. 1.0
}

// Key is the composite identity. Two rows with equal keys are the same
// review regardless of which run produced them.
func (r Review) Key() string {
	return r.Source + "\x00" + r.AppID + "\x00" + r.ReviewID
}

// SynthesizeID builds a stable review id from author, timestamp and a short
// text prefix for sources that omit one. Re-fetching the same review must
// synthesize the same id or dedupe breaks.
func SynthesizeID(user string, date time.Time, text string) string {
	prefix := []rune(text)
	if len(prefix) > 20 {
		prefix = prefix[:20]
	}
	sig := user + "|" + date.UTC().Format(time.RFC3339) + "|" + string(prefix)
	sum := sha1.Sum([]byte(sig))
	return hex.EncodeToString(sum[:])
}

// AppRef names one source-local identity of the app under analysis. Bundle
// is the logical key that ties the per-source identities of one run
// together (the Android package name).
type AppRef struct {
	Source string
	AppID  string
	Bundle string
	Name   string
}

// Batch is the output of a single adapter fetch: already normalized,
// newest first, plus the count of raw records dropped as malformed.
type Batch struct {
	Source    string
	AppID     string
	Reviews   []Review
	Malformed int
}
