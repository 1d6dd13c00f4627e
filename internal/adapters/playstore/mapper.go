package playstore

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"reviewpulse/internal/domain"
)

/********** envelope parsing **********/

// parseEnvelope unwraps a batchexecute response: an anti-JSON prefix line,
// then RPC frames, with the UserReviews frame carrying its real payload as a
// JSON-encoded string.
func parseEnvelope(body []byte) ([]any, string, error) {
	trimmed := bytes.TrimSpace(body)
	if bytes.HasPrefix(trimmed, []byte(")]}'")) {
		if i := bytes.IndexByte(trimmed, '\n'); i >= 0 {
			trimmed = trimmed[i+1:]
		} else {
			trimmed = trimmed[4:]
		}
	}

	var outer []any
	if err := json.Unmarshal(trimmed, &outer); err != nil {
		return nil, "", fmt.Errorf("playstore: envelope: %w", err)
	}

	payload := ""
	for _, f := range outer {
		if str(idx(f, 1)) == "UserReviews" {
			payload = str(idx(f, 2))
			break
		}
	}
	if payload == "" {
		return nil, "", errors.New("playstore: no UserReviews frame in response")
	}

	var data []any
	if err := json.Unmarshal([]byte(payload), &data); err != nil {
		return nil, "", fmt.Errorf("playstore: payload: %w", err)
	}

	rows, _ := idx(data, 0).([]any)
	next := str(idx(data, 1, 1))
	return rows, next, nil
}

/********** positional helpers **********/

// idx walks nested []any by positions; nil when the path falls off.
func idx(v any, path ...int) any {
	for _, i := range path {
		arr, ok := v.([]any)
		if !ok || i < 0 || i >= len(arr) {
			return nil
		}
		v = arr[i]
	}
	return v
}

func str(v any) string {
	s, _ := v.(string)
	return s
}

func num(v any) (float64, bool) {
	f, ok := v.(float64)
	return f, ok
}

/********** review mapper **********/

// Review rows are positional arrays straight from the web UI's wire format:
// 0 id, 1.0 author, 2 rating, 4 text, 5.0 posted unix seconds, 6 thumbs up,
// 7.1 reply text, 7.2.0 reply unix seconds, 10 app version.
func (c *Client) mapReview(app domain.AppRef, row any) (domain.Review, bool) {
	rating, ok := num(idx(row, 2))
	if !ok || rating < 1 || rating > 5 {
		return domain.Review{}, false
	}
	sec, ok := num(idx(row, 5, 0))
	if !ok || sec <= 0 {
		return domain.Review{}, false
	}

	rv := domain.Review{
		Source:     domain.SourceGooglePlay,
		AppID:      app.AppID,
		Bundle:     app.Bundle,
		Country:    c.country,
		UserName:   strings.TrimSpace(str(idx(row, 1, 0))),
		Rating:     int(rating),
		Content:    strings.TrimSpace(str(idx(row, 4))),
		ReviewDate: time.Unix(int64(sec), 0).UTC(),
	}
	if th, ok := num(idx(row, 6)); ok && th > 0 {
		rv.ThumbsUp = int(th)
	}
	if v := strings.TrimSpace(str(idx(row, 10))); v != "" {
		rv.AppVersion = &v
	}
	if rep := strings.TrimSpace(str(idx(row, 7, 1))); rep != "" {
		rv.DevReply = &rep
		if rsec, ok := num(idx(row, 7, 2, 0)); ok && rsec > 0 {
			t := time.Unix(int64(rsec), 0).UTC()
			rv.DevReplyDate = &t
		}
	}

	rv.ReviewID = str(idx(row, 0))
	if rv.ReviewID == "" {
		rv.ReviewID = domain.SynthesizeID(rv.UserName, rv.ReviewDate, rv.Content)
	}
	return rv, true
}

func marshalJSON(v any) (string, error) {
	b, err := json.Marshal(v)
	return string(b), err
}

/********** details page **********/

func titleFromHTML(body []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	if t, ok := doc.Find(`meta[property="og:title"]`).Attr("content"); ok && strings.TrimSpace(t) != "" {
		return cleanTitle(t), nil
	}
	if t := strings.TrimSpace(doc.Find("title").First().Text()); t != "" {
		return cleanTitle(t), nil
	}
	return "", errors.New("playstore: details page has no title")
}

func cleanTitle(t string) string {
	t = strings.TrimSpace(t)
	if i := strings.Index(t, " - Apps on Google Play"); i >= 0 {
		t = t[:i]
	}
	return strings.TrimSpace(t)
}
