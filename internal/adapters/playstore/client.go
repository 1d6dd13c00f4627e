// internal/adapters/playstore/client.go
package playstore

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"reviewpulse/internal/adapters/httpx"
	"reviewpulse/internal/domain"
)

const (
	defaultBase = "https://play.google.com"
	pageSize    = 200
	sortNewest  = 2
)

// Client reads the Play Store review feed. The storefront has no public
// API; reviews come from the batchexecute RPC the web UI itself calls,
// newest first, paginated by a continuation token.
type Client struct {
	hx      *httpx.Client
	base    string
	lang    string
	country string
}

func New(hx *httpx.Client, base, lang, country string) *Client {
	if base == "" {
		base = defaultBase
	}
	if lang == "" {
		lang = "en"
	}
	if country == "" {
		country = "us"
	}
	return &Client{hx: hx, base: base, lang: lang, country: country}
}

func (c *Client) Source() string { return domain.SourceGooglePlay }

func (c *Client) Fetch(ctx context.Context, app domain.AppRef, since time.Time, max int) (domain.Batch, error) {
	batch := domain.Batch{Source: domain.SourceGooglePlay, AppID: app.AppID}
	if max <= 0 {
		return batch, nil
	}

	token := ""
	for {
		rows, next, err := c.page(ctx, app.AppID, token)
		if err != nil {
			// partial batches are discarded: an unavailable source
			// contributes nothing to the run
			return domain.Batch{Source: domain.SourceGooglePlay, AppID: app.AppID},
				&domain.SourceError{Source: domain.SourceGooglePlay, Err: err}
		}

		exhausted := len(rows) == 0
		for _, row := range rows {
			rv, ok := c.mapReview(app, row)
			if !ok {
				batch.Malformed++
				continue
			}
			if rv.ReviewDate.Before(since) {
				// feed is newest first: everything past this point is
				// outside the window
				exhausted = true
				break
			}
			batch.Reviews = append(batch.Reviews, rv)
			if len(batch.Reviews) >= max {
				return batch, nil
			}
		}

		if exhausted || next == "" {
			return batch, nil
		}
		token = next
	}
}

// page performs one batchexecute call and returns the raw review rows plus
// the continuation token ("" when the feed is exhausted).
func (c *Client) page(ctx context.Context, appID, token string) ([]any, string, error) {
	u := fmt.Sprintf("%s/_/PlayStoreUi/data/batchexecute?hl=%s&gl=%s",
		c.base, url.QueryEscape(c.lang), url.QueryEscape(c.country))

	body, err := c.hx.PostForm(ctx, u, url.Values{"f.req": {reviewsEnvelope(appID, token)}})
	if err != nil {
		return nil, "", err
	}
	return parseEnvelope(body)
}

// reviewsEnvelope builds the f.req payload for the UserReviews RPC.
func reviewsEnvelope(appID, token string) string {
	tok := "null"
	if token != "" {
		tok = fmt.Sprintf("%q", token)
	}
	inner := fmt.Sprintf(`[null,null,[2,%d,[%d,null,%s],null,[]],[%q,7]]`, sortNewest, pageSize, tok, appID)
	outer, _ := marshalJSON([][]any{{"UserReviews", inner, nil, "generic"}})
	return fmt.Sprintf("[%s]", outer)
}

// AppName resolves the display name from the store details page, preferring
// the og:title meta tag.
func (c *Client) AppName(ctx context.Context, appID string) (string, error) {
	u := fmt.Sprintf("%s/store/apps/details?id=%s&hl=%s", c.base, url.QueryEscape(appID), url.QueryEscape(c.lang))
	body, err := c.hx.Get(ctx, u)
	if err != nil {
		return "", err
	}
	name, err := titleFromHTML(body)
	if err != nil {
		return "", err
	}
	return name, nil
}

// ParseURL extracts package, language and country from a Play Store app URL
// like https://play.google.com/store/apps/details?id=com.x&hl=en_IN&gl=in.
// Locale suffixes in hl ("en_IN") double as the country when gl is absent.
func ParseURL(raw string) (appID, lang, country string, err error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", "", "", err
	}
	q := u.Query()
	appID = q.Get("id")
	if appID == "" {
		return "", "", "", fmt.Errorf("playstore: url has no id parameter: %s", raw)
	}
	lang = q.Get("hl")
	country = q.Get("gl")
	if lang == "" {
		lang = "en"
	}
	if i := strings.IndexAny(lang, "_-"); i >= 0 {
		if country == "" {
			country = strings.ToLower(lang[i+1:])
		}
		lang = lang[:i]
	}
	if country == "" {
		country = "us"
	}
	return appID, lang, strings.ToLower(country), nil
}
