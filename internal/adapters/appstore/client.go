// internal/adapters/appstore/client.go
package appstore

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"reviewpulse/internal/adapters/httpx"
	"reviewpulse/internal/domain"
)

const (
	defaultBase = "https://itunes.apple.com"
	maxPages    = 10 // the customer-reviews feed serves at most 10 pages
)

// Client reads the iTunes customer-reviews Atom feed, newest first. The
// feed carries ratings and versions in the im: extension namespace and
// paginates by page number rather than token.
type Client struct {
	hx      *httpx.Client
	base    string
	country string
	parser  *gofeed.Parser
}

func New(hx *httpx.Client, base, country string) *Client {
	if base == "" {
		base = defaultBase
	}
	if country == "" {
		country = "us"
	}
	return &Client{hx: hx, base: base, country: country, parser: gofeed.NewParser()}
}

func (c *Client) Source() string { return domain.SourceAppStore }

func (c *Client) Fetch(ctx context.Context, app domain.AppRef, since time.Time, max int) (domain.Batch, error) {
	batch := domain.Batch{Source: domain.SourceAppStore, AppID: app.AppID}
	if max <= 0 {
		return batch, nil
	}

	for page := 1; page <= maxPages; page++ {
		u := fmt.Sprintf("%s/%s/rss/customerreviews/page=%d/id=%s/sortby=mostrecent/xml",
			c.base, url.PathEscape(c.country), page, url.PathEscape(app.AppID))

		body, err := c.hx.Get(ctx, u)
		if err != nil {
			// overflow pages 404 once the feed runs out
			if errors.Is(err, httpx.ErrNotFound) && page > 1 {
				return batch, nil
			}
			return domain.Batch{Source: domain.SourceAppStore, AppID: app.AppID},
				&domain.SourceError{Source: domain.SourceAppStore, Err: err}
		}

		feed, err := c.parser.ParseString(string(body))
		if err != nil {
			return domain.Batch{Source: domain.SourceAppStore, AppID: app.AppID},
				&domain.SourceError{Source: domain.SourceAppStore, Err: err}
		}
		if len(feed.Items) == 0 {
			return batch, nil
		}

		for _, it := range feed.Items {
			if !isReviewEntry(it) {
				// the feed's lead entry describes the app itself
				continue
			}
			rv, ok := c.mapItem(app, it)
			if !ok {
				batch.Malformed++
				continue
			}
			if rv.ReviewDate.Before(since) {
				return batch, nil
			}
			batch.Reviews = append(batch.Reviews, rv)
			if len(batch.Reviews) >= max {
				return batch, nil
			}
		}
	}
	return batch, nil
}

// Lookup resolves an Android bundle id to the matching App Store track id
// and display name via the public lookup endpoint.
func (c *Client) Lookup(ctx context.Context, bundleID string) (appID, name string, err error) {
	u := fmt.Sprintf("%s/lookup?bundleId=%s&country=%s",
		c.base, url.QueryEscape(bundleID), url.QueryEscape(c.country))

	var out struct {
		ResultCount int `json:"resultCount"`
		Results     []struct {
			TrackID   int64  `json:"trackId"`
			TrackName string `json:"trackName"`
		} `json:"results"`
	}
	if err := c.hx.GetJSON(ctx, u, &out); err != nil {
		return "", "", err
	}
	if out.ResultCount == 0 || len(out.Results) == 0 {
		return "", "", domain.ErrNotFound
	}
	return strconv.FormatInt(out.Results[0].TrackID, 10), out.Results[0].TrackName, nil
}

/********** item mapper **********/

// isReviewEntry filters the app-metadata entry, which carries no im:rating.
func isReviewEntry(it *gofeed.Item) bool {
	if it == nil {
		return false
	}
	_, ok := it.Extensions["im"]["rating"]
	return ok
}

func (c *Client) mapItem(app domain.AppRef, it *gofeed.Item) (domain.Review, bool) {
	rating, err := strconv.Atoi(extValue(it, "rating"))
	if err != nil || rating < 1 || rating > 5 {
		return domain.Review{}, false
	}
	if it.UpdatedParsed == nil {
		return domain.Review{}, false
	}

	rv := domain.Review{
		Source:     domain.SourceAppStore,
		AppID:      app.AppID,
		Bundle:     app.Bundle,
		Country:    c.country,
		UserName:   authorName(it),
		Rating:     rating,
		Content:    strings.TrimSpace(firstNonEmpty(it.Content, it.Description)),
		ReviewDate: it.UpdatedParsed.UTC(),
	}
	if t := strings.TrimSpace(it.Title); t != "" {
		rv.Title = &t
	}
	if v := extValue(it, "version"); v != "" {
		rv.AppVersion = &v
	}
	if votes, err := strconv.Atoi(extValue(it, "voteSum")); err == nil && votes > 0 {
		rv.ThumbsUp = votes
	}

	rv.ReviewID = strings.TrimSpace(it.GUID)
	if rv.ReviewID == "" {
		rv.ReviewID = domain.SynthesizeID(rv.UserName, rv.ReviewDate, rv.Content)
	}
	return rv, true
}

func extValue(it *gofeed.Item, field string) string {
	if m, ok := it.Extensions["im"]; ok {
		if es := m[field]; len(es) > 0 {
			return strings.TrimSpace(es[0].Value)
		}
	}
	return ""
}

func authorName(it *gofeed.Item) string {
	if len(it.Authors) > 0 && it.Authors[0] != nil {
		return strings.TrimSpace(it.Authors[0].Name)
	}
	if it.Author != nil {
		return strings.TrimSpace(it.Author.Name)
	}
	return ""
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
