package mysql

import (
	"context"
	"database/sql"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"

	"reviewpulse/internal/domain"
)

func valStr(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}

func valTime(p *time.Time) any {
	if p == nil {
		return nil
	}
	return p.UTC()
}

func nullStr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

type Repo struct{ db *sql.DB }

func New(db *sql.DB) *Repo { return &Repo{db: db} }

// Append stores the batch, skipping rows whose composite identity already
// exists (first write wins). Returns the number of rows actually written, so
// a retry after a partial failure is observable and safe.
func (r *Repo) Append(ctx context.Context, rs []domain.Review) (int, error) {
	if len(rs) == 0 {
		return 0, nil
	}

	values := make([]string, 0, len(rs))
	args := make([]any, 0, len(rs)*16)
	for _, rv := range rs {
		values = append(values, "(?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)")
		args = append(args,
			rv.Source,
			rv.AppID,
			rv.ReviewID,
			rv.Bundle,
			rv.Country,
			rv.UserName,
			rv.Rating,
			valStr(rv.Title),
			rv.Content,
			valStr(rv.AppVersion),
			rv.ThumbsUp,
			rv.ReviewDate.UTC(),
			valStr(rv.DevReply),
			valTime(rv.DevReplyDate),
			string(rv.Sentiment),
			rv.Score,
		)
	}

	res, err := r.db.ExecContext(ctx, appendReviewsPrefix+strings.Join(values, ",")+appendReviewsOnDup, args...)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// ExistingIDs returns the subset of ids already stored for (source, appID).
// One round-trip per batch; the caller dedupes in memory.
func (r *Repo) ExistingIDs(ctx context.Context, source, appID string, ids []string) (map[string]struct{}, error) {
	known := make(map[string]struct{}, len(ids))
	if len(ids) == 0 {
		return known, nil
	}

	args := make([]any, 0, len(ids)+2)
	args = append(args, source, appID)
	for _, id := range ids {
		args = append(args, id)
	}
	q := existingIDsPrefix + strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",") + ")"

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		known[id] = struct{}{}
	}
	return known, rows.Err()
}

func (r *Repo) ListWindow(ctx context.Context, bundle string, since time.Time, limit int) ([]domain.Review, error) {
	rows, err := r.db.QueryContext(ctx, listWindowSQL, bundle, since.UTC(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanReviews(rows)
}

// ListReviews pages through the bundle's reviews newest first. The cursor is
// an opaque offset token; it stays stable because new rows only prepend.
func (r *Repo) ListReviews(ctx context.Context, bundle string, pg domain.PageQuery) (domain.ReviewsPage, error) {
	limit := pg.Limit
	if limit <= 0 {
		limit = 50
	}
	offset, err := decodeCursor(pg.Cursor)
	if err != nil {
		return domain.ReviewsPage{}, err
	}

	// fetch one extra row to learn whether another page exists
	rows, err := r.db.QueryContext(ctx, listReviewsSQL, bundle, limit+1, offset)
	if err != nil {
		return domain.ReviewsPage{}, err
	}
	defer rows.Close()

	items, err := scanReviews(rows)
	if err != nil {
		return domain.ReviewsPage{}, err
	}
	page := domain.ReviewsPage{Items: items}
	if len(items) > limit {
		page.Items = items[:limit]
		page.NextCursor = encodeCursor(offset + limit)
	}
	return page, nil
}

func encodeCursor(offset int) *string {
	s := base64.RawURLEncoding.EncodeToString([]byte(strconv.Itoa(offset)))
	return &s
}

func decodeCursor(c *string) (int, error) {
	if c == nil || *c == "" {
		return 0, nil
	}
	b, err := base64.RawURLEncoding.DecodeString(*c)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrBadCursor, err)
	}
	n, err := strconv.Atoi(string(b))
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %q", domain.ErrBadCursor, string(b))
	}
	return n, nil
}

func scanReviews(rows *sql.Rows) ([]domain.Review, error) {
	var out []domain.Review
	for rows.Next() {
		var (
			rv           domain.Review
			country      sql.NullString
			userName     sql.NullString
			title        sql.NullString
			content      sql.NullString
			appVersion   sql.NullString
			devReply     sql.NullString
			devReplyDate sql.NullTime
			sentiment    string
		)
		if err := rows.Scan(
			&rv.Source,
			&rv.AppID,
			&rv.ReviewID,
			&rv.Bundle,
			&country,
			&userName,
			&rv.Rating,
			&title,
			&content,
			&appVersion,
			&rv.ThumbsUp,
			&rv.ReviewDate,
			&devReply,
			&devReplyDate,
			&sentiment,
			&rv.Score,
		); err != nil {
			return nil, err
		}

		if country.Valid {
			rv.Country = country.String
		}
		if userName.Valid {
			rv.UserName = userName.String
		}
		if content.Valid {
			rv.Content = content.String
		}
		rv.Title = nullStr(title)
		rv.AppVersion = nullStr(appVersion)
		rv.DevReply = nullStr(devReply)
		if devReplyDate.Valid {
			t := devReplyDate.Time
			rv.DevReplyDate = &t
		}
		rv.Sentiment = domain.SentimentLabel(sentiment)

		out = append(out, rv)
	}
	return out, rows.Err()
}
