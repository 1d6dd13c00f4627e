package mysql

// Append is first-write-wins: the no-op ON DUPLICATE KEY clause leaves the
// stored row untouched and keeps RowsAffected equal to the number of rows
// actually inserted.
const appendReviewsPrefix = `INSERT INTO reviews
  (source, app_id, review_id, bundle, country, user_name, rating, title, content,
   app_version, thumbs_up, review_date, dev_reply, dev_reply_date, sentiment, score)
VALUES `

const appendReviewsOnDup = " ON DUPLICATE KEY UPDATE review_id = reviews.review_id"

const existingIDsPrefix = `SELECT review_id FROM reviews
WHERE source = ? AND app_id = ? AND review_id IN (`

// -----------------------------------------------------------------------------
// READ QUERIES
// -----------------------------------------------------------------------------

const reviewColumns = `source, app_id, review_id, bundle, country, user_name, rating,
  title, content, app_version, thumbs_up, review_date, dev_reply, dev_reply_date,
  sentiment, score`

// Window scope for aggregation: everything stored for the bundle since the
// window start, newest first. Relies on the (bundle, review_date) index.
const listWindowSQL = `SELECT ` + reviewColumns + `
FROM reviews
WHERE bundle = ? AND review_date >= ?
ORDER BY review_date DESC, id DESC
LIMIT ?`

const listReviewsSQL = `SELECT ` + reviewColumns + `
FROM reviews
WHERE bundle = ?
ORDER BY review_date DESC, id DESC
LIMIT ? OFFSET ?`
