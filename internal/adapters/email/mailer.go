package email

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"html/template"
	"strconv"
	"time"

	"github.com/wneessen/go-mail"

	"reviewpulse/internal/analysis"
	"reviewpulse/internal/domain"
)

// Mailer renders a built report as HTML with the in-scope reviews attached as
// CSV and ships it over SMTP. A failed send never un-builds the report; the
// caller just records DeliveryFailed.
type Mailer struct {
	host string
	port int
	user string
	pass string
	from string
	to   []string
}

func New(host string, port int, user, pass, from string, to []string) *Mailer {
	return &Mailer{host: host, port: port, user: user, pass: pass, from: from, to: to}
}

func (m *Mailer) Send(ctx context.Context, rep domain.AggregateReport, reviews []domain.Review) error {
	msg := mail.NewMsg()
	if err := msg.From(m.from); err != nil {
		return fmt.Errorf("mail from: %w", err)
	}
	if err := msg.To(m.to...); err != nil {
		return fmt.Errorf("mail to: %w", err)
	}
	msg.Subject(fmt.Sprintf("Review report: %s (%s)", rep.AppName, rep.GeneratedAt.Format("2006-01-02")))

	html, err := renderHTML(rep)
	if err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	msg.SetBodyString(mail.TypeTextHTML, html)

	if len(reviews) > 0 {
		if err := msg.AttachReader("reviews.csv", bytes.NewReader(reviewsCSV(reviews))); err != nil {
			return fmt.Errorf("attach csv: %w", err)
		}
	}

	opts := []mail.Option{
		mail.WithPort(m.port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if m.user != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(m.user),
			mail.WithPassword(m.pass),
		)
	}
	client, err := mail.NewClient(m.host, opts...)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}
	return client.DialAndSendWithContext(ctx, msg)
}

var reportTmpl = template.Must(template.New("report").Funcs(template.FuncMap{
	"f2": func(p *float64) string {
		if p == nil {
			return "n/a"
		}
		return fmt.Sprintf("%.2f", *p)
	},
}).Parse(`<html><body>
<h2>{{.AppName}} — review report</h2>
<p>Window: last {{.WindowDays}} days ({{.Scope}}) · generated {{.GeneratedAt.Format "2006-01-02 15:04"}} UTC</p>

<h3>Overview</h3>
<ul>
  <li>Total reviews: {{.TotalReviews}}</li>
  <li>Average rating: {{f2 .AverageRating}}</li>
  <li>Sentiment: {{.Sentiment.Positive}} positive / {{.Sentiment.Neutral}} neutral / {{.Sentiment.Negative}} negative</li>
  <li>Run: {{.Stats.Fetched}} fetched, {{.Stats.Duplicates}} duplicates, {{.Stats.Malformed}} skipped, {{.Stats.Persisted}} persisted{{if .Stats.Enhanced}} · model-assisted themes{{else}} · frequency themes{{end}}</li>
</ul>

{{if .Themes}}<h3>Top themes</h3>
<table border="1" cellpadding="4" cellspacing="0">
<tr><th>Theme</th><th>In sample</th><th>Estimated overall</th></tr>
{{range .Themes}}<tr><td>{{.Name}}</td><td>{{.SampleCount}}</td><td>{{.ExtrapolatedCount}}</td></tr>{{end}}
</table>{{end}}

{{if .Quotes}}<h3>What users say</h3>
<ul>{{range .Quotes}}<li>&ldquo;{{.}}&rdquo;</li>{{end}}</ul>{{end}}

{{if .Actions}}<h3>Suggested actions</h3>
<ol>{{range .Actions}}<li>{{.}}</li>{{end}}</ol>{{end}}

{{if .Critical}}<h3>Critical reviews</h3>
<table border="1" cellpadding="4" cellspacing="0">
<tr><th>Date</th><th>Source</th><th>Rating</th><th>Review</th></tr>
{{range .Critical}}<tr><td>{{.ReviewDate.Format "2006-01-02"}}</td><td>{{.Source}}</td><td>{{.Rating}}/5</td><td>{{.Content}}</td></tr>{{end}}
</table>{{end}}
</body></html>`))

func renderHTML(rep domain.AggregateReport) (string, error) {
	var buf bytes.Buffer
	if err := reportTmpl.Execute(&buf, rep); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func reviewsCSV(reviews []domain.Review) []byte {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write([]string{"source", "review_id", "date", "user", "rating", "sentiment", "score", "content", "developer_reply"})
	for _, rv := range reviews {
		reply := ""
		if rv.DevReply != nil {
			reply = *rv.DevReply
		}
		_ = w.Write([]string{
			rv.Source,
			rv.ReviewID,
			rv.ReviewDate.Format(time.RFC3339),
			rv.UserName,
			strconv.Itoa(rv.Rating),
			string(rv.Sentiment),
			strconv.FormatFloat(rv.Score, 'f', 3, 64),
			analysis.ScrubPII(rv.Content),
			analysis.ScrubPII(reply),
		})
	}
	w.Flush()
	return buf.Bytes()
}
