package shared

import (
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/rs/zerolog/log"
)

// Config is loaded once in main and passed down; no component reads the
// environment on its own.
type Config struct {
	AppEnv      string `env:"APP_ENV" env-default:"prod"`
	HTTPAddr    string `env:"HTTP_ADDR" env-default:":8080"`
	MetricsAddr string `env:"METRICS_ADDR" env-default:":9100"`

	MySQLDSN  string `env:"MYSQL_DSN" env-default:"root:root@tcp(localhost:3306)/reviewpulse?parseTime=true&charset=utf8mb4,utf8&loc=UTC"`
	RedisAddr string `env:"REDIS_ADDR" env-default:"localhost:6379"`
	RedisPass string `env:"REDIS_PASSWORD" env-default:""`
	RedisDB   int    `env:"REDIS_DB" env-default:"0"`
	CacheTTL  int    `env:"CACHE_TTL_SECONDS" env-default:"900"`

	// The app under analysis: a Play Store details URL carrying the package
	// plus optional hl/gl locale hints.
	PlayAppURL string `env:"PLAY_APP_URL" env-default:""`

	ScrapeDays     int `env:"SCRAPE_DAYS" env-default:"7"`
	MaxReviews     int `env:"MAX_REVIEWS" env-default:"5000"`
	CriticalRating int `env:"CRITICAL_RATING" env-default:"2"`
	CriticalCap    int `env:"CRITICAL_CAP" env-default:"10"`
	ThemeCount     int `env:"THEME_COUNT" env-default:"5"`
	ThemeSampleCap int `env:"THEME_SAMPLE_CAP" env-default:"100"`
	QuoteSampleCap int `env:"QUOTE_SAMPLE_CAP" env-default:"50"`
	TruncateChars  int `env:"TEXT_TRUNCATE_CHARS" env-default:"200"`
	Workers        int `env:"SCORE_WORKERS" env-default:"8"`

	SourceRPS        int `env:"SOURCE_RPS" env-default:"5"`
	SourceTimeoutSec int `env:"SOURCE_TIMEOUT_SECONDS" env-default:"20"`

	// Inference is optional: an empty key disables the enhanced extractor
	// and the run uses the frequency variant throughout.
	InferenceAPIKey     string `env:"INFERENCE_API_KEY" env-default:""`
	InferenceBaseURL    string `env:"INFERENCE_BASE_URL" env-default:""`
	InferenceModel      string `env:"INFERENCE_MODEL" env-default:"gpt-4o-mini"`
	InferenceTimeoutSec int    `env:"INFERENCE_TIMEOUT_SECONDS" env-default:"60"`

	// Mail delivery is optional: an empty host skips the delivery step.
	SMTPHost string `env:"SMTP_HOST" env-default:""`
	SMTPPort int    `env:"SMTP_PORT" env-default:"587"`
	SMTPUser string `env:"SMTP_USER" env-default:""`
	SMTPPass string `env:"SMTP_PASSWORD" env-default:""`
	MailFrom string `env:"MAIL_FROM" env-default:""`
	MailTo   string `env:"MAIL_TO" env-default:""` // comma separated
}

func Load() Config {
	var c Config
	if err := cleanenv.ReadEnv(&c); err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}
	if c.ScrapeDays < 1 {
		c.ScrapeDays = 1
	}
	if c.MaxReviews < 1 {
		c.MaxReviews = 1
	}
	return c
}

func (c Config) CacheTTLDur() time.Duration { return time.Duration(c.CacheTTL) * time.Second }

func (c Config) SourceTimeout() time.Duration {
	return time.Duration(c.SourceTimeoutSec) * time.Second
}

func (c Config) InferenceTimeout() time.Duration {
	return time.Duration(c.InferenceTimeoutSec) * time.Second
}

// InferenceEnabled is the capability flag the extractor choice hangs on; the
// key itself is never inspected beyond presence.
func (c Config) InferenceEnabled() bool { return c.InferenceAPIKey != "" }

func (c Config) MailEnabled() bool { return c.SMTPHost != "" && c.MailFrom != "" && c.MailTo != "" }
