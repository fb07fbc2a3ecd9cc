package runner

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-runewidth"
	"github.com/rs/zerolog"
	"golang.org/x/term"

	"github.com/sadewadee/dgs-scraper/internal/scraper"
	"github.com/sadewadee/dgs-scraper/tlmt"
	"github.com/sadewadee/dgs-scraper/tlmt/gonoop"
	"github.com/sadewadee/dgs-scraper/tlmt/goposthog"
)

const (
	RunModeServer = iota + 1
	RunModeWorker
)

var (
	ErrInvalidRunMode = errors.New("invalid run mode")
)

type Runner interface {
	Run(context.Context) error
	Close(context.Context) error
}

type Config struct {
	RunMode int

	// Server mode
	ServerMode bool
	Addr       string
	APIKey     string
	DataFolder string

	// Worker mode
	WorkerMode bool
	County     string
	JobID      int64

	// Shared
	Dsn              string
	BaseURL          string
	ScrapeDelay      time.Duration
	Debug            bool
	DisableTelemetry bool

	// Redis cache
	RedisAddr string
	RedisPass string
	RedisDB   int

	// Digest email delivery
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string
}

func ParseConfig() *Config {
	cfg := Config{}

	flag.BoolVar(&cfg.ServerMode, "server", false, "run the dashboard API server")
	flag.BoolVar(&cfg.WorkerMode, "worker", false, "run one scrape job and exit")
	flag.StringVar(&cfg.County, "county", "", "county code to scrape (worker mode)")
	flag.Int64Var(&cfg.JobID, "job-id", 0, "job ID to report progress against (worker mode)")
	flag.StringVar(&cfg.Dsn, "dsn", "", "database connection string (postgres://... or a SQLite file path)")
	flag.StringVar(&cfg.Addr, "addr", ":8080", "address to listen on for the API server")
	flag.StringVar(&cfg.APIKey, "api-key", "", "API key protecting the dashboard API (empty disables auth)")
	flag.StringVar(&cfg.DataFolder, "data-folder", "data", "folder for the database and temporary files")
	flag.StringVar(&cfg.BaseURL, "base-url", scraper.DefaultBaseURL, "DSA tracker base URL")
	flag.DurationVar(&cfg.ScrapeDelay, "delay", 500*time.Millisecond, "delay between tracker page fetches")
	flag.BoolVar(&cfg.Debug, "debug", false, "enable debug logging")
	flag.BoolVar(&cfg.DisableTelemetry, "disable-telemetry", false, "disable anonymous usage telemetry")

	flag.StringVar(&cfg.RedisAddr, "redis-addr", "", "Redis address (host:port) for the stats cache")
	flag.StringVar(&cfg.RedisPass, "redis-pass", "", "Redis password")
	flag.IntVar(&cfg.RedisDB, "redis-db", 0, "Redis database number")

	flag.StringVar(&cfg.SMTPHost, "smtp-host", "", "SMTP host for digest emails (empty disables delivery)")
	flag.IntVar(&cfg.SMTPPort, "smtp-port", 587, "SMTP port")
	flag.StringVar(&cfg.SMTPUsername, "smtp-username", "", "SMTP username")
	flag.StringVar(&cfg.SMTPPassword, "smtp-password", "", "SMTP password")
	flag.StringVar(&cfg.SMTPFrom, "smtp-from", "", "From address for digest emails")

	flag.Parse()

	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("API_KEY")
	}

	if cfg.SMTPPassword == "" {
		cfg.SMTPPassword = os.Getenv("SMTP_PASSWORD")
	}

	if cfg.WorkerMode && cfg.County == "" {
		panic("county must be provided when using worker mode")
	}

	if cfg.WorkerMode && cfg.JobID <= 0 {
		panic("job-id must be provided when using worker mode")
	}

	switch {
	case cfg.WorkerMode:
		cfg.RunMode = RunModeWorker
	default:
		cfg.RunMode = RunModeServer
	}

	return &cfg
}

// NewLogger builds the process-wide logger.
func NewLogger(debug bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}

	return zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger()
}

var (
	telemetryOnce sync.Once
	telemetry     tlmt.Telemetry
)

func Telemetry() tlmt.Telemetry {
	telemetryOnce.Do(func() {
		disableTel := os.Getenv("DISABLE_TELEMETRY") == "1"

		if disableTel {
			telemetry = gonoop.New()

			return
		}

		val, err := goposthog.New("phc_CHYBGEd1eJZzDE7ZWhyiSFuXa9KMLRnaYN47aoIAY2A", "https://eu.i.posthog.com")
		if err != nil || val == nil {
			telemetry = gonoop.New()

			return
		}

		telemetry = val
	})

	return telemetry
}

func wrapText(text string, width int) []string {
	var lines []string

	currentLine := ""
	currentWidth := 0

	for _, r := range text {
		runeWidth := runewidth.RuneWidth(r)
		if currentWidth+runeWidth > width {
			lines = append(lines, currentLine)
			currentLine = string(r)
			currentWidth = runeWidth
		} else {
			currentLine += string(r)
			currentWidth += runeWidth
		}
	}

	if currentLine != "" {
		lines = append(lines, currentLine)
	}

	return lines
}

func banner(messages []string, width int) string {
	if width <= 0 {
		var err error

		width, _, err = term.GetSize(0)
		if err != nil {
			width = 80
		}
	}

	if width < 20 {
		width = 20
	}

	contentWidth := width - 4

	var wrappedLines []string
	for _, message := range messages {
		wrappedLines = append(wrappedLines, wrapText(message, contentWidth)...)
	}

	var builder strings.Builder

	builder.WriteString("╔" + strings.Repeat("═", width-2) + "╗\n")

	for _, line := range wrappedLines {
		lineWidth := runewidth.StringWidth(line)
		paddingRight := contentWidth - lineWidth

		if paddingRight < 0 {
			paddingRight = 0
		}

		builder.WriteString(fmt.Sprintf("║ %s%s ║\n", line, strings.Repeat(" ", paddingRight)))
	}

	builder.WriteString("╚" + strings.Repeat("═", width-2) + "╝\n")

	return builder.String()
}

func Banner() {
	message1 := "🏫 DGS School Project Tracker"
	message2 := fmt.Sprintf("v%s (%s)", Version, BuildDate)

	fmt.Fprintln(os.Stderr, banner([]string{message1, message2}, 0))
}
