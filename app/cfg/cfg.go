package cfg

import (
	"cmp"
	"fmt"
	"time"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

type rawCfg struct {
	// Database configuration
	DBPath string `long:"db-path" env:"DB_PATH" default:"./data/eventwatch.db" description:"Path to the sqlite database file"`

	// Application configuration
	SourcesDir        string `long:"sources-dir" env:"SOURCES_DIR" default:"./sources" description:"Directory containing source configuration files"`
	Port              string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	WorkerCount       int    `long:"worker-count" env:"WORKER_COUNT" default:"5" description:"Number of background workers for source processing"`
	SchedulerInterval int    `long:"scheduler-interval" env:"SCHEDULER_INTERVAL" default:"60" description:"Scheduler interval in seconds"`
	JobTimeout        int    `long:"job-timeout" env:"JOB_TIMEOUT" default:"600" description:"Per-job deadline in seconds"`
	NotifyWorkers     int    `long:"notify-workers" env:"NOTIFY_WORKERS" default:"4" description:"Number of concurrent notification deliveries"`
	APIAccessKey      string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for authentication (optional)"`

	// Scraping configuration
	UserAgent        string `long:"user-agent" env:"USER_AGENT" default:"" description:"User agent string for HTTP requests and the rendering browser"`
	FetchTimeout     int    `long:"fetch-timeout" env:"FETCH_TIMEOUT" default:"30" description:"HTTP fetch timeout in seconds"`
	RenderTimeout    int    `long:"render-timeout" env:"RENDER_TIMEOUT" default:"30" description:"Page rendering timeout in seconds"`
	ChromePath       string `long:"chrome-path" env:"CHROME_PATH" description:"Path to the Chrome/Chromium binary (optional)"`
	DisableRendering bool   `long:"disable-rendering" env:"DISABLE_RENDERING" description:"Disable browser-based rendering entirely"`

	// Notification channels
	TwilioAccountSID string `long:"twilio-account-sid" env:"TWILIO_ACCOUNT_SID" description:"Twilio account SID (optional)"`
	TwilioAuthToken  string `long:"twilio-auth-token" env:"TWILIO_AUTH_TOKEN" description:"Twilio auth token (optional)"`
	TwilioFromNumber string `long:"twilio-from" env:"TWILIO_PHONE_NUMBER" description:"Twilio sender phone number (optional)"`
	SMTPHost         string `long:"smtp-host" env:"SMTP_HOST" description:"SMTP server host (optional)"`
	SMTPPort         int    `long:"smtp-port" env:"SMTP_PORT" default:"587" description:"SMTP server port"`
	SMTPUser         string `long:"smtp-user" env:"SMTP_USER" description:"SMTP username (optional)"`
	SMTPPassword     string `long:"smtp-password" env:"SMTP_PASS" description:"SMTP password (optional)"`
	SMTPFrom         string `long:"smtp-from" env:"SMTP_FROM" description:"Email sender address (optional)"`

	// Application metadata
	Timezone string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, America/New_York)"`
	Debug    bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

var globalCfg *Cfg

func Load() (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		DBPath:            raw.DBPath,
		SourcesDir:        raw.SourcesDir,
		Port:              raw.Port,
		WorkerCount:       raw.WorkerCount,
		SchedulerInterval: raw.SchedulerInterval,
		JobTimeout:        raw.JobTimeout,
		NotifyWorkers:     raw.NotifyWorkers,
		APIAccessKey:      raw.APIAccessKey,
		UserAgent:         cmp.Or(raw.UserAgent, defaultUserAgent),
		FetchTimeout:      raw.FetchTimeout,
		RenderTimeout:     raw.RenderTimeout,
		ChromePath:        raw.ChromePath,
		DisableRendering:  raw.DisableRendering,
		TwilioAccountSID:  raw.TwilioAccountSID,
		TwilioAuthToken:   raw.TwilioAuthToken,
		TwilioFromNumber:  raw.TwilioFromNumber,
		SMTPHost:          raw.SMTPHost,
		SMTPPort:          raw.SMTPPort,
		SMTPUser:          raw.SMTPUser,
		SMTPPassword:      raw.SMTPPassword,
		SMTPFrom:          raw.SMTPFrom,
		Timezone:          raw.Timezone,
		Debug:             raw.Debug,
		Version:           GetVersion(),
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	globalCfg = cfg

	return cfg, nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}

// SMSConfigured reports whether the Twilio channel has full credentials.
func (c *Cfg) SMSConfigured() bool {
	return c.TwilioAccountSID != "" && c.TwilioAuthToken != "" && c.TwilioFromNumber != ""
}

// EmailConfigured reports whether the SMTP channel has a usable setup.
func (c *Cfg) EmailConfigured() bool {
	return c.SMTPHost != "" && c.SMTPFrom != ""
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
			fmt.Printf("Timezone configured: %s\n", timezone)
		}
	}
	return nil
}
