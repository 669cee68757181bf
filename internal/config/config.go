// Package config provides configuration management for the linkhound
// application. All settings are read once at startup into an immutable
// Config value that is passed into each component constructor.
package config

import (
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/jonesrussell/linkhound/internal/logger"
)

// Limit modes for the crawl loop. Exactly one cap is active per run: either
// the number of pages visited or the number of distinct reachability probes.
const (
	LimitByPages  = "pages"
	LimitByChecks = "checks"
)

// Default configuration values.
const (
	DefaultMaxPages       = 120
	DefaultMaxLinkChecks  = 500
	DefaultCrawlDelay     = 250 * time.Millisecond
	DefaultProbeDelay     = 250 * time.Millisecond
	DefaultProbeTimeout   = 15 * time.Second
	DefaultRecordInterval = 500 * time.Millisecond
	DefaultRecordRetries  = 4
	DefaultUserAgent      = "Mozilla/5.0 (linkhound health check)"
)

// defaultBlockedAsActiveDomains lists domains that aggressively anti-bot
// block but are otherwise live; 403/999 from these is treated as Active
// during the recheck pass.
var defaultBlockedAsActiveDomains = []string{
	"linkedin.com",
	"substack.com",
	"economist.com",
	"annualreviews.org",
	"iea.org",
	"ncbi.nlm.nih.gov",
	"axios.com",
}

// AppConfig holds application-level settings.
type AppConfig struct {
	Name        string
	Environment string
	Debug       bool
}

// CrawlConfig holds the crawl and classification settings.
type CrawlConfig struct {
	// SiteBaseURL is the root of the site to crawl. Required.
	SiteBaseURL string
	// SiteBrand, when set, is stripped from repeated page-title decorations.
	SiteBrand string
	// LimitMode selects which cap bounds the run: LimitByPages or LimitByChecks.
	LimitMode string
	// MaxPages caps pages visited when LimitMode is "pages".
	MaxPages int
	// MaxLinkChecks caps distinct reachability probes when LimitMode is "checks".
	MaxLinkChecks int
	// CheckInternal enables probing links that stay on the crawled domain.
	CheckInternal bool
	// CheckExternal enables probing links that leave the crawled domain.
	CheckExternal bool
	// CrawlDelay is the pause between successive page visits.
	CrawlDelay time.Duration
	// ProbeDelay is the pause between successive reachability probes.
	ProbeDelay time.Duration
	// ProbeTimeout bounds each individual probe attempt.
	ProbeTimeout time.Duration
	// UserAgent is sent on every probe and page fetch.
	UserAgent string
	// SkipDomains are short-circuited to Blocked without probing.
	SkipDomains []string
	// ExcludeDOMAreas lists DOM region tags excluded from the link table.
	ExcludeDOMAreas []string
	// BlockedAsActiveDomains are eligible for the anti-bot recheck pass.
	BlockedAsActiveDomains []string
	// ActiveWhenBlockedCodes are the status codes reclassified to Active for
	// allow-listed domains.
	ActiveWhenBlockedCodes []int
}

// RecordsConfig holds the record-store client settings.
type RecordsConfig struct {
	// Token authenticates against the record-store API. Required.
	Token string
	// PageCollectionID identifies the pages collection. Required.
	PageCollectionID string
	// OccurrenceCollectionID identifies the link occurrences collection. Required.
	OccurrenceCollectionID string
	// BaseURL is the API root.
	BaseURL string
	// MinInterval is the minimum spacing enforced before every API call.
	MinInterval time.Duration
	// MaxRetries bounds retry attempts on rate-limit and server errors.
	MaxRetries int
	// ForceRefresh writes unchanged occurrence records anyway so their
	// last-seen timestamps stay current.
	ForceRefresh bool
}

// AlertConfig holds the notification sink settings.
type AlertConfig struct {
	// SlackWebhookURL receives the newly-broken digest. Optional; empty
	// disables alerting.
	SlackWebhookURL string
}

// Config is the root configuration, constructed once by Load.
type Config struct {
	App     AppConfig
	Logger  logger.Config
	Crawl   CrawlConfig
	Records RecordsConfig
	Alert   AlertConfig
}

// Load reads environment variables (plus an optional .env file and
// config.yaml) and returns a validated Config. Missing required values are
// reported before any crawling begins.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	_ = v.ReadInConfig()

	setDefaults(v)

	if err := bindEnvVars(v); err != nil {
		return nil, err
	}

	cfg := build(v)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("app", map[string]any{
		"name":        "linkhound",
		"environment": "production",
		"debug":       false,
	})

	v.SetDefault("logger", map[string]any{
		"level":       "info",
		"development": false,
		"encoding":    "json",
	})

	v.SetDefault("crawl", map[string]any{
		"limit_mode":                LimitByPages,
		"max_pages":                 DefaultMaxPages,
		"max_link_checks":           DefaultMaxLinkChecks,
		"check_internal":            true,
		"check_external":            true,
		"crawl_delay":               DefaultCrawlDelay.String(),
		"probe_delay":               DefaultProbeDelay.String(),
		"probe_timeout":             DefaultProbeTimeout.String(),
		"user_agent":                DefaultUserAgent,
		"skip_domains":              "linkedin.com",
		"exclude_dom_areas":         "Footer,Nav",
		"blocked_as_active_domains": strings.Join(defaultBlockedAsActiveDomains, ","),
		"active_when_blocked_codes": "403,999",
	})

	v.SetDefault("records", map[string]any{
		"base_url":      "https://api.notion.com/v1",
		"min_interval":  DefaultRecordInterval.String(),
		"max_retries":   DefaultRecordRetries,
		"force_refresh": false,
	})
}

// bindEnvVars maps the documented environment variables to config keys.
func bindEnvVars(v *viper.Viper) error {
	bindings := map[string][]string{
		"app.environment":                  {"APP_ENV"},
		"app.debug":                        {"APP_DEBUG"},
		"logger.level":                     {"LOG_LEVEL"},
		"logger.encoding":                  {"LOG_FORMAT"},
		"crawl.site_base_url":              {"SITE_BASE_URL"},
		"crawl.site_brand":                 {"SITE_BRAND"},
		"crawl.limit_mode":                 {"LIMIT_MODE"},
		"crawl.max_pages":                  {"MAX_PAGES"},
		"crawl.max_link_checks":            {"MAX_LINK_CHECKS"},
		"crawl.check_internal":             {"CHECK_INTERNAL"},
		"crawl.check_external":             {"CHECK_EXTERNAL"},
		"crawl.crawl_delay":                {"CRAWL_DELAY", "CRAWL_SLEEP"},
		"crawl.probe_delay":                {"PROBE_DELAY"},
		"crawl.probe_timeout":              {"PROBE_TIMEOUT"},
		"crawl.user_agent":                 {"CRAWL_USER_AGENT"},
		"crawl.skip_domains":               {"SKIP_DOMAINS"},
		"crawl.exclude_dom_areas":          {"EXCLUDE_DOM_AREAS"},
		"crawl.blocked_as_active_domains":  {"BLOCKED_AS_ACTIVE_DOMAINS"},
		"crawl.active_when_blocked_codes":  {"ACTIVE_WHEN_BLOCKED_CODES"},
		"records.token":                    {"NOTION_TOKEN"},
		"records.page_collection_id":       {"NOTION_DB_A_ID"},
		"records.occurrence_collection_id": {"NOTION_DB_B_ID"},
		"records.base_url":                 {"NOTION_BASE_URL"},
		"records.min_interval":             {"RECORD_MIN_INTERVAL", "NOTION_MIN_INTERVAL"},
		"records.max_retries":              {"RECORD_MAX_RETRIES"},
		"records.force_refresh":            {"FORCE_REFRESH"},
		"alert.slack_webhook_url":          {"SLACK_WEBHOOK_URL"},
	}

	for key, envs := range bindings {
		args := append([]string{key}, envs...)
		if err := v.BindEnv(args...); err != nil {
			return &BindError{Key: key, Err: err}
		}
	}

	return nil
}

// build assembles the Config from resolved viper values.
func build(v *viper.Viper) *Config {
	debug := v.GetBool("app.debug")
	level := logger.Level(v.GetString("logger.level"))
	if debug {
		level = logger.DebugLevel
	}

	development := v.GetString("app.environment") == "development"
	encoding := v.GetString("logger.encoding")
	if development {
		encoding = "console"
	}

	return &Config{
		App: AppConfig{
			Name:        v.GetString("app.name"),
			Environment: v.GetString("app.environment"),
			Debug:       debug,
		},
		Logger: logger.Config{
			Level:       level,
			Development: development,
			Encoding:    encoding,
		},
		Crawl: CrawlConfig{
			SiteBaseURL:            strings.TrimSpace(v.GetString("crawl.site_base_url")),
			SiteBrand:              strings.TrimSpace(v.GetString("crawl.site_brand")),
			LimitMode:              v.GetString("crawl.limit_mode"),
			MaxPages:               v.GetInt("crawl.max_pages"),
			MaxLinkChecks:          v.GetInt("crawl.max_link_checks"),
			CheckInternal:          v.GetBool("crawl.check_internal"),
			CheckExternal:          v.GetBool("crawl.check_external"),
			CrawlDelay:             v.GetDuration("crawl.crawl_delay"),
			ProbeDelay:             v.GetDuration("crawl.probe_delay"),
			ProbeTimeout:           v.GetDuration("crawl.probe_timeout"),
			UserAgent:              v.GetString("crawl.user_agent"),
			SkipDomains:            splitList(v.GetString("crawl.skip_domains")),
			ExcludeDOMAreas:        splitList(v.GetString("crawl.exclude_dom_areas")),
			BlockedAsActiveDomains: splitList(v.GetString("crawl.blocked_as_active_domains")),
			ActiveWhenBlockedCodes: splitCodes(v.GetString("crawl.active_when_blocked_codes")),
		},
		Records: RecordsConfig{
			Token:                  strings.TrimSpace(v.GetString("records.token")),
			PageCollectionID:       strings.TrimSpace(v.GetString("records.page_collection_id")),
			OccurrenceCollectionID: strings.TrimSpace(v.GetString("records.occurrence_collection_id")),
			BaseURL:                v.GetString("records.base_url"),
			MinInterval:            v.GetDuration("records.min_interval"),
			MaxRetries:             v.GetInt("records.max_retries"),
			ForceRefresh:           v.GetBool("records.force_refresh"),
		},
		Alert: AlertConfig{
			SlackWebhookURL: strings.TrimSpace(v.GetString("alert.slack_webhook_url")),
		},
	}
}

// Validate checks the configuration before any crawling begins.
func (c *Config) Validate() error {
	if c.Crawl.SiteBaseURL == "" {
		return &ValidationError{Field: "crawl.site_base_url", Reason: "SITE_BASE_URL is required"}
	}
	if c.Records.Token == "" {
		return &ValidationError{Field: "records.token", Reason: "NOTION_TOKEN is required"}
	}
	if c.Records.PageCollectionID == "" {
		return &ValidationError{Field: "records.page_collection_id", Reason: "NOTION_DB_A_ID is required"}
	}
	if c.Records.OccurrenceCollectionID == "" {
		return &ValidationError{Field: "records.occurrence_collection_id", Reason: "NOTION_DB_B_ID is required"}
	}
	if c.Crawl.LimitMode != LimitByPages && c.Crawl.LimitMode != LimitByChecks {
		return &ValidationError{Field: "crawl.limit_mode", Value: c.Crawl.LimitMode,
			Reason: "must be \"pages\" or \"checks\""}
	}
	if c.Crawl.MaxPages < 1 {
		return &ValidationError{Field: "crawl.max_pages", Value: c.Crawl.MaxPages, Reason: "must be positive"}
	}
	if c.Crawl.MaxLinkChecks < 1 {
		return &ValidationError{Field: "crawl.max_link_checks", Value: c.Crawl.MaxLinkChecks, Reason: "must be positive"}
	}
	if c.Crawl.CrawlDelay < 0 || c.Crawl.ProbeDelay < 0 {
		return &ValidationError{Field: "crawl.delay", Reason: "delays must be non-negative"}
	}
	if c.Crawl.ProbeTimeout <= 0 {
		return &ValidationError{Field: "crawl.probe_timeout", Value: c.Crawl.ProbeTimeout, Reason: "must be positive"}
	}
	if c.Records.MinInterval < 0 {
		return &ValidationError{Field: "records.min_interval", Value: c.Records.MinInterval,
			Reason: "must be non-negative"}
	}
	if c.Records.MaxRetries < 1 {
		return &ValidationError{Field: "records.max_retries", Value: c.Records.MaxRetries, Reason: "must be positive"}
	}

	return nil
}

// splitList parses a comma-separated value into trimmed, lowercased entries.
func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))

	for _, p := range parts {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			out = append(out, p)
		}
	}

	return out
}

// splitCodes parses a comma-separated value into status codes, skipping
// entries that are not integers.
func splitCodes(raw string) []int {
	parts := strings.Split(raw, ",")
	out := make([]int, 0, len(parts))

	for _, p := range parts {
		if n, err := strconv.Atoi(strings.TrimSpace(p)); err == nil {
			out = append(out, n)
		}
	}

	return out
}
