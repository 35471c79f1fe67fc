package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is prepended to every environment variable read by LoadFromEnv
const EnvPrefix = "FOLLOWGRAPH_"

// Config holds all configuration options for the follower graph pipeline
type Config struct {
	// API endpoint and credentials
	API APIConfig `yaml:"api" toml:"api" json:"api"`

	// Account search settings
	Search SearchConfig `yaml:"search" toml:"search" json:"search"`

	// Rate limiting configuration
	RateLimit RateLimitConfig `yaml:"rate_limit" toml:"rate_limit" json:"rate_limit"`

	// Follower link collection settings
	Links LinksConfig `yaml:"links" toml:"links" json:"links"`

	// Manual coding workflow
	Annotation AnnotationConfig `yaml:"annotation" toml:"annotation" json:"annotation"`

	// Descriptive statistics settings
	Stats StatsConfig `yaml:"stats" toml:"stats" json:"stats"`

	// Graph export settings
	Export ExportConfig `yaml:"export" toml:"export" json:"export"`

	// Output settings
	Output OutputConfig `yaml:"output" toml:"output" json:"output"`

	// Notification preferences
	Notifications NotificationConfig `yaml:"notifications" toml:"notifications" json:"notifications"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" toml:"logging" json:"logging"`
}

// APIConfig holds the social API endpoint configuration
type APIConfig struct {
	BaseURL     string        `yaml:"base_url" toml:"base_url" json:"base_url"`
	BearerToken string        `yaml:"bearer_token" toml:"bearer_token" json:"-"`
	UserAgent   string        `yaml:"user_agent" toml:"user_agent" json:"user_agent"`
	Timeout     time.Duration `yaml:"timeout" toml:"timeout" json:"timeout"`
}

// SearchConfig holds keyword search configuration
type SearchConfig struct {
	// Keywords are the query variants sent to the search endpoint
	Keywords []string `yaml:"keywords" toml:"keywords" json:"keywords"`
	// FilterTerms are matched as substrings to drop false positives.
	// Defaults to the keywords without leading # or @.
	FilterTerms []string `yaml:"filter_terms" toml:"filter_terms" json:"filter_terms"`
	// MatchFields selects the account fields the filter terms are matched against
	MatchFields []string `yaml:"match_fields" toml:"match_fields" json:"match_fields"`
	// Pages is the maximum number of result pages per keyword
	Pages int `yaml:"pages" toml:"pages" json:"pages"`
	// PerPage is the number of accounts requested per page
	PerPage int `yaml:"per_page" toml:"per_page" json:"per_page"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	SearchRequests    int           `yaml:"search_requests" toml:"search_requests" json:"search_requests"`
	SearchWindow      time.Duration `yaml:"search_window" toml:"search_window" json:"search_window"`
	FollowerRequests  int           `yaml:"follower_requests" toml:"follower_requests" json:"follower_requests"`
	FollowerWindow    time.Duration `yaml:"follower_window" toml:"follower_window" json:"follower_window"`
	MinInterval       time.Duration `yaml:"min_interval" toml:"min_interval" json:"min_interval"`
	BackoffMultiplier float64       `yaml:"backoff_multiplier" toml:"backoff_multiplier" json:"backoff_multiplier"`
	MaxRetries        int           `yaml:"max_retries" toml:"max_retries" json:"max_retries"`
	RetryDelay        time.Duration `yaml:"retry_delay" toml:"retry_delay" json:"retry_delay"`
	MaxRetryDelay     time.Duration `yaml:"max_retry_delay" toml:"max_retry_delay" json:"max_retry_delay"`
}

// LinksConfig holds follower link collection configuration
type LinksConfig struct {
	// MaxPages caps follower ID pages fetched per account. 0 means unlimited.
	MaxPages int `yaml:"max_pages" toml:"max_pages" json:"max_pages"`
	// KeepExternal keeps edges from followers outside the collected account set
	KeepExternal bool `yaml:"keep_external" toml:"keep_external" json:"keep_external"`
	// RetryFailed re-attempts accounts marked failed in a resumed run
	RetryFailed bool `yaml:"retry_failed" toml:"retry_failed" json:"retry_failed"`
}

// AnnotationConfig holds manual coding configuration
type AnnotationConfig struct {
	Codebook  string `yaml:"codebook" toml:"codebook" json:"codebook"`
	CodedFile string `yaml:"coded_file" toml:"coded_file" json:"coded_file"`
}

// StatsConfig holds descriptive statistics configuration
type StatsConfig struct {
	// Metrics are the account counters to summarize; empty means all
	Metrics []string `yaml:"metrics" toml:"metrics" json:"metrics"`
	// GroupBy is the category numeric summaries are split by
	GroupBy string `yaml:"group_by" toml:"group_by" json:"group_by"`
	// Crosstabs are "row:column" category pairs
	Crosstabs []string `yaml:"crosstabs" toml:"crosstabs" json:"crosstabs"`
}

// CrosstabPairs splits Crosstabs into category pairs
func (s StatsConfig) CrosstabPairs() ([][2]string, error) {
	pairs := make([][2]string, 0, len(s.Crosstabs))
	for _, c := range s.Crosstabs {
		row, col, ok := strings.Cut(c, ":")
		row, col = strings.TrimSpace(row), strings.TrimSpace(col)
		if !ok || row == "" || col == "" {
			return nil, fmt.Errorf("crosstab %q is not of the form row:column", c)
		}
		pairs = append(pairs, [2]string{row, col})
	}
	return pairs, nil
}

// ExportConfig holds graph export configuration
type ExportConfig struct {
	File    string `yaml:"file" toml:"file" json:"file"`
	Dynamic bool   `yaml:"dynamic" toml:"dynamic" json:"dynamic"`
	// IncludeExternal adds follower nodes outside the account set
	IncludeExternal bool   `yaml:"include_external" toml:"include_external" json:"include_external"`
	DOT             bool   `yaml:"dot" toml:"dot" json:"dot"`
	SVG             bool   `yaml:"svg" toml:"svg" json:"svg"`
	ColorBy         string `yaml:"color_by" toml:"color_by" json:"color_by"`
}

// OutputConfig holds output directory configuration
type OutputConfig struct {
	BaseDirectory string `yaml:"base_directory" toml:"base_directory" json:"base_directory"`
}

// NotificationConfig holds notification preferences
type NotificationConfig struct {
	Enabled     bool `yaml:"enabled" toml:"enabled" json:"enabled"`
	OnComplete  bool `yaml:"on_complete" toml:"on_complete" json:"on_complete"`
	OnRateLimit bool `yaml:"on_rate_limit" toml:"on_rate_limit" json:"on_rate_limit"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" toml:"level" json:"level"`
	File  string `yaml:"file" toml:"file" json:"file"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		API: APIConfig{
			BaseURL:   "https://api.twitter.com",
			UserAgent: "followgraph/1.0",
			Timeout:   30 * time.Second,
		},
		Search: SearchConfig{
			MatchFields: []string{"screen_name", "name", "description"},
			Pages:       50,
			PerPage:     20,
		},
		RateLimit: RateLimitConfig{
			SearchRequests:    900,
			SearchWindow:      15 * time.Minute,
			FollowerRequests:  15,
			FollowerWindow:    15 * time.Minute,
			MinInterval:       time.Second,
			BackoffMultiplier: 2.0,
			MaxRetries:        3,
			RetryDelay:        5 * time.Second,
			MaxRetryDelay:     2 * time.Minute,
		},
		Links: LinksConfig{
			MaxPages:     0,
			KeepExternal: false,
			RetryFailed:  false,
		},
		Annotation: AnnotationConfig{
			Codebook:  "codebook.yaml",
			CodedFile: "coded.csv",
		},
		Export: ExportConfig{
			File:    "graph.gexf",
			Dynamic: true,
			ColorBy: "actor_type",
		},
		Output: OutputConfig{
			BaseDirectory: "./data",
		},
		Notifications: NotificationConfig{
			Enabled:     false,
			OnComplete:  true,
			OnRateLimit: false,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	var errs []error

	if token := os.Getenv(EnvPrefix + "BEARER_TOKEN"); token != "" {
		c.API.BearerToken = token
	}
	if baseURL := os.Getenv(EnvPrefix + "BASE_URL"); baseURL != "" {
		c.API.BaseURL = baseURL
	}
	if userAgent := os.Getenv(EnvPrefix + "USER_AGENT"); userAgent != "" {
		c.API.UserAgent = userAgent
	}
	if keywords := os.Getenv(EnvPrefix + "KEYWORDS"); keywords != "" {
		c.Search.Keywords = splitList(keywords)
	}
	if terms := os.Getenv(EnvPrefix + "FILTER_TERMS"); terms != "" {
		c.Search.FilterTerms = splitList(terms)
	}

	if v := os.Getenv(EnvPrefix + "FOLLOWER_REQUESTS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sFOLLOWER_REQUESTS: %w", EnvPrefix, err))
		} else if n > 0 {
			c.RateLimit.FollowerRequests = n
		}
	}
	if v := os.Getenv(EnvPrefix + "FOLLOWER_WINDOW"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sFOLLOWER_WINDOW: %w", EnvPrefix, err))
		} else {
			c.RateLimit.FollowerWindow = d
		}
	}
	if v := os.Getenv(EnvPrefix + "MAX_RETRIES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sMAX_RETRIES: %w", EnvPrefix, err))
		} else {
			c.RateLimit.MaxRetries = n
		}
	}

	if outputDir := os.Getenv(EnvPrefix + "OUTPUT_DIR"); outputDir != "" {
		c.Output.BaseDirectory = outputDir
	}
	if notifEnabled := os.Getenv(EnvPrefix + "NOTIFICATIONS_ENABLED"); notifEnabled != "" {
		c.Notifications.Enabled = strings.ToLower(notifEnabled) == "true"
	}
	if logLevel := os.Getenv(EnvPrefix + "LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}

	return errors.Join(errs...)
}

// LoadFromFile loads configuration from a YAML or TOML file
func (c *Config) LoadFromFile(path string) error {
	// If path is empty, try default locations
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil // No config file found, not an error
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if err := toml.Unmarshal(data, c); err != nil {
			return fmt.Errorf("failed to parse config file: %w", err)
		}
		return nil
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	home := os.Getenv("HOME")
	locations := []string{
		"followgraph.yaml",
		"followgraph.yml",
		"followgraph.toml",
		".followgraph.yaml",
		filepath.Join(home, ".config", "followgraph", "config.yaml"),
		filepath.Join(home, ".config", "followgraph", "config.toml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	if c.API.BaseURL == "" {
		errs = append(errs, errors.New("API base URL is required"))
	}
	if c.API.Timeout <= 0 {
		errs = append(errs, errors.New("API timeout must be positive"))
	}

	if c.Search.Pages <= 0 {
		errs = append(errs, errors.New("search pages must be positive"))
	}
	if c.Search.PerPage <= 0 || c.Search.PerPage > 20 {
		errs = append(errs, errors.New("search per_page must be between 1 and 20"))
	}
	for _, f := range c.Search.MatchFields {
		if !validMatchFields[f] {
			errs = append(errs, fmt.Errorf("unknown match field %q", f))
		}
	}

	if c.RateLimit.SearchRequests <= 0 || c.RateLimit.FollowerRequests <= 0 {
		errs = append(errs, errors.New("rate limit request counts must be positive"))
	}
	if c.RateLimit.SearchWindow <= 0 || c.RateLimit.FollowerWindow <= 0 {
		errs = append(errs, errors.New("rate limit windows must be positive"))
	}
	if c.RateLimit.MinInterval < 0 {
		errs = append(errs, errors.New("min interval cannot be negative"))
	}
	if c.RateLimit.MaxRetries < 0 {
		errs = append(errs, errors.New("max retries cannot be negative"))
	}
	if c.RateLimit.BackoffMultiplier < 1 {
		errs = append(errs, errors.New("backoff multiplier must be at least 1"))
	}

	if c.Links.MaxPages < 0 {
		errs = append(errs, errors.New("links max_pages cannot be negative"))
	}

	if c.Output.BaseDirectory == "" {
		errs = append(errs, errors.New("output directory is required"))
	}
	if c.Export.File == "" {
		errs = append(errs, errors.New("export file name is required"))
	}
	if _, err := c.Stats.CrosstabPairs(); err != nil {
		errs = append(errs, err)
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "disabled": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	return errors.Join(errs...)
}

var validMatchFields = map[string]bool{
	"screen_name": true,
	"name":        true,
	"description": true,
	"location":    true,
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if token, ok := flags["bearer-token"].(string); ok && token != "" {
		c.API.BearerToken = token
	}
	if baseURL, ok := flags["base-url"].(string); ok && baseURL != "" {
		c.API.BaseURL = baseURL
	}
	if keywords, ok := flags["keywords"].([]string); ok && len(keywords) > 0 {
		c.Search.Keywords = keywords
	}
	if terms, ok := flags["filter-terms"].([]string); ok && len(terms) > 0 {
		c.Search.FilterTerms = terms
	}
	if pages, ok := flags["pages"].(int); ok && pages > 0 {
		c.Search.Pages = pages
	}
	if outputDir, ok := flags["output"].(string); ok && outputDir != "" {
		c.Output.BaseDirectory = outputDir
	}
	if maxRetries, ok := flags["max-retries"].(int); ok && maxRetries >= 0 {
		c.RateLimit.MaxRetries = maxRetries
	}
	if maxPages, ok := flags["max-pages"].(int); ok && maxPages >= 0 {
		c.Links.MaxPages = maxPages
	}
	if keep, ok := flags["keep-external"].(bool); ok {
		c.Links.KeepExternal = keep
	}
	if retry, ok := flags["retry-failed"].(bool); ok {
		c.Links.RetryFailed = retry
	}
	if codebook, ok := flags["codebook"].(string); ok && codebook != "" {
		c.Annotation.Codebook = codebook
	}
	if coded, ok := flags["coded"].(string); ok && coded != "" {
		c.Annotation.CodedFile = coded
	}
	if dynamic, ok := flags["dynamic"].(bool); ok {
		c.Export.Dynamic = dynamic
	}
	if dot, ok := flags["dot"].(bool); ok {
		c.Export.DOT = dot
	}
	if svg, ok := flags["svg"].(bool); ok {
		c.Export.SVG = svg
	}
	if colorBy, ok := flags["color-by"].(string); ok && colorBy != "" {
		c.Export.ColorBy = colorBy
	}
	if external, ok := flags["include-external"].(bool); ok {
		c.Export.IncludeExternal = external
	}
	if groupBy, ok := flags["group-by"].(string); ok && groupBy != "" {
		c.Stats.GroupBy = groupBy
	}
	if crosstabs, ok := flags["crosstab"].([]string); ok && len(crosstabs) > 0 {
		c.Stats.Crosstabs = crosstabs
	}
	if notif, ok := flags["notifications"].(bool); ok {
		c.Notifications.Enabled = notif
	}
	if logLevel, ok := flags["log-level"].(string); ok && logLevel != "" {
		c.Logging.Level = logLevel
	}
}

// EffectiveFilterTerms returns the configured filter terms, or the keywords
// stripped of hashtag and mention prefixes when none are configured.
func (c *Config) EffectiveFilterTerms() []string {
	if len(c.Search.FilterTerms) > 0 {
		return c.Search.FilterTerms
	}
	terms := make([]string, 0, len(c.Search.Keywords))
	for _, kw := range c.Search.Keywords {
		kw = strings.TrimLeft(strings.TrimSpace(kw), "#@")
		if kw != "" {
			terms = append(terms, kw)
		}
	}
	return terms
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// Try to load .env files (don't fail if they don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".followgraph.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
