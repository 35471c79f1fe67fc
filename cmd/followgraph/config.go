package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"followgraph/pkg/config"
	"followgraph/pkg/ui"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage followgraph configuration files.

Configuration can be loaded from:
  - Command line flags (highest priority)
  - Environment variables (` + config.EnvPrefix + `*, also read from .env)
  - Configuration file (YAML, or TOML when the name ends in .toml)
  - Default values (lowest priority)`,
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create an example configuration file",
	Long: `Create an example configuration file with all available options.

The file will be created in the current directory as 'followgraph.yaml'
unless a different path is specified with the --config flag.`,
	RunE: runConfigInit,
}

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long: `Show the effective configuration after merging every source.

The bearer token is never printed.`,
	RunE: runConfigShow,
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	RunE:  runConfigValidate,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(initCmd, showCmd, validateCmd)
}

const exampleConfig = `# followgraph configuration
#
# Common options can also be set with environment variables prefixed with
# FOLLOWGRAPH_, for example FOLLOWGRAPH_BEARER_TOKEN or FOLLOWGRAPH_KEYWORDS.

api:
  base_url: "https://api.twitter.com"
  # Prefer 'followgraph auth login' over putting the token here
  bearer_token: ""
  user_agent: "followgraph/1.0"
  timeout: 30s

search:
  keywords:
    - "#openscience"
  # Defaults to the keywords without a leading # or @
  filter_terms: []
  # Fields searched for filter terms: screen_name, name, description, location
  match_fields: [screen_name, name, description]
  pages: 50
  # At most 20
  per_page: 20

rate_limit:
  # users/search: 900 requests per 15 minutes
  search_requests: 900
  search_window: 15m
  # followers/ids: 15 requests per 15 minutes
  follower_requests: 15
  follower_window: 15m
  # Minimum spacing between any two requests
  min_interval: 1s
  max_retries: 3
  retry_delay: 5s
  max_retry_delay: 2m
  backoff_multiplier: 2.0

links:
  # Follower pages per account, 0 = unlimited
  max_pages: 0
  # Keep followers outside the account set
  keep_external: false
  # On resume, retry accounts that failed
  retry_failed: false

annotation:
  codebook: "codebook.yaml"
  coded_file: "coded.csv"

stats:
  metrics: [followers_count, friends_count, statuses_count]
  group_by: ""
  # row:column pairs of codebook categories
  crosstabs: []

export:
  file: "graph.gexf"
  dynamic: true
  include_external: false
  dot: false
  svg: false
  color_by: "actor_type"

output:
  base_directory: "./data"

notifications:
  enabled: false
  on_complete: true
  on_rate_limit: false

logging:
  # debug, info, warn, error
  level: "info"
  file: ""
`

func runConfigInit(cmd *cobra.Command, args []string) error {
	configPath := configFile
	if configPath == "" {
		configPath = "followgraph.yaml"
	}

	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("configuration file already exists: %s", configPath)
	}

	if err := os.WriteFile(configPath, []byte(exampleConfig), 0644); err != nil {
		return fmt.Errorf("failed to create configuration file: %w", err)
	}

	ui.PrintSuccess("Configuration file created: " + configPath)
	fmt.Println("\nNext steps:")
	fmt.Println("1. Edit the keywords in the configuration file")
	fmt.Println("2. Store a bearer token with 'followgraph auth login'")
	fmt.Println("3. Run 'followgraph config validate' and then 'followgraph search'")
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, nil)
	if err != nil {
		return err
	}

	display := *cfg
	if display.API.BearerToken != "" {
		display.API.BearerToken = "***"
	}

	data, err := yaml.Marshal(&display)
	if err != nil {
		return fmt.Errorf("failed to format configuration: %w", err)
	}

	ui.PrintHighlight("Current Configuration")
	fmt.Println()
	fmt.Print(string(data))
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	if configFile != "" {
		ui.PrintInfo("Validating configuration", configFile)
	}

	cfg, err := loadConfig(cmd, nil)
	if err != nil {
		return err
	}

	var warnings []string
	if len(cfg.Search.Keywords) == 0 {
		warnings = append(warnings, "no search keywords configured")
	}
	if cfg.API.BearerToken == "" && requireToken(cfg) != nil {
		warnings = append(warnings, "no bearer token configured or stored")
	}
	if cfg.Logging.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Logging.File), 0755); err != nil {
			warnings = append(warnings, fmt.Sprintf("cannot create log directory: %v", err))
		}
	}

	for _, w := range warnings {
		ui.PrintWarning("Warning", w)
	}

	ui.PrintSuccess("Configuration is valid")
	fmt.Println("\nConfiguration summary:")
	fmt.Printf("  Output directory: %s\n", cfg.Output.BaseDirectory)
	fmt.Printf("  Keywords: %v\n", cfg.Search.Keywords)
	fmt.Printf("  Follower rate limit: %d requests / %s\n", cfg.RateLimit.FollowerRequests, cfg.RateLimit.FollowerWindow)
	fmt.Printf("  Max retries: %d\n", cfg.RateLimit.MaxRetries)
	fmt.Printf("  Log level: %s\n", cfg.Logging.Level)
	return nil
}
