package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/spf13/cobra"

	"followgraph/internal/pipeline"
	"followgraph/pkg/auth"
	"followgraph/pkg/config"
	"followgraph/pkg/logger"
	"followgraph/pkg/ui"
)

var (
	// Version information
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile    string
	logLevel      string
	outputDir     string
	credential    string
	quiet         bool
	notifications bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "followgraph",
	Short: "Collect keyword accounts and the follower graph between them",
	Long: `followgraph finds accounts matching topical keywords, merges hand-coded
annotations onto them, summarizes them and collects who follows whom.

Stages communicate through files in the output directory:

  search     keyword search              -> accounts.json
  codesheet  blank coding sheet          -> coding_sheet.csv
  merge      coded sheet + codebook      -> annotated.json
  stats      descriptive statistics      -> stats.json
  links      follower edges (resumable)  -> links.json
  export     graph for Gephi             -> graph.gexf`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if quiet || logLevel == "error" {
			ui.Quiet = true
		}
		if cmd.Name() != "version" && cmd.Name() != "help" {
			ui.PrintBanner()
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		ui.PrintError("Error", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default is ./followgraph.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVarP(&outputDir, "output", "o", "", "output directory for stage artifacts")
	rootCmd.PersistentFlags().StringVar(&credential, "credential", auth.DefaultName, "stored credential to use")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress all output except errors")
	rootCmd.PersistentFlags().BoolVar(&notifications, "notifications", false, "enable desktop notifications")

	rootCmd.SetVersionTemplate(`followgraph {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// loadConfig merges the global flags into flags, loads the configuration and
// initializes the global logger.
func loadConfig(cmd *cobra.Command, flags map[string]interface{}) (*config.Config, error) {
	if flags == nil {
		flags = make(map[string]interface{})
	}
	if outputDir != "" {
		flags["output"] = outputDir
	}
	if logLevel != "" {
		flags["log-level"] = logLevel
	}
	if cmd.Flags().Changed("notifications") {
		flags["notifications"] = notifications
	}

	cfg, err := config.Load(configFile, flags)
	if err != nil {
		return nil, err
	}
	if err := logger.Initialize(&cfg.Logging); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger.WithField("version", version).Debug("followgraph starting")
	return cfg, nil
}

// requireToken fills the bearer token from stored credentials when neither
// the config file, the environment nor a flag supplied one.
func requireToken(cfg *config.Config) error {
	if cfg.API.BearerToken != "" {
		return nil
	}

	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}
	token, err := manager.Token(credential)
	if err != nil {
		return fmt.Errorf("no bearer token: run 'followgraph auth login' or set %s: %w", auth.TokenEnv, err)
	}
	cfg.API.BearerToken = token
	return nil
}

// newPipeline loads the configuration and builds a pipeline on it
func newPipeline(cmd *cobra.Command, flags map[string]interface{}, needToken bool) (*pipeline.Pipeline, *config.Config, error) {
	cfg, err := loadConfig(cmd, flags)
	if err != nil {
		return nil, nil, err
	}
	if needToken {
		if err := requireToken(cfg); err != nil {
			return nil, nil, err
		}
	}
	p, err := pipeline.New(cfg, logger.GetLogger())
	if err != nil {
		return nil, nil, err
	}
	return p, cfg, nil
}

// signalContext is cancelled on interrupt so long stages can checkpoint
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
