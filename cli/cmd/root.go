// Package cmd provides the Cobra commands for the PageLens CLI.
package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pagelens/pagelens/cli/client"
	cliconfig "github.com/pagelens/pagelens/cli/config"
	"github.com/pagelens/pagelens/cli/output"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"

	// Global flags
	cfgFile   string
	serverURL string
	outputFmt string
	noHeaders bool
	quiet     bool
	debug     bool

	// Shared across commands
	cfg       *cliconfig.Config
	apiClient *client.Client
	formatter *output.Formatter
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "pagelens",
	Short: "PageLens CLI - Run and benchmark OCR providers",
	Long: `PageLens CLI extracts text from documents through a catalog of OCR
providers and benchmarks providers against each other.

Features:
  - Run: Extract text from a PDF or image with one provider
  - Benchmark: Race up to four providers over the same document
  - Keys: Store your own provider API keys in the system keychain
  - Providers: Inspect the catalog and live credential availability

Get started:
  pagelens providers     List available OCR providers
  pagelens run doc.pdf --provider tesseract
  pagelens --help        Show available commands`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		cmd.SilenceErrors = quiet
	},
}

// Execute runs the CLI
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global persistent flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default is ~/.pagelens/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&serverURL, "server", "s", "",
		"PageLens server URL (default from config or "+cliconfig.DefaultServer+")")
	rootCmd.PersistentFlags().StringVarP(&outputFmt, "output", "o", "table",
		"output format: table, json, yaml")
	rootCmd.PersistentFlags().BoolVar(&noHeaders, "no-headers", false,
		"hide table headers")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false,
		"minimal output")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false,
		"enable debug output")

	// Bind environment variables
	viper.SetEnvPrefix("PAGELENS")
	_ = viper.BindEnv("server") // PAGELENS_SERVER
	_ = viper.BindEnv("debug")  // PAGELENS_DEBUG

	// Add subcommands
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(providersCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(benchmarkCmd)
	rootCmd.AddCommand(keysCmd)
}

func initConfig() {
	viper.AutomaticEnv()
}

// initializeClient sets up the API client for commands that need it
func initializeClient(cmd *cobra.Command, args []string) error {
	configPath := cfgFile
	if configPath == "" {
		configPath = cliconfig.DefaultConfigPath()
	}

	var err error
	cfg, err = cliconfig.LoadOrCreate(configPath)
	if err != nil {
		return err
	}

	// Server resolution order: flag, environment, config file
	server := serverURL
	if server == "" {
		server = viper.GetString("server")
	}
	if server == "" {
		server = cfg.Server
	}

	if viper.GetBool("debug") {
		debug = true
	}

	apiClient = client.NewClient(server, client.WithDebug(debug))

	format, err := output.ParseFormat(outputFmt)
	if err != nil {
		return err
	}
	formatter = output.NewFormatter(format, noHeaders, quiet)

	return nil
}

// GetFormatter returns the output formatter (for use by subcommands)
func GetFormatter() *output.Formatter {
	if formatter == nil {
		format, _ := output.ParseFormat(outputFmt)
		formatter = output.NewFormatter(format, noHeaders, quiet)
	}
	return formatter
}

// GetConfigPath returns the config file path
func GetConfigPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	return cliconfig.DefaultConfigPath()
}
