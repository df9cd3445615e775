// Package main provides the chatpulse CLI entry point.
// chatpulse scores the engagement of exported chat transcripts.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/otherjamesbrown/chatpulse/cmd"
	"github.com/otherjamesbrown/chatpulse/config"
	"github.com/otherjamesbrown/chatpulse/pkg/buildinfo"
	"github.com/otherjamesbrown/chatpulse/pkg/events"
	"github.com/otherjamesbrown/chatpulse/pkg/logging"
)

// Global flags and state.
var (
	cfgFile      string
	outputFormat string
	debug        bool
	logJSON      bool

	// cfg holds the loaded configuration.
	cfg *config.CLIConfig
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "chatpulse",
	Short: "Score the engagement of exported chat transcripts",
	Long: `chatpulse reads an exported chat transcript and scores how engaged the
conversation is, from 0 to 100.

The score combines message volume (40 points), reply speed (30 points) and
emoji use (30 points), with a short summary and the most used emojis.

COMMON WORKFLOWS:
  Score a chat:      chatpulse analyze chat.txt
  Machine output:    chatpulse analyze chat.txt --output json
  Run the API:       chatpulse serve --listen :8080
  Result schema:     chatpulse schema

DISCOVERY:
  chatpulse <command> --help   Flags and examples for any command
  chatpulse config show        Effective configuration`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(c *cobra.Command, args []string) error {
		// Skip initialization for commands that don't need it.
		if c.Name() == "version" || c.Name() == "help" || c.Name() == "completion" || c.Name() == "schema" {
			return nil
		}
		// config init and set work on the file, not the effective config.
		if c.Parent() != nil && c.Parent().Name() == "config" && c.Name() != "show" {
			return nil
		}

		path, err := config.ExpandPath(cfgFile)
		if err != nil {
			return err
		}
		cfg, err = config.LoadConfigFrom(path)
		if err != nil {
			return fmt.Errorf("loading configuration: %w", err)
		}

		// Override with command-line flags.
		if outputFormat != "" {
			format := config.OutputFormat(outputFormat)
			if !format.IsValid() {
				return fmt.Errorf("invalid output format: %s (must be text, json, or yaml)", outputFormat)
			}
			cfg.OutputFormat = format
		}
		if debug {
			cfg.Debug = true
		}
		if logJSON {
			cfg.LogJSON = true
		}

		logging.SetGlobal(cmd.NewLogger(cfg, os.Stderr, logging.LevelWarn))
		return nil
	},
}

// loadedConfig hands the configuration loaded by PersistentPreRunE to subcommands.
func loadedConfig() (*config.CLIConfig, error) {
	if cfg != nil {
		return cfg, nil
	}
	return config.LoadConfigFrom(cfgFile)
}

// Version command flags.
var versionOutputJSON bool

// versionCmd prints version information.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long: `Print the version, commit hash, and build time of chatpulse.

Examples:
  chatpulse version
  chatpulse version --output-json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		info := buildinfo.Get()
		out := cmd.OutOrStdout()

		if versionOutputJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(info)
		}

		fmt.Fprintf(out, "%s version %s\n", info.Name, info.Version)
		fmt.Fprintf(out, "  commit:     %s\n", info.Commit)
		fmt.Fprintf(out, "  built:      %s\n", info.BuildTime)
		fmt.Fprintf(out, "  go:         %s\n", info.GoVersion)
		fmt.Fprintf(out, "  platform:   %s\n", info.Platform)
		return nil
	},
}

// configCmd manages CLI configuration.
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage CLI configuration",
	Long:  `View and modify the chatpulse configuration settings.`,
}

// configShowCmd displays current configuration.
var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long: `Display the effective configuration: defaults, then the config file, then
CHATPULSE_* environment variables, then command-line flags. Secrets are masked.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		current, err := loadedConfig()
		if err != nil {
			return fmt.Errorf("loading configuration: %w", err)
		}
		return showConfig(cmd.OutOrStdout(), current.Redacted(), configFilePath())
	},
}

func showConfig(out io.Writer, c *config.CLIConfig, path string) error {
	switch c.OutputFormat {
	case config.OutputFormatJSON:
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(c)
	case config.OutputFormatYAML:
		enc := yaml.NewEncoder(out)
		defer enc.Close()
		return enc.Encode(c)
	}

	fmt.Fprintln(out, "Current configuration:")
	fmt.Fprintf(out, "  Config file:      %s\n", path)
	fmt.Fprintf(out, "  Output format:    %s\n", c.OutputFormat)
	fmt.Fprintf(out, "  Timezone:         %s\n", c.Timezone)
	fmt.Fprintf(out, "  Max input bytes:  %d\n", c.MaxInputBytes)
	fmt.Fprintf(out, "  Debug:            %t\n", c.Debug)
	fmt.Fprintf(out, "  Log JSON:         %t\n", c.LogJSON)
	fmt.Fprintf(out, "  Listen address:   %s\n", c.Server.ListenAddress)
	fmt.Fprintf(out, "  Read timeout:     %s\n", c.Server.ReadTimeout)
	fmt.Fprintf(out, "  Events backend:   %s\n", c.Events.Backend)
	switch c.Events.Backend {
	case events.BackendRedis:
		fmt.Fprintf(out, "  Redis address:    %s\n", c.Events.Redis.Address)
		fmt.Fprintf(out, "  Redis channel:    %s\n", valueOrDefault(c.Events.Redis.Channel, "(default)"))
	case events.BackendNATS:
		fmt.Fprintf(out, "  NATS URL:         %s\n", c.Events.NATS.URL)
		fmt.Fprintf(out, "  NATS subject:     %s\n", valueOrDefault(c.Events.NATS.Subject, "(default)"))
	}
	return nil
}

// configInitCmd initializes configuration.
var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration file",
	Long:  `Create a new configuration file with default values if one doesn't exist.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		path := configFilePath()
		if path == "" {
			return fmt.Errorf("could not determine config path")
		}

		// Check if config already exists.
		if _, err := os.Stat(path); err == nil {
			fmt.Fprintf(out, "Configuration file already exists: %s\n", path)
			fmt.Fprintln(out, "Use 'chatpulse config show' to view current settings.")
			return nil
		}

		defaultCfg := config.DefaultConfig()
		if err := config.SaveConfigTo(defaultCfg, path); err != nil {
			return fmt.Errorf("saving configuration: %w", err)
		}

		fmt.Fprintf(out, "Created configuration file: %s\n", path)
		fmt.Fprintln(out, "\nDefault settings:")
		fmt.Fprintf(out, "  Output format:    %s\n", defaultCfg.OutputFormat)
		fmt.Fprintf(out, "  Timezone:         %s\n", defaultCfg.Timezone)
		fmt.Fprintf(out, "  Listen address:   %s\n", defaultCfg.Server.ListenAddress)
		fmt.Fprintf(out, "  Events backend:   %s\n", defaultCfg.Events.Backend)
		return nil
	},
}

// configSetCmd sets a configuration value.
var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: `Set a configuration value in the config file.

Available keys:
  output_format            Default output format (text, json, yaml)
  timezone                 IANA timezone for chat timestamps, or Local
  max_input_bytes          Largest accepted transcript in bytes
  debug                    Enable debug logging (true/false)
  log_json                 Write logs as JSON (true/false)
  server.listen_address    API listen address (host:port)
  server.read_timeout      API read timeout (e.g., 30s, 1m)
  events.backend           Event backend (none, redis, nats)
  events.redis.address     Redis address (host:port)
  events.redis.password    Redis password
  events.redis.db          Redis database number
  events.redis.channel     Redis pub/sub channel
  events.nats.url          NATS server URL
  events.nats.token        NATS auth token
  events.nats.subject      NATS subject

The Redis password and NATS token are encrypted in the file. The key is kept
in the system keyring, or read from CHATPULSE_ENCRYPTION_KEY (64 hex
characters) when that is set.

Examples:
  chatpulse config set output_format json
  chatpulse config set timezone Europe/London
  chatpulse config set events.backend nats
  chatpulse config set events.nats.url nats://127.0.0.1:4222`,
	Args: cobra.ExactArgs(2),
	ValidArgsFunction: func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		if len(args) == 0 {
			return config.SettableKeys(), cobra.ShellCompDirectiveNoFileComp
		}
		return nil, cobra.ShellCompDirectiveNoFileComp
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]
		path := configFilePath()
		if path == "" {
			return fmt.Errorf("could not determine config path")
		}

		// Load current config.
		currentCfg, err := config.LoadConfigFrom(path)
		if err != nil {
			// Never overwrite secrets that could not be decrypted.
			if errors.Is(err, config.ErrSealedSecrets) {
				return fmt.Errorf("loading configuration: %w", err)
			}
			// If config doesn't exist or cannot be parsed, start with defaults.
			if _, statErr := os.Stat(path); statErr == nil {
				logging.MustGlobal().Warn("Replacing unreadable config file with defaults",
					logging.F("path", path),
					logging.Err(err))
			}
			currentCfg = config.DefaultConfig()
		}

		if err := currentCfg.Set(key, value); err != nil {
			return err
		}
		if err := currentCfg.Validate(); err != nil {
			return err
		}

		if err := config.SaveConfigTo(currentCfg, path); err != nil {
			return fmt.Errorf("saving configuration: %w", err)
		}

		if config.IsSecretKey(key) {
			value = "******** (encrypted)"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %s\n", key, value)
		return nil
	},
}

// configFilePath returns --config expanded, or the default config path.
func configFilePath() string {
	if cfgFile != "" {
		path, err := config.ExpandPath(cfgFile)
		if err != nil {
			return ""
		}
		return path
	}
	path, err := config.ConfigPath()
	if err != nil {
		return ""
	}
	return path
}

func valueOrDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// completionCmd generates shell completion scripts.
var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish|powershell]",
	Short: "Generate shell completion scripts",
	Long: `Generate shell completion scripts for chatpulse.

To load completions:

Bash:
  $ source <(chatpulse completion bash)

Zsh:
  $ chatpulse completion zsh > "${fpath[1]}/_chatpulse"

Fish:
  $ chatpulse completion fish | source

PowerShell:
  PS> chatpulse completion powershell | Out-String | Invoke-Expression
`,
	DisableFlagsInUseLine: true,
	ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
	Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		switch args[0] {
		case "bash":
			return rootCmd.GenBashCompletion(out)
		case "zsh":
			return rootCmd.GenZshCompletion(out)
		case "fish":
			return rootCmd.GenFishCompletion(out, true)
		case "powershell":
			return rootCmd.GenPowerShellCompletionWithDesc(out)
		}
		return nil
	},
}

func init() {
	// Global flags.
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.chatpulse/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "", "output format: text, json, yaml")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "write logs as JSON")

	// Add command groups for organized help output.
	rootCmd.AddGroup(
		&cobra.Group{ID: "analysis", Title: "Analysis:"},
		&cobra.Group{ID: "setup", Title: "Setup:"},
	)

	// Analysis
	analyzeCmd := cmd.NewAnalyzeCommand(&cmd.AnalyzeCommandDeps{
		LoadConfig:   loadedConfig,
		NewPublisher: events.New,
		IsTerminal:   cmd.IsTerminal,
	})
	analyzeCmd.GroupID = "analysis"
	rootCmd.AddCommand(analyzeCmd)

	serveCmd := cmd.NewServeCommand(&cmd.ServeCommandDeps{
		LoadConfig:   loadedConfig,
		NewPublisher: events.New,
	})
	serveCmd.GroupID = "analysis"
	rootCmd.AddCommand(serveCmd)

	schemaCmd := cmd.NewSchemaCommand()
	schemaCmd.GroupID = "analysis"
	rootCmd.AddCommand(schemaCmd)

	// Setup
	configCmd.GroupID = "setup"
	rootCmd.AddCommand(configCmd)

	completionCmd.GroupID = "setup"
	rootCmd.AddCommand(completionCmd)

	versionCmd.GroupID = "setup"
	versionCmd.Flags().BoolVar(&versionOutputJSON, "output-json", false, "Output as JSON")
	rootCmd.AddCommand(versionCmd)

	// Config subcommands.
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configSetCmd)
}

func main() {
	// Set up signal handling for graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}
