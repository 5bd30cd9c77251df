package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sanath1188/insta-collections-insights/pkg/config"
	"github.com/sanath1188/insta-collections-insights/pkg/ui"
)

const defaultConfigPath = ".igcollect.yaml"

const exampleConfig = `# igcollect configuration
#
# Every value can also be set with an IGCOLLECT_ environment variable, and
# the older names IG_COOKIES, COLLECTION_ID, COLLECTION_NAME, GEMINI_API_KEY
# and ANTHROPIC_API_KEY are still read. A .env file in the working
# directory is loaded first.

instagram:
  # Raw cookie header copied from the browser. Leave empty to use an
  # account stored with 'igcollect auth login'.
  cookies: ""
  account: ""
  # Used by 'igcollect collect' when no id is given on the command line
  collection_id: ""
  collection_name: ""
  user_agent: ""
  requests_per_minute: 30
  timeout: 30s
  # 0 means no limit
  max_pages: 0

classifier:
  enabled: true
  # gemini or anthropic
  provider: gemini
  # Falls back to GEMINI_API_KEY or ANTHROPIC_API_KEY
  api_key: ""
  model: gemini-2.0-flash
  base_url: ""
  # Pause after each classification request
  delay: 1s
  timeout: 30s
  # SQLite file remembering answers per caption. Empty disables the cache.
  cache_path: ""

output:
  directory: .
  # {name} and {id} are replaced per collection
  file_name_pattern: "{name}.csv"
  sort_keys: [country, state, city]
  # Items without a shortcode: placeholder, skip or synthetic
  missing_code_policy: placeholder
  # Existing table with different columns: reject or migrate
  header_policy: reject

collections:
  file: collections.json
  pause_between: 10s

notifications:
  enabled: false
  on_complete: true
  on_error: true

logging:
  # debug, info, warn, error
  level: info
  file: ""
`

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration files",
		Long: `Manage igcollect configuration files.

Configuration is merged from, highest priority first:
  - Command line flags
  - Environment variables
  - Configuration file
  - Default values`,
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "init",
			Short: "Create an example configuration file",
			Long: `Create an example configuration file with every available option.

The file is written to ./.igcollect.yaml unless --config names another path.`,
			Args: cobra.NoArgs,
			RunE: runConfigInit,
		},
		&cobra.Command{
			Use:   "show",
			Short: "Show the effective configuration",
			Long:  `Show the configuration after merging all sources. Cookies and API keys are masked.`,
			Args:  cobra.NoArgs,
			RunE:  runConfigShow,
		},
		&cobra.Command{
			Use:   "validate",
			Short: "Validate the configuration",
			Args:  cobra.NoArgs,
			RunE:  runConfigValidate,
		},
	)
	return cmd
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := configFile
	if path == "" {
		path = defaultConfigPath
	}

	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("configuration file already exists: %s", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(exampleConfig), 0600); err != nil {
		return fmt.Errorf("failed to create configuration file: %w", err)
	}

	ui.PrintSuccess("Configuration file created: " + path)
	fmt.Fprintln(ui.Output, "\nNext steps:")
	fmt.Fprintln(ui.Output, "1. Store a session with 'igcollect auth login' or set instagram.cookies")
	fmt.Fprintln(ui.Output, "2. Set GEMINI_API_KEY or classifier.api_key")
	fmt.Fprintln(ui.Output, "3. Run 'igcollect config validate'")
	return nil
}

// maskSecret keeps the first and last four characters of long values
func maskSecret(s string) string {
	switch {
	case s == "":
		return ""
	case len(s) <= 8:
		return "***"
	default:
		return s[:4] + "..." + s[len(s)-4:]
	}
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile, nil)
	if err != nil {
		return err
	}

	display := *cfg
	display.Instagram.Cookies = maskSecret(display.Instagram.Cookies)
	display.Classifier.APIKey = maskSecret(display.Classifier.APIKey)

	data, err := yaml.Marshal(&display)
	if err != nil {
		return fmt.Errorf("failed to format configuration: %w", err)
	}

	ui.PrintHighlight("Current Configuration")
	fmt.Fprintln(ui.Output)
	fmt.Fprint(ui.Output, string(data))

	fmt.Fprintln(ui.Output, "\nConfiguration sources (in order of priority):")
	fmt.Fprintln(ui.Output, "1. Command line flags")
	fmt.Fprintln(ui.Output, "2. Environment variables (IGCOLLECT_*)")
	if configFile != "" {
		fmt.Fprintf(ui.Output, "3. Configuration file: %s\n", configFile)
	} else {
		fmt.Fprintln(ui.Output, "3. Configuration file: (searched)")
	}
	fmt.Fprintln(ui.Output, "4. Default values")
	return nil
}

// configWarnings lists settings that load fine but will limit a run
func configWarnings(cfg *config.Config) []string {
	var warnings []string
	if cfg.Instagram.Cookies == "" {
		warnings = append(warnings, "no cookie header configured; a stored account will be required")
	}
	if cfg.Classifier.Enabled && cfg.Classifier.APIKey == "" {
		warnings = append(warnings, fmt.Sprintf("no %s API key; location columns will be empty", cfg.Classifier.Provider))
	}
	if len(cfg.Collections.Items) == 0 {
		if _, err := os.Stat(cfg.Collections.File); err != nil {
			warnings = append(warnings, fmt.Sprintf("collections file %s not found; 'igcollect run' will fail", cfg.Collections.File))
		}
	}
	return warnings
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile, nil)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(cfg.Output.Directory, 0755); err != nil {
		return fmt.Errorf("cannot create output directory: %w", err)
	}
	if cfg.Logging.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Logging.File), 0755); err != nil {
			return fmt.Errorf("cannot create log directory: %w", err)
		}
	}

	if warnings := configWarnings(cfg); len(warnings) > 0 {
		ui.PrintWarning("Configuration warnings:")
		for _, w := range warnings {
			fmt.Fprintf(ui.Output, "  - %s\n", w)
		}
	}

	ui.PrintSuccess("Configuration is valid")
	fmt.Fprintln(ui.Output, "\nConfiguration summary:")
	fmt.Fprintf(ui.Output, "  Output directory: %s\n", cfg.Output.Directory)
	fmt.Fprintf(ui.Output, "  Classifier: %s (%s)\n", cfg.Classifier.Provider, cfg.Classifier.Model)
	fmt.Fprintf(ui.Output, "  Rate limit: %d requests/minute\n", cfg.Instagram.RequestsPerMinute)
	fmt.Fprintf(ui.Output, "  Sort keys: %v\n", cfg.Output.SortKeys)
	fmt.Fprintf(ui.Output, "  Log level: %s\n", cfg.Logging.Level)
	return nil
}
