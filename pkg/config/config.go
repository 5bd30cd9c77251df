package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration options for a collection run
type Config struct {
	// Source API access
	Instagram InstagramConfig `yaml:"instagram" json:"instagram"`

	// Caption classification
	Classifier ClassifierConfig `yaml:"classifier" json:"classifier"`

	// Table location and layout
	Output OutputConfig `yaml:"output" json:"output"`

	// Multi-collection driver
	Collections CollectionsConfig `yaml:"collections" json:"collections"`

	Notifications NotificationConfig `yaml:"notifications" json:"notifications"`

	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// InstagramConfig holds the collection endpoint settings
type InstagramConfig struct {
	// Cookies is the raw browser cookie header, "k1=v1; k2=v2"
	Cookies           string        `yaml:"cookies" json:"cookies"`
	Account           string        `yaml:"account" json:"account"`
	CollectionID      string        `yaml:"collection_id" json:"collection_id"`
	CollectionName    string        `yaml:"collection_name" json:"collection_name"`
	UserAgent         string        `yaml:"user_agent" json:"user_agent"`
	RequestsPerMinute int           `yaml:"requests_per_minute" json:"requests_per_minute"`
	Timeout           time.Duration `yaml:"timeout" json:"timeout"`
	MaxPages          int           `yaml:"max_pages" json:"max_pages"`
}

// ClassifierConfig holds the location classifier settings
type ClassifierConfig struct {
	Enabled   bool          `yaml:"enabled" json:"enabled"`
	Provider  string        `yaml:"provider" json:"provider"`
	APIKey    string        `yaml:"api_key" json:"api_key"`
	Model     string        `yaml:"model" json:"model"`
	BaseURL   string        `yaml:"base_url" json:"base_url"`
	Delay     time.Duration `yaml:"delay" json:"delay"`
	Timeout   time.Duration `yaml:"timeout" json:"timeout"`
	CachePath string        `yaml:"cache_path" json:"cache_path"`
}

// OutputConfig holds table settings
type OutputConfig struct {
	Directory         string   `yaml:"directory" json:"directory"`
	FileNamePattern   string   `yaml:"file_name_pattern" json:"file_name_pattern"`
	SortKeys          []string `yaml:"sort_keys" json:"sort_keys"`
	MissingCodePolicy string   `yaml:"missing_code_policy" json:"missing_code_policy"`
	HeaderPolicy      string   `yaml:"header_policy" json:"header_policy"`
}

// CollectionsConfig holds the multi-collection driver settings
type CollectionsConfig struct {
	File         string        `yaml:"file" json:"file"`
	PauseBetween time.Duration `yaml:"pause_between" json:"pause_between"`
	Items        []Collection  `yaml:"items,omitempty" json:"items,omitempty"`
}

// NotificationConfig holds notification preferences
type NotificationConfig struct {
	Enabled    bool `yaml:"enabled" json:"enabled"`
	OnComplete bool `yaml:"on_complete" json:"on_complete"`
	OnError    bool `yaml:"on_error" json:"on_error"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

const (
	ProviderGemini    = "gemini"
	ProviderAnthropic = "anthropic"
)

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Instagram: InstagramConfig{
			UserAgent:         "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/136.0.0.0 Safari/537.36",
			RequestsPerMinute: 30,
			Timeout:           30 * time.Second,
		},
		Classifier: ClassifierConfig{
			Enabled:  true,
			Provider: ProviderGemini,
			Model:    "gemini-2.0-flash",
			Delay:    time.Second,
			Timeout:  30 * time.Second,
		},
		Output: OutputConfig{
			Directory:         ".",
			FileNamePattern:   "{name}.csv",
			SortKeys:          []string{"country", "state", "city"},
			MissingCodePolicy: "placeholder",
			HeaderPolicy:      "reject",
		},
		Collections: CollectionsConfig{
			File:         "collections.json",
			PauseBetween: 10 * time.Second,
		},
		Notifications: NotificationConfig{
			Enabled:    false,
			OnComplete: true,
			OnError:    true,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadFromEnv loads configuration from environment variables. The bare
// names (IG_COOKIES, COLLECTION_ID, ...) are the ones older .env files use;
// the IGCOLLECT_ prefixed names win when both are set.
func (c *Config) LoadFromEnv() error {
	var errs []error

	setString(&c.Instagram.Cookies, "IG_COOKIES", "IGCOLLECT_COOKIES")
	setString(&c.Instagram.CollectionID, "COLLECTION_ID", "IGCOLLECT_COLLECTION_ID")
	setString(&c.Instagram.CollectionName, "COLLECTION_NAME", "IGCOLLECT_COLLECTION_NAME")
	setString(&c.Instagram.Account, "IGCOLLECT_ACCOUNT")
	setString(&c.Instagram.UserAgent, "IGCOLLECT_USER_AGENT")

	if rpm := os.Getenv("IGCOLLECT_REQUESTS_PER_MINUTE"); rpm != "" {
		val, err := strconv.Atoi(rpm)
		if err != nil {
			errs = append(errs, fmt.Errorf("IGCOLLECT_REQUESTS_PER_MINUTE: %w", err))
		} else {
			c.Instagram.RequestsPerMinute = val
		}
	}

	setString(&c.Classifier.Provider, "IGCOLLECT_CLASSIFIER_PROVIDER")
	setString(&c.Classifier.APIKey, "IGCOLLECT_CLASSIFIER_API_KEY")
	setString(&c.Classifier.Model, "IGCOLLECT_CLASSIFIER_MODEL")
	setString(&c.Classifier.BaseURL, "IGCOLLECT_CLASSIFIER_BASE_URL")
	setString(&c.Classifier.CachePath, "IGCOLLECT_CACHE_PATH")

	if delay := os.Getenv("IGCOLLECT_CLASSIFIER_DELAY"); delay != "" {
		d, err := time.ParseDuration(delay)
		if err != nil {
			errs = append(errs, fmt.Errorf("IGCOLLECT_CLASSIFIER_DELAY: %w", err))
		} else {
			c.Classifier.Delay = d
		}
	}
	if enabled := os.Getenv("IGCOLLECT_CLASSIFIER_ENABLED"); enabled != "" {
		c.Classifier.Enabled = strings.ToLower(enabled) == "true"
	}

	setString(&c.Output.Directory, "IGCOLLECT_OUTPUT_DIR")
	setString(&c.Collections.File, "IGCOLLECT_COLLECTIONS_FILE")

	if notifEnabled := os.Getenv("IGCOLLECT_NOTIFICATIONS_ENABLED"); notifEnabled != "" {
		c.Notifications.Enabled = strings.ToLower(notifEnabled) == "true"
	}

	setString(&c.Logging.Level, "IGCOLLECT_LOG_LEVEL")
	setString(&c.Logging.File, "IGCOLLECT_LOG_FILE")

	return errors.Join(errs...)
}

// setString assigns the value of the last non-empty variable in names
func setString(dst *string, names ...string) {
	for _, name := range names {
		if v := os.Getenv(name); v != "" {
			*dst = v
		}
	}
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
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
		".igcollect.yaml",
		".igcollect.yml",
		"igcollect.yaml",
		filepath.Join(home, ".config", "igcollect", "config.yaml"),
		filepath.Join(home, ".config", "igcollect", "config.yml"),
		filepath.Join(home, ".igcollect.yaml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid. Credentials and the
// collection id are not checked here since `run` takes ids from the
// collections file; see RequireCollection.
func (c *Config) Validate() error {
	var errs []error

	if c.Instagram.RequestsPerMinute <= 0 {
		errs = append(errs, errors.New("requests per minute must be positive"))
	}
	if c.Instagram.Timeout <= 0 {
		errs = append(errs, errors.New("instagram timeout must be positive"))
	}
	if c.Instagram.MaxPages < 0 {
		errs = append(errs, errors.New("max pages cannot be negative"))
	}

	switch strings.ToLower(c.Classifier.Provider) {
	case ProviderGemini, ProviderAnthropic:
	default:
		errs = append(errs, fmt.Errorf("unknown classifier provider %q", c.Classifier.Provider))
	}
	if c.Classifier.Delay < 0 {
		errs = append(errs, errors.New("classifier delay cannot be negative"))
	}
	if c.Classifier.Timeout <= 0 {
		errs = append(errs, errors.New("classifier timeout must be positive"))
	}

	if c.Output.Directory == "" {
		errs = append(errs, errors.New("output directory is required"))
	}
	if c.Output.FileNamePattern == "" {
		errs = append(errs, errors.New("file name pattern is required"))
	}
	if len(c.Output.SortKeys) == 0 {
		errs = append(errs, errors.New("at least one sort key is required"))
	}
	switch c.Output.MissingCodePolicy {
	case "placeholder", "skip", "synthetic":
	default:
		errs = append(errs, fmt.Errorf("unknown missing code policy %q", c.Output.MissingCodePolicy))
	}
	switch c.Output.HeaderPolicy {
	case "reject", "migrate":
	default:
		errs = append(errs, fmt.Errorf("unknown header policy %q", c.Output.HeaderPolicy))
	}

	if c.Collections.PauseBetween < 0 {
		errs = append(errs, errors.New("pause between collections cannot be negative"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	return errors.Join(errs...)
}

// RequireCollection fails when no collection id has been configured
func (c *Config) RequireCollection() error {
	if strings.TrimSpace(c.Instagram.CollectionID) == "" {
		return ErrMissingCollectionID
	}
	return nil
}

// TablePath returns the CSV path for a collection. {name} falls back to the
// id when the collection has no name.
func (c *Config) TablePath(col Collection) string {
	if col.Output != "" {
		return col.Output
	}
	name := col.Name
	if name == "" {
		name = col.ID
	}
	file := strings.ReplaceAll(c.Output.FileNamePattern, "{name}", sanitizeFileName(name))
	file = strings.ReplaceAll(file, "{id}", col.ID)
	return filepath.Join(c.Output.Directory, file)
}

func sanitizeFileName(name string) string {
	replacer := strings.NewReplacer("/", "_", "\\", "_", ":", "_", " ", "_")
	return replacer.Replace(strings.TrimSpace(name))
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

// MergeCommandLineFlags merges command line flags into the configuration.
// Keys are the cobra flag names.
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if v, ok := flags["cookies"].(string); ok && v != "" {
		c.Instagram.Cookies = v
	}
	if v, ok := flags["account"].(string); ok && v != "" {
		c.Instagram.Account = v
	}
	if v, ok := flags["collection-id"].(string); ok && v != "" {
		c.Instagram.CollectionID = v
	}
	if v, ok := flags["collection-name"].(string); ok && v != "" {
		c.Instagram.CollectionName = v
	}
	if v, ok := flags["requests-per-minute"].(int); ok && v > 0 {
		c.Instagram.RequestsPerMinute = v
	}
	if v, ok := flags["max-pages"].(int); ok && v > 0 {
		c.Instagram.MaxPages = v
	}
	if v, ok := flags["provider"].(string); ok && v != "" {
		c.Classifier.Provider = v
	}
	if v, ok := flags["model"].(string); ok && v != "" {
		c.Classifier.Model = v
	}
	if v, ok := flags["delay"].(time.Duration); ok && v >= 0 {
		c.Classifier.Delay = v
	}
	if v, ok := flags["cache"].(string); ok && v != "" {
		c.Classifier.CachePath = v
	}
	if v, ok := flags["no-classify"].(bool); ok && v {
		c.Classifier.Enabled = false
	}
	if v, ok := flags["output-dir"].(string); ok && v != "" {
		c.Output.Directory = v
	}
	if v, ok := flags["missing-code-policy"].(string); ok && v != "" {
		c.Output.MissingCodePolicy = v
	}
	if v, ok := flags["header-policy"].(string); ok && v != "" {
		c.Output.HeaderPolicy = v
	}
	if v, ok := flags["collections-file"].(string); ok && v != "" {
		c.Collections.File = v
	}
	if v, ok := flags["pause"].(time.Duration); ok && v >= 0 {
		c.Collections.PauseBetween = v
	}
	if v, ok := flags["notifications"].(bool); ok {
		c.Notifications.Enabled = v
	}
	if v, ok := flags["log-level"].(string); ok && v != "" {
		c.Logging.Level = v
	}
	if v, ok := flags["log-file"].(string); ok && v != "" {
		c.Logging.File = v
	}
}

// resolveAPIKey falls back to the provider's conventional variable
func (c *Config) resolveAPIKey() {
	c.Classifier.Provider = strings.ToLower(c.Classifier.Provider)
	if c.Classifier.APIKey != "" {
		return
	}
	switch c.Classifier.Provider {
	case ProviderGemini:
		c.Classifier.APIKey = os.Getenv("GEMINI_API_KEY")
	case ProviderAnthropic:
		c.Classifier.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		if c.Classifier.Model == DefaultConfig().Classifier.Model {
			c.Classifier.Model = "claude-haiku-4-5-20251001"
		}
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".igcollect.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)
	config.resolveAPIKey()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

var (
	ErrMissingCollectionID = errors.New("collection id is required (set COLLECTION_ID or pass --collection-id)")
	ErrNoCollections       = errors.New("no collections configured")
)
