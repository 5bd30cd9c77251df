package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sanath1188/insta-collections-insights/pkg/anthropic"
	"github.com/sanath1188/insta-collections-insights/pkg/auth"
	"github.com/sanath1188/insta-collections-insights/pkg/classifier"
	"github.com/sanath1188/insta-collections-insights/pkg/config"
	"github.com/sanath1188/insta-collections-insights/pkg/extract"
	"github.com/sanath1188/insta-collections-insights/pkg/gemini"
	"github.com/sanath1188/insta-collections-insights/pkg/instagram"
	"github.com/sanath1188/insta-collections-insights/pkg/logger"
	"github.com/sanath1188/insta-collections-insights/pkg/ratelimit"
	"github.com/sanath1188/insta-collections-insights/pkg/scraper"
	"github.com/sanath1188/insta-collections-insights/pkg/storage"
)

// configFlags are the command-line flags that map onto config keys. Only
// flags the user actually set are passed to config.Load.
var configFlags = []string{
	"cookies",
	"account",
	"rate-limit",
	"max-pages",
	"provider",
	"model",
	"delay",
	"cache",
	"no-classify",
	"output-dir",
	"missing-code-policy",
	"header-policy",
	"collections-file",
	"pause",
	"notifications",
	"log-level",
	"log-file",
}

// configFlagAliases renames flags whose config key differs
var configFlagAliases = map[string]string{
	"rate-limit": "requests-per-minute",
}

// flagOverrides collects the changed config flags of cmd into the map
// config.Load expects
func flagOverrides(cmd *cobra.Command) map[string]interface{} {
	overrides := make(map[string]interface{})
	fs := cmd.Flags()

	for _, name := range configFlags {
		f := fs.Lookup(name)
		if f == nil || !f.Changed {
			continue
		}
		key := name
		if alias, ok := configFlagAliases[name]; ok {
			key = alias
		}
		switch f.Value.Type() {
		case "string":
			overrides[key], _ = fs.GetString(name)
		case "int":
			overrides[key], _ = fs.GetInt(name)
		case "bool":
			overrides[key], _ = fs.GetBool(name)
		case "duration":
			overrides[key], _ = fs.GetDuration(name)
		}
	}

	if _, set := overrides["log-level"]; !set {
		switch {
		case quiet:
			overrides["log-level"] = "error"
		case verbose:
			overrides["log-level"] = "debug"
		}
	}
	return overrides
}

// loadConfig loads configuration with cmd's flags applied on top and
// initializes the global logger from it
func loadConfig(cmd *cobra.Command, extra map[string]interface{}) (*config.Config, error) {
	overrides := flagOverrides(cmd)
	for k, v := range extra {
		overrides[k] = v
	}

	cfg, err := config.Load(configFile, overrides)
	if err != nil {
		return nil, err
	}
	if err := logger.Initialize(&cfg.Logging); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, nil
}

// addCollectorFlags registers the flags shared by collect and run
func addCollectorFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("cookies", "", "raw Instagram cookie header (overrides stored accounts)")
	f.StringP("account", "a", "", "use a specific stored account")
	f.Int("rate-limit", 0, "Instagram requests per minute")
	f.Int("max-pages", 0, "stop after this many pages (0 means no limit)")
	f.String("provider", "", "classifier provider (gemini, anthropic)")
	f.String("model", "", "classifier model")
	f.Duration("delay", 0, "pause after each classifier call")
	f.String("cache", "", "SQLite file caching classifier answers")
	f.Bool("no-classify", false, "leave location columns empty")
	f.String("output-dir", "", "directory for collection tables")
	f.String("missing-code-policy", "", "items without a shortcode: placeholder, skip or synthetic")
	f.String("header-policy", "", "existing table with other columns: reject or migrate")
	f.Bool("resume", false, "resume from the last checkpoint")
	f.Bool("force-restart", false, "ignore an existing checkpoint and start from the first page")
	cmd.MarkFlagsMutuallyExclusive("resume", "force-restart")
}

func runOptions(cmd *cobra.Command, cfg *config.Config) scraper.RunOptions {
	resume, _ := cmd.Flags().GetBool("resume")
	force, _ := cmd.Flags().GetBool("force-restart")
	return scraper.RunOptions{
		Resume:       resume,
		ForceRestart: force,
		MaxPages:     cfg.Instagram.MaxPages,
	}
}

// signalContext is cancelled on SIGINT or SIGTERM
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// newBackend returns the configured classification backend, or nil when
// classification is disabled or no API key is available
func newBackend(cfg *config.ClassifierConfig) classifier.Backend {
	if !cfg.Enabled || cfg.APIKey == "" {
		return nil
	}
	hc := &http.Client{Timeout: cfg.Timeout}

	switch cfg.Provider {
	case config.ProviderAnthropic:
		return anthropic.NewClient(cfg.APIKey,
			anthropic.WithModel(cfg.Model),
			anthropic.WithBaseURL(cfg.BaseURL),
			anthropic.WithHTTPClient(hc),
		)
	default:
		return gemini.NewClient(cfg.APIKey,
			gemini.WithModel(cfg.Model),
			gemini.WithBaseURL(cfg.BaseURL),
			gemini.WithHTTPClient(hc),
		)
	}
}

// newClassifier builds the classification service. The returned function
// releases the cache.
func newClassifier(ctx context.Context, cfg *config.ClassifierConfig, log logger.Logger) (*classifier.Service, func(), error) {
	backend := newBackend(cfg)
	switch {
	case !cfg.Enabled:
		log.Info("Classification disabled; location columns will be empty")
	case backend == nil:
		log.WithField("provider", cfg.Provider).Warn("No classifier API key configured; location columns will be empty")
	}

	var cache *classifier.Cache
	if backend != nil && cfg.CachePath != "" {
		var err error
		cache, err = classifier.OpenCache(ctx, cfg.CachePath)
		if err != nil {
			return nil, func() {}, fmt.Errorf("failed to open classifier cache: %w", err)
		}
	}

	svc := classifier.New(classifier.Options{
		Backend: backend,
		Pacer:   ratelimit.FixedDelay(cfg.Delay),
		Cache:   cache,
		Logger:  log.WithField("component", "classifier"),
	})
	cleanup := func() {
		if cache != nil {
			if err := cache.Close(); err != nil {
				log.WithError(err).Warn("Failed to close classifier cache")
			}
		}
	}
	return svc, cleanup, nil
}

// resolveSession finds the cookie header to use. A missing or invalid
// session is fatal before any request is made.
func resolveSession(cfg *config.InstagramConfig, log logger.Logger) (*auth.Credentials, error) {
	manager, err := credentialManager()
	if err != nil {
		log.WithError(err).Warn("Credential store unavailable")
		manager = nil
	}

	creds, err := auth.ResolveCredentials(manager, cfg.Cookies, cfg.Account)
	if err != nil {
		return nil, fmt.Errorf("no usable Instagram session (run 'igcollect auth login' or set IG_COOKIES): %w", err)
	}
	return creds, nil
}

func collectorSettings(cfg *config.Config) (scraper.Settings, error) {
	policy, err := extract.ParsePolicy(cfg.Output.MissingCodePolicy)
	if err != nil {
		return scraper.Settings{}, err
	}
	header, err := storage.ParseHeaderPolicy(cfg.Output.HeaderPolicy)
	if err != nil {
		return scraper.Settings{}, err
	}
	return scraper.Settings{
		MissingCodePolicy: policy,
		HeaderPolicy:      header,
		SortKeys:          cfg.Output.SortKeys,
	}, nil
}

// newCollector wires the Instagram client, classifier and storage settings
// into a Collector
func newCollector(ctx context.Context, cfg *config.Config, log logger.Logger) (*scraper.Collector, func(), error) {
	settings, err := collectorSettings(cfg)
	if err != nil {
		return nil, func() {}, err
	}

	creds, err := resolveSession(&cfg.Instagram, log)
	if err != nil {
		return nil, func() {}, err
	}

	client := instagram.NewClient(creds, instagram.Options{
		Timeout:   cfg.Instagram.Timeout,
		UserAgent: cfg.Instagram.UserAgent,
		Account:   cfg.Instagram.Account,
		Limiter:   ratelimit.NewPerMinute(cfg.Instagram.RequestsPerMinute),
	}, log.WithField("component", "instagram"))

	svc, cleanup, err := newClassifier(ctx, &cfg.Classifier, log)
	if err != nil {
		return nil, cleanup, err
	}

	return scraper.New(client, svc, settings, log), cleanup, nil
}
