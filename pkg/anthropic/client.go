// Package anthropic classifies captions with the Anthropic Messages API via
// the official SDK.
package anthropic

import (
	"context"
	"net/http"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rotisserie/eris"

	"github.com/sanath1188/insta-collections-insights/pkg/classifier"
)

const (
	DefaultModel     = "claude-haiku-4-5-20251001"
	defaultMaxTokens = 256
)

const jsonOnly = "Reply with the JSON object only, no prose and no code fence."

type config struct {
	model      string
	baseURL    string
	httpClient *http.Client
}

// Option configures the client.
type Option func(*config)

// WithModel overrides the default model.
func WithModel(model string) Option {
	return func(c *config) {
		if model != "" {
			c.model = model
		}
	}
}

// WithBaseURL overrides the API base URL.
func WithBaseURL(u string) Option {
	return func(c *config) { c.baseURL = u }
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *config) { c.httpClient = hc }
}

// Client is a classifier.Backend
type Client struct {
	client sdk.Client
	model  string
}

// NewClient creates a backend. SDK retries are disabled so each caption
// costs at most one request.
func NewClient(apiKey string, opts ...Option) *Client {
	cfg := config{model: DefaultModel}
	for _, o := range opts {
		o(&cfg)
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
	}
	if cfg.httpClient != nil {
		reqOpts = append(reqOpts, option.WithHTTPClient(cfg.httpClient))
	}

	return &Client{
		client: sdk.NewClient(reqOpts...),
		model:  cfg.model,
	}
}

func (c *Client) Name() string {
	return "anthropic/" + c.model
}

// Extract sends one message and parses the first text block
func (c *Client) Extract(ctx context.Context, caption string) (classifier.LocationInfo, error) {
	msg, err := c.client.Messages.New(ctx, sdk.MessageNewParams{
		Model:     sdk.Model(c.model),
		MaxTokens: defaultMaxTokens,
		System:    []sdk.TextBlockParam{{Text: classifier.SystemPrompt + "\n" + jsonOnly}},
		Messages:  []sdk.MessageParam{sdk.NewUserMessage(sdk.NewTextBlock(caption))},
	})
	if err != nil {
		return classifier.LocationInfo{}, eris.Wrap(err, "anthropic: create message")
	}

	var text strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return classifier.LocationInfo{}, eris.New("anthropic: response has no text block")
	}

	info, err := classifier.ParseLocationJSON(text.String())
	if err != nil {
		return classifier.LocationInfo{}, eris.Wrap(err, "anthropic: parse location")
	}
	return info, nil
}
