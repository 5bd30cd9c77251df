// Package gemini classifies captions with the Gemini generateContent API
// using a response schema that forces the four location fields.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sanath1188/insta-collections-insights/pkg/classifier"
)

const (
	DefaultBaseURL = "https://generativelanguage.googleapis.com"
	DefaultModel   = "gemini-2.0-flash"
)

// Option configures the client.
type Option func(*Client)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithModel overrides the default model.
func WithModel(model string) Option {
	return func(c *Client) {
		if model != "" {
			c.model = model
		}
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// Client is a classifier.Backend
type Client struct {
	apiKey  string
	baseURL string
	model   string
	http    *http.Client
}

// NewClient creates a Gemini backend
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:  apiKey,
		baseURL: DefaultBaseURL,
		model:   DefaultModel,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Client) Name() string {
	return "gemini/" + c.model
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type schema struct {
	Type       string            `json:"type"`
	Nullable   bool              `json:"nullable,omitempty"`
	Properties map[string]schema `json:"properties,omitempty"`
	Required   []string          `json:"required,omitempty"`
}

type generationConfig struct {
	ResponseMimeType string `json:"responseMimeType"`
	ResponseSchema   schema `json:"responseSchema"`
}

type safetySetting struct {
	Category  string `json:"category"`
	Threshold string `json:"threshold"`
}

type generateRequest struct {
	SystemInstruction content          `json:"systemInstruction"`
	Contents          []content        `json:"contents"`
	GenerationConfig  generationConfig `json:"generationConfig"`
	SafetySettings    []safetySetting  `json:"safetySettings"`
}

type generateResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
}

var locationFields = []string{"place_name", "city", "state", "country"}

func buildRequest(caption string) generateRequest {
	props := make(map[string]schema, len(locationFields))
	for _, f := range locationFields {
		props[f] = schema{Type: "STRING", Nullable: true}
	}

	var safety []safetySetting
	for _, cat := range []string{
		"HARM_CATEGORY_HARASSMENT",
		"HARM_CATEGORY_HATE_SPEECH",
		"HARM_CATEGORY_SEXUALLY_EXPLICIT",
		"HARM_CATEGORY_DANGEROUS_CONTENT",
	} {
		safety = append(safety, safetySetting{Category: cat, Threshold: "BLOCK_NONE"})
	}

	return generateRequest{
		SystemInstruction: content{Parts: []part{{Text: classifier.SystemPrompt}}},
		Contents:          []content{{Role: "user", Parts: []part{{Text: caption}}}},
		GenerationConfig: generationConfig{
			ResponseMimeType: "application/json",
			ResponseSchema: schema{
				Type:       "OBJECT",
				Properties: props,
				Required:   locationFields,
			},
		},
		SafetySettings: safety,
	}
}

// Extract sends one generateContent request for the caption
func (c *Client) Extract(ctx context.Context, caption string) (classifier.LocationInfo, error) {
	body, err := json.Marshal(buildRequest(caption))
	if err != nil {
		return classifier.LocationInfo{}, eris.Wrap(err, "gemini: marshal request")
	}

	endpoint := c.baseURL + "/v1beta/models/" + url.PathEscape(c.model) + ":generateContent?key=" + url.QueryEscape(c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return classifier.LocationInfo{}, eris.Wrap(err, "gemini: create request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return classifier.LocationInfo{}, eris.Wrap(err, "gemini: send request")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return classifier.LocationInfo{}, eris.Wrap(err, "gemini: read response")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return classifier.LocationInfo{}, eris.Errorf("gemini: unexpected status %d: %s", resp.StatusCode, truncate(respBody, 300))
	}

	var result generateResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return classifier.LocationInfo{}, eris.Wrap(err, "gemini: unmarshal response")
	}
	if len(result.Candidates) == 0 || len(result.Candidates[0].Content.Parts) == 0 {
		return classifier.LocationInfo{}, eris.New("gemini: response has no candidate text")
	}

	info, err := classifier.ParseLocationJSON(result.Candidates[0].Content.Parts[0].Text)
	if err != nil {
		return classifier.LocationInfo{}, eris.Wrap(err, "gemini: parse location")
	}
	return info, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
