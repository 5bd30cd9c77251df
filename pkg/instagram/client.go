package instagram

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mattn/go-runewidth"

	"github.com/sanath1188/insta-collections-insights/pkg/auth"
	"github.com/sanath1188/insta-collections-insights/pkg/errors"
	"github.com/sanath1188/insta-collections-insights/pkg/logger"
	"github.com/sanath1188/insta-collections-insights/pkg/ratelimit"
)

// Options configures a Client. Zero values fall back to defaults.
type Options struct {
	Timeout    time.Duration
	UserAgent  string
	Account    string
	BaseURL    string
	Limiter    ratelimit.Limiter
	HTTPClient *http.Client
}

// Client talks to the private web API with a browser session
type Client struct {
	httpClient *http.Client
	headers    map[string]string
	baseURL    string
	account    string
	limiter    ratelimit.Limiter
	logger     logger.Logger
}

// NewClient creates a client that authenticates with creds
func NewClient(creds *auth.Credentials, opts Options, log logger.Logger) *Client {
	if log == nil {
		log = logger.GetLogger()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.BaseURL == "" {
		opts.BaseURL = BaseURL
	}
	if opts.Limiter == nil {
		opts.Limiter = ratelimit.Unlimited{}
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}

	return &Client{
		httpClient: httpClient,
		headers: map[string]string{
			"Accept":           "*/*",
			"Accept-Language":  "en-GB,en-US;q=0.9,en;q=0.8",
			"Cookie":           creds.CookieHeader(),
			"Sec-Fetch-Dest":   "empty",
			"Sec-Fetch-Mode":   "cors",
			"Sec-Fetch-Site":   "same-origin",
			"User-Agent":       opts.UserAgent,
			"X-ASBD-ID":        ASBDID,
			"X-CSRFToken":      creds.CSRFToken,
			"X-IG-App-ID":      AppID,
			"X-Requested-With": "XMLHttpRequest",
		},
		baseURL: opts.BaseURL,
		account: opts.Account,
		limiter: opts.Limiter,
		logger:  log,
	}
}

// SetHeader overrides a default header
func (c *Client) SetHeader(key, value string) {
	c.headers[key] = value
}

// FetchCollectionPage fetches one page of a saved collection. An empty maxID
// requests the first page.
func (c *Client) FetchCollectionPage(ctx context.Context, collectionID, maxID string) (*CollectionPage, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, errors.Wrap(errors.ErrorTypeNetwork, 0, "rate limiter wait cancelled", err)
	}

	pageURL := CollectionURL(c.baseURL, collectionID, maxID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, errors.Wrap(errors.ErrorTypeUnknown, 0, "failed to create request", err)
	}
	req.Header.Set("Referer", SavedReferer(c.account, collectionID))

	var page CollectionPage
	if err := c.doJSON(req, &page); err != nil {
		c.logger.ErrorWithFields("failed to fetch collection page", map[string]interface{}{
			"collection_id": collectionID,
			"max_id":        maxID,
			"error":         err.Error(),
		})
		return nil, err
	}
	return &page, nil
}

// doRequest applies the session headers and sends the request
func (c *Client) doRequest(req *http.Request) (*http.Response, error) {
	for key, value := range c.headers {
		if req.Header.Get(key) == "" {
			req.Header.Set(key, value)
		}
	}

	start := time.Now()
	c.logger.DebugWithFields("sending HTTP request", map[string]interface{}{
		"method": req.Method,
		"url":    req.URL.String(),
	})

	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)
	if err != nil {
		c.logger.ErrorWithFields("HTTP request failed", map[string]interface{}{
			"method":   req.Method,
			"url":      req.URL.String(),
			"error":    err.Error(),
			"duration": duration,
		})
		return nil, errors.Wrap(errors.ErrorTypeNetwork, 0, "network error", err)
	}

	c.logger.DebugWithFields("HTTP request completed", map[string]interface{}{
		"method":   req.Method,
		"url":      req.URL.String(),
		"status":   resp.StatusCode,
		"duration": duration,
	})
	return resp, nil
}

// doJSON sends the request and decodes a 2xx JSON body into target
func (c *Client) doJSON(req *http.Request, target interface{}) error {
	resp, err := c.doRequest(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkResponseStatus(resp); err != nil {
		return err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(errors.ErrorTypeNetwork, resp.StatusCode, "failed to read response body", err)
	}

	if err := json.Unmarshal(body, target); err != nil {
		c.logger.ErrorWithFields("failed to parse JSON response", map[string]interface{}{
			"url":          req.URL.String(),
			"status":       resp.StatusCode,
			"error":        err.Error(),
			"body_preview": runewidth.Truncate(string(body), 200, "..."),
		})
		return errors.Wrap(errors.ErrorTypeParsing, resp.StatusCode, "failed to parse JSON", err)
	}
	return nil
}

// checkResponseStatus maps non-2xx statuses onto typed errors
func (c *Client) checkResponseStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	errType := errors.TypeForStatus(resp.StatusCode)
	var msg string
	switch errType {
	case errors.ErrorTypeAuth:
		msg = "authentication required, refresh the session cookies"
	case errors.ErrorTypeNotFound:
		msg = "collection not found"
	case errors.ErrorTypeRateLimit:
		msg = "rate limit exceeded"
	case errors.ErrorTypeServerError:
		msg = "server error"
	default:
		msg = fmt.Sprintf("unexpected status code: %d", resp.StatusCode)
	}

	fields := map[string]interface{}{
		"status": resp.StatusCode,
		"url":    resp.Request.URL.String(),
	}
	if errType == errors.ErrorTypeServerError || errType == errors.ErrorTypeUnknown {
		c.logger.ErrorWithFields(msg, fields)
	} else {
		c.logger.WarnWithFields(msg, fields)
	}
	return errors.New(errType, resp.StatusCode, msg)
}
