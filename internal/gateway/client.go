package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"mime"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/publicsuffix"
)

// ClientConfig holds configuration for creating a Client.
type ClientConfig struct {
	// BaseURL is prefixed to every endpoint path (e.g. "http://localhost:5000/api").
	BaseURL string
	// HTTPClient is used for all requests. If nil, a client with a cookie jar
	// and the configured Timeout is created. A supplied client without a jar
	// is copied and given one.
	HTTPClient *http.Client
	// Timeout applies only when HTTPClient is nil. Zero means no timeout.
	Timeout time.Duration
	// Metrics is optional.
	Metrics *Metrics
}

// Client issues every call to the assistant API. Session cookies set by the
// server are kept in the client's jar and sent on every request.
type Client struct {
	baseURL    string
	base       *url.URL
	httpClient *http.Client
	jar        http.CookieJar
	metrics    *Metrics
}

// NewClient creates a gateway client.
func NewClient(config ClientConfig) (*Client, error) {
	if config.BaseURL == "" {
		return nil, fmt.Errorf("gateway: BaseURL is required")
	}

	base, err := url.Parse(config.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("gateway: invalid BaseURL %q: %w", config.BaseURL, err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("gateway: BaseURL %q must be absolute", config.BaseURL)
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: config.Timeout}
	}
	if httpClient.Jar == nil {
		jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
		if err != nil {
			return nil, fmt.Errorf("gateway: create cookie jar: %w", err)
		}
		copied := *httpClient
		copied.Jar = jar
		httpClient = &copied
	}

	return &Client{
		baseURL:    strings.TrimRight(config.BaseURL, "/"),
		base:       base,
		httpClient: httpClient,
		jar:        httpClient.Jar,
		metrics:    config.Metrics,
	}, nil
}

// BaseURL returns the configured API root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// RequestOptions describes a single call made through Request.
type RequestOptions struct {
	// Method defaults to GET.
	Method string
	// JSON is encoded as the request body when non-nil.
	JSON any
	// Body is sent as-is when JSON is nil.
	Body io.Reader
	// Header values override the defaults, including Content-Type.
	Header http.Header
	// Endpoint labels the call in metrics; defaults to the path.
	Endpoint string
}

// Response is a completed, successful round trip.
type Response struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// IsJSON reports whether the server declared a JSON body.
func (r *Response) IsJSON() bool {
	return isJSONContentType(r.ContentType)
}

// Decode unmarshals a JSON body into v.
func (r *Response) Decode(v any) error {
	if !r.IsJSON() {
		return fmt.Errorf("gateway: expected JSON response, got %q", r.ContentType)
	}
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("gateway: decode response: %w", err)
	}
	return nil
}

// Text returns the body as a string.
func (r *Response) Text() string {
	return string(r.Body)
}

// Request performs a single round trip to baseURL+path. Non-2xx responses
// and transport failures are returned as *Error.
func (c *Client) Request(ctx context.Context, path string, opts RequestOptions) (*Response, error) {
	method := opts.Method
	if method == "" {
		method = http.MethodGet
	}
	endpoint := opts.Endpoint
	if endpoint == "" {
		endpoint = path
	}

	started := time.Now()
	resp, err := c.do(ctx, method, path, opts)
	c.metrics.observe(endpoint, err, time.Since(started))
	if err != nil {
		log.Printf("[gateway] API request failed: %s %s: %v", method, path, err)
		return nil, err
	}
	return resp, nil
}

func (c *Client) do(ctx context.Context, method, path string, opts RequestOptions) (*Response, error) {
	body := opts.Body
	if opts.JSON != nil {
		encoded, err := json.Marshal(opts.JSON)
		if err != nil {
			return nil, fmt.Errorf("gateway: encode request body: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	request, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("gateway: create request: %w", err)
	}

	request.Header.Set("Content-Type", "application/json")
	for key, values := range opts.Header {
		request.Header.Del(key)
		for _, value := range values {
			request.Header.Add(key, value)
		}
	}

	response, err := c.httpClient.Do(request)
	if err != nil {
		return nil, &Error{
			Kind:    KindTransport,
			Method:  method,
			Path:    path,
			Message: fmt.Sprintf("request to %s failed: %v", path, err),
			Err:     err,
		}
	}
	defer response.Body.Close()

	responseBody, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, &Error{
			Kind:       KindTransport,
			Method:     method,
			Path:       path,
			StatusCode: response.StatusCode,
			Message:    fmt.Sprintf("reading response from %s failed: %v", path, err),
			Err:        err,
		}
	}

	contentType := response.Header.Get("Content-Type")
	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return nil, &Error{
			Kind:       KindHTTP,
			Method:     method,
			Path:       path,
			StatusCode: response.StatusCode,
			Message:    errorMessage(responseBody, isJSONContentType(contentType), response.StatusCode),
		}
	}

	return &Response{
		StatusCode:  response.StatusCode,
		ContentType: contentType,
		Body:        responseBody,
	}, nil
}

// decodeResult unmarshals resp into v and turns an explicit "success": false
// into a KindApplication error.
func decodeResult(resp *Response, method, path string, v any) error {
	if err := resp.Decode(v); err != nil {
		return err
	}

	var status struct {
		Success *bool  `json:"success"`
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(resp.Body, &status); err != nil {
		// Arrays and scalars carry no success flag.
		return nil
	}
	if status.Success == nil || *status.Success {
		return nil
	}

	message := status.Error
	if message == "" {
		message = status.Message
	}
	if message == "" {
		message = "Request failed"
	}
	return &Error{
		Kind:       KindApplication,
		Method:     method,
		Path:       path,
		StatusCode: resp.StatusCode,
		Message:    message,
	}
}

func isJSONContentType(contentType string) bool {
	if contentType == "" {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.Contains(contentType, "application/json")
	}
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}
