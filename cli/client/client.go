// Package client provides the HTTP client for the PageLens server API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"github.com/pagelens/pagelens/internal/ocr"
)

// Client is the PageLens API client
type Client struct {
	// BaseURL is the PageLens server URL
	BaseURL string

	// HTTPClient is the underlying HTTP client. No global timeout: OCR and
	// benchmark calls are long-running; callers bound them with a context.
	HTTPClient *http.Client

	// Debug enables debug logging
	Debug bool

	// UserAgent to use for requests
	UserAgent string
}

// ClientOption configures the client
type ClientOption func(*Client)

// NewClient creates a new API client
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{},
		UserAgent:  "pagelens-cli/1.0",
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// WithDebug enables debug mode
func WithDebug(debug bool) ClientOption {
	return func(c *Client) {
		c.Debug = debug
	}
}

// WithTimeout sets an overall HTTP timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.HTTPClient.Timeout = timeout
	}
}

// Upload is a document payload for OCR and benchmark calls.
type Upload struct {
	Filename  string
	MediaType string
	Data      []byte
}

type errorEnvelope struct {
	Success *bool  `json:"success"`
	Error   string `json:"error"`
}

// apiURL joins the base URL with an API path
func (c *Client) apiURL(path string) (string, error) {
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return "", fmt.Errorf("invalid server URL: %w", err)
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + path
	return u.String(), nil
}

func (c *Client) do(req *http.Request) (*http.Response, error) {
	req.Header.Set("User-Agent", c.UserAgent)
	if c.Debug {
		fmt.Printf("DEBUG: %s %s\n", req.Method, req.URL)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	return resp, nil
}

// decodeError turns a non-2xx response into an error and closes the body
func decodeError(resp *http.Response) error {
	defer func() { _ = resp.Body.Close() }()

	var envelope errorEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err == nil && envelope.Error != "" {
		return fmt.Errorf("%s", envelope.Error)
	}
	return fmt.Errorf("server returned %s", resp.Status)
}

// multipartBody builds a multipart body carrying the upload plus form fields
func multipartBody(doc Upload, fields map[string]string) (*bytes.Buffer, string, error) {
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)

	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return nil, "", fmt.Errorf("failed to write form field: %w", err)
		}
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, doc.Filename))
	h.Set("Content-Type", doc.MediaType)
	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create file part: %w", err)
	}
	if _, err := part.Write(doc.Data); err != nil {
		return nil, "", fmt.Errorf("failed to write file part: %w", err)
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to finish multipart body: %w", err)
	}
	return body, w.FormDataContentType(), nil
}

// Providers fetches the server's provider catalog
func (c *Client) Providers(ctx context.Context) ([]ocr.Descriptor, error) {
	u, err := c.apiURL("/api/v1/providers")
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, decodeError(resp)
	}
	defer func() { _ = resp.Body.Close() }()

	var out struct {
		Providers []ocr.Descriptor `json:"providers"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode provider list: %w", err)
	}
	return out.Providers, nil
}

// Availability runs the server-side live credential probe
func (c *Client) Availability(ctx context.Context) (map[string]bool, error) {
	u, err := c.apiURL("/api/v1/providers/availability")
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, decodeError(resp)
	}
	defer func() { _ = resp.Body.Close() }()

	var out struct {
		Availability map[string]bool `json:"availability"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode availability: %w", err)
	}
	return out.Availability, nil
}

// RunOCR runs a single provider against the document on the server
func (c *Client) RunOCR(ctx context.Context, providerID string, doc Upload) (*ocr.Result, error) {
	u, err := c.apiURL("/api/v1/ocr")
	if err != nil {
		return nil, err
	}

	body, contentType, err := multipartBody(doc, map[string]string{"provider": providerID})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, decodeError(resp)
	}
	defer func() { _ = resp.Body.Close() }()

	var out struct {
		Success bool        `json:"success"`
		Result  *ocr.Result `json:"result"`
		Error   string      `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode OCR result: %w", err)
	}
	if !out.Success || out.Result == nil {
		return nil, fmt.Errorf("OCR failed: %s", out.Error)
	}
	return out.Result, nil
}

// Benchmark starts a server-side benchmark over the given providers and
// returns the raw NDJSON stream. The caller owns the body.
func (c *Client) Benchmark(ctx context.Context, providerIDs []string, doc Upload) (io.ReadCloser, error) {
	u, err := c.apiURL("/api/v1/benchmark")
	if err != nil {
		return nil, err
	}

	body, contentType, err := multipartBody(doc, map[string]string{
		"providers": strings.Join(providerIDs, ","),
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, decodeError(resp)
	}
	return resp.Body, nil
}
