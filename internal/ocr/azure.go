package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pagelens/pagelens/internal/document"
)

const (
	azureAPIVersion   = "2024-02-29-preview"
	azureTimeout      = 120 * time.Second
	azurePollInterval = 500 * time.Millisecond
)

// AzureProvider recognizes pages with Azure Document Intelligence
// (prebuilt-read). Each page is one analyze operation, polled until the
// service reports a terminal status. BYOK-capable.
type AzureProvider struct {
	systemKey  string
	endpoint   string
	httpClient *http.Client
}

// AzureOptions configures the Azure Document Intelligence adapter.
type AzureOptions struct {
	APIKey   string
	Endpoint string
}

// NewAzureProvider creates the Azure Document Intelligence adapter.
func NewAzureProvider(opts AzureOptions) *AzureProvider {
	return &AzureProvider{
		systemKey:  opts.APIKey,
		endpoint:   strings.TrimSuffix(opts.Endpoint, "/"),
		httpClient: &http.Client{Timeout: azureTimeout},
	}
}

func (p *AzureProvider) ID() string {
	return "azure-docint"
}

func (p *AzureProvider) DisplayName() string {
	return "Azure Document Intelligence"
}

func (p *AzureProvider) Descriptor() Descriptor {
	return Descriptor{
		ID:                     p.ID(),
		DisplayName:            p.DisplayName(),
		ExecutesLocally:        false,
		AcceptsUserCredentials: true,
		Available:              p.systemKey != "" && p.endpoint != "",
	}
}

func (p *AzureProvider) apiKey(cred Credential) string {
	if cred.Mode == UserSupplied && cred.Key != "" {
		return cred.Key
	}
	return p.systemKey
}

type azureAnalyzeResult struct {
	Status        string `json:"status"`
	AnalyzeResult *struct {
		Content string `json:"content"`
	} `json:"analyzeResult,omitempty"`
	Error *azureError `json:"error,omitempty"`
}

type azureError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Recognize submits one page to prebuilt-read and polls for the result.
func (p *AzureProvider) Recognize(ctx context.Context, cred Credential, page document.PageImage) (string, error) {
	key := p.apiKey(cred)
	if key == "" || p.endpoint == "" {
		return "", &ProviderError{Provider: p.ID(), Kind: ErrInvalidCredentials, Message: "no API key or endpoint configured"}
	}

	operationURL, err := p.beginAnalyze(ctx, key, page.Data)
	if err != nil {
		return "", err
	}

	return p.pollResult(ctx, key, operationURL, page.PageNumber)
}

func (p *AzureProvider) beginAnalyze(ctx context.Context, key string, data []byte) (string, error) {
	url := fmt.Sprintf("%s/documentintelligence/documentModels/prebuilt-read:analyze?api-version=%s", p.endpoint, azureAPIVersion)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return "", &ProviderError{Provider: p.ID(), Kind: ErrOther, Message: err.Error()}
	}
	httpReq.Header.Set("Content-Type", "application/octet-stream")
	httpReq.Header.Set("Ocp-Apim-Subscription-Key", key)

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return "", &ProviderError{Provider: p.ID(), Kind: ErrOther, Message: fmt.Sprintf("request failed: %v", err)}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusAccepted {
		return "", newProviderError(p.ID(), resp.StatusCode, p.errorMessage(resp.Body))
	}

	operationURL := resp.Header.Get("Operation-Location")
	if operationURL == "" {
		return "", &ProviderError{Provider: p.ID(), Kind: ErrOther, Message: "analyze accepted but no operation location returned"}
	}
	return operationURL, nil
}

func (p *AzureProvider) pollResult(ctx context.Context, key, operationURL string, pageNumber int) (string, error) {
	ticker := time.NewTicker(azurePollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-ticker.C:
		}

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, operationURL, nil)
		if err != nil {
			return "", &ProviderError{Provider: p.ID(), Kind: ErrOther, Message: err.Error()}
		}
		httpReq.Header.Set("Ocp-Apim-Subscription-Key", key)

		resp, err := p.httpClient.Do(httpReq)
		if err != nil {
			return "", &ProviderError{Provider: p.ID(), Kind: ErrOther, Message: fmt.Sprintf("poll failed: %v", err)}
		}

		if resp.StatusCode != http.StatusOK {
			message := p.errorMessage(resp.Body)
			_ = resp.Body.Close()
			return "", newProviderError(p.ID(), resp.StatusCode, message)
		}

		var parsed azureAnalyzeResult
		err = json.NewDecoder(resp.Body).Decode(&parsed)
		_ = resp.Body.Close()
		if err != nil {
			return "", &ProviderError{Provider: p.ID(), Kind: ErrOther, Message: fmt.Sprintf("invalid poll response: %v", err)}
		}

		switch parsed.Status {
		case "succeeded":
			if parsed.AnalyzeResult == nil {
				return "", &ProviderError{Provider: p.ID(), Kind: ErrOther, Message: fmt.Sprintf("page %d: analyze succeeded without a result", pageNumber)}
			}
			return strings.TrimSpace(parsed.AnalyzeResult.Content), nil
		case "failed":
			message := fmt.Sprintf("analysis of page %d failed", pageNumber)
			if parsed.Error != nil {
				message = fmt.Sprintf("%s: %s", parsed.Error.Code, parsed.Error.Message)
			}
			return "", &ProviderError{Provider: p.ID(), Kind: ErrOther, Message: message}
		default:
			// running / notStarted: keep polling
		}
	}
}

// errorMessage extracts the service's own message from an error body.
func (p *AzureProvider) errorMessage(body io.Reader) string {
	raw, _ := io.ReadAll(io.LimitReader(body, 4096))

	var parsed struct {
		Error *azureError `json:"error"`
	}
	if err := json.Unmarshal(raw, &parsed); err == nil && parsed.Error != nil {
		return parsed.Error.Message
	}
	return strings.TrimSpace(string(raw))
}

// CheckCredentials verifies the system key against the service info endpoint.
func (p *AzureProvider) CheckCredentials(ctx context.Context, cred Credential) error {
	key := p.apiKey(cred)
	if key == "" || p.endpoint == "" {
		return &ProviderError{Provider: p.ID(), Kind: ErrInvalidCredentials, Message: "no API key or endpoint configured"}
	}

	url := fmt.Sprintf("%s/documentintelligence/info?api-version=%s", p.endpoint, azureAPIVersion)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	httpReq.Header.Set("Ocp-Apim-Subscription-Key", key)

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return &ProviderError{Provider: p.ID(), Kind: ErrOther, Message: fmt.Sprintf("request failed: %v", err)}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return newProviderError(p.ID(), resp.StatusCode, p.errorMessage(resp.Body))
	}
	return nil
}
