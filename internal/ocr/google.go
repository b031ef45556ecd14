package ocr

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pagelens/pagelens/internal/document"
)

const (
	defaultVisionBaseURL = "https://vision.googleapis.com/v1"
	visionTimeout        = 120 * time.Second
)

// GoogleVisionProvider recognizes documents with the Cloud Vision
// images:annotate API. Batch-capable: all pages of a document go out in a
// single annotate request and come back in page order. BYOK-capable.
type GoogleVisionProvider struct {
	systemKey  string
	baseURL    string
	httpClient *http.Client
}

// GoogleVisionOptions configures the Cloud Vision adapter.
type GoogleVisionOptions struct {
	APIKey  string
	BaseURL string
}

// NewGoogleVisionProvider creates the Cloud Vision adapter.
func NewGoogleVisionProvider(opts GoogleVisionOptions) *GoogleVisionProvider {
	if opts.BaseURL == "" {
		opts.BaseURL = defaultVisionBaseURL
	}
	return &GoogleVisionProvider{
		systemKey:  opts.APIKey,
		baseURL:    strings.TrimSuffix(opts.BaseURL, "/"),
		httpClient: &http.Client{Timeout: visionTimeout},
	}
}

func (p *GoogleVisionProvider) ID() string {
	return "google-vision"
}

func (p *GoogleVisionProvider) DisplayName() string {
	return "Google Cloud Vision"
}

func (p *GoogleVisionProvider) Descriptor() Descriptor {
	return Descriptor{
		ID:                     p.ID(),
		DisplayName:            p.DisplayName(),
		ExecutesLocally:        false,
		AcceptsUserCredentials: true,
		Available:              p.systemKey != "",
	}
}

func (p *GoogleVisionProvider) apiKey(cred Credential) string {
	if cred.Mode == UserSupplied && cred.Key != "" {
		return cred.Key
	}
	return p.systemKey
}

type visionRequest struct {
	Requests []visionAnnotateRequest `json:"requests"`
}

type visionAnnotateRequest struct {
	Image    visionImage     `json:"image"`
	Features []visionFeature `json:"features"`
}

type visionImage struct {
	Content string `json:"content"`
}

type visionFeature struct {
	Type string `json:"type"`
}

type visionResponse struct {
	Responses []visionAnnotateResponse `json:"responses"`
	Error     *visionError             `json:"error,omitempty"`
}

type visionAnnotateResponse struct {
	FullTextAnnotation *struct {
		Text string `json:"text"`
	} `json:"fullTextAnnotation,omitempty"`
	Error *visionError `json:"error,omitempty"`
}

type visionError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

// Recognize handles a single page as a one-element batch.
func (p *GoogleVisionProvider) Recognize(ctx context.Context, cred Credential, page document.PageImage) (string, error) {
	texts, err := p.RecognizeAll(ctx, cred, []document.PageImage{page})
	if err != nil {
		return "", err
	}
	return texts[0], nil
}

// RecognizeAll annotates every page in one request, returning per-page texts
// in page order. A per-page error from the service fails the whole run, the
// same as a page failure in a sequential adapter.
func (p *GoogleVisionProvider) RecognizeAll(ctx context.Context, cred Credential, pages []document.PageImage) ([]string, error) {
	key := p.apiKey(cred)
	if key == "" {
		return nil, &ProviderError{Provider: p.ID(), Kind: ErrInvalidCredentials, Message: "no API key configured"}
	}

	reqBody := visionRequest{Requests: make([]visionAnnotateRequest, len(pages))}
	for i, page := range pages {
		reqBody.Requests[i] = visionAnnotateRequest{
			Image:    visionImage{Content: base64.StdEncoding.EncodeToString(page.Data)},
			Features: []visionFeature{{Type: "DOCUMENT_TEXT_DETECTION"}},
		}
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, &ProviderError{Provider: p.ID(), Kind: ErrOther, Message: fmt.Sprintf("failed to marshal request: %v", err)}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/images:annotate?key="+key, bytes.NewReader(body))
	if err != nil {
		return nil, &ProviderError{Provider: p.ID(), Kind: ErrOther, Message: err.Error()}
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, &ProviderError{Provider: p.ID(), Kind: ErrOther, Message: fmt.Sprintf("request failed: %v", err)}
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ProviderError{Provider: p.ID(), Kind: ErrOther, Message: fmt.Sprintf("failed to read response: %v", err)}
	}

	var parsed visionResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil && resp.StatusCode == http.StatusOK {
		return nil, &ProviderError{Provider: p.ID(), Kind: ErrOther, Message: fmt.Sprintf("invalid response: %v", err)}
	}

	if resp.StatusCode != http.StatusOK {
		message := strings.TrimSpace(string(respBody))
		if parsed.Error != nil && parsed.Error.Message != "" {
			message = parsed.Error.Message
		}
		return nil, newProviderError(p.ID(), resp.StatusCode, message)
	}

	if len(parsed.Responses) != len(pages) {
		return nil, &ProviderError{
			Provider: p.ID(),
			Kind:     ErrOther,
			Message:  fmt.Sprintf("service returned %d responses for %d pages", len(parsed.Responses), len(pages)),
		}
	}

	texts := make([]string, len(pages))
	for i, r := range parsed.Responses {
		if r.Error != nil {
			return nil, &ProviderError{
				Provider: p.ID(),
				Kind:     ErrOther,
				Message:  fmt.Sprintf("page %d: %s", pages[i].PageNumber, r.Error.Message),
			}
		}
		if r.FullTextAnnotation != nil {
			texts[i] = strings.TrimSpace(r.FullTextAnnotation.Text)
		}
	}
	return texts, nil
}

// CheckCredentials verifies the key with an empty annotate batch, which
// authenticates without consuming recognition quota.
func (p *GoogleVisionProvider) CheckCredentials(ctx context.Context, cred Credential) error {
	key := p.apiKey(cred)
	if key == "" {
		return &ProviderError{Provider: p.ID(), Kind: ErrInvalidCredentials, Message: "no API key configured"}
	}

	body, _ := json.Marshal(visionRequest{Requests: []visionAnnotateRequest{}})
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/images:annotate?key="+key, bytes.NewReader(body))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return &ProviderError{Provider: p.ID(), Kind: ErrOther, Message: fmt.Sprintf("request failed: %v", err)}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		var parsed visionResponse
		message := strings.TrimSpace(string(raw))
		if err := json.Unmarshal(raw, &parsed); err == nil && parsed.Error != nil {
			message = parsed.Error.Message
		}
		return newProviderError(p.ID(), resp.StatusCode, message)
	}
	return nil
}
