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
	defaultOpenAIBaseURL = "https://api.openai.com/v1"
	openAITimeout        = 120 * time.Second

	// visionPrompt asks for a faithful transcription rather than a summary.
	visionPrompt = "Extract all text from this image exactly as it appears. Preserve line breaks. Return only the extracted text, with no commentary."
)

// OpenAIProvider recognizes pages with an OpenAI vision model, one request
// per page. BYOK-capable: a user-supplied key replaces the system one.
type OpenAIProvider struct {
	systemKey  string
	model      string
	baseURL    string
	httpClient *http.Client
}

// OpenAIOptions configures the OpenAI vision adapter.
type OpenAIOptions struct {
	APIKey  string
	Model   string
	BaseURL string
}

// NewOpenAIProvider creates the OpenAI vision adapter.
func NewOpenAIProvider(opts OpenAIOptions) *OpenAIProvider {
	if opts.Model == "" {
		opts.Model = "gpt-4o"
	}
	if opts.BaseURL == "" {
		opts.BaseURL = defaultOpenAIBaseURL
	}
	return &OpenAIProvider{
		systemKey:  opts.APIKey,
		model:      opts.Model,
		baseURL:    strings.TrimSuffix(opts.BaseURL, "/"),
		httpClient: &http.Client{Timeout: openAITimeout},
	}
}

func (p *OpenAIProvider) ID() string {
	return "openai"
}

func (p *OpenAIProvider) DisplayName() string {
	return "OpenAI " + p.model
}

func (p *OpenAIProvider) Descriptor() Descriptor {
	return Descriptor{
		ID:                     p.ID(),
		DisplayName:            p.DisplayName(),
		ExecutesLocally:        false,
		AcceptsUserCredentials: true,
		Available:              p.systemKey != "",
	}
}

func (p *OpenAIProvider) apiKey(cred Credential) string {
	if cred.Mode == UserSupplied && cred.Key != "" {
		return cred.Key
	}
	return p.systemKey
}

type openAIChatRequest struct {
	Model     string          `json:"model"`
	Messages  []openAIMessage `json:"messages"`
	MaxTokens int             `json:"max_tokens,omitempty"`
}

type openAIMessage struct {
	Role    string              `json:"role"`
	Content []openAIContentPart `json:"content"`
}

type openAIContentPart struct {
	Type     string          `json:"type"`
	Text     string          `json:"text,omitempty"`
	ImageURL *openAIImageURL `json:"image_url,omitempty"`
}

type openAIImageURL struct {
	URL string `json:"url"`
}

type openAIChatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// Recognize sends one page as a data-URI image to the chat completions API.
func (p *OpenAIProvider) Recognize(ctx context.Context, cred Credential, page document.PageImage) (string, error) {
	key := p.apiKey(cred)
	if key == "" {
		return "", &ProviderError{Provider: p.ID(), Kind: ErrInvalidCredentials, Message: "no API key configured"}
	}

	mime := http.DetectContentType(page.Data)
	dataURI := fmt.Sprintf("data:%s;base64,%s", mime, base64.StdEncoding.EncodeToString(page.Data))

	reqBody := openAIChatRequest{
		Model: p.model,
		Messages: []openAIMessage{{
			Role: "user",
			Content: []openAIContentPart{
				{Type: "text", Text: visionPrompt},
				{Type: "image_url", ImageURL: &openAIImageURL{URL: dataURI}},
			},
		}},
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", &ProviderError{Provider: p.ID(), Kind: ErrOther, Message: fmt.Sprintf("failed to marshal request: %v", err)}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", &ProviderError{Provider: p.ID(), Kind: ErrOther, Message: err.Error()}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+key)

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return "", &ProviderError{Provider: p.ID(), Kind: ErrOther, Message: fmt.Sprintf("request failed: %v", err)}
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &ProviderError{Provider: p.ID(), Kind: ErrOther, Message: fmt.Sprintf("failed to read response: %v", err)}
	}

	var parsed openAIChatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil && resp.StatusCode == http.StatusOK {
		return "", &ProviderError{Provider: p.ID(), Kind: ErrOther, Message: fmt.Sprintf("invalid response: %v", err)}
	}

	if resp.StatusCode != http.StatusOK {
		message := strings.TrimSpace(string(respBody))
		if parsed.Error != nil && parsed.Error.Message != "" {
			message = parsed.Error.Message
		}
		return "", newProviderError(p.ID(), resp.StatusCode, message)
	}

	if len(parsed.Choices) == 0 {
		return "", &ProviderError{Provider: p.ID(), Kind: ErrOther, Message: "response contained no choices"}
	}

	return strings.TrimSpace(parsed.Choices[0].Message.Content), nil
}

// CheckCredentials verifies the system key with a trivial models listing.
func (p *OpenAIProvider) CheckCredentials(ctx context.Context, cred Credential) error {
	key := p.apiKey(cred)
	if key == "" {
		return &ProviderError{Provider: p.ID(), Kind: ErrInvalidCredentials, Message: "no API key configured"}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/models", nil)
	if err != nil {
		return err
	}
	httpReq.Header.Set("Authorization", "Bearer "+key)

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return &ProviderError{Provider: p.ID(), Kind: ErrOther, Message: fmt.Sprintf("request failed: %v", err)}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return newProviderError(p.ID(), resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}
