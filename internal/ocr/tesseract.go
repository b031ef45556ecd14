//go:build cgo && ocr

package ocr

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/otiai10/gosseract/v2"
	"github.com/rs/zerolog/log"

	"github.com/pagelens/pagelens/internal/document"
)

// TesseractProvider recognizes pages with a local Tesseract engine. No
// network, no credentials; each page gets its own scoped gosseract client,
// released unconditionally after the call.
type TesseractProvider struct {
	languages []string
	available bool
}

// TesseractOptions configures the local Tesseract adapter.
type TesseractOptions struct {
	Enabled   bool
	Languages []string
}

// NewTesseractProvider creates the local Tesseract adapter.
func NewTesseractProvider(opts TesseractOptions) *TesseractProvider {
	languages := opts.Languages
	if len(languages) == 0 {
		languages = []string{"eng"}
	}

	available := opts.Enabled
	if available {
		if _, err := exec.LookPath("tesseract"); err != nil {
			log.Warn().Msg("Tesseract not found in PATH, local OCR will be unavailable")
			available = false
		}
	}

	return &TesseractProvider{
		languages: languages,
		available: available,
	}
}

func (p *TesseractProvider) ID() string {
	return "tesseract"
}

func (p *TesseractProvider) DisplayName() string {
	return "Tesseract"
}

func (p *TesseractProvider) Descriptor() Descriptor {
	return Descriptor{
		ID:                     p.ID(),
		DisplayName:            p.DisplayName(),
		ExecutesLocally:        true,
		AcceptsUserCredentials: false,
		Available:              p.available,
	}
}

// Recognize runs Tesseract on one page image.
func (p *TesseractProvider) Recognize(ctx context.Context, cred Credential, page document.PageImage) (string, error) {
	if !p.available {
		return "", &ProviderError{Provider: p.ID(), Kind: ErrOther, Message: "tesseract is not available"}
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(strings.Join(p.languages, "+")); err != nil {
		return "", &ProviderError{Provider: p.ID(), Kind: ErrOther, Message: fmt.Sprintf("failed to set language: %v", err)}
	}
	if err := client.SetImageFromBytes(page.Data); err != nil {
		return "", &ProviderError{Provider: p.ID(), Kind: ErrOther, Message: fmt.Sprintf("failed to load page %d: %v", page.PageNumber, err)}
	}

	text, err := client.Text()
	if err != nil {
		return "", &ProviderError{Provider: p.ID(), Kind: ErrOther, Message: fmt.Sprintf("recognition failed on page %d: %v", page.PageNumber, err)}
	}

	return strings.TrimSpace(text), nil
}
