//go:build !cgo || !ocr

package ocr

import (
	"context"

	"github.com/pagelens/pagelens/internal/document"
)

// TesseractProvider is a stub for environments built without Tesseract/CGO
// support. It stays in the catalog but reports itself unavailable.
type TesseractProvider struct{}

// TesseractOptions configures the local Tesseract adapter.
type TesseractOptions struct {
	Enabled   bool
	Languages []string
}

// NewTesseractProvider creates a stub provider that reports unavailability.
func NewTesseractProvider(opts TesseractOptions) *TesseractProvider {
	return &TesseractProvider{}
}

func (p *TesseractProvider) ID() string {
	return "tesseract"
}

func (p *TesseractProvider) DisplayName() string {
	return "Tesseract"
}

func (p *TesseractProvider) Descriptor() Descriptor {
	return Descriptor{
		ID:              p.ID(),
		DisplayName:     p.DisplayName(),
		ExecutesLocally: true,
		Available:       false,
	}
}

func (p *TesseractProvider) Recognize(ctx context.Context, cred Credential, page document.PageImage) (string, error) {
	return "", &ProviderError{
		Provider: p.ID(),
		Kind:     ErrOther,
		Message:  "local OCR not available: built without Tesseract support",
	}
}
