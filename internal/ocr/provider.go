// Package ocr contains the OCR orchestration and benchmark engine: the
// provider registry and adapters, credential resolution, the single-run and
// benchmark orchestrators, and benchmark statistics/export.
package ocr

import (
	"context"

	"github.com/pagelens/pagelens/internal/document"
)

// Descriptor describes a provider in the static catalog. Defined once at
// registry construction and never mutated.
type Descriptor struct {
	ID                     string `json:"id"`
	DisplayName            string `json:"display_name"`
	ExecutesLocally        bool   `json:"executes_locally"`
	AcceptsUserCredentials bool   `json:"accepts_user_credentials"`
	Available              bool   `json:"available"`
}

// CredentialMode selects which credentials a provider run uses.
type CredentialMode string

const (
	// SystemHeld uses credentials configured on the server.
	SystemHeld CredentialMode = "system_held"
	// UserSupplied uses a key the user brought themselves (BYOK).
	UserSupplied CredentialMode = "user_supplied"
)

// Credential is the resolved credential for one provider run. Key is empty
// for SystemHeld mode and for providers that need no external key.
type Credential struct {
	Mode CredentialMode `json:"mode"`
	Key  string         `json:"-"`
}

// Provider is the uniform adapter contract around one OCR engine or hosted
// API. Recognize returns the extracted text of a single page and fails with
// *ProviderError on any engine or transport failure.
type Provider interface {
	ID() string
	DisplayName() string
	Descriptor() Descriptor
	Recognize(ctx context.Context, cred Credential, page document.PageImage) (string, error)
}

// BatchProvider is implemented by adapters that can recognize a whole
// document in one call, returning one text per page in page order. The
// runner prefers this over page-by-page recognition when available.
type BatchProvider interface {
	Provider
	RecognizeAll(ctx context.Context, cred Credential, pages []document.PageImage) ([]string, error)
}

// CredentialChecker is implemented by credential-gated providers. Check runs
// a trivial authenticated call to verify the credential actually works, not
// merely that it is present.
type CredentialChecker interface {
	CheckCredentials(ctx context.Context, cred Credential) error
}
