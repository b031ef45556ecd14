package ocr

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pagelens/pagelens/internal/document"
)

// fakeProvider is a scriptable page-by-page adapter for tests.
type fakeProvider struct {
	id        string
	name      string
	local     bool
	byok      bool
	available bool

	pageText string        // text returned per page; page number appended
	err      error         // returned from every Recognize call when set
	delay    time.Duration // simulated recognition latency

	mu    sync.Mutex
	calls int
}

func (f *fakeProvider) ID() string          { return f.id }
func (f *fakeProvider) DisplayName() string { return f.name }

func (f *fakeProvider) Descriptor() Descriptor {
	return Descriptor{
		ID:                     f.id,
		DisplayName:            f.name,
		ExecutesLocally:        f.local,
		AcceptsUserCredentials: f.byok,
		Available:              f.available,
	}
}

func (f *fakeProvider) Recognize(ctx context.Context, cred Credential, page document.PageImage) (string, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if f.err != nil {
		return "", f.err
	}
	return fmt.Sprintf("%s page %d", f.pageText, page.PageNumber), nil
}

func (f *fakeProvider) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// fakeBatchProvider recognizes a whole document in one scripted call.
type fakeBatchProvider struct {
	fakeProvider
	batchTexts []string
	batchErr   error
}

func (f *fakeBatchProvider) RecognizeAll(ctx context.Context, cred Credential, pages []document.PageImage) ([]string, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	if f.batchErr != nil {
		return nil, f.batchErr
	}
	return f.batchTexts, nil
}

func testPages(n int) []document.PageImage {
	pages := make([]document.PageImage, n)
	for i := range pages {
		pages[i] = document.PageImage{PageNumber: i + 1, Data: []byte("img"), Width: 100, Height: 100}
	}
	return pages
}

// collectPatches drains an update stream into a slice.
func collectPatches(updates <-chan Patch) []Patch {
	var out []Patch
	for p := range updates {
		out = append(out, p)
	}
	return out
}
