package ocr

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunner_PageOrderInvariant(t *testing.T) {
	p := &fakeProvider{id: "fake", name: "Fake", pageText: "text of"}
	r, err := NewRegistry(p)
	require.NoError(t, err)
	runner := NewRunner(r)

	result, err := runner.Run(context.Background(), "fake", testPages(3), Credential{Mode: SystemHeld})
	require.NoError(t, err)

	require.Len(t, result.Pages, 3)
	for i, page := range result.Pages {
		assert.Equal(t, i+1, page.PageNumber)
	}
	assert.Equal(t, "text of page 1\n\ntext of page 2\n\ntext of page 3", result.FullText)
	assert.Equal(t, "Fake", result.ProviderLabel)
	assert.GreaterOrEqual(t, result.ProcessingTimeMs, int64(0))
}

func TestRunner_UnknownProvider(t *testing.T) {
	r, err := NewRegistry(&fakeProvider{id: "fake", name: "Fake"})
	require.NoError(t, err)
	runner := NewRunner(r)

	_, err = runner.Run(context.Background(), "does-not-exist", testPages(1), Credential{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownProvider)
	assert.Contains(t, err.Error(), "Unknown provider")

	_, err = runner.Run(context.Background(), "", testPages(1), Credential{})
	assert.ErrorIs(t, err, ErrUnknownProvider)
}

func TestRunner_PageFailureAbortsRun(t *testing.T) {
	provErr := &ProviderError{Provider: "fake", Kind: ErrRateLimited, Message: "quota exceeded"}
	p := &fakeProvider{id: "fake", name: "Fake", err: provErr}
	r, err := NewRegistry(p)
	require.NoError(t, err)
	runner := NewRunner(r)

	result, err := runner.Run(context.Background(), "fake", testPages(3), Credential{Mode: SystemHeld})
	require.Error(t, err)
	assert.Nil(t, result, "no partial-document result is returned")

	var pe *ProviderError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, ErrRateLimited, pe.Kind)
	// the first page's failure aborts before remaining pages run
	assert.Equal(t, 1, p.callCount())
}

func TestRunner_BatchProviderSingleCall(t *testing.T) {
	p := &fakeBatchProvider{
		fakeProvider: fakeProvider{id: "batch", name: "Batch"},
		batchTexts:   []string{"one", "two"},
	}
	r, err := NewRegistry(p)
	require.NoError(t, err)
	runner := NewRunner(r)

	result, err := runner.Run(context.Background(), "batch", testPages(2), Credential{Mode: SystemHeld})
	require.NoError(t, err)

	assert.Equal(t, 1, p.callCount(), "batch adapters get one call for the whole document")
	assert.Equal(t, "one\n\ntwo", result.FullText)
	require.Len(t, result.Pages, 2)
	assert.Equal(t, 1, result.Pages[0].PageNumber)
	assert.Equal(t, 2, result.Pages[1].PageNumber)
}

func TestRunner_BatchPageCountMismatch(t *testing.T) {
	p := &fakeBatchProvider{
		fakeProvider: fakeProvider{id: "batch", name: "Batch"},
		batchTexts:   []string{"only one"},
	}
	r, err := NewRegistry(p)
	require.NoError(t, err)
	runner := NewRunner(r)

	_, err = runner.Run(context.Background(), "batch", testPages(3), Credential{Mode: SystemHeld})
	require.Error(t, err)

	var pe *ProviderError
	require.True(t, errors.As(err, &pe))
	assert.Contains(t, pe.Message, "page results")
}

func TestRunner_NoPages(t *testing.T) {
	r, err := NewRegistry(&fakeProvider{id: "fake", name: "Fake"})
	require.NoError(t, err)
	runner := NewRunner(r)

	_, err = runner.Run(context.Background(), "fake", nil, Credential{})
	assert.Error(t, err)
}
