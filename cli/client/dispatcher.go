package client

import (
	"context"

	"github.com/pagelens/pagelens/internal/document"
	"github.com/pagelens/pagelens/internal/ocr"
)

// StreamDispatcher executes the mediated benchmark class against a remote
// PageLens server: one upload covering every provider in the batch, outcomes
// consumed incrementally from the server's NDJSON stream.
//
// The original upload travels to the server, which normalizes it again; the
// locally rasterized pages passed to Dispatch are only used by the local and
// direct classes.
type StreamDispatcher struct {
	client *Client
	doc    Upload
}

// NewStreamDispatcher creates a dispatcher for one document.
func NewStreamDispatcher(client *Client, doc Upload) *StreamDispatcher {
	return &StreamDispatcher{client: client, doc: doc}
}

// Dispatch implements ocr.BatchDispatcher.
func (d *StreamDispatcher) Dispatch(ctx context.Context, providerIDs []string, _ []document.PageImage) (<-chan ocr.Patch, error) {
	body, err := d.client.Benchmark(ctx, providerIDs, d.doc)
	if err != nil {
		return nil, err
	}

	out := make(chan ocr.Patch, 2*len(providerIDs))
	go func() {
		defer close(out)
		defer func() { _ = body.Close() }()

		sr := ocr.NewStreamReader(body)
		_ = sr.ReadAll(func(ev ocr.StreamEvent) {
			out <- ocr.Patch{
				ProviderID: ev.ProviderID,
				State:      ev.Status,
				Result:     ev.Result,
				Error:      ev.Error,
			}
		})
		// A missing sentinel is not reported here: the orchestrator fails any
		// still-pending ids itself when the patch stream closes early.
	}()

	return out, nil
}
