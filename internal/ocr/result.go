package ocr

import "strings"

// PageResult is the recognized text of one page.
type PageResult struct {
	PageNumber int    `json:"pageNumber"`
	Text       string `json:"text"`
}

// Result is the canonical outcome of one completed provider run. It is
// immutable once constructed: FullText equals the page texts joined with a
// blank-line separator, in page order.
type Result struct {
	FullText         string       `json:"fullText"`
	Pages            []PageResult `json:"pages"`
	ProcessingTimeMs int64        `json:"processingTimeMs"`
	ProviderLabel    string       `json:"providerLabel"`
}

// newResult assembles a Result from per-page texts in page order.
func newResult(label string, texts []string, elapsedMs int64) *Result {
	pages := make([]PageResult, len(texts))
	for i, text := range texts {
		pages[i] = PageResult{PageNumber: i + 1, Text: text}
	}
	return &Result{
		FullText:         strings.Join(texts, "\n\n"),
		Pages:            pages,
		ProcessingTimeMs: elapsedMs,
		ProviderLabel:    label,
	}
}
