package ocr

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog/log"
)

// StreamEvent is one frame of the mediated-class benchmark stream: a single
// provider outcome record, or the final sentinel marking stream end.
type StreamEvent struct {
	ProviderID   string       `json:"providerId,omitempty"`
	ProviderName string       `json:"providerName,omitempty"`
	Result       *Result      `json:"result,omitempty"`
	Error        string       `json:"error,omitempty"`
	Status       OutcomeState `json:"status,omitempty"`
	Done         bool         `json:"done,omitempty"`
}

// StreamWriter encodes benchmark stream events as newline-delimited JSON,
// flushing after every frame so consumers observe results incrementally.
type StreamWriter struct {
	w     io.Writer
	flush func() error
}

// NewStreamWriter creates a writer over w. flush may be nil when w needs no
// explicit flushing.
func NewStreamWriter(w io.Writer, flush func() error) *StreamWriter {
	return &StreamWriter{w: w, flush: flush}
}

// WriteOutcome writes one provider outcome frame.
func (sw *StreamWriter) WriteOutcome(o Outcome) error {
	return sw.write(StreamEvent{
		ProviderID:   o.ProviderID,
		ProviderName: o.ProviderName,
		Result:       o.Result,
		Error:        o.Error,
		Status:       o.State,
	})
}

// WriteDone writes the final sentinel frame.
func (sw *StreamWriter) WriteDone() error {
	return sw.write(StreamEvent{Done: true})
}

func (sw *StreamWriter) write(ev StreamEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to encode stream event: %w", err)
	}
	data = append(data, '\n')
	if _, err := sw.w.Write(data); err != nil {
		return fmt.Errorf("failed to write stream event: %w", err)
	}
	if sw.flush != nil {
		return sw.flush()
	}
	return nil
}

// StreamReader parses a sequence of discrete JSON-bearing lines from a byte
// stream, buffering incomplete trailing fragments between reads. Reassembly
// is correct regardless of how the underlying transport chunks bytes.
type StreamReader struct {
	r *bufio.Reader
}

// NewStreamReader creates a reader over r.
func NewStreamReader(r io.Reader) *StreamReader {
	return &StreamReader{r: bufio.NewReader(r)}
}

// Next returns the next well-formed event from the stream. Malformed lines
// are skipped without aborting the stream. io.EOF is returned when the
// underlying stream ends, whether or not a sentinel was seen; callers that
// need the sentinel check Done on the last event.
func (sr *StreamReader) Next() (*StreamEvent, error) {
	for {
		line, err := sr.r.ReadString('\n')
		line = strings.TrimSpace(line)

		if line != "" {
			var ev StreamEvent
			if jerr := json.Unmarshal([]byte(line), &ev); jerr != nil {
				log.Debug().Err(jerr).Msg("Skipping malformed stream event")
			} else {
				return &ev, nil
			}
		}

		if err != nil {
			if err == io.EOF {
				return nil, io.EOF
			}
			return nil, fmt.Errorf("error reading stream: %w", err)
		}
	}
}

// ReadAll drains the stream, invoking apply for each outcome frame until the
// sentinel or EOF. It returns an error when the stream ends without a
// sentinel, so callers can fail still-pending outcomes.
func (sr *StreamReader) ReadAll(apply func(StreamEvent)) error {
	for {
		ev, err := sr.Next()
		if err == io.EOF {
			return fmt.Errorf("stream ended without completion sentinel")
		}
		if err != nil {
			return err
		}
		if ev.Done {
			return nil
		}
		apply(*ev)
	}
}
