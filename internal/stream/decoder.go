package stream

import (
	"bufio"
	"errors"
	"io"
	"strings"
)

const readBufferSize = 32 * 1024

// Fragment is one unit of decoded assistant text.
type Fragment struct {
	Text string
	Kind FrameKind
	Line int
}

// Stats counts what a decoder has seen so far.
type Stats struct {
	Lines     int
	Fragments int
	Fallbacks int
	Skipped   int
}

// Decoder yields fragments from a response body. Lines are buffered across
// reads, so a multi-byte character or a frame split between two reads is
// reassembled before it is decoded. A Decoder is single-use.
type Decoder struct {
	r   *bufio.Reader
	err error

	line     int
	finished bool
	finish   FinishInfo
	stats    Stats
}

// NewDecoder creates a decoder reading from r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: bufio.NewReaderSize(r, readBufferSize)}
}

// Next returns the next fragment. It returns io.EOF once the body is
// exhausted, or the read error that ended the body. Decode anomalies never
// surface as errors.
func (d *Decoder) Next() (Fragment, error) {
	for {
		if d.err != nil {
			return Fragment{}, d.err
		}

		raw, err := d.r.ReadString('\n')
		if err != nil {
			d.err = err
			// A partial line before a transport error may be truncated.
			if !errors.Is(err, io.EOF) {
				continue
			}
		}
		if raw == "" {
			continue
		}

		if frag, ok := d.decodeLine(raw); ok {
			return frag, nil
		}
	}
}

// Finished reports whether a finish marker was seen. It is informational;
// Next keeps reading until the body ends.
func (d *Decoder) Finished() bool {
	return d.finished
}

// FinishInfo returns what the finish markers carried.
func (d *Decoder) FinishInfo() FinishInfo {
	return d.finish
}

// Stats returns the decoder counters.
func (d *Decoder) Stats() Stats {
	return d.stats
}

func (d *Decoder) decodeLine(raw string) (Fragment, bool) {
	line := strings.TrimRight(raw, "\r\n")
	line = strings.ToValidUTF8(line, "\uFFFD")
	d.line++

	frame := Classify(line)
	if frame.Kind == FrameBlank {
		return Fragment{}, false
	}
	d.stats.Lines++

	if info, ok := frame.Finish(); ok {
		d.finished = true
		d.mergeFinish(info)
		return Fragment{}, false
	}

	text, outcome := frame.Text()
	switch outcome {
	case OutcomeFallback:
		d.stats.Fallbacks++
	case OutcomeSkipped:
		d.stats.Skipped++
		return Fragment{}, false
	case OutcomeNone:
		return Fragment{}, false
	}

	d.stats.Fragments++
	return Fragment{Text: text, Kind: frame.Kind, Line: d.line}, true
}

func (d *Decoder) mergeFinish(info FinishInfo) {
	if info.Reason != "" {
		d.finish.Reason = info.Reason
	}
	if info.PromptTokens > 0 {
		d.finish.PromptTokens = info.PromptTokens
	}
	if info.CompletionTokens > 0 {
		d.finish.CompletionTokens = info.CompletionTokens
	}
}
