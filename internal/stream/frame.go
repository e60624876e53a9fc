// Package stream decodes the agent's line-framed streaming response body
// into text fragments.
package stream

import (
	"encoding/json"
	"strings"
)

// FrameKind classifies one line of the response body.
type FrameKind int

const (
	// FrameBlank is an empty or whitespace-only line.
	FrameBlank FrameKind = iota
	// FrameMetadata ("f:") carries initial message metadata.
	FrameMetadata
	// FrameText ("0:") carries one encoded text token.
	FrameText
	// FrameFinish ("e:" or "d:") marks a step or the message as complete.
	FrameFinish
	// FrameEvent ("data: ") is a server-sent-event payload.
	FrameEvent
	// FrameUnknown is any other line.
	FrameUnknown
)

// DoneSentinel ends an event-stream payload sequence.
const DoneSentinel = "[DONE]"

var frameNames = map[FrameKind]string{
	FrameBlank:    "blank",
	FrameMetadata: "metadata",
	FrameText:     "text",
	FrameFinish:   "finish",
	FrameEvent:    "event",
	FrameUnknown:  "unknown",
}

func (k FrameKind) String() string {
	if name, ok := frameNames[k]; ok {
		return name
	}
	return "invalid"
}

// Prefixes are checked in order; the first match wins.
var prefixes = []struct {
	prefix string
	kind   FrameKind
}{
	{"f:", FrameMetadata},
	{"0:", FrameText},
	{"e:", FrameFinish},
	{"d:", FrameFinish},
	{"data: ", FrameEvent},
}

// Frame is a classified line with its prefix stripped.
type Frame struct {
	Kind    FrameKind
	Payload string
}

// Classify determines the kind of a single line.
func Classify(line string) Frame {
	if strings.TrimSpace(line) == "" {
		return Frame{Kind: FrameBlank}
	}
	for _, p := range prefixes {
		if strings.HasPrefix(line, p.prefix) {
			return Frame{Kind: p.kind, Payload: line[len(p.prefix):]}
		}
	}
	return Frame{Kind: FrameUnknown, Payload: line}
}

// Outcome reports how a frame's text was obtained.
type Outcome int

const (
	// OutcomeNone means the frame carries no text.
	OutcomeNone Outcome = iota
	// OutcomeText means the payload decoded cleanly.
	OutcomeText
	// OutcomeFallback means a content payload was not valid JSON and was
	// used verbatim.
	OutcomeFallback
	// OutcomeSkipped means an event payload could not be decoded.
	OutcomeSkipped
)

// Text extracts the fragment text carried by the frame.
func (f Frame) Text() (string, Outcome) {
	switch f.Kind {
	case FrameText:
		return decodeToken(f.Payload)
	case FrameEvent:
		return decodeEvent(f.Payload)
	default:
		return "", OutcomeNone
	}
}

// decodeToken reads a JSON string literal. Anything that is not valid JSON
// is taken verbatim; valid JSON that is not a string carries no text.
func decodeToken(payload string) (string, Outcome) {
	if payload == "" {
		return "", OutcomeNone
	}

	var v any
	if err := json.Unmarshal([]byte(payload), &v); err != nil {
		return payload, OutcomeFallback
	}

	s, ok := v.(string)
	if !ok || s == "" {
		return "", OutcomeNone
	}
	return s, OutcomeText
}

type eventPayload struct {
	Content string `json:"content"`
}

func decodeEvent(payload string) (string, Outcome) {
	if payload == DoneSentinel {
		return "", OutcomeNone
	}

	var ev eventPayload
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		return "", OutcomeSkipped
	}
	if ev.Content == "" {
		return "", OutcomeNone
	}
	return ev.Content, OutcomeText
}

// FinishInfo is the best-effort content of finish frames.
type FinishInfo struct {
	Reason           string
	PromptTokens     int
	CompletionTokens int
}

type finishPayload struct {
	FinishReason string `json:"finishReason"`
	Usage        struct {
		PromptTokens     int `json:"promptTokens"`
		CompletionTokens int `json:"completionTokens"`
	} `json:"usage"`
}

// Finish decodes a finish frame's payload. The frame still counts as a
// finish marker when the payload does not decode.
func (f Frame) Finish() (FinishInfo, bool) {
	if f.Kind != FrameFinish {
		return FinishInfo{}, false
	}

	var p finishPayload
	if err := json.Unmarshal([]byte(f.Payload), &p); err != nil {
		return FinishInfo{}, true
	}
	return FinishInfo{
		Reason:           p.FinishReason,
		PromptTokens:     p.Usage.PromptTokens,
		CompletionTokens: p.Usage.CompletionTokens,
	}, true
}
