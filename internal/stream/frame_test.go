package stream

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		line    string
		kind    FrameKind
		payload string
	}{
		{"", FrameBlank, ""},
		{"   \t", FrameBlank, ""},
		{`f:{"messageId":"msg-1"}`, FrameMetadata, `{"messageId":"msg-1"}`},
		{`0:"Hello"`, FrameText, `"Hello"`},
		{`0:`, FrameText, ``},
		{`e:{"finishReason":"stop"}`, FrameFinish, `{"finishReason":"stop"}`},
		{`d:{"finishReason":"stop"}`, FrameFinish, `{"finishReason":"stop"}`},
		{`data: {"content":"hi"}`, FrameEvent, `{"content":"hi"}`},
		{`data: [DONE]`, FrameEvent, `[DONE]`},
		{`data:{"content":"hi"}`, FrameUnknown, `data:{"content":"hi"}`},
		{`9:{"toolCallId":"x"}`, FrameUnknown, `9:{"toolCallId":"x"}`},
		{`event: message`, FrameUnknown, `event: message`},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			f := Classify(tt.line)
			assert.Equal(t, tt.kind, f.Kind)
			assert.Equal(t, tt.payload, f.Payload)
		})
	}
}

func TestFrameText(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		text    string
		outcome Outcome
	}{
		{"quoted string", `0:"Hello"`, "Hello", OutcomeText},
		{"escaped string", `0:"line\nbreak \"q\" é"`, "line\nbreak \"q\" é", OutcomeText},
		{"leading space kept", `0:" world"`, " world", OutcomeText},
		{"unquoted falls back verbatim", `0:Hello`, "Hello", OutcomeFallback},
		{"broken literal falls back verbatim", `0:"unterminated`, `"unterminated`, OutcomeFallback},
		{"non-string json carries nothing", `0:42`, "", OutcomeNone},
		{"empty string carries nothing", `0:""`, "", OutcomeNone},
		{"empty remainder", `0:`, "", OutcomeNone},
		{"event content", `data: {"content":"Sunny"}`, "Sunny", OutcomeText},
		{"event done", `data: [DONE]`, "", OutcomeNone},
		{"event without content", `data: {"type":"ping"}`, "", OutcomeNone},
		{"event invalid json", `data: not json`, "", OutcomeSkipped},
		{"metadata", `f:{"messageId":"1"}`, "", OutcomeNone},
		{"finish", `d:{"finishReason":"stop"}`, "", OutcomeNone},
		{"unknown", `2:[{"x":1}]`, "", OutcomeNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, outcome := Classify(tt.line).Text()
			assert.Equal(t, tt.text, text)
			assert.Equal(t, tt.outcome, outcome)
		})
	}
}

func TestFrameFinish(t *testing.T) {
	info, ok := Classify(`d:{"finishReason":"stop","usage":{"promptTokens":12,"completionTokens":34}}`).Finish()
	assert.True(t, ok)
	assert.Equal(t, FinishInfo{Reason: "stop", PromptTokens: 12, CompletionTokens: 34}, info)

	info, ok = Classify(`e:{"finishReason":"stop","usage":{"promptTokens":NaN}}`).Finish()
	assert.True(t, ok, "undecodable finish payloads still mark completion")
	assert.Equal(t, FinishInfo{}, info)

	_, ok = Classify(`0:"x"`).Finish()
	assert.False(t, ok)
}

func TestFrameKindString(t *testing.T) {
	assert.Equal(t, "text", FrameText.String())
	assert.Equal(t, "invalid", FrameKind(99).String())
}
