package chat

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capitalize-ai/weather-chat/internal/agent"
	"github.com/capitalize-ai/weather-chat/internal/events"
	"github.com/capitalize-ai/weather-chat/internal/model"
	"github.com/capitalize-ai/weather-chat/pkg/logger"
)

// fakeAgent answers Open with a canned body or a body fed by the test.
type fakeAgent struct {
	mu    sync.Mutex
	calls [][]agent.ChatMessage
	open  func(ctx context.Context) (io.ReadCloser, error)
}

func (f *fakeAgent) Name() string { return "fake" }

func (f *fakeAgent) Open(ctx context.Context, messages []agent.ChatMessage) (io.ReadCloser, error) {
	f.mu.Lock()
	f.calls = append(f.calls, messages)
	f.mu.Unlock()
	return f.open(ctx)
}

func (f *fakeAgent) lastCall() []agent.ChatMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[len(f.calls)-1]
}

func replying(body string) *fakeAgent {
	return &fakeAgent{open: func(context.Context) (io.ReadCloser, error) {
		return io.NopCloser(strings.NewReader(body)), nil
	}}
}

// pipeAgent returns a body the test writes to; the body fails with the
// request context's error once that context ends.
type pipeAgent struct {
	fakeAgent
	w chan *io.PipeWriter
}

func newPipeAgent() *pipeAgent {
	p := &pipeAgent{w: make(chan *io.PipeWriter, 1)}
	p.open = func(ctx context.Context) (io.ReadCloser, error) {
		pr, pw := io.Pipe()
		go func() {
			<-ctx.Done()
			pw.CloseWithError(ctx.Err())
		}()
		p.w <- pw
		return pr, nil
	}
	return p
}

func newTestConversation(client agent.Client, opts ...Option) *Conversation {
	return NewConversation("conv-test", client, append([]Option{WithLogger(logger.Nop())}, opts...)...)
}

func waitFor(t *testing.T, sub *events.Subscription, match func(model.Event) bool) model.Event {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	for {
		ev, err := sub.Next(ctx)
		require.NoError(t, err, "timed out waiting for event")
		if match(ev) {
			return ev
		}
	}
}

func patchedTo(content string) func(model.Event) bool {
	return func(ev model.Event) bool {
		return ev.Type == model.EventTypePatched && ev.Entry != nil && ev.Entry.Content == content
	}
}

func TestSend_StreamsReplyIntoAssistantEntry(t *testing.T) {
	conv := newTestConversation(replying("f:{\"messageId\":\"m1\"}\n0:\"Hello\"\n0:\" world\"\nd:{\"finishReason\":\"stop\"}\n"))

	err := conv.Send(context.Background(), "  What's the weather?  ")
	require.NoError(t, err)

	st := conv.Snapshot()
	require.Len(t, st.Entries, 2)

	user := st.Entries[0]
	assert.Equal(t, model.RoleUser, user.Role)
	assert.Equal(t, "What's the weather?", user.Content)
	assert.False(t, user.Streaming)

	reply := st.Entries[1]
	assert.Equal(t, model.RoleAssistant, reply.Role)
	assert.Equal(t, "Hello world", reply.Content)
	assert.False(t, reply.Streaming)
	assert.False(t, reply.Failed)

	assert.False(t, st.Loading)
	assert.Empty(t, st.InFlightID)
	assert.Empty(t, st.LastError)
	assert.False(t, st.Typing())
}

func TestSend_SendsFullHistory(t *testing.T) {
	client := replying("0:\"Sunny\"\n")
	conv := newTestConversation(client)

	require.NoError(t, conv.Send(context.Background(), "Oslo?"))
	require.NoError(t, conv.Send(context.Background(), "Rome?"))

	assert.Equal(t, []agent.ChatMessage{
		{Role: "user", Content: "Oslo?"},
		{Role: "assistant", Content: "Sunny"},
		{Role: "user", Content: "Rome?"},
	}, client.lastCall())
}

func TestSend_EmptyReplyUsesPlaceholder(t *testing.T) {
	conv := newTestConversation(replying("f:{}\ndata: [DONE]\n"))

	require.NoError(t, conv.Send(context.Background(), "hi"))

	st := conv.Snapshot()
	require.Len(t, st.Entries, 2)
	assert.Equal(t, NoResponse, st.Entries[1].Content)
	assert.False(t, st.Entries[1].Failed)
	assert.Empty(t, st.LastError)
}

func TestSend_RejectsBlank(t *testing.T) {
	conv := newTestConversation(replying(""))

	assert.ErrorIs(t, conv.Send(context.Background(), "   \n\t"), ErrEmptyMessage)
	assert.Empty(t, conv.Snapshot().Entries)
}

func TestSend_NonSuccessStatusFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client, err := agent.NewHTTPClient(agent.Settings{Endpoint: srv.URL, RunID: "weatherAgent"})
	require.NoError(t, err)
	conv := newTestConversation(client)

	err = conv.Send(context.Background(), "hi")
	var statusErr *agent.StatusError
	require.ErrorAs(t, err, &statusErr)

	st := conv.Snapshot()
	require.Len(t, st.Entries, 2)
	reply := st.Entries[1]
	assert.True(t, reply.Failed)
	assert.False(t, reply.Streaming)
	assert.Equal(t, "Error: HTTP error! status: 500", reply.Content)
	assert.Equal(t, "HTTP error! status: 500", st.LastError)
	assert.False(t, st.Loading)
	assert.Empty(t, st.InFlightID)
}

func TestSend_ReadErrorMidStreamFails(t *testing.T) {
	boom := errors.New("connection reset by peer")
	client := &fakeAgent{open: func(context.Context) (io.ReadCloser, error) {
		return io.NopCloser(io.MultiReader(
			strings.NewReader("0:\"partial\"\n"),
			iotestErrReader{boom},
		)), nil
	}}
	conv := newTestConversation(client)

	err := conv.Send(context.Background(), "hi")
	assert.ErrorIs(t, err, boom)

	st := conv.Snapshot()
	reply := st.Entries[1]
	assert.True(t, reply.Failed)
	assert.Equal(t, "Error: connection reset by peer", reply.Content)
	assert.Equal(t, "connection reset by peer", st.LastError)
}

type iotestErrReader struct{ err error }

func (r iotestErrReader) Read([]byte) (int, error) { return 0, r.err }

func TestSend_CancelDiscardsAssistantEntry(t *testing.T) {
	client := newPipeAgent()
	conv := newTestConversation(client)

	first := make(chan error, 1)
	go func() { first <- conv.Send(context.Background(), "first") }()
	pw := <-client.w
	pw.Write([]byte("0:\"Done\"\n"))
	pw.Close()
	require.NoError(t, <-first)
	before := len(conv.Snapshot().Entries)

	sub := conv.Subscribe()
	defer sub.Close()

	done := make(chan error, 1)
	go func() { done <- conv.Send(context.Background(), "second") }()

	pw = <-client.w
	go pw.Write([]byte("0:\"Partly\"\n"))
	waitFor(t, sub, patchedTo("Partly"))

	st := conv.Snapshot()
	assert.True(t, st.Loading)
	assert.NotEmpty(t, st.InFlightID)

	require.True(t, conv.Cancel())

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("send did not return after cancel")
	}

	st = conv.Snapshot()
	assert.Len(t, st.Entries, before+1, "only the user entry remains")
	assert.Equal(t, "second", st.Entries[len(st.Entries)-1].Content)
	for _, e := range st.Entries {
		assert.False(t, e.Streaming)
	}
	assert.False(t, st.Loading)
	assert.Empty(t, st.InFlightID)
	assert.Empty(t, st.LastError)
	assert.False(t, conv.Cancel(), "nothing left to cancel")
}

func TestSend_CallerContextCancellation(t *testing.T) {
	started := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("0:\"Rain\"\n"))
		w.(http.Flusher).Flush()
		close(started)
		<-r.Context().Done()
	}))
	defer srv.Close()

	client, err := agent.NewHTTPClient(agent.Settings{Endpoint: srv.URL})
	require.NoError(t, err)
	conv := newTestConversation(client)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- conv.Send(ctx, "hi") }()

	<-started
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("send did not return after cancel")
	}

	st := conv.Snapshot()
	require.Len(t, st.Entries, 1)
	assert.Equal(t, model.RoleUser, st.Entries[0].Role)
	assert.Empty(t, st.LastError)
}

func TestSend_BusyGuard(t *testing.T) {
	client := newPipeAgent()
	conv := newTestConversation(client)

	done := make(chan error, 1)
	go func() { done <- conv.Send(context.Background(), "first") }()
	pw := <-client.w

	assert.True(t, conv.Busy())
	assert.ErrorIs(t, conv.Send(context.Background(), "second"), ErrBusy)
	assert.Len(t, conv.Snapshot().Entries, 2)

	pw.Write([]byte("0:\"ok\"\n"))
	pw.Close()
	require.NoError(t, <-done)

	st := conv.Snapshot()
	require.Len(t, st.Entries, 2)
	assert.Equal(t, "ok", st.Entries[1].Content)
}

func TestSend_TypingSignalSequence(t *testing.T) {
	conv := newTestConversation(replying("0:\"a\"\n0:\"b\"\n"))
	sub := conv.Subscribe()
	defer sub.Close()

	require.NoError(t, conv.Send(context.Background(), "hi"))

	evs := sub.Drain()
	require.NotEmpty(t, evs)

	// user appended while loading and no assistant entry yet
	assert.Equal(t, model.EventTypeAppended, evs[0].Type)
	assert.True(t, evs[0].Status.Typing)

	last := evs[len(evs)-1]
	assert.Equal(t, model.EventTypeStatus, last.Type)
	assert.False(t, last.Status.Loading)
	assert.False(t, last.Status.Typing)

	var contents []string
	streaming := 0
	for _, ev := range evs {
		assert.Equal(t, "conv-test", ev.ConversationID)
		if ev.Type == model.EventTypePatched {
			contents = append(contents, ev.Entry.Content)
		}
		if ev.Status.InFlightID != "" {
			streaming++
			assert.False(t, ev.Status.Typing)
		}
	}
	assert.Equal(t, []string{"a", "ab", "ab"}, contents)
	assert.Positive(t, streaming)
}

func TestClear_DuringSend(t *testing.T) {
	client := newPipeAgent()
	conv := newTestConversation(client)

	done := make(chan error, 1)
	go func() { done <- conv.Send(context.Background(), "hi") }()
	<-client.w

	conv.Clear()
	assert.ErrorIs(t, <-done, context.Canceled)

	st := conv.Snapshot()
	assert.Empty(t, st.Entries)
	assert.False(t, st.Loading)
	assert.Empty(t, st.InFlightID)
	assert.Empty(t, st.LastError)
}

func TestClear_ResetsError(t *testing.T) {
	client := &fakeAgent{open: func(context.Context) (io.ReadCloser, error) {
		return nil, errors.New("dial tcp: connection refused")
	}}
	conv := newTestConversation(client)

	require.Error(t, conv.Send(context.Background(), "hi"))
	require.NotEmpty(t, conv.Snapshot().LastError)

	conv.Clear()
	st := conv.Snapshot()
	assert.Empty(t, st.Entries)
	assert.Empty(t, st.LastError)
}

func TestClose_CancelsAndRejects(t *testing.T) {
	client := newPipeAgent()
	conv := newTestConversation(client)
	sub := conv.Subscribe()

	done := make(chan error, 1)
	go func() { done <- conv.Send(context.Background(), "hi") }()
	<-client.w

	conv.Close()
	assert.ErrorIs(t, <-done, context.Canceled)
	assert.ErrorIs(t, conv.Send(context.Background(), "again"), ErrClosed)

	assert.Len(t, conv.Snapshot().Entries, 1)
	assert.True(t, sub.Closed())
}

func TestWithSink_ReceivesEvents(t *testing.T) {
	var mu sync.Mutex
	var got []model.EventType
	sink := events.SinkFunc(func(e model.Event) {
		mu.Lock()
		got = append(got, e.Type)
		mu.Unlock()
	})
	conv := newTestConversation(replying("0:\"x\"\n"), WithSink(sink))

	require.NoError(t, conv.Send(context.Background(), "hi"))
	conv.Clear()

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, got)
	assert.Equal(t, model.EventTypeAppended, got[0])
	assert.Equal(t, model.EventTypeCleared, got[len(got)-1])
}
