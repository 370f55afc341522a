package transport

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/require"

	"github.com/agentcore-run/agentcore/pkg/core"
)

type fakeReader struct {
	chunks []*schema.Message
	i      int
}

func (f *fakeReader) Recv() (*schema.Message, error) {
	if f.i >= len(f.chunks) {
		return nil, io.EOF
	}
	m := f.chunks[f.i]
	f.i++
	return m, nil
}

func collect(ctx context.Context, r chunkReader) []StreamEvent {
	out := make(chan StreamEvent, 64)
	pump(ctx, r, out)
	var events []StreamEvent
	for e := range out {
		events = append(events, e)
	}
	return events
}

func TestPumpEmitsTextStartDeltaEndAroundAccumulatedContent(t *testing.T) {
	reader := &fakeReader{chunks: []*schema.Message{
		{Content: "Hel"},
		{Content: "Hello"}, // accumulated mode: starts with previous
	}}

	events := collect(context.Background(), reader)

	require.Equal(t, EventStart, events[0].Type)
	require.Equal(t, EventTextStart, events[1].Type)
	require.Equal(t, EventTextDelta, events[2].Type)
	require.Equal(t, "Hel", events[2].Delta)
	require.Equal(t, EventTextDelta, events[3].Type)
	require.Equal(t, "lo", events[3].Delta)

	last := events[len(events)-1]
	require.Equal(t, EventDone, last.Type)

	var sawTextEnd bool
	for _, e := range events {
		if e.Type == EventTextEnd {
			sawTextEnd = true
			require.Equal(t, "Hello", e.Content)
		}
	}
	require.True(t, sawTextEnd)
}

func TestPumpEmitsToolCallSequenceAndParsesArguments(t *testing.T) {
	idx := 0
	reader := &fakeReader{chunks: []*schema.Message{
		{ToolCalls: []schema.ToolCall{{ID: "call_1", Index: &idx, Function: schema.FunctionCall{Name: "read"}}}},
		{ToolCalls: []schema.ToolCall{{Index: &idx, Function: schema.FunctionCall{Arguments: `{"path":"s`}}}},
		{ToolCalls: []schema.ToolCall{{Index: &idx, Function: schema.FunctionCall{Arguments: `rc/main.rs"}`}}}},
	}}

	events := collect(context.Background(), reader)

	var start, delta1, delta2, end *StreamEvent
	for i := range events {
		switch events[i].Type {
		case EventToolCallStart:
			start = &events[i]
		case EventToolCallDelta:
			if delta1 == nil {
				delta1 = &events[i]
			} else {
				delta2 = &events[i]
			}
		case EventToolCallEnd:
			end = &events[i]
		}
	}

	require.NotNil(t, start)
	require.Equal(t, "call_1", start.ToolCallID)
	require.Equal(t, "read", start.ToolCallName)
	require.NotNil(t, delta1)
	require.Equal(t, `{"path":"s`, delta1.Delta)
	require.NotNil(t, delta2)
	require.Equal(t, `rc/main.rs"}`, delta2.Delta)

	require.NotNil(t, end)
	require.Equal(t, "call_1", end.ToolCallID)

	var args map[string]any
	require.NoError(t, json.Unmarshal([]byte(end.ToolCall.Arguments), &args))
	require.Equal(t, "src/main.rs", args["path"])
}

func TestPumpNormalizesFinishReasonAndUsage(t *testing.T) {
	reader := &fakeReader{chunks: []*schema.Message{
		{Content: "ok", ResponseMeta: &schema.ResponseMeta{
			FinishReason: "stop",
			Usage:        &schema.TokenUsage{PromptTokens: 10, CompletionTokens: 5},
		}},
	}}

	events := collect(context.Background(), reader)

	last := events[len(events)-1]
	require.Equal(t, EventDone, last.Type)
	require.Equal(t, core.StopStop, last.StopReason)
	require.Equal(t, 10, last.Usage.Input)
	require.Equal(t, 5, last.Usage.Output)
	require.Equal(t, 15, last.Usage.Total)
}

func TestPumpEmitsErrorEventOnReceiveFailure(t *testing.T) {
	boom := errors.New("boom")
	reader := &erroringReader{err: boom}

	events := collect(context.Background(), reader)
	last := events[len(events)-1]
	require.Equal(t, EventError, last.Type)
	require.ErrorIs(t, last.Err, boom)
}

type erroringReader struct{ err error }

func (e *erroringReader) Recv() (*schema.Message, error) { return nil, e.err }
