package runner

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTextHandler_InputAndPrompt(t *testing.T) {
	var out bytes.Buffer
	h := NewTextHandler(strings.NewReader("  hello  \nbye"), &out, WithPrompt("you> "))

	text, err := h.Input(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "hello", text)

	text, err = h.Input(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "bye", text, "a last line without newline is still read")

	_, err = h.Input(context.Background())
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, "you> you> you> ", out.String())
}

func TestTextHandler_InputCancelled(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()
	h := NewTextHandler(pr, io.Discard)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := h.Input(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestTextHandler_OutputRenders(t *testing.T) {
	var out bytes.Buffer
	h := NewTextHandler(strings.NewReader(""), &out, WithTextHandlerRenderer(func(s string) (string, error) {
		return "<" + s + ">\n\n", nil
	}))

	require.NoError(t, h.Output(context.Background(), Reply{Answer: "hi"}))
	require.NoError(t, h.SystemOutput(context.Background(), "note"))
	assert.Equal(t, "<hi>\n[System] note\n", out.String())
}

func TestJSONHandler_DecodesInputForms(t *testing.T) {
	h := NewJSONHandler(strings.NewReader("\"quoted\"\n\n{\"text\":\"object\"}\nplain text\n"), io.Discard)

	for _, want := range []string{"quoted", "object", "plain text"} {
		got, err := h.Input(context.Background())
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := h.Input(context.Background())
	assert.ErrorIs(t, err, io.EOF)
}
