package llm

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStubClient_ReturnsCannedResponse(t *testing.T) {
	c := NewStubClient("Northern Cardinal")
	out, err := c.Complete(context.Background(), "what bird is this?")
	require.NoError(t, err)
	assert.Equal(t, "Northern Cardinal", out)
	assert.Equal(t, 1, c.CallCount())
}

func TestFailingStubClient_AlwaysErrors(t *testing.T) {
	c := NewFailingStubClient()
	_, err := c.Complete(context.Background(), "anything")
	assert.Error(t, err)
}

func TestDefaultSanitizer_StripsControlCharsAndCaps(t *testing.T) {
	s := NewDefaultSanitizer(10)
	out := s.Sanitize("abc\x00def\x7fghijklmno")
	assert.NotContains(t, out, "\x00")
	assert.NotContains(t, out, "\x7f")
	assert.LessOrEqual(t, len(out), 10)
}

func TestDefaultSanitizer_PreservesNewlinesAndTabs(t *testing.T) {
	s := NewDefaultSanitizer(0)
	out := s.Sanitize("line one\nline two\ttabbed")
	assert.True(t, strings.Contains(out, "\n"))
	assert.True(t, strings.Contains(out, "\t"))
}
