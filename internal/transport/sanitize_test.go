package transport

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/agentcore-run/agentcore/pkg/core"
)

func TestSanitizeTextReplacesIllFormedByteSequences(t *testing.T) {
	// CESU-8 style encoding of a lone high surrogate (U+D800): valid UTF-8
	// cannot represent a surrogate code point directly, so this is exactly
	// the ill-formed byte sequence a lone \uD800 JSON escape would produce.
	lone := string([]byte{0xED, 0xA0, 0x80})
	got := SanitizeText("a" + lone + "b")
	require.Equal(t, "a�b", got)
}

func TestSanitizeTextKeepsValidText(t *testing.T) {
	s := "hello 😀 world"
	require.Equal(t, s, SanitizeText(s))
}

func TestSanitizeMessagesDropsEmptyTextBlocks(t *testing.T) {
	msgs := []core.ChatMessage{{
		Role: core.ChatAssistant,
		Content: []core.ContentBlock{
			{Type: core.BlockText, Text: ""},
			{Type: core.BlockText, Text: "hi"},
		},
	}}
	out := SanitizeMessages(msgs, true)
	require.Len(t, out[0].Content, 1)
	require.Equal(t, "hi", out[0].Content[0].Text)
}

func TestSanitizeMessagesDemotesThinkingWithoutSignature(t *testing.T) {
	msgs := []core.ChatMessage{{
		Role: core.ChatAssistant,
		Content: []core.ContentBlock{
			{Type: core.BlockThinking, Thinking: "reasoning...", Signature: ""},
		},
	}}
	out := SanitizeMessages(msgs, true)
	require.Equal(t, core.BlockText, out[0].Content[0].Type)
	require.Equal(t, "reasoning...", out[0].Content[0].Text)
}

func TestSanitizeMessagesKeepsSignedThinking(t *testing.T) {
	msgs := []core.ChatMessage{{
		Role: core.ChatAssistant,
		Content: []core.ContentBlock{
			{Type: core.BlockThinking, Thinking: "reasoning...", Signature: "sig123"},
		},
	}}
	out := SanitizeMessages(msgs, true)
	require.Equal(t, core.BlockThinking, out[0].Content[0].Type)
}

func TestSanitizeMessagesDropsImagesWithoutVisionSupport(t *testing.T) {
	msgs := []core.ChatMessage{{
		Role: core.ChatUser,
		Content: []core.ContentBlock{
			{Type: core.BlockImage, ImageURL: "http://x/y.png"},
			{Type: core.BlockText, Text: "describe this"},
		},
	}}
	out := SanitizeMessages(msgs, false)
	require.Len(t, out[0].Content, 1)
	require.Equal(t, core.BlockText, out[0].Content[0].Type)
}

func TestAnnotateCacheMarksLastUserMessage(t *testing.T) {
	msgs := []core.ChatMessage{
		{Role: core.ChatUser, Content: []core.ContentBlock{{Type: core.BlockText, Text: "one"}}},
		{Role: core.ChatAssistant, Content: []core.ContentBlock{{Type: core.BlockText, Text: "two"}}},
		{Role: core.ChatUser, Content: []core.ContentBlock{{Type: core.BlockText, Text: "three"}}},
	}
	out := AnnotateCache(msgs, true)
	require.False(t, out[0].Cacheable)
	require.True(t, out[2].Cacheable)
}

func TestAnnotateCacheNoopWithoutCachingSupport(t *testing.T) {
	msgs := []core.ChatMessage{{Role: core.ChatUser, Content: []core.ContentBlock{{Type: core.BlockText, Text: "one"}}}}
	out := AnnotateCache(msgs, false)
	require.False(t, out[0].Cacheable)
}
