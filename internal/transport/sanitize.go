package transport

import (
	"strings"

	"github.com/agentcore-run/agentcore/pkg/core"
)

// SanitizeText replaces lone UTF-16 surrogates with the replacement
// character. A surrogate code point can only reach a Go string through an
// ill-formed byte sequence (e.g. a JSON \uD800 escape with no matching low
// surrogate, smuggled through as CESU-8) since valid UTF-8 cannot encode one
// directly; strings.ToValidUTF8 is the stdlib primitive for exactly that
// repair and needs no surrogate-pairing logic of its own.
func SanitizeText(s string) string {
	return strings.ToValidUTF8(s, "�")
}

// SanitizeMessages applies SanitizeText to every text/thinking block, drops
// empty text blocks, demotes a thinking block with no signature to text
// (providers reject resubmitted thinking blocks with no signature), and
// drops image blocks when the target model has no vision support.
func SanitizeMessages(msgs []core.ChatMessage, supportsVision bool) []core.ChatMessage {
	out := make([]core.ChatMessage, 0, len(msgs))
	for _, m := range msgs {
		var blocks []core.ContentBlock
		for _, b := range m.Content {
			switch b.Type {
			case core.BlockText:
				b.Text = SanitizeText(b.Text)
				if b.Text == "" {
					continue
				}
			case core.BlockThinking:
				b.Thinking = SanitizeText(b.Thinking)
				if b.Signature == "" {
					b = core.ContentBlock{Type: core.BlockText, Text: b.Thinking}
				}
			case core.BlockToolCall:
				if b.ToolCall != nil {
					b.ToolCall.Arguments = SanitizeText(b.ToolCall.Arguments)
				}
			case core.BlockImage:
				if !supportsVision {
					continue
				}
			}
			blocks = append(blocks, b)
		}
		m.Content = blocks
		out = append(out, m)
	}
	return out
}

// AnnotateCache sets Cacheable on the last user message when the provider
// supports caching; the system prompt is not marked. This is purely a request-shape decision left protocol-neutral here; concrete
// transports translate Cacheable into their wire-specific cache_control.
func AnnotateCache(msgs []core.ChatMessage, providerSupportsCaching bool) []core.ChatMessage {
	if !providerSupportsCaching {
		return msgs
	}
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == core.ChatUser {
			msgs[i].Cacheable = true
			break
		}
	}
	return msgs
}
