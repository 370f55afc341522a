package transport

import (
	"encoding/json"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/agentcore-run/agentcore/pkg/core"
)

// toEinoMessages renders a Request's system prompt and ChatMessages into the
// schema.Message sequence Eino chat models expect. A message's Cacheable
// flag (set by AnnotateCache) is not carried into the Eino messages.
func toEinoMessages(req core.Request) []*schema.Message {
	msgs := make([]*schema.Message, 0, len(req.Messages)+1)
	if req.SystemPrompt != "" {
		msgs = append(msgs, &schema.Message{Role: schema.System, Content: req.SystemPrompt})
	}
	for _, m := range req.Messages {
		msgs = append(msgs, toEinoMessage(m))
	}
	return msgs
}

func toEinoMessage(m core.ChatMessage) *schema.Message {
	em := &schema.Message{Role: toEinoRole(m.Role)}
	if m.Role == core.ChatTool {
		em.ToolCallID = m.ToolCallID
	}
	for _, b := range m.Content {
		switch b.Type {
		case core.BlockText:
			em.Content += b.Text
		case core.BlockToolCall:
			if b.ToolCall != nil {
				em.ToolCalls = append(em.ToolCalls, schema.ToolCall{
					ID: b.ToolCall.ID,
					Function: schema.FunctionCall{
						Name:      b.ToolCall.Name,
						Arguments: b.ToolCall.Arguments,
					},
				})
			}
		case core.BlockThinking:
			// Eino has no first-class thinking block; providers that
			// support it read it back out of Extra in their own adapter.
			if em.Extra == nil {
				em.Extra = map[string]any{}
			}
			em.Extra["thinking"] = b.Thinking
			em.Extra["thinking_signature"] = b.Signature
		}
	}
	return em
}

func toEinoRole(r core.ChatRole) schema.RoleType {
	switch r {
	case core.ChatUser:
		return schema.User
	case core.ChatTool:
		return schema.Tool
	default:
		return schema.Assistant
	}
}

// toEinoTools renders tool contracts into Eino's ToolInfo/ParameterInfo
// shape, parsing each tool's JSON Schema parameters the same way the
// session loop's provider layer historically has.
func toEinoTools(tools []core.ToolInfo) []*schema.ToolInfo {
	out := make([]*schema.ToolInfo, 0, len(tools))
	for _, t := range tools {
		var params map[string]*schema.ParameterInfo
		if len(t.Parameters) > 0 {
			params = parseJSONSchemaToParams(t.Parameters)
		}
		out = append(out, &schema.ToolInfo{
			Name:        t.Name,
			Desc:        t.Description,
			ParamsOneOf: schema.NewParamsOneOfByParams(params),
		})
	}
	return out
}

func parseJSONSchemaToParams(raw json.RawMessage) map[string]*schema.ParameterInfo {
	var s struct {
		Properties map[string]struct {
			Type        string `json:"type"`
			Description string `json:"description"`
		} `json:"properties"`
		Required []string `json:"required"`
	}
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil
	}
	required := make(map[string]bool, len(s.Required))
	for _, r := range s.Required {
		required[r] = true
	}
	params := make(map[string]*schema.ParameterInfo, len(s.Properties))
	for name, prop := range s.Properties {
		t := schema.String
		switch prop.Type {
		case "integer":
			t = schema.Integer
		case "number":
			t = schema.Number
		case "boolean":
			t = schema.Boolean
		case "array":
			t = schema.Array
		case "object":
			t = schema.Object
		}
		params[name] = &schema.ParameterInfo{Type: t, Desc: prop.Description, Required: required[name]}
	}
	return params
}

// callOptions translates RequestOptions into Eino's functional options.
// TopP and Stop have no corresponding call option in the Eino version this
// module targets, so they are left for a provider adapter to apply via its
// own Config if it needs them.
func callOptions(o core.RequestOptions) []einomodel.Option {
	var opts []einomodel.Option
	if o.MaxTokens > 0 {
		opts = append(opts, einomodel.WithMaxTokens(o.MaxTokens))
	}
	if o.Temperature > 0 {
		opts = append(opts, einomodel.WithTemperature(float32(o.Temperature)))
	}
	return opts
}
