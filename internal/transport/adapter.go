package transport

import (
	einomodel "github.com/cloudwego/eino/components/model"

	"github.com/agentcore-run/agentcore/pkg/core"
)

// Adapter wraps one Eino ToolCallingChatModel behind a protocol-neutral
// interface, together with the model catalog it serves and the Classifier
// its own errors need for retry.
type Adapter interface {
	ID() string
	Models() []core.ModelInfo
	ChatModel() einomodel.ToolCallingChatModel
	Classifier() Classifier
}
