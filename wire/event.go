package wire

import (
	"encoding/json"

	"github.com/dshills/flowgraph-engine/graph/emit"
)

// ServerFrame is the JSON shape of one server-to-client message (spec
// §6). Only the fields relevant to Type are populated; the rest are
// omitted from the encoded frame.
type ServerFrame struct {
	Type   string      `json:"type"`
	NodeID string      `json:"node_id,omitempty"`
	Token  string      `json:"token,omitempty"`
	Usage  *UsageFrame `json:"usage,omitempty"`
	Result string      `json:"result,omitempty"`
	Error  string      `json:"error,omitempty"`
	Kind   string      `json:"kind,omitempty"`
}

// UsageFrame is the usage object of a node_usage frame.
type UsageFrame struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// ToServerFrame projects an emit.Event onto the wire shape spec §6 defines
// for its Type. execution_error carries no "kind" field on the wire even
// though emit.Event.Kind is set for it internally.
func ToServerFrame(e emit.Event) ServerFrame {
	frame := ServerFrame{Type: string(e.Type), NodeID: e.VertexID}
	switch e.Type {
	case emit.TypeTokenStream:
		frame.Token = e.Token
	case emit.TypeNodeUsage:
		frame.Usage = &UsageFrame{
			InputTokens:  e.Usage.InputTokens,
			OutputTokens: e.Usage.OutputTokens,
			TotalTokens:  e.Usage.TotalTokens,
		}
	case emit.TypeNodeFinish:
		frame.Result = e.Result
	case emit.TypeNodeFailed:
		frame.Error = e.Error
		frame.Kind = e.Kind
	case emit.TypeExecutionError:
		frame.Error = e.Error
	}
	return frame
}

// EncodeEvent renders e as one JSON frame, ready to write as a single
// websocket text message.
func EncodeEvent(e emit.Event) ([]byte, error) {
	return json.Marshal(ToServerFrame(e))
}
