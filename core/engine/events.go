package engine

// FlowEventType enumerates the workflow graph's progress events.
type FlowEventType string

const (
	EventFlowStart     FlowEventType = "flow_start"
	EventNodeStart     FlowEventType = "node_start"
	EventNodeStreaming FlowEventType = "node_streaming"
	EventNodeComplete  FlowEventType = "node_complete"
	EventNodeError     FlowEventType = "node_error"
	EventFlowComplete  FlowEventType = "flow_complete"
	EventFlowError     FlowEventType = "flow_error"
)

// FlowEvent is one entry in the workflow run's ordered event sequence.
type FlowEvent struct {
	Event   FlowEventType `json:"event"`
	NodeID  string        `json:"nodeId,omitempty"`
	Message string        `json:"message,omitempty"`
	Data    any           `json:"data,omitempty"`
	Error   string        `json:"error,omitempty"`
}

// FlowEmitter receives workflow events in scheduling order. A nil emitter is
// valid; events are then dropped.
type FlowEmitter func(event FlowEvent)

func (emit FlowEmitter) send(event FlowEvent) {
	if emit != nil {
		emit(event)
	}
}

// ChatEventType enumerates the conversational graph's progress events.
type ChatEventType string

const (
	EventChatModelStart  ChatEventType = "on_chat_model_start"
	EventChatModelStream ChatEventType = "on_chat_model_stream"
	EventChatModelEnd    ChatEventType = "on_chat_model_end"
	EventChatStatus      ChatEventType = "status"
)

// ChatEvent is one entry in the conversational run's event sequence. Name
// identifies the emitting node.
type ChatEvent struct {
	Name    string        `json:"name"`
	Event   ChatEventType `json:"event"`
	Message string        `json:"message,omitempty"`
	Chunk   string        `json:"chunk,omitempty"`
}

// ChatEmitter receives chat events in emission order. A nil emitter is
// valid; events are then dropped.
type ChatEmitter func(event ChatEvent)

func (emit ChatEmitter) send(event ChatEvent) {
	if emit != nil {
		emit(event)
	}
}
