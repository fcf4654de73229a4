package state

// Role values for conversation messages.
const (
	RoleHuman  = "human"
	RoleAI     = "ai"
	RoleSystem = "system"
)

// Message is one entry in the conversation transcript.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// SearchResult is one raw result recorded by the search handler.
type SearchResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Content string `json:"content"`
}

// Channel names. The set is fixed; an Update naming anything else is a
// programming error and is rejected by Store.Apply.
const (
	// ChannelMessages is the append-only conversation transcript.
	ChannelMessages = "messages"

	// ChannelRouteType holds the most recent routing decision, last write wins.
	ChannelRouteType = "routeType"

	// ChannelSearchResults holds the latest raw search results, replaced whole.
	ChannelSearchResults = "searchResults"

	// ChannelNodeOutputs is a per-node-id keyed map, merged shallowly: new ids
	// are added, an existing id's record is overwritten.
	ChannelNodeOutputs = "nodeOutputs"
)

// Update is a partial state update: channel name to incoming value. Each
// channel's reducer decides how the value combines with what is already
// stored. Applying an update to one channel never reads another; channels
// are independent by construction.
type Update map[string]any

// Reducer combines a channel's current value with an incoming update value.
// Reducers must be pure: no I/O, no reads of other channels.
type Reducer func(current, incoming any) any

type channelDef struct {
	initial func() any
	reduce  Reducer
}

func defaultChannels() map[string]channelDef {
	return map[string]channelDef{
		ChannelMessages: {
			initial: func() any { return []Message(nil) },
			reduce:  appendMessages,
		},
		ChannelRouteType: {
			initial: func() any { return "" },
			reduce:  lastWriteWins,
		},
		ChannelSearchResults: {
			initial: func() any { return []SearchResult(nil) },
			reduce:  lastWriteWins,
		},
		ChannelNodeOutputs: {
			initial: func() any { return map[string]map[string]any{} },
			reduce:  mergeNodeOutputs,
		},
	}
}

// appendMessages appends the incoming message(s) to the transcript.
// Accepts a single Message or a []Message.
func appendMessages(current, incoming any) any {
	transcript, _ := current.([]Message)
	switch value := incoming.(type) {
	case Message:
		return append(transcript, value)
	case []Message:
		return append(transcript, value...)
	default:
		return transcript
	}
}

func lastWriteWins(_, incoming any) any {
	return incoming
}

// mergeNodeOutputs merges incoming per-node records into the existing map.
// New node ids are added; an existing id's whole record is replaced.
func mergeNodeOutputs(current, incoming any) any {
	existing, _ := current.(map[string]map[string]any)
	if existing == nil {
		existing = make(map[string]map[string]any)
	}
	records, ok := incoming.(map[string]map[string]any)
	if !ok {
		return existing
	}
	merged := make(map[string]map[string]any, len(existing)+len(records))
	for nodeID, record := range existing {
		merged[nodeID] = record
	}
	for nodeID, record := range records {
		merged[nodeID] = record
	}
	return merged
}
