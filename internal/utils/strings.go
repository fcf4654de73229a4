package utils

import (
	"encoding/json"
	"fmt"
)

// JSONToString serializes object to compact JSON. On marshal failure it
// returns a JSON-formatted error string instead of panicking, so the result
// is always safe to embed in a message or log line.
func JSONToString(object any) string {
	encoded, err := json.Marshal(object)
	if err != nil {
		return `{"error": "failed to marshal to JSON: ` + err.Error() + `"}`
	}
	return string(encoded)
}

// TruncateString shortens s to at most maxLen characters, appending a note
// with the original length so readers know data was omitted.
func TruncateString(s string, maxLen int) string {
	if maxLen <= 0 || len(s) <= maxLen {
		return s
	}
	return fmt.Sprintf("%s... (truncated, total: %d chars)", s[:maxLen], len(s))
}
