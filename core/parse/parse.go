// Package parse recovers structured data from raw language-model output.
// Models wrap JSON in prose and markdown fences or emit almost-valid JSON;
// this package extracts the best candidate, repairs it with jsonrepair, and
// only then gives up with a clear error. The routing classifier depends on
// this layered recovery to stay on the fallback route instead of failing
// the run.
package parse

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// StringAs parses model output into T. For T = string the content is
// returned as-is. For every other type the content goes through JSON
// unmarshaling with candidate extraction and automatic repair.
func StringAs[T any](content string) (T, error) {
	var result T

	if _, isString := any(result).(string); isString {
		result = any(strings.TrimSpace(content)).(T)
		return result, nil
	}

	candidate := extractCandidate(content)

	if err := json.Unmarshal([]byte(candidate), &result); err == nil {
		return result, nil
	}

	repaired, repairErr := jsonrepair.JSONRepair(candidate)
	if repairErr != nil {
		return result, fmt.Errorf("content is not parseable as %T: repair failed: %w", result, repairErr)
	}

	if err := json.Unmarshal([]byte(repaired), &result); err != nil {
		return result, fmt.Errorf("content is not parseable as %T even after repair: %w", result, err)
	}
	return result, nil
}

// extractCandidate strips markdown code fences and narrative prose around
// the first JSON object or array in the content. Returns the content
// unchanged when no candidate is found.
func extractCandidate(content string) string {
	trimmed := strings.TrimSpace(content)

	// The fence may sit anywhere in the content, with prose on either side.
	// Keep what is between the first pair of fences, not what precedes them.
	if _, after, found := strings.Cut(trimmed, "```"); found {
		after = strings.TrimPrefix(after, "json")
		if inner, _, closed := strings.Cut(after, "```"); closed {
			after = inner
		}
		trimmed = strings.TrimSpace(after)
	}

	start := strings.IndexAny(trimmed, "{[")
	if start < 0 {
		return trimmed
	}

	opening := trimmed[start]
	closing := byte('}')
	if opening == '[' {
		closing = ']'
	}

	depth := 0
	inString := false
	escaped := false
	for index := start; index < len(trimmed); index++ {
		char := trimmed[index]
		switch {
		case escaped:
			escaped = false
		case char == '\\':
			escaped = true
		case char == '"':
			inString = !inString
		case inString:
		case char == opening:
			depth++
		case char == closing:
			depth--
			if depth == 0 {
				return trimmed[start : index+1]
			}
		}
	}

	// Unbalanced: hand the tail to jsonrepair, which closes truncated JSON.
	return trimmed[start:]
}
