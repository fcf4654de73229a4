package utils

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// maxSSELineSize is the largest single SSE line accepted (1 MB). The default
// bufio.Scanner limit of 64 KiB is too small for long completion deltas.
const maxSSELineSize = 1 << 20

// SSEScanner reads Server-Sent Events from a reader. It joins multi-line
// data fields, skips comments and blank lines, and treats the OpenAI-style
// [DONE] sentinel as end of stream.
type SSEScanner struct {
	scanner *bufio.Scanner
}

// NewSSEScanner creates a scanner over an open SSE response body.
func NewSSEScanner(reader io.Reader) *SSEScanner {
	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 0, 64*1024), maxSSELineSize)
	return &SSEScanner{scanner: scanner}
}

// Next returns the next event's data payload. Consecutive data lines of one
// event are joined with newlines. Returns io.EOF at end of stream or on the
// [DONE] sentinel.
func (sse *SSEScanner) Next() (string, error) {
	var dataLines []string

	for sse.scanner.Scan() {
		line := sse.scanner.Text()

		if line == "" {
			if len(dataLines) > 0 {
				return strings.Join(dataLines, "\n"), nil
			}
			continue
		}

		if strings.HasPrefix(line, ":") {
			continue
		}

		if data, found := strings.CutPrefix(line, "data:"); found {
			data = strings.TrimSpace(data)
			if data == "[DONE]" {
				return "", io.EOF
			}
			dataLines = append(dataLines, data)
		}
	}

	if err := sse.scanner.Err(); err != nil {
		return "", fmt.Errorf("error scanning SSE stream: %w", err)
	}

	if len(dataLines) > 0 {
		return strings.Join(dataLines, "\n"), nil
	}
	return "", io.EOF
}
