package assistant

import (
	"encoding/json"
	"regexp"
	"strings"
)

// StreamFilter strips <think> reasoning blocks from streamed model output
// while accumulating the unfiltered response for tool call parsing.
type StreamFilter struct {
	buffer      strings.Builder // partial content that might open a tag
	inThinkTag  bool
	fullContent strings.Builder
}

// NewStreamFilter creates a stream filter
func NewStreamFilter() *StreamFilter {
	return &StreamFilter{}
}

// Process consumes a streamed chunk and returns its displayable portion
func (f *StreamFilter) Process(chunk string) string {
	f.fullContent.WriteString(chunk)

	var display strings.Builder
	for _, char := range chunk {
		if f.inThinkTag {
			f.buffer.WriteRune(char)
			if strings.HasSuffix(f.buffer.String(), "</think>") {
				f.inThinkTag = false
				f.buffer.Reset()
			}
			continue
		}

		f.buffer.WriteRune(char)
		bufStr := f.buffer.String()

		switch {
		case bufStr == "<think>":
			f.inThinkTag = true
			f.buffer.Reset()
		case strings.HasPrefix("<think>", bufStr):
			// partial open tag, keep buffering
		default:
			display.WriteString(bufStr)
			f.buffer.Reset()
		}
	}
	return display.String()
}

// Flush returns remaining buffered content at end of stream
func (f *StreamFilter) Flush() string {
	result := f.buffer.String()
	f.buffer.Reset()
	return result
}

// FullContent returns the complete unfiltered response
func (f *StreamFilter) FullContent() string {
	return f.fullContent.String()
}

// ToolCall is a parsed tool invocation from the model's response
type ToolCall struct {
	Tool   string                 `json:"tool"`
	Params map[string]interface{} `json:"params"`
}

var (
	thinkBlockRe = regexp.MustCompile(`(?s)<think>.*?</think>`)
	toolCallRe   = regexp.MustCompile(`\{\s*"tool"\s*:\s*"([^"]+)"\s*,\s*"params"\s*:\s*(\{[^{}]*\})\s*\}`)
	toolArrayRe  = regexp.MustCompile(`\[\s*(\{[^[\]]*"tool"[^[\]]*\}\s*,?\s*)+\]`)
)

// cleanResponse removes reasoning blocks from a complete response
func cleanResponse(response string) string {
	cleaned := thinkBlockRe.ReplaceAllString(response, "")
	// unclosed open tag: everything after </think> is the real answer
	if idx := strings.Index(cleaned, "</think>"); idx != -1 {
		cleaned = cleaned[idx+len("</think>"):]
	}
	return strings.TrimSpace(cleaned)
}

// parseToolCalls extracts all tool calls from a response, deduplicated,
// plus any leading text meant for display
func parseToolCalls(response string) ([]*ToolCall, string) {
	cleaned := cleanResponse(response)
	var calls []*ToolCall
	seen := make(map[string]bool)

	for _, match := range toolCallRe.FindAllString(cleaned, -1) {
		var call ToolCall
		if err := json.Unmarshal([]byte(match), &call); err != nil || call.Tool == "" {
			continue
		}
		if !seen[match] {
			seen[match] = true
			calls = append(calls, &call)
		}
	}

	// models sometimes batch calls as a JSON array
	if arrayMatch := toolArrayRe.FindString(cleaned); arrayMatch != "" {
		var batch []ToolCall
		if err := json.Unmarshal([]byte(arrayMatch), &batch); err == nil {
			for i := range batch {
				if batch[i].Tool == "" {
					continue
				}
				key, _ := json.Marshal(batch[i])
				if !seen[string(key)] {
					seen[string(key)] = true
					calls = append(calls, &batch[i])
				}
			}
		}
	}

	textBefore := cleaned
	if len(calls) > 0 {
		textBefore = ""
		if loc := toolCallRe.FindStringIndex(cleaned); loc != nil && loc[0] > 0 {
			textBefore = strings.TrimSpace(cleaned[:loc[0]])
		}
	}
	return calls, textBefore
}
