package llm

import "strings"

type chatRequest struct {
	Model          string            `json:"model"`
	Messages       []wireMessage     `json:"messages"`
	Temperature    float64           `json:"temperature"`
	ResponseFormat map[string]string `json:"response_format,omitempty"`
}

type wireMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []wireChoice `json:"choices"`
	Error   *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// wireChoice tolerates providers that answer with the streaming "delta"
// shape or the legacy "text" field on non-streaming requests.
type wireChoice struct {
	Message      wireReply `json:"message"`
	Delta        wireReply `json:"delta"`
	Text         string    `json:"text"`
	FinishReason string    `json:"finish_reason"`
}

type wireReply struct {
	Content   string `json:"content"`
	Refusal   string `json:"refusal"`
	ToolCalls []struct {
		Function struct {
			Arguments string `json:"arguments"`
		} `json:"function"`
	} `json:"tool_calls"`
}

func (r wireReply) toolArguments() string {
	for _, call := range r.ToolCalls {
		if args := strings.TrimSpace(call.Function.Arguments); args != "" {
			return args
		}
	}
	return ""
}

func (r chatResponse) content() string {
	for _, ch := range r.Choices {
		if s := firstNonEmpty(ch.Message.Content, ch.Delta.Content, ch.Text,
			ch.Message.toolArguments(), ch.Delta.toolArguments()); s != "" {
			return s
		}
	}
	return ""
}

func (r chatResponse) finishReason() string {
	for _, ch := range r.Choices {
		if reason := strings.TrimSpace(ch.FinishReason); reason != "" {
			return reason
		}
	}
	return ""
}

func (r chatResponse) refusal() string {
	for _, ch := range r.Choices {
		if s := firstNonEmpty(ch.Message.Refusal, ch.Delta.Refusal); s != "" {
			return s
		}
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
