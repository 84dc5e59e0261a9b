package llm

import (
	"github.com/llmgate/llmgate/structured"
	"github.com/llmgate/llmgate/types"
)

// ExtractContent pulls the response text out of a canonical response. The
// first non-empty assistant choice wins; any non-empty choice is a fallback.
// An empty response is a retryable failure, not an empty success.
func ExtractContent(resp *ChatResponse) (string, error) {
	if resp != nil {
		for _, choice := range resp.Choices {
			if choice.Message.Role == types.RoleAssistant && choice.Message.Content != "" {
				return choice.Message.Content, nil
			}
		}
		for _, choice := range resp.Choices {
			if choice.Message.Content != "" {
				return choice.Message.Content, nil
			}
		}
	}
	return "", types.NewError(types.ErrValidation, "backend returned no usable content").
		WithRetryable(true)
}

// DecodeValue interprets extracted content under the request's contract. With
// no contract the text passes through untouched; with one, the content must
// parse and validate or the call fails.
func DecodeValue(content string, contract *structured.Contract) (any, error) {
	if contract == nil {
		return content, nil
	}
	return contract.Decode(content)
}
