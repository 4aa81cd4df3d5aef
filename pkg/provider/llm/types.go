package llm

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one turn of a chat.
type Message struct {
	Role    string
	Content string
}

// CompletionRequest is a provider-neutral chat request.
type CompletionRequest struct {
	// SystemPrompt, when set, is sent as a leading system message.
	SystemPrompt string

	Messages []Message

	// Temperature of zero leaves the provider default.
	Temperature float64

	// MaxTokens of zero leaves the provider default.
	MaxTokens int
}

// Usage reports token consumption for one completion.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// CompletionResponse is the assistant reply.
type CompletionResponse struct {
	Content string
	Usage   Usage
}
