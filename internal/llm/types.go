package llm

// Role identifies who authored a conversation message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of a conversation sent to a provider.
type Message struct {
	Role    Role
	Content string
}

// CompletionRequest carries everything a provider needs for one completion.
// Model overrides the provider's configured default when non-empty.
// JSONMode asks for strictly structured JSON output; providers differ in how
// hard they enforce it, so callers still validate the payload.
type CompletionRequest struct {
	Model       string
	Messages    []Message
	MaxTokens   int
	Temperature float64
	JSONMode    bool
}

// CompletionResponse is the provider's answer plus usage accounting.
type CompletionResponse struct {
	Content      string
	InputTokens  int
	OutputTokens int
	Model        string
	FinishReason string
}
