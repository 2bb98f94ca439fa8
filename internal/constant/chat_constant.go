package constant

const (
	ChatMessageRoleUser      = "user"
	ChatMessageRoleAssistant = "assistant"
	ChatMessageRoleSystem    = "system"

	// The client drives a single local conversation.
	DefaultConversationId = "default_session"

	// Backend defaults matching the stock LocalMIND install.
	DefaultModel           = "qwen2:7b-instruct"
	DefaultSummarizerModel = "qwen2.5:0.5b-instruct"
	DefaultSystemPrompt    = "You are a helpful local assistant."
)
