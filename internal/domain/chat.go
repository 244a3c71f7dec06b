package domain

// Role identifies the author of a chat turn
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ChatTurn is one immutable (role, text) pair in a conversation
type ChatTurn struct {
	Role Role
	Text string
}

// UserTurn creates a user chat turn
func UserTurn(text string) ChatTurn {
	return ChatTurn{Role: RoleUser, Text: text}
}

// AssistantTurn creates an assistant chat turn
func AssistantTurn(text string) ChatTurn {
	return ChatTurn{Role: RoleAssistant, Text: text}
}
