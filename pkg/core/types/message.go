package types

// Role identifies the author of a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one exchange unit of a session's history. Turns are immutable once
// appended to a conversation store.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// UserTurn returns a user turn carrying text.
func UserTurn(text string) Turn {
	return Turn{Role: RoleUser, Content: text}
}

// AssistantTurn returns an assistant turn carrying text.
func AssistantTurn(text string) Turn {
	return Turn{Role: RoleAssistant, Content: text}
}

// Message is one entry of the prompt sent to a chat model.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// MessageFromTurn converts a stored turn into a prompt message.
func MessageFromTurn(t Turn) Message {
	return Message{Role: t.Role, Content: t.Content}
}
