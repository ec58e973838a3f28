package agent

// Role identifies the author of a chat message.
type Role string

const (
	// RoleUser marks messages written by the human.
	RoleUser Role = "user"

	// RoleAssistant marks messages produced by the agent. The wire
	// value is "ai" for compatibility with common chat UI clients.
	RoleAssistant Role = "ai"
)

// Valid reports whether the role is a known value.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// Message is one turn of a conversation.
type Message struct {
	Role    Role
	Content string
}
