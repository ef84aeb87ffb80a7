package domain

// Role identifies who produced a chat message.
type Role string

// Chat message roles.
const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry in a conversation transcript.
// The transcript is ordered and append-only for the lifetime of a session.
type Message struct {
	Role    Role
	Content string
}
