package domain

import "time"

// Role identifies the author of a chat message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ChatMessage is one entry of a chat session's history.
// ShowProject asks the UI to render the project at ProjectIndex under the text.
type ChatMessage struct {
	ID           string    `json:"id"`
	Role         Role      `json:"role"`
	Content      string    `json:"content"`
	CreatedAt    time.Time `json:"created_at"`
	ShowProject  bool      `json:"show_project,omitempty"`
	ProjectIndex int       `json:"project_index,omitempty"`
}
