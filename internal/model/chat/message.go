package chat

import "strings"

// Role identifies who produced a turn.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Turn is one entry of a conversation transcript.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// UserTurn builds a turn authored by the user.
func UserTurn(content string) Turn {
	return Turn{Role: RoleUser, Content: content}
}

// ModelTurn builds a turn authored by the model.
func ModelTurn(content string) Turn {
	return Turn{Role: RoleModel, Content: content}
}

// Empty reports whether the turn carries no visible content.
func (t Turn) Empty() bool {
	return strings.TrimSpace(t.Content) == ""
}
