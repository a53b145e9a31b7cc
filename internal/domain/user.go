package domain

import (
	"strings"
)

// Role 账号类型
type Role string

const (
	RoleImpaired  Role = "impaired"
	RoleCaretaker Role = "caretaker"
)

func (r Role) Valid() bool {
	return r == RoleImpaired || r == RoleCaretaker
}

// User 用户（users 表）
type User struct {
	ID           int64  `json:"id"`
	Email        string `json:"email"`
	PasswordHash string `json:"-"`
	FirstName    string `json:"firstname"`
	LastName     string `json:"lastname"`
	Role         Role   `json:"user_type"`
}

// NormalizeEmail lower-cases and trims an email; emails are unique case-insensitively.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// UserPatch carries the fields of a profile update. Nil means unchanged.
type UserPatch struct {
	Email        *string
	PasswordHash *string
	FirstName    *string
	LastName     *string
}

func (p UserPatch) Empty() bool {
	return p.Email == nil && p.PasswordHash == nil && p.FirstName == nil && p.LastName == nil
}

// CaretakerPairing caretaker_info 表：每个 impaired 用户最多一条
type CaretakerPairing struct {
	ImpairedUserID  int64 `json:"impaired_user_id"`
	CaretakerUserID int64 `json:"caretaker_user_id"`
}

// Counterpart returns the other side of the pairing for a user of the given role.
func (p CaretakerPairing) Counterpart(role Role) int64 {
	if role == RoleCaretaker {
		return p.ImpairedUserID
	}
	return p.CaretakerUserID
}
