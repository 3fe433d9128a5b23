package models

import (
	"time"

	"github.com/google/uuid"
)

// UnknownUsername is shown when an audit entry refers to a user
// that can no longer be resolved.
const UnknownUsername = "Unknown User"

// User is owned by the authentication service; the board only
// reads it. PasswordHash is never serialized.
type User struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Username     string    `gorm:"type:text;uniqueIndex;not null" json:"username"`
	Email        string    `gorm:"type:text;uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"type:text" json:"-"`
	CreatedAt    time.Time `gorm:"not null" json:"createdAt"`
	UpdatedAt    time.Time `gorm:"not null" json:"updatedAt"`
}

func (u *User) Ref() *UserRef {
	return &UserRef{ID: u.ID, Username: u.Username, Email: u.Email}
}

// UserRef is the {username, email} display projection.
type UserRef struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
	Email    string    `json:"email"`
	Missing  bool      `json:"missing,omitempty"`
}

// UnknownUser is the fallback projection for an unresolvable user.
func UnknownUser(id uuid.UUID) *UserRef {
	return &UserRef{ID: id, Username: UnknownUsername, Missing: true}
}

type Users []*User
