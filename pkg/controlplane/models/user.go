package models

import (
	"fmt"
	"regexp"
	"time"
)

// usernamePattern matches names OpenSSH clients can send without quoting.
var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_][a-zA-Z0-9_.-]{0,63}$`)

// User is an account allowed to open SFTP sessions.
//
// A user authenticates with its password (bcrypt hash) or with any of its
// registered public keys. Disabled users are rejected by every method.
type User struct {
	ID           string     `gorm:"primaryKey;size:36" json:"id"`
	Username     string     `gorm:"uniqueIndex;not null;size:64" json:"username"`
	PasswordHash string     `json:"-"`
	Enabled      bool       `gorm:"default:true" json:"enabled"`
	CreatedAt    time.Time  `gorm:"autoCreateTime" json:"created_at"`
	LastLogin    *time.Time `json:"last_login,omitempty"`

	PublicKeys []PublicKey `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"public_keys,omitempty"`
}

// TableName returns the table name for User.
func (User) TableName() string {
	return "users"
}

// HasPassword reports whether password authentication is possible for u.
func (u *User) HasPassword() bool {
	return u.PasswordHash != ""
}

// Validate checks the fields a user needs before it is stored.
func (u *User) Validate() error {
	if u.Username == "" {
		return fmt.Errorf("username is required")
	}
	if !usernamePattern.MatchString(u.Username) {
		return fmt.Errorf("invalid username %q", u.Username)
	}
	return nil
}
