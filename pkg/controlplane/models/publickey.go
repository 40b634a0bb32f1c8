package models

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/ssh"
)

// PublicKey is an authorized key registered for a user.
//
// AuthorizedKey holds the key in authorized_keys format without options or
// comment; Fingerprint is its SHA256 fingerprint and is unique per user.
type PublicKey struct {
	ID            string    `gorm:"primaryKey;size:36" json:"id"`
	UserID        string    `gorm:"not null;size:36;uniqueIndex:idx_user_fingerprint" json:"user_id"`
	Fingerprint   string    `gorm:"not null;size:128;uniqueIndex:idx_user_fingerprint" json:"fingerprint"`
	Type          string    `gorm:"not null;size:64" json:"type"`
	AuthorizedKey string    `gorm:"not null" json:"authorized_key"`
	Comment       string    `gorm:"size:255" json:"comment,omitempty"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName returns the table name for PublicKey.
func (PublicKey) TableName() string {
	return "public_keys"
}

// ParsePublicKey builds a PublicKey from one authorized_keys line. When the
// line carries no comment, comment is used instead.
func ParsePublicKey(line, comment string) (*PublicKey, error) {
	key, lineComment, _, _, err := ssh.ParseAuthorizedKey([]byte(line))
	if err != nil {
		return nil, fmt.Errorf("parse authorized key: %w", err)
	}
	if lineComment != "" && comment == "" {
		comment = lineComment
	}
	return &PublicKey{
		Fingerprint:   ssh.FingerprintSHA256(key),
		Type:          key.Type(),
		AuthorizedKey: strings.TrimSpace(string(ssh.MarshalAuthorizedKey(key))),
		Comment:       comment,
	}, nil
}

// SSHKey decodes the stored key.
func (k *PublicKey) SSHKey() (ssh.PublicKey, error) {
	key, _, _, _, err := ssh.ParseAuthorizedKey([]byte(k.AuthorizedKey))
	if err != nil {
		return nil, fmt.Errorf("decode stored key %s: %w", k.Fingerprint, err)
	}
	return key, nil
}
