// Package models defines the records of the sftpbox credential database.
package models

// AllModels returns all GORM models for auto-migration.
func AllModels() []any {
	return []any{
		&User{},
		&PublicKey{},
	}
}
