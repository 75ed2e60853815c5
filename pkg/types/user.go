package types

import "time"

// User represents a tenant account that may own cloud credentials
// and accrues metric history. Login and SSO flows are handled by an
// external collaborator; this record is the identity anchor only.
type User struct {
	ID           string    `db:"id" json:"id"`
	Email        string    `db:"email" json:"email"`
	Provider     string    `db:"provider" json:"provider,omitempty"`       // "google", "microsoft" or empty for local accounts
	ProviderID   string    `db:"provider_id" json:"provider_id,omitempty"` // external SSO subject
	PasswordHash string    `db:"password_hash" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}
