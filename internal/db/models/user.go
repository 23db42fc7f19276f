package models

import "time"

// User is the minimal principal record the matching core attaches orders to.
// Credential issuance/verification, password hashing, and user CRUD are out
// of scope (spec.md §1) — this model exists only so PersistedOrder.UserID has
// somewhere to point for foreign-key and audit purposes.
type User struct {
	ID        string    `json:"id" db:"id"`
	Username  string    `json:"username" db:"username"`
	Role      string    `json:"role" db:"role"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
