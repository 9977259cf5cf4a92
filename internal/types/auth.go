package types

import "time"

// UserAuth represents the core user entity in the domain.
type UserAuth struct {
	ID        string    `json:"id"`       // Unique identifier (UUID).
	Username  string    `json:"username"` // Unique display name.
	Email     string    `json:"email"`    // Unique email address used for login.
	Password  string    `json:"-"`        // Hashed password (never exposed).
	Role      string    `json:"role"`     // Site-wide role ('user' in practice; group roles live on memberships).
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
