// Package models holds the server-side domain types shared by repositories,
// services and transports.
package models

import "time"

// User is a portal account as held by the credential store.
// PasswordHash is a bcrypt digest and never leaves the server.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	CreatedAt    time.Time
}

// PublicUser is the subset of User that may be returned to clients.
type PublicUser struct {
	ID        string    `json:"userId"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"createdAt,omitzero"`
}

// Public strips the password hash.
func (u *User) Public() PublicUser {
	return PublicUser{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
	}
}
