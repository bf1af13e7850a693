// Package domain contains core concepts of the presence layer.
// This file defines identities of connections and users.
// No runtime, network, or UI logic should be added here.
package domain

// ConnectionID identifies one live transport session.
type ConnectionID string

// UserID is the identity a client asserts during setup. It is trusted as is.
type UserID string

type Member struct {
	ID UserID `json:"id" validate:"required"`
}
