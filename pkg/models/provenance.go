// Package models contains domain types for the integrity engine.
package models

import (
	"context"
)

// ActorRole is the role the upstream gateway asserted for the caller.
type ActorRole string

const (
	RoleWriter ActorRole = "writer"
	RoleAdmin  ActorRole = "admin"
	RoleSystem ActorRole = "system"
)

// IsValid returns true if the role is one the engine recognizes.
func (r ActorRole) IsValid() bool {
	switch r {
	case RoleWriter, RoleAdmin, RoleSystem:
		return true
	default:
		return false
	}
}

// Actor identifies WHO performed an action. It is recorded on every audit entry.
type Actor struct {
	// ID is the external user identity (writers are looked up by it).
	ID   string
	Role ActorRole
}

// IsAdmin reports whether the actor may perform reviewer and settings operations.
func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin || a.Role == RoleSystem
}

// SystemActor is used for operations the engine performs on its own behalf.
var SystemActor = Actor{ID: "system", Role: RoleSystem}

// actorKey is the context key for storing the acting user.
type actorKey struct{}

// WithActor returns a new context with the actor attached.
func WithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, a)
}

// GetActor retrieves the actor from the context.
// Returns the actor and true if present, otherwise a zero value and false.
func GetActor(ctx context.Context) (Actor, bool) {
	a, ok := ctx.Value(actorKey{}).(Actor)
	return a, ok
}

// ActorOrSystem returns the actor on the context, or SystemActor when there is none.
func ActorOrSystem(ctx context.Context) Actor {
	if a, ok := GetActor(ctx); ok {
		return a
	}
	return SystemActor
}
