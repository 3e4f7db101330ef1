// Package actor defines the client-side handle to the folio backend and an
// HTTP implementation of it.
package actor

import (
	"context"
	"errors"

	"github.com/foliodev/folio/internal/model"
)

var (
	// ErrUnauthorized is returned when the backend rejects the caller's
	// identity or admin standing.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrTransport wraps failures to reach the backend at all.
	ErrTransport = errors.New("backend unreachable")
	// ErrRejected is returned when the backend refuses a request as invalid.
	ErrRejected = errors.New("request rejected")
)

// Identity is an authenticated caller as seen by the client core. Only the
// principal and the bearer credential are read.
type Identity interface {
	// Principal is the stable string form of the caller, used as a cache key.
	Principal() string
	// Token is the bearer credential presented to the backend.
	Token() string
}

// Actor is a client bound to an optional identity.
type Actor interface {
	AuthorizeAdmin(ctx context.Context, token string) (bool, error)
	CheckAdminStatus(ctx context.Context) (bool, error)
	GetAllMessages(ctx context.Context) ([]model.ContactMessage, error)
	SubmitMessage(ctx context.Context, name, email, message string) error
}

// Factory constructs actors. Authenticated is called once per identity per
// provisioning generation.
type Factory interface {
	Anonymous(ctx context.Context) (Actor, error)
	Authenticated(ctx context.Context, id Identity) (Actor, error)
}

// PrincipalOf returns id's principal, or "" for a nil identity.
func PrincipalOf(id Identity) string {
	if id == nil {
		return ""
	}
	return id.Principal()
}
