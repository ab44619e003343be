package types

import (
	"strings"

	"github.com/google/uuid"
)

// OwnerRef identifies who a cart belongs to: an authenticated user or an
// anonymous session. Exactly one of the two fields is set.
type OwnerRef struct {
	UserID       *uuid.UUID
	SessionToken *string
}

// UserOwner builds an OwnerRef for an authenticated user.
func UserOwner(userID uuid.UUID) OwnerRef {
	id := userID
	return OwnerRef{UserID: &id}
}

// SessionOwner builds an OwnerRef for an anonymous session token.
func SessionOwner(token string) OwnerRef {
	tok := strings.TrimSpace(token)
	return OwnerRef{SessionToken: &tok}
}

// IsUser reports whether the owner is an authenticated user.
func (o OwnerRef) IsUser() bool {
	return o.UserID != nil && *o.UserID != uuid.Nil
}

// IsSession reports whether the owner is an anonymous session.
func (o OwnerRef) IsSession() bool {
	return o.SessionToken != nil && strings.TrimSpace(*o.SessionToken) != ""
}

// Valid reports whether exactly one identity is populated.
func (o OwnerRef) Valid() bool {
	return o.IsUser() != o.IsSession()
}
