package testutil

import (
	"net/http"

	"sged/internal/identity"
	id "sged/pkg/domain"
)

// WithIdentity attaches a resolved caller identity to the request context.
// This simulates what the auth middleware would do for authenticated
// requests, letting handler tests skip token issuance.
func WithIdentity(req *http.Request, ident identity.Identity) *http.Request {
	return req.WithContext(identity.WithContext(req.Context(), ident))
}

// FakeIdentity builds an active identity with a fresh ID and the
// capabilities of the given role.
func FakeIdentity(role identity.Role, displayName string) identity.Identity {
	return identity.Identity{
		ID:           id.NewUserID(),
		Role:         role,
		DisplayName:  displayName,
		Capabilities: identity.CapabilitiesOf(role),
		Active:       true,
	}
}
