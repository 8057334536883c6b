// Package identity is the Identity Provider collaborator boundary. The
// routing engine never authenticates credentials; it consumes a verified
// identity whose role has already been resolved into a capability set, so no
// role-string comparison happens outside this package.
package identity

import (
	"context"

	id "sged/pkg/domain"
)

// Role is an account's assigned role in the directory.
type Role string

const (
	// RoleAdmin administers circuits and receives finalize broadcasts.
	RoleAdmin Role = "admin"
	// RoleIntake is the front-desk role: creates dossiers and moves them
	// out of stations.
	RoleIntake Role = "intake"
	// RoleStandard processes dossiers at an assigned station.
	RoleStandard Role = "standard"
)

// IsValid checks the role against the supported set.
func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleIntake, RoleStandard:
		return true
	}
	return false
}

// Capabilities is the role resolved into booleans consumed by services.
type Capabilities struct {
	Intake         bool
	ProcessStation bool
	Administer     bool
	ViewClientInfo bool
}

// CapabilitiesOf resolves a role into its capability set. This is the single
// place role semantics live.
func CapabilitiesOf(role Role) Capabilities {
	switch role {
	case RoleAdmin:
		return Capabilities{Intake: true, ProcessStation: true, Administer: true, ViewClientInfo: true}
	case RoleIntake:
		return Capabilities{Intake: true, ViewClientInfo: true}
	case RoleStandard:
		return Capabilities{ProcessStation: true}
	}
	return Capabilities{}
}

// Identity is the caller as seen by services.
type Identity struct {
	ID           id.UserID
	Role         Role
	DisplayName  string
	Capabilities Capabilities
	Active       bool
}

// Capability names for recipient lookups.
type Capability string

const (
	CapabilityAdminister     Capability = "administer"
	CapabilityIntake         Capability = "intake"
	CapabilityProcessStation Capability = "process_station"
)

// Provider resolves verified user IDs into identities and answers recipient
// queries, keeping the engine decoupled from the directory schema.
type Provider interface {
	// Resolve returns the active identity for a user ID.
	// Inactive or unknown accounts yield sentinel.ErrNotFound (wrapped).
	Resolve(ctx context.Context, userID id.UserID) (Identity, error)

	// ListRecipientsWithCapability returns the active identities holding
	// the given capability, e.g. the administer set notified on finalize.
	ListRecipientsWithCapability(ctx context.Context, cap Capability) ([]Identity, error)
}

type identityKey struct{}

// WithContext stores the resolved caller identity for downstream services.
func WithContext(ctx context.Context, ident Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, ident)
}

// FromContext retrieves the resolved caller identity.
func FromContext(ctx context.Context) (Identity, bool) {
	ident, ok := ctx.Value(identityKey{}).(Identity)
	return ident, ok
}
