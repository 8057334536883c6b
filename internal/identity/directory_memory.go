package identity

import (
	"context"
	"fmt"
	"sync"

	id "sged/pkg/domain"
	"sged/pkg/platform/sentinel"
)

// MemoryDirectory is an in-memory Provider for tests and single-process
// wiring.
type MemoryDirectory struct {
	mu       sync.RWMutex
	accounts map[id.UserID]Identity
}

func NewMemoryDirectory() *MemoryDirectory {
	return &MemoryDirectory{accounts: make(map[id.UserID]Identity)}
}

// Put registers an account. Capabilities are derived from the role so the
// two never drift.
func (d *MemoryDirectory) Put(ident Identity) {
	d.mu.Lock()
	defer d.mu.Unlock()
	ident.Capabilities = CapabilitiesOf(ident.Role)
	d.accounts[ident.ID] = ident
}

func (d *MemoryDirectory) Resolve(ctx context.Context, userID id.UserID) (Identity, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	ident, ok := d.accounts[userID]
	if !ok || !ident.Active {
		return Identity{}, fmt.Errorf("resolve user %s: %w", userID, sentinel.ErrNotFound)
	}
	return ident, nil
}

func (d *MemoryDirectory) ListRecipientsWithCapability(ctx context.Context, cap Capability) ([]Identity, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var out []Identity
	for _, ident := range d.accounts {
		if ident.Active && hasCapability(ident.Capabilities, cap) {
			out = append(out, ident)
		}
	}
	return out, nil
}

func hasCapability(caps Capabilities, cap Capability) bool {
	switch cap {
	case CapabilityAdminister:
		return caps.Administer
	case CapabilityIntake:
		return caps.Intake
	case CapabilityProcessStation:
		return caps.ProcessStation
	}
	return false
}
