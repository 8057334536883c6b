// Package notification is the Notification Sink collaborator boundary. The
// routing engine constructs payloads and hands them to a Dispatcher;
// delivery is best-effort and failures never reach the caller.
package notification

import (
	"context"
	"time"

	id "sged/pkg/domain"
)

// Type tags the notification for client-side rendering and routing.
type Type string

const (
	// TypeDossierPending tells the entry station's assignee a dossier was
	// created and is waiting.
	TypeDossierPending Type = "dossier_pending"
	// TypeDossierIncoming tells the next station's assignee a dossier has
	// been moved to their station.
	TypeDossierIncoming Type = "dossier_incoming"
	// TypeDossierProcessed tells administrators a dossier was finalized.
	TypeDossierProcessed Type = "dossier_processed"
)

// Notification is the payload handed to the sink. Ownership and delivery
// guarantees belong to the sink, not the engine.
type Notification struct {
	Recipient id.UserID
	Type      Type
	Title     string
	Message   string
	Link      string
	CreatedAt time.Time
}

// Sink stores or forwards notifications. Implementations own read state and
// retention.
type Sink interface {
	Deliver(ctx context.Context, n Notification) error
}
