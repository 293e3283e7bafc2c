package port

import (
	"context"
	"megumi/internal/core/domain"
)

// Session is one live connection to the chat network.
type Session interface {
	// Events returns the inbound event stream. It is closed when the connection ends.
	Events() <-chan domain.Event
	// Self returns the normalized address of the bot account.
	Self() domain.JID
	// Registered reports whether the credentials belong to a paired device.
	Registered() bool
	SendMessage(ctx context.Context, to domain.JID, message domain.OutboundMessage) error
	RejectCall(ctx context.Context, callID string, from domain.JID) error
	UpdateBlockStatus(ctx context.Context, jid domain.JID, action domain.BlockAction) error
	ProfilePictureURL(ctx context.Context, jid domain.JID) (string, error)
	GroupMetadata(ctx context.Context, jid domain.JID) (domain.GroupMetadata, error)
	RequestPairingCode(ctx context.Context, phoneNumber string) (string, error)
	Close() error
}

// Dialer opens new sessions.
type Dialer interface {
	Dial(ctx context.Context) (Session, error)
}

type CredentialStore interface {
	// Load returns the persisted auth state, or an empty state on first start.
	Load(ctx context.Context) (domain.AuthState, error)
	// Save persists a credentials update before returning.
	Save(ctx context.Context, update domain.CredentialsUpdate) error
}
