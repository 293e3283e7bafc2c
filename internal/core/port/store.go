package port

import (
	"megumi/internal/core/domain"
)

// ChatStore caches chat and group metadata observed on the event stream.
type ChatStore interface {
	Apply(event domain.Event)
	GroupMetadata(jid domain.JID) (domain.GroupMetadata, bool)
	PutGroupMetadata(metadata domain.GroupMetadata)
	Chats() []domain.Chat
	LoadMessage(chat domain.JID, id string) (*domain.MessageContent, bool)
}
