package store

import (
	"context"
	"encoding/json"
	"fmt"
	"megumi/internal/adapters/file"
	"megumi/internal/core/domain"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

const DefaultMessageLimit = 50

// Memory is an in-memory cache of the chats, groups and recent messages seen on the event stream. Updates are
// last-writer-wins.
type Memory struct {
	mu           sync.RWMutex
	chats        map[domain.JID]domain.Chat
	groups       map[domain.JID]domain.GroupMetadata
	messages     map[domain.JID][]domain.Message
	messageLimit int
}

type snapshot struct {
	Chats    []domain.Chat                       `json:"chats"`
	Groups   map[domain.JID]domain.GroupMetadata `json:"groups"`
	Messages map[domain.JID][]domain.Message     `json:"messages"`
}

func NewMemory(messageLimit int) *Memory {
	if messageLimit <= 0 {
		messageLimit = DefaultMessageLimit
	}

	return &Memory{
		chats:        make(map[domain.JID]domain.Chat),
		groups:       make(map[domain.JID]domain.GroupMetadata),
		messages:     make(map[domain.JID][]domain.Message),
		messageLimit: messageLimit,
	}
}

// Apply folds an inbound event into the cache. Events that carry no chat metadata are ignored.
func (m *Memory) Apply(event domain.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch ev := event.(type) {
	case domain.GroupsUpdate:
		for _, update := range ev.Groups {
			m.applyGroupUpdate(update)
		}
	case domain.ParticipantsUpdate:
		m.applyParticipants(ev)
	case domain.MessagesUpsert:
		for _, msg := range ev.Messages {
			m.applyMessage(msg)
		}
	}
}

func (m *Memory) applyGroupUpdate(update domain.GroupUpdate) {
	md, ok := m.groups[update.ID]
	if !ok {
		md = domain.GroupMetadata{ID: update.ID}
	}

	if update.Subject != nil {
		md.Subject = *update.Subject
	}
	if update.Announce != nil {
		md.Announce = *update.Announce
	}
	if update.Restrict != nil {
		md.Restrict = *update.Restrict
	}

	m.groups[update.ID] = md
}

func (m *Memory) applyParticipants(ev domain.ParticipantsUpdate) {
	md, ok := m.groups[ev.ID]
	if !ok {
		return
	}

	participants := slices.Clone(md.Participants)

	for _, jid := range ev.Participants {
		i := slices.IndexFunc(participants, func(p domain.Participant) bool { return p.ID == jid })

		switch ev.Action {
		case domain.ParticipantAdd:
			if i < 0 {
				participants = append(participants, domain.Participant{ID: jid})
			}
		case domain.ParticipantRemove:
			if i >= 0 {
				participants = slices.Delete(participants, i, i+1)
			}
		case domain.ParticipantPromote:
			if i >= 0 {
				participants[i].Admin = "admin"
			}
		case domain.ParticipantDemote:
			if i >= 0 {
				participants[i].Admin = ""
			}
		}
	}

	md.Participants = participants
	m.groups[ev.ID] = md
}

func (m *Memory) applyMessage(msg domain.Message) {
	id := msg.Chat()
	if id == "" || msg.Key.ID == "" {
		return
	}

	chat, ok := m.chats[id]
	if !ok {
		chat = domain.Chat{ID: id}
	}

	chat.LastMessageID = msg.Key.ID
	if msg.Timestamp > 0 {
		chat.LastMessageAt = time.Unix(msg.Timestamp, 0).UTC()
	}
	if !id.IsGroup() && !msg.Key.FromMe && msg.PushName != "" {
		chat.Name = msg.PushName
	}
	if md, ok := m.groups[id]; ok && md.Subject != "" {
		chat.Name = md.Subject
	}

	m.chats[id] = chat

	if msg.Content == nil {
		return
	}

	recent := append(m.messages[id], msg)
	if len(recent) > m.messageLimit {
		recent = slices.Clone(recent[len(recent)-m.messageLimit:])
	}
	m.messages[id] = recent
}

func (m *Memory) GroupMetadata(jid domain.JID) (domain.GroupMetadata, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	md, ok := m.groups[jid]
	if !ok || md.Subject == "" {
		return domain.GroupMetadata{}, false
	}

	md.Participants = slices.Clone(md.Participants)
	return md, true
}

func (m *Memory) PutGroupMetadata(metadata domain.GroupMetadata) {
	m.mu.Lock()
	defer m.mu.Unlock()

	metadata.Participants = slices.Clone(metadata.Participants)
	m.groups[metadata.ID] = metadata

	chat, ok := m.chats[metadata.ID]
	if !ok {
		chat = domain.Chat{ID: metadata.ID}
	}
	chat.Name = metadata.Subject
	m.chats[metadata.ID] = chat
}

// Chats returns every known chat ordered by id.
func (m *Memory) Chats() []domain.Chat {
	m.mu.RLock()
	defer m.mu.RUnlock()

	chats := make([]domain.Chat, 0, len(m.chats))
	for _, chat := range m.chats {
		chats = append(chats, chat)
	}

	slices.SortFunc(chats, func(a, b domain.Chat) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		default:
			return 0
		}
	})

	return chats
}

// LoadMessage returns the payload of a recent message, used by the session to retry failed deliveries.
func (m *Memory) LoadMessage(chat domain.JID, id string) (*domain.MessageContent, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, msg := range m.messages[chat] {
		if msg.Key.ID == id {
			return msg.Content, true
		}
	}

	return nil, false
}

// WriteToFile stores a snapshot of the cache at path.
func (m *Memory) WriteToFile(path string) error {
	m.mu.RLock()
	snap := snapshot{
		Chats:    make([]domain.Chat, 0, len(m.chats)),
		Groups:   m.groups,
		Messages: m.messages,
	}
	for _, chat := range m.chats {
		snap.Chats = append(snap.Chats, chat)
	}
	buf, err := json.Marshal(snap)
	m.mu.RUnlock()

	if err != nil {
		return fmt.Errorf("failed to encode store snapshot: %w", err)
	}

	return file.WriteFileAtomic(path, buf)
}

// ReadFromFile restores a snapshot written by WriteToFile. A missing file leaves the cache untouched.
func (m *Memory) ReadFromFile(path string) error {
	buf, err := file.ReadFile(path)
	if err != nil {
		return err
	}
	if buf == nil {
		return nil
	}

	var snap snapshot
	if err := json.Unmarshal(buf, &snap); err != nil {
		return fmt.Errorf("failed to decode store snapshot: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, chat := range snap.Chats {
		m.chats[chat.ID] = chat
	}
	for id, md := range snap.Groups {
		m.groups[id] = md
	}
	for id, msgs := range snap.Messages {
		m.messages[id] = msgs
	}

	log.Info().Str("path", path).Int("chats", len(snap.Chats)).Msg("restored store snapshot")

	return nil
}

// RunSnapshots writes a snapshot every interval until ctx is done. Failures are logged and retried on the next
// tick.
func (m *Memory) RunSnapshots(ctx context.Context, path string, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Debug().Msg("stopping store snapshots")
			if err := m.WriteToFile(path); err != nil {
				log.Warn().Err(err).Str("path", path).Msg("failed to write final store snapshot")
			}
			return
		case <-ticker.C:
			if err := m.WriteToFile(path); err != nil {
				log.Warn().Err(err).Str("path", path).Msg("failed to write store snapshot")
				continue
			}
			log.Trace().Str("path", path).Msg("wrote store snapshot")
		}
	}
}
