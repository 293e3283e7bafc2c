package service

import (
	"context"
	"errors"
	"megumi/internal/core/domain"
	"megumi/internal/core/port"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"
)

type MockSession struct {
	mock.Mock
	events     chan domain.Event
	self       domain.JID
	registered bool

	closeMu sync.Mutex
	closed  int
}

func newMockSession(events ...domain.Event) *MockSession {
	ch := make(chan domain.Event, len(events))
	for _, event := range events {
		ch <- event
	}

	return &MockSession{events: ch, self: "628000@s.whatsapp.net", registered: true}
}

func (m *MockSession) Events() <-chan domain.Event { return m.events }
func (m *MockSession) Self() domain.JID { return m.self }
func (m *MockSession) Registered() bool { return m.registered }

func (m *MockSession) SendMessage(ctx context.Context, to domain.JID, message domain.OutboundMessage) error {
	return m.Called(ctx, to, message).Error(0)
}

func (m *MockSession) RejectCall(ctx context.Context, callID string, from domain.JID) error {
	return m.Called(ctx, callID, from).Error(0)
}

func (m *MockSession) UpdateBlockStatus(ctx context.Context, jid domain.JID, action domain.BlockAction) error {
	return m.Called(ctx, jid, action).Error(0)
}

func (m *MockSession) ProfilePictureURL(ctx context.Context, jid domain.JID) (string, error) {
	args := m.Called(ctx, jid)
	return args.String(0), args.Error(1)
}

func (m *MockSession) GroupMetadata(ctx context.Context, jid domain.JID) (domain.GroupMetadata, error) {
	args := m.Called(ctx, jid)
	md, _ := args.Get(0).(domain.GroupMetadata)
	return md, args.Error(1)
}

func (m *MockSession) RequestPairingCode(ctx context.Context, phoneNumber string) (string, error) {
	args := m.Called(ctx, phoneNumber)
	return args.String(0), args.Error(1)
}

func (m *MockSession) Close() error {
	m.closeMu.Lock()
	defer m.closeMu.Unlock()

	m.closed++
	return nil
}

func (m *MockSession) closeCount() int {
	m.closeMu.Lock()
	defer m.closeMu.Unlock()

	return m.closed
}

var errNoSession = errors.New("no session left")

// fakeDialer hands out the given sessions in order and fails afterwards.
type fakeDialer struct {
	mu       sync.Mutex
	sessions []*MockSession
	dials    int
}

func (d *fakeDialer) Dial(context.Context) (port.Session, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.dials++
	if len(d.sessions) == 0 {
		return nil, errNoSession
	}

	session := d.sessions[0]
	d.sessions = d.sessions[1:]

	return session, nil
}

func (d *fakeDialer) dialCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.dials
}

type fakeOperator struct {
	mu       sync.Mutex
	answers  []string
	prompts  int
	statuses []string
	qrs      []string
	codes    []string
}

func (o *fakeOperator) Prompt(context.Context, string) (string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.prompts++
	if len(o.answers) == 0 {
		return "", errors.New("no input")
	}

	answer := o.answers[0]
	o.answers = o.answers[1:]

	return answer, nil
}

func (o *fakeOperator) Status(message string) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.statuses = append(o.statuses, message)
}

func (o *fakeOperator) ShowQR(code string) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.qrs = append(o.qrs, code)
}

func (o *fakeOperator) ShowPairingCode(code string) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.codes = append(o.codes, code)
}

type MockCredentialStore struct {
	mock.Mock
}

func (m *MockCredentialStore) Load(ctx context.Context) (domain.AuthState, error) {
	args := m.Called(ctx)
	state, _ := args.Get(0).(domain.AuthState)
	return state, args.Error(1)
}

func (m *MockCredentialStore) Save(ctx context.Context, update domain.CredentialsUpdate) error {
	return m.Called(ctx, update).Error(0)
}

// fakeStore keeps group metadata only.
type fakeStore struct {
	mu      sync.Mutex
	groups  map[domain.JID]domain.GroupMetadata
	applied []domain.EventKind
}

func newFakeStore(groups ...domain.GroupMetadata) *fakeStore {
	s := &fakeStore{groups: make(map[domain.JID]domain.GroupMetadata)}
	for _, md := range groups {
		s.groups[md.ID] = md
	}
	return s
}

func (s *fakeStore) Apply(event domain.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.applied = append(s.applied, event.Kind())
}

func (s *fakeStore) GroupMetadata(jid domain.JID) (domain.GroupMetadata, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	md, ok := s.groups[jid]
	return md, ok
}

func (s *fakeStore) PutGroupMetadata(md domain.GroupMetadata) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.groups[md.ID] = md
}

func (s *fakeStore) Chats() []domain.Chat {
	return []domain.Chat{{ID: "628111@s.whatsapp.net"}, {ID: "1203@g.us"}}
}

func (s *fakeStore) LoadMessage(domain.JID, string) (*domain.MessageContent, bool) {
	return nil, false
}

type MockCommand struct {
	mock.Mock
	name string
}

func (m *MockCommand) Respond(ctx context.Context, invocation *domain.Invocation, reply port.Replier) error {
	return m.Called(ctx, invocation, reply).Error(0)
}

func (m *MockCommand) GetCommand() string {
	return m.name
}

func noSleep(context.Context, time.Duration) error {
	return nil
}

func textMessage(chat domain.JID, id, text string) domain.Message {
	return domain.Message{
		Key:      domain.MessageKey{RemoteJID: chat, ID: id},
		PushName: "Rin",
		Content:  &domain.MessageContent{Conversation: text},
	}
}
