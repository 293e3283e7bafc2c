package domain

import "encoding/json"

type EventKind string

const (
	KindConnectionUpdate   EventKind = "connection.update"
	KindCredentialsUpdate  EventKind = "creds.update"
	KindCall               EventKind = "call"
	KindGroupsUpdate       EventKind = "groups.update"
	KindParticipantsUpdate EventKind = "group-participants.update"
	KindMessagesUpsert     EventKind = "messages.upsert"
)

// Event is one inbound event of a session.
type Event interface {
	Kind() EventKind
}

type ConnectionState string

const (
	Connecting ConnectionState = "connecting"
	Open       ConnectionState = "open"
	Close      ConnectionState = "close"
)

// DisconnectReason is the status code attached to a closed connection.
type DisconnectReason int

const (
	ReasonConnectionClosed    DisconnectReason = 428
	ReasonConnectionLost      DisconnectReason = 408
	ReasonConnectionReplaced  DisconnectReason = 440
	ReasonLoggedOut           DisconnectReason = 401
	ReasonBadSession          DisconnectReason = 500
	ReasonRestartRequired     DisconnectReason = 515
	ReasonMultideviceMismatch DisconnectReason = 411
	ReasonForbidden           DisconnectReason = 403
	ReasonUnavailableService  DisconnectReason = 503
)

func (r DisconnectReason) String() string {
	switch r {
	case ReasonConnectionClosed:
		return "connection closed"
	case ReasonConnectionLost:
		return "connection lost"
	case ReasonConnectionReplaced:
		return "connection replaced"
	case ReasonLoggedOut:
		return "logged out"
	case ReasonBadSession:
		return "bad session"
	case ReasonRestartRequired:
		return "restart required"
	case ReasonMultideviceMismatch:
		return "multidevice mismatch"
	case ReasonForbidden:
		return "forbidden"
	case ReasonUnavailableService:
		return "service unavailable"
	default:
		return "unknown"
	}
}

type ConnectionUpdate struct {
	State  ConnectionState
	Reason DisconnectReason
	Error  string
	QR     string
}

func (ConnectionUpdate) Kind() EventKind { return KindConnectionUpdate }

type CredentialsUpdate struct {
	Credentials Credentials
	// Keys holds changed key material entries. A nil value deletes the entry.
	Keys map[string]json.RawMessage
}

func (CredentialsUpdate) Kind() EventKind { return KindCredentialsUpdate }

type CallStatus string

const (
	CallOffer   CallStatus = "offer"
	CallRinging CallStatus = "ringing"
	CallReject  CallStatus = "reject"
	CallAccept  CallStatus = "accept"
	CallTimeout CallStatus = "timeout"
)

type Call struct {
	ID      string     `json:"id"`
	From    JID        `json:"from"`
	ChatID  JID        `json:"chatId,omitempty"`
	Status  CallStatus `json:"status"`
	IsGroup bool       `json:"isGroup"`
	IsVideo bool       `json:"isVideo"`
}

type CallEvent struct {
	Calls []Call
}

func (CallEvent) Kind() EventKind { return KindCall }

// GroupUpdate carries the changed fields of a group; nil fields are unchanged.
type GroupUpdate struct {
	ID       JID     `json:"id"`
	Subject  *string `json:"subject,omitempty"`
	Announce *bool   `json:"announce,omitempty"`
	Restrict *bool   `json:"restrict,omitempty"`
}

type GroupsUpdate struct {
	Groups []GroupUpdate
}

func (GroupsUpdate) Kind() EventKind { return KindGroupsUpdate }

type ParticipantAction string

const (
	ParticipantAdd     ParticipantAction = "add"
	ParticipantRemove  ParticipantAction = "remove"
	ParticipantPromote ParticipantAction = "promote"
	ParticipantDemote  ParticipantAction = "demote"
)

type ParticipantsUpdate struct {
	ID           JID               `json:"id"`
	Participants []JID             `json:"participants"`
	Action       ParticipantAction `json:"action"`
}

func (ParticipantsUpdate) Kind() EventKind { return KindParticipantsUpdate }

type UpsertType string

const (
	// UpsertNotify marks live delivery, UpsertAppend marks history backfill.
	UpsertNotify UpsertType = "notify"
	UpsertAppend UpsertType = "append"
)

type MessagesUpsert struct {
	Type     UpsertType `json:"type"`
	Messages []Message  `json:"messages"`
}

func (MessagesUpsert) Kind() EventKind { return KindMessagesUpsert }
