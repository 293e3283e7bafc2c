package domain

import (
	"encoding/json"
	"time"
)

type MessageKey struct {
	RemoteJID   JID    `json:"remoteJid"`
	FromMe      bool   `json:"fromMe"`
	ID          string `json:"id"`
	Participant JID    `json:"participant,omitempty"`
}

type TextMessage struct {
	Text string `json:"text"`
}

type MediaMessage struct {
	Caption  string `json:"caption,omitempty"`
	Mimetype string `json:"mimetype,omitempty"`
	URL      string `json:"url,omitempty"`
}

type ProtocolMessage struct {
	Type int `json:"type"`
}

// MessageContent is the payload of a message. Exactly one of the fields is set for well-formed messages.
type MessageContent struct {
	Conversation string           `json:"conversation,omitempty"`
	ExtendedText *TextMessage     `json:"extendedTextMessage,omitempty"`
	Image        *MediaMessage    `json:"imageMessage,omitempty"`
	Video        *MediaMessage    `json:"videoMessage,omitempty"`
	Protocol     *ProtocolMessage `json:"protocolMessage,omitempty"`
}

type ContentType string

const (
	ContentConversation ContentType = "conversation"
	ContentExtendedText ContentType = "extendedTextMessage"
	ContentImage        ContentType = "imageMessage"
	ContentVideo        ContentType = "videoMessage"
	ContentProtocol     ContentType = "protocolMessage"
	ContentUnknown      ContentType = ""
)

func (c *MessageContent) Type() ContentType {
	switch {
	case c == nil:
		return ContentUnknown
	case c.Conversation != "":
		return ContentConversation
	case c.ExtendedText != nil:
		return ContentExtendedText
	case c.Image != nil:
		return ContentImage
	case c.Video != nil:
		return ContentVideo
	case c.Protocol != nil:
		return ContentProtocol
	default:
		return ContentUnknown
	}
}

// Text extracts the plain text of the payload. Unsupported payload shapes yield an empty string.
func (c *MessageContent) Text() string {
	switch c.Type() {
	case ContentConversation:
		return c.Conversation
	case ContentExtendedText:
		return c.ExtendedText.Text
	case ContentImage:
		return c.Image.Caption
	case ContentVideo:
		return c.Video.Caption
	default:
		return ""
	}
}

type Message struct {
	Key         MessageKey      `json:"key"`
	Participant JID             `json:"participant,omitempty"`
	PushName    string          `json:"pushName,omitempty"`
	Content     *MessageContent `json:"message,omitempty"`
	Timestamp   int64           `json:"messageTimestamp,omitempty"`
}

func (m *Message) Chat() JID {
	return m.Key.RemoteJID
}

type ContactCard struct {
	DisplayName string   `json:"displayName"`
	VCards      []string `json:"vcards"`
}

type LinkPreview struct {
	Title                 string `json:"title,omitempty"`
	Body                  string `json:"body,omitempty"`
	MediaType             int    `json:"mediaType,omitempty"`
	PreviewType           string `json:"previewType,omitempty"`
	RenderLargerThumbnail bool   `json:"renderLargerThumbnail,omitempty"`
	ThumbnailURL          string `json:"thumbnailUrl,omitempty"`
	Thumbnail             []byte `json:"thumbnail,omitempty"`
	SourceURL             string `json:"sourceUrl,omitempty"`
}

// OutboundMessage is the content of a message handed to the session for transmission.
type OutboundMessage struct {
	Text     string       `json:"text,omitempty"`
	Mentions []JID        `json:"mentions,omitempty"`
	Contacts *ContactCard `json:"contacts,omitempty"`
	Preview  *LinkPreview `json:"preview,omitempty"`
	Quoted   *Message     `json:"quoted,omitempty"`
}

type Participant struct {
	ID    JID    `json:"id"`
	Admin string `json:"admin,omitempty"`
}

type GroupMetadata struct {
	ID           JID           `json:"id"`
	Subject      string        `json:"subject"`
	Owner        JID           `json:"owner,omitempty"`
	Announce     bool          `json:"announce,omitempty"`
	Restrict     bool          `json:"restrict,omitempty"`
	Participants []Participant `json:"participants,omitempty"`
}

type Chat struct {
	ID                 JID       `json:"id"`
	Name               string    `json:"name,omitempty"`
	LastMessageID      string    `json:"lastMessageId,omitempty"`
	LastMessageAt      time.Time `json:"lastMessageAt,omitempty"`
	UnreadNotification int       `json:"unread,omitempty"`
}

type BlockAction string

const (
	Block   BlockAction = "block"
	Unblock BlockAction = "unblock"
)

// Credentials is the authentication material of a session. Data is opaque to the bot and owned by the session
// library behind the gateway.
type Credentials struct {
	Registered bool            `json:"registered"`
	Me         JID             `json:"me,omitempty"`
	Data       json.RawMessage `json:"data,omitempty"`
}

// AuthState is everything the credential store persists for one session.
type AuthState struct {
	Credentials Credentials                `json:"creds"`
	Keys        map[string]json.RawMessage `json:"keys,omitempty"`
}

// Invocation is a command parsed from one inbound message.
type Invocation struct {
	Prefix   string
	Command  string
	Args     string
	Sender   JID
	Chat     JID
	IsGroup  bool
	IsOwner  bool
	PushName string
	Subject  string
	Message  *Message
}

type Author string

const (
	User   Author = "user"
	System Author = "system"
)

type Prompt struct {
	Prompt string
	Author Author
}

type ModelResponse struct {
	Response string
	Metadata ResponseMetadata
}

type ResponseMetadata struct {
	Model            string
	CompletionTokens int
	TotalTokens      int
}

// QueryParam is one ordered query parameter of a reply api request.
type QueryParam struct {
	Key   string
	Value string
}
