package domain

import "strings"

// JID is a network address in canonical user@server form.
type JID string

const (
	UserServer      = "s.whatsapp.net"
	LegacyServer    = "c.us"
	GroupServer     = "g.us"
	BroadcastServer = "broadcast"

	StatusBroadcast JID = "status@broadcast"
)

// NormalizeJID strips device and agent suffixes from the user part and maps the legacy user server, so that
// every device of one account resolves to the same address.
func NormalizeJID(raw string) JID {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	user, server, found := strings.Cut(raw, "@")
	if !found {
		return JID(raw)
	}

	user, _, _ = strings.Cut(user, ":")

	if server == LegacyServer {
		server = UserServer
	}

	return JID(user + "@" + server)
}

// NewUserJID builds a user address from a phone number in any formatting.
func NewUserJID(number string) JID {
	return JID(DigitsOnly(number) + "@" + UserServer)
}

func (j JID) User() string {
	user, _, _ := strings.Cut(string(j), "@")
	return user
}

func (j JID) Server() string {
	_, server, _ := strings.Cut(string(j), "@")
	return server
}

func (j JID) IsGroup() bool {
	return j.Server() == GroupServer
}

func (j JID) IsStatusBroadcast() bool {
	return j == StatusBroadcast
}

// Number returns the digits of the user part, without device suffix.
func (j JID) Number() string {
	return DigitsOnly(NormalizeJID(string(j)).User())
}

func (j JID) String() string {
	return string(j)
}

// DigitsOnly removes every non-digit character.
func DigitsOnly(s string) string {
	var sb strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			sb.WriteRune(r)
		}
	}

	return sb.String()
}
