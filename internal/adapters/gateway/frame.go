package gateway

import (
	"bytes"
	"encoding/json"
	"fmt"
	"megumi/internal/core/domain"
)

const (
	frameRequest  = "request"
	frameResponse = "response"
	frameEvent    = "event"
)

const (
	opHello              = "hello"
	opSendMessage        = "send_message"
	opRejectCall         = "reject_call"
	opUpdateBlockStatus  = "update_block_status"
	opProfilePictureURL  = "profile_picture_url"
	opGroupMetadata      = "group_metadata"
	opRequestPairingCode = "request_pairing_code"
	opGetMessage         = "get_message"
)

// frame is one JSON text message exchanged with the session gateway.
type frame struct {
	Type  string          `json:"type"`
	ID    string          `json:"id,omitempty"`
	Op    string          `json:"op"`
	Data  json.RawMessage `json:"data,omitempty"`
	Error string          `json:"error,omitempty"`
}

type helloRequest struct {
	Credentials domain.Credentials         `json:"creds"`
	Keys        map[string]json.RawMessage `json:"keys,omitempty"`
	Mobile      bool                       `json:"mobile"`
	PrintQR     bool                       `json:"printQRInTerminal"`
	Browser     []string                   `json:"browser,omitempty"`
}

type helloResponse struct {
	Registered bool       `json:"registered"`
	Me         domain.JID `json:"me"`
	Version    []int      `json:"version"`
}

type sendMessageRequest struct {
	JID     domain.JID             `json:"jid"`
	Message domain.OutboundMessage `json:"message"`
}

type rejectCallRequest struct {
	CallID string     `json:"callId"`
	From   domain.JID `json:"from"`
}

type blockStatusRequest struct {
	JID    domain.JID         `json:"jid"`
	Action domain.BlockAction `json:"action"`
}

type jidRequest struct {
	JID  domain.JID `json:"jid"`
	Type string     `json:"type,omitempty"`
}

type urlResponse struct {
	URL string `json:"url"`
}

type pairingRequest struct {
	PhoneNumber string `json:"phoneNumber"`
}

type pairingResponse struct {
	Code string `json:"code"`
}

type getMessageRequest struct {
	RemoteJID domain.JID `json:"remoteJid"`
	ID        string     `json:"id"`
}

type connectionPayload struct {
	Connection     domain.ConnectionState `json:"connection,omitempty"`
	LastDisconnect *struct {
		StatusCode int    `json:"statusCode"`
		Error      string `json:"error,omitempty"`
	} `json:"lastDisconnect,omitempty"`
	QR string `json:"qr,omitempty"`
}

type credentialsPayload struct {
	Credentials domain.Credentials         `json:"creds"`
	Keys        map[string]json.RawMessage `json:"keys,omitempty"`
}

// decodeEvent turns the data of an event frame into a domain event.
func decodeEvent(op string, data json.RawMessage) (domain.Event, error) {
	switch domain.EventKind(op) {
	case domain.KindConnectionUpdate:
		var p connectionPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, err
		}
		update := domain.ConnectionUpdate{State: p.Connection, QR: p.QR}
		if p.LastDisconnect != nil {
			update.Reason = domain.DisconnectReason(p.LastDisconnect.StatusCode)
			update.Error = p.LastDisconnect.Error
		}
		return update, nil
	case domain.KindCredentialsUpdate:
		var p credentialsPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, err
		}
		// deleted keys arrive as null
		for key, value := range p.Keys {
			if bytes.Equal(bytes.TrimSpace(value), []byte("null")) {
				p.Keys[key] = nil
			}
		}
		return domain.CredentialsUpdate{Credentials: p.Credentials, Keys: p.Keys}, nil
	case domain.KindCall:
		var calls []domain.Call
		if err := json.Unmarshal(data, &calls); err != nil {
			return nil, err
		}
		return domain.CallEvent{Calls: calls}, nil
	case domain.KindGroupsUpdate:
		var groups []domain.GroupUpdate
		if err := json.Unmarshal(data, &groups); err != nil {
			return nil, err
		}
		return domain.GroupsUpdate{Groups: groups}, nil
	case domain.KindParticipantsUpdate:
		var update domain.ParticipantsUpdate
		if err := json.Unmarshal(data, &update); err != nil {
			return nil, err
		}
		return update, nil
	case domain.KindMessagesUpsert:
		var upsert domain.MessagesUpsert
		if err := json.Unmarshal(data, &upsert); err != nil {
			return nil, err
		}
		return upsert, nil
	default:
		return nil, fmt.Errorf("unknown event %q", op)
	}
}
