package gateway

import (
	"context"
	"encoding/json"
	"megumi/internal/core/domain"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticStore struct {
	state domain.AuthState
}

func (s staticStore) Load(context.Context) (domain.AuthState, error) {
	return s.state, nil
}

func (s staticStore) Save(context.Context, domain.CredentialsUpdate) error {
	return nil
}

// fakeGateway answers hello and hands every further frame to handle.
type fakeGateway struct {
	t      *testing.T
	hello  chan helloRequest
	handle func(conn *websocket.Conn, f frame)
}

func (g *fakeGateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.t.Errorf("upgrade: %v", err)
		return
	}
	defer conn.Close()

	for {
		var f frame
		if err := conn.ReadJSON(&f); err != nil {
			return
		}

		if f.Op == opHello {
			var req helloRequest
			_ = json.Unmarshal(f.Data, &req)
			if g.hello != nil {
				g.hello <- req
			}
			data, _ := json.Marshal(helloResponse{Registered: true, Me: "628111:7@s.whatsapp.net", Version: []int{2, 3000, 1}})
			_ = conn.WriteJSON(frame{Type: frameResponse, ID: f.ID, Op: f.Op, Data: data})
			continue
		}

		if g.handle != nil {
			g.handle(conn, f)
		}
	}
}

func dial(t *testing.T, g *fakeGateway, opts Options) *Client {
	t.Helper()

	server := httptest.NewServer(g)
	t.Cleanup(server.Close)

	opts.URL = "ws" + strings.TrimPrefix(server.URL, "http")
	if opts.Timeout == 0 {
		opts.Timeout = 2 * time.Second
	}

	store := staticStore{state: domain.AuthState{
		Credentials: domain.Credentials{Registered: true, Me: "628111@s.whatsapp.net"},
		Keys:        map[string]json.RawMessage{"pre-key:1": json.RawMessage(`"k"`)},
	}}

	session, err := NewDialer(store, opts).Dial(t.Context())
	require.NoError(t, err)
	t.Cleanup(func() { _ = session.Close() })

	return session.(*Client)
}

func nextEvent(t *testing.T, c *Client) domain.Event {
	t.Helper()

	select {
	case event, ok := <-c.Events():
		require.True(t, ok, "event stream closed")
		return event
	case <-time.After(2 * time.Second):
		t.Fatal("no event received")
		return nil
	}
}

func TestDial_Hello(t *testing.T) {
	hello := make(chan helloRequest, 1)
	c := dial(t, &fakeGateway{t: t, hello: hello}, Options{Mobile: true})

	req := <-hello
	assert.True(t, req.Credentials.Registered)
	assert.True(t, req.Mobile)
	assert.Contains(t, req.Keys, "pre-key:1")

	assert.True(t, c.Registered())
	assert.Equal(t, domain.JID("628111@s.whatsapp.net"), c.Self())
	assert.Equal(t, []int{2, 3000, 1}, c.Version())
}

func TestClient_Requests(t *testing.T) {
	sent := make(chan sendMessageRequest, 1)

	c := dial(t, &fakeGateway{t: t, handle: func(conn *websocket.Conn, f frame) {
		resp := frame{Type: frameResponse, ID: f.ID, Op: f.Op}
		switch f.Op {
		case opSendMessage:
			var req sendMessageRequest
			_ = json.Unmarshal(f.Data, &req)
			sent <- req
		case opProfilePictureURL:
			resp.Data, _ = json.Marshal(urlResponse{URL: "https://pp/x.jpg"})
		case opRequestPairingCode:
			resp.Data, _ = json.Marshal(pairingResponse{Code: "ABCD1234"})
		case opGroupMetadata:
			resp.Error = "item-not-found"
		}
		_ = conn.WriteJSON(resp)
	}}, Options{})

	err := c.SendMessage(t.Context(), "1203@g.us", domain.OutboundMessage{Text: "hi"})
	require.NoError(t, err)
	req := <-sent
	assert.Equal(t, domain.JID("1203@g.us"), req.JID)
	assert.Equal(t, "hi", req.Message.Text)

	url, err := c.ProfilePictureURL(t.Context(), "1203@g.us")
	require.NoError(t, err)
	assert.Equal(t, "https://pp/x.jpg", url)

	code, err := c.RequestPairingCode(t.Context(), "628111")
	require.NoError(t, err)
	assert.Equal(t, "ABCD1234", code)

	_, err = c.GroupMetadata(t.Context(), "1203@g.us")
	var remote *RemoteError
	require.ErrorAs(t, err, &remote)
	assert.Equal(t, opGroupMetadata, remote.Op)
	assert.Equal(t, "item-not-found", remote.Message)
}

func TestClient_RequestTimeout(t *testing.T) {
	c := dial(t, &fakeGateway{t: t}, Options{Timeout: 100 * time.Millisecond})

	err := c.RejectCall(t.Context(), "call-1", "628222@s.whatsapp.net")
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestClient_EventsAndConnectionLoss(t *testing.T) {
	g := &fakeGateway{t: t}
	g.handle = func(conn *websocket.Conn, f frame) {
		if f.Op != opRejectCall {
			return
		}
		upsert, _ := json.Marshal(domain.MessagesUpsert{
			Type: domain.UpsertNotify,
			Messages: []domain.Message{{
				Key:     domain.MessageKey{RemoteJID: "628222@s.whatsapp.net", ID: "m1"},
				Content: &domain.MessageContent{Conversation: "#menu"},
			}},
		})
		_ = conn.WriteJSON(frame{Type: frameEvent, Op: string(domain.KindMessagesUpsert), Data: upsert})
		_ = conn.WriteJSON(frame{Type: frameEvent, Op: string(domain.KindConnectionUpdate), Data: json.RawMessage(`{"connection":"open"}`)})
		_ = conn.WriteJSON(frame{Type: frameResponse, ID: f.ID, Op: f.Op})
		_ = conn.Close()
	}

	c := dial(t, g, Options{})

	// the gateway drops the connection right after answering
	_ = c.RejectCall(t.Context(), "call-1", "628222@s.whatsapp.net")

	upsert, ok := nextEvent(t, c).(domain.MessagesUpsert)
	require.True(t, ok)
	require.Len(t, upsert.Messages, 1)
	assert.Equal(t, "#menu", upsert.Messages[0].Content.Text())

	open, ok := nextEvent(t, c).(domain.ConnectionUpdate)
	require.True(t, ok)
	assert.Equal(t, domain.Open, open.State)

	lost, ok := nextEvent(t, c).(domain.ConnectionUpdate)
	require.True(t, ok)
	assert.Equal(t, domain.Close, lost.State)
	assert.Equal(t, domain.ReasonConnectionLost, lost.Reason)

	select {
	case _, ok := <-c.Events():
		assert.False(t, ok, "stream ends after the loss")
	case <-time.After(2 * time.Second):
		t.Fatal("event stream not closed")
	}
}

func TestClient_AnswersGetMessage(t *testing.T) {
	answers := make(chan frame, 2)

	g := &fakeGateway{t: t}
	g.handle = func(conn *websocket.Conn, f frame) {
		if f.Type == frameResponse && f.Op == opGetMessage {
			answers <- f
			return
		}
		if f.Op == opRejectCall {
			known, _ := json.Marshal(getMessageRequest{RemoteJID: "628222@s.whatsapp.net", ID: "known"})
			unknown, _ := json.Marshal(getMessageRequest{RemoteJID: "628222@s.whatsapp.net", ID: "unknown"})
			_ = conn.WriteJSON(frame{Type: frameRequest, ID: "r1", Op: opGetMessage, Data: known})
			_ = conn.WriteJSON(frame{Type: frameRequest, ID: "r2", Op: opGetMessage, Data: unknown})
			_ = conn.WriteJSON(frame{Type: frameResponse, ID: f.ID, Op: f.Op})
		}
	}

	lookup := func(chat domain.JID, id string) (*domain.MessageContent, bool) {
		if id == "known" {
			return &domain.MessageContent{Conversation: "cached"}, true
		}
		return nil, false
	}

	c := dial(t, g, Options{Lookup: lookup, FallbackText: "megumi"})
	require.NoError(t, c.RejectCall(t.Context(), "call-1", "628222@s.whatsapp.net"))

	got := map[string]string{}
	for range 2 {
		select {
		case f := <-answers:
			var content domain.MessageContent
			require.NoError(t, json.Unmarshal(f.Data, &content))
			got[f.ID] = content.Conversation
		case <-time.After(2 * time.Second):
			t.Fatal("missing get_message answer")
		}
	}

	assert.Equal(t, map[string]string{"r1": "cached", "r2": "megumi"}, got)
}
