package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"megumi/internal/core/domain"
	"sync"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const writeTimeout = 10 * time.Second

// MessageLookup returns a previously seen message payload, used by the gateway to retry deliveries.
type MessageLookup func(chat domain.JID, id string) (*domain.MessageContent, bool)

// RemoteError is an error reported by the gateway for a request.
type RemoteError struct {
	Op      string
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("gateway %s failed: %s", e.Op, e.Message)
}

// Client is one live session on the gateway.
type Client struct {
	conn     *websocket.Conn
	timeout  time.Duration
	lookup   MessageLookup
	fallback string
	l        zerolog.Logger

	writeMu sync.Mutex

	pendingMu sync.Mutex
	pending   map[string]chan frame

	inbox     chan domain.Event
	events    chan domain.Event
	readDone  chan struct{}
	done      chan struct{}
	closeOnce sync.Once

	self       domain.JID
	registered bool
	version    []int
}

func newClient(conn *websocket.Conn, opts Options) *Client {
	return &Client{
		conn:     conn,
		timeout:  opts.Timeout,
		lookup:   opts.Lookup,
		fallback: opts.FallbackText,
		l:        log.With().Str("component", "gateway").Logger(),
		pending:  make(map[string]chan frame),
		inbox:    make(chan domain.Event),
		events:   make(chan domain.Event),
		readDone: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

func (c *Client) start() {
	go c.readLoop()
	go c.pump()
}

func (c *Client) Events() <-chan domain.Event {
	return c.events
}

func (c *Client) Self() domain.JID {
	return c.self
}

func (c *Client) Registered() bool {
	return c.registered
}

// Version returns the protocol version reported by the gateway.
func (c *Client) Version() []int {
	return c.version
}

func (c *Client) SendMessage(ctx context.Context, to domain.JID, message domain.OutboundMessage) error {
	return c.call(ctx, opSendMessage, sendMessageRequest{JID: to, Message: message}, nil)
}

func (c *Client) RejectCall(ctx context.Context, callID string, from domain.JID) error {
	return c.call(ctx, opRejectCall, rejectCallRequest{CallID: callID, From: from}, nil)
}

func (c *Client) UpdateBlockStatus(ctx context.Context, jid domain.JID, action domain.BlockAction) error {
	return c.call(ctx, opUpdateBlockStatus, blockStatusRequest{JID: jid, Action: action}, nil)
}

func (c *Client) ProfilePictureURL(ctx context.Context, jid domain.JID) (string, error) {
	var resp urlResponse
	if err := c.call(ctx, opProfilePictureURL, jidRequest{JID: jid, Type: "image"}, &resp); err != nil {
		return "", err
	}
	if resp.URL == "" {
		return "", fmt.Errorf("no profile picture for %s", jid)
	}

	return resp.URL, nil
}

func (c *Client) GroupMetadata(ctx context.Context, jid domain.JID) (domain.GroupMetadata, error) {
	var md domain.GroupMetadata
	if err := c.call(ctx, opGroupMetadata, jidRequest{JID: jid}, &md); err != nil {
		return domain.GroupMetadata{}, err
	}

	return md, nil
}

func (c *Client) RequestPairingCode(ctx context.Context, phoneNumber string) (string, error) {
	var resp pairingResponse
	if err := c.call(ctx, opRequestPairingCode, pairingRequest{PhoneNumber: phoneNumber}, &resp); err != nil {
		return "", err
	}

	return resp.Code, nil
}

// Close ends the session. Events not yet consumed are dropped and the event stream is closed.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)

		c.writeMu.Lock()
		_ = c.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
		c.writeMu.Unlock()

		err = c.conn.Close()
	})

	return err
}

// call sends a request and waits for the matching response. resp may be nil when the response carries no data.
func (c *Client) call(ctx context.Context, op string, req, resp any) error {
	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to encode %s request: %w", op, err)
	}

	id, err := uuid.NewV4()
	if err != nil {
		return err
	}

	ch := make(chan frame, 1)
	c.pendingMu.Lock()
	c.pending[id.String()] = ch
	c.pendingMu.Unlock()

	defer func() {
		c.pendingMu.Lock()
		delete(c.pending, id.String())
		c.pendingMu.Unlock()
	}()

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	c.l.Trace().Str("op", op).Str("id", id.String()).Msg("sending request")

	if err := c.write(frame{Type: frameRequest, ID: id.String(), Op: op, Data: data}); err != nil {
		return fmt.Errorf("failed to send %s request: %w", op, err)
	}

	select {
	case f := <-ch:
		if f.Error != "" {
			return &RemoteError{Op: op, Message: f.Error}
		}
		if resp == nil || len(f.Data) == 0 {
			return nil
		}
		if err := json.Unmarshal(f.Data, resp); err != nil {
			return fmt.Errorf("failed to decode %s response: %w", op, err)
		}
		return nil
	case <-c.readDone:
		return domain.ErrSessionClosed
	case <-ctx.Done():
		return fmt.Errorf("%s request: %w", op, ctx.Err())
	}
}

func (c *Client) write(f frame) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	select {
	case <-c.done:
		return domain.ErrSessionClosed
	default:
	}

	if err := c.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}

	return c.conn.WriteJSON(f)
}

// readLoop decodes frames until the connection fails. A failure not caused by Close is reported as a lost
// connection at the end of the event stream.
func (c *Client) readLoop() {
	defer close(c.readDone)
	defer close(c.inbox)

	for {
		var f frame
		if err := c.conn.ReadJSON(&f); err != nil {
			var syntaxErr *json.SyntaxError
			if errors.As(err, &syntaxErr) {
				c.l.Debug().Err(err).Msg("skipping malformed frame")
				continue
			}

			select {
			case <-c.done:
				c.l.Debug().Msg("read loop stopped")
			default:
				c.l.Warn().Err(err).Msg("read error, disconnecting")
				c.emit(domain.ConnectionUpdate{
					State:  domain.Close,
					Reason: domain.ReasonConnectionLost,
					Error:  err.Error(),
				})
			}
			return
		}

		switch f.Type {
		case frameResponse:
			c.resolve(f)
		case frameEvent:
			event, err := decodeEvent(f.Op, f.Data)
			if err != nil {
				c.l.Warn().Err(err).Str("op", f.Op).Msg("could not decode event")
				continue
			}
			c.emit(event)
		case frameRequest:
			go c.answer(f)
		default:
			c.l.Debug().Str("type", f.Type).Msg("unknown frame type")
		}
	}
}

func (c *Client) resolve(f frame) {
	c.pendingMu.Lock()
	ch, ok := c.pending[f.ID]
	c.pendingMu.Unlock()

	if !ok {
		c.l.Debug().Str("id", f.ID).Str("op", f.Op).Msg("response without pending request")
		return
	}

	ch <- f
}

func (c *Client) emit(event domain.Event) {
	select {
	case c.inbox <- event:
	case <-c.done:
	}
}

// pump queues events between the read loop and the consumer, so responses keep flowing while the consumer is
// busy with an earlier event.
func (c *Client) pump() {
	defer close(c.events)

	var queue []domain.Event
	in := c.inbox

	for in != nil || len(queue) > 0 {
		var out chan<- domain.Event
		var next domain.Event
		if len(queue) > 0 {
			out = c.events
			next = queue[0]
		}

		select {
		case event, ok := <-in:
			if !ok {
				in = nil
				continue
			}
			queue = append(queue, event)
		case out <- next:
			queue = queue[1:]
		case <-c.done:
			return
		}
	}
}

// answer handles requests initiated by the gateway.
func (c *Client) answer(req frame) {
	resp := frame{Type: frameResponse, ID: req.ID, Op: req.Op}

	switch req.Op {
	case opGetMessage:
		var q getMessageRequest
		if err := json.Unmarshal(req.Data, &q); err != nil {
			resp.Error = err.Error()
			break
		}

		content := &domain.MessageContent{Conversation: c.fallback}
		if c.lookup != nil {
			if found, ok := c.lookup(q.RemoteJID, q.ID); ok && found != nil {
				content = found
			}
		}

		data, err := json.Marshal(content)
		if err != nil {
			resp.Error = err.Error()
			break
		}
		resp.Data = data
	default:
		resp.Error = fmt.Sprintf("unsupported operation %q", req.Op)
	}

	if err := c.write(resp); err != nil {
		c.l.Debug().Err(err).Str("op", req.Op).Msg("could not answer gateway request")
	}
}
