package service

import (
	"context"
	"errors"
	"fmt"
	"megumi/internal/core/domain"
	"megumi/internal/core/port"
	"time"

	"github.com/rs/zerolog/log"
)

const failureReply = "failed to process command: %v"

type DispatcherOptions struct {
	Prefixes domain.PrefixSet
	// Timeout bounds a single command handler.
	Timeout time.Duration
	// ReplyOnError answers failed commands with the error instead of staying silent.
	ReplyOnError bool
	Preview      ReplyPreview
}

// Dispatcher turns inbound messages into command invocations and runs the matching handler.
type Dispatcher struct {
	registry port.CommandRegistry
	store    port.ChatStore
	auth     *Authorizer
	opts     DispatcherOptions
}

func NewDispatcher(registry port.CommandRegistry, store port.ChatStore, auth *Authorizer,
	opts DispatcherOptions) *Dispatcher {
	return &Dispatcher{registry: registry, store: store, auth: auth, opts: opts}
}

// Dispatch handles one message. Messages that are no command, or name an unknown one, are ignored.
func (d *Dispatcher) Dispatch(ctx context.Context, session port.Session, message *domain.Message) error {
	if message == nil || message.Content == nil || message.Chat().IsStatusBroadcast() {
		return nil
	}

	if message.Content.Type() == domain.ContentProtocol {
		return nil
	}

	invocation, ok := domain.ParseInvocation(message.Content.Text(), d.opts.Prefixes)
	if !ok {
		return nil
	}

	invocation.Chat = message.Chat()
	invocation.IsGroup = invocation.Chat.IsGroup()
	invocation.Sender = senderOf(session, message)
	invocation.IsOwner = d.auth.IsOwner(invocation.Sender, session.Self())
	invocation.PushName = message.PushName
	invocation.Message = message

	l := log.With().Str("command", invocation.Command).Str("from", message.PushName).Logger()

	if invocation.IsGroup {
		md, err := lookupGroup(ctx, d.store, session, invocation.Chat)
		if err != nil {
			l.Debug().Err(err).Msg("could not fetch group metadata")
			invocation.Subject = invocation.Chat.String()
		} else {
			invocation.Subject = md.Subject
		}
		l = l.With().Str("in", invocation.Subject).Logger()
	}

	l.Info().Msg("received command")

	handler, err := d.registry.Get(invocation.Command)
	if err != nil {
		l.Debug().Msg("no handler for command")
		return nil
	}

	reply := newReplier(session, message, d.opts.Preview)

	handlerCtx := ctx
	if d.opts.Timeout > 0 {
		var cancel context.CancelFunc
		handlerCtx, cancel = context.WithTimeout(ctx, d.opts.Timeout)
		defer cancel()
	}

	err = handler.Respond(handlerCtx, &invocation, reply)
	if err == nil {
		return nil
	}

	if d.opts.ReplyOnError && !errors.Is(err, domain.ErrSendingReplyFailed) {
		if replyErr := reply.Reply(ctx, fmt.Sprintf(failureReply, err)); replyErr != nil {
			l.Warn().Err(replyErr).Msg("failed to send failure reply")
		}
	}

	return fmt.Errorf("command %s failed: %w", invocation.Command, err)
}

// senderOf resolves the author of a message: the bot itself for own messages, the participant in groups and the
// chat partner otherwise.
func senderOf(session port.Session, message *domain.Message) domain.JID {
	switch {
	case message.Key.FromMe:
		return domain.NormalizeJID(session.Self().String())
	case message.Chat().IsGroup():
		participant := message.Participant
		if participant == "" {
			participant = message.Key.Participant
		}
		return domain.NormalizeJID(participant.String())
	default:
		return domain.NormalizeJID(message.Chat().String())
	}
}

// lookupGroup returns group metadata from the cache, asking the session on a miss.
func lookupGroup(ctx context.Context, store port.ChatStore, session port.Session,
	jid domain.JID) (domain.GroupMetadata, error) {
	if store != nil {
		if md, ok := store.GroupMetadata(jid); ok {
			return md, nil
		}
	}

	md, err := session.GroupMetadata(ctx, jid)
	if err != nil {
		return domain.GroupMetadata{}, err
	}

	if md.ID == "" {
		md.ID = jid
	}

	if store != nil {
		store.PutGroupMetadata(md)
	}

	return md, nil
}
