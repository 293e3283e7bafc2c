package service

import (
	"context"
	"fmt"
	"megumi/internal/core/domain"
	"megumi/internal/core/port"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc/panics"
	"github.com/sourcegraph/conc/pool"
)

const (
	callWarning = "Sorry @%s\nA call was detected, you have been blocked automatically\n" +
		"Please contact the owner if it was an accident :D"
	groupClosed     = "Group has been Closed"
	groupOpened     = "Group is opened"
	welcomeMessage  = "Welcome @%s to \"%s\""
	farewellMessage = "@%s Leaving From \"%s\""

	previewTypeNone  = "NONE"
	previewMediaType = 1
)

type EventOptions struct {
	OwnerNumber      string
	OwnerName        string
	FallbackImageURL string
	Description      string
	SourceURL        string
	// CallRejectPause is the wait between rejecting a call and warning the caller.
	CallRejectPause time.Duration
	// CallBlockDelay is the wait between the owner contact card and the block.
	CallBlockDelay time.Duration
	// Workers bounds the messages of one batch dispatched at the same time.
	Workers int
	// AnnounceEveryUpdate sends a status message for group updates without an announce change too, reporting
	// them as opened.
	AnnounceEveryUpdate bool
}

// MessageDispatcher handles a single inbound message.
type MessageDispatcher interface {
	Dispatch(ctx context.Context, session port.Session, message *domain.Message) error
}

// Events holds the handlers of every event kind except connection updates.
type Events struct {
	creds      port.CredentialStore
	store      port.ChatStore
	dispatcher MessageDispatcher
	opts       EventOptions
	sleep      func(ctx context.Context, d time.Duration) error
}

func NewEvents(creds port.CredentialStore, store port.ChatStore, dispatcher MessageDispatcher,
	opts EventOptions) *Events {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.FallbackImageURL == "" {
		opts.FallbackImageURL = domain.DefaultFallbackImage
	}

	return &Events{creds: creds, store: store, dispatcher: dispatcher, opts: opts, sleep: sleep}
}

// Register adds the handlers to router.
func (e *Events) Register(router *Router) {
	router.Handle(domain.KindCredentialsUpdate, e.HandleCredentials)
	router.Handle(domain.KindCall, e.HandleCall)
	router.Handle(domain.KindGroupsUpdate, e.HandleGroups)
	router.Handle(domain.KindParticipantsUpdate, e.HandleParticipants)
	router.Handle(domain.KindMessagesUpsert, e.HandleMessages)
}

// HandleCredentials persists the update before the next event is routed.
func (e *Events) HandleCredentials(ctx context.Context, _ port.Session, event domain.Event) error {
	update, err := eventAs[domain.CredentialsUpdate](event)
	if err != nil {
		return err
	}

	if err := e.creds.Save(ctx, update); err != nil {
		return fmt.Errorf("failed to save credentials: %w", err)
	}

	log.Debug().Int("keys", len(update.Keys)).Msg("saved credentials")

	return nil
}

// HandleCall rejects direct call offers, warns the caller and blocks them. Steps are not rolled back when a
// later one fails.
func (e *Events) HandleCall(ctx context.Context, session port.Session, event domain.Event) error {
	callEvent, err := eventAs[domain.CallEvent](event)
	if err != nil {
		return err
	}

	for _, call := range callEvent.Calls {
		if call.Status != domain.CallOffer || call.IsGroup {
			continue
		}

		caller := domain.NormalizeJID(call.From.String())
		l := log.With().Str("call", call.ID).Str("from", caller.String()).Logger()
		l.Info().Bool("video", call.IsVideo).Msg("rejecting call")

		if err := session.RejectCall(ctx, call.ID, call.From); err != nil {
			l.Warn().Err(err).Msg("failed to reject call")
		}

		if err := e.sleep(ctx, e.opts.CallRejectPause); err != nil {
			return err
		}

		err := session.SendMessage(ctx, caller, domain.OutboundMessage{
			Text:     fmt.Sprintf(callWarning, caller.User()),
			Mentions: []domain.JID{caller},
		})
		if err != nil {
			l.Warn().Err(err).Msg("failed to send call warning")
		}

		err = session.SendMessage(ctx, caller, domain.OutboundMessage{
			Contacts: &domain.ContactCard{
				DisplayName: e.opts.OwnerName,
				VCards:      []string{ownerVCard(e.opts.OwnerName, e.opts.OwnerNumber)},
			},
		})
		if err != nil {
			l.Warn().Err(err).Msg("failed to send owner contact")
		}

		if err := e.sleep(ctx, e.opts.CallBlockDelay); err != nil {
			return err
		}

		if err := session.UpdateBlockStatus(ctx, caller, domain.Block); err != nil {
			l.Warn().Err(err).Msg("failed to block caller")
			continue
		}

		l.Info().Msg("blocked caller")
	}

	return nil
}

func ownerVCard(name, number string) string {
	return "BEGIN:VCARD\n" +
		"VERSION:3.0\n" +
		"FN:" + name + "\n" +
		"ORG:Owner Bot;\n" +
		"TEL;type=CELL;type=VOICE;waid=" + number + ":+" + number + "\n" +
		"END:VCARD"
}

// HandleGroups announces groups being closed or opened for messages.
func (e *Events) HandleGroups(ctx context.Context, session port.Session, event domain.Event) error {
	update, err := eventAs[domain.GroupsUpdate](event)
	if err != nil {
		return err
	}

	if e.store != nil {
		e.store.Apply(update)
	}

	for _, group := range update.Groups {
		if group.Announce == nil && !e.opts.AnnounceEveryUpdate {
			continue
		}

		text := groupOpened
		if group.Announce != nil && *group.Announce {
			text = groupClosed
		}

		picture := e.profilePicture(ctx, session, group.ID)

		err := session.SendMessage(ctx, group.ID, domain.OutboundMessage{
			Text:    text,
			Preview: e.preview(picture),
		})
		if err != nil {
			log.Warn().Err(err).Str("group", group.ID.String()).Msg("failed to announce group setting")
		}
	}

	return nil
}

// HandleParticipants welcomes joining and says goodbye to leaving participants.
func (e *Events) HandleParticipants(ctx context.Context, session port.Session, event domain.Event) error {
	update, err := eventAs[domain.ParticipantsUpdate](event)
	if err != nil {
		return err
	}

	subject := update.ID.String()
	md, err := lookupGroup(ctx, e.store, session, update.ID)
	if err != nil {
		log.Warn().Err(err).Str("group", update.ID.String()).Msg("could not fetch group metadata")
	} else if md.Subject != "" {
		subject = md.Subject
	}

	if e.store != nil {
		e.store.Apply(update)
	}

	for _, participant := range update.Participants {
		var format string
		switch update.Action {
		case domain.ParticipantAdd:
			format = welcomeMessage
		case domain.ParticipantRemove:
			format = farewellMessage
		default:
			continue
		}

		picture := e.profilePicture(ctx, session, participant)

		err := session.SendMessage(ctx, update.ID, domain.OutboundMessage{
			Text:     fmt.Sprintf(format, participant.User(), subject),
			Mentions: []domain.JID{participant},
			Preview:  e.preview(picture),
		})
		if err != nil {
			log.Warn().Err(err).
				Str("group", update.ID.String()).
				Str("participant", participant.String()).
				Msg("failed to send participant message")
		}
	}

	return nil
}

// HandleMessages records every message and dispatches live ones. Failures and panics of a single message do not
// affect the rest of the batch.
func (e *Events) HandleMessages(ctx context.Context, session port.Session, event domain.Event) error {
	upsert, err := eventAs[domain.MessagesUpsert](event)
	if err != nil {
		return err
	}

	if e.store != nil {
		e.store.Apply(upsert)
	}

	if upsert.Type != domain.UpsertNotify {
		return nil
	}

	p := pool.New().WithMaxGoroutines(e.opts.Workers)

	for i := range upsert.Messages {
		message := &upsert.Messages[i]
		if message.Content == nil || message.Chat().IsStatusBroadcast() {
			continue
		}

		p.Go(func() {
			e.dispatch(ctx, session, message)
		})
	}

	p.Wait()

	return nil
}

func (e *Events) dispatch(ctx context.Context, session port.Session, message *domain.Message) {
	l := log.With().Str("chat", message.Chat().String()).Str("message", message.Key.ID).Logger()

	var catcher panics.Catcher
	catcher.Try(func() {
		if err := e.dispatcher.Dispatch(ctx, session, message); err != nil {
			l.Error().Err(err).Msg("failed to handle message")
		}
	})

	if recovered := catcher.Recovered(); recovered != nil {
		l.Error().
			Interface("panic", recovered.Value).
			Bytes("stack", recovered.Stack).
			Msg("recovered panic while handling message")
	}
}

func (e *Events) profilePicture(ctx context.Context, session port.Session, jid domain.JID) string {
	url, err := session.ProfilePictureURL(ctx, jid)
	if err != nil || url == "" {
		log.Debug().Err(err).Str("jid", jid.String()).Msg("using fallback profile picture")
		return e.opts.FallbackImageURL
	}

	return url
}

func (e *Events) preview(thumbnailURL string) *domain.LinkPreview {
	return &domain.LinkPreview{
		Title:                 e.opts.Description,
		MediaType:             previewMediaType,
		PreviewType:           previewTypeNone,
		RenderLargerThumbnail: true,
		ThumbnailURL:          thumbnailURL,
		SourceURL:             e.opts.SourceURL,
	}
}
