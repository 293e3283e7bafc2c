package service

import (
	"context"
	"fmt"
	"megumi/internal/core/domain"
	"megumi/internal/core/port"
)

const (
	replyTitle       = "DON'T SPAM !!!"
	replyGreeting    = "👋🏻 Hai kak %s"
	replyPreviewType = "PHOTO"
)

// ReplyPreview is the link preview attached to every command reply.
type ReplyPreview struct {
	SourceURL string
	Thumbnail []byte
}

type messageReplier struct {
	session port.Session
	message *domain.Message
	preview ReplyPreview
}

func newReplier(session port.Session, message *domain.Message, preview ReplyPreview) *messageReplier {
	return &messageReplier{session: session, message: message, preview: preview}
}

// Reply answers in the chat of the originating message and quotes it.
func (r *messageReplier) Reply(ctx context.Context, text string) error {
	return r.session.SendMessage(ctx, r.message.Chat(), domain.OutboundMessage{
		Text: text,
		Preview: &domain.LinkPreview{
			Title:       replyTitle,
			Body:        fmt.Sprintf(replyGreeting, r.message.PushName),
			PreviewType: replyPreviewType,
			Thumbnail:   r.preview.Thumbnail,
			SourceURL:   r.preview.SourceURL,
		},
		Quoted: r.message,
	})
}
