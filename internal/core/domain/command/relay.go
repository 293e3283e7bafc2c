package command

import (
	"context"
	"fmt"
	"megumi/internal/core/domain"
	"megumi/internal/core/port"

	"github.com/rs/zerolog/log"
)

const (
	askPrompt = "What do you want to ask?"
	urlPrompt = "Where is the url?"
)

const DefaultGPTPersona = "You are ChatGPT, a virtual assistant named Nexa. You are designed to help and give " +
	"information to users, ranging from art, culture, technology and more."

// Relay forwards the argument text of an invocation to one operation of the reply api and answers with its
// result.
type Relay struct {
	api         port.ReplyAPI
	command     string
	operation   string
	argParam    string
	fixedParams []domain.QueryParam
	emptyPrompt string
}

func NewRelay(api port.ReplyAPI, command, operation, argParam, emptyPrompt string,
	fixedParams ...domain.QueryParam) *Relay {
	return &Relay{
		api:         api,
		command:     command,
		operation:   operation,
		argParam:    argParam,
		fixedParams: fixedParams,
		emptyPrompt: emptyPrompt,
	}
}

func NewOpenAI(api port.ReplyAPI) *Relay {
	return NewRelay(api, "openai", "openai", "text", askPrompt)
}

func NewGPT(api port.ReplyAPI, persona string) *Relay {
	if persona == "" {
		persona = DefaultGPTPersona
	}

	return NewRelay(api, "gpt", "prompt/gpt", "text", askPrompt,
		domain.QueryParam{Key: "prompt", Value: persona})
}

func NewGPT4(api port.ReplyAPI) *Relay {
	return NewRelay(api, "gpt4", "v2/gpt4", "text", askPrompt)
}

func NewTinyURL(api port.ReplyAPI) *Relay {
	return NewRelay(api, "tinyurl", "tinyurl", "link", urlPrompt)
}

func (r *Relay) GetCommand() string {
	return r.command
}

func (r *Relay) Respond(ctx context.Context, invocation *domain.Invocation, reply port.Replier) error {
	l := log.With().
		Str("chat", invocation.Chat.String()).
		Str("sender", invocation.Sender.String()).
		Str("command", r.GetCommand()).
		Logger()

	l.Info().Msg("handling request")

	if invocation.Args == "" {
		l.Debug().Msg(domain.ErrEmptyPrompt.Error())
		if err := reply.Reply(ctx, r.emptyPrompt); err != nil {
			return fmt.Errorf("%w: %w", domain.ErrSendingReplyFailed, err)
		}
		return nil
	}

	params := make([]domain.QueryParam, 0, len(r.fixedParams)+1)
	params = append(params, r.fixedParams...)
	params = append(params, domain.QueryParam{Key: r.argParam, Value: invocation.Args})

	result, err := r.api.Get(ctx, r.operation, params...)
	if err != nil {
		return fmt.Errorf("%s request failed: %w", r.operation, err)
	}

	l.Debug().Msg("reply generated")

	if err := reply.Reply(ctx, result); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrSendingReplyFailed, err)
	}

	return nil
}
