package command

import (
	"context"
	"fmt"
	"megumi/internal/core/domain"
	"megumi/internal/core/port"

	"github.com/rs/zerolog/log"
)

type AskClearContext struct {
	ask     *Ask
	command string
}

func NewAskClearContext(ask *Ask, command string) *AskClearContext {
	return &AskClearContext{ask: ask, command: command}
}

func (c *AskClearContext) GetCommand() string {
	return c.command
}

func (c *AskClearContext) Respond(ctx context.Context, invocation *domain.Invocation, reply port.Replier) error {
	l := log.With().
		Str("chat", invocation.Chat.String()).
		Str("command", c.GetCommand()).
		Logger()

	l.Info().Msg("handling request")

	size, ok := c.ask.Clear(invocation.Chat)
	if !ok {
		l.Debug().Msg("no conversation in cache")

		if err := reply.Reply(ctx, "no conversation context"); err != nil {
			return fmt.Errorf("error sending cache clearing response: %w", err)
		}

		return nil
	}

	var plural string
	if size != 1 {
		plural = "s"
	}

	if err := reply.Reply(ctx, fmt.Sprintf("cleared %d message%s from context", size, plural)); err != nil {
		return fmt.Errorf("error sending cache clearing response: %w", err)
	}

	return nil
}
