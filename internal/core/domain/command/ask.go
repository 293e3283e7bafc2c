package command

import (
	"context"
	"fmt"
	"megumi/internal/core/domain"
	"megumi/internal/core/port"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const maxConversationPrompts = 20

// Ask answers with a language model and keeps a short conversation context per chat.
type Ask struct {
	textGenerator port.TextGenerator
	cacheDuration time.Duration
	command       string
	cache         *sync.Map

	l *zerolog.Logger
}

type conversation struct {
	mu       sync.Mutex
	messages []domain.Prompt
	expiry   *time.Timer
}

func NewAsk(textGenerator port.TextGenerator, command string, cacheDuration time.Duration) *Ask {
	logger := log.With().
		Str("command", command).
		Str("handler", "ask").
		Logger()

	return &Ask{
		textGenerator: textGenerator,
		cacheDuration: cacheDuration,
		command:       command,
		cache:         &sync.Map{},
		l:             &logger,
	}
}

func (a *Ask) GetCommand() string {
	return a.command
}

func (a *Ask) Respond(ctx context.Context, invocation *domain.Invocation, reply port.Replier) error {
	l := a.l.With().
		Str("chat", invocation.Chat.String()).
		Str("sender", invocation.Sender.String()).
		Logger()

	l.Info().Msg("handling request")

	if invocation.Args == "" {
		if err := reply.Reply(ctx, askPrompt); err != nil {
			return fmt.Errorf("%w: %w", domain.ErrSendingReplyFailed, err)
		}
		return nil
	}

	convo := a.conversationFor(invocation.Chat)

	convo.mu.Lock()
	defer convo.mu.Unlock()

	convo.messages = append(convo.messages, domain.Prompt{
		Author: domain.User,
		Prompt: invocation.PushName + ": " + invocation.Args,
	})

	response, err := a.textGenerator.GenerateFromPrompt(ctx, convo.messages)
	if err != nil {
		convo.messages = convo.messages[:len(convo.messages)-1]
		return fmt.Errorf("failed to generate response: %w", err)
	}

	l.Debug().
		Str("model", response.Metadata.Model).
		Int("totalTokens", response.Metadata.TotalTokens).
		Msg("reply generated")

	convo.messages = append(convo.messages, domain.Prompt{Author: domain.System, Prompt: response.Response})
	if len(convo.messages) > maxConversationPrompts {
		convo.messages = convo.messages[len(convo.messages)-maxConversationPrompts:]
	}

	if err := reply.Reply(ctx, response.Response); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrSendingReplyFailed, err)
	}

	return nil
}

// conversationFor returns the cached conversation of a chat and restarts its expiry timer.
func (a *Ask) conversationFor(chat domain.JID) *conversation {
	fresh := &conversation{}
	fresh.expiry = time.AfterFunc(a.cacheDuration, func() {
		a.l.Debug().Str("chat", chat.String()).Msg("clearing conversation")
		a.cache.CompareAndDelete(chat, fresh)
	})

	c, loaded := a.cache.LoadOrStore(chat, fresh)
	if !loaded {
		a.l.Trace().Str("chat", chat.String()).Msg("new conversation")
		return fresh
	}

	fresh.expiry.Stop()
	convo, _ := c.(*conversation)
	convo.expiry.Reset(a.cacheDuration)

	return convo
}

// Clear drops the conversation of a chat and returns the number of prompts it held.
func (a *Ask) Clear(chat domain.JID) (int, bool) {
	c, ok := a.cache.LoadAndDelete(chat)
	if !ok {
		return 0, false
	}

	convo, _ := c.(*conversation)
	convo.expiry.Stop()

	convo.mu.Lock()
	defer convo.mu.Unlock()

	return len(convo.messages), true
}

// ContextSize returns the number of prompts kept for a chat.
func (a *Ask) ContextSize(chat domain.JID) int {
	c, ok := a.cache.Load(chat)
	if !ok {
		return 0
	}

	convo, _ := c.(*conversation)
	convo.mu.Lock()
	defer convo.mu.Unlock()

	return len(convo.messages)
}
