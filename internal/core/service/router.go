package service

import (
	"context"
	"fmt"
	"megumi/internal/core/domain"
	"megumi/internal/core/port"

	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc/panics"
)

// EventHandler processes one inbound event of a session.
type EventHandler func(ctx context.Context, session port.Session, event domain.Event) error

// Router hands each event to the handler registered for its kind.
type Router struct {
	handlers map[domain.EventKind]EventHandler
}

func NewRouter() *Router {
	return &Router{handlers: make(map[domain.EventKind]EventHandler)}
}

func (r *Router) Handle(kind domain.EventKind, handler EventHandler) {
	log.Debug().Str("kind", string(kind)).Msg("adding event handler to router")
	r.handlers[kind] = handler
}

// Route runs the handler for event. A panicking handler is recovered and reported as an error.
func (r *Router) Route(ctx context.Context, session port.Session, event domain.Event) error {
	handler, ok := r.handlers[event.Kind()]
	if !ok {
		log.Trace().Str("kind", string(event.Kind())).Msg("no handler for event")
		return nil
	}

	var err error
	var catcher panics.Catcher
	catcher.Try(func() {
		err = handler(ctx, session, event)
	})

	if recovered := catcher.Recovered(); recovered != nil {
		log.Error().
			Str("kind", string(event.Kind())).
			Interface("panic", recovered.Value).
			Bytes("stack", recovered.Stack).
			Msg("recovered panic in event handler")
		return fmt.Errorf("%s handler: %w", event.Kind(), recovered.AsError())
	}

	return err
}

func eventAs[T domain.Event](event domain.Event) (T, error) {
	typed, ok := event.(T)
	if !ok {
		return typed, fmt.Errorf("unexpected event %T", event)
	}

	return typed, nil
}
