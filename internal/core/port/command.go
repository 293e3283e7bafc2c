package port

import (
	"context"
	"megumi/internal/core/domain"
)

type Command interface {
	// Respond handles a parsed invocation and answers through the given replier.
	Respond(ctx context.Context, invocation *domain.Invocation, reply Replier) error
	// GetCommand retrieves the command identifier associated with a specific command handler.
	GetCommand() string
}

type CommandRegistry interface {
	// Register adds a new command handler to the command registry.
	Register(handler Command)
	// Get retrieves a registered Command based on its string identifier or returns an error if not found.
	Get(command string) (Command, error)
	// ListCommands returns a list of all command identifiers currently registered in the command registry.
	ListCommands() []string
}
