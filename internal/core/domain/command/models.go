package command

import (
	"context"
	"fmt"
	"megumi/internal/core/domain"
	"megumi/internal/core/port"
	"strings"
)

// Menu lists every registered command.
type Menu struct {
	registry port.CommandRegistry
	botName  string
	command  string
}

func NewMenu(registry port.CommandRegistry, botName, command string) *Menu {
	return &Menu{
		registry: registry,
		botName:  botName,
		command:  command,
	}
}

func (m *Menu) GetCommand() string {
	return m.command
}

func (m *Menu) Respond(ctx context.Context, invocation *domain.Invocation, reply port.Replier) error {
	sb := &strings.Builder{}

	_, err := fmt.Fprintf(sb, "Hi %s, %s understands these commands:\n\n", invocation.PushName, m.botName)
	if err != nil {
		return fmt.Errorf("failed to construct response: %w", err)
	}

	for _, name := range m.registry.ListCommands() {
		_, err = fmt.Fprintf(sb, " - %s%s\n", invocation.Prefix, name)
		if err != nil {
			return fmt.Errorf("failed to construct response: %w", err)
		}
	}

	_, err = sb.WriteString("\nDon't spam, commands are rate limited by the upstream api.")
	if err != nil {
		return fmt.Errorf("failed to construct response: %w", err)
	}

	if err := reply.Reply(ctx, sb.String()); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}

	return nil
}
