package port

import (
	"context"
)

// Replier answers the message a command was invoked from.
type Replier interface {
	// Reply sends text to the originating chat, quoting the originating message.
	Reply(ctx context.Context, text string) error
}
