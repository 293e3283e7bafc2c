package port

import "context"

// Operator is the person running the bot process.
type Operator interface {
	// Prompt asks the operator a question and returns the answer.
	Prompt(ctx context.Context, question string) (string, error)
	// Status displays a human-readable lifecycle status.
	Status(message string)
	// ShowQR displays a pairing QR artifact.
	ShowQR(code string)
	// ShowPairingCode displays a formatted pairing code.
	ShowPairingCode(code string)
}
