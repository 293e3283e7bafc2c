package service

import (
	"megumi/internal/core/domain"
	"slices"
)

// Authorizer decides which senders may use owner-only commands.
type Authorizer struct {
	owners []string
}

func NewAuthorizer(ownerNumbers ...string) *Authorizer {
	owners := make([]string, 0, len(ownerNumbers))
	for _, number := range ownerNumbers {
		if digits := domain.DigitsOnly(number); digits != "" {
			owners = append(owners, digits)
		}
	}

	return &Authorizer{owners: owners}
}

// IsOwner reports whether sender is the bot account itself or one of the configured owners.
func (a *Authorizer) IsOwner(sender, self domain.JID) bool {
	number := sender.Number()
	if number == "" {
		return false
	}

	if number == self.Number() {
		return true
	}

	return slices.Contains(a.owners, number)
}
