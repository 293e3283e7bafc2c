package command

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestDebug_Respond_SendsDebugInfo(t *testing.T) {
	replier := new(MockReplier)
	debugCmd := NewDebug("debug", time.Now().Add(-time.Hour))

	inv := newInvocation("debug", "")
	inv.IsOwner = true

	replier.
		On(
			"Reply",
			mock.Anything,
			mock.MatchedBy(func(text string) bool {
				return strings.Contains(text, "uptime: 1h") &&
					strings.Contains(text, "allocated mem:") &&
					strings.Contains(text, "goroutines:") &&
					strings.Contains(text, "heap:") &&
					strings.Contains(text, "stack:") &&
					strings.Contains(text, "compiled with")
			}),
		).
		Return(nil)

	err := debugCmd.Respond(t.Context(), inv, replier)
	require.NoError(t, err)
	replier.AssertExpectations(t)
}

func TestDebug_Respond_IgnoresNonOwner(t *testing.T) {
	replier := new(MockReplier)
	debugCmd := NewDebug("debug", time.Now())

	err := debugCmd.Respond(t.Context(), newInvocation("debug", ""), replier)
	require.NoError(t, err)
	assert.Empty(t, replier.Calls)
}

func TestMenu_Respond(t *testing.T) {
	registry := &Registry{}
	registry.Register(&MockResponder{command: "tinyurl"})
	registry.Register(&MockResponder{command: "openai"})

	replier := new(MockReplier)
	replier.On("Reply", mock.Anything, mock.MatchedBy(func(text string) bool {
		return strings.HasPrefix(text, "Hi alice, Megumi understands these commands:") &&
			strings.Contains(text, " - #openai\n") &&
			strings.Index(text, " - #openai\n") < strings.Index(text, " - #tinyurl\n")
	})).Return(nil).Once()

	menu := NewMenu(registry, "Megumi", "menu")
	require.NoError(t, menu.Respond(t.Context(), newInvocation("menu", ""), replier))
	replier.AssertExpectations(t)
}
