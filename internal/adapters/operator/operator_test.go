package operator

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockBot struct {
	mock.Mock
}

func (m *MockBot) SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error) {
	args := m.Called(ctx, params)
	msg, _ := args.Get(0).(*models.Message)
	return msg, args.Error(1)
}

func TestTerminal_Prompt(t *testing.T) {
	var out bytes.Buffer
	term := NewTerminal(strings.NewReader(" +62 811-1234 \n"), &out)

	answer, err := term.Prompt(t.Context(), "number?\n> ")
	require.NoError(t, err)
	assert.Equal(t, "+62 811-1234", answer)
	assert.Equal(t, "number?\n> ", out.String())
}

func TestTerminal_PromptWithoutInput(t *testing.T) {
	term := NewTerminal(strings.NewReader(""), &bytes.Buffer{})

	_, err := term.Prompt(t.Context(), "> ")
	require.Error(t, err)
}

func TestTerminal_PromptCancelled(t *testing.T) {
	in, input := io.Pipe()
	defer input.Close()

	var out bytes.Buffer
	term := NewTerminal(in, &out)

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	_, err := term.Prompt(ctx, "> ")
	require.ErrorIs(t, err, context.Canceled)

	shown := make(chan struct{})
	go func() {
		term.ShowPairingCode("ABCD-1234")
		close(shown)
	}()

	select {
	case <-shown:
	case <-time.After(time.Second):
		t.Fatal("output blocked by an abandoned prompt")
	}

	go func() { _, _ = io.WriteString(input, "628123\n") }()

	answer, err := term.Prompt(t.Context(), "again> ")
	require.NoError(t, err)
	assert.Equal(t, "628123", answer)
	assert.Equal(t, "> PAIRING CODE ABCD-1234\nagain> ", out.String())
}

func TestTerminal_PromptAfterEOF(t *testing.T) {
	term := NewTerminal(strings.NewReader(""), &bytes.Buffer{})

	_, err := term.Prompt(t.Context(), "> ")
	require.Error(t, err)

	_, err = term.Prompt(t.Context(), "> ")
	require.ErrorIs(t, err, io.EOF)
}

func TestTerminal_ShowPairingCode(t *testing.T) {
	var out bytes.Buffer
	term := NewTerminal(strings.NewReader(""), &out)

	term.ShowPairingCode("ABCD-1234")
	assert.Equal(t, "PAIRING CODE ABCD-1234\n", out.String())
}

func TestTerminal_ShowQR(t *testing.T) {
	var out bytes.Buffer
	term := NewTerminal(strings.NewReader(""), &out)

	term.ShowQR("2@abc,def,ghi")
	assert.NotEmpty(t, out.String())
}

func TestTelegram_Mirror(t *testing.T) {
	var out bytes.Buffer
	mb := new(MockBot)

	mb.On("SendMessage", mock.Anything, mock.MatchedBy(func(params *bot.SendMessageParams) bool {
		return params.ChatID == int64(42) && params.Text == "[megumi] pairing code: ABCD-1234"
	})).Return(&models.Message{ID: 1}, nil).Once()
	mb.On("SendMessage", mock.Anything, mock.MatchedBy(func(params *bot.SendMessageParams) bool {
		return params.Text == "[megumi] Connected!"
	})).Return(nil, errors.New("telegram down")).Once()

	tg := NewTelegram(NewTerminal(strings.NewReader(""), &out), mb, 42, "megumi")

	tg.ShowPairingCode("ABCD-1234")
	tg.Status("Connected!")

	assert.Equal(t, "PAIRING CODE ABCD-1234\n", out.String())
	mb.AssertExpectations(t)
}

func TestTelegram_PromptDelegates(t *testing.T) {
	mb := new(MockBot)
	mb.On("SendMessage", mock.Anything, mock.Anything).Return(&models.Message{ID: 1}, nil).Once()

	tg := NewTelegram(NewTerminal(strings.NewReader("628111\n"), &bytes.Buffer{}), mb, 42, "megumi")

	answer, err := tg.Prompt(t.Context(), "> ")
	require.NoError(t, err)
	assert.Equal(t, "628111", answer)
	mb.AssertExpectations(t)
}
