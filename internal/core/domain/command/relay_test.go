package command

import (
	"errors"
	"megumi/internal/core/domain"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestRelay_Respond(t *testing.T) {
	tests := []struct {
		name       string
		relay      func(api *MockReplyAPI) *Relay
		args       string
		setupMocks func(api *MockReplyAPI, r *MockReplier)
		wantErr    error
		wantCalls  int
	}{
		{
			name:  "empty prompt asks for input without api call",
			relay: func(api *MockReplyAPI) *Relay { return NewOpenAI(api) },
			args:  "",
			setupMocks: func(_ *MockReplyAPI, r *MockReplier) {
				r.On("Reply", mock.Anything, "What do you want to ask?").Return(nil).Once()
			},
			wantCalls: 0,
		},
		{
			name:  "tinyurl relays link",
			relay: func(api *MockReplyAPI) *Relay { return NewTinyURL(api) },
			args:  "https://example.com",
			setupMocks: func(api *MockReplyAPI, r *MockReplier) {
				api.On("Get", mock.Anything, "tinyurl",
					[]domain.QueryParam{{Key: "link", Value: "https://example.com"}}).
					Return("https://tiny/x", nil).Once()
				r.On("Reply", mock.Anything, "https://tiny/x").Return(nil).Once()
			},
			wantCalls: 1,
		},
		{
			name:  "gpt sends persona before text",
			relay: func(api *MockReplyAPI) *Relay { return NewGPT(api, "be nice") },
			args:  "hello there",
			setupMocks: func(api *MockReplyAPI, r *MockReplier) {
				api.On("Get", mock.Anything, "prompt/gpt", []domain.QueryParam{
					{Key: "prompt", Value: "be nice"},
					{Key: "text", Value: "hello there"},
				}).Return("hi", nil).Once()
				r.On("Reply", mock.Anything, "hi").Return(nil).Once()
			},
			wantCalls: 1,
		},
		{
			name:  "gpt4 uses v2 operation",
			relay: func(api *MockReplyAPI) *Relay { return NewGPT4(api) },
			args:  "question",
			setupMocks: func(api *MockReplyAPI, r *MockReplier) {
				api.On("Get", mock.Anything, "v2/gpt4",
					[]domain.QueryParam{{Key: "text", Value: "question"}}).
					Return("answer", nil).Once()
				r.On("Reply", mock.Anything, "answer").Return(nil).Once()
			},
			wantCalls: 1,
		},
		{
			name:  "api failure sends no reply",
			relay: func(api *MockReplyAPI) *Relay { return NewOpenAI(api) },
			args:  "question",
			setupMocks: func(api *MockReplyAPI, _ *MockReplier) {
				api.On("Get", mock.Anything, "openai", mock.Anything).
					Return("", errors.New("bad gateway")).Once()
			},
			wantErr:   errors.New("openai request failed: bad gateway"),
			wantCalls: 1,
		},
		{
			name:  "reply failure is reported",
			relay: func(api *MockReplyAPI) *Relay { return NewOpenAI(api) },
			args:  "question",
			setupMocks: func(api *MockReplyAPI, r *MockReplier) {
				api.On("Get", mock.Anything, "openai", mock.Anything).Return("answer", nil).Once()
				r.On("Reply", mock.Anything, "answer").Return(errors.New("closed")).Once()
			},
			wantErr:   domain.ErrSendingReplyFailed,
			wantCalls: 1,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			api := new(MockReplyAPI)
			replier := new(MockReplier)
			tc.setupMocks(api, replier)

			relay := tc.relay(api)
			err := relay.Respond(t.Context(), newInvocation(relay.GetCommand(), tc.args), replier)

			switch {
			case tc.wantErr == nil:
				require.NoError(t, err)
			case errors.Is(tc.wantErr, domain.ErrSendingReplyFailed):
				require.ErrorIs(t, err, domain.ErrSendingReplyFailed)
			default:
				require.EqualError(t, err, tc.wantErr.Error())
			}

			api.AssertNumberOfCalls(t, "Get", tc.wantCalls)
			api.AssertExpectations(t)
			replier.AssertExpectations(t)
			if tc.wantErr != nil && !errors.Is(tc.wantErr, domain.ErrSendingReplyFailed) {
				assert.Empty(t, replier.Calls)
			}
		})
	}
}

func TestNewGPT_DefaultPersona(t *testing.T) {
	relay := NewGPT(new(MockReplyAPI), "")

	require.Len(t, relay.fixedParams, 1)
	assert.Equal(t, DefaultGPTPersona, relay.fixedParams[0].Value)
	assert.Equal(t, "gpt", relay.GetCommand())
}
