package command

import (
	"context"
	"megumi/internal/core/domain"

	"github.com/stretchr/testify/mock"
)

type MockReplier struct {
	mock.Mock
}

func (m *MockReplier) Reply(ctx context.Context, text string) error {
	args := m.Called(ctx, text)
	return args.Error(0)
}

type MockReplyAPI struct {
	mock.Mock
}

func (m *MockReplyAPI) Get(ctx context.Context, operation string, params ...domain.QueryParam) (string, error) {
	args := m.Called(ctx, operation, params)
	return args.String(0), args.Error(1)
}

type MockGenerator struct {
	mock.Mock
}

func (m *MockGenerator) GenerateFromPrompt(ctx context.Context, prompts []domain.Prompt) (domain.ModelResponse, error) {
	args := m.Called(ctx, prompts)
	resp, _ := args.Get(0).(domain.ModelResponse)
	return resp, args.Error(1)
}

func newInvocation(command, args string) *domain.Invocation {
	return &domain.Invocation{
		Prefix:   "#",
		Command:  command,
		Args:     args,
		Sender:   "628111@s.whatsapp.net",
		Chat:     "628111@s.whatsapp.net",
		PushName: "alice",
	}
}
