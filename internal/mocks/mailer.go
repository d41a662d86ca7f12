package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/segyhp/circulation-engine/internal/mailer"
)

type MockMailer struct {
	mock.Mock
}

func (m *MockMailer) Send(ctx context.Context, kind mailer.Kind, to mailer.Recipient, data map[string]any) error {
	args := m.Called(ctx, kind, to, data)
	return args.Error(0)
}
