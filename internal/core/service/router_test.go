package service

import (
	"context"
	"errors"
	"megumi/internal/core/domain"
	"megumi/internal/core/port"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRouter_Route(t *testing.T) {
	router := NewRouter()
	session := newMockSession()

	var routed []domain.EventKind
	record := func(_ context.Context, _ port.Session, event domain.Event) error {
		routed = append(routed, event.Kind())
		return nil
	}

	router.Handle(domain.KindCall, record)
	router.Handle(domain.KindGroupsUpdate, record)

	require.NoError(t, router.Route(t.Context(), session, domain.CallEvent{}))
	require.NoError(t, router.Route(t.Context(), session, domain.GroupsUpdate{}))
	require.NoError(t, router.Route(t.Context(), session, domain.ParticipantsUpdate{}), "no handler is no error")

	assert.Equal(t, []domain.EventKind{domain.KindCall, domain.KindGroupsUpdate}, routed)
}

func TestRouter_RouteError(t *testing.T) {
	router := NewRouter()
	want := errors.New("save failed")

	router.Handle(domain.KindCredentialsUpdate, func(context.Context, port.Session, domain.Event) error {
		return want
	})

	err := router.Route(t.Context(), newMockSession(), domain.CredentialsUpdate{})
	require.ErrorIs(t, err, want)
}

func TestRouter_RecoversPanic(t *testing.T) {
	router := NewRouter()

	router.Handle(domain.KindCall, func(context.Context, port.Session, domain.Event) error {
		panic("boom")
	})

	var err error
	assert.NotPanics(t, func() {
		err = router.Route(t.Context(), newMockSession(), domain.CallEvent{})
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}
