package service

import (
	"context"
	"errors"
	"fmt"
	"megumi/internal/core/domain"
	"megumi/internal/core/port"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type State string

const (
	StateStarting          State = "starting"
	StateConnecting        State = "connecting"
	StateOpen              State = "open"
	StateClosedRecoverable State = "closed-recoverable"
	StateClosedTerminal    State = "closed-terminal"
)

const (
	statusConnecting = "Connecting..."
	statusConnected  = "Connected!"
	statusLoggedOut  = "Connection closed. You are logged out"
	statusScanQR     = "Scan this QR code to run the bot, max 60 seconds"
	statusBadNumber  = "Start with country code of your WhatsApp Number, Example : 628xxxx"
	phonePrompt      = "Please enter your WhatsApp number, for example: 628xxx\n> "
)

type SupervisorOptions struct {
	// PairingCode logs in with a pairing code instead of a QR code when the session is not registered yet.
	PairingCode bool
	// ForceQR displays QR codes even in pairing code mode.
	ForceQR bool
	Mobile  bool
	Retry   RetryPolicy
}

var errNoOperatorInput = errors.New("no operator input")

// sessionEnd is returned by the connection handler when the current session is over.
type sessionEnd struct {
	reason domain.DisconnectReason
	cause  string
}

func (e *sessionEnd) Error() string {
	if e.cause == "" {
		return fmt.Sprintf("connection closed: %s (%d)", e.reason, int(e.reason))
	}
	return fmt.Sprintf("connection closed: %s (%d): %s", e.reason, int(e.reason), e.cause)
}

func (e *sessionEnd) loggedOut() bool {
	return e.reason == domain.ReasonLoggedOut
}

// Supervisor keeps exactly one session alive and restarts it after recoverable disconnects.
type Supervisor struct {
	dialer   port.Dialer
	router   *Router
	operator port.Operator
	store    port.ChatStore
	opts     SupervisorOptions
	tracker  *ReconnectTracker

	mu    sync.RWMutex
	state State

	l zerolog.Logger
}

func NewSupervisor(dialer port.Dialer, router *Router, operator port.Operator, store port.ChatStore,
	opts SupervisorOptions) *Supervisor {
	s := &Supervisor{
		dialer:   dialer,
		router:   router,
		operator: operator,
		store:    store,
		opts:     opts,
		tracker:  NewReconnectTracker(opts.Retry),
		state:    StateStarting,
		l:        log.With().Str("component", "supervisor").Logger(),
	}

	router.Handle(domain.KindConnectionUpdate, s.handleConnection)

	return s
}

func (s *Supervisor) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.state
}

func (s *Supervisor) setState(state State) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateClosedTerminal {
		return
	}

	if s.state != state {
		s.l.Debug().Str("from", string(s.state)).Str("to", string(state)).Msg("state transition")
	}
	s.state = state
}

// Start dials a new session and pairs it when required.
func (s *Supervisor) Start(ctx context.Context) (port.Session, error) {
	s.setState(StateStarting)

	session, err := s.dialer.Dial(ctx)
	if err != nil {
		return nil, err
	}

	if s.opts.PairingCode && !session.Registered() {
		if err := s.pair(ctx, session); err != nil {
			_ = session.Close()
			return nil, err
		}
	}

	s.setState(StateConnecting)

	return session, nil
}

// Run keeps a session alive until logout, a pairing failure, an exhausted retry policy or ctx is done.
func (s *Supervisor) Run(ctx context.Context) error {
	for {
		session, err := s.Start(ctx)
		if err != nil {
			if ctx.Err() != nil || isPermanent(err) {
				return err
			}

			s.l.Warn().Err(err).Msg("failed to start session")
			s.setState(StateClosedRecoverable)
			if err := s.tracker.Wait(ctx, err); err != nil {
				return err
			}
			continue
		}

		end := s.serve(ctx, session)

		if err := session.Close(); err != nil {
			s.l.Debug().Err(err).Msg("error closing session")
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}

		if end.loggedOut() {
			s.setState(StateClosedTerminal)
			s.operator.Status(statusLoggedOut)
			return domain.ErrLoggedOut
		}

		s.l.Warn().Err(end).Msg("session ended, restarting")
		s.setState(StateClosedRecoverable)

		if err := s.tracker.Wait(ctx, end); err != nil {
			return err
		}
	}
}

// serve routes the events of session in order until the session ends.
func (s *Supervisor) serve(ctx context.Context, session port.Session) *sessionEnd {
	for {
		select {
		case <-ctx.Done():
			return &sessionEnd{reason: domain.ReasonConnectionClosed, cause: ctx.Err().Error()}
		case event, ok := <-session.Events():
			if !ok {
				return &sessionEnd{reason: domain.ReasonConnectionClosed, cause: "event stream ended"}
			}

			err := s.router.Route(ctx, session, event)
			if err == nil {
				continue
			}

			var end *sessionEnd
			if errors.As(err, &end) {
				return end
			}

			s.l.Error().Err(err).Str("kind", string(event.Kind())).Msg("failed to handle event")
		}
	}
}

func (s *Supervisor) handleConnection(_ context.Context, _ port.Session, event domain.Event) error {
	update, err := eventAs[domain.ConnectionUpdate](event)
	if err != nil {
		return err
	}

	if update.QR != "" && (!s.opts.PairingCode || s.opts.ForceQR) {
		s.operator.Status(statusScanQR)
		s.operator.ShowQR(update.QR)
	}

	switch update.State {
	case domain.Connecting:
		s.setState(StateConnecting)
		s.operator.Status(statusConnecting)
	case domain.Open:
		s.setState(StateOpen)
		s.tracker.Reset()
		if s.store != nil {
			s.l.Info().Int("chats", len(s.store.Chats())).Msg("loaded chats")
		}
		s.operator.Status(statusConnected)
	case domain.Close:
		return &sessionEnd{reason: update.Reason, cause: update.Error}
	}

	return nil
}

// pair asks the operator for the phone number of the account and displays the pairing code for it.
func (s *Supervisor) pair(ctx context.Context, session port.Session) error {
	if s.opts.Mobile {
		return domain.ErrPairingWithMobile
	}

	number, err := s.askPhoneNumber(ctx)
	if err != nil {
		return err
	}

	if !hasCallingCode(number) {
		s.operator.Status(statusBadNumber)

		number, err = s.askPhoneNumber(ctx)
		if err != nil {
			return err
		}

		if !hasCallingCode(number) {
			s.operator.Status(statusBadNumber)
			return domain.ErrInvalidPhoneNumber
		}
	}

	code, err := session.RequestPairingCode(ctx, number)
	if err != nil {
		return fmt.Errorf("failed to request pairing code: %w", err)
	}

	s.operator.ShowPairingCode(formatPairingCode(code))

	return nil
}

func (s *Supervisor) askPhoneNumber(ctx context.Context) (string, error) {
	answer, err := s.operator.Prompt(ctx, phonePrompt)
	if err != nil {
		return "", fmt.Errorf("%w: failed to read phone number: %w", errNoOperatorInput, err)
	}

	return domain.DigitsOnly(answer), nil
}

// isPermanent reports errors after which restarting the session cannot help.
func isPermanent(err error) bool {
	return errors.Is(err, domain.ErrInvalidPhoneNumber) ||
		errors.Is(err, domain.ErrPairingWithMobile) ||
		errors.Is(err, domain.ErrReconnectLimit) ||
		errors.Is(err, errNoOperatorInput)
}
