package gateway

import (
	"context"
	"fmt"
	"megumi/internal/core/domain"
	"megumi/internal/core/port"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const DefaultTimeout = 60 * time.Second

type Options struct {
	URL   string
	Token string
	// Timeout bounds every request, including the hello handshake.
	Timeout time.Duration
	Mobile  bool
	PrintQR bool
	Browser []string
	Lookup  MessageLookup
	// FallbackText is returned for message lookups the cache cannot answer.
	FallbackText string
}

// Dialer opens sessions on the gateway using the persisted auth state.
type Dialer struct {
	opts  Options
	store port.CredentialStore
	ws    *websocket.Dialer
}

func NewDialer(store port.CredentialStore, opts Options) *Dialer {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}

	return &Dialer{
		opts:  opts,
		store: store,
		ws: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: opts.Timeout,
		},
	}
}

func (d *Dialer) Dial(ctx context.Context) (port.Session, error) {
	state, err := d.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load auth state: %w", err)
	}

	header := http.Header{}
	if d.opts.Token != "" {
		header.Set("Authorization", "Bearer "+d.opts.Token)
	}

	conn, _, err := d.ws.DialContext(ctx, d.opts.URL, header)
	if err != nil {
		return nil, fmt.Errorf("failed to dial gateway: %w", err)
	}

	c := newClient(conn, d.opts)
	c.start()

	var hello helloResponse
	err = c.call(ctx, opHello, helloRequest{
		Credentials: state.Credentials,
		Keys:        state.Keys,
		Mobile:      d.opts.Mobile,
		PrintQR:     d.opts.PrintQR,
		Browser:     d.opts.Browser,
	}, &hello)
	if err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("gateway handshake failed: %w", err)
	}

	c.self = domain.NormalizeJID(string(hello.Me))
	c.registered = hello.Registered
	c.version = hello.Version

	log.Info().
		Str("url", d.opts.URL).
		Str("self", c.self.String()).
		Bool("registered", c.registered).
		Ints("version", c.version).
		Msg("opened gateway session")

	return c, nil
}
