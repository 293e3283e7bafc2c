package command

import (
	"context"
	"fmt"
	"megumi/internal/core/domain"
	"megumi/internal/core/port"
	"runtime"
	"runtime/debug"
	"runtime/metrics"
	"time"

	"github.com/rs/zerolog/log"
)

// Debug reports runtime statistics of the bot process. Only owners get an answer.
type Debug struct {
	command string
	started time.Time
}

func NewDebug(command string, started time.Time) *Debug {
	return &Debug{command: command, started: started}
}

func (d *Debug) GetCommand() string {
	return d.command
}

const kb = 1024
const debugTemplate = `uptime: %s
allocated mem: %d KB
goroutines: %d
heap: %d KB
stack: %d KB
compiled with %s for %s-%s
`
const metricCount = 3

func (d *Debug) Respond(ctx context.Context, invocation *domain.Invocation, reply port.Replier) error {
	l := log.With().
		Str("chat", invocation.Chat.String()).
		Str("sender", invocation.Sender.String()).
		Str("command", d.GetCommand()).
		Logger()

	l.Info().Msg("handling request")

	if !invocation.IsOwner {
		l.Debug().Msg("ignoring debug request from non-owner")
		return nil
	}

	data := make([]metrics.Sample, metricCount)
	data[0] = metrics.Sample{Name: "/memory/classes/heap/objects:bytes"}
	data[1] = metrics.Sample{Name: "/memory/classes/heap/stacks:bytes"}
	data[2] = metrics.Sample{Name: "/memory/classes/total:bytes"}

	metrics.Read(data)

	for _, sample := range data {
		l.Debug().Str("name", sample.Name).Msgf("%d", sample.Value.Uint64())
	}

	goos, goarch := runtime.GOOS, runtime.GOARCH
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, setting := range info.Settings {
			switch setting.Key {
			case "GOOS":
				goos = setting.Value
			case "GOARCH":
				goarch = setting.Value
			}
		}
	}

	err := reply.Reply(ctx,
		fmt.Sprintf(
			debugTemplate,
			time.Since(d.started).Truncate(time.Second),
			data[2].Value.Uint64()/kb,
			runtime.NumGoroutine(),
			data[0].Value.Uint64()/kb,
			data[1].Value.Uint64()/kb,
			runtime.Version(), goos, goarch,
		))
	if err != nil {
		return err
	}

	return nil
}
