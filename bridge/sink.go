package bridge

import (
	"context"

	"github.com/craftwatch/core/process"
	"github.com/craftwatch/core/rcon"
)

// CommandSink is the capability of delivering a command to the game
// server. There are two variants, raw stdin injection and the remote
// console protocol, selected by configuration.
type CommandSink interface {
	Send(ctx context.Context, command string) error
}

type stdinSink struct {
	supervisor process.Supervisor
}

func (s *stdinSink) Send(ctx context.Context, command string) error {
	return s.supervisor.WriteLine(command)
}

type rconSink struct {
	client *rcon.Client
}

func (s *rconSink) Send(ctx context.Context, command string) error {
	_, err := s.client.Execute(ctx, command)
	return err
}
