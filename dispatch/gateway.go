package dispatch

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
)

// Sender pushes one outbound text to a lead over a single channel.
// One implementation per provider, selected by configuration.
type Sender interface {
	Send(ctx context.Context, to, body string) (string, error)
}

// VoiceDialer initiates an automated outbound call
type VoiceDialer interface {
	InitiateCall(ctx context.Context, to, script, callbackURL string) (string, error)
}

// Gateway abstracts provider differences from the engine and the
// campaign workers.
type Gateway interface {
	SendText(ctx context.Context, channel, to, body string) (string, error)
	InitiateVoiceCall(ctx context.Context, to, script, callbackURL string) (string, error)
}

// ProviderGateway routes each channel to its configured Sender
type ProviderGateway struct {
	senders map[string]Sender
	dialer  VoiceDialer
	logger  *logrus.Logger
}

func NewProviderGateway(senders map[string]Sender, dialer VoiceDialer, logger *logrus.Logger) *ProviderGateway {
	return &ProviderGateway{senders: senders, dialer: dialer, logger: logger}
}

func (g *ProviderGateway) SendText(ctx context.Context, channel, to, body string) (string, error) {
	sender, ok := g.senders[channel]
	if !ok {
		return "", fmt.Errorf("dispatch: no sender configured for channel %q", channel)
	}
	id, err := sender.Send(ctx, to, body)
	if err != nil {
		g.logger.WithFields(logrus.Fields{"channel": channel, "to": to}).WithError(err).Warn("outbound send failed")
		return "", err
	}
	return id, nil
}

func (g *ProviderGateway) InitiateVoiceCall(ctx context.Context, to, script, callbackURL string) (string, error) {
	if g.dialer == nil {
		return "", fmt.Errorf("dispatch: no voice dialer configured")
	}
	id, err := g.dialer.InitiateCall(ctx, to, script, callbackURL)
	if err != nil {
		g.logger.WithField("to", to).WithError(err).Warn("voice call initiation failed")
		return "", err
	}
	return id, nil
}
