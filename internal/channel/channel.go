// Package channel defines the outreach channel types and the send capability
// behind which provider clients live.
package channel

import (
	"context"
	"fmt"
)

// Channel identifies a delivery channel for a sequence step.
type Channel string

const (
	Email Channel = "email"
	SMS   Channel = "sms"
	Voice Channel = "voice"
)

// Parse converts a stored channel string into a Channel.
func Parse(s string) (Channel, error) {
	switch Channel(s) {
	case Email, SMS, Voice:
		return Channel(s), nil
	}
	return "", fmt.Errorf("unknown channel %q", s)
}

// Valid reports whether c is one of the known channels.
func (c Channel) Valid() bool {
	_, err := Parse(string(c))
	return err == nil
}

// Message is a fully rendered outbound message.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Sender delivers one rendered message over a single channel.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// SenderFunc adapts a function to the Sender interface.
type SenderFunc func(ctx context.Context, msg Message) error

func (f SenderFunc) Send(ctx context.Context, msg Message) error { return f(ctx, msg) }

// Dispatcher routes messages to the registered Sender for each channel.
type Dispatcher struct {
	senders map[Channel]Sender
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{senders: make(map[Channel]Sender)}
}

// Register installs the sender for a channel, replacing any previous one.
func (d *Dispatcher) Register(ch Channel, s Sender) {
	d.senders[ch] = s
}

// Send dispatches msg via the sender registered for ch.
func (d *Dispatcher) Send(ctx context.Context, ch Channel, msg Message) error {
	s, ok := d.senders[ch]
	if !ok {
		return fmt.Errorf("no sender registered for channel %q", ch)
	}
	return s.Send(ctx, msg)
}
