// Package model contains domain models passed between layers.
package model

import (
	"time"

	"github.com/google/uuid"
)

// Message is one PRIVMSG received from the network.
type Message struct {
	ID         uuid.UUID // assigned on receipt, used to correlate log lines
	Nick       string    // sender
	Target     string    // channel name or our own nick
	Text       string
	ReceivedAt time.Time
}

// NewMessage stamps a received line with a fresh ID and the receive time.
func NewMessage(nick, target, text string, at time.Time) Message {
	return Message{
		ID:         uuid.New(),
		Nick:       nick,
		Target:     target,
		Text:       text,
		ReceivedAt: at,
	}
}

// IsChannel reports whether the message was sent to a channel rather than to us.
func (m Message) IsChannel() bool {
	return m.Target != "" && (m.Target[0] == '#' || m.Target[0] == '&')
}

// ReplyTo returns where an answer to the message goes: the channel, or the sender.
func (m Message) ReplyTo() string {
	if m.IsChannel() {
		return m.Target
	}
	return m.Nick
}
