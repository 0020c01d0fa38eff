package evi

import (
	"fmt"

	"wellbot/internal/message"
)

// Event is one thing that happened on a session connection.
// Events of one connection are delivered exactly once and in order:
// Opened first, Closed last.
type Event interface {
	isEvent()
}

type Opened struct{}

type Message struct {
	Msg *message.Inbound
}

type Error struct {
	Err error
}

type Closed struct {
	Code   int
	Reason string
}

func (Opened) isEvent()  {}
func (Message) isEvent() {}
func (Error) isEvent()   {}
func (Closed) isEvent()  {}

func (e Error) Error() string { return e.Err.Error() }

func (e Closed) String() string {
	return fmt.Sprintf("closed (%d) %s", e.Code, e.Reason)
}

// Normal reports whether the peer ended the session on purpose.
func (e Closed) Normal() bool {
	return e.Code == 1000 || e.Code == 1001
}
