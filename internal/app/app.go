// Package app runs WellBot's screens: the title screen, the listening
// screen and the voice session behind them.
package app

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"strings"

	"wellbot/internal/display"
	"wellbot/internal/ipc"
	"wellbot/internal/session"
)

type State int

const (
	StateTitle State = iota
	StateListening
	StateSessionActive
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateTitle:
		return "title"
	case StateListening:
		return "listening"
	case StateSessionActive:
		return "session"
	case StateTerminated:
		return "terminated"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

type Screen interface {
	ShowTitle() error
	ShowListening() error
}

type Session interface {
	Run(ctx context.Context) error
}

type App struct {
	screen   Screen
	session  Session
	lines    <-chan string
	controls <-chan string

	state State
	trace []State
}

// New wires the screens. lines carries console input while the title is
// shown and controls carries ipc commands; either may be nil.
func New(screen Screen, sess Session, lines, controls <-chan string) *App {
	return &App{
		screen:   screen,
		session:  sess,
		lines:    lines,
		controls: controls,
		state:    StateTitle,
	}
}

func (a *App) State() State { return a.state }

// Trace lists every state the app has entered, in order.
func (a *App) Trace() []State { return append([]State(nil), a.trace...) }

// Run shows the title screen and, once started, runs one session.
// Cancelling ctx is the close signal. Only asset errors are returned.
func (a *App) Run(ctx context.Context) error {
	a.enter(StateTitle)
	if err := a.screen.ShowTitle(); err != nil {
		a.enter(StateTerminated)
		return err
	}

	for a.state != StateTerminated {
		switch a.state {
		case StateTitle:
			a.waitForStart(ctx)

		case StateListening:
			if err := a.screen.ShowListening(); err != nil {
				a.enter(StateTerminated)
				return err
			}
			a.enter(StateSessionActive)

		case StateSessionActive:
			err := a.runSession(ctx)
			a.enter(StateTerminated)
			if errors.Is(err, display.ErrAssetLoad) {
				return err
			}
			if err != nil {
				log.Error("Exception occurred", "err", err)
			}
		}
	}

	return nil
}

func (a *App) waitForStart(ctx context.Context) {
	log.Info("Press Enter to start talking to WellBot, 'Q' to quit")

	for {
		select {
		case <-ctx.Done():
			a.enter(StateTerminated)
			return

		case line, ok := <-a.lines:
			switch {
			case !ok, session.IsQuit(line):
				a.enter(StateTerminated)
				return
			case strings.TrimSpace(line) == "":
				a.enter(StateListening)
				return
			}
			log.Debug("Ignoring input on title screen", "line", line)

		case cmd := <-a.controls:
			switch cmd {
			case ipc.CmdStart:
				a.enter(StateListening)
				return
			case ipc.CmdQuit:
				a.enter(StateTerminated)
				return
			}
			log.Warn("Unknown command", "cmd", cmd)
		}
	}
}

// runSession runs the session and stops it early on a quit command.
func (a *App) runSession(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case cmd := <-a.controls:
				if cmd == ipc.CmdQuit {
					log.Info("Quit requested over control socket")
					cancel()
					return
				}
			}
		}
	}()

	return a.session.Run(ctx)
}

func (a *App) enter(s State) {
	if a.state != s || len(a.trace) == 0 {
		log.Debug("State", "from", a.state, "to", s)
	}
	a.state = s
	a.trace = append(a.trace, s)
}
