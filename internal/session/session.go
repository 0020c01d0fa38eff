// Package session drives one voice session: it relays microphone audio
// and console text to the service and turns inbound events into reports
// and frames.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	log "log/slog"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"wellbot/internal/display"
	"wellbot/internal/evi"
	"wellbot/internal/message"
	"wellbot/internal/notify"
	"wellbot/internal/report"
)

var ErrSession = errors.New("session error")

var (
	errQuit   = errors.New("quit requested")
	errClosed = errors.New("connection closed")
)

// Conn is the part of evi.Conn the driver needs.
type Conn interface {
	Events() <-chan evi.Event
	SendSessionSettings(evi.AudioSettings) error
	SendText(text string) error
	SendAudio(pcm []byte) error
	Close() error
}

type Microphone interface {
	Stream(ctx context.Context, send func(pcm []byte) error) error
}

type Playback interface {
	Enqueue(b64 string)
}

type Renderer interface {
	Render(f display.Frame) error
}

type Driver struct {
	Dial       func(ctx context.Context) (Conn, error)
	Classifier *report.Classifier
	Renderer   Renderer
	Lines      <-chan string
	Out        io.Writer

	// Optional. Audio describes what Mic produces.
	Mic    Microphone
	Audio  evi.AudioSettings
	Player Playback

	out   *lockedWriter
	ready chan struct{}
}

// lockedWriter serializes console output of the concurrent tasks.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

// Run blocks until the operator quits, ctx is cancelled or the
// connection ends. A quit or cancellation returns nil. Asset errors
// are returned as they are; everything else wraps ErrSession.
func (d *Driver) Run(ctx context.Context) error {
	conn, err := d.Dial(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSession, err)
	}
	defer conn.Close()

	d.out = &lockedWriter{w: d.Out}
	d.ready = make(chan struct{})
	defer notify.Banner(d.out, notify.CloseText)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error { return d.inbound(gctx, conn) })
	g.Go(func() error { return d.console(gctx, conn) })
	if d.Mic != nil {
		g.Go(func() error { return d.microphone(gctx, conn) })
	}

	err = g.Wait()
	switch {
	case err == nil, err == errClosed, errors.Is(err, errQuit), errors.Is(err, context.Canceled):
		return nil
	case errors.Is(err, display.ErrAssetLoad):
		return err
	}
	return fmt.Errorf("%w: %w", ErrSession, err)
}

func (d *Driver) inbound(ctx context.Context, conn Conn) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-conn.Events():
			if !ok {
				return errClosed
			}
			if err := d.handle(conn, ev); err != nil {
				return err
			}
		}
	}
}

func (d *Driver) handle(conn Conn, ev evi.Event) error {
	switch e := ev.(type) {
	case evi.Opened:
		notify.Banner(d.out, notify.OpenText)
		if d.Mic != nil {
			if err := conn.SendSessionSettings(d.Audio); err != nil {
				return fmt.Errorf("session settings: %w", err)
			}
		}
		close(d.ready)

	case evi.Message:
		return d.message(e.Msg)

	case evi.Error:
		fmt.Fprintf(d.out, "Error: %v\n", e.Err)
		log.Error("Session error event", "err", e.Err)

	case evi.Closed:
		log.Info("Connection closed", "code", e.Code, "reason", e.Reason)
		if e.Normal() {
			return errClosed
		}
		return fmt.Errorf("%w: %s", errClosed, e)
	}

	return nil
}

func (d *Driver) message(msg *message.Inbound) error {
	if msg.Type() == message.TypeAudioOutput && d.Player != nil {
		d.Player.Enqueue(msg.Get("data").String())
	}

	rep, err := d.Classifier.Classify(msg)
	if err != nil {
		log.Warn("Skipping malformed message", "seq", rep.Seq, "type", msg.Type(), "err", err)
		return nil
	}

	fmt.Fprint(d.out, rep.Text)

	if rep.Frame == nil {
		return nil
	}
	if err := d.Renderer.Render(*rep.Frame); err != nil {
		if errors.Is(err, display.ErrAssetLoad) {
			return err
		}
		log.Error("Failed to render", "seq", rep.Seq, "err", err)
	}
	return nil
}

func (d *Driver) console(ctx context.Context, conn Conn) error {
	for {
		fmt.Fprint(d.out, Prompt)

		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-d.Lines:
			if !ok || IsQuit(line) {
				fmt.Fprintln(d.out, "Closing the connection...")
				if err := conn.Close(); err != nil {
					log.Debug("Close failed", "err", err)
				}
				return errQuit
			}
			if strings.TrimSpace(line) == "" {
				continue
			}
			if err := conn.SendText(line); err != nil {
				return fmt.Errorf("send text: %w", err)
			}
			log.Debug("Sent text", "len", len(line))
		}
	}
}

// microphone starts streaming once the session settings went out.
func (d *Driver) microphone(ctx context.Context, conn Conn) error {
	select {
	case <-ctx.Done():
		return nil
	case <-d.ready:
	}

	if err := d.Mic.Stream(ctx, conn.SendAudio); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("microphone: %w", err)
	}
	return nil
}
