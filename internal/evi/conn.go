// Package evi is a small client for the Hume empathic voice interface
// chat socket.
package evi

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	log "log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	ws "github.com/gorilla/websocket"

	"wellbot/internal/message"
)

const (
	DefaultBaseURL = "https://api.hume.ai"
	chatPath       = "/v0/evi/chat"

	eventBuffer  = 64
	writeTimeout = 10 * time.Second
)

type Config struct {
	BaseURL   string
	ConfigID  string
	APIKey    string
	SecretKey string

	HTTPClient *http.Client
	Dialer     *ws.Dialer
}

// AudioSettings describes the raw audio sent with SendAudio.
type AudioSettings struct {
	Encoding   string `json:"encoding"`
	SampleRate int    `json:"sample_rate"`
	Channels   int    `json:"channels"`
}

type sessionSettings struct {
	Type  string         `json:"type"`
	Audio *AudioSettings `json:"audio,omitempty"`
}

type audioInput struct {
	Type string `json:"type"`
	Data string `json:"data"`
}

type userInput struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type Conn struct {
	conn *ws.Conn

	writeMu sync.Mutex

	events chan Event
	done   chan struct{}
	once   sync.Once
}

// Dial authenticates, opens the chat socket and starts delivering events.
func Dial(ctx context.Context, cfg Config) (*Conn, error) {
	u, err := chatURL(ctx, cfg)
	if err != nil {
		return nil, err
	}

	dialer := cfg.Dialer
	if dialer == nil {
		dialer = ws.DefaultDialer
	}

	log.Debug("Dialing chat socket", "host", u.Host, "config_id", cfg.ConfigID)

	conn, resp, err := dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial chat socket: status %d: %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("dial chat socket: %w", err)
	}

	c := &Conn{
		conn:   conn,
		events: make(chan Event, eventBuffer),
		done:   make(chan struct{}),
	}
	go c.readLoop()

	return c, nil
}

func chatURL(ctx context.Context, cfg Config) (*url.URL, error) {
	base := cfg.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}

	u, err := url.Parse(strings.TrimRight(base, "/") + chatPath)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}

	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http":
		u.Scheme = "ws"
	}

	q := u.Query()
	if cfg.ConfigID != "" {
		q.Set("config_id", cfg.ConfigID)
	}

	if cfg.SecretKey != "" {
		token, err := FetchAccessToken(ctx, cfg.HTTPClient, base, cfg.APIKey, cfg.SecretKey)
		if err != nil {
			return nil, err
		}
		q.Set("access_token", token)
	} else {
		q.Set("api_key", cfg.APIKey)
	}

	u.RawQuery = q.Encode()
	return u, nil
}

// Events yields session events in arrival order. The channel is closed
// after Closed has been delivered.
func (c *Conn) Events() <-chan Event {
	return c.events
}

func (c *Conn) SendSessionSettings(a AudioSettings) error {
	return c.writeJSON(sessionSettings{Type: "session_settings", Audio: &a})
}

func (c *Conn) SendText(text string) error {
	return c.writeJSON(userInput{Type: "user_input", Text: text})
}

func (c *Conn) SendAudio(pcm []byte) error {
	return c.writeJSON(audioInput{
		Type: "audio_input",
		Data: base64.StdEncoding.EncodeToString(pcm),
	})
}

// Close sends a normal close frame and tears the socket down.
// It is safe to call more than once.
func (c *Conn) Close() error {
	var err error
	c.once.Do(func() {
		close(c.done)

		c.writeMu.Lock()
		_ = c.conn.WriteControl(ws.CloseMessage,
			ws.FormatCloseMessage(ws.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		c.writeMu.Unlock()

		err = c.conn.Close()
	})
	return err
}

func (c *Conn) writeJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	select {
	case <-c.done:
		return ws.ErrCloseSent
	default:
	}

	_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := c.conn.WriteMessage(ws.TextMessage, data); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	return nil
}

type incomeKind uint

const (
	connClose incomeKind = iota
	readFailure
	readOK
)

type income struct {
	kind incomeKind
	msg  []byte
	err  error
}

func (c *Conn) read() income {
	for {
		mt, msg, err := c.conn.ReadMessage()
		if err != nil {
			if isClosed(err) {
				return income{kind: connClose, err: err}
			}
			return income{kind: readFailure, err: err}
		}
		if mt != ws.TextMessage {
			log.Debug("Skipping non-text frame", "type", mt)
			continue
		}
		return income{kind: readOK, msg: msg}
	}
}

func (c *Conn) readLoop() {
	defer close(c.events)

	c.emit(Opened{})

	for {
		in := c.read()
		switch in.kind {
		case connClose:
			closed := Closed{}
			var ce *ws.CloseError
			if errors.As(in.err, &ce) {
				closed.Code, closed.Reason = ce.Code, ce.Text
			}
			if closed.Code != ws.CloseNormalClosure && closed.Code != ws.CloseGoingAway {
				c.emit(Error{Err: fmt.Errorf("socket closed: %w", in.err)})
			}
			c.emit(closed)
			return

		case readFailure:
			if c.closing() {
				c.emit(Closed{Code: ws.CloseNormalClosure})
				return
			}
			c.emit(Error{Err: fmt.Errorf("read: %w", in.err)})
			c.emit(Closed{Code: ws.CloseAbnormalClosure})
			return

		case readOK:
			msg, err := message.Parse(in.msg)
			if err != nil {
				log.Warn("Failed to parse", "msg", string(in.msg), "err", err)
				c.emit(Error{Err: fmt.Errorf("parse inbound: %w", err)})
				continue
			}
			c.emit(Message{Msg: msg})
		}
	}
}

// emit blocks until the consumer takes the event. Once the connection
// is closing, only the final Closed event is still waited for.
func (c *Conn) emit(e Event) {
	if _, final := e.(Closed); final {
		select {
		case c.events <- e:
		case <-time.After(time.Second):
			log.Warn("Dropping close event, nobody is listening")
		}
		return
	}

	select {
	case c.events <- e:
	case <-c.done:
	}
}

func (c *Conn) closing() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// isClosed reports whether the peer ended the socket with a close frame.
func isClosed(err error) bool {
	var ce *ws.CloseError
	return errors.As(err, &ce)
}
