package session

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wellbot/internal/display"
	"wellbot/internal/evi"
	"wellbot/internal/message"
	"wellbot/internal/report"
)

type fakeConn struct {
	events chan evi.Event

	mu       sync.Mutex
	texts    []string
	frames   int
	settings []evi.AudioSettings
	closed   bool
	once     sync.Once
}

func newFakeConn() *fakeConn {
	c := &fakeConn{events: make(chan evi.Event, 32)}
	c.events <- evi.Opened{}
	return c
}

func (c *fakeConn) Events() <-chan evi.Event { return c.events }

func (c *fakeConn) SendSessionSettings(a evi.AudioSettings) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.settings = append(c.settings, a)
	return nil
}

func (c *fakeConn) SendText(text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errors.New("closed")
	}
	c.texts = append(c.texts, text)
	return nil
}

func (c *fakeConn) SendAudio(pcm []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errors.New("closed")
	}
	c.frames++
	return nil
}

func (c *fakeConn) Close() error {
	c.once.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()
		c.events <- evi.Closed{Code: 1000}
		close(c.events)
	})
	return nil
}

func (c *fakeConn) push(t *testing.T, raw string) {
	t.Helper()
	m, err := message.Parse([]byte(raw))
	require.NoError(t, err)
	c.events <- evi.Message{Msg: m}
}

func (c *fakeConn) sentTexts() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.texts...)
}

type fakeRenderer struct {
	mu     sync.Mutex
	frames []display.Frame
	err    error
}

func (r *fakeRenderer) Render(f display.Frame) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames = append(r.frames, f)
	return r.err
}

func (r *fakeRenderer) rendered() []display.Frame {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]display.Frame(nil), r.frames...)
}

type fakePlayer struct {
	mu    sync.Mutex
	clips []string
}

func (p *fakePlayer) Enqueue(b64 string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.clips = append(p.clips, b64)
}

type fakeMic struct{ frames int }

func (m *fakeMic) Stream(ctx context.Context, send func([]byte) error) error {
	for i := 0; i < m.frames; i++ {
		if err := send([]byte{0, 0}); err != nil {
			return err
		}
	}
	<-ctx.Done()
	return nil
}

type harness struct {
	conn     *fakeConn
	renderer *fakeRenderer
	lines    chan string
	out      *bytes.Buffer
	driver   *Driver
}

func newHarness() *harness {
	h := &harness{
		conn:     newFakeConn(),
		renderer: &fakeRenderer{},
		lines:    make(chan string),
		out:      &bytes.Buffer{},
	}
	h.driver = &Driver{
		Dial:       func(context.Context) (Conn, error) { return h.conn, nil },
		Classifier: report.NewClassifier(),
		Renderer:   h.renderer,
		Lines:      h.lines,
		Out:        h.out,
	}
	return h
}

func (h *harness) run(ctx context.Context) chan error {
	done := make(chan error, 1)
	go func() { done <- h.driver.Run(ctx) }()
	return done
}

func wait(t *testing.T, done chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("session did not end")
		return nil
	}
}

func TestUserMessageThenQuit(t *testing.T) {
	h := newHarness()
	done := h.run(context.Background())

	h.conn.push(t, `{"type":"user_message","message":{"role":"user","content":"hi"}}`)
	require.Eventually(t, func() bool { return len(h.renderer.rendered()) == 1 }, 2*time.Second, 5*time.Millisecond)

	h.lines <- "   q  "
	require.NoError(t, wait(t, done))

	assert.Equal(t, []display.Frame{{Role: display.RoleUser}}, h.renderer.rendered())
	assert.Empty(t, h.conn.sentTexts())
	assert.Equal(t, 1, h.driver.Classifier.Count())

	out := h.out.String()
	assert.Contains(t, out, "Message 1")
	assert.Contains(t, out, "role: user")
	assert.Contains(t, out, "content: hi")
	assert.Contains(t, out, "Closing the connection...")
	assert.Contains(t, out, "WellBot")
}

func TestTextIsForwarded(t *testing.T) {
	h := newHarness()
	done := h.run(context.Background())

	h.lines <- "hello there"
	h.lines <- "   "
	h.lines <- "how are you"
	h.lines <- "Q"
	require.NoError(t, wait(t, done))

	assert.Equal(t, []string{"hello there", "how are you"}, h.conn.sentTexts())
}

func TestConsoleEOFQuits(t *testing.T) {
	h := newHarness()
	done := h.run(context.Background())

	close(h.lines)
	require.NoError(t, wait(t, done))
	assert.True(t, h.conn.closed)
}

func TestMalformedMessageIsSkipped(t *testing.T) {
	h := newHarness()
	done := h.run(context.Background())

	h.conn.push(t, `{"type":"assistant_message","message":{"role":"assistant"}}`)
	h.conn.push(t, `{"type":"assistant_message","message":{"role":"assistant","content":"still here"},
		"models":{"prosody":{"scores":{"Joy":0.7,"Calmness":0.9}}}}`)
	require.Eventually(t, func() bool { return len(h.renderer.rendered()) == 1 }, 2*time.Second, 5*time.Millisecond)

	h.lines <- "q"
	require.NoError(t, wait(t, done))

	assert.Equal(t, []display.Frame{{
		Role:     display.RoleAssistant,
		Content:  "still here",
		Emotions: [3]string{"Calmness", "Joy", ""},
	}}, h.renderer.rendered())
	assert.Equal(t, 2, h.driver.Classifier.Count())
	assert.NotContains(t, h.out.String(), "Message 1\n")
	assert.Contains(t, h.out.String(), "Message 2\n")
}

func TestErrorEventIsPrinted(t *testing.T) {
	h := newHarness()
	done := h.run(context.Background())

	h.conn.events <- evi.Error{Err: errors.New("bad frame")}
	h.conn.push(t, `{"type":"user_message","message":{"role":"user","content":"x"}}`)
	require.Eventually(t, func() bool { return len(h.renderer.rendered()) == 1 }, 2*time.Second, 5*time.Millisecond)

	h.lines <- "q"
	require.NoError(t, wait(t, done))
	assert.Contains(t, h.out.String(), "Error: bad frame")
}

func TestServerCloseEndsSession(t *testing.T) {
	h := newHarness()
	done := h.run(context.Background())

	h.conn.events <- evi.Closed{Code: 1000}
	assert.NoError(t, wait(t, done))
}

func TestAbnormalCloseIsSessionError(t *testing.T) {
	h := newHarness()
	done := h.run(context.Background())

	h.conn.events <- evi.Closed{Code: 1011, Reason: "internal"}
	assert.ErrorIs(t, wait(t, done), ErrSession)
}

func TestDialFailure(t *testing.T) {
	h := newHarness()
	h.driver.Dial = func(context.Context) (Conn, error) { return nil, errors.New("no route") }

	err := h.driver.Run(context.Background())
	assert.ErrorIs(t, err, ErrSession)
	assert.ErrorContains(t, err, "no route")
}

func TestAssetErrorPropagates(t *testing.T) {
	h := newHarness()
	h.renderer.err = display.ErrAssetLoad
	done := h.run(context.Background())

	h.conn.push(t, `{"type":"user_message","message":{"role":"user","content":"hi"}}`)

	err := wait(t, done)
	assert.ErrorIs(t, err, display.ErrAssetLoad)
	assert.NotErrorIs(t, err, ErrSession)
}

func TestCancelEndsSession(t *testing.T) {
	h := newHarness()
	ctx, cancel := context.WithCancel(context.Background())
	done := h.run(ctx)

	cancel()
	assert.NoError(t, wait(t, done))
}

func TestMicrophoneAndPlayback(t *testing.T) {
	h := newHarness()
	player := &fakePlayer{}
	h.driver.Mic = &fakeMic{frames: 3}
	h.driver.Audio = evi.AudioSettings{Encoding: "linear16", SampleRate: 16000, Channels: 1}
	h.driver.Player = player
	done := h.run(context.Background())

	h.conn.push(t, `{"type":"audio_output","data":"UklGRg=="}`)
	require.Eventually(t, func() bool {
		player.mu.Lock()
		clips := len(player.clips)
		player.mu.Unlock()

		h.conn.mu.Lock()
		defer h.conn.mu.Unlock()
		return h.conn.frames == 3 && clips == 1
	}, 2*time.Second, 5*time.Millisecond)

	h.lines <- "Q"
	require.NoError(t, wait(t, done))

	assert.Equal(t, []evi.AudioSettings{{Encoding: "linear16", SampleRate: 16000, Channels: 1}}, h.conn.settings)
	assert.Equal(t, []string{"UklGRg=="}, player.clips)
	assert.NotContains(t, h.out.String(), "UklGRg")
}

func TestIsQuit(t *testing.T) {
	for _, s := range []string{"q", "Q", "   q  ", "\tQ\n"} {
		assert.True(t, IsQuit(s), s)
	}
	for _, s := range []string{"", "quit", "qq", "hello"} {
		assert.False(t, IsQuit(s), s)
	}
}

func TestReadLines(t *testing.T) {
	var got []string
	for line := range ReadLines(strings.NewReader("one\ntwo\n\nthree")) {
		got = append(got, line)
	}
	assert.Equal(t, []string{"one", "two", "", "three"}, got)
}
