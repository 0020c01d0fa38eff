// Package display draws WellBot's slideshow frames: a scaled background
// image with emotion labels and the assistant reply on top.
package display

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	log "log/slog"
	"os"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

const (
	Width  = 1280
	Height = 720

	FontSize = 30

	labelRow     = 220
	replyMargin  = 320
	replyFirstY  = 370
	replyRowStep = 45
)

var labelColumns = [3]int{340, 685, 1035}

var ErrAssetLoad = errors.New("asset load failed")

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Frame is one render request produced for an inbound message.
type Frame struct {
	Role     Role
	Content  string
	Emotions [3]string
}

type Background int

const (
	BackgroundNone Background = iota
	BackgroundTitle
	BackgroundListening
	BackgroundSpeaking
)

func (b Background) String() string {
	switch b {
	case BackgroundTitle:
		return "title"
	case BackgroundListening:
		return "listening"
	case BackgroundSpeaking:
		return "speaking"
	}
	return "none"
}

// Assets holds the paths of the three background images.
type Assets struct {
	Title     string
	Listening string
	Speaking  string
}

func (a Assets) path(b Background) string {
	switch b {
	case BackgroundTitle:
		return a.Title
	case BackgroundListening:
		return a.Listening
	case BackgroundSpeaking:
		return a.Speaking
	}
	return ""
}

// Text is a string drawn with its top-left corner at X, Y.
type Text struct {
	X, Y int
	S    string
}

// State is what is currently on screen.
type State struct {
	Background Background
	Texts      []Text
}

// Renderer owns the canvas. It is not safe for concurrent use.
type Renderer struct {
	assets  Assets
	surface Surface
	canvas  *image.RGBA
	face    font.Face
	cache   map[Background]*image.RGBA
	state   State
}

func NewRenderer(assets Assets, surface Surface) (*Renderer, error) {
	f, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse font: %w", err)
	}

	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    FontSize,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("new face: %w", err)
	}

	return &Renderer{
		assets:  assets,
		surface: surface,
		canvas:  image.NewRGBA(image.Rect(0, 0, Width, Height)),
		face:    face,
		cache:   make(map[Background]*image.RGBA),
	}, nil
}

func (r *Renderer) State() State {
	st := r.state
	st.Texts = append([]Text(nil), r.state.Texts...)
	return st
}

func (r *Renderer) ShowTitle() error {
	return r.show(BackgroundTitle)
}

func (r *Renderer) ShowListening() error {
	return r.show(BackgroundListening)
}

// Render updates the screen for one classified message.
func (r *Renderer) Render(f Frame) error {
	switch f.Role {
	case RoleUser:
		return r.show(BackgroundListening)

	case RoleAssistant:
		if err := r.background(BackgroundSpeaking); err != nil {
			return err
		}

		for i, label := range f.Emotions {
			r.text(labelColumns[i], labelRow, label)
		}

		y := replyFirstY
		for _, line := range Wrap(f.Content) {
			r.text(replyMargin, y, line)
			y += replyRowStep
		}

		return r.present()
	}

	log.Debug("Nothing to render", "role", f.Role)
	return nil
}

func (r *Renderer) show(b Background) error {
	if err := r.background(b); err != nil {
		return err
	}
	return r.present()
}

func (r *Renderer) background(b Background) error {
	img, err := r.load(b)
	if err != nil {
		return err
	}

	draw.Draw(r.canvas, r.canvas.Bounds(), img, image.Point{}, draw.Src)
	r.state = State{Background: b}
	return nil
}

func (r *Renderer) load(b Background) (*image.RGBA, error) {
	if img, ok := r.cache[b]; ok {
		return img, nil
	}

	path := r.assets.path(b)

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrAssetLoad, b, err)
	}
	defer f.Close()

	src, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: decode %s: %w", ErrAssetLoad, b, path, err)
	}

	scaled := image.NewRGBA(image.Rect(0, 0, Width, Height))
	draw.CatmullRom.Scale(scaled, scaled.Bounds(), src, src.Bounds(), draw.Src, nil)

	log.Debug("Loaded background", "kind", b, "path", path, "size", src.Bounds().Size())

	r.cache[b] = scaled
	return scaled, nil
}

func (r *Renderer) text(x, y int, s string) {
	r.state.Texts = append(r.state.Texts, Text{X: x, Y: y, S: s})
	if s == "" {
		return
	}

	d := &font.Drawer{
		Dst:  r.canvas,
		Src:  image.NewUniform(color.Black),
		Face: r.face,
		Dot:  fixed.P(x, y+r.face.Metrics().Ascent.Ceil()),
	}
	d.DrawString(s)
}

func (r *Renderer) present() error {
	if err := r.surface.Present(r.canvas); err != nil {
		return fmt.Errorf("present: %w", err)
	}
	return nil
}
