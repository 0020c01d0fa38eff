package display

import (
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"os"
	"path/filepath"
	"sync"
)

// Surface is where a finished frame is shown.
type Surface interface {
	Present(img image.Image) error
}

// PNGSurface writes every frame to a single PNG file. The file is
// replaced atomically so viewers that watch it never see a partial image.
type PNGSurface struct {
	Path string
}

func (s *PNGSurface) Present(img image.Image) error {
	dir := filepath.Dir(s.Path)

	tmp, err := os.CreateTemp(dir, ".frame-*.png")
	if err != nil {
		return fmt.Errorf("create frame: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := png.Encode(tmp, img); err != nil {
		tmp.Close()
		return fmt.Errorf("encode frame: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close frame: %w", err)
	}

	if err := os.Rename(tmp.Name(), s.Path); err != nil {
		return fmt.Errorf("publish frame: %w", err)
	}
	return nil
}

// MemorySurface keeps a copy of the last presented frame.
type MemorySurface struct {
	mu     sync.Mutex
	frames int
	last   *image.RGBA
}

func (s *MemorySurface) Present(img image.Image) error {
	cp := image.NewRGBA(img.Bounds())
	draw.Draw(cp, cp.Bounds(), img, img.Bounds().Min, draw.Src)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames++
	s.last = cp
	return nil
}

func (s *MemorySurface) Frames() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frames
}

func (s *MemorySurface) Last() *image.RGBA {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}
