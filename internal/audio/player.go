package audio

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	log "log/slog"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/speaker"
	"github.com/faiface/beep/wav"
)

const queueSize = 32

// Player plays the assistant's WAV clips one after another.
type Player struct {
	queue chan string
	rate  beep.SampleRate
}

func NewPlayer() *Player {
	return &Player{queue: make(chan string, queueSize)}
}

// Enqueue schedules a base64 encoded WAV clip. Clips are dropped when
// the queue is full.
func (p *Player) Enqueue(b64 string) {
	select {
	case p.queue <- b64:
	default:
		log.Warn("Playback queue full, dropping clip")
	}
}

// Run plays queued clips until ctx is done.
func (p *Player) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			if p.rate != 0 {
				speaker.Clear()
			}
			return
		case b64 := <-p.queue:
			if err := p.play(ctx, b64); err != nil {
				log.Error("Failed to play clip", "err", err)
			}
		}
	}
}

func (p *Player) play(ctx context.Context, b64 string) error {
	streamer, format, err := decodeClip(b64)
	if err != nil {
		return err
	}
	defer streamer.Close()

	if p.rate == 0 {
		if err := speaker.Init(format.SampleRate, format.SampleRate.N(time.Second/10)); err != nil {
			return fmt.Errorf("init speaker: %w", err)
		}
		p.rate = format.SampleRate
	}

	var s beep.Streamer = streamer
	if format.SampleRate != p.rate {
		s = beep.Resample(4, format.SampleRate, p.rate, streamer)
	}

	done := make(chan struct{})
	speaker.Play(beep.Seq(s, beep.Callback(func() {
		close(done)
	})))

	select {
	case <-done:
	case <-ctx.Done():
		speaker.Clear()
	}
	return nil
}

func decodeClip(b64 string) (beep.StreamSeekCloser, beep.Format, error) {
	data, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, beep.Format{}, fmt.Errorf("decode base64: %w", err)
	}

	streamer, format, err := wav.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, beep.Format{}, fmt.Errorf("decode wav: %w", err)
	}
	return streamer, format, nil
}
