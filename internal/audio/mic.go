package audio

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	log "log/slog"

	"github.com/gordonklaus/portaudio"
)

const (
	SampleRate = 16000
	Channels   = 1
	frameSize  = 320 // 20ms
)

// Microphone streams 16-bit little endian mono PCM from an input device.
type Microphone struct {
	// Device is an index into portaudio.Devices(); negative means the
	// system default input.
	Device int
}

func NewMicrophone(device int) *Microphone { return &Microphone{Device: device} }

func (m *Microphone) Init() error {
	return portaudio.Initialize()
}

func (m *Microphone) Close() {
	portaudio.Terminate()
}

// Stream reads frames until ctx is done and hands each one to send.
func (m *Microphone) Stream(ctx context.Context, send func(pcm []byte) error) error {
	buf := make([]int16, frameSize)
	out := make([]byte, frameSize*2)

	stream, err := m.open(buf)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return fmt.Errorf("start input: %w", err)
	}
	defer stream.Stop()

	log.Debug("Microphone streaming", "device", m.Device, "rate", SampleRate)

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		if err := stream.Read(); err != nil {
			if errors.Is(err, portaudio.InputOverflowed) {
				log.Debug("Input overflowed")
				continue
			}
			return fmt.Errorf("read input: %w", err)
		}

		if err := send(encodePCM16(buf, out)); err != nil {
			return err
		}
	}
}

func (m *Microphone) open(buf []int16) (*portaudio.Stream, error) {
	if m.Device < 0 {
		return portaudio.OpenDefaultStream(Channels, 0, SampleRate, len(buf), buf)
	}

	devs, err := portaudio.Devices()
	if err != nil {
		return nil, err
	}
	if m.Device >= len(devs) {
		return nil, fmt.Errorf("no input device %d (have %d)", m.Device, len(devs))
	}

	dev := devs[m.Device]
	if dev.MaxInputChannels < Channels {
		return nil, fmt.Errorf("device %q has no input channels", dev.Name)
	}

	params := portaudio.LowLatencyParameters(dev, nil)
	params.Input.Channels = Channels
	params.SampleRate = SampleRate
	params.FramesPerBuffer = len(buf)

	return portaudio.OpenStream(params, buf)
}

// encodePCM16 writes samples into out as little endian and returns the
// filled part of out.
func encodePCM16(samples []int16, out []byte) []byte {
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
	return out[:len(samples)*2]
}
