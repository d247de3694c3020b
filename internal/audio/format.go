package audio

import (
	"fmt"
	"strings"
	"time"
)

// Encoding is the sample encoding of interleaved PCM data.
type Encoding string

const (
	S16LE Encoding = "s16le"
	S32LE Encoding = "s32le"
	F32LE Encoding = "f32le"
)

// BytesPerSample returns the width of one sample, or 0 for an unknown encoding.
func (e Encoding) BytesPerSample() int {
	switch e {
	case S16LE:
		return 2
	case S32LE, F32LE:
		return 4
	default:
		return 0
	}
}

// ParseEncoding accepts the names used by pw-record and parec ("s16", "s16le", "float32le", ...).
func ParseEncoding(s string) (Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "s16", "s16le", "s16_le":
		return S16LE, nil
	case "s32", "s32le", "s32_le":
		return S32LE, nil
	case "f32", "f32le", "float32le", "float32":
		return F32LE, nil
	default:
		return "", fmt.Errorf("unsupported sample encoding: %q", s)
	}
}

// Format describes interleaved PCM audio.
type Format struct {
	SampleRate int
	Channels   int
	Encoding   Encoding
}

// Canonical is the format every component after the converter assumes.
var Canonical = Format{SampleRate: 16000, Channels: 1, Encoding: S16LE}

func (f Format) String() string {
	return fmt.Sprintf("%dHz/%dch/%s", f.SampleRate, f.Channels, f.Encoding)
}

// FrameSize is the size in bytes of one sample for every channel.
func (f Format) FrameSize() int {
	return f.Channels * f.Encoding.BytesPerSample()
}

func (f Format) BytesPerSecond() int {
	return f.SampleRate * f.FrameSize()
}

// Bytes returns the number of bytes holding d of audio, rounded down to whole frames.
func (f Format) Bytes(d time.Duration) int {
	frames := int(int64(f.SampleRate) * int64(d) / int64(time.Second))
	return frames * f.FrameSize()
}

// Duration returns how much audio n bytes hold.
func (f Format) Duration(n int) time.Duration {
	bps := f.BytesPerSecond()
	if bps == 0 {
		return 0
	}
	return time.Duration(int64(n) * int64(time.Second) / int64(bps))
}

func (f Format) Validate() error {
	if f.SampleRate <= 0 {
		return fmt.Errorf("invalid sample rate: %d", f.SampleRate)
	}
	if f.Channels <= 0 {
		return fmt.Errorf("invalid channels: %d", f.Channels)
	}
	if f.Encoding.BytesPerSample() == 0 {
		return fmt.Errorf("invalid encoding: %q", f.Encoding)
	}
	return nil
}
