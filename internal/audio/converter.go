package audio

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Converter turns native-format PCM into the Canonical format. It keeps state between
// calls (partial frames and resampler phase) so consecutive calls produce a gapless
// stream. A Converter is not safe for concurrent use.
type Converter struct {
	in  Format
	out Format

	pending []byte // trailing bytes of an incomplete input frame

	step float64 // input samples per output sample
	pos  float64 // position of the next output sample, -1 refers to prev
	prev float64
}

// NewConverter creates a converter from in to Canonical.
func NewConverter(in Format) (*Converter, error) {
	if err := in.Validate(); err != nil {
		return nil, fmt.Errorf("converter: %w", err)
	}
	return &Converter{
		in:   in,
		out:  Canonical,
		step: float64(in.SampleRate) / float64(Canonical.SampleRate),
	}, nil
}

func (c *Converter) InputFormat() Format { return c.in }

// Passthrough reports whether input already is in the canonical format.
func (c *Converter) Passthrough() bool { return c.in == c.out }

// Convert consumes native bytes and returns canonical s16le mono bytes. The result may
// be empty when not enough input has accumulated to produce a sample.
func (c *Converter) Convert(native []byte) []byte {
	frameSize := c.in.FrameSize()

	data := native
	if len(c.pending) > 0 {
		data = append(c.pending, native...)
		c.pending = nil
	}
	whole := len(data) - len(data)%frameSize
	if whole < len(data) {
		c.pending = append([]byte(nil), data[whole:]...)
	}
	data = data[:whole]
	if len(data) == 0 {
		return nil
	}

	if c.Passthrough() {
		out := make([]byte, len(data))
		copy(out, data)
		return out
	}

	mono := c.downmix(data)
	if c.in.SampleRate == c.out.SampleRate {
		return quantize(mono)
	}
	return quantize(c.resample(mono))
}

// downmix averages the channels of each frame into one sample in [-1, 1].
func (c *Converter) downmix(data []byte) []float64 {
	bps := c.in.Encoding.BytesPerSample()
	frameSize := c.in.FrameSize()
	frames := len(data) / frameSize

	out := make([]float64, frames)
	for i := 0; i < frames; i++ {
		var sum float64
		base := i * frameSize
		for ch := 0; ch < c.in.Channels; ch++ {
			sum += decodeSample(data[base+ch*bps:], c.in.Encoding)
		}
		out[i] = sum / float64(c.in.Channels)
	}
	return out
}

// resample does linear interpolation, carrying the fractional read position and the last
// input sample into the next call.
func (c *Converter) resample(x []float64) []float64 {
	n := len(x)
	at := func(i int) float64 {
		if i < 0 {
			return c.prev
		}
		return x[i]
	}

	out := make([]float64, 0, int(float64(n)/c.step)+1)
	for {
		i := int(math.Floor(c.pos))
		if i+1 > n-1 {
			break
		}
		frac := c.pos - float64(i)
		out = append(out, at(i)*(1-frac)+at(i+1)*frac)
		c.pos += c.step
	}

	c.pos -= float64(n)
	c.prev = x[n-1]
	return out
}

func decodeSample(b []byte, enc Encoding) float64 {
	switch enc {
	case S16LE:
		return float64(int16(binary.LittleEndian.Uint16(b))) / 32768.0
	case S32LE:
		return float64(int32(binary.LittleEndian.Uint32(b))) / 2147483648.0
	case F32LE:
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(b)))
	default:
		return 0
	}
}

func quantize(samples []float64) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		v := math.Round(s * 32768.0)
		if v > math.MaxInt16 {
			v = math.MaxInt16
		} else if v < math.MinInt16 {
			v = math.MinInt16
		}
		binary.LittleEndian.PutUint16(out[i*2:], uint16(int16(v)))
	}
	return out
}
