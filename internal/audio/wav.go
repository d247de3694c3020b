package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// WAVHeaderSize is the size of the canonical RIFF/WAVE header written by EncodeWAV.
const WAVHeaderSize = 44

const (
	wavFormatPCM        = 1
	wavFormatFloat      = 3
	wavFormatExtensible = 0xFFFE
)

// WAVHeader is the canonical 44-byte header.
type WAVHeader struct {
	ChunkID       [4]byte // "RIFF"
	ChunkSize     uint32  // payload + 36
	Format        [4]byte // "WAVE"
	Subchunk1ID   [4]byte // "fmt "
	Subchunk1Size uint32
	AudioFormat   uint16
	NumChannels   uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
	Subchunk2ID   [4]byte // "data"
	Subchunk2Size uint32  // payload length
}

// EncodeWAV wraps raw PCM in a canonical WAV container. Only integer PCM formats
// can be encoded.
func EncodeWAV(pcm []byte, f Format) ([]byte, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	if f.Encoding == F32LE {
		return nil, fmt.Errorf("encode wav: float samples not supported")
	}

	bits := uint16(f.Encoding.BytesPerSample() * 8)
	dataSize := uint32(len(pcm))

	header := WAVHeader{
		ChunkID:       [4]byte{'R', 'I', 'F', 'F'},
		ChunkSize:     36 + dataSize,
		Format:        [4]byte{'W', 'A', 'V', 'E'},
		Subchunk1ID:   [4]byte{'f', 'm', 't', ' '},
		Subchunk1Size: 16,
		AudioFormat:   wavFormatPCM,
		NumChannels:   uint16(f.Channels),
		SampleRate:    uint32(f.SampleRate),
		ByteRate:      uint32(f.BytesPerSecond()),
		BlockAlign:    uint16(f.FrameSize()),
		BitsPerSample: bits,
		Subchunk2ID:   [4]byte{'d', 'a', 't', 'a'},
		Subchunk2Size: dataSize,
	}

	buf := bytes.NewBuffer(make([]byte, 0, WAVHeaderSize+len(pcm)))
	if err := binary.Write(buf, binary.LittleEndian, header); err != nil {
		return nil, fmt.Errorf("write wav header: %w", err)
	}
	buf.Write(pcm)

	return buf.Bytes(), nil
}

// ParseWAVHeader decodes and validates a canonical 44-byte header.
func ParseWAVHeader(data []byte) (WAVHeader, error) {
	var h WAVHeader
	if len(data) < WAVHeaderSize {
		return h, fmt.Errorf("wav data too short: need at least %d bytes, got %d", WAVHeaderSize, len(data))
	}
	if err := binary.Read(bytes.NewReader(data[:WAVHeaderSize]), binary.LittleEndian, &h); err != nil {
		return h, fmt.Errorf("read wav header: %w", err)
	}
	if string(h.ChunkID[:]) != "RIFF" || string(h.Format[:]) != "WAVE" {
		return h, fmt.Errorf("invalid wav file: missing RIFF/WAVE header")
	}
	if string(h.Subchunk1ID[:]) != "fmt " {
		return h, fmt.Errorf("invalid wav file: missing fmt chunk")
	}
	if string(h.Subchunk2ID[:]) != "data" {
		return h, fmt.Errorf("invalid wav file: missing data chunk")
	}
	if h.ChunkSize != 36+h.Subchunk2Size {
		return h, fmt.Errorf("invalid wav file: riff size %d does not match data size %d", h.ChunkSize, h.Subchunk2Size)
	}
	return h, nil
}

// PCMFormat returns the audio format declared by the header.
func (h WAVHeader) PCMFormat() (Format, error) {
	return formatFromFmt(h.AudioFormat, h.NumChannels, h.SampleRate, h.BitsPerSample)
}

// ReadWAV reads a RIFF/WAVE stream up to the start of its data chunk, skipping any
// chunks it does not know. The returned reader yields the PCM payload.
func ReadWAV(r io.Reader) (Format, io.Reader, error) {
	var riff [12]byte
	if _, err := io.ReadFull(r, riff[:]); err != nil {
		return Format{}, nil, fmt.Errorf("read riff header: %w", err)
	}
	if string(riff[0:4]) != "RIFF" || string(riff[8:12]) != "WAVE" {
		return Format{}, nil, errors.New("invalid wav file: missing RIFF/WAVE header")
	}

	var (
		format  Format
		haveFmt bool
	)
	for {
		var hdr [8]byte
		if _, err := io.ReadFull(r, hdr[:]); err != nil {
			return Format{}, nil, fmt.Errorf("read chunk header: %w", err)
		}
		id := string(hdr[0:4])
		size := binary.LittleEndian.Uint32(hdr[4:8])

		switch id {
		case "fmt ":
			if size < 16 {
				return Format{}, nil, fmt.Errorf("invalid fmt chunk size: %d", size)
			}
			body := make([]byte, size+size%2)
			if _, err := io.ReadFull(r, body); err != nil {
				return Format{}, nil, fmt.Errorf("read fmt chunk: %w", err)
			}
			tag := binary.LittleEndian.Uint16(body[0:2])
			if tag == wavFormatExtensible {
				if size < 40 {
					return Format{}, nil, fmt.Errorf("invalid extensible fmt chunk size: %d", size)
				}
				// the sub-format GUID starts with the plain format tag
				tag = binary.LittleEndian.Uint16(body[24:26])
			}
			f, err := formatFromFmt(
				tag,
				binary.LittleEndian.Uint16(body[2:4]),
				binary.LittleEndian.Uint32(body[4:8]),
				binary.LittleEndian.Uint16(body[14:16]),
			)
			if err != nil {
				return Format{}, nil, err
			}
			format, haveFmt = f, true

		case "data":
			if !haveFmt {
				return Format{}, nil, errors.New("invalid wav file: data chunk before fmt chunk")
			}
			return format, io.LimitReader(r, int64(size)), nil

		default:
			if _, err := io.CopyN(io.Discard, r, int64(size+size%2)); err != nil {
				return Format{}, nil, fmt.Errorf("skip %q chunk: %w", id, err)
			}
		}
	}
}

func formatFromFmt(audioFormat, channels uint16, rate uint32, bits uint16) (Format, error) {
	var enc Encoding
	switch {
	case audioFormat == wavFormatPCM && bits == 16:
		enc = S16LE
	case audioFormat == wavFormatPCM && bits == 32:
		enc = S32LE
	case audioFormat == wavFormatFloat && bits == 32:
		enc = F32LE
	default:
		return Format{}, fmt.Errorf("unsupported wav format: tag %d, %d bits", audioFormat, bits)
	}
	f := Format{SampleRate: int(rate), Channels: int(channels), Encoding: enc}
	return f, f.Validate()
}
