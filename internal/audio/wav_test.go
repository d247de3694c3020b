package audio

import (
	"bytes"
	"encoding/binary"
	"io"
	"math"
	"testing"
	"time"
)

func TestEncodeWAV_HeaderFields(t *testing.T) {
	pcm := make([]byte, Canonical.Bytes(2*time.Second))
	for i := range pcm {
		pcm[i] = byte(i)
	}

	wav, err := EncodeWAV(pcm, Canonical)
	if err != nil {
		t.Fatalf("EncodeWAV() error = %v", err)
	}

	if len(pcm) != 64000 {
		t.Fatalf("2s of canonical audio should be 64000 bytes, got %d", len(pcm))
	}
	if len(wav) != WAVHeaderSize+len(pcm) {
		t.Errorf("len(wav) = %d, want %d", len(wav), WAVHeaderSize+len(pcm))
	}

	tests := []struct {
		name   string
		offset int
		want   uint32
		size   int
	}{
		{"riff size", 4, uint32(len(pcm) + 36), 4},
		{"fmt size", 16, 16, 4},
		{"audio format", 20, 1, 2},
		{"channels", 22, 1, 2},
		{"sample rate", 24, 16000, 4},
		{"byte rate", 28, 32000, 4},
		{"block align", 32, 2, 2},
		{"bits per sample", 34, 16, 2},
		{"data size", 40, uint32(len(pcm)), 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got uint32
			if tt.size == 2 {
				got = uint32(binary.LittleEndian.Uint16(wav[tt.offset:]))
			} else {
				got = binary.LittleEndian.Uint32(wav[tt.offset:])
			}
			if got != tt.want {
				t.Errorf("%s = %d, want %d", tt.name, got, tt.want)
			}
		})
	}

	for _, tag := range []struct {
		offset int
		want   string
	}{{0, "RIFF"}, {8, "WAVE"}, {12, "fmt "}, {36, "data"}} {
		if got := string(wav[tag.offset : tag.offset+4]); got != tag.want {
			t.Errorf("tag at %d = %q, want %q", tag.offset, got, tag.want)
		}
	}

	if !bytes.Equal(wav[WAVHeaderSize:], pcm) {
		t.Error("payload should follow the header unchanged")
	}
}

func TestParseWAVHeader_RoundTrip(t *testing.T) {
	pcm := make([]byte, Canonical.Bytes(2*time.Second))
	wav, err := EncodeWAV(pcm, Canonical)
	if err != nil {
		t.Fatalf("EncodeWAV() error = %v", err)
	}

	h, err := ParseWAVHeader(wav)
	if err != nil {
		t.Fatalf("ParseWAVHeader() error = %v", err)
	}
	if int(h.Subchunk2Size) != len(pcm) {
		t.Errorf("data size = %d, want %d", h.Subchunk2Size, len(pcm))
	}
	if h.ChunkSize != h.Subchunk2Size+36 {
		t.Errorf("riff size = %d, want %d", h.ChunkSize, h.Subchunk2Size+36)
	}

	f, err := h.PCMFormat()
	if err != nil {
		t.Fatalf("PCMFormat() error = %v", err)
	}
	if f != Canonical {
		t.Errorf("PCMFormat() = %v, want %v", f, Canonical)
	}
}

func TestParseWAVHeader_Invalid(t *testing.T) {
	valid, _ := EncodeWAV(make([]byte, 100), Canonical)

	tests := []struct {
		name   string
		mutate func([]byte) []byte
	}{
		{"too short", func(b []byte) []byte { return b[:20] }},
		{"bad riff tag", func(b []byte) []byte { copy(b[0:], "RIFX"); return b }},
		{"bad wave tag", func(b []byte) []byte { copy(b[8:], "AVI "); return b }},
		{"missing data tag", func(b []byte) []byte { copy(b[36:], "LIST"); return b }},
		{"size mismatch", func(b []byte) []byte { binary.LittleEndian.PutUint32(b[4:], 7); return b }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := tt.mutate(append([]byte(nil), valid...))
			if _, err := ParseWAVHeader(data); err == nil {
				t.Error("ParseWAVHeader() should fail")
			}
		})
	}
}

func TestEncodeWAV_RejectsFloat(t *testing.T) {
	f := Format{SampleRate: 48000, Channels: 2, Encoding: F32LE}
	if _, err := EncodeWAV([]byte{0, 0, 0, 0}, f); err == nil {
		t.Error("EncodeWAV() should reject float samples")
	}
}

func TestReadWAV_SkipsUnknownChunks(t *testing.T) {
	src := Format{SampleRate: 48000, Channels: 2, Encoding: S16LE}
	pcm := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	wav, err := EncodeWAV(pcm, src)
	if err != nil {
		t.Fatalf("EncodeWAV() error = %v", err)
	}

	// insert a LIST chunk (odd size, padded) between fmt and data
	var withList bytes.Buffer
	withList.Write(wav[:36])
	withList.WriteString("LIST")
	binary.Write(&withList, binary.LittleEndian, uint32(3))
	withList.Write([]byte{'a', 'b', 'c', 0})
	withList.Write(wav[36:])

	f, payload, err := ReadWAV(&withList)
	if err != nil {
		t.Fatalf("ReadWAV() error = %v", err)
	}
	if f != src {
		t.Errorf("format = %v, want %v", f, src)
	}
	got, _ := io.ReadAll(payload)
	if !bytes.Equal(got, pcm) {
		t.Errorf("payload = %v, want %v", got, pcm)
	}
}

// extensibleWAV builds a WAVE_FORMAT_EXTENSIBLE file with a 40-byte fmt chunk
// whose sub-format GUID starts with subTag.
func extensibleWAV(subTag uint16, bits uint16, payload []byte) []byte {
	var fmtBody bytes.Buffer
	le := binary.LittleEndian
	binary.Write(&fmtBody, le, uint16(wavFormatExtensible))
	binary.Write(&fmtBody, le, uint16(1))     // channels
	binary.Write(&fmtBody, le, uint32(16000)) // rate
	binary.Write(&fmtBody, le, uint32(16000*uint32(bits)/8))
	binary.Write(&fmtBody, le, uint16(bits/8))
	binary.Write(&fmtBody, le, bits)
	binary.Write(&fmtBody, le, uint16(22)) // cbSize
	binary.Write(&fmtBody, le, bits)       // valid bits
	binary.Write(&fmtBody, le, uint32(4))  // channel mask
	binary.Write(&fmtBody, le, subTag)
	fmtBody.Write([]byte{0x00, 0x00, 0x00, 0x00, 0x10, 0x00, 0x80, 0x00, 0x00, 0xAA, 0x00, 0x38, 0x9B, 0x71})

	var b bytes.Buffer
	b.WriteString("RIFF")
	binary.Write(&b, le, uint32(4+8+fmtBody.Len()+8+len(payload)))
	b.WriteString("WAVE")
	b.WriteString("fmt ")
	binary.Write(&b, le, uint32(fmtBody.Len()))
	b.Write(fmtBody.Bytes())
	b.WriteString("data")
	binary.Write(&b, le, uint32(len(payload)))
	b.Write(payload)
	return b.Bytes()
}

func TestReadWAV_Extensible(t *testing.T) {
	half := make([]byte, 4)
	binary.LittleEndian.PutUint32(half, math.Float32bits(0.5))

	tests := []struct {
		name    string
		subTag  uint16
		bits    uint16
		want    Encoding
		wantErr bool
	}{
		{name: "float", subTag: wavFormatFloat, bits: 32, want: F32LE},
		{name: "int32", subTag: wavFormatPCM, bits: 32, want: S32LE},
		{name: "int16", subTag: wavFormatPCM, bits: 16, want: S16LE},
		{name: "unknown sub-format", subTag: 0x55, bits: 32, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, payload, err := ReadWAV(bytes.NewReader(extensibleWAV(tt.subTag, tt.bits, half)))
			if tt.wantErr {
				if err == nil {
					t.Errorf("ReadWAV() format = %v, want error", f)
				}
				return
			}
			if err != nil {
				t.Fatalf("ReadWAV() error = %v", err)
			}
			if f.Encoding != tt.want || f.SampleRate != 16000 || f.Channels != 1 {
				t.Errorf("format = %v, want 16000Hz/1ch/%v", f, tt.want)
			}
			got, _ := io.ReadAll(payload)
			if !bytes.Equal(got, half) {
				t.Errorf("payload = %v, want %v", got, half)
			}
		})
	}
}

func TestReadWAV_ShortExtensibleFmt(t *testing.T) {
	wav := extensibleWAV(wavFormatFloat, 32, nil)
	// shrink the fmt chunk to the plain 16 bytes
	short := append([]byte{}, wav[:16]...)
	short = binary.LittleEndian.AppendUint32(short, 16)
	short = append(short, wav[20:36]...)
	short = append(short, wav[60:]...)
	if _, _, err := ReadWAV(bytes.NewReader(short)); err == nil {
		t.Error("ReadWAV() should reject an extensible fmt chunk without its extension")
	}
}
