// Package testutil builds synthetic RIFF/WAVE fixtures and in-memory seekable
// sinks for tests.
//
// Typical usage:
//
//	data := testutil.WAV{Channels: 2, Samples: []int16{16384, -16384}}.Bytes()
//	stream, err := audio.Decode(bytes.NewReader(data))
package testutil

import (
	"bytes"
	"encoding/binary"
)

// Chunk is a raw RIFF sub-chunk. Bytes writes it verbatim followed by a pad
// byte when len(Data) is odd.
type Chunk struct {
	ID   string
	Data []byte
}

// WAV describes a synthetic WAV file. Zero values select a canonical mono
// 44.1 kHz 16-bit PCM layout.
type WAV struct {
	Magic       string // "RIFF" when empty
	Form        string // "WAVE" when empty
	AudioFormat uint16 // 1 (PCM) when zero
	Channels    uint16 // 1 when zero
	SampleRate  uint32 // 44100 when zero
	BitDepth    uint16 // 16 when zero

	// FmtExtra is appended after the 16 canonical fmt bytes and counted in
	// the fmt chunk size (WAVE_FORMAT_EXTENSIBLE style).
	FmtExtra []byte

	// Samples are interleaved 16-bit values for the data chunk.
	Samples []int16

	// Before and After are emitted around the data chunk.
	Before []Chunk
	After  []Chunk

	DataFirst bool // emit data before fmt
	OmitFmt   bool
	OmitData  bool
}

// Bytes renders the file. The RIFF size field is always consistent with the
// rendered length.
func (w WAV) Bytes() []byte {
	magic := orDefault(w.Magic, "RIFF")
	form := orDefault(w.Form, "WAVE")

	dataChunk := Chunk{ID: "data", Data: PCMBytes(w.Samples)}

	var chunks []Chunk
	if w.DataFirst && !w.OmitData {
		chunks = append(chunks, dataChunk)
	}
	if !w.OmitFmt {
		chunks = append(chunks, w.FmtChunk())
	}
	chunks = append(chunks, w.Before...)
	if !w.DataFirst && !w.OmitData {
		chunks = append(chunks, dataChunk)
	}
	chunks = append(chunks, w.After...)

	return RIFF(magic, form, chunks...)
}

// FmtChunk returns the "fmt " chunk Bytes would emit.
func (w WAV) FmtChunk() Chunk {
	return Chunk{ID: "fmt ", Data: w.fmtBody()}
}

// RIFF wraps chunks in a RIFF header with the given magic and form type.
func RIFF(magic, form string, chunks ...Chunk) []byte {
	body := &bytes.Buffer{}
	body.WriteString(form)
	for _, c := range chunks {
		WriteChunk(body, c)
	}

	out := &bytes.Buffer{}
	out.WriteString(magic)
	_ = binary.Write(out, binary.LittleEndian, uint32(body.Len()))
	out.Write(body.Bytes())

	return out.Bytes()
}

func (w WAV) fmtBody() []byte {
	channels := w.Channels
	if channels == 0 {
		channels = 1
	}
	rate := w.SampleRate
	if rate == 0 {
		rate = 44100
	}
	bits := w.BitDepth
	if bits == 0 {
		bits = 16
	}
	format := w.AudioFormat
	if format == 0 {
		format = 1
	}
	blockAlign := channels * bits / 8
	byteRate := rate * uint32(blockAlign)

	buf := &bytes.Buffer{}
	_ = binary.Write(buf, binary.LittleEndian, format)
	_ = binary.Write(buf, binary.LittleEndian, channels)
	_ = binary.Write(buf, binary.LittleEndian, rate)
	_ = binary.Write(buf, binary.LittleEndian, byteRate)
	_ = binary.Write(buf, binary.LittleEndian, blockAlign)
	_ = binary.Write(buf, binary.LittleEndian, bits)
	buf.Write(w.FmtExtra)

	return buf.Bytes()
}

// WriteChunk appends id, little-endian size, data and the RIFF pad byte.
func WriteChunk(buf *bytes.Buffer, c Chunk) {
	buf.WriteString(c.ID)
	_ = binary.Write(buf, binary.LittleEndian, uint32(len(c.Data)))
	buf.Write(c.Data)
	if len(c.Data)%2 != 0 {
		buf.WriteByte(0)
	}
}

// PCMBytes encodes samples as little-endian 16-bit values.
func PCMBytes(samples []int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}

	return out
}

// FindChunk walks the top-level chunk list of a RIFF file and returns the
// payload of the first chunk with the given id.
func FindChunk(data []byte, id string) ([]byte, bool) {
	offset := 12
	for offset+8 <= len(data) {
		tag := string(data[offset : offset+4])
		size := int(binary.LittleEndian.Uint32(data[offset+4 : offset+8]))
		start := offset + 8
		if start+size > len(data) {
			return nil, false
		}
		if tag == id {
			return data[start : start+size], true
		}

		offset = start + size
		if size%2 != 0 {
			offset++
		}
	}

	return nil, false
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}

	return s
}
