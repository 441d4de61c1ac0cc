package audio

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	goaudio "github.com/go-audio/audio"

	"github.com/example/go-wavevid/internal/media"
)

// Accepted WAV encoding.
const (
	FormatPCM   = 1
	PCMBitDepth = 16
)

const (
	fmtBodyLen = 16
	pcmScale   = 32768
)

// DecodeFile opens path and decodes it with Decode.
func DecodeFile(path string) (*media.Stream, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", media.ErrIO, path, err)
	}
	defer f.Close()

	stream, err := Decode(bufio.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return stream, nil
}

// waveFormat holds the fields of a fmt chunk that decoding depends on.
type waveFormat struct {
	channels   int
	sampleRate int
}

// Decode parses a RIFF/WAVE stream into a mono stream.
//
// Chunks other than "fmt " and "data" are skipped, odd-sized chunks are
// followed by one pad byte, and parsing stops as soon as both required chunks
// were seen. Only 16-bit integer PCM is accepted; any channel count is
// averaged down to mono.
func Decode(r io.Reader) (*media.Stream, error) {
	cr := &chunkReader{r: r}

	magic, err := cr.fourCC("RIFF header")
	if err != nil {
		return nil, err
	}
	if magic != "RIFF" {
		return nil, fmt.Errorf("%w: missing RIFF magic (got %q)", media.ErrFormat, magic)
	}
	if _, err := cr.u32("RIFF size"); err != nil {
		return nil, err
	}
	form, err := cr.fourCC("RIFF form type")
	if err != nil {
		return nil, err
	}
	if form != "WAVE" {
		return nil, fmt.Errorf("%w: form type %q, want \"WAVE\"", media.ErrFormat, form)
	}

	var (
		format *waveFormat
		pcm    *goaudio.IntBuffer
	)
	for format == nil || pcm == nil {
		tag, size, err := cr.chunkHeader()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		switch tag {
		case "fmt ":
			format, err = cr.readFormat(size)
		case "data":
			pcm, err = cr.readPCM(size)
		default:
			err = cr.skip(int64(size), tag+" chunk")
		}
		if err != nil {
			return nil, err
		}

		if size%2 == 1 {
			if err := cr.skip(1, "pad byte"); err != nil {
				if errors.Is(err, media.ErrFormat) {
					// A missing pad byte at end of file only matters if
					// required chunks are still outstanding.
					break
				}
				return nil, err
			}
		}
	}

	if format == nil {
		return nil, fmt.Errorf("%w: no fmt chunk", media.ErrFormat)
	}
	if pcm == nil {
		return nil, fmt.Errorf("%w: no data chunk", media.ErrFormat)
	}

	pcm.Format = &goaudio.Format{NumChannels: format.channels, SampleRate: format.sampleRate}

	return &media.Stream{
		SampleRate: format.sampleRate,
		Channels:   format.channels,
		Samples:    Downmix(pcm),
	}, nil
}

// Downmix averages interleaved 16-bit frames into normalized mono samples:
// sum(channels) / (channels * 32768), clamped to [-1, 1]. A trailing partial
// frame is dropped.
func Downmix(buf *goaudio.IntBuffer) []float32 {
	channels := buf.Format.NumChannels
	if channels <= 0 {
		return nil
	}
	frames := buf.NumFrames()
	out := make([]float32, frames)
	scale := float32(channels) * pcmScale

	for i := range frames {
		sum := 0
		for _, v := range buf.Data[i*channels : (i+1)*channels] {
			sum += v
		}
		out[i] = clamp(float32(sum) / scale)
	}

	return out
}

func clamp(v float32) float32 {
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}

	return v
}

// chunkReader reads little-endian RIFF fields and classifies failures:
// running out of bytes is a format error, anything else an I/O error.
type chunkReader struct {
	r   io.Reader
	buf [4]byte
}

func (c *chunkReader) fail(err error, what string) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: truncated %s", media.ErrFormat, what)
	}

	return fmt.Errorf("%w: read %s: %w", media.ErrIO, what, err)
}

func (c *chunkReader) read(n int, what string) ([]byte, error) {
	if _, err := io.ReadFull(c.r, c.buf[:n]); err != nil {
		return nil, c.fail(err, what)
	}

	return c.buf[:n], nil
}

func (c *chunkReader) fourCC(what string) (string, error) {
	b, err := c.read(4, what)
	if err != nil {
		return "", err
	}

	return string(b), nil
}

func (c *chunkReader) u16(what string) (uint16, error) {
	b, err := c.read(2, what)
	if err != nil {
		return 0, err
	}

	return binary.LittleEndian.Uint16(b), nil
}

func (c *chunkReader) u32(what string) (uint32, error) {
	b, err := c.read(4, what)
	if err != nil {
		return 0, err
	}

	return binary.LittleEndian.Uint32(b), nil
}

// chunkHeader returns io.EOF only when the stream ends exactly on a chunk
// boundary.
func (c *chunkReader) chunkHeader() (string, uint32, error) {
	if _, err := io.ReadFull(c.r, c.buf[:4]); err != nil {
		if errors.Is(err, io.EOF) {
			return "", 0, io.EOF
		}
		return "", 0, c.fail(err, "chunk header")
	}
	tag := string(c.buf[:4])

	size, err := c.u32(tag + " chunk size")
	if err != nil {
		return "", 0, err
	}

	return tag, size, nil
}

func (c *chunkReader) skip(n int64, what string) error {
	if n == 0 {
		return nil
	}
	if _, err := io.CopyN(io.Discard, c.r, n); err != nil {
		return c.fail(err, what)
	}

	return nil
}

func (c *chunkReader) readFormat(size uint32) (*waveFormat, error) {
	if size < fmtBodyLen {
		return nil, fmt.Errorf("%w: fmt chunk is %d bytes, want at least %d", media.ErrFormat, size, fmtBodyLen)
	}

	audioFormat, err := c.u16("fmt codec")
	if err != nil {
		return nil, err
	}
	channels, err := c.u16("fmt channels")
	if err != nil {
		return nil, err
	}
	sampleRate, err := c.u32("fmt sample rate")
	if err != nil {
		return nil, err
	}
	// byte rate and block align are derived values.
	if err := c.skip(6, "fmt byte rate"); err != nil {
		return nil, err
	}
	bitDepth, err := c.u16("fmt bit depth")
	if err != nil {
		return nil, err
	}
	if err := c.skip(int64(size-fmtBodyLen), "fmt extension"); err != nil {
		return nil, err
	}

	switch {
	case audioFormat != FormatPCM:
		return nil, fmt.Errorf("%w: codec %d, only PCM (%d) is supported", media.ErrFormat, audioFormat, FormatPCM)
	case bitDepth != PCMBitDepth:
		return nil, fmt.Errorf("%w: bit depth %d, only %d-bit is supported", media.ErrFormat, bitDepth, PCMBitDepth)
	case channels == 0:
		return nil, fmt.Errorf("%w: zero channels", media.ErrFormat)
	case sampleRate == 0:
		return nil, fmt.Errorf("%w: zero sample rate", media.ErrFormat)
	}

	return &waveFormat{channels: int(channels), sampleRate: int(sampleRate)}, nil
}

// readPCM reads exactly size bytes of interleaved little-endian int16 values.
// An odd trailing byte is consumed but carries no sample.
func (c *chunkReader) readPCM(size uint32) (*goaudio.IntBuffer, error) {
	// Bounded by what the stream holds, not by the declared size.
	raw, err := io.ReadAll(io.LimitReader(c.r, int64(size)))
	if err != nil {
		return nil, c.fail(err, "data chunk")
	}
	if len(raw) != int(size) {
		return nil, c.fail(io.ErrUnexpectedEOF, "data chunk")
	}

	data := make([]int, size/2)
	for i := range data {
		data[i] = int(int16(binary.LittleEndian.Uint16(raw[i*2:])))
	}

	return &goaudio.IntBuffer{Data: data, SourceBitDepth: PCMBitDepth}, nil
}
