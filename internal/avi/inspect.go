package avi

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/example/go-wavevid/internal/media"
)

// IndexEntry is one idx1 record as stored on disk.
type IndexEntry struct {
	ID     string
	Flags  uint32
	Offset uint32
	Size   uint32
}

// Info summarizes a container read back by Inspect.
type Info struct {
	FileSize int64
	RIFFSize uint32

	MicroSecPerFrame uint32
	Flags            uint32
	TotalFrames      uint32
	Width            int
	Height           int

	StreamType string
	Handler    string
	Scale      uint32
	Rate       uint32
	Length     uint32
	BitCount   int

	// MoviOrigin is the absolute offset just past the movi list type;
	// idx1 offsets are relative to it.
	MoviOrigin int64
	MoviSize   uint32
	Chunks     int
	Index      []IndexEntry
}

// FPS returns the stream rate in frames per second.
func (i *Info) FPS() float64 {
	if i.Scale == 0 {
		return 0
	}

	return float64(i.Rate) / float64(i.Scale)
}

// Duration returns the playback length implied by the stream header.
func (i *Info) Duration() time.Duration {
	fps := i.FPS()
	if fps == 0 {
		return 0
	}

	return time.Duration(float64(i.Length) / fps * float64(time.Second))
}

type chunkReader struct {
	r io.ReadSeeker
}

func (c chunkReader) at(off int64, n int) ([]byte, error) {
	if _, err := c.r.Seek(off, io.SeekStart); err != nil {
		return nil, fmt.Errorf("%w: seek to %d: %w", media.ErrIO, off, err)
	}

	buf := make([]byte, n)
	if _, err := io.ReadFull(c.r, buf); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("%w: truncated at offset %d", ErrInvalid, off)
		}

		return nil, fmt.Errorf("%w: read at %d: %w", media.ErrIO, off, err)
	}

	return buf, nil
}

func (c chunkReader) header(off int64) (string, uint32, error) {
	b, err := c.at(off, 8)
	if err != nil {
		return "", 0, err
	}

	return string(b[:4]), binary.LittleEndian.Uint32(b[4:]), nil
}

func le32(b []byte) uint32 { return binary.LittleEndian.Uint32(b) }
func le16(b []byte) uint16 { return binary.LittleEndian.Uint16(b) }

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...)
}

// Inspect walks an AVI file and checks its structure: the RIFF size must
// match the file, the movi list must be exactly covered by its chunks, and
// every idx1 entry must point at a chunk with the recorded tag and size.
func Inspect(r io.ReadSeeker) (*Info, error) {
	size, err := r.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, fmt.Errorf("%w: seek: %w", media.ErrIO, err)
	}

	c := chunkReader{r: r}

	head, err := c.at(0, 12)
	if err != nil {
		return nil, err
	}

	if string(head[:4]) != "RIFF" || string(head[8:]) != "AVI " {
		return nil, invalid("not a RIFF AVI file")
	}

	info := &Info{FileSize: size, RIFFSize: le32(head[4:8])}
	if int64(info.RIFFSize) != size-8 {
		return nil, invalid("RIFF size %d, file holds %d", info.RIFFSize, size-8)
	}

	var sawHeader, sawMovi, sawIndex bool

	for pos := int64(12); pos+8 <= size; {
		id, n, err := c.header(pos)
		if err != nil {
			return nil, err
		}

		body := pos + 8
		end := body + int64(n)

		if end > size {
			return nil, invalid("chunk %q at %d overruns file", id, pos)
		}

		switch id {
		case "LIST":
			if n < 4 {
				return nil, invalid("LIST at %d too short", pos)
			}

			kind, err := c.at(body, 4)
			if err != nil {
				return nil, err
			}

			switch string(kind) {
			case "hdrl":
				if err := c.headerList(info, body+4, end); err != nil {
					return nil, err
				}

				sawHeader = true
			case "movi":
				info.MoviOrigin = body + 4
				info.MoviSize = n

				if info.Chunks, err = c.countChunks(body+4, end); err != nil {
					return nil, err
				}

				sawMovi = true
			}
		case "idx1":
			if info.Index, err = c.index(body, n); err != nil {
				return nil, err
			}

			sawIndex = true
		}

		pos = end + int64(n&1)
	}

	switch {
	case !sawHeader:
		return nil, invalid("missing hdrl list")
	case !sawMovi:
		return nil, invalid("missing movi list")
	case !sawIndex && info.Flags&avifHasIndex != 0:
		return nil, invalid("missing idx1 index")
	}

	if err := c.verifyIndex(info); err != nil {
		return nil, err
	}

	return info, nil
}

func (c chunkReader) headerList(info *Info, pos, end int64) error {
	for pos+8 <= end {
		id, n, err := c.header(pos)
		if err != nil {
			return err
		}

		body := pos + 8

		switch id {
		case "avih":
			if n < mainHeaderLen {
				return invalid("avih too short: %d", n)
			}

			b, err := c.at(body, mainHeaderLen)
			if err != nil {
				return err
			}

			info.MicroSecPerFrame = le32(b[0:])
			info.Flags = le32(b[12:])
			info.TotalFrames = le32(b[16:])
			info.Width = int(le32(b[32:]))
			info.Height = int(int32(le32(b[36:])))
		case "LIST":
			kind, err := c.at(body, 4)
			if err != nil {
				return err
			}

			if string(kind) == "strl" {
				if err := c.streamList(info, body+4, body+int64(n)); err != nil {
					return err
				}
			}
		}

		pos = body + int64(n) + int64(n&1)
	}

	return nil
}

func (c chunkReader) streamList(info *Info, pos, end int64) error {
	for pos+8 <= end {
		id, n, err := c.header(pos)
		if err != nil {
			return err
		}

		body := pos + 8

		switch id {
		case "strh":
			if n < streamHeaderLen {
				return invalid("strh too short: %d", n)
			}

			b, err := c.at(body, streamHeaderLen)
			if err != nil {
				return err
			}

			info.StreamType = string(b[0:4])
			info.Handler = string(b[4:8])
			info.Scale = le32(b[20:])
			info.Rate = le32(b[24:])
			info.Length = le32(b[32:])
		case "strf":
			if n < bitmapInfoLen {
				return invalid("strf too short: %d", n)
			}

			b, err := c.at(body, bitmapInfoLen)
			if err != nil {
				return err
			}

			info.BitCount = int(le16(b[14:]))
		}

		pos = body + int64(n) + int64(n&1)
	}

	return nil
}

func (c chunkReader) countChunks(pos, end int64) (int, error) {
	count := 0

	for pos+8 <= end {
		_, n, err := c.header(pos)
		if err != nil {
			return 0, err
		}

		pos += 8 + int64(n) + int64(n&1)
		count++
	}

	if pos != end {
		return 0, invalid("movi chunks end at %d, list ends at %d", pos, end)
	}

	return count, nil
}

func (c chunkReader) index(pos int64, n uint32) ([]IndexEntry, error) {
	if n%indexEntryLen != 0 {
		return nil, invalid("idx1 size %d not a multiple of %d", n, indexEntryLen)
	}

	b, err := c.at(pos, int(n))
	if err != nil {
		return nil, err
	}

	entries := make([]IndexEntry, 0, n/indexEntryLen)
	for off := 0; off < len(b); off += indexEntryLen {
		e := b[off : off+indexEntryLen]
		entries = append(entries, IndexEntry{
			ID:     string(e[:4]),
			Flags:  le32(e[4:]),
			Offset: le32(e[8:]),
			Size:   le32(e[12:]),
		})
	}

	return entries, nil
}

func (c chunkReader) verifyIndex(info *Info) error {
	for i, e := range info.Index {
		id, n, err := c.header(info.MoviOrigin + int64(e.Offset))
		if err != nil {
			return err
		}

		if id != e.ID || n != e.Size {
			return invalid("index entry %d points at %q/%d, want %q/%d", i, id, n, e.ID, e.Size)
		}
	}

	return nil
}
