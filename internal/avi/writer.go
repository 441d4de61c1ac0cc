package avi

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/example/go-wavevid/internal/media"
)

type writerState int

const (
	stateNew writerState = iota
	stateOpen
	stateDone
	stateFailed
)

// Writer streams an uncompressed AVI to an io.WriteSeeker. Frames are
// written as they arrive; only the RIFF and movi size fields are patched
// once the frame count is known, so memory use stays at one index record
// per frame.
type Writer struct {
	ws     io.WriteSeeker
	bw     *bufio.Writer
	closer io.Closer

	// pos tracks the logical write offset including buffered bytes.
	pos int64
	err error

	state       writerState
	hdr         Header
	riffSizePos int64
	moviSizePos int64
	moviOrigin  int64
	index       []ChunkRecord
}

// NewWriter returns a Writer emitting to ws, which must be positioned at
// offset zero. The caller owns ws.
func NewWriter(ws io.WriteSeeker) *Writer {
	return &Writer{ws: ws, bw: bufio.NewWriterSize(ws, 1<<16)}
}

// Create opens path for writing, truncating any existing file. The file is
// closed by Finalize or Close.
func Create(path string) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("%w: create output: %w", media.ErrIO, err)
	}

	w := NewWriter(f)
	w.closer = f

	return w, nil
}

// --- Low-level emitters ---

func (w *Writer) write(p []byte) {
	if w.err != nil {
		return
	}

	n, err := w.bw.Write(p)
	w.pos += int64(n)
	w.err = err
}

func (w *Writer) fourCC(s string) {
	w.write([]byte(s))
}

func (w *Writer) u32(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	w.write(b[:])
}

func (w *Writer) u16(v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	w.write(b[:])
}

// patch overwrites a 32-bit field already emitted at off and restores the
// write position.
func (w *Writer) patch(off int64, v uint32) {
	if w.err != nil {
		return
	}

	if w.err = w.bw.Flush(); w.err != nil {
		return
	}

	if _, w.err = w.ws.Seek(off, io.SeekStart); w.err != nil {
		return
	}

	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)

	if _, w.err = w.ws.Write(b[:]); w.err != nil {
		return
	}

	_, w.err = w.ws.Seek(w.pos, io.SeekStart)
}

// fail records an I/O failure and poisons the writer.
func (w *Writer) fail(op string) error {
	w.state = stateFailed
	return fmt.Errorf("%w: %s: %w", media.ErrIO, op, w.err)
}

// --- Protocol ---

// Begin writes the RIFF preamble, the header list and the opening of the
// movi list.
func (w *Writer) Begin(h Header) error {
	if w.state != stateNew {
		return fmt.Errorf("%w: begin called twice", ErrState)
	}

	if err := validateHeader(h); err != nil {
		return err
	}

	w.hdr = h

	w.fourCC("RIFF")
	w.riffSizePos = w.pos
	w.u32(0)
	w.fourCC("AVI ")

	w.fourCC("LIST")
	w.u32(hdrlListLen)
	w.fourCC("hdrl")
	w.mainHeader(h)

	w.fourCC("LIST")
	w.u32(strlListLen)
	w.fourCC("strl")
	w.streamHeader(h)
	w.bitmapInfo(h)

	w.fourCC("LIST")
	w.moviSizePos = w.pos
	w.u32(0)
	w.fourCC("movi")
	w.moviOrigin = w.pos

	if w.err != nil {
		return w.fail("write headers")
	}

	w.index = make([]ChunkRecord, 0, h.Frames)
	w.state = stateOpen

	return nil
}

func validateHeader(h Header) error {
	switch {
	case h.Width <= 0 || h.Height <= 0:
		return fmt.Errorf("%w: invalid dimensions %dx%d", ErrState, h.Width, h.Height)
	case h.FPS <= 0:
		return fmt.Errorf("%w: invalid frame rate %d", ErrState, h.FPS)
	case h.FrameBytes <= 0 || int64(h.FrameBytes) > math.MaxUint32:
		return fmt.Errorf("%w: invalid frame size %d", ErrState, h.FrameBytes)
	case h.Frames < 0:
		return fmt.Errorf("%w: negative frame count %d", ErrState, h.Frames)
	case h.Frames > MaxFrames(h.FrameBytes):
		return fmt.Errorf("%w: %d frames of %d bytes", ErrTooLarge, h.Frames, h.FrameBytes)
	}

	return nil
}

func (w *Writer) mainHeader(h Header) {
	w.fourCC("avih")
	w.u32(mainHeaderLen)
	w.u32(h.microSecPerFrame())
	w.u32(uint32(h.FrameBytes * h.FPS)) // max bytes per second
	w.u32(0)                            // padding granularity
	w.u32(avifHasIndex)
	w.u32(uint32(h.Frames))
	w.u32(0) // initial frames
	w.u32(1) // streams
	w.u32(uint32(h.FrameBytes))
	w.u32(uint32(h.Width))
	w.u32(uint32(h.Height))

	for range 4 {
		w.u32(0)
	}
}

func (w *Writer) streamHeader(h Header) {
	w.fourCC("strh")
	w.u32(streamHeaderLen)
	w.fourCC("vids")
	w.fourCC(handlerDIB)
	w.u32(0) // flags
	w.u16(0) // priority
	w.u16(0) // language
	w.u32(0) // initial frames
	w.u32(1) // scale
	w.u32(uint32(h.FPS))
	w.u32(0) // start
	w.u32(uint32(h.Frames))
	w.u32(uint32(h.FrameBytes))
	w.u32(qualityAny)
	w.u32(0) // sample size

	// rcFrame
	for range 4 {
		w.u16(0)
	}
}

// bitmapInfo writes a BITMAPINFOHEADER with positive height, which marks the
// frames as bottom-up DIBs.
func (w *Writer) bitmapInfo(h Header) {
	w.fourCC("strf")
	w.u32(bitmapInfoLen)
	w.u32(bitmapInfoLen)
	w.u32(uint32(h.Width))
	w.u32(uint32(h.Height))
	w.u16(1)  // planes
	w.u16(24) // bits per pixel
	w.u32(0)  // BI_RGB
	w.u32(uint32(h.FrameBytes))
	w.u32(0) // x pixels per meter
	w.u32(0) // y pixels per meter
	w.u32(0) // colors used
	w.u32(0) // colors important
}

// AppendFrame writes one video chunk and records its index entry.
func (w *Writer) AppendFrame(frame []byte) error {
	if w.state != stateOpen {
		return fmt.Errorf("%w: append outside an open movie", ErrState)
	}

	if len(frame) != w.hdr.FrameBytes {
		return fmt.Errorf("%w: got %d bytes; want %d", ErrFrameSize, len(frame), w.hdr.FrameBytes)
	}

	if len(w.index) >= MaxFrames(w.hdr.FrameBytes) {
		return fmt.Errorf("%w: frame %d", ErrTooLarge, len(w.index))
	}

	rec := ChunkRecord{
		Offset: uint32(w.pos - w.moviOrigin),
		Size:   uint32(len(frame)),
	}

	w.fourCC(VideoChunkID)
	w.u32(rec.Size)
	w.write(frame)

	if len(frame)%2 == 1 {
		w.write([]byte{0})
	}

	if w.err != nil {
		return w.fail(fmt.Sprintf("write frame %d", len(w.index)))
	}

	w.index = append(w.index, rec)

	return nil
}

// Frames returns the number of frames appended so far.
func (w *Writer) Frames() int {
	return len(w.index)
}

// Finalize closes the movi list, writes the idx1 index and patches the
// RIFF and movi sizes. totalFrames must equal both the appended count and
// Header.Frames. A Writer returned by Create closes its file on success.
func (w *Writer) Finalize(totalFrames int) error {
	if w.state != stateOpen {
		return fmt.Errorf("%w: finalize outside an open movie", ErrState)
	}

	if totalFrames != len(w.index) || totalFrames != w.hdr.Frames {
		return fmt.Errorf("%w: finalize %d, appended %d, declared %d",
			ErrFrameCount, totalFrames, len(w.index), w.hdr.Frames)
	}

	// The movi size covers its list type and every chunk.
	w.patch(w.moviSizePos, uint32(w.pos-w.moviSizePos-4))

	w.fourCC("idx1")
	w.u32(uint32(len(w.index) * indexEntryLen))

	for _, rec := range w.index {
		w.fourCC(VideoChunkID)
		w.u32(aviifKeyFrame)
		w.u32(rec.Offset)
		w.u32(rec.Size)
	}

	w.patch(w.riffSizePos, uint32(w.pos-w.riffSizePos-4))

	if w.err == nil {
		w.err = w.bw.Flush()
	}

	if w.err != nil {
		return w.fail("finalize")
	}

	w.state = stateDone

	return w.Close()
}

// Index returns a copy of the chunk records appended so far.
func (w *Writer) Index() []ChunkRecord {
	out := make([]ChunkRecord, len(w.index))
	copy(out, w.index)

	return out
}

// Close releases the file opened by Create. Calling it before Finalize
// abandons the movie and leaves an unfinished file behind. It is safe to
// call more than once.
func (w *Writer) Close() error {
	if w.closer == nil {
		return nil
	}

	c := w.closer
	w.closer = nil

	if w.state != stateDone {
		w.state = stateFailed
	}

	if err := c.Close(); err != nil {
		return fmt.Errorf("%w: close output: %w", media.ErrIO, err)
	}

	return nil
}
