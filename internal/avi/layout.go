package avi

import "math"

// VideoChunkID tags every uncompressed video chunk of stream 0.
const VideoChunkID = "00db"

const (
	handlerDIB    = "DIB "
	avifHasIndex  = 0x10
	aviifKeyFrame = 0x10
	qualityAny    = 0xFFFFFFFF

	mainHeaderLen   = 56
	streamHeaderLen = 56
	bitmapInfoLen   = 40
	indexEntryLen   = 16

	// LIST strl: type + strh chunk + strf chunk.
	strlListLen = 4 + (8 + streamHeaderLen) + (8 + bitmapInfoLen)
	// LIST hdrl: type + avih chunk + LIST strl.
	hdrlListLen = 4 + (8 + mainHeaderLen) + (8 + strlListLen)

	// RIFF header, hdrl list and the movi list header up to its payload.
	preambleLen = 12 + (8 + hdrlListLen) + 12
)

// Header describes the single uncompressed 24-bit video stream.
type Header struct {
	Width      int
	Height     int
	FPS        int
	FrameBytes int
	// Frames is the expected frame count written to the main and stream
	// headers. Finalize requires exactly this many frames.
	Frames int
}

func (h Header) microSecPerFrame() uint32 {
	return uint32(1_000_000 / h.FPS)
}

// ChunkRecord locates one video chunk relative to the movi payload origin.
type ChunkRecord struct {
	Offset uint32
	Size   uint32
}

func padded(n int) int64 {
	return int64(n) + int64(n&1)
}

// FileSize returns the exact size of a container holding frames frames of
// frameBytes each.
func FileSize(frameBytes, frames int) int64 {
	perFrame := 8 + padded(frameBytes) + indexEntryLen
	return preambleLen + int64(frames)*perFrame + 8
}

// MaxFrames returns the largest frame count whose container still fits the
// 32-bit RIFF size field.
func MaxFrames(frameBytes int) int {
	perFrame := 8 + padded(frameBytes) + indexEntryLen
	room := int64(math.MaxUint32) + 8 - preambleLen - 8

	return int(room / perFrame)
}
