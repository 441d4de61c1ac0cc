package audio

import (
	"bytes"
	"errors"
	"io"
	"math"
	"os"
	"path/filepath"
	"testing"
	"testing/iotest"

	goaudio "github.com/go-audio/audio"

	"github.com/example/go-wavevid/internal/media"
	"github.com/example/go-wavevid/internal/testutil"
)

func decodeBytes(t *testing.T, data []byte) *media.Stream {
	t.Helper()

	stream, err := Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Decode: unexpected error: %v", err)
	}

	return stream
}

func TestDecode_Mono(t *testing.T) {
	samples := []int16{0, 16384, 32767, -16384, -32768}
	stream := decodeBytes(t, testutil.WAV{SampleRate: 8000, Samples: samples}.Bytes())

	if stream.SampleRate != 8000 {
		t.Errorf("SampleRate = %d; want 8000", stream.SampleRate)
	}
	if stream.Channels != 1 {
		t.Errorf("Channels = %d; want 1", stream.Channels)
	}

	want := []float32{0, 0.5, 32767.0 / 32768.0, -0.5, -1}
	if len(stream.Samples) != len(want) {
		t.Fatalf("got %d samples; want %d", len(stream.Samples), len(want))
	}
	for i, w := range want {
		if stream.Samples[i] != w {
			t.Errorf("sample[%d] = %v; want %v", i, stream.Samples[i], w)
		}
	}
}

func TestDecode_SampleCountLaw(t *testing.T) {
	for _, channels := range []uint16{1, 2, 3, 6} {
		t.Run(string(rune('0'+channels))+"ch", func(t *testing.T) {
			const frames = 257
			samples := make([]int16, frames*int(channels))
			for i := range samples {
				samples[i] = int16((i*7919)%65536 - 32768)
			}

			data := testutil.WAV{Channels: channels, Samples: samples}.Bytes()
			stream := decodeBytes(t, data)

			dataBytes := len(samples) * 2
			if want := dataBytes / (2 * int(channels)); stream.Len() != want {
				t.Errorf("Len() = %d; want %d", stream.Len(), want)
			}
			for i, v := range stream.Samples {
				if v < -1 || v > 1 {
					t.Fatalf("sample[%d] = %v out of [-1, 1]", i, v)
				}
			}
			if stream.Channels != int(channels) {
				t.Errorf("Channels = %d; want %d", stream.Channels, channels)
			}
		})
	}
}

func TestDecode_StereoOppositeChannelsCancel(t *testing.T) {
	samples := make([]int16, 0, 200)
	for range 100 {
		samples = append(samples, 16384, -16384)
	}
	stream := decodeBytes(t, testutil.WAV{Channels: 2, Samples: samples}.Bytes())

	if stream.Len() != 100 {
		t.Fatalf("Len() = %d; want 100", stream.Len())
	}
	for i, v := range stream.Samples {
		if v != 0 {
			t.Fatalf("sample[%d] = %v; want 0", i, v)
		}
	}
}

func TestDecode_StereoAverages(t *testing.T) {
	stream := decodeBytes(t, testutil.WAV{Channels: 2, Samples: []int16{16384, 0, -32768, -32768}}.Bytes())

	want := []float32{0.25, -1}
	for i, w := range want {
		if stream.Samples[i] != w {
			t.Errorf("sample[%d] = %v; want %v", i, stream.Samples[i], w)
		}
	}
}

func TestDecode_SkipsUnknownChunks(t *testing.T) {
	samples := []int16{100, -200, 300, -400}
	plain := decodeBytes(t, testutil.WAV{Samples: samples}.Bytes())

	tests := []struct {
		name string
		wav  testutil.WAV
	}{
		{"10-byte JUNK before data", testutil.WAV{
			Samples: samples,
			Before:  []testutil.Chunk{{ID: "JUNK", Data: make([]byte, 10)}},
		}},
		{"odd LIST before data", testutil.WAV{
			Samples: samples,
			Before:  []testutil.Chunk{{ID: "LIST", Data: []byte("INFOabc")}},
		}},
		{"several chunks", testutil.WAV{
			Samples: samples,
			Before: []testutil.Chunk{
				{ID: "bext", Data: make([]byte, 33)},
				{ID: "fact", Data: []byte{4, 0, 0, 0}},
			},
		}},
		{"empty chunk", testutil.WAV{
			Samples: samples,
			Before:  []testutil.Chunk{{ID: "PAD ", Data: nil}},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := decodeBytes(t, tt.wav.Bytes())
			if len(got.Samples) != len(plain.Samples) {
				t.Fatalf("got %d samples; want %d", len(got.Samples), len(plain.Samples))
			}
			for i := range plain.Samples {
				if got.Samples[i] != plain.Samples[i] {
					t.Errorf("sample[%d] = %v; want %v", i, got.Samples[i], plain.Samples[i])
				}
			}
		})
	}
}

func TestDecode_OddDataChunkSkipsPadByte(t *testing.T) {
	w := testutil.WAV{SampleRate: 22050}
	// Two samples plus one stray byte; the pad byte follows before "fmt ".
	odd := append(testutil.PCMBytes([]int16{100, -200}), 0x7f)
	data := testutil.RIFF("RIFF", "WAVE", testutil.Chunk{ID: "data", Data: odd}, w.FmtChunk())

	stream := decodeBytes(t, data)
	if stream.Len() != 2 {
		t.Fatalf("Len() = %d; want 2", stream.Len())
	}
	if stream.SampleRate != 22050 {
		t.Errorf("SampleRate = %d; want 22050 (fmt chunk misread)", stream.SampleRate)
	}
	if want := float32(-200) / 32768; stream.Samples[1] != want {
		t.Errorf("sample[1] = %v; want %v", stream.Samples[1], want)
	}
}

func TestDecode_OddDataChunkAtEOFWithoutPad(t *testing.T) {
	w := testutil.WAV{}
	odd := append(testutil.PCMBytes([]int16{1, 2, 3}), 0)
	data := testutil.RIFF("RIFF", "WAVE", w.FmtChunk(), testutil.Chunk{ID: "data", Data: odd})
	data = data[:len(data)-1] // drop the pad byte

	stream := decodeBytes(t, data)
	if stream.Len() != 3 {
		t.Errorf("Len() = %d; want 3", stream.Len())
	}
}

func TestDecode_DataBeforeFmt(t *testing.T) {
	stream := decodeBytes(t, testutil.WAV{
		Channels:  2,
		Samples:   []int16{1000, 3000},
		DataFirst: true,
	}.Bytes())

	if stream.Len() != 1 || stream.Samples[0] != float32(4000)/65536 {
		t.Errorf("samples = %v; want [%v]", stream.Samples, float32(4000)/65536)
	}
}

func TestDecode_ExtendedFmtChunk(t *testing.T) {
	for _, extra := range [][]byte{{0, 0}, make([]byte, 24)} {
		stream := decodeBytes(t, testutil.WAV{FmtExtra: extra, Samples: []int16{8192}}.Bytes())
		if stream.Len() != 1 || stream.Samples[0] != 0.25 {
			t.Errorf("extra=%d: samples = %v; want [0.25]", len(extra), stream.Samples)
		}
	}
}

func TestDecode_StopsAfterRequiredChunks(t *testing.T) {
	data := testutil.WAV{Samples: []int16{1, 2}}.Bytes()
	// Garbage after the data chunk is never read.
	data = append(data, []byte("LIS")...)

	if stream := decodeBytes(t, data); stream.Len() != 2 {
		t.Errorf("Len() = %d; want 2", stream.Len())
	}
}

func TestDecode_EmptyDataChunk(t *testing.T) {
	stream := decodeBytes(t, testutil.WAV{}.Bytes())
	if stream.Len() != 0 {
		t.Errorf("Len() = %d; want 0", stream.Len())
	}
}

func TestDecode_FormatErrors(t *testing.T) {
	valid := testutil.WAV{Samples: []int16{1, 2}}

	tests := []struct {
		name string
		data []byte
	}{
		{"RIFX magic", testutil.WAV{Magic: "RIFX", Samples: []int16{1}}.Bytes()},
		{"not a RIFF file", []byte("NOT A WAV FILE AT ALL")},
		{"AVI form type", testutil.WAV{Form: "AVI ", Samples: []int16{1}}.Bytes()},
		{"8-bit depth", testutil.WAV{BitDepth: 8, Samples: []int16{1}}.Bytes()},
		{"24-bit depth", testutil.WAV{BitDepth: 24, Samples: []int16{1}}.Bytes()},
		{"IEEE float codec", testutil.WAV{AudioFormat: 3, Samples: []int16{1}}.Bytes()},
		{"extensible codec", testutil.WAV{AudioFormat: 0xFFFE, Samples: []int16{1}}.Bytes()},
		{"missing fmt", testutil.WAV{OmitFmt: true, Samples: []int16{1}}.Bytes()},
		{"missing data", testutil.WAV{OmitData: true}.Bytes()},
		{"missing data with trailing chunk", testutil.WAV{
			OmitData: true,
			After:    []testutil.Chunk{{ID: "JUNK", Data: make([]byte, 10)}},
		}.Bytes()},
		{"short fmt chunk", testutil.RIFF("RIFF", "WAVE",
			testutil.Chunk{ID: "fmt ", Data: valid.FmtChunk().Data[:14]},
			testutil.Chunk{ID: "data", Data: testutil.PCMBytes([]int16{1})})},
		{"zero channels", testutil.RIFF("RIFF", "WAVE",
			zeroField(valid.FmtChunk(), 2),
			testutil.Chunk{ID: "data", Data: testutil.PCMBytes([]int16{1})})},
		{"zero sample rate", testutil.RIFF("RIFF", "WAVE",
			zeroField(valid.FmtChunk(), 4),
			testutil.Chunk{ID: "data", Data: testutil.PCMBytes([]int16{1})})},
		{"truncated preamble", []byte("RIFF\x00")},
		{"truncated data chunk", valid.Bytes()[:len(valid.Bytes())-1]},
		{"truncated chunk header", append(testutil.RIFF("RIFF", "WAVE", valid.FmtChunk()), 'd', 'a')},
		{"empty input", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(bytes.NewReader(tt.data))
			if !errors.Is(err, media.ErrFormat) {
				t.Errorf("Decode() error = %v; want ErrFormat", err)
			}
			if errors.Is(err, media.ErrIO) {
				t.Errorf("Decode() error = %v also matches ErrIO", err)
			}
		})
	}
}

// zeroField clears the 2- or 4-byte fmt field at offset.
func zeroField(c testutil.Chunk, offset int) testutil.Chunk {
	data := append([]byte(nil), c.Data...)
	width := 2
	if offset == 4 {
		width = 4
	}
	for i := offset; i < offset+width; i++ {
		data[i] = 0
	}

	return testutil.Chunk{ID: c.ID, Data: data}
}

func TestDecode_ReadFailureIsIOError(t *testing.T) {
	data := testutil.WAV{Samples: make([]int16, 64)}.Bytes()
	boom := errors.New("disk on fire")
	r := io.MultiReader(bytes.NewReader(data[:50]), iotest.ErrReader(boom))

	_, err := Decode(r)
	if !errors.Is(err, media.ErrIO) {
		t.Fatalf("Decode() error = %v; want ErrIO", err)
	}
	if !errors.Is(err, boom) {
		t.Errorf("Decode() error = %v; want it to wrap the read failure", err)
	}
}

func TestDecodeFile(t *testing.T) {
	t.Run("reads a file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "in.wav")
		if err := os.WriteFile(path, testutil.WAV{Samples: []int16{16384}}.Bytes(), 0o600); err != nil {
			t.Fatal(err)
		}

		stream, err := DecodeFile(path)
		if err != nil {
			t.Fatalf("DecodeFile: %v", err)
		}
		if stream.Len() != 1 || stream.Samples[0] != 0.5 {
			t.Errorf("samples = %v; want [0.5]", stream.Samples)
		}
	})

	t.Run("missing file is an IO error", func(t *testing.T) {
		_, err := DecodeFile(filepath.Join(t.TempDir(), "missing.wav"))
		if !errors.Is(err, media.ErrIO) {
			t.Errorf("DecodeFile() error = %v; want ErrIO", err)
		}
	})

	t.Run("format errors name the file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.wav")
		if err := os.WriteFile(path, []byte("RIFX...."), 0o600); err != nil {
			t.Fatal(err)
		}

		_, err := DecodeFile(path)
		if !errors.Is(err, media.ErrFormat) {
			t.Fatalf("DecodeFile() error = %v; want ErrFormat", err)
		}
		if !bytes.Contains([]byte(err.Error()), []byte("bad.wav")) {
			t.Errorf("error %q does not mention the path", err)
		}
	})
}

func TestDownmix(t *testing.T) {
	tests := []struct {
		name     string
		channels int
		data     []int
		want     []float32
	}{
		{"mono passthrough", 1, []int{-32768, 0, 16384}, []float32{-1, 0, 0.5}},
		{"stereo", 2, []int{32767, 32767, -16384, 16384}, []float32{32767.0 / 32768.0, 0}},
		{"partial frame dropped", 2, []int{100, 100, 5}, []float32{200.0 / 65536}},
		{"quad", 4, []int{8192, 8192, 8192, 8192}, []float32{0.25}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Downmix(&goaudio.IntBuffer{
				Data:   tt.data,
				Format: &goaudio.Format{NumChannels: tt.channels, SampleRate: 8000},
			})
			if len(got) != len(tt.want) {
				t.Fatalf("len = %d; want %d", len(got), len(tt.want))
			}
			for i := range tt.want {
				if math.Abs(float64(got[i]-tt.want[i])) > 1e-7 {
					t.Errorf("[%d] = %v; want %v", i, got[i], tt.want[i])
				}
			}
		})
	}
}
