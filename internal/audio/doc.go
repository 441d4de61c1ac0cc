// Package audio reads 16-bit PCM WAV files into mono sample streams and
// writes sine test tones.
//
// Decoding walks the RIFF chunk list field by field: unknown chunks are
// skipped, odd-sized chunks are followed by one pad byte, and the "fmt " and
// "data" chunks may appear in either order. Failures wrap media.ErrFormat or
// media.ErrIO.
package audio
