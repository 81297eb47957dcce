// Package wav reads and writes the canonical linear-PCM WAV container used
// throughout the Elocute capture pipeline.
//
// The writer always produces the exact layout the transcription backend is
// defined for: a 44-byte RIFF/WAVE header followed by 16-bit signed
// little-endian PCM samples. The reader is deliberately more tolerant — it
// walks the chunk list instead of assuming the data chunk starts at byte 44,
// so files with extra metadata chunks (LIST, fact, …) still decode, and files
// with an unparseable header are reported as malformed rather than silently
// misread.
//
// This package lives under pkg/ because provider adapters (STT upload, TTS
// playback) consume it alongside the core capture and validation code.
package wav

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// HeaderSize is the size in bytes of the canonical header produced by
// [Encode]: RIFF descriptor + fmt chunk + data chunk header.
const HeaderSize = 44

// formatPCM is the WAVE format tag for uncompressed linear PCM.
const formatPCM = 1

// ErrMalformed is wrapped by every decode error caused by an invalid or
// truncated container, as opposed to I/O failures reading the underlying
// file. Use errors.Is to classify a decode failure as data corruption.
var ErrMalformed = errors.New("malformed wav data")

// Info describes the format and extent of a decoded WAV file.
type Info struct {
	// SampleRate in Hz.
	SampleRate int

	// Channels is the number of interleaved channels (1 = mono).
	Channels int

	// BitsPerSample is the sample width. Encode always writes 16.
	BitsPerSample int

	// Frames is the number of sample frames in the data chunk. One frame
	// holds one sample per channel.
	Frames int

	// DataOffset is the byte offset of the first PCM sample within the file,
	// determined by chunk walking — never assumed to be HeaderSize.
	DataOffset int64

	// DataSize is the size in bytes of the PCM payload.
	DataSize int
}

// Duration returns the play time of the audio described by i. Returns zero
// when the sample rate is not positive.
func (i Info) Duration() time.Duration {
	if i.SampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(i.Frames) / float64(i.SampleRate) * float64(time.Second))
}

// Encode writes samples as a complete WAV stream to w using the canonical
// 44-byte header. samples are interleaved when channels > 1.
func Encode(w io.Writer, samples []int16, sampleRate, channels int) error {
	if sampleRate <= 0 {
		return fmt.Errorf("wav: sample rate %d must be positive", sampleRate)
	}
	if channels <= 0 {
		return fmt.Errorf("wav: channel count %d must be positive", channels)
	}

	dataSize := len(samples) * 2
	byteRate := sampleRate * channels * 2
	blockAlign := channels * 2

	header := make([]byte, HeaderSize)
	copy(header[0:4], "RIFF")
	binary.LittleEndian.PutUint32(header[4:8], uint32(36+dataSize))
	copy(header[8:12], "WAVE")
	copy(header[12:16], "fmt ")
	binary.LittleEndian.PutUint32(header[16:20], 16) // fmt chunk size
	binary.LittleEndian.PutUint16(header[20:22], formatPCM)
	binary.LittleEndian.PutUint16(header[22:24], uint16(channels))
	binary.LittleEndian.PutUint32(header[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(header[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(header[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(header[34:36], 16) // bits per sample
	copy(header[36:40], "data")
	binary.LittleEndian.PutUint32(header[40:44], uint32(dataSize))

	if _, err := w.Write(header); err != nil {
		return fmt.Errorf("wav: write header: %w", err)
	}

	payload := make([]byte, dataSize)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(payload[i*2:i*2+2], uint16(s))
	}
	if _, err := w.Write(payload); err != nil {
		return fmt.Errorf("wav: write samples: %w", err)
	}
	return nil
}

// WriteFile encodes samples to path, creating parent directories as needed.
// The file is written atomically enough for our purposes: header and payload
// in one pass, so a completed call never leaves a truncated header behind.
func WriteFile(path string, samples []int16, sampleRate, channels int) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("wav: create directory for %q: %w", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("wav: create %q: %w", path, err)
	}
	if err := Encode(f, samples, sampleRate, channels); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("wav: close %q: %w", path, err)
	}
	return nil
}

// DecodeInfo parses the RIFF header and chunk list from r and returns the
// format description without reading sample data. All structural failures
// wrap [ErrMalformed].
func DecodeInfo(r io.ReadSeeker) (Info, error) {
	var riff [12]byte
	if _, err := io.ReadFull(r, riff[:]); err != nil {
		return Info{}, fmt.Errorf("wav: read riff descriptor: %w: %w", ErrMalformed, err)
	}
	if string(riff[0:4]) != "RIFF" || string(riff[8:12]) != "WAVE" {
		return Info{}, fmt.Errorf("wav: %w: not a RIFF/WAVE stream", ErrMalformed)
	}

	var (
		info    Info
		haveFmt bool
	)
	offset := int64(12)

	// Walk chunks until the data chunk. The fmt chunk must precede data.
	for {
		var chunkHeader [8]byte
		if _, err := io.ReadFull(r, chunkHeader[:]); err != nil {
			return Info{}, fmt.Errorf("wav: %w: missing data chunk", ErrMalformed)
		}
		chunkID := string(chunkHeader[0:4])
		chunkSize := int64(binary.LittleEndian.Uint32(chunkHeader[4:8]))
		offset += 8

		switch chunkID {
		case "fmt ":
			if chunkSize < 16 {
				return Info{}, fmt.Errorf("wav: %w: fmt chunk too small (%d bytes)", ErrMalformed, chunkSize)
			}
			var fmtChunk [16]byte
			if _, err := io.ReadFull(r, fmtChunk[:]); err != nil {
				return Info{}, fmt.Errorf("wav: %w: truncated fmt chunk", ErrMalformed)
			}
			if tag := binary.LittleEndian.Uint16(fmtChunk[0:2]); tag != formatPCM {
				return Info{}, fmt.Errorf("wav: %w: unsupported format tag %d (want PCM)", ErrMalformed, tag)
			}
			info.Channels = int(binary.LittleEndian.Uint16(fmtChunk[2:4]))
			info.SampleRate = int(binary.LittleEndian.Uint32(fmtChunk[4:8]))
			info.BitsPerSample = int(binary.LittleEndian.Uint16(fmtChunk[14:16]))
			if info.Channels <= 0 || info.SampleRate <= 0 || info.BitsPerSample <= 0 {
				return Info{}, fmt.Errorf("wav: %w: invalid fmt fields (rate=%d channels=%d bits=%d)",
					ErrMalformed, info.SampleRate, info.Channels, info.BitsPerSample)
			}
			haveFmt = true
			// Skip any fmt extension bytes.
			if rest := chunkSize - 16; rest > 0 {
				if _, err := r.Seek(rest+rest%2, io.SeekCurrent); err != nil {
					return Info{}, fmt.Errorf("wav: %w: seek past fmt extension", ErrMalformed)
				}
				offset += rest + rest%2
			}
			offset += 16

		case "data":
			if !haveFmt {
				return Info{}, fmt.Errorf("wav: %w: data chunk precedes fmt chunk", ErrMalformed)
			}
			info.DataOffset = offset
			info.DataSize = int(chunkSize)
			bytesPerFrame := info.Channels * info.BitsPerSample / 8
			if bytesPerFrame > 0 {
				info.Frames = info.DataSize / bytesPerFrame
			}
			return info, nil

		default:
			// Unknown chunk (LIST, fact, …): skip, honouring RIFF word padding.
			skip := chunkSize + chunkSize%2
			if _, err := r.Seek(skip, io.SeekCurrent); err != nil {
				return Info{}, fmt.Errorf("wav: %w: seek past %q chunk", ErrMalformed, chunkID)
			}
			offset += skip
		}
	}
}

// Decode parses r and returns both the format description and the decoded
// 16-bit samples. Files whose fmt chunk declares a bit depth other than 16
// are rejected as malformed — the capture pipeline never produces them and
// the amplitude analysis downstream is defined only for 16-bit samples.
func Decode(r io.ReadSeeker) (Info, []int16, error) {
	info, err := DecodeInfo(r)
	if err != nil {
		return Info{}, nil, err
	}
	if info.BitsPerSample != 16 {
		return Info{}, nil, fmt.Errorf("wav: %w: unsupported bit depth %d (want 16)", ErrMalformed, info.BitsPerSample)
	}

	if _, err := r.Seek(info.DataOffset, io.SeekStart); err != nil {
		return Info{}, nil, fmt.Errorf("wav: %w: seek to data chunk", ErrMalformed)
	}
	payload := make([]byte, info.DataSize)
	if _, err := io.ReadFull(r, payload); err != nil {
		return Info{}, nil, fmt.Errorf("wav: %w: data chunk shorter than declared", ErrMalformed)
	}

	samples := make([]int16, len(payload)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(payload[i*2 : i*2+2]))
	}
	return info, samples, nil
}

// ReadFile opens and decodes the WAV file at path.
func ReadFile(path string) (Info, []int16, error) {
	f, err := os.Open(path)
	if err != nil {
		return Info{}, nil, fmt.Errorf("wav: open %q: %w", path, err)
	}
	defer f.Close()
	return Decode(f)
}

// ReadInfo opens path and parses only its header.
func ReadInfo(path string) (Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return Info{}, fmt.Errorf("wav: open %q: %w", path, err)
	}
	defer f.Close()
	return DecodeInfo(f)
}
