package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// writeWAV encodes integer PCM samples with the given layout into a temp file
func writeWAV(t *testing.T, rate, depth, channels int, samples []int) string {
	t.Helper()
	return writeWAVFormat(t, rate, depth, channels, 1, samples)
}

func writeWAVFormat(t *testing.T, rate, depth, channels, format int, samples []int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tone.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	enc := wav.NewEncoder(f, rate, depth, channels, format)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: channels, SampleRate: rate},
		Data:           samples,
		SourceBitDepth: depth,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatalf("encode: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("close encoder: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close file: %v", err)
	}
	return path
}

func sample16(p PCM, i int) int16 {
	return int16(binary.LittleEndian.Uint16(p.Data[2*i:]))
}

// TestDecodeWAV16 verifies 16-bit wav passes through unchanged
func TestDecodeWAV16(t *testing.T) {
	path := writeWAV(t, 22050, 16, 2, []int{1000, -1000, 2000, -2000, 3000, -3000})

	pcm, err := Decoder{}.DecodeFile(path)
	if err != nil {
		t.Fatalf("DecodeFile failed: %v", err)
	}
	if pcm.SampleRate != 22050 || pcm.Channels != 2 {
		t.Errorf("Expected 22050Hz stereo, got %dHz %dch", pcm.SampleRate, pcm.Channels)
	}
	if pcm.Frames() != 3 {
		t.Fatalf("Expected 3 frames, got %d", pcm.Frames())
	}
	if sample16(pcm, 0) != 1000 || sample16(pcm, 5) != -3000 {
		t.Errorf("Unexpected samples %d %d", sample16(pcm, 0), sample16(pcm, 5))
	}
}

// TestDecodeWAV24 verifies wider samples are reduced to 16 bits
func TestDecodeWAV24(t *testing.T) {
	path := writeWAV(t, 48000, 24, 1, []int{256 * 100, -256 * 100})

	pcm, err := Decoder{}.DecodeFile(path)
	if err != nil {
		t.Fatalf("DecodeFile failed: %v", err)
	}
	if pcm.Channels != 1 || pcm.Frames() != 2 {
		t.Fatalf("Expected 2 mono frames, got %d frames %dch", pcm.Frames(), pcm.Channels)
	}
	if sample16(pcm, 0) != 100 || sample16(pcm, 1) != -100 {
		t.Errorf("Expected 100 and -100, got %d %d", sample16(pcm, 0), sample16(pcm, 1))
	}
}

// TestDecodeForceMono verifies stereo is averaged when mono is forced
func TestDecodeForceMono(t *testing.T) {
	path := writeWAV(t, 44100, 16, 2, []int{1000, 3000, -400, 0})

	pcm, err := Decoder{ForceMono: true}.DecodeFile(path)
	if err != nil {
		t.Fatalf("DecodeFile failed: %v", err)
	}
	if pcm.Channels != 1 || pcm.Frames() != 2 {
		t.Fatalf("Expected 2 mono frames, got %d frames %dch", pcm.Frames(), pcm.Channels)
	}
	if sample16(pcm, 0) != 2000 || sample16(pcm, 1) != -200 {
		t.Errorf("Expected 2000 and -200, got %d %d", sample16(pcm, 0), sample16(pcm, 1))
	}
}

// TestDecodeUnsupportedChannels verifies surround input is rejected
func TestDecodeUnsupportedChannels(t *testing.T) {
	path := writeWAV(t, 44100, 16, 4, []int{1, 2, 3, 4})

	_, err := Decoder{}.DecodeFile(path)
	if !errors.Is(err, ErrUnsupportedChannels) {
		t.Errorf("Expected ErrUnsupportedChannels, got %v", err)
	}
}

// TestDecodeUnsupportedFormat verifies unknown extensions and junk payloads fail
func TestDecodeUnsupportedFormat(t *testing.T) {
	_, err := Decoder{}.Decode(bytes.NewReader([]byte("abc")), ".aiff")
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("Expected ErrUnsupportedFormat, got %v", err)
	}

	_, err = Decoder{}.Decode(bytes.NewReader([]byte("definitely not riff")), "wav")
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("Expected ErrUnsupportedFormat for junk wav, got %v", err)
	}
}

// TestDecodeFloatWAVRejected verifies IEEE float wav is not read as integer PCM
func TestDecodeFloatWAVRejected(t *testing.T) {
	samples := make([]int, 64)
	for i := range samples {
		samples[i] = int(math.Float32bits(0.001))
	}
	path := writeWAVFormat(t, 8000, 32, 1, 3, samples)

	pcm, err := Decoder{}.DecodeFile(path)
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("Expected ErrUnsupportedFormat, got %v (first sample %d)", err, firstSample(pcm))
	}
}

func firstSample(p PCM) int16 {
	if len(p.Data) < 2 {
		return 0
	}
	return sample16(p, 0)
}

// TestDecodeMissingFile verifies read errors are reported
func TestDecodeMissingFile(t *testing.T) {
	if _, err := (Decoder{}).DecodeFile(filepath.Join(t.TempDir(), "absent.mp3")); err == nil {
		t.Error("Expected error for missing file")
	}
}

// TestDownmixPassthrough verifies mono input is untouched
func TestDownmixPassthrough(t *testing.T) {
	in := PCM{Data: []byte{1, 0, 2, 0}, SampleRate: 8000, Channels: 1}
	out := Downmix(in)
	if out.Channels != 1 || !bytes.Equal(out.Data, in.Data) {
		t.Errorf("Expected mono passthrough, got %+v", out)
	}
}
