package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-audio/wav"
	"github.com/gopxl/beep"
	"github.com/gopxl/beep/flac"
	"github.com/gopxl/beep/vorbis"
	"github.com/hajimehoshi/go-mp3"
)

// Decoder turns encoded audio files into 16-bit PCM
type Decoder struct {
	// ForceMono averages stereo input down to one channel
	ForceMono bool
}

// DecodeFile reads and decodes path, the container is chosen by extension
func (d Decoder) DecodeFile(path string) (PCM, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return PCM{}, fmt.Errorf("read audio %q: %w", path, err)
	}
	pcm, err := d.Decode(bytes.NewReader(data), filepath.Ext(path))
	if err != nil {
		return PCM{}, fmt.Errorf("decode audio %q: %w", path, err)
	}
	return pcm, nil
}

// Decode decodes r according to format, a file extension with or without the dot
func (d Decoder) Decode(r io.ReadSeeker, format string) (PCM, error) {
	var (
		pcm PCM
		err error
	)
	switch strings.ToLower(strings.TrimPrefix(format, ".")) {
	case "mp3":
		pcm, err = decodeMP3(r)
	case "wav", "wave":
		pcm, err = decodeWAV(r)
	case "ogg", "oga":
		pcm, err = decodeBeep(r, "ogg")
	case "flac":
		pcm, err = decodeBeep(r, "flac")
	default:
		return PCM{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	if err != nil {
		return PCM{}, err
	}

	if pcm.Channels != 1 && pcm.Channels != 2 {
		return PCM{}, fmt.Errorf("%w: %d", ErrUnsupportedChannels, pcm.Channels)
	}
	if pcm.SampleRate <= 0 {
		return PCM{}, fmt.Errorf("%w: sample rate %d", ErrUnsupportedFormat, pcm.SampleRate)
	}
	if d.ForceMono && pcm.Channels == 2 {
		pcm = Downmix(pcm)
	}
	return pcm, nil
}

// decodeMP3 always yields interleaved stereo
func decodeMP3(r io.Reader) (PCM, error) {
	dec, err := mp3.NewDecoder(r)
	if err != nil {
		return PCM{}, fmt.Errorf("mp3 header: %w", err)
	}
	data, err := io.ReadAll(dec)
	if err != nil {
		return PCM{}, fmt.Errorf("mp3 frames: %w", err)
	}
	return PCM{Data: data, SampleRate: dec.SampleRate(), Channels: 2}, nil
}

// wavFormatPCM is the integer PCM format tag of the fmt chunk
const wavFormatPCM = 1

func decodeWAV(r io.ReadSeeker) (PCM, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return PCM{}, fmt.Errorf("%w: not a PCM wav stream", ErrUnsupportedFormat)
	}
	// Float and compressed tags would be misread as integer samples
	if dec.WavAudioFormat != wavFormatPCM {
		return PCM{}, fmt.Errorf("%w: wav format tag %d", ErrUnsupportedFormat, dec.WavAudioFormat)
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return PCM{}, fmt.Errorf("wav samples: %w", err)
	}

	depth := int(dec.BitDepth)
	channels := int(dec.NumChans)
	data := make([]byte, 2*len(buf.Data))
	for i, v := range buf.Data {
		var s int
		switch depth {
		case 8:
			s = (v - 128) << 8
		case 16:
			s = v
		case 24:
			s = v >> 8
		case 32:
			s = v >> 16
		default:
			return PCM{}, fmt.Errorf("%w: %d-bit wav", ErrUnsupportedFormat, depth)
		}
		binary.LittleEndian.PutUint16(data[2*i:], uint16(int16(s)))
	}
	return PCM{Data: data, SampleRate: int(dec.SampleRate), Channels: channels}, nil
}

// decodeBeep drains a beep decoder and re-encodes it as 16-bit samples
func decodeBeep(r io.Reader, kind string) (PCM, error) {
	var (
		s   beep.StreamSeekCloser
		f   beep.Format
		err error
	)
	rc := io.NopCloser(r)
	switch kind {
	case "ogg":
		s, f, err = vorbis.Decode(rc)
	default:
		s, f, err = flac.Decode(rc)
	}
	if err != nil {
		return PCM{}, fmt.Errorf("%s header: %w", kind, err)
	}
	defer s.Close()

	if f.NumChannels != 1 && f.NumChannels != 2 {
		return PCM{}, fmt.Errorf("%w: %d", ErrUnsupportedChannels, f.NumChannels)
	}
	out := beep.Format{SampleRate: f.SampleRate, NumChannels: f.NumChannels, Precision: 2}

	var data []byte
	frame := make([]byte, out.Width())
	samples := make([][2]float64, 512)
	for {
		n, ok := s.Stream(samples)
		for _, smp := range samples[:n] {
			w := out.EncodeSigned(frame, smp)
			data = append(data, frame[:w]...)
		}
		if !ok {
			break
		}
	}
	if err := s.Err(); err != nil {
		return PCM{}, fmt.Errorf("%s frames: %w", kind, err)
	}
	return PCM{Data: data, SampleRate: int(f.SampleRate), Channels: f.NumChannels}, nil
}

// Downmix averages interleaved stereo into mono
func Downmix(p PCM) PCM {
	if p.Channels != 2 {
		return p
	}
	frames := p.Frames()
	data := make([]byte, 2*frames)
	for i := 0; i < frames; i++ {
		l := int(int16(binary.LittleEndian.Uint16(p.Data[4*i:])))
		r := int(int16(binary.LittleEndian.Uint16(p.Data[4*i+2:])))
		binary.LittleEndian.PutUint16(data[2*i:], uint16(int16((l+r)/2)))
	}
	return PCM{Data: data, SampleRate: p.SampleRate, Channels: 1}
}
