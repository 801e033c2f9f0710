// Package codec encodes captured PCM into the compressed, length-prefixed
// frame stream handed to the transcription engine, and decodes it back.
//
// A stream is a sequence of frames, each prefixed by its length as a
// big-endian uint16. The MIME type names the frame codec and carries the
// sample rate, for example "audio/opus;framing=u16be;rate=16000".
package codec

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"mime"
	"strconv"
	"sync"
)

// Errors returned by the codec helpers.
var (
	ErrUnknownCodec = errors.New("codec: unknown media type")
	ErrCorrupt      = errors.New("codec: corrupt frame stream")
	ErrFrameTooBig  = errors.New("codec: frame exceeds 65535 bytes")
)

// Codec converts fixed-size PCM frames to and from encoded frames.
type Codec interface {
	// MediaType is the base MIME type, e.g. "audio/opus".
	MediaType() string

	// SampleRate is the PCM rate in Hz.
	SampleRate() int

	// FrameSize is the number of samples per encoded frame.
	FrameSize() int

	EncodeFrame(pcm []int16) ([]byte, error)
	DecodeFrame(data []byte) ([]int16, error)
}

// MIMEType returns the full type for a stream produced by c.
func MIMEType(c Codec) string {
	return mime.FormatMediaType(c.MediaType(), map[string]string{
		"framing": "u16be",
		"rate":    strconv.Itoa(c.SampleRate()),
	})
}

// Factory builds a codec for a sample rate.
type Factory func(sampleRate int) (Codec, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{}
)

// Register makes a codec available to ForMIME under mediaType.
func Register(mediaType string, f Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[mediaType] = f
}

// ForMIME returns the codec for a stream MIME type.
func ForMIME(mimeType string) (Codec, error) {
	mediaType, params, err := mime.ParseMediaType(mimeType)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrUnknownCodec, mimeType, err)
	}
	registryMu.RLock()
	f, ok := registry[mediaType]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCodec, mediaType)
	}

	rate := 16000
	if r, err := strconv.Atoi(params["rate"]); err == nil && r > 0 {
		rate = r
	}
	return f(rate)
}

// AppendFrame appends one length-prefixed frame to buf.
func AppendFrame(buf *bytes.Buffer, frame []byte) error {
	if len(frame) > 0xFFFF {
		return ErrFrameTooBig
	}
	var hdr [2]byte
	binary.BigEndian.PutUint16(hdr[:], uint16(len(frame)))
	buf.Write(hdr[:])
	buf.Write(frame)
	return nil
}

// SplitFrames cuts a stream into its frames.
func SplitFrames(data []byte) ([][]byte, error) {
	var frames [][]byte
	for len(data) > 0 {
		if len(data) < 2 {
			return nil, ErrCorrupt
		}
		n := int(binary.BigEndian.Uint16(data))
		data = data[2:]
		if n > len(data) {
			return nil, ErrCorrupt
		}
		frames = append(frames, data[:n])
		data = data[n:]
	}
	return frames, nil
}

// EncodeAll encodes pcm into a stream, zero-padding the final frame.
func EncodeAll(c Codec, pcm []int16) ([]byte, error) {
	var buf bytes.Buffer
	size := c.FrameSize()
	frame := make([]int16, size)
	for off := 0; off < len(pcm); off += size {
		n := copy(frame, pcm[off:])
		for i := n; i < size; i++ {
			frame[i] = 0
		}
		enc, err := c.EncodeFrame(frame)
		if err != nil {
			return nil, err
		}
		if err := AppendFrame(&buf, enc); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// DecodeAll decodes a whole stream back to PCM.
func DecodeAll(c Codec, data []byte) ([]int16, error) {
	frames, err := SplitFrames(data)
	if err != nil {
		return nil, err
	}
	var pcm []int16
	for _, f := range frames {
		samples, err := c.DecodeFrame(f)
		if err != nil {
			return nil, err
		}
		pcm = append(pcm, samples...)
	}
	return pcm, nil
}
