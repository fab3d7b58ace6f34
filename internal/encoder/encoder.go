package encoder

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zlib"
	"go.uber.org/zap"
)

const (
	// DefaultServerURL is the PlantUML PNG endpoint the payload is appended to.
	DefaultServerURL = "http://www.plantuml.com/plantuml/png/"

	// Alphabet is the 6-bit character set understood by the PlantUML decoder.
	Alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz-_"

	headerStrip  = 2 // zlib CMF/FLG
	trailerStrip = 4 // Adler-32
	groupSize    = 3
)

var errAlphabet = errors.New("alphabet must contain exactly 64 characters")

// Encoder turns diagram source into a rendering-service URL.
type Encoder struct {
	baseURL  string
	alphabet string
	logger   *zap.Logger
}

// Option configures an Encoder.
type Option func(*Encoder)

// WithBaseURL overrides the rendering service prefix.
func WithBaseURL(u string) Option {
	return func(e *Encoder) { e.baseURL = u }
}

// WithAlphabet overrides the output character set. It must be 64 characters long;
// a wrong length makes every encoding degrade to an empty payload.
func WithAlphabet(a string) Option {
	return func(e *Encoder) { e.alphabet = a }
}

// WithLogger attaches a logger for degraded-output diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(e *Encoder) {
		if l != nil {
			e.logger = l
		}
	}
}

// New returns an Encoder using the public PlantUML server by default.
func New(opts ...Option) *Encoder {
	e := &Encoder{
		baseURL:  DefaultServerURL,
		alphabet: Alphabet,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// BaseURL returns the configured rendering service prefix.
func (e *Encoder) BaseURL() string { return e.baseURL }

// URL compresses and encodes source and appends it to the base URL.
// It never fails: a stage that errors contributes an empty payload.
func (e *Encoder) URL(source string) string {
	compressed, err := Compress(source)
	if err != nil {
		e.logger.Debug("compression failed, using empty payload", zap.Error(err))
		compressed = nil
	}

	encoded, err := e.encode(compressed)
	if err != nil {
		e.logger.Debug("encoding failed, using empty payload", zap.Error(err))
		encoded = ""
	}

	return e.baseURL + encoded
}

// Payload returns only the encoded segment of URL(source).
func (e *Encoder) Payload(source string) string {
	return strings.TrimPrefix(e.URL(source), e.baseURL)
}

// Compress deflates text at the default level and returns the raw deflate
// stream, without the zlib header and checksum.
func Compress(text string) ([]byte, error) {
	var buf bytes.Buffer
	zw, err := zlib.NewWriterLevel(&buf, zlib.DefaultCompression)
	if err != nil {
		return nil, fmt.Errorf("create zlib writer: %w", err)
	}
	if _, err := zw.Write([]byte(text)); err != nil {
		return nil, fmt.Errorf("deflate: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("flush zlib writer: %w", err)
	}

	raw := buf.Bytes()
	if len(raw) < headerStrip+trailerStrip {
		return nil, fmt.Errorf("zlib output too short: %d bytes", len(raw))
	}
	return raw[headerStrip : len(raw)-trailerStrip], nil
}

// Encode packs data into the PlantUML alphabet, 3 bytes to 4 characters.
// A short final group is zero-filled and no padding characters are added.
func Encode(data []byte) string {
	s, _ := encodeWith(Alphabet, data)
	return s
}

func (e *Encoder) encode(data []byte) (string, error) {
	return encodeWith(e.alphabet, data)
}

func encodeWith(alphabet string, data []byte) (string, error) {
	if len(alphabet) != 64 {
		return "", errAlphabet
	}

	var sb strings.Builder
	sb.Grow((len(data) + groupSize - 1) / groupSize * 4)

	for i := 0; i < len(data); i += groupSize {
		b0 := data[i]
		var b1, b2 byte
		if i+1 < len(data) {
			b1 = data[i+1]
		}
		if i+2 < len(data) {
			b2 = data[i+2]
		}

		sb.WriteByte(alphabet[b0>>2])
		sb.WriteByte(alphabet[(b0&0x3)<<4|b1>>4])
		sb.WriteByte(alphabet[(b1&0xF)<<2|b2>>6])
		sb.WriteByte(alphabet[b2&0x3F])
	}
	return sb.String(), nil
}

// Decode reverses Encode. Zero bytes synthesized for a short final group are
// returned as-is, so the result may carry up to two trailing zeros.
func Decode(s string) ([]byte, error) {
	if len(s)%4 != 0 {
		return nil, fmt.Errorf("payload length %d is not a multiple of 4", len(s))
	}

	var index [256]int8
	for i := range index {
		index[i] = -1
	}
	for i := 0; i < len(Alphabet); i++ {
		index[Alphabet[i]] = int8(i)
	}

	out := make([]byte, 0, len(s)/4*groupSize)
	for i := 0; i < len(s); i += 4 {
		var c [4]byte
		for j := 0; j < 4; j++ {
			v := index[s[i+j]]
			if v < 0 {
				return nil, fmt.Errorf("invalid character %q at offset %d", s[i+j], i+j)
			}
			c[j] = byte(v)
		}
		out = append(out,
			c[0]<<2|c[1]>>4,
			(c[1]&0xF)<<4|c[2]>>2,
			(c[2]&0x3)<<6|c[3],
		)
	}
	return out, nil
}

// Inflate decodes a payload and decompresses the raw deflate stream back into
// diagram source.
func Inflate(payload string) (string, error) {
	data, err := Decode(payload)
	if err != nil {
		return "", err
	}

	fr := flate.NewReader(bytes.NewReader(data))
	defer fr.Close()

	text, err := io.ReadAll(fr)
	if err != nil {
		return "", fmt.Errorf("inflate: %w", err)
	}
	return string(text), nil
}
