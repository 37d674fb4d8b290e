// Package proto implements the relay wire format: every message is a single
// frame made of a 2-byte big-endian length followed by that many bytes of
// modified UTF-8 text.
package proto

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"unicode/utf16"
	"unicode/utf8"
)

// MaxFrameBytes is the largest payload a 2-byte length prefix can describe.
const MaxFrameBytes = 0xFFFF

var (
	// ErrFrameTooLong is returned when the encoded text does not fit a frame.
	ErrFrameTooLong = errors.New("encoded frame exceeds 65535 bytes")
	// ErrMalformedInput is returned when a payload is not valid modified UTF-8.
	ErrMalformedInput = errors.New("malformed modified utf-8 input")
)

// EncodedLen returns the number of bytes s occupies in modified UTF-8.
func EncodedLen(s string) int {
	n := 0
	for _, r := range s {
		n += runeLen(r)
	}
	return n
}

func runeLen(r rune) int {
	switch {
	case r == 0:
		return 2
	case r < 0x80:
		return 1
	case r < 0x800:
		return 2
	case r < 0x10000:
		return 3
	default:
		// surrogate pair, three bytes per half
		return 6
	}
}

// Encode converts s into modified UTF-8. NUL is written as C0 80 and
// supplementary characters as a pair of encoded surrogates.
func Encode(s string) ([]byte, error) {
	n := EncodedLen(s)
	if n > MaxFrameBytes {
		return nil, ErrFrameTooLong
	}
	buf := make([]byte, 0, n)
	for _, r := range s {
		if r >= 0x10000 {
			hi, lo := utf16.EncodeRune(r)
			buf = appendUnit(buf, hi)
			buf = appendUnit(buf, lo)
			continue
		}
		buf = appendUnit(buf, r)
	}
	return buf, nil
}

func appendUnit(buf []byte, r rune) []byte {
	switch {
	case r != 0 && r < 0x80:
		return append(buf, byte(r))
	case r < 0x800:
		return append(buf, byte(0xC0|(r>>6)&0x1F), byte(0x80|r&0x3F))
	default:
		return append(buf, byte(0xE0|(r>>12)&0x0F), byte(0x80|(r>>6)&0x3F), byte(0x80|r&0x3F))
	}
}

// Decode converts a modified UTF-8 payload back into a Go string.
// Surrogate pairs are recombined; an unpaired surrogate becomes U+FFFD.
func Decode(b []byte) (string, error) {
	units := make([]uint16, 0, len(b))
	for i := 0; i < len(b); {
		c := b[i]
		switch {
		case c < 0x80:
			units = append(units, uint16(c))
			i++
		case c&0xE0 == 0xC0:
			if i+1 >= len(b) || b[i+1]&0xC0 != 0x80 {
				return "", fmt.Errorf("%w: truncated 2-byte sequence at %d", ErrMalformedInput, i)
			}
			units = append(units, uint16(c&0x1F)<<6|uint16(b[i+1]&0x3F))
			i += 2
		case c&0xF0 == 0xE0:
			if i+2 >= len(b) || b[i+1]&0xC0 != 0x80 || b[i+2]&0xC0 != 0x80 {
				return "", fmt.Errorf("%w: truncated 3-byte sequence at %d", ErrMalformedInput, i)
			}
			units = append(units, uint16(c&0x0F)<<12|uint16(b[i+1]&0x3F)<<6|uint16(b[i+2]&0x3F))
			i += 3
		default:
			return "", fmt.Errorf("%w: invalid lead byte 0x%02x at %d", ErrMalformedInput, c, i)
		}
	}
	runes := utf16.Decode(units)
	out := make([]byte, 0, len(b))
	for _, r := range runes {
		out = utf8.AppendRune(out, r)
	}
	return string(out), nil
}

// WriteFrame encodes s and writes it to w as a single frame.
func WriteFrame(w io.Writer, s string) error {
	payload, err := Encode(s)
	if err != nil {
		return err
	}
	frame := make([]byte, 2+len(payload))
	binary.BigEndian.PutUint16(frame, uint16(len(payload)))
	copy(frame[2:], payload)
	_, err = w.Write(frame)
	return err
}

// ReadFrame reads one frame from r and returns the decoded text.
// A clean end of stream before the header is reported as io.EOF.
func ReadFrame(r io.Reader) (string, error) {
	var header [2]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return "", err
	}
	size := binary.BigEndian.Uint16(header[:])
	payload := make([]byte, size)
	if _, err := io.ReadFull(r, payload); err != nil {
		if errors.Is(err, io.EOF) {
			return "", io.ErrUnexpectedEOF
		}
		return "", err
	}
	return Decode(payload)
}
