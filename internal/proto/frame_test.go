package proto

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWriteFrameLayout(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFrame(&buf, "NICK alice"))

	got := buf.Bytes()
	require.Equal(t, []byte{0x00, 0x0A}, got[:2])
	require.Equal(t, "NICK alice", string(got[2:]))
}

func TestEncodeModifiedForms(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want []byte
	}{
		{"nul", "\x00", []byte{0xC0, 0x80}},
		{"two byte", "é", []byte{0xC3, 0xA9}},
		{"hangul", "가", []byte{0xEA, 0xB0, 0x80}},
		{"supplementary", "😀", []byte{0xED, 0xA0, 0xBD, 0xED, 0xB8, 0x80}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Encode(tc.in)
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
			require.Equal(t, len(tc.want), EncodedLen(tc.in))

			back, err := Decode(got)
			require.NoError(t, err)
			require.Equal(t, tc.in, back)
		})
	}
}

func TestLengthPrefixCountsBytesNotRunes(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFrame(&buf, "안녕"))
	require.Equal(t, []byte{0x00, 0x06}, buf.Bytes()[:2])
}

func TestEncodeRejectsOversizedText(t *testing.T) {
	_, err := Encode(strings.Repeat("a", MaxFrameBytes+1))
	require.ErrorIs(t, err, ErrFrameTooLong)

	_, err = Encode(strings.Repeat("a", MaxFrameBytes))
	require.NoError(t, err)
}

func TestDecodeRejectsMalformed(t *testing.T) {
	for _, payload := range [][]byte{
		{0xC3},
		{0xE0, 0x80},
		{0xF0, 0x9F, 0x98, 0x80},
		{0xC3, 0x41},
	} {
		_, err := Decode(payload)
		require.ErrorIs(t, err, ErrMalformedInput, "payload %x", payload)
	}
}

func TestReadFrameSequence(t *testing.T) {
	var buf bytes.Buffer
	for _, s := range []string{"JOIN lobby", "", "hello 😀"} {
		require.NoError(t, WriteFrame(&buf, s))
	}

	for _, want := range []string{"JOIN lobby", "", "hello 😀"} {
		got, err := ReadFrame(&buf)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}

	_, err := ReadFrame(&buf)
	require.ErrorIs(t, err, io.EOF)
}

func TestReadFrameTruncatedPayload(t *testing.T) {
	_, err := ReadFrame(bytes.NewReader([]byte{0x00, 0x05, 'a', 'b'}))
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("expected unexpected EOF, got %v", err)
	}
}

func TestPongRoundTrip(t *testing.T) {
	now := time.UnixMilli(1_700_000_000_123)
	line := FormatPong(now)
	require.Equal(t, "PONG 1700000000123", line)

	ts, ok := ParsePong(line)
	require.True(t, ok)
	require.Equal(t, now, ts)

	require.Equal(t, 25*time.Millisecond, Latency(ts, now.Add(25*time.Millisecond)))
	require.Zero(t, Latency(ts, now.Add(-time.Second)))

	_, ok = ParsePong("PONG soon")
	require.False(t, ok)
	_, ok = ParsePong("hello")
	require.False(t, ok)
}
