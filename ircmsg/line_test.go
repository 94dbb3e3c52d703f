package ircmsg

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLineCodecDecodeBasic(t *testing.T) {
	c, err := NewLineCodec("utf-8", 0)
	require.NoError(t, err)

	buf := bytes.NewBufferString("NICK alice\r\n")
	line, ok, err := c.Decode(buf)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "NICK alice", line)
	assert.Equal(t, 0, buf.Len())
}

func TestLineCodecPartialBuffer(t *testing.T) {
	c, err := NewLineCodec("utf-8", 0)
	require.NoError(t, err)

	buf := &bytes.Buffer{}
	buf.WriteString("NICK al")
	_, ok, err := c.Decode(buf)
	require.NoError(t, err)
	require.False(t, ok)

	buf.WriteString("ice\r\n")
	line, ok, err := c.Decode(buf)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "NICK alice", line)
}

// TestLineCodecSplitAtEveryPoint checks law #2: decoding a buffer split at
// any point k yields the same sequence of lines as decoding it whole.
func TestLineCodecSplitAtEveryPoint(t *testing.T) {
	whole := "NICK alice\r\nUSER a 0 * :Alice\r\nPING :tok\r\n"

	var wantLines []string
	{
		c, err := NewLineCodec("utf-8", 0)
		require.NoError(t, err)
		buf := bytes.NewBufferString(whole)
		for {
			line, ok, err := c.Decode(buf)
			require.NoError(t, err)
			if !ok {
				break
			}
			wantLines = append(wantLines, line)
		}
	}

	for k := 0; k <= len(whole); k++ {
		c, err := NewLineCodec("utf-8", 0)
		require.NoError(t, err)
		buf := &bytes.Buffer{}
		buf.WriteString(whole[:k])

		var got []string
		line, ok, err := c.Decode(buf)
		require.NoError(t, err)
		if ok {
			got = append(got, line)
		}
		buf.WriteString(whole[k:])
		for {
			line, ok, err := c.Decode(buf)
			require.NoError(t, err)
			if !ok {
				break
			}
			got = append(got, line)
		}
		assert.Equal(t, wantLines, got, "split at k=%d", k)
	}
}

func TestLineCodecCRLessLine(t *testing.T) {
	c, err := NewLineCodec("utf-8", 0)
	require.NoError(t, err)

	buf := bytes.NewBufferString("PING tok\n")
	line, ok, err := c.Decode(buf)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "PING tok", line)
}

func TestLineCodecCROnlyLine(t *testing.T) {
	c, err := NewLineCodec("utf-8", 0)
	require.NoError(t, err)

	buf := bytes.NewBufferString("\r\n")
	line, ok, err := c.Decode(buf)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "", line)
}

func TestLineCodecMaxLengthExceeded(t *testing.T) {
	c, err := NewLineCodec("utf-8", 16)
	require.NoError(t, err)

	buf := bytes.NewBufferString(strings.Repeat("x", 17))
	_, ok, err := c.Decode(buf)
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrMaxLineLengthExceeded)
	assert.Equal(t, 17, buf.Len(), "overflow must not consume bytes")
}

func TestLineCodecEncodeRoundTrip(t *testing.T) {
	c, err := NewLineCodec("utf-8", 0)
	require.NoError(t, err)

	dst := &bytes.Buffer{}
	require.NoError(t, c.Encode("NICK alice\r\n", dst))
	assert.Equal(t, "NICK alice\r\n", dst.String())
}

func TestLineCodecEncodeTooLong(t *testing.T) {
	c, err := NewLineCodec("utf-8", 8)
	require.NoError(t, err)

	dst := &bytes.Buffer{}
	err = c.Encode("NICK alice\r\n", dst)
	assert.ErrorIs(t, err, ErrMaxLineLengthExceeded)
}

func TestLineCodecInvalidEncodingLabel(t *testing.T) {
	_, err := NewLineCodec("not-a-real-encoding", 0)
	assert.ErrorIs(t, err, ErrInvalidEncoding)
}

func TestLineCodecReplacementTrap(t *testing.T) {
	c, err := NewLineCodec("utf-8", 0)
	require.NoError(t, err)

	buf := &bytes.Buffer{}
	buf.Write([]byte{'h', 'i', 0xff, 0xfe, '\r', '\n'})
	line, ok, err := c.Decode(buf)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Contains(t, line, "�")
}
