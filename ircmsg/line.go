package ircmsg

import (
	"bytes"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
)

// DefaultMaxLineLength is the IRC wire limit: 512 bytes including the
// trailing CRLF (RFC 2812 s.2.3).
const DefaultMaxLineLength = 512

// LineCodec frames a byte stream into CRLF-terminated lines using a
// configurable WHATWG character encoding, and remembers a scan cursor
// between calls so partial buffers are never rescanned from byte 0.
//
// Grounded on original_source/proto/src/codecs/line.rs's LineCodec, with
// the encoding crate's encoding_from_whatwg_label swapped for
// golang.org/x/text/encoding/htmlindex, which implements the same WHATWG
// Encoding Standard label table.
type LineCodec struct {
	label     string
	enc       encoding.Encoding
	nextIndex int
	maxLength int
}

// NewLineCodec resolves label against the WHATWG encoding label table and
// returns a codec bounded to maxLength bytes per line (including CRLF).
func NewLineCodec(label string, maxLength int) (*LineCodec, error) {
	enc, err := htmlindex.LookupEncoding(label)
	if err != nil {
		return nil, ErrInvalidEncoding
	}
	if maxLength <= 0 {
		maxLength = DefaultMaxLineLength
	}
	return &LineCodec{label: label, enc: enc, maxLength: maxLength}, nil
}

// Name returns the encoding label the codec was created with, as given
// (not normalized to the canonical WHATWG name).
func (c *LineCodec) Name() string { return c.label }

// MaxLength returns the configured maximum line length.
func (c *LineCodec) MaxLength() int { return c.maxLength }

// Decode attempts to extract one complete line from buf. It reports
// ok == false when buf does not yet contain a full line; callers should
// read more bytes into buf and call Decode again. On a successful decode
// the consumed bytes (through and including the '\n') are removed from
// buf and the scan cursor resets to zero.
func (c *LineCodec) Decode(buf *bytes.Buffer) (line string, ok bool, err error) {
	b := buf.Bytes()
	if len(b) == 0 {
		return "", false, nil
	}

	readTo := c.maxLength + 1
	if readTo > len(b) {
		readTo = len(b)
	}

	rel := bytes.IndexByte(b[c.nextIndex:readTo], '\n')
	if rel < 0 {
		if len(b) > c.maxLength {
			return "", false, ErrMaxLineLengthExceeded
		}
		c.nextIndex = len(b)
		return "", false, nil
	}

	lineEnd := c.nextIndex + rel // index of '\n' in b
	raw := make([]byte, lineEnd)
	copy(raw, b[:lineEnd])
	// Strip a single trailing '\r' from the captured line only, never from
	// the buffer position math above (this is the edge case the original
	// line.rs split_to/advance pairing got wrong for CR-only lines).
	if len(raw) > 0 && raw[len(raw)-1] == '\r' {
		raw = raw[:len(raw)-1]
	}

	buf.Next(lineEnd + 1)
	c.nextIndex = 0

	decoded, err := decodeReplacing(c.enc, raw)
	if err != nil {
		return "", false, err
	}
	return decoded, true, nil
}

// Encode encodes msg (which already carries any line terminator the caller
// wants transmitted) and appends the result to dst. It fails with
// ErrMaxLineLengthExceeded without writing anything if the encoded form
// would exceed MaxLength.
func (c *LineCodec) Encode(msg string, dst *bytes.Buffer) error {
	data, err := encodeReplacing(c.enc, msg)
	if err != nil {
		return err
	}
	if len(data) > c.maxLength {
		return ErrMaxLineLengthExceeded
	}
	dst.Grow(c.maxLength)
	dst.Write(data)
	return nil
}

// decodeReplacing decodes raw bytes using enc, substituting U+FFFD for
// invalid sequences rather than failing (the "replacement trap" of the
// base spec). With a replacement trap, decoding never fails for
// well-formed byte input.
func decodeReplacing(enc encoding.Encoding, raw []byte) (string, error) {
	dec := encoding.ReplaceUnsupported(enc.NewDecoder())
	out, err := dec.Bytes(raw)
	if err != nil {
		// ReplaceUnsupported only covers unsupported runes, not malformed
		// input sequences; fall back to scrubbing invalid bytes by hand so
		// decoding never fails on well-formed byte input per the contract.
		return scrubInvalidUTF8(raw), nil
	}
	return scrubInvalidUTF8(out), nil
}

// encodeReplacing mirrors decodeReplacing for the encode direction.
func encodeReplacing(enc encoding.Encoding, s string) ([]byte, error) {
	encr := encoding.ReplaceUnsupported(enc.NewEncoder())
	return encr.Bytes([]byte(s))
}

// scrubInvalidUTF8 replaces ill-formed UTF-8 sequences with U+FFFD, the
// replacement trap behavior the base spec requires for the default
// "utf-8" encoding label.
func scrubInvalidUTF8(b []byte) string {
	if utf8.Valid(b) {
		return string(b)
	}
	var buf bytes.Buffer
	buf.Grow(len(b))
	for len(b) > 0 {
		r, size := utf8.DecodeRune(b)
		buf.WriteRune(r)
		b = b[size:]
	}
	return buf.String()
}
