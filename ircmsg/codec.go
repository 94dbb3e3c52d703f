package ircmsg

import "bytes"

// MessageCodec bridges the byte-oriented LineCodec to typed Messages
// wrapping every decode or parse failure into an InvalidMessageError;
// parse failures carry the offending line, line codec failures carry none.
//
// Grounded on original_source/proto/src/codecs/message.rs, which layers
// the same way over codecs/line.rs.
type MessageCodec struct {
	lines *LineCodec
}

// NewMessageCodec wraps lines.
func NewMessageCodec(lines *LineCodec) *MessageCodec {
	return &MessageCodec{lines: lines}
}

// Decode extracts and parses at most one Message from buf. It reports
// ok == false when buf does not yet contain a complete line.
func (c *MessageCodec) Decode(buf *bytes.Buffer) (msg *Message, ok bool, err error) {
	line, ok, err := c.lines.Decode(buf)
	if err != nil {
		return nil, false, &InvalidMessageError{Cause: err}
	}
	if !ok {
		return nil, false, nil
	}
	msg, err = ParseMessage(line)
	if err != nil {
		return nil, false, &InvalidMessageError{Line: line, Cause: err}
	}
	return msg, true, nil
}

// Encode serializes msg and appends its wire form to dst.
func (c *MessageCodec) Encode(msg *Message, dst *bytes.Buffer) error {
	wire, err := msg.Serialize()
	if err != nil {
		return &InvalidMessageError{Cause: err}
	}
	return c.lines.Encode(wire, dst)
}
