// Package ircmsg implements the IRC wire format: a CRLF-framed line codec
// with configurable character encoding, and a typed command/response
// algebra that round-trips to and from that wire format.
package ircmsg

import "errors"

// Line codec errors.
var (
	// ErrMaxLineLengthExceeded is returned when a line grows past MaxLength
	// without a terminator being found, or when an encoded line would
	// exceed MaxLength on the wire.
	ErrMaxLineLengthExceeded = errors.New("ircmsg: max line length exceeded")
	// ErrInvalidEncoding is returned by NewLineCodec when the requested
	// WHATWG encoding label cannot be resolved.
	ErrInvalidEncoding = errors.New("ircmsg: invalid encoding label")
)

// Parse errors.
var (
	ErrEmptyMessage         = errors.New("ircmsg: empty message")
	ErrInvalidCommand       = errors.New("ircmsg: invalid command")
	ErrInvalidArgumentCount = errors.New("ircmsg: invalid argument count")
	ErrMissingCRLF          = errors.New("ircmsg: message missing CRLF terminator")
)

// InvalidMessageError wraps a parse or decode failure with the line that
// caused it.
type InvalidMessageError struct {
	Line  string
	Cause error
}

func (e *InvalidMessageError) Error() string {
	return "ircmsg: invalid message " + quoteForError(e.Line) + ": " + e.Cause.Error()
}

func (e *InvalidMessageError) Unwrap() error { return e.Cause }

// ArgumentCountError reports that verb was recognized but supplied the
// wrong number of parameters, carrying verb so a caller can reply with
// ErrNeedMoreParams{Verb: verb} instead of only knowing the error class.
type ArgumentCountError struct {
	Verb string
}

func (e *ArgumentCountError) Error() string {
	return "ircmsg: " + e.Verb + ": invalid argument count"
}

// Is reports ArgumentCountError as equivalent to ErrInvalidArgumentCount
// for errors.Is callers that only care about the error class.
func (e *ArgumentCountError) Is(target error) bool {
	return target == ErrInvalidArgumentCount
}

// IsRecoverable reports whether err is a Parse-class failure — a single
// malformed line that should be discarded with a reply while the
// connection continues — as opposed to a Codec-class failure (line too
// long, undecodable framing, a transport I/O error) that must close the
// connection because the byte stream itself can no longer be trusted.
func IsRecoverable(err error) bool {
	return errors.Is(err, ErrEmptyMessage) ||
		errors.Is(err, ErrInvalidCommand) ||
		errors.Is(err, ErrInvalidArgumentCount)
}

func quoteForError(s string) string {
	if len(s) > 80 {
		s = s[:80] + "..."
	}
	return "\"" + s + "\""
}
