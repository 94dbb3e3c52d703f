package ircmsg

import "strings"

// MaxParams is the middle-parameter cap per RFC 2812 §2.3.1; the 15th and
// later tokens fold into the trailing parameter instead of being
// discarded.
const MaxParams = 14

// Message is a single IRC line: an optional source Prefix plus either a
// Command or a Response. Responses are emit-only (see response.go) so
// ParseMessage never produces one.
//
// Grounded on original_source/proto/src/message.rs's Message struct,
// generalized from its fixed MessageContents enum to an interface{} that
// holds either Command or Response, since Go has no sum type.
type Message struct {
	Prefix   *Prefix
	Contents interface{} // Command or Response
}

// NewCommandMessage wraps cmd, optionally prefixed, into a Message.
func NewCommandMessage(prefix *Prefix, cmd Command) *Message {
	return &Message{Prefix: prefix, Contents: cmd}
}

// NewResponseMessage wraps r, optionally prefixed, into a Message.
func NewResponseMessage(prefix *Prefix, r Response) *Message {
	return &Message{Prefix: prefix, Contents: r}
}

// ParseMessage parses a single wire line (without its \r\n terminator)
// into a Message, per the algorithm in command.go's ParseCommand and the
// prefix/trailing-parameter splitting described alongside it.
func ParseMessage(line string) (*Message, error) {
	if line == "" {
		return nil, ErrEmptyMessage
	}

	var prefix *Prefix
	rest := line
	if rest[0] == ':' {
		sp := strings.IndexByte(rest, ' ')
		if sp < 0 {
			return nil, ErrInvalidCommand
		}
		prefix = ParsePrefix(rest[1:sp])
		rest = rest[sp+1:]
	}

	head := rest
	var trailing string
	hasTrailing := false
	if idx := strings.Index(rest, " :"); idx >= 0 {
		head = rest[:idx]
		trailing = rest[idx+2:]
		hasTrailing = true
	}

	tokens := make([]string, 0, 8)
	for _, tok := range strings.Split(head, " ") {
		if tok == "" {
			continue
		}
		tokens = append(tokens, tok)
	}
	if len(tokens) == 0 {
		if hasTrailing {
			return nil, ErrInvalidCommand
		}
		return nil, ErrEmptyMessage
	}

	verb := strings.ToUpper(tokens[0])
	params := tokens[1:]
	if len(params) > MaxParams {
		extra := strings.Join(params[MaxParams:], " ")
		if hasTrailing {
			trailing = extra + " " + trailing
		} else {
			trailing = extra
			hasTrailing = true
		}
		params = params[:MaxParams]
	}
	if hasTrailing {
		params = append(append([]string{}, params...), trailing)
	}

	cmd, err := ParseCommand(verb, params)
	if err != nil {
		if err == ErrInvalidArgumentCount {
			return nil, &ArgumentCountError{Verb: verb}
		}
		return nil, err
	}
	return &Message{Prefix: prefix, Contents: cmd}, nil
}

// Serialize renders the Message to its wire form, including the trailing
// \r\n. It fails with ErrMaxLineLengthExceeded if the result would exceed
// 512 bytes including the terminator.
func (m *Message) Serialize() (string, error) {
	var b strings.Builder
	if m.Prefix != nil {
		b.WriteByte(':')
		b.WriteString(m.Prefix.String())
		b.WriteByte(' ')
	}

	switch c := m.Contents.(type) {
	case Command:
		b.WriteString(serializeCommand(c))
	case Response:
		b.WriteString(responseLine(c))
	default:
		return "", ErrInvalidCommand
	}
	b.WriteString("\r\n")

	out := b.String()
	if len(out) > DefaultMaxLineLength {
		return "", ErrMaxLineLengthExceeded
	}
	return out, nil
}

// alwaysTrailing is implemented by commands (PING, PONG) whose last
// parameter is conventionally sent colon-prefixed even when it contains
// no space, so the token reads unambiguously as trailing.
type alwaysTrailing interface {
	TrailingAlways() bool
}

// serializeCommand formats verb + params the way original_source's
// command.rs stringify/stringify_owned helpers do: middle params joined
// by spaces, then the last param emitted as the trailing parameter,
// colon-prefixed when empty, containing a space, or itself starting
// with ':'.
func serializeCommand(c Command) string {
	verb := c.Verb()
	params := c.Params()
	if len(params) == 0 {
		return verb
	}

	suffix := params[len(params)-1]
	middle := params[:len(params)-1]

	forceColon := false
	if at, ok := c.(alwaysTrailing); ok {
		forceColon = at.TrailingAlways()
	}

	var b strings.Builder
	b.WriteString(verb)
	if len(middle) > 0 {
		b.WriteByte(' ')
		b.WriteString(strings.Join(middle, " "))
	}
	b.WriteByte(' ')
	if forceColon || suffix == "" || strings.ContainsRune(suffix, ' ') || strings.HasPrefix(suffix, ":") {
		b.WriteByte(':')
	}
	b.WriteString(suffix)
	return b.String()
}
