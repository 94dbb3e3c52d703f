package ircmsg

import (
	"strings"
)

// Command is a parsed IRC verb with its parameters. Concrete types satisfy
// Command by reporting their wire verb and an ordered parameter list; the
// last parameter is treated as the trailing (colon-prefixable) parameter
// during serialization — see serializeCommand in message.go.
//
// Grounded on original_source/proto/src/command.rs's Command enum, extended
// per the known-verb table with PASS, USER, QUIT and a RAW passthrough
// variant for verbs the table doesn't recognize.
type Command interface {
	Verb() string
	Params() []string
}

// PassCommand is the PASS registration command.
type PassCommand struct {
	Password string
}

func (c *PassCommand) Verb() string    { return "PASS" }
func (c *PassCommand) Params() []string { return []string{c.Password} }

// NickCommand sets or changes a nickname. Hopcount is empty when absent.
type NickCommand struct {
	Nickname string
	Hopcount string
}

func (c *NickCommand) Verb() string { return "NICK" }
func (c *NickCommand) Params() []string {
	if c.Hopcount == "" {
		return []string{c.Nickname}
	}
	return []string{c.Nickname, c.Hopcount}
}

// UserCommand is the final step of registration.
type UserCommand struct {
	User     string
	Host     string
	Server   string
	Realname string
}

func (c *UserCommand) Verb() string { return "USER" }
func (c *UserCommand) Params() []string {
	return []string{c.User, c.Host, c.Server, c.Realname}
}

// PingCommand requests a liveness PONG from its target. Target2 is empty
// when absent.
type PingCommand struct {
	Target  string
	Target2 string
}

func (c *PingCommand) Verb() string { return "PING" }
func (c *PingCommand) Params() []string {
	if c.Target2 == "" {
		return []string{c.Target}
	}
	return []string{c.Target, c.Target2}
}

// TrailingAlways reports that PING's last parameter is always sent
// colon-prefixed, matching real-world servers that treat the PING/PONG
// token as trailing even when it has no space to force the issue.
func (c *PingCommand) TrailingAlways() bool { return true }

// PongCommand answers a PING. Target2 is empty when absent.
type PongCommand struct {
	Source  string
	Target2 string
}

func (c *PongCommand) Verb() string { return "PONG" }
func (c *PongCommand) Params() []string {
	if c.Target2 == "" {
		return []string{c.Source}
	}
	return []string{c.Source, c.Target2}
}

// TrailingAlways reports that PONG's last parameter is always sent
// colon-prefixed; see PingCommand.TrailingAlways.
func (c *PongCommand) TrailingAlways() bool { return true }

// PrivmsgCommand sends text to a recipient, optionally cc'd to extra
// recipients folded into a comma-separated recipient list on the wire.
type PrivmsgCommand struct {
	Recipient       string
	Text            string
	ExtraRecipients []string
}

func (c *PrivmsgCommand) Verb() string { return "PRIVMSG" }
func (c *PrivmsgCommand) Params() []string {
	if len(c.ExtraRecipients) == 0 {
		return []string{c.Recipient, c.Text}
	}
	recip := c.Recipient + "," + strings.Join(c.ExtraRecipients, ",")
	return []string{recip, c.Text}
}

// NoticeCommand delivers text without triggering auto-reply, per RFC 2812.
type NoticeCommand struct {
	Recipient string
	Text      string
}

func (c *NoticeCommand) Verb() string    { return "NOTICE" }
func (c *NoticeCommand) Params() []string { return []string{c.Recipient, c.Text} }

// QuitCommand terminates the session. Reason is empty when absent.
type QuitCommand struct {
	Reason string
}

func (c *QuitCommand) Verb() string { return "QUIT" }
func (c *QuitCommand) Params() []string {
	if c.Reason == "" {
		return nil
	}
	return []string{c.Reason}
}

// RawCommand passes through a verb the known-verb table doesn't recognize.
type RawCommand struct {
	RawVerb string
	RawArgs []string
}

func (c *RawCommand) Verb() string     { return c.RawVerb }
func (c *RawCommand) Params() []string { return c.RawArgs }

// ParseCommand constructs a Command from an already-uppercased verb and its
// parsed parameter list. Verbs outside the known table produce a
// RawCommand; known verbs with an out-of-range parameter count fail with
// ErrInvalidArgumentCount.
func ParseCommand(verb string, args []string) (Command, error) {
	switch verb {
	case "PASS":
		if len(args) != 1 {
			return nil, ErrInvalidArgumentCount
		}
		return &PassCommand{Password: args[0]}, nil

	case "NICK":
		switch len(args) {
		case 1:
			return &NickCommand{Nickname: args[0]}, nil
		case 2:
			return &NickCommand{Nickname: args[0], Hopcount: args[1]}, nil
		default:
			return nil, ErrInvalidArgumentCount
		}

	case "USER":
		if len(args) != 4 {
			return nil, ErrInvalidArgumentCount
		}
		return &UserCommand{User: args[0], Host: args[1], Server: args[2], Realname: args[3]}, nil

	case "PING":
		switch len(args) {
		case 1:
			return &PingCommand{Target: args[0]}, nil
		case 2:
			return &PingCommand{Target: args[0], Target2: args[1]}, nil
		default:
			return nil, ErrInvalidArgumentCount
		}

	case "PONG":
		switch len(args) {
		case 1:
			return &PongCommand{Source: args[0]}, nil
		case 2:
			return &PongCommand{Source: args[0], Target2: args[1]}, nil
		default:
			return nil, ErrInvalidArgumentCount
		}

	case "PRIVMSG":
		if len(args) != 2 {
			return nil, ErrInvalidArgumentCount
		}
		recip, text := args[0], args[1]
		if strings.Contains(recip, ",") {
			parts := strings.Split(recip, ",")
			return &PrivmsgCommand{Recipient: parts[0], Text: text, ExtraRecipients: parts[1:]}, nil
		}
		return &PrivmsgCommand{Recipient: recip, Text: text}, nil

	case "NOTICE":
		// The arity check here must accept exactly 2 args, not reject them.
		if len(args) != 2 {
			return nil, ErrInvalidArgumentCount
		}
		return &NoticeCommand{Recipient: args[0], Text: args[1]}, nil

	case "QUIT":
		switch len(args) {
		case 0:
			return &QuitCommand{}, nil
		case 1:
			return &QuitCommand{Reason: args[0]}, nil
		default:
			return nil, ErrInvalidArgumentCount
		}

	default:
		return &RawCommand{RawVerb: verb, RawArgs: args}, nil
	}
}
