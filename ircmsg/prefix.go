package ircmsg

import "strings"

// Prefix identifies the source of a Message: either a server host or a
// user's nick!user@host triple. Only Nick is guaranteed present on a
// User-shaped prefix; User and Host are optional components.
//
// Grounded on original_source's Prefix handling folded into message.rs:
// the three-shape heuristic (bang-split, dot-as-server, bare nick) is
// preserved verbatim; this type just gives the shapes a name.
type Prefix struct {
	Server string // set when the prefix names a server host
	Nick   string // set when the prefix names a user
	User   string
	Host   string
}

// IsServer reports whether the prefix was parsed as a bare server host.
func (p *Prefix) IsServer() bool { return p.Server != "" }

// ParsePrefix parses the token following the leading ':' of a wire line
// (without the ':' itself) into a Prefix.
func ParsePrefix(raw string) *Prefix {
	if bang := strings.IndexByte(raw, '!'); bang >= 0 {
		nick := raw[:bang]
		rest := raw[bang+1:]
		if at := strings.IndexByte(rest, '@'); at >= 0 {
			return &Prefix{Nick: nick, User: rest[:at], Host: rest[at+1:]}
		}
		return &Prefix{Nick: nick, User: rest}
	}
	if strings.IndexByte(raw, '.') >= 0 {
		return &Prefix{Server: raw}
	}
	return &Prefix{Nick: raw}
}

// String serializes the prefix back to its wire form, without the
// leading ':'.
func (p *Prefix) String() string {
	if p == nil {
		return ""
	}
	if p.IsServer() {
		return p.Server
	}
	var b strings.Builder
	b.WriteString(p.Nick)
	if p.User != "" {
		b.WriteByte('!')
		b.WriteString(p.User)
	}
	if p.Host != "" {
		b.WriteByte('@')
		b.WriteString(p.Host)
	}
	return b.String()
}
