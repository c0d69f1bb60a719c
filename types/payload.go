package types

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// PayloadType identifies the kind of an application message exchanged
// between peers.
type PayloadType uint8

const (
	PayloadTypeUnknown PayloadType = iota
	PayloadTypeBlock
	PayloadTypeNetworkState
	PayloadTypePing
	PayloadTypePong
	PayloadTypeLinkNetwork
)

var payloadTypeNames = map[PayloadType]string{
	PayloadTypeBlock:        "BLOCK",
	PayloadTypeNetworkState: "NETWORK_STATE",
	PayloadTypePing:         "PING",
	PayloadTypePong:         "PONG",
	PayloadTypeLinkNetwork:  "LINK_NETWORK",
}

// PayloadTypes returns every routable payload type.
func PayloadTypes() []PayloadType {
	return []PayloadType{
		PayloadTypeBlock,
		PayloadTypeNetworkState,
		PayloadTypePing,
		PayloadTypePong,
		PayloadTypeLinkNetwork,
	}
}

func (t PayloadType) String() string {
	if name, ok := payloadTypeNames[t]; ok {
		return name
	}
	return "UNKNOWN(" + strconv.Itoa(int(t)) + ")"
}

// ParsePayloadType returns the payload type for its wire tag.
func ParsePayloadType(tag string) (PayloadType, bool) {
	for t, name := range payloadTypeNames {
		if name == tag {
			return t, true
		}
	}
	return PayloadTypeUnknown, false
}

// PartsSeparator separates the tokens of a message.
const PartsSeparator = " "

// ErrEmptyMessage is returned when parsing a message without tokens.
var ErrEmptyMessage = errors.New("empty message")

// Message is an application message split into tokens. Parts[0] is the
// type tag; the remaining tokens are handler specific.
type Message struct {
	Type  PayloadType
	Parts []string
}

// NewMessage builds a message of type t with the given arguments.
func NewMessage(t PayloadType, args ...string) Message {
	parts := make([]string, 0, len(args)+1)
	parts = append(parts, t.String())
	parts = append(parts, args...)
	return Message{Type: t, Parts: parts}
}

// ParseMessage splits a raw message into its tokens. A message whose tag
// is not a known payload type parses successfully with PayloadTypeUnknown so
// that the dispatcher can report it.
func ParseMessage(raw string) (Message, error) {
	raw = strings.TrimRight(raw, "\r\n")
	if strings.TrimSpace(raw) == "" {
		return Message{}, ErrEmptyMessage
	}

	parts := strings.Split(raw, PartsSeparator)
	t, _ := ParsePayloadType(parts[0])
	return Message{Type: t, Parts: parts}, nil
}

// Tag returns the raw type token.
func (m Message) Tag() string {
	if len(m.Parts) == 0 {
		return ""
	}
	return m.Parts[0]
}

// Arg returns token i (1-based, the tag being token 0).
func (m Message) Arg(i int) (string, error) {
	if i <= 0 || i >= len(m.Parts) {
		return "", fmt.Errorf("%s message: missing token %d", m.Tag(), i)
	}
	return m.Parts[i], nil
}

func (m Message) String() string {
	return strings.Join(m.Parts, PartsSeparator)
}
