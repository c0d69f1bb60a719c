package wire

import (
	"errors"
	"fmt"
)

// ErrPeerRejected is returned by Decode when the peer initializer declines
// to build a peer for a well-formed record.
var ErrPeerRejected = errors.New("peer rejected")

// DecodeError reports malformed wire bytes. A decode that fails never
// returns a partially populated value.
type DecodeError struct {
	Reason string
	Err    error
}

func (e DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("decode error: %s: %v", e.Reason, e.Err)
	}
	return "decode error: " + e.Reason
}

func (e DecodeError) Unwrap() error { return e.Err }

// HostResolutionError reports address bytes that do not form an IPv4 or
// IPv6 address.
type HostResolutionError struct {
	Address []byte
}

func (e HostResolutionError) Error() string {
	return fmt.Sprintf("invalid address of %d bytes (%X)", len(e.Address), e.Address)
}

func decodeErr(reason string, err error) error {
	return DecodeError{Reason: reason, Err: err}
}
