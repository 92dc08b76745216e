package wire

import "encoding/hex"

type (
	// PeerID identifies a peer for the lifetime of its connection.
	PeerID [32]byte

	// CorrelationID identifies one logical send. It is unique within the
	// dispatch queue that assigned it and is never reused while any
	// tracking entry still references it.
	CorrelationID uint64

	// Kind tags a frame as application data or as an ack/response.
	Kind uint64
)

// Frame kinds.
const (
	// KindData carries an application payload.
	KindData Kind = iota

	// KindAck carries a response correlated to an earlier data frame.
	KindAck
)

// String implements fmt.Stringer.
func (p PeerID) String() string {
	return hex.EncodeToString(p[:])
}

// Hello is the message exchanged between a link and a relay when connecting.
type Hello struct {
	PeerID  PeerID
	IsRelay bool
}

// Joined announces a peer which became reachable through the relay.
type Joined struct {
	PeerID PeerID
}

// Left announces a peer which is no longer reachable through the relay.
type Left struct {
	PeerID PeerID
}

// Frame is one routed message. Ack frames carry the correlation ID of the
// data frame being acknowledged, not a fresh one.
type Frame struct {
	From          PeerID
	To            PeerID
	CorrelationID CorrelationID
	Kind          Kind
	MustAck       bool
	Payload       []byte
}
