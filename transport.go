package ripple

import "github.com/outofforest/ripple/wire"

// EventKind discriminates transport events.
type EventKind int

// Transport event kinds.
const (
	// EventPeerUp reports a peer which completed its connection.
	EventPeerUp EventKind = iota

	// EventPeerDown reports a peer which disconnected.
	EventPeerDown

	// EventFrame reports a delivered frame.
	EventFrame
)

// Event is one connectivity edge or delivered frame reported by the
// transport.
type Event struct {
	Kind EventKind
	Peer wire.PeerID

	// Frame is set for EventFrame only.
	Frame *wire.Frame
}

// Transport moves opaque frames between connected peers. It does not
// guarantee delivery and it never interprets payloads.
//
// Poll returns the events accumulated since the previous call without
// blocking. Send queues one frame for delivery and sets its routing fields;
// the frame must not be reused by the caller afterwards.
type Transport interface {
	Poll() []Event
	Send(to wire.PeerID, frame *wire.Frame) error
}
