package ripple

import (
	"context"
	"time"

	"github.com/outofforest/ripple/wire"
)

// App is the capability set application code implements to take part in the
// message loop. The node calls every hook from the goroutine driving Tick,
// so implementations need no locking as long as they mutate their state
// only from these hooks. The context is the one passed to Node.Tick.
type App interface {
	// Connected is called when a peer finished connecting. The returned
	// value is attached to the peer as its user record for the lifetime of
	// the connection and may be nil.
	Connected(ctx context.Context, peerID wire.PeerID) any

	// Disconnected is called when a peer disconnects, before the node
	// forgets the peer and its user record.
	Disconnected(ctx context.Context, peerID wire.PeerID)

	// Receive handles a decoded payload from a peer. If the sender awaits
	// responses, the returned value is encoded and delivered back to it as
	// part of the sender's completion result; returning nil responds with
	// an empty payload. For other payloads the returned value is ignored.
	Receive(ctx context.Context, from wire.PeerID, msg any) any

	// ReceiveFailed reports a payload which could not be decoded. Other
	// in-flight messages are not affected.
	ReceiveFailed(ctx context.Context, from wire.PeerID, err error)

	// Tick runs application logic once per loop iteration, after all
	// pending transport events have been processed.
	Tick(ctx context.Context, dt time.Duration)
}
