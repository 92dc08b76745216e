package ripple

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/outofforest/logger"
	"github.com/outofforest/ripple/codec"
	"github.com/outofforest/ripple/wire"
)

// Config configures a node.
type Config struct {
	App       App
	Codec     codec.Codec
	Transport Transport
}

// Node owns the message loop of one peer: it keeps the peer registry
// current, correlates acks with sends and runs application logic. All state
// lives on the goroutine calling Tick; nothing here blocks.
type Node struct {
	config   Config
	registry *registry
	tracker  *tracker
	queue    *queue
}

// NewNode creates a node.
func NewNode(config Config) *Node {
	r := newRegistry()
	t := newTracker()

	return &Node{
		config:   config,
		registry: r,
		tracker:  t,
		queue:    newQueue(config.Codec, config.Transport, t, r),
	}
}

// Send hands a message to the dispatch queue. The returned correlation ID
// identifies the send until its completion and may be passed to Cancel.
func (n *Node) Send(ctx context.Context, msg *Message) (wire.CorrelationID, error) {
	return n.queue.Send(ctx, msg)
}

// Cancel fails every target of a tracked send still awaiting a response and
// fires its completion handler immediately. Cancelling an unknown or
// completed ID is a no-op.
func (n *Node) Cancel(id wire.CorrelationID) {
	n.tracker.Cancel(id)
}

// User returns the user record attached to a connected peer.
func (n *Node) User(peerID wire.PeerID) (any, bool) {
	return n.registry.User(peerID)
}

// Peers returns a snapshot of the currently connected peers.
func (n *Node) Peers() []wire.PeerID {
	return n.registry.Peers()
}

// Tick runs one loop iteration: every transport event available right now
// is processed, then application logic runs. Completion handlers fire
// synchronously within the iteration that completes them.
func (n *Node) Tick(ctx context.Context, dt time.Duration) {
	for _, event := range n.config.Transport.Poll() {
		switch event.Kind {
		case EventPeerUp:
			n.peerUp(ctx, event.Peer)
		case EventPeerDown:
			n.peerDown(ctx, event.Peer)
		case EventFrame:
			n.queue.RouteInbound(ctx, n.config.App, event.Peer, event.Frame)
		}
	}

	n.config.App.Tick(ctx, dt)
}

func (n *Node) peerUp(ctx context.Context, peerID wire.PeerID) {
	if !n.registry.Register(ctx, peerID) {
		return
	}

	n.registry.Attach(peerID, n.config.App.Connected(ctx, peerID))
	logger.Get(ctx).Info("Peer connected", zap.Stringer("peer", peerID))
}

func (n *Node) peerDown(ctx context.Context, peerID wire.PeerID) {
	if !n.registry.Registered(peerID) {
		logger.Get(ctx).Error("Disconnect reported for unknown peer",
			zap.Stringer("peer", peerID))
		return
	}

	// Pending targets must fail before the registry forgets the peer, and
	// the app hook runs while the user record is still attached.
	n.queue.PeerLost(peerID)
	n.config.App.Disconnected(ctx, peerID)

	// Sends issued from the hook or from completion handlers snapshotted the
	// peer while it was still registered; fail it in those entries too.
	n.queue.PeerLost(peerID)
	n.registry.Unregister(peerID)

	logger.Get(ctx).Info("Peer disconnected", zap.Stringer("peer", peerID))
}
