package ripple

import (
	"context"

	"go.uber.org/zap"

	"github.com/outofforest/logger"
	"github.com/outofforest/ripple/wire"
)

// registry associates connected peers with their user records.
type registry struct {
	users map[wire.PeerID]any
}

func newRegistry() *registry {
	return &registry{
		users: map[wire.PeerID]any{},
	}
}

// Register adds a peer. Registering a peer twice is a transport contract
// violation, reported and otherwise ignored.
func (r *registry) Register(ctx context.Context, peerID wire.PeerID) bool {
	if _, exists := r.users[peerID]; exists {
		logger.Get(ctx).Error("Peer registered twice", zap.Stringer("peer", peerID))
		return false
	}

	r.users[peerID] = nil
	return true
}

// Registered tells whether the peer is currently connected.
func (r *registry) Registered(peerID wire.PeerID) bool {
	_, exists := r.users[peerID]
	return exists
}

// Attach associates a user record with a registered peer.
func (r *registry) Attach(peerID wire.PeerID, user any) {
	if _, exists := r.users[peerID]; !exists {
		return
	}
	r.users[peerID] = user
}

// Unregister forgets a peer and its user record.
func (r *registry) Unregister(peerID wire.PeerID) {
	delete(r.users, peerID)
}

// User returns the user record attached to a connected peer.
func (r *registry) User(peerID wire.PeerID) (any, bool) {
	user, exists := r.users[peerID]
	return user, exists
}

// Peers returns a snapshot of the connected peers, not a live view.
func (r *registry) Peers() []wire.PeerID {
	peers := make([]wire.PeerID, 0, len(r.users))
	for peerID := range r.users {
		peers = append(peers, peerID)
	}
	return peers
}
