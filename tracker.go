package ripple

import (
	"github.com/outofforest/ripple/wire"
)

// TargetState is the lifecycle state of a single target of a tracked send.
type TargetState int

// Target states.
const (
	// TargetPending means the target has not responded yet.
	TargetPending TargetState = iota

	// TargetAcked means the target responded.
	TargetAcked

	// TargetFailed means the target disconnected or was cancelled before
	// responding.
	TargetFailed
)

// Outcome is the result recorded for one target.
type Outcome struct {
	State    TargetState
	Response any
}

// Result maps every target of a completed send to its outcome.
type Result map[wire.PeerID]Outcome

// CompletionHandler is invoked exactly once, when the last target of a
// tracked send reaches a terminal state.
type CompletionHandler func(id wire.CorrelationID, result Result)

type pendingAck struct {
	targets   Result
	remaining int
	handler   CompletionHandler
}

// tracker correlates inbound acks with tracked sends and aggregates
// per-target terminal states into a single completion per send.
type tracker struct {
	pending map[wire.CorrelationID]*pendingAck
}

func newTracker() *tracker {
	return &tracker{
		pending: map[wire.CorrelationID]*pendingAck{},
	}
}

// Track starts tracking a send towards the given targets. With no targets
// the handler fires synchronously with an empty result instead of staying
// pending forever.
func (t *tracker) Track(id wire.CorrelationID, targets []wire.PeerID, handler CompletionHandler) {
	entry := &pendingAck{
		targets:   make(Result, len(targets)),
		remaining: len(targets),
		handler:   handler,
	}
	for _, peerID := range targets {
		entry.targets[peerID] = Outcome{State: TargetPending}
	}

	if entry.remaining == 0 {
		handler(id, entry.targets)
		return
	}

	t.pending[id] = entry
}

// Ack records a response from one target. Unknown correlation IDs and
// duplicate acks are discarded, a transport may redeliver. Reports whether
// the ack resolved a pending target.
func (t *tracker) Ack(id wire.CorrelationID, from wire.PeerID, response any) bool {
	entry, exists := t.pending[id]
	if !exists {
		return false
	}

	outcome, exists := entry.targets[from]
	if !exists || outcome.State != TargetPending {
		return false
	}

	entry.targets[from] = Outcome{State: TargetAcked, Response: response}
	entry.remaining--
	t.completeIfDone(id, entry)

	return true
}

// PeerLost fails the peer in every tracked send still awaiting it, so
// broadcasts which lose a recipient complete instead of hanging forever.
func (t *tracker) PeerLost(peerID wire.PeerID) {
	for id, entry := range t.pending {
		outcome, exists := entry.targets[peerID]
		if !exists || outcome.State != TargetPending {
			continue
		}

		entry.targets[peerID] = Outcome{State: TargetFailed}
		entry.remaining--
		t.completeIfDone(id, entry)
	}
}

// Cancel fails every target still pending and completes the send
// immediately. Cancelling an unknown or completed ID is a no-op.
func (t *tracker) Cancel(id wire.CorrelationID) {
	entry, exists := t.pending[id]
	if !exists {
		return
	}

	for peerID, outcome := range entry.targets {
		if outcome.State != TargetPending {
			continue
		}
		entry.targets[peerID] = Outcome{State: TargetFailed}
		entry.remaining--
	}

	t.completeIfDone(id, entry)
}

// The entry is removed before the handler runs so a handler sending new
// messages can never complete the same entry twice.
func (t *tracker) completeIfDone(id wire.CorrelationID, entry *pendingAck) {
	if entry.remaining > 0 {
		return
	}

	delete(t.pending, id)
	entry.handler(id, entry.targets)
}
