package ripple

import (
	"context"

	"go.uber.org/zap"

	"github.com/outofforest/logger"
	"github.com/outofforest/ripple/codec"
	"github.com/outofforest/ripple/wire"
)

// queue assigns identity to outbound messages, hands frames to the
// transport and routes inbound frames back to the tracker or the app.
type queue struct {
	codec     codec.Codec
	transport Transport
	tracker   *tracker
	registry  *registry

	nextID wire.CorrelationID
}

func newQueue(c codec.Codec, transport Transport, tracker *tracker, registry *registry) *queue {
	return &queue{
		codec:     c,
		transport: transport,
		tracker:   tracker,
		registry:  registry,
	}
}

// Send assigns a fresh correlation ID, snapshots the target set and hands
// one frame per target to the transport. Tracking is registered before the
// first frame leaves, so even a synchronous loopback ack finds its entry.
func (q *queue) Send(ctx context.Context, msg *Message) (wire.CorrelationID, error) {
	payload, err := q.codec.Marshal(msg.payload)
	if err != nil {
		return 0, err
	}

	id := q.nextID
	q.nextID++

	var targets []wire.PeerID
	if msg.to != nil {
		targets = []wire.PeerID{*msg.to}
	} else {
		targets = q.registry.Peers()
	}

	if msg.completion != nil {
		q.tracker.Track(id, targets, msg.completion)
	}

	log := logger.Get(ctx)
	for _, peerID := range targets {
		frame := &wire.Frame{
			CorrelationID: id,
			Kind:          wire.KindData,
			MustAck:       msg.completion != nil,
			Payload:       payload,
		}
		if err := q.transport.Send(peerID, frame); err != nil {
			// Not fatal: if the peer is truly gone the transport reports it
			// and the tracker fails the target.
			log.Warn("Frame not handed to transport",
				zap.Stringer("peer", peerID), zap.Error(err))
		}
	}

	return id, nil
}

// PeerLost fails the peer in every tracked send still awaiting it.
func (q *queue) PeerLost(peerID wire.PeerID) {
	q.tracker.PeerLost(peerID)
}

// RouteInbound demultiplexes one delivered frame: acks go to the tracker,
// data goes to the app's receive hook, and data which obliges a response is
// acked back automatically.
func (q *queue) RouteInbound(ctx context.Context, app App, from wire.PeerID, frame *wire.Frame) {
	log := logger.Get(ctx)

	switch frame.Kind {
	case wire.KindAck:
		var response any
		if len(frame.Payload) > 0 {
			msg, err := q.codec.Unmarshal(frame.Payload)
			if err != nil {
				// The target did respond, so it still counts as acked.
				log.Warn("Undecodable ack response",
					zap.Stringer("peer", from), zap.Error(err))
			} else {
				response = msg
			}
		}
		if !q.tracker.Ack(frame.CorrelationID, from, response) {
			log.Debug("Unknown or duplicate ack discarded",
				zap.Stringer("peer", from),
				zap.Uint64("correlationID", uint64(frame.CorrelationID)))
		}

	case wire.KindData:
		msg, err := q.codec.Unmarshal(frame.Payload)
		if err != nil {
			app.ReceiveFailed(ctx, from, err)
			return
		}

		response := app.Receive(ctx, from, msg)
		if !frame.MustAck {
			return
		}

		var payload []byte
		if response != nil {
			payload, err = q.codec.Marshal(response)
			if err != nil {
				log.Error("Response not encodable, acking with empty payload",
					zap.Stringer("peer", from), zap.Error(err))
				payload = nil
			}
		}

		ack := &wire.Frame{
			CorrelationID: frame.CorrelationID,
			Kind:          wire.KindAck,
			Payload:       payload,
		}
		if err := q.transport.Send(from, ack); err != nil {
			log.Warn("Ack not handed to transport",
				zap.Stringer("peer", from), zap.Error(err))
		}

	default:
		log.Error("Frame of unknown kind discarded",
			zap.Stringer("peer", from), zap.Uint64("kind", uint64(frame.Kind)))
	}
}
