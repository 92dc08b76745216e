package relay

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/outofforest/logger"
	"github.com/outofforest/parallel"
	"github.com/outofforest/resonance"
	"github.com/outofforest/ripple"
	"github.com/outofforest/ripple/wire"
)

// LinkConfig defines link configuration.
type LinkConfig struct {
	Relay          string
	MaxMessageSize uint64
}

// Link connects one node to a relay server and adapts the connection to the
// transport contract of the core: peers announced by the relay surface as
// peer up/down events and forwarded frames surface as frame events, all
// consumed through Poll.
type Link struct {
	config LinkConfig
	id     wire.PeerID

	eventCh chan ripple.Event
	sendCh  chan *wire.Frame

	mu    sync.Mutex
	peers map[wire.PeerID]struct{}
}

// NewLink creates a link with a fresh peer identity.
func NewLink(config LinkConfig) (*Link, error) {
	id, err := peerID()
	if err != nil {
		return nil, err
	}

	return &Link{
		config:  config,
		id:      id,
		eventCh: make(chan ripple.Event, 100),
		sendCh:  make(chan *wire.Frame, 100),
		peers:   map[wire.PeerID]struct{}{},
	}, nil
}

// PeerID returns the identity this link presents to the relay.
func (l *Link) PeerID() wire.PeerID {
	return l.id
}

// Run keeps the link connected to the relay, reconnecting with backoff.
// When the connection drops, every announced peer is reported down, since
// nothing can reach it until the relay knows us again.
func (l *Link) Run(ctx context.Context) error {
	log := logger.Get(ctx)
	connConfig := resonance.Config{
		MaxMessageSize: l.config.MaxMessageSize,
	}

	for {
		err := resonance.RunClient(ctx, l.config.Relay, connConfig,
			func(ctx context.Context, c *resonance.Connection) error {
				return l.runConn(ctx, c)
			})

		l.dropPeers()

		if ctx.Err() != nil {
			return errors.WithStack(ctx.Err())
		}

		log.Error("Relay connection failed",
			zap.String("relay", l.config.Relay), zap.Error(err))
		select {
		case <-ctx.Done():
			return errors.WithStack(ctx.Err())
		case <-time.After(time.Second):
		}
	}
}

// Poll implements ripple.Transport. It returns the events accumulated since
// the previous call without blocking.
func (l *Link) Poll() []ripple.Event {
	var events []ripple.Event
	for {
		select {
		case event := <-l.eventCh:
			events = append(events, event)
		default:
			return events
		}
	}
}

// Send implements ripple.Transport. The frame is queued for delivery
// through the relay; delivery is not guaranteed.
func (l *Link) Send(to wire.PeerID, frame *wire.Frame) error {
	frame.From = l.id
	frame.To = to

	select {
	case l.sendCh <- frame:
		return nil
	default:
		return errors.New("link send queue is full")
	}
}

func (l *Link) runConn(ctx context.Context, c *resonance.Connection) error {
	m := wire.NewMarshaller()

	if err := c.SendProton(&wire.Hello{
		PeerID: l.id,
	}, m); err != nil {
		return err
	}

	msg, err := c.ReceiveProton(m)
	if err != nil {
		return err
	}

	if _, ok := msg.(*wire.Hello); !ok {
		return errors.New("hello message expected")
	}

	return parallel.Run(ctx, func(ctx context.Context, spawn parallel.SpawnFn) error {
		spawn("receiver", parallel.Fail, func(ctx context.Context) error {
			for {
				msg, err := c.ReceiveProton(m)
				if err != nil {
					return err
				}

				switch msg2 := msg.(type) {
				case *wire.Joined:
					l.addPeer(msg2.PeerID)
				case *wire.Left:
					l.removePeer(msg2.PeerID)
				case *wire.Frame:
					l.eventCh <- ripple.Event{
						Kind:  ripple.EventFrame,
						Peer:  msg2.From,
						Frame: msg2,
					}
				default:
					return errors.Errorf("unexpected message type %T", msg)
				}
			}
		})
		spawn("sender", parallel.Fail, func(ctx context.Context) error {
			defer c.Close()

			for {
				select {
				case <-ctx.Done():
					return errors.WithStack(ctx.Err())
				case frame := <-l.sendCh:
					if err := c.SendProton(frame, m); err != nil {
						return err
					}
				}
			}
		})

		return nil
	})
}

func (l *Link) addPeer(peerID wire.PeerID) {
	l.mu.Lock()
	defer l.mu.Unlock()

	// The relay repeats announcements after its own reconnects.
	if _, exists := l.peers[peerID]; exists {
		return
	}

	l.peers[peerID] = struct{}{}
	l.eventCh <- ripple.Event{Kind: ripple.EventPeerUp, Peer: peerID}
}

func (l *Link) removePeer(peerID wire.PeerID) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, exists := l.peers[peerID]; !exists {
		return
	}

	delete(l.peers, peerID)
	l.eventCh <- ripple.Event{Kind: ripple.EventPeerDown, Peer: peerID}
}

func (l *Link) dropPeers() {
	l.mu.Lock()
	defer l.mu.Unlock()

	for peerID := range l.peers {
		delete(l.peers, peerID)
		l.eventCh <- ripple.Event{Kind: ripple.EventPeerDown, Peer: peerID}
	}
}
