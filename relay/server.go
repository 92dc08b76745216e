package relay

import (
	"context"
	"net"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/outofforest/logger"
	"github.com/outofforest/parallel"
	"github.com/outofforest/resonance"
	"github.com/outofforest/ripple/wire"
)

type chans struct {
	Sender   chan<- any
	Receiver <-chan any
}

type serverConns struct {
	mu    sync.RWMutex
	conns map[wire.PeerID]chans
}

func newServerConns() *serverConns {
	return &serverConns{
		conns: map[wire.PeerID]chans{},
	}
}

// All sends happen under the mutex, so a peer with a full queue must never
// block them; its frames are dropped instead.
func trySend(ch chan<- any, msg any) bool {
	select {
	case ch <- msg:
		return true
	default:
		return false
	}
}

func (c *serverConns) Add(peerID wire.PeerID) <-chan any {
	ch := make(chan any, 100)

	c.mu.Lock()
	defer c.mu.Unlock()

	if old, ok := c.conns[peerID]; ok {
		close(old.Sender)
		delete(c.conns, peerID)
	}

	for id, conn := range c.conns {
		trySend(conn.Sender, &wire.Joined{PeerID: peerID})
		trySend(ch, &wire.Joined{PeerID: id})
	}

	c.conns[peerID] = chans{Sender: ch, Receiver: ch}

	return ch
}

func (c *serverConns) Remove(peerID wire.PeerID, ch <-chan any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if chs, exists := c.conns[peerID]; exists && chs.Receiver == ch {
		delete(c.conns, peerID)
		close(chs.Sender)

		for _, conn := range c.conns {
			trySend(conn.Sender, &wire.Left{PeerID: peerID})
		}
	}
}

func (c *serverConns) Forward(from wire.PeerID, frame *wire.Frame) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	conn, exists := c.conns[frame.To]
	if !exists {
		return false
	}

	frame.From = from
	return trySend(conn.Sender, frame)
}

// ServerConfig defines server configuration.
type ServerConfig struct {
	MaxMessageSize uint64
}

// RunServer runs a relay server. It announces peers to each other and
// forwards frames between them without interpreting payloads.
func RunServer(ctx context.Context, ls net.Listener, config ServerConfig) error {
	relayID, err := peerID()
	if err != nil {
		return err
	}

	conns := newServerConns()
	connConfig := resonance.Config{
		MaxMessageSize: config.MaxMessageSize,
	}

	return resonance.RunServer(ctx, ls, connConfig,
		func(ctx context.Context, c *resonance.Connection) error {
			return runServerConn(ctx, relayID, c, conns)
		})
}

func runServerConn(
	ctx context.Context,
	relayID wire.PeerID,
	c *resonance.Connection,
	conns *serverConns,
) error {
	m := wire.NewMarshaller()

	if err := c.SendProton(&wire.Hello{
		PeerID:  relayID,
		IsRelay: true,
	}, m); err != nil {
		return err
	}

	msg, err := c.ReceiveProton(m)
	if err != nil {
		return err
	}

	helloMsg, ok := msg.(*wire.Hello)
	if !ok {
		return errors.New("hello message expected")
	}

	sendCh := conns.Add(helloMsg.PeerID)

	return parallel.Run(ctx, func(ctx context.Context, spawn parallel.SpawnFn) error {
		spawn("receiver", parallel.Fail, func(ctx context.Context) error {
			defer conns.Remove(helloMsg.PeerID, sendCh)

			log := logger.Get(ctx)

			for {
				msg, err := c.ReceiveProton(m)
				if err != nil {
					return err
				}

				frame, ok := msg.(*wire.Frame)
				if !ok {
					return errors.New("frame message expected")
				}

				if !conns.Forward(helloMsg.PeerID, frame) {
					log.Debug("Frame dropped", zap.Stringer("peer", frame.To))
				}
			}
		})
		spawn("sender", parallel.Fail, func(ctx context.Context) error {
			defer func() {
				for range sendCh {
				}
			}()
			defer c.Close()

			for msg := range sendCh {
				if err := c.SendProton(msg, m); err != nil {
					return err
				}
			}

			return nil
		})

		return nil
	})
}
