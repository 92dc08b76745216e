package relay_test

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/outofforest/parallel"
	"github.com/outofforest/qa"
	"github.com/outofforest/ripple"
	"github.com/outofforest/ripple/codec"
	"github.com/outofforest/ripple/relay"
	"github.com/outofforest/ripple/wire"
)

const (
	maxMsgSize = 1024
	tickEvery  = 10 * time.Millisecond
)

type testMsg struct {
	Text string
}

// echoApp responds to every payload obliging a response.
type echoApp struct {
	response testMsg
	recvCh   chan any
}

func (a *echoApp) Connected(_ context.Context, _ wire.PeerID) any { return nil }
func (a *echoApp) Disconnected(_ context.Context, _ wire.PeerID) {}

func (a *echoApp) Receive(_ context.Context, _ wire.PeerID, msg any) any {
	select {
	case a.recvCh <- msg:
	default:
	}
	return a.response
}

func (a *echoApp) ReceiveFailed(_ context.Context, _ wire.PeerID, _ error) {}
func (a *echoApp) Tick(_ context.Context, _ time.Duration) {}

// senderApp pings every peer it sees and reports completions.
type senderApp struct {
	node     *ripple.Node
	resultCh chan ripple.Result
}

func (a *senderApp) Connected(ctx context.Context, peerID wire.PeerID) any {
	_, _ = a.node.Send(ctx, ripple.NewMessage(testMsg{Text: "ping"}).
		To(peerID).
		WithCompletion(func(_ wire.CorrelationID, result ripple.Result) {
			a.resultCh <- result
		}))
	return nil
}

func (a *senderApp) Disconnected(_ context.Context, _ wire.PeerID) {}
func (a *senderApp) Receive(_ context.Context, _ wire.PeerID, _ any) any { return nil }
func (a *senderApp) ReceiveFailed(_ context.Context, _ wire.PeerID, _ error) {}
func (a *senderApp) Tick(_ context.Context, _ time.Duration) {}

// broadcastApp waits until enough peers are visible, then broadcasts once.
type broadcastApp struct {
	node        *ripple.Node
	peersWanted int
	sent        bool
	sentCh      chan struct{}
	resultCh    chan ripple.Result
}

func (a *broadcastApp) Connected(_ context.Context, _ wire.PeerID) any { return nil }
func (a *broadcastApp) Disconnected(_ context.Context, _ wire.PeerID) {}
func (a *broadcastApp) Receive(_ context.Context, _ wire.PeerID, _ any) any { return nil }
func (a *broadcastApp) ReceiveFailed(_ context.Context, _ wire.PeerID, _ error) {}

func (a *broadcastApp) Tick(ctx context.Context, _ time.Duration) {
	if a.sent || len(a.node.Peers()) < a.peersWanted {
		return
	}
	a.sent = true

	_, _ = a.node.Send(ctx, ripple.NewMessage(testMsg{Text: "ping"}).
		WithCompletion(func(_ wire.CorrelationID, result ripple.Result) {
			a.resultCh <- result
		}))
	close(a.sentCh)
}

// idleApp never ticks its node, so it never acks anything.
type idleApp struct{}

func (idleApp) Connected(_ context.Context, _ wire.PeerID) any { return nil }
func (idleApp) Disconnected(_ context.Context, _ wire.PeerID) {}
func (idleApp) Receive(_ context.Context, _ wire.PeerID, _ any) any { return nil }
func (idleApp) ReceiveFailed(_ context.Context, _ wire.PeerID, _ error) {}
func (idleApp) Tick(_ context.Context, _ time.Duration) {}

func tickLoop(node *ripple.Node) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		for {
			select {
			case <-ctx.Done():
				return errors.WithStack(ctx.Err())
			case <-time.After(tickEvery):
			}
			node.Tick(ctx, tickEvery)
		}
	}
}

func newNode(t *testing.T, app ripple.App, relayAddr string) (*ripple.Node, *relay.Link) {
	c, err := codec.NewCBOR[testMsg]()
	require.NoError(t, err)

	link, err := relay.NewLink(relay.LinkConfig{
		Relay:          relayAddr,
		MaxMessageSize: maxMsgSize,
	})
	require.NoError(t, err)

	return ripple.NewNode(ripple.Config{
		App:       app,
		Codec:     c,
		Transport: link,
	}), link
}

func awaitResult(
	ctx context.Context,
	requireT *require.Assertions,
	resultCh <-chan ripple.Result,
) ripple.Result {
	select {
	case <-ctx.Done():
		requireT.Fail("context done")
		return nil
	case <-time.After(5 * time.Second):
		requireT.Fail("timeout")
		return nil
	case result := <-resultCh:
		return result
	}
}

func TestSingleTargetRoundTrip(t *testing.T) {
	requireT := require.New(t)

	ctx := qa.NewContext(t)
	group := qa.NewGroup(ctx, t)

	defer func() {
		group.Exit(nil)
		requireT.NoError(group.Wait())
	}()

	ls, err := net.Listen("tcp", "localhost:0")
	requireT.NoError(err)

	app1 := &senderApp{resultCh: make(chan ripple.Result, 1)}
	node1, link1 := newNode(t, app1, ls.Addr().String())
	app1.node = node1

	app2 := &echoApp{
		response: testMsg{Text: "pong"},
		recvCh:   make(chan any, 10),
	}
	node2, link2 := newNode(t, app2, ls.Addr().String())

	group.Spawn("server", parallel.Fail, func(ctx context.Context) error {
		return relay.RunServer(ctx, ls, relay.ServerConfig{MaxMessageSize: maxMsgSize})
	})
	group.Spawn("link1", parallel.Fail, link1.Run)
	group.Spawn("link2", parallel.Fail, link2.Run)
	group.Spawn("node1", parallel.Fail, tickLoop(node1))
	group.Spawn("node2", parallel.Fail, tickLoop(node2))

	result := awaitResult(ctx, requireT, app1.resultCh)
	requireT.Equal(ripple.Result{
		link2.PeerID(): {
			State:    ripple.TargetAcked,
			Response: &testMsg{Text: "pong"},
		},
	}, result)

	select {
	case msg := <-app2.recvCh:
		requireT.Equal(&testMsg{Text: "ping"}, msg)
	default:
		requireT.Fail("ping not received")
	}
}

func TestBroadcastCompletesAfterPeerLoss(t *testing.T) {
	requireT := require.New(t)

	ctx := qa.NewContext(t)
	group := qa.NewGroup(ctx, t)

	defer func() {
		group.Exit(nil)
		requireT.NoError(group.Wait())
	}()

	ls, err := net.Listen("tcp", "localhost:0")
	requireT.NoError(err)

	app1 := &broadcastApp{
		peersWanted: 2,
		sentCh:      make(chan struct{}),
		resultCh:    make(chan ripple.Result, 1),
	}
	node1, link1 := newNode(t, app1, ls.Addr().String())
	app1.node = node1

	app2 := &echoApp{
		response: testMsg{Text: "pong"},
		recvCh:   make(chan any, 10),
	}
	node2, link2 := newNode(t, app2, ls.Addr().String())

	// Node 3 connects but never ticks, so it can only resolve by
	// disconnecting.
	_, link3 := newNode(t, idleApp{}, ls.Addr().String())

	ctx3, cancel3 := context.WithCancel(ctx)
	defer cancel3()

	group.Spawn("server", parallel.Fail, func(ctx context.Context) error {
		return relay.RunServer(ctx, ls, relay.ServerConfig{MaxMessageSize: maxMsgSize})
	})
	group.Spawn("link1", parallel.Fail, link1.Run)
	group.Spawn("link2", parallel.Fail, link2.Run)
	group.Spawn("link3", parallel.Continue, func(_ context.Context) error {
		if err := link3.Run(ctx3); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	group.Spawn("node1", parallel.Fail, tickLoop(node1))
	group.Spawn("node2", parallel.Fail, tickLoop(node2))

	select {
	case <-ctx.Done():
		requireT.Fail("context done")
	case <-time.After(5 * time.Second):
		requireT.Fail("timeout waiting for broadcast")
	case <-app1.sentCh:
	}

	cancel3()

	result := awaitResult(ctx, requireT, app1.resultCh)
	requireT.Equal(ripple.Result{
		link2.PeerID(): {
			State:    ripple.TargetAcked,
			Response: &testMsg{Text: "pong"},
		},
		link3.PeerID(): {
			State: ripple.TargetFailed,
		},
	}, result)
}
