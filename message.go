package ripple

import "github.com/outofforest/ripple/wire"

// Message describes one logical outbound send. Without a target it is
// broadcast to every peer connected at send time. A completion handler makes
// every target obliged to respond; without one the message is
// fire-and-forget and leaves no tracking behind.
type Message struct {
	payload    any
	to         *wire.PeerID
	completion CompletionHandler
}

// NewMessage creates a message carrying payload.
func NewMessage(payload any) *Message {
	return &Message{
		payload: payload,
	}
}

// To restricts delivery to a single peer.
func (m *Message) To(peerID wire.PeerID) *Message {
	m.to = &peerID
	return m
}

// WithCompletion registers a handler fired once every target has responded
// or disconnected.
func (m *Message) WithCompletion(handler CompletionHandler) *Message {
	m.completion = handler
	return m
}
