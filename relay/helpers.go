package relay

import (
	"crypto/rand"

	"github.com/pkg/errors"

	"github.com/outofforest/ripple/wire"
)

func peerID() (wire.PeerID, error) {
	var id wire.PeerID
	_, err := rand.Read(id[:])
	if err != nil {
		return wire.PeerID{}, errors.WithStack(err)
	}
	return id, nil
}
