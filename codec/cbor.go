package codec

import (
	"github.com/fxamacker/cbor/v2"
	"github.com/pkg/errors"
)

// NewCBOR returns a canonical CBOR codec decoding payloads into *M.
func NewCBOR[M any]() (Codec, error) {
	enc, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		return nil, errors.WithStack(err)
	}
	dec, err := cbor.DecOptions{}.DecMode()
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return cborCodec[M]{enc: enc, dec: dec}, nil
}

type cborCodec[M any] struct {
	enc cbor.EncMode
	dec cbor.DecMode
}

func (c cborCodec[M]) Marshal(msg any) ([]byte, error) {
	data, err := c.enc.Marshal(msg)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return data, nil
}

func (c cborCodec[M]) Unmarshal(data []byte) (any, error) {
	msg := new(M)
	if err := c.dec.Unmarshal(data, msg); err != nil {
		return nil, errors.WithStack(err)
	}
	return msg, nil
}
