package wire

import (
	"reflect"
	"unsafe"

	"github.com/outofforest/proton"
	"github.com/outofforest/proton/helpers"
	"github.com/pkg/errors"
)

const (
	id3 uint64 = iota + 1
	id2
	id1
	id0
)

var _ proton.Marshaller = Marshaller{}

// NewMarshaller creates marshaller.
func NewMarshaller() Marshaller {
	return Marshaller{}
}

// Marshaller marshals and unmarshals messages.
type Marshaller struct {
}

// Messages returns list of the message types supported by marshaller.
func (m Marshaller) Messages() []any {
	return []any {
		Hello{},
		Joined{},
		Left{},
		Frame{},
	}
}

// ID returns ID of message type.
func (m Marshaller) ID(msg any) (uint64, error) {
	switch msg.(type) {
	case *Hello:
		return id3, nil
	case *Joined:
		return id2, nil
	case *Left:
		return id1, nil
	case *Frame:
		return id0, nil
	default:
		return 0, errors.Errorf("unknown message type %T", msg)
	}
}

// Size computes the size of marshalled message.
func (m Marshaller) Size(msg any) (uint64, error) {
	switch msg2 := msg.(type) {
	case *Hello:
		return size3(msg2), nil
	case *Joined:
		return size2(msg2), nil
	case *Left:
		return size1(msg2), nil
	case *Frame:
		return size0(msg2), nil
	default:
		return 0, errors.Errorf("unknown message type %T", msg)
	}
}

// Marshal marshals message.
func (m Marshaller) Marshal(msg any, buf []byte) (retID, retSize uint64, retErr error) {
	defer helpers.RecoverMarshal(&retErr)

	switch msg2 := msg.(type) {
	case *Hello:
		return id3, marshal3(msg2, buf), nil
	case *Joined:
		return id2, marshal2(msg2, buf), nil
	case *Left:
		return id1, marshal1(msg2, buf), nil
	case *Frame:
		return id0, marshal0(msg2, buf), nil
	default:
		return 0, 0, errors.Errorf("unknown message type %T", msg)
	}
}

// Unmarshal unmarshals message.
func (m Marshaller) Unmarshal(id uint64, buf []byte) (retMsg any, retSize uint64, retErr error) {
	defer helpers.RecoverUnmarshal(&retErr)

	switch id {
	case id3:
		msg := &Hello{}
		return msg, unmarshal3(msg, buf), nil
	case id2:
		msg := &Joined{}
		return msg, unmarshal2(msg, buf), nil
	case id1:
		msg := &Left{}
		return msg, unmarshal1(msg, buf), nil
	case id0:
		msg := &Frame{}
		return msg, unmarshal0(msg, buf), nil
	default:
		return nil, 0, errors.Errorf("unknown ID %d", id)
	}
}

// MakePatch creates a patch.
func (m Marshaller) MakePatch(msgDst, msgSrc any, buf []byte) (retID, retSize uint64, retErr error) {
	defer helpers.RecoverMakePatch(&retErr)

	switch msg2 := msgDst.(type) {
	case *Hello:
		return id3, makePatch3(msg2, msgSrc.(*Hello), buf), nil
	case *Joined:
		return id2, makePatch2(msg2, msgSrc.(*Joined), buf), nil
	case *Left:
		return id1, makePatch1(msg2, msgSrc.(*Left), buf), nil
	case *Frame:
		return id0, makePatch0(msg2, msgSrc.(*Frame), buf), nil
	default:
		return 0, 0, errors.Errorf("unknown message type %T", msgDst)
	}
}

// ApplyPatch applies patch.
func (m Marshaller) ApplyPatch(msg any, buf []byte) (retSize uint64, retErr error) {
	defer helpers.RecoverApplyPatch(&retErr)

	switch msg2 := msg.(type) {
	case *Hello:
		return applyPatch3(msg2, buf), nil
	case *Joined:
		return applyPatch2(msg2, buf), nil
	case *Left:
		return applyPatch1(msg2, buf), nil
	case *Frame:
		return applyPatch0(msg2, buf), nil
	default:
		return 0, errors.Errorf("unknown message type %T", msg)
	}
}

func size3(m *Hello) uint64 {
	var n uint64 = 33
	return n
}

func marshal3(m *Hello, b []byte) uint64 {
	var o uint64 = 1
	{
		// PeerID

		copy(b[o:o+32], unsafe.Slice(&m.PeerID[0], 32))
		o += 32
	}
	{
		// IsRelay

		if m.IsRelay {
			b[0] |= 0x01
		} else {
			b[0] &= 0xFE
		}
	}

	return o
}

func unmarshal3(m *Hello, b []byte) uint64 {
	var o uint64 = 1
	{
		// PeerID

		copy(unsafe.Slice(&m.PeerID[0], 32), b[o:o+32])
		o += 32
	}
	{
		// IsRelay

		m.IsRelay = b[0]&0x01 != 0
	}

	return o
}

func makePatch3(m, mSrc *Hello, b []byte) uint64 {
	var o uint64 = 2
	{
		// PeerID

		if reflect.DeepEqual(m.PeerID, mSrc.PeerID) {
			b[0] &= 0xFE
		} else {
			b[0] |= 0x01
			copy(b[o:o+32], unsafe.Slice(&m.PeerID[0], 32))
			o += 32
		}
	}
	{
		// IsRelay

		if m.IsRelay == mSrc.IsRelay {
			b[1] &= 0xFE
		} else {
			b[1] |= 0x01
		}
	}

	return o
}

func applyPatch3(m *Hello, b []byte) uint64 {
	var o uint64 = 2
	{
		// PeerID

		if b[0]&0x01 != 0 {
			copy(unsafe.Slice(&m.PeerID[0], 32), b[o:o+32])
			o += 32
		}
	}
	{
		// IsRelay

		if b[1]&0x01 != 0 {
			m.IsRelay = !m.IsRelay
		}
	}

	return o
}

func size2(m *Joined) uint64 {
	var n uint64 = 32
	return n
}

func marshal2(m *Joined, b []byte) uint64 {
	var o uint64
	{
		// PeerID

		copy(b[o:o+32], unsafe.Slice(&m.PeerID[0], 32))
		o += 32
	}

	return o
}

func unmarshal2(m *Joined, b []byte) uint64 {
	var o uint64
	{
		// PeerID

		copy(unsafe.Slice(&m.PeerID[0], 32), b[o:o+32])
		o += 32
	}

	return o
}

func makePatch2(m, mSrc *Joined, b []byte) uint64 {
	var o uint64 = 1
	{
		// PeerID

		if reflect.DeepEqual(m.PeerID, mSrc.PeerID) {
			b[0] &= 0xFE
		} else {
			b[0] |= 0x01
			copy(b[o:o+32], unsafe.Slice(&m.PeerID[0], 32))
			o += 32
		}
	}

	return o
}

func applyPatch2(m *Joined, b []byte) uint64 {
	var o uint64 = 1
	{
		// PeerID

		if b[0]&0x01 != 0 {
			copy(unsafe.Slice(&m.PeerID[0], 32), b[o:o+32])
			o += 32
		}
	}

	return o
}

func size1(m *Left) uint64 {
	var n uint64 = 32
	return n
}

func marshal1(m *Left, b []byte) uint64 {
	var o uint64
	{
		// PeerID

		copy(b[o:o+32], unsafe.Slice(&m.PeerID[0], 32))
		o += 32
	}

	return o
}

func unmarshal1(m *Left, b []byte) uint64 {
	var o uint64
	{
		// PeerID

		copy(unsafe.Slice(&m.PeerID[0], 32), b[o:o+32])
		o += 32
	}

	return o
}

func makePatch1(m, mSrc *Left, b []byte) uint64 {
	var o uint64 = 1
	{
		// PeerID

		if reflect.DeepEqual(m.PeerID, mSrc.PeerID) {
			b[0] &= 0xFE
		} else {
			b[0] |= 0x01
			copy(b[o:o+32], unsafe.Slice(&m.PeerID[0], 32))
			o += 32
		}
	}

	return o
}

func applyPatch1(m *Left, b []byte) uint64 {
	var o uint64 = 1
	{
		// PeerID

		if b[0]&0x01 != 0 {
			copy(unsafe.Slice(&m.PeerID[0], 32), b[o:o+32])
			o += 32
		}
	}

	return o
}

func size0(m *Frame) uint64 {
	var n uint64 = 68
	{
		// CorrelationID

		helpers.UInt64Size(m.CorrelationID, &n)
	}
	{
		// Kind

		helpers.UInt64Size(m.Kind, &n)
	}
	{
		// Payload

		{
			l := uint64(len(m.Payload))
			helpers.UInt64Size(l, &n)
			n += l
		}
	}
	return n
}

func marshal0(m *Frame, b []byte) uint64 {
	var o uint64 = 1
	{
		// From

		copy(b[o:o+32], unsafe.Slice(&m.From[0], 32))
		o += 32
	}
	{
		// To

		copy(b[o:o+32], unsafe.Slice(&m.To[0], 32))
		o += 32
	}
	{
		// CorrelationID

		helpers.UInt64Marshal(m.CorrelationID, b, &o)
	}
	{
		// Kind

		helpers.UInt64Marshal(m.Kind, b, &o)
	}
	{
		// MustAck

		if m.MustAck {
			b[0] |= 0x01
		} else {
			b[0] &= 0xFE
		}
	}
	{
		// Payload

		{
			l := uint64(len(m.Payload))
			helpers.UInt64Marshal(l, b, &o)
			copy(b[o:o+l], m.Payload)
			o += l
		}
	}

	return o
}

func unmarshal0(m *Frame, b []byte) uint64 {
	var o uint64 = 1
	{
		// From

		copy(unsafe.Slice(&m.From[0], 32), b[o:o+32])
		o += 32
	}
	{
		// To

		copy(unsafe.Slice(&m.To[0], 32), b[o:o+32])
		o += 32
	}
	{
		// CorrelationID

		helpers.UInt64Unmarshal(&m.CorrelationID, b, &o)
	}
	{
		// Kind

		helpers.UInt64Unmarshal(&m.Kind, b, &o)
	}
	{
		// MustAck

		m.MustAck = b[0]&0x01 != 0
	}
	{
		// Payload

		{
			var l uint64
			helpers.UInt64Unmarshal(&l, b, &o)
			if l > 0 {
				m.Payload = make([]byte, l)
				copy(m.Payload, b[o:o+l])
				o += l
			}
		}
	}

	return o
}

func makePatch0(m, mSrc *Frame, b []byte) uint64 {
	var o uint64 = 2
	{
		// From

		if reflect.DeepEqual(m.From, mSrc.From) {
			b[0] &= 0xFE
		} else {
			b[0] |= 0x01
			copy(b[o:o+32], unsafe.Slice(&m.From[0], 32))
			o += 32
		}
	}
	{
		// To

		if reflect.DeepEqual(m.To, mSrc.To) {
			b[0] &= 0xFD
		} else {
			b[0] |= 0x02
			copy(b[o:o+32], unsafe.Slice(&m.To[0], 32))
			o += 32
		}
	}
	{
		// CorrelationID

		if m.CorrelationID == mSrc.CorrelationID {
			b[0] &= 0xFB
		} else {
			b[0] |= 0x04
			helpers.UInt64Marshal(m.CorrelationID, b, &o)
		}
	}
	{
		// Kind

		if m.Kind == mSrc.Kind {
			b[0] &= 0xF7
		} else {
			b[0] |= 0x08
			helpers.UInt64Marshal(m.Kind, b, &o)
		}
	}
	{
		// MustAck

		if m.MustAck == mSrc.MustAck {
			b[1] &= 0xFE
		} else {
			b[1] |= 0x01
		}
	}
	{
		// Payload

		if reflect.DeepEqual(m.Payload, mSrc.Payload) {
			b[0] &= 0xEF
		} else {
			b[0] |= 0x10
			{
				l := uint64(len(m.Payload))
				helpers.UInt64Marshal(l, b, &o)
				copy(b[o:o+l], m.Payload)
				o += l
			}
		}
	}

	return o
}

func applyPatch0(m *Frame, b []byte) uint64 {
	var o uint64 = 2
	{
		// From

		if b[0]&0x01 != 0 {
			copy(unsafe.Slice(&m.From[0], 32), b[o:o+32])
			o += 32
		}
	}
	{
		// To

		if b[0]&0x02 != 0 {
			copy(unsafe.Slice(&m.To[0], 32), b[o:o+32])
			o += 32
		}
	}
	{
		// CorrelationID

		if b[0]&0x04 != 0 {
			helpers.UInt64Unmarshal(&m.CorrelationID, b, &o)
		}
	}
	{
		// Kind

		if b[0]&0x08 != 0 {
			helpers.UInt64Unmarshal(&m.Kind, b, &o)
		}
	}
	{
		// MustAck

		if b[1]&0x01 != 0 {
			m.MustAck = !m.MustAck
		}
	}
	{
		// Payload

		if b[0]&0x10 != 0 {
			var l uint64
			helpers.UInt64Unmarshal(&l, b, &o)
			if l > 0 {
				m.Payload = make([]byte, l)
				copy(m.Payload, b[o:o+l])
				o += l
			}
		}
	}

	return o
}
