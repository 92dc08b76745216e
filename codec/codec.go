package codec

// Codec encodes and decodes application payloads exchanged between peers.
// Implementations must be deterministic so both ends of a connection agree
// on the bytes.
type Codec interface {
	Marshal(msg any) ([]byte, error)
	Unmarshal(data []byte) (any, error)
}
