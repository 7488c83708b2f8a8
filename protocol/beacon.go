package protocol

import (
	"errors"
	"fmt"

	"github.com/encodeous/nbrd/state"
	"google.golang.org/protobuf/encoding/protowire"
)

const (
	fieldSender    protowire.Number = 1
	fieldSeq       protowire.Number = 2
	fieldTimestamp protowire.Number = 3

	// BeaconSize is the encoded size of every beacon: three fixed32 fields with one byte tags.
	BeaconSize = 3 * (1 + 4)
)

var ErrMalformed = errors.New("malformed beacon")

type Beacon struct {
	Sender    state.PeerId
	Seq       uint32
	Timestamp uint32
}

// AppendBeacon appends the wire form of b to buf.
func AppendBeacon(buf []byte, b Beacon) []byte {
	buf = protowire.AppendTag(buf, fieldSender, protowire.Fixed32Type)
	buf = protowire.AppendFixed32(buf, uint32(b.Sender))
	buf = protowire.AppendTag(buf, fieldSeq, protowire.Fixed32Type)
	buf = protowire.AppendFixed32(buf, b.Seq)
	buf = protowire.AppendTag(buf, fieldTimestamp, protowire.Fixed32Type)
	buf = protowire.AppendFixed32(buf, b.Timestamp)
	return buf
}

func Encode(b Beacon) []byte {
	return AppendBeacon(make([]byte, 0, BeaconSize), b)
}

// Decode parses a beacon. Frames of the wrong size or with an unexpected
// field layout are rejected with ErrMalformed.
func Decode(data []byte) (Beacon, error) {
	var b Beacon
	if len(data) != BeaconSize {
		return b, fmt.Errorf("%w: got %d bytes, want %d", ErrMalformed, len(data), BeaconSize)
	}
	seen := 0
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return b, fmt.Errorf("%w: %v", ErrMalformed, protowire.ParseError(n))
		}
		data = data[n:]
		if typ != protowire.Fixed32Type {
			return b, fmt.Errorf("%w: field %d has wire type %d", ErrMalformed, num, typ)
		}
		v, n := protowire.ConsumeFixed32(data)
		if n < 0 {
			return b, fmt.Errorf("%w: %v", ErrMalformed, protowire.ParseError(n))
		}
		data = data[n:]
		switch num {
		case fieldSender:
			b.Sender = state.PeerId(v)
		case fieldSeq:
			b.Seq = v
		case fieldTimestamp:
			b.Timestamp = v
		default:
			return b, fmt.Errorf("%w: unknown field %d", ErrMalformed, num)
		}
		seen |= 1 << num
	}
	if seen != 1<<fieldSender|1<<fieldSeq|1<<fieldTimestamp {
		return b, fmt.Errorf("%w: missing fields", ErrMalformed)
	}
	return b, nil
}
