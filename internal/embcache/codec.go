package embcache

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/cisearch/ingest/internal/embedding"
)

// Shared-tier values are raw little-endian float32 frames. A JSON
// encoding would triple the payload for no benefit; the vector is the
// whole value.

func encodeVector(v embedding.Vector) []byte {
	buf := make([]byte, 4*len(v))
	for i, x := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(x))
	}
	return buf
}

func decodeVector(data []byte) (embedding.Vector, error) {
	if len(data) == 0 || len(data)%4 != 0 {
		return nil, fmt.Errorf("embcache: corrupt cached vector of %d bytes", len(data))
	}
	v := make(embedding.Vector, len(data)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return v, nil
}
