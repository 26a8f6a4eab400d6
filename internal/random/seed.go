// Package random mints high-entropy seeds. Dice rolls record the seed in
// the journal so replays and resyncs reproduce the same values.
package random

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
)

// NewSeed draws eight bytes from crypto/rand and packs them into an int64.
func NewSeed() (int64, error) {
	var buf [8]byte
	if _, err := crand.Read(buf[:]); err != nil {
		return 0, fmt.Errorf("read random seed: %w", err)
	}
	return int64(binary.LittleEndian.Uint64(buf[:])), nil
}
