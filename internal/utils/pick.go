package utils

import (
	"encoding/binary"

	"github.com/zeebo/blake3"
)

// StableIndex maps key onto [0, n). The result depends only on key and n, so
// every instance picks the same slot for the same key. n must be positive.
func StableIndex(key string, n int) int {
	sum := blake3.Sum256([]byte(key))
	return int(binary.BigEndian.Uint64(sum[:8]) % uint64(n))
}
