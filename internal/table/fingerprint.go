package table

import (
	"encoding/binary"
	"encoding/hex"
	"math"

	"golang.org/x/crypto/blake2b"
)

// Fingerprint returns a stable BLAKE2b-256 digest of a score table.
// Record order matters, since it decides which duplicate coordinate wins.
func Fingerprint(scores []ScoreRecord) string {
	h, _ := blake2b.New256(nil) // Only fails for oversized keys
	var num [8]byte
	for _, s := range scores {
		h.Write([]byte(s.Node1))
		h.Write([]byte{0})
		h.Write([]byte(s.Node2))
		h.Write([]byte{0})
		binary.LittleEndian.PutUint64(num[:], math.Float64bits(s.Score))
		h.Write(num[:])
	}
	return hex.EncodeToString(h.Sum(nil))
}
