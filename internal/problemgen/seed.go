package problemgen

import (
	"crypto/sha256"
	"encoding/binary"
	"math/rand/v2"
	"strconv"

	"github.com/google/uuid"
)

// Seed is an opaque value that makes a generation run reproducible.
type Seed string

// NewSeed returns a fresh random seed.
func NewSeed() Seed {
	return Seed(uuid.NewString())
}

// NewRand derives the generator for one run from the seed, template id and
// template version.
func NewRand(seed Seed, templateID string, version int) *rand.Rand {
	h := sha256.New()
	h.Write([]byte(seed))
	h.Write([]byte{0})
	h.Write([]byte(templateID))
	h.Write([]byte{0})
	h.Write([]byte(strconv.Itoa(version)))
	sum := h.Sum(nil)
	return rand.New(rand.NewPCG(
		binary.BigEndian.Uint64(sum[0:8]),
		binary.BigEndian.Uint64(sum[8:16]),
	))
}
