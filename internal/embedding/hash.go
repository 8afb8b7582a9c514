package embedding

import (
	"context"
	"hash/fnv"
	"math"
	"regexp"
	"strings"
)

const DefaultHashDimension = 384

var tokenPattern = regexp.MustCompile(`[\p{L}\p{N}]+`)

// HashEmbedder maps text to a fixed-size bag-of-words vector using feature
// hashing. It needs no model or network and is fully deterministic.
type HashEmbedder struct {
	dim int
}

func NewHashEmbedder(dim int) *HashEmbedder {
	if dim <= 0 {
		dim = DefaultHashDimension
	}
	return &HashEmbedder{dim: dim}
}

// EmbedQuery returns an L2-normalized vector. Text without tokens maps to
// the first basis vector so the result is never all zeros.
func (h *HashEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	vec := make([]float64, h.dim)
	for _, tok := range tokenPattern.FindAllString(strings.ToLower(text), -1) {
		hasher := fnv.New32a()
		_, _ = hasher.Write([]byte(tok))
		sum := hasher.Sum32()
		sign := 1.0
		if sum&(1<<31) != 0 {
			sign = -1.0
		}
		vec[int(sum%uint32(h.dim))] += sign
	}

	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	out := make([]float32, h.dim)
	if norm == 0 {
		out[0] = 1
		return out, nil
	}
	norm = math.Sqrt(norm)
	for i, v := range vec {
		out[i] = float32(v / norm)
	}
	return out, nil
}
