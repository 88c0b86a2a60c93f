package vector

import (
	"context"
	"hash/fnv"
	"math"

	"github.com/dealscout/backend/internal/domain"
)

// Embedder turns text into fixed-size vectors
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	ModelName() string
}

// DefaultHashDimensions is the vector size of the hash embedder
const DefaultHashDimensions = 256

// HashEmbedder is an offline feature-hashing embedder. Words and their
// character trigrams are hashed into signed buckets, so texts sharing
// vocabulary land close together. It needs no model and is deterministic.
type HashEmbedder struct {
	dims int
}

// NewHashEmbedder creates a hash embedder producing vectors of dims length
func NewHashEmbedder(dims int) *HashEmbedder {
	if dims <= 0 {
		dims = DefaultHashDimensions
	}
	return &HashEmbedder{dims: dims}
}

// Embed hashes a single text
func (h *HashEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	vec := make([]float32, h.dims)
	for _, tok := range domain.Tokens(text) {
		h.add(vec, tok, 1)
		if len(tok) > 3 {
			padded := "#" + tok + "#"
			for i := 0; i+3 <= len(padded); i++ {
				h.add(vec, padded[i:i+3], 0.5)
			}
		}
	}
	normalize(vec)
	return vec, nil
}

// EmbedBatch hashes each text in order
func (h *HashEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		vec, err := h.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

// Dimensions returns the vector size
func (h *HashEmbedder) Dimensions() int { return h.dims }

// ModelName identifies the embedder in cache keys
func (h *HashEmbedder) ModelName() string { return "hash" }

func (h *HashEmbedder) add(vec []float32, feature string, weight float32) {
	f := fnv.New32a()
	_, _ = f.Write([]byte(feature))
	sum := f.Sum32()
	if sum&1 == 1 {
		weight = -weight
	}
	vec[(sum>>1)%uint32(len(vec))] += weight
}

// normalize scales v to unit length in place. It reports false for the
// zero vector, which has no direction.
func normalize(v []float32) bool {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return false
	}
	inv := float32(1 / math.Sqrt(sum))
	for i := range v {
		v[i] *= inv
	}
	return true
}
