package vectorsearch

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"strings"
	"unicode"

	"github.com/philippgille/chromem-go"
)

type EmbeddingConfig struct {
	Provider   string // "hash", "openai" or "ollama"
	BaseURL    string
	APIKey     string
	Model      string
	Dimensions int
}

// NewEmbeddingFunc picks the embedding backend. "hash" needs no network and
// is what the service uses when no embedding API is configured.
func NewEmbeddingFunc(cfg EmbeddingConfig) (chromem.EmbeddingFunc, error) {
	switch cfg.Provider {
	case "", "hash":
		return HashEmbedding(cfg.Dimensions), nil
	case "openai":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("openai embeddings require an API key")
		}
		return chromem.NewEmbeddingFuncOpenAICompat(cfg.BaseURL, cfg.APIKey, cfg.Model, nil), nil
	case "ollama":
		return chromem.NewEmbeddingFuncOllama(cfg.Model, cfg.BaseURL), nil
	}
	return nil, fmt.Errorf("unsupported embedding provider %q", cfg.Provider)
}

// HashEmbedding is a lexical bag-of-words embedding: each word is hashed into
// a bucket and the vector is L2-normalised. The last dimension is a constant
// bias so no text maps to the zero vector.
func HashEmbedding(dimensions int) chromem.EmbeddingFunc {
	if dimensions < 8 {
		dimensions = 256
	}
	return func(ctx context.Context, text string) ([]float32, error) {
		vec := make([]float32, dimensions)
		vec[dimensions-1] = 0.1
		for _, word := range tokenize(text) {
			h := fnv.New32a()
			_, _ = h.Write([]byte(word))
			vec[int(h.Sum32()%uint32(dimensions-1))] += 1
		}
		normalize(vec)
		return vec, nil
	}
}

func tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := fields[:0]
	for _, f := range fields {
		if len(f) < 2 || stopWords[f] {
			continue
		}
		if len(f) > 3 && strings.HasSuffix(f, "s") && !strings.HasSuffix(f, "ss") {
			f = f[:len(f)-1]
		}
		out = append(out, f)
	}
	return out
}

var stopWords = map[string]bool{
	"the": true, "and": true, "for": true, "my": true, "is": true, "it": true,
	"of": true, "on": true, "in": true, "to": true, "a": true, "an": true,
	"with": true, "do": true, "does": true, "can": true, "you": true, "me": true,
	"need": true, "have": true, "this": true, "that": true, "what": true, "how": true,
}

func normalize(vec []float32) {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	norm := float32(math.Sqrt(sum))
	if norm == 0 {
		return
	}
	for i := range vec {
		vec[i] /= norm
	}
}
