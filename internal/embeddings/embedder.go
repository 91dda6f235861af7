package embeddings

import "context"

// Embedder turns texts into fixed-dimension vectors. Index build and query
// must share one embedder; vectors from different models are not comparable.
type Embedder interface {
	// Embed returns one vector per input text, in input order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions is the length of every vector this embedder produces.
	Dimensions() int

	// Name identifies the embedding model.
	Name() string
}
