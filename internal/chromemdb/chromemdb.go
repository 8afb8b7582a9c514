package chromemdb

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"

	"github.com/philippgille/chromem-go"
	"github.com/rs/zerolog/log"

	"curabot/internal/embedding"
	"curabot/internal/models"
)

const collectionName = "report"

// Result is one retrieved chunk with its cosine similarity to the query
type Result struct {
	Chunk      models.Chunk
	Similarity float32
}

// Index is an in-memory nearest-neighbor index over the chunks of one
// report. It is not modified after Build returns.
type Index struct {
	db         *chromem.DB
	collection *chromem.Collection
	embedder   *embedding.Fixed
	chunks     []models.Chunk // insertion order
}

// Build embeds every chunk and loads the vectors into a fresh collection
func Build(ctx context.Context, embedder *embedding.Fixed, chunks []models.Chunk) (*Index, error) {
	if embedder == nil {
		return nil, errors.New("embedder is required")
	}

	vectors, err := embedder.GenerateEmbedding(ctx, chunks)
	if err != nil {
		return nil, err
	}

	db := chromem.NewDB()
	// vectors are always supplied, so the collection never embeds on its own
	c, err := db.CreateCollection(collectionName, nil, func(ctx context.Context, text string) ([]float32, error) {
		return embedder.Embed(ctx, text)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create collection: %v", err)
	}

	docs := make([]chromem.Document, len(chunks))
	for i, chunk := range chunks {
		docs[i] = chromem.Document{
			ID:        chunk.ID,
			Content:   chunk.Content,
			Metadata:  map[string]string{"position": strconv.Itoa(chunk.Position)},
			Embedding: vectors[i],
		}
	}
	if len(docs) > 0 {
		if err := c.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
			return nil, fmt.Errorf("failed to add documents: %v", err)
		}
	}

	log.Debug().
		Int("chunks", len(chunks)).
		Int("dimension", embedder.Dimension()).
		Msg("Built report index")

	return &Index{
		db:         db,
		collection: c,
		embedder:   embedder,
		chunks:     append([]models.Chunk(nil), chunks...),
	}, nil
}

// Len returns the number of indexed chunks
func (x *Index) Len() int { return len(x.chunks) }

// Chunks returns the indexed chunks in insertion order
func (x *Index) Chunks() []models.Chunk {
	return append([]models.Chunk(nil), x.chunks...)
}

// Search returns up to k chunks ordered by descending similarity to query
func (x *Index) Search(ctx context.Context, query string, k int) ([]Result, error) {
	if query == "" {
		return nil, errors.New("query is required")
	}
	n := min(k, x.collection.Count())
	if n <= 0 {
		return nil, nil
	}

	vec, err := x.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}

	found, err := x.collection.QueryEmbedding(ctx, vec, n, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query by similarity: %v", err)
	}

	byID := make(map[string]models.Chunk, len(x.chunks))
	for _, c := range x.chunks {
		byID[c.ID] = c
	}
	results := make([]Result, 0, len(found))
	for _, r := range found {
		results = append(results, Result{Chunk: byID[r.ID], Similarity: r.Similarity})
	}
	return results, nil
}

// Close releases the underlying collection
func (x *Index) Close() error {
	if x == nil || x.db == nil {
		return nil
	}
	if err := x.db.DeleteCollection(collectionName); err != nil {
		return fmt.Errorf("failed to drop collection: %v", err)
	}
	x.db = nil
	return nil
}
