package parser

import (
	"fmt"

	"github.com/tmc/langchaingo/textsplitter"

	"curabot/internal/config"
	"curabot/internal/models"
)

const (
	defaultChunkSize    = 1000 // runes
	defaultChunkOverlap = 200  // runes

	SplitterWindow    = "window"
	SplitterRecursive = "recursive"
)

// Chunker splits extracted text into overlapping windows
type Chunker struct {
	size     int
	overlap  int
	strategy string
}

func NewChunker(cfg *config.RAGConfig) (*Chunker, error) {
	// if config is nil, use default values
	if cfg == nil {
		cfg = &config.RAGConfig{
			ChunkSize:    defaultChunkSize,
			ChunkOverlap: defaultChunkOverlap,
			Splitter:     SplitterWindow,
		}
	}
	if cfg.ChunkSize <= 0 {
		return nil, &config.ConfigurationError{Reason: fmt.Sprintf("chunk size must be positive, got %d", cfg.ChunkSize)}
	}
	if cfg.ChunkOverlap < 0 || cfg.ChunkOverlap >= cfg.ChunkSize {
		return nil, &config.ConfigurationError{Reason: fmt.Sprintf("chunk overlap %d must be in [0, %d)", cfg.ChunkOverlap, cfg.ChunkSize)}
	}
	strategy := cfg.Splitter
	if strategy == "" {
		strategy = SplitterWindow
	}
	if strategy != SplitterWindow && strategy != SplitterRecursive {
		return nil, &config.ConfigurationError{Reason: "unknown splitter " + strategy}
	}
	return &Chunker{size: cfg.ChunkSize, overlap: cfg.ChunkOverlap, strategy: strategy}, nil
}

// Split returns the chunks of text in document order
func (c *Chunker) Split(text string) ([]models.Chunk, error) {
	var parts []string
	switch c.strategy {
	case SplitterRecursive:
		splitter := textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(c.size),
			textsplitter.WithChunkOverlap(c.overlap),
		)
		var err error
		parts, err = splitter.SplitText(text)
		if err != nil {
			return nil, fmt.Errorf("recursive split: %w", err)
		}
	default:
		parts = chunkContent(text, c.size, c.overlap)
	}

	chunks := make([]models.Chunk, 0, len(parts))
	for i, part := range parts {
		chunks = append(chunks, models.Chunk{
			ID:       models.ChunkID(i),
			Position: i,
			Content:  part,
		})
	}
	return chunks, nil
}

// chunk content into windows of maxChars runes, each starting
// maxChars-overlapChars runes after the previous one
func chunkContent(content string, maxChars, overlapChars int) []string {
	runes := []rune(content)
	contentLen := len(runes)
	if contentLen == 0 || maxChars <= 0 {
		return nil
	}

	// If content is shorter than maxChars, return it as a single chunk
	if contentLen <= maxChars {
		return []string{content}
	}

	step := maxChars - overlapChars
	var chunks []string
	for start := 0; start < contentLen; start += step {
		end := min(start+maxChars, contentLen)
		chunks = append(chunks, string(runes[start:end]))
		if end == contentLen {
			break
		}
	}
	return chunks
}
