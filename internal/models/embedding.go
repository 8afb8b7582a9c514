package models

import "fmt"

// Chunk represents a window of extracted report text
type Chunk struct {
	ID       string
	Position int // 0-based order in the document
	Content  string
}

// PromptResponse is the outcome of one question cycle
type PromptResponse struct {
	Query    string
	Source   string // prompt sent to the answering service
	Content  string
	Provider string
	Degraded bool
}

// ChunkID builds the stable identifier for the chunk at position i
func ChunkID(i int) string {
	return fmt.Sprintf("chunk-%05d", i)
}
