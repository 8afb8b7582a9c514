package rag

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"curabot/internal/chromemdb"
	"curabot/internal/config"
	"curabot/internal/embedding"
	"curabot/internal/models"
)

var labResults = []string{
	"Hemoglobin: 13.5 g/dL within reference range",
	"White blood cell count 6.1 x10^9/L",
	"Fasting glucose 92 mg/dL normal",
	"Total cholesterol 185 mg/dL borderline",
	"Thyroid stimulating hormone 2.1 mIU/L",
}

func newEmbedder() *embedding.Fixed {
	return embedding.NewFixed("hash", embedding.NewHashEmbedder(256), 256)
}

func buildIndex(t *testing.T, texts ...string) *chromemdb.Index {
	t.Helper()
	chunks := make([]models.Chunk, len(texts))
	for i, text := range texts {
		chunks[i] = models.Chunk{ID: models.ChunkID(i), Position: i, Content: text}
	}
	idx, err := chromemdb.Build(context.Background(), newEmbedder(), chunks)
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

func TestAssembleFullModeJoinsAllChunks(t *testing.T) {
	idx := buildIndex(t, "a", "b", "c")
	a := NewAssembler(&config.RAGConfig{RetrievalMode: RetrievalFull})

	prompt, err := a.Assemble(context.Background(), idx, "q")
	require.NoError(t, err)

	assert.Equal(t, "User report:\na\nb\nc\n\nQuestion: q", prompt)
}

func TestAssembleFullModeEmptyReport(t *testing.T) {
	idx := buildIndex(t)
	a := NewAssembler(&config.RAGConfig{RetrievalMode: RetrievalFull})

	prompt, err := a.Assemble(context.Background(), idx, "Is anything abnormal?")
	require.NoError(t, err)

	assert.Equal(t, "User report:\n\n\nQuestion: Is anything abnormal?", prompt)
}

func TestAssembleTopKOrdersBySimilarity(t *testing.T) {
	idx := buildIndex(t, labResults...)
	a := NewAssembler(&config.RAGConfig{RetrievalMode: RetrievalTopK, K: 2})

	prompt, err := a.Assemble(context.Background(), idx, "Tell me about total cholesterol")
	require.NoError(t, err)

	want := models.ReportLabel + labResults[3] + "\n" + labResults[0] + models.QuestionLabel + "Tell me about total cholesterol"
	assert.Equal(t, want, prompt)
}

func TestAssembleTopKRespectsBudget(t *testing.T) {
	idx := buildIndex(t, labResults...)
	a := &Assembler{mode: RetrievalTopK, k: 2, maxChars: len(labResults[3]) + len(labResults[0])}

	prompt, err := a.Assemble(context.Background(), idx, "Tell me about total cholesterol")
	require.NoError(t, err)

	assert.Equal(t, models.ReportLabel+labResults[3]+models.QuestionLabel+"Tell me about total cholesterol", prompt)
}

func TestAssembleTopKTruncatesOversizedBestChunk(t *testing.T) {
	idx := buildIndex(t, labResults...)
	a := &Assembler{mode: RetrievalTopK, k: 2, maxChars: 10}

	prompt, err := a.Assemble(context.Background(), idx, "Tell me about total cholesterol")
	require.NoError(t, err)

	assert.Equal(t, models.ReportLabel+"Total chol"+models.QuestionLabel+"Tell me about total cholesterol", prompt)
}

func TestAssembleTopKZeroBudgetIsUnlimited(t *testing.T) {
	idx := buildIndex(t, labResults...)
	a := &Assembler{mode: RetrievalTopK, k: 5, maxChars: 0}

	prompt, err := a.Assemble(context.Background(), idx, "What was my fasting glucose?")
	require.NoError(t, err)

	for _, text := range labResults {
		assert.Contains(t, prompt, text)
	}
	assert.Contains(t, prompt, models.ReportLabel+labResults[2]+"\n")
}

func TestNewAssemblerDefaults(t *testing.T) {
	a := NewAssembler(nil)

	assert.Equal(t, RetrievalTopK, a.mode)
	assert.Equal(t, defaultK, a.k)
	assert.Equal(t, defaultMaxChars, a.maxChars)
}
