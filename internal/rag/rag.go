package rag

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"

	"curabot/internal/chromemdb"
	"curabot/internal/embedding"
	"curabot/internal/llmservice"
	"curabot/internal/models"
	"curabot/internal/parser"
)

// Answerer produces an answer for a finished prompt
type Answerer interface {
	AnswerWithReport(ctx context.Context, prompt string) llmservice.Report
}

// RAG runs the report pipeline: extract, chunk, embed, index, assemble, answer
type RAG struct {
	parser    parser.Parser
	embedder  *embedding.Fixed
	assembler *Assembler
	answerer  Answerer
}

func NewRAG(p parser.Parser, embedder *embedding.Fixed, assembler *Assembler, answerer Answerer) *RAG {
	return &RAG{parser: p, embedder: embedder, assembler: assembler, answerer: answerer}
}

// IndexReport parses a PDF and builds a searchable index of its chunks
func (r *RAG) IndexReport(ctx context.Context, data []byte) (*chromemdb.Index, error) {
	chunks, err := r.parser.ParsePDF(data)
	if err != nil {
		return nil, err
	}

	idx, err := chromemdb.Build(ctx, r.embedder, chunks)
	if err != nil {
		return nil, err
	}

	log.Info().
		Int("bytes", len(data)).
		Int("chunks", idx.Len()).
		Msg("Indexed report")
	return idx, nil
}

// Query answers a question about an indexed report
func (r *RAG) Query(ctx context.Context, idx *chromemdb.Index, query string) (*models.PromptResponse, error) {
	if idx == nil {
		return nil, errors.New("no report has been uploaded")
	}
	prompt, err := r.assembler.Assemble(ctx, idx, query)
	if err != nil {
		return nil, err
	}
	return r.answer(ctx, query, prompt), nil
}

// Ask answers a general question. The question is sent as-is.
func (r *RAG) Ask(ctx context.Context, query string) *models.PromptResponse {
	return r.answer(ctx, query, query)
}

func (r *RAG) answer(ctx context.Context, query, prompt string) *models.PromptResponse {
	report := r.answerer.AnswerWithReport(ctx, prompt)
	return &models.PromptResponse{
		Query:    query,
		Source:   prompt,
		Content:  report.Answer,
		Provider: report.Provider,
		Degraded: report.Outcome == llmservice.Degraded,
	}
}
