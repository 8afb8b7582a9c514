package rag

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog/log"

	"curabot/internal/chromemdb"
	"curabot/internal/config"
	"curabot/internal/models"
)

const (
	RetrievalFull = "full"
	RetrievalTopK = "top_k"

	defaultK        = 4
	defaultMaxChars = 12000
)

// Assembler turns an indexed report and a question into a prompt
type Assembler struct {
	mode     string
	k        int
	maxChars int // 0 disables the budget
}

func NewAssembler(cfg *config.RAGConfig) *Assembler {
	a := &Assembler{mode: RetrievalTopK, k: defaultK, maxChars: defaultMaxChars}
	if cfg == nil {
		return a
	}
	if cfg.RetrievalMode != "" {
		a.mode = cfg.RetrievalMode
	}
	if cfg.K > 0 {
		a.k = cfg.K
	}
	if cfg.MaxChars >= 0 {
		a.maxChars = cfg.MaxChars
	}
	return a
}

// Assemble builds "User report:\n<context>\n\nQuestion: <question>". In full
// mode the context is every chunk in document order. In top_k mode it is the
// k most similar chunks, most similar first, cut to the character budget.
func (a *Assembler) Assemble(ctx context.Context, idx *chromemdb.Index, question string) (string, error) {
	var parts []string
	switch {
	case idx == nil:
	case a.mode == RetrievalFull:
		for _, c := range idx.Chunks() {
			parts = append(parts, c.Content)
		}
	default:
		results, err := idx.Search(ctx, question, a.k)
		if err != nil {
			return "", err
		}
		parts = a.budget(results)
	}

	prompt := models.ReportLabel + strings.Join(parts, models.ChunkJoiner) + models.QuestionLabel + question
	log.Debug().
		Str("mode", a.mode).
		Int("chunks", len(parts)).
		Int("prompt_length", len(prompt)).
		Msg("Assembled prompt")
	return prompt, nil
}

// budget keeps chunks in order until the next one would overflow maxChars.
// The best chunk is always kept, truncated if it alone is over budget.
func (a *Assembler) budget(results []chromemdb.Result) []string {
	parts := make([]string, 0, len(results))
	used := 0
	for i, r := range results {
		text := r.Chunk.Content
		if a.maxChars == 0 {
			parts = append(parts, text)
			continue
		}
		n := utf8.RuneCountInString(text)
		if i > 0 {
			n += utf8.RuneCountInString(models.ChunkJoiner)
		}
		if used+n > a.maxChars {
			if i == 0 {
				parts = append(parts, string([]rune(text)[:a.maxChars]))
			}
			break
		}
		parts = append(parts, text)
		used += n
	}
	return parts
}
