package parser

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/rs/zerolog/log"

	"curabot/internal/config"
	"curabot/internal/models"
)

type Parser interface {
	ParsePDF(data []byte) ([]models.Chunk, error)
}

type ParserConfig struct {
	Chunker *Chunker
}

// NewParser builds a PDF parser splitting text per the RAG settings
func NewParser(cfg *config.RAGConfig) (*ParserConfig, error) {
	chunker, err := NewChunker(cfg)
	if err != nil {
		return nil, err
	}
	return &ParserConfig{Chunker: chunker}, nil
}

// ParsePDF extracts the text of the PDF and splits it into ordered chunks
func (p *ParserConfig) ParsePDF(data []byte) ([]models.Chunk, error) {
	text, err := ExtractText(data)
	if err != nil {
		return nil, err
	}
	chunks, err := p.Chunker.Split(text)
	if err != nil {
		return nil, err
	}
	log.Debug().
		Int("text_runes", len([]rune(text))).
		Int("chunks", len(chunks)).
		Msg("Parsed report")
	return chunks, nil
}

// ExtractText concatenates the plain text of every page in page order.
// A page whose content cannot be interpreted contributes nothing.
func ExtractText(data []byte) (text string, err error) {
	// the pdf package panics on some malformed inputs
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = &models.ExtractionError{Reason: "malformed pdf", Err: fmt.Errorf("%v", r)}
		}
	}()

	if len(data) == 0 {
		return "", &models.ExtractionError{Reason: "empty document"}
	}

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", &models.ExtractionError{Reason: "not a readable pdf", Err: err}
	}

	var sb strings.Builder
	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			log.Warn().Err(err).Int("page", i).Msg("No extractable text on page")
			continue
		}
		sb.WriteString(pageText)
	}
	return sb.String(), nil
}
