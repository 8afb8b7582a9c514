package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"curabot/internal/account"
	"curabot/internal/models"
)

var errNoReport = errors.New("upload a report first")

func statusFor(err error) int {
	var (
		extractionErr *models.ExtractionError
		embeddingErr  *models.EmbeddingError
		validationErr *account.ValidationError
		tooLarge      *http.MaxBytesError
	)
	switch {
	case errors.As(err, &extractionErr):
		return http.StatusUnprocessableEntity
	case errors.As(err, &embeddingErr):
		return http.StatusBadGateway
	case errors.As(err, &validationErr):
		return http.StatusBadRequest
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, account.ErrEmailTaken), errors.Is(err, errNoReport):
		return http.StatusConflict
	case errors.Is(err, account.ErrInvalidCredentials):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// writeError maps domain errors to a status code and a JSON body
func writeError(c *gin.Context, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("Request failed")
		msg = "internal server error"
	}
	c.JSON(status, gin.H{"error": msg})
}
