// Package server provides the HTTP surface for the cvchat command pipeline.
package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/careerkit/cvchat/internal/attach"
	"github.com/careerkit/cvchat/internal/command"
)

// ErrValidation indicates request validation failure.
type ErrValidation struct {
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s", e.Message)
}

// HTTPStatus returns the appropriate HTTP status code for an error.
func HTTPStatus(err error) int {
	var validationErr *ErrValidation
	var attachErr *attach.Error
	switch {
	case errors.Is(err, command.ErrBusy):
		return http.StatusConflict
	case errors.As(err, &validationErr), errors.As(err, &attachErr):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
