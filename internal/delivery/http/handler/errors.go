package handler

import (
	"errors"
	"net/http"

	"github.com/Pesokrava/invoicing/internal/delivery/http/response"
	"github.com/Pesokrava/invoicing/internal/domain"
	"github.com/Pesokrava/invoicing/internal/pkg/logger"
)

// writeError maps service layer errors to HTTP responses.
// Client errors carry the wrapped reason, server errors are logged and hidden.
func writeError(w http.ResponseWriter, log *logger.Logger, err error) {
	switch {
	case errors.Is(err, domain.ErrInternal):
		log.Error("Internal error in HTTP handler", err)
		response.Error(w, http.StatusInternalServerError, "Internal server error")
	case errors.Is(err, domain.ErrValidation):
		response.Error(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		response.Error(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrInsufficientStock),
		errors.Is(err, domain.ErrInvalidState),
		errors.Is(err, domain.ErrAlreadyExists):
		response.Error(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrConflict):
		response.Error(w, http.StatusConflict, "Conflict - resource was modified by another request")
	default:
		log.Error("Internal error in HTTP handler", err)
		response.Error(w, http.StatusInternalServerError, "Internal server error")
	}
}
