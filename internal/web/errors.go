package web

import (
	"net/http"

	"github.com/cockroachdb/errors"

	"github.com/vbonduro/hoardings/internal/domain"
)

// handleError renders the page for a failure that is not a form validation
// error. action names the failed operation in the log.
func (s *Server) handleError(w http.ResponseWriter, r *http.Request, err error, action string) {
	var maxBytes *http.MaxBytesError
	switch {
	case errors.As(err, &maxBytes):
		s.renderError(w, http.StatusRequestEntityTooLarge, "The upload is too large.")
	case errors.Is(err, domain.ErrNotFound):
		s.renderError(w, http.StatusNotFound, "That hoarding or image does not exist.")
	case errors.Is(err, domain.ErrStorage):
		s.logger.Error(action+" failed", "path", r.URL.Path, "error", err)
		s.renderError(w, http.StatusInternalServerError, "Could not store the image. Nothing was saved, please try again.")
	case errors.Is(err, domain.ErrValidation):
		s.renderError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		s.logger.Error(action+" failed", "path", r.URL.Path, "error", err)
		s.renderError(w, http.StatusInternalServerError, "Something went wrong. Please try again.")
	}
}

func (s *Server) badRequest(w http.ResponseWriter, message string) {
	s.renderError(w, http.StatusBadRequest, message)
}
