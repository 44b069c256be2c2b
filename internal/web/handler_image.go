package web

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/cockroachdb/errors"

	"github.com/vbonduro/hoardings/internal/domain"
)

func (s *Server) handleUploadImages(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		s.badRequest(w, "invalid hoarding id")
		return
	}

	if err := s.parseUploadForm(w, r); err != nil {
		s.handleError(w, r, err, "parse image form")
		return
	}

	uploads, err := s.readUploads(r)
	if err == nil {
		_, err = s.service.AddImages(r.Context(), id, uploads)
	}
	if err != nil {
		if errors.Is(err, domain.ErrValidation) {
			s.renderHoardingDetail(w, r, http.StatusUnprocessableEntity, id, domain.FieldErrors(err))
			return
		}
		s.handleError(w, r, err, "upload images")
		return
	}

	http.Redirect(w, r, fmt.Sprintf("/hoardings/%d", id), http.StatusSeeOther)
}

func (s *Server) handleGetImage(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		s.badRequest(w, "invalid hoarding id")
		return
	}
	imageID, err := parseID(r, "imageID")
	if err != nil {
		s.badRequest(w, "invalid image id")
		return
	}

	reader, mimeType, err := s.service.OpenImage(r.Context(), id, imageID)
	if err != nil {
		s.handleError(w, r, err, "open image")
		return
	}
	defer closeWithLog(reader, "image reader", s.logger)

	w.Header().Set("Content-Type", mimeType)
	w.Header().Set("Cache-Control", "public, max-age=86400, immutable")
	if _, err := io.Copy(w, reader); err != nil {
		s.logger.Error("write image failed", "hoarding_id", id, "image_id", imageID, "error", err)
	}
}

// closeWithLog closes c and logs any error, using label to identify the resource.
func closeWithLog(c io.Closer, label string, logger *slog.Logger) {
	if err := c.Close(); err != nil {
		logger.Error("failed to close resource", "label", label, "error", err)
	}
}
