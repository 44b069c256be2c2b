package web

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/go-chi/chi/v5"

	"github.com/vbonduro/hoardings/internal/domain"
	"github.com/vbonduro/hoardings/internal/service"
)

func (s *Server) handleListHoardings(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := domain.HoardingFilter{
		City:         domain.City(strings.TrimSpace(q.Get("city"))),
		Status:       domain.Status(strings.TrimSpace(q.Get("status"))),
		SizeContains: strings.TrimSpace(q.Get("size")),
	}

	hoardings, err := s.service.ListHoardings(r.Context(), filter)
	if err != nil {
		s.handleError(w, r, err, "list hoardings")
		return
	}

	// HTMX partial update: return only the results fragment.
	if r.Header.Get("HX-Request") == "true" {
		if err := s.renderPartial(w, "partials/hoarding_list.html", hoardings); err != nil {
			s.logger.Error("render partial failed", "error", err)
		}
		return
	}

	if err := s.renderPage(w, http.StatusOK,
		map[string]any{
			"Hoardings": hoardings,
			"Filter":    filter,
			"Cities":    domain.Cities,
			"Statuses":  domain.Statuses,
			"ActiveNav": "hoardings",
		},
		"base.html", "pages/hoardings.html", "partials/hoarding_list.html",
	); err != nil {
		s.logger.Error("render page failed", "error", err)
	}
}

func (s *Server) handleNewHoarding(w http.ResponseWriter, r *http.Request) {
	s.renderHoardingForm(w, http.StatusOK, nil, formValues{"status": string(domain.StatusAvailable)}, nil)
}

func (s *Server) handleCreateHoarding(w http.ResponseWriter, r *http.Request) {
	if err := s.parseUploadForm(w, r); err != nil {
		s.handleError(w, r, err, "parse hoarding form")
		return
	}

	values := readForm(r, hoardingFields...)
	in, formErr := hoardingInputFromForm(values)
	uploads, uploadErr := s.readUploads(r)
	if err := mergeErrors(formErr, uploadErr); err != nil {
		if !errors.Is(err, domain.ErrValidation) {
			s.handleError(w, r, err, "read hoarding form")
			return
		}
		// Report the remaining field problems alongside the parse errors.
		checked := in
		checked.Normalize()
		s.renderHoardingForm(w, http.StatusUnprocessableEntity, nil, values, domain.FieldErrors(mergeErrors(err, checked.Validate())))
		return
	}

	h, err := s.service.CreateHoarding(r.Context(), in, uploads)
	if err != nil {
		if errors.Is(err, domain.ErrValidation) {
			s.renderHoardingForm(w, http.StatusUnprocessableEntity, nil, values, domain.FieldErrors(err))
			return
		}
		s.handleError(w, r, err, "create hoarding")
		return
	}

	http.Redirect(w, r, fmt.Sprintf("/hoardings/%d", h.ID), http.StatusSeeOther)
}

func (s *Server) handleGetHoarding(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		s.badRequest(w, "invalid hoarding id")
		return
	}
	s.renderHoardingDetail(w, r, http.StatusOK, id, nil)
}

// renderHoardingDetail renders the detail page, with fieldErrs shown on the
// image upload form.
func (s *Server) renderHoardingDetail(w http.ResponseWriter, r *http.Request, status int, id int64, fieldErrs map[string]string) {
	h, err := s.service.GetHoarding(r.Context(), id)
	if err != nil {
		s.handleError(w, r, err, "get hoarding")
		return
	}

	enquiries, err := s.service.ListEnquiries(r.Context(), id)
	if err != nil {
		s.handleError(w, r, err, "list hoarding enquiries")
		return
	}

	if err := s.renderPage(w, status,
		map[string]any{
			"Hoarding":     h,
			"EnquiryCount": len(enquiries),
			"Errors":       fieldErrs,
			"MaxImages":    service.MaxImagesPerUpload,
			"ActiveNav":    "hoardings",
		},
		"base.html", "pages/hoarding_detail.html",
	); err != nil {
		s.logger.Error("render page failed", "error", err)
	}
}

func (s *Server) handleEditHoarding(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		s.badRequest(w, "invalid hoarding id")
		return
	}

	h, err := s.service.GetHoarding(r.Context(), id)
	if err != nil {
		s.handleError(w, r, err, "get hoarding")
		return
	}

	s.renderHoardingForm(w, http.StatusOK, h, valuesFromHoarding(h), nil)
}

func (s *Server) handleUpdateHoarding(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		s.badRequest(w, "invalid hoarding id")
		return
	}

	if err := s.parseUploadForm(w, r); err != nil {
		s.handleError(w, r, err, "parse hoarding form")
		return
	}

	values := readForm(r, hoardingFields...)
	patch, formErr := hoardingPatchFromForm(r)
	uploads, uploadErr := s.readUploads(r)

	rerender := func(fieldErrs map[string]string) {
		h, err := s.service.GetHoarding(r.Context(), id)
		if err != nil {
			s.handleError(w, r, err, "get hoarding")
			return
		}
		s.renderHoardingForm(w, http.StatusUnprocessableEntity, h, values, fieldErrs)
	}

	if err := mergeErrors(formErr, uploadErr); err != nil {
		if !errors.Is(err, domain.ErrValidation) {
			s.handleError(w, r, err, "read hoarding form")
			return
		}
		rerender(domain.FieldErrors(err))
		return
	}

	h, err := s.service.UpdateHoarding(r.Context(), id, patch, uploads)
	if err != nil {
		if errors.Is(err, domain.ErrValidation) {
			rerender(domain.FieldErrors(err))
			return
		}
		s.handleError(w, r, err, "update hoarding")
		return
	}

	http.Redirect(w, r, fmt.Sprintf("/hoardings/%d", h.ID), http.StatusSeeOther)
}

func (s *Server) handleDeleteHoarding(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		s.badRequest(w, "invalid hoarding id")
		return
	}

	if err := s.service.DeleteHoarding(r.Context(), id); err != nil {
		s.handleError(w, r, err, "delete hoarding")
		return
	}

	w.Header().Set("HX-Redirect", "/hoardings")
	w.WriteHeader(http.StatusOK)
}

func (s *Server) renderHoardingForm(w http.ResponseWriter, status int, h *domain.Hoarding, values formValues, fieldErrs map[string]string) {
	action, nav := "/hoardings", "new"
	if h != nil {
		action, nav = fmt.Sprintf("/hoardings/%d", h.ID), "hoardings"
	}

	if err := s.renderPage(w, status,
		map[string]any{
			"Hoarding":  h,
			"Form":      values,
			"Errors":    fieldErrs,
			"Action":    action,
			"Cities":    domain.Cities,
			"Statuses":  domain.Statuses,
			"MaxImages": service.MaxImagesPerUpload,
			"ActiveNav": nav,
		},
		"base.html", "pages/hoarding_form.html",
	); err != nil {
		s.logger.Error("render page failed", "error", err)
	}
}

func valuesFromHoarding(h *domain.Hoarding) formValues {
	return formValues{
		"city":        string(h.City),
		"location":    h.Location,
		"dimensions":  h.Dimensions,
		"rate":        strconv.FormatFloat(h.Rate, 'f', -1, 64),
		"status":      string(h.Status),
		"landmark":    h.Landmark,
		"coordinates": h.Coordinates,
		"address":     h.Address,
	}
}

// parseID extracts a positive int64 path variable.
func parseID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil {
		return 0, err
	}
	if id <= 0 {
		return 0, fmt.Errorf("%s must be positive", name)
	}
	return id, nil
}
