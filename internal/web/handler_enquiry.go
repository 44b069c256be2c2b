package web

import (
	"net/http"
	"strconv"

	"github.com/cockroachdb/errors"

	"github.com/vbonduro/hoardings/internal/domain"
)

func (s *Server) handleEnquiryForm(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		s.badRequest(w, "invalid hoarding id")
		return
	}
	s.renderEnquiryForm(w, r, http.StatusOK, id, formValues{}, nil)
}

func (s *Server) handleSubmitEnquiry(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		s.badRequest(w, "invalid hoarding id")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := r.ParseForm(); err != nil {
		s.handleError(w, r, err, "parse enquiry form")
		return
	}

	values := readForm(r, enquiryFields...)
	e, err := s.service.SubmitEnquiry(r.Context(), enquiryInputFromForm(id, values))
	switch {
	case err == nil:
		s.renderEnquirySent(w, e, false)
	case errors.Is(err, domain.ErrNotification) && e != nil:
		s.renderEnquirySent(w, e, true)
	case errors.Is(err, domain.ErrValidation):
		s.renderEnquiryForm(w, r, http.StatusUnprocessableEntity, id, values, domain.FieldErrors(err))
	default:
		s.handleError(w, r, err, "submit enquiry")
	}
}

func (s *Server) renderEnquiryForm(w http.ResponseWriter, r *http.Request, status int, id int64, values formValues, fieldErrs map[string]string) {
	h, err := s.service.GetHoarding(r.Context(), id)
	if err != nil {
		s.handleError(w, r, err, "get hoarding")
		return
	}

	if err := s.renderPage(w, status,
		map[string]any{
			"Hoarding":  h,
			"Form":      values,
			"Errors":    fieldErrs,
			"ActiveNav": "hoardings",
		},
		"base.html", "pages/enquiry_form.html",
	); err != nil {
		s.logger.Error("render page failed", "error", err)
	}
}

// renderEnquirySent confirms a saved enquiry. notifyFailed adds a warning that
// the team was not emailed.
func (s *Server) renderEnquirySent(w http.ResponseWriter, e *domain.Enquiry, notifyFailed bool) {
	if err := s.renderPage(w, http.StatusOK,
		map[string]any{
			"Enquiry":      e,
			"NotifyFailed": notifyFailed,
			"ActiveNav":    "hoardings",
		},
		"base.html", "pages/enquiry_sent.html",
	); err != nil {
		s.logger.Error("render page failed", "error", err)
	}
}

func (s *Server) handleListEnquiries(w http.ResponseWriter, r *http.Request) {
	var hoardingID int64
	if raw := r.URL.Query().Get("hoarding"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			s.badRequest(w, "invalid hoarding id")
			return
		}
		hoardingID = id
	}

	enquiries, err := s.service.ListEnquiries(r.Context(), hoardingID)
	if err != nil {
		s.handleError(w, r, err, "list enquiries")
		return
	}

	if err := s.renderPage(w, http.StatusOK,
		map[string]any{
			"Enquiries":  enquiries,
			"HoardingID": hoardingID,
			"ActiveNav":  "enquiries",
		},
		"base.html", "pages/enquiries.html",
	); err != nil {
		s.logger.Error("render page failed", "error", err)
	}
}
