package web

import (
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/vbonduro/hoardings/internal/domain"
	"github.com/vbonduro/hoardings/internal/photostore"
	"github.com/vbonduro/hoardings/internal/service"
)

// formValues keeps the submitted text so a rejected form can be re-rendered.
type formValues map[string]string

func (f formValues) Get(key string) string { return f[key] }

var hoardingFields = []string{"city", "location", "dimensions", "rate", "status", "landmark", "coordinates", "address"}

func readForm(r *http.Request, fields ...string) formValues {
	values := make(formValues, len(fields))
	for _, f := range fields {
		values[f] = r.PostFormValue(f)
	}
	return values
}

// parseRate accepts an empty value as zero and tolerates thousands separators.
func parseRate(raw string, v *domain.ValidationError) float64 {
	raw = strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	if raw == "" {
		return 0
	}
	rate, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		v.Add("rate", "rate must be a number")
		return 0
	}
	return rate
}

func hoardingInputFromForm(values formValues) (domain.HoardingInput, error) {
	v := domain.NewValidationError()
	in := domain.HoardingInput{
		City:        domain.City(values["city"]),
		Location:    values["location"],
		Dimensions:  values["dimensions"],
		Rate:        parseRate(values["rate"], v),
		Status:      domain.Status(values["status"]),
		Landmark:    values["landmark"],
		Coordinates: values["coordinates"],
		Address:     values["address"],
	}
	return in, v.OrNil()
}

// hoardingPatchFromForm sets only the fields present in the submitted form.
func hoardingPatchFromForm(r *http.Request) (domain.HoardingPatch, error) {
	v := domain.NewValidationError()
	var p domain.HoardingPatch

	str := func(key string) *string {
		if _, ok := r.PostForm[key]; !ok {
			return nil
		}
		s := r.PostForm.Get(key)
		return &s
	}

	if s := str("city"); s != nil {
		c := domain.City(*s)
		p.City = &c
	}
	if s := str("status"); s != nil {
		st := domain.Status(*s)
		p.Status = &st
	}
	if s := str("rate"); s != nil {
		rate := parseRate(*s, v)
		p.Rate = &rate
	}
	p.Location = str("location")
	p.Dimensions = str("dimensions")
	p.Landmark = str("landmark")
	p.Coordinates = str("coordinates")
	p.Address = str("address")
	return p, v.OrNil()
}

func enquiryInputFromForm(hoardingID int64, values formValues) domain.EnquiryInput {
	return domain.EnquiryInput{
		HoardingID: hoardingID,
		Name:       values["name"],
		Phone:      values["phone"],
		Email:      values["email"],
		Message:    values["message"],
		StartDate:  values["start_date"],
		EndDate:    values["end_date"],
	}
}

var enquiryFields = []string{"name", "phone", "email", "message", "start_date", "end_date"}

// parseUploadForm parses a multipart or urlencoded body bounded by maxBytes.
func (s *Server) parseUploadForm(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		return r.ParseMultipartForm(32 << 20)
	}
	return r.ParseForm()
}

// readUploads reads every non-empty file of the "images" field and sniffs
// its type. Browsers submit one empty part when no file was chosen.
func (s *Server) readUploads(r *http.Request) ([]service.Upload, error) {
	if r.MultipartForm == nil {
		return nil, nil
	}

	v := domain.NewValidationError()
	var uploads []service.Upload
	for _, fh := range r.MultipartForm.File["images"] {
		if fh.Size == 0 && fh.Filename == "" {
			continue
		}
		data, err := s.readFile(fh)
		if err != nil {
			return nil, errors.Wrapf(err, "read upload %q", fh.Filename)
		}
		if len(data) == 0 {
			continue
		}
		mimeType, ok := photostore.DetectImageType(data)
		if !ok {
			v.Add("images", fh.Filename+" is not a JPEG, PNG or WebP image")
			continue
		}
		uploads = append(uploads, service.Upload{Data: data, MimeType: mimeType})
	}
	if err := v.OrNil(); err != nil {
		return nil, err
	}
	return uploads, nil
}

func (s *Server) readFile(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer closeWithLog(f, "upload file", s.logger)
	return io.ReadAll(f)
}

// mergeErrors combines the field messages of two validation failures.
func mergeErrors(errs ...error) error {
	v := domain.NewValidationError()
	for _, err := range errs {
		if err == nil {
			continue
		}
		fields := domain.FieldErrors(err)
		if fields == nil {
			return err
		}
		for k, msg := range fields {
			v.Add(k, msg)
		}
	}
	return v.OrNil()
}
