package domain

import (
	"math"
	"net/mail"
	"strings"
	"time"
)

const (
	MaxLocationLen = 200
	MaxTextLen     = 500
	MaxMessageLen  = 2000

	// DateLayout is the wire format of enquiry start and end dates.
	DateLayout = "2006-01-02"
)

// HoardingInput is the validated payload for creating a hoarding.
type HoardingInput struct {
	City        City
	Location    string
	Dimensions  string
	Rate        float64
	Status      Status
	Landmark    string
	Coordinates string
	Address     string
}

// Normalize trims text fields and defaults Status to available.
func (in *HoardingInput) Normalize() {
	in.City = City(strings.TrimSpace(string(in.City)))
	in.Location = strings.TrimSpace(in.Location)
	in.Dimensions = strings.TrimSpace(in.Dimensions)
	in.Landmark = strings.TrimSpace(in.Landmark)
	in.Coordinates = strings.TrimSpace(in.Coordinates)
	in.Address = strings.TrimSpace(in.Address)
	if in.Status == "" {
		in.Status = StatusAvailable
	}
}

func (in HoardingInput) Validate() error {
	v := NewValidationError()
	checkCity(v, in.City)
	checkLocation(v, in.Location)
	checkRate(v, in.Rate)
	checkStatus(v, in.Status)
	checkRequired(v, "dimensions", in.Dimensions)
	checkText(v, "landmark", in.Landmark)
	checkText(v, "coordinates", in.Coordinates)
	checkText(v, "address", in.Address)
	return v.OrNil()
}

// HoardingPatch is a partial update. Nil fields are left unchanged.
type HoardingPatch struct {
	City        *City
	Location    *string
	Dimensions  *string
	Rate        *float64
	Status      *Status
	Landmark    *string
	Coordinates *string
	Address     *string
}

func (p *HoardingPatch) Normalize() {
	trim := func(s *string) {
		if s != nil {
			*s = strings.TrimSpace(*s)
		}
	}
	if p.City != nil {
		c := City(strings.TrimSpace(string(*p.City)))
		p.City = &c
	}
	trim(p.Location)
	trim(p.Dimensions)
	trim(p.Landmark)
	trim(p.Coordinates)
	trim(p.Address)
}

func (p HoardingPatch) Validate() error {
	v := NewValidationError()
	if p.City != nil {
		checkCity(v, *p.City)
	}
	if p.Location != nil {
		checkLocation(v, *p.Location)
	}
	if p.Rate != nil {
		checkRate(v, *p.Rate)
	}
	if p.Status != nil {
		checkStatus(v, *p.Status)
	}
	if p.Dimensions != nil {
		checkRequired(v, "dimensions", *p.Dimensions)
	}
	if p.Landmark != nil {
		checkText(v, "landmark", *p.Landmark)
	}
	if p.Coordinates != nil {
		checkText(v, "coordinates", *p.Coordinates)
	}
	if p.Address != nil {
		checkText(v, "address", *p.Address)
	}
	return v.OrNil()
}

// Apply copies every set field of p onto h.
func (p HoardingPatch) Apply(h *Hoarding) {
	if p.City != nil {
		h.City = *p.City
	}
	if p.Location != nil {
		h.Location = *p.Location
	}
	if p.Dimensions != nil {
		h.Dimensions = *p.Dimensions
	}
	if p.Rate != nil {
		h.Rate = *p.Rate
	}
	if p.Status != nil {
		h.Status = *p.Status
	}
	if p.Landmark != nil {
		h.Landmark = *p.Landmark
	}
	if p.Coordinates != nil {
		h.Coordinates = *p.Coordinates
	}
	if p.Address != nil {
		h.Address = *p.Address
	}
}

// EnquiryInput is a booking enquiry as submitted by a prospective advertiser.
// Name, phone and email are mandatory.
type EnquiryInput struct {
	HoardingID int64
	Name       string
	Phone      string
	Email      string
	Message    string
	StartDate  string
	EndDate    string
}

func (in *EnquiryInput) Normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.Phone = strings.TrimSpace(in.Phone)
	in.Email = strings.TrimSpace(in.Email)
	in.Message = strings.TrimSpace(in.Message)
	in.StartDate = strings.TrimSpace(in.StartDate)
	in.EndDate = strings.TrimSpace(in.EndDate)
}

func (in EnquiryInput) Validate() error {
	v := NewValidationError()

	if in.HoardingID <= 0 {
		v.Add("hoarding", "a hoarding must be selected")
	}

	switch {
	case in.Email == "":
		v.Add("email", "email is required")
	case len(in.Email) > MaxTextLen:
		v.Add("email", "email is too long")
	default:
		if addr, err := mail.ParseAddress(in.Email); err != nil || addr.Address != in.Email {
			v.Add("email", "email is not a valid address")
		}
	}

	checkRequired(v, "name", in.Name)
	checkRequired(v, "phone", in.Phone)
	if len(in.Message) > MaxMessageLen {
		v.Add("message", "message is too long")
	}

	start, startOK := parseDate(v, "start_date", in.StartDate)
	end, endOK := parseDate(v, "end_date", in.EndDate)
	if startOK && endOK && end.Before(start) {
		v.Add("end_date", "end date cannot be before start date")
	}

	return v.OrNil()
}

func parseDate(v *ValidationError, field, s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		v.Add(field, "date must be YYYY-MM-DD")
		return time.Time{}, false
	}
	return t, true
}

func checkCity(v *ValidationError, c City) {
	if !c.Valid() {
		v.Add("city", "city must be Raipur or Durg")
	}
}

func checkLocation(v *ValidationError, location string) {
	switch {
	case location == "":
		v.Add("location", "location is required")
	case len(location) > MaxLocationLen:
		v.Add("location", "location is too long")
	}
}

func checkRate(v *ValidationError, rate float64) {
	if math.IsNaN(rate) || math.IsInf(rate, 0) || rate < 0 {
		v.Add("rate", "rate must be a non-negative number")
	}
}

func checkStatus(v *ValidationError, s Status) {
	if !s.Valid() {
		v.Add("status", "status must be available or booked")
	}
}

func checkRequired(v *ValidationError, field, s string) {
	if s == "" {
		v.Add(field, field+" is required")
		return
	}
	checkText(v, field, s)
}

func checkText(v *ValidationError, field, s string) {
	if len(s) > MaxTextLen {
		v.Add(field, field+" is too long")
	}
}
