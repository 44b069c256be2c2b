package domain

import (
	"math"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validHoardingInput() HoardingInput {
	return HoardingInput{
		City:       CityRaipur,
		Location:   "MG Road",
		Dimensions: "20x10",
		Rate:       5000,
		Status:     StatusAvailable,
	}
}

func TestHoardingInputValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(in *HoardingInput)
		wantField string
	}{
		{name: "valid", mutate: func(in *HoardingInput) {}},
		{name: "Durg is allowed", mutate: func(in *HoardingInput) { in.City = CityDurg }},
		{name: "missing dimensions", mutate: func(in *HoardingInput) { in.Dimensions = "" }, wantField: "dimensions"},
		{name: "zero rate", mutate: func(in *HoardingInput) { in.Rate = 0 }},
		{name: "unknown city", mutate: func(in *HoardingInput) { in.City = "Bhilai" }, wantField: "city"},
		{name: "lowercase city", mutate: func(in *HoardingInput) { in.City = "raipur" }, wantField: "city"},
		{name: "empty city", mutate: func(in *HoardingInput) { in.City = "" }, wantField: "city"},
		{name: "missing location", mutate: func(in *HoardingInput) { in.Location = "" }, wantField: "location"},
		{name: "negative rate", mutate: func(in *HoardingInput) { in.Rate = -1 }, wantField: "rate"},
		{name: "NaN rate", mutate: func(in *HoardingInput) { in.Rate = math.NaN() }, wantField: "rate"},
		{name: "bad status", mutate: func(in *HoardingInput) { in.Status = "reserved" }, wantField: "status"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validHoardingInput()
			tt.mutate(&in)
			err := in.Validate()
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrValidation))
			assert.Contains(t, FieldErrors(err), tt.wantField)
		})
	}
}

func TestHoardingInputNormalize(t *testing.T) {
	in := HoardingInput{City: " Durg ", Location: "  Station Road "}
	in.Normalize()

	assert.Equal(t, CityDurg, in.City)
	assert.Equal(t, "Station Road", in.Location)
	assert.Equal(t, StatusAvailable, in.Status)
}

func TestHoardingPatchValidateOnlyChecksSetFields(t *testing.T) {
	assert.NoError(t, HoardingPatch{}.Validate())

	rate := 1200.0
	assert.NoError(t, HoardingPatch{Rate: &rate}.Validate())

	city := City("Bilaspur")
	err := HoardingPatch{City: &city}.Validate()
	require.Error(t, err)
	assert.Equal(t, []string{"city"}, keys(FieldErrors(err)))

	empty := ""
	err = HoardingPatch{Location: &empty}.Validate()
	require.Error(t, err)
	assert.Contains(t, FieldErrors(err), "location")

	err = HoardingPatch{Dimensions: &empty}.Validate()
	require.Error(t, err)
	assert.Equal(t, "dimensions is required", FieldErrors(err)["dimensions"])
}

func TestHoardingPatchApply(t *testing.T) {
	h := &Hoarding{ID: 7, City: CityRaipur, Location: "MG Road", Rate: 5000, Status: StatusAvailable}
	status := StatusBooked
	location := "GE Road"
	HoardingPatch{Status: &status, Location: &location}.Apply(h)

	assert.Equal(t, int64(7), h.ID)
	assert.Equal(t, CityRaipur, h.City)
	assert.Equal(t, "GE Road", h.Location)
	assert.Equal(t, 5000.0, h.Rate)
	assert.Equal(t, StatusBooked, h.Status)
}

// contact fills the mandatory enquiry fields that in leaves empty.
func contact(in EnquiryInput) EnquiryInput {
	if in.HoardingID == 0 {
		in.HoardingID = 1
	}
	if in.Name == "" {
		in.Name = "Asha"
	}
	if in.Phone == "" {
		in.Phone = "98765 43210"
	}
	if in.Email == "" {
		in.Email = "a@b.com"
	}
	return in
}

func TestEnquiryInputValidate(t *testing.T) {
	tests := []struct {
		name      string
		in        EnquiryInput
		wantField string
	}{
		{name: "required fields only", in: contact(EnquiryInput{})},
		{name: "full", in: EnquiryInput{HoardingID: 1, Name: "Asha", Phone: "98765", Email: "asha@example.com", StartDate: "2026-11-01", EndDate: "2026-11-30"}},
		{name: "same day", in: contact(EnquiryInput{StartDate: "2026-11-01", EndDate: "2026-11-01"})},
		{name: "missing email", in: EnquiryInput{HoardingID: 1, Name: "Asha", Phone: "98765"}, wantField: "email"},
		{name: "missing name", in: EnquiryInput{HoardingID: 1, Phone: "98765", Email: "a@b.com"}, wantField: "name"},
		{name: "missing phone", in: EnquiryInput{HoardingID: 1, Name: "Asha", Email: "a@b.com"}, wantField: "phone"},
		{name: "malformed email", in: contact(EnquiryInput{Email: "not-an-email"}), wantField: "email"},
		{name: "display name form rejected", in: contact(EnquiryInput{Email: "Asha <a@b.com>"}), wantField: "email"},
		{name: "no hoarding", in: EnquiryInput{Name: "Asha", Phone: "98765", Email: "a@b.com"}, wantField: "hoarding"},
		{name: "bad date", in: contact(EnquiryInput{StartDate: "01/11/2026"}), wantField: "start_date"},
		{name: "end before start", in: contact(EnquiryInput{StartDate: "2026-11-10", EndDate: "2026-11-01"}), wantField: "end_date"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.in.Validate()
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrValidation))
			assert.Contains(t, FieldErrors(err), tt.wantField)
		})
	}
}

func TestValidationErrorMessageIsStable(t *testing.T) {
	v := NewValidationError()
	v.Add("rate", "bad rate")
	v.Add("city", "bad city")
	v.Add("city", "ignored second message")

	assert.Equal(t, "validation failed: city: bad city; rate: bad rate", v.Error())
	assert.Nil(t, NewValidationError().OrNil())
}

func TestFieldErrorsOnOtherErrors(t *testing.T) {
	assert.Nil(t, FieldErrors(ErrNotFound))
	assert.Nil(t, FieldErrors(nil))
}

func keys(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
