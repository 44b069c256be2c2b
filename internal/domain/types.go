package domain

import (
	"context"
	"time"
)

type City string

const (
	CityRaipur City = "Raipur"
	CityDurg   City = "Durg"
)

// Cities lists the cities a hoarding may be located in, in display order.
var Cities = []City{CityRaipur, CityDurg}

func (c City) Valid() bool {
	return c == CityRaipur || c == CityDurg
}

type Status string

const (
	StatusAvailable Status = "available"
	StatusBooked    Status = "booked"
)

var Statuses = []Status{StatusAvailable, StatusBooked}

func (s Status) Valid() bool {
	return s == StatusAvailable || s == StatusBooked
}

type Hoarding struct {
	ID          int64
	City        City
	Location    string
	Dimensions  string
	Rate        float64
	Status      Status
	Landmark    string
	Coordinates string
	Address     string
	Images      []Image
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Available reports whether the hoarding can take new enquiries.
func (h *Hoarding) Available() bool {
	return h.Status == StatusAvailable
}

type Image struct {
	ID         int64
	HoardingID int64
	StorageKey string
	MimeType   string
	Position   int
	UploadedAt time.Time
}

// ImageRef is a stored file that has not yet been attached to a hoarding.
type ImageRef struct {
	StorageKey string
	MimeType   string
}

// AttachImagesFunc is called while a new hoarding is being created, once its
// id is known. It returns the refs of the images written for it.
type AttachImagesFunc func(ctx context.Context, hoardingID int64) ([]ImageRef, error)

type Enquiry struct {
	ID         int64
	HoardingID int64
	Name       string
	Phone      string
	Email      string
	Message    string
	StartDate  string
	EndDate    string
	CreatedAt  time.Time
}

// HoardingFilter narrows List results. Zero values match everything.
type HoardingFilter struct {
	City         City
	Status       Status
	SizeContains string
}
