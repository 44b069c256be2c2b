package service

import (
	"context"

	"github.com/cockroachdb/errors"

	"github.com/vbonduro/hoardings/internal/domain"
	"github.com/vbonduro/hoardings/internal/metrics"
)

// SubmitEnquiry records a booking enquiry for an available hoarding and
// sends exactly one notification for it. When the notification fails the
// saved enquiry is still returned, together with an error marked
// domain.ErrNotification.
func (s *HoardingService) SubmitEnquiry(ctx context.Context, in domain.EnquiryInput) (*domain.Enquiry, error) {
	in.Normalize()
	if err := in.Validate(); err != nil {
		return nil, err
	}

	h, err := s.GetHoarding(ctx, in.HoardingID)
	if err != nil {
		return nil, err
	}
	if !h.Available() {
		v := domain.NewValidationError()
		v.Add("hoarding", "this hoarding is already booked")
		return nil, v
	}

	e, err := s.enquiries.Create(ctx, in)
	if err != nil {
		return nil, errors.Wrapf(err, "save enquiry for hoarding %d", in.HoardingID)
	}
	metrics.ObserveEnquiry()
	s.logger.Info("enquiry saved", "enquiry_id", e.ID, "hoarding_id", e.HoardingID)

	// The enquiry is already committed; a client disconnect must not cut the send short.
	nerr := s.notifier.Notify(context.WithoutCancel(ctx), e, h)
	metrics.ObserveNotification(nerr)
	if nerr != nil {
		s.logger.Error("enquiry notification failed", "enquiry_id", e.ID, "hoarding_id", e.HoardingID, "error", nerr)
		return e, errors.Mark(errors.Wrapf(nerr, "notify enquiry %d", e.ID), domain.ErrNotification)
	}
	s.logger.Info("enquiry notification sent", "enquiry_id", e.ID)
	return e, nil
}

// EnquirySummary pairs an enquiry with its hoarding. Hoarding is nil when the
// hoarding has been deleted since.
type EnquirySummary struct {
	*domain.Enquiry
	Hoarding *domain.Hoarding
}

// ListEnquiries returns enquiries newest first. A hoardingID of zero lists
// enquiries for every hoarding.
func (s *HoardingService) ListEnquiries(ctx context.Context, hoardingID int64) ([]*EnquirySummary, error) {
	var (
		enquiries []*domain.Enquiry
		err       error
	)
	if hoardingID > 0 {
		enquiries, err = s.enquiries.ListByHoardingID(ctx, hoardingID)
	} else {
		enquiries, err = s.enquiries.List(ctx)
	}
	if err != nil {
		return nil, errors.Wrap(err, "list enquiries")
	}

	hoardings, err := s.hoardings.List(ctx, domain.HoardingFilter{})
	if err != nil {
		return nil, errors.Wrap(err, "list hoardings for enquiries")
	}
	byID := make(map[int64]*domain.Hoarding, len(hoardings))
	for _, h := range hoardings {
		byID[h.ID] = h
	}

	summaries := make([]*EnquirySummary, 0, len(enquiries))
	for _, e := range enquiries {
		summaries = append(summaries, &EnquirySummary{Enquiry: e, Hoarding: byID[e.HoardingID]})
	}
	return summaries, nil
}
