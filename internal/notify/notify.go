// Package notify sends the email that tells the operator about a new
// booking enquiry.
package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/vbonduro/hoardings/internal/domain"
)

type Notifier interface {
	Notify(ctx context.Context, enquiry *domain.Enquiry, hoarding *domain.Hoarding) error
}

// Message is the composed email, independent of how it is delivered.
type Message struct {
	To      string
	ReplyTo string
	Subject string
	Body    string
}

func Compose(to string, e *domain.Enquiry, h *domain.Hoarding) Message {
	return Message{
		To:      to,
		ReplyTo: e.Email,
		Subject: composeSubject(e, h),
		Body:    composeBody(e, h),
	}
}

func composeSubject(e *domain.Enquiry, h *domain.Hoarding) string {
	return fmt.Sprintf("Booking enquiry #%d: %s, %s", e.ID, h.Location, h.City)
}

func composeBody(e *domain.Enquiry, h *domain.Hoarding) string {
	var b strings.Builder
	b.WriteString("A new booking enquiry was submitted.\n\n")

	b.WriteString("Hoarding\n")
	writeField(&b, "ID", fmt.Sprintf("%d", h.ID))
	writeField(&b, "City", string(h.City))
	writeField(&b, "Location", h.Location)
	writeField(&b, "Dimensions", h.Dimensions)
	writeField(&b, "Rate", fmt.Sprintf("Rs %.2f / month", h.Rate))
	writeField(&b, "Landmark", h.Landmark)
	writeField(&b, "Address", h.Address)

	b.WriteString("\nEnquiry\n")
	writeField(&b, "ID", fmt.Sprintf("%d", e.ID))
	writeField(&b, "Name", e.Name)
	writeField(&b, "Email", e.Email)
	writeField(&b, "Phone", e.Phone)
	writeField(&b, "From", e.StartDate)
	writeField(&b, "To", e.EndDate)
	writeField(&b, "Received", e.CreatedAt.UTC().Format("2006-01-02 15:04 MST"))
	if e.Message != "" {
		b.WriteString("\nMessage\n")
		b.WriteString(e.Message)
		b.WriteString("\n")
	}
	return b.String()
}

// writeField skips empty values so optional fields do not leave blank lines.
func writeField(b *strings.Builder, label, value string) {
	if value == "" {
		return
	}
	fmt.Fprintf(b, "  %-11s %s\n", label+":", value)
}
