package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/vbonduro/hoardings/internal/domain"
)

type EnquiryStore struct {
	db *sql.DB
}

func NewEnquiryStore(db *sql.DB) *EnquiryStore {
	return &EnquiryStore{db: db}
}

const enquiryColumns = `id, hoarding_id, name, phone, email, message, start_date, end_date, created_at`

// Create inserts the enquiry only if its hoarding exists at that moment;
// otherwise it returns domain.ErrNotFound.
func (s *EnquiryStore) Create(ctx context.Context, in domain.EnquiryInput) (*domain.Enquiry, error) {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO enquiries (hoarding_id, name, phone, email, message, start_date, end_date)
		SELECT ?, ?, ?, ?, ?, ?, ?
		WHERE EXISTS (SELECT 1 FROM hoardings WHERE id = ?)
	`, in.HoardingID, in.Name, in.Phone, in.Email, in.Message, in.StartDate, in.EndDate, in.HoardingID)
	if err != nil {
		return nil, fmt.Errorf("failed to create enquiry: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return nil, fmt.Errorf("hoarding %d: %w", in.HoardingID, domain.ErrNotFound)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get last insert id: %w", err)
	}

	return s.GetByID(ctx, id)
}

func (s *EnquiryStore) GetByID(ctx context.Context, id int64) (*domain.Enquiry, error) {
	e, err := scanEnquiry(s.db.QueryRowContext(ctx, `
		SELECT `+enquiryColumns+` FROM enquiries WHERE id = ?
	`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get enquiry: %w", err)
	}
	return e, nil
}

// List returns enquiries newest first.
func (s *EnquiryStore) List(ctx context.Context) ([]*domain.Enquiry, error) {
	return s.query(ctx, `
		SELECT `+enquiryColumns+` FROM enquiries ORDER BY id DESC
	`)
}

func (s *EnquiryStore) ListByHoardingID(ctx context.Context, hoardingID int64) ([]*domain.Enquiry, error) {
	return s.query(ctx, `
		SELECT `+enquiryColumns+` FROM enquiries WHERE hoarding_id = ? ORDER BY id DESC
	`, hoardingID)
}

func (s *EnquiryStore) query(ctx context.Context, query string, args ...any) ([]*domain.Enquiry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list enquiries: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("failed to close rows", "error", err)
		}
	}()

	var enquiries []*domain.Enquiry
	for rows.Next() {
		e, err := scanEnquiry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan enquiry: %w", err)
		}
		enquiries = append(enquiries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating enquiries: %w", err)
	}
	return enquiries, nil
}

func scanEnquiry(row scanner) (*domain.Enquiry, error) {
	e := &domain.Enquiry{}
	err := row.Scan(&e.ID, &e.HoardingID, &e.Name, &e.Phone, &e.Email, &e.Message, &e.StartDate, &e.EndDate, &e.CreatedAt)
	if err != nil {
		return nil, err
	}
	return e, nil
}
