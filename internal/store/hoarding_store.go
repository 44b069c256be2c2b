package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/vbonduro/hoardings/internal/domain"
)

type HoardingStore struct {
	db *sql.DB
}

func NewHoardingStore(db *sql.DB) *HoardingStore {
	return &HoardingStore{db: db}
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const hoardingColumns = `id, city, location, dimensions, rate, status, landmark, coordinates, address, created_at, updated_at`

const imageColumns = `id, hoarding_id, storage_key, mime_type, position, uploaded_at`

// Create inserts the hoarding and the refs returned by attach in one
// transaction. attach may be nil. If it fails the insert is rolled back, so
// the id is not used up and no reader ever sees the row.
func (s *HoardingStore) Create(ctx context.Context, in domain.HoardingInput, attach domain.AttachImagesFunc) (*domain.Hoarding, error) {
	var id int64
	err := withTx(ctx, s.db, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `
			INSERT INTO hoardings (city, location, dimensions, rate, status, landmark, coordinates, address)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, string(in.City), in.Location, in.Dimensions, in.Rate, string(in.Status), in.Landmark, in.Coordinates, in.Address)
		if err != nil {
			return err
		}

		id, err = result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get last insert id: %w", err)
		}

		if attach == nil {
			return nil
		}
		refs, err := attach(ctx, id)
		if err != nil {
			return err
		}
		_, err = insertImages(ctx, tx, id, refs)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create hoarding: %w", err)
	}

	return s.GetByID(ctx, id)
}

// GetByID returns the hoarding with its images in upload order, or nil if it
// does not exist.
func (s *HoardingStore) GetByID(ctx context.Context, id int64) (*domain.Hoarding, error) {
	return getHoarding(ctx, s.db, id)
}

// Update applies patch and appends images in one transaction. It returns
// domain.ErrNotFound when the hoarding does not exist.
func (s *HoardingStore) Update(ctx context.Context, id int64, patch domain.HoardingPatch, images []domain.ImageRef) (*domain.Hoarding, error) {
	err := withTx(ctx, s.db, func(tx *sql.Tx) error {
		h, err := getHoarding(ctx, tx, id)
		if err != nil {
			return err
		}
		if h == nil {
			return domain.ErrNotFound
		}

		patch.Apply(h)
		_, err = tx.ExecContext(ctx, `
			UPDATE hoardings
			SET city = ?, location = ?, dimensions = ?, rate = ?, status = ?,
			    landmark = ?, coordinates = ?, address = ?, updated_at = datetime('now')
			WHERE id = ?
		`, string(h.City), h.Location, h.Dimensions, h.Rate, string(h.Status), h.Landmark, h.Coordinates, h.Address, id)
		if err != nil {
			return err
		}

		_, err = insertImages(ctx, tx, id, images)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update hoarding: %w", err)
	}

	return s.GetByID(ctx, id)
}

// AppendImages attaches images after the hoarding's current last image.
func (s *HoardingStore) AppendImages(ctx context.Context, id int64, images []domain.ImageRef) ([]domain.Image, error) {
	var added []domain.Image
	err := withTx(ctx, s.db, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `
			UPDATE hoardings SET updated_at = datetime('now') WHERE id = ?
		`, id)
		if err != nil {
			return err
		}
		if n, err := result.RowsAffected(); err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		} else if n == 0 {
			return domain.ErrNotFound
		}

		added, err = insertImages(ctx, tx, id, images)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to append images: %w", err)
	}
	return added, nil
}

func (s *HoardingStore) List(ctx context.Context, filter domain.HoardingFilter) ([]*domain.Hoarding, error) {
	var (
		where []string
		args  []any
	)
	if filter.City != "" {
		where = append(where, "city = ?")
		args = append(args, string(filter.City))
	}
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(filter.Status))
	}
	if q := strings.TrimSpace(filter.SizeContains); q != "" {
		where = append(where, "LOWER(dimensions) LIKE ?")
		args = append(args, "%"+strings.ToLower(q)+"%")
	}

	query := `SELECT ` + hoardingColumns + ` FROM hoardings`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY id ASC`

	hoardings, err := s.queryHoardings(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	// Rows must be closed before loading images: the pool has one connection.
	for _, h := range hoardings {
		h.Images, err = listImages(ctx, s.db, h.ID)
		if err != nil {
			return nil, err
		}
	}
	return hoardings, nil
}

func (s *HoardingStore) queryHoardings(ctx context.Context, query string, args ...any) ([]*domain.Hoarding, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list hoardings: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("failed to close rows", "error", err)
		}
	}()

	var hoardings []*domain.Hoarding
	for rows.Next() {
		h, err := scanHoarding(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan hoarding: %w", err)
		}
		hoardings = append(hoardings, h)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating hoardings: %w", err)
	}
	return hoardings, nil
}

// Delete removes the hoarding and its image refs and returns the refs so the
// caller can remove the files.
func (s *HoardingStore) Delete(ctx context.Context, id int64) ([]domain.Image, error) {
	var images []domain.Image
	err := withTx(ctx, s.db, func(tx *sql.Tx) error {
		var err error
		images, err = listImages(ctx, tx, id)
		if err != nil {
			return err
		}

		result, err := tx.ExecContext(ctx, `DELETE FROM hoardings WHERE id = ?`, id)
		if err != nil {
			return err
		}
		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if rowsAffected == 0 {
			return domain.ErrNotFound
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to delete hoarding: %w", err)
	}
	return images, nil
}

func getHoarding(ctx context.Context, q querier, id int64) (*domain.Hoarding, error) {
	h, err := scanHoarding(q.QueryRowContext(ctx, `
		SELECT `+hoardingColumns+` FROM hoardings WHERE id = ?
	`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get hoarding: %w", err)
	}

	h.Images, err = listImages(ctx, q, id)
	if err != nil {
		return nil, err
	}
	return h, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanHoarding(row scanner) (*domain.Hoarding, error) {
	h := &domain.Hoarding{}
	var city, status string
	err := row.Scan(&h.ID, &city, &h.Location, &h.Dimensions, &h.Rate, &status,
		&h.Landmark, &h.Coordinates, &h.Address, &h.CreatedAt, &h.UpdatedAt)
	if err != nil {
		return nil, err
	}
	h.City = domain.City(city)
	h.Status = domain.Status(status)
	return h, nil
}

func listImages(ctx context.Context, q querier, hoardingID int64) ([]domain.Image, error) {
	return queryImages(ctx, q, `
		SELECT `+imageColumns+` FROM hoarding_images
		WHERE hoarding_id = ? ORDER BY position ASC
	`, hoardingID)
}

func queryImages(ctx context.Context, q querier, query string, args ...any) ([]domain.Image, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list images: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("failed to close rows", "error", err)
		}
	}()

	var images []domain.Image
	for rows.Next() {
		var img domain.Image
		if err := rows.Scan(&img.ID, &img.HoardingID, &img.StorageKey, &img.MimeType, &img.Position, &img.UploadedAt); err != nil {
			return nil, fmt.Errorf("failed to scan image: %w", err)
		}
		images = append(images, img)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating images: %w", err)
	}
	return images, nil
}

// insertImages appends refs after the current highest position and returns
// the new rows in order.
func insertImages(ctx context.Context, tx *sql.Tx, hoardingID int64, refs []domain.ImageRef) ([]domain.Image, error) {
	if len(refs) == 0 {
		return nil, nil
	}

	var last int
	if err := tx.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(position), 0) FROM hoarding_images WHERE hoarding_id = ?
	`, hoardingID).Scan(&last); err != nil {
		return nil, fmt.Errorf("failed to get last image position: %w", err)
	}

	for i, ref := range refs {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO hoarding_images (hoarding_id, storage_key, mime_type, position) VALUES (?, ?, ?, ?)
		`, hoardingID, ref.StorageKey, ref.MimeType, last+i+1); err != nil {
			return nil, fmt.Errorf("failed to insert image: %w", err)
		}
	}

	return queryImages(ctx, tx, `
		SELECT `+imageColumns+` FROM hoarding_images
		WHERE hoarding_id = ? AND position > ? ORDER BY position ASC
	`, hoardingID, last)
}

func withTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rerr := tx.Rollback(); rerr != nil {
			slog.Error("failed to roll back transaction", "error", rerr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
