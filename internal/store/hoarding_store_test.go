package store

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/hoardings/internal/db"
	"github.com/vbonduro/hoardings/internal/domain"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	d, err := db.OpenForTesting()
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })
	return d
}

func mgRoad() domain.HoardingInput {
	return domain.HoardingInput{
		City:        domain.CityRaipur,
		Location:    "MG Road",
		Dimensions:  "20x10",
		Rate:        5000,
		Status:      domain.StatusAvailable,
		Landmark:    "Jaistambh Chowk",
		Coordinates: "21.2380,81.6337",
		Address:     "MG Road, Raipur",
	}
}

// withImages attaches fixed refs to a new hoarding.
func withImages(refs []domain.ImageRef) domain.AttachImagesFunc {
	return func(context.Context, int64) ([]domain.ImageRef, error) { return refs, nil }
}

func TestHoardingStoreCreate(t *testing.T) {
	hoardings := NewHoardingStore(openTestDB(t))
	ctx := context.Background()

	h, err := hoardings.Create(ctx, mgRoad(), nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), h.ID)
	assert.Equal(t, domain.CityRaipur, h.City)
	assert.Equal(t, "MG Road", h.Location)
	assert.Equal(t, 5000.0, h.Rate)
	assert.Equal(t, domain.StatusAvailable, h.Status)
	assert.Empty(t, h.Images)
	assert.False(t, h.CreatedAt.IsZero())
}

func TestHoardingStoreCreateThenGetIsEquivalent(t *testing.T) {
	hoardings := NewHoardingStore(openTestDB(t))
	ctx := context.Background()

	created, err := hoardings.Create(ctx, mgRoad(), withImages([]domain.ImageRef{
		{StorageKey: "hoarding_1/a.jpg", MimeType: "image/jpeg"},
		{StorageKey: "hoarding_1/b.png", MimeType: "image/png"},
	}))
	require.NoError(t, err)

	got, err := hoardings.GetByID(ctx, created.ID)
	require.NoError(t, err)
	if diff := cmp.Diff(created, got); diff != "" {
		t.Errorf("GetByID mismatch (-created +got):\n%s", diff)
	}
	require.Len(t, got.Images, 2)
	assert.Equal(t, 1, got.Images[0].Position)
	assert.Equal(t, "hoarding_1/a.jpg", got.Images[0].StorageKey)
	assert.Equal(t, 2, got.Images[1].Position)
}

func TestHoardingStoreCreate_AttachFailureRollsBack(t *testing.T) {
	d := openTestDB(t)
	hoardings := NewHoardingStore(d)
	ctx := context.Background()

	var seenID int64
	diskFull := errors.New("disk full")
	_, err := hoardings.Create(ctx, mgRoad(), func(_ context.Context, id int64) ([]domain.ImageRef, error) {
		seenID = id
		return nil, diskFull
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, diskFull))
	assert.Equal(t, int64(1), seenID)

	list, err := hoardings.List(ctx, domain.HoardingFilter{})
	require.NoError(t, err)
	assert.Empty(t, list)

	// The id handed to the failed attach is not used up.
	h, err := hoardings.Create(ctx, mgRoad(), nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), h.ID)
}

func TestHoardingStoreCreate_AttachSeesNewID(t *testing.T) {
	hoardings := NewHoardingStore(openTestDB(t))
	ctx := context.Background()

	h, err := hoardings.Create(ctx, mgRoad(), func(_ context.Context, id int64) ([]domain.ImageRef, error) {
		return []domain.ImageRef{{StorageKey: fmt.Sprintf("hoarding_%d/a.jpg", id), MimeType: "image/jpeg"}}, nil
	})
	require.NoError(t, err)
	require.Len(t, h.Images, 1)
	assert.Equal(t, "hoarding_1/a.jpg", h.Images[0].StorageKey)
	assert.Equal(t, h.ID, h.Images[0].HoardingID)
}

func TestHoardingStoreGetByID_Missing(t *testing.T) {
	hoardings := NewHoardingStore(openTestDB(t))

	h, err := hoardings.GetByID(context.Background(), 42)
	require.NoError(t, err)
	assert.Nil(t, h)
}

func TestHoardingStoreUpdate(t *testing.T) {
	hoardings := NewHoardingStore(openTestDB(t))
	ctx := context.Background()

	created, err := hoardings.Create(ctx, mgRoad(), withImages([]domain.ImageRef{{StorageKey: "k1", MimeType: "image/jpeg"}}))
	require.NoError(t, err)

	status := domain.StatusBooked
	rate := 6500.0
	updated, err := hoardings.Update(ctx, created.ID, domain.HoardingPatch{Status: &status, Rate: &rate},
		[]domain.ImageRef{{StorageKey: "k2", MimeType: "image/png"}})
	require.NoError(t, err)

	assert.Equal(t, domain.StatusBooked, updated.Status)
	assert.Equal(t, 6500.0, updated.Rate)
	assert.Equal(t, "MG Road", updated.Location)
	require.Len(t, updated.Images, 2)
	assert.Equal(t, "k1", updated.Images[0].StorageKey)
	assert.Equal(t, "k2", updated.Images[1].StorageKey)
}

func TestHoardingStoreUpdate_NotFoundLeavesStoreUnchanged(t *testing.T) {
	hoardings := NewHoardingStore(openTestDB(t))
	ctx := context.Background()

	created, err := hoardings.Create(ctx, mgRoad(), nil)
	require.NoError(t, err)
	before, err := hoardings.List(ctx, domain.HoardingFilter{})
	require.NoError(t, err)

	location := "Somewhere else"
	_, err = hoardings.Update(ctx, created.ID+100, domain.HoardingPatch{Location: &location},
		[]domain.ImageRef{{StorageKey: "orphan", MimeType: "image/jpeg"}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	after, err := hoardings.List(ctx, domain.HoardingFilter{})
	require.NoError(t, err)
	if diff := cmp.Diff(before, after); diff != "" {
		t.Errorf("store changed after failed update:\n%s", diff)
	}
}

func TestHoardingStoreAppendImagesPreservesOrder(t *testing.T) {
	hoardings := NewHoardingStore(openTestDB(t))
	ctx := context.Background()

	created, err := hoardings.Create(ctx, mgRoad(), withImages([]domain.ImageRef{{StorageKey: "first", MimeType: "image/jpeg"}}))
	require.NoError(t, err)

	added, err := hoardings.AppendImages(ctx, created.ID, []domain.ImageRef{
		{StorageKey: "second", MimeType: "image/jpeg"},
		{StorageKey: "third", MimeType: "image/png"},
	})
	require.NoError(t, err)
	require.Len(t, added, 2)
	assert.Equal(t, 2, added[0].Position)
	assert.Equal(t, 3, added[1].Position)

	_, err = hoardings.AppendImages(ctx, created.ID, []domain.ImageRef{{StorageKey: "fourth", MimeType: "image/webp"}})
	require.NoError(t, err)

	got, err := hoardings.GetByID(ctx, created.ID)
	require.NoError(t, err)
	var keys []string
	for _, img := range got.Images {
		keys = append(keys, img.StorageKey)
	}
	assert.Equal(t, []string{"first", "second", "third", "fourth"}, keys)
}

func TestHoardingStoreAppendImages_NotFound(t *testing.T) {
	hoardings := NewHoardingStore(openTestDB(t))

	_, err := hoardings.AppendImages(context.Background(), 99, []domain.ImageRef{{StorageKey: "x", MimeType: "image/jpeg"}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestHoardingStoreList(t *testing.T) {
	hoardings := NewHoardingStore(openTestDB(t))
	ctx := context.Background()

	_, err := hoardings.Create(ctx, mgRoad(), nil)
	require.NoError(t, err)
	_, err = hoardings.Create(ctx, domain.HoardingInput{
		City: domain.CityDurg, Location: "Station Road", Dimensions: "40X20", Rate: 8000, Status: domain.StatusBooked,
	}, nil)
	require.NoError(t, err)
	_, err = hoardings.Create(ctx, domain.HoardingInput{
		City: domain.CityRaipur, Location: "Telibandha", Dimensions: "30x15", Rate: 7000, Status: domain.StatusAvailable,
	}, nil)
	require.NoError(t, err)

	tests := []struct {
		name      string
		filter    domain.HoardingFilter
		wantNames []string
	}{
		{name: "all in id order", filter: domain.HoardingFilter{}, wantNames: []string{"MG Road", "Station Road", "Telibandha"}},
		{name: "city", filter: domain.HoardingFilter{City: domain.CityRaipur}, wantNames: []string{"MG Road", "Telibandha"}},
		{name: "status", filter: domain.HoardingFilter{Status: domain.StatusBooked}, wantNames: []string{"Station Road"}},
		{name: "size is case-insensitive", filter: domain.HoardingFilter{SizeContains: "40x"}, wantNames: []string{"Station Road"}},
		{name: "combined", filter: domain.HoardingFilter{City: domain.CityDurg, Status: domain.StatusAvailable}, wantNames: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			list, err := hoardings.List(ctx, tt.filter)
			require.NoError(t, err)
			var names []string
			for _, h := range list {
				names = append(names, h.Location)
			}
			assert.Equal(t, tt.wantNames, names)
		})
	}
}

func TestHoardingStoreListIsRestartable(t *testing.T) {
	hoardings := NewHoardingStore(openTestDB(t))
	ctx := context.Background()

	_, err := hoardings.Create(ctx, mgRoad(), withImages([]domain.ImageRef{{StorageKey: "k", MimeType: "image/jpeg"}}))
	require.NoError(t, err)

	first, err := hoardings.List(ctx, domain.HoardingFilter{})
	require.NoError(t, err)
	second, err := hoardings.List(ctx, domain.HoardingFilter{})
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(first, second, cmpopts.EquateEmpty()))
}

func TestHoardingStoreDelete(t *testing.T) {
	d := openTestDB(t)
	hoardings := NewHoardingStore(d)
	ctx := context.Background()

	created, err := hoardings.Create(ctx, mgRoad(), withImages([]domain.ImageRef{{StorageKey: "gone.jpg", MimeType: "image/jpeg"}}))
	require.NoError(t, err)

	images, err := hoardings.Delete(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, images, 1)
	assert.Equal(t, "gone.jpg", images[0].StorageKey)

	got, err := hoardings.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	var count int
	require.NoError(t, d.QueryRow("SELECT COUNT(*) FROM hoarding_images").Scan(&count))
	assert.Zero(t, count)

	_, err = hoardings.Delete(ctx, created.ID)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}
