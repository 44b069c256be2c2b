package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/vbonduro/hoardings/internal/cache"
	"github.com/vbonduro/hoardings/internal/domain"
	"github.com/vbonduro/hoardings/internal/metrics"
	"github.com/vbonduro/hoardings/internal/notify"
	"github.com/vbonduro/hoardings/internal/photostore"
)

// MaxImagesPerUpload bounds the number of files accepted by one form action.
const MaxImagesPerUpload = 5

// hoardingRepository is the subset of store.HoardingStore that HoardingService requires.
type hoardingRepository interface {
	Create(ctx context.Context, in domain.HoardingInput, attach domain.AttachImagesFunc) (*domain.Hoarding, error)
	GetByID(ctx context.Context, id int64) (*domain.Hoarding, error)
	Update(ctx context.Context, id int64, patch domain.HoardingPatch, images []domain.ImageRef) (*domain.Hoarding, error)
	AppendImages(ctx context.Context, id int64, images []domain.ImageRef) ([]domain.Image, error)
	List(ctx context.Context, filter domain.HoardingFilter) ([]*domain.Hoarding, error)
	Delete(ctx context.Context, id int64) ([]domain.Image, error)
}

// enquiryRepository is the subset of store.EnquiryStore that HoardingService requires.
type enquiryRepository interface {
	Create(ctx context.Context, in domain.EnquiryInput) (*domain.Enquiry, error)
	List(ctx context.Context) ([]*domain.Enquiry, error)
	ListByHoardingID(ctx context.Context, hoardingID int64) ([]*domain.Enquiry, error)
}

// Upload is one image file received from a form.
type Upload struct {
	Data     []byte
	MimeType string
}

type HoardingService struct {
	hoardings hoardingRepository
	enquiries enquiryRepository
	photoStg  photostore.PhotoStore
	notifier  notify.Notifier
	cache     cache.Cache
	cacheTTL  time.Duration
	logger    *slog.Logger
}

func NewHoardingService(
	hoardings hoardingRepository,
	enquiries enquiryRepository,
	photoStg photostore.PhotoStore,
	notifier notify.Notifier,
	listCache cache.Cache,
	cacheTTL time.Duration,
	logger *slog.Logger,
) *HoardingService {
	if listCache == nil {
		listCache = cache.Nop{}
	}
	return &HoardingService{
		hoardings: hoardings,
		enquiries: enquiries,
		photoStg:  photoStg,
		notifier:  notifier,
		cache:     listCache,
		cacheTTL:  cacheTTL,
		logger:    logger,
	}
}

// CreateHoarding validates in and creates the record with its uploads. The
// files are written while the insert is still uncommitted; if any write
// fails the insert is rolled back and the error is marked domain.ErrStorage.
func (s *HoardingService) CreateHoarding(ctx context.Context, in domain.HoardingInput, uploads []Upload) (*domain.Hoarding, error) {
	in.Normalize()
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if err := validateUploads(uploads); err != nil {
		return nil, err
	}

	var refs []domain.ImageRef
	h, err := s.hoardings.Create(ctx, in, func(ctx context.Context, id int64) ([]domain.ImageRef, error) {
		saved, err := s.saveUploads(ctx, id, uploads)
		if err != nil {
			return nil, err
		}
		refs = saved
		return saved, nil
	})
	if err != nil {
		// Files written before a failed commit are orphans.
		s.removeFiles(ctx, refs)
		if errors.Is(err, domain.ErrStorage) {
			return nil, err
		}
		return nil, errors.Wrap(err, "create hoarding")
	}

	metrics.ObserveImagesStored(len(refs))
	s.invalidateLists(ctx)
	s.logger.Info("hoarding created", "hoarding_id", h.ID, "city", h.City, "images", len(refs))
	return h, nil
}

func (s *HoardingService) GetHoarding(ctx context.Context, id int64) (*domain.Hoarding, error) {
	h, err := s.hoardings.GetByID(ctx, id)
	if err != nil {
		return nil, errors.Wrapf(err, "get hoarding %d", id)
	}
	if h == nil {
		return nil, errors.Wrapf(domain.ErrNotFound, "hoarding %d", id)
	}
	return h, nil
}

// UpdateHoarding applies patch and appends uploads atomically. Files are
// written before the record changes and removed again if the update fails.
func (s *HoardingService) UpdateHoarding(ctx context.Context, id int64, patch domain.HoardingPatch, uploads []Upload) (*domain.Hoarding, error) {
	patch.Normalize()
	if err := patch.Validate(); err != nil {
		return nil, err
	}
	if err := validateUploads(uploads); err != nil {
		return nil, err
	}

	if _, err := s.GetHoarding(ctx, id); err != nil {
		return nil, err
	}

	refs, err := s.saveUploads(ctx, id, uploads)
	if err != nil {
		return nil, err
	}

	h, err := s.hoardings.Update(ctx, id, patch, refs)
	if err != nil {
		s.removeFiles(ctx, refs)
		return nil, errors.Wrapf(err, "update hoarding %d", id)
	}
	metrics.ObserveImagesStored(len(refs))
	s.invalidateLists(ctx)
	s.logger.Info("hoarding updated", "hoarding_id", id, "images_added", len(refs))
	return h, nil
}

// ListHoardings returns the hoardings matching filter in id order. City and
// status listings are served from the cache when one is configured.
func (s *HoardingService) ListHoardings(ctx context.Context, filter domain.HoardingFilter) ([]*domain.Hoarding, error) {
	v := domain.NewValidationError()
	if filter.City != "" && !filter.City.Valid() {
		v.Add("city", "unknown city")
	}
	if filter.Status != "" && !filter.Status.Valid() {
		v.Add("status", "unknown status")
	}
	if err := v.OrNil(); err != nil {
		return nil, err
	}

	cacheable := filter.SizeContains == ""
	key := listKey(filter.City, filter.Status)
	if cacheable {
		var cached []*domain.Hoarding
		ok, err := s.cache.Get(ctx, key, &cached)
		if err != nil {
			s.logger.Warn("listing cache read failed", "key", key, "error", err)
		}
		if ok {
			return cached, nil
		}
	}

	list, err := s.hoardings.List(ctx, filter)
	if err != nil {
		return nil, errors.Wrap(err, "list hoardings")
	}

	if cacheable {
		if err := s.cache.Set(ctx, key, list, s.cacheTTL); err != nil {
			s.logger.Warn("listing cache write failed", "key", key, "error", err)
		}
	}
	return list, nil
}

// DeleteHoarding removes the record and its image files. Enquiries made for
// it are kept.
func (s *HoardingService) DeleteHoarding(ctx context.Context, id int64) error {
	images, err := s.hoardings.Delete(ctx, id)
	if err != nil {
		return errors.Wrapf(err, "delete hoarding %d", id)
	}
	s.invalidateLists(ctx)

	for _, img := range images {
		if err := s.photoStg.Delete(ctx, img.StorageKey); err != nil {
			s.logger.Error("failed to delete image file", "hoarding_id", id, "storage_key", img.StorageKey, "error", err)
		}
	}
	s.logger.Info("hoarding deleted", "hoarding_id", id, "images_removed", len(images))
	return nil
}

// StoreImage stores one image and appends it to the hoarding's image list.
func (s *HoardingService) StoreImage(ctx context.Context, hoardingID int64, data []byte, mimeType string) (*domain.Image, error) {
	images, err := s.AddImages(ctx, hoardingID, []Upload{{Data: data, MimeType: mimeType}})
	if err != nil {
		return nil, err
	}
	return &images[0], nil
}

// AddImages stores every upload and then appends all of them to the
// hoarding. Either all images are attached or none are.
func (s *HoardingService) AddImages(ctx context.Context, hoardingID int64, uploads []Upload) ([]domain.Image, error) {
	if len(uploads) == 0 {
		v := domain.NewValidationError()
		v.Add("images", "choose at least one image")
		return nil, v
	}
	if err := validateUploads(uploads); err != nil {
		return nil, err
	}
	if _, err := s.GetHoarding(ctx, hoardingID); err != nil {
		return nil, err
	}
	return s.addImages(ctx, hoardingID, uploads)
}

func (s *HoardingService) addImages(ctx context.Context, hoardingID int64, uploads []Upload) ([]domain.Image, error) {
	refs, err := s.saveUploads(ctx, hoardingID, uploads)
	if err != nil {
		return nil, err
	}

	images, err := s.hoardings.AppendImages(ctx, hoardingID, refs)
	if err != nil {
		s.removeFiles(ctx, refs)
		return nil, errors.Wrapf(err, "attach images to hoarding %d", hoardingID)
	}
	metrics.ObserveImagesStored(len(images))
	s.invalidateLists(ctx)
	s.logger.Info("images stored", "hoarding_id", hoardingID, "count", len(images))
	return images, nil
}

// saveUploads writes the files in order. On the first failure the files
// already written are removed and the error is marked domain.ErrStorage.
func (s *HoardingService) saveUploads(ctx context.Context, hoardingID int64, uploads []Upload) ([]domain.ImageRef, error) {
	refs := make([]domain.ImageRef, 0, len(uploads))
	for i, u := range uploads {
		key, err := s.photoStg.Save(ctx, hoardingID, u.MimeType, bytes.NewReader(u.Data))
		if err != nil {
			s.removeFiles(ctx, refs)
			s.logger.Error("failed to store image", "hoarding_id", hoardingID, "index", i, "error", err)
			return nil, errors.Mark(errors.Wrapf(err, "store image %d of %d", i+1, len(uploads)), domain.ErrStorage)
		}
		s.logger.Debug("image saved", "hoarding_id", hoardingID, "storage_key", key)
		refs = append(refs, domain.ImageRef{StorageKey: key, MimeType: u.MimeType})
	}
	return refs, nil
}

func (s *HoardingService) removeFiles(ctx context.Context, refs []domain.ImageRef) {
	for _, ref := range refs {
		if err := s.photoStg.Delete(ctx, ref.StorageKey); err != nil {
			s.logger.Error("failed to remove image file", "storage_key", ref.StorageKey, "error", err)
		}
	}
}

// OpenImage returns the bytes of an image that belongs to the hoarding.
// The caller must close the reader.
func (s *HoardingService) OpenImage(ctx context.Context, hoardingID, imageID int64) (io.ReadCloser, string, error) {
	h, err := s.GetHoarding(ctx, hoardingID)
	if err != nil {
		return nil, "", err
	}

	for _, img := range h.Images {
		if img.ID != imageID {
			continue
		}
		r, mimeType, err := s.photoStg.Get(ctx, img.StorageKey)
		if errors.Is(err, photostore.ErrNotFound) {
			return nil, "", errors.Wrapf(domain.ErrNotFound, "image %d file", imageID)
		}
		if err != nil {
			return nil, "", errors.Wrapf(err, "open image %d", imageID)
		}
		if img.MimeType != "" {
			mimeType = img.MimeType
		}
		return r, mimeType, nil
	}
	return nil, "", errors.Wrapf(domain.ErrNotFound, "image %d of hoarding %d", imageID, hoardingID)
}

func validateUploads(uploads []Upload) error {
	v := domain.NewValidationError()
	if len(uploads) > MaxImagesPerUpload {
		v.Add("images", fmt.Sprintf("at most %d images can be uploaded at once", MaxImagesPerUpload))
	}
	for _, u := range uploads {
		if len(u.Data) == 0 {
			v.Add("images", "an uploaded image is empty")
		}
		if !photostore.AllowedMIMETypes[u.MimeType] {
			v.Add("images", "only JPEG, PNG and WebP images are accepted")
		}
	}
	return v.OrNil()
}

func listKey(city domain.City, status domain.Status) string {
	c, st := string(city), string(status)
	if c == "" {
		c = "all"
	}
	if st == "" {
		st = "all"
	}
	return "hoardings:list:" + c + ":" + st
}

// invalidateLists drops every cached listing. Any write can move a hoarding
// between city and status listings.
func (s *HoardingService) invalidateLists(ctx context.Context) {
	cities := append([]domain.City{""}, domain.Cities...)
	statuses := append([]domain.Status{""}, domain.Statuses...)

	keys := make([]string, 0, len(cities)*len(statuses))
	for _, c := range cities {
		for _, st := range statuses {
			keys = append(keys, listKey(c, st))
		}
	}
	if err := s.cache.Del(ctx, keys...); err != nil {
		s.logger.Warn("listing cache invalidation failed", "error", err)
	}
}
