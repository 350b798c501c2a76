package file

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/abduss/bitbeem/internal/auth"
	"github.com/abduss/bitbeem/internal/blob"
	"github.com/abduss/bitbeem/internal/config"
	"github.com/abduss/bitbeem/internal/ident"
	"github.com/abduss/bitbeem/internal/metrics"
	"github.com/moby/locker"
	"go.uber.org/zap"
)

const defaultDownloadLimit = 1

type metadataStore interface {
	Create(ctx context.Context, f File) (File, error)
	Get(ctx context.Context, id string) (File, error)
	IncrementDownloadCount(ctx context.Context, id string) (File, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]File, error)
	ListByOwner(ctx context.Context, owner string) ([]File, error)
	ListPendingDeletion(ctx context.Context) ([]File, error)
}

type authenticator interface {
	Authenticate(ctx context.Context, key string) (string, error)
}

// Service owns the file lifecycle: upload, counted consumption and expiry.
type Service struct {
	repo       metadataStore
	identities authenticator
	blobs      blob.Store
	baseURL    string
	locks      *locker.Locker
	newID      func() (string, error)
	nowFunc    func() time.Time
	log        *zap.Logger
}

// NewService constructs a file service.
func NewService(repo metadataStore, identities authenticator, blobs blob.Store, cfg config.PublicConfig, log *zap.Logger) *Service {
	return &Service{
		repo:       repo,
		identities: identities,
		blobs:      blobs,
		baseURL:    cfg.BaseURL(),
		locks:      locker.New(),
		newID:      ident.New,
		nowFunc:    time.Now,
		log:        log.Named("file"),
	}
}

// UploadInput carries one upload request. A zero DownloadLimit means the default of one.
type UploadInput struct {
	Key           string
	FileName      string
	ContentType   string
	DownloadLimit int
	Data          []byte
}

// ParseDownloadLimit reads the download_limit header value. An empty value selects the default.
func ParseDownloadLimit(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return defaultDownloadLimit, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return 0, ErrInvalidDownloadLimit
	}
	return limit, nil
}

// Upload authenticates the caller, stores the blob and records its metadata. When the
// metadata insert fails the blob is removed again.
func (s *Service) Upload(ctx context.Context, input UploadInput) (File, error) {
	key := strings.TrimSpace(input.Key)
	if key == "" {
		return File{}, ErrMissingKey
	}

	limit := input.DownloadLimit
	switch {
	case limit == 0:
		limit = defaultDownloadLimit
	case limit < 0:
		return File{}, ErrInvalidDownloadLimit
	}

	owner, err := s.identities.Authenticate(ctx, key)
	if err != nil {
		return File{}, err
	}

	id, err := s.newID()
	if err != nil {
		return File{}, fmt.Errorf("generate file id: %w", err)
	}
	log := s.log.With(zap.String("file_id", id), zap.String("owner", owner))

	if err := s.blobs.Ensure(ctx); err != nil {
		log.Error("ensure blob store failed", zap.Error(err))
		return File{}, fmt.Errorf("%w: ensure blob store: %w", ErrStorage, err)
	}
	if err := s.blobs.Put(ctx, id, input.Data); err != nil {
		log.Error("write blob failed", zap.Error(err))
		return File{}, fmt.Errorf("%w: write blob: %w", ErrStorage, err)
	}

	record := File{
		ID:            id,
		FileName:      valueOrUnknown(input.FileName),
		ContentType:   valueOrUnknown(input.ContentType),
		UploadTime:    s.nowFunc().Unix(),
		DownloadLimit: limit,
		FileSize:      int64(len(input.Data)),
		DownloadURL:   s.baseURL + "/download/" + id,
		Owner:         owner,
	}

	stored, err := s.repo.Create(ctx, record)
	if err != nil {
		log.Error("insert metadata failed", zap.Error(err))
		if delErr := s.blobs.Delete(context.WithoutCancel(ctx), id); delErr != nil {
			log.Error("remove orphan blob failed", zap.Error(delErr))
		}
		return File{}, fmt.Errorf("%w: insert metadata: %w", ErrPersistence, err)
	}

	metrics.Uploads.Inc()
	metrics.UploadBytes.Add(float64(stored.FileSize))
	log.Info("file uploaded", zap.Int64("size", stored.FileSize), zap.Int("download_limit", stored.DownloadLimit))
	return stored, nil
}

// Consume serves the blob once, counting the consumption against the file's limit. The
// consumption that reaches the limit is still served, and the blob and record are deleted
// before Consume returns. Calls for the same id are serialized.
func (s *Service) Consume(ctx context.Context, id string) (Download, error) {
	if !ident.Valid(id) {
		metrics.ConsumeFailures.WithLabelValues("not_found").Inc()
		return Download{}, ErrFileNotFound
	}

	s.locks.Lock(id)
	defer s.locks.Unlock(id)

	log := s.log.With(zap.String("file_id", id))

	exists, err := s.blobs.Exists(ctx, id)
	if err != nil {
		return Download{}, s.consumeFailed(log, "storage", fmt.Errorf("%w: check blob: %w", ErrStorage, err))
	}
	if !exists {
		if err := s.finishPendingRecord(ctx, id); err != nil {
			return Download{}, s.consumeFailed(log, "expire", err)
		}
		metrics.ConsumeFailures.WithLabelValues("not_found").Inc()
		return Download{}, ErrFileNotFound
	}

	record, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrFileNotFound) {
			metrics.ConsumeFailures.WithLabelValues("not_found").Inc()
			return Download{}, ErrFileNotFound
		}
		return Download{}, s.consumeFailed(log, "persistence", fmt.Errorf("%w: get metadata: %w", ErrPersistence, err))
	}

	// From here on a client disconnect must not split the increment from the read and expiry.
	ctx = context.WithoutCancel(ctx)

	if record.Exhausted() {
		if err := s.expire(ctx, record); err != nil {
			return Download{}, s.consumeFailed(log, "expire", err)
		}
		metrics.ConsumeFailures.WithLabelValues("not_found").Inc()
		return Download{}, ErrFileNotFound
	}

	updated, err := s.repo.IncrementDownloadCount(ctx, id)
	if err != nil {
		if errors.Is(err, ErrFileNotFound) {
			metrics.ConsumeFailures.WithLabelValues("not_found").Inc()
			return Download{}, ErrFileNotFound
		}
		return Download{}, s.consumeFailed(log, "persistence", fmt.Errorf("%w: increment download count: %w", ErrPersistence, err))
	}

	data, err := s.blobs.Get(ctx, id)
	if err != nil {
		return Download{}, s.consumeFailed(log, "storage", fmt.Errorf("%w: read blob: %w", ErrStorage, err))
	}

	if updated.Exhausted() {
		if err := s.expire(ctx, updated); err != nil {
			return Download{}, s.consumeFailed(log, "expire", err)
		}
	}

	metrics.Consumptions.Inc()
	log.Info("file consumed",
		zap.Int("download_count", updated.DownloadCount),
		zap.Int("download_limit", updated.DownloadLimit),
	)

	return Download{
		Data:        data,
		ContentType: record.ContentType,
		FileName:    record.FileName,
		FileSize:    record.FileSize,
	}, nil
}

// List returns every live file for an admin and only the caller's own files otherwise.
// Files awaiting deletion are never listed.
func (s *Service) List(ctx context.Context, principal auth.Principal) ([]File, error) {
	var (
		files []File
		err   error
	)
	if principal.Admin {
		files, err = s.repo.List(ctx)
	} else {
		files, err = s.repo.ListByOwner(ctx, principal.Username)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: list files: %w", ErrPersistence, err)
	}
	return files, nil
}

// Reconcile repairs divergence between the blob store and the metadata store. It finishes
// interrupted expiries, removes blobs without a record and records without a blob. It must
// run before the service accepts uploads.
func (s *Service) Reconcile(ctx context.Context) (ReconcileReport, error) {
	var report ReconcileReport

	pending, err := s.repo.ListPendingDeletion(ctx)
	if err != nil {
		return report, fmt.Errorf("%w: list pending deletions: %w", ErrPersistence, err)
	}
	for _, record := range pending {
		if err := s.expireLocked(ctx, record); err != nil {
			return report, err
		}
		report.PendingFinished++
	}

	records, err := s.repo.List(ctx)
	if err != nil {
		return report, fmt.Errorf("%w: list files: %w", ErrPersistence, err)
	}
	blobIDs, err := s.blobs.List(ctx)
	if err != nil {
		return report, fmt.Errorf("%w: list blobs: %w", ErrStorage, err)
	}

	known := make(map[string]struct{}, len(records))
	for _, record := range records {
		known[record.ID] = struct{}{}
	}
	stored := make(map[string]struct{}, len(blobIDs))
	for _, id := range blobIDs {
		stored[id] = struct{}{}
		if _, ok := known[id]; ok {
			continue
		}
		if err := s.blobs.Delete(ctx, id); err != nil {
			return report, fmt.Errorf("%w: remove orphan blob %s: %w", ErrStorage, id, err)
		}
		s.log.Warn("removed blob without metadata", zap.String("file_id", id))
		report.OrphanBlobs++
	}

	for _, record := range records {
		if _, ok := stored[record.ID]; ok {
			continue
		}
		if err := s.repo.Delete(ctx, record.ID); err != nil && !errors.Is(err, ErrFileNotFound) {
			return report, fmt.Errorf("%w: remove record without blob %s: %w", ErrPersistence, record.ID, err)
		}
		s.log.Warn("removed metadata without blob", zap.String("file_id", record.ID))
		report.OrphanRecords++
	}

	s.log.Info("reconciliation finished",
		zap.Int("pending_finished", report.PendingFinished),
		zap.Int("orphan_blobs", report.OrphanBlobs),
		zap.Int("orphan_records", report.OrphanRecords),
	)
	return report, nil
}

// finishPendingRecord removes the record of an exhausted file whose blob is already gone,
// left behind when an earlier expiry failed after deleting the blob. Caller holds the id lock.
func (s *Service) finishPendingRecord(ctx context.Context, id string) error {
	record, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrFileNotFound) {
			return nil
		}
		return fmt.Errorf("%w: get metadata: %w", ErrPersistence, err)
	}
	if !record.Exhausted() {
		return nil
	}
	return s.expire(context.WithoutCancel(ctx), record)
}

func (s *Service) expireLocked(ctx context.Context, record File) error {
	s.locks.Lock(record.ID)
	defer s.locks.Unlock(record.ID)
	return s.expire(ctx, record)
}

// expire deletes the blob, then the record. Caller holds the id lock.
func (s *Service) expire(ctx context.Context, record File) error {
	if err := s.blobs.Delete(ctx, record.ID); err != nil {
		return fmt.Errorf("%w: delete blob: %w", ErrStorage, err)
	}
	if err := s.repo.Delete(ctx, record.ID); err != nil && !errors.Is(err, ErrFileNotFound) {
		return fmt.Errorf("%w: delete metadata: %w", ErrPersistence, err)
	}
	metrics.Expirations.Inc()
	s.log.Info("file expired", zap.String("file_id", record.ID), zap.Int("download_limit", record.DownloadLimit))
	return nil
}

func (s *Service) consumeFailed(log *zap.Logger, reason string, err error) error {
	metrics.ConsumeFailures.WithLabelValues(reason).Inc()
	log.Error("consume failed", zap.String("reason", reason), zap.Error(err))
	return err
}

func valueOrUnknown(v string) string {
	if v = strings.TrimSpace(v); v == "" {
		return UnknownValue
	}
	return v
}
