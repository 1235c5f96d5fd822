package minio

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/DRSN-tech/visual-commerce/internal/cfg"
	"github.com/DRSN-tech/visual-commerce/internal/domain"
	"github.com/DRSN-tech/visual-commerce/internal/infrastructure"
	"github.com/DRSN-tech/visual-commerce/internal/usecase"
	"github.com/DRSN-tech/visual-commerce/pkg/e"
	"github.com/DRSN-tech/visual-commerce/pkg/logger"
)

const keyPrefix = "vs"

// BlobUploader загружает изображения визуального поиска в MinIO и возвращает их публичный адрес.
type BlobUploader struct {
	repo          usecase.ImageRepository
	bucket        string
	publicBaseURL string
	logger        logger.Logger
	now           func() time.Time
}

func NewBlobUploader(repo usecase.ImageRepository, cfg *cfg.MinIOCfg, logger logger.Logger) *BlobUploader {
	return &BlobUploader{
		repo:          repo,
		bucket:        cfg.BucketName,
		publicBaseURL: strings.TrimRight(cfg.PublicBaseURL, "/"),
		logger:        logger,
		now:           time.Now,
	}
}

// Upload кладёт байты под новым уникальным ключом vs-{unixMillis}-{base36}.{ext}.
func (b *BlobUploader) Upload(ctx context.Context, req *usecase.UploadImageReq) (*domain.UploadedImage, error) {
	const op = "BlobUploader.Upload"

	if len(req.Data) == 0 {
		return nil, e.Wrap(op, e.ErrStatusBadRequest)
	}

	ext, err := infrastructure.ImageExtension(req.ContentType)
	if err != nil {
		return nil, e.Wrap(op, fmt.Errorf("content type %q: %w", req.ContentType, err))
	}

	key := ObjectKey(b.now(), randomSuffix(), ext)

	storedKey, err := b.repo.Upload(ctx, domain.NewImage(b.bucket, key, req.Data, req.ContentType))
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	b.logger.Debugf("uploaded %d bytes to %s/%s", len(req.Data), b.bucket, storedKey)
	return domain.NewUploadedImage(storedKey, b.PublicURL(storedKey)), nil
}

// PublicURL возвращает адрес объекта в бакете: {publicBaseURL}/{bucket}/{key}.
func (b *BlobUploader) PublicURL(key string) string {
	return b.publicBaseURL + "/" + b.bucket + "/" + key
}

// ObjectKey формирует ключ объекта из времени и случайного суффикса.
func ObjectKey(ts time.Time, suffix uint64, ext string) string {
	return keyPrefix + "-" + strconv.FormatInt(ts.UnixMilli(), 10) + "-" + strconv.FormatUint(suffix, 36) + "." + ext
}

func randomSuffix() uint64 {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return uint64(time.Now().UnixNano())
	}
	return binary.BigEndian.Uint64(buf[:])
}
