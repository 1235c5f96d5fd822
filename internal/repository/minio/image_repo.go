package minio

import (
	"bytes"
	"context"

	"github.com/DRSN-tech/visual-commerce/internal/domain"
	"github.com/DRSN-tech/visual-commerce/pkg/e"
	"github.com/jimlawless/whereami"
	"github.com/minio/minio-go/v7"
)

// Загруженные для поиска изображения не меняются, их можно долго кэшировать на CDN.
const uploadCacheControl = "public, max-age=86400, immutable"

// ImageRepo кладёт изображения визуального поиска в MinIO.
type ImageRepo struct {
	mc *minio.Client
}

func NewImageRepo(mc *minio.Client) *ImageRepo {
	return &ImageRepo{mc: mc}
}

// Upload сохраняет объект и возвращает ключ, под которым MinIO его записал.
func (i *ImageRepo) Upload(ctx context.Context, image *domain.Image) (string, error) {
	if image == nil || image.Size == 0 {
		return "", e.Wrap(whereami.WhereAmI(), e.ErrStatusBadRequest)
	}

	info, err := i.mc.PutObject(ctx, image.Bucket, image.ObjectKey, bytes.NewReader(image.Bytes), image.Size,
		minio.PutObjectOptions{
			ContentType:  image.ContentType,
			CacheControl: uploadCacheControl,
			UserMetadata: map[string]string{"source": "visual-search"},
		})
	if err != nil {
		return "", e.Wrap(whereami.WhereAmI(), err)
	}

	return info.Key, nil
}
