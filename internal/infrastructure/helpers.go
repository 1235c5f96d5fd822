package infrastructure

import (
	"mime"
	"strings"

	"github.com/DRSN-tech/visual-commerce/pkg/e"
)

// Форматы, которые умеет декодировать компрессор.
var imageExtensions = map[string]string{
	"image/jpeg": "jpg",
	"image/jpg":  "jpg",
	"image/png":  "png",
	"image/webp": "webp",
}

// ImageExtension возвращает расширение объекта для MIME-типа изображения.
// Параметры типа отбрасываются. Для остальных типов возвращает e.ErrUnsupportedMediaType.
func ImageExtension(contentType string) (string, error) {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return "", e.Join(e.ErrUnsupportedMediaType, err)
	}

	ext, ok := imageExtensions[strings.ToLower(mediaType)]
	if !ok {
		return "", e.ErrUnsupportedMediaType
	}

	return ext, nil
}
