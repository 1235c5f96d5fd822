package imaging

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"

	"github.com/DRSN-tech/visual-commerce/internal/cfg"
	"github.com/DRSN-tech/visual-commerce/internal/domain"
	"github.com/DRSN-tech/visual-commerce/pkg/e"
	"github.com/jimlawless/whereami"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

const defaultMaxPixels = 40_000_000

// JPEGCompressor уменьшает изображение до MaxEdge по длинной стороне и перекодирует в JPEG.
type JPEGCompressor struct {
	maxEdge   int
	quality   int
	maxPixels int
}

func NewJPEGCompressor(cfg *cfg.ImagingCfg) *JPEGCompressor {
	maxPixels := cfg.MaxPixels
	if maxPixels <= 0 {
		maxPixels = defaultMaxPixels
	}

	return &JPEGCompressor{
		maxEdge:   cfg.MaxEdge,
		quality:   cfg.JPEGQuality,
		maxPixels: maxPixels,
	}
}

// Compress декодирует JPEG, PNG или WebP. Изображения меньше maxEdge не увеличиваются.
// Размеры читаются из заголовка до декодирования: больше maxPixels пикселей не декодируется.
func (c *JPEGCompressor) Compress(ctx context.Context, img *domain.PickedImage) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	conf, _, err := image.DecodeConfig(bytes.NewReader(img.Data))
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), e.Join(e.ErrUnsupportedMediaType, err))
	}
	if conf.Width <= 0 || conf.Height <= 0 || int64(conf.Width)*int64(conf.Height) > int64(c.maxPixels) {
		return nil, e.Wrap(whereami.WhereAmI(), fmt.Errorf("%w: %dx%d", e.ErrImageTooLarge, conf.Width, conf.Height))
	}

	src, _, err := image.Decode(bytes.NewReader(img.Data))
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), e.Join(e.ErrUnsupportedMediaType, err))
	}

	dst := c.resize(src)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: c.quality}); err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return buf.Bytes(), nil
}

func (c *JPEGCompressor) resize(src image.Image) image.Image {
	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	width, height := FitWithin(w, h, c.maxEdge)
	if width == w && height == h {
		return src
	}

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, draw.Over, nil)

	return dst
}

// FitWithin возвращает размеры, при которых длинная сторона не превышает maxEdge, с сохранением пропорций.
func FitWithin(width, height, maxEdge int) (int, int) {
	if maxEdge <= 0 || (width <= maxEdge && height <= maxEdge) {
		return width, height
	}

	if width >= height {
		return maxEdge, max(1, height*maxEdge/width)
	}

	return max(1, width*maxEdge/height), maxEdge
}
