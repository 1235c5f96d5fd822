package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/DRSN-tech/visual-commerce/internal/domain"
	"github.com/DRSN-tech/visual-commerce/internal/infrastructure"
	"github.com/DRSN-tech/visual-commerce/internal/usecase"
	"github.com/DRSN-tech/visual-commerce/pkg/e"
	"github.com/DRSN-tech/visual-commerce/pkg/logger"
)

const imageFormField = "image"

// uploadedImagePicker отдаёт пайплайну файл из multipart-запроса.
// Отправка файла считается согласием, запрос без файла считается отменой выбора.
type uploadedImagePicker struct {
	image *domain.PickedImage
}

func (p *uploadedImagePicker) RequestPermission(context.Context) (bool, error) {
	return true, nil
}

func (p *uploadedImagePicker) Pick(context.Context) (*domain.PickedImage, error) {
	return p.image, nil
}

type VisualSearchHandler struct {
	visualSearchUC usecase.VisualSearchUC
	maxFileSize    int64
	logger         logger.Logger
}

func NewVisualSearchHandler(visualSearchUC usecase.VisualSearchUC, maxFileSize int64, logger logger.Logger) *VisualSearchHandler {
	return &VisualSearchHandler{visualSearchUC: visualSearchUC, maxFileSize: maxFileSize, logger: logger}
}

// visualSearch
//
//	@Summary		Визуальный поиск товаров
//	@Description	Сжимает и загружает изображение, классифицирует его и ищет похожие товары. При недоступности векторного поиска выполняется текстовый поиск по метке.
//	@Tags			visual-search
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			image	formData	file						false	"Изображение (jpeg, png, webp)"
//	@Param			topK	formData	int							false	"Размер выдачи"
//	@Success		200		{object}	domain.VisualSearchResult	"Результат поиска"
//	@Success		204		"Изображение не выбрано"
//	@Failure		400		{object}	ErrorResponse	"Ошибка валидации"
//	@Failure		413		{object}	ErrorResponse	"Файл слишком большой"
//	@Failure		415		{object}	ErrorResponse	"Неподдерживаемый формат"
//	@Failure		429		{object}	ErrorResponse	"Слишком много запросов"
//	@Failure		502		{object}	ErrorResponse	"Ошибка загрузки или классификации"
//	@Router			/api/v1/visual-search [post]
func (h *VisualSearchHandler) visualSearch(w http.ResponseWriter, r *http.Request) {
	const (
		maxMemory    = 8 << 20
		formOverhead = 1 << 20
	)

	r.Body = http.MaxBytesReader(w, r.Body, h.maxFileSize+formOverhead)

	if err := ensureMultipartForm(r, maxMemory); err != nil {
		h.logger.Warnf("%d %s: %v", http.StatusBadRequest, r.Header.Get("Content-Type"), err)
		WriteError(w, err)
		return
	}

	topK, err := parseTopK(r.FormValue("topK"))
	if err != nil {
		WriteError(w, err)
		return
	}

	picker := &uploadedImagePicker{}
	if files := r.MultipartForm.File[imageFormField]; len(files) > 0 {
		data, mimeType, err := readFile(files[0], h.maxFileSize)
		if err != nil {
			h.logger.Warnf("read %s: %v", files[0].Filename, err)
			WriteError(w, err)
			return
		}
		if _, err := infrastructure.ImageExtension(mimeType); err != nil {
			WriteError(w, e.Wrap(mimeType, err))
			return
		}
		picker.image = domain.NewPickedImage(data, mimeType, files[0].Filename)
	}

	res, err := h.visualSearchUC.Run(r.Context(), usecase.NewVisualSearchReq(picker, topK))
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		h.logger.Errorf(err, "visual search failed")
		WriteError(w, err)
		return
	}

	if res == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	WriteSuccess(w, http.StatusOK, res)
}

// parseTopK разбирает необязательный размер выдачи. Пустое значение означает значение по умолчанию.
func parseTopK(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}

	topK, err := strconv.Atoi(raw)
	if err != nil || topK < 0 {
		return 0, e.Wrap(raw, e.ErrInvalidTopK)
	}

	return topK, nil
}
