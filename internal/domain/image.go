package domain

// PickedImage описывает изображение, выбранное пользователем (ещё не загруженное в хранилище).
type PickedImage struct {
	Data     []byte
	MimeType string // Example: "image/png"
	Name     string // оригинальное имя файла (для логов)
}

func NewPickedImage(data []byte, mimeType string, name string) *PickedImage {
	return &PickedImage{
		Data:     data,
		MimeType: mimeType,
		Name:     name,
	}
}

// Image описывает объект, который кладётся в S3
type Image struct {
	Bucket      string
	ObjectKey   string
	Bytes       []byte
	Size        int64
	ContentType string
}

func NewImage(bucket string, objectKey string, data []byte, contentType string) *Image {
	return &Image{
		Bucket:      bucket,
		ObjectKey:   objectKey,
		Bytes:       data,
		Size:        int64(len(data)),
		ContentType: contentType,
	}
}

// UploadedImage — результат успешной загрузки в blob-хранилище. Неизменяем.
type UploadedImage struct {
	StoragePath string `json:"storagePath"`
	PublicURL   string `json:"publicUrl"`
}

func NewUploadedImage(storagePath string, publicURL string) *UploadedImage {
	return &UploadedImage{
		StoragePath: storagePath,
		PublicURL:   publicURL,
	}
}
