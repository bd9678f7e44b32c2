package models

import (
	"time"

	"github.com/google/uuid"
)

// Типы файлов заказа. Закрытый набор: новое значение требует явной ветки
// в Categorize, иначе значение считается невалидным.
const (
	FileTypeTask     = "task"
	FileTypeSolution = "solution"
	FileTypeRevision = "revision"
)

// ValidFileTypes список валидных типов файлов.
var ValidFileTypes = map[string]struct{}{
	FileTypeTask:     {},
	FileTypeSolution: {},
	FileTypeRevision: {},
}

// OrderFile описывает файл, прикреплённый к заказу.
type OrderFile struct {
	ID           uuid.UUID `db:"id" json:"id"`
	OrderID      uuid.UUID `db:"order_id" json:"order_id"`
	UploadedBy   uuid.UUID `db:"uploaded_by" json:"uploaded_by"`
	FileType     string    `db:"file_type" json:"file_type"`
	FileName     string    `db:"file_name" json:"file_name"`
	StoragePath  string    `db:"storage_path" json:"-"`
	ContentType  string    `db:"content_type" json:"content_type"`
	SizeBytes    int64     `db:"size_bytes" json:"size_bytes"`
	Description  *string   `db:"description" json:"description,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// FileCategory определяет, кому разрешено загружать файл данного типа.
type FileCategory struct {
	UploaderRole string
	Label        string
}

// Categorize возвращает категорию для типа файла.
// Switch исчерпывающий: неизвестный тег не проваливается в общую ветку.
func Categorize(fileType string) (FileCategory, bool) {
	switch fileType {
	case FileTypeTask:
		return FileCategory{UploaderRole: RoleClient, Label: "задание"}, true
	case FileTypeSolution:
		return FileCategory{UploaderRole: RoleExpert, Label: "решение"}, true
	case FileTypeRevision:
		return FileCategory{UploaderRole: RoleExpert, Label: "доработка"}, true
	default:
		return FileCategory{}, false
	}
}
