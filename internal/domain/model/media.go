// Пакет model — доменные модели Hive Storage.
// MediaRecord — единая структура метаданных медиафайла, используется
// как in-memory представление и как формат записи журнала metadata.json.
package model

import (
	"fmt"
	"math"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultOwner — владелец по умолчанию, если username не указан при загрузке.
const DefaultOwner = "default"

// MediaRecord — метаданные одного физического файла.
// JSON-ключи совпадают с форматом журнала metadata.json
// (журнал читается людьми и внешними инструментами, формат стабилен).
type MediaRecord struct {
	// ID — уникальный идентификатор файла (UUID v4). Неизменяемый,
	// используется как ключ журнала и как имя файла на диске.
	ID string `json:"id"`

	// Owner — пространство имён пользователя (ключ партиционирования,
	// не аутентифицированная личность).
	Owner string `json:"user"`

	// OriginalName — оригинальное имя файла при загрузке.
	OriginalName string `json:"originalName"`

	// DisplayName — отображаемое имя. Единственное редактируемое поле,
	// участвует в построении публичного URL.
	DisplayName string `json:"displayName"`

	// StoredFilename — имя файла на диске: {id}{расширение}.
	StoredFilename string `json:"filename"`

	// PhysicalPath — абсолютный путь к файлу: storageRoot/{owner}/{filename}.
	PhysicalPath string `json:"path"`

	// MimeType — MIME-тип файла.
	MimeType string `json:"mimetype"`

	// SizeBytes — размер файла в байтах.
	SizeBytes int64 `json:"size"`

	// SizeFormatted — размер в человекочитаемом виде ("1.5 MB").
	SizeFormatted string `json:"sizeFormatted"`

	// PublicURL — производное поле: /media/{id}/{encodedDisplayName}{ext}.
	// Не является независимым состоянием, пересчитывается при каждом
	// изменении DisplayName (см. RecomputeURL).
	PublicURL string `json:"url"`

	// CreatedAt, UpdatedAt — временные метки (UTC).
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	// Recovered — true только для записей, синтезированных
	// reconciliation при восстановлении осиротевших файлов.
	Recovered bool `json:"recovered,omitempty"`
}

// NewID генерирует новый уникальный идентификатор (UUID v4).
func NewID() string {
	return uuid.NewString()
}

// IsValidID проверяет, что строка — UUID в канонической текстовой форме
// (36 символов, 8-4-4-4-12). Используется для отклонения некорректных
// идентификаторов до обращения к хранилищу.
func IsValidID(s string) bool {
	if len(s) != 36 {
		return false
	}
	_, err := uuid.Parse(s)
	return err == nil
}

// Ext возвращает расширение оригинального имени файла (с точкой).
func (m *MediaRecord) Ext() string {
	return filepath.Ext(m.OriginalName)
}

// RecomputeURL пересчитывает PublicURL из ID, DisplayName и расширения
// оригинального имени. Обязателен после каждого изменения DisplayName.
func (m *MediaRecord) RecomputeURL() {
	m.PublicURL = PublicURL(m.ID, m.DisplayName, m.Ext())
}

// PublicURL строит публичный URL файла: /media/{id}/{encoded}{ext}.
func PublicURL(id, displayName, ext string) string {
	return fmt.Sprintf("/media/%s/%s%s", id, EncodeDisplayName(displayName), ext)
}

// EncodeDisplayName кодирует отображаемое имя для использования в URL.
// Заменяются только ASCII-пробелы на %20; остальные символы (включая
// зарезервированные в URL) передаются как есть — формат сохранён для
// совместимости с существующими клиентами. Известное слабое место:
// имена с '/', '?', '#' дают технически некорректный URL.
func EncodeDisplayName(name string) string {
	return strings.ReplaceAll(name, " ", "%20")
}

// sizeUnits — единицы измерения для FormatSize.
var sizeUnits = []string{"Bytes", "KB", "MB", "GB"}

// FormatSize форматирует размер в байтах в человекочитаемую строку.
// Примеры: 0 → "0 Bytes", 1024 → "1 KB", 1536 → "1.5 KB".
func FormatSize(bytes int64) string {
	if bytes == 0 {
		return "0 Bytes"
	}

	i := int(math.Floor(math.Log(float64(bytes)) / math.Log(1024)))
	if i >= len(sizeUnits) {
		i = len(sizeUnits) - 1
	}

	value := float64(bytes) / math.Pow(1024, float64(i))
	// Округление до двух знаков без хвостовых нулей ("1.5", не "1.50")
	rounded := math.Round(value*100) / 100
	return strconv.FormatFloat(rounded, 'f', -1, 64) + " " + sizeUnits[i]
}

// mimeByExtension — фиксированная таблица MIME-типов для восстановления
// осиротевших файлов. Расширения вне таблицы → application/octet-stream.
var mimeByExtension = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
	".mp4":  "video/mp4",
	".webm": "video/webm",
	".mov":  "video/mov",
	".avi":  "video/avi",
	".mp3":  "audio/mp3",
	".wav":  "audio/wav",
	".ogg":  "audio/ogg",
	".flac": "audio/flac",
	".pdf":  "application/pdf",
	".txt":  "text/plain",
}

// MimeFromExtension возвращает MIME-тип по расширению файла (с точкой,
// регистр не важен). Для неизвестных расширений — application/octet-stream.
func MimeFromExtension(ext string) string {
	if mime, ok := mimeByExtension[strings.ToLower(ext)]; ok {
		return mime
	}
	return "application/octet-stream"
}

// ValidOwner проверяет, что owner пригоден как имя директории:
// непустой, без разделителей пути, не "." и не "..", без NUL.
// Owner используется как буквальный сегмент пути под storageRoot —
// без этой проверки возможен выход за пределы хранилища.
func ValidOwner(owner string) bool {
	if owner == "" || owner == "." || owner == ".." {
		return false
	}
	return !strings.ContainsAny(owner, "/\\\x00")
}
