// Сервис медиафайлов: создание, переименование, удаление.
// Единственная точка мутаций каталога — здесь соблюдается дисциплина
// «файл и журнал меняются согласованно», а кэш запросов сбрасывается
// после каждой успешной мутации.
package service

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/hivestore/internal/domain/model"
	"github.com/bigkaa/hivestore/internal/storage/catalog"
	"github.com/bigkaa/hivestore/internal/storage/filestore"
)

// Ошибки сервиса медиафайлов. API-слой отображает их в HTTP-коды.
var (
	// ErrInvalidID — идентификатор не является валидным UUID.
	ErrInvalidID = errors.New("некорректный идентификатор медиафайла")
	// ErrNotFound — медиафайл не найден.
	ErrNotFound = errors.New("медиафайл не найден")
	// ErrInvalidInput — некорректные входные данные.
	ErrInvalidInput = errors.New("некорректные входные данные")
	// ErrFileDelete — файл не удалось удалить с диска; запись сохранена.
	ErrFileDelete = errors.New("ошибка удаления файла с диска")
	// ErrPersistence — ошибка записи журнала метаданных.
	ErrPersistence = errors.New("ошибка персистентности метаданных")
)

// Метрики операций с медиафайлами.
var mediaOperations = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "hivestore_media_operations_total",
	Help: "Количество операций с медиафайлами по типу и результату",
}, []string{"operation", "status"})

// MediaService — операции жизненного цикла медиафайлов.
type MediaService struct {
	catalog *catalog.Catalog
	files   *filestore.FileStore
	queries *QueryService
	logger  *slog.Logger
}

// NewMediaService создаёт сервис медиафайлов.
func NewMediaService(cat *catalog.Catalog, files *filestore.FileStore, queries *QueryService, logger *slog.Logger) *MediaService {
	return &MediaService{
		catalog: cat,
		files:   files,
		queries: queries,
		logger:  logger.With(slog.String("component", "media")),
	}
}

// Create сохраняет загруженный файл и регистрирует его в каталоге.
// Порядок: сначала файл на диск, затем запись в журнал. Если журнал
// не записался, сохранённый файл удаляется — полуготовых состояний
// не остаётся.
//
// Пустой owner заменяется на владельца по умолчанию. Пустой
// displayName — на оригинальное имя файла. mimeType — тип, заявленный
// клиентом в multipart-части; если он отсутствует или generic
// (application/octet-stream), тип выводится из расширения.
func (s *MediaService) Create(reader io.Reader, owner, originalName, displayName, mimeType string) (*model.MediaRecord, error) {
	owner = strings.TrimSpace(owner)
	if owner == "" {
		owner = model.DefaultOwner
	}
	if !model.ValidOwner(owner) {
		mediaOperations.WithLabelValues("create", "error").Inc()
		return nil, fmt.Errorf("%w: недопустимое имя владельца %q", ErrInvalidInput, owner)
	}

	originalName = strings.TrimSpace(originalName)
	if originalName == "" {
		mediaOperations.WithLabelValues("create", "error").Inc()
		return nil, fmt.Errorf("%w: пустое имя файла", ErrInvalidInput)
	}

	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		displayName = originalName
	}

	mimeType = strings.TrimSpace(mimeType)
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = model.MimeFromExtension(filepath.Ext(originalName))
	}

	saved, err := s.files.SaveUpload(reader, owner, originalName)
	if err != nil {
		mediaOperations.WithLabelValues("create", "error").Inc()
		return nil, fmt.Errorf("ошибка сохранения файла: %w", err)
	}

	now := time.Now().UTC()
	rec := &model.MediaRecord{
		ID:             saved.ID,
		Owner:          owner,
		OriginalName:   originalName,
		DisplayName:    displayName,
		StoredFilename: saved.StoredFilename,
		PhysicalPath:   saved.FullPath,
		MimeType:       mimeType,
		SizeBytes:      saved.Size,
		SizeFormatted:  model.FormatSize(saved.Size),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	rec.RecomputeURL()

	if err := s.catalog.Append(rec); err != nil {
		// Журнал не записался — файл не должен остаться сиротой
		if delErr := s.files.Delete(saved.FullPath); delErr != nil {
			s.logger.Error("Не удалось удалить файл после ошибки журнала",
				slog.String("path", saved.FullPath),
				slog.String("error", delErr.Error()),
			)
		}
		mediaOperations.WithLabelValues("create", "error").Inc()
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	s.queries.Invalidate()
	mediaOperations.WithLabelValues("create", "success").Inc()
	s.logger.Info("Медиафайл создан",
		slog.String("id", rec.ID),
		slog.String("owner", rec.Owner),
		slog.Int64("size", rec.SizeBytes),
	)
	return rec, nil
}

// Get возвращает запись по идентификатору.
func (s *MediaService) Get(id string) (*model.MediaRecord, error) {
	if !model.IsValidID(id) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	rec, ok := s.catalog.ByID(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return rec, nil
}

// Rename меняет отображаемое имя медиафайла. Физический файл не
// переименовывается, публичный URL пересчитывается.
func (s *MediaService) Rename(id, newDisplayName string) (*model.MediaRecord, error) {
	newDisplayName = strings.TrimSpace(newDisplayName)
	if newDisplayName == "" {
		mediaOperations.WithLabelValues("rename", "error").Inc()
		return nil, fmt.Errorf("%w: пустое отображаемое имя", ErrInvalidInput)
	}

	rec, err := s.Get(id)
	if err != nil {
		mediaOperations.WithLabelValues("rename", "error").Inc()
		return nil, err
	}

	rec.DisplayName = newDisplayName
	rec.UpdatedAt = time.Now().UTC()
	rec.RecomputeURL()

	if err := s.catalog.Update(rec); err != nil {
		mediaOperations.WithLabelValues("rename", "error").Inc()
		if errors.Is(err, catalog.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	s.queries.Invalidate()
	mediaOperations.WithLabelValues("rename", "success").Inc()
	s.logger.Info("Медиафайл переименован",
		slog.String("id", id),
		slog.String("displayName", newDisplayName),
	)
	return rec, nil
}

// Delete удаляет медиафайл: сначала файл с диска, затем запись из
// журнала. Отсутствующий файл не блокирует удаление записи; ошибка
// удаления существующего файла оставляет запись нетронутой, чтобы
// файл не превратился в невидимую сироту.
func (s *MediaService) Delete(id string) error {
	rec, err := s.Get(id)
	if err != nil {
		mediaOperations.WithLabelValues("delete", "error").Inc()
		return err
	}

	if err := s.files.Delete(rec.PhysicalPath); err != nil {
		mediaOperations.WithLabelValues("delete", "error").Inc()
		return fmt.Errorf("%w: %v", ErrFileDelete, err)
	}

	if err := s.catalog.Remove(id); err != nil {
		mediaOperations.WithLabelValues("delete", "error").Inc()
		if errors.Is(err, catalog.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	s.queries.Invalidate()
	mediaOperations.WithLabelValues("delete", "success").Inc()
	s.logger.Info("Медиафайл удалён",
		slog.String("id", id),
		slog.String("owner", rec.Owner),
	)
	return nil
}
