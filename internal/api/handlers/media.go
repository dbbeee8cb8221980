// media.go — HTTP handlers операций с медиафайлами.
// Upload, List, Get, Update, Delete, подписанные ссылки, раздача файлов.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/bigkaa/hivestore/internal/api/errors"
	"github.com/bigkaa/hivestore/internal/domain/model"
	"github.com/bigkaa/hivestore/internal/service"
	"github.com/bigkaa/hivestore/internal/storage/filestore"
)

// MediaHandler — обработчик endpoints медиафайлов.
type MediaHandler struct {
	media       *service.MediaService
	queries     *service.QueryService
	store       *filestore.FileStore
	signer      *service.URLSigner
	maxFileSize int64
	baseURL     string
}

// NewMediaHandler создаёт обработчик endpoints медиафайлов.
// baseURL (без замыкающего слеша) превращает подписанные ссылки в
// абсолютные; пустое значение оставляет их относительными.
func NewMediaHandler(
	media *service.MediaService,
	queries *service.QueryService,
	store *filestore.FileStore,
	signer *service.URLSigner,
	maxFileSize int64,
	baseURL string,
) *MediaHandler {
	return &MediaHandler{
		media:       media,
		queries:     queries,
		store:       store,
		signer:      signer,
		maxFileSize: maxFileSize,
		baseURL:     baseURL,
	}
}

// Upload обрабатывает POST /api/media.
// Multipart form: mediaFile (обязательно), username (опционально),
// displayName (опционально).
func (h *MediaHandler) Upload(w http.ResponseWriter, r *http.Request) {
	// Жёсткий лимит на размер тела запроса
	r.Body = http.MaxBytesReader(w, r.Body, h.maxFileSize)

	if err := r.ParseMultipartForm(32 << 20); err != nil { // 32 MB buffer
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			apierrors.FileTooLarge(w, fmt.Sprintf("Файл превышает лимит %d байт", h.maxFileSize))
			return
		}
		apierrors.ValidationError(w, fmt.Sprintf("Ошибка парсинга multipart: %s", err.Error()))
		return
	}

	file, header, err := r.FormFile("mediaFile")
	if err != nil {
		apierrors.NoFileUploaded(w, "Поле 'mediaFile' обязательно")
		return
	}
	defer file.Close()

	username := r.FormValue("username")
	displayName := r.FormValue("displayName")

	rec, err := h.media.Create(file, username, header.Filename, displayName,
		header.Header.Get("Content-Type"))
	if err != nil {
		writeMediaError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"status":  "success",
		"message": "Файл загружен",
		"media":   rec,
	})
}

// List обрабатывает GET /api/media.
// Query: user, type, search, sortBy, sortOrder, page, limit.
func (h *MediaHandler) List(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, r.URL.Query().Get("user"))
}

// ListByUser обрабатывает GET /api/users/{username}/media.
func (h *MediaHandler) ListByUser(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, chi.URLParam(r, "username"))
}

// list — общая реализация списочных endpoints.
func (h *MediaHandler) list(w http.ResponseWriter, r *http.Request, owner string) {
	q := r.URL.Query()

	params := service.QueryParams{
		Owner:     owner,
		Type:      q.Get("type"),
		Search:    q.Get("search"),
		SortField: q.Get("sortBy"),
		SortOrder: q.Get("sortOrder"),
	}
	if v := q.Get("page"); v != "" {
		params.Page, _ = strconv.Atoi(v)
	}
	if v := q.Get("limit"); v != "" {
		params.PageSize, _ = strconv.Atoi(v)
	}

	result := h.queries.Query(params)

	writeJSON(w, http.StatusOK, map[string]any{
		"status":     "success",
		"media":      result.Items,
		"pagination": result.Pagination,
	})
}

// Get обрабатывает GET /api/media/{id}.
func (h *MediaHandler) Get(w http.ResponseWriter, r *http.Request) {
	rec, err := h.media.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeMediaError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status": "success",
		"media":  rec,
	})
}

// Update обрабатывает PUT /api/media/{id}.
// Тело: {"displayName": "..."} — единственное изменяемое поле.
func (h *MediaHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DisplayName string `json:"displayName"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.ValidationError(w, fmt.Sprintf("Некорректный JSON: %s", err.Error()))
		return
	}

	rec, err := h.media.Rename(chi.URLParam(r, "id"), req.DisplayName)
	if err != nil {
		if errors.Is(err, service.ErrInvalidInput) {
			apierrors.InvalidDisplayName(w, "Поле displayName не может быть пустым")
			return
		}
		writeMediaError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "success",
		"message": "Файл переименован",
		"media":   rec,
	})
}

// Delete обрабатывает DELETE /api/media/{id}.
func (h *MediaHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.media.Delete(id); err != nil {
		writeMediaError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "success",
		"message": "Файл удалён",
		"id":      id,
	})
}

// SignedURL обрабатывает GET /api/media/{id}/url.
// Выпускает временную подписанную ссылку на скачивание.
// Параметр expires (секунды) сокращает срок жизни ссылки; срок
// ограничен сверху значением HS_URL_TTL.
func (h *MediaHandler) SignedURL(w http.ResponseWriter, r *http.Request) {
	rec, err := h.media.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeMediaError(w, err)
		return
	}

	var ttl time.Duration
	if v := r.URL.Query().Get("expires"); v != "" {
		seconds, err := strconv.Atoi(v)
		if err != nil || seconds <= 0 {
			apierrors.ValidationError(w, "Параметр expires должен быть положительным числом секунд")
			return
		}
		ttl = time.Duration(seconds) * time.Second
	}

	signedURL, expiresAt, err := h.signer.SignWithTTL(rec.ID, ttl)
	if err != nil {
		if errors.Is(err, service.ErrSigningDisabled) {
			apierrors.ValidationError(w, "Подпись ссылок не сконфигурирована (HS_URL_SIGNING_KEY)")
			return
		}
		apierrors.InternalError(w, "Ошибка подписи ссылки")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "success",
		"url":       h.baseURL + signedURL,
		"expiresAt": expiresAt.UTC(),
	})
}

// Download обрабатывает GET /api/media/{id}/download?token=...
// Токен проверяется и должен быть выпущен для этого же медиафайла.
func (h *MediaHandler) Download(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	tokenID, err := h.signer.Verify(r.URL.Query().Get("token"))
	if err != nil {
		apierrors.InvalidToken(w, "Токен скачивания недействителен или истёк")
		return
	}
	if tokenID != id {
		apierrors.InvalidToken(w, "Токен выпущен для другого медиафайла")
		return
	}

	rec, err := h.media.Get(id)
	if err != nil {
		writeMediaError(w, err)
		return
	}

	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", rec.DisplayName))
	h.serveFile(w, r, rec)
}

// ServePublic обрабатывает GET /media/{id}/{filename}.
// Публичная раздача по каноническому URL записи; сегмент filename
// декоративный, запись ищется по id.
func (h *MediaHandler) ServePublic(w http.ResponseWriter, r *http.Request) {
	rec, err := h.media.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeMediaError(w, err)
		return
	}
	h.serveFile(w, r, rec)
}

// serveFile отдаёт физический файл записи с поддержкой Range-запросов.
func (h *MediaHandler) serveFile(w http.ResponseWriter, r *http.Request, rec *model.MediaRecord) {
	f, err := h.store.Open(rec.PhysicalPath)
	if err != nil {
		apierrors.FileNotFound(w, fmt.Sprintf("Физический файл медиа %s не найден", rec.ID))
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		apierrors.InternalError(w, "Ошибка чтения файла")
		return
	}

	w.Header().Set("Content-Type", rec.MimeType)
	http.ServeContent(w, r, rec.DisplayName, info.ModTime(), f)
}

// writeMediaError отображает ошибки сервисного слоя в HTTP-ответы.
func writeMediaError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidID):
		apierrors.InvalidUUID(w, "Некорректный идентификатор медиафайла")
	case errors.Is(err, service.ErrNotFound):
		apierrors.MediaNotFound(w, "Медиафайл не найден")
	case errors.Is(err, service.ErrInvalidInput):
		apierrors.ValidationError(w, err.Error())
	case errors.Is(err, service.ErrFileDelete):
		apierrors.FileDeleteError(w, "Не удалось удалить файл с диска, запись сохранена")
	case errors.Is(err, service.ErrPersistence):
		apierrors.PersistenceError(w, "Ошибка записи журнала метаданных")
	default:
		apierrors.InternalError(w, "Внутренняя ошибка сервера")
	}
}

// writeJSON — запись JSON-ответа с указанным статус-кодом.
func writeJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}
