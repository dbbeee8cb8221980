// system.go — системные endpoints: статистика хранилища, сводка по
// владельцам, сервисный health и ручной запуск сверки.
package handlers

import (
	"net/http"
	"time"

	apierrors "github.com/bigkaa/hivestore/internal/api/errors"
	"github.com/bigkaa/hivestore/internal/api/middleware"
	"github.com/bigkaa/hivestore/internal/config"
	"github.com/bigkaa/hivestore/internal/domain/model"
	"github.com/bigkaa/hivestore/internal/service"
	"github.com/bigkaa/hivestore/internal/storage/catalog"
)

// SystemHandler — обработчик системных endpoints.
type SystemHandler struct {
	catalog   *catalog.Catalog
	reconcile *service.ReconcileService
	startedAt time.Time
}

// NewSystemHandler создаёт обработчик системных endpoints.
func NewSystemHandler(cat *catalog.Catalog, reconcile *service.ReconcileService) *SystemHandler {
	return &SystemHandler{
		catalog:   cat,
		reconcile: reconcile,
		startedAt: time.Now(),
	}
}

// Stats обрабатывает GET /api/stats.
// Сводная статистика хранилища из каталога.
func (h *SystemHandler) Stats(w http.ResponseWriter, _ *http.Request) {
	stats := h.catalog.ComputeStats()

	// Обновляем gauge-метрики вместе с ответом
	middleware.FilesTotal.Set(float64(stats.TotalFiles))
	middleware.StorageBytes.Set(float64(stats.TotalSizeBytes))

	body := map[string]any{
		"totalFiles":         stats.TotalFiles,
		"totalSize":          stats.TotalSizeBytes,
		"totalSizeFormatted": model.FormatSize(stats.TotalSizeBytes),
		"byType":             stats.CountsByType,
	}
	if stats.LastUploadAt != nil {
		body["lastUpload"] = stats.LastUploadAt.UTC()
	} else {
		body["lastUpload"] = nil
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status": "success",
		"stats":  body,
	})
}

// Users обрабатывает GET /api/users.
// Сводка по владельцам: количество файлов, суммарный размер,
// последняя загрузка.
func (h *SystemHandler) Users(w http.ResponseWriter, _ *http.Request) {
	owners := h.catalog.Owners()

	users := make([]map[string]any, 0, len(owners))
	for _, o := range owners {
		users = append(users, map[string]any{
			"username":           o.Owner,
			"mediaCount":         o.MediaCount,
			"totalSize":          o.TotalSizeBytes,
			"totalSizeFormatted": model.FormatSize(o.TotalSizeBytes),
			"lastUpload":         o.LastUploadAt.UTC(),
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status": "success",
		"users":  users,
	})
}

// APIHealth обрабатывает GET /api/health.
// Публичный сервисный статус с аптаймом и количеством записей.
func (h *SystemHandler) APIHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":     "ok",
		"version":    config.Version,
		"uptime":     time.Since(h.startedAt).Round(time.Second).String(),
		"timestamp":  time.Now().UTC(),
		"mediaCount": h.catalog.Count(),
	})
}

// Reconcile обрабатывает POST /api/maintenance/reconcile.
// Ручной запуск сверки диска с каталогом.
func (h *SystemHandler) Reconcile(w http.ResponseWriter, _ *http.Request) {
	result, err := h.reconcile.RunOnce()
	if err != nil {
		apierrors.InternalError(w, "Ошибка сверки хранилища: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status": "success",
		"result": result,
	})
}
