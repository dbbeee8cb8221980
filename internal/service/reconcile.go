// Сверка диска с каталогом: восстановление файлов-сирот.
// Файл-сирота — физический файл без записи в журнале (например, после
// потери журнала или ручного копирования файлов в хранилище). Сверка
// синтезирует для таких файлов записи с пометкой recovered.
package service

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/hivestore/internal/domain/model"
	"github.com/bigkaa/hivestore/internal/storage/catalog"
	"github.com/bigkaa/hivestore/internal/storage/journal"
)

// Метрики сверки.
var (
	reconcileRuns = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hivestore_reconcile_runs_total",
		Help: "Количество запусков сверки хранилища",
	})
	reconcileRecovered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hivestore_reconcile_recovered_total",
		Help: "Количество восстановленных файлов-сирот",
	})
)

// ReconcileResult — итог одного прохода сверки.
type ReconcileResult struct {
	// Scanned — количество просмотренных файлов
	Scanned int `json:"scanned"`
	// Recovered — количество восстановленных сирот
	Recovered int `json:"recovered"`
	// Skipped — файлы с именем не в формате UUID, пропущены
	Skipped int `json:"skipped"`
}

// ReconcileService — сверка физических файлов с каталогом.
type ReconcileService struct {
	catalog *catalog.Catalog
	queries *QueryService
	root    string
	logger  *slog.Logger

	mu        sync.Mutex
	inProcess bool
}

// NewReconcileService создаёт сервис сверки для указанного корня
// хранилища. Восстановление записей — мутация каталога, поэтому
// сервису нужен QueryService для сброса кэша запросов.
func NewReconcileService(cat *catalog.Catalog, queries *QueryService, root string, logger *slog.Logger) *ReconcileService {
	return &ReconcileService{
		catalog: cat,
		queries: queries,
		root:    root,
		logger:  logger.With(slog.String("component", "reconcile")),
	}
}

// RunOnce выполняет один проход сверки. Повторный вызов во время
// работающего прохода возвращает ошибку — сверка не параллелится.
//
// Директории первого уровня считаются владельцами; файлы в корне
// хранилища приписываются владельцу по умолчанию. Все найденные
// сироты добавляются в каталог одной записью журнала. Проход
// идемпотентен: повторный запуск ничего не находит.
func (s *ReconcileService) RunOnce() (*ReconcileResult, error) {
	s.mu.Lock()
	if s.inProcess {
		s.mu.Unlock()
		return nil, fmt.Errorf("сверка уже выполняется")
	}
	s.inProcess = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.inProcess = false
		s.mu.Unlock()
	}()

	reconcileRuns.Inc()
	started := time.Now()

	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения корня хранилища %s: %w", s.root, err)
	}

	result := &ReconcileResult{}
	var orphans []*model.MediaRecord

	for _, entry := range entries {
		if skipEntry(entry.Name()) {
			continue
		}

		if !entry.IsDir() {
			// Файл в корне хранилища — владелец по умолчанию
			s.scanFile(s.root, entry.Name(), model.DefaultOwner, result, &orphans)
			continue
		}

		owner := entry.Name()
		ownerDir := filepath.Join(s.root, owner)
		files, err := os.ReadDir(ownerDir)
		if err != nil {
			s.logger.Warn("Директория владельца не читается, пропущена",
				slog.String("owner", owner),
				slog.String("error", err.Error()),
			)
			continue
		}
		for _, f := range files {
			if f.IsDir() || skipEntry(f.Name()) {
				continue
			}
			s.scanFile(ownerDir, f.Name(), owner, result, &orphans)
		}
	}

	if len(orphans) > 0 {
		added, err := s.catalog.AppendAll(orphans)
		if err != nil {
			return nil, fmt.Errorf("ошибка сохранения восстановленных записей: %w", err)
		}
		result.Recovered = added
		reconcileRecovered.Add(float64(added))
		if added > 0 {
			s.queries.Invalidate()
		}
	}

	s.logger.Info("Сверка хранилища завершена",
		slog.Int("scanned", result.Scanned),
		slog.Int("recovered", result.Recovered),
		slog.Int("skipped", result.Skipped),
		slog.Duration("duration", time.Since(started)),
	)
	return result, nil
}

// scanFile проверяет один файл и при необходимости синтезирует
// восстановленную запись.
func (s *ReconcileService) scanFile(dir, name, owner string, result *ReconcileResult, orphans *[]*model.MediaRecord) {
	result.Scanned++

	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	if !model.IsValidID(stem) {
		result.Skipped++
		s.logger.Warn("Файл с именем не в формате UUID, пропущен",
			slog.String("owner", owner),
			slog.String("file", name),
		)
		return
	}

	if _, known := s.catalog.ByID(stem); known {
		return
	}

	fullPath := filepath.Join(dir, name)
	info, err := os.Stat(fullPath)
	if err != nil {
		s.logger.Warn("Файл исчез во время сверки",
			slog.String("path", fullPath),
			slog.String("error", err.Error()),
		)
		return
	}

	rec := recoveredRecord(stem, owner, name, ext, fullPath, info.Size(), info.ModTime().UTC())
	*orphans = append(*orphans, rec)
	s.logger.Info("Найден файл-сирота, запись восстановлена",
		slog.String("id", stem),
		slog.String("owner", owner),
		slog.String("file", name),
	)
}

// recoveredRecord синтезирует запись для файла-сироты.
// Оригинальное имя утрачено, отображаемое имя строится из первых
// восьми символов идентификатора.
func recoveredRecord(id, owner, storedName, ext, fullPath string, size int64, modTime time.Time) *model.MediaRecord {
	rec := &model.MediaRecord{
		ID:             id,
		Owner:          owner,
		OriginalName:   storedName,
		DisplayName:    fmt.Sprintf("Recovered File %s%s", id[:8], ext),
		StoredFilename: storedName,
		PhysicalPath:   fullPath,
		MimeType:       model.MimeFromExtension(ext),
		SizeBytes:      size,
		SizeFormatted:  model.FormatSize(size),
		CreatedAt:      modTime,
		UpdatedAt:      modTime,
		Recovered:      true,
	}
	rec.RecomputeURL()
	return rec
}

// skipEntry — служебные элементы хранилища, не участвующие в сверке.
func skipEntry(name string) bool {
	return name == journal.Filename ||
		strings.HasPrefix(name, ".") ||
		strings.HasSuffix(name, ".tmp")
}
