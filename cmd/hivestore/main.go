// Точка входа Hivestore — сервиса хранения медиафайлов.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/bigkaa/hivestore/internal/api/handlers"
	"github.com/bigkaa/hivestore/internal/config"
	"github.com/bigkaa/hivestore/internal/server"
	"github.com/bigkaa/hivestore/internal/service"
	"github.com/bigkaa/hivestore/internal/storage/catalog"
	"github.com/bigkaa/hivestore/internal/storage/filestore"
	"github.com/bigkaa/hivestore/internal/storage/journal"
)

func main() {
	// Загрузка конфигурации из переменных окружения
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Ошибка конфигурации: %v\n", err)
		os.Exit(1)
	}

	// Настройка логгера
	logger := config.SetupLogger(cfg)
	logger.Info("Hivestore запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
		slog.String("data_dir", cfg.DataDir),
	)

	// --- Инициализация компонентов ---

	// 1. Файловое хранилище
	store, err := filestore.New(cfg.DataDir)
	if err != nil {
		logger.Error("Ошибка инициализации FileStore", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 2. Каталог метаданных: загрузка журнала с очисткой записей
	// без файлов
	cat := catalog.New(journal.New(store.Root()), logger)
	if err := cat.Load(); err != nil {
		logger.Error("Ошибка загрузки каталога", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 3. Сервис запросов с кэшем; создаётся до сверки, потому что
	// сверка — мутация каталога и сбрасывает кэш
	querySvc := service.NewQueryService(cat, cfg.QueryCacheSize, cfg.QueryCacheTTL)

	// 4. Стартовая сверка: восстановление файлов-сирот
	reconcileSvc := service.NewReconcileService(cat, querySvc, store.Root(), logger)
	result, err := reconcileSvc.RunOnce()
	if err != nil {
		logger.Error("Ошибка стартовой сверки", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if result.Recovered > 0 {
		logger.Info("Стартовая сверка восстановила файлы-сироты",
			slog.Int("recovered", result.Recovered),
		)
	}

	// 5. Остальные сервисы
	mediaSvc := service.NewMediaService(cat, store, querySvc, logger)
	signer := service.NewURLSigner(cfg.URLSigningKey, cfg.URLTTL)
	if !signer.Enabled() {
		logger.Warn("HS_URL_SIGNING_KEY не задан, подписанные ссылки отключены")
	}

	// 6. Handlers
	h := server.Handlers{
		Media:  handlers.NewMediaHandler(mediaSvc, querySvc, store, signer, cfg.MaxFileSize, cfg.BaseURL),
		System: handlers.NewSystemHandler(cat, reconcileSvc),
		Health: handlers.NewHealthHandler(store.Root(), cat),
	}

	// 7. HTTP-сервер
	srv := server.New(cfg, logger, h)

	logger.Info("Каталог готов",
		slog.Int("records", cat.Count()),
		slog.Int64("total_bytes", cat.TotalSizeBytes()),
	)

	if err := srv.Run(); err != nil {
		logger.Error("Сервер завершился с ошибкой", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
