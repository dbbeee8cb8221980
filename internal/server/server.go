// Пакет server — HTTP-сервер Hivestore с graceful shutdown.
package server

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bigkaa/hivestore/internal/api/handlers"
	"github.com/bigkaa/hivestore/internal/api/middleware"
	"github.com/bigkaa/hivestore/internal/config"
)

// Handlers — набор обработчиков, монтируемых сервером.
type Handlers struct {
	Media  *handlers.MediaHandler
	System *handlers.SystemHandler
	Health *handlers.HealthHandler
}

// Server — HTTP-сервер Hivestore.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
	cfg        *config.Config
}

// New создаёт новый HTTP-сервер с настроенными routes и middleware.
func New(cfg *config.Config, logger *slog.Logger, h Handlers) *Server {
	router := chi.NewRouter()

	router.Use(middleware.RequestLogger(logger))
	router.Use(middleware.MetricsMiddleware())

	// Публичные endpoints: probes, метрики, сервисный статус,
	// раздача файлов по каноническим URL
	router.Get("/health/live", h.Health.HealthLive)
	router.Get("/health/ready", h.Health.HealthReady)
	router.Method(http.MethodGet, "/metrics", promhttp.Handler())
	router.Get("/api/health", h.System.APIHealth)
	router.Get("/media/{id}/{filename}", h.Media.ServePublic)
	// Скачивание по подписанной ссылке: авторизация — сам токен
	router.Get("/api/media/{id}/download", h.Media.Download)

	// Защищённые endpoints: API-ключ обязателен
	router.Group(func(r chi.Router) {
		r.Use(middleware.APIKeyMiddleware(cfg.APIKey, logger))

		r.Route("/api/media", func(r chi.Router) {
			r.Post("/", h.Media.Upload)
			r.Get("/", h.Media.List)
			r.Get("/{id}", h.Media.Get)
			r.Put("/{id}", h.Media.Update)
			r.Delete("/{id}", h.Media.Delete)
			r.Get("/{id}/url", h.Media.SignedURL)
		})

		r.Get("/api/users", h.System.Users)
		r.Get("/api/users/{username}/media", h.Media.ListByUser)
		r.Get("/api/stats", h.System.Stats)
		r.Post("/api/maintenance/reconcile", h.System.Reconcile)
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Настройка TLS
	if cfg.TLSCert != "" && cfg.TLSKey != "" {
		srv.TLSConfig = &tls.Config{
			MinVersion: tls.VersionTLS12,
		}
	}

	return &Server{
		httpServer: srv,
		logger:     logger,
		cfg:        cfg,
	}
}

// Run запускает сервер и ожидает сигнала завершения (SIGINT, SIGTERM).
// При получении сигнала выполняется graceful shutdown с таймаутом
// из конфигурации.
func (s *Server) Run() error {
	// Канал для ошибок сервера
	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("HTTP-сервер запущен",
			slog.String("addr", s.httpServer.Addr),
			slog.Bool("tls", s.cfg.TLSCert != ""),
		)

		var err error
		if s.cfg.TLSCert != "" && s.cfg.TLSKey != "" {
			err = s.httpServer.ListenAndServeTLS(s.cfg.TLSCert, s.cfg.TLSKey)
		} else {
			err = s.httpServer.ListenAndServe()
		}

		if err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	// Ожидание сигнала завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		s.logger.Info("Получен сигнал завершения", slog.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("ошибка HTTP-сервера: %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	s.logger.Info("Выполняется graceful shutdown...")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("ошибка при graceful shutdown: %w", err)
	}

	s.logger.Info("HTTP-сервер остановлен")
	return nil
}
