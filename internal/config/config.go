// Пакет config — загрузка и валидация конфигурации Hivestore
// из переменных окружения.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Версия приложения, задаётся при сборке через -ldflags.
var Version = "dev"

// Config содержит все параметры конфигурации Hivestore.
type Config struct {
	// Порт HTTP-сервера
	Port int
	// Путь к директории хранения файлов
	DataDir string
	// API-ключ для защищённых endpoints
	APIKey string
	// Максимальный размер загружаемого файла в байтах
	MaxFileSize int64
	// Базовый URL сервиса для абсолютных ссылок (опционально)
	BaseURL string
	// Ключ подписи ссылок на скачивание (пустой — подпись отключена)
	URLSigningKey string
	// Срок жизни подписанной ссылки
	URLTTL time.Duration
	// Размер LRU-кэша запросов (0 — кэш отключён)
	QueryCacheSize int
	// TTL записей кэша запросов
	QueryCacheTTL time.Duration
	// Путь к TLS сертификату (опционально)
	TLSCert string
	// Путь к TLS приватному ключу (опционально)
	TLSKey string
	// Уровень логирования (debug, info, warn, error)
	LogLevel slog.Level
	// Формат логов (json, text)
	LogFormat string
	// Таймаут graceful shutdown HTTP-сервера.
	// Должен быть меньше K8s terminationGracePeriodSeconds.
	ShutdownTimeout time.Duration
}

// Load загружает конфигурацию из переменных окружения, валидирует
// обязательные поля и возвращает Config или ошибку.
func Load() (*Config, error) {
	cfg := &Config{}

	// HS_PORT — порт HTTP-сервера (по умолчанию 3000)
	port, err := getEnvInt("HS_PORT", 3000)
	if err != nil {
		return nil, fmt.Errorf("HS_PORT: %w", err)
	}
	if port < 1 || port > 65535 {
		return nil, fmt.Errorf("HS_PORT: значение %d вне допустимого диапазона 1-65535", port)
	}
	cfg.Port = port

	// HS_DATA_DIR — директория хранения файлов (по умолчанию "uploads")
	cfg.DataDir = getEnvDefault("HS_DATA_DIR", "uploads")

	// HS_API_KEY — обязательный
	cfg.APIKey, err = getEnvRequired("HS_API_KEY")
	if err != nil {
		return nil, err
	}

	// HS_MAX_FILE_SIZE — максимальный размер файла (по умолчанию 100 MB)
	maxFileSize, err := getEnvInt64("HS_MAX_FILE_SIZE", 104857600)
	if err != nil {
		return nil, fmt.Errorf("HS_MAX_FILE_SIZE: %w", err)
	}
	if maxFileSize <= 0 {
		return nil, fmt.Errorf("HS_MAX_FILE_SIZE: значение должно быть положительным")
	}
	cfg.MaxFileSize = maxFileSize

	// HS_BASE_URL — базовый URL сервиса (опционально)
	cfg.BaseURL = strings.TrimRight(getEnvDefault("HS_BASE_URL", ""), "/")

	// HS_URL_SIGNING_KEY — ключ подписи ссылок (опционально)
	cfg.URLSigningKey = getEnvDefault("HS_URL_SIGNING_KEY", "")

	// HS_URL_TTL — срок жизни подписанной ссылки (по умолчанию 15m)
	cfg.URLTTL, err = getEnvDuration("HS_URL_TTL", 15*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("HS_URL_TTL: %w", err)
	}

	// HS_QUERY_CACHE_SIZE — размер кэша запросов (по умолчанию 128)
	cfg.QueryCacheSize, err = getEnvInt("HS_QUERY_CACHE_SIZE", 128)
	if err != nil {
		return nil, fmt.Errorf("HS_QUERY_CACHE_SIZE: %w", err)
	}

	// HS_QUERY_CACHE_TTL — TTL кэша запросов (по умолчанию 30s)
	cfg.QueryCacheTTL, err = getEnvDuration("HS_QUERY_CACHE_TTL", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("HS_QUERY_CACHE_TTL: %w", err)
	}

	// HS_TLS_CERT / HS_TLS_KEY — TLS (опционально, но только парой)
	cfg.TLSCert = getEnvDefault("HS_TLS_CERT", "")
	cfg.TLSKey = getEnvDefault("HS_TLS_KEY", "")
	if (cfg.TLSCert == "") != (cfg.TLSKey == "") {
		return nil, fmt.Errorf("HS_TLS_CERT и HS_TLS_KEY должны задаваться вместе")
	}

	// HS_LOG_LEVEL — уровень логирования (по умолчанию info)
	cfg.LogLevel, err = parseLogLevel(getEnvDefault("HS_LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("HS_LOG_LEVEL: %w", err)
	}

	// HS_LOG_FORMAT — формат логов (по умолчанию json)
	cfg.LogFormat = getEnvDefault("HS_LOG_FORMAT", "json")
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("HS_LOG_FORMAT: недопустимое значение %q, допустимые: json, text", cfg.LogFormat)
	}

	// HS_SHUTDOWN_TIMEOUT — таймаут graceful shutdown (по умолчанию 5s)
	cfg.ShutdownTimeout, err = getEnvDuration("HS_SHUTDOWN_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("HS_SHUTDOWN_TIMEOUT: %w", err)
	}

	return cfg, nil
}

// SetupLogger настраивает глобальный slog-логгер на основе конфигурации.
func SetupLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// --- Вспомогательные функции ---

// getEnvRequired возвращает значение переменной окружения или ошибку, если она не задана.
func getEnvRequired(key string) (string, error) {
	val := os.Getenv(key)
	if val == "" {
		return "", fmt.Errorf("%s: обязательная переменная окружения не задана", key)
	}
	return val, nil
}

// getEnvDefault возвращает значение переменной окружения или значение по умолчанию.
func getEnvDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

// getEnvInt возвращает целочисленное значение переменной окружения или значение по умолчанию.
func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("некорректное целое число: %q", val)
	}
	return n, nil
}

// getEnvInt64 возвращает int64 значение переменной окружения или значение по умолчанию.
func getEnvInt64(key string, defaultVal int64) (int64, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("некорректное целое число: %q", val)
	}
	return n, nil
}

// getEnvDuration возвращает time.Duration из переменной окружения или значение по умолчанию.
func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("некорректная длительность: %q (используйте формат Go: 30s, 15m, 1h)", val)
	}
	return d, nil
}

// parseLogLevel преобразует строку уровня логирования в slog.Level.
func parseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("недопустимый уровень %q, допустимые: debug, info, warn, error", level)
	}
}
