// Запросы к каталогу: фильтрация, сортировка, пагинация.
// Движок запросов — чистая функция над снимком каталога; кэширующая
// обёртка QueryService хранит результаты в LRU с TTL и сбрасывается
// при каждой мутации каталога.
package service

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/hivestore/internal/domain/model"
	"github.com/bigkaa/hivestore/internal/storage/catalog"
)

// Поля и порядок сортировки.
const (
	SortByCreatedAt = "createdAt"
	SortByName      = "name"
	SortBySize      = "size"

	OrderAsc  = "asc"
	OrderDesc = "desc"
)

// Границы пагинации.
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Метрики кэша запросов.
var (
	queryCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hivestore_query_cache_hits_total",
		Help: "Количество попаданий в кэш запросов",
	})
	queryCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hivestore_query_cache_misses_total",
		Help: "Количество промахов кэша запросов",
	})
)

// QueryParams — параметры запроса списка медиафайлов.
// Нулевые значения означают «не фильтровать» / «по умолчанию».
type QueryParams struct {
	// Owner — точное совпадение владельца
	Owner string
	// Type — регистронезависимый префикс MIME-типа (image, video/mp4, ...)
	Type string
	// Search — регистронезависимая подстрока в displayName или originalName
	Search string
	// SortField — createdAt (по умолчанию), name или size
	SortField string
	// SortOrder — asc или desc (по умолчанию)
	SortOrder string
	// Page — номер страницы, начиная с 1
	Page int
	// PageSize — размер страницы, ограничен [1, MaxPageSize]
	PageSize int
}

// normalized приводит параметры к каноническому виду: значения по
// умолчанию, границы пагинации, неизвестные поля сортировки.
func (p QueryParams) normalized() QueryParams {
	switch p.SortField {
	case SortByName, SortBySize:
	default:
		p.SortField = SortByCreatedAt
	}
	if p.SortOrder != OrderAsc {
		p.SortOrder = OrderDesc
	}
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = DefaultPageSize
	}
	if p.PageSize > MaxPageSize {
		p.PageSize = MaxPageSize
	}
	return p
}

// cacheKey — каноническое строковое представление параметров,
// ключ кэша запросов.
func (p QueryParams) cacheKey() string {
	return fmt.Sprintf("o=%s|t=%s|q=%s|s=%s|d=%s|p=%d|n=%d",
		p.Owner, p.Type, strings.ToLower(p.Search), p.SortField, p.SortOrder, p.Page, p.PageSize)
}

// Pagination — сведения о пагинации в ответе.
type Pagination struct {
	CurrentPage  int  `json:"currentPage"`
	TotalPages   int  `json:"totalPages"`
	TotalItems   int  `json:"totalItems"`
	ItemsPerPage int  `json:"itemsPerPage"`
	HasNextPage  bool `json:"hasNextPage"`
	HasPrevPage  bool `json:"hasPrevPage"`
}

// QueryResult — страница записей с пагинацией.
type QueryResult struct {
	Items      []*model.MediaRecord `json:"media"`
	Pagination Pagination           `json:"pagination"`
}

// RunQuery выполняет запрос над снимком записей: фильтрация →
// стабильная сортировка → пагинация. Чистая функция, исходный
// снимок не мутируется.
//
// Стабильная сортировка сохраняет порядок вставки для равных ключей,
// поэтому результат детерминирован между вызовами.
func RunQuery(records []*model.MediaRecord, params QueryParams) *QueryResult {
	p := params.normalized()

	filtered := make([]*model.MediaRecord, 0, len(records))
	typePrefix := strings.ToLower(p.Type)
	search := strings.ToLower(p.Search)

	for _, rec := range records {
		if p.Owner != "" && rec.Owner != p.Owner {
			continue
		}
		if typePrefix != "" && !strings.HasPrefix(strings.ToLower(rec.MimeType), typePrefix) {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(rec.DisplayName), search) &&
			!strings.Contains(strings.ToLower(rec.OriginalName), search) {
			continue
		}
		filtered = append(filtered, rec)
	}

	sortRecords(filtered, p.SortField, p.SortOrder)

	total := len(filtered)
	totalPages := (total + p.PageSize - 1) / p.PageSize

	start := (p.Page - 1) * p.PageSize
	end := start + p.PageSize
	if start > total {
		start = total
	}
	if end > total {
		end = total
	}

	return &QueryResult{
		Items: filtered[start:end],
		Pagination: Pagination{
			CurrentPage:  p.Page,
			TotalPages:   totalPages,
			TotalItems:   total,
			ItemsPerPage: p.PageSize,
			HasNextPage:  p.Page < totalPages,
			HasPrevPage:  p.Page > 1,
		},
	}
}

// sortRecords — стабильная сортировка по одному из трёх полей.
// Имена сравниваются регистронезависимо.
func sortRecords(records []*model.MediaRecord, field, order string) {
	var less func(a, b *model.MediaRecord) bool

	switch field {
	case SortByName:
		less = func(a, b *model.MediaRecord) bool {
			return strings.ToLower(a.DisplayName) < strings.ToLower(b.DisplayName)
		}
	case SortBySize:
		less = func(a, b *model.MediaRecord) bool {
			return a.SizeBytes < b.SizeBytes
		}
	default:
		less = func(a, b *model.MediaRecord) bool {
			return a.CreatedAt.Before(b.CreatedAt)
		}
	}

	if order == OrderDesc {
		inner := less
		less = func(a, b *model.MediaRecord) bool { return inner(b, a) }
	}

	sort.SliceStable(records, func(i, j int) bool {
		return less(records[i], records[j])
	})
}

// QueryService — запросы к каталогу с LRU-кэшем результатов.
// Кэш ограничен по размеру и TTL; инвалидируется целиком при любой
// мутации каталога (см. Invalidate).
type QueryService struct {
	catalog *catalog.Catalog
	cache   *expirable.LRU[string, *QueryResult]
}

// NewQueryService создаёт сервис запросов.
// cacheSize <= 0 отключает кэширование.
func NewQueryService(cat *catalog.Catalog, cacheSize int, cacheTTL time.Duration) *QueryService {
	s := &QueryService{catalog: cat}
	if cacheSize > 0 {
		s.cache = expirable.NewLRU[string, *QueryResult](cacheSize, nil, cacheTTL)
	}
	return s
}

// Query выполняет запрос, используя кэш результатов.
func (s *QueryService) Query(params QueryParams) *QueryResult {
	p := params.normalized()

	if s.cache != nil {
		if cached, ok := s.cache.Get(p.cacheKey()); ok {
			queryCacheHits.Inc()
			return cached
		}
		queryCacheMisses.Inc()
	}

	result := RunQuery(s.catalog.Snapshot(), p)

	if s.cache != nil {
		s.cache.Add(p.cacheKey(), result)
	}
	return result
}

// Invalidate сбрасывает кэш запросов. Вызывается после каждой
// мутации каталога.
func (s *QueryService) Invalidate() {
	if s.cache != nil {
		s.cache.Purge()
	}
}
