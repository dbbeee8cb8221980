package service

import (
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/bigkaa/hivestore/internal/domain/model"
	"github.com/bigkaa/hivestore/internal/storage/catalog"
	"github.com/bigkaa/hivestore/internal/storage/journal"
)

// testLogger — тихий логгер для тестов.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// queryRecord создаёт запись для тестов движка запросов.
func queryRecord(id, owner, displayName, mime string, size int64, created time.Time) *model.MediaRecord {
	return &model.MediaRecord{
		ID:           id,
		Owner:        owner,
		OriginalName: displayName,
		DisplayName:  displayName,
		MimeType:     mime,
		SizeBytes:    size,
		CreatedAt:    created,
		UpdatedAt:    created,
	}
}

// testID формирует валидный UUID с числовым префиксом.
func testID(i int) string {
	return fmt.Sprintf("%08d-e29b-41d4-a716-446655440000", i)
}

// queryFixture — набор записей для тестов фильтрации.
func queryFixture() []*model.MediaRecord {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return []*model.MediaRecord{
		queryRecord(testID(1), "alice", "Отпуск.jpg", "image/jpeg", 300, base.Add(1*time.Hour)),
		queryRecord(testID(2), "bob", "report.pdf", "application/pdf", 100, base.Add(2*time.Hour)),
		queryRecord(testID(3), "alice", "Видео кота.mp4", "video/mp4", 900, base.Add(3*time.Hour)),
		queryRecord(testID(4), "alice", "avatar.png", "image/png", 200, base.Add(4*time.Hour)),
	}
}

// TestRunQuery_DefaultSort проверяет сортировку по умолчанию:
// createdAt по убыванию.
func TestRunQuery_DefaultSort(t *testing.T) {
	result := RunQuery(queryFixture(), QueryParams{})

	if len(result.Items) != 4 {
		t.Fatalf("ожидалось 4 записи, получено %d", len(result.Items))
	}
	if result.Items[0].ID != testID(4) || result.Items[3].ID != testID(1) {
		t.Error("по умолчанию сортировка createdAt desc")
	}
}

// TestRunQuery_FilterOwner проверяет фильтр по владельцу.
func TestRunQuery_FilterOwner(t *testing.T) {
	result := RunQuery(queryFixture(), QueryParams{Owner: "alice"})

	if result.Pagination.TotalItems != 3 {
		t.Fatalf("ожидалось 3 записи alice, получено %d", result.Pagination.TotalItems)
	}
	for _, rec := range result.Items {
		if rec.Owner != "alice" {
			t.Errorf("чужая запись в выборке: %s", rec.ID)
		}
	}
}

// TestRunQuery_FilterType проверяет префиксный фильтр по MIME-типу.
func TestRunQuery_FilterType(t *testing.T) {
	tests := []struct {
		mimeType string
		want     int
	}{
		{"image", 2},
		{"IMAGE", 2}, // регистронезависимо
		{"image/png", 1},
		{"video", 1},
		{"audio", 0},
	}

	for _, tt := range tests {
		result := RunQuery(queryFixture(), QueryParams{Type: tt.mimeType})
		if result.Pagination.TotalItems != tt.want {
			t.Errorf("type=%q: ожидалось %d, получено %d", tt.mimeType, tt.want, result.Pagination.TotalItems)
		}
	}
}

// TestRunQuery_Search проверяет регистронезависимый поиск по
// displayName и originalName.
func TestRunQuery_Search(t *testing.T) {
	records := queryFixture()
	// originalName отличается от displayName
	records[1].OriginalName = "годовой-отчёт.pdf"

	tests := []struct {
		search string
		want   int
	}{
		{"отпуск", 1}, // displayName, другой регистр
		{"КОТА", 1},
		{"отчёт", 1}, // совпадение только по originalName
		{"report", 1},
		{"ничего", 0},
	}

	for _, tt := range tests {
		result := RunQuery(records, QueryParams{Search: tt.search})
		if result.Pagination.TotalItems != tt.want {
			t.Errorf("search=%q: ожидалось %d, получено %d", tt.search, tt.want, result.Pagination.TotalItems)
		}
	}
}

// TestRunQuery_CombinedFilters проверяет конъюнкцию фильтров.
func TestRunQuery_CombinedFilters(t *testing.T) {
	result := RunQuery(queryFixture(), QueryParams{Owner: "alice", Type: "image"})

	if result.Pagination.TotalItems != 2 {
		t.Fatalf("ожидалось 2 записи, получено %d", result.Pagination.TotalItems)
	}
}

// TestRunQuery_SortName проверяет регистронезависимую сортировку по имени.
func TestRunQuery_SortName(t *testing.T) {
	result := RunQuery(queryFixture(), QueryParams{SortField: SortByName, SortOrder: OrderAsc})

	// ascii раньше кириллицы: avatar.png, report.pdf, Видео кота.mp4, Отпуск.jpg
	if result.Items[0].DisplayName != "avatar.png" {
		t.Errorf("первая запись: %q", result.Items[0].DisplayName)
	}
	if result.Items[1].DisplayName != "report.pdf" {
		t.Errorf("вторая запись: %q", result.Items[1].DisplayName)
	}
}

// TestRunQuery_SortSize проверяет сортировку по размеру.
func TestRunQuery_SortSize(t *testing.T) {
	result := RunQuery(queryFixture(), QueryParams{SortField: SortBySize, SortOrder: OrderAsc})

	var prev int64 = -1
	for _, rec := range result.Items {
		if rec.SizeBytes < prev {
			t.Fatalf("нарушен порядок сортировки по размеру: %d после %d", rec.SizeBytes, prev)
		}
		prev = rec.SizeBytes
	}
}

// TestRunQuery_StableSort проверяет, что при равных ключах сортировки
// сохраняется порядок вставки (детерминированный tie-break).
func TestRunQuery_StableSort(t *testing.T) {
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	records := []*model.MediaRecord{
		queryRecord(testID(1), "alice", "a.jpg", "image/jpeg", 100, created),
		queryRecord(testID(2), "alice", "b.jpg", "image/jpeg", 100, created),
		queryRecord(testID(3), "alice", "c.jpg", "image/jpeg", 100, created),
	}

	for i := 0; i < 5; i++ {
		result := RunQuery(records, QueryParams{SortField: SortBySize, SortOrder: OrderAsc})
		for j, rec := range result.Items {
			if rec.ID != testID(j+1) {
				t.Fatalf("итерация %d: порядок вставки нарушен на позиции %d: %s", i, j, rec.ID)
			}
		}
	}
}

// TestRunQuery_Pagination проверяет разбиение на страницы.
func TestRunQuery_Pagination(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	records := make([]*model.MediaRecord, 45)
	for i := range records {
		records[i] = queryRecord(testID(i), "alice", fmt.Sprintf("f%02d.jpg", i), "image/jpeg", 100, base.Add(time.Duration(i)*time.Minute))
	}

	result := RunQuery(records, QueryParams{Page: 2, PageSize: 20})

	p := result.Pagination
	if p.CurrentPage != 2 || p.TotalPages != 3 || p.TotalItems != 45 || p.ItemsPerPage != 20 {
		t.Errorf("пагинация: %+v", p)
	}
	if !p.HasNextPage || !p.HasPrevPage {
		t.Errorf("страница 2 из 3 должна иметь соседей: %+v", p)
	}
	if len(result.Items) != 20 {
		t.Errorf("ожидалось 20 записей на странице, получено %d", len(result.Items))
	}

	last := RunQuery(records, QueryParams{Page: 3, PageSize: 20})
	if len(last.Items) != 5 || last.Pagination.HasNextPage {
		t.Errorf("последняя страница: items=%d, hasNext=%v", len(last.Items), last.Pagination.HasNextPage)
	}
}

// TestRunQuery_PageBeyondRange проверяет страницу за пределами данных:
// пустой список, метаданные пагинации корректны.
func TestRunQuery_PageBeyondRange(t *testing.T) {
	result := RunQuery(queryFixture(), QueryParams{Page: 99, PageSize: 20})

	if len(result.Items) != 0 {
		t.Errorf("страница за пределами должна быть пустой: %d записей", len(result.Items))
	}
	if result.Pagination.CurrentPage != 99 || result.Pagination.TotalPages != 1 {
		t.Errorf("пагинация: %+v", result.Pagination)
	}
	if result.Pagination.HasNextPage || !result.Pagination.HasPrevPage {
		t.Errorf("пагинация за пределами: %+v", result.Pagination)
	}
}

// TestRunQuery_Empty проверяет запрос над пустым каталогом.
func TestRunQuery_Empty(t *testing.T) {
	result := RunQuery(nil, QueryParams{})

	if len(result.Items) != 0 {
		t.Errorf("ожидался пустой список: %d", len(result.Items))
	}
	p := result.Pagination
	if p.TotalItems != 0 || p.TotalPages != 0 || p.HasNextPage || p.HasPrevPage {
		t.Errorf("пагинация пустого каталога: %+v", p)
	}
}

// TestQueryParams_Normalized проверяет значения по умолчанию и границы.
func TestQueryParams_Normalized(t *testing.T) {
	tests := []struct {
		name string
		in   QueryParams
		want QueryParams
	}{
		{
			name: "нулевые значения",
			in:   QueryParams{},
			want: QueryParams{SortField: SortByCreatedAt, SortOrder: OrderDesc, Page: 1, PageSize: DefaultPageSize},
		},
		{
			name: "отрицательная страница",
			in:   QueryParams{Page: -5, PageSize: -1},
			want: QueryParams{SortField: SortByCreatedAt, SortOrder: OrderDesc, Page: 1, PageSize: DefaultPageSize},
		},
		{
			name: "превышение размера страницы",
			in:   QueryParams{Page: 2, PageSize: 500},
			want: QueryParams{SortField: SortByCreatedAt, SortOrder: OrderDesc, Page: 2, PageSize: MaxPageSize},
		},
		{
			name: "неизвестное поле сортировки",
			in:   QueryParams{SortField: "owner", SortOrder: "random"},
			want: QueryParams{SortField: SortByCreatedAt, SortOrder: OrderDesc, Page: 1, PageSize: DefaultPageSize},
		},
		{
			name: "явные корректные значения",
			in:   QueryParams{SortField: SortBySize, SortOrder: OrderAsc, Page: 3, PageSize: 50},
			want: QueryParams{SortField: SortBySize, SortOrder: OrderAsc, Page: 3, PageSize: 50},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.in.normalized()
			if got != tt.want {
				t.Errorf("ожидалось %+v, получено %+v", tt.want, got)
			}
		})
	}
}

// TestQueryService_CacheInvalidation проверяет, что после Invalidate
// запрос видит изменения каталога.
func TestQueryService_CacheInvalidation(t *testing.T) {
	dir := t.TempDir()
	cat := catalog.New(journal.New(dir), testLogger())
	if err := cat.Load(); err != nil {
		t.Fatalf("ошибка загрузки каталога: %v", err)
	}

	qs := NewQueryService(cat, 16, time.Minute)

	if got := qs.Query(QueryParams{}); got.Pagination.TotalItems != 0 {
		t.Fatalf("ожидался пустой каталог: %d", got.Pagination.TotalItems)
	}

	rec := queryRecord(testID(1), "alice", "a.jpg", "image/jpeg", 100, time.Now().UTC())
	if err := cat.Append(rec); err != nil {
		t.Fatalf("ошибка добавления: %v", err)
	}

	// Без инвалидации кэш отдаёт устаревший результат
	if got := qs.Query(QueryParams{}); got.Pagination.TotalItems != 0 {
		t.Fatal("до Invalidate кэш должен отдавать закэшированный результат")
	}

	qs.Invalidate()

	if got := qs.Query(QueryParams{}); got.Pagination.TotalItems != 1 {
		t.Errorf("после Invalidate ожидалась 1 запись, получено %d", got.Pagination.TotalItems)
	}
}

// TestQueryService_NoCache проверяет работу с отключённым кэшем.
func TestQueryService_NoCache(t *testing.T) {
	dir := t.TempDir()
	cat := catalog.New(journal.New(dir), testLogger())
	if err := cat.Load(); err != nil {
		t.Fatalf("ошибка загрузки каталога: %v", err)
	}

	qs := NewQueryService(cat, 0, time.Minute)

	rec := queryRecord(testID(1), "alice", "a.jpg", "image/jpeg", 100, time.Now().UTC())
	if err := cat.Append(rec); err != nil {
		t.Fatalf("ошибка добавления: %v", err)
	}

	// Изменения видны сразу, без Invalidate
	if got := qs.Query(QueryParams{}); got.Pagination.TotalItems != 1 {
		t.Errorf("без кэша изменения видны сразу: %d", got.Pagination.TotalItems)
	}
}
