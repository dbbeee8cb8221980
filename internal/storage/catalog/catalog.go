// Пакет catalog — потокобезопасное in-memory хранилище записей MediaRecord,
// персистентное через журнал metadata.json.
//
// Каталог — единственный владелец набора записей в процессе. Все мутации
// (добавление, обновление, удаление) выполняются под эксклюзивной
// блокировкой вместе с записью журнала: в каждый момент времени не более
// одной мутации, что исключает потерянные обновления при конкурентных
// записях журнала. Чтения конкурентны и возвращают копии.
//
// Порядок записей — порядок вставки (он же порядок массива в журнале);
// используется как детерминированный tie-break при стабильной сортировке.
package catalog

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bigkaa/hivestore/internal/domain/model"
	"github.com/bigkaa/hivestore/internal/storage/journal"
)

// Ошибки каталога.
var (
	// ErrNotFound — запись с таким id отсутствует.
	ErrNotFound = errors.New("запись не найдена в каталоге")
	// ErrDuplicateID — запись с таким id уже существует.
	ErrDuplicateID = errors.New("запись с таким id уже существует")
)

// Catalog — in-memory каталог метаданных с журнальной персистентностью.
type Catalog struct {
	mu      sync.RWMutex
	records []*model.MediaRecord // порядок вставки
	byID    map[string]int       // id → позиция в records

	jrnl     *journal.Journal
	loaded   bool // Load выполнен, каталог готов
	degraded bool // журнал существовал, но не распарсился

	logger *slog.Logger
}

// New создаёт пустой каталог. Для заполнения вызовите Load.
func New(jrnl *journal.Journal, logger *slog.Logger) *Catalog {
	return &Catalog{
		byID:   make(map[string]int),
		jrnl:   jrnl,
		logger: logger.With(slog.String("component", "catalog")),
	}
}

// Load читает журнал и строит in-memory каталог.
//
// Отсутствующий журнал — не ошибка (первый запуск, каталог пуст).
// Нечитаемый или повреждённый журнал — громко логируется, каталог
// стартует пустым и помечается degraded: доступность важнее видимости
// данных, но сигнал о проблеме не теряется (см. Degraded).
//
// Записи, чей физический файл исчез, отбрасываются с предупреждением;
// если такие были, очищенный набор сразу персистится.
func (c *Catalog) Load() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	records, err := c.jrnl.Read()
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			c.logger.Info("Журнал метаданных отсутствует, старт с пустым каталогом",
				slog.String("path", c.jrnl.Path()),
			)
			c.loaded = true
			return nil
		}

		// Повреждённый журнал: не блокируем запуск, но сигналим громко.
		c.logger.Error("ЖУРНАЛ МЕТАДАННЫХ НЕ ЧИТАЕТСЯ — каталог стартует пустым, записи недоступны до восстановления журнала",
			slog.String("path", c.jrnl.Path()),
			slog.String("error", err.Error()),
		)
		c.degraded = true
		c.loaded = true
		return nil
	}

	c.records = make([]*model.MediaRecord, 0, len(records))
	c.byID = make(map[string]int, len(records))
	pruned := 0

	for _, rec := range records {
		if _, dup := c.byID[rec.ID]; dup {
			c.logger.Warn("Дубликат id в журнале, запись пропущена",
				slog.String("id", rec.ID),
			)
			continue
		}

		if _, statErr := os.Stat(rec.PhysicalPath); statErr != nil {
			c.logger.Warn("Файл записи журнала отсутствует на диске, запись удалена",
				slog.String("id", rec.ID),
				slog.String("path", rec.PhysicalPath),
			)
			pruned++
			continue
		}

		c.byID[rec.ID] = len(c.records)
		c.records = append(c.records, rec)
	}

	if pruned > 0 {
		if err := c.saveLocked(); err != nil {
			return fmt.Errorf("ошибка сохранения очищенного журнала: %w", err)
		}
		c.logger.Info("Журнал очищен от записей без файлов",
			slog.Int("pruned", pruned),
		)
	}

	c.loaded = true
	c.logger.Info("Каталог метаданных загружен",
		slog.Int("records", len(c.records)),
		slog.String("journal", c.jrnl.Path()),
	)
	return nil
}

// IsReady возвращает true после успешного Load.
func (c *Catalog) IsReady() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loaded
}

// Degraded возвращает true, если журнал существовал, но не распарсился
// при загрузке. Используется health-проверками.
func (c *Catalog) Degraded() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.degraded
}

// saveLocked персистит текущий набор записей в журнал.
// Вызывается только под c.mu.Lock().
func (c *Catalog) saveLocked() error {
	return c.jrnl.Write(c.records)
}

// Append добавляет запись и персистит журнал.
// При ошибке записи журнала добавление откатывается: память и журнал
// остаются согласованными, вызывающий код получает ошибку.
func (c *Catalog) Append(rec *model.MediaRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.byID[rec.ID]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateID, rec.ID)
	}

	copied := *rec
	c.byID[rec.ID] = len(c.records)
	c.records = append(c.records, &copied)

	if err := c.saveLocked(); err != nil {
		// Откат: запись не стала durable — убираем её из памяти
		c.records = c.records[:len(c.records)-1]
		delete(c.byID, rec.ID)
		return fmt.Errorf("ошибка персистентности журнала: %w", err)
	}
	return nil
}

// AppendAll добавляет пакет записей одной мутацией с одним сохранением
// журнала. Используется reconciliation. Дубликаты id пропускаются.
// При ошибке записи журнала весь пакет откатывается.
// Возвращает количество фактически добавленных записей.
func (c *Catalog) AppendAll(recs []*model.MediaRecord) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	prevLen := len(c.records)
	added := 0
	for _, rec := range recs {
		if _, ok := c.byID[rec.ID]; ok {
			continue
		}
		copied := *rec
		c.byID[rec.ID] = len(c.records)
		c.records = append(c.records, &copied)
		added++
	}

	if added == 0 {
		return 0, nil
	}

	if err := c.saveLocked(); err != nil {
		for _, rec := range c.records[prevLen:] {
			delete(c.byID, rec.ID)
		}
		c.records = c.records[:prevLen]
		return 0, fmt.Errorf("ошибка персистентности журнала: %w", err)
	}
	return added, nil
}

// Update заменяет существующую запись и персистит журнал.
// Позиция записи (и tie-break порядок) сохраняется.
// При ошибке записи журнала замена откатывается.
func (c *Catalog) Update(rec *model.MediaRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	i, ok := c.byID[rec.ID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, rec.ID)
	}

	old := c.records[i]
	copied := *rec
	c.records[i] = &copied

	if err := c.saveLocked(); err != nil {
		c.records[i] = old
		return fmt.Errorf("ошибка персистентности журнала: %w", err)
	}
	return nil
}

// Remove удаляет запись по id и персистит журнал.
// При ошибке записи журнала удаление откатывается.
func (c *Catalog) Remove(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	i, ok := c.byID[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	old := c.records[i]
	c.records = append(c.records[:i], c.records[i+1:]...)
	delete(c.byID, id)
	for j := i; j < len(c.records); j++ {
		c.byID[c.records[j].ID] = j
	}

	if err := c.saveLocked(); err != nil {
		// Откат: возвращаем запись на прежнюю позицию
		c.records = append(c.records[:i], append([]*model.MediaRecord{old}, c.records[i:]...)...)
		for j := i; j < len(c.records); j++ {
			c.byID[c.records[j].ID] = j
		}
		return fmt.Errorf("ошибка персистентности журнала: %w", err)
	}
	return nil
}

// ByID возвращает копию записи по id.
func (c *Catalog) ByID(id string) (*model.MediaRecord, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	i, ok := c.byID[id]
	if !ok {
		return nil, false
	}
	copied := *c.records[i]
	return &copied, true
}

// Snapshot возвращает согласованный снимок всех записей в порядке
// вставки. Записи — копии, снимок безопасен для конкурентного чтения.
func (c *Catalog) Snapshot() []*model.MediaRecord {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]*model.MediaRecord, len(c.records))
	for i, rec := range c.records {
		copied := *rec
		out[i] = &copied
	}
	return out
}

// Count возвращает количество записей в каталоге.
func (c *Catalog) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.records)
}

// TotalSizeBytes возвращает суммарный размер всех файлов каталога.
func (c *Catalog) TotalSizeBytes() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var total int64
	for _, rec := range c.records {
		total += rec.SizeBytes
	}
	return total
}

// OwnerSummary — агрегированная статистика одного владельца.
type OwnerSummary struct {
	Owner          string
	MediaCount     int
	TotalSizeBytes int64
	LastUploadAt   time.Time
}

// Owners возвращает сводку по владельцам, отсортированную по имени.
func (c *Catalog) Owners() []OwnerSummary {
	c.mu.RLock()
	defer c.mu.RUnlock()

	byOwner := make(map[string]*OwnerSummary)
	for _, rec := range c.records {
		owner := rec.Owner
		if owner == "" {
			owner = model.DefaultOwner
		}
		s, ok := byOwner[owner]
		if !ok {
			s = &OwnerSummary{Owner: owner}
			byOwner[owner] = s
		}
		s.MediaCount++
		s.TotalSizeBytes += rec.SizeBytes
		if rec.CreatedAt.After(s.LastUploadAt) {
			s.LastUploadAt = rec.CreatedAt
		}
	}

	out := make([]OwnerSummary, 0, len(byOwner))
	for _, s := range byOwner {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Owner < out[j].Owner })
	return out
}

// Stats — сводная статистика хранилища.
type Stats struct {
	TotalFiles     int
	TotalSizeBytes int64
	// CountsByType — количество файлов по первичному компоненту
	// MIME-типа (image, video, audio, application, ...)
	CountsByType map[string]int
	// LastUploadAt — время последней загрузки, nil если каталог пуст
	LastUploadAt *time.Time
}

// ComputeStats возвращает сводную статистику по каталогу.
func (c *Catalog) ComputeStats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	stats := Stats{CountsByType: make(map[string]int)}
	for _, rec := range c.records {
		stats.TotalFiles++
		stats.TotalSizeBytes += rec.SizeBytes

		prefix := rec.MimeType
		if i := strings.IndexByte(prefix, '/'); i >= 0 {
			prefix = prefix[:i]
		}
		stats.CountsByType[prefix]++

		if stats.LastUploadAt == nil || rec.CreatedAt.After(*stats.LastUploadAt) {
			t := rec.CreatedAt
			stats.LastUploadAt = &t
		}
	}
	return stats
}
