// Пакет journal — чтение и атомарная запись журнала метаданных.
// Журнал — один JSON-файл (metadata.json) в корне хранилища,
// человекочитаемый массив MediaRecord. Источник истины между рестартами.
// Все операции записи выполняются атомарно: temp → fsync → rename.
package journal

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bigkaa/hivestore/internal/domain/model"
)

// Filename — имя файла журнала в корне хранилища.
const Filename = "metadata.json"

// Journal — доступ к файлу журнала метаданных.
type Journal struct {
	path string
}

// New создаёт Journal для указанного корня хранилища.
func New(storageRoot string) *Journal {
	return &Journal{path: filepath.Join(storageRoot, Filename)}
}

// Path возвращает путь к файлу журнала.
func (j *Journal) Path() string {
	return j.path
}

// Exists проверяет наличие файла журнала.
func (j *Journal) Exists() bool {
	_, err := os.Stat(j.path)
	return err == nil
}

// Read читает и десериализует журнал.
// Если файл отсутствует, возвращает ошибку с os.ErrNotExist внутри —
// вызывающий код различает «первый запуск» и «повреждённый журнал».
func (j *Journal) Read() ([]*model.MediaRecord, error) {
	data, err := os.ReadFile(j.path)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения журнала %s: %w", j.path, err)
	}

	var records []*model.MediaRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("ошибка десериализации журнала %s: %w", j.path, err)
	}

	return records, nil
}

// Write атомарно записывает полный набор записей в журнал,
// перезаписывая предыдущее содержимое.
// Паттерн: JSON → temp файл → fsync → atomic rename. Крах посреди
// записи не повреждает предыдущее состояние журнала.
func (j *Journal) Write(records []*model.MediaRecord) error {
	if records == nil {
		records = []*model.MediaRecord{}
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("ошибка сериализации журнала: %w", err)
	}

	dir := filepath.Dir(j.path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("не удалось создать директорию %s: %w", dir, err)
	}

	tmpPath := j.path + ".tmp"

	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("ошибка создания временного файла: %w", err)
	}

	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("ошибка записи: %w", err)
	}

	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("ошибка fsync: %w", err)
	}

	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("ошибка закрытия файла: %w", err)
	}

	if err := os.Rename(tmpPath, j.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("ошибка атомарного переименования: %w", err)
	}

	return nil
}
