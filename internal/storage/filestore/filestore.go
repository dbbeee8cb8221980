// Пакет filestore — операции с физическими файлами хранилища.
// Файлы лежат под storageRoot/{owner}/{id}{ext}; owner — директория
// первого уровня, id — UUID v4, назначаемый при сохранении.
package filestore

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/bigkaa/hivestore/internal/domain/model"
)

// FileStore — управление физическими файлами на диске.
type FileStore struct {
	// root — корневая директория хранения файлов (HS_DATA_DIR)
	root string
}

// SaveResult — результат сохранения файла на диск.
type SaveResult struct {
	// ID — сгенерированный идентификатор файла (UUID v4)
	ID string
	// StoredFilename — имя файла на диске: {id}{ext}
	StoredFilename string
	// FullPath — абсолютный путь файла на диске
	FullPath string
	// Size — размер записанных данных в байтах
	Size int64
}

// New создаёт FileStore. Создаёт корневую директорию, если её нет.
func New(root string) (*FileStore, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("некорректный путь к хранилищу %s: %w", root, err)
	}
	if err := os.MkdirAll(abs, 0o750); err != nil {
		return nil, fmt.Errorf("не удалось создать директорию данных %s: %w", abs, err)
	}
	return &FileStore{root: abs}, nil
}

// Root возвращает путь к корню хранилища.
func (s *FileStore) Root() string {
	return s.root
}

// OwnerPath возвращает путь к директории владельца.
func (s *FileStore) OwnerPath(owner string) string {
	return filepath.Join(s.root, owner)
}

// SaveUpload записывает данные из reader в файл {root}/{owner}/{id}{ext},
// где id — свежий UUID v4, а ext берётся из оригинального имени.
// Паттерн: temp файл → запись → fsync → atomic rename.
// При ошибке temp файл удаляется.
//
// Вызывающий код обязан валидировать owner (model.ValidOwner) —
// здесь owner используется как буквальный сегмент пути.
func (s *FileStore) SaveUpload(reader io.Reader, owner, originalName string) (*SaveResult, error) {
	id := model.NewID()
	ext := filepath.Ext(originalName)
	storedName := id + ext

	ownerDir := filepath.Join(s.root, owner)
	if err := os.MkdirAll(ownerDir, 0o750); err != nil {
		return nil, fmt.Errorf("не удалось создать директорию владельца %s: %w", owner, err)
	}

	fullPath := filepath.Join(ownerDir, storedName)
	tmpPath := fullPath + ".tmp"

	f, err := os.Create(tmpPath)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания временного файла: %w", err)
	}

	size, err := io.Copy(f, reader)
	if err != nil {
		f.Close()
		os.Remove(tmpPath)
		return nil, fmt.Errorf("ошибка записи данных: %w", err)
	}

	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return nil, fmt.Errorf("ошибка fsync: %w", err)
	}

	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("ошибка закрытия файла: %w", err)
	}

	if err := os.Rename(tmpPath, fullPath); err != nil {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("ошибка атомарного переименования: %w", err)
	}

	return &SaveResult{
		ID:             id,
		StoredFilename: storedName,
		FullPath:       fullPath,
		Size:           size,
	}, nil
}

// Open открывает файл для чтения по абсолютному пути.
// Вызывающий код обязан закрыть файл.
func (s *FileStore) Open(path string) (*os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("файл не найден: %s: %w", path, err)
		}
		return nil, fmt.Errorf("ошибка открытия файла %s: %w", path, err)
	}
	return f, nil
}

// Delete удаляет файл с диска.
// Возвращает nil, если файл уже не существует — отсутствующий файл
// не должен блокировать удаление записи из журнала.
func (s *FileStore) Delete(path string) error {
	err := os.Remove(path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("ошибка удаления файла %s: %w", path, err)
	}
	return nil
}

// Exists проверяет существование файла на диске.
func (s *FileStore) Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// Stat возвращает информацию о файле.
func (s *FileStore) Stat(path string) (fs.FileInfo, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения информации о файле %s: %w", path, err)
	}
	return info, nil
}
