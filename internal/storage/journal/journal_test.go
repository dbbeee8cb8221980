package journal

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bigkaa/hivestore/internal/domain/model"
)

// testRecord создаёт тестовую запись с указанным ID.
func testRecord(id string) *model.MediaRecord {
	return &model.MediaRecord{
		ID:             id,
		Owner:          "alice",
		OriginalName:   "photo.jpg",
		DisplayName:    "photo.jpg",
		StoredFilename: id + ".jpg",
		PhysicalPath:   "/data/alice/" + id + ".jpg",
		MimeType:       "image/jpeg",
		SizeBytes:      2048,
		SizeFormatted:  "2 KB",
		PublicURL:      "/media/" + id + "/photo.jpg.jpg",
		CreatedAt:      time.Now().UTC(),
		UpdatedAt:      time.Now().UTC(),
	}
}

// TestWriteRead проверяет запись и чтение журнала.
func TestWriteRead(t *testing.T) {
	j := New(t.TempDir())

	records := []*model.MediaRecord{
		testRecord("550e8400-e29b-41d4-a716-446655440000"),
		testRecord("660e8400-e29b-41d4-a716-446655440001"),
	}

	if err := j.Write(records); err != nil {
		t.Fatalf("ошибка записи журнала: %v", err)
	}

	got, err := j.Read()
	if err != nil {
		t.Fatalf("ошибка чтения журнала: %v", err)
	}

	if len(got) != 2 {
		t.Fatalf("ожидалось 2 записи, получено %d", len(got))
	}
	if got[0].ID != records[0].ID {
		t.Errorf("порядок записей должен сохраняться: %q", got[0].ID)
	}
	if got[1].Owner != "alice" {
		t.Errorf("owner не сохранился: %q", got[1].Owner)
	}
}

// TestRead_Absent проверяет чтение отсутствующего журнала:
// ошибка должна содержать os.ErrNotExist для различения первого запуска.
func TestRead_Absent(t *testing.T) {
	j := New(t.TempDir())

	_, err := j.Read()
	if err == nil {
		t.Fatal("ожидалась ошибка при чтении отсутствующего журнала")
	}
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("ошибка должна содержать ErrNotExist: %v", err)
	}
}

// TestRead_Corrupt проверяет чтение повреждённого журнала.
func TestRead_Corrupt(t *testing.T) {
	dir := t.TempDir()
	j := New(dir)

	if err := os.WriteFile(j.Path(), []byte("{не json массив"), 0o600); err != nil {
		t.Fatalf("ошибка подготовки: %v", err)
	}

	_, err := j.Read()
	if err == nil {
		t.Fatal("ожидалась ошибка десериализации")
	}
	if errors.Is(err, fs.ErrNotExist) {
		t.Error("повреждённый журнал не должен выглядеть как отсутствующий")
	}
}

// TestWrite_Overwrite проверяет полную перезапись журнала.
func TestWrite_Overwrite(t *testing.T) {
	j := New(t.TempDir())

	if err := j.Write([]*model.MediaRecord{
		testRecord("550e8400-e29b-41d4-a716-446655440000"),
		testRecord("660e8400-e29b-41d4-a716-446655440001"),
	}); err != nil {
		t.Fatalf("ошибка записи: %v", err)
	}

	if err := j.Write([]*model.MediaRecord{
		testRecord("770e8400-e29b-41d4-a716-446655440002"),
	}); err != nil {
		t.Fatalf("ошибка перезаписи: %v", err)
	}

	got, err := j.Read()
	if err != nil {
		t.Fatalf("ошибка чтения: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("ожидалась 1 запись после перезаписи, получено %d", len(got))
	}
}

// TestWrite_NoTempLeftover проверяет, что после записи не остаётся temp файлов.
func TestWrite_NoTempLeftover(t *testing.T) {
	dir := t.TempDir()
	j := New(dir)

	if err := j.Write([]*model.MediaRecord{testRecord("550e8400-e29b-41d4-a716-446655440000")}); err != nil {
		t.Fatalf("ошибка записи: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ошибка чтения директории: %v", err)
	}
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".tmp") {
			t.Errorf("temp файл не удалён: %s", e.Name())
		}
	}
}

// TestWrite_Empty проверяет, что пустой набор сериализуется как [], а не null.
func TestWrite_Empty(t *testing.T) {
	dir := t.TempDir()
	j := New(dir)

	if err := j.Write(nil); err != nil {
		t.Fatalf("ошибка записи: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, Filename))
	if err != nil {
		t.Fatalf("ошибка чтения: %v", err)
	}
	if strings.TrimSpace(string(data)) == "null" {
		t.Error("пустой журнал должен быть массивом [], а не null")
	}
}
