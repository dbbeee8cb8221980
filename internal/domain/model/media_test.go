package model

import (
	"strings"
	"testing"
)

// TestNewID проверяет, что генерируемые идентификаторы валидны и уникальны.
func TestNewID(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := NewID()
		if !IsValidID(id) {
			t.Fatalf("NewID вернул невалидный идентификатор: %q", id)
		}
		if seen[id] {
			t.Fatalf("NewID вернул повторяющийся идентификатор: %q", id)
		}
		seen[id] = true
	}
}

// TestIsValidID проверяет валидацию канонической формы UUID.
func TestIsValidID(t *testing.T) {
	tests := []struct {
		name string
		id   string
		want bool
	}{
		{"валидный UUID v4", "550e8400-e29b-41d4-a716-446655440000", true},
		{"верхний регистр", "550E8400-E29B-41D4-A716-446655440000", true},
		{"пустая строка", "", false},
		{"произвольная строка", "not-a-uuid", false},
		{"без дефисов", "550e8400e29b41d4a716446655440000", false},
		{"фигурные скобки", "{550e8400-e29b-41d4-a716-446655440000}", false},
		{"urn-форма", "urn:uuid:550e8400-e29b-41d4-a716-446655440000", false},
		{"лишний символ", "550e8400-e29b-41d4-a716-446655440000x", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsValidID(tt.id); got != tt.want {
				t.Errorf("IsValidID(%q) = %v, ожидалось %v", tt.id, got, tt.want)
			}
		})
	}
}

// TestEncodeDisplayName проверяет кодирование имени для URL:
// только пробелы → %20, остальные символы без изменений.
func TestEncodeDisplayName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"photo.jpg", "photo.jpg"},
		{"My Photo.jpg", "My%20Photo.jpg"},
		{"a b c", "a%20b%20c"},
		{"no-spaces_here", "no-spaces_here"},
		// Зарезервированные символы сознательно не кодируются
		{"a?b#c", "a?b#c"},
	}

	for _, tt := range tests {
		if got := EncodeDisplayName(tt.in); got != tt.want {
			t.Errorf("EncodeDisplayName(%q) = %q, ожидалось %q", tt.in, got, tt.want)
		}
	}
}

// TestRecomputeURL проверяет пересчёт публичного URL после переименования.
func TestRecomputeURL(t *testing.T) {
	m := &MediaRecord{
		ID:           "550e8400-e29b-41d4-a716-446655440000",
		OriginalName: "vacation.png",
		DisplayName:  "vacation.png",
	}
	m.RecomputeURL()

	want := "/media/550e8400-e29b-41d4-a716-446655440000/vacation.png.png"
	if m.PublicURL != want {
		t.Errorf("PublicURL = %q, ожидалось %q", m.PublicURL, want)
	}

	// Переименование с пробелами
	m.DisplayName = "New Name"
	m.RecomputeURL()

	if !strings.Contains(m.PublicURL, "New%20Name") {
		t.Errorf("URL после переименования должен содержать New%%20Name: %q", m.PublicURL)
	}
	if !strings.HasSuffix(m.PublicURL, ".png") {
		t.Errorf("URL должен сохранять расширение оригинала: %q", m.PublicURL)
	}
}

// TestFormatSize проверяет форматирование размера файла.
func TestFormatSize(t *testing.T) {
	tests := []struct {
		bytes int64
		want  string
	}{
		{0, "0 Bytes"},
		{1, "1 Bytes"},
		{512, "512 Bytes"},
		{1024, "1 KB"},
		{1536, "1.5 KB"},
		{1048576, "1 MB"},
		{5242880, "5 MB"},
		{1073741824, "1 GB"},
	}

	for _, tt := range tests {
		if got := FormatSize(tt.bytes); got != tt.want {
			t.Errorf("FormatSize(%d) = %q, ожидалось %q", tt.bytes, got, tt.want)
		}
	}
}

// TestMimeFromExtension проверяет таблицу MIME-типов.
func TestMimeFromExtension(t *testing.T) {
	tests := []struct {
		ext  string
		want string
	}{
		{".jpg", "image/jpeg"},
		{".JPEG", "image/jpeg"},
		{".png", "image/png"},
		{".webp", "image/webp"},
		{".mp4", "video/mp4"},
		{".mp3", "audio/mp3"},
		{".pdf", "application/pdf"},
		{".txt", "text/plain"},
		{".xyz", "application/octet-stream"},
		{"", "application/octet-stream"},
	}

	for _, tt := range tests {
		if got := MimeFromExtension(tt.ext); got != tt.want {
			t.Errorf("MimeFromExtension(%q) = %q, ожидалось %q", tt.ext, got, tt.want)
		}
	}
}

// TestValidOwner проверяет валидацию owner как сегмента пути.
func TestValidOwner(t *testing.T) {
	tests := []struct {
		owner string
		want  bool
	}{
		{"alice", true},
		{"default", true},
		{"user-01_test", true},
		{"", false},
		{".", false},
		{"..", false},
		{"a/b", false},
		{"a\\b", false},
		{"..\\escape", false},
		{"a\x00b", false},
	}

	for _, tt := range tests {
		if got := ValidOwner(tt.owner); got != tt.want {
			t.Errorf("ValidOwner(%q) = %v, ожидалось %v", tt.owner, got, tt.want)
		}
	}
}
