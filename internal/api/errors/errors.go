// Пакет errors — конструкторы стандартных ошибок API Hivestore.
// Единый формат: {"status": "error", "message": "...", "error": "CODE"}.
// Все HTTP-ответы с ошибками должны использовать WriteError.
package errors //nolint:revive // TODO: переименовать пакет errors, конфликт со stdlib

import (
	"encoding/json"
	"net/http"
)

// Машиночитаемые коды ошибок API.
const (
	CodeInvalidUUID        = "INVALID_UUID"
	CodeMediaNotFound      = "MEDIA_NOT_FOUND"
	CodeFileNotFound       = "FILE_NOT_FOUND"
	CodeFileDeleteError    = "FILE_DELETE_ERROR"
	CodeNoFileUploaded     = "NO_FILE_UPLOADED"
	CodeInvalidDisplayName = "INVALID_DISPLAY_NAME"
	CodeMissingAPIKey      = "MISSING_API_KEY"
	CodeInvalidAPIKey      = "INVALID_API_KEY"
	CodeValidationError    = "VALIDATION_ERROR"
	CodeFileTooLarge       = "FILE_TOO_LARGE"
	CodePersistenceError   = "PERSISTENCE_ERROR"
	CodeInvalidToken       = "INVALID_TOKEN"
	CodeInternalError      = "INTERNAL_ERROR"
)

// errorBody — структура тела ответа ошибки.
type errorBody struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Code    string `json:"error"`
}

// WriteError записывает ответ ошибки в стандартном формате Hivestore.
// statusCode — HTTP статус-код, code — машиночитаемый код, message — описание.
func WriteError(w http.ResponseWriter, statusCode int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(errorBody{
		Status:  "error",
		Message: message,
		Code:    code,
	})
}

// --- Конструкторы для типичных ошибок ---

// InvalidUUID — 400 некорректный идентификатор медиафайла.
func InvalidUUID(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, CodeInvalidUUID, message)
}

// MediaNotFound — 404 медиафайл не найден.
func MediaNotFound(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusNotFound, CodeMediaNotFound, message)
}

// FileNotFound — 404 физический файл не найден.
func FileNotFound(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusNotFound, CodeFileNotFound, message)
}

// FileDeleteError — 500 файл не удалось удалить с диска.
func FileDeleteError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, CodeFileDeleteError, message)
}

// NoFileUploaded — 400 в запросе отсутствует файл.
func NoFileUploaded(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, CodeNoFileUploaded, message)
}

// InvalidDisplayName — 400 некорректное отображаемое имя.
func InvalidDisplayName(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, CodeInvalidDisplayName, message)
}

// MissingAPIKey — 401 в запросе отсутствует API-ключ.
func MissingAPIKey(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusUnauthorized, CodeMissingAPIKey, message)
}

// InvalidAPIKey — 403 API-ключ не совпадает.
func InvalidAPIKey(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusForbidden, CodeInvalidAPIKey, message)
}

// ValidationError — 400 некорректные входные данные.
func ValidationError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, CodeValidationError, message)
}

// FileTooLarge — 413 файл превышает лимит.
func FileTooLarge(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusRequestEntityTooLarge, CodeFileTooLarge, message)
}

// PersistenceError — 500 ошибка записи журнала метаданных.
func PersistenceError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, CodePersistenceError, message)
}

// InvalidToken — 403 токен скачивания недействителен или истёк.
func InvalidToken(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusForbidden, CodeInvalidToken, message)
}

// InternalError — 500 внутренняя ошибка.
func InternalError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, CodeInternalError, message)
}
