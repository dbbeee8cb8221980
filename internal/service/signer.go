// Подписанные ссылки на скачивание: JWT HS256 с ограниченным сроком
// жизни. Позволяют отдать файл клиенту без передачи API-ключа.
package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const tokenIssuer = "hivestore"

// Ошибки проверки подписанных ссылок.
var (
	// ErrSigningDisabled — ключ подписи не сконфигурирован.
	ErrSigningDisabled = errors.New("подпись ссылок не сконфигурирована")
	// ErrInvalidToken — токен не прошёл проверку подписи или истёк.
	ErrInvalidToken = errors.New("недействительный токен скачивания")
)

// URLSigner — выпуск и проверка подписанных ссылок на скачивание.
type URLSigner struct {
	key []byte
	ttl time.Duration
}

// NewURLSigner создаёт подписанта. Пустой ключ отключает подпись
// ссылок: Sign и Verify возвращают ErrSigningDisabled.
func NewURLSigner(key string, ttl time.Duration) *URLSigner {
	return &URLSigner{key: []byte(key), ttl: ttl}
}

// Enabled возвращает true, если ключ подписи сконфигурирован.
func (s *URLSigner) Enabled() bool {
	return len(s.key) > 0
}

// Sign выпускает токен скачивания для медиафайла со сроком жизни
// по умолчанию. Возвращает путь подписанной ссылки и время истечения.
func (s *URLSigner) Sign(mediaID string) (string, time.Time, error) {
	return s.SignWithTTL(mediaID, s.ttl)
}

// SignWithTTL выпускает токен с указанным сроком жизни.
// Срок ограничен сверху сконфигурированным TTL; неположительные
// значения заменяются на TTL по умолчанию.
func (s *URLSigner) SignWithTTL(mediaID string, ttl time.Duration) (string, time.Time, error) {
	if !s.Enabled() {
		return "", time.Time{}, ErrSigningDisabled
	}

	if ttl <= 0 || ttl > s.ttl {
		ttl = s.ttl
	}

	now := time.Now()
	expiresAt := now.Add(ttl)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Issuer:    tokenIssuer,
		Subject:   mediaID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	})

	signed, err := token.SignedString(s.key)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("ошибка подписи токена: %w", err)
	}

	return fmt.Sprintf("/api/media/%s/download?token=%s", mediaID, signed), expiresAt, nil
}

// Verify проверяет токен и возвращает идентификатор медиафайла.
func (s *URLSigner) Verify(tokenString string) (string, error) {
	if !s.Enabled() {
		return "", ErrSigningDisabled
	}

	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{},
		func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("неожиданный метод подписи: %v", t.Header["alg"])
			}
			return s.key, nil
		},
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}
