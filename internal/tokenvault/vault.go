// Package tokenvault реализует хранилище одноразовых логин-токенов.
//
// Токен — 32-символьный hex-идентификатор, который привязывается к email и
// живёт ограниченное время. Успешное потребление удаляет токен, истечение
// TTL делает его неотличимым от никогда не выдававшегося.
package tokenvault

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/paywall-access/internal/lib/hashkey"
)

const keyPrefix = "lpl:"

// maxIssueAttempts ограничивает перегенерацию при коллизии кандидата с уже
// выданным токеном. На практике до повторов не доходит.
const maxIssueAttempts = 16

var (
	// ErrBadFormat — значение не является 32-символьным hex-идентификатором.
	ErrBadFormat = errors.New("malformed login token")
	// ErrNotFound — токен не существует, истёк или уже потреблён.
	ErrNotFound = errors.New("login token not found")
	// ErrNoUniqueToken — не удалось подобрать уникальный токен за отведённые попытки.
	ErrNoUniqueToken = errors.New("failed to generate unique login token")
)

// Store описывает операции хранилища, которые нужны сейфу токенов.
// Реализуется кешем на Redis.
type Store interface {
	// SetNX сохраняет значение, только если ключа ещё нет; атомарность
	// закрывает гонку проверки уникальности двух конкурентных выдач.
	SetNX(ctx context.Context, key, value string, expiration time.Duration) (bool, error)
	// GetDel атомарно читает и удаляет значение.
	GetDel(ctx context.Context, key string) (string, bool, error)
	// GetString читает значение, не удаляя его.
	GetString(ctx context.Context, key string) (string, bool, error)
}

// Vault выдаёт и потребляет одноразовые логин-токены.
type Vault struct {
	store Store
	salt  string
	ttl   time.Duration
	log   *slog.Logger
}

// New создает новый экземпляр Vault.
func New(store Store, salt string, ttl time.Duration, log *slog.Logger) *Vault {
	return &Vault{
		store: store,
		salt:  salt,
		ttl:   ttl,
		log:   log,
	}
}

// Issue генерирует уникальный токен для email и сохраняет привязку с TTL.
// Коллизия кандидата разрешается перегенерацией от значения коллизии,
// количество попыток ограничено.
func (v *Vault) Issue(ctx context.Context, email string) (string, error) {
	const op = "tokenvault.Issue"

	seed := email
	for range maxIssueAttempts {
		token := hashkey.New(v.salt, seed)
		ok, err := v.store.SetNX(ctx, keyPrefix+token, email, v.ttl)
		if err != nil {
			return "", fmt.Errorf("%s: %w", op, err)
		}
		if ok {
			return token, nil
		}
		v.log.Warn("login token collision, regenerating", slog.String("op", op))
		seed = token
	}
	return "", fmt.Errorf("%s: %w", op, ErrNoUniqueToken)
}

// Consume проверяет формат токена, возвращает привязанный email и удаляет
// запись. Повторное потребление того же токена возвращает ErrNotFound.
func (v *Vault) Consume(ctx context.Context, token string) (string, error) {
	const op = "tokenvault.Consume"

	if !hashkey.IsValid(token) {
		return "", fmt.Errorf("%s: %w", op, ErrBadFormat)
	}
	email, found, err := v.store.GetDel(ctx, keyPrefix+token)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if !found {
		return "", fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return email, nil
}

// Peek возвращает email живого токена, не потребляя его. Используется
// проверками существования, которые не должны сжигать токен.
func (v *Vault) Peek(ctx context.Context, token string) (string, error) {
	const op = "tokenvault.Peek"

	if !hashkey.IsValid(token) {
		return "", fmt.Errorf("%s: %w", op, ErrBadFormat)
	}
	email, found, err := v.store.GetString(ctx, keyPrefix+token)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if !found {
		return "", fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return email, nil
}
