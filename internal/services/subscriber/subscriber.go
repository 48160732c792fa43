// Package subscriber содержит бизнес-логику хранилища подписчиков:
// создание и слияние записей, поиск по email и по hash, уведомление
// наблюдателей об изменениях.
package subscriber

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/magabrotheeeer/paywall-access/internal/lib/hashkey"
	"github.com/magabrotheeeer/paywall-access/internal/lib/sl"
	"github.com/magabrotheeeer/paywall-access/internal/models"
	"github.com/magabrotheeeer/paywall-access/internal/storage/repository"
)

// Repository определяет методы хранилища для работы с подписчиками
// и каталогом пользователей.
type Repository interface {
	// FindOrCreateUserByEmail возвращает uid учётной записи, создавая её при отсутствии.
	FindOrCreateUserByEmail(ctx context.Context, email string) (string, error)
	// UpsertSubscriber записывает слитую запись подписчика целиком.
	UpsertSubscriber(ctx context.Context, sub models.Subscriber) error
	// FindSubscriberByEmail возвращает запись по (email, mode).
	FindSubscriberByEmail(ctx context.Context, email, mode string) (*models.Subscriber, error)
	// FindSubscriberByHash возвращает запись по (hash, mode).
	FindSubscriberByHash(ctx context.Context, hash, mode string) (*models.Subscriber, error)
}

// Observer получает уведомление после каждого слияния записи подписчика.
// Вызов fire-and-forget: возвращаемых значений нет, ошибки наблюдателя
// не влияют на результат операции.
type Observer interface {
	SubscriberChanged(email string, sub *models.Subscriber, args models.UpsertArgs)
}

// ObserverFunc адаптер, позволяющий использовать функцию как Observer.
type ObserverFunc func(email string, sub *models.Subscriber, args models.UpsertArgs)

// SubscriberChanged вызывает саму функцию.
func (f ObserverFunc) SubscriberChanged(email string, sub *models.Subscriber, args models.UpsertArgs) {
	f(email, sub, args)
}

// ModeSource сообщает текущий режим хранения записей. Режим вычисляется
// в момент записи, а не в момент исходного события: переключение test_mode
// между событием и обработкой молча меняет раздел, в который попадёт
// запись. Поведение сохранено ради совместимости с исходной системой.
type ModeSource interface {
	Mode() string
}

// Service реализует операции хранилища подписчиков поверх репозитория.
type Service struct {
	repo Repository
	mode ModeSource
	salt string
	log  *slog.Logger

	mu        sync.RWMutex
	observers []Observer
}

// New создает новый экземпляр Service.
func New(repo Repository, mode ModeSource, salt string, log *slog.Logger) *Service {
	return &Service{
		repo: repo,
		mode: mode,
		salt: salt,
		log:  log,
	}
}

// Subscribe регистрирует наблюдателя изменений подписчиков.
// Точка расширения для почтовых уведомлений и внешних интеграций.
func (s *Service) Subscribe(o Observer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, o)
}

func (s *Service) notify(email string, sub *models.Subscriber, args models.UpsertArgs) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, o := range s.observers {
		o.SubscriberChanged(email, sub, args)
	}
}

// Upsert создаёт или обновляет запись подписчика для (email, текущий режим).
//
// Учётная запись каталога пользователей создаётся при отсутствии. Поля
// аргументов с пустыми значениями не затирают существующие; expires
// пересчитывается заново по правилу: явная дата, иначе сейчас + интервал
// (включительно до конца дня), иначе бессрочно.
func (s *Service) Upsert(ctx context.Context, email string, args models.UpsertArgs) (*models.Subscriber, error) {
	const op = "subscriber.Upsert"

	email = strings.ToLower(strings.TrimSpace(email))
	userID, err := s.repo.FindOrCreateUserByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	mode := s.mode.Mode()
	existing, err := s.repo.FindSubscriberByEmail(ctx, email, mode)
	if err != nil && !errors.Is(err, repository.ErrSubscriberNotFound) {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	now := time.Now()
	sub := models.Subscriber{
		UserID:  userID,
		Email:   email,
		Hash:    hashkey.New(s.salt, email),
		Created: now,
		Mode:    mode,
	}
	if existing != nil {
		sub = *existing
		sub.UserID = userID
	}

	sub.Expires = computeExpires(args, now)
	if args.SubscriberID != "" {
		sub.SubscriberID = args.SubscriberID
	}
	if args.Price != "" {
		sub.Price = args.Price
	}
	if args.Description != "" {
		sub.Description = args.Description
	}
	if args.Plan != "" {
		sub.Plan = args.Plan
	}
	if args.PaymentGateway != "" {
		sub.PaymentGateway = args.PaymentGateway
	}
	if args.PaymentStatus != "" {
		sub.PaymentStatus = args.PaymentStatus
	}

	if err := s.repo.UpsertSubscriber(ctx, sub); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("subscriber upserted",
		slog.String("email", email), slog.String("mode", mode),
		slog.String("gateway", sub.PaymentGateway))

	s.notify(email, &sub, args)
	return &sub, nil
}

// computeExpires вычисляет дату окончания доступа: явная дата из аргументов,
// иначе now + interval_count * interval с щедрым округлением до конца дня,
// иначе нулевое значение (бессрочный доступ).
func computeExpires(args models.UpsertArgs, now time.Time) time.Time {
	if !args.Expires.IsZero() {
		return args.Expires
	}
	if args.Interval == "" || args.IntervalCount == 0 {
		return time.Time{}
	}

	var expires time.Time
	switch args.Interval {
	case "day":
		expires = now.AddDate(0, 0, args.IntervalCount)
	case "week":
		expires = now.AddDate(0, 0, 7*args.IntervalCount)
	case "month":
		expires = now.AddDate(0, args.IntervalCount, 0)
	case "year":
		expires = now.AddDate(args.IntervalCount, 0, 0)
	default:
		return time.Time{}
	}
	return endOfDay(expires)
}

func endOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 0, t.Location())
}

// Save записывает уже подготовленную запись подписчика без пересчёта полей.
// Используется обработчиком платёжных событий, который мутирует запись
// по собственной таблице переходов.
func (s *Service) Save(ctx context.Context, sub *models.Subscriber) error {
	const op = "subscriber.Save"
	if err := s.repo.UpsertSubscriber(ctx, *sub); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.notify(sub.Email, sub, models.UpsertArgs{})
	return nil
}

// FindByEmail возвращает запись подписчика для текущего режима.
func (s *Service) FindByEmail(ctx context.Context, email string) (*models.Subscriber, error) {
	const op = "subscriber.FindByEmail"
	sub, err := s.repo.FindSubscriberByEmail(ctx, strings.ToLower(strings.TrimSpace(email)), s.mode.Mode())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return sub, nil
}

// FindByHash возвращает запись подписчика по публичному hash для текущего
// режима. Некорректный формат отсекается до обращения к хранилищу; больше
// одного совпадения — нарушение целостности хранилища, трактуется как
// отсутствие записи.
func (s *Service) FindByHash(ctx context.Context, hash string) (*models.Subscriber, error) {
	const op = "subscriber.FindByHash"

	if !hashkey.IsValid(hash) {
		return nil, fmt.Errorf("%s: %w", op, repository.ErrSubscriberNotFound)
	}
	sub, err := s.repo.FindSubscriberByHash(ctx, hash, s.mode.Mode())
	if errors.Is(err, repository.ErrDuplicateHash) {
		s.log.Error("duplicate subscriber hash, treating as not found", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, repository.ErrSubscriberNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return sub, nil
}
