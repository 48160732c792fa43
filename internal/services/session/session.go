// Package session реализует вход по одноразовому токену и узнавание
// вернувшихся подписчиков по долгоживущему куки-идентификатору.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/paywall-access/internal/lib/sl"
	"github.com/magabrotheeeer/paywall-access/internal/models"
)

const sessionPrefix = "lps:"

var (
	// ErrLoginFailed — токен не подошёл или подписка не даёт доступа.
	// Деталей наружу не отдаём: валидный токен подтверждает личность,
	// но не право доступа.
	ErrLoginFailed = errors.New("login failed")
	// ErrNotRecognized — ни сессия, ни куки не привели к подписчику
	// с действующим доступом.
	ErrNotRecognized = errors.New("not recognized")
)

// Vault потребляет одноразовые логин-токены.
type Vault interface {
	Consume(ctx context.Context, token string) (string, error)
}

// Subscribers отдаёт записи подписчиков по email и по hash.
type Subscribers interface {
	FindByEmail(ctx context.Context, email string) (*models.Subscriber, error)
	FindByHash(ctx context.Context, hash string) (*models.Subscriber, error)
}

// Evaluator вычисляет вердикт доступа по записи подписчика.
type Evaluator interface {
	Evaluate(ctx context.Context, sub *models.Subscriber) (models.Verdict, error)
}

// SessionStore хранит серверные сессии.
type SessionStore interface {
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
	Get(ctx context.Context, key string, result any) (bool, error)
	Invalidate(ctx context.Context, key string) error
}

// Session — серверная часть состояния входа.
type Session struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Hash  string `json:"hash"`
}

// Recognition — результат успешного узнавания: сессия, запись подписчика
// и свежий вердикт. Обработчик переустанавливает оба куки из этих данных,
// чем закрывает ленивую материализацию в обе стороны.
type Recognition struct {
	Session    *Session
	Subscriber *models.Subscriber
	Verdict    models.Verdict
}

// Service управляет жизненным циклом сессий и узнавания.
type Service struct {
	vault       Vault
	subscribers Subscribers
	evaluator   Evaluator
	store       SessionStore
	ttl         time.Duration
	log         *slog.Logger
}

// New создает новый экземпляр Service.
func New(vault Vault, subscribers Subscribers, evaluator Evaluator,
	store SessionStore, ttl time.Duration, log *slog.Logger) *Service {
	return &Service{
		vault:       vault,
		subscribers: subscribers,
		evaluator:   evaluator,
		store:       store,
		ttl:         ttl,
		log:         log,
	}
}

// AttemptLogin потребляет одноразовый токен и устанавливает сессию.
// Вход состоится, только если вердикт даёт доступ и статус оплаты active;
// во всех остальных случаях возвращается одинаковый ErrLoginFailed, а
// токен уже сожжён.
func (s *Service) AttemptLogin(ctx context.Context, token string) (*Recognition, error) {
	const op = "session.AttemptLogin"

	email, err := s.vault.Consume(ctx, token)
	if err != nil {
		s.log.Info("login token rejected", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, ErrLoginFailed)
	}

	sub, err := s.subscribers.FindByEmail(ctx, email)
	if err != nil {
		s.log.Info("no subscriber for consumed token", slog.String("email", email))
		return nil, fmt.Errorf("%s: %w", op, ErrLoginFailed)
	}

	verdict, err := s.evaluator.Evaluate(ctx, sub)
	if err != nil {
		s.log.Error("entitlement check failed during login", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, ErrLoginFailed)
	}
	if !verdict.Grants(time.Now()) || sub.PaymentStatus != models.StatusActive {
		s.log.Info("login denied, no active entitlement",
			slog.String("email", email), slog.String("verdict", verdict.Kind.String()))
		return nil, fmt.Errorf("%s: %w", op, ErrLoginFailed)
	}

	session, err := s.createSession(ctx, sub)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("subscriber logged in", slog.String("email", email))
	return &Recognition{Session: session, Subscriber: sub, Verdict: verdict}, nil
}

// Recognize восстанавливает подписчика по сессии либо по куки-hash и
// пересчитывает вердикт. Сессия без hash дополняется им из записи,
// hash без сессии порождает новую сессию; обе ветки сходятся к единому
// результату, из которого обработчик переустанавливает куки.
func (s *Service) Recognize(ctx context.Context, sessionID, hash string) (*Recognition, error) {
	const op = "session.Recognize"

	var sub *models.Subscriber
	var session *Session
	var err error

	if sessionID != "" {
		var stored Session
		found, err := s.store.Get(ctx, sessionPrefix+sessionID, &stored)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if found {
			session = &stored
			sub, err = s.subscribers.FindByHash(ctx, stored.Hash)
			if err != nil {
				s.log.Info("session points at missing subscriber",
					slog.String("session_id", sessionID))
				sub = nil
			}
		}
	}

	if sub == nil && hash != "" {
		sub, err = s.subscribers.FindByHash(ctx, hash)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, ErrNotRecognized)
		}
		session, err = s.createSession(ctx, sub)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}
	if sub == nil {
		return nil, fmt.Errorf("%s: %w", op, ErrNotRecognized)
	}

	verdict, err := s.evaluator.Evaluate(ctx, sub)
	if err != nil {
		s.log.Error("entitlement check failed during recognition", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, ErrNotRecognized)
	}

	return &Recognition{Session: session, Subscriber: sub, Verdict: verdict}, nil
}

// Logout удаляет сессию. Повторный выход по тому же идентификатору
// не является ошибкой.
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	const op = "session.Logout"
	if sessionID == "" {
		return nil
	}
	if err := s.store.Invalidate(ctx, sessionPrefix+sessionID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s *Service) createSession(ctx context.Context, sub *models.Subscriber) (*Session, error) {
	session := &Session{
		ID:    uuid.New().String(),
		Email: sub.Email,
		Hash:  sub.Hash,
	}
	if err := s.store.Set(ctx, sessionPrefix+session.ID, session, s.ttl); err != nil {
		return nil, err
	}
	return session, nil
}
