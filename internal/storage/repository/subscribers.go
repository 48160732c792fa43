package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/magabrotheeeer/paywall-access/internal/models"
)

// UpsertSubscriber записывает запись подписчика целиком. На пару
// (email, mode) существует не более одной записи, конфликт разрешается
// обновлением всех полей слитой записи. Конкурентные писатели работают
// по принципу "последняя запись побеждает".
func (s *Storage) UpsertSubscriber(ctx context.Context, sub models.Subscriber) error {
	const op = "storage.UpsertSubscriber"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var expires sql.NullTime
	if !sub.Expires.IsZero() {
		expires = sql.NullTime{Time: sub.Expires, Valid: true}
	}

	query := `INSERT INTO subscribers (user_uid, email, hash, subscriber_id, price,
			      description, plan, created, expires, mode, payment_gateway, payment_status)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
			  ON CONFLICT (email, mode) DO UPDATE SET
			      user_uid = EXCLUDED.user_uid,
			      subscriber_id = EXCLUDED.subscriber_id,
			      price = EXCLUDED.price,
			      description = EXCLUDED.description,
			      plan = EXCLUDED.plan,
			      expires = EXCLUDED.expires,
			      payment_gateway = EXCLUDED.payment_gateway,
			      payment_status = EXCLUDED.payment_status;`
	_, err := s.DB.ExecContext(ctx, query,
		sub.UserID, sub.Email, sub.Hash, sub.SubscriberID, sub.Price,
		sub.Description, sub.Plan, sub.Created, expires, sub.Mode,
		sub.PaymentGateway, sub.PaymentStatus)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

const subscriberColumns = `user_uid, email, hash, subscriber_id, price,
			      description, plan, created, expires, mode, payment_gateway, payment_status`

func scanSubscriber(row interface{ Scan(...any) error }) (*models.Subscriber, error) {
	sub := &models.Subscriber{}
	var expires sql.NullTime
	if err := row.Scan(&sub.UserID, &sub.Email, &sub.Hash, &sub.SubscriberID,
		&sub.Price, &sub.Description, &sub.Plan, &sub.Created, &expires,
		&sub.Mode, &sub.PaymentGateway, &sub.PaymentStatus); err != nil {
		return nil, err
	}
	if expires.Valid {
		sub.Expires = expires.Time
	}
	return sub, nil
}

// FindSubscriberByEmail возвращает запись подписчика по (email, mode).
// Записи одного режима никогда не видны из другого.
func (s *Storage) FindSubscriberByEmail(ctx context.Context, email, mode string) (*models.Subscriber, error) {
	const op = "storage.FindSubscriberByEmail"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + subscriberColumns + `
			  FROM subscribers
			  WHERE email = $1 AND mode = $2`
	sub, err := scanSubscriber(s.DB.QueryRowContext(ctx, query, email, mode))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, ErrSubscriberNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return sub, nil
}

// FindSubscriberByHash возвращает запись подписчика по (hash, mode).
// Логически результат не может содержать больше одной записи; если
// хранилище вернуло несколько, это нарушение целостности, а не выбор
// первой попавшейся.
func (s *Storage) FindSubscriberByHash(ctx context.Context, hash, mode string) (*models.Subscriber, error) {
	const op = "storage.FindSubscriberByHash"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + subscriberColumns + `
			  FROM subscribers
			  WHERE hash = $1 AND mode = $2
			  LIMIT 2`
	rows, err := s.DB.QueryContext(ctx, query, hash, mode)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result *models.Subscriber
	for rows.Next() {
		if result != nil {
			return nil, fmt.Errorf("%s: %w", op, ErrDuplicateHash)
		}
		result, err = scanSubscriber(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if result == nil {
		return nil, fmt.Errorf("%s: %w", op, ErrSubscriberNotFound)
	}
	return result, nil
}
