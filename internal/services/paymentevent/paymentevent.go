// Package paymentevent обрабатывает входящие уведомления платёжного
// шлюза о событиях жизненного цикла подписки и переводит их в изменения
// записей подписчиков.
package paymentevent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/magabrotheeeer/paywall-access/internal/models"
	"github.com/magabrotheeeer/paywall-access/internal/storage/repository"
)

// SubscriberStore определяет операции хранилища подписчиков, нужные
// обработчику событий.
type SubscriberStore interface {
	FindByEmail(ctx context.Context, email string) (*models.Subscriber, error)
	Save(ctx context.Context, sub *models.Subscriber) error
}

// Service реализует таблицу переходов по типам транзакций шлюза.
type Service struct {
	subscribers SubscriberStore
	log         *slog.Logger
}

// New создает новый экземпляр Service.
func New(subscribers SubscriberStore, log *slog.Logger) *Service {
	return &Service{subscribers: subscribers, log: log}
}

// Process применяет уведомление к записи подписчика. Уведомление для
// email без записи не ошибка: доставка от шлюза идёт без повторов,
// поэтому событие логируется и отбрасывается. Неизвестный тип
// транзакции также отбрасывается.
func (s *Service) Process(ctx context.Context, ipn models.PaypalIPN) error {
	const op = "paymentevent.Process"

	sub, err := s.subscribers.FindByEmail(ctx, ipn.Email)
	if errors.Is(err, repository.ErrSubscriberNotFound) {
		s.log.Warn("payment event for unknown subscriber, dropping",
			slog.String("email", ipn.Email), slog.String("txn_type", ipn.TxnType))
		return nil
	}
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	changed := false
	switch ipn.TxnType {
	case models.TxnWebAccept:
		if ipn.PaymentStatus == models.StatusCompleted || ipn.PaymentStatus == models.StatusReversed {
			sub.PaymentStatus = ipn.PaymentStatus
			changed = true
		}
	case models.TxnSubscrSignup:
		sub.Plan = strings.ToUpper(ipn.Period)
		changed = true
	case models.TxnSubscrPayment:
		if ipn.TxnID != "" && ipn.TxnID == sub.SubscriberID && ipn.SubscriberID != "" {
			sub.SubscriberID = ipn.SubscriberID
			changed = true
		}
		if sub.Plan != "" && ipn.PaymentStatus == models.StatusCompleted {
			expires, err := expiryFromPlan(sub.Plan, ipn.PaymentDate)
			if err != nil {
				s.log.Warn("unparseable plan, keeping current expires",
					slog.String("email", ipn.Email), slog.String("plan", sub.Plan))
			} else {
				sub.Expires = expires
				changed = true
			}
		}
	case models.TxnSubscrCancel:
		sub.PaymentStatus = models.StatusCanceled
		changed = true
	case models.TxnSubscrEOT:
		sub.PaymentStatus = models.StatusExpired
		changed = true
	default:
		s.log.Warn("unknown transaction type, dropping",
			slog.String("txn_type", ipn.TxnType), slog.String("email", ipn.Email))
		return nil
	}

	if !changed {
		return nil
	}
	if err := s.subscribers.Save(ctx, sub); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("payment event applied",
		slog.String("email", ipn.Email), slog.String("txn_type", ipn.TxnType),
		slog.String("payment_status", sub.PaymentStatus))
	return nil
}

// expiryFromPlan вычисляет окончание доступа: дата платежа плюс период
// биллинга вида "<число> <D|W|M|Y>", включительно до конца дня.
func expiryFromPlan(plan string, paymentDate time.Time) (time.Time, error) {
	fields := strings.Fields(plan)
	if len(fields) != 2 {
		return time.Time{}, fmt.Errorf("bad billing period %q", plan)
	}
	count, err := strconv.Atoi(fields[0])
	if err != nil {
		return time.Time{}, fmt.Errorf("bad billing period %q: %w", plan, err)
	}

	var expires time.Time
	switch strings.ToUpper(fields[1]) {
	case "D":
		expires = paymentDate.AddDate(0, 0, count)
	case "W":
		expires = paymentDate.AddDate(0, 0, 7*count)
	case "M":
		expires = paymentDate.AddDate(0, count, 0)
	case "Y":
		expires = paymentDate.AddDate(count, 0, 0)
	default:
		return time.Time{}, fmt.Errorf("bad billing period %q", plan)
	}
	return time.Date(expires.Year(), expires.Month(), expires.Day(), 23, 59, 59, 0, expires.Location()), nil
}
