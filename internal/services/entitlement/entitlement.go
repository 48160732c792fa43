// Package entitlement содержит вычислитель вердикта доступа.
//
// Вердикт детерминированно выводится из локальной записи подписчика; для
// Stripe дополнительно требуется живой срез состояния клиента на стороне
// шлюза. Неизвестный шлюз или статус всегда закрывает доступ. Отказ шлюза
// возвращается ошибкой, а не вердиктом: вызывающая сторона сама закрывает
// доступ и логирует причину.
package entitlement

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/paywall-access/internal/models"
)

// GatewayClient описывает получение живого среза состояния подписчика
// для шлюзов класса Stripe. PayPal и manual живого среза не требуют.
type GatewayClient interface {
	FetchLiveSubscriptionSnapshot(ctx context.Context, subscriberID string) (*models.StripeSnapshot, error)
}

// Service реализует вычисление вердикта доступа.
type Service struct {
	stripe GatewayClient
	log    *slog.Logger
}

// New создает новый экземпляр Service.
func New(stripe GatewayClient, log *slog.Logger) *Service {
	return &Service{
		stripe: stripe,
		log:    log,
	}
}

// Evaluate возвращает вердикт доступа для записи подписчика.
// Чистая функция относительно хранимых данных: запись не изменяется.
func (s *Service) Evaluate(ctx context.Context, sub *models.Subscriber) (models.Verdict, error) {
	const op = "entitlement.Evaluate"

	now := time.Now()
	switch sub.PaymentGateway {
	case models.GatewayStripe:
		snapshot, err := s.stripe.FetchLiveSubscriptionSnapshot(ctx, sub.SubscriberID)
		if err != nil {
			return models.Verdict{}, fmt.Errorf("%s: %w", op, err)
		}
		return evaluateStripe(sub, snapshot, now), nil
	case models.GatewayPayPalStandard:
		return evaluatePaypal(sub, now), nil
	case models.GatewayManual:
		return evaluateManual(sub, now), nil
	default:
		s.log.Warn("unknown payment gateway, denying access",
			slog.String("op", op), slog.String("gateway", sub.PaymentGateway))
		return models.Verdict{Kind: models.VerdictNoAccess}, nil
	}
}

func evaluateStripe(sub *models.Subscriber, snapshot *models.StripeSnapshot, now time.Time) models.Verdict {
	if snapshot.Deleted {
		return models.Verdict{Kind: models.VerdictNoAccess}
	}

	if sub.Recurring() {
		if snapshot.SubscriptionStatus == models.StatusActive {
			return models.Verdict{Kind: models.VerdictSubscription}
		}
		return models.Verdict{Kind: models.VerdictNoAccess}
	}

	// Разовая покупка: доступ определяется датой окончания и последним платежом.
	if sub.Unlimited() {
		return models.Verdict{Kind: models.VerdictUnlimited}
	}
	if sub.Expires.After(now) && snapshot.LatestChargePaid && !snapshot.LatestChargeRefunded {
		return models.Verdict{Kind: models.VerdictExpiring, Expires: sub.Expires}
	}
	return models.Verdict{Kind: models.VerdictNoAccess}
}

func evaluatePaypal(sub *models.Subscriber, now time.Time) models.Verdict {
	switch sub.PaymentStatus {
	case models.StatusActive, models.StatusRefunded, models.StatusRefund, models.StatusCanceled:
	default:
		// Терминальный или неизвестный статус закрывает доступ
		// независимо от даты окончания.
		return models.Verdict{Kind: models.VerdictNoAccess}
	}

	if sub.Unlimited() {
		return models.Verdict{Kind: models.VerdictUnlimited}
	}
	if sub.Recurring() && sub.PaymentStatus == models.StatusActive {
		return models.Verdict{Kind: models.VerdictSubscription}
	}
	if sub.PaymentStatus == models.StatusCanceled {
		return models.Verdict{Kind: models.VerdictCanceled}
	}
	if sub.Expires.After(now) {
		return models.Verdict{Kind: models.VerdictExpiring, Expires: sub.Expires}
	}
	return models.Verdict{Kind: models.VerdictNoAccess}
}

func evaluateManual(sub *models.Subscriber, now time.Time) models.Verdict {
	switch sub.PaymentStatus {
	case models.StatusActive, models.StatusRefunded, models.StatusRefund:
		if sub.Unlimited() {
			return models.Verdict{Kind: models.VerdictUnlimited}
		}
		if sub.Expires.After(now) {
			return models.Verdict{Kind: models.VerdictExpiring, Expires: sub.Expires}
		}
		return models.Verdict{Kind: models.VerdictNoAccess}
	case models.StatusCanceled:
		// Бессрочная отменённая запись никогда не была ограничена по дате,
		// отдельного сообщения об отмене для неё нет.
		if sub.Unlimited() {
			return models.Verdict{Kind: models.VerdictNoAccess}
		}
		return models.Verdict{Kind: models.VerdictCanceled}
	default:
		return models.Verdict{Kind: models.VerdictNoAccess}
	}
}
