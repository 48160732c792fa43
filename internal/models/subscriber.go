// Package models содержит доменные структуры подписчика платного контента,
// а также словари платёжных шлюзов, режимов хранения и статусов оплаты.
package models

import "time"

// Слаги платёжных шлюзов, через которые могла быть оформлена подписка.
const (
	GatewayStripe         = "stripe"
	GatewayPayPalStandard = "paypal_standard"
	GatewayManual         = "manual"
)

// Режимы хранения записей. Записи live и test полностью изолированы друг от друга.
const (
	ModeLive = "live"
	ModeTest = "test"
)

// Статусы оплаты, приходящие от шлюзов.
const (
	StatusActive         = "active"
	StatusCompleted      = "completed"
	StatusRefunded       = "refunded"
	StatusRefund         = "refund"
	StatusCanceled       = "canceled"
	StatusReversed       = "reversed"
	StatusBuyerComplaint = "buyer_complaint"
	StatusDenied         = "denied"
	StatusExpired        = "expired"
	StatusFailed         = "failed"
	StatusVoided         = "voided"
	StatusDeactivated    = "deactivated"
)

// Subscriber представляет подписчика платного контента.
// На пару (email, mode) существует ровно одна запись.
// Нулевое значение Expires означает бессрочный доступ,
// непустой Plan — регулярную подписку, пустой — разовую покупку.
type Subscriber struct {
	UserID         string    // Идентификатор учётной записи в каталоге пользователей
	Email          string    // Электронная почта подписчика
	Hash           string    // Публичный 32-символьный hex-идентификатор подписчика
	SubscriberID   string    // Идентификатор клиента/подписки на стороне шлюза
	Price          string    // Цена в том виде, в каком её прислал шлюз
	Description    string    // Описание тарифа
	Plan           string    // Код тарифного плана, пустой для разовых покупок
	Created        time.Time // Дата создания записи
	Expires        time.Time // Дата окончания доступа, нулевая — без ограничения
	Mode           string    // live или test
	PaymentGateway string    // Слаг платёжного шлюза
	PaymentStatus  string    // Последний известный статус оплаты
}

// Unlimited сообщает, что запись не имеет даты окончания доступа.
func (s *Subscriber) Unlimited() bool {
	return s.Expires.IsZero()
}

// Recurring сообщает, что запись описывает регулярную подписку.
func (s *Subscriber) Recurring() bool {
	return s.Plan != ""
}

// UpsertArgs — аргументы создания или обновления подписчика.
// Пустые строковые поля считаются отсутствующими и не затирают
// существующие значения при слиянии.
type UpsertArgs struct {
	SubscriberID   string
	Price          string
	Description    string
	Plan           string
	Interval       string // day, week, month или year; пустой — интервал не задан
	IntervalCount  int
	Expires        time.Time // Явная дата окончания, нулевая — не задана
	PaymentGateway string
	PaymentStatus  string
}

// StripeSnapshot — срез актуального состояния клиента на стороне Stripe,
// который требуется вычислителю доступа в дополнение к локальной записи.
type StripeSnapshot struct {
	Deleted              bool   // Клиент удалён на стороне шлюза
	SubscriptionStatus   string // Статус подписки, например "active"
	LatestChargePaid     bool   // Последний платёж оплачен
	LatestChargeRefunded bool   // По последнему платежу оформлен возврат
}
