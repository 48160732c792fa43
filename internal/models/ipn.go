package models

import "time"

// Типы транзакций PayPal IPN, которые обрабатывает сервис.
const (
	TxnWebAccept     = "web_accept"
	TxnSubscrSignup  = "subscr_signup"
	TxnSubscrPayment = "subscr_payment"
	TxnSubscrCancel  = "subscr_cancel"
	TxnSubscrEOT     = "subscr_eot"
)

// PaypalIPN — нормализованное входящее уведомление шлюза о событии
// жизненного цикла подписки. Поля уже приведены к нижнему регистру
// там, где это требуется таблице переходов.
type PaypalIPN struct {
	TxnType       string    // Тип транзакции, см. константы Txn*
	TxnID         string    // Идентификатор транзакции
	PaymentStatus string    // Статус платежа в нижнем регистре
	SubscriberID  string    // subscr_id либо recurring_payment_id
	Period        string    // Период биллинга, например "1 M"
	PaymentDate   time.Time // Дата платежа
	Email         string    // Email подписчика из поля custom
}

// LoginLinkEmail — сообщение очереди login.link: всё, что нужно
// отправителю, чтобы собрать письмо со ссылкой для входа.
type LoginLinkEmail struct {
	Email    string        `json:"email"`
	LoginURL string        `json:"login_url"`
	TTL      time.Duration `json:"ttl"`
	SiteName string        `json:"site_name"`
}

// SubscriberChangedEvent — сообщение очереди subscriber.changed,
// публикуется хранилищем подписчиков после каждого слияния.
type SubscriberChangedEvent struct {
	Email          string    `json:"email"`
	Hash           string    `json:"hash"`
	Mode           string    `json:"mode"`
	PaymentGateway string    `json:"payment_gateway"`
	PaymentStatus  string    `json:"payment_status"`
	Expires        time.Time `json:"expires"`
}
